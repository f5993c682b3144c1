// Package remote talks to an external REST backend that owns the
// transactions, forwarding the caller's bearer token.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"finsight/internal/auth"
	"finsight/internal/core"
	"finsight/internal/ledger"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: backend returned %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: backend returned %d: %s", e.Op, e.Status, e.Body)
}

const maxErrorBody = 512

// Client implements ledger.Store over HTTP. An empty base URL yields
// ledger.ErrNotConfigured from every call.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ ledger.Store = (*Client)(nil)

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: timeout}}
}

// WithHTTPClient replaces the underlying client; used by tests.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

func (c *Client) List(ctx context.Context) ([]core.Transaction, error) {
	var out []core.Transaction
	if err := c.do(ctx, "list transactions", http.MethodGet, "/transactions", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []core.Transaction{}
	}
	return out, nil
}

func (c *Client) Get(ctx context.Context, id string) (core.Transaction, error) {
	var out core.Transaction
	err := c.do(ctx, "get transaction", http.MethodGet, "/transactions/"+url.PathEscape(id), nil, &out)
	return out, err
}

// Create posts tx without an id; the backend assigns one.
func (c *Client) Create(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	tx.ID = ""
	var out core.Transaction
	err := c.do(ctx, "create transaction", http.MethodPost, "/transactions", tx, &out)
	return out, err
}

func (c *Client) Update(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	var out core.Transaction
	err := c.do(ctx, "update transaction", http.MethodPut, "/transactions/"+url.PathEscape(tx.ID), tx, &out)
	return out, err
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, "delete transaction", http.MethodDelete, "/transactions/"+url.PathEscape(id), nil, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	if c.baseURL == "" {
		return fmt.Errorf("%s: %w", op, ledger.ErrNotConfigured)
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sess, ok := auth.SessionFrom(ctx); ok && sess.Token != "" {
		req.Header.Set("Authorization", "Bearer "+sess.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", op, ledger.ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Op: op, Status: resp.StatusCode, Body: string(bytes.TrimSpace(snippet))}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%s: empty response body", op)
		}
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
