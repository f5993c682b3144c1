// Package google mirrors transactions into a Google Sheets spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"finsight/internal/core"
	"finsight/internal/log"
	"finsight/internal/sheets"
)

var _ sheets.Mirror = (*Mirror)(nil)

// Credentials selects how the mirror authenticates with the Sheets API.
// A service account (JSON over File) takes precedence over an OAuth token
// saved by finsight-oauth-init.
type Credentials struct {
	JSON string
	File string

	OAuthClientJSON string
	OAuthClientFile string
	OAuthTokenFile  string
}

func (c Credentials) load() ([]byte, error) {
	switch {
	case strings.TrimSpace(c.JSON) != "":
		return []byte(c.JSON), nil
	case strings.TrimSpace(c.File) != "":
		data, err := os.ReadFile(c.File)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

func (c Credentials) useOAuth() bool {
	return strings.TrimSpace(c.JSON) == "" && strings.TrimSpace(c.File) == "" &&
		strings.TrimSpace(c.OAuthTokenFile) != ""
}

func (c Credentials) clientOptions(ctx context.Context) ([]goption.ClientOption, error) {
	if c.useOAuth() {
		clientJSON, err := LoadOAuthClient(c.OAuthClientJSON, c.OAuthClientFile)
		if err != nil {
			return nil, err
		}
		cfg, err := OAuthConfig(clientJSON, "")
		if err != nil {
			return nil, err
		}
		tok, err := LoadToken(c.OAuthTokenFile)
		if err != nil {
			return nil, err
		}
		return []goption.ClientOption{goption.WithTokenSource(cfg.TokenSource(ctx, tok))}, nil
	}
	data, err := c.load()
	if err != nil {
		return nil, err
	}
	return []goption.ClientOption{
		goption.WithCredentialsJSON(data),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	}, nil
}

type Mirror struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger

	mu      sync.Mutex
	sheetID *int64
}

// New creates a mirror authenticated with creds.
func New(ctx context.Context, spreadsheetID, sheetName string, creds Credentials, logger *log.Logger) (*Mirror, error) {
	opts, err := creds.clientOptions(ctx)
	if err != nil {
		return nil, err
	}
	return NewWithOptions(ctx, spreadsheetID, sheetName, logger, opts...)
}

// NewWithOptions builds the underlying service from raw client options.
func NewWithOptions(ctx context.Context, spreadsheetID, sheetName string, logger *log.Logger, opts ...goption.ClientOption) (*Mirror, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if strings.TrimSpace(sheetName) == "" {
		return nil, errors.New("missing sheet name")
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Mirror{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		logger:        logger.WithComponent(log.ComponentSheets),
	}, nil
}

// Upsert overwrites the row holding tx.ID or appends a new one.
func (m *Mirror) Upsert(ctx context.Context, ownerID string, tx core.Transaction) error {
	ids, err := m.readIDs(ctx)
	if err != nil {
		return err
	}
	values := &gsheet.ValueRange{Values: [][]any{toRow(ownerID, tx)}}

	if len(ids) == 0 {
		header := make([]any, len(sheets.Header))
		for i, h := range sheets.Header {
			header[i] = h
		}
		values.Values = append([][]any{header}, values.Values...)
	}

	if row := findRow(ids, tx.ID); row > 0 {
		rng := fmt.Sprintf("%s!A%d:G%d", m.sheetName, row, row)
		_, err = m.svc.Spreadsheets.Values.Update(m.spreadsheetID, rng, values).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("update %s: %w", rng, err)
		}
		m.logger.DebugContext(ctx, "Updated mirrored row", log.FieldTransactionID, tx.ID, "row", row)
		return nil
	}

	rng := fmt.Sprintf("%s!A:G", m.sheetName)
	_, err = m.svc.Spreadsheets.Values.Append(m.spreadsheetID, rng, values).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", m.sheetName, err)
	}
	m.logger.DebugContext(ctx, "Appended mirrored row", log.FieldTransactionID, tx.ID)
	return nil
}

// Remove deletes the row holding id. A missing row is not an error.
func (m *Mirror) Remove(ctx context.Context, id string) error {
	ids, err := m.readIDs(ctx)
	if err != nil {
		return err
	}
	row := findRow(ids, id)
	if row < 1 {
		m.logger.DebugContext(ctx, "Row already absent", log.FieldTransactionID, id)
		return nil
	}
	sheetID, err := m.resolveSheetID(ctx)
	if err != nil {
		return err
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		DeleteDimension: &gsheet.DeleteDimensionRequest{Range: &gsheet.DimensionRange{
			SheetId:    sheetID,
			Dimension:  "ROWS",
			StartIndex: int64(row - 1),
			EndIndex:   int64(row),
		}},
	}}}
	if _, err := m.svc.Spreadsheets.BatchUpdate(m.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d: %w", row, err)
	}
	m.logger.DebugContext(ctx, "Deleted mirrored row", log.FieldTransactionID, id, "row", row)
	return nil
}

func (m *Mirror) readIDs(ctx context.Context) ([]string, error) {
	rng := fmt.Sprintf("%s!A:A", m.sheetName)
	resp, err := m.svc.Spreadsheets.Values.Get(m.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	ids := make([]string, len(resp.Values))
	for i, row := range resp.Values {
		if len(row) > 0 {
			ids[i] = strings.TrimSpace(fmt.Sprint(row[0]))
		}
	}
	return ids, nil
}

// resolveSheetID looks up the numeric id of the sheet tab, which row
// deletion requires. The result is cached for the mirror's lifetime.
func (m *Mirror) resolveSheetID(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sheetID != nil {
		return *m.sheetID, nil
	}
	ss, err := m.svc.Spreadsheets.Get(m.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet properties: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == m.sheetName {
			id := s.Properties.SheetId
			m.sheetID = &id
			return id, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found", m.sheetName)
}

// findRow returns the 1-based row number holding id, or -1. The header row
// never matches.
func findRow(ids []string, id string) int {
	if id == "" {
		return -1
	}
	for i, v := range ids {
		if i == 0 && v == sheets.Header[0] {
			continue
		}
		if v == id {
			return i + 1
		}
	}
	return -1
}

func toRow(ownerID string, tx core.Transaction) []any {
	return []any{
		tx.ID,
		tx.Date.String(),
		tx.Description,
		tx.Amount.String(),
		string(tx.Type),
		tx.Category,
		ownerID,
	}
}
