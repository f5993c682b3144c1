// Command finsight-oauth-init runs the browser consent flow once and saves
// a refresh token the sheets mirror can use instead of a service account.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"

	"finsight/internal/cli"
	"finsight/internal/log"
	gsheet "finsight/internal/sheets/google"
)

const authTimeout = 5 * time.Minute

func main() {
	cli.LoadEnvFile()
	logger := log.New(log.Config{Level: log.ParseLevel(os.Getenv("LOG_LEVEL")), Format: "text", Output: os.Stderr})

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		logger.Error("Authorization failed", log.FieldError, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *log.Logger) error {
	clientJSON, err := gsheet.LoadOAuthClient(os.Getenv("GOOGLE_OAUTH_CLIENT_JSON"), os.Getenv("GOOGLE_OAUTH_CLIENT_FILE"))
	if err != nil {
		return err
	}

	port := envOr("OAUTH_REDIRECT_PORT", "8085")
	cfg, err := gsheet.OAuthConfig(clientJSON, "http://localhost:"+port+"/callback")
	if err != nil {
		return err
	}

	state, err := newState()
	if err != nil {
		return err
	}

	codes := make(chan string, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if e := q.Get("error"); e != "" {
			http.Error(w, "OAuth error: "+e, http.StatusBadRequest)
			return
		}
		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "You may close this window and return to the terminal.")
		select {
		case codes <- q.Get("code"):
		default:
		}
	})
	srv := &http.Server{Addr: ":" + port, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Callback server failed", log.FieldError, err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Printf("Open this URL to authorize:\n%s\n", cfg.AuthCodeURL(state, oauth2.AccessTypeOffline))

	var code string
	select {
	case code = <-codes:
	case <-time.After(authTimeout):
		return errors.New("authorization timed out")
	case <-ctx.Done():
		return errors.New("interrupted")
	}

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("token exchange: %w", err)
	}
	out := envOr("GOOGLE_OAUTH_TOKEN_FILE", "token.json")
	if err := gsheet.SaveToken(out, tok); err != nil {
		return err
	}
	logger.Info("Saved OAuth token", "path", out)
	return nil
}

func newState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
