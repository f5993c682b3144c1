package google

import (
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

const installedClient = `{"installed":{"client_id":"id.apps.googleusercontent.com","client_secret":"secret","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token","redirect_uris":["http://localhost"]}}`

func TestOAuthConfig(t *testing.T) {
	cfg, err := OAuthConfig([]byte(installedClient), "http://localhost:8085/callback")
	if err != nil {
		t.Fatalf("OAuthConfig: %v", err)
	}
	if cfg.ClientID != "id.apps.googleusercontent.com" {
		t.Errorf("client id = %q", cfg.ClientID)
	}
	if cfg.RedirectURL != "http://localhost:8085/callback" {
		t.Errorf("redirect = %q", cfg.RedirectURL)
	}
	if _, err := OAuthConfig([]byte(`{}`), ""); err == nil {
		t.Error("expected error for empty client")
	}
}

func TestLoadOAuthClient(t *testing.T) {
	if _, err := LoadOAuthClient("", ""); err == nil {
		t.Fatal("expected error without client")
	}
	data, err := LoadOAuthClient(installedClient, "/does/not/exist")
	if err != nil || string(data) != installedClient {
		t.Fatalf("inline JSON should win: %v", err)
	}
	if _, err := LoadOAuthClient("", "/does/not/exist"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestTokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	want := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer", Expiry: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}
	if err := SaveToken(path, want); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}
	got, err := LoadToken(path)
	if err != nil {
		t.Fatalf("LoadToken: %v", err)
	}
	if got.RefreshToken != "refresh" || !got.Expiry.Equal(want.Expiry) {
		t.Errorf("got %+v", got)
	}
	if _, err := LoadToken(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing token file")
	}
}

func TestCredentialsPrecedence(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
		oauth bool
	}{
		{"service account json", Credentials{JSON: "{}", OAuthTokenFile: "t.json"}, false},
		{"service account file", Credentials{File: "sa.json", OAuthTokenFile: "t.json"}, false},
		{"oauth token", Credentials{OAuthClientJSON: installedClient, OAuthTokenFile: "t.json"}, true},
		{"nothing", Credentials{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.creds.useOAuth(); got != tt.oauth {
				t.Errorf("useOAuth() = %v, want %v", got, tt.oauth)
			}
		})
	}
}
