// Package backend builds the transaction store and user store selected by
// configuration.
package backend

import (
	"context"
	"time"

	"finsight/internal/auth"
	"finsight/internal/ledger"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// PingFunc reports whether the backend is reachable.
type PingFunc func(ctx context.Context) error

// BackendResult contains the stores and optional lifecycle hooks.
type BackendResult struct {
	Store   ledger.Store
	Users   auth.UserStore
	Ping    PingFunc
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string
	PostgresURL  string

	APIBaseURL string
	APITimeout time.Duration
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	APIBackend      BackendType = "api"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend, APIBackend:
		return true
	default:
		return false
	}
}
