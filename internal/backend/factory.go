package backend

import (
	"context"
	"fmt"

	"finsight/internal/auth"
	"finsight/internal/ledger/memory"
	"finsight/internal/ledger/remote"
	"finsight/internal/log"
	"finsight/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case MemoryBackend:
		return f.createMemoryBackend(ctx)
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return sqlResult(repo), nil
	case PostgresBackend:
		repo, err := storage.NewPostgresRepository(config.PostgresURL, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized Postgres backend")
		return sqlResult(repo), nil
	case APIBackend:
		return f.createAPIBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func sqlResult(repo *storage.Repository) *BackendResult {
	return &BackendResult{
		Store:   repo,
		Users:   repo,
		Ping:    repo.Ping,
		Cleanup: repo.Close,
	}
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context) (*BackendResult, error) {
	f.logger.InfoContext(ctx, "Initialized memory backend")
	return &BackendResult{
		Store: memory.New(),
		Users: auth.NewMemoryUserStore(),
	}, nil
}

// createAPIBackend talks to an external REST service for transactions.
// Accounts stay local since the external service only authorises requests.
func (f *DefaultFactory) createAPIBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if config.APIBaseURL == "" {
		f.logger.WarnContext(ctx, "API_BASE_URL not set, reads will be served from fallback data")
	} else {
		f.logger.InfoContext(ctx, "Initialized API backend", "base_url", config.APIBaseURL, "timeout", config.APITimeout.String())
	}
	return &BackendResult{
		Store: remote.New(config.APIBaseURL, config.APITimeout),
		Users: auth.NewMemoryUserStore(),
	}, nil
}
