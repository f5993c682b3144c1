package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"finsight/internal/auth"
	"finsight/internal/core"
	"finsight/internal/ledger"
	"finsight/internal/log"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	logger := log.New(log.Config{Output: io.Discard})
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"), logger)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testTx(id string, day int, cents int64) core.Transaction {
	return core.Transaction{
		ID:          id,
		Date:        core.NewDate(2025, 3, day),
		Description: "tx " + id,
		Amount:      core.Money{Cents: cents},
		Type:        core.Expense,
		Category:    "groceries",
	}
}

func TestRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if _, err := repo.Create(ctx, testTx("a", 2, 1050)); err != nil {
		t.Fatalf("create a: %v", err)
	}
	if _, err := repo.Create(ctx, testTx("b", 9, 200)); err != nil {
		t.Fatalf("create b: %v", err)
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "b" {
		t.Fatalf("expected newest first, got %+v", list)
	}

	got, err := repo.Get(ctx, "a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != testTx("a", 2, 1050) {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	updated := got
	updated.Amount = core.Money{Cents: 999}
	updated.Type = core.Income
	updated.Category = "salary"
	if _, err := repo.Update(ctx, updated); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ = repo.Get(ctx, "a")
	if got.Amount.Cents != 999 || got.Type != core.Income {
		t.Fatalf("update not persisted: %+v", got)
	}

	if err := repo.Delete(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Get(ctx, "a"); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.Delete(ctx, "a"); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if _, err := repo.Update(ctx, testTx("zzz", 1, 1)); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound updating missing row, got %v", err)
	}
}

func TestRepositoryOwnerScoping(t *testing.T) {
	repo := newTestRepo(t)
	alice := auth.WithSession(context.Background(), auth.Session{UserID: "alice"})
	bob := auth.WithSession(context.Background(), auth.Session{UserID: "bob"})

	if _, err := repo.Create(alice, testTx("x", 1, 100)); err != nil {
		t.Fatal(err)
	}
	if list, _ := repo.List(bob); len(list) != 0 {
		t.Fatalf("bob sees alice's rows: %+v", list)
	}
	if err := repo.Delete(bob, "x"); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("bob deleted alice's row: %v", err)
	}
}

func TestRepositoryValidation(t *testing.T) {
	repo := newTestRepo(t)
	bad := testTx("neg", 1, -5)
	if _, err := repo.Create(context.Background(), bad); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestRepositoryUsers(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	u := auth.User{ID: "u1", Email: "Ana@Example.com", PasswordHash: "hash"}
	if err := repo.CreateUser(ctx, u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := repo.CreateUser(ctx, auth.User{ID: "u2", Email: "ana@example.com", PasswordHash: "h"}); !errors.Is(err, auth.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}

	got, err := repo.UserByEmail(ctx, "ANA@example.com")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.ID != "u1" || got.PasswordHash != "hash" {
		t.Fatalf("unexpected user %+v", got)
	}
	if _, err := repo.UserByEmail(ctx, "nobody@example.com"); !errors.Is(err, auth.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")
	logger := log.New(log.Config{Output: io.Discard})
	for i := 0; i < 2; i++ {
		repo, err := NewSQLiteRepository(path, logger)
		if err != nil {
			t.Fatalf("open #%d: %v", i, err)
		}
		repo.Close()
	}
}

func TestRebind(t *testing.T) {
	pg := &Repository{dialect: DialectPostgres}
	if got := pg.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Fatalf("unexpected rebind %q", got)
	}
	lite := &Repository{dialect: DialectSQLite}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Fatalf("sqlite query should be untouched, got %q", got)
	}
}
