// Package storage persists transactions and users in SQLite or Postgres.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	_ "modernc.org/sqlite"

	"finsight/internal/auth"
	"finsight/internal/core"
	"finsight/internal/ledger"
	"finsight/internal/log"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

func (d Dialect) driverName() string {
	return string(d)
}

// Repository implements ledger.Store and auth.UserStore over database/sql.
type Repository struct {
	db      *sql.DB
	dialect Dialect
	logger  *log.Logger
}

var (
	_ ledger.Store   = (*Repository)(nil)
	_ auth.UserStore = (*Repository)(nil)
)

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// migrates it.
func NewSQLiteRepository(dbPath string, logger *log.Logger) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return open(DialectSQLite, dbPath, logger)
}

// NewPostgresRepository connects to dsn and migrates the schema.
func NewPostgresRepository(dsn string, logger *log.Logger) (*Repository, error) {
	return open(DialectPostgres, dsn, logger)
}

func open(dialect Dialect, dsn string, logger *log.Logger) (*Repository, error) {
	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// modernc sqlite serialises writers; one connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dialect, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, dialect: dialect, logger: logger.WithComponent(log.ComponentStorage)}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// rebind rewrites ? placeholders to $n for Postgres.
func (r *Repository) rebind(query string) string {
	if r.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

const txColumns = "id, date, description, amount_cents, type, category"

func (r *Repository) List(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		r.rebind("SELECT "+txColumns+" FROM transactions WHERE owner_id = ? ORDER BY date DESC, created_at DESC, id"),
		auth.OwnerFrom(ctx))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := []core.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

func (r *Repository) Get(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		r.rebind("SELECT "+txColumns+" FROM transactions WHERE id = ? AND owner_id = ?"),
		id, auth.OwnerFrom(ctx))
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ledger.ErrNotFound
	}
	return tx, err
}

func (r *Repository) Create(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if tx.ID == "" {
		return core.Transaction{}, errors.New("create transaction: missing id")
	}
	_, err := r.db.ExecContext(ctx,
		r.rebind("INSERT INTO transactions (id, owner_id, date, description, amount_cents, type, category) VALUES (?, ?, ?, ?, ?, ?, ?)"),
		tx.ID, auth.OwnerFrom(ctx), tx.Date.String(), tx.Description, tx.Amount.Cents, string(tx.Type), tx.Category)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	r.logger.DebugContext(ctx, "Transaction inserted", log.FieldTransactionID, tx.ID)
	return tx, nil
}

func (r *Repository) Update(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	res, err := r.db.ExecContext(ctx,
		r.rebind(`UPDATE transactions
			SET date = ?, description = ?, amount_cents = ?, type = ?, category = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND owner_id = ?`),
		tx.Date.String(), tx.Description, tx.Amount.Cents, string(tx.Type), tx.Category, tx.ID, auth.OwnerFrom(ctx))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		r.rebind("DELETE FROM transactions WHERE id = ? AND owner_id = ?"),
		id, auth.OwnerFrom(ctx))
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		tx      core.Transaction
		date    dateValue
		typ     string
		amountC int64
	)
	if err := s.Scan(&tx.ID, &date, &tx.Description, &amountC, &typ, &tx.Category); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Transaction{}, err
		}
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	tx.Date = date.Date
	tx.Amount = core.Money{Cents: amountC}
	tx.Type = core.TransactionType(typ)
	return tx, nil
}

// dateValue scans TEXT (SQLite) and DATE (Postgres) columns.
type dateValue struct {
	core.Date
}

func (d *dateValue) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		d.Date = core.DateOf(v.UTC())
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	default:
		return fmt.Errorf("unsupported date type %T", src)
	}
}

func (d *dateValue) parse(s string) error {
	parsed, err := core.ParseDate(s)
	if err != nil {
		return err
	}
	d.Date = parsed
	return nil
}

func (r *Repository) CreateUser(ctx context.Context, u auth.User) error {
	_, err := r.db.ExecContext(ctx,
		r.rebind("INSERT INTO users (id, email, password_hash) VALUES (?, ?, ?)"),
		u.ID, auth.NormalizeEmail(u.Email), u.PasswordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return auth.ErrUserExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *Repository) UserByEmail(ctx context.Context, email string) (auth.User, error) {
	var u auth.User
	var created any
	err := r.db.QueryRowContext(ctx,
		r.rebind("SELECT id, email, password_hash, created_at FROM users WHERE email = ?"),
		auth.NormalizeEmail(email)).Scan(&u.ID, &u.Email, &u.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.User{}, auth.ErrUserNotFound
	}
	if err != nil {
		return auth.User{}, fmt.Errorf("get user: %w", err)
	}
	if t, ok := created.(time.Time); ok {
		u.CreatedAt = t
	}
	return u, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
