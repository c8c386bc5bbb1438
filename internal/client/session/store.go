package session

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/packsync/packsync/internal/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Saved is what a TokenStore keeps between runs.
type Saved struct {
	Token string
	User  domain.User
}

// TokenStore persists the signed-in session. The active plan is never stored.
type TokenStore interface {
	// Load returns the saved session; ok is false when there is none.
	Load(ctx context.Context) (s Saved, ok bool, err error)
	Save(ctx context.Context, s Saved) error
	Clear(ctx context.Context) error
}

// SQLiteStore is a TokenStore in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

var _ TokenStore = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the session database at path and
// brings its schema up to date.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("session.OpenSQLite: %w", err)
	}
	// One connection: SQLite serializes writers anyway, and ":memory:"
	// databases are per connection.
	db.SetMaxOpenConns(1)

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("session.OpenSQLite: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	dir, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, dir)
	if err != nil {
		return fmt.Errorf("create goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Load(ctx context.Context) (Saved, bool, error) {
	var saved Saved
	err := s.db.QueryRowContext(ctx,
		`SELECT token, user_id, email, display_name FROM session WHERE id = 1`,
	).Scan(&saved.Token, &saved.User.ID, &saved.User.Email, &saved.User.DisplayName)
	if errors.Is(err, sql.ErrNoRows) {
		return Saved{}, false, nil
	}
	if err != nil {
		return Saved{}, false, fmt.Errorf("session.SQLiteStore.Load: %w", err)
	}
	return saved, true, nil
}

func (s *SQLiteStore) Save(ctx context.Context, saved Saved) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session (id, token, user_id, email, display_name, saved_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			token = excluded.token,
			user_id = excluded.user_id,
			email = excluded.email,
			display_name = excluded.display_name,
			saved_at = excluded.saved_at
	`, saved.Token, saved.User.ID, saved.User.Email, saved.User.DisplayName, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("session.SQLiteStore.Save: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session`); err != nil {
		return fmt.Errorf("session.SQLiteStore.Clear: %w", err)
	}
	return nil
}
