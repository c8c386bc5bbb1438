// Package repo contains the relational data access for Packsync accounts.
// Documents live in the docstore package; only login records need their own
// table. No business logic lives here, only SQL and type mapping.
package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/packsync/packsync/internal/domain"
)

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool lets integration tests
// pass a transaction that is rolled back after each test.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AccountRepo defines the persistence operations for Accounts.
// The service layer depends on this interface so it can be unit-tested with a mock.
type AccountRepo interface {
	// Create inserts a new account and returns it with its DB-generated id and
	// timestamps. Returns domain.ErrConflict if the email is already taken.
	Create(ctx context.Context, acct domain.Account) (domain.Account, error)

	// GetByEmail looks an account up by its (lower-cased) email.
	// Returns domain.ErrNotFound if there is none.
	GetByEmail(ctx context.Context, email string) (domain.Account, error)

	// GetByID looks an account up by primary key.
	// Returns domain.ErrNotFound if there is none.
	GetByID(ctx context.Context, id string) (domain.Account, error)

	// UpdateDisplayName changes the display name and returns the updated record.
	UpdateDisplayName(ctx context.Context, id, displayName string) (domain.Account, error)
}

// pgAccountRepo is the Postgres implementation of AccountRepo.
type pgAccountRepo struct {
	db db
}

// NewAccountRepo constructs an AccountRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewAccountRepo(db db) AccountRepo {
	return &pgAccountRepo{db: db}
}

const accountColumns = `id, email, display_name, password_hash, created_at, updated_at`

func (r *pgAccountRepo) Create(ctx context.Context, acct domain.Account) (domain.Account, error) {
	const q = `
		INSERT INTO accounts (email, display_name, password_hash)
		VALUES (@email, @display_name, @password_hash)
		RETURNING ` + accountColumns

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{
		"email":         acct.Email,
		"display_name":  acct.DisplayName,
		"password_hash": acct.PasswordHash,
	})
	result, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.Account{}, fmt.Errorf("repo.AccountRepo.Create: %w", domain.ErrConflict)
		}
		return domain.Account{}, fmt.Errorf("repo.AccountRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgAccountRepo) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	const q = `SELECT ` + accountColumns + ` FROM accounts WHERE email = @email`

	result, err := scanAccount(r.db.QueryRow(ctx, q, pgx.NamedArgs{"email": email}))
	if err != nil {
		return domain.Account{}, fmt.Errorf("repo.AccountRepo.GetByEmail: %w", err)
	}
	return result, nil
}

func (r *pgAccountRepo) GetByID(ctx context.Context, id string) (domain.Account, error) {
	const q = `SELECT ` + accountColumns + ` FROM accounts WHERE id = @id`

	uid, err := uuid.Parse(id)
	if err != nil {
		// Not a UUID, so it cannot name an account.
		return domain.Account{}, fmt.Errorf("repo.AccountRepo.GetByID: %w", domain.ErrNotFound)
	}
	result, err := scanAccount(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": uid}))
	if err != nil {
		return domain.Account{}, fmt.Errorf("repo.AccountRepo.GetByID: %w", err)
	}
	return result, nil
}

func (r *pgAccountRepo) UpdateDisplayName(ctx context.Context, id, displayName string) (domain.Account, error) {
	const q = `
		UPDATE accounts
		SET display_name = @display_name,
		    updated_at   = now()
		WHERE id = @id
		RETURNING ` + accountColumns

	uid, err := uuid.Parse(id)
	if err != nil {
		return domain.Account{}, fmt.Errorf("repo.AccountRepo.UpdateDisplayName: %w", domain.ErrNotFound)
	}
	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": uid, "display_name": displayName})
	result, err := scanAccount(row)
	if err != nil {
		return domain.Account{}, fmt.Errorf("repo.AccountRepo.UpdateDisplayName: %w", err)
	}
	return result, nil
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanAccount maps a single database row into a domain.Account.
func scanAccount(s scanner) (domain.Account, error) {
	var (
		a  domain.Account
		id pgtype.UUID
	)
	err := s.Scan(&id, &a.Email, &a.DisplayName, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, domain.ErrNotFound
		}
		return domain.Account{}, err
	}
	a.ID = uuid.UUID(id.Bytes).String()
	return a, nil
}
