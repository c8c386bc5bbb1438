package docstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/packsync/packsync/internal/domain"
)

// DB is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Integration tests pass a transaction that is rolled back after each test.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pgStore keeps every collection in the documents table, one JSONB value
// per document. Equality filters use JSONB containment so the GIN index on
// fields serves every query.
type pgStore struct {
	db DB
}

// NewPostgresStore constructs a Store backed by the documents table.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewPostgresStore(db DB) Store {
	return &pgStore{db: db}
}

func (s *pgStore) Query(ctx context.Context, collection string, filters Filters) ([]Document, error) {
	const q = `
		SELECT id, fields
		FROM documents
		WHERE collection = @collection
		  AND fields @> @filters
		ORDER BY seq`

	if filters == nil {
		filters = Filters{}
	}
	rows, err := s.db.Query(ctx, q, pgx.NamedArgs{
		"collection": collection,
		"filters":    map[string]any(filters),
	})
	if err != nil {
		return nil, fmt.Errorf("docstore.pgStore.Query: %w", err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("docstore.pgStore.Query: scan: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("docstore.pgStore.Query: rows: %w", err)
	}
	return docs, nil
}

func (s *pgStore) Get(ctx context.Context, collection, id string) (Document, error) {
	const q = `
		SELECT id, fields
		FROM documents
		WHERE collection = @collection AND id = @id`

	row := s.db.QueryRow(ctx, q, pgx.NamedArgs{"collection": collection, "id": id})
	d, err := scanDocument(row)
	if err != nil {
		return Document{}, fmt.Errorf("docstore.pgStore.Get: %w", err)
	}
	return d, nil
}

func (s *pgStore) Create(ctx context.Context, collection string, fields map[string]any) (Document, error) {
	const q = `
		INSERT INTO documents (collection, id, fields)
		VALUES (@collection, @id, @fields)
		RETURNING id, fields`

	if fields == nil {
		fields = map[string]any{}
	}
	row := s.db.QueryRow(ctx, q, pgx.NamedArgs{
		"collection": collection,
		"id":         uuid.NewString(),
		"fields":     fields,
	})
	d, err := scanDocument(row)
	if err != nil {
		return Document{}, fmt.Errorf("docstore.pgStore.Create: %w", err)
	}
	return d, nil
}

// SetFields upserts the document. The JSONB || operator gives shallow merge
// semantics: top-level keys in fields win, other stored keys are kept.
func (s *pgStore) SetFields(ctx context.Context, collection, id string, fields map[string]any, merge bool) error {
	const mergeQ = `
		INSERT INTO documents (collection, id, fields)
		VALUES (@collection, @id, @fields)
		ON CONFLICT (collection, id) DO UPDATE
		SET fields     = documents.fields || EXCLUDED.fields,
		    updated_at = now()`
	const replaceQ = `
		INSERT INTO documents (collection, id, fields)
		VALUES (@collection, @id, @fields)
		ON CONFLICT (collection, id) DO UPDATE
		SET fields     = EXCLUDED.fields,
		    updated_at = now()`

	q := replaceQ
	if merge {
		q = mergeQ
	}
	if fields == nil {
		fields = map[string]any{}
	}
	_, err := s.db.Exec(ctx, q, pgx.NamedArgs{
		"collection": collection,
		"id":         id,
		"fields":     fields,
	})
	if err != nil {
		return fmt.Errorf("docstore.pgStore.SetFields: %w", err)
	}
	return nil
}

func (s *pgStore) Delete(ctx context.Context, collection, id string) error {
	const q = `DELETE FROM documents WHERE collection = @collection AND id = @id`

	tag, err := s.db.Exec(ctx, q, pgx.NamedArgs{"collection": collection, "id": id})
	if err != nil {
		return fmt.Errorf("docstore.pgStore.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("docstore.pgStore.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (Document, error) {
	var d Document
	if err := s.Scan(&d.ID, &d.Fields); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, domain.ErrNotFound
		}
		return Document{}, err
	}
	if d.Fields == nil {
		d.Fields = map[string]any{}
	}
	return d, nil
}
