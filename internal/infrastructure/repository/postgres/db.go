package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/construo/opsportal/internal/core/domain"
	"github.com/construo/opsportal/internal/core/ports"
)

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// Store implements ports.UnitOfWork: one database transaction per lifecycle
// operation, commit on nil, rollback otherwise.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Execute(ctx context.Context, fn func(ctx context.Context, tx ports.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(ctx, &storeTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type storeTx struct {
	tx *sql.Tx
}

func (t *storeTx) StartupFolders() ports.StartupFolderRepository {
	return &StartupFolderRepository{q: t.tx}
}

func (t *storeTx) Folders() ports.CategoryFolderRepository {
	return &CategoryFolderRepository{q: t.tx}
}

func (t *storeTx) Documents() ports.DocumentRepository {
	return &DocumentRepository{q: t.tx}
}

func (t *storeTx) Directory() ports.DirectoryRepository {
	return &DirectoryRepository{q: t.tx}
}

// querier is satisfied by both *sql.DB and *sql.Tx so repositories can be
// exercised standalone in tests.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS startup_folders (
	id TEXT PRIMARY KEY,
	company_id TEXT NOT NULL,
	name TEXT NOT NULL,
	type TEXT NOT NULL,
	extended_duration BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_startup_folders_active
	ON startup_folders(company_id, type);

CREATE TABLE IF NOT EXISTS category_folders (
	id TEXT PRIMARY KEY,
	startup_folder_id TEXT NOT NULL REFERENCES startup_folders(id),
	kind TEXT NOT NULL,
	linked_entity_id TEXT,
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_category_folders_link
	ON category_folders(startup_folder_id, kind, linked_entity_id)
	WHERE linked_entity_id IS NOT NULL;

CREATE INDEX IF NOT EXISTS idx_category_folders_root ON category_folders(startup_folder_id);

CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	folder_id TEXT NOT NULL REFERENCES category_folders(id),
	document_type TEXT NOT NULL,
	name TEXT NOT NULL,
	url TEXT NOT NULL DEFAULT '',
	mime_type TEXT NOT NULL DEFAULT '',
	size BIGINT NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	review_note TEXT NOT NULL DEFAULT '',
	expiration_date TIMESTAMPTZ,
	registration_date TIMESTAMPTZ NOT NULL,
	revision_count INTEGER NOT NULL DEFAULT 0,
	uploaded_by_id TEXT NOT NULL,
	uploaded_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_folder ON documents(folder_id);
CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);

CREATE TABLE IF NOT EXISTS document_histories (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id),
	previous_url TEXT NOT NULL,
	previous_name TEXT NOT NULL,
	modified_by_id TEXT NOT NULL,
	modified_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_document_histories_document ON document_histories(document_id);

CREATE TABLE IF NOT EXISTS workers (
	id TEXT PRIMARY KEY,
	company_id TEXT NOT NULL,
	full_name TEXT NOT NULL,
	active BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS vehicles (
	id TEXT PRIMARY KEY,
	company_id TEXT NOT NULL,
	plate TEXT NOT NULL,
	active BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS activity_log (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	module TEXT NOT NULL,
	action TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
	occurred_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_activity_log_entity ON activity_log(entity_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

const uniqueViolation = "23505"

// mapWriteError surfaces unique-index violations as conflicts; everything else
// stays an infrastructure error.
func mapWriteError(operation string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.WrapError(domain.ErrConflict, operation, err)
	}
	return fmt.Errorf("%s: %w", operation, err)
}
