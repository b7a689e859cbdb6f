package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/duongtruongbinh/legal-rag/internal/core/domain"
)

// ParentStore keeps parent chunks in Postgres keyed by parent_id. The
// vector index holds only child chunks; answers are grounded on the
// wider parent text fetched from here.
type ParentStore struct {
	db *sql.DB
}

func NewParentStore(db *sql.DB) *ParentStore {
	return &ParentStore{db: db}
}

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

func (s *ParentStore) EnsureSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026021002)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS parent_chunks (
	parent_id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	law_id TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_parent_chunks_document_id ON parent_chunks(document_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// maxUpsertRows caps one multi-row INSERT at 5 binds per row, well under
// the extended-protocol limit of 65535 parameters per statement.
const maxUpsertRows = 1000

func (s *ParentStore) Put(ctx context.Context, parents []domain.ParentChunk) error {
	for start := 0; start < len(parents); start += maxUpsertRows {
		end := start + maxUpsertRows
		if end > len(parents) {
			end = len(parents)
		}
		if err := s.upsertBatch(ctx, parents[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *ParentStore) upsertBatch(ctx context.Context, parents []domain.ParentChunk) error {
	var b strings.Builder
	b.WriteString(`
INSERT INTO parent_chunks (parent_id, document_id, title, law_id, content)
VALUES `)
	args := make([]any, 0, len(parents)*5)
	for i, parent := range parents {
		if i > 0 {
			b.WriteString(",")
		}
		base := i * 5
		fmt.Fprintf(&b, "($%d,$%d,$%d,$%d,$%d)", base+1, base+2, base+3, base+4, base+5)
		args = append(args, parent.ParentID, parent.DocumentID, parent.Title, parent.LawID, parent.Text)
	}
	b.WriteString(`
ON CONFLICT (parent_id) DO UPDATE SET
	document_id = EXCLUDED.document_id,
	title = EXCLUDED.title,
	law_id = EXCLUDED.law_id,
	content = EXCLUDED.content`)

	if _, err := s.db.ExecContext(ctx, b.String(), args...); err != nil {
		return fmt.Errorf("upsert parent chunks: %w", err)
	}
	return nil
}

func (s *ParentStore) Get(ctx context.Context, parentID string) (*domain.ParentChunk, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT parent_id, document_id, title, law_id, content
FROM parent_chunks
WHERE parent_id = $1
`, parentID)

	var parent domain.ParentChunk
	err := row.Scan(&parent.ParentID, &parent.DocumentID, &parent.Title, &parent.LawID, &parent.Text)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("parent chunk not found: %s", parentID)
		}
		return nil, fmt.Errorf("scan parent chunk: %w", err)
	}
	return &parent, nil
}

// Reset clears the store before a full re-ingestion, mirroring the
// collection recreation on the vector side.
func (s *ParentStore) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `TRUNCATE TABLE parent_chunks`); err != nil {
		return fmt.Errorf("truncate parent chunks: %w", err)
	}
	return nil
}
