package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/agenthands/lorekeeper/internal/core/model"
)

// pool is the subset of pgxpool.Pool the store uses, so tests can swap in
// pgxmock.
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// execer is satisfied by both the pool and a transaction.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool pool
}

const factColumns = `id, profile_id, content, type, source, confidence, importance, support_count, status, contradiction_group_id, is_protected, created_at, updated_at`

const (
	pgInsertFact      = `INSERT INTO facts (` + factColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	pgGetFact         = `SELECT ` + factColumns + ` FROM facts WHERE id = $1 AND profile_id = $2`
	pgListActiveFacts = `SELECT ` + factColumns + ` FROM facts WHERE profile_id = $1 AND status = 'ACTIVE' AND contradiction_group_id IS NULL ORDER BY created_at DESC LIMIT $2`
	pgListFacts       = `SELECT ` + factColumns + ` FROM facts WHERE profile_id = $1 AND ($2 = '' OR status = $2) ORDER BY importance DESC, created_at DESC LIMIT $3 OFFSET $4`
	pgMarkGroup       = `UPDATE facts SET status = 'AMBIGUOUS', contradiction_group_id = $1, updated_at = $2 WHERE id = ANY($3)`
	pgSetStatus       = `UPDATE facts SET status = $1, updated_at = $2 WHERE id = $3`
)

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 1
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	p, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: p}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS facts (
	id                     TEXT PRIMARY KEY,
	profile_id             TEXT NOT NULL,
	content                TEXT NOT NULL,
	type                   TEXT NOT NULL DEFAULT 'FACT',
	source                 TEXT NOT NULL DEFAULT '',
	confidence             INTEGER NOT NULL DEFAULT 50 CHECK (confidence BETWEEN 0 AND 100),
	importance             INTEGER NOT NULL DEFAULT 1 CHECK (importance BETWEEN 1 AND 5),
	support_count          INTEGER NOT NULL DEFAULT 1 CHECK (support_count >= 1),
	status                 TEXT NOT NULL DEFAULT 'ACTIVE',
	contradiction_group_id TEXT,
	is_protected           BOOLEAN NOT NULL DEFAULT false,
	created_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at             TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_facts_profile_status ON facts(profile_id, status);
CREATE INDEX IF NOT EXISTS idx_facts_group ON facts(contradiction_group_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) InsertFact(ctx context.Context, f *model.Fact) error {
	if err := prepareFact(f); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, pgInsertFact,
		f.ID, f.ProfileID, f.Content, f.Type, f.Source, f.Confidence, f.Importance, f.SupportCount,
		string(f.Status), f.ContradictionGroupID, f.IsProtected, f.CreatedAt, f.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: insert fact %s", f.ID)
}

func (s *PostgresStore) GetFact(ctx context.Context, profileID, factID string) (*model.Fact, error) {
	f, err := scanPgFact(s.pool.QueryRow(ctx, pgGetFact, factID, profileID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get fact %s", factID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get fact %s", factID)
	}
	return f, nil
}

func (s *PostgresStore) ListActiveFacts(ctx context.Context, profileID string, limit int) ([]model.Fact, error) {
	rows, err := s.pool.Query(ctx, pgListActiveFacts, profileID, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list active facts")
	}
	return collectPgFacts(rows)
}

func (s *PostgresStore) ListFacts(ctx context.Context, profileID string, filter FactFilter) ([]model.Fact, error) {
	rows, err := s.pool.Query(ctx, pgListFacts, profileID, string(filter.Status), listLimit(filter), filter.Offset)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list facts")
	}
	return collectPgFacts(rows)
}

func (s *PostgresStore) MarkGroup(ctx context.Context, factIDs []string, groupID string) error {
	return pgMark(ctx, s.pool, factIDs, groupID)
}

func (s *PostgresStore) SetStatus(ctx context.Context, factID string, status model.FactStatus) error {
	return pgSet(ctx, s.pool, factID, status)
}

// ResolveGroup runs the mark and reactivate steps in one transaction.
func (s *PostgresStore) ResolveGroup(ctx context.Context, factIDs []string, groupID, primaryID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin resolve group")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := pgMark(ctx, tx, factIDs, groupID); err != nil {
		return err
	}
	if err := pgSet(ctx, tx, primaryID, model.StatusActive); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit resolve group")
}

func pgMark(ctx context.Context, db execer, factIDs []string, groupID string) error {
	tag, err := db.Exec(ctx, pgMarkGroup, groupID, time.Now().UTC(), factIDs)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark group %s", groupID)
	}
	if int(tag.RowsAffected()) != len(factIDs) {
		return eris.Wrapf(ErrNotFound, "postgres: mark group %s updated %d of %d facts", groupID, tag.RowsAffected(), len(factIDs))
	}
	return nil
}

func pgSet(ctx context.Context, db execer, factID string, status model.FactStatus) error {
	tag, err := db.Exec(ctx, pgSetStatus, string(status), time.Now().UTC(), factID)
	if err != nil {
		return eris.Wrapf(err, "postgres: set status %s", factID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: set status %s", factID)
	}
	return nil
}

func scanPgFact(row pgx.Row) (*model.Fact, error) {
	var f model.Fact
	var status string
	err := row.Scan(&f.ID, &f.ProfileID, &f.Content, &f.Type, &f.Source, &f.Confidence, &f.Importance,
		&f.SupportCount, &status, &f.ContradictionGroupID, &f.IsProtected, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	f.Status = model.FactStatus(status)
	return &f, nil
}

func collectPgFacts(rows pgx.Rows) ([]model.Fact, error) {
	defer rows.Close()

	var facts []model.Fact
	for rows.Next() {
		f, err := scanPgFact(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan fact")
		}
		facts = append(facts, *f)
	}
	return facts, eris.Wrap(rows.Err(), "postgres: iterate facts")
}
