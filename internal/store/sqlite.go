package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/agenthands/lorekeeper/internal/core/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS facts (
	id                     TEXT PRIMARY KEY,
	profile_id             TEXT NOT NULL,
	content                TEXT NOT NULL,
	type                   TEXT NOT NULL DEFAULT 'FACT',
	source                 TEXT NOT NULL DEFAULT '',
	confidence             INTEGER NOT NULL DEFAULT 50,
	importance             INTEGER NOT NULL DEFAULT 1,
	support_count          INTEGER NOT NULL DEFAULT 1,
	status                 TEXT NOT NULL DEFAULT 'ACTIVE',
	contradiction_group_id TEXT,
	is_protected           INTEGER NOT NULL DEFAULT 0,
	created_at             DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at             DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_facts_profile_status ON facts(profile_id, status);
CREATE INDEX IF NOT EXISTS idx_facts_group ON facts(contradiction_group_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) InsertFact(ctx context.Context, f *model.Fact) error {
	if err := prepareFact(f); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO facts (`+factColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.ProfileID, f.Content, f.Type, f.Source, f.Confidence, f.Importance, f.SupportCount,
		string(f.Status), nullString(f.ContradictionGroupID), f.IsProtected, f.CreatedAt, f.UpdatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert fact %s", f.ID)
}

func (s *SQLiteStore) GetFact(ctx context.Context, profileID, factID string) (*model.Fact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+factColumns+` FROM facts WHERE id = ? AND profile_id = ?`,
		factID, profileID,
	)
	f, err := scanFact(row)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get fact %s", factID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get fact %s", factID)
	}
	return f, nil
}

func (s *SQLiteStore) ListActiveFacts(ctx context.Context, profileID string, limit int) ([]model.Fact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+factColumns+` FROM facts
		WHERE profile_id = ? AND status = 'ACTIVE' AND contradiction_group_id IS NULL
		ORDER BY created_at DESC LIMIT ?`,
		profileID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list active facts")
	}
	return collectFacts(rows)
}

func (s *SQLiteStore) ListFacts(ctx context.Context, profileID string, filter FactFilter) ([]model.Fact, error) {
	query := `SELECT ` + factColumns + ` FROM facts WHERE profile_id = ?`
	args := []any{profileID}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY importance DESC, created_at DESC LIMIT ? OFFSET ?`
	args = append(args, listLimit(filter), filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list facts")
	}
	return collectFacts(rows)
}

func (s *SQLiteStore) MarkGroup(ctx context.Context, factIDs []string, groupID string) error {
	return sqliteMark(ctx, s.db, factIDs, groupID)
}

func (s *SQLiteStore) SetStatus(ctx context.Context, factID string, status model.FactStatus) error {
	return sqliteSet(ctx, s.db, factID, status)
}

// ResolveGroup runs the mark and reactivate steps in one transaction.
func (s *SQLiteStore) ResolveGroup(ctx context.Context, factIDs []string, groupID, primaryID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin resolve group")
	}
	defer func() { _ = tx.Rollback() }()

	if err := sqliteMark(ctx, tx, factIDs, groupID); err != nil {
		return err
	}
	if err := sqliteSet(ctx, tx, primaryID, model.StatusActive); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit resolve group")
}

type sqlExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func sqliteMark(ctx context.Context, db sqlExecer, factIDs []string, groupID string) error {
	if len(factIDs) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(factIDs)), ", ")
	args := []any{groupID, time.Now().UTC()}
	for _, id := range factIDs {
		args = append(args, id)
	}

	res, err := db.ExecContext(ctx,
		`UPDATE facts SET status = 'AMBIGUOUS', contradiction_group_id = ?, updated_at = ? WHERE id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark group %s", groupID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if int(n) != len(factIDs) {
		return eris.Wrapf(ErrNotFound, "sqlite: mark group %s updated %d of %d facts", groupID, n, len(factIDs))
	}
	return nil
}

func sqliteSet(ctx context.Context, db sqlExecer, factID string, status model.FactStatus) error {
	res, err := db.ExecContext(ctx,
		`UPDATE facts SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), factID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set status %s", factID)
	}
	return checkRowsAffected(res, factID)
}

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "fact %s", id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanFact(row scannable) (*model.Fact, error) {
	var f model.Fact
	var status string
	var group sql.NullString
	err := row.Scan(&f.ID, &f.ProfileID, &f.Content, &f.Type, &f.Source, &f.Confidence, &f.Importance,
		&f.SupportCount, &status, &group, &f.IsProtected, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	f.Status = model.FactStatus(status)
	if group.Valid {
		f.ContradictionGroupID = &group.String
	}
	return &f, nil
}

func collectFacts(rows *sql.Rows) ([]model.Fact, error) {
	defer rows.Close()

	var facts []model.Fact
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan fact")
		}
		facts = append(facts, *f)
	}
	return facts, eris.Wrap(rows.Err(), "sqlite: iterate facts")
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
