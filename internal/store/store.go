package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite"

	"github.com/valpere/humanizer/internal"
	"github.com/valpere/humanizer/internal/pipeline"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite serialises writers; one connection avoids SQLITE_BUSY between
	// concurrent checkpoint writes.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		source_text TEXT NOT NULL,
		strategy TEXT NOT NULL,
		level INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'running',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- chunk_checkpoints holds the output of every completed chunk for resume support
	CREATE TABLE IF NOT EXISTS chunk_checkpoints (
		job_id TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		content_hash TEXT NOT NULL,
		transformed TEXT NOT NULL,
		declined BOOLEAN DEFAULT FALSE,
		attempts INTEGER DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (job_id, chunk_index)
	);

	-- protected_terms are copied verbatim into every rewrite
	CREATE TABLE IF NOT EXISTS protected_terms (
		id TEXT PRIMARY KEY,
		term TEXT NOT NULL UNIQUE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_jobs_created ON jobs(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// JobRecord is a row from the jobs table.
type JobRecord struct {
	ID         string
	SourceText string
	Strategy   string
	Level      int
	Status     internal.JobStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Chunks     int
}

// JobStats summarises the jobs table.
type JobStats struct {
	TotalJobs     int
	RunningJobs   int
	CompletedJobs int
	FailedJobs    int
	CancelledJobs int
	Checkpoints   int
}

// SaveJob records a submitted job. Re-submitting an existing id, as a resume
// does, marks it running again and keeps its checkpoints.
func (s *Store) SaveJob(ctx context.Context, req internal.JobRequest) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, source_text, strategy, level, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET strategy = excluded.strategy, level = excluded.level, status = excluded.status, updated_at = excluded.updated_at`,
		req.ID, req.SourceText, req.Strategy, req.Level, string(internal.JobRunning), req.Timestamp, now)
	return err
}

func (s *Store) UpdateJobStatus(ctx context.Context, id string, status internal.JobStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now(), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return nil
}

const jobColumns = `j.id, j.source_text, j.strategy, j.level, j.status, j.created_at, j.updated_at,
	(SELECT COUNT(*) FROM chunk_checkpoints c WHERE c.job_id = j.id)`

func scanJob(row interface{ Scan(...any) error }) (JobRecord, error) {
	var r JobRecord
	var status string
	err := row.Scan(&r.ID, &r.SourceText, &r.Strategy, &r.Level, &status, &r.CreatedAt, &r.UpdatedAt, &r.Chunks)
	r.Status = internal.JobStatus(status)
	return r, err
}

// GetJob returns one job; Chunks counts its saved checkpoints.
func (s *Store) GetJob(ctx context.Context, id string) (*JobRecord, error) {
	r, err := scanJob(s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs j WHERE j.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListJobs returns all jobs, most recent first.
func (s *Store) ListJobs(ctx context.Context) ([]JobRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs j ORDER BY j.created_at DESC, j.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []JobRecord
	for rows.Next() {
		r, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, r)
	}
	return jobs, rows.Err()
}

// DeleteJob removes a job together with its checkpoints.
func (s *Store) DeleteJob(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunk_checkpoints WHERE job_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return tx.Commit()
}

// ClearJobs removes every finished job and its checkpoints. Running jobs are
// kept so they can still be resumed.
func (s *Store) ClearJobs(ctx context.Context) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM chunk_checkpoints WHERE job_id IN (SELECT id FROM jobs WHERE status != 'running')`); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM jobs WHERE status != 'running'`)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

// Stats returns summary statistics for the jobs table.
func (s *Store) Stats(ctx context.Context) (*JobStats, error) {
	stats := &JobStats{}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'running' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'cancelled' THEN 1 ELSE 0 END), 0),
			(SELECT COUNT(*) FROM chunk_checkpoints)
		FROM jobs`).Scan(
		&stats.TotalJobs,
		&stats.RunningJobs,
		&stats.CompletedJobs,
		&stats.FailedJobs,
		&stats.CancelledJobs,
		&stats.Checkpoints,
	)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// SaveCheckpoint persists one completed chunk, replacing any earlier
// checkpoint for the same index.
func (s *Store) SaveCheckpoint(ctx context.Context, jobID string, cp pipeline.Checkpoint) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO chunk_checkpoints (job_id, chunk_index, content_hash, transformed, declined, attempts) VALUES (?, ?, ?, ?, ?, ?)`,
		jobID, cp.Index, cp.ContentHash, cp.Transformed, cp.Declined, cp.Attempts)
	return err
}

// LoadCheckpoints returns a job's checkpoints ordered by chunk index.
func (s *Store) LoadCheckpoints(ctx context.Context, jobID string) ([]pipeline.Checkpoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chunk_index, content_hash, transformed, declined, attempts FROM chunk_checkpoints WHERE job_id = ? ORDER BY chunk_index`,
		jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cps []pipeline.Checkpoint
	for rows.Next() {
		var cp pipeline.Checkpoint
		if err := rows.Scan(&cp.Index, &cp.ContentHash, &cp.Transformed, &cp.Declined, &cp.Attempts); err != nil {
			return nil, err
		}
		cps = append(cps, cp)
	}
	return cps, rows.Err()
}

// ProtectedTerm is a row in the protected_terms table.
type ProtectedTerm struct {
	ID        string
	Term      string
	CreatedAt time.Time
}

// AddProtectedTerm stores term, NFC-normalised and trimmed. Adding an
// existing term is a no-op.
func (s *Store) AddProtectedTerm(ctx context.Context, term string) error {
	term = normalizeText(term)
	if term == "" {
		return fmt.Errorf("protected term is empty")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO protected_terms (id, term) VALUES (?, ?) ON CONFLICT(term) DO NOTHING`,
		uuid.NewString(), term)
	return err
}

// ListProtectedTerms returns all entries ordered by term.
func (s *Store) ListProtectedTerms(ctx context.Context) ([]ProtectedTerm, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, term, created_at FROM protected_terms ORDER BY term`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ProtectedTerm
	for rows.Next() {
		var e ProtectedTerm
		if err := rows.Scan(&e.ID, &e.Term, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ProtectedTerms returns just the terms, ready for document.FindTerms.
func (s *Store) ProtectedTerms(ctx context.Context) ([]string, error) {
	entries, err := s.ListProtectedTerms(ctx)
	if err != nil {
		return nil, err
	}
	terms := make([]string, len(entries))
	for i, e := range entries {
		terms[i] = e.Term
	}
	return terms, nil
}

// DeleteProtectedTerm removes an entry by ID or by the term itself.
func (s *Store) DeleteProtectedTerm(ctx context.Context, idOrTerm string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM protected_terms WHERE id = ? OR term = ?`, idOrTerm, normalizeText(idOrTerm))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("protected term %q: %w", idOrTerm, ErrNotFound)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// normalizeText trims whitespace and applies Unicode NFC normalization
// for consistent term comparison.
func normalizeText(text string) string {
	return norm.NFC.String(strings.TrimSpace(text))
}
