package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dunamismax/blastflow/internal/domain"
	"github.com/lib/pq"
)

// results has no foreign key on jobs: rows written by a runner after its
// job was deleted are kept as orphans rather than rejected.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	is_admin BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS jobs (
	id TEXT PRIMARY KEY,
	user_id BIGINT NOT NULL,
	organism TEXT NOT NULL,
	progress INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS jobs_user_created_idx ON jobs (user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS results (
	id BIGSERIAL PRIMARY KEY,
	job_id TEXT NOT NULL,
	accession TEXT NOT NULL,
	top_hit TEXT NOT NULL,
	gene TEXT NOT NULL,
	species TEXT NOT NULL,
	bit_score TEXT NOT NULL,
	evalue TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS results_job_idx ON results (job_id, id);
`

const uniqueViolation = "23505"

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) CreateJob(ctx context.Context, job domain.Job) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (id, user_id, organism, progress, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		job.ID,
		job.UserID,
		job.Organism,
		job.Progress,
		job.Status,
		job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

const jobColumns = `j.id, j.user_id, COALESCE(u.username, ''), j.organism, j.progress, j.status, j.created_at`

func (s *PostgresStore) GetJob(ctx context.Context, id string) (domain.Job, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+jobColumns+`
		 FROM jobs j
		 LEFT JOIN users u ON u.id = j.user_id
		 WHERE j.id = $1`,
		id,
	)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Job{}, false, nil
		}
		return domain.Job{}, false, fmt.Errorf("query job: %w", err)
	}
	return job, true, nil
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]domain.Job, error) {
	query := `SELECT ` + jobColumns + `
		 FROM jobs j
		 LEFT JOIN users u ON u.id = j.user_id`
	var args []any
	if !filter.All {
		query += ` WHERE j.user_id = $1`
		args = append(args, filter.UserID)
	}
	query += ` ORDER BY j.created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

func (s *PostgresStore) DeleteJob(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete job: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrJobNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM results WHERE job_id = $1`, id); err != nil {
		return fmt.Errorf("delete job results: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete job: %w", err)
	}
	return nil
}

func (s *PostgresStore) MarkRunning(ctx context.Context, id string) error {
	return s.execJob(ctx, "mark job running",
		`UPDATE jobs SET status = $1 WHERE id = $2`,
		domain.JobStatusRunning, id)
}

func (s *PostgresStore) UpdateProgress(ctx context.Context, id string, progress int) error {
	return s.execJob(ctx, "update job progress",
		`UPDATE jobs SET progress = $1 WHERE id = $2`,
		progress, id)
}

func (s *PostgresStore) MarkDone(ctx context.Context, id string) error {
	return s.execJob(ctx, "mark job done",
		`UPDATE jobs SET status = $1, progress = 100 WHERE id = $2`,
		domain.JobStatusDone, id)
}

func (s *PostgresStore) execJob(ctx context.Context, what, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if n == 0 {
		return ErrJobNotFound
	}
	return nil
}

func (s *PostgresStore) AppendResult(ctx context.Context, r domain.ResultRecord) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO results (job_id, accession, top_hit, gene, species, bit_score, evalue)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.JobID,
		r.Accession,
		r.TopHit,
		r.Gene,
		r.Species,
		r.BitScore,
		r.EValue,
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListResults(ctx context.Context, jobID string) ([]domain.ResultRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, job_id, accession, top_hit, gene, species, bit_score, evalue
		 FROM results
		 WHERE job_id = $1
		 ORDER BY id`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var out []domain.ResultRecord
	for rows.Next() {
		var r domain.ResultRecord
		if err := rows.Scan(&r.ID, &r.JobID, &r.Accession, &r.TopHit, &r.Gene, &r.Species, &r.BitScore, &r.EValue); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, user domain.User) (domain.User, error) {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	row := s.db.QueryRowContext(
		ctx,
		`INSERT INTO users (username, password_hash, is_admin, created_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		user.Username,
		user.PasswordHash,
		user.IsAdmin,
		user.CreatedAt,
	)
	if err := row.Scan(&user.ID); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.User{}, ErrUserExists
		}
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) GetUserByName(ctx context.Context, username string) (domain.User, bool, error) {
	return s.getUser(ctx, `WHERE username = $1`, username)
}

func (s *PostgresStore) GetUser(ctx context.Context, id int64) (domain.User, bool, error) {
	return s.getUser(ctx, `WHERE id = $1`, id)
}

func (s *PostgresStore) getUser(ctx context.Context, where string, arg any) (domain.User, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, username, password_hash, is_admin, created_at FROM users `+where,
		arg,
	)
	var user domain.User
	if err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.IsAdmin, &user.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, fmt.Errorf("query user: %w", err)
	}
	return user, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (domain.Job, error) {
	var job domain.Job
	err := row.Scan(&job.ID, &job.UserID, &job.Username, &job.Organism, &job.Progress, &job.Status, &job.CreatedAt)
	return job, err
}
