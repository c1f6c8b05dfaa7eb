package repositories

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/httpkit"
	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrJobNotFound = errors.New("job not found")
var ErrJobExists = errors.New("job id already exists")

type JobRepository struct {
	db *pgxpool.Pool
}

func NewJobRepository(db *pgxpool.Pool) *JobRepository {
	return &JobRepository{db: db}
}

const jobsSchema = `
CREATE TABLE IF NOT EXISTS jobs (
	id               TEXT PRIMARY KEY,
	status           TEXT NOT NULL,
	input_json       TEXT NOT NULL,
	error_text       TEXT NOT NULL DEFAULT '',
	stdout           TEXT NOT NULL DEFAULT '',
	stderr           TEXT NOT NULL DEFAULT '',
	video_object_key TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	started_at       TIMESTAMPTZ,
	finished_at      TIMESTAMPTZ
)`

// EnsureSchema creates the jobs table when it does not exist yet. Both
// binaries call it on boot; whichever starts first wins, the other is a
// no-op.
func (r *JobRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, jobsSchema)
	return err
}

func (r *JobRepository) Create(ctx context.Context, j *models.Job) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO jobs (id, status, input_json)
		VALUES ($1,$2,$3)
		RETURNING created_at
	`, j.ID, j.Status, string(j.Input)).Scan(&j.CreatedAt)

	if err != nil {
		if httpkit.IsUniqueViolation(err) {
			return ErrJobExists
		}
		return err
	}
	return nil
}

func (r *JobRepository) Get(ctx context.Context, id string) (*models.Job, error) {
	var (
		j     models.Job
		input string
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, status, input_json, error_text, stdout, stderr, video_object_key,
		       created_at, started_at, finished_at
		FROM jobs
		WHERE id=$1
	`, id).Scan(
		&j.ID,
		&j.Status,
		&input,
		&j.ErrorText,
		&j.Stdout,
		&j.Stderr,
		&j.VideoObjectKey,
		&j.CreatedAt,
		&j.StartedAt,
		&j.FinishedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	j.Input = json.RawMessage(input)
	return &j, nil
}

func (r *JobRepository) MarkRunning(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE jobs
		SET status='RUNNING', started_at=now(), finished_at=NULL, error_text=''
		WHERE id=$1
	`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

func (r *JobRepository) MarkDone(ctx context.Context, id, videoObjectKey string) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE jobs
		SET status='DONE', finished_at=now(), video_object_key=$2
		WHERE id=$1
	`, id, videoObjectKey)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

// MarkFailed records the failure result as-is. Error text and captured
// streams are stored untruncated so the async status route reports the
// same content the synchronous route would have.
func (r *JobRepository) MarkFailed(ctx context.Context, id, errorText, stdout, stderr string) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE jobs
		SET status='FAILED', finished_at=now(), error_text=$2, stdout=$3, stderr=$4
		WHERE id=$1
	`, id, errorText, stdout, stderr)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}
