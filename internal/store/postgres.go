package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"cvrpga/internal/model"
	"cvrpga/internal/opt"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }

// MigrateDir applies every .sql file in dir in lexical order. Statements are
// written to be idempotent, so the whole set runs on every start.
func (p *Postgres) MigrateDir(dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return err
	}
	slices.Sort(files)
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("migrate %s: %w", filepath.Base(f), err)
		}
		if _, err := p.db.Exec(string(b)); err != nil {
			return fmt.Errorf("migrate %s: %w", filepath.Base(f), err)
		}
	}
	return nil
}

const jobColumns = `id::text, status, request, progress, result, COALESCE(error,''), created_at, started_at, finished_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (model.Job, error) {
	var (
		j                 model.Job
		req, prog, res    []byte
		started, finished sql.NullTime
	)
	if err := row.Scan(&j.ID, &j.Status, &req, &prog, &res, &j.Error, &j.CreatedAt, &started, &finished); err != nil {
		return model.Job{}, err
	}
	if err := json.Unmarshal(req, &j.Request); err != nil {
		return model.Job{}, fmt.Errorf("job %s request: %w", j.ID, err)
	}
	if len(prog) > 0 {
		j.Progress = &model.JobProgress{}
		if err := json.Unmarshal(prog, j.Progress); err != nil {
			return model.Job{}, fmt.Errorf("job %s progress: %w", j.ID, err)
		}
	}
	if len(res) > 0 {
		j.Result = &model.Output{}
		if err := json.Unmarshal(res, j.Result); err != nil {
			return model.Job{}, fmt.Errorf("job %s result: %w", j.ID, err)
		}
	}
	if started.Valid {
		t := started.Time
		j.StartedAt = &t
	}
	if finished.Valid {
		t := finished.Time
		j.FinishedAt = &t
	}
	return j, nil
}

func (p *Postgres) CreateJob(ctx context.Context, req model.SolveRequest) (model.Job, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return model.Job{}, err
	}
	id := uuid.New()
	row := p.db.QueryRowContext(ctx, `INSERT INTO jobs (id, status, request) VALUES ($1,$2,$3) RETURNING `+jobColumns,
		id, model.JobQueued, string(body))
	return scanJob(row)
}

func (p *Postgres) GetJob(ctx context.Context, id string) (model.Job, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.Job{}, ErrNotFound
	}
	j, err := scanJob(p.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Job{}, ErrNotFound
	}
	return j, err
}

func (p *Postgres) ListJobs(ctx context.Context, status, cursor string, limit int) ([]model.Job, string, error) {
	limit = clampLimit(limit)
	q := `SELECT ` + jobColumns + ` FROM jobs WHERE 1=1`
	args := []any{}
	if status != "" {
		args = append(args, status)
		q += fmt.Sprintf(` AND status=$%d`, len(args))
	}
	if cursor != "" {
		if _, err := uuid.Parse(cursor); err != nil {
			return nil, "", fmt.Errorf("invalid cursor %q", cursor)
		}
		args = append(args, cursor)
		q += fmt.Sprintf(` AND (created_at, id) > (SELECT created_at, id FROM jobs WHERE id=$%d)`, len(args))
	}
	args = append(args, limit)
	q += fmt.Sprintf(` ORDER BY created_at, id LIMIT $%d`, len(args))

	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, "", err
		}
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}
	next := ""
	if len(out) == limit {
		next = out[len(out)-1].ID
	}
	return out, next, nil
}

// transition runs an UPDATE guarded by the allowed current statuses and maps a
// miss to ErrNotFound or ErrJobState.
func (p *Postgres) transition(ctx context.Context, id, op string, from []string, set string, args ...any) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	q := fmt.Sprintf(`UPDATE jobs SET %s WHERE id=$%d AND status = ANY($%d)`, set, len(args)+1, len(args)+2)
	res, err := p.db.ExecContext(ctx, q, append(args, id, from)...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	var status string
	err = p.db.QueryRowContext(ctx, `SELECT status FROM jobs WHERE id=$1`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%s job %s in %s: %w", op, id, status, ErrJobState)
}

func (p *Postgres) StartJob(ctx context.Context, id string) error {
	return p.transition(ctx, id, "start", []string{model.JobQueued},
		`status=$1, started_at=now()`, model.JobRunning)
}

func (p *Postgres) UpdateJobProgress(ctx context.Context, id string, prog model.JobProgress) error {
	b, err := json.Marshal(prog)
	if err != nil {
		return err
	}
	return p.transition(ctx, id, "progress", []string{model.JobRunning}, `progress=$1`, string(b))
}

func (p *Postgres) CompleteJob(ctx context.Context, id string, out model.Output) error {
	b, err := json.Marshal(out)
	if err != nil {
		return err
	}
	return p.transition(ctx, id, "complete", []string{model.JobQueued, model.JobRunning},
		`status=$1, result=$2, finished_at=now()`, model.JobSucceeded, string(b))
}

func (p *Postgres) FailJob(ctx context.Context, id string, reason string) error {
	return p.transition(ctx, id, "fail", []string{model.JobQueued, model.JobRunning},
		`status=$1, error=$2, finished_at=now()`, model.JobFailed, nullIfEmpty(reason))
}

func (p *Postgres) GetSolverConfig(ctx context.Context) (*opt.Config, error) {
	var js []byte
	if err := p.db.QueryRowContext(ctx, `SELECT config FROM solver_config WHERE id=1`).Scan(&js); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	var cfg opt.Config
	if err := json.Unmarshal(js, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (p *Postgres) SaveSolverConfig(ctx context.Context, cfg opt.Config) error {
	b, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO solver_config (id, config, updated_at) VALUES (1, $1, now())
        ON CONFLICT (id) DO UPDATE SET config=$1, updated_at=now()`, string(b))
	return err
}

func (p *Postgres) EnqueueWebhook(ctx context.Context, jobID, eventType, url, secret string, payload []byte) (string, error) {
	id := uuid.New().String()
	dk := computeDedupKey(payload)
	_, err := p.db.ExecContext(ctx, `INSERT INTO webhook_deliveries (id, job_id, event_type, url, secret, payload, status, attempts, next_attempt_at, dedup_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,0,now(),$8)
        ON CONFLICT (job_id, event_type, url, dedup_key) DO NOTHING`, id, jobID, eventType, url, nullIfEmpty(secret), payload, DeliveryPending, dk)
	if err != nil {
		return "", err
	}
	return id, nil
}

const deliveryColumns = `id::text, job_id::text, event_type, url, COALESCE(secret,''), payload, status, attempts, next_attempt_at,
        COALESCE(last_error,''), COALESCE(response_code,0), COALESCE(latency_ms,0), delivered_at, created_at`

func scanDelivery(row rowScanner) (WebhookDelivery, error) {
	var d WebhookDelivery
	var delivered sql.NullTime
	err := row.Scan(&d.ID, &d.JobID, &d.EventType, &d.URL, &d.Secret, &d.Payload, &d.Status, &d.Attempts, &d.NextAttemptAt,
		&d.LastError, &d.ResponseCode, &d.LatencyMs, &delivered, &d.CreatedAt)
	if delivered.Valid {
		t := delivered.Time
		d.DeliveredAt = &t
	}
	return d, err
}

func (p *Postgres) queryDeliveries(ctx context.Context, q string, args ...any) ([]WebhookDelivery, error) {
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []WebhookDelivery{}
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	return p.queryDeliveries(ctx, `SELECT `+deliveryColumns+`
        FROM webhook_deliveries WHERE status IN ('pending','retry') AND next_attempt_at <= now() ORDER BY next_attempt_at ASC LIMIT $1`, limit)
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	if !success {
		if nextAttemptAt == nil {
			t := time.Now().Add(time.Minute)
			nextAttemptAt = &t
		}
		_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status=$1, last_error=$2, next_attempt_at=$3, updated_at=now(), response_code=$5, latency_ms=$6 WHERE id=$4`,
			DeliveryRetry, nullIfEmpty(lastError), *nextAttemptAt, id, responseCode, latencyMs)
		return err
	}
	_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status=$2, delivered_at=now(), updated_at=now(), response_code=$3, latency_ms=$4 WHERE id=$1`,
		id, DeliveryDelivered, responseCode, latencyMs)
	return err
}

func (p *Postgres) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status=$2, last_error=$3, updated_at=now(), response_code=$4, latency_ms=$5 WHERE id=$1`,
		id, DeliveryFailed, nullIfEmpty(lastError), responseCode, latencyMs)
	return err
}

func (p *Postgres) ListWebhookDeliveries(ctx context.Context, jobID, status string, limit int) ([]WebhookDelivery, error) {
	limit = clampLimit(limit)
	var where []string
	var args []any
	if jobID != "" {
		if _, err := uuid.Parse(jobID); err != nil {
			return []WebhookDelivery{}, nil
		}
		args = append(args, jobID)
		where = append(where, fmt.Sprintf("job_id=$%d", len(args)))
	}
	if status != "" {
		args = append(args, status)
		where = append(where, fmt.Sprintf("status=$%d", len(args)))
	}
	q := `SELECT ` + deliveryColumns + ` FROM webhook_deliveries`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, limit)
	q += fmt.Sprintf(` ORDER BY created_at, id LIMIT $%d`, len(args))
	return p.queryDeliveries(ctx, q, args...)
}

func (p *Postgres) RetryWebhookDelivery(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	res, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET status=$2, next_attempt_at=now(), updated_at=now() WHERE id=$1`, id, DeliveryPending)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
