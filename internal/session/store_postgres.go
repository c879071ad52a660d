package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/p-n-ai/pai-course/internal/course"
)

const dbTimeout = 5 * time.Second

const schemaSQL = `
CREATE TABLE IF NOT EXISTS course_sessions (
	id                   TEXT PRIMARY KEY,
	topic                TEXT,
	document_fingerprint TEXT,
	course               JSONB NOT NULL,
	grades               JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresStore is a PostgreSQL-backed Store. Grades are a jsonb object
// updated with jsonb_set so each SetGrade touches only its own key.
type PostgresStore struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

// NewPostgresStore creates a store on pool. A zero ttl disables expiry.
func NewPostgresStore(pool *pgxpool.Pool, ttl time.Duration) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool, ttl: ttl}, nil
}

// Migrate creates the sessions table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate sessions: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, sess Session) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if sess.Course == nil {
		return "", fmt.Errorf("course is required")
	}
	courseJSON, err := json.Marshal(sess.Course)
	if err != nil {
		return "", fmt.Errorf("marshal course: %w", err)
	}

	id := generateID()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO course_sessions (id, topic, document_fingerprint, course)
		 VALUES ($1, $2, $3, $4::jsonb)`,
		id,
		nullIfEmpty(sess.Topic),
		nullIfEmpty(sess.DocumentFingerprint),
		string(courseJSON),
	)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Session, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var (
		sess        Session
		topic       *string
		fingerprint *string
		courseJSON  []byte
		gradesJSON  []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, topic, document_fingerprint, course, grades, created_at
		 FROM course_sessions
		 WHERE id = $1
		   AND ($2::bigint = 0 OR created_at > NOW() - make_interval(secs => $2::bigint))`,
		id,
		int64(s.ttl/time.Second),
	).Scan(&sess.ID, &topic, &fingerprint, &courseJSON, &gradesJSON, &sess.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	if topic != nil {
		sess.Topic = *topic
	}
	if fingerprint != nil {
		sess.DocumentFingerprint = *fingerprint
	}

	sess.Course = &course.CourseSpec{}
	if err := json.Unmarshal(courseJSON, sess.Course); err != nil {
		return nil, fmt.Errorf("unmarshal course: %w", err)
	}
	sess.Grades = make(map[string]Grade)
	if err := json.Unmarshal(gradesJSON, &sess.Grades); err != nil {
		return nil, fmt.Errorf("unmarshal grades: %w", err)
	}
	return &sess, nil
}

func (s *PostgresStore) SetGrade(ctx context.Context, id, key string, g Grade) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if g.GradedAt.IsZero() {
		g.GradedAt = time.Now().UTC()
	}
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("marshal grade: %w", err)
	}

	cmd, err := s.pool.Exec(ctx,
		`UPDATE course_sessions
		 SET grades = jsonb_set(grades, ARRAY[$2::text], $3::jsonb, true)
		 WHERE id = $1
		   AND ($4::bigint = 0 OR created_at > NOW() - make_interval(secs => $4::bigint))`,
		id,
		key,
		string(data),
		int64(s.ttl/time.Second),
	)
	if err != nil {
		return fmt.Errorf("set grade: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx, `DELETE FROM course_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// DeleteExpired removes sessions older than the store's ttl.
func (s *PostgresStore) DeleteExpired(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx,
		`DELETE FROM course_sessions WHERE created_at <= NOW() - make_interval(secs => $1::bigint)`,
		int64(s.ttl/time.Second),
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return cmd.RowsAffected(), nil
}

func (s *PostgresStore) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}
