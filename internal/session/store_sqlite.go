package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS course_sessions (
    id                   TEXT PRIMARY KEY,
    topic                TEXT NOT NULL DEFAULT '',
    document_fingerprint TEXT NOT NULL DEFAULT '',
    course               TEXT NOT NULL,
    created_at           INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS course_grades (
    session_id TEXT NOT NULL,
    grade_key  TEXT NOT NULL,
    result     TEXT NOT NULL,
    graded_at  INTEGER NOT NULL,
    PRIMARY KEY (session_id, grade_key)
);
`

// SQLiteStore is a single-file Store for deployments without PostgreSQL or
// Redis. Grades are rows keyed by (session, grade key), so an upsert on one
// key never touches another.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
}

// NewSQLiteStore opens (or creates) the database at path and applies the
// schema. ":memory:" gives a private in-process database.
func NewSQLiteStore(path string, ttl time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps ":memory:"
	// databases from splitting per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &SQLiteStore{db: db, ttl: ttl}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Create(ctx context.Context, sess Session) (string, error) {
	if sess.Course == nil {
		return "", fmt.Errorf("course is required")
	}
	courseJSON, err := json.Marshal(sess.Course)
	if err != nil {
		return "", fmt.Errorf("marshal course: %w", err)
	}

	id := generateID()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO course_sessions (id, topic, document_fingerprint, course, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		id, sess.Topic, sess.DocumentFingerprint, string(courseJSON), time.Now().UTC().UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Session, error) {
	var (
		sess       Session
		courseJSON string
		created    int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, topic, document_fingerprint, course, created_at
		 FROM course_sessions WHERE id = ? AND created_at > ?`,
		id, s.cutoff(),
	).Scan(&sess.ID, &sess.Topic, &sess.DocumentFingerprint, &courseJSON, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	sess.CreatedAt = time.Unix(0, created).UTC()
	if err := json.Unmarshal([]byte(courseJSON), &sess.Course); err != nil {
		return nil, fmt.Errorf("unmarshal course: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT grade_key, result, graded_at FROM course_grades WHERE session_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get grades: %w", err)
	}
	defer rows.Close()

	sess.Grades = make(map[string]Grade)
	for rows.Next() {
		var (
			key, result string
			gradedAt    int64
			g           Grade
		)
		if err := rows.Scan(&key, &result, &gradedAt); err != nil {
			return nil, fmt.Errorf("scan grade: %w", err)
		}
		if err := json.Unmarshal([]byte(result), &g.Result); err != nil {
			return nil, fmt.Errorf("unmarshal grade %s: %w", key, err)
		}
		g.GradedAt = time.Unix(0, gradedAt).UTC()
		sess.Grades[key] = g
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get grades: %w", err)
	}
	return &sess, nil
}

func (s *SQLiteStore) SetGrade(ctx context.Context, id, key string, g Grade) error {
	if g.GradedAt.IsZero() {
		g.GradedAt = time.Now().UTC()
	}
	result, err := json.Marshal(g.Result)
	if err != nil {
		return fmt.Errorf("marshal grade: %w", err)
	}

	// The INSERT ... SELECT only writes when the session is still live.
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO course_grades (session_id, grade_key, result, graded_at)
		 SELECT id, ?, ?, ? FROM course_sessions WHERE id = ? AND created_at > ?
		 ON CONFLICT (session_id, grade_key) DO UPDATE
		 SET result = excluded.result, graded_at = excluded.graded_at`,
		key, string(result), g.GradedAt.UnixNano(), id, s.cutoff(),
	)
	if err != nil {
		return fmt.Errorf("set grade: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM course_sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM course_grades WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("delete grades: %w", err)
	}
	return tx.Commit()
}

// DeleteExpired removes sessions older than the store's ttl together with
// their grades.
func (s *SQLiteStore) DeleteExpired(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	defer tx.Rollback()

	cutoff := s.cutoff()
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM course_grades WHERE session_id IN
		 (SELECT id FROM course_sessions WHERE created_at <= ?)`, cutoff); err != nil {
		return 0, fmt.Errorf("delete expired grades: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM course_sessions WHERE created_at <= ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, tx.Commit()
}

func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// cutoff is the creation time, in unix nanoseconds, at or before which a
// session has expired. Without a ttl nothing expires.
func (s *SQLiteStore) cutoff() int64 {
	if s.ttl <= 0 {
		return 0
	}
	return time.Now().UTC().Add(-s.ttl).UnixNano()
}
