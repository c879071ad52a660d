// Package session keeps generated courses and their grading results for the
// lifetime of a viewing session.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/pai-course/internal/course"
)

// ErrNotFound is returned for unknown or expired sessions.
var ErrNotFound = errors.New("session not found")

// Grade is a stored grading result.
type Grade struct {
	Result   course.GradingResult `json:"result"`
	GradedAt time.Time            `json:"graded_at"`
}

// Session holds one generated course. The course is never patched; a reset
// deletes the whole session.
type Session struct {
	ID                  string             `json:"id"`
	Topic               string             `json:"topic,omitempty"`
	DocumentFingerprint string             `json:"document_fingerprint,omitempty"`
	Course              *course.CourseSpec `json:"course"`
	Grades              map[string]Grade   `json:"grades"`
	CreatedAt           time.Time          `json:"created_at"`
}

// GradeKey identifies a gradable item by kind and position, e.g. "Project:1".
func GradeKey(kind course.SubmissionKind, index int) string {
	return string(kind) + ":" + strconv.Itoa(index)
}

// Store persists sessions. SetGrade on different keys of one session must
// not lose writes; SetGrade on the same key replaces the previous result.
type Store interface {
	Create(ctx context.Context, s Session) (string, error)
	Get(ctx context.Context, id string) (*Session, error)
	SetGrade(ctx context.Context, id, key string, g Grade) error
	Delete(ctx context.Context, id string) error
	HealthCheck(ctx context.Context) error
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	sessions map[string]*Session
	ttl      time.Duration
	mu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory session store. A zero ttl keeps
// sessions until deleted.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
	}
}

func (s *MemoryStore) Create(_ context.Context, sess Session) (string, error) {
	if sess.Course == nil {
		return "", fmt.Errorf("course is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess.ID = generateID()
	sess.CreatedAt = time.Now()
	sess.Grades = make(map[string]Grade)
	s.sessions[sess.ID] = &sess
	return sess.ID, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.live(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	out := *sess
	out.Grades = make(map[string]Grade, len(sess.Grades))
	for k, v := range sess.Grades {
		out.Grades[k] = v
	}
	return &out, nil
}

func (s *MemoryStore) SetGrade(_ context.Context, id, key string, g Grade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.live(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if g.GradedAt.IsZero() {
		g.GradedAt = time.Now()
	}
	sess.Grades[key] = g
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.sessions, id)
	return nil
}

func (s *MemoryStore) HealthCheck(_ context.Context) error {
	return nil
}

// DeleteExpired drops sessions older than the store's ttl.
func (s *MemoryStore) DeleteExpired(_ context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, sess := range s.sessions {
		if time.Since(sess.CreatedAt) > s.ttl {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored sessions, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// live returns the session if it exists and has not expired. Callers hold mu.
func (s *MemoryStore) live(id string) (*Session, bool) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if s.ttl > 0 && time.Since(sess.CreatedAt) > s.ttl {
		return nil, false
	}
	return sess, true
}

// generateID returns a random (version 4) UUID.
func generateID() string {
	return uuid.NewString()
}
