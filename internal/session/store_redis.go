package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "course:session:"

// RedisStore is a Redis/Dragonfly-backed Store. The session body is a JSON
// string; grades live in a sibling hash so concurrent SetGrade calls on
// different keys never overwrite each other.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a store on client. A zero ttl disables expiry.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func gradesKey(id string) string {
	return sessionKeyPrefix + id + ":grades"
}

func (s *RedisStore) Create(ctx context.Context, sess Session) (string, error) {
	if sess.Course == nil {
		return "", fmt.Errorf("course is required")
	}

	sess.ID = generateID()
	sess.CreatedAt = time.Now().UTC()
	sess.Grades = nil

	data, err := json.Marshal(sess)
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(sess.ID), data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return sess.ID, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	pipe := s.client.Pipeline()
	body := pipe.Get(ctx, sessionKey(id))
	grades := pipe.HGetAll(ctx, gradesKey(id))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get session: %w", err)
	}

	data, err := body.Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}

	sess.Grades = make(map[string]Grade)
	for key, raw := range grades.Val() {
		var g Grade
		if err := json.Unmarshal([]byte(raw), &g); err != nil {
			return nil, fmt.Errorf("unmarshal grade %s: %w", key, err)
		}
		sess.Grades[key] = g
	}
	return &sess, nil
}

func (s *RedisStore) SetGrade(ctx context.Context, id, key string, g Grade) error {
	// Grades expire with the session body. PTTL reports -2 for a missing key
	// and -1 for a key without expiry.
	ttl, err := s.client.PTTL(ctx, sessionKey(id)).Result()
	if err != nil {
		return fmt.Errorf("set grade: %w", err)
	}
	if ttl == -2 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if g.GradedAt.IsZero() {
		g.GradedAt = time.Now().UTC()
	}
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("marshal grade: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, gradesKey(id), key, data)
	if ttl > 0 {
		pipe.PExpire(ctx, gradesKey(id), ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set grade: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, sessionKey(id), gradesKey(id)).Result()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *RedisStore) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
