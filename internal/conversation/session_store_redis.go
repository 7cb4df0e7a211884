package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	sessionKeyPrefix  = "chat_session:"
	defaultSessionTTL = 24 * time.Hour
)

// RedisSessionStore stores each session as a JSON blob with a sliding TTL.
type RedisSessionStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &RedisSessionStore{
		redis:  client,
		ttl:    ttl,
		tracer: otel.Tracer("healthagent.internal.conversation.session_store"),
	}
}

func (s *RedisSessionStore) Load(ctx context.Context, sessionID string) (SessionState, error) {
	if sessionID == "" {
		return SessionState{}, ErrSessionIDRequired
	}
	ctx, span := s.tracer.Start(ctx, "conversation.session.load")
	defer span.End()

	raw, err := s.redis.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return SessionState{}, nil
	}
	if err != nil {
		span.RecordError(err)
		return SessionState{}, fmt.Errorf("conversation: load session: %w", err)
	}

	var state SessionState
	if err := json.Unmarshal(raw, &state); err != nil {
		span.RecordError(err)
		return SessionState{}, fmt.Errorf("conversation: decode session: %w", err)
	}
	return state, nil
}

func (s *RedisSessionStore) Save(ctx context.Context, sessionID string, state SessionState) error {
	if sessionID == "" {
		return ErrSessionIDRequired
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("conversation: marshal session: %w", err)
	}

	ctx, span := s.tracer.Start(ctx, "conversation.session.save")
	defer span.End()

	if err := s.redis.Set(ctx, sessionKey(sessionID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: save session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrSessionIDRequired
	}
	ctx, span := s.tracer.Start(ctx, "conversation.session.delete")
	defer span.End()

	if err := s.redis.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: delete session: %w", err)
	}
	return nil
}

func sessionKey(sessionID string) string {
	return sessionKeyPrefix + sessionID
}
