package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "punchcard:session:"

type redisState struct {
	Step Step              `json:"step"`
	Data map[string]string `json:"data,omitempty"`
}

// RedisStore keeps sessions as JSON values with a native key TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, participantID string) (State, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+participantID).Bytes()
	if errors.Is(err, redis.Nil) {
		return State{}, nil
	}
	if err != nil {
		return State{}, err
	}
	var rs redisState
	if err := json.Unmarshal(raw, &rs); err != nil {
		return State{}, err
	}
	return State{Step: rs.Step, Data: rs.Data}, nil
}

func (s *RedisStore) Set(ctx context.Context, participantID string, st State) error {
	if st.Step == Idle {
		return s.Clear(ctx, participantID)
	}
	raw, err := json.Marshal(redisState{Step: st.Step, Data: st.Data})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, redisKeyPrefix+participantID, raw, s.ttl).Err()
}

func (s *RedisStore) Clear(ctx context.Context, participantID string) error {
	return s.client.Del(ctx, redisKeyPrefix+participantID).Err()
}
