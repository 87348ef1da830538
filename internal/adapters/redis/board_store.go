package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/target/convenios-ui/internal/domain/board"
	"github.com/target/convenios-ui/internal/ports"
)

var _ ports.BoardStore = (*BoardStore)(nil)

// BoardStore keeps per-session board state in Redis. Every save refreshes the TTL,
// so idle boards are discarded after TTL.
type BoardStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewBoardStore creates a Redis-backed board store.
func NewBoardStore(client redis.UniversalClient, ttl time.Duration) *BoardStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &BoardStore{client: client, prefix: defaultKeyPrefix + "board:", ttl: ttl}
}

func (s *BoardStore) Load(ctx context.Context, key string) (board.State, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return board.State{}, ports.ErrStateNotFound
		}
		return board.State{}, fmt.Errorf("redis get board: %w", err)
	}

	var st board.State
	if err := json.Unmarshal(data, &st); err != nil {
		return board.State{}, fmt.Errorf("unmarshal board state: %w", err)
	}
	return st, nil
}

func (s *BoardStore) Save(ctx context.Context, key string, st board.State) error {
	if key == "" {
		return errors.New("board state key cannot be empty")
	}
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal board state: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set board: %w", err)
	}
	return nil
}

func (s *BoardStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	return s.client.Del(ctx, s.prefix+key).Err()
}
