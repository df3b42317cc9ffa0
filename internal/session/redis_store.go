package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each status log as a Redis list of JSON entries under
// <prefix><session-id>, so a log survives the client process.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, opts *redis.Options, prefix string) (*RedisStore, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

func (st *RedisStore) key(sessionID string) string {
	return st.prefix + sessionID
}

func (st *RedisStore) Append(ctx context.Context, sessionID string, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	if err := st.client.RPush(ctx, st.key(sessionID), data).Err(); err != nil {
		return fmt.Errorf("append status entry: %w", err)
	}
	return nil
}

func (st *RedisStore) Entries(ctx context.Context, sessionID string) ([]Entry, error) {
	raw, err := st.client.LRange(ctx, st.key(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read status log: %w", err)
	}

	out := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("decode status entry: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (st *RedisStore) Close() error {
	return st.client.Close()
}
