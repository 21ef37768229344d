package heartbeat

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// hashSetter is the slice of the redis client the mirror needs.
type hashSetter interface {
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// RedisMirror stores the snapshot fields in a redis hash so dashboards can read it.
type RedisMirror struct {
	client  hashSetter
	conn    *redis.Client
	key     string
	timeout time.Duration
	now     func() time.Time
}

// NewRedisMirror connects to redis and returns a mirror writing to key.
func NewRedisMirror(addr, password string, db int, key string) (*RedisMirror, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	mirror := newRedisMirror(client, key)
	mirror.conn = client
	return mirror, nil
}

// Close closes the redis connection, if the mirror owns one.
func (r *RedisMirror) Close() error {
	if r.conn == nil {
		return nil
	}
	return r.conn.Close()
}

func newRedisMirror(client hashSetter, key string) *RedisMirror {
	return &RedisMirror{client: client, key: key, timeout: 2 * time.Second, now: time.Now}
}

// Write implements Writer. The path is ignored.
func (r *RedisMirror) Write(_ string, state State) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	values := make(map[string]interface{})
	for _, kv := range state.Fields(r.now()) {
		values[kv[0]] = kv[1]
	}
	if err := r.client.HSet(ctx, r.key, values).Err(); err != nil {
		return fmt.Errorf("failed to mirror status to redis: %w", err)
	}
	return nil
}
