package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
)

// SnapshotStore persists session snapshots for debugging. Implementations
// are write-only from the orchestrator's point of view.
type SnapshotStore interface {
	Save(ctx context.Context, id string, data []byte) error
}

// FileSnapshotStore writes one JSON file per session under a directory.
type FileSnapshotStore struct {
	Dir string
}

func NewFileSnapshotStore(dir string) *FileSnapshotStore {
	return &FileSnapshotStore{Dir: dir}
}

func (f *FileSnapshotStore) Save(ctx context.Context, id string, data []byte) error {
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(f.Dir, id+".json"), data, 0o644)
}

// redisSnapshotTTL bounds how long debugging snapshots linger.
const redisSnapshotTTL = 24 * time.Hour

// RedisSnapshotStore keeps snapshots in Redis with a TTL.
type RedisSnapshotStore struct {
	client *redis.Client
}

// NewRedisSnapshotStore connects to the Redis instance at url and verifies
// the connection with a ping.
func NewRedisSnapshotStore(ctx context.Context, url string) (*RedisSnapshotStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisSnapshotStore{client: client}, nil
}

func (r *RedisSnapshotStore) Save(ctx context.Context, id string, data []byte) error {
	return r.client.Set(ctx, "session:"+id, data, redisSnapshotTTL).Err()
}

// Close releases the underlying Redis connection.
func (r *RedisSnapshotStore) Close() error {
	return r.client.Close()
}
