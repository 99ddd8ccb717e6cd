package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-redis/redis/v8"
)

// MemoryStore keeps settings in process memory.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]AlertSettings
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]AlertSettings)}
}

func (m *MemoryStore) Load(_ context.Context, key string) (AlertSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.data[key]
	if !ok {
		return AlertSettings{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) Save(_ context.Context, key string, s AlertSettings) error {
	m.mu.Lock()
	m.data[key] = s
	m.mu.Unlock()
	return nil
}

// FileStore writes one JSON file per key under Dir.
type FileStore struct {
	Dir string
}

// NewFileStore creates a FileStore rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

func (f *FileStore) path(key string) string {
	return filepath.Join(f.Dir, strings.ReplaceAll(key, ":", "_")+".json")
}

func (f *FileStore) Load(_ context.Context, key string) (AlertSettings, error) {
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return AlertSettings{}, ErrNotFound
	}
	if err != nil {
		return AlertSettings{}, fmt.Errorf("read settings: %w", err)
	}
	var s AlertSettings
	if err := json.Unmarshal(data, &s); err != nil {
		return AlertSettings{}, fmt.Errorf("decode settings: %w", err)
	}
	return s, nil
}

// Save writes to a temporary file and renames it into place.
func (f *FileStore) Save(_ context.Context, key string, s AlertSettings) error {
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	dst := f.path(key)
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}

// RedisStore keeps settings as JSON strings in Redis.
type RedisStore struct {
	Client *redis.Client
}

// NewRedisStore connects to addr.
func NewRedisStore(addr, password string, db int) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisStore{Client: client}
}

func (r *RedisStore) Load(ctx context.Context, key string) (AlertSettings, error) {
	val, err := r.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return AlertSettings{}, ErrNotFound
	}
	if err != nil {
		return AlertSettings{}, fmt.Errorf("redis get %s: %w", key, err)
	}
	var s AlertSettings
	if err := json.Unmarshal([]byte(val), &s); err != nil {
		return AlertSettings{}, fmt.Errorf("decode settings: %w", err)
	}
	return s, nil
}

func (r *RedisStore) Save(ctx context.Context, key string, s AlertSettings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := r.Client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Close releases the Redis connection pool.
func (r *RedisStore) Close() error {
	return r.Client.Close()
}
