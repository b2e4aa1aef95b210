// Package lastseen remembers the most recently classified document.
package lastseen

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"actiontag/internal/constants"
	"actiontag/pkg/errors"
	"actiontag/pkg/metrics"
	"actiontag/pkg/models"
)

// Entry is the stored form of the last classified document.
type Entry struct {
	Action   models.ActionTag `json:"action"`
	Document models.Document  `json:"document"`
	SeenAt   time.Time        `json:"seen_at"`
}

type Repository interface {
	Record(ctx context.Context, doc models.Document) error
	// Get returns ErrNotFound until something has been recorded.
	Get(ctx context.Context) (*Entry, error)
}

func newEntry(doc models.Document) *Entry {
	action, ok := doc.Action()
	if !ok {
		action = models.ActionQuiet
	}
	return &Entry{
		Action:   action,
		Document: doc.Clone(),
		SeenAt:   time.Now().UTC(),
	}
}

type MemoryRepository struct {
	mu    sync.RWMutex
	entry *Entry
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Record(_ context.Context, doc models.Document) error {
	entry := newEntry(doc)

	r.mu.Lock()
	r.entry = entry
	r.mu.Unlock()

	metrics.IncLastSeenWrite(constants.LastSeenBackendMemory, "ok")
	return nil
}

func (r *MemoryRepository) Get(_ context.Context) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.entry == nil {
		return nil, errors.ErrNotFound.WithDetail("key", "last_seen")
	}
	out := *r.entry
	out.Document = r.entry.Document.Clone()
	return &out, nil
}

// RedisRepository keeps the entry as JSON under a single key so every
// replica sees the same last document.
type RedisRepository struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewRedisRepository(client *redis.Client, ttl time.Duration) *RedisRepository {
	return &RedisRepository{
		client: client,
		key:    constants.CacheKeyLastSeen,
		ttl:    ttl,
	}
}

func (r *RedisRepository) Record(ctx context.Context, doc models.Document) error {
	data, err := json.Marshal(newEntry(doc))
	if err != nil {
		metrics.IncLastSeenWrite(constants.LastSeenBackendRedis, "error")
		return fmt.Errorf("failed to encode last-seen entry: %w", err)
	}

	if err := r.client.Set(ctx, r.key, data, r.ttl).Err(); err != nil {
		metrics.IncLastSeenWrite(constants.LastSeenBackendRedis, "error")
		return fmt.Errorf("redis SET failed: %w", err)
	}

	metrics.IncLastSeenWrite(constants.LastSeenBackendRedis, "ok")
	return nil
}

func (r *RedisRepository) Get(ctx context.Context) (*Entry, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if err == redis.Nil {
		return nil, errors.ErrNotFound.WithDetail("key", r.key)
	}
	if err != nil {
		return nil, fmt.Errorf("redis GET failed: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode last-seen entry: %w", err)
	}
	return &entry, nil
}
