package procurement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DraftStore keeps editing sessions alive between requests. Save is a compare-and-set on
// Draft.Version and returns the stored draft with the bumped version.
type DraftStore interface {
	Create(ctx context.Context, draft Draft) (string, Draft, error)
	Get(ctx context.Context, sessionID string) (Draft, error)
	Save(ctx context.Context, sessionID string, draft Draft) (Draft, error)
	Delete(ctx context.Context, sessionID string) error
}

type memoryEntry struct {
	draft     Draft
	expiresAt time.Time
}

// MemoryDraftStore is a process-local DraftStore.
type MemoryDraftStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

// NewMemoryDraftStore builds a store whose sessions expire after ttl of inactivity.
func NewMemoryDraftStore(ttl time.Duration) *MemoryDraftStore {
	return &MemoryDraftStore{ttl: ttl, now: time.Now, entries: make(map[string]memoryEntry)}
}

func (s *MemoryDraftStore) Create(ctx context.Context, draft Draft) (string, Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	draft.Version = 1
	s.entries[id] = memoryEntry{draft: cloneDraft(draft), expiresAt: s.expiry()}
	return id, draft, nil
}

func (s *MemoryDraftStore) Get(ctx context.Context, sessionID string) (Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.live(sessionID)
	if !ok {
		return Draft{}, ErrDraftNotFound
	}
	return cloneDraft(entry.draft), nil
}

func (s *MemoryDraftStore) Save(ctx context.Context, sessionID string, draft Draft) (Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.live(sessionID)
	if !ok {
		return Draft{}, ErrDraftNotFound
	}
	if entry.draft.Version != draft.Version {
		return Draft{}, ErrDraftConflict
	}
	draft.Version++
	s.entries[sessionID] = memoryEntry{draft: cloneDraft(draft), expiresAt: s.expiry()}
	return draft, nil
}

func (s *MemoryDraftStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sessionID)
	return nil
}

func (s *MemoryDraftStore) live(sessionID string) (memoryEntry, bool) {
	entry, ok := s.entries[sessionID]
	if !ok {
		return memoryEntry{}, false
	}
	if !entry.expiresAt.IsZero() && s.now().After(entry.expiresAt) {
		delete(s.entries, sessionID)
		return memoryEntry{}, false
	}
	return entry, true
}

func (s *MemoryDraftStore) expiry() time.Time {
	if s.ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(s.ttl)
}

// RedisDraftStore keeps sessions as JSON documents in Redis.
type RedisDraftStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDraftStore constructs the store. Each write refreshes the TTL.
func NewRedisDraftStore(client *redis.Client, ttl time.Duration) *RedisDraftStore {
	return &RedisDraftStore{client: client, ttl: ttl}
}

func draftKey(sessionID string) string {
	return "procurement:draft:" + sessionID
}

func (s *RedisDraftStore) Create(ctx context.Context, draft Draft) (string, Draft, error) {
	id := uuid.NewString()
	draft.Version = 1
	raw, err := json.Marshal(draft)
	if err != nil {
		return "", Draft{}, err
	}
	ok, err := s.client.SetNX(ctx, draftKey(id), raw, s.ttl).Result()
	if err != nil {
		return "", Draft{}, fmt.Errorf("procurement: create draft: %w", err)
	}
	if !ok {
		return "", Draft{}, ErrDraftConflict
	}
	return id, draft, nil
}

func (s *RedisDraftStore) Get(ctx context.Context, sessionID string) (Draft, error) {
	return s.read(ctx, s.client, sessionID)
}

func (s *RedisDraftStore) Save(ctx context.Context, sessionID string, draft Draft) (Draft, error) {
	key := draftKey(sessionID)
	var saved Draft
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := s.read(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if current.Version != draft.Version {
			return ErrDraftConflict
		}
		next := draft
		next.Version++
		raw, err := json.Marshal(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		saved = next
		return nil
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return Draft{}, ErrDraftConflict
	}
	if err != nil {
		return Draft{}, err
	}
	return saved, nil
}

func (s *RedisDraftStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, draftKey(sessionID)).Err()
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisDraftStore) read(ctx context.Context, cmd stringGetter, sessionID string) (Draft, error) {
	raw, err := cmd.Get(ctx, draftKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Draft{}, ErrDraftNotFound
	}
	if err != nil {
		return Draft{}, fmt.Errorf("procurement: load draft: %w", err)
	}
	var draft Draft
	if err := json.Unmarshal(raw, &draft); err != nil {
		return Draft{}, fmt.Errorf("procurement: decode draft: %w", err)
	}
	return draft, nil
}

func cloneDraft(d Draft) Draft {
	d.Items = copyItems(d.Items)
	return d
}
