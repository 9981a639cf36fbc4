// Package audio stores synthesized confirmation clips until the client
// fetches them. Each clip gets a fresh random id, so concurrent requests
// never overwrite each other's audio.
package audio

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned for unknown or expired clip ids.
var ErrNotFound = errors.New("audio clip not found")

// Clip is an encoded audio file.
type Clip struct {
	Data        []byte
	ContentType string
}

// Store keeps clips addressable by id.
type Store interface {
	Put(ctx context.Context, clip Clip) (string, error)
	Get(ctx context.Context, id string) (*Clip, error)
}

// NewID returns a fresh clip id.
func NewID() string {
	return uuid.NewString()
}

type entry struct {
	clip    Clip
	expires time.Time
}

// MemoryStore is an in-process Store with per-clip expiry.
type MemoryStore struct {
	mu    sync.Mutex
	clips map[string]entry
	ttl   time.Duration
	now   func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a store whose clips live for ttl (forever if ttl <= 0).
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{clips: make(map[string]entry), ttl: ttl, now: time.Now}
}

// Put stores clip under a new id and drops expired clips.
func (s *MemoryStore) Put(_ context.Context, clip Clip) (string, error) {
	id := NewID()
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.clips {
		if e.expired(now) {
			delete(s.clips, k)
		}
	}
	var expires time.Time
	if s.ttl > 0 {
		expires = now.Add(s.ttl)
	}
	s.clips[id] = entry{clip: clip, expires: expires}
	return id, nil
}

// Get returns the clip stored under id.
func (s *MemoryStore) Get(_ context.Context, id string) (*Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.clips[id]
	if !ok || e.expired(s.now()) {
		return nil, ErrNotFound
	}
	clip := e.clip
	return &clip, nil
}

func (e entry) expired(now time.Time) bool {
	return !e.expires.IsZero() && now.After(e.expires)
}
