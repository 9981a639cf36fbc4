// Package redis implements audio.Store on Redis so clips survive restarts
// and are shared between replicas behind a load balancer.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/nadzzz/doctech/internal/audio"
	"github.com/nadzzz/doctech/internal/config"
)

const (
	fieldData        = "data"
	fieldContentType = "content_type"
)

// Store keeps each clip in a hash with a TTL.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

var _ audio.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithTTL sets clip expiry. Zero keeps clips forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// New connects to the Redis server described by cfg.
func New(cfg config.RedisConfig, opts ...Option) *Store {
	client := backend.NewClient(&backend.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if cfg.Prefix != "" {
		opts = append([]Option{WithPrefix(cfg.Prefix)}, opts...)
	}
	return NewFromClient(client, opts...)
}

// NewFromClient wraps an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{client: client, prefix: "doctech:audio:"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(id string) string {
	return s.prefix + id
}

// Put stores clip under a new id.
func (s *Store) Put(ctx context.Context, clip audio.Clip) (string, error) {
	id := audio.NewID()
	key := s.key(id)

	_, err := s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.HSet(ctx, key, fieldData, clip.Data, fieldContentType, clip.ContentType)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("storing audio clip: %w", err)
	}
	return id, nil
}

// Get returns the clip stored under id.
func (s *Store) Get(ctx context.Context, id string) (*audio.Clip, error) {
	vals, err := s.client.HGetAll(ctx, s.key(id)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, audio.ErrNotFound
		}
		return nil, fmt.Errorf("loading audio clip: %w", err)
	}
	data, ok := vals[fieldData]
	if !ok {
		return nil, audio.ErrNotFound
	}
	return &audio.Clip{Data: []byte(data), ContentType: vals[fieldContentType]}, nil
}

// Ping checks connectivity; used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the client.
func (s *Store) Close() error {
	return s.client.Close()
}
