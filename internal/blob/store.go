// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package blob serves injected HTML documents to sandboxed frames through
// short-lived, unguessable references. Each mounted frame owns a Channel;
// publishing a new document supersedes the previous reference, which is
// released exactly once after the frame has loaded its replacement.
package blob

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Ref identifies one stored document. It is 32 lowercase hex characters.
type Ref string

// NewRef returns a fresh random reference.
func NewRef() Ref {
	return Ref(randomHex())
}

// Valid reports whether r has the shape of a reference. Handlers reject
// anything else before touching the store.
func (r Ref) Valid() bool {
	return isHex32(string(r))
}

func randomHex() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func isHex32(s string) bool {
	if len(s) != 32 {
		return false
	}
	for _, c := range s {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}

// Store keeps document bytes under a reference until deleted or expired.
type Store interface {
	Put(ctx context.Context, ref Ref, html []byte, ttl time.Duration) error
	Get(ctx context.Context, ref Ref) ([]byte, bool, error)
	Delete(ctx context.Context, ref Ref) error
}

const keyPrefix = "blob:"

// RedisStore keeps documents in Valkey so any instance can serve them.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a store backed by the given Valkey client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Put stores html under ref with the given TTL.
func (s *RedisStore) Put(ctx context.Context, ref Ref, html []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, keyPrefix+string(ref), html, ttl).Err(); err != nil {
		return fmt.Errorf("blob put: %w", err)
	}
	return nil
}

// Get returns the document for ref. A missing or expired ref is not an error.
func (s *RedisStore) Get(ctx context.Context, ref Ref) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, keyPrefix+string(ref)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("blob get: %w", err)
	}
	return val, true, nil
}

// Delete removes ref. Deleting a missing ref is a no-op.
func (s *RedisStore) Delete(ctx context.Context, ref Ref) error {
	if err := s.client.Del(ctx, keyPrefix+string(ref)).Err(); err != nil {
		return fmt.Errorf("blob delete: %w", err)
	}
	return nil
}

// MemoryStore is an in-process Store used in development without Valkey
// and in tests.
type MemoryStore struct {
	mu    sync.Mutex
	items map[Ref]memoryItem
	now   func() time.Time
}

type memoryItem struct {
	html    []byte
	expires time.Time
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[Ref]memoryItem), now: time.Now}
}

// Put stores a copy of html under ref.
func (s *MemoryStore) Put(_ context.Context, ref Ref, html []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item := memoryItem{html: append([]byte(nil), html...)}
	if ttl > 0 {
		item.expires = s.now().Add(ttl)
	}
	s.items[ref] = item
	return nil
}

// Get returns the document for ref unless it has expired.
func (s *MemoryStore) Get(_ context.Context, ref Ref) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[ref]
	if !ok {
		return nil, false, nil
	}
	if !item.expires.IsZero() && !s.now().Before(item.expires) {
		delete(s.items, ref)
		return nil, false, nil
	}
	return item.html, true, nil
}

// Delete removes ref.
func (s *MemoryStore) Delete(_ context.Context, ref Ref) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, ref)
	return nil
}

// Len returns the number of stored documents, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
