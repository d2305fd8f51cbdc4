// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package blob

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrClosed is returned when publishing to a view that has been closed.
var ErrClosed = errors.New("blob: view closed")

// ViewID identifies one mounted frame.
type ViewID string

// Valid reports whether id has the shape of a view id.
func (id ViewID) Valid() bool {
	return isHex32(string(id))
}

// Channel is the single-writer reference slot of one mounted frame.
//
// Publish stores a new document and marks the previous reference as
// superseded. Superseded references are released when the frame adopts the
// current one, or when the channel is closed. A reference is released at
// most once.
type Channel struct {
	ID ViewID
	// Source describes what the frame shows (for example "client:<id>") so
	// a refresh can re-render the same thing.
	Source string

	store Store
	ttl   time.Duration

	mu         sync.Mutex
	current    Ref
	superseded []Ref
	released   map[Ref]struct{}
	lastUsed   time.Time
	closed     bool

	now       func() time.Time
	onPublish func(Ref)
	onRelease func(Ref)
}

func newChannel(id ViewID, source string, store Store, ttl time.Duration, now func() time.Time) *Channel {
	return &Channel{
		ID:       id,
		Source:   source,
		store:    store,
		ttl:      ttl,
		released: make(map[Ref]struct{}),
		lastUsed: now(),
		now:      now,
	}
}

// Publish stores html under a new reference and makes it current.
func (c *Channel) Publish(ctx context.Context, html []byte) (Ref, error) {
	ref := NewRef()
	if err := c.store.Put(ctx, ref, html, c.ttl); err != nil {
		return "", fmt.Errorf("publish: %w", err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.release(ctx, ref)
		return "", ErrClosed
	}
	if c.current != "" {
		c.superseded = append(c.superseded, c.current)
	}
	c.current = ref
	c.lastUsed = c.now()
	hook := c.onPublish
	c.mu.Unlock()

	if hook != nil {
		hook(ref)
	}
	return ref, nil
}

// Current returns the reference the frame should be showing.
func (c *Channel) Current() Ref {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Adopt records that the frame has loaded ref. When ref is current, every
// superseded reference is released. Adopting an older reference does
// nothing.
func (c *Channel) Adopt(ctx context.Context, ref Ref) {
	c.mu.Lock()
	c.lastUsed = c.now()
	if c.closed || ref != c.current || len(c.superseded) == 0 {
		c.mu.Unlock()
		return
	}
	old := c.superseded
	c.superseded = nil
	c.mu.Unlock()

	for _, r := range old {
		c.release(ctx, r)
	}
}

// Close releases every reference the channel still owns. Calling Close
// again is a no-op.
func (c *Channel) Close(ctx context.Context) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	refs := c.superseded
	if c.current != "" {
		refs = append(refs, c.current)
	}
	c.superseded = nil
	c.mu.Unlock()

	for _, r := range refs {
		c.release(ctx, r)
	}
}

// Released reports whether ref has been released by this channel.
func (c *Channel) Released(ref Ref) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.released[ref]
	return ok
}

func (c *Channel) release(ctx context.Context, ref Ref) {
	c.mu.Lock()
	if _, done := c.released[ref]; done {
		c.mu.Unlock()
		return
	}
	c.released[ref] = struct{}{}
	hook := c.onRelease
	c.mu.Unlock()

	if err := c.store.Delete(ctx, ref); err != nil {
		slog.Warn("blob release failed", "view", c.ID, "error", err)
	}
	if hook != nil {
		hook(ref)
	}
}

func (c *Channel) idleSince() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastUsed
}
