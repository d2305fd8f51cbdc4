// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package blob

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultTTL bounds how long a document survives if its view is never
	// closed.
	DefaultTTL = 30 * time.Minute
	// DefaultIdle is how long a view may go unused before Sweep closes it.
	DefaultIdle = 30 * time.Minute
)

// Channels is the registry of mounted views. HTTP handlers use it
// concurrently.
type Channels struct {
	store Store
	ttl   time.Duration
	idle  time.Duration
	now   func() time.Time

	mu     sync.Mutex
	views  map[ViewID]*Channel
	owners map[Ref]ViewID
}

// NewChannels creates a registry over store. Zero durations use the
// defaults.
func NewChannels(store Store, ttl, idle time.Duration) *Channels {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if idle <= 0 {
		idle = DefaultIdle
	}
	return &Channels{
		store:  store,
		ttl:    ttl,
		idle:   idle,
		now:    time.Now,
		views:  make(map[ViewID]*Channel),
		owners: make(map[Ref]ViewID),
	}
}

// Open mounts a new view.
func (cs *Channels) Open(source string) *Channel {
	ch := newChannel(ViewID(randomHex()), source, cs.store, cs.ttl, cs.now)
	id := ch.ID
	ch.onPublish = func(ref Ref) {
		cs.mu.Lock()
		cs.owners[ref] = id
		cs.mu.Unlock()
	}
	ch.onRelease = cs.forget

	cs.mu.Lock()
	cs.views[ch.ID] = ch
	cs.mu.Unlock()
	return ch
}

// Get returns a mounted view, or nil.
func (cs *Channels) Get(id ViewID) *Channel {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.views[id]
}

// Serve returns the bytes for ref and lets the owning view adopt it.
func (cs *Channels) Serve(ctx context.Context, ref Ref) ([]byte, bool, error) {
	html, ok, err := cs.store.Get(ctx, ref)
	if err != nil || !ok {
		return nil, false, err
	}

	cs.mu.Lock()
	ch := cs.views[cs.owners[ref]]
	cs.mu.Unlock()
	if ch != nil {
		ch.Adopt(ctx, ref)
	}
	return html, true, nil
}

// Close tears a view down and releases every reference it owns. Closing an
// unknown view is a no-op.
func (cs *Channels) Close(ctx context.Context, id ViewID) {
	cs.mu.Lock()
	ch := cs.views[id]
	delete(cs.views, id)
	cs.mu.Unlock()

	if ch != nil {
		ch.Close(ctx)
	}
}

// Sweep closes views that have been idle longer than the idle timeout and
// returns how many were closed.
func (cs *Channels) Sweep(ctx context.Context) int {
	cutoff := cs.now().Add(-cs.idle)

	cs.mu.Lock()
	var stale []ViewID
	for id, ch := range cs.views {
		if ch.idleSince().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	cs.mu.Unlock()

	for _, id := range stale {
		cs.Close(ctx, id)
	}
	if len(stale) > 0 {
		slog.Debug("blob views swept", "closed", len(stale))
	}
	return len(stale)
}

// Len returns the number of mounted views.
func (cs *Channels) Len() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.views)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (cs *Channels) RunSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			cs.Sweep(ctx)
		}
	}
}

func (cs *Channels) forget(ref Ref) {
	cs.mu.Lock()
	delete(cs.owners, ref)
	cs.mu.Unlock()
}
