// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package queue holds imported leads waiting for mass site generation and
// the single-worker processor that turns them into clients.
package queue

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"sitefoundry/internal/models"
)

// Status is the lifecycle state of a queue item. Done and error are final.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError
}

var (
	// ErrNotFound is returned for an unknown item id.
	ErrNotFound = errors.New("queue: item not found")
	// ErrProcessing is returned when removing the item being built.
	ErrProcessing = errors.New("queue: item is processing")
)

// Item is one lead in the generation queue.
type Item struct {
	ID       uuid.UUID      `json:"id"`
	Lead     models.Lead    `json:"leadData"`
	Status   Status         `json:"status"`
	Selected bool           `json:"selected"`
	Result   *models.Client `json:"resultClient,omitempty"`
	Error    string         `json:"error,omitempty"`
	AddedAt  time.Time      `json:"addedAt"`
}

// Fingerprint identifies a lead for duplicate detection: the digits of its
// phone, else its lowercased trimmed name.
func Fingerprint(lead models.Lead) string {
	return lead.Fingerprint()
}

// AddResult reports what Add did with a batch of leads.
type AddResult struct {
	Added      int `json:"added"`
	Duplicates int `json:"duplicates"`
}

// Queue is an in-memory, insertion-ordered list of items. All methods are
// safe for concurrent use.
type Queue struct {
	mu    sync.Mutex
	items []*Item
	known map[string]bool
	now   func() time.Time
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{known: make(map[string]bool), now: time.Now}
}

// Remember marks fingerprints as already taken, typically those of
// existing clients, so Add skips matching leads.
func (q *Queue) Remember(fingerprints map[string]bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for fp, ok := range fingerprints {
		if ok && fp != "" {
			q.known[fp] = true
		}
	}
}

// Add appends leads as waiting, unselected items. A lead whose
// fingerprint matches an earlier item, a known client or another lead of
// the same batch is skipped.
func (q *Queue) Add(leads ...models.Lead) AddResult {
	q.mu.Lock()
	defer q.mu.Unlock()

	seen := make(map[string]bool, len(q.items))
	for _, it := range q.items {
		seen[Fingerprint(it.Lead)] = true
	}

	var res AddResult
	for _, lead := range leads {
		fp := Fingerprint(lead)
		if fp != "" && (seen[fp] || q.known[fp]) {
			res.Duplicates++
			continue
		}
		seen[fp] = true
		q.items = append(q.items, &Item{
			ID:      uuid.New(),
			Lead:    lead,
			Status:  StatusWaiting,
			AddedAt: q.now(),
		})
		res.Added++
	}
	return res
}

// Remove deletes an item unless it is being processed.
func (q *Queue) Remove(id uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := q.indexLocked(id)
	if i < 0 {
		return ErrNotFound
	}
	if q.items[i].Status == StatusProcessing {
		return ErrProcessing
	}
	q.items = append(q.items[:i], q.items[i+1:]...)
	return nil
}

// Select sets whether an item is eligible for processing.
func (q *Queue) Select(id uuid.UUID, selected bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := q.indexLocked(id)
	if i < 0 {
		return ErrNotFound
	}
	q.items[i].Selected = selected
	return nil
}

// SelectAll sets the selection of every waiting item.
func (q *Queue) SelectAll(selected bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, it := range q.items {
		if it.Status == StatusWaiting {
			it.Selected = selected
		}
	}
}

// ClearFinished drops done and error items and returns how many went.
func (q *Queue) ClearFinished() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.items[:0]
	for _, it := range q.items {
		if !it.Status.Terminal() {
			kept = append(kept, it)
		}
	}
	n := len(q.items) - len(kept)
	clear(q.items[len(kept):])
	q.items = kept
	return n
}

// Items returns a snapshot of every item in insertion order.
func (q *Queue) Items() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Item, len(q.items))
	for i, it := range q.items {
		out[i] = *it
	}
	return out
}

// Get returns a snapshot of one item.
func (q *Queue) Get(id uuid.UUID) (Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if i := q.indexLocked(id); i >= 0 {
		return *q.items[i], true
	}
	return Item{}, false
}

// Next returns the first waiting, selected item in insertion order.
func (q *Queue) Next() (Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if it := q.nextLocked(); it != nil {
		return *it, true
	}
	return Item{}, false
}

// claim moves the next eligible item to processing and returns it.
func (q *Queue) claim() (Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	it := q.nextLocked()
	if it == nil {
		return Item{}, false
	}
	it.Status = StatusProcessing
	return *it, true
}

// finish records the outcome of a processing item. The item may have been
// removed meanwhile only if it was not processing, so a missing id is a
// programming error and is reported.
func (q *Queue) finish(id uuid.UUID, result *models.Client, buildErr error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := q.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("finish %s: %w", id, ErrNotFound)
	}
	it := q.items[i]
	if it.Status != StatusProcessing {
		return fmt.Errorf("finish %s: item is %s", id, it.Status)
	}
	if buildErr != nil {
		it.Status = StatusError
		it.Error = buildErr.Error()
		return nil
	}
	it.Status = StatusDone
	it.Result = result
	q.known[Fingerprint(it.Lead)] = true
	return nil
}

// Counts returns how many items are in each status.
func (q *Queue) Counts() map[Status]int {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make(map[Status]int, 4)
	for _, it := range q.items {
		out[it.Status]++
	}
	return out
}

func (q *Queue) nextLocked() *Item {
	for _, it := range q.items {
		if it.Status == StatusWaiting && it.Selected {
			return it
		}
	}
	return nil
}

func (q *Queue) indexLocked(id uuid.UUID) int {
	for i, it := range q.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}
