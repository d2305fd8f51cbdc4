// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"sitefoundry/internal/models"
)

// DefaultDelay is the pause between two generated sites.
const DefaultDelay = time.Second

// ErrRunning is returned by Start while a run is in progress.
var ErrRunning = errors.New("queue: processor already running")

// Builder turns a lead into a ready client.
type Builder interface {
	Build(ctx context.Context, id string, lead models.Lead) (*models.Client, error)
}

// Sink receives every client the processor builds.
type Sink interface {
	Accept(ctx context.Context, c *models.Client) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, c *models.Client) error

// Accept implements Sink.
func (f SinkFunc) Accept(ctx context.Context, c *models.Client) error { return f(ctx, c) }

// Processor works through a queue one item at a time on a single
// goroutine. A failed item is marked as error and the run continues; the
// run stops by itself when no selected waiting item is left.
type Processor struct {
	queue   *Queue
	builder Builder
	sink    Sink
	delay   time.Duration

	mu      sync.Mutex
	running bool
	paused  bool
	done    chan struct{}
}

// NewProcessor creates a processor. A zero delay means DefaultDelay; a
// negative one disables the pause.
func NewProcessor(q *Queue, b Builder, s Sink, delay time.Duration) *Processor {
	if delay == 0 {
		delay = DefaultDelay
	}
	if delay < 0 {
		delay = 0
	}
	done := make(chan struct{})
	close(done)
	return &Processor{queue: q, builder: b, sink: s, delay: delay, done: done}
}

// Start begins a run in the background. The run ends when ctx is
// cancelled, when Pause is called, or when nothing is eligible.
func (p *Processor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return ErrRunning
	}
	p.running = true
	p.paused = false
	p.done = make(chan struct{})
	go p.run(ctx, p.done)
	return nil
}

// Pause stops the run before the next item. The item being built is
// finished first.
func (p *Processor) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = true
}

// Running reports whether a run is in progress.
func (p *Processor) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Wait blocks until the current run, if any, has ended.
func (p *Processor) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	<-done
}

func (p *Processor) shouldStop() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

func (p *Processor) run(ctx context.Context, done chan struct{}) {
	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
		close(done)
	}()

	slog.Info("queue run started")
	processed := 0
	for {
		if p.shouldStop() || ctx.Err() != nil {
			slog.Info("queue run paused", "processed", processed)
			return
		}
		item, ok := p.queue.claim()
		if !ok {
			slog.Info("queue run finished", "processed", processed)
			return
		}

		p.process(ctx, item)
		processed++

		if _, more := p.queue.Next(); !more || p.delay == 0 {
			continue
		}
		t := time.NewTimer(p.delay)
		select {
		case <-ctx.Done():
			t.Stop()
		case <-t.C:
		}
	}
}

func (p *Processor) process(ctx context.Context, item Item) {
	client, err := p.builder.Build(ctx, item.ID.String(), item.Lead)
	if err == nil && client == nil {
		err = errors.New("builder returned no client")
	}
	if err == nil {
		if serr := p.sink.Accept(ctx, client); serr != nil {
			err = fmt.Errorf("save client: %w", serr)
		}
	}

	if err != nil {
		slog.Warn("queue item failed", "item_id", item.ID, "lead", item.Lead.Name, "error", err)
	} else {
		slog.Info("queue item done", "item_id", item.ID, "client_id", client.ID, "slug", client.Slug)
	}
	if ferr := p.queue.finish(item.ID, client, err); ferr != nil {
		slog.Error("queue finish", "error", ferr)
	}
}
