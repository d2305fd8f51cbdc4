// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package editor implements the live editing session behind the visual
// editor and studio mode. A Session owns the raw HTML and theme of one
// record, an undo history and the save state machine. The browser shell
// relays messages from the embedded document; every mutation bumps the
// document revision so messages from a stale frame are discarded.
package editor

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"sitefoundry/internal/inject"
	"sitefoundry/internal/theme"
)

var (
	// ErrBusy is returned when an AI request is already in flight or a save
	// is in progress.
	ErrBusy = errors.New("editor: session busy")
	// ErrStaleMessage is returned for messages with a wrong token or an
	// outdated revision.
	ErrStaleMessage = errors.New("editor: stale or foreign message")
	// ErrClosed is returned once the session has been closed.
	ErrClosed = errors.New("editor: session closed")
	// ErrEmptyInstruction is returned for a blank AI instruction.
	ErrEmptyInstruction = errors.New("editor: empty instruction")
	// ErrNoRewriter is returned for AI requests when no provider is set up.
	ErrNoRewriter = errors.New("editor: no AI provider configured")
	// ErrAI wraps a failed or empty AI response.
	ErrAI = errors.New("editor: ai edit failed")
)

// State is the save state of a session.
type State string

const (
	StateClean  State = "clean"
	StateDirty  State = "dirty"
	StateSaving State = "saving"
)

// ChatEntry is one line of the AI assistant log.
type ChatEntry struct {
	Role string    `json:"role"` // user, assistant or error
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// View is the JSON state pushed to the editor shell.
type View struct {
	ID            string         `json:"id"`
	Target        Target         `json:"target"`
	State         State          `json:"state"`
	Dirty         bool           `json:"dirty"`
	Revision      int            `json:"revision"`
	CanUndo       bool           `json:"canUndo"`
	CanRedo       bool           `json:"canRedo"`
	Busy          bool           `json:"busy"`
	SelectedImage string         `json:"selectedImage,omitempty"`
	Images        []inject.Image `json:"images"`
	Theme         theme.Config   `json:"theme"`
	Chat          []ChatEntry    `json:"chat"`
}

// Session is one open editor. All methods are safe for concurrent use.
type Session struct {
	ID     string
	Token  string
	Target Target

	rewriter  Rewriter
	persister Persister
	now       func() time.Time

	mu         sync.Mutex
	raw        string
	theme      theme.Config
	savedRaw   string
	savedTheme theme.Config
	history    *History
	state      State
	selected   string
	revision   int
	chat       []ChatEntry
	busy       bool
	closed     bool
	lastUsed   time.Time
	subs       map[chan struct{}]struct{}
}

func newSession(id, token string, target Target, raw string, cfg theme.Config, rw Rewriter, p Persister, now func() time.Time) *Session {
	return &Session{
		ID:         id,
		Token:      token,
		Target:     target,
		rewriter:   rw,
		persister:  p,
		now:        now,
		raw:        raw,
		theme:      cfg.Clone(),
		savedRaw:   raw,
		savedTheme: cfg.Clone(),
		history:    NewHistory(HistoryCap),
		state:      StateClean,
		revision:   1,
		lastUsed:   now(),
		subs:       make(map[chan struct{}]struct{}),
	}
}

// TextEdited commits new HTML as an undoable edit.
func (s *Session) TextEdited(html string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.history.Push(s.raw)
	s.raw = html
	s.changedLocked(true)
	return nil
}

// ContentChanged replaces the HTML with what the frame reports. It is not
// undoable and does not reload the frame, which already shows the change.
func (s *Session) ContentChanged(html string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contentChangedLocked(html)
}

func (s *Session) contentChangedLocked(html string) error {
	if s.closed {
		return ErrClosed
	}
	s.raw = inject.Strip(html, s.theme)
	s.changedLocked(false)
	return nil
}

// ThemeFieldChanged sets one theme field. Theme changes are not undoable.
func (s *Session) ThemeFieldChanged(field theme.Field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.theme.Set(field, value); err != nil {
		return err
	}
	s.changedLocked(true)
	return nil
}

// ImageOverrideSet replaces every occurrence of original at render time
// and clears the image selection.
func (s *Session) ImageOverrideSet(original, replacement string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	original = s.theme.OriginalOf(original)
	if original == "" {
		return errors.New("editor: no image selected")
	}
	s.theme.SetImageOverride(original, strings.TrimSpace(replacement))
	s.selected = ""
	s.changedLocked(true)
	return nil
}

// ImageClicked records the selected image. src may be a replacement URL;
// the selection is always the original override key.
func (s *Session) ImageClicked(src string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.imageClickedLocked(src)
}

func (s *Session) imageClickedLocked(src string) error {
	if s.closed {
		return ErrClosed
	}
	s.selected = s.theme.OriginalOf(src)
	s.lastUsed = s.now()
	s.notifyLocked()
	return nil
}

// Undo restores the previous snapshot. It is a no-op when empty.
func (s *Session) Undo() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	prev, ok := s.history.Undo(s.raw)
	if !ok {
		return nil
	}
	s.raw = prev
	s.changedLocked(true)
	return nil
}

// Redo re-applies the last undone snapshot. It is a no-op when empty.
func (s *Session) Redo() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	next, ok := s.history.Redo(s.raw)
	if !ok {
		return nil
	}
	s.raw = next
	s.changedLocked(true)
	return nil
}

// AIEditRequested asks the rewriter to apply a free-text instruction.
func (s *Session) AIEditRequested(ctx context.Context, instruction string) error {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return ErrEmptyInstruction
	}
	return s.aiCall(ctx, instruction, func(ctx context.Context, html string) (string, error) {
		return s.rewriter.EditSite(ctx, html, instruction)
	})
}

// FixResponsivenessRequested asks the rewriter for a mobile layout pass.
func (s *Session) FixResponsivenessRequested(ctx context.Context) error {
	return s.aiCall(ctx, "Corrigir responsividade", func(ctx context.Context, html string) (string, error) {
		return s.rewriter.FixResponsiveness(ctx, html)
	})
}

// aiCall runs one rewrite. The undo point is pushed before the call, so a
// failed request leaves a harmless duplicate entry. A result arriving
// after Close is dropped.
func (s *Session) aiCall(ctx context.Context, label string, call func(context.Context, string) (string, error)) error {
	if s.rewriter == nil {
		return ErrNoRewriter
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}
	s.busy = true
	s.history.Push(s.raw)
	current := s.raw
	s.chat = append(s.chat, ChatEntry{Role: "user", Text: label, At: s.now()})
	s.notifyLocked()
	s.mu.Unlock()

	out, err := call(ctx, current)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	if s.closed {
		slog.Info("editor: ai result ignored, session closed", "session", s.ID)
		return ErrClosed
	}
	if err == nil && strings.TrimSpace(out) == "" {
		err = errors.New("empty response")
	}
	if err != nil {
		s.chat = append(s.chat, ChatEntry{Role: "error", Text: "Não foi possível aplicar a alteração.", At: s.now()})
		s.notifyLocked()
		return fmt.Errorf("%w: %w", ErrAI, err)
	}

	if problems := inject.CheckWellFormed(out); len(problems) > 0 {
		slog.Warn("editor: ai output not well formed", "session", s.ID, "problems", problems)
	}
	s.raw = out
	s.chat = append(s.chat, ChatEntry{Role: "assistant", Text: "Alteração aplicada.", At: s.now()})
	s.changedLocked(true)
	return nil
}

// Save persists the current document and theme. On failure the session
// stays dirty and the error is returned; there is no retry.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.state == StateSaving {
		s.mu.Unlock()
		return ErrBusy
	}
	s.state = StateSaving
	html, cfg := s.raw, s.theme.Clone()
	s.notifyLocked()
	s.mu.Unlock()

	err := s.persister.Persist(ctx, s.Target, html, cfg)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateDirty
		s.notifyLocked()
		return fmt.Errorf("save: %w", err)
	}
	s.savedRaw, s.savedTheme = html, cfg
	s.state = s.computeStateLocked()
	s.notifyLocked()
	return nil
}

// Handle dispatches a message from the embedded document after checking
// its token and revision.
func (s *Session) Handle(msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if subtle.ConstantTimeCompare([]byte(msg.Token), []byte(s.Token)) != 1 || msg.Revision != s.revision {
		return ErrStaleMessage
	}

	switch msg.Type {
	case MsgContentUpdate:
		return s.contentChangedLocked(msg.HTML)
	case MsgImageClick:
		return s.imageClickedLocked(msg.Src)
	}
	return fmt.Errorf("editor: unknown message type %q", msg.Type)
}

// Render returns the editable document for the current revision.
func (s *Session) Render() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return inject.Document(s.raw, s.theme.WithDefaultFont(), inject.Options{
		Mode:        inject.ModeEditable,
		Token:       s.Token,
		Revision:    s.revision,
		TextEditing: true,
		Grayscale:   s.Target.Kind == KindSkeleton,
	})
}

// HTML returns the current raw document.
func (s *Session) HTML() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.raw
}

// Theme returns a copy of the current theme.
func (s *Session) Theme() theme.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.theme.Clone()
}

// Snapshot returns the state pushed to the editor shell.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		ID:            s.ID,
		Target:        s.Target,
		State:         s.state,
		Dirty:         s.state != StateClean,
		Revision:      s.revision,
		CanUndo:       s.history.CanUndo(),
		CanRedo:       s.history.CanRedo(),
		Busy:          s.busy,
		SelectedImage: s.selected,
		Images:        inject.Images(s.raw),
		Theme:         s.theme.Clone(),
		Chat:          append([]ChatEntry(nil), s.chat...),
	}
}

// Subscribe returns a channel that receives a signal after every change,
// and a function to stop listening. Signals coalesce.
func (s *Session) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	return ch, func() {
		s.mu.Lock()
		delete(s.subs, ch)
		s.mu.Unlock()
	}
}

// Close marks the session closed. In-flight AI results are dropped.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.notifyLocked()
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// changedLocked records a mutation. reload bumps the revision so the
// frame is re-rendered and its in-flight messages become stale.
func (s *Session) changedLocked(reload bool) {
	if reload {
		s.revision++
	}
	if s.state != StateSaving {
		s.state = s.computeStateLocked()
	}
	s.lastUsed = s.now()
	s.notifyLocked()
}

func (s *Session) computeStateLocked() State {
	if s.raw == s.savedRaw && s.theme.Equal(s.savedTheme) {
		return StateClean
	}
	return StateDirty
}

func (s *Session) notifyLocked() {
	for ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
