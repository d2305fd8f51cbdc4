// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package editor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"sitefoundry/internal/inject"
	"sitefoundry/internal/theme"
)

const page = `<!DOCTYPE html><html><head><title>x</title></head><body><h1>Olá</h1><img src="https://cdn/a.jpg"></body></html>`

// fakeRewriter returns a canned result, or blocks until released.
type fakeRewriter struct {
	mu      sync.Mutex
	out     string
	err     error
	calls   int
	gotHTML string
	gate    chan struct{}
	started chan struct{}
}

func (f *fakeRewriter) EditSite(ctx context.Context, html, instruction string) (string, error) {
	return f.run(html)
}

func (f *fakeRewriter) FixResponsiveness(ctx context.Context, html string) (string, error) {
	return f.run(html)
}

func (f *fakeRewriter) run(html string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.gotHTML = html
	gate, started := f.gate, f.started
	f.mu.Unlock()
	if started != nil {
		close(started)
	}
	if gate != nil {
		<-gate
	}
	return f.out, f.err
}

type fakePersister struct {
	mu    sync.Mutex
	err   error
	saved []string
	theme theme.Config
}

func (p *fakePersister) Persist(ctx context.Context, target Target, html string, cfg theme.Config) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.saved = append(p.saved, html)
	p.theme = cfg
	return nil
}

func newTestSession(rw Rewriter, p Persister) *Session {
	if p == nil {
		p = &fakePersister{}
	}
	m := NewManager(rw, p, time.Hour)
	return m.Open(Target{Kind: KindClient, ID: uuid.New()}, page, theme.Config{})
}

func TestSession_TextEditedUndoRedo(t *testing.T) {
	s := newTestSession(nil, nil)

	if err := s.TextEdited("<p>v2</p>"); err != nil {
		t.Fatal(err)
	}
	if s.Snapshot().State != StateDirty {
		t.Error("text edit should make the session dirty")
	}
	s.TextEdited("<p>v3</p>")

	s.Undo()
	if got := s.HTML(); got != "<p>v2</p>" {
		t.Errorf("after undo html = %q", got)
	}
	s.Undo()
	if got := s.HTML(); got != page {
		t.Errorf("after second undo html = %q", got)
	}
	if v := s.Snapshot(); v.State != StateClean || v.CanUndo {
		t.Errorf("back at the saved snapshot: state=%s canUndo=%v", v.State, v.CanUndo)
	}

	s.Redo()
	s.Redo()
	if got := s.HTML(); got != "<p>v3</p>" {
		t.Errorf("after redo html = %q", got)
	}
	if err := s.Redo(); err != nil {
		t.Errorf("redo on empty future: %v", err)
	}
}

func TestSession_ThemeChangeNotInHistory(t *testing.T) {
	s := newTestSession(nil, nil)
	if err := s.ThemeFieldChanged(theme.FieldPrimary, "#ff0000"); err != nil {
		t.Fatal(err)
	}
	v := s.Snapshot()
	if v.CanUndo {
		t.Error("theme change must not be undoable")
	}
	if v.State != StateDirty || v.Theme.PrimaryColor != "#ff0000" {
		t.Errorf("got state=%s theme=%+v", v.State, v.Theme)
	}
	if !strings.Contains(s.Render(), "--primary: #ff0000") {
		t.Error("rendered document lacks the new color")
	}
	if strings.Contains(s.HTML(), "--primary") {
		t.Error("theme leaked into the raw html")
	}
}

func TestSession_ImageFlow(t *testing.T) {
	s := newTestSession(nil, nil)

	s.ImageClicked("https://cdn/a.jpg")
	if got := s.Snapshot().SelectedImage; got != "https://cdn/a.jpg" {
		t.Fatalf("selected = %q", got)
	}
	if err := s.ImageOverrideSet(s.Snapshot().SelectedImage, "https://s3/new.webp"); err != nil {
		t.Fatal(err)
	}
	v := s.Snapshot()
	if v.SelectedImage != "" {
		t.Error("override should clear the selection")
	}
	if !strings.Contains(s.Render(), "https://s3/new.webp") {
		t.Error("override not applied at render")
	}
	if strings.Contains(s.HTML(), "https://s3/new.webp") {
		t.Error("override baked into raw html")
	}

	// Clicking the replaced image again selects the original key.
	s.ImageClicked("https://s3/new.webp")
	s.ImageOverrideSet(s.Snapshot().SelectedImage, "https://s3/newer.webp")
	cfg := s.Theme()
	if len(cfg.ImageOverrides) != 1 || cfg.ImageOverrides["https://cdn/a.jpg"] != "https://s3/newer.webp" {
		t.Errorf("overrides = %v", cfg.ImageOverrides)
	}
}

func TestSession_ImageOverrideAfterContentUpdate(t *testing.T) {
	s := newTestSession(nil, nil)
	rev := s.Snapshot().Revision

	// The frame serializes '&' inside attributes as "&amp;".
	framed := `<html><head></head><body><img src="https://img.x/p.jpg?w=800&amp;q=80"></body></html>`
	if err := s.Handle(Message{Type: MsgContentUpdate, Token: s.Token, Revision: rev, HTML: framed}); err != nil {
		t.Fatal(err)
	}
	if err := s.Handle(Message{Type: MsgImageClick, Token: s.Token, Revision: rev, Src: "https://img.x/p.jpg?w=800&q=80"}); err != nil {
		t.Fatal(err)
	}
	if err := s.ImageOverrideSet(s.Snapshot().SelectedImage, "https://s3/new.webp?v=1&h=2"); err != nil {
		t.Fatal(err)
	}

	doc := s.Render()
	if !strings.Contains(doc, "https://s3/new.webp?v=1&amp;h=2") || strings.Contains(doc, "p.jpg?w=800") {
		t.Fatalf("override not applied:\n%s", doc)
	}

	// The next update from the frame carries the replacement; it must not
	// end up in the raw html.
	if err := s.Handle(Message{Type: MsgContentUpdate, Token: s.Token, Revision: s.Snapshot().Revision, HTML: doc}); err != nil {
		t.Fatal(err)
	}
	if raw := s.HTML(); strings.Contains(raw, "new.webp") || !strings.Contains(raw, "p.jpg?w=800&amp;q=80") {
		t.Errorf("raw html = %q", raw)
	}
}

func TestSession_ImageOverrideRequiresSelection(t *testing.T) {
	s := newTestSession(nil, nil)
	if err := s.ImageOverrideSet("", "https://s3/x.webp"); err == nil {
		t.Error("expected an error without an original")
	}
}

func TestSession_AIEditSuccess(t *testing.T) {
	rw := &fakeRewriter{out: "<html><head></head><body><h1>Novo</h1></body></html>"}
	s := newTestSession(rw, nil)
	rev := s.Snapshot().Revision

	if err := s.AIEditRequested(context.Background(), "mude o título"); err != nil {
		t.Fatal(err)
	}
	if rw.gotHTML != page {
		t.Error("rewriter did not receive the current html")
	}
	v := s.Snapshot()
	if !strings.Contains(s.HTML(), "Novo") || !v.CanUndo || v.Revision == rev {
		t.Errorf("edit not applied: canUndo=%v revision=%d", v.CanUndo, v.Revision)
	}
	if len(v.Chat) != 2 || v.Chat[0].Role != "user" || v.Chat[1].Role != "assistant" {
		t.Errorf("chat = %+v", v.Chat)
	}

	s.Undo()
	if s.HTML() != page {
		t.Error("undo should restore the pre-edit html")
	}
}

func TestSession_AIEditFailureKeepsHTML(t *testing.T) {
	rw := &fakeRewriter{err: errors.New("quota exceeded")}
	s := newTestSession(rw, nil)

	err := s.AIEditRequested(context.Background(), "mude")
	if err == nil {
		t.Fatal("expected error")
	}
	if s.HTML() != page {
		t.Error("failed edit changed the html")
	}
	v := s.Snapshot()
	if v.Busy {
		t.Error("session still busy after failure")
	}
	if !v.CanUndo {
		t.Error("the pre-call undo entry should be kept")
	}
	if v.Chat[len(v.Chat)-1].Role != "error" {
		t.Errorf("last chat entry = %+v", v.Chat[len(v.Chat)-1])
	}
}

func TestSession_AIEditEmptyResultIsFailure(t *testing.T) {
	s := newTestSession(&fakeRewriter{out: "  "}, nil)
	if err := s.AIEditRequested(context.Background(), "x"); err == nil {
		t.Fatal("expected error for an empty result")
	}
	if s.HTML() != page {
		t.Error("empty result replaced the html")
	}
}

func TestSession_AIEditRejectsEmptyInstruction(t *testing.T) {
	rw := &fakeRewriter{out: "x"}
	s := newTestSession(rw, nil)
	if err := s.AIEditRequested(context.Background(), "   "); !errors.Is(err, ErrEmptyInstruction) {
		t.Errorf("err = %v, want ErrEmptyInstruction", err)
	}
	if rw.calls != 0 {
		t.Error("rewriter called for an empty instruction")
	}
}

func TestSession_AIEditBusy(t *testing.T) {
	rw := &fakeRewriter{out: "<p>ok</p>", gate: make(chan struct{}), started: make(chan struct{})}
	s := newTestSession(rw, nil)

	done := make(chan error, 1)
	go func() { done <- s.AIEditRequested(context.Background(), "primeiro") }()
	<-rw.started

	if err := s.AIEditRequested(context.Background(), "segundo"); !errors.Is(err, ErrBusy) {
		t.Errorf("second request err = %v, want ErrBusy", err)
	}
	if !s.Snapshot().Busy {
		t.Error("snapshot should report busy")
	}

	close(rw.gate)
	if err := <-done; err != nil {
		t.Fatalf("first request: %v", err)
	}
	if rw.calls != 1 {
		t.Errorf("rewriter calls = %d, want 1", rw.calls)
	}
}

func TestSession_LateAIResultIgnoredAfterClose(t *testing.T) {
	rw := &fakeRewriter{out: "<p>late</p>", gate: make(chan struct{}), started: make(chan struct{})}
	s := newTestSession(rw, nil)

	done := make(chan error, 1)
	go func() { done <- s.AIEditRequested(context.Background(), "x") }()
	<-rw.started

	s.Close()
	close(rw.gate)

	if err := <-done; !errors.Is(err, ErrClosed) {
		t.Errorf("err = %v, want ErrClosed", err)
	}
	if s.HTML() != page {
		t.Error("late result applied to a closed session")
	}
}

func TestSession_SaveSuccess(t *testing.T) {
	p := &fakePersister{}
	s := newTestSession(nil, p)
	s.TextEdited("<p>novo</p>")
	s.ThemeFieldChanged(theme.FieldFont, "Lato")

	if err := s.Save(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.Snapshot().State != StateClean {
		t.Error("save should leave the session clean")
	}
	if len(p.saved) != 1 || p.saved[0] != "<p>novo</p>" || p.theme.FontFamily != "Lato" {
		t.Errorf("persisted %v %+v", p.saved, p.theme)
	}
}

func TestSession_SaveFailureStaysDirty(t *testing.T) {
	p := &fakePersister{err: errors.New("db down")}
	s := newTestSession(nil, p)
	s.TextEdited("<p>novo</p>")

	if err := s.Save(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if s.Snapshot().State != StateDirty {
		t.Error("failed save should leave the session dirty")
	}
	if s.HTML() != "<p>novo</p>" {
		t.Error("failed save lost the edit")
	}
}

func TestSession_HandleMessages(t *testing.T) {
	s := newTestSession(nil, nil)
	rev := s.Snapshot().Revision

	t.Run("foreign token", func(t *testing.T) {
		err := s.Handle(Message{Type: MsgContentUpdate, Token: "nope", Revision: rev, HTML: "<p>x</p>"})
		if !errors.Is(err, ErrStaleMessage) {
			t.Errorf("err = %v, want ErrStaleMessage", err)
		}
	})

	t.Run("stale revision", func(t *testing.T) {
		err := s.Handle(Message{Type: MsgContentUpdate, Token: s.Token, Revision: rev - 1, HTML: "<p>x</p>"})
		if !errors.Is(err, ErrStaleMessage) {
			t.Errorf("err = %v, want ErrStaleMessage", err)
		}
		if s.HTML() != page {
			t.Error("stale message mutated the document")
		}
	})

	t.Run("content update", func(t *testing.T) {
		// The frame posts back the injected document; injected blocks are
		// stripped before storing.
		framed := inject.Document("<html><head></head><body><p>editado</p></body></html>", s.Theme(), inject.Options{Mode: inject.ModeEditable})
		err := s.Handle(Message{Type: MsgContentUpdate, Token: s.Token, Revision: rev, HTML: framed})
		if err != nil {
			t.Fatal(err)
		}
		got := s.HTML()
		if !strings.Contains(got, "<p>editado</p>") || strings.Contains(got, inject.TailwindCDN) {
			t.Errorf("stored html = %q", got)
		}
		v := s.Snapshot()
		if v.CanUndo {
			t.Error("content updates are not undoable")
		}
		if v.Revision != rev {
			t.Error("content update from the frame must not bump the revision")
		}
	})

	t.Run("image click", func(t *testing.T) {
		err := s.Handle(Message{Type: MsgImageClick, Token: s.Token, Revision: rev, Src: "https://cdn/b.jpg"})
		if err != nil {
			t.Fatal(err)
		}
		if s.Snapshot().SelectedImage != "https://cdn/b.jpg" {
			t.Error("selection not recorded")
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		if err := s.Handle(Message{Type: "BOGUS", Token: s.Token, Revision: rev}); err == nil {
			t.Error("expected error")
		}
	})
}

func TestSession_RenderIsEditable(t *testing.T) {
	s := newTestSession(nil, nil)
	doc := s.Render()
	if !strings.Contains(doc, "var TOKEN = '"+s.Token+"'") {
		t.Error("render lacks the session token")
	}
	if !strings.Contains(doc, "family=Inter") {
		t.Error("editor should fall back to the default font")
	}
}

func TestSession_SkeletonRendersGrayscale(t *testing.T) {
	m := NewManager(nil, &fakePersister{}, time.Hour)
	s := m.Open(Target{Kind: KindSkeleton, ID: uuid.New()}, page, theme.Config{})
	if !strings.Contains(s.Render(), "grayscale(1)") {
		t.Error("skeleton session should render grayscale")
	}
}

func TestSession_ClosedRejectsMutations(t *testing.T) {
	s := newTestSession(nil, nil)
	s.Close()
	if err := s.TextEdited("x"); !errors.Is(err, ErrClosed) {
		t.Errorf("TextEdited err = %v", err)
	}
	if err := s.Save(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Save err = %v", err)
	}
}

func TestSession_SubscribeSignalsChanges(t *testing.T) {
	s := newTestSession(nil, nil)
	ch, cancel := s.Subscribe()
	defer cancel()

	s.ThemeFieldChanged(theme.FieldText, "#222")
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("no change signal")
	}
}
