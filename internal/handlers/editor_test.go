// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"sitefoundry/internal/ai"
	"sitefoundry/internal/editor"
	"sitefoundry/internal/models"
	"sitefoundry/internal/session"
)

// openSession starts an editor session on a new client and returns both.
func openSession(t *testing.T, env *testEnv) (*editor.Session, *models.Client) {
	t.Helper()
	c := env.addClient(t, nil)
	s, err := env.Editor.Open(context.Background(), editor.Target{Kind: editor.KindClient, ID: c.ID})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s, c
}

// call invokes an editor handler for session sid as sess.
func call(h http.HandlerFunc, method, sid string, body any, sess *session.Data) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	r := httptest.NewRequest(method, "/admin/editor/"+sid, &buf)
	r.Header.Set("Content-Type", "application/json")
	if sess != nil {
		r = r.WithContext(ctxWithSession(r.Context(), sess))
	}
	r = withChiURLParams(r, "sid", sid)
	rec := httptest.NewRecorder()
	h(rec, r)
	return rec
}

// stateOf decodes the "state" object of an editor response.
func stateOf(t *testing.T, rec *httptest.ResponseRecorder) editor.View {
	t.Helper()
	var out struct {
		State editor.View `json:"state"`
		Error string      `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out.State
}

func TestEditorOpenAPI(t *testing.T) {
	env := newTestEnv(t)
	c := env.addClient(t, nil)
	sk := &models.Skeleton{Name: "Landing", HTML: "<html><body>{{NAME}}</body></html>"}
	env.Skeletons.Upsert(context.Background(), sk)

	tests := []struct {
		name   string
		body   map[string]string
		status int
	}{
		{"client", map[string]string{"kind": "client", "id": c.ID.String()}, http.StatusCreated},
		{"skeleton", map[string]string{"kind": "skeleton", "id": sk.ID.String()}, http.StatusCreated},
		{"missing template", map[string]string{"kind": "template", "id": uuid.NewString()}, http.StatusNotFound},
		{"unknown kind", map[string]string{"kind": "page", "id": c.ID.String()}, http.StatusBadRequest},
		{"bad id", map[string]string{"kind": "client", "id": "x"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			env.Editor.OpenAPI(rec, jsonRequest(t, http.MethodPost, "/admin/api/editor", tt.body, adminSession()))
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body.String())
			}
			if tt.status != http.StatusCreated {
				return
			}
			body := decodeBody(t, rec)
			id, _ := body["id"].(string)
			if env.Editors.Get(id) == nil {
				t.Errorf("session %q not registered", id)
			}
			if body["url"] != "/admin/editor/"+id {
				t.Errorf("url = %v", body["url"])
			}
		})
	}
}

func TestEditorAccess(t *testing.T) {
	env := newTestEnv(t)
	s, c := openSession(t, env)
	other := env.addClient(t, func(o *models.Client) { o.Slug = "outro" })

	tests := []struct {
		name   string
		sess   *session.Data
		status int
	}{
		{"admin", adminSession(), http.StatusOK},
		{"owner", clientSession(c.ID), http.StatusOK},
		{"other client", clientSession(other.ID), http.StatusNotFound},
		{"anonymous", nil, http.StatusNotFound},
		{"pending admin", &session.Data{Role: models.RoleAdmin}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := call(env.Editor.State, http.MethodGet, s.ID, nil, tt.sess)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}

	t.Run("client cannot reach a template session", func(t *testing.T) {
		tpl := &models.Template{Niche: "padaria", PreviewHTML: "<html><body>x</body></html>"}
		env.Templates.Upsert(context.Background(), tpl)
		ts, err := env.Editor.Open(context.Background(), editor.Target{Kind: editor.KindTemplate, ID: tpl.ID})
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		if rec := call(env.Editor.State, http.MethodGet, ts.ID, nil, clientSession(c.ID)); rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestEditorPage(t *testing.T) {
	env := newTestEnv(t)
	s, c := openSession(t, env)

	rec := call(env.Editor.Page, http.MethodGet, s.ID, nil, clientSession(c.ID))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, s.ID) {
		t.Error("shell should be configured with the session id")
	}
	if !strings.Contains(body, `href="/portal"`) {
		t.Error("portal shell should lead back to the portal")
	}

	if rec := call(env.Editor.Page, http.MethodGet, "nope", nil, adminSession()); rec.Code != http.StatusNotFound {
		t.Errorf("unknown session: status = %d, want 404", rec.Code)
	}
}

func TestEditorDocument(t *testing.T) {
	env := newTestEnv(t)
	s, _ := openSession(t, env)

	rec := call(env.Editor.Document, http.MethodGet, s.ID, nil, adminSession())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", got)
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html") {
		t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
	}
	doc := rec.Body.String()
	if !strings.Contains(doc, s.Token) {
		t.Error("editable document should carry the session token")
	}
	if !strings.Contains(doc, "contenteditable") {
		t.Error("editable document should enable text editing")
	}
	if env.Channels.Len() != 0 {
		t.Error("the editable document is rendered directly, not published as a blob")
	}

	if rec := call(env.Editor.Document, http.MethodGet, s.ID, nil, clientSession(uuid.New())); rec.Code != http.StatusNotFound {
		t.Errorf("foreign client: status = %d, want 404", rec.Code)
	}
}

func TestEditorMessage(t *testing.T) {
	env := newTestEnv(t)
	s, _ := openSession(t, env)
	admin := adminSession()

	tests := []struct {
		name   string
		msg    editor.Message
		status int
		dirty  bool
	}{
		{"wrong token", editor.Message{Type: editor.MsgContentUpdate, Token: "x", Revision: 1, HTML: "<p>a</p>"}, http.StatusConflict, false},
		{"old revision", editor.Message{Type: editor.MsgContentUpdate, Token: s.Token, Revision: 0, HTML: "<p>a</p>"}, http.StatusConflict, false},
		{"image click", editor.Message{Type: editor.MsgImageClick, Token: s.Token, Revision: 1, Src: "https://cdn.test/pao.jpg"}, http.StatusOK, false},
		{"content update", editor.Message{Type: editor.MsgContentUpdate, Token: s.Token, Revision: 1, HTML: "<html><body><h1>Novo</h1></body></html>"}, http.StatusOK, true},
		{"unknown type", editor.Message{Type: "PING", Token: s.Token, Revision: 1}, http.StatusBadRequest, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := call(env.Editor.Message, http.MethodPost, s.ID, tt.msg, admin)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body.String())
			}
			st := stateOf(t, rec)
			if st.Dirty != tt.dirty {
				t.Errorf("dirty = %v, want %v", st.Dirty, tt.dirty)
			}
			if st.Revision != 1 {
				t.Errorf("revision = %d, messages must not reload the frame", st.Revision)
			}
		})
	}

	if got := s.Snapshot().SelectedImage; got != "https://cdn.test/pao.jpg" {
		t.Errorf("selected image = %q", got)
	}
}

func TestEditorThemeUndoSave(t *testing.T) {
	env := newTestEnv(t)
	s, c := openSession(t, env)
	admin := adminSession()

	rec := call(env.Editor.Theme, http.MethodPost, s.ID, map[string]string{"field": "primaryColor", "value": "#ff0000"}, admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("theme status = %d: %s", rec.Code, rec.Body.String())
	}
	st := stateOf(t, rec)
	if st.Revision != 2 || !st.Dirty || st.Theme.PrimaryColor != "#ff0000" {
		t.Errorf("after theme: revision=%d dirty=%v primary=%q", st.Revision, st.Dirty, st.Theme.PrimaryColor)
	}
	if st.CanUndo {
		t.Error("theme changes are not undoable")
	}

	if rec := call(env.Editor.Theme, http.MethodPost, s.ID, map[string]string{"field": "borderRadius", "value": "4px"}, admin); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown field status = %d, want 400", rec.Code)
	}

	rec = call(env.Editor.AIEdit, http.MethodPost, s.ID, map[string]string{"instruction": "Adicione o horário"}, admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("ai edit status = %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(s.HTML(), "<p>Adicione o horário</p>") {
		t.Error("ai edit should replace the document")
	}
	st = stateOf(t, rec)
	if !st.CanUndo || len(st.Chat) != 2 {
		t.Errorf("after ai: canUndo=%v chat=%d", st.CanUndo, len(st.Chat))
	}

	rec = call(env.Editor.Undo, http.MethodPost, s.ID, nil, admin)
	if rec.Code != http.StatusOK || strings.Contains(s.HTML(), "Adicione o horário") {
		t.Fatalf("undo status = %d, html = %q", rec.Code, s.HTML())
	}
	if st := stateOf(t, rec); !st.CanRedo {
		t.Error("undo should allow redo")
	}
	call(env.Editor.Redo, http.MethodPost, s.ID, nil, admin)
	if !strings.Contains(s.HTML(), "Adicione o horário") {
		t.Error("redo should restore the ai edit")
	}

	rec = call(env.Editor.Save, http.MethodPost, s.ID, nil, admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("save status = %d: %s", rec.Code, rec.Body.String())
	}
	if st := stateOf(t, rec); st.State != editor.StateClean {
		t.Errorf("state after save = %q, want clean", st.State)
	}
	saved := env.Clients.get(c.ID)
	if !strings.Contains(saved.SiteContent, "Adicione o horário") || saved.Theme.PrimaryColor != "#ff0000" {
		t.Errorf("persisted = %q / %q", saved.SiteContent, saved.Theme.PrimaryColor)
	}
}

func TestEditorSaveFailureKeepsDirty(t *testing.T) {
	env := newTestEnv(t)
	s, _ := openSession(t, env)
	admin := adminSession()
	call(env.Editor.Theme, http.MethodPost, s.ID, map[string]string{"field": "textColor", "value": "#111111"}, admin)

	env.Persister.err = errors.New("db down")
	rec := call(env.Editor.Save, http.MethodPost, s.ID, nil, admin)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if st := stateOf(t, rec); st.State != editor.StateDirty {
		t.Errorf("state = %q, want dirty", st.State)
	}
}

func TestEditorAIErrors(t *testing.T) {
	tests := []struct {
		name        string
		instruction string
		rewriterErr error
		status      int
	}{
		{"blank instruction", "   ", nil, http.StatusBadRequest},
		{"too long", strings.Repeat("a", maxInstructionLen+1), nil, http.StatusBadRequest},
		{"provider failure", "Troque o título", errors.New("timeout"), http.StatusBadGateway},
		{"moderation", "Troque o título", &ai.RejectedError{Result: &ai.ModerationResult{Categories: []string{"violence"}}}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			s, _ := openSession(t, env)
			env.Rewriter.err = tt.rewriterErr
			rec := call(env.Editor.AIEdit, http.MethodPost, s.ID, map[string]string{"instruction": tt.instruction}, adminSession())
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body.String())
			}
			if st := stateOf(t, rec); st.Busy {
				t.Error("session should not stay busy after a failure")
			}
		})
	}

	t.Run("no provider", func(t *testing.T) {
		env := newTestEnv(t)
		mgr := editor.NewManager(nil, env.Persister, time.Hour)
		ed := NewEditor(env.Renderer, mgr, env.Clients, env.Skeletons, env.Templates, nil)
		c := env.addClient(t, nil)
		s, err := ed.Open(context.Background(), editor.Target{Kind: editor.KindClient, ID: c.ID})
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		rec := call(ed.FixResponsive, http.MethodPost, s.ID, nil, adminSession())
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", rec.Code)
		}
	})
}

func TestEditorImage(t *testing.T) {
	env := newTestEnv(t)
	s, _ := openSession(t, env)
	admin := adminSession()

	rec := call(env.Editor.Image, http.MethodPost, s.ID, map[string]string{"replacement": "https://cdn.test/novo.jpg"}, admin)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("no selection: status = %d, want 400", rec.Code)
	}

	call(env.Editor.Select, http.MethodPost, s.ID, map[string]string{"src": "https://cdn.test/pao.jpg"}, admin)

	rec = call(env.Editor.Image, http.MethodPost, s.ID, map[string]string{"replacement": "javascript:alert(1)"}, admin)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad url: status = %d, want 400", rec.Code)
	}

	rec = call(env.Editor.Image, http.MethodPost, s.ID, map[string]string{"replacement": "https://cdn.test/novo.jpg"}, admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	st := stateOf(t, rec)
	if st.SelectedImage != "" {
		t.Error("setting an override should clear the selection")
	}
	if !strings.Contains(s.Render(), "https://cdn.test/novo.jpg") {
		t.Error("rendered document should use the replacement")
	}
	if strings.Contains(s.HTML(), "novo.jpg") {
		t.Error("overrides must not be baked into the stored HTML")
	}

	t.Run("upload without storage", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, _ := mw.CreateFormFile("file", "foto.png")
		fw.Write([]byte("\x89PNG"))
		mw.Close()

		r := httptest.NewRequest(http.MethodPost, "/admin/editor/"+s.ID+"/image", &buf)
		r.Header.Set("Content-Type", mw.FormDataContentType())
		r = withChiURLParams(r.WithContext(ctxWithSession(r.Context(), admin)), "sid", s.ID)
		rec := httptest.NewRecorder()
		env.Editor.Image(rec, r)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", rec.Code)
		}
	})
}

func TestEditorClose(t *testing.T) {
	env := newTestEnv(t)
	s, _ := openSession(t, env)

	rec := call(env.Editor.Close, http.MethodPost, s.ID, nil, adminSession())
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if env.Editors.Get(s.ID) != nil {
		t.Error("session should be gone")
	}
	if rec := call(env.Editor.State, http.MethodGet, s.ID, nil, adminSession()); rec.Code != http.StatusNotFound {
		t.Errorf("state after close = %d, want 404", rec.Code)
	}
}

func TestEditorSocket(t *testing.T) {
	env := newTestEnv(t)
	s, _ := openSession(t, env)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(ctxWithSession(r.Context(), adminSession())))
		})
	})
	r.Get("/admin/editor/{sid}/ws", env.Editor.Socket)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/admin/editor/" + s.ID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var f frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read initial frame: %v", err)
	}
	if f.Type != "state" || f.State == nil || f.State.ID != s.ID {
		t.Fatalf("initial frame = %+v", f)
	}

	// A stale message is dropped silently; the valid one after it pushes
	// the new state.
	conn.WriteJSON(editor.Message{Type: editor.MsgContentUpdate, Token: s.Token, Revision: 7, HTML: "<p>velho</p>"})
	conn.WriteJSON(editor.Message{Type: editor.MsgContentUpdate, Token: s.Token, Revision: 1, HTML: "<html><body><p>novo</p></body></html>"})

	for {
		if err := conn.ReadJSON(&f); err != nil {
			t.Fatalf("read: %v", err)
		}
		if f.Type == "state" && f.State.Dirty {
			break
		}
	}
	if !strings.Contains(s.HTML(), "novo") || strings.Contains(s.HTML(), "velho") {
		t.Errorf("html = %q", s.HTML())
	}

	env.Editors.Close(s.ID)
	for {
		if err := conn.ReadJSON(&f); err != nil {
			t.Fatalf("read: %v", err)
		}
		if f.Type == "closed" {
			break
		}
	}
}
