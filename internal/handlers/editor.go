// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"sitefoundry/internal/ai"
	"sitefoundry/internal/editor"
	"sitefoundry/internal/imaging"
	"sitefoundry/internal/middleware"
	"sitefoundry/internal/render"
	"sitefoundry/internal/session"
	"sitefoundry/internal/storage"
	"sitefoundry/internal/theme"
)

// Websocket timings for the editor relay.
const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

// errRecordNotFound is returned when an editor target does not exist.
var errRecordNotFound = errors.New("record not found")

// Editor serves the visual editor shell and its API. The same handlers
// run under /admin/editor for the operator and under /portal/editor for a
// client, who may only touch their own site.
type Editor struct {
	renderer  *render.Renderer
	manager   *editor.Manager
	clients   ClientStore
	skeletons SkeletonStore
	templates TemplateStore
	storage   *storage.Client
	upgrader  websocket.Upgrader
}

// NewEditor creates the editor handler group. storageClient may be nil,
// in which case image overrides accept URLs only.
func NewEditor(renderer *render.Renderer, manager *editor.Manager,
	clients ClientStore, skeletons SkeletonStore, templates TemplateStore, storageClient *storage.Client) *Editor {
	return &Editor{
		renderer:  renderer,
		manager:   manager,
		clients:   clients,
		skeletons: skeletons,
		templates: templates,
		storage:   storageClient,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

// Open loads the target record and starts an editing session on it.
func (e *Editor) Open(ctx context.Context, target editor.Target) (*editor.Session, error) {
	var (
		html string
		cfg  theme.Config
	)
	switch target.Kind {
	case editor.KindClient:
		c, err := e.clients.FindByID(ctx, target.ID)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, errRecordNotFound
		}
		html, cfg = c.SiteContent, c.Theme
	case editor.KindSkeleton:
		sk, err := e.skeletons.FindByID(ctx, target.ID)
		if err != nil {
			return nil, err
		}
		if sk == nil {
			return nil, errRecordNotFound
		}
		html = sk.HTML
	case editor.KindTemplate:
		t, err := e.templates.FindByID(ctx, target.ID)
		if err != nil {
			return nil, err
		}
		if t == nil {
			return nil, errRecordNotFound
		}
		html, cfg = t.PreviewHTML, t.StyleConfig
	default:
		return nil, errRecordNotFound
	}
	return e.manager.Open(target, html, cfg), nil
}

// OpenAPI starts a session from the admin: {"kind": "...", "id": "..."}.
func (e *Editor) OpenAPI(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind string `json:"kind"`
		ID   string `json:"id"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	kind, ok := editor.ParseKind(req.Kind)
	id, err := uuid.Parse(req.ID)
	if !ok || err != nil {
		writeError(w, http.StatusBadRequest, "Alvo de edição inválido.")
		return
	}

	s, err := e.Open(r.Context(), editor.Target{Kind: kind, ID: id})
	if errors.Is(err, errRecordNotFound) {
		writeError(w, http.StatusNotFound, "Registro não encontrado.")
		return
	}
	if err != nil {
		serverError(w, "open editor failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"id":  s.ID,
		"url": "/admin/editor/" + s.ID,
	})
}

// session resolves {sid} and checks that the caller may use it. Foreign
// sessions look like missing ones.
func (e *Editor) session(w http.ResponseWriter, r *http.Request) (*editor.Session, bool) {
	s := e.manager.Get(chi.URLParam(r, "sid"))
	if s == nil || !canEdit(middleware.SessionFromCtx(r.Context()), s.Target) {
		writeError(w, http.StatusNotFound, "Sessão de edição não encontrada.")
		return nil, false
	}
	return s, true
}

func canEdit(sess *session.Data, target editor.Target) bool {
	switch {
	case sess.IsAdmin():
		return true
	case sess.IsClient():
		return target.Kind == editor.KindClient && target.ID == sess.ClientID
	}
	return false
}

// basePath is the URL prefix of a session for the caller's surface.
func basePath(sess *session.Data, id string) string {
	if sess.IsClient() {
		return "/portal/editor/" + id
	}
	return "/admin/editor/" + id
}

func backPath(sess *session.Data, target editor.Target) string {
	switch {
	case sess.IsClient():
		return "/portal"
	case target.Kind == editor.KindClient:
		return "/admin/clients/" + target.ID.String()
	}
	return "/admin/studio"
}

// colorField labels a theme colour in the shell.
type colorField struct {
	Field theme.Field
	Label string
}

var colorFields = []colorField{
	{theme.FieldPrimary, "Cor primária"},
	{theme.FieldSecondary, "Cor secundária"},
	{theme.FieldBackground, "Fundo"},
	{theme.FieldSurface, "Superfície"},
	{theme.FieldText, "Texto"},
}

// Page renders the editor shell.
func (e *Editor) Page(w http.ResponseWriter, r *http.Request) {
	s := e.manager.Get(chi.URLParam(r, "sid"))
	sess := middleware.SessionFromCtx(r.Context())
	if s == nil || !canEdit(sess, s.Target) {
		http.NotFound(w, r)
		return
	}

	title := map[editor.Kind]string{
		editor.KindClient:   "Site do cliente",
		editor.KindSkeleton: "Esqueleto",
		editor.KindTemplate: "Template",
	}[s.Target.Kind]

	e.renderer.Page(w, r, "editor", &render.PageData{
		Title: title,
		Data: map[string]any{
			"Config": map[string]any{
				"base":  basePath(sess, s.ID),
				"back":  backPath(sess, s.Target),
				"state": s.Snapshot(),
			},
			"Back":        backPath(sess, s.Target),
			"ColorFields": colorFields,
			"Fonts":       theme.Fonts,
			"CanUpload":   e.storage != nil,
		},
	})
}

// Document renders the editable document for the current revision. The
// frame reloads it after every revision bump, so it is never cached.
func (e *Editor) Document(w http.ResponseWriter, r *http.Request) {
	s, ok := e.session(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	io.WriteString(w, s.Render())
}

// State returns the session state, for shells without a websocket.
func (e *Editor) State(w http.ResponseWriter, r *http.Request) {
	s, ok := e.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// frame is pushed over the websocket.
type frame struct {
	Type  string       `json:"type"`
	State *editor.View `json:"state,omitempty"`
	Error string       `json:"error,omitempty"`
}

func stateFrame(s *editor.Session) frame {
	v := s.Snapshot()
	return frame{Type: "state", State: &v}
}

// Socket relays document messages to the session and pushes its state
// after every change.
func (e *Editor) Socket(w http.ResponseWriter, r *http.Request) {
	s, ok := e.session(w, r)
	if !ok {
		return
	}
	conn, err := e.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("editor websocket upgrade failed", "session", s.ID, "error", err)
		return
	}
	defer conn.Close()

	changes, stop := s.Subscribe()
	defer stop()

	var writeMu sync.Mutex
	send := func(v any) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(v)
	}

	if err := send(stateFrame(s)); err != nil {
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(maxJSONBody)
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			var msg editor.Message
			if err := conn.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					slog.Debug("editor websocket read failed", "session", s.ID, "error", err)
				}
				return
			}
			if err := s.Handle(msg); err != nil {
				if errors.Is(err, editor.ErrStaleMessage) {
					slog.Debug("editor message dropped", "session", s.ID, "type", msg.Type, "revision", msg.Revision)
					continue
				}
				if send(frame{Type: "error", Error: err.Error()}) != nil {
					return
				}
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-done:
			return
		case <-changes:
			if s.Closed() {
				send(frame{Type: "closed"})
				return
			}
			if err := send(stateFrame(s)); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

// Message is the HTTP fallback for the websocket relay.
func (e *Editor) Message(w http.ResponseWriter, r *http.Request) {
	s, ok := e.session(w, r)
	if !ok {
		return
	}
	var msg editor.Message
	if err := decodeJSON(w, r, &msg); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	e.respond(w, s, s.Handle(msg))
}

// Select marks an image chosen from the media panel.
func (e *Editor) Select(w http.ResponseWriter, r *http.Request) {
	s, ok := e.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Src string `json:"src"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	e.respond(w, s, s.ImageClicked(req.Src))
}

// Theme sets one theme field: {"field": "primaryColor", "value": "#ff0000"}.
func (e *Editor) Theme(w http.ResponseWriter, r *http.Request) {
	s, ok := e.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Field string `json:"field"`
		Value string `json:"value"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	field, err := theme.ParseField(req.Field)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	e.respond(w, s, s.ThemeFieldChanged(field, req.Value))
}

// Image sets a replacement for the selected image. The body is either
// JSON {"replacement": url, "original": optional} or a multipart upload
// in the "file" field, which is resized and stored in the bucket.
func (e *Editor) Image(w http.ResponseWriter, r *http.Request) {
	s, ok := e.session(w, r)
	if !ok {
		return
	}

	original := s.Snapshot().SelectedImage
	var replacement string

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if e.storage == nil {
			writeError(w, http.StatusServiceUnavailable, "Armazenamento de imagens não configurado.")
			return
		}
		url, status, msg := e.upload(w, r, s.Target)
		if msg != "" {
			writeError(w, status, msg)
			return
		}
		if o := r.FormValue("original"); o != "" {
			original = o
		}
		replacement = url
	} else {
		var req struct {
			Original    string `json:"original"`
			Replacement string `json:"replacement"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.Original != "" {
			original = req.Original
		}
		replacement = strings.TrimSpace(req.Replacement)
		if replacement != "" && !isHTTPURL(replacement) {
			writeError(w, http.StatusBadRequest, "Informe uma URL http(s) para a imagem.")
			return
		}
	}

	if original == "" {
		writeError(w, http.StatusBadRequest, "Selecione uma imagem primeiro.")
		return
	}
	e.respond(w, s, s.ImageOverrideSet(original, replacement))
}

// upload stores a multipart image and returns its public URL, or an HTTP
// status and message on failure.
func (e *Editor) upload(w http.ResponseWriter, r *http.Request, target editor.Target) (string, int, string) {
	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadSize+1024)
	if err := r.ParseMultipartForm(imaging.MaxUploadSize); err != nil {
		return "", http.StatusRequestEntityTooLarge, "Imagem muito grande (máx. 10 MB)."
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return "", http.StatusBadRequest, "Nenhum arquivo enviado."
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", http.StatusBadRequest, "Falha ao ler o arquivo."
	}
	img, err := imaging.Fit(data, imaging.DefaultMaxWidth)
	if errors.Is(err, imaging.ErrUnsupported) {
		return "", http.StatusUnsupportedMediaType, "Formato de imagem não suportado."
	}
	if err != nil {
		slog.Warn("image override decode failed", "error", err)
		return "", http.StatusBadRequest, "Imagem inválida."
	}

	key := storage.OverrideKey(string(target.Kind), target.ID.String(), img.Ext)
	url, err := e.storage.Put(r.Context(), key, img.ContentType, img.Data)
	if err != nil {
		slog.Error("image override upload failed", "key", key, "error", err)
		return "", http.StatusBadGateway, "Falha ao enviar a imagem."
	}
	slog.Info("image override uploaded", "key", key, "width", img.Width, "height", img.Height)
	return url, 0, ""
}

// Undo restores the previous snapshot.
func (e *Editor) Undo(w http.ResponseWriter, r *http.Request) {
	s, ok := e.session(w, r)
	if !ok {
		return
	}
	e.respond(w, s, s.Undo())
}

// Redo re-applies an undone snapshot.
func (e *Editor) Redo(w http.ResponseWriter, r *http.Request) {
	s, ok := e.session(w, r)
	if !ok {
		return
	}
	e.respond(w, s, s.Redo())
}

// AIEdit applies a free-text instruction: {"instruction": "..."}.
func (e *Editor) AIEdit(w http.ResponseWriter, r *http.Request) {
	s, ok := e.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Instruction string `json:"instruction"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len([]rune(req.Instruction)) > maxInstructionLen {
		writeError(w, http.StatusBadRequest, "Instrução muito longa.")
		return
	}
	e.respond(w, s, s.AIEditRequested(r.Context(), req.Instruction))
}

// FixResponsive asks the AI for a mobile layout pass.
func (e *Editor) FixResponsive(w http.ResponseWriter, r *http.Request) {
	s, ok := e.session(w, r)
	if !ok {
		return
	}
	e.respond(w, s, s.FixResponsivenessRequested(r.Context()))
}

// Save persists the document and theme to the target record.
func (e *Editor) Save(w http.ResponseWriter, r *http.Request) {
	s, ok := e.session(w, r)
	if !ok {
		return
	}
	err := s.Save(r.Context())
	if err != nil && !errors.Is(err, editor.ErrBusy) && !errors.Is(err, editor.ErrClosed) {
		slog.Error("editor save failed", "session", s.ID, "target", s.Target.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error": "Não foi possível salvar. Tente novamente.",
			"state": s.Snapshot(),
		})
		return
	}
	e.respond(w, s, err)
}

// Close ends the session. Unsaved changes are discarded.
func (e *Editor) Close(w http.ResponseWriter, r *http.Request) {
	s, ok := e.session(w, r)
	if !ok {
		return
	}
	e.manager.Close(s.ID)
	w.WriteHeader(http.StatusNoContent)
}

// respond maps a session error to a status and always includes the
// current state so the shell can re-render.
func (e *Editor) respond(w http.ResponseWriter, s *editor.Session, err error) {
	state := s.Snapshot()
	if err == nil {
		writeJSON(w, http.StatusOK, map[string]any{"state": state})
		return
	}

	status := http.StatusBadRequest
	msg := err.Error()
	var rejected *ai.RejectedError
	switch {
	case errors.Is(err, editor.ErrStaleMessage):
		status, msg = http.StatusConflict, "Mensagem desatualizada."
	case errors.Is(err, editor.ErrBusy):
		status, msg = http.StatusConflict, "Aguarde a operação em andamento."
	case errors.Is(err, editor.ErrClosed):
		status, msg = http.StatusGone, "Sessão de edição encerrada."
	case errors.Is(err, editor.ErrEmptyInstruction):
		msg = "Descreva a alteração desejada."
	case errors.As(err, &rejected):
		status, msg = http.StatusUnprocessableEntity, "Instrução recusada pela moderação."
	case errors.Is(err, editor.ErrNoRewriter):
		status, msg = http.StatusServiceUnavailable, "Nenhum provedor de IA configurado."
	case errors.Is(err, editor.ErrAI):
		slog.Warn("editor ai request failed", "session", s.ID, "error", err)
		status, msg = http.StatusBadGateway, "O assistente não conseguiu aplicar a alteração."
	}
	writeJSON(w, status, map[string]any{"error": msg, "state": state})
}
