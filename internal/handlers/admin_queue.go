// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"

	"sitefoundry/internal/models"
	"sitefoundry/internal/queue"
	"sitefoundry/internal/render"
)

// maxImportSize bounds an uploaded lead archive.
const maxImportSize = 50 << 20

// Fingerprinter lists the duplicate keys of existing clients.
type Fingerprinter interface {
	Fingerprints(ctx context.Context) (map[string]bool, error)
}

// Queue groups the mass generation handlers. Runs are started on the
// application context, not the request's, so they outlive the request
// that started them.
type Queue struct {
	renderer  *render.Renderer
	queue     *queue.Queue
	processor *queue.Processor
	templates TemplateStore
	clients   Fingerprinter
	runCtx    context.Context
}

// NewQueue creates the queue handler group. runCtx bounds every run.
func NewQueue(runCtx context.Context, renderer *render.Renderer, q *queue.Queue, p *queue.Processor, templates TemplateStore, clients Fingerprinter) *Queue {
	return &Queue{
		renderer:  renderer,
		queue:     q,
		processor: p,
		templates: templates,
		clients:   clients,
		runCtx:    runCtx,
	}
}

// queueRow is a queue item with the hints the page shows.
type queueRow struct {
	queue.Item
	Niche         string
	TemplateMatch bool
}

// Page renders the queue.
func (h *Queue) Page(w http.ResponseWriter, r *http.Request) {
	templates, err := h.templates.ListApproved(r.Context())
	if err != nil {
		slog.Warn("list approved templates failed", "error", err)
	}

	items := h.queue.Items()
	rows := make([]queueRow, len(items))
	for i, it := range items {
		rows[i] = queueRow{
			Item:          it,
			Niche:         it.Lead.Niche(),
			TemplateMatch: queue.HasTemplateMatch(it.Lead, templates),
		}
	}

	h.renderer.Page(w, r, "queue", &render.PageData{
		Title:   "Geração em massa",
		Section: "queue",
		Data: map[string]any{
			"Items":   rows,
			"Counts":  h.queue.Counts(),
			"Running": h.processor.Running(),
		},
	})
}

// State returns the queue for polling.
func (h *Queue) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"running": h.processor.Running(),
		"counts":  h.queue.Counts(),
		"items":   h.queue.Items(),
	})
}

// Import adds leads from an uploaded .zip of JSON files or a single .json
// document. Leads matching an existing client or item are skipped.
func (h *Queue) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize+1024)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "Arquivo muito grande (máx. 50 MB).")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Nenhum arquivo enviado.")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Falha ao ler o arquivo.")
		return
	}

	var (
		leads   []models.Lead
		skipped int
	)
	if isZip(header.Filename, data) {
		rep, err := queue.ImportZip(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Arquivo .zip inválido.")
			return
		}
		leads, skipped = rep.Leads, rep.Skipped
	} else {
		leads, err = queue.ImportJSON(data)
		if err != nil {
			writeError(w, http.StatusBadRequest, "JSON de leads inválido.")
			return
		}
	}

	known, err := h.clients.Fingerprints(r.Context())
	if err != nil {
		serverError(w, "load client fingerprints failed", err)
		return
	}
	h.queue.Remember(known)
	res := h.queue.Add(leads...)

	slog.Info("leads imported", "file", header.Filename, "added", res.Added, "duplicates", res.Duplicates, "skipped", skipped)
	writeJSON(w, http.StatusOK, map[string]int{
		"added":      res.Added,
		"duplicates": res.Duplicates,
		"skipped":    skipped,
	})
}

// isZip checks the extension, then the local file header magic.
func isZip(name string, data []byte) bool {
	if strings.EqualFold(path.Ext(name), ".zip") {
		return true
	}
	return bytes.HasPrefix(data, []byte("PK\x03\x04"))
}

// Select marks one item, or every waiting item with {"all": true}.
func (h *Queue) Select(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID       string `json:"id"`
		All      bool   `json:"all"`
		Selected bool   `json:"selected"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.All {
		h.queue.SelectAll(req.Selected)
		writeJSON(w, http.StatusOK, map[string]bool{"selected": req.Selected})
		return
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "ID inválido.")
		return
	}
	if err := h.queue.Select(id, req.Selected); errors.Is(err, queue.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Item não encontrado.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"selected": req.Selected})
}

// Start begins processing the selected waiting items.
func (h *Queue) Start(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.queue.Next(); !ok {
		writeError(w, http.StatusConflict, "Nenhum item selecionado aguardando.")
		return
	}
	if err := h.processor.Start(h.runCtx); errors.Is(err, queue.ErrRunning) {
		writeError(w, http.StatusConflict, "A fila já está em processamento.")
		return
	}
	slog.Info("queue started")
	writeJSON(w, http.StatusOK, map[string]string{"message": "Processamento iniciado."})
}

// Pause stops after the item being built.
func (h *Queue) Pause(w http.ResponseWriter, r *http.Request) {
	h.processor.Pause()
	slog.Info("queue paused")
	writeJSON(w, http.StatusOK, map[string]string{"message": "A fila para após o item atual."})
}

// Remove drops an item that is not being processed.
func (h *Queue) Remove(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "ID inválido.")
		return
	}
	switch err := h.queue.Remove(id); {
	case errors.Is(err, queue.ErrNotFound):
		writeError(w, http.StatusNotFound, "Item não encontrado.")
	case errors.Is(err, queue.ErrProcessing):
		writeError(w, http.StatusConflict, "O item está em processamento.")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// Clear drops finished items.
func (h *Queue) Clear(w http.ResponseWriter, r *http.Request) {
	n := h.queue.ClearFinished()
	writeJSON(w, http.StatusOK, map[string]any{
		"removed": n,
		"message": "Itens concluídos removidos.",
	})
}
