// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"sitefoundry/internal/inject"
	"sitefoundry/internal/models"
	"sitefoundry/internal/snapshot"
	"sitefoundry/internal/storage"
)

// snapshotTimeout bounds one headless browser capture.
const snapshotTimeout = 45 * time.Second

// capture renders the client's readonly site to PNG. It writes the error
// response itself and returns nil on failure.
func (a *Admin) capture(w http.ResponseWriter, r *http.Request, c *models.Client) []byte {
	if a.capturer == nil {
		writeError(w, http.StatusServiceUnavailable, "Capturas de tela indisponíveis.")
		return nil
	}
	doc := inject.Document(c.SiteContent, c.Theme, inject.Options{
		Mode:  inject.ModeReadonly,
		Phone: c.Phone(),
	})
	if doc == "" {
		writeError(w, http.StatusConflict, "O cliente ainda não tem site.")
		return nil
	}

	ctx, cancel := context.WithTimeout(r.Context(), snapshotTimeout)
	defer cancel()
	png, err := a.capturer.Capture(ctx, doc)
	if errors.Is(err, snapshot.ErrNoBrowser) {
		writeError(w, http.StatusServiceUnavailable, "Navegador não encontrado no servidor.")
		return nil
	}
	if err != nil {
		slog.Error("snapshot capture failed", "client", c.ID, "error", err)
		writeError(w, http.StatusBadGateway, "Falha ao capturar a tela.")
		return nil
	}
	return png
}

// Snapshot returns a fresh PNG screenshot of the client's site.
func (a *Admin) Snapshot(w http.ResponseWriter, r *http.Request) {
	c, ok := a.loadClient(w, r, true)
	if !ok {
		return
	}
	png := a.capture(w, r, c)
	if png == nil {
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(png)
}

// SnapshotUpload captures the site and stores the thumbnail in the bucket,
// returning its public URL.
func (a *Admin) SnapshotUpload(w http.ResponseWriter, r *http.Request) {
	if a.storage == nil {
		writeError(w, http.StatusServiceUnavailable, "Armazenamento não configurado.")
		return
	}
	c, ok := a.loadClient(w, r, true)
	if !ok {
		return
	}
	png := a.capture(w, r, c)
	if png == nil {
		return
	}

	key := storage.SnapshotKey(c.ID, a.now())
	url, err := a.storage.Put(r.Context(), key, "image/png", png)
	if err != nil {
		slog.Error("snapshot upload failed", "client", c.ID, "key", key, "error", err)
		writeError(w, http.StatusBadGateway, "Falha ao enviar a captura.")
		return
	}
	slog.Info("snapshot uploaded", "client", c.ID, "key", key, "bytes", len(png))
	writeJSON(w, http.StatusOK, map[string]string{"url": url, "message": "Miniatura publicada."})
}
