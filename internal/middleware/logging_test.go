// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
)

// captureLog swaps the default logger for a JSON one writing to a buffer.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestLoggerRecordsRequest(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		handler   http.HandlerFunc
		wantLevel string
		status    float64
		bytes     float64
	}{
		{"page", "/admin", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("painel"))
		}, "INFO", 200, 6},
		{"explicit status", "/s/nada", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}, "INFO", 404, 0},
		{"blob fetch", "/blob/0123", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusGone)
		}, "DEBUG", 410, 0},
		{"health probe", "/health", func(w http.ResponseWriter, r *http.Request) {}, "DEBUG", 200, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLog(t)
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.Host = "padaria.sites.test"
			Logger(tt.handler).ServeHTTP(httptest.NewRecorder(), req)

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("log line %q: %v", buf.String(), err)
			}
			if entry["level"] != tt.wantLevel || entry["status"] != tt.status || entry["bytes"] != tt.bytes {
				t.Errorf("entry = %v", entry)
			}
			if entry["path"] != tt.path || entry["host"] != "padaria.sites.test" {
				t.Errorf("path/host = %v / %v", entry["path"], entry["host"])
			}
		})
	}
}

func TestResponseWriterKeepsFirstStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}

	rw.WriteHeader(http.StatusPaymentRequired)
	rw.WriteHeader(http.StatusInternalServerError)
	rw.Write([]byte("pague"))

	if rw.statusCode != http.StatusPaymentRequired || rw.bytes != 5 {
		t.Errorf("status = %d, bytes = %d", rw.statusCode, rw.bytes)
	}
	if rw.Unwrap() != rec {
		t.Error("Unwrap should return the wrapped writer")
	}
}

// hijackRecorder is a recorder that supports connection hijacking.
type hijackRecorder struct {
	*httptest.ResponseRecorder
	hijacked bool
}

func (h *hijackRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h.hijacked = true
	return nil, nil, nil
}

func TestResponseWriterHijack(t *testing.T) {
	hr := &hijackRecorder{ResponseRecorder: httptest.NewRecorder()}
	rw := &responseWriter{ResponseWriter: hr, statusCode: http.StatusOK}
	if _, _, err := rw.Hijack(); err != nil || !hr.hijacked {
		t.Fatalf("Hijack = %v, hijacked = %v", err, hr.hijacked)
	}
	if rw.statusCode != http.StatusSwitchingProtocols {
		t.Errorf("status = %d, want 101", rw.statusCode)
	}

	plain := &responseWriter{ResponseWriter: httptest.NewRecorder()}
	if _, _, err := plain.Hijack(); err == nil {
		t.Error("a writer without Hijacker should refuse")
	}
}
