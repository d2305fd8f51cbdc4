// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package editor

import (
	"context"

	"github.com/google/uuid"

	"sitefoundry/internal/theme"
)

// Kind is the type of record an editing session works on.
type Kind string

const (
	KindClient   Kind = "client"
	KindSkeleton Kind = "skeleton"
	KindTemplate Kind = "template"
)

// ParseKind validates a kind from a URL.
func ParseKind(s string) (Kind, bool) {
	switch k := Kind(s); k {
	case KindClient, KindSkeleton, KindTemplate:
		return k, true
	}
	return "", false
}

// Target identifies the record a session saves back to.
type Target struct {
	Kind Kind      `json:"kind"`
	ID   uuid.UUID `json:"id"`
}

// Message types posted by the editable document.
const (
	MsgContentUpdate = "CONTENT_UPDATE"
	MsgImageClick    = "IMAGE_CLICK"
)

// Message is one event relayed from the embedded document. Token and
// Revision are stamped by the injected script.
type Message struct {
	Type     string `json:"type"`
	Token    string `json:"token"`
	Revision int    `json:"revision"`
	HTML     string `json:"html,omitempty"`
	Src      string `json:"src,omitempty"`
}

// Rewriter is the AI collaborator used by the session.
type Rewriter interface {
	EditSite(ctx context.Context, html, instruction string) (string, error)
	FixResponsiveness(ctx context.Context, html string) (string, error)
}

// Persister saves a session's document and theme to its target record.
type Persister interface {
	Persist(ctx context.Context, target Target, html string, cfg theme.Config) error
}
