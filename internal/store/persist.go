// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"fmt"

	"sitefoundry/internal/editor"
	"sitefoundry/internal/theme"
)

// EditorPersister routes editor saves to the store that owns the target.
type EditorPersister struct {
	Clients   *ClientStore
	Skeletons *SkeletonStore
	Templates *TemplateStore

	// AfterSave, when set, runs after a successful write. The gateway uses
	// it to drop cached pages.
	AfterSave func(ctx context.Context, target editor.Target)
}

// Persist implements editor.Persister. Skeletons carry no theme, so cfg is
// ignored for them.
func (p *EditorPersister) Persist(ctx context.Context, target editor.Target, html string, cfg theme.Config) error {
	var err error
	switch target.Kind {
	case editor.KindClient:
		err = p.Clients.SaveSite(ctx, target.ID, html, cfg)
	case editor.KindSkeleton:
		err = p.Skeletons.SaveHTML(ctx, target.ID, html)
	case editor.KindTemplate:
		err = p.Templates.SaveHTML(ctx, target.ID, html, cfg)
	default:
		return fmt.Errorf("persist: unknown target kind %q", target.Kind)
	}
	if err != nil {
		return err
	}
	if p.AfterSave != nil {
		p.AfterSave(ctx, target)
	}
	return nil
}
