// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"

	"sitefoundry/internal/models"
)

// starterSkeleton gives a fresh install one approved wireframe so the
// mass generator has something to assemble from.
const starterSkeleton = `<!DOCTYPE html>
<html lang="pt-BR">
<head><meta charset="utf-8"><title>{{NAME}}</title></head>
<body class="bg-white text-gray-800">
<header class="p-6 flex justify-between items-center"><span class="font-bold text-xl">{{NAME}}</span><a href="#contato" class="bg-primary text-white px-4 py-2 rounded">Contato</a></header>
<section class="p-12 text-center"><h1 class="text-4xl font-bold">{{NAME}}</h1><p class="mt-4">{{ABOUT_TEXT}}</p></section>
<section class="p-12 bg-surface"><h2 class="text-2xl font-bold mb-4">Serviços</h2>{{SERVICE_LIST}}</section>
<section class="p-12"><h2 class="text-2xl font-bold mb-4">Avaliações</h2>{{REVIEWS}}</section>
<footer id="contato" class="p-6 text-center"><p>{{PHONE}}</p><form><button class="bg-primary text-white px-4 py-2 rounded">Falar no WhatsApp</button></form></footer>
</body>
</html>`

// Seed stores the configured trial defaults and a starter skeleton on an
// empty database. Existing rows are never touched.
func Seed(db *sql.DB, trial models.TrialSettings) error {
	_, err := db.Exec(`
		INSERT INTO site_settings (key, value) VALUES ($1, $2), ($3, $4)
		ON CONFLICT (key) DO NOTHING`,
		models.SettingTrialValue, strconv.Itoa(trial.Value),
		models.SettingTrialUnit, string(trial.Unit),
	)
	if err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM skeletons").Scan(&count); err != nil {
		return fmt.Errorf("seed check skeletons: %w", err)
	}
	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	if _, err := db.Exec(
		`INSERT INTO skeletons (name, html, approved) VALUES ($1, $2, TRUE)`,
		"Página única clássica", starterSkeleton,
	); err != nil {
		return fmt.Errorf("seed insert skeleton: %w", err)
	}

	slog.Info("database seeded", "trial_value", trial.Value, "trial_unit", trial.Unit)
	return nil
}
