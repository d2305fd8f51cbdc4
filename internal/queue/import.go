// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package queue

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"sitefoundry/internal/models"
)

// MaxLeadFileSize caps a single JSON file inside an import archive.
const MaxLeadFileSize = 2 << 20

// ImportReport summarises an archive import.
type ImportReport struct {
	Leads   []models.Lead `json:"-"`
	Files   int           `json:"files"`
	Skipped int           `json:"skipped"`
}

// ImportZip reads every *.json file outside __MACOSX/ and keeps the
// objects that have a name. Unreadable or nameless files are skipped and
// counted; only an unreadable archive is an error.
func ImportZip(r io.ReaderAt, size int64) (ImportReport, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return ImportReport{}, fmt.Errorf("import zip: %w", err)
	}

	var rep ImportReport
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !isLeadFile(f.Name) {
			continue
		}
		rep.Files++
		lead, err := readLeadFile(f)
		if err != nil {
			slog.Debug("lead file skipped", "file", f.Name, "error", err)
			rep.Skipped++
			continue
		}
		rep.Leads = append(rep.Leads, lead)
	}
	return rep, nil
}

func isLeadFile(name string) bool {
	if strings.HasPrefix(name, "__MACOSX/") || strings.Contains(name, "/__MACOSX/") {
		return false
	}
	return strings.EqualFold(path.Ext(name), ".json")
}

func readLeadFile(f *zip.File) (models.Lead, error) {
	rc, err := f.Open()
	if err != nil {
		return models.Lead{}, err
	}
	defer rc.Close()

	b, err := io.ReadAll(io.LimitReader(rc, MaxLeadFileSize+1))
	if err != nil {
		return models.Lead{}, err
	}
	if len(b) > MaxLeadFileSize {
		return models.Lead{}, fmt.Errorf("file larger than %d bytes", MaxLeadFileSize)
	}
	var lead models.Lead
	if err := json.Unmarshal(b, &lead); err != nil {
		return models.Lead{}, err
	}
	if strings.TrimSpace(lead.Name) == "" {
		return models.Lead{}, fmt.Errorf("lead has no name")
	}
	return lead, nil
}

// ImportJSON accepts one lead object or an array of them. Entries without
// a name are skipped.
func ImportJSON(data []byte) ([]models.Lead, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("import json: empty document")
	}

	var leads []models.Lead
	if data[0] == '[' {
		if err := json.Unmarshal(data, &leads); err != nil {
			return nil, fmt.Errorf("import json: %w", err)
		}
	} else {
		var one models.Lead
		if err := json.Unmarshal(data, &one); err != nil {
			return nil, fmt.Errorf("import json: %w", err)
		}
		leads = []models.Lead{one}
	}

	out := leads[:0]
	for _, l := range leads {
		if strings.TrimSpace(l.Name) != "" {
			out = append(out, l)
		}
	}
	return out, nil
}
