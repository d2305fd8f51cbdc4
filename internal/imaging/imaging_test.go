// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestFit(t *testing.T) {
	opaque := color.NRGBA{R: 200, G: 80, B: 20, A: 255}
	translucent := color.NRGBA{R: 200, G: 80, B: 20, A: 100}

	tests := []struct {
		name     string
		data     []byte
		maxWidth int
		wantType string
		wantW    int
		wantH    int
	}{
		{"downscales wide opaque image to jpeg", encodePNG(t, 400, 200, opaque), 100, "image/jpeg", 100, 50},
		{"keeps small image size", encodePNG(t, 60, 30, opaque), 100, "image/jpeg", 60, 30},
		{"transparent image stays png", encodePNG(t, 300, 300, translucent), 150, "image/png", 150, 150},
		{"default max width", encodePNG(t, 40, 20, opaque), 0, "image/jpeg", 40, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Fit(tt.data, tt.maxWidth)
			if err != nil {
				t.Fatalf("Fit: %v", err)
			}
			if res.ContentType != tt.wantType {
				t.Errorf("ContentType = %q, want %q", res.ContentType, tt.wantType)
			}
			if res.Width != tt.wantW || res.Height != tt.wantH {
				t.Errorf("size = %dx%d, want %dx%d", res.Width, res.Height, tt.wantW, tt.wantH)
			}

			var decoded image.Image
			if tt.wantType == "image/jpeg" {
				decoded, err = jpeg.Decode(bytes.NewReader(res.Data))
			} else {
				decoded, err = png.Decode(bytes.NewReader(res.Data))
			}
			if err != nil {
				t.Fatalf("output does not decode as %s: %v", tt.wantType, err)
			}
			if decoded.Bounds().Dx() != tt.wantW {
				t.Errorf("decoded width = %d, want %d", decoded.Bounds().Dx(), tt.wantW)
			}
		})
	}
}

func TestFitExtension(t *testing.T) {
	res, err := Fit(encodePNG(t, 10, 10, color.Black), 0)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if res.Ext != "jpg" {
		t.Errorf("Ext = %q, want jpg", res.Ext)
	}
}

func TestFitUnsupported(t *testing.T) {
	_, err := Fit([]byte("definitely not an image"), 100)
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
}
