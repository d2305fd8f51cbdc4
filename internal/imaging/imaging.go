// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package imaging normalises images uploaded as overrides before they go
// to object storage: anything wider than the site layout needs is scaled
// down, and the result is re-encoded so EXIF and other metadata are gone.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register decoder
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register decoder
)

// MaxUploadSize bounds an uploaded override image.
const MaxUploadSize = 10 << 20

// DefaultMaxWidth covers a full-bleed hero on a desktop layout.
const DefaultMaxWidth = 1920

// jpegQuality is used for opaque images.
const jpegQuality = 82

// ErrUnsupported is returned for bytes no registered decoder understands.
var ErrUnsupported = errors.New("imaging: unsupported image format")

// Result is an encoded image ready for upload.
type Result struct {
	Data        []byte
	ContentType string
	Ext         string
	Width       int
	Height      int
}

// Fit decodes data, scales it down to maxWidth keeping the aspect ratio
// (never up) and re-encodes it. Opaque images become JPEG; images with
// transparency stay PNG. maxWidth <= 0 means DefaultMaxWidth.
func Fit(data []byte, maxWidth int) (*Result, error) {
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, ErrUnsupported
		}
		return nil, fmt.Errorf("imaging: decode: %w", err)
	}

	img := src
	b := src.Bounds()
	if b.Dx() > maxWidth {
		h := b.Dy() * maxWidth / b.Dx()
		if h < 1 {
			h = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
		img = dst
	}

	var buf bytes.Buffer
	res := &Result{Width: img.Bounds().Dx(), Height: img.Bounds().Dy()}
	if hasAlpha(src) {
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("imaging: encode png: %w", err)
		}
		res.ContentType, res.Ext = "image/png", "png"
	} else {
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, fmt.Errorf("imaging: encode jpeg: %w", err)
		}
		res.ContentType, res.Ext = "image/jpeg", "jpg"
	}
	res.Data = buf.Bytes()
	return res, nil
}

// hasAlpha reports whether any pixel is not fully opaque.
func hasAlpha(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return true
			}
		}
	}
	return false
}
