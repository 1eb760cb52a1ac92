// Package imageproc pads and resizes source images before they are sent to
// the image model.
package imageproc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

var (
	ErrDecode      = errors.New("decode image")
	ErrInvalidSize = errors.New("invalid target size")
)

// DefaultDimension is used for a missing target width or height.
const DefaultDimension = 1024

// Resizer fits an image into a target canvas.
type Resizer interface {
	Resize(data []byte, mimeType string, width, height int) ([]byte, string, error)
}

// PadResizer scales an image to fit inside width x height, keeping its aspect
// ratio, and centres it on a solid background. JPEG, PNG and GIF inputs keep
// their format; anything else (WebP) is re-encoded as PNG.
type PadResizer struct {
	Background  color.Color
	JPEGQuality int
}

// NewPadResizer returns a PadResizer with a white background.
func NewPadResizer() *PadResizer {
	return &PadResizer{Background: color.White, JPEGQuality: 92}
}

func (r *PadResizer) Resize(data []byte, mimeType string, width, height int) ([]byte, string, error) {
	if width <= 0 || height <= 0 {
		return nil, "", fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}

	bg := r.Background
	if bg == nil {
		bg = color.White
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	draw.CatmullRom.Scale(dst, fitRect(src.Bounds(), width, height), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	switch format {
	case "jpeg":
		quality := r.JPEGQuality
		if quality <= 0 {
			quality = 92
		}
		if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
			return nil, "", fmt.Errorf("encode jpeg: %w", err)
		}
		return buf.Bytes(), "image/jpeg", nil
	case "gif":
		if err := gif.Encode(&buf, dst, nil); err != nil {
			return nil, "", fmt.Errorf("encode gif: %w", err)
		}
		return buf.Bytes(), "image/gif", nil
	default:
		if err := png.Encode(&buf, dst); err != nil {
			return nil, "", fmt.Errorf("encode png: %w", err)
		}
		return buf.Bytes(), "image/png", nil
	}
}

// fitRect returns the largest rectangle with src's aspect ratio that fits
// inside a width x height canvas, centred.
func fitRect(src image.Rectangle, width, height int) image.Rectangle {
	sw, sh := src.Dx(), src.Dy()
	if sw == 0 || sh == 0 {
		return image.Rect(0, 0, width, height)
	}

	w, h := width, sh*width/sw
	if h > height {
		w, h = sw*height/sh, height
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	x := (width - w) / 2
	y := (height - h) / 2
	return image.Rect(x, y, x+w, y+h)
}

// Compile-time check that PadResizer implements Resizer.
var _ Resizer = (*PadResizer)(nil)
