// Package raster captures a mounted document into one PNG image.
package raster

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"math"

	"itinerary-pdf/internal/domain"
	"itinerary-pdf/internal/render"
)

// DefaultScale is the oversampling factor applied to captures.
const DefaultScale = 2.0

// Box is an element's layout rectangle in CSS pixels.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Target is the part of a render surface the rasterizer needs.
type Target interface {
	// Measure reports the layout box of the element with the given id.
	// found is false when no such element exists.
	Measure(ctx context.Context, id string) (box Box, found bool, err error)
	// Capture returns a PNG of box rendered at scale device pixels per CSS
	// pixel.
	Capture(ctx context.Context, box Box, scale float64) ([]byte, error)
}

// Surface is an off-screen render target owned by one export at a time.
type Surface interface {
	Target
	// Mount loads doc, replacing anything mounted before.
	Mount(ctx context.Context, doc render.Document) error
	// AwaitLayout waits until fonts and images have settled. It returns
	// domain.ErrLayoutNotSettled when its bound elapses first.
	AwaitLayout(ctx context.Context) error
	// Unmount clears the surface. It must be safe to call after any failure.
	Unmount(ctx context.Context) error
}

// Image is a captured document. PixelWidth and PixelHeight are read from the
// PNG header, not derived from the requested box.
type Image struct {
	PixelWidth  int
	PixelHeight int
	Data        []byte
}

// Empty reports whether the capture produced no pixels.
func (img Image) Empty() bool { return len(img.Data) == 0 || img.PixelHeight == 0 }

// Rasterize captures the element marked rootID. It returns a
// *domain.TemplateNotFoundError, without capturing, when the element is
// missing and a *domain.RasterizationError when the capture fails.
func Rasterize(ctx context.Context, t Target, rootID string, scale float64) (Image, error) {
	if scale <= 0 {
		scale = DefaultScale
	}

	box, found, err := t.Measure(ctx, rootID)
	if err != nil {
		return Image{}, &domain.RasterizationError{Err: fmt.Errorf("measure #%s: %w", rootID, err)}
	}
	if !found {
		return Image{}, &domain.TemplateNotFoundError{Marker: rootID}
	}
	if box.Width <= 0 {
		return Image{}, &domain.RasterizationError{Err: fmt.Errorf("#%s has no width", rootID)}
	}
	if box.Height <= 0 {
		return Image{PixelWidth: int(math.Round(box.Width * scale))}, nil
	}

	data, err := t.Capture(ctx, box, scale)
	if err != nil {
		return Image{}, &domain.RasterizationError{Err: err}
	}

	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Image{}, &domain.RasterizationError{Err: fmt.Errorf("decode capture: %w", err)}
	}
	return Image{PixelWidth: cfg.Width, PixelHeight: cfg.Height, Data: data}, nil
}
