// Package paginate computes how one tall raster image is spread across fixed
// size pages. Every page shows the same full image shifted up by one content
// band, and the page's content band acts as the clip mask.
package paginate

import (
	"fmt"
	"iter"
	"math"

	"itinerary-pdf/internal/domain"
)

// ceilSlack absorbs float noise so an image exactly n bands tall stays at n
// pages.
const ceilSlack = 1e-9

// Layout is a page size and uniform margin in the same unit (mm).
type Layout struct {
	PageWidth  float64
	PageHeight float64
	Margin     float64
}

// A4 is the default portrait layout with 10mm margins.
func A4() Layout {
	return Layout{PageWidth: 210, PageHeight: 297, Margin: 10}
}

// ContentWidth is the page width minus both margins.
func (l Layout) ContentWidth() float64 { return l.PageWidth - 2*l.Margin }

// ContentHeight is the page height minus both margins.
func (l Layout) ContentHeight() float64 { return l.PageHeight - 2*l.Margin }

// Validate rejects layouts whose margins leave no content band.
func (l Layout) Validate() error {
	switch {
	case l.Margin < 0:
		return fmt.Errorf("%w: negative margin %.2f", domain.ErrInvalidLayout, l.Margin)
	case l.ContentWidth() <= 0:
		return fmt.Errorf("%w: margin %.2f too wide for page width %.2f", domain.ErrInvalidLayout, l.Margin, l.PageWidth)
	case l.ContentHeight() <= 0:
		return fmt.Errorf("%w: margin %.2f too tall for page height %.2f", domain.ErrInvalidLayout, l.Margin, l.PageHeight)
	}
	return nil
}

// Placement positions the image on one page. Offset is the y coordinate of
// the image's top edge on that page.
type Placement struct {
	PageIndex int     `json:"pageIndex"`
	Offset    float64 `json:"verticalOffset"`
}

// Plan is the pagination of one image on one layout.
type Plan struct {
	Layout Layout
	// ImageWidth and ImageHeight are the drawn size of the image in layout
	// units. The width always equals the content width.
	ImageWidth  float64
	ImageHeight float64
	PageCount   int
}

// New paginates an image of pixelWidth x pixelHeight. The image is scaled
// uniformly to the content width. A zero sized image yields one empty page.
func New(layout Layout, pixelWidth, pixelHeight int) (Plan, error) {
	if err := layout.Validate(); err != nil {
		return Plan{}, err
	}
	if pixelWidth < 0 || pixelHeight < 0 {
		return Plan{}, fmt.Errorf("%w: negative image size %dx%d", domain.ErrInvalidLayout, pixelWidth, pixelHeight)
	}

	contentW := layout.ContentWidth()
	var scaled float64
	if pixelWidth > 0 {
		scaled = float64(pixelHeight) * contentW / float64(pixelWidth)
	}

	pages := int(math.Ceil(scaled/layout.ContentHeight() - ceilSlack))
	if pages < 1 {
		pages = 1
	}

	return Plan{
		Layout:      layout,
		ImageWidth:  contentW,
		ImageHeight: scaled,
		PageCount:   pages,
	}, nil
}

// Offset returns the image's top edge on page i.
func (p Plan) Offset(i int) float64 {
	return p.Layout.Margin - float64(i)*p.Layout.ContentHeight()
}

// VisibleSpan is the height of image content shown on page i.
func (p Plan) VisibleSpan(i int) float64 {
	if i < 0 || i >= p.PageCount {
		return 0
	}
	band := p.Layout.ContentHeight()
	rest := p.ImageHeight - float64(i)*band
	return max(0, min(band, rest))
}

// Placements yields one placement per page in page order.
func (p Plan) Placements() iter.Seq[Placement] {
	return func(yield func(Placement) bool) {
		for i := range p.PageCount {
			if !yield(Placement{PageIndex: i, Offset: p.Offset(i)}) {
				return
			}
		}
	}
}
