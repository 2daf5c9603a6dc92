// Package assemble builds the PDF from a paginated capture.
package assemble

import (
	"bytes"
	"errors"
	"time"

	"github.com/go-pdf/fpdf"

	"itinerary-pdf/internal/domain"
	"itinerary-pdf/internal/paginate"
	"itinerary-pdf/internal/raster"
)

const imageName = "itinerary-capture"

// Metadata is written into the PDF info dictionary.
type Metadata struct {
	Title     string
	Creator   string
	CreatedAt time.Time
}

// Document is an assembled PDF.
type Document struct {
	Data  []byte
	Pages int
}

// Assemble draws img once per placement of plan, clipped to each page's
// content band. Failures are returned as *domain.AssemblyError.
func Assemble(plan paginate.Plan, img raster.Image, meta Metadata) (Document, error) {
	l := plan.Layout
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: l.PageWidth, Ht: l.PageHeight},
	})
	pdf.SetMargins(l.Margin, l.Margin, l.Margin)
	pdf.SetAutoPageBreak(false, 0)
	if meta.Title != "" {
		pdf.SetTitle(meta.Title, true)
	}
	if meta.Creator != "" {
		pdf.SetCreator(meta.Creator, true)
	}
	if !meta.CreatedAt.IsZero() {
		pdf.SetCreationDate(meta.CreatedAt)
		pdf.SetModificationDate(meta.CreatedAt)
	}

	opts := fpdf.ImageOptions{ImageType: "PNG", AllowNegativePosition: true}
	if !img.Empty() {
		pdf.RegisterImageOptionsReader(imageName, opts, bytes.NewReader(img.Data))
		if pdf.Err() {
			return Document{}, &domain.AssemblyError{Err: pdf.Error()}
		}
	}

	for pl := range plan.Placements() {
		pdf.AddPage()
		if img.Empty() {
			continue
		}
		pdf.ClipRect(l.Margin, l.Margin, l.ContentWidth(), l.ContentHeight(), false)
		pdf.ImageOptions(imageName, l.Margin, pl.Offset, plan.ImageWidth, plan.ImageHeight, false, opts, 0, "")
		pdf.ClipEnd()
	}
	if pdf.Err() {
		return Document{}, &domain.AssemblyError{Err: pdf.Error()}
	}
	if pdf.PageCount() != plan.PageCount {
		return Document{}, &domain.AssemblyError{Err: errors.New("page count does not match plan")}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return Document{}, &domain.AssemblyError{Err: err}
	}
	return Document{Data: buf.Bytes(), Pages: plan.PageCount}, nil
}
