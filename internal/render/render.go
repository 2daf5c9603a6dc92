// Package render turns an itinerary snapshot into the printable HTML
// document that the export pipeline rasterizes.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"itinerary-pdf/internal/domain"
)

// RootID marks the element that is captured. The rasterizer fails when it
// cannot find it.
const RootID = "itinerary-pdf-root"

// DefaultWidth is the logical width of the document in CSS pixels.
const DefaultWidth = 800

//go:embed templates/*.html
var templateFS embed.FS

var itineraryTmpl = template.Must(
	template.New("itinerary.html").Funcs(funcMap).ParseFS(templateFS, "templates/itinerary.html"),
)

// Options controls the parts of the document that do not come from the
// snapshot.
type Options struct {
	Width           int
	DefaultCurrency string
	// Now is the render clock; it stamps the document and synthesizes a
	// missing tour code.
	Now          func() time.Time
	LogoURL      string
	BrandName    string
	BrandTagline string
	ContactEmail string
	ContactPhone string
}

// Document is a rendered, self-contained HTML page.
type Document struct {
	HTML     string
	Width    int
	TourCode string
}

type brand struct {
	Name    string
	Tagline string
	LogoURL string
	Email   string
	Phone   string
}

type view struct {
	Root           string
	Width          int
	Brand          brand
	TourCode       string
	Generated      string
	Overview       domain.TourOverview
	Highlights     []string
	Days           []domain.DayItinerary
	Hotels         []domain.Hotel
	Plan           *domain.PaymentPlan
	Inclusions     []domain.Inclusion
	Exclusions     []domain.Inclusion
	Notes          []domain.Note
	TransferPolicy string
}

// Render builds the document for snap. It has no side effects; the snapshot
// is only read.
func Render(snap domain.Snapshot, opts Options) (Document, error) {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	at := now()

	tourCode := strings.TrimSpace(snap.TourOverview.TourCode)
	if tourCode == "" {
		tourCode = fmt.Sprintf("VGV-%d", at.UnixMilli())
	}

	planCurrency := currencyCode(snap.PaymentPlan.Currency, opts.DefaultCurrency)

	v := view{
		Root:  RootID,
		Width: opts.Width,
		Brand: brand{
			Name:    opts.BrandName,
			Tagline: opts.BrandTagline,
			LogoURL: opts.LogoURL,
			Email:   opts.ContactEmail,
			Phone:   opts.ContactPhone,
		},
		TourCode:       tourCode,
		Generated:      at.Format("January 2, 2006"),
		Overview:       snap.TourOverview,
		Highlights:     nonEmpty(snap.TourOverview.Highlights),
		Days:           snap.DailyItinerary,
		Hotels:         namedHotels(snap.Hotels, planCurrency),
		Inclusions:     withDetails(snap.InclusionsExclusions.Inclusions),
		Exclusions:     withDetails(snap.InclusionsExclusions.Exclusions),
		Notes:          snap.InclusionsExclusions.ImportantNotes,
		TransferPolicy: strings.TrimSpace(snap.InclusionsExclusions.TransferPolicy),
	}

	if hasPaymentPlan(snap.PaymentPlan) {
		plan := snap.PaymentPlan
		plan.Currency = planCurrency
		v.Plan = &plan
	}

	var buf bytes.Buffer
	if err := itineraryTmpl.Execute(&buf, v); err != nil {
		return Document{}, fmt.Errorf("render itinerary: %w", err)
	}
	return Document{HTML: buf.String(), Width: opts.Width, TourCode: tourCode}, nil
}

func hasPaymentPlan(p domain.PaymentPlan) bool {
	return p.TotalAmount.GreaterThan(decimal.Zero) || len(p.Installments) > 0
}

func nonEmpty(items []string) []string {
	var out []string
	for _, s := range items {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// namedHotels drops hotels without a name. Hotels without their own currency
// are priced in the plan currency.
func namedHotels(hotels []domain.Hotel, fallback string) []domain.Hotel {
	var out []domain.Hotel
	for _, h := range hotels {
		if strings.TrimSpace(h.Name) == "" {
			continue
		}
		h.Currency = currencyCode(h.Currency, fallback)
		out = append(out, h)
	}
	return out
}

func withDetails(items []domain.Inclusion) []domain.Inclusion {
	var out []domain.Inclusion
	for _, it := range items {
		if strings.TrimSpace(it.Details) != "" {
			out = append(out, it)
		}
	}
	return out
}
