package export

import (
	"fmt"
	"time"

	"itinerary-pdf/internal/config"
	"itinerary-pdf/internal/paginate"
	"itinerary-pdf/internal/render"
)

// LayoutFor returns the page layout for a paper format and orientation.
// Empty values select the configured defaults.
func LayoutFor(cfg config.Config, format, orientation string) (paginate.Layout, error) {
	paper, ok := cfg.Paper(format, orientation)
	if !ok {
		return paginate.Layout{}, fmt.Errorf("paper format %q not configured", format)
	}
	layout := paginate.Layout{PageWidth: paper.Width, PageHeight: paper.Height, Margin: cfg.PDF.MarginMM}
	if err := layout.Validate(); err != nil {
		return paginate.Layout{}, err
	}
	return layout, nil
}

// OptionsFromConfig builds exporter options from the service configuration.
func OptionsFromConfig(cfg config.Config) (Options, error) {
	layout, err := LayoutFor(cfg, "", "")
	if err != nil {
		return Options{}, err
	}
	return Options{
		Layout:   layout,
		Render:   RenderOptions(cfg),
		Scale:    cfg.Export.Scale,
		Timeout:  time.Duration(cfg.PDF.TimeoutSecs) * time.Second,
		MaxBytes: cfg.Limits.MaxPDFBytes,
	}, nil
}

// RenderOptions returns the template options of cfg.
func RenderOptions(cfg config.Config) render.Options {
	return render.Options{
		Width:           cfg.Export.TemplateWidth,
		DefaultCurrency: cfg.Export.DefaultCurrency,
		LogoURL:         cfg.Export.LogoURL,
		BrandName:       cfg.Export.BrandName,
		BrandTagline:    cfg.Export.BrandTagline,
		ContactEmail:    cfg.Export.ContactEmail,
		ContactPhone:    cfg.Export.ContactPhone,
	}
}
