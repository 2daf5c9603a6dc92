package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"itinerary-pdf/internal/config"
	"itinerary-pdf/internal/deliver"
	"itinerary-pdf/internal/domain"
	"itinerary-pdf/internal/export"
	"itinerary-pdf/internal/infra/chrome"
	"itinerary-pdf/internal/infra/logging"
	"itinerary-pdf/internal/render"
	"itinerary-pdf/internal/store"
)

// StatsSource reports Chrome pool usage.
type StatsSource interface {
	Stats() (chrome.Stats, error)
}

// PDFService bundles the dependencies of the export endpoints.
type PDFService struct {
	Config   config.Config
	Registry *store.Registry
	Exporter *export.Exporter
	Chrome   StatsSource
	// Archive optionally receives a copy of every generated PDF.
	Archive deliver.Saver
}

// attachment delivers an artifact as the response body of c.
func attachment(c *fiber.Ctx) deliver.Saver {
	return deliver.SaverFunc(func(_ context.Context, a deliver.Artifact) (string, error) {
		c.Set(fiber.HeaderContentType, deliver.ContentTypePDF)
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+a.Filename+`"`)
		c.Set("X-Page-Count", strconv.Itoa(a.Pages))
		return "", c.Send(a.Data)
	})
}

func (svc *PDFService) saver(c *fiber.Ctx) deliver.Saver {
	if svc.Archive == nil {
		return attachment(c)
	}
	return deliver.Tee{Primary: attachment(c), Archive: svc.Archive}
}

// exporterFor applies the optional format and orientation query parameters.
func (svc *PDFService) exporterFor(c *fiber.Ctx) (*export.Exporter, error) {
	format := strings.ToUpper(c.Query("format"))
	if format != "" {
		if _, ok := svc.Config.PDF.PaperSizes[format]; !ok {
			return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid format: not supported")
		}
	}
	orientation := strings.ToLower(c.Query("orientation"))
	if orientation != "" && orientation != "portrait" && orientation != "landscape" {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid orientation: must be 'portrait' or 'landscape'")
	}
	if format == "" && orientation == "" {
		return svc.Exporter, nil
	}

	layout, err := export.LayoutFor(svc.Config, format, orientation)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return svc.Exporter.WithLayout(layout), nil
}

func (svc *PDFService) generate(c *fiber.Ctx, key string, snap domain.Snapshot) error {
	exp, err := svc.exporterFor(c)
	if err != nil {
		return err
	}
	res, err := exp.Generate(c.UserContext(), key, snap, svc.saver(c))
	if err != nil {
		return exportError(err)
	}
	logging.Info("PDF delivered", "key", key, "filename", res.Filename, "pages", res.PageCount,
		"request_id", c.GetRespHeader(fiber.HeaderXRequestID))
	return nil
}

// HandleExport renders the stored itinerary :id and returns it as a PDF
// attachment.
func (svc *PDFService) HandleExport(c *fiber.Ctx) error {
	id := itineraryID(c)
	s, err := svc.Registry.Get(c.UserContext(), id)
	if err != nil {
		return toFiberError(err)
	}
	return svc.generate(c, id, s.ExportData())
}

// HandleInlineExport renders the snapshot posted as the JSON body.
// Identical bodies share one in-flight guard key.
func (svc *PDFService) HandleInlineExport(c *fiber.Ctx) error {
	body := c.Body()
	if limit := svc.Config.Limits.MaxSnapshotBytes; limit > 0 && len(body) > limit {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, fmt.Sprintf("Snapshot exceeds %d bytes", limit))
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid JSON body: "+err.Error())
	}
	sum := sha256.Sum256(body)
	return svc.generate(c, "inline:"+hex.EncodeToString(sum[:]), snap)
}

// HandlePreview returns the HTML the exporter would rasterize for :id.
func (svc *PDFService) HandlePreview(c *fiber.Ctx) error {
	s, err := svc.Registry.Get(c.UserContext(), itineraryID(c))
	if err != nil {
		return toFiberError(err)
	}
	doc, err := render.Render(s.ExportData(), export.RenderOptions(svc.Config))
	if err != nil {
		logging.Error("Template render failed", "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, domain.UserMessage)
	}
	c.Type("html", "utf-8")
	return c.SendString(doc.HTML)
}

// HandleChromeStats reports Chrome pool capacity and usage.
func (svc *PDFService) HandleChromeStats(c *fiber.Ctx) error {
	if svc.Chrome == nil {
		return c.JSON(chrome.Stats{})
	}
	stats, err := svc.Chrome.Stats()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Chrome pool init failed: "+err.Error())
	}
	return c.JSON(stats)
}
