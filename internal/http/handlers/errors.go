package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"itinerary-pdf/internal/domain"
	"itinerary-pdf/internal/infra/chrome"
	"itinerary-pdf/internal/infra/logging"
)

// toFiberError maps store errors to HTTP statuses.
func toFiberError(err error) error {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe
	case errors.Is(err, domain.ErrItineraryNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Itinerary not found")
	case errors.Is(err, domain.ErrItemNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Item not found")
	}
	logging.Error("Request failed", "error", err)
	return fiber.NewError(fiber.StatusInternalServerError, "Internal Server Error")
}

// statusClientClosedRequest is the nginx status for a caller that hung up.
const statusClientClosedRequest = 499

// exportError maps export pipeline errors to HTTP statuses. Pipeline
// failures all carry the same user-facing message.
func exportError(err error) error {
	switch {
	case errors.Is(err, domain.ErrExportInProgress):
		return fiber.NewError(fiber.StatusConflict, "A PDF export for this itinerary is already running")
	case errors.Is(err, domain.ErrDocumentTooLarge):
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, "PDF exceeds allowed size")
	case errors.Is(err, context.Canceled):
		return fiber.NewError(statusClientClosedRequest, "PDF export canceled")
	case errors.Is(err, chrome.ErrNoFreeTab):
		return fiber.NewError(fiber.StatusServiceUnavailable, "All render tabs are busy, retry shortly")
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.NewError(fiber.StatusRequestTimeout, "PDF rendering took too long")
	case chrome.IsSessionInterrupted(err):
		return fiber.NewError(fiber.StatusServiceUnavailable, "Chrome session interrupted")
	case errors.Is(err, domain.ErrItineraryNotFound), errors.Is(err, domain.ErrItemNotFound):
		return toFiberError(err)
	}
	return fiber.NewError(fiber.StatusInternalServerError, domain.UserMessage)
}
