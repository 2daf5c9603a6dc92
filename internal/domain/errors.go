package domain

import (
	"errors"
	"fmt"
)

// UserMessage is shown to the user whenever an export fails.
const UserMessage = "Failed to generate PDF. Please try again."

var (
	// ErrItineraryNotFound signals an unknown itinerary id.
	ErrItineraryNotFound = errors.New("itinerary not found")
	// ErrItemNotFound signals an unknown list entry (day, hotel, installment...).
	ErrItemNotFound = errors.New("item not found")
	// ErrExportInProgress is returned when an export for the same key is
	// already running. The second call is rejected, never queued.
	ErrExportInProgress = errors.New("export already in progress")
	// ErrInvalidLayout signals page geometry that leaves no content area.
	ErrInvalidLayout = errors.New("invalid page layout")
	// ErrDocumentTooLarge is returned when the assembled PDF exceeds the
	// configured size limit.
	ErrDocumentTooLarge = errors.New("document exceeds size limit")
	// ErrLayoutNotSettled is returned when fonts or images are still loading
	// after the settle bound. Capturing anyway is allowed.
	ErrLayoutNotSettled = errors.New("layout did not settle")
)

// TemplateNotFoundError is returned when the rendered document has no root
// marker after mounting. Nothing has been rasterized when it is returned.
type TemplateNotFoundError struct {
	Marker string
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("template root %q not found", e.Marker)
}

// RasterizationError wraps a failed capture of the mounted document.
type RasterizationError struct {
	Err error
}

func (e *RasterizationError) Error() string { return "rasterization failed: " + e.Err.Error() }
func (e *RasterizationError) Unwrap() error { return e.Err }

// AssemblyError wraps a failure while building the PDF document.
type AssemblyError struct {
	Err error
}

func (e *AssemblyError) Error() string { return "pdf assembly failed: " + e.Err.Error() }
func (e *AssemblyError) Unwrap() error { return e.Err }

// DownloadError wraps a failure to deliver a fully built document.
type DownloadError struct {
	Filename string
	Err      error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("delivering %s failed: %v", e.Filename, e.Err)
}
func (e *DownloadError) Unwrap() error { return e.Err }
