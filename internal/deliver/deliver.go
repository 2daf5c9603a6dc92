// Package deliver hands finished PDFs to their destination: a directory,
// an S3 bucket or an HTTP response.
package deliver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"itinerary-pdf/internal/infra/logging"
)

// ContentTypePDF is the media type of every artifact.
const ContentTypePDF = "application/pdf"

// Artifact is a finished document ready for delivery.
type Artifact struct {
	Filename string
	Data     []byte
	Pages    int
}

// Saver delivers an artifact and returns where it ended up.
type Saver interface {
	Save(ctx context.Context, a Artifact) (location string, err error)
}

// SaverFunc adapts a function to Saver.
type SaverFunc func(ctx context.Context, a Artifact) (string, error)

// Save calls f.
func (f SaverFunc) Save(ctx context.Context, a Artifact) (string, error) { return f(ctx, a) }

// FileSaver writes artifacts into Dir.
type FileSaver struct {
	Dir string
}

// Save writes a to Dir/<filename> atomically.
func (s FileSaver) Save(_ context.Context, a Artifact) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.Dir, ".partial-*.pdf")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(a.Data); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	dst := filepath.Join(s.Dir, filepath.Base(a.Filename))
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", err
	}
	return dst, nil
}

// Tee delivers to Primary and then copies to Archive. Archive failures are
// logged and do not fail the delivery.
type Tee struct {
	Primary Saver
	Archive Saver
}

// Save delivers a.
func (t Tee) Save(ctx context.Context, a Artifact) (string, error) {
	loc, err := t.Primary.Save(ctx, a)
	if err != nil {
		return "", err
	}
	if t.Archive != nil {
		if aloc, aerr := t.Archive.Save(ctx, a); aerr != nil {
			logging.Warn("PDF archive upload failed", "filename", a.Filename, "error", aerr)
		} else {
			logging.Info("PDF archived", "filename", a.Filename, "location", aloc)
		}
	}
	return loc, nil
}
