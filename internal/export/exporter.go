// Package export runs the itinerary PDF pipeline: render the template,
// mount it on an off-screen surface, rasterize, paginate, assemble and
// deliver.
package export

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"itinerary-pdf/internal/assemble"
	"itinerary-pdf/internal/deliver"
	"itinerary-pdf/internal/domain"
	"itinerary-pdf/internal/infra/logging"
	"itinerary-pdf/internal/paginate"
	"itinerary-pdf/internal/raster"
	"itinerary-pdf/internal/render"
)

// SurfaceProvider lends render surfaces to one export at a time.
type SurfaceProvider interface {
	Acquire(ctx context.Context) (raster.Surface, error)
	Release(s raster.Surface, err error)
}

// Recoverer is implemented by providers that can repair themselves after a
// failed capture. Recover reports whether one more attempt is worthwhile.
type Recoverer interface {
	Recover(err error) bool
}

// Options configures an Exporter.
type Options struct {
	Layout paginate.Layout
	Render render.Options
	// Scale is the capture oversampling factor.
	Scale float64
	// Timeout bounds a whole run. Zero means no bound beyond ctx.
	Timeout time.Duration
	// MaxBytes rejects larger documents. Zero means unlimited.
	MaxBytes     int
	Creator      string
	Now          func() time.Time
	OnTransition TransitionFunc
}

// Result describes a delivered export.
type Result struct {
	Filename   string               `json:"filename"`
	Location   string               `json:"location,omitempty"`
	PageCount  int                  `json:"pageCount"`
	Placements []paginate.Placement `json:"placements"`
	TourCode   string               `json:"tourCode"`
	Bytes      int                  `json:"bytes"`
}

// Exporter generates PDFs. It is safe for concurrent use; runs for the same
// key are rejected while one is in flight.
type Exporter struct {
	provider SurfaceProvider
	guards   []Guard
	opts     Options
}

// New returns an Exporter. guards are consulted in order; a LocalGuard is
// always consulted first.
func New(provider SurfaceProvider, opts Options, guards ...Guard) *Exporter {
	if opts.Layout == (paginate.Layout{}) {
		opts.Layout = paginate.A4()
	}
	if opts.Scale <= 0 {
		opts.Scale = raster.DefaultScale
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Creator == "" {
		opts.Creator = "itinerary-pdf"
	}
	return &Exporter{
		provider: provider,
		guards:   append([]Guard{NewLocalGuard()}, guards...),
		opts:     opts,
	}
}

// WithLayout returns an Exporter that places pages on layout. It shares the
// provider and guards of e, so in-flight keys stay exclusive across both.
func (e *Exporter) WithLayout(layout paginate.Layout) *Exporter {
	out := *e
	out.opts.Layout = layout
	return &out
}

// run tracks the state of one Generate call.
type run struct {
	key   string
	state State
	hook  TransitionFunc
}

func (r *run) to(next State) {
	prev := r.state
	r.state = next
	logging.Debug("PDF export state", "key", r.key, "from", prev.String(), "to", next.String())
	if r.hook != nil {
		r.hook(r.key, prev, next)
	}
}

func (r *run) fail(err error) error {
	logging.Error("PDF export failed", "key", r.key, "state", r.state.String(), "error", err)
	r.to(Failed)
	return err
}

// Generate exports snap and hands the PDF to saver. key identifies the
// export for the in-flight guard, usually the itinerary id.
//
// Errors are *domain.TemplateNotFoundError, *domain.RasterizationError,
// *domain.AssemblyError, *domain.DownloadError, domain.ErrExportInProgress
// or a context error. The render surface is always released before
// Generate returns.
func (e *Exporter) Generate(ctx context.Context, key string, snap domain.Snapshot, saver deliver.Saver) (*Result, error) {
	release, err := acquireAll(ctx, e.guards, key)
	if err != nil {
		return nil, err
	}
	defer release()

	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	r := &run{key: key, state: Idle, hook: e.opts.OnTransition}
	snap = snap.Clone()
	now := e.opts.Now()

	renderOpts := e.opts.Render
	renderOpts.Now = func() time.Time { return now }

	r.to(Mounting)
	doc, err := render.Render(snap, renderOpts)
	if err != nil {
		return nil, r.fail(err)
	}

	img, err := e.capture(ctx, r, doc)
	if err != nil && ctx.Err() == nil {
		if rec, ok := e.provider.(Recoverer); ok && rec.Recover(err) {
			r.to(Mounting)
			img, err = e.capture(ctx, r, doc)
		}
	}
	if err != nil {
		return nil, r.fail(err)
	}

	r.to(Paginating)
	plan, err := paginate.New(e.opts.Layout, img.PixelWidth, img.PixelHeight)
	if err != nil {
		return nil, r.fail(&domain.AssemblyError{Err: err})
	}
	placements := slices.Collect(plan.Placements())

	r.to(Assembling)
	pdf, err := assemble.Assemble(plan, img, assemble.Metadata{
		Title:     snap.TourOverview.TripTitle,
		Creator:   e.opts.Creator,
		CreatedAt: now,
	})
	if err != nil {
		return nil, r.fail(err)
	}
	if e.opts.MaxBytes > 0 && len(pdf.Data) > e.opts.MaxBytes {
		return nil, r.fail(&domain.AssemblyError{
			Err: fmt.Errorf("%w: %d > %d bytes", domain.ErrDocumentTooLarge, len(pdf.Data), e.opts.MaxBytes),
		})
	}

	r.to(Downloading)
	name := Filename(snap.TourOverview.TripTitle, now)
	loc, err := saver.Save(ctx, deliver.Artifact{Filename: name, Data: pdf.Data, Pages: pdf.Pages})
	if err != nil {
		return nil, r.fail(&domain.DownloadError{Filename: name, Err: err})
	}

	r.to(Idle)
	logging.Info("PDF generated", "key", key, "filename", name, "pages", pdf.Pages, "bytes", len(pdf.Data))
	return &Result{
		Filename:   name,
		Location:   loc,
		PageCount:  pdf.Pages,
		Placements: placements,
		TourCode:   doc.TourCode,
		Bytes:      len(pdf.Data),
	}, nil
}

// capture mounts doc on a borrowed surface and rasterizes it. The surface is
// unmounted and released on every path.
func (e *Exporter) capture(ctx context.Context, r *run, doc render.Document) (img raster.Image, err error) {
	surface, err := e.provider.Acquire(ctx)
	if err != nil {
		return raster.Image{}, fmt.Errorf("acquire render surface: %w", err)
	}
	defer func() {
		if uerr := surface.Unmount(ctx); uerr != nil {
			logging.Warn("Unmount failed", "key", r.key, "error", uerr)
		}
		e.provider.Release(surface, err)
	}()

	if err := surface.Mount(ctx, doc); err != nil {
		return raster.Image{}, fmt.Errorf("mount template: %w", err)
	}

	r.to(AwaitingLayout)
	if err := surface.AwaitLayout(ctx); err != nil {
		if !errors.Is(err, domain.ErrLayoutNotSettled) {
			return raster.Image{}, fmt.Errorf("await layout: %w", err)
		}
		logging.Warn("Layout did not settle in time; capturing anyway", "key", r.key)
	}

	r.to(Rasterizing)
	return raster.Rasterize(ctx, surface, render.RootID, e.opts.Scale)
}
