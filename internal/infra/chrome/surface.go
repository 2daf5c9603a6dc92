package chrome

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"itinerary-pdf/internal/domain"
	"itinerary-pdf/internal/raster"
	"itinerary-pdf/internal/render"
)

// viewportHeight only bounds the initial layout; captures go beyond it.
const viewportHeight = 1000

const readyScript = `(() => {
	if (document.readyState !== 'complete') return false;
	if (document.fonts && document.fonts.status !== 'loaded') return false;
	return Array.from(document.images).every(img => img.complete);
})()`

// SurfaceOptions bounds the layout settle poll.
type SurfaceOptions struct {
	SettleTimeout  time.Duration
	SettleInterval time.Duration
}

// Surface is a render target backed by one Chrome tab.
type Surface struct {
	tabCtx  context.Context
	opts    SurfaceOptions
	gen     int
	release func(error)
}

var _ raster.Surface = (*Surface)(nil)

// NewSurface wraps a chromedp tab context.
func NewSurface(tabCtx context.Context, opts SurfaceOptions) *Surface {
	if opts.SettleTimeout <= 0 {
		opts.SettleTimeout = 1500 * time.Millisecond
	}
	if opts.SettleInterval <= 0 {
		opts.SettleInterval = 50 * time.Millisecond
	}
	return &Surface{tabCtx: tabCtx, opts: opts}
}

// run executes actions in the tab, aborting when ctx is done.
func (s *Surface) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.tabCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ctx.Err(), err)
	}
	return &TabError{Generation: s.gen, Err: err}
}

// Mount loads doc into the tab at the document's width.
func (s *Surface) Mount(ctx context.Context, doc render.Document) error {
	width := doc.Width
	if width <= 0 {
		width = render.DefaultWidth
	}
	return s.run(ctx,
		emulation.SetDeviceMetricsOverride(int64(width), viewportHeight, 1, false),
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frame, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frame.Frame.ID, doc.HTML).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// AwaitLayout polls until web fonts and images have finished loading or the
// settle timeout elapses. Broken images count as loaded.
func (s *Surface) AwaitLayout(ctx context.Context) error {
	deadline := time.Now().Add(s.opts.SettleTimeout)
	for {
		var ready bool
		if err := s.run(ctx, chromedp.Evaluate(readyScript, &ready)); err != nil {
			return err
		}
		if ready {
			return nil
		}
		if time.Now().After(deadline) {
			return domain.ErrLayoutNotSettled
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.opts.SettleInterval):
		}
	}
}

type measurement struct {
	Found bool `json:"found"`
	raster.Box
}

func measureScript(id string) string {
	quoted, _ := json.Marshal(id)
	return fmt.Sprintf(`(() => {
	const el = document.getElementById(%s);
	if (!el) return {found: false};
	const r = el.getBoundingClientRect();
	return {
		found: true,
		x: r.left + window.scrollX,
		y: r.top + window.scrollY,
		width: r.width,
		height: Math.max(r.height, el.scrollHeight)
	};
})()`, quoted)
}

// Measure locates the element with id and returns its document box.
func (s *Surface) Measure(ctx context.Context, id string) (raster.Box, bool, error) {
	var m measurement
	if err := s.run(ctx, chromedp.Evaluate(measureScript(id), &m)); err != nil {
		return raster.Box{}, false, err
	}
	return m.Box, m.Found, nil
}

// Capture screenshots box at scale device pixels per CSS pixel.
func (s *Surface) Capture(ctx context.Context, box raster.Box, scale float64) ([]byte, error) {
	var buf []byte
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatPng).
			WithCaptureBeyondViewport(true).
			WithFromSurface(true).
			WithClip(&page.Viewport{
				X:      box.X,
				Y:      box.Y,
				Width:  box.Width,
				Height: box.Height,
				Scale:  scale,
			}).
			Do(ctx)
		return err
	}))
	return buf, err
}

// Unmount blanks the tab. It ignores ctx cancellation so cleanup still runs
// after a failed or canceled export.
func (s *Surface) Unmount(context.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.run(ctx,
		chromedp.Navigate("about:blank"),
		emulation.ClearDeviceMetricsOverride(),
	)
}
