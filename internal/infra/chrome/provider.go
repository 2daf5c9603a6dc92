package chrome

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"itinerary-pdf/internal/config"
	"itinerary-pdf/internal/infra/logging"
	"itinerary-pdf/internal/raster"
)

const acquireTimeout = 5 * time.Second

// Provider hands out render surfaces. With a positive chrome_pool_size it
// uses a shared Pool, otherwise it starts one browser per surface.
type Provider struct {
	cfg  config.Config
	opts SurfaceOptions

	mu   sync.Mutex
	pool *Pool
}

// NewProvider returns a provider; the pool is created on first use.
func NewProvider(cfg config.Config) *Provider {
	return &Provider{
		cfg: cfg,
		opts: SurfaceOptions{
			SettleTimeout:  cfg.Export.SettleTimeout,
			SettleInterval: cfg.Export.SettleInterval,
		},
	}
}

// Pool returns the shared pool, or nil when pooling is disabled.
func (p *Provider) Pool() (*Pool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cfg.PDF.ChromePoolSize <= 0 {
		return nil, nil
	}
	if p.pool != nil {
		return p.pool, nil
	}
	pool, err := NewPool(p.cfg)
	if err != nil {
		return nil, err
	}
	p.pool = pool
	return p.pool, nil
}

// Acquire returns a surface for exclusive use until Release.
func (p *Provider) Acquire(ctx context.Context) (raster.Surface, error) {
	pool, err := p.Pool()
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return p.standalone()
	}

	acquireCtx, cancel := context.WithTimeout(ctx, acquireTimeout)
	defer cancel()
	tab, err := pool.Acquire(acquireCtx)
	if err != nil {
		return nil, fmt.Errorf("acquire chrome tab: %w", err)
	}

	s := NewSurface(tab.Ctx, p.opts)
	s.gen = tab.Generation
	s.release = func(err error) { pool.Release(tab, err) }
	return s, nil
}

// standalone starts a private browser with a throwaway profile.
func (p *Provider) standalone() (raster.Surface, error) {
	dir, err := createProfileDir(p.cfg)
	if err != nil {
		return nil, err
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocatorOptions(p.cfg, dir)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	s := NewSurface(tabCtx, p.opts)
	s.release = func(error) {
		tabCancel()
		allocCancel()
		_ = os.RemoveAll(dir)
	}
	return s, nil
}

// Release returns s to the provider. err is the outcome of the export.
func (p *Provider) Release(s raster.Surface, err error) {
	cs, ok := s.(*Surface)
	if !ok || cs.release == nil {
		return
	}
	cs.release(err)
	cs.release = nil
}

// Recover restarts the pool after the browser under a tab went away and
// reports whether a retry is worthwhile. Waiting for a busy tab is not a
// browser failure. A tab from an already replaced browser is retried on the
// new one without restarting again.
func (p *Provider) Recover(err error) bool {
	if errors.Is(err, ErrNoFreeTab) || !IsSessionInterrupted(err) {
		return false
	}
	var tabErr *TabError
	if !errors.As(err, &tabErr) {
		return false
	}
	p.mu.Lock()
	pool := p.pool
	p.mu.Unlock()
	if pool == nil {
		return false
	}

	restarted, rerr := pool.RestartGeneration(tabErr.Generation)
	if rerr != nil {
		logging.Error("Chrome pool restart failed", "error", rerr)
		return false
	}
	if restarted {
		logging.Warn("Chrome session interrupted; restarted pool, retrying once", "error", err)
	} else {
		logging.Info("Chrome tab belonged to a replaced browser; retrying once", "error", err)
	}
	return true
}

// Stats reports pool usage. It returns an error when the pool failed to
// initialize.
func (p *Provider) Stats() (Stats, error) {
	pool, err := p.Pool()
	if err != nil {
		return Stats{}, err
	}
	if pool == nil {
		return Stats{
			PoolSizeConf: p.cfg.PDF.ChromePoolSize,
			TimeoutSecs:  p.cfg.PDF.TimeoutSecs,
		}, nil
	}
	return pool.Stats(p.cfg.PDF.TimeoutSecs), nil
}

// Close shuts the shared pool down.
func (p *Provider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pool != nil {
		p.pool.Close()
	}
}
