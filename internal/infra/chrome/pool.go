// Package chrome owns the headless Chrome instances used as off-screen
// render surfaces.
package chrome

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"itinerary-pdf/internal/config"
	"itinerary-pdf/internal/infra/logging"
)

// Pool hands out at most ChromePoolSize tabs of one shared browser. The
// browser is started lazily by the first tab that runs an action.
type Pool struct {
	cfg config.Config

	mu            sync.Mutex
	sem           chan struct{}
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	profileDir    string
	closed        bool
	restarts      int
	lastRestart   time.Time
}

// ErrNoFreeTab is returned when every tab stayed busy until the wait ended.
// The browser is healthy in that case and must not be restarted.
var ErrNoFreeTab = errors.New("no free chrome tab")

// Tab is one browser tab checked out of the pool. Generation is the restart
// count of the browser the tab was opened in.
type Tab struct {
	Ctx        context.Context
	Generation int
	cancel     context.CancelFunc
}

// TabError ties a failed tab action to the browser generation it ran on.
type TabError struct {
	Generation int
	Err        error
}

func (e *TabError) Error() string { return e.Err.Error() }
func (e *TabError) Unwrap() error { return e.Err }

// Stats describes pool capacity and usage.
type Stats struct {
	Enabled      bool      `json:"enabled"`
	Capacity     int       `json:"capacity"`
	Idle         int       `json:"idle"`
	InUse        int       `json:"in_use"`
	PoolSizeConf int       `json:"pool_size_conf"`
	ProfileDir   string    `json:"profile_dir"`
	TimeoutSecs  int       `json:"timeout_secs"`
	Restarts     int       `json:"restarts"`
	LastRestart  time.Time `json:"last_restart,omitzero"`
}

// NewPool prepares a pool of cfg.PDF.ChromePoolSize tabs.
func NewPool(cfg config.Config) (*Pool, error) {
	size := cfg.PDF.ChromePoolSize
	if size <= 0 {
		return nil, errors.New("chrome pool disabled (chrome_pool_size <= 0)")
	}

	p := &Pool{cfg: cfg, sem: make(chan struct{}, size)}
	if err := p.start(); err != nil {
		return nil, err
	}
	for range size {
		p.sem <- struct{}{}
	}
	logging.Info("Chrome pool ready", "size", size, "profile_dir", p.profileDir)
	return p, nil
}

// start creates a fresh profile directory and browser context. Callers hold
// p.mu or own p exclusively.
func (p *Pool) start() error {
	dir, err := createProfileDir(p.cfg)
	if err != nil {
		return err
	}
	p.profileDir = dir
	p.allocCtx, p.allocCancel = chromedp.NewExecAllocator(context.Background(), allocatorOptions(p.cfg, dir)...)
	p.browserCtx, p.browserCancel = chromedp.NewContext(p.allocCtx)
	return nil
}

func (p *Pool) stop() {
	if p.browserCancel != nil {
		p.browserCancel()
		p.browserCancel = nil
	}
	if p.allocCancel != nil {
		p.allocCancel()
		p.allocCancel = nil
	}
	if p.profileDir != "" {
		_ = os.RemoveAll(p.profileDir)
	}
}

// Acquire waits for a free tab until ctx is done.
func (p *Pool) Acquire(ctx context.Context) (*Tab, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, errors.New("chrome pool closed")
	}

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrNoFreeTab, ctx.Err())
	case <-p.sem:
	}

	p.mu.Lock()
	parent, gen := p.browserCtx, p.restarts
	p.mu.Unlock()

	tabCtx, cancel := chromedp.NewContext(parent)
	return &Tab{Ctx: tabCtx, Generation: gen, cancel: cancel}, nil
}

// Release closes tab and returns its slot. err is the outcome of the work
// done in the tab; it is only logged.
func (p *Pool) Release(tab *Tab, err error) {
	if tab != nil && tab.cancel != nil {
		tab.cancel()
	}
	if err != nil && IsSessionInterrupted(err) {
		logging.Debug("Releasing interrupted chrome tab", "error", err)
	}
	select {
	case p.sem <- struct{}{}:
	default:
	}
}

// Restart replaces the browser and its profile. Tabs still checked out keep
// running against the old browser until they fail.
func (p *Pool) Restart() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.restartLocked()
}

// RestartGeneration restarts the browser only while gen is still the current
// generation. It reports false when another caller already replaced it.
func (p *Pool) RestartGeneration(gen int) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false, errors.New("chrome pool closed")
	}
	if gen != p.restarts {
		return false, nil
	}
	return true, p.restartLocked()
}

func (p *Pool) restartLocked() error {
	if p.closed {
		return errors.New("chrome pool closed")
	}

	p.stop()
	if err := p.start(); err != nil {
		return fmt.Errorf("restart chrome pool: %w", err)
	}
	p.restarts++
	p.lastRestart = time.Now()
	logging.Warn("Chrome pool restarted", "restarts", p.restarts, "profile_dir", p.profileDir)
	return nil
}

// Close shuts the browser down. It is safe to call more than once.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.stop()
}

// Stats returns a snapshot of pool usage.
func (p *Pool) Stats(timeoutSecs int) Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	capacity := cap(p.sem)
	idle := len(p.sem)
	return Stats{
		Enabled:      !p.closed,
		Capacity:     capacity,
		Idle:         idle,
		InUse:        capacity - idle,
		PoolSizeConf: p.cfg.PDF.ChromePoolSize,
		ProfileDir:   p.profileDir,
		TimeoutSecs:  timeoutSecs,
		Restarts:     p.restarts,
		LastRestart:  p.lastRestart,
	}
}

// IsSessionInterrupted reports whether err means the tab or browser went
// away underneath a running action.
func IsSessionInterrupted(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"target closed", "session closed", "websocket: close", "browser has disconnected"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func createProfileDir(cfg config.Config) (string, error) {
	base := cfg.PDF.UserDataDir
	if base != "" {
		if err := os.MkdirAll(base, 0o700); err != nil {
			return "", fmt.Errorf("cannot create chrome profile base %s: %w", base, err)
		}
	}
	dir, err := os.MkdirTemp(base, "chromedata-*")
	if err != nil {
		return "", fmt.Errorf("cannot create chrome profile dir: %w", err)
	}
	return dir, nil
}

func allocatorOptions(cfg config.Config, profileDir string) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(profileDir),
		// software rendering; containers usually lack a usable GPU
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-gpu-compositing", true),
		chromedp.Flag("disable-features", "Vulkan,UseSkiaRenderer"),
		chromedp.Flag("use-gl", "swiftshader"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	if cfg.PDF.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.PDF.ChromePath))
	}
	if cfg.PDF.ChromeNoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	return opts
}
