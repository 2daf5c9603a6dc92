package export

import (
	"context"
	"sync"

	"itinerary-pdf/internal/domain"
)

// Guard admits one export per key at a time. TryAcquire never waits: a busy
// key yields domain.ErrExportInProgress.
type Guard interface {
	TryAcquire(ctx context.Context, key string) (release func(), err error)
}

// LocalGuard is a process-local Guard.
type LocalGuard struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

// NewLocalGuard returns an empty guard.
func NewLocalGuard() *LocalGuard {
	return &LocalGuard{busy: make(map[string]struct{})}
}

// TryAcquire marks key busy until release is called.
func (g *LocalGuard) TryAcquire(_ context.Context, key string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.busy[key]; ok {
		return nil, domain.ErrExportInProgress
	}
	g.busy[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.busy, key)
			g.mu.Unlock()
		})
	}, nil
}

// acquireAll takes every guard in order and releases the ones already held
// when a later guard refuses.
func acquireAll(ctx context.Context, guards []Guard, key string) (func(), error) {
	releases := make([]func(), 0, len(guards))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	for _, g := range guards {
		release, err := g.TryAcquire(ctx, key)
		if err != nil {
			releaseAll()
			return nil, err
		}
		releases = append(releases, release)
	}
	return releaseAll, nil
}
