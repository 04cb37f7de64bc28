package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count     int
	startedAt time.Time
}

// FixedWindow counts requests per subject in process. Bursts at a window
// edge can reach twice the limit.
type FixedWindow struct {
	cfg     Config
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

func NewFixedWindow(cfg Config) *FixedWindow {
	if cfg.Requests <= 0 || cfg.Window <= 0 {
		cfg = DefaultConfig()
	}
	return &FixedWindow{cfg: cfg, windows: make(map[string]*window), now: time.Now}
}

func (f *FixedWindow) Allow(_ context.Context, subject string) (bool, error) {
	now := f.now()
	f.mu.Lock()
	defer f.mu.Unlock()

	w, ok := f.windows[subject]
	if !ok || now.Sub(w.startedAt) >= f.cfg.Window {
		w = &window{startedAt: now}
		f.windows[subject] = w
		f.sweep(now)
	}
	if w.count+1 > f.cfg.Requests {
		return false, nil
	}
	w.count++
	return true, nil
}

// sweep drops expired windows so idle subjects do not pile up.
func (f *FixedWindow) sweep(now time.Time) {
	if len(f.windows) < 1024 {
		return
	}
	for k, w := range f.windows {
		if now.Sub(w.startedAt) >= f.cfg.Window {
			delete(f.windows, k)
		}
	}
}
