package registry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/ledger-bridge/errors"
)

// Reap fails every call outstanding longer than Config.MaxAge with a timeout
// error and returns how many it reclaimed. It is a no-op when MaxAge is 0.
func (r *Registry) Reap(now time.Time) int {
	if r.cfg.MaxAge <= 0 {
		return 0
	}

	var expired []Handle
	r.mu.Lock()
	for h, e := range r.entries {
		if now.Sub(e.started) > r.cfg.MaxAge {
			expired = append(expired, h)
		}
	}
	r.mu.Unlock()

	reaped := 0
	for _, h := range expired {
		err := errors.Timeout(uint32(h), fmt.Sprintf("outstanding longer than %s", r.cfg.MaxAge))
		// A completion may have removed h since the scan; that is not an error.
		if r.cancel(h, err) == nil {
			reaped++
		}
	}
	if reaped > 0 {
		Logger().Warn("reclaimed abandoned calls",
			zap.Int("count", reaped),
			zap.Duration("maxAge", r.cfg.MaxAge))
	}
	return reaped
}

// Run reaps expired calls periodically until ctx is done. It returns
// immediately when MaxAge is 0.
func (r *Registry) Run(ctx context.Context) error {
	if r.cfg.MaxAge <= 0 {
		return nil
	}
	ticker := time.NewTicker(r.cfg.reapInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.Reap(r.now())
		}
	}
}
