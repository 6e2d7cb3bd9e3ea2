package storage

import (
	"context"
	"time"

	"github.com/docsearch-io/docsearch/internal/index"
	"github.com/docsearch-io/docsearch/pkg/resilience"
)

// StartAutosaveLoop saves the index every interval until ctx is cancelled.
// The final save on shutdown is the caller's responsibility; doing it here
// too would race with the caller and burn a backup slot on every stop.
// Transient save failures are retried with backoff; a save that exhausts
// its retries is logged and skipped, leaving the previous snapshot intact.
func (s *Storage) StartAutosaveLoop(ctx context.Context, ix *index.Index, interval time.Duration, retries int) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.logger.Info("autosave loop stopping")
				return
			case <-ticker.C:
				err := resilience.Retry(ctx, "autosave", resilience.RetryConfig{
					MaxAttempts: retries,
				}, func() error {
					return s.Save(ix)
				})
				if err != nil {
					s.logger.Error("autosave failed", "error", err)
				}
			}
		}
	}()
}
