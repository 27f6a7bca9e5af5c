package domain

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// RunReaper calls PurgeExpired every interval until ctx is done. Reads evict
// expired snippets on their own; the reaper only reclaims disk space held by
// snippets nobody reads again.
func RunReaper(ctx context.Context, repo SnippetRepository, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.PurgeExpired(ctx)
			if err != nil && ctx.Err() == nil {
				log.WithField("err", err).Error("Reaper run failed")
				continue
			}
			if n > 0 {
				log.WithField("purged", n).Info("Reaped expired snippets")
			}
		}
	}
}
