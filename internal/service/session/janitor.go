package session

import (
	"context"
	"time"

	"github.com/nkiryanov/passgate/internal/logger"
	"github.com/nkiryanov/passgate/internal/repository"
)

const defaultPurgeInterval = time.Hour

// Janitor periodically forgets used refresh tokens that are expired anyway
type Janitor struct {
	interval time.Duration
	ledger   repository.RefreshLedger
	logger   logger.Logger
	now      func() time.Time
}

func NewJanitor(ledger repository.RefreshLedger, interval time.Duration, l logger.Logger) *Janitor {
	if interval <= 0 {
		interval = defaultPurgeInterval
	}

	return &Janitor{
		interval: interval,
		ledger:   ledger,
		logger:   l.With("component", "janitor"),
		now:      time.Now,
	}
}

// Run purges ledger every interval until ctx is done
// Returned channel is closed when janitor stopped
func (j *Janitor) Run(ctx context.Context) <-chan struct{} {
	idleStopped := make(chan struct{})
	j.logger.Debug("Starting janitor", "interval", j.interval)

	go func() {
		defer close(idleStopped)

		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				j.logger.Debug("Janitor stopped by context")
				return

			case <-ticker.C:
				deleted, err := j.ledger.DeleteExpired(ctx, j.now())
				if err != nil {
					j.logger.Error("Failed to purge used refresh tokens", "error", err)
					continue
				}
				j.logger.Debug("Used refresh tokens purged", "deleted", deleted)
			}
		}
	}()

	return idleStopped
}
