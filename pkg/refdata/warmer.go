package refdata

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lumapix/photark/pkg/accessctl"
	"github.com/lumapix/photark/pkg/observability"
)

// IdentityLister enumerates the identities whose lists are worth keeping
// warm, typically recently active users plus one admin identity.
type IdentityLister func(ctx context.Context) ([]accessctl.Identity, error)

// Warmer refreshes the reference caches on a schedule so the first request
// after a TTL expiry does not pay the recompute latency.
type Warmer struct {
	service *Service
	list    IdentityLister
	logger  *observability.Logger
	cron    *cron.Cron
}

// NewWarmer creates a warmer. Start must be called to begin scheduling.
func NewWarmer(service *Service, list IdentityLister, logger *observability.Logger) *Warmer {
	return &Warmer{
		service: service,
		list:    list,
		logger:  logger,
		cron:    cron.New(),
	}
}

// Start schedules warmup runs with the given cron spec (e.g. "@every 5m").
func (w *Warmer) Start(spec string) error {
	_, err := w.cron.AddFunc(spec, w.run)
	if err != nil {
		return fmt.Errorf("failed to schedule cache warmer: %w", err)
	}
	w.cron.Start()
	return nil
}

// Stop halts scheduling and waits for a running warmup to finish.
func (w *Warmer) Stop() {
	<-w.cron.Stop().Done()
}

// run executes one warmup pass. A panic here must not kill the cron
// goroutine, so it is recovered and logged.
func (w *Warmer) run() {
	defer observability.RecoverPanic(w.logger, "reference-data warmup")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	start := time.Now()
	ids, err := w.list(ctx)
	if err != nil {
		w.logger.WithError(err).Error("cache warmup failed to list identities")
		return
	}

	if err := w.service.WarmUp(ctx, ids); err != nil {
		w.logger.WithError(err).WithField("identities", len(ids)).Error("cache warmup failed")
		return
	}
	w.logger.WithFields(map[string]interface{}{
		"identities": len(ids),
		"duration":   time.Since(start).String(),
	}).Info("cache warmup complete")
}
