package catalog

import (
	"context"
	"fmt"
	"ms-events/internal/logger"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

type Refresher interface {
	Refresh(ctx context.Context) error
}

// Warmer keeps the default catalog page hot on a cron schedule.
type Warmer struct {
	cron      *cron.Cron
	refresher Refresher
	timeout   time.Duration
	logger    *logger.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	running sync.WaitGroup
}

// NewWarmer returns nil, nil when schedule is empty.
func NewWarmer(schedule string, refresher Refresher, timeout time.Duration, log *logger.Logger) (*Warmer, error) {
	if schedule == "" {
		return nil, nil
	}

	w := &Warmer{
		cron:      cron.New(),
		refresher: refresher,
		timeout:   timeout,
		logger:    log,
	}
	if _, err := w.cron.AddFunc(schedule, w.run); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}
	return w, nil
}

// Start refreshes once right away, then on schedule. Refreshes stop when ctx
// is done or Stop is called.
func (w *Warmer) Start(ctx context.Context) {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.logger.Info("CATALOG", "Catalog warmer started")

	w.running.Add(1)
	go func() {
		defer w.running.Done()
		w.run()
	}()
	w.cron.Start()
}

// Stop cancels in-flight refreshes and waits for them to return.
func (w *Warmer) Stop() {
	w.cancel()
	<-w.cron.Stop().Done()
	w.running.Wait()
	w.logger.Info("CATALOG", "Catalog warmer stopped")
}

func (w *Warmer) run() {
	if w.ctx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(w.ctx, w.timeout)
	defer cancel()

	if err := w.refresher.Refresh(ctx); err != nil {
		w.logger.Warn("CATALOG", fmt.Sprintf("Catalog refresh failed: %v", err))
	}
}
