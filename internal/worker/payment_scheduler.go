package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	applog "finanzas/internal/log"
)

// DuePaymentsProcessor materializes the planned payments due at now.
type DuePaymentsProcessor interface {
	ProcessDuePayments(ctx context.Context, now time.Time) (int, error)
}

// PaymentScheduler runs a DuePaymentsProcessor on a cron schedule. Runs never
// overlap: a tick that fires while the previous run is still busy is skipped.
type PaymentScheduler struct {
	processor DuePaymentsProcessor
	spec      string
	logger    *applog.Logger
	now       func() time.Time

	mu      sync.Mutex
	running bool
}

func NewPaymentScheduler(processor DuePaymentsProcessor, spec string, logger *applog.Logger) *PaymentScheduler {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &PaymentScheduler{
		processor: processor,
		spec:      spec,
		logger:    logger.WithComponent(applog.ComponentPayments),
		now:       time.Now,
	}
}

// RunOnce processes due payments immediately. It reports false when another
// run was already in progress.
func (s *PaymentScheduler) RunOnce(ctx context.Context) (int, bool, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.WarnContext(ctx, "Previous payment run still in progress, skipping tick")
		return 0, false, nil
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	count, err := s.processor.ProcessDuePayments(ctx, s.now())
	if err != nil {
		applog.LogError(ctx, "Planned payment run failed", err,
			applog.ComponentPayments, applog.OpMaterialize, applog.ErrorTypeDatabase, nil)
		return 0, true, err
	}
	return count, true, nil
}

// Run does one catch-up pass and then processes on every tick of the cron
// spec until ctx is cancelled.
func (s *PaymentScheduler) Run(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(s.spec, func() { _, _, _ = s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("parse payments schedule %q: %w", s.spec, err)
	}

	if count, _, err := s.RunOnce(ctx); err == nil {
		s.logger.InfoContext(ctx, "Startup payment run complete", "movements_created", count)
	}

	c.Start()
	s.logger.InfoContext(ctx, "Payment scheduler started", "schedule", s.spec)
	<-ctx.Done()

	stopped := c.Stop()
	<-stopped.Done()
	s.logger.Info("Payment scheduler stopped")
	return nil
}
