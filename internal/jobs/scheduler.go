// internal/jobs/scheduler.go
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// OrderExpirer fails PENDING orders whose payment window has passed
type OrderExpirer interface {
	ExpireStale(ctx context.Context) (int, error)
}

// Scheduler runs the periodic maintenance jobs of the store
type Scheduler struct {
	sched   *cron.Cron
	orders  OrderExpirer
	timeout time.Duration
	logger  logrus.FieldLogger
}

// NewScheduler registers the order expiry job on the given cron spec
func NewScheduler(orders OrderExpirer, expirySpec string, logger logrus.FieldLogger) (*Scheduler, error) {
	s := &Scheduler{
		sched: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithParser(cronParser),
			// Recover sits inside SkipIfStillRunning so a panic still hands back the run token.
			cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger}), cron.Recover(cronLogger{logger})),
		),
		orders:  orders,
		timeout: time.Minute,
		logger:  logger,
	}

	if _, err := s.sched.AddFunc(expirySpec, s.ExpireStaleOrders); err != nil {
		return nil, fmt.Errorf("failed to schedule order expiry %q: %w", expirySpec, err)
	}
	return s, nil
}

// Start runs the scheduler in its own goroutine
func (s *Scheduler) Start() {
	s.sched.Start()
	s.logger.WithField("jobs", len(s.sched.Entries())).Info("Scheduler started")
}

// Stop waits for running jobs to finish or ctx to expire
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.sched.Stop()
	select {
	case <-done.Done():
		s.logger.Info("Scheduler stopped")
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out with jobs still running")
	}
}

// ExpireStaleOrders is the body of the expiry job
func (s *Scheduler) ExpireStaleOrders() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	expired, err := s.orders.ExpireStale(ctx)
	entry := s.logger.WithFields(logrus.Fields{
		"job":      "expire_stale_orders",
		"count":    expired,
		"duration": time.Since(start).String(),
	})
	if err != nil {
		entry.WithError(err).Error("Order expiry job failed")
		return
	}
	if expired > 0 {
		entry.Info("Expired stale pending orders")
	}
}

// cronLogger adapts logrus to cron.Logger
type cronLogger struct {
	logger logrus.FieldLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(fields(keysAndValues)).WithError(err).Error(msg)
}

func fields(keysAndValues []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		f[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return f
}
