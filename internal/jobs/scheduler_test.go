package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/giftcard-backend/internal/pkg/logger"
)

type countingExpirer struct {
	calls atomic.Int32
	err   error
	panic bool
}

func (c *countingExpirer) ExpireStale(ctx context.Context) (int, error) {
	c.calls.Add(1)
	if c.panic {
		panic("boom")
	}
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("expected a deadline")
	}
	return 2, c.err
}

func TestNewSchedulerRejectsBadSpec(t *testing.T) {
	_, err := NewScheduler(&countingExpirer{}, "every now and then", logger.Discard())
	assert.Error(t, err)
}

func TestExpireStaleOrdersLogsOutcome(t *testing.T) {
	log, hook := test.NewNullLogger()
	exp := &countingExpirer{}
	s, err := NewScheduler(exp, "@every 1h", log)
	require.NoError(t, err)

	s.ExpireStaleOrders()
	assert.EqualValues(t, 1, exp.calls.Load())
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
	assert.Equal(t, 2, hook.LastEntry().Data["count"])

	exp.err = errors.New("db down")
	s.ExpireStaleOrders()
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestSchedulerRunsAndRecovers(t *testing.T) {
	exp := &countingExpirer{panic: true}
	s, err := NewScheduler(exp, "@every 1s", logger.Discard())
	require.NoError(t, err)

	s.Start()
	assert.Eventually(t, func() bool { return exp.calls.Load() >= 2 }, 5*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
