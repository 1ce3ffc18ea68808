package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProcessor struct {
	calls   atomic.Int32
	created int
	err     error
	block   chan struct{}
	seen    time.Time
}

func (p *stubProcessor) ProcessDuePayments(_ context.Context, now time.Time) (int, error) {
	p.calls.Add(1)
	p.seen = now
	if p.block != nil {
		<-p.block
	}
	return p.created, p.err
}

func TestPaymentScheduler_RunOnce(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	proc := &stubProcessor{created: 3}
	s := NewPaymentScheduler(proc, "@daily", nil)
	s.now = func() time.Time { return fixed }

	count, ran, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 3, count)
	assert.Equal(t, fixed, proc.seen)
}

func TestPaymentScheduler_RunOnceError(t *testing.T) {
	proc := &stubProcessor{err: errors.New("db locked")}
	s := NewPaymentScheduler(proc, "@daily", nil)

	_, ran, err := s.RunOnce(context.Background())
	assert.True(t, ran)
	assert.EqualError(t, err, "db locked")
}

func TestPaymentScheduler_SkipsOverlappingRun(t *testing.T) {
	proc := &stubProcessor{block: make(chan struct{})}
	s := NewPaymentScheduler(proc, "@daily", nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _, _ = s.RunOnce(context.Background())
	}()
	require.Eventually(t, func() bool { return proc.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	_, ran, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, ran)

	close(proc.block)
	<-done
	assert.Equal(t, int32(1), proc.calls.Load())
}

func TestPaymentScheduler_Run(t *testing.T) {
	proc := &stubProcessor{}
	s := NewPaymentScheduler(proc, "@every 1h", nil)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return proc.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestPaymentScheduler_BadSpec(t *testing.T) {
	s := NewPaymentScheduler(&stubProcessor{}, "not a cron", nil)
	assert.Error(t, s.Run(context.Background()))
}
