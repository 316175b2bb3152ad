package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntervalEntries(t *testing.T) {
	s := New()
	var runs atomic.Int32
	require.NoError(t, s.Every(time.Minute).Name("cache:sweep").Run(func(context.Context) error {
		runs.Add(1)
		return nil
	}))

	ctx := context.Background()
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	s.runDue(ctx, start)
	s.runDue(ctx, start.Add(30*time.Second))
	s.runDue(ctx, start.Add(time.Minute))
	s.wg.Wait()

	assert.Equal(t, int32(2), runs.Load(), "first tick plus one full interval later")
	assert.Equal(t, []string{"cache:sweep  [every 1m0s]"}, s.List())
}

func TestCronRunsOncePerMatchingMinute(t *testing.T) {
	s := New()
	var runs atomic.Int32
	require.NoError(t, s.Cron("*/15 9-17 * * 1-5").Run(func(context.Context) error {
		runs.Add(1)
		return errors.New("logged, not fatal")
	}))

	ctx := context.Background()
	wed := time.Date(2024, 5, 1, 10, 15, 0, 0, time.UTC) // a Wednesday

	s.runDue(ctx, wed)
	s.runDue(ctx, wed.Add(20*time.Second))
	s.runDue(ctx, wed.Add(time.Minute))
	s.runDue(ctx, wed.Add(15*time.Minute))
	s.runDue(ctx, time.Date(2024, 5, 4, 10, 15, 0, 0, time.UTC)) // Saturday
	s.wg.Wait()

	assert.Equal(t, int32(2), runs.Load())
	assert.Equal(t, []string{"task-1  [*/15 9-17 * * 1-5]"}, s.List())
}

func TestWithoutOverlapping(t *testing.T) {
	s := New()
	release := make(chan struct{})
	var runs atomic.Int32
	require.NoError(t, s.Every(time.Second).WithoutOverlapping().Run(func(context.Context) error {
		runs.Add(1)
		<-release
		return nil
	}))

	ctx := context.Background()
	now := time.Now()
	s.runDue(ctx, now)
	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, time.Millisecond)

	s.runDue(ctx, now.Add(2*time.Second))
	close(release)
	s.wg.Wait()
	assert.Equal(t, int32(1), runs.Load())
}

func TestPanickingTaskIsRecovered(t *testing.T) {
	s := New()
	require.NoError(t, s.Every(time.Second).Run(func(context.Context) error { panic("boom") }))
	s.runDue(context.Background(), time.Now())
	s.wg.Wait()
}

func TestRejectsBadEntries(t *testing.T) {
	s := New()
	noop := func(context.Context) error { return nil }

	assert.Error(t, s.Every(0).Run(noop))
	assert.Error(t, s.Cron("* * *").Run(noop))
	assert.Error(t, s.Cron("*/0 * * * *").Run(noop))
	assert.Error(t, s.Cron("5-1 * * * *").Run(noop))
	assert.NoError(t, s.Cron("0,30 * * * *").Run(noop))
	assert.Len(t, s.List(), 1)
}

func TestStartReturnsOnCancel(t *testing.T) {
	s := New()
	s.tick = time.Millisecond
	var runs atomic.Int32
	require.NoError(t, s.Every(time.Hour).Run(func(context.Context) error {
		runs.Add(1)
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
