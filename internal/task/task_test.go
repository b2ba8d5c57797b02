package task

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"testing"
	"time"

	"domsync/internal/errors"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// advanceUntil steps the fake clock until result delivers.
func advanceUntil(t *testing.T, clock *clockwork.FakeClock, step time.Duration, result <-chan error) error {
	t.Helper()
	var got error
	require.Eventually(t, func() bool {
		select {
		case got = <-result:
			return true
		default:
			clock.Advance(step)
			return false
		}
	}, 2*time.Second, time.Millisecond)
	return got
}

func TestTaskRunsAndReportsError(t *testing.T) {
	boom := stderrors.New("boom")
	tk := New("boom", func(ctx context.Context) error { return boom }).Start(context.Background())

	assert.Equal(t, "boom", tk.Name())
	assert.ErrorIs(t, tk.Wait(), boom)
	assert.ErrorIs(t, tk.Err(), boom)
}

func TestTaskCancel(t *testing.T) {
	tk := New("blocker", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}).Start(context.Background())

	assert.NoError(t, tk.Err(), "still running")
	tk.Cancel()
	assert.ErrorIs(t, tk.Wait(), context.Canceled)

	tk.Cancel() // second cancel is a no-op
	<-tk.Done()
}

func TestTaskCancelBeforeStart(t *testing.T) {
	var ran atomic.Bool
	tk := New("never", func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})

	tk.Cancel()
	tk.Start(context.Background())

	assert.ErrorIs(t, tk.Wait(), context.Canceled)
	assert.False(t, ran.Load())
}

func TestTaskStartTwice(t *testing.T) {
	var runs atomic.Int32
	tk := New("once", func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	tk.Start(context.Background())
	tk.Start(context.Background())
	require.NoError(t, tk.Wait())
	assert.Equal(t, int32(1), runs.Load())
}

func TestTaskCancelFromInside(t *testing.T) {
	var tk *Task
	ready := make(chan struct{})
	tk = New("self", func(ctx context.Context) error {
		<-ready
		tk.Cancel()
		<-ctx.Done()
		return ctx.Err()
	})
	tk.Start(context.Background())
	close(ready)

	assert.ErrorIs(t, tk.Wait(), context.Canceled)
}

func TestTaskParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tk := New("child", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}).Start(ctx)

	cancel()
	assert.ErrorIs(t, tk.Wait(), context.Canceled)
}

func TestNilTask(t *testing.T) {
	var tk *Task

	assert.NotPanics(t, func() {
		tk.Cancel()
		assert.Nil(t, tk.Start(context.Background()))
		assert.NoError(t, tk.Wait())
		assert.NoError(t, tk.Err())
		assert.Equal(t, "", tk.Name())
		<-tk.Done()
	})
}

func TestPollImmediateSuccess(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var calls int
	err := Poll(context.Background(), clock, "probe", time.Second, time.Minute, func(context.Context) (bool, error) {
		calls++
		return true, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestPollSucceedsLater(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var calls atomic.Int32

	result := make(chan error, 1)
	go func() {
		result <- Poll(context.Background(), clock, "probe", time.Second, time.Minute, func(context.Context) (bool, error) {
			return calls.Add(1) >= 3, nil
		})
	}()

	require.NoError(t, advanceUntil(t, clock, time.Second, result))
	assert.Equal(t, int32(3), calls.Load())
}

func TestPollTimesOut(t *testing.T) {
	clock := clockwork.NewFakeClock()

	result := make(chan error, 1)
	go func() {
		result <- Poll(context.Background(), clock, "lead detection", time.Second, 5*time.Second, func(context.Context) (bool, error) {
			return false, nil
		})
	}()

	err := advanceUntil(t, clock, time.Second, result)
	require.Error(t, err)
	assert.True(t, errors.IsTimeout(err))

	var timeout *errors.TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, "lead detection", timeout.Operation)
	assert.Equal(t, 5*time.Second, timeout.After)
}

func TestPollCheckError(t *testing.T) {
	boom := stderrors.New("boom")
	err := Poll(context.Background(), clockwork.NewFakeClock(), "probe", time.Second, time.Minute, func(context.Context) (bool, error) {
		return false, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestPollCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	clock := clockwork.NewFakeClock()

	result := make(chan error, 1)
	go func() {
		result <- Poll(ctx, clock, "probe", time.Second, time.Minute, func(context.Context) (bool, error) {
			return false, nil
		})
	}()

	cancel()
	select {
	case err := <-result:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("poll did not stop after cancel")
	}
}

func TestEvery(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	clock := clockwork.NewFakeClock()
	var ticks atomic.Int32

	result := make(chan error, 1)
	go func() {
		result <- Every(ctx, clock, 3*time.Second, func(context.Context) {
			ticks.Add(1)
		})
	}()

	assert.Equal(t, int32(0), ticks.Load(), "no call before the first interval")
	require.Eventually(t, func() bool {
		clock.Advance(3 * time.Second)
		return ticks.Load() >= 2
	}, 2*time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-result, context.Canceled)
}

func TestSleep(t *testing.T) {
	clock := clockwork.NewFakeClock()

	result := make(chan error, 1)
	go func() { result <- Sleep(context.Background(), clock, 500*time.Millisecond) }()
	require.NoError(t, advanceUntil(t, clock, 100*time.Millisecond, result))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, clock, time.Hour), context.Canceled)
	assert.ErrorIs(t, Sleep(ctx, clock, 0), context.Canceled)
	assert.NoError(t, Sleep(context.Background(), clock, 0))
}
