package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSleeper struct {
	waits []time.Duration
}

func (s *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return nil
}

func TestDo_RateLimitedThenSuccess(t *testing.T) {
	s := &recordingSleeper{}
	cfg := Config{DefaultWait: time.Minute, Sleep: s.sleep}

	calls := 0
	err := Do(context.Background(), cfg, func() error {
		calls++
		if calls < 3 {
			return RateLimited(5*time.Second, errors.New("429"))
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, s.waits)
}

func TestDo_DefaultWaitWhenServerGivesNone(t *testing.T) {
	s := &recordingSleeper{}
	cfg := Config{Sleep: s.sleep}

	calls := 0
	err := Do(context.Background(), cfg, func() error {
		calls++
		if calls == 1 {
			return RateLimited(0, nil)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []time.Duration{DefaultWait}, s.waits)
}

func TestDo_OtherErrorsNotRetried(t *testing.T) {
	s := &recordingSleeper{}
	boom := errors.New("server error: 500")

	calls := 0
	err := Do(context.Background(), Config{Sleep: s.sleep}, func() error {
		calls++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
	assert.Empty(t, s.waits)
}

func TestDo_MaxAttempts(t *testing.T) {
	s := &recordingSleeper{}
	cfg := Config{MaxAttempts: 3, Sleep: s.sleep}

	calls := 0
	err := Do(context.Background(), cfg, func() error {
		calls++
		return RateLimited(time.Second, nil)
	})

	assert.ErrorIs(t, err, ErrGaveUp)
	assert.Equal(t, 3, calls)
	assert.Len(t, s.waits, 2)
}

func TestDo_ContextCancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	err := Do(ctx, Config{}, func() error {
		calls++
		cancel()
		return RateLimited(time.Hour, nil)
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDo_OnWait(t *testing.T) {
	var attempts []int
	cfg := Config{
		Sleep:  (&recordingSleeper{}).sleep,
		OnWait: func(attempt int, _ time.Duration) { attempts = append(attempts, attempt) },
	}

	calls := 0
	require.NoError(t, Do(context.Background(), cfg, func() error {
		calls++
		if calls <= 2 {
			return RateLimited(time.Millisecond, nil)
		}
		return nil
	}))
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestDoWithResult(t *testing.T) {
	calls := 0
	got, err := DoWithResult(context.Background(), Config{Sleep: (&recordingSleeper{}).sleep}, func() (string, error) {
		calls++
		if calls == 1 {
			return "", RateLimited(time.Millisecond, nil)
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestIsRateLimited(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), RateLimited(7*time.Second, nil))

	wait, ok := IsRateLimited(wrapped)
	assert.True(t, ok)
	assert.Equal(t, 7*time.Second, wait)

	_, ok = IsRateLimited(errors.New("plain"))
	assert.False(t, ok)
}
