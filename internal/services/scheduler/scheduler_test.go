package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockExpirer struct {
	mock.Mock
}

func (m *MockExpirer) ExpireDue(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestExpirySweeper_RunOnce(t *testing.T) {
	tests := []struct {
		name     string
		resolved int
		err      error
	}{
		{name: "resolves expired", resolved: 3},
		{name: "nothing to do", resolved: 0},
		{name: "partial failure", resolved: 1, err: errors.New("db down")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expirer := new(MockExpirer)
			expirer.On("ExpireDue", mock.Anything).Return(tt.resolved, tt.err).Once()

			s := NewExpirySweeper(expirer, "@every 1m", newNoopLogger())
			s.RunOnce(context.Background())

			expirer.AssertExpectations(t)
		})
	}
}

func TestExpirySweeper_StartRunsOnSchedule(t *testing.T) {
	expirer := new(MockExpirer)
	calls := make(chan struct{}, 10)
	expirer.On("ExpireDue", mock.Anything).Return(0, nil).Run(func(mock.Arguments) {
		calls <- struct{}{}
	})

	s := NewExpirySweeper(expirer, "@every 1s", newNoopLogger())
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(time.Second)

	select {
	case <-calls:
	case <-time.After(5 * time.Second):
		t.Fatal("sweeper did not run")
	}
}

func TestExpirySweeper_InvalidSchedule(t *testing.T) {
	s := NewExpirySweeper(new(MockExpirer), "not a schedule", newNoopLogger())
	assert.Error(t, s.Start(context.Background()))
}

func TestExpirySweeper_StartTwice(t *testing.T) {
	s := NewExpirySweeper(new(MockExpirer), "@every 1h", newNoopLogger())
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(time.Second)

	assert.Error(t, s.Start(context.Background()))
}

func TestExpirySweeper_StopWithoutStart(t *testing.T) {
	s := NewExpirySweeper(new(MockExpirer), "@every 1h", newNoopLogger())
	assert.NotPanics(t, func() { s.Stop(time.Second) })
}
