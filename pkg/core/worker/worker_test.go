package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type mockReadinessWaiter struct {
	readyChan chan struct{}
}

func (m *mockReadinessWaiter) WaitReady(ctx context.Context) error {
	select {
	case <-m.readyChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type mockShutdowner struct {
	called atomic.Bool
}

func (m *mockShutdowner) Shutdown(opts ...fx.ShutdownOption) error {
	m.called.Store(true)
	return nil
}

func newTestWorker(run func(ctx context.Context) error, opts options) (*baseWorker, *mockShutdowner, *mockReadinessWaiter) {
	shutdowner := &mockShutdowner{}
	waiter := &mockReadinessWaiter{readyChan: make(chan struct{})}
	return &baseWorker{
		name:       "test",
		log:        zap.NewNop(),
		run:        run,
		shutdowner: shutdowner,
		readiness:  waiter,
		opts:       opts,
	}, shutdowner, waiter
}

func TestWorker_StopCancelsRun(t *testing.T) {
	var started atomic.Bool
	w, _, _ := newTestWorker(func(ctx context.Context) error {
		started.Store(true)
		<-ctx.Done()
		return nil
	}, options{})

	w.start()
	assert.Eventually(t, started.Load, time.Second, 5*time.Millisecond)
	w.stop()
}

func TestWorker_WaitsForReadiness(t *testing.T) {
	var ran atomic.Bool
	w, _, waiter := newTestWorker(func(ctx context.Context) error {
		ran.Store(true)
		return nil
	}, options{waitReady: true})

	w.start()
	time.Sleep(20 * time.Millisecond)
	assert.False(t, ran.Load())

	close(waiter.readyChan)
	assert.Eventually(t, ran.Load, time.Second, 5*time.Millisecond)
	w.stop()
}

func TestWorker_StopWhileWaitingForReadiness(t *testing.T) {
	var ran atomic.Bool
	w, _, _ := newTestWorker(func(ctx context.Context) error {
		ran.Store(true)
		return nil
	}, options{waitReady: true})

	w.start()
	w.stop()

	assert.False(t, ran.Load())
}

func TestWorker_ErrorTriggersShutdown(t *testing.T) {
	tests := []struct {
		name             string
		opts             options
		expectedShutdown bool
	}{
		{name: "with shutdown", opts: options{shutdownOnError: true}, expectedShutdown: true},
		{name: "without shutdown", opts: options{}, expectedShutdown: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, shutdowner, _ := newTestWorker(func(ctx context.Context) error {
				return errors.New("subscription lost")
			}, tt.opts)

			w.start()
			w.stop()

			assert.Equal(t, tt.expectedShutdown, shutdowner.called.Load())
		})
	}
}

func TestRegister_OptionsApplied(t *testing.T) {
	o := options{}
	WithReady()(&o)
	WithShutdown()(&o)

	assert.True(t, o.waitReady)
	assert.True(t, o.shutdownOnError)
}
