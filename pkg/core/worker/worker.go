package worker

import (
	"context"
	"sync"

	"github.com/relaydocs/document-events/pkg/core/health"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type runnable interface {
	Run(ctx context.Context) error
}

type options struct {
	waitReady       bool
	shutdownOnError bool
}

// Option configures a worker registered with Register.
type Option func(*options)

// WithReady delays Run until every health component is ready.
func WithReady() Option {
	return func(o *options) {
		o.waitReady = true
	}
}

// WithShutdown stops the application when Run returns an error.
func WithShutdown() Option {
	return func(o *options) {
		o.shutdownOnError = true
	}
}

type baseWorker struct {
	name       string
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	log        *zap.Logger
	run        func(ctx context.Context) error
	shutdowner fx.Shutdowner
	readiness  health.ReadinessWaiter
	opts       options
}

func (w *baseWorker) start() {
	w.log.Info("starting worker")
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop(ctx)
	}()
}

func (w *baseWorker) loop(ctx context.Context) {
	if w.opts.waitReady {
		if err := w.readiness.WaitReady(ctx); err != nil {
			w.log.Info("worker cancelled while waiting for readiness")
			return
		}
	}

	err := w.run(ctx)
	if err == nil {
		w.log.Info("worker stopped")
		return
	}

	if !w.opts.shutdownOnError {
		w.log.Error("worker stopped with error", zap.Error(err))
		return
	}
	w.log.Error("worker failed, initiating shutdown", zap.Error(err))
	if shutdownErr := w.shutdowner.Shutdown(fx.ExitCode(1)); shutdownErr != nil {
		w.log.Error("failed to initiate shutdown", zap.Error(shutdownErr))
	}
}

func (w *baseWorker) stop() {
	w.log.Info("stopping worker")
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

// Register returns an fx constructor that runs T.Run for the lifetime of the
// application.
//
//	fx.Invoke(worker.Register[*consumer.Runner]("kafka-consumer", worker.WithReady(), worker.WithShutdown()))
func Register[T runnable](name string, opts ...Option) any {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	return func(lc fx.Lifecycle, log *zap.Logger, shutdowner fx.Shutdowner, readiness health.ReadinessWaiter, dep T) {
		w := &baseWorker{
			name:       name,
			log:        log.With(zap.String("worker", name)),
			run:        dep.Run,
			shutdowner: shutdowner,
			readiness:  readiness,
			opts:       o,
		}
		lc.Append(fx.StartStopHook(w.start, w.stop))
	}
}
