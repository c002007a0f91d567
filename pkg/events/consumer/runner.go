package consumer

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Runner drives the reader and the processor of one consumer. A Runner built
// for a disabled consumer returns from Run immediately.
type Runner struct {
	reader    *reader
	processor *processor
}

// Run blocks until ctx is done or the reader hits a fatal broker error.
func (r *Runner) Run(ctx context.Context) error {
	if r.reader == nil || r.processor == nil {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.reader.run(ctx) })
	g.Go(func() error { return r.processor.run(ctx) })
	return g.Wait()
}
