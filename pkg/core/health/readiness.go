package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ComponentStatus describes one registered startup dependency.
type ComponentStatus struct {
	Name      string
	Ready     bool
	StartedAt time.Time
	ReadyAt   time.Time
}

// Status is a snapshot of the process readiness.
type Status struct {
	Ready      bool
	Components []ComponentStatus
}

// ComponentManager registers components that must become ready before
// background workers start. The consumer registers its subscription here,
// the publisher its broker connectivity check.
type ComponentManager interface {
	AddComponent(name string) (markReady func())
}

// ReadinessWaiter blocks until every registered component is ready.
type ReadinessWaiter interface {
	WaitReady(ctx context.Context) error
}

// ReadinessChecker reports the current readiness.
type ReadinessChecker interface {
	IsReady() bool
	Status() Status
}

type component struct {
	ready     bool
	startedAt time.Time
	readyAt   time.Time
}

type readiness struct {
	mu         sync.Mutex
	components map[string]*component
	sealed     bool
	readyChan  chan struct{}
	readyOnce  sync.Once
	log        *zap.Logger
}

func newReadiness(log *zap.Logger) *readiness {
	return &readiness{
		components: make(map[string]*component),
		readyChan:  make(chan struct{}),
		log:        log,
	}
}

func (r *readiness) AddComponent(name string) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.components[name]; !ok {
		r.components[name] = &component{startedAt: time.Now()}
	}
	return func() { r.markReady(name) }
}

func (r *readiness) markReady(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.components[name]
	if !ok || c.ready {
		return
	}
	c.ready = true
	c.readyAt = time.Now()
	r.log.Info("component ready", zap.String("component", name), zap.Duration("took", c.readyAt.Sub(c.startedAt)))

	if r.sealed {
		r.closeIfAllReady()
	}
}

// seal marks the component set as complete. Components register from their
// constructors, which fx runs before any OnStart hook.
func (r *readiness) seal() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sealed = true
	r.closeIfAllReady()
}

func (r *readiness) closeIfAllReady() {
	for _, c := range r.components {
		if !c.ready {
			return
		}
	}
	r.readyOnce.Do(func() {
		close(r.readyChan)
		r.log.Info("all components are ready", zap.Int("component_count", len(r.components)))
	})
}

func (r *readiness) IsReady() bool {
	select {
	case <-r.readyChan:
		return true
	default:
		return false
	}
}

func (r *readiness) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	status := Status{
		Ready:      r.IsReady(),
		Components: make([]ComponentStatus, 0, len(r.components)),
	}
	for name, c := range r.components {
		status.Components = append(status.Components, ComponentStatus{
			Name:      name,
			Ready:     c.ready,
			StartedAt: c.startedAt,
			ReadyAt:   c.readyAt,
		})
	}
	sort.Slice(status.Components, func(i, j int) bool {
		return status.Components[i].Name < status.Components[j].Name
	})
	return status
}

func (r *readiness) WaitReady(ctx context.Context) error {
	select {
	case <-r.readyChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
