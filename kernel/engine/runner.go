package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/michaelquigley/pfxlog"
	"github.com/openziti/resourcestore/kernel/model"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

// Handler handles one matched action. Each invocation runs as its own task.
type Handler func(ctx context.Context, action model.Action) error

type Dispatcher interface {
	Dispatch(action model.Action)
}

// TaskFailure is called for tasks that returned an error or panicked.
type TaskFailure func(action model.Action, err error)

// Runner runs effect tasks. It is installed on a store as an action watcher;
// for every observed action it spawns one task per handler registered for
// the action's type, in observation order. Tasks run to completion and talk
// to the store only through Dispatch.
type Runner struct {
	ctx        context.Context
	dispatcher Dispatcher
	onFailure  TaskFailure

	mu      sync.RWMutex
	watches map[model.ActionType][]Handler
	closed  bool

	tasks    conc.WaitGroup
	failures atomic.Int64
}

type RunnerOption func(*Runner)

func WithTaskFailure(f TaskFailure) RunnerOption {
	return func(r *Runner) {
		r.onFailure = f
	}
}

func NewRunner(ctx context.Context, dispatcher Dispatcher, opts ...RunnerOption) *Runner {
	if ctx == nil {
		ctx = context.Background()
	}
	r := &Runner{
		ctx:        ctx,
		dispatcher: dispatcher,
		watches:    make(map[model.ActionType][]Handler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TakeEvery registers a standing watch: handler runs for every action of
// actionType, without waiting for earlier invocations to finish.
func (r *Runner) TakeEvery(actionType model.ActionType, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.watches[actionType] = append(r.watches[actionType], handler)
}

func (r *Runner) Dispatch(action model.Action) {
	r.dispatcher.Dispatch(action)
}

func (r *Runner) Observe(action model.Action) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	for _, handler := range r.watches[action.Type] {
		h := handler
		r.tasks.Go(func() { r.run(h, action) })
	}
}

// Failures is the number of tasks that ended in an unhandled failure.
func (r *Runner) Failures() int64 {
	return r.failures.Load()
}

// Wait blocks until every spawned task, including tasks spawned while
// waiting, has finished.
func (r *Runner) Wait() {
	r.tasks.Wait()
}

// Close stops admitting new tasks. Running tasks are not interrupted.
func (r *Runner) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}

func (r *Runner) run(h Handler, action model.Action) {
	var err error
	var pc panics.Catcher
	pc.Try(func() { err = h(r.ctx, action) })
	if recovered := pc.Recovered(); recovered != nil {
		err = recovered.AsError()
	}
	if err == nil {
		return
	}

	r.failures.Add(1)
	pfxlog.Logger().
		WithField("action", string(action.Type)).
		WithField("resourceType", string(action.ResourceType)).
		WithField("correlationId", action.CorrelationId).
		WithError(err).
		Error("unhandled task failure")
	if r.onFailure != nil {
		r.onFailure(action, err)
	}
}
