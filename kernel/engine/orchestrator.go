package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/michaelquigley/pfxlog"
	"github.com/openziti/resourcestore/kernel/adapter"
	"github.com/openziti/resourcestore/kernel/model"
	"github.com/openziti/resourcestore/kernel/registry"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/pkg/errors"
	"github.com/sourcegraph/conc/panics"
	"golang.org/x/sync/singleflight"
)

var ErrEmptyResponse = errors.New("adapter returned no response")

// Resolver resolves the configuration of a resource type.
type Resolver interface {
	Lookup(resourceType model.ResourceType) (registry.ResourceConfig, error)
	AdapterFor(resourceType model.ResourceType) (adapter.Adapter, error)
}

// Orchestrator turns intent actions into adapter calls and dispatches the
// outcome as a result action. It never touches the snapshot.
type Orchestrator struct {
	resolver   Resolver
	dispatcher Dispatcher
	dedupe     bool
	flights    singleflight.Group
	inflight   cmap.ConcurrentMap[string, int]
	metrics    *orchestratorMetrics
}

type OrchestratorOption func(*Orchestrator)

// WithDedupe shares one adapter call between concurrent intents for the same
// key. Every intent still receives its own result action.
func WithDedupe() OrchestratorOption {
	return func(o *Orchestrator) {
		o.dedupe = true
	}
}

func NewOrchestrator(resolver Resolver, dispatcher Dispatcher, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		resolver:   resolver,
		dispatcher: dispatcher,
		inflight:   cmap.New[int](),
		metrics:    newOrchestratorMetrics(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Watch registers the orchestrator's standing watches on r.
func (o *Orchestrator) Watch(r *Runner) {
	r.TakeEvery(model.FindRecord, o.HandleFindRecord)
	r.TakeEvery(model.FindAll, o.HandleFindAll)
}

// HandleFindRecord handles one find-record action. Result actions are
// ignored. Configuration errors are returned and surface as task failures;
// adapter errors are dispatched as error actions.
func (o *Orchestrator) HandleFindRecord(ctx context.Context, action model.Action) error {
	if !action.IsIntent() {
		return nil
	}
	a, cfg, err := o.resolve(action.ResourceType)
	if err != nil {
		return err
	}

	key := flightKey(action.Type, action.ResourceType, action.Payload.Id)
	resp, err := o.call(ctx, key, action, func(ctx context.Context) (*adapter.Response, error) {
		return a.FindRecord(ctx, cfg.BuildURL, action.ResourceType, action.Payload.Id)
	})
	o.settle(action, resp, err)
	return nil
}

func (o *Orchestrator) HandleFindAll(ctx context.Context, action model.Action) error {
	if !action.IsIntent() {
		return nil
	}
	a, cfg, err := o.resolve(action.ResourceType)
	if err != nil {
		return err
	}

	key := flightKey(action.Type, action.ResourceType, "")
	resp, err := o.call(ctx, key, action, func(ctx context.Context) (*adapter.Response, error) {
		return a.FindAll(ctx, cfg.BuildURL, action.ResourceType)
	})
	o.settle(action, resp, err)
	return nil
}

// InFlight returns the number of adapter calls in progress per key.
func (o *Orchestrator) InFlight() map[string]int {
	return o.inflight.Items()
}

func (o *Orchestrator) resolve(resourceType model.ResourceType) (adapter.Adapter, registry.ResourceConfig, error) {
	a, err := o.resolver.AdapterFor(resourceType)
	if err != nil {
		return nil, registry.ResourceConfig{}, err
	}
	cfg, err := o.resolver.Lookup(resourceType)
	if err != nil {
		return nil, registry.ResourceConfig{}, err
	}
	return a, cfg, nil
}

func (o *Orchestrator) call(ctx context.Context, key string, action model.Action, fn func(context.Context) (*adapter.Response, error)) (resp *adapter.Response, err error) {
	o.track(key, 1)
	defer o.track(key, -1)

	pfxlog.Logger().WithField("key", key).WithField("correlationId", action.CorrelationId).Debug("calling adapter")
	start := time.Now()

	guarded := func() (*adapter.Response, error) {
		var resp *adapter.Response
		var err error
		var pc panics.Catcher
		pc.Try(func() { resp, err = fn(ctx) })
		if recovered := pc.Recovered(); recovered != nil {
			return nil, recovered.AsError()
		}
		return resp, err
	}

	if o.dedupe {
		v, doErr, _ := o.flights.Do(key, func() (interface{}, error) {
			return guarded()
		})
		resp, _ = v.(*adapter.Response)
		err = doErr
	} else {
		resp, err = guarded()
	}

	if err == nil && resp == nil {
		err = ErrEmptyResponse
	}
	o.metrics.recordFetch(ctx, action, time.Since(start), err)
	return resp, err
}

func (o *Orchestrator) settle(action model.Action, resp *adapter.Response, err error) {
	if err != nil {
		pfxlog.Logger().
			WithField("action", string(action.Type)).
			WithField("resourceType", string(action.ResourceType)).
			WithField("id", string(action.Payload.Id)).
			WithError(err).
			Warn("fetch failed")
		o.dispatcher.Dispatch(action.Failed(err))
		return
	}
	o.dispatcher.Dispatch(action.Succeeded(resp.Data))
}

func (o *Orchestrator) track(key string, delta int) {
	o.inflight.Upsert(key, delta, func(exist bool, current int, n int) int {
		if exist {
			return current + n
		}
		return n
	})
	if delta < 0 {
		o.inflight.RemoveCb(key, func(_ string, v int, exists bool) bool {
			return exists && v <= 0
		})
	}
}

func flightKey(actionType model.ActionType, resourceType model.ResourceType, id model.ResourceId) string {
	return fmt.Sprintf("%s|%s|%s", actionType, resourceType, id)
}
