package resource

import (
	"context"

	"github.com/michaelquigley/pfxlog"
	"github.com/openziti/resourcestore/kernel/adapter"
	"github.com/openziti/resourcestore/kernel/engine"
	"github.com/openziti/resourcestore/kernel/model"
	"github.com/openziti/resourcestore/kernel/registry"
	"github.com/openziti/resourcestore/kernel/store"
	"github.com/pkg/errors"
)

var ErrRecordNotFound = errors.New("record not found")

// Module bundles the registered resource types with the pure functions that
// operate on them. Its configuration is fixed at construction.
type Module struct {
	registry    *registry.Registry
	initial     *store.Snapshot
	orchestrate []engine.OrchestratorOption
}

type Option func(*Module)

// WithDedupe makes the orchestrator share one adapter call between concurrent
// intents for the same record.
func WithDedupe() Option {
	return func(m *Module) {
		m.orchestrate = append(m.orchestrate, engine.WithDedupe())
	}
}

func New(configs map[model.ResourceType]registry.ResourceConfig, opts ...Option) *Module {
	reg := registry.New()
	for resourceType, cfg := range configs {
		reg.Register(resourceType, cfg)
	}
	m := &Module{
		registry: reg,
		initial:  store.NewSnapshot(reg.Types()...),
	}
	for _, opt := range opts {
		opt(m)
	}
	pfxlog.Logger().Debugf("resource module created for types %v", reg.Types())
	return m
}

func (m *Module) FindRecordAction(resourceType model.ResourceType, id model.ResourceId, status model.Status) model.Action {
	return model.FindRecordAction(resourceType, id, status)
}

func (m *Module) FindAllAction(resourceType model.ResourceType, status model.Status) model.Action {
	return model.FindAllAction(resourceType, status)
}

// InitialState maps every registered type to empty records and statuses.
func (m *Module) InitialState() *store.Snapshot {
	return m.initial
}

// Reduce is the module's state transition function. A nil state yields the
// initial state.
func (m *Module) Reduce(state *store.Snapshot, action model.Action) *store.Snapshot {
	return store.Reduce(m.initial, state, action)
}

// Saga installs the module's effect handling on r. Result actions are
// dispatched through r.
func (m *Module) Saga(r *engine.Runner) *engine.Orchestrator {
	o := engine.NewOrchestrator(m.registry, r, m.orchestrate...)
	o.Watch(r)
	return o
}

func (m *Module) ConfigFor(resourceType model.ResourceType) (registry.ResourceConfig, error) {
	return m.registry.Lookup(resourceType)
}

func (m *Module) AdapterFor(resourceType model.ResourceType) (adapter.Adapter, error) {
	return m.registry.AdapterFor(resourceType)
}

func (m *Module) Types() []model.ResourceType {
	return m.registry.Types()
}

// Store is a memory store wired to the module's reducer and saga.
type Store struct {
	*store.MemoryStore
	Runner       *engine.Runner
	Orchestrator *engine.Orchestrator
	remove       func()
}

func (m *Module) NewStore(ctx context.Context, opts ...engine.RunnerOption) *Store {
	ms := store.NewMemoryStore(m.Reduce)
	r := engine.NewRunner(ctx, ms, opts...)
	o := m.Saga(r)
	return &Store{
		MemoryStore:  ms,
		Runner:       r,
		Orchestrator: o,
		remove:       ms.Use(r),
	}
}

// Close detaches the runner and waits for running tasks.
func (s *Store) Close() {
	s.remove()
	s.Runner.Close()
	s.Runner.Wait()
}

// Fetch dispatches a find-record intent on st and waits for its result. It
// returns the attributes stored for the record or the error the result
// carried.
func (m *Module) Fetch(ctx context.Context, st store.ActionStore, resourceType model.ResourceType, id model.ResourceId) (model.Attributes, error) {
	if _, err := m.AdapterFor(resourceType); err != nil {
		return nil, err
	}
	result, err := await(ctx, st, m.FindRecordAction(resourceType, id, model.StatusNone))
	if err != nil {
		return nil, err
	}
	if result.Status == model.StatusError {
		return nil, result.Payload.Err
	}
	attrs, ok := st.GetState().Record(resourceType, id)
	if !ok {
		return nil, errors.Wrapf(ErrRecordNotFound, "%s/%s", resourceType, id)
	}
	return attrs, nil
}

// FetchAll dispatches a find-all intent on st, waits for its result and
// returns every record of the type held by the store afterwards.
func (m *Module) FetchAll(ctx context.Context, st store.ActionStore, resourceType model.ResourceType) (map[model.ResourceId]model.Attributes, error) {
	if _, err := m.AdapterFor(resourceType); err != nil {
		return nil, err
	}
	result, err := await(ctx, st, m.FindAllAction(resourceType, model.StatusNone))
	if err != nil {
		return nil, err
	}
	if result.Status == model.StatusError {
		return nil, result.Payload.Err
	}
	ts, _ := st.GetState().TypeState(resourceType)
	return ts.Records, nil
}

func await(ctx context.Context, st store.ActionStore, intent model.Action) (model.Action, error) {
	done := make(chan model.Action, 1)
	remove := st.Use(store.ActionWatcherFunc(func(a model.Action) {
		if a.CorrelationId != intent.CorrelationId || a.IsIntent() {
			return
		}
		select {
		case done <- a:
		default:
		}
	}))
	defer remove()

	st.Dispatch(intent)
	select {
	case a := <-done:
		return a, nil
	case <-ctx.Done():
		return model.Action{}, errors.Wrapf(ctx.Err(), "waiting for %s %s", intent.Type, intent.ResourceType)
	}
}
