package store

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/openziti/resourcestore/kernel/model"
	cmap "github.com/orcaman/concurrent-map/v2"
)

var _ ActionStore = (*MemoryStore)(nil)

// InitAction is reduced once when a MemoryStore is created.
const InitAction model.ActionType = "@@store/INIT"

// MemoryStore is the in-process action store. Actions are reduced strictly one
// at a time in the order they were dispatched; the reducer is never
// re-entered. An action dispatched while another is being processed, by a
// listener or by another goroutine, is queued and processed by the goroutine
// already draining the queue.
type MemoryStore struct {
	reducer Reducer
	state   atomic.Pointer[Snapshot]

	mu       sync.Mutex
	queue    []model.Action
	draining bool

	listeners cmap.ConcurrentMap[string, Listener]
	watchers  cmap.ConcurrentMap[string, ActionWatcher]
}

func NewMemoryStore(reducer Reducer) *MemoryStore {
	s := &MemoryStore{
		reducer:   reducer,
		queue:     make([]model.Action, 0, 16),
		listeners: cmap.New[Listener](),
		watchers:  cmap.New[ActionWatcher](),
	}
	s.state.Store(reducer(nil, model.Action{Type: InitAction}))
	return s
}

func (s *MemoryStore) GetState() *Snapshot {
	return s.state.Load()
}

func (s *MemoryStore) Subscribe(listener Listener) func() {
	id := uuid.NewString()
	s.listeners.Set(id, listener)
	return func() { s.listeners.Remove(id) }
}

func (s *MemoryStore) Use(watcher ActionWatcher) func() {
	id := uuid.NewString()
	s.watchers.Set(id, watcher)
	return func() { s.watchers.Remove(id) }
}

func (s *MemoryStore) Dispatch(action model.Action) {
	s.mu.Lock()
	s.queue = append(s.queue, action)
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	defer func() {
		if r := recover(); r != nil {
			// actions queued by others stay queued for the next Dispatch
			s.mu.Lock()
			s.draining = false
			s.mu.Unlock()
			panic(r)
		}
	}()

	for len(s.queue) > 0 {
		next := s.queue[0]
		s.queue[0] = model.Action{}
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.process(next)

		s.mu.Lock()
	}
	s.queue = s.queue[:0]
	s.draining = false
	s.mu.Unlock()
}

func (s *MemoryStore) process(action model.Action) {
	s.state.Store(s.reducer(s.state.Load(), action))

	for _, listener := range s.listeners.Items() {
		listener()
	}
	for _, watcher := range s.watchers.Items() {
		watcher.Observe(action)
	}
}
