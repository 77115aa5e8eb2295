package store

import "github.com/openziti/resourcestore/kernel/model"

// StateStore exposes the committed snapshot of a store.
type StateStore interface {
	GetState() *Snapshot
	Subscribe(listener Listener) (unsubscribe func())
}

// ActionStore extends StateStore with action dispatch.
type ActionStore interface {
	StateStore
	Dispatch(action model.Action)
	Use(watcher ActionWatcher) (remove func())
}

// Listener is notified after every committed transition.
type Listener func()

// ActionWatcher observes every action after it has been reduced and the
// listeners have been notified.
type ActionWatcher interface {
	Observe(action model.Action)
}

type ActionWatcherFunc func(action model.Action)

func (f ActionWatcherFunc) Observe(action model.Action) {
	f(action)
}
