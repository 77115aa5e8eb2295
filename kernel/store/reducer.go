package store

import "github.com/openziti/resourcestore/kernel/model"

// Reducer is the state transition function of a MemoryStore.
type Reducer func(state *Snapshot, action model.Action) *Snapshot

// Reduce returns the snapshot following state after action. A nil state
// yields initial. Only result actions change the snapshot:
//
//   - find-record success merges the document and clears the record's status
//   - find-record error marks the record's status as error
//   - find-all success merges the document
//
// Everything else, intents included, passes state through unchanged.
func Reduce(initial, state *Snapshot, action model.Action) *Snapshot {
	if state == nil {
		return initial
	}

	switch action.Type {
	case model.FindRecord:
		switch action.Status {
		case model.StatusSuccess:
			next := Merge(state, action.Payload.Document)
			return next.WithStatus(action.ResourceType, action.Payload.Id, model.StatusNone)
		case model.StatusError:
			return state.WithStatus(action.ResourceType, action.Payload.Id, model.StatusError)
		}

	case model.FindAll:
		if action.Status == model.StatusSuccess {
			return Merge(state, action.Payload.Document)
		}
	}

	return state
}
