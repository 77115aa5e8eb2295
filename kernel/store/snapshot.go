package store

import (
	"maps"
	"sort"

	"github.com/goccy/go-json"
	"github.com/openziti/resourcestore/kernel/model"
)

// TypeState is the slice of a snapshot belonging to one resource type.
type TypeState struct {
	Records      map[model.ResourceId]model.Attributes `json:"records"`
	RecordStatus map[model.ResourceId]model.Status     `json:"recordStatus"`
}

func emptyTypeState() TypeState {
	return TypeState{
		Records:      make(map[model.ResourceId]model.Attributes),
		RecordStatus: make(map[model.ResourceId]model.Status),
	}
}

func (ts TypeState) clone() TypeState {
	out := TypeState{
		Records:      make(map[model.ResourceId]model.Attributes, len(ts.Records)),
		RecordStatus: maps.Clone(ts.RecordStatus),
	}
	for id, attrs := range ts.Records {
		out.Records[id] = attrs.Clone()
	}
	if out.RecordStatus == nil {
		out.RecordStatus = make(map[model.ResourceId]model.Status)
	}
	return out
}

// Snapshot is the immutable state of the store. Every transition produces a
// new Snapshot; maps reachable from a published Snapshot are never written.
type Snapshot struct {
	types map[model.ResourceType]TypeState
}

// NewSnapshot creates a snapshot with one empty entry per resource type.
func NewSnapshot(types ...model.ResourceType) *Snapshot {
	s := &Snapshot{types: make(map[model.ResourceType]TypeState, len(types))}
	for _, t := range types {
		s.types[t] = emptyTypeState()
	}
	return s
}

func (s *Snapshot) Has(resourceType model.ResourceType) bool {
	_, ok := s.types[resourceType]
	return ok
}

func (s *Snapshot) Types() []model.ResourceType {
	types := make([]model.ResourceType, 0, len(s.types))
	for t := range s.types {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

func (s *Snapshot) Record(resourceType model.ResourceType, id model.ResourceId) (model.Attributes, bool) {
	attrs, ok := s.types[resourceType].Records[id]
	return attrs.Clone(), ok
}

// Status returns the tracked status of a record, StatusNone when untracked.
func (s *Snapshot) Status(resourceType model.ResourceType, id model.ResourceId) model.Status {
	return s.types[resourceType].RecordStatus[id]
}

// TypeState returns a copy of the state of resourceType.
func (s *Snapshot) TypeState(resourceType model.ResourceType) (TypeState, bool) {
	ts, ok := s.types[resourceType]
	if !ok {
		return TypeState{}, false
	}
	return ts.clone(), true
}

// View returns a deep copy of the snapshot as plain maps.
func (s *Snapshot) View() map[model.ResourceType]TypeState {
	out := make(map[model.ResourceType]TypeState, len(s.types))
	for t, ts := range s.types {
		out[t] = ts.clone()
	}
	return out
}

func (s *Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.types)
}

// WithStatus returns a snapshot where the record's status is status.
// StatusNone removes the entry. Unknown types and empty ids are a no-op.
func (s *Snapshot) WithStatus(resourceType model.ResourceType, id model.ResourceId, status model.Status) *Snapshot {
	ts, ok := s.types[resourceType]
	if !ok || id == "" {
		return s
	}
	current, tracked := ts.RecordStatus[id]
	if status == model.StatusNone && !tracked {
		return s
	}
	if tracked && current == status {
		return s
	}

	next := s.shallowCopy()
	recordStatus := maps.Clone(ts.RecordStatus)
	if recordStatus == nil {
		recordStatus = make(map[model.ResourceId]model.Status)
	}
	if status == model.StatusNone {
		delete(recordStatus, id)
	} else {
		recordStatus[id] = status
	}
	next.types[resourceType] = TypeState{Records: ts.Records, RecordStatus: recordStatus}
	return next
}

func (s *Snapshot) shallowCopy() *Snapshot {
	return &Snapshot{types: maps.Clone(s.types)}
}
