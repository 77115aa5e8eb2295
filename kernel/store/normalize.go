package store

import (
	"maps"

	"github.com/openziti/resourcestore/kernel/model"
)

// Merge folds the records of doc into s, in document order, and returns the
// resulting snapshot. Each record replaces the attributes stored under its
// (type, id); later records for the same key win. recordStatus is left alone.
// Records with an empty type or id, or a type the snapshot does not track,
// are skipped. s is never modified.
func Merge(s *Snapshot, doc model.Document) *Snapshot {
	if s == nil || doc.IsEmpty() {
		return s
	}

	var next *Snapshot
	copied := make(map[model.ResourceType]bool)
	for _, r := range doc.Records() {
		if r.Type == "" || r.Id == "" || !s.Has(r.Type) {
			continue
		}
		if next == nil {
			next = s.shallowCopy()
		}
		ts := next.types[r.Type]
		if !copied[r.Type] {
			ts = TypeState{Records: maps.Clone(ts.Records), RecordStatus: ts.RecordStatus}
			if ts.Records == nil {
				ts.Records = make(map[model.ResourceId]model.Attributes)
			}
			next.types[r.Type] = ts
			copied[r.Type] = true
		}
		ts.Records[r.Id] = r.Attributes.Clone()
	}

	if next == nil {
		return s
	}
	return next
}
