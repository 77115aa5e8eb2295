package model

import (
	"bytes"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

type documentKind uint8

const (
	emptyDocument documentKind = iota
	singleDocument
	manyDocument
)

// Document is a response document: either a single Record or an ordered
// sequence of records. The shape is decided once, when the document is
// decoded, and the zero value is the empty document.
type Document struct {
	kind    documentKind
	records []Record
}

func Single(r Record) Document {
	return Document{kind: singleDocument, records: []Record{r}}
}

func Many(records ...Record) Document {
	cp := make([]Record, len(records))
	copy(cp, records)
	return Document{kind: manyDocument, records: cp}
}

func (d Document) IsEmpty() bool {
	return d.kind == emptyDocument
}

func (d Document) IsSingle() bool {
	return d.kind == singleDocument
}

func (d Document) IsMany() bool {
	return d.kind == manyDocument
}

func (d Document) Len() int {
	return len(d.records)
}

// Records returns the records of the document in document order.
func (d Document) Records() []Record {
	cp := make([]Record, len(d.records))
	copy(cp, d.records)
	return cp
}

// UnmarshalJSON decodes an object as a single record and an array as a
// sequence. Array elements that are not objects are skipped; any other JSON
// value decodes to the empty document.
func (d *Document) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*d = Document{}
		return nil
	}

	switch data[0] {
	case '{':
		var r Record
		if err := json.Unmarshal(data, &r); err != nil {
			return errors.Wrap(err, "failed to decode record")
		}
		*d = Single(r)

	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return errors.Wrap(err, "failed to decode record sequence")
		}
		records := make([]Record, 0, len(raw))
		for i, elem := range raw {
			elem = bytes.TrimSpace(elem)
			if len(elem) == 0 || elem[0] != '{' {
				continue
			}
			var r Record
			if err := json.Unmarshal(elem, &r); err != nil {
				return errors.Wrapf(err, "failed to decode record at index %d", i)
			}
			records = append(records, r)
		}
		*d = Document{kind: manyDocument, records: records}

	default:
		*d = Document{}
	}
	return nil
}

func (d Document) MarshalJSON() ([]byte, error) {
	switch d.kind {
	case singleDocument:
		return json.Marshal(d.records[0])
	case manyDocument:
		return json.Marshal(d.records)
	default:
		return []byte("null"), nil
	}
}
