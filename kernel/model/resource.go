package model

import (
	"bytes"
	"maps"
	"math/big"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// ResourceType tags a kind of record, e.g. "post".
type ResourceType string

// ResourceId identifies a record within its ResourceType. Numeric ids are kept
// in their decimal text form so that 1 and "1" address the same record.
type ResourceId string

func IntId(id int64) ResourceId {
	return ResourceId(strconv.FormatInt(id, 10))
}

func (id ResourceId) String() string {
	return string(id)
}

func (id *ResourceId) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return errors.Wrap(err, "failed to decode resource id")
		}
		*id = ResourceId(s)
		return nil
	}
	canonical, err := canonicalNumber(string(data))
	if err != nil {
		return err
	}
	*id = ResourceId(canonical)
	return nil
}

// canonicalNumber renders a JSON number the way it keys a record: integral
// values as plain integer text (1.0 and 1e0 become "1"), exactly, at any size.
func canonicalNumber(text string) (string, error) {
	if _, err := strconv.ParseFloat(text, 64); err != nil {
		if numErr, ok := err.(*strconv.NumError); !ok || numErr.Err != strconv.ErrRange {
			return "", errors.Errorf("resource id must be a string or a number, got %s", text)
		}
	}
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return strconv.FormatInt(i, 10), nil
	}
	r, ok := new(big.Rat).SetString(text)
	if !ok {
		return "", errors.Errorf("resource id must be a string or a number, got %s", text)
	}
	if r.IsInt() {
		return r.Num().String(), nil
	}
	f, _ := r.Float64()
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}

// Attributes is the opaque attribute bag of a record. It is stored verbatim.
type Attributes map[string]any

func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	return maps.Clone(a)
}

// Record is a single resource instance as it appears in a response document.
type Record struct {
	Type       ResourceType `json:"type"`
	Id         ResourceId   `json:"id"`
	Attributes Attributes   `json:"attributes"`
}
