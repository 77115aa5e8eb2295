package adapter

import (
	"bytes"

	"github.com/goccy/go-json"
	"github.com/oliveagle/jsonpath"
	"github.com/openziti/resourcestore/kernel/model"
	"github.com/pkg/errors"
)

const DefaultDataPath = "$.data"

var ErrEmptyBody = errors.New("empty response body")

// Serializer turns a raw response body into a Response.
type Serializer interface {
	Decode(body []byte) (*Response, error)
}

func DefaultSerializer() Serializer {
	return JSONSerializer{}
}

// JSONSerializer decodes bodies of the form {"data": <document>}.
type JSONSerializer struct{}

func (JSONSerializer) Decode(body []byte) (*Response, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmptyBody
	}
	var envelope struct {
		Data model.Document `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, errors.Wrap(err, "failed to decode response body")
	}
	return &Response{Data: envelope.Data}, nil
}

// JSONPathSerializer locates the document at Path inside an arbitrary body,
// e.g. "$.result.items".
type JSONPathSerializer struct {
	Path string
}

func (s JSONPathSerializer) Decode(body []byte) (*Response, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmptyBody
	}
	// numbers stay json.Number so ids survive the round trip unchanged
	var obj interface{}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&obj); err != nil {
		return nil, errors.Wrap(err, "failed to decode response body")
	}

	found, err := jsonpath.JsonPathLookup(obj, s.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "document not found at [%s]", s.Path)
	}

	raw, err := json.Marshal(found)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to re-encode document at [%s]", s.Path)
	}
	var doc model.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrapf(err, "failed to decode document at [%s]", s.Path)
	}
	return &Response{Data: doc}, nil
}
