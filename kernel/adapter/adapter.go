package adapter

import (
	"context"

	"github.com/michaelquigley/pfxlog"
	"github.com/openziti/resourcestore/kernel/model"
	"github.com/openziti/resourcestore/kernel/transport"
)

// BuildURL computes the remote url for an operation. id is empty for
// operations that do not address a single record.
type BuildURL func(actionType model.ActionType, resourceType model.ResourceType, id model.ResourceId) string

// Response is the decoded body of a remote call, `{data: Document}`.
type Response struct {
	Data model.Document
}

// Adapter performs the remote operations for one resource type.
type Adapter interface {
	FindAll(ctx context.Context, buildURL BuildURL, resourceType model.ResourceType) (*Response, error)
	FindRecord(ctx context.Context, buildURL BuildURL, resourceType model.ResourceType, id model.ResourceId) (*Response, error)
	CreateRecord(ctx context.Context, buildURL BuildURL, record model.Record) (*Response, error)
	UpdateRecord(ctx context.Context, buildURL BuildURL, record model.Record) (*Response, error)
	DeleteRecord(ctx context.Context, buildURL BuildURL, resourceType model.ResourceType, id model.ResourceId) error
}

// NopAdapter implements every operation as a no-op. Embed it to supply only
// the operations an adapter actually supports.
type NopAdapter struct{}

func (NopAdapter) FindAll(context.Context, BuildURL, model.ResourceType) (*Response, error) {
	return nil, nil
}

func (NopAdapter) FindRecord(context.Context, BuildURL, model.ResourceType, model.ResourceId) (*Response, error) {
	return nil, nil
}

func (NopAdapter) CreateRecord(context.Context, BuildURL, model.Record) (*Response, error) {
	return nil, nil
}

func (NopAdapter) UpdateRecord(context.Context, BuildURL, model.Record) (*Response, error) {
	return nil, nil
}

func (NopAdapter) DeleteRecord(context.Context, BuildURL, model.ResourceType, model.ResourceId) error {
	return nil
}

// HTTPAdapter is the default adapter: reads are a single GET against the url
// built for the operation, writes are no-ops.
type HTTPAdapter struct {
	NopAdapter
	client     transport.Client
	serializer Serializer
}

func NewHTTPAdapter(client transport.Client, serializer Serializer) *HTTPAdapter {
	if client == nil {
		client = transport.New()
	}
	if serializer == nil {
		serializer = DefaultSerializer()
	}
	return &HTTPAdapter{client: client, serializer: serializer}
}

func (a *HTTPAdapter) FindRecord(ctx context.Context, buildURL BuildURL, resourceType model.ResourceType, id model.ResourceId) (*Response, error) {
	return a.get(ctx, buildURL(model.FindRecord, resourceType, id))
}

func (a *HTTPAdapter) FindAll(ctx context.Context, buildURL BuildURL, resourceType model.ResourceType) (*Response, error) {
	return a.get(ctx, buildURL(model.FindAll, resourceType, ""))
}

func (a *HTTPAdapter) get(ctx context.Context, target string) (*Response, error) {
	resp, err := a.client.Get(ctx, target)
	if err != nil {
		pfxlog.Logger().WithField("url", target).WithError(err).Warn("fetch failed")
		return nil, err
	}
	return a.serializer.Decode(resp.Body)
}
