package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/openziti/resourcestore/kernel/adapter"
	"github.com/openziti/resourcestore/kernel/model"
	"github.com/pkg/errors"
)

var (
	ErrUnknownResourceType = errors.New("unknown resource type")
	ErrMissingAdapter      = errors.New("missing adapter")
)

// ResourceConfig is the per-type configuration. Adapter and Serializer are
// optional on registration and defaulted by the registry.
type ResourceConfig struct {
	BuildURL   adapter.BuildURL
	Adapter    adapter.Adapter
	Serializer adapter.Serializer
}

// Registry maps resource types to their configuration. It is populated when
// a module is constructed and only read afterwards.
type Registry struct {
	mu      sync.RWMutex
	configs map[model.ResourceType]ResourceConfig
}

func New() *Registry {
	return &Registry{configs: make(map[model.ResourceType]ResourceConfig)}
}

// Register stores cfg for resourceType, replacing any earlier registration.
// A missing serializer becomes the JSON serializer, a missing adapter becomes
// an HTTP adapter bound to that serializer.
func (r *Registry) Register(resourceType model.ResourceType, cfg ResourceConfig) {
	if cfg.Serializer == nil {
		cfg.Serializer = adapter.DefaultSerializer()
	}
	if cfg.Adapter == nil {
		cfg.Adapter = adapter.NewHTTPAdapter(nil, cfg.Serializer)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[resourceType] = cfg
}

func (r *Registry) Lookup(resourceType model.ResourceType) (ResourceConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.configs[resourceType]
	if !ok {
		return ResourceConfig{}, errors.Wrapf(ErrUnknownResourceType, "couldn't find configuration for type '%s'", resourceType)
	}
	return cfg, nil
}

// AdapterFor resolves the adapter of resourceType. For an unregistered type
// the error matches both ErrMissingAdapter and ErrUnknownResourceType.
func (r *Registry) AdapterFor(resourceType model.ResourceType) (adapter.Adapter, error) {
	cfg, err := r.Lookup(resourceType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMissingAdapter, err)
	}
	if cfg.Adapter == nil {
		return nil, errors.Wrapf(ErrMissingAdapter, "couldn't find an adapter for type '%s'", resourceType)
	}
	return cfg.Adapter, nil
}

// Types returns the registered resource types in sorted order.
func (r *Registry) Types() []model.ResourceType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]model.ResourceType, 0, len(r.configs))
	for t := range r.configs {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
