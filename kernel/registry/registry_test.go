package registry

import (
	"testing"

	"github.com/openziti/resourcestore/kernel/adapter"
	"github.com/openziti/resourcestore/kernel/model"
	"github.com/pkg/errors"
)

type stubAdapter struct {
	adapter.NopAdapter
	name string
}

func TestLookup_Registered(t *testing.T) {
	r := New()
	r.Register("post", ResourceConfig{BuildURL: adapter.TemplateURL("/posts/{id}", "")})

	cfg, err := r.Lookup("post")
	if err != nil {
		t.Fatalf("expected post to be registered, got error: %v", err)
	}
	if cfg.BuildURL == nil {
		t.Error("expected BuildURL to be kept")
	}
	if _, ok := cfg.Adapter.(*adapter.HTTPAdapter); !ok {
		t.Errorf("expected default HTTP adapter, got %T", cfg.Adapter)
	}
	if _, ok := cfg.Serializer.(adapter.JSONSerializer); !ok {
		t.Errorf("expected default JSON serializer, got %T", cfg.Serializer)
	}
}

func TestLookup_NotFound(t *testing.T) {
	_, err := New().Lookup("nonexistent")
	if err == nil {
		t.Fatal("expected error for nonexistent resource type")
	}
	if !errors.Is(err, ErrUnknownResourceType) {
		t.Errorf("expected ErrUnknownResourceType, got %v", err)
	}
}

func TestAdapterFor_Custom(t *testing.T) {
	r := New()
	custom := &stubAdapter{name: "custom"}
	r.Register("post", ResourceConfig{BuildURL: adapter.TemplateURL("/", ""), Adapter: custom})

	a, err := r.AdapterFor("post")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != custom {
		t.Error("expected the registered adapter to be returned")
	}
}

func TestAdapterFor_Unregistered(t *testing.T) {
	_, err := New().AdapterFor("nonexistent")
	if !errors.Is(err, ErrMissingAdapter) {
		t.Errorf("expected ErrMissingAdapter, got %v", err)
	}
	if !errors.Is(err, ErrUnknownResourceType) {
		t.Errorf("expected ErrUnknownResourceType, got %v", err)
	}
}

func TestRegister_DuplicateOverwrites(t *testing.T) {
	r := New()
	first := &stubAdapter{name: "first"}
	second := &stubAdapter{name: "second"}
	r.Register("post", ResourceConfig{Adapter: first})
	r.Register("post", ResourceConfig{Adapter: second})

	a, _ := r.AdapterFor("post")
	if a != second {
		t.Error("expected second registration to win")
	}
	if len(r.Types()) != 1 {
		t.Errorf("expected 1 type, got %d", len(r.Types()))
	}
}

func TestTypes_Sorted(t *testing.T) {
	r := New()
	for _, rt := range []model.ResourceType{"post", "comment", "author"} {
		r.Register(rt, ResourceConfig{})
	}
	types := r.Types()
	expected := []model.ResourceType{"author", "comment", "post"}
	for i := range expected {
		if types[i] != expected[i] {
			t.Errorf("expected %s at %d, got %s", expected[i], i, types[i])
		}
	}
}
