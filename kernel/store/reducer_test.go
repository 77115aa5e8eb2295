package store

import (
	"errors"
	"testing"

	"github.com/openziti/resourcestore/kernel/model"
	"github.com/stretchr/testify/assert"
)

func TestReduce_InitialState(t *testing.T) {
	initial := NewSnapshot("post", "comment")

	for _, a := range []model.Action{
		{Type: InitAction},
		model.FindRecordAction("post", "1", model.StatusSuccess),
		{Type: "SOMETHING/ELSE"},
	} {
		got := Reduce(initial, nil, a)
		assert.Same(t, initial, got)
	}

	empty := TypeState{
		Records:      map[model.ResourceId]model.Attributes{},
		RecordStatus: map[model.ResourceId]model.Status{},
	}
	assert.Equal(t, map[model.ResourceType]TypeState{"post": empty, "comment": empty}, initial.View())
}

func TestReduce_FindRecordSuccessMerges(t *testing.T) {
	initial := NewSnapshot("post")
	intent := model.FindRecordAction("post", "1", model.StatusNone)
	next := Reduce(initial, initial, intent.Succeeded(model.Single(post("1", "Hello World"))))

	attrs, ok := next.Record("post", "1")
	assert.True(t, ok)
	assert.Equal(t, "Hello World", attrs["title"])
	assert.Empty(t, next.View()["post"].RecordStatus)
}

func TestReduce_IntentPassesThrough(t *testing.T) {
	initial := NewSnapshot("post")
	assert.Same(t, initial, Reduce(initial, initial, model.FindRecordAction("post", "1", model.StatusNone)))
	assert.Same(t, initial, Reduce(initial, initial, model.FindAllAction("post", model.StatusNone)))
}

func TestReduce_ErrorMarksStatusWithoutTouchingRecords(t *testing.T) {
	initial := NewSnapshot("post")
	intent := model.FindRecordAction("post", "1", model.StatusNone)
	s := Reduce(initial, initial, intent.Succeeded(model.Single(post("1", "kept"))))

	next := Reduce(initial, s, intent.Failed(errors.New("boom")))

	assert.Equal(t, model.StatusError, next.Status("post", "1"))
	attrs, _ := next.Record("post", "1")
	assert.Equal(t, "kept", attrs["title"])
}

func TestReduce_SuccessClearsError(t *testing.T) {
	initial := NewSnapshot("post")
	intent := model.FindRecordAction("post", "1", model.StatusNone)
	s := Reduce(initial, initial, intent.Failed(errors.New("boom")))
	next := Reduce(initial, s, intent.Succeeded(model.Single(post("1", "ok"))))

	assert.Equal(t, model.StatusNone, next.Status("post", "1"))
	assert.Empty(t, next.View()["post"].RecordStatus)
}

func TestReduce_FindAllSuccessMerges(t *testing.T) {
	initial := NewSnapshot("post")
	intent := model.FindAllAction("post", model.StatusNone)
	next := Reduce(initial, initial, intent.Succeeded(model.Many(post("1", "a"), post("2", "b"))))

	assert.Len(t, next.View()["post"].Records, 2)
}

func TestReduce_Total(t *testing.T) {
	initial := NewSnapshot("post")
	actions := []model.Action{
		{},
		{Type: "UNKNOWN", Status: model.StatusSuccess},
		{Type: model.FindRecord, Status: "weird"},
		{Type: model.FindRecord, Status: model.StatusError},
		{Type: model.FindRecord, ResourceType: "nope", Status: model.StatusError, Payload: model.Payload{Id: "1"}},
		{Type: model.FindRecord, ResourceType: "nope", Status: model.StatusSuccess, Payload: model.Payload{Id: "1"}},
		{Type: model.FindAll, Status: model.StatusSuccess},
	}
	for _, a := range actions {
		assert.NotPanics(t, func() {
			assert.NotNil(t, Reduce(initial, initial, a))
		})
	}
}
