package model

import "github.com/google/uuid"

type ActionType string

const (
	FindRecord ActionType = "RESOURCE/FIND_RECORD"
	FindAll    ActionType = "RESOURCE/FIND_ALL"
)

// Status is both the status of an action and the per-record status kept in
// the store. StatusNone on an action marks an intent that has not been
// attempted yet.
type Status string

const (
	StatusNone    Status = ""
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Payload carries the id an intent targets, the document of a successful
// result, or the error of a failed one.
type Payload struct {
	Id       ResourceId
	Document Document
	Err      error
}

// Action is the unit of change dispatched to the store. Result actions share
// the Type of the intent they answer and carry its CorrelationId.
type Action struct {
	Type          ActionType
	ResourceType  ResourceType
	Status        Status
	Payload       Payload
	CorrelationId string
}

func (a Action) IsIntent() bool {
	return a.Status == StatusNone
}

// Succeeded derives the success result action for this intent.
func (a Action) Succeeded(doc Document) Action {
	return Action{
		Type:          a.Type,
		ResourceType:  a.ResourceType,
		Status:        StatusSuccess,
		Payload:       Payload{Id: a.Payload.Id, Document: doc},
		CorrelationId: a.CorrelationId,
	}
}

// Failed derives the error result action for this intent.
func (a Action) Failed(err error) Action {
	return Action{
		Type:          a.Type,
		ResourceType:  a.ResourceType,
		Status:        StatusError,
		Payload:       Payload{Id: a.Payload.Id, Err: err},
		CorrelationId: a.CorrelationId,
	}
}

func FindRecordAction(resourceType ResourceType, id ResourceId, status Status) Action {
	return Action{
		Type:          FindRecord,
		ResourceType:  resourceType,
		Status:        status,
		Payload:       Payload{Id: id},
		CorrelationId: uuid.NewString(),
	}
}

func FindAllAction(resourceType ResourceType, status Status) Action {
	return Action{
		Type:          FindAll,
		ResourceType:  resourceType,
		Status:        status,
		CorrelationId: uuid.NewString(),
	}
}
