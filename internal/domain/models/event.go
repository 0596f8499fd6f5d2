// internal/domain/models/event.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event types.
const (
	EventTypeWorkshop   = "workshop"
	EventTypeSeminar    = "seminar"
	EventTypeTalk       = "talk"
	EventTypeConference = "conference"
	EventTypeMeeting    = "meeting"
)

// Event statuses.
const (
	EventStatusScheduled = "scheduled"
	EventStatusOngoing   = "ongoing"
	EventStatusCompleted = "completed"
	EventStatusCancelled = "cancelled"
	EventStatusPostponed = "postponed"
)

// IsValidEventType checks if a value is a recognized event type.
func IsValidEventType(s string) bool {
	switch s {
	case EventTypeWorkshop, EventTypeSeminar, EventTypeTalk, EventTypeConference, EventTypeMeeting:
		return true
	}
	return false
}

// IsValidEventStatus checks if a value is a recognized event status.
func IsValidEventStatus(s string) bool {
	switch s {
	case EventStatusScheduled, EventStatusOngoing, EventStatusCompleted, EventStatusCancelled, EventStatusPostponed:
		return true
	}
	return false
}

// Event pairs an expert with a coordinator on a scheduled date.
// The coordinator is the owner for authorization purposes.
// Events are soft-deleted via the is_active flag.
type Event struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Type        string             `bson:"type" json:"type"`

	ExpertID      primitive.ObjectID `bson:"expert_id" json:"expert_id"`
	CoordinatorID primitive.ObjectID `bson:"coordinator_id" json:"coordinator_id"`

	Date      time.Time `bson:"date" json:"date"`
	StartTime string    `bson:"start_time" json:"start_time"` // HH:MM
	EndTime   string    `bson:"end_time" json:"end_time"`     // HH:MM
	Venue     string    `bson:"venue" json:"venue"`

	Capacity        int `bson:"capacity" json:"capacity"`
	RegisteredCount int `bson:"registered_count" json:"registered_count"`

	Status       string   `bson:"status" json:"status"`
	Requirements string   `bson:"requirements,omitempty" json:"requirements,omitempty"`
	Materials    []string `bson:"materials,omitempty" json:"materials,omitempty"`

	Active    bool               `bson:"is_active" json:"is_active"`
	CreatedBy primitive.ObjectID `bson:"created_by" json:"created_by"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
