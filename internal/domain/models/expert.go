// internal/domain/models/expert.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SocialLinks holds optional links to an expert's public profiles.
type SocialLinks struct {
	LinkedIn string `bson:"linkedin,omitempty" json:"linkedin,omitempty"`
	Twitter  string `bson:"twitter,omitempty" json:"twitter,omitempty"`
	Website  string `bson:"website,omitempty" json:"website,omitempty"`
}

// Rating is the running aggregate of feedback ratings for an expert.
// It is recalculated whenever feedback for the expert is created,
// updated, or removed.
type Rating struct {
	Average float64 `bson:"average" json:"average"`
	Count   int64   `bson:"count" json:"count"`
}

// Expert availability values.
const (
	AvailabilityAvailable   = "available"
	AvailabilityBusy        = "busy"
	AvailabilityUnavailable = "unavailable"
)

// IsValidAvailability checks if a value is a recognized availability.
func IsValidAvailability(s string) bool {
	return s == AvailabilityAvailable || s == AvailabilityBusy || s == AvailabilityUnavailable
}

// Expert represents an external industry expert invited to events.
// Experts are soft-deleted via the is_active flag.
type Expert struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"` // unique, lowercase
	Phone     string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Company   string             `bson:"company" json:"company"`
	Position  string             `bson:"position" json:"position"`
	Expertise []string           `bson:"expertise" json:"expertise"`
	Bio       string             `bson:"bio,omitempty" json:"bio,omitempty"` // sanitized before storage
	ImageURL  string             `bson:"image_url,omitempty" json:"image_url,omitempty"`
	Address   string             `bson:"address,omitempty" json:"address,omitempty"`

	Social       SocialLinks `bson:"social_links,omitempty" json:"social_links,omitempty"`
	Availability string      `bson:"availability" json:"availability"`
	Rating       Rating      `bson:"rating" json:"rating"`

	Active  bool               `bson:"is_active" json:"is_active"`
	AddedBy primitive.ObjectID `bson:"added_by" json:"added_by"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
