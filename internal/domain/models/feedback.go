// internal/domain/models/feedback.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AspectRatings breaks the overall rating down by aspect. Each value is
// 1-5; zero means the aspect was not rated.
type AspectRatings struct {
	Content     int `bson:"content,omitempty" json:"content,omitempty"`
	Delivery    int `bson:"delivery,omitempty" json:"delivery,omitempty"`
	Interaction int `bson:"interaction,omitempty" json:"interaction,omitempty"`
	Relevance   int `bson:"relevance,omitempty" json:"relevance,omitempty"`
}

// Feedback is a post-event review submitted by an attendee. An attendee
// can submit at most one feedback per event (unique index on event_id +
// attendee_id). The attendee is the owner for authorization purposes.
type Feedback struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EventID    primitive.ObjectID `bson:"event_id" json:"event_id"`
	ExpertID   primitive.ObjectID `bson:"expert_id" json:"expert_id"`
	AttendeeID primitive.ObjectID `bson:"attendee_id" json:"attendee_id"`

	Rating   int           `bson:"rating" json:"rating"` // 1-5
	Comments string        `bson:"comments,omitempty" json:"comments,omitempty"`
	Aspects  AspectRatings `bson:"aspect_ratings,omitempty" json:"aspect_ratings,omitempty"`

	Suggestions    string `bson:"suggestions,omitempty" json:"suggestions,omitempty"`
	WouldRecommend bool   `bson:"would_recommend" json:"would_recommend"`
	Anonymous      bool   `bson:"anonymous" json:"anonymous"`

	Active bool `bson:"is_active" json:"is_active"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsValidFeedbackRating checks that a rating is in the allowed 1-5 range.
func IsValidFeedbackRating(n int) bool {
	return n >= 1 && n <= 5
}
