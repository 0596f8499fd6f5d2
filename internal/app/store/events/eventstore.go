// internal/app/store/events/eventstore.go
package eventstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/engagehub/internal/app/system/normalize"
	"github.com/dalemusser/engagehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("events")}
}

var (
	// ErrEventFull is returned by RegisterAttendee when the event has no
	// remaining capacity (or is not open for registration).
	ErrEventFull = errors.New("event is at full capacity")

	errBadType   = errors.New("invalid event type")
	errBadStatus = errors.New("invalid event status")
)

// GetByID loads an event by ObjectID. Soft-deleted events are not returned.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Event, error) {
	var e models.Event
	if err := s.c.FindOne(ctx, bson.M{"_id": id, "is_active": true}).Decode(&e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Create inserts a new event after normalizing & validating fields.
func (s *Store) Create(ctx context.Context, e models.Event) (models.Event, error) {
	e.ID = primitive.NewObjectID()
	e.Title = normalize.Name(e.Title)

	if !models.IsValidEventType(e.Type) {
		return models.Event{}, errBadType
	}
	if e.Status == "" {
		e.Status = models.EventStatusScheduled
	}
	if !models.IsValidEventStatus(e.Status) {
		return models.Event{}, errBadStatus
	}

	e.RegisteredCount = 0
	e.Active = true

	now := time.Now()
	e.CreatedAt = now
	e.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, e); err != nil {
		return models.Event{}, err
	}
	return e, nil
}

// UpdateInput holds the optional fields for updating an event.
// All fields are pointers - nil means "don't update this field".
type UpdateInput struct {
	Title        *string
	Description  *string
	Type         *string
	ExpertID     *primitive.ObjectID
	Date         *time.Time
	StartTime    *string
	EndTime      *string
	Venue        *string
	Capacity     *int
	Requirements *string
	Materials    *[]string
}

// Update updates an event using optional fields.
// Only non-nil fields in input are updated.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, input UpdateInput) error {
	set := bson.M{
		"updated_at": time.Now(),
	}

	if input.Title != nil {
		set["title"] = normalize.Name(*input.Title)
	}
	if input.Description != nil {
		set["description"] = *input.Description
	}
	if input.Type != nil {
		if !models.IsValidEventType(*input.Type) {
			return errBadType
		}
		set["type"] = *input.Type
	}
	if input.ExpertID != nil {
		set["expert_id"] = *input.ExpertID
	}
	if input.Date != nil {
		set["date"] = *input.Date
	}
	if input.StartTime != nil {
		set["start_time"] = *input.StartTime
	}
	if input.EndTime != nil {
		set["end_time"] = *input.EndTime
	}
	if input.Venue != nil {
		set["venue"] = *input.Venue
	}
	if input.Capacity != nil {
		set["capacity"] = *input.Capacity
	}
	if input.Requirements != nil {
		set["requirements"] = *input.Requirements
	}
	if input.Materials != nil {
		set["materials"] = *input.Materials
	}

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id, "is_active": true}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// UpdateStatus moves an event through its lifecycle (scheduled, ongoing,
// completed, cancelled, postponed).
func (s *Store) UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	if !models.IsValidEventStatus(status) {
		return errBadStatus
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id, "is_active": true}, bson.M{"$set": bson.M{
		"status":     status,
		"updated_at": time.Now(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SoftDelete marks an event inactive.
func (s *Store) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id, "is_active": true}, bson.M{"$set": bson.M{
		"is_active":  false,
		"updated_at": time.Now(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// RegisterAttendee increments the registered count for a scheduled event.
// The capacity check and the increment happen in a single conditional update,
// so concurrent registrations cannot push the count past capacity. Returns
// ErrEventFull when the event is full, not scheduled, or soft-deleted.
func (s *Store) RegisterAttendee(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx, bson.M{
		"_id":       id,
		"is_active": true,
		"status":    models.EventStatusScheduled,
		"$expr":     bson.M{"$lt": bson.A{"$registered_count", "$capacity"}},
	}, bson.M{
		"$inc": bson.M{"registered_count": 1},
		"$set": bson.M{"updated_at": time.Now()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrEventFull
	}
	return nil
}

// Find returns active events matching the given filter with optional find options.
// The caller is responsible for building the filter and options (pagination, sorting, projection).
func (s *Store) Find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.Event, error) {
	if filter == nil {
		filter = bson.M{}
	}
	if _, ok := filter["is_active"]; !ok {
		filter["is_active"] = true
	}
	cur, err := s.c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var events []models.Event
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Count returns the number of active events matching the given filter.
func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	if filter == nil {
		filter = bson.M{}
	}
	if _, ok := filter["is_active"]; !ok {
		filter["is_active"] = true
	}
	return s.c.CountDocuments(ctx, filter)
}

// Upcoming returns scheduled events dated from now on, soonest first.
func (s *Store) Upcoming(ctx context.Context, limit int64) ([]models.Event, error) {
	if limit <= 0 {
		limit = 10
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: 1}, {Key: "start_time", Value: 1}}).
		SetLimit(limit)
	return s.Find(ctx, bson.M{
		"status": models.EventStatusScheduled,
		"date":   bson.M{"$gte": startOfDay(time.Now())},
	}, opts)
}

// CountByStatus returns the number of active events per status.
func (s *Store) CountByStatus(ctx context.Context) (map[string]int64, error) {
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"is_active": true}}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		Status string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// MonthlyCount is one row of the per-month event volume breakdown.
type MonthlyCount struct {
	Year  int   `bson:"year" json:"year"`
	Month int   `bson:"month" json:"month"`
	Count int64 `bson:"count" json:"count"`
}

// CountByMonth groups active events by calendar month over the trailing
// months window, oldest first.
func (s *Store) CountByMonth(ctx context.Context, months int) ([]MonthlyCount, error) {
	if months <= 0 {
		months = 12
	}
	since := startOfDay(time.Now()).AddDate(0, -months, 0)

	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"is_active": true, "date": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{
				"year":  bson.M{"$year": "$date"},
				"month": bson.M{"$month": "$date"},
			},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id.year", Value: 1}, {Key: "_id.month", Value: 1}}}},
		{{Key: "$project", Value: bson.M{
			"_id":   0,
			"year":  "$_id.year",
			"month": "$_id.month",
			"count": 1,
		}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []MonthlyCount
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// CoordinatorStats summarizes a coordinator's event history.
type CoordinatorStats struct {
	Total     int64 `json:"total"`
	Upcoming  int64 `json:"upcoming"`
	Completed int64 `json:"completed"`
	Cancelled int64 `json:"cancelled"`
}

// StatsByCoordinator counts a coordinator's active events by lifecycle bucket.
func (s *Store) StatsByCoordinator(ctx context.Context, coordinatorID primitive.ObjectID) (*CoordinatorStats, error) {
	base := bson.M{"coordinator_id": coordinatorID, "is_active": true}

	var stats CoordinatorStats
	var err error

	if stats.Total, err = s.c.CountDocuments(ctx, base); err != nil {
		return nil, err
	}
	if stats.Upcoming, err = s.c.CountDocuments(ctx, bson.M{
		"coordinator_id": coordinatorID,
		"is_active":      true,
		"status":         models.EventStatusScheduled,
		"date":           bson.M{"$gte": startOfDay(time.Now())},
	}); err != nil {
		return nil, err
	}
	if stats.Completed, err = s.c.CountDocuments(ctx, bson.M{
		"coordinator_id": coordinatorID,
		"is_active":      true,
		"status":         models.EventStatusCompleted,
	}); err != nil {
		return nil, err
	}
	if stats.Cancelled, err = s.c.CountDocuments(ctx, bson.M{
		"coordinator_id": coordinatorID,
		"is_active":      true,
		"status":         models.EventStatusCancelled,
	}); err != nil {
		return nil, err
	}
	return &stats, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
