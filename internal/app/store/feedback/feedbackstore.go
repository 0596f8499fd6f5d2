// internal/app/store/feedback/feedbackstore.go
package feedbackstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/engagehub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("feedback")}
}

var (
	// ErrDuplicateFeedback is returned when the attendee has already submitted
	// feedback for the event.
	ErrDuplicateFeedback = errors.New("feedback for this event already submitted")
	errBadRating         = errors.New("rating must be between 1 and 5")
)

// GetByID loads a feedback entry by ObjectID. Soft-deleted entries are not returned.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Feedback, error) {
	var f models.Feedback
	if err := s.c.FindOne(ctx, bson.M{"_id": id, "is_active": true}).Decode(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Create inserts a new feedback entry after validating the rating. The
// unique index on (event_id, attendee_id) rejects a second submission for
// the same event.
func (s *Store) Create(ctx context.Context, f models.Feedback) (models.Feedback, error) {
	if !models.IsValidFeedbackRating(f.Rating) {
		return models.Feedback{}, errBadRating
	}

	f.ID = primitive.NewObjectID()
	f.Active = true

	now := time.Now()
	f.CreatedAt = now
	f.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, f); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Feedback{}, ErrDuplicateFeedback
		}
		return models.Feedback{}, err
	}
	return f, nil
}

// UpdateInput holds the optional fields for updating a feedback entry.
// All fields are pointers - nil means "don't update this field".
type UpdateInput struct {
	Rating         *int
	Comments       *string
	Aspects        *models.AspectRatings
	Suggestions    *string
	WouldRecommend *bool
	Anonymous      *bool
}

// Update updates a feedback entry using optional fields.
// Only non-nil fields in input are updated.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, input UpdateInput) error {
	set := bson.M{
		"updated_at": time.Now(),
	}

	if input.Rating != nil {
		if !models.IsValidFeedbackRating(*input.Rating) {
			return errBadRating
		}
		set["rating"] = *input.Rating
	}
	if input.Comments != nil {
		set["comments"] = *input.Comments
	}
	if input.Aspects != nil {
		set["aspect_ratings"] = *input.Aspects
	}
	if input.Suggestions != nil {
		set["suggestions"] = *input.Suggestions
	}
	if input.WouldRecommend != nil {
		set["would_recommend"] = *input.WouldRecommend
	}
	if input.Anonymous != nil {
		set["anonymous"] = *input.Anonymous
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

// SoftDelete marks a feedback entry inactive. The caller is responsible
// for recalculating the expert's rating afterwards.
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

// Find returns active feedback entries matching the given filter with optional find options.
// The caller is responsible for building the filter and options (pagination, sorting, projection).
func (s *Store) Find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.Feedback, error) {
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

	var entries []models.Feedback
	if err := cur.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Count returns the number of active feedback entries matching the given filter.
func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	if filter == nil {
		filter = bson.M{}
	}
	if _, ok := filter["is_active"]; !ok {
		filter["is_active"] = true
	}
	return s.c.CountDocuments(ctx, filter)
}

// AggregateExpertRating recomputes the running rating for an expert from
// its active feedback. A zero Rating comes back when the expert has none.
func (s *Store) AggregateExpertRating(ctx context.Context, expertID primitive.ObjectID) (models.Rating, error) {
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"expert_id": expertID, "is_active": true}}},
		{{Key: "$group", Value: bson.M{
			"_id":     nil,
			"average": bson.M{"$avg": "$rating"},
			"count":   bson.M{"$sum": 1},
		}}},
	})
	if err != nil {
		return models.Rating{}, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		Average float64 `bson:"average"`
		Count   int64   `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return models.Rating{}, err
	}
	if len(rows) == 0 {
		return models.Rating{}, nil
	}
	return models.Rating{Average: rows[0].Average, Count: rows[0].Count}, nil
}

// Overview summarizes all active feedback.
type Overview struct {
	Total           int64         `json:"total"`
	AverageRating   float64       `json:"average_rating"`
	RecommendRate   float64       `json:"recommend_rate"` // 0..1
	RatingBreakdown map[int]int64 `json:"rating_breakdown"`
}

// StatsOverview aggregates volume, mean rating, recommend share, and the
// per-star breakdown across all active feedback.
func (s *Store) StatsOverview(ctx context.Context) (*Overview, error) {
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"is_active": true}}},
		{{Key: "$group", Value: bson.M{
			"_id":       "$rating",
			"count":     bson.M{"$sum": 1},
			"recommend": bson.M{"$sum": bson.M{"$cond": bson.A{"$would_recommend", 1, 0}}},
		}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		Rating    int   `bson:"_id"`
		Count     int64 `bson:"count"`
		Recommend int64 `bson:"recommend"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}

	ov := &Overview{RatingBreakdown: make(map[int]int64, 5)}
	var ratingSum, recommend int64
	for _, row := range rows {
		ov.Total += row.Count
		ratingSum += int64(row.Rating) * row.Count
		recommend += row.Recommend
		ov.RatingBreakdown[row.Rating] = row.Count
	}
	if ov.Total > 0 {
		ov.AverageRating = float64(ratingSum) / float64(ov.Total)
		ov.RecommendRate = float64(recommend) / float64(ov.Total)
	}
	return ov, nil
}

// EventSummary summarizes the active feedback for a single event.
type EventSummary struct {
	Total         int64   `json:"total"`
	AverageRating float64 `json:"average_rating"`

	AvgContent     float64 `json:"avg_content"`
	AvgDelivery    float64 `json:"avg_delivery"`
	AvgInteraction float64 `json:"avg_interaction"`
	AvgRelevance   float64 `json:"avg_relevance"`
}

// StatsByEvent aggregates the active feedback for one event, including
// per-aspect means. Zero-valued aspects are excluded from their mean.
func (s *Store) StatsByEvent(ctx context.Context, eventID primitive.ObjectID) (*EventSummary, error) {
	aspectAvg := func(field string) bson.M {
		return bson.M{"$avg": bson.M{"$cond": bson.A{
			bson.M{"$gt": bson.A{"$aspect_ratings." + field, 0}},
			"$aspect_ratings." + field,
			nil,
		}}}
	}

	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"event_id": eventID, "is_active": true}}},
		{{Key: "$group", Value: bson.M{
			"_id":             nil,
			"total":           bson.M{"$sum": 1},
			"average":         bson.M{"$avg": "$rating"},
			"avg_content":     aspectAvg("content"),
			"avg_delivery":    aspectAvg("delivery"),
			"avg_interaction": aspectAvg("interaction"),
			"avg_relevance":   aspectAvg("relevance"),
		}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		Total          int64    `bson:"total"`
		Average        float64  `bson:"average"`
		AvgContent     *float64 `bson:"avg_content"`
		AvgDelivery    *float64 `bson:"avg_delivery"`
		AvgInteraction *float64 `bson:"avg_interaction"`
		AvgRelevance   *float64 `bson:"avg_relevance"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &EventSummary{}, nil
	}

	deref := func(p *float64) float64 {
		if p == nil {
			return 0
		}
		return *p
	}
	return &EventSummary{
		Total:          rows[0].Total,
		AverageRating:  rows[0].Average,
		AvgContent:     deref(rows[0].AvgContent),
		AvgDelivery:    deref(rows[0].AvgDelivery),
		AvgInteraction: deref(rows[0].AvgInteraction),
		AvgRelevance:   deref(rows[0].AvgRelevance),
	}, nil
}
