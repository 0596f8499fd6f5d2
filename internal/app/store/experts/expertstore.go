// internal/app/store/experts/expertstore.go
package expertstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/engagehub/internal/app/system/normalize"
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
	return &Store{c: db.Collection("experts")}
}

var (
	// ErrDuplicateEmail is returned when attempting to create an expert with an email that already exists.
	ErrDuplicateEmail  = errors.New("an expert with this email already exists")
	errBadAvailability = errors.New(`availability must be "available"|"busy"|"unavailable"`)
)

// GetByID loads an expert by ObjectID. Soft-deleted experts are not returned.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Expert, error) {
	var e models.Expert
	if err := s.c.FindOne(ctx, bson.M{"_id": id, "is_active": true}).Decode(&e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Create inserts a new expert after normalizing & validating fields.
func (s *Store) Create(ctx context.Context, e models.Expert) (models.Expert, error) {
	e.ID = primitive.NewObjectID()
	e.Name = normalize.Name(e.Name)
	e.Email = normalize.Email(e.Email)

	if e.Availability == "" {
		e.Availability = models.AvailabilityAvailable
	}
	if !models.IsValidAvailability(e.Availability) {
		return models.Expert{}, errBadAvailability
	}

	e.Rating = models.Rating{}
	e.Active = true

	now := time.Now()
	e.CreatedAt = now
	e.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, e); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Expert{}, ErrDuplicateEmail
		}
		return models.Expert{}, err
	}
	return e, nil
}

// UpdateInput holds the optional fields for updating an expert.
// All fields are pointers - nil means "don't update this field".
type UpdateInput struct {
	Name         *string
	Email        *string
	Phone        *string
	Company      *string
	Position     *string
	Expertise    *[]string
	Bio          *string
	ImageURL     *string
	Address      *string
	Social       *models.SocialLinks
	Availability *string
}

// Update updates an expert using optional fields.
// Only non-nil fields in input are updated.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, input UpdateInput) error {
	set := bson.M{
		"updated_at": time.Now(),
	}

	if input.Name != nil {
		set["name"] = normalize.Name(*input.Name)
	}
	if input.Email != nil {
		set["email"] = normalize.Email(*input.Email)
	}
	if input.Phone != nil {
		set["phone"] = *input.Phone
	}
	if input.Company != nil {
		set["company"] = *input.Company
	}
	if input.Position != nil {
		set["position"] = *input.Position
	}
	if input.Expertise != nil {
		set["expertise"] = *input.Expertise
	}
	if input.Bio != nil {
		set["bio"] = *input.Bio
	}
	if input.ImageURL != nil {
		set["image_url"] = *input.ImageURL
	}
	if input.Address != nil {
		set["address"] = *input.Address
	}
	if input.Social != nil {
		set["social_links"] = *input.Social
	}
	if input.Availability != nil {
		if !models.IsValidAvailability(*input.Availability) {
			return errBadAvailability
		}
		set["availability"] = *input.Availability
	}

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id, "is_active": true}, bson.M{"$set": set})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SoftDelete marks an expert inactive. The record stays in place so events
// and feedback that reference it keep resolving.
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

// SetRating replaces an expert's aggregate rating. Called after feedback
// for the expert changes.
func (s *Store) SetRating(ctx context.Context, id primitive.ObjectID, rating models.Rating) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"rating":     rating,
		"updated_at": time.Now(),
	}})
	return err
}

// Find returns active experts matching the given filter with optional find options.
// The caller is responsible for building the filter and options (pagination, sorting, projection).
func (s *Store) Find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.Expert, error) {
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

	var experts []models.Expert
	if err := cur.All(ctx, &experts); err != nil {
		return nil, err
	}
	return experts, nil
}

// Count returns the number of active experts matching the given filter.
func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	if filter == nil {
		filter = bson.M{}
	}
	if _, ok := filter["is_active"]; !ok {
		filter["is_active"] = true
	}
	return s.c.CountDocuments(ctx, filter)
}

// ListAll returns all active experts sorted by name. Used for exports.
func (s *Store) ListAll(ctx context.Context) ([]models.Expert, error) {
	opts := options.Find().SetSort(bson.M{"name": 1})
	return s.Find(ctx, bson.M{}, opts)
}

// TopRated returns the highest-rated active experts that have at least
// minCount ratings, best first.
func (s *Store) TopRated(ctx context.Context, limit int64, minCount int64) ([]models.Expert, error) {
	if limit <= 0 {
		limit = 10
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "rating.average", Value: -1}, {Key: "rating.count", Value: -1}}).
		SetLimit(limit)
	return s.Find(ctx, bson.M{"rating.count": bson.M{"$gte": minCount}}, opts)
}

// ExpertiseCount is one row of the by-expertise breakdown.
type ExpertiseCount struct {
	Expertise string `bson:"_id" json:"expertise"`
	Count     int64  `bson:"count" json:"count"`
}

// CountByExpertise unwinds the expertise arrays of active experts and
// returns how many experts carry each area, most common first.
func (s *Store) CountByExpertise(ctx context.Context) ([]ExpertiseCount, error) {
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"is_active": true}}},
		{{Key: "$unwind", Value: "$expertise"}},
		{{Key: "$group", Value: bson.M{"_id": "$expertise", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []ExpertiseCount
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// CountByAvailability returns the number of active experts per availability value.
func (s *Store) CountByAvailability(ctx context.Context) (map[string]int64, error) {
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"is_active": true}}},
		{{Key: "$group", Value: bson.M{"_id": "$availability", "count": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		Availability string `bson:"_id"`
		Count        int64  `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Availability] = row.Count
	}
	return counts, nil
}
