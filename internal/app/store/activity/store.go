// internal/app/store/activity/store.go
package activity

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Actions form a closed set. Records with an action outside this set are
// rejected at insert time so the trail stays queryable by verb.
const (
	ActionCreate   = "create"
	ActionRead     = "read"
	ActionUpdate   = "update"
	ActionDelete   = "delete"
	ActionLogin    = "login"
	ActionLogout   = "logout"
	ActionRegister = "register"
	ActionExport   = "export"
	ActionImport   = "import"
	ActionUpload   = "upload"
	ActionDownload = "download"
)

// Resources form a closed set as well.
const (
	ResourceUser     = "user"
	ResourceExpert   = "expert"
	ResourceEvent    = "event"
	ResourceFeedback = "feedback"
	ResourceSystem   = "system"
)

var (
	// ErrBadAction is returned by Insert for an action outside the closed set.
	ErrBadAction = errors.New("invalid activity action")
	// ErrBadResource is returned by Insert for a resource outside the closed set.
	ErrBadResource = errors.New("invalid activity resource")
)

// IsValidAction checks if a value is a recognized action verb.
func IsValidAction(s string) bool {
	switch s {
	case ActionCreate, ActionRead, ActionUpdate, ActionDelete,
		ActionLogin, ActionLogout, ActionRegister,
		ActionExport, ActionImport, ActionUpload, ActionDownload:
		return true
	}
	return false
}

// IsValidResource checks if a value is a recognized resource kind.
func IsValidResource(s string) bool {
	switch s {
	case ResourceUser, ResourceExpert, ResourceEvent, ResourceFeedback, ResourceSystem:
		return true
	}
	return false
}

// Record is one entry in the activity trail: who did what to which resource.
type Record struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID     primitive.ObjectID  `bson:"user_id" json:"user_id"`
	Action     string              `bson:"action" json:"action"`
	Resource   string              `bson:"resource" json:"resource"`
	ResourceID *primitive.ObjectID `bson:"resource_id,omitempty" json:"resource_id,omitempty"`

	Description string            `bson:"description,omitempty" json:"description,omitempty"`
	Details     map[string]string `bson:"details,omitempty" json:"details,omitempty"`

	// Request context
	IP        string `bson:"ip,omitempty" json:"ip,omitempty"`
	UserAgent string `bson:"user_agent,omitempty" json:"user_agent,omitempty"`

	Active    bool      `bson:"is_active" json:"is_active"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// QueryFilter defines filters for querying activity records.
type QueryFilter struct {
	UserID     *primitive.ObjectID
	Action     string
	Resource   string
	ResourceID *primitive.ObjectID
	StartTime  *time.Time
	EndTime    *time.Time
	Limit      int64
	Offset     int64
}

// Store manages activity trail records.
type Store struct {
	c *mongo.Collection
}

// New creates a new activity Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("activities")}
}

// Insert records an activity. Action and resource values outside their
// closed sets are rejected.
func (s *Store) Insert(ctx context.Context, rec Record) error {
	if !IsValidAction(rec.Action) {
		return ErrBadAction
	}
	if !IsValidResource(rec.Resource) {
		return ErrBadResource
	}
	if rec.ID.IsZero() {
		rec.ID = primitive.NewObjectID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.Active = true
	_, err := s.c.InsertOne(ctx, rec)
	return err
}

// GetByID loads a single activity record.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*Record, error) {
	var rec Record
	if err := s.c.FindOne(ctx, bson.M{"_id": id, "is_active": true}).Decode(&rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (f QueryFilter) query() bson.M {
	query := bson.M{"is_active": true}

	if f.UserID != nil {
		query["user_id"] = *f.UserID
	}
	if f.Action != "" {
		query["action"] = f.Action
	}
	if f.Resource != "" {
		query["resource"] = f.Resource
	}
	if f.ResourceID != nil {
		query["resource_id"] = *f.ResourceID
	}

	// Time range
	if f.StartTime != nil || f.EndTime != nil {
		timeQuery := bson.M{}
		if f.StartTime != nil {
			timeQuery["$gte"] = *f.StartTime
		}
		if f.EndTime != nil {
			timeQuery["$lte"] = *f.EndTime
		}
		query["created_at"] = timeQuery
	}
	return query
}

// Query retrieves activity records matching the given filter, newest first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Record, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit).
		SetSkip(filter.Offset)

	cursor, err := s.c.Find(ctx, filter.query(), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []Record
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// CountByFilter returns the count of records matching the filter.
func (s *Store) CountByFilter(ctx context.Context, filter QueryFilter) (int64, error) {
	return s.c.CountDocuments(ctx, filter.query())
}

// GetByUser retrieves recent activity for a specific user.
func (s *Store) GetByUser(ctx context.Context, userID primitive.ObjectID, limit, offset int64) ([]Record, error) {
	return s.Query(ctx, QueryFilter{
		UserID: &userID,
		Limit:  limit,
		Offset: offset,
	})
}

// GetByResource retrieves recent activity touching one resource instance.
func (s *Store) GetByResource(ctx context.Context, resource string, resourceID primitive.ObjectID, limit int64) ([]Record, error) {
	return s.Query(ctx, QueryFilter{
		Resource:   resource,
		ResourceID: &resourceID,
		Limit:      limit,
	})
}

// Recent retrieves the most recent activity records.
func (s *Store) Recent(ctx context.Context, limit int64) ([]Record, error) {
	return s.Query(ctx, QueryFilter{Limit: limit})
}

// ActionCount is one row of the per-action breakdown.
type ActionCount struct {
	Action string `bson:"_id" json:"action"`
	Count  int64  `bson:"count" json:"count"`
}

// ResourceCount is one row of the per-resource breakdown.
type ResourceCount struct {
	Resource string `bson:"_id" json:"resource"`
	Count    int64  `bson:"count" json:"count"`
}

// OverviewStats summarizes the activity trail.
type OverviewStats struct {
	Total      int64           `json:"total"`
	Last24h    int64           `json:"last_24h"`
	ByAction   []ActionCount   `json:"by_action"`
	ByResource []ResourceCount `json:"by_resource"`
}

// StatsOverview aggregates totals and per-action / per-resource breakdowns.
func (s *Store) StatsOverview(ctx context.Context) (*OverviewStats, error) {
	var stats OverviewStats
	var err error

	if stats.Total, err = s.c.CountDocuments(ctx, bson.M{"is_active": true}); err != nil {
		return nil, err
	}
	if stats.Last24h, err = s.c.CountDocuments(ctx, bson.M{
		"is_active":  true,
		"created_at": bson.M{"$gte": time.Now().Add(-24 * time.Hour)},
	}); err != nil {
		return nil, err
	}

	byAction, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"is_active": true}}},
		{{Key: "$group", Value: bson.M{"_id": "$action", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}}}},
	})
	if err != nil {
		return nil, err
	}
	defer byAction.Close(ctx)
	if err := byAction.All(ctx, &stats.ByAction); err != nil {
		return nil, err
	}

	byResource, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"is_active": true}}},
		{{Key: "$group", Value: bson.M{"_id": "$resource", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}}}},
	})
	if err != nil {
		return nil, err
	}
	defer byResource.Close(ctx)
	if err := byResource.All(ctx, &stats.ByResource); err != nil {
		return nil, err
	}

	return &stats, nil
}

// DeleteOlderThan hard-deletes records older than the cutoff and returns
// how many were removed. Used by the retention job and the admin cleanup
// endpoint.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"created_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ListAll returns all active records newest first. Used for exports.
func (s *Store) ListAll(ctx context.Context) ([]Record, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.c.Find(ctx, bson.M{"is_active": true}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []Record
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}
