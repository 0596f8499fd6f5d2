// internal/app/store/accounts/fetcher.go
package accountstore

import (
	"context"
	"errors"

	"github.com/dalemusser/engagehub/internal/app/system/auth"
	"github.com/dalemusser/engagehub/internal/app/system/normalize"
	"github.com/dalemusser/engagehub/internal/app/system/timeouts"
	"github.com/dalemusser/engagehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Fetcher implements auth.AccountFetcher to load fresh account data on each
// request. It fetches account data from MongoDB.
type Fetcher struct {
	accounts *mongo.Collection
	logger   *zap.Logger
}

// NewFetcher creates an AccountFetcher that queries the given database.
func NewFetcher(db *mongo.Database, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		accounts: db.Collection("accounts"),
		logger:   logger,
	}
}

// FetchAccount retrieves an account by ID. It returns (nil, nil) when the
// account does not exist or is disabled, and (nil, err) only when the lookup
// itself fails. A malformed ID counts as "does not exist".
func (f *Fetcher) FetchAccount(ctx context.Context, accountID string) (*auth.Account, error) {
	oid, err := primitive.ObjectIDFromHex(accountID)
	if err != nil {
		return nil, nil
	}

	// Use a short timeout for the DB query
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	var a models.Account
	proj := options.FindOne().SetProjection(bson.M{
		"_id":    1,
		"name":   1,
		"email":  1,
		"role":   1,
		"status": 1,
	})

	if err := f.accounts.FindOne(ctx, bson.M{"_id": oid}, proj).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}

	if normalize.Status(a.Status) == "disabled" {
		return nil, nil
	}

	return &auth.Account{
		ID:    a.ID.Hex(),
		Name:  a.Name,
		Email: a.Email,
		Role:  normalize.Role(string(a.Role)),
	}, nil
}
