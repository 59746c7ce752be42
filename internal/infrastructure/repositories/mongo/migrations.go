package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	usersCollection   = "users"
	streamsCollection = "streams"
)

// EnsureIndexes creates the indexes the stores rely on. The unique email
// index is what makes concurrent signups for one address safe.
func EnsureIndexes(ctx context.Context, db *mongo.Database, logger *zap.SugaredLogger) error {
	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("email_unique"),
			},
		},
		streamsCollection: {
			{
				Keys:    bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}},
				Options: options.Index().SetName("created_at_desc"),
			},
		},
	}

	for collection, models := range indexes {
		names, err := db.Collection(collection).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", collection, err)
		}
		if logger != nil {
			logger.Infow("indexes ensured", "collection", collection, "indexes", names)
		}
	}
	return nil
}
