package mongo

import (
	"context"
	"errors"
	"time"

	"streamhub/internal/core/domain"
	"streamhub/internal/core/ports"
	"streamhub/pkg/tracing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type streamDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description *string            `bson:"description,omitempty"`
	IsLive      bool               `bson:"is_live"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

func (d *streamDocument) toDomain() *domain.Stream {
	return &domain.Stream{
		ID:          domain.StreamID(d.ID.Hex()),
		Title:       d.Title,
		Description: d.Description,
		IsLive:      d.IsLive,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

type MongoStreamRepository struct {
	collection *mongo.Collection
}

func NewMongoStreamRepository(db *mongo.Database) ports.StreamRepository {
	return &MongoStreamRepository{
		collection: db.Collection(streamsCollection),
	}
}

func (r *MongoStreamRepository) Create(ctx context.Context, stream *domain.Stream) (*domain.Stream, error) {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "insert_one", streamsCollection)
	defer span.End()

	doc := streamDocument{
		ID:          primitive.NewObjectID(),
		Title:       stream.Title,
		Description: stream.Description,
		IsLive:      stream.IsLive,
		CreatedAt:   stream.CreatedAt,
		UpdatedAt:   stream.UpdatedAt,
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		tracing.RecordError(ctx, err)
		return nil, storeError("insert stream", err)
	}
	return doc.toDomain(), nil
}

func (r *MongoStreamRepository) GetByID(ctx context.Context, id domain.StreamID) (*domain.Stream, error) {
	oid, err := primitive.ObjectIDFromHex(string(id))
	if err != nil {
		return nil, domain.ErrStreamNotFound
	}

	ctx, span := tracing.TraceDatabaseOperation(ctx, "find_one", streamsCollection)
	defer span.End()

	var doc streamDocument
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrStreamNotFound
	}
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, storeError("find stream", err)
	}
	return doc.toDomain(), nil
}

func (r *MongoStreamRepository) ListAll(ctx context.Context) ([]*domain.Stream, error) {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "find", streamsCollection)
	defer span.End()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, storeError("list streams", err)
	}
	defer cursor.Close(ctx)

	var docs []streamDocument
	if err := cursor.All(ctx, &docs); err != nil {
		tracing.RecordError(ctx, err)
		return nil, storeError("decode streams", err)
	}

	streams := make([]*domain.Stream, 0, len(docs))
	for i := range docs {
		streams = append(streams, docs[i].toDomain())
	}
	return streams, nil
}

// Update applies the patch with a single $set so the merge is atomic per document.
func (r *MongoStreamRepository) Update(ctx context.Context, id domain.StreamID, patch domain.StreamPatch) (*domain.Stream, error) {
	oid, err := primitive.ObjectIDFromHex(string(id))
	if err != nil {
		return nil, domain.ErrStreamNotFound
	}

	set := patchToSet(patch)
	if len(set) == 0 {
		return r.GetByID(ctx, id)
	}

	ctx, span := tracing.TraceDatabaseOperation(ctx, "find_one_and_update", streamsCollection)
	defer span.End()

	var doc streamDocument
	err = r.collection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": oid},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrStreamNotFound
	}
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, storeError("update stream", err)
	}
	return doc.toDomain(), nil
}

func (r *MongoStreamRepository) Delete(ctx context.Context, id domain.StreamID) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(string(id))
	if err != nil {
		return false, nil
	}

	ctx, span := tracing.TraceDatabaseOperation(ctx, "delete_one", streamsCollection)
	defer span.End()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		tracing.RecordError(ctx, err)
		return false, storeError("delete stream", err)
	}
	return result.DeletedCount > 0, nil
}

func patchToSet(patch domain.StreamPatch) bson.M {
	set := bson.M{}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.IsLive != nil {
		set["is_live"] = *patch.IsLive
	}
	if patch.UpdatedAt != nil {
		set["updated_at"] = *patch.UpdatedAt
	}
	return set
}
