package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	catalogerrors "libretto/internal/catalog/errors"
	"libretto/pkg/config"
	"libretto/pkg/model"
)

const GenreCollectionName = "Genres"

type GenreRepository interface {
	Create(ctx context.Context, genre *model.Genre) error
	FindByID(ctx context.Context, id string) (*model.Genre, error)
	FindByIDs(ctx context.Context, ids []string) ([]*model.Genre, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Genre, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, id string, genre *model.Genre) (*mongo.UpdateResult, error)
	Delete(ctx context.Context, id string) error
}

type mongoGenreRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoGenreRepository(cfg *config.Config) GenreRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoGenreRepository{
		cfg:        cfg,
		collection: db.Collection(GenreCollectionName),
	}
}

func (r *mongoGenreRepository) Create(ctx context.Context, genre *model.Genre) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	genre.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, genre)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("genre name already exists: %w", err)
		}
		return fmt.Errorf("failed to create genre: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		genre.ID = oid.Hex()
	}
	return nil
}

func (r *mongoGenreRepository) FindByID(ctx context.Context, id string) (*model.Genre, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", catalogerrors.ErrInvalidID, id)
	}

	var genre model.Genre
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&genre)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", catalogerrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find genre: %w", err)
	}

	return &genre, nil
}

func (r *mongoGenreRepository) FindByIDs(ctx context.Context, ids []string) ([]*model.Genre, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		objectID, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", catalogerrors.ErrInvalidID, id)
		}
		objectIDs = append(objectIDs, objectID)
	}

	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": objectIDs}})
	if err != nil {
		return nil, fmt.Errorf("failed to query genres: %w", err)
	}
	defer cursor.Close(ctx)

	var genres []*model.Genre
	if err = cursor.All(ctx, &genres); err != nil {
		return nil, fmt.Errorf("failed to decode genres: %w", err)
	}

	return genres, nil
}

func (r *mongoGenreRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Genre, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query genres: %w", err)
	}
	defer cursor.Close(ctx)

	var genres []*model.Genre
	if err = cursor.All(ctx, &genres); err != nil {
		return nil, fmt.Errorf("failed to decode genres: %w", err)
	}

	return genres, nil
}

func (r *mongoGenreRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count genres: %w", err)
	}
	return count, nil
}

func (r *mongoGenreRepository) Update(ctx context.Context, id string, genre *model.Genre) (*mongo.UpdateResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", catalogerrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID}
	update := bson.M{"$set": bson.M{"name": genre.Name}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update genre: %w", err)
	}

	if result.MatchedCount == 0 {
		return nil, fmt.Errorf("%w: %s", catalogerrors.ErrNotFound, id)
	}

	return result, nil
}

func (r *mongoGenreRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", catalogerrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete genre: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", catalogerrors.ErrNotFound, id)
	}

	return nil
}
