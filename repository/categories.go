package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/pddapp/backend/apperrors"
	"github.com/pddapp/backend/database"
	"github.com/pddapp/backend/models"
	"github.com/pddapp/backend/utils"
)

type CategoryRepository struct {
	col *mongo.Collection
}

func NewCategoryRepository(db *mongo.Database) *CategoryRepository {
	return &CategoryRepository{col: db.Collection(database.CategoriesCollection)}
}

func (r *CategoryRepository) InsertCategory(ctx context.Context, cat models.Category) (models.Category, error) {
	cat.ID = bson.NewObjectID()
	if _, err := r.col.InsertOne(ctx, cat); err != nil {
		if utils.IsDuplicateKey(err) {
			return models.Category{}, apperrors.New(apperrors.Conflict, "category name already exists")
		}
		return models.Category{}, err
	}
	return cat, nil
}

func (r *CategoryRepository) CategoryByID(ctx context.Context, id bson.ObjectID) (models.Category, error) {
	var cat models.Category
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&cat); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Category{}, apperrors.New(apperrors.NotFound, "category not found")
		}
		return models.Category{}, err
	}
	return cat, nil
}

func (r *CategoryRepository) Categories(ctx context.Context, limit, offset int64) ([]models.Category, int64, error) {
	opts := options.Find().
		SetSkip(offset).
		SetLimit(limit).
		SetSort(bson.D{{Key: "name", Value: 1}})

	cursor, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	categories := make([]models.Category, 0)
	if err := cursor.All(ctx, &categories); err != nil {
		return nil, 0, err
	}

	total, err := r.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}
	return categories, total, nil
}

func (r *CategoryRepository) UpdateCategory(ctx context.Context, id bson.ObjectID, set bson.M) error {
	res, err := r.col.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		if utils.IsDuplicateKey(err) {
			return apperrors.New(apperrors.Conflict, "category name already exists")
		}
		return err
	}
	if res.MatchedCount == 0 {
		return apperrors.New(apperrors.NotFound, "category not found")
	}
	return nil
}

func (r *CategoryRepository) DeleteCategory(ctx context.Context, id bson.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperrors.New(apperrors.NotFound, "category not found")
	}
	return nil
}
