package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/pddapp/backend/database"
	"github.com/pddapp/backend/models"
)

type PredictionRepository struct {
	col *mongo.Collection
}

func NewPredictionRepository(db *mongo.Database) *PredictionRepository {
	return &PredictionRepository{col: db.Collection(database.PredictionsCollection)}
}

func (r *PredictionRepository) InsertPrediction(ctx context.Context, p models.SignPrediction) (models.SignPrediction, error) {
	p.ID = bson.NewObjectID()
	if _, err := r.col.InsertOne(ctx, p); err != nil {
		return models.SignPrediction{}, err
	}
	return p, nil
}

func (r *PredictionRepository) PredictionsByUser(ctx context.Context, userID bson.ObjectID, limit, offset int64) ([]models.SignPrediction, error) {
	opts := options.Find().
		SetSkip(offset).
		SetLimit(limit).
		SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.col.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	predictions := make([]models.SignPrediction, 0)
	if err := cursor.All(ctx, &predictions); err != nil {
		return nil, err
	}
	return predictions, nil
}
