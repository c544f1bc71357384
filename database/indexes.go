package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/pddapp/backend/models"
)

// EnsureIndexes provisions the unique indexes the invariants rest on.
// Check-then-insert alone is racy; the partial index on in-progress sessions
// and the compound index on (examId, questionId) make the insert itself the
// arbiter, so concurrent starts or duplicate answers come back as E11000.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	unique := func(keys bson.D) mongo.IndexModel {
		return mongo.IndexModel{Keys: keys, Options: options.Index().SetUnique(true)}
	}

	specs := map[string][]mongo.IndexModel{
		UsersCollection: {
			unique(bson.D{{Key: "email", Value: 1}}),
			unique(bson.D{{Key: "username", Value: 1}}),
		},
		TokensCollection: {
			unique(bson.D{{Key: "token", Value: 1}}),
			{Keys: bson.D{{Key: "userId", Value: 1}}},
		},
		CategoriesCollection: {
			unique(bson.D{{Key: "name", Value: 1}}),
			unique(bson.D{{Key: "slug", Value: 1}}),
		},
		QuestionsCollection: {
			{Keys: bson.D{{Key: "categoryId", Value: 1}}},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		},
		ExamsCollection: {
			{
				Keys: bson.D{{Key: "userId", Value: 1}},
				Options: options.Index().
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"status": models.ExamInProgress}),
			},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "startedAt", Value: -1}}},
		},
		AnswersCollection: {
			unique(bson.D{{Key: "examId", Value: 1}, {Key: "questionId", Value: 1}}),
		},
		PredictionsCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}

	for col, idx := range specs {
		if _, err := db.Collection(col).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes on %s: %w", col, err)
		}
	}
	return nil
}
