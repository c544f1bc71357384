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
)

type QuestionRepository struct {
	col *mongo.Collection
}

func NewQuestionRepository(db *mongo.Database) *QuestionRepository {
	return &QuestionRepository{col: db.Collection(database.QuestionsCollection)}
}

func (r *QuestionRepository) InsertQuestion(ctx context.Context, q models.Question) (models.Question, error) {
	q.ID = bson.NewObjectID()
	if _, err := r.col.InsertOne(ctx, q); err != nil {
		return models.Question{}, err
	}
	return q, nil
}

func (r *QuestionRepository) QuestionByID(ctx context.Context, id bson.ObjectID) (models.Question, error) {
	var q models.Question
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&q); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Question{}, apperrors.New(apperrors.NotFound, "question not found")
		}
		return models.Question{}, err
	}
	return q, nil
}

// AllQuestions loads the full catalog; the exam engine samples from it.
func (r *QuestionRepository) AllQuestions(ctx context.Context) ([]models.Question, error) {
	cursor, err := r.col.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	questions := make([]models.Question, 0)
	if err := cursor.All(ctx, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

type QuestionFilter struct {
	CategoryID *bson.ObjectID
	Difficulty *models.Difficulty
}

func (r *QuestionRepository) Questions(ctx context.Context, f QuestionFilter, limit, offset int64) ([]models.Question, int64, error) {
	filter := bson.M{}
	if f.CategoryID != nil {
		filter["categoryId"] = *f.CategoryID
	}
	if f.Difficulty != nil {
		filter["difficulty"] = *f.Difficulty
	}

	opts := options.Find().
		SetSkip(offset).
		SetLimit(limit).
		SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	questions := make([]models.Question, 0)
	if err := cursor.All(ctx, &questions); err != nil {
		return nil, 0, err
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return questions, total, nil
}

func (r *QuestionRepository) UpdateQuestion(ctx context.Context, id bson.ObjectID, set bson.M) error {
	res, err := r.col.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperrors.New(apperrors.NotFound, "question not found")
	}
	return nil
}

// DeleteQuestion removes the question with its embedded options.
func (r *QuestionRepository) DeleteQuestion(ctx context.Context, id bson.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperrors.New(apperrors.NotFound, "question not found")
	}
	return nil
}

// DeleteQuestionsByCategory backs the category cascade.
func (r *QuestionRepository) DeleteQuestionsByCategory(ctx context.Context, categoryID bson.ObjectID) error {
	_, err := r.col.DeleteMany(ctx, bson.M{"categoryId": categoryID})
	return err
}
