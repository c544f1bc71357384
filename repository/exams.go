package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/pddapp/backend/apperrors"
	"github.com/pddapp/backend/database"
	"github.com/pddapp/backend/models"
	"github.com/pddapp/backend/utils"
)

type ExamRepository struct {
	sessions *mongo.Collection
	answers  *mongo.Collection
}

func NewExamRepository(db *mongo.Database) *ExamRepository {
	return &ExamRepository{
		sessions: db.Collection(database.ExamsCollection),
		answers:  db.Collection(database.AnswersCollection),
	}
}

// InsertSession creates an in-progress session. The partial unique index on
// userId makes a second concurrent insert fail with a duplicate key, which
// is what keeps "one in-progress exam per user" true under races.
func (r *ExamRepository) InsertSession(ctx context.Context, s models.ExamSession) (models.ExamSession, error) {
	s.ID = bson.NewObjectID()
	if _, err := r.sessions.InsertOne(ctx, s); err != nil {
		if utils.IsDuplicateKey(err) {
			return models.ExamSession{}, apperrors.New(apperrors.Conflict, "an exam is already in progress, finish it before starting a new one")
		}
		return models.ExamSession{}, err
	}
	return s, nil
}

func (r *ExamRepository) SessionByID(ctx context.Context, id bson.ObjectID) (models.ExamSession, error) {
	var s models.ExamSession
	if err := r.sessions.FindOne(ctx, bson.M{"_id": id}).Decode(&s); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.ExamSession{}, apperrors.New(apperrors.NotFound, "exam not found")
		}
		return models.ExamSession{}, err
	}
	return s, nil
}

func (r *ExamRepository) InProgressSessionByUser(ctx context.Context, userID bson.ObjectID) (models.ExamSession, error) {
	var s models.ExamSession
	filter := bson.M{"userId": userID, "status": models.ExamInProgress}
	if err := r.sessions.FindOne(ctx, filter).Decode(&s); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.ExamSession{}, apperrors.New(apperrors.NotFound, "no exam in progress")
		}
		return models.ExamSession{}, err
	}
	return s, nil
}

// RecordAnswer stores one answer and updates the running score in lockstep.
// The score update is filtered on status, so a session that went terminal in
// the meantime matches nothing and the answer is never written. The unique
// index on (examId, questionId) rejects a second answer for the same
// question; a correct duplicate gets its score bump undone.
func (r *ExamRepository) RecordAnswer(ctx context.Context, a models.ExamAnswer) (int, error) {
	delta := 0
	if a.IsCorrect {
		delta = 1
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var s models.ExamSession
	err := r.sessions.FindOneAndUpdate(ctx,
		bson.M{"_id": a.ExamID, "status": models.ExamInProgress},
		bson.M{"$inc": bson.M{"score": delta}},
		opts,
	).Decode(&s)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, apperrors.New(apperrors.InvalidState, "exam already finished")
		}
		return 0, err
	}

	a.ID = bson.NewObjectID()
	if _, err := r.answers.InsertOne(ctx, a); err != nil {
		if utils.IsDuplicateKey(err) {
			if a.IsCorrect {
				_, _ = r.sessions.UpdateOne(ctx,
					bson.M{"_id": a.ExamID},
					bson.M{"$inc": bson.M{"score": -1}},
				)
			}
			return 0, apperrors.New(apperrors.Conflict, "this question was already answered in this exam")
		}
		return 0, err
	}
	return s.Score, nil
}

func (r *ExamRepository) CountAnswers(ctx context.Context, sessionID bson.ObjectID) (int64, error) {
	return r.answers.CountDocuments(ctx, bson.M{"examId": sessionID})
}

func (r *ExamRepository) AnswersBySession(ctx context.Context, sessionID bson.ObjectID) ([]models.ExamAnswer, error) {
	opts := options.Find().SetSort(bson.D{{Key: "answeredAt", Value: 1}})
	cursor, err := r.answers.Find(ctx, bson.M{"examId": sessionID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	answers := make([]models.ExamAnswer, 0)
	if err := cursor.All(ctx, &answers); err != nil {
		return nil, err
	}
	return answers, nil
}

// FinishSession moves an in-progress session to its terminal status. The
// status filter makes the transition one-way even when two finish calls
// race: the loser matches nothing.
func (r *ExamRepository) FinishSession(ctx context.Context, sessionID bson.ObjectID, status models.ExamStatus, finishedAt time.Time) error {
	res, err := r.sessions.UpdateOne(ctx,
		bson.M{"_id": sessionID, "status": models.ExamInProgress},
		bson.M{"$set": bson.M{"status": status, "finishedAt": finishedAt}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperrors.New(apperrors.InvalidState, "exam already finished")
	}
	return nil
}

func (r *ExamRepository) SessionsByUser(ctx context.Context, userID bson.ObjectID, status *models.ExamStatus, limit, offset int64) ([]models.ExamSession, error) {
	filter := bson.M{"userId": userID}
	if status != nil {
		filter["status"] = *status
	}

	opts := options.Find().
		SetSkip(offset).
		SetLimit(limit).
		SetSort(bson.D{{Key: "startedAt", Value: -1}})

	cursor, err := r.sessions.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	sessions := make([]models.ExamSession, 0)
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// UserExamStats aggregates passed-exam count and average score over
// completed exams.
func (r *ExamRepository) UserExamStats(ctx context.Context, userID bson.ObjectID) (int64, float64, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{
			"userId": userID,
			"status": models.ExamCompleted,
		}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":      nil,
			"passed":   bson.M{"$sum": 1},
			"avgScore": bson.M{"$avg": "$score"},
		}}},
	}

	cursor, err := r.sessions.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, 0, err
	}
	defer cursor.Close(ctx)

	var out []struct {
		Passed   int64   `bson:"passed"`
		AvgScore float64 `bson:"avgScore"`
	}
	if err := cursor.All(ctx, &out); err != nil {
		return 0, 0, err
	}
	if len(out) == 0 {
		return 0, 0, nil
	}
	return out[0].Passed, out[0].AvgScore, nil
}
