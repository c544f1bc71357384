package services

import (
	"context"
	"math/rand/v2"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/pddapp/backend/apperrors"
	"github.com/pddapp/backend/models"
)

const (
	QuestionsPerExam = 20
	PassingScore     = 18
)

type QuestionCatalog interface {
	AllQuestions(ctx context.Context) ([]models.Question, error)
	QuestionByID(ctx context.Context, id bson.ObjectID) (models.Question, error)
}

type ExamStore interface {
	InsertSession(ctx context.Context, s models.ExamSession) (models.ExamSession, error)
	SessionByID(ctx context.Context, id bson.ObjectID) (models.ExamSession, error)
	InProgressSessionByUser(ctx context.Context, userID bson.ObjectID) (models.ExamSession, error)
	RecordAnswer(ctx context.Context, a models.ExamAnswer) (int, error)
	CountAnswers(ctx context.Context, sessionID bson.ObjectID) (int64, error)
	AnswersBySession(ctx context.Context, sessionID bson.ObjectID) ([]models.ExamAnswer, error)
	FinishSession(ctx context.Context, sessionID bson.ObjectID, status models.ExamStatus, finishedAt time.Time) error
	SessionsByUser(ctx context.Context, userID bson.ObjectID, status *models.ExamStatus, limit, offset int64) ([]models.ExamSession, error)
}

// ExamService runs timed, scored exam attempts: sampling, answer recording
// and the one-way finish transition.
type ExamService struct {
	catalog QuestionCatalog
	store   ExamStore
}

func NewExamService(catalog QuestionCatalog, store ExamStore) *ExamService {
	return &ExamService{catalog: catalog, store: store}
}

type StartResult struct {
	Session   models.ExamSession
	Questions []models.Question
}

// Start opens a new in-progress session and samples QuestionsPerExam
// distinct questions uniformly without replacement. An active session is
// reported before anything else, so a short catalog never masks it.
func (s *ExamService) Start(ctx context.Context, userID bson.ObjectID) (StartResult, error) {
	if _, err := s.store.InProgressSessionByUser(ctx, userID); err == nil {
		return StartResult{}, apperrors.New(apperrors.Conflict, "an exam is already in progress, finish it before starting a new one")
	} else if apperrors.KindOf(err) != apperrors.NotFound {
		return StartResult{}, err
	}

	all, err := s.catalog.AllQuestions(ctx)
	if err != nil {
		return StartResult{}, err
	}
	if len(all) < QuestionsPerExam {
		return StartResult{}, apperrors.New(apperrors.InsufficientData,
			"not enough questions for an exam, at least %d required", QuestionsPerExam)
	}

	sampled := make([]models.Question, 0, QuestionsPerExam)
	for _, i := range rand.Perm(len(all))[:QuestionsPerExam] {
		sampled = append(sampled, all[i])
	}

	// The partial unique index still rejects this insert when another
	// start slipped in after the check above.
	session, err := s.store.InsertSession(ctx, models.ExamSession{
		UserID:    userID,
		Score:     0,
		Status:    models.ExamInProgress,
		StartedAt: time.Now().UTC(),
	})
	if err != nil {
		return StartResult{}, err
	}

	return StartResult{Session: session, Questions: sampled}, nil
}

type AnswerResult struct {
	IsCorrect bool
	Score     int
}

// Answer records one answer for an in-progress session owned by userID.
// Accepted answers are irreversible.
func (s *ExamService) Answer(ctx context.Context, sessionID, userID, questionID, optionID bson.ObjectID) (AnswerResult, error) {
	session, err := s.ownedSession(ctx, sessionID, userID)
	if err != nil {
		return AnswerResult{}, err
	}
	if session.Status != models.ExamInProgress {
		return AnswerResult{}, apperrors.New(apperrors.InvalidState, "exam already finished")
	}

	question, err := s.catalog.QuestionByID(ctx, questionID)
	if err != nil {
		return AnswerResult{}, err
	}

	option, ok := question.OptionByID(optionID)
	if !ok {
		return AnswerResult{}, apperrors.New(apperrors.NotFound, "answer option not found or does not belong to this question")
	}

	// The store re-checks the status while recording, so a finish racing
	// this call cannot end up with an extra answer on a closed session.
	score, err := s.store.RecordAnswer(ctx, models.ExamAnswer{
		ExamID:           sessionID,
		QuestionID:       questionID,
		SelectedOptionID: optionID,
		IsCorrect:        option.IsCorrect,
		AnsweredAt:       time.Now().UTC(),
	})
	if err != nil {
		return AnswerResult{}, err
	}

	return AnswerResult{IsCorrect: option.IsCorrect, Score: score}, nil
}

type FinishResult struct {
	Score         int
	TotalAnswered int
	Passed        bool
	FinishedAt    time.Time
}

// Finish closes a fully answered session, pass or fail. Partial exams are
// rejected, not treated as early termination.
func (s *ExamService) Finish(ctx context.Context, sessionID, userID bson.ObjectID) (FinishResult, error) {
	session, err := s.ownedSession(ctx, sessionID, userID)
	if err != nil {
		return FinishResult{}, err
	}
	if session.Status != models.ExamInProgress {
		return FinishResult{}, apperrors.New(apperrors.InvalidState, "exam already finished")
	}

	answered, err := s.store.CountAnswers(ctx, sessionID)
	if err != nil {
		return FinishResult{}, err
	}
	if answered < QuestionsPerExam {
		return FinishResult{}, apperrors.New(apperrors.InvalidState,
			"only %d of %d questions answered", answered, QuestionsPerExam)
	}

	passed := session.Score >= PassingScore
	status := models.ExamFailed
	if passed {
		status = models.ExamCompleted
	}

	finishedAt := time.Now().UTC()
	if err := s.store.FinishSession(ctx, sessionID, status, finishedAt); err != nil {
		return FinishResult{}, err
	}

	return FinishResult{
		Score:         session.Score,
		TotalAnswered: int(answered),
		Passed:        passed,
		FinishedAt:    finishedAt,
	}, nil
}

func (s *ExamService) List(ctx context.Context, userID bson.ObjectID, status *models.ExamStatus, limit, offset int64) ([]models.ExamSession, error) {
	return s.store.SessionsByUser(ctx, userID, status, limit, offset)
}

func (s *ExamService) Get(ctx context.Context, sessionID, userID bson.ObjectID) (models.ExamSession, []models.ExamAnswer, error) {
	session, err := s.ownedSession(ctx, sessionID, userID)
	if err != nil {
		return models.ExamSession{}, nil, err
	}
	answers, err := s.store.AnswersBySession(ctx, sessionID)
	if err != nil {
		return models.ExamSession{}, nil, err
	}
	return session, answers, nil
}

func (s *ExamService) ownedSession(ctx context.Context, sessionID, userID bson.ObjectID) (models.ExamSession, error) {
	session, err := s.store.SessionByID(ctx, sessionID)
	if err != nil {
		return models.ExamSession{}, err
	}
	if session.UserID != userID {
		return models.ExamSession{}, apperrors.New(apperrors.Forbidden, "this exam belongs to another user")
	}
	return session, nil
}
