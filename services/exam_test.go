package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/pddapp/backend/apperrors"
	"github.com/pddapp/backend/models"
)

type fakeCatalog struct {
	questions map[bson.ObjectID]models.Question
	order     []bson.ObjectID
}

func newFakeCatalog(n int) *fakeCatalog {
	c := &fakeCatalog{questions: map[bson.ObjectID]models.Question{}}
	for i := 0; i < n; i++ {
		q := models.Question{
			ID:         bson.NewObjectID(),
			Text:       fmt.Sprintf("question %d", i),
			Difficulty: models.DifficultyEasy,
			Options: []models.AnswerOption{
				{ID: bson.NewObjectID(), Text: "right", IsCorrect: true},
				{ID: bson.NewObjectID(), Text: "wrong a"},
				{ID: bson.NewObjectID(), Text: "wrong b"},
			},
		}
		c.questions[q.ID] = q
		c.order = append(c.order, q.ID)
	}
	return c
}

func (c *fakeCatalog) AllQuestions(_ context.Context) ([]models.Question, error) {
	out := make([]models.Question, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.questions[id])
	}
	return out, nil
}

func (c *fakeCatalog) QuestionByID(_ context.Context, id bson.ObjectID) (models.Question, error) {
	q, ok := c.questions[id]
	if !ok {
		return models.Question{}, apperrors.New(apperrors.NotFound, "question not found")
	}
	return q, nil
}

// correctOption / wrongOption pull options out of a catalog question.
func correctOption(q models.Question) bson.ObjectID {
	for _, opt := range q.Options {
		if opt.IsCorrect {
			return opt.ID
		}
	}
	panic("no correct option")
}

func wrongOption(q models.Question) bson.ObjectID {
	for _, opt := range q.Options {
		if !opt.IsCorrect {
			return opt.ID
		}
	}
	panic("no wrong option")
}

type answerKey struct {
	exam     bson.ObjectID
	question bson.ObjectID
}

// fakeExamStore mirrors the uniqueness guarantees the mongo indexes give:
// one in-progress session per user, one answer per (session, question).
type fakeExamStore struct {
	mu       sync.Mutex
	sessions map[bson.ObjectID]models.ExamSession
	answers  map[answerKey]models.ExamAnswer
}

func newFakeExamStore() *fakeExamStore {
	return &fakeExamStore{
		sessions: map[bson.ObjectID]models.ExamSession{},
		answers:  map[answerKey]models.ExamAnswer{},
	}
}

func (s *fakeExamStore) InsertSession(_ context.Context, session models.ExamSession) (models.ExamSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.sessions {
		if existing.UserID == session.UserID && existing.Status == models.ExamInProgress {
			return models.ExamSession{}, apperrors.New(apperrors.Conflict, "an exam is already in progress")
		}
	}
	session.ID = bson.NewObjectID()
	s.sessions[session.ID] = session
	return session, nil
}

func (s *fakeExamStore) SessionByID(_ context.Context, id bson.ObjectID) (models.ExamSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return models.ExamSession{}, apperrors.New(apperrors.NotFound, "exam not found")
	}
	return session, nil
}

func (s *fakeExamStore) InProgressSessionByUser(_ context.Context, userID bson.ObjectID) (models.ExamSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, session := range s.sessions {
		if session.UserID == userID && session.Status == models.ExamInProgress {
			return session, nil
		}
	}
	return models.ExamSession{}, apperrors.New(apperrors.NotFound, "no exam in progress")
}

func (s *fakeExamStore) RecordAnswer(_ context.Context, a models.ExamAnswer) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[a.ExamID]
	if !ok || session.Status != models.ExamInProgress {
		return 0, apperrors.New(apperrors.InvalidState, "exam already finished")
	}
	key := answerKey{exam: a.ExamID, question: a.QuestionID}
	if _, dup := s.answers[key]; dup {
		return 0, apperrors.New(apperrors.Conflict, "this question was already answered in this exam")
	}
	a.ID = bson.NewObjectID()
	s.answers[key] = a
	if a.IsCorrect {
		session.Score++
		s.sessions[a.ExamID] = session
	}
	return session.Score, nil
}

func (s *fakeExamStore) CountAnswers(_ context.Context, sessionID bson.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for key := range s.answers {
		if key.exam == sessionID {
			n++
		}
	}
	return n, nil
}

func (s *fakeExamStore) AnswersBySession(_ context.Context, sessionID bson.ObjectID) ([]models.ExamAnswer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ExamAnswer, 0)
	for key, a := range s.answers {
		if key.exam == sessionID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *fakeExamStore) FinishSession(_ context.Context, sessionID bson.ObjectID, status models.ExamStatus, finishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok || session.Status != models.ExamInProgress {
		return apperrors.New(apperrors.InvalidState, "exam already finished")
	}
	session.Status = status
	session.FinishedAt = &finishedAt
	s.sessions[sessionID] = session
	return nil
}

func (s *fakeExamStore) SessionsByUser(_ context.Context, userID bson.ObjectID, status *models.ExamStatus, limit, offset int64) ([]models.ExamSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ExamSession, 0)
	for _, session := range s.sessions {
		if session.UserID != userID {
			continue
		}
		if status != nil && session.Status != *status {
			continue
		}
		out = append(out, session)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if offset >= int64(len(out)) {
		return []models.ExamSession{}, nil
	}
	out = out[offset:]
	if limit < int64(len(out)) {
		out = out[:limit]
	}
	return out, nil
}

func newExamService(catalogSize int) (*ExamService, *fakeCatalog, *fakeExamStore) {
	catalog := newFakeCatalog(catalogSize)
	store := newFakeExamStore()
	return NewExamService(catalog, store), catalog, store
}

func TestExamService_StartInsufficientData(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newExamService(QuestionsPerExam - 1)

	_, err := svc.Start(ctx, bson.NewObjectID())
	assert.Equal(t, apperrors.InsufficientData, apperrors.KindOf(err))
}

func TestExamService_StartSamplesDistinctQuestions(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newExamService(50)

	result, err := svc.Start(ctx, bson.NewObjectID())
	require.NoError(t, err)
	require.Len(t, result.Questions, QuestionsPerExam)
	assert.Equal(t, models.ExamInProgress, result.Session.Status)
	assert.Equal(t, 0, result.Session.Score)

	seen := map[bson.ObjectID]bool{}
	for _, q := range result.Questions {
		assert.False(t, seen[q.ID], "duplicate question %s in one exam", q.ID.Hex())
		seen[q.ID] = true
	}
}

func TestExamService_StartConflictsWithActiveExam(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newExamService(30)
	userID := bson.NewObjectID()

	_, err := svc.Start(ctx, userID)
	require.NoError(t, err)

	_, err = svc.Start(ctx, userID)
	assert.Equal(t, apperrors.Conflict, apperrors.KindOf(err))
}

func TestExamService_ActiveExamOutranksShortCatalog(t *testing.T) {
	ctx := context.Background()
	svc, _, store := newExamService(QuestionsPerExam - 1)
	userID := bson.NewObjectID()

	_, err := store.InsertSession(ctx, models.ExamSession{
		UserID:    userID,
		Status:    models.ExamInProgress,
		StartedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	// the in-progress session wins over the catalog being too small
	_, err = svc.Start(ctx, userID)
	assert.Equal(t, apperrors.Conflict, apperrors.KindOf(err))
}

func TestExamService_ConcurrentStarts(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newExamService(30)
	userID := bson.NewObjectID()

	const callers = 8
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Start(ctx, userID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case apperrors.KindOf(err) == apperrors.Conflict:
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, callers-1, conflicts)
}

func TestExamService_Answer(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newExamService(30)
	userID := bson.NewObjectID()

	result, err := svc.Start(ctx, userID)
	require.NoError(t, err)
	examID := result.Session.ID
	q1 := result.Questions[0]
	q2 := result.Questions[1]

	// correct answer bumps the score
	ans, err := svc.Answer(ctx, examID, userID, q1.ID, correctOption(q1))
	require.NoError(t, err)
	assert.True(t, ans.IsCorrect)
	assert.Equal(t, 1, ans.Score)

	// wrong answer does not
	ans, err = svc.Answer(ctx, examID, userID, q2.ID, wrongOption(q2))
	require.NoError(t, err)
	assert.False(t, ans.IsCorrect)
	assert.Equal(t, 1, ans.Score)

	// second answer for the same question is rejected and the score stays
	_, err = svc.Answer(ctx, examID, userID, q1.ID, wrongOption(q1))
	assert.Equal(t, apperrors.Conflict, apperrors.KindOf(err))
	session, err := svc.store.SessionByID(ctx, examID)
	require.NoError(t, err)
	assert.Equal(t, 1, session.Score)

	t.Run("unknown session", func(t *testing.T) {
		_, err := svc.Answer(ctx, bson.NewObjectID(), userID, q1.ID, correctOption(q1))
		assert.Equal(t, apperrors.NotFound, apperrors.KindOf(err))
	})

	t.Run("foreign session", func(t *testing.T) {
		_, err := svc.Answer(ctx, examID, bson.NewObjectID(), q1.ID, correctOption(q1))
		assert.Equal(t, apperrors.Forbidden, apperrors.KindOf(err))
	})

	t.Run("unknown question", func(t *testing.T) {
		_, err := svc.Answer(ctx, examID, userID, bson.NewObjectID(), correctOption(q1))
		assert.Equal(t, apperrors.NotFound, apperrors.KindOf(err))
	})

	t.Run("option from another question", func(t *testing.T) {
		q3 := result.Questions[2]
		_, err := svc.Answer(ctx, examID, userID, q3.ID, correctOption(q1))
		assert.Equal(t, apperrors.NotFound, apperrors.KindOf(err))
	})
}

// staleSessionStore hands Answer an in-progress snapshot and then finishes
// the session before the answer is recorded, reproducing a finish racing an
// answer in flight.
type staleSessionStore struct {
	*fakeExamStore
	once sync.Once
}

func (s *staleSessionStore) SessionByID(ctx context.Context, id bson.ObjectID) (models.ExamSession, error) {
	session, err := s.fakeExamStore.SessionByID(ctx, id)
	if err == nil {
		s.once.Do(func() {
			_ = s.fakeExamStore.FinishSession(ctx, id, models.ExamCompleted, time.Now().UTC())
		})
	}
	return session, err
}

func TestExamService_AnswerLosesRaceWithFinish(t *testing.T) {
	ctx := context.Background()
	catalog := newFakeCatalog(30)
	inner := newFakeExamStore()
	store := &staleSessionStore{fakeExamStore: inner}
	svc := NewExamService(catalog, store)
	userID := bson.NewObjectID()

	result, err := svc.Start(ctx, userID)
	require.NoError(t, err)
	examID := result.Session.ID
	q := result.Questions[0]

	// the status read sees in_progress, but the session goes terminal
	// before the write; the store must refuse the late answer
	_, err = svc.Answer(ctx, examID, userID, q.ID, correctOption(q))
	assert.Equal(t, apperrors.InvalidState, apperrors.KindOf(err))

	session, err := inner.SessionByID(ctx, examID)
	require.NoError(t, err)
	assert.Equal(t, 0, session.Score)
	count, err := inner.CountAnswers(ctx, examID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

// answerAll records one answer per sampled question, correct of them.
func answerAll(t *testing.T, svc *ExamService, examID, userID bson.ObjectID, questions []models.Question, correct int) {
	t.Helper()
	ctx := context.Background()
	for i, q := range questions {
		optionID := wrongOption(q)
		if i < correct {
			optionID = correctOption(q)
		}
		_, err := svc.Answer(ctx, examID, userID, q.ID, optionID)
		require.NoError(t, err)
	}
}

func TestExamService_Finish(t *testing.T) {
	tests := []struct {
		name       string
		answered   int
		correct    int
		wantErr    apperrors.Kind
		wantPassed bool
		wantStatus models.ExamStatus
	}{
		{name: "incomplete exam rejected", answered: QuestionsPerExam - 1, correct: 10, wantErr: apperrors.InvalidState},
		{name: "passing score completes", answered: QuestionsPerExam, correct: PassingScore, wantPassed: true, wantStatus: models.ExamCompleted},
		{name: "below passing score fails", answered: QuestionsPerExam, correct: PassingScore - 1, wantPassed: false, wantStatus: models.ExamFailed},
		{name: "perfect score completes", answered: QuestionsPerExam, correct: QuestionsPerExam, wantPassed: true, wantStatus: models.ExamCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			svc, _, store := newExamService(30)
			userID := bson.NewObjectID()

			result, err := svc.Start(ctx, userID)
			require.NoError(t, err)
			examID := result.Session.ID

			answerAll(t, svc, examID, userID, result.Questions[:tt.answered], tt.correct)

			finish, err := svc.Finish(ctx, examID, userID)
			if tt.wantErr != 0 {
				assert.Equal(t, tt.wantErr, apperrors.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.correct, finish.Score)
			assert.Equal(t, tt.answered, finish.TotalAnswered)
			assert.Equal(t, tt.wantPassed, finish.Passed)
			assert.False(t, finish.FinishedAt.IsZero())

			session, err := store.SessionByID(ctx, examID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, session.Status)
			require.NotNil(t, session.FinishedAt)

			// terminal sessions reject both finish and answer
			_, err = svc.Finish(ctx, examID, userID)
			assert.Equal(t, apperrors.InvalidState, apperrors.KindOf(err))
			q := result.Questions[0]
			_, err = svc.Answer(ctx, examID, userID, q.ID, correctOption(q))
			assert.Equal(t, apperrors.InvalidState, apperrors.KindOf(err))
		})
	}
}

func TestExamService_FinishOwnership(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newExamService(30)
	userID := bson.NewObjectID()

	result, err := svc.Start(ctx, userID)
	require.NoError(t, err)

	_, err = svc.Finish(ctx, result.Session.ID, bson.NewObjectID())
	assert.Equal(t, apperrors.Forbidden, apperrors.KindOf(err))
}

func TestExamService_ListAndGet(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newExamService(30)
	userID := bson.NewObjectID()

	// three sessions: two finished, one active
	first, err := svc.Start(ctx, userID)
	require.NoError(t, err)
	answerAll(t, svc, first.Session.ID, userID, first.Questions, PassingScore)
	_, err = svc.Finish(ctx, first.Session.ID, userID)
	require.NoError(t, err)

	second, err := svc.Start(ctx, userID)
	require.NoError(t, err)
	answerAll(t, svc, second.Session.ID, userID, second.Questions, 5)
	_, err = svc.Finish(ctx, second.Session.ID, userID)
	require.NoError(t, err)

	third, err := svc.Start(ctx, userID)
	require.NoError(t, err)

	all, err := svc.List(ctx, userID, nil, 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	// most recent start first
	assert.Equal(t, third.Session.ID, all[0].ID)

	completed := models.ExamCompleted
	passedOnly, err := svc.List(ctx, userID, &completed, 10, 0)
	require.NoError(t, err)
	require.Len(t, passedOnly, 1)
	assert.Equal(t, first.Session.ID, passedOnly[0].ID)

	session, answers, err := svc.Get(ctx, first.Session.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, models.ExamCompleted, session.Status)
	assert.Len(t, answers, QuestionsPerExam)

	_, _, err = svc.Get(ctx, first.Session.ID, bson.NewObjectID())
	assert.Equal(t, apperrors.Forbidden, apperrors.KindOf(err))

	_, _, err = svc.Get(ctx, bson.NewObjectID(), userID)
	assert.Equal(t, apperrors.NotFound, apperrors.KindOf(err))
}
