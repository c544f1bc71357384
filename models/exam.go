package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type ExamStatus string

const (
	ExamInProgress ExamStatus = "in_progress"
	ExamCompleted  ExamStatus = "completed"
	ExamFailed     ExamStatus = "failed"
)

func (s ExamStatus) Valid() bool {
	switch s {
	case ExamInProgress, ExamCompleted, ExamFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from s.
func (s ExamStatus) Terminal() bool {
	return s == ExamCompleted || s == ExamFailed
}

type ExamSession struct {
	ID         bson.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     bson.ObjectID `bson:"userId" json:"user_id"`
	Score      int           `bson:"score" json:"score"`
	Status     ExamStatus    `bson:"status" json:"status"`
	StartedAt  time.Time     `bson:"startedAt" json:"started_at"`
	FinishedAt *time.Time    `bson:"finishedAt,omitempty" json:"finished_at"`
}

type ExamAnswer struct {
	ID               bson.ObjectID `bson:"_id,omitempty" json:"id"`
	ExamID           bson.ObjectID `bson:"examId" json:"exam_id"`
	QuestionID       bson.ObjectID `bson:"questionId" json:"question_id"`
	SelectedOptionID bson.ObjectID `bson:"selectedOptionId" json:"selected_option_id"`
	IsCorrect        bool          `bson:"isCorrect" json:"is_correct"`
	AnsweredAt       time.Time     `bson:"answeredAt" json:"answered_at"`
}
