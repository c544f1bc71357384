package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type Difficulty string

const (
	DifficultyEasy     Difficulty = "easy"
	DifficultyMedium   Difficulty = "medium"
	DifficultyAdvanced Difficulty = "advanced"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyAdvanced:
		return true
	}
	return false
}

// AnswerOption lives embedded in its question document, which is also what
// makes "option belongs to question" a lookup inside one record.
type AnswerOption struct {
	ID        bson.ObjectID `bson:"_id" json:"id"`
	Text      string        `bson:"text" json:"text"`
	IsCorrect bool          `bson:"isCorrect" json:"is_correct"`
}

type Question struct {
	ID          bson.ObjectID  `bson:"_id,omitempty" json:"id"`
	Text        string         `bson:"text" json:"text"`
	Image       string         `bson:"image,omitempty" json:"image,omitempty"`
	Explanation string         `bson:"explanation" json:"explanation"`
	Difficulty  Difficulty     `bson:"difficulty" json:"difficulty"`
	CategoryID  bson.ObjectID  `bson:"categoryId" json:"category_id"`
	Options     []AnswerOption `bson:"options" json:"options"`
	CreatedAt   time.Time      `bson:"createdAt" json:"created_at"`
}

// OptionByID returns the option with the given id if it belongs to q.
func (q Question) OptionByID(id bson.ObjectID) (AnswerOption, bool) {
	for _, opt := range q.Options {
		if opt.ID == id {
			return opt, true
		}
	}
	return AnswerOption{}, false
}
