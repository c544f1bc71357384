package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// SignPrediction logs one road-sign classification requested by a user.
type SignPrediction struct {
	ID          bson.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      bson.ObjectID `bson:"userId" json:"user_id"`
	ImageURL    string        `bson:"imageUrl" json:"image_url"`
	Label       string        `bson:"label" json:"label"`
	Category    string        `bson:"category" json:"category"`
	Description string        `bson:"description" json:"description"`
	Confidence  float64       `bson:"confidence" json:"confidence"`
	CreatedAt   time.Time     `bson:"createdAt" json:"created_at"`
}
