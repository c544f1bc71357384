package database

import (
	"context"
	"fmt"
	"os"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const (
	UsersCollection       = "users"
	TokensCollection      = "refresh_tokens"
	CategoriesCollection  = "categories"
	QuestionsCollection   = "questions"
	ExamsCollection       = "exam_sessions"
	AnswersCollection     = "exam_answers"
	PredictionsCollection = "sign_predictions"
)

// Connect opens the client once; the handle is passed down explicitly
// instead of living in package state. Env loading happens in main.
func Connect(ctx context.Context) (*mongo.Database, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	uri := os.Getenv("MONGODB_URI")
	opts := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	name := os.Getenv("DATABASE_NAME")
	if name == "" {
		name = "pdd"
	}
	return client.Database(name), nil
}
