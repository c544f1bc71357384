package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/pddapp/backend/database"
	"github.com/pddapp/backend/models"
)

type TokenRepository struct {
	col *mongo.Collection
}

func NewTokenRepository(db *mongo.Database) *TokenRepository {
	return &TokenRepository{col: db.Collection(database.TokensCollection)}
}

func (r *TokenRepository) InsertToken(ctx context.Context, token models.RefreshToken) error {
	_, err := r.col.InsertOne(ctx, token)
	return err
}

// TokenExists checks for a persisted grant matching the exact token string
// and subject.
func (r *TokenRepository) TokenExists(ctx context.Context, token string, userID bson.ObjectID) (bool, error) {
	err := r.col.FindOne(ctx, bson.M{"token": token, "userId": userID}).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// DeleteToken revokes a grant. Deleting an absent token is not an error.
func (r *TokenRepository) DeleteToken(ctx context.Context, token string) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"token": token})
	return err
}
