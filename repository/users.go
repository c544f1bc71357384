package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/pddapp/backend/apperrors"
	"github.com/pddapp/backend/database"
	"github.com/pddapp/backend/models"
	"github.com/pddapp/backend/utils"
)

type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection(database.UsersCollection)}
}

func (r *UserRepository) InsertUser(ctx context.Context, user models.User) (models.User, error) {
	user.ID = bson.NewObjectID()
	if _, err := r.col.InsertOne(ctx, user); err != nil {
		if utils.IsDuplicateKey(err) {
			return models.User{}, apperrors.New(apperrors.Conflict, "email or username already exists")
		}
		return models.User{}, err
	}
	return user, nil
}

func (r *UserRepository) UserByID(ctx context.Context, id bson.ObjectID) (models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepository) UserByEmail(ctx context.Context, email string) (models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) UserByUsername(ctx context.Context, username string) (models.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (models.User, error) {
	var user models.User
	if err := r.col.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, apperrors.New(apperrors.NotFound, "user not found")
		}
		return models.User{}, err
	}
	return user, nil
}

func (r *UserRepository) UpdateUser(ctx context.Context, id bson.ObjectID, set bson.M) error {
	res, err := r.col.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		if utils.IsDuplicateKey(err) {
			return apperrors.New(apperrors.Conflict, "email or username already exists")
		}
		return err
	}
	if res.MatchedCount == 0 {
		return apperrors.New(apperrors.NotFound, "user not found")
	}
	return nil
}
