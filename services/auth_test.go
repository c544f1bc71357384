package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/pddapp/backend/apperrors"
	"github.com/pddapp/backend/models"
	"github.com/pddapp/backend/utils"
)

type fakeUserStore struct {
	mu    sync.Mutex
	users map[bson.ObjectID]models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[bson.ObjectID]models.User{}}
}

func (s *fakeUserStore) InsertUser(_ context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email || u.Username == user.Username {
			return models.User{}, apperrors.New(apperrors.Conflict, "email or username already exists")
		}
	}
	user.ID = bson.NewObjectID()
	s.users[user.ID] = user
	return user, nil
}

func (s *fakeUserStore) UserByID(_ context.Context, id bson.ObjectID) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return models.User{}, apperrors.New(apperrors.NotFound, "user not found")
	}
	return user, nil
}

func (s *fakeUserStore) UserByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, apperrors.New(apperrors.NotFound, "user not found")
}

func (s *fakeUserStore) UserByUsername(_ context.Context, username string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return models.User{}, apperrors.New(apperrors.NotFound, "user not found")
}

type fakeTokenStore struct {
	mu     sync.Mutex
	tokens map[string]bson.ObjectID
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{tokens: map[string]bson.ObjectID{}}
}

func (s *fakeTokenStore) InsertToken(_ context.Context, token models.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token.Token] = token.UserID
	return nil
}

func (s *fakeTokenStore) TokenExists(_ context.Context, token string, userID bson.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner, ok := s.tokens[token]
	return ok && owner == userID, nil
}

func (s *fakeTokenStore) DeleteToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
	return nil
}

func newAuthService() (*AuthService, *fakeUserStore, *fakeTokenStore) {
	users := newFakeUserStore()
	tokens := newFakeTokenStore()
	codec := utils.NewTokenCodec("test-secret", 15*time.Minute, 24*time.Hour)
	return NewAuthService(users, tokens, codec), users, tokens
}

func TestAuthService_RegisterLogin(t *testing.T) {
	ctx := context.Background()
	auth, _, _ := newAuthService()

	user, err := auth.Register(ctx, "Ivan@Example.com", "ivan", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "ivan@example.com", user.Email)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.NotEqual(t, "secret123", user.PasswordHash)
	assert.False(t, user.ID.IsZero())

	pair, err := auth.Login(ctx, "ivan@example.com", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, "Bearer", pair.TokenType)

	// wrong password and unknown email fail identically
	_, err = auth.Login(ctx, "ivan@example.com", "wrong")
	assert.Equal(t, apperrors.Unauthorized, apperrors.KindOf(err))

	_, unknownErr := auth.Login(ctx, "nobody@example.com", "secret123")
	assert.Equal(t, apperrors.Unauthorized, apperrors.KindOf(unknownErr))
	assert.Equal(t, err.Error(), unknownErr.Error())
}

func TestAuthService_RegisterConflicts(t *testing.T) {
	ctx := context.Background()
	auth, _, _ := newAuthService()

	_, err := auth.Register(ctx, "a@example.com", "alice", "secret123")
	require.NoError(t, err)

	tests := []struct {
		name     string
		email    string
		username string
	}{
		{name: "duplicate email", email: "a@example.com", username: "bob"},
		{name: "duplicate username", email: "b@example.com", username: "alice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.Register(ctx, tt.email, tt.username, "secret123")
			assert.Equal(t, apperrors.Conflict, apperrors.KindOf(err))
		})
	}
}

func TestAuthService_AccessTokenRoundTrip(t *testing.T) {
	ctx := context.Background()
	auth, _, _ := newAuthService()

	user, err := auth.Register(ctx, "ivan@example.com", "ivan", "secret123")
	require.NoError(t, err)

	pair, err := auth.Login(ctx, "ivan@example.com", "secret123")
	require.NoError(t, err)

	ident, err := auth.ResolveIdentity(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, ident.ID)
	assert.Equal(t, "ivan@example.com", ident.Email)
	assert.Equal(t, "ivan", ident.Username)

	// a refresh token must not pass as an access token
	_, err = auth.ResolveIdentity(ctx, pair.RefreshToken)
	assert.Equal(t, apperrors.Unauthorized, apperrors.KindOf(err))

	_, err = auth.ResolveIdentity(ctx, "garbage")
	assert.Equal(t, apperrors.Unauthorized, apperrors.KindOf(err))
}

func TestAuthService_ResolveIdentityDeletedUser(t *testing.T) {
	ctx := context.Background()
	auth, users, _ := newAuthService()

	user, err := auth.Register(ctx, "ivan@example.com", "ivan", "secret123")
	require.NoError(t, err)

	pair, err := auth.Login(ctx, "ivan@example.com", "secret123")
	require.NoError(t, err)

	users.mu.Lock()
	delete(users.users, user.ID)
	users.mu.Unlock()

	_, err = auth.ResolveIdentity(ctx, pair.AccessToken)
	assert.Equal(t, apperrors.NotFound, apperrors.KindOf(err))
}

func TestAuthService_Refresh(t *testing.T) {
	ctx := context.Background()
	auth, _, _ := newAuthService()

	user, err := auth.Register(ctx, "ivan@example.com", "ivan", "secret123")
	require.NoError(t, err)

	pair, err := auth.Login(ctx, "ivan@example.com", "secret123")
	require.NoError(t, err)

	access, err := auth.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)

	ident, err := auth.ResolveIdentity(ctx, access)
	require.NoError(t, err)
	assert.Equal(t, user.ID, ident.ID)

	// the refresh token is not rotated: it keeps working
	_, err = auth.Refresh(ctx, pair.RefreshToken)
	assert.NoError(t, err)

	// an access token must not pass as a refresh token
	_, err = auth.Refresh(ctx, pair.AccessToken)
	assert.Equal(t, apperrors.Unauthorized, apperrors.KindOf(err))
}

func TestAuthService_RefreshAfterLogout(t *testing.T) {
	ctx := context.Background()
	auth, _, _ := newAuthService()

	_, err := auth.Register(ctx, "ivan@example.com", "ivan", "secret123")
	require.NoError(t, err)

	pair, err := auth.Login(ctx, "ivan@example.com", "secret123")
	require.NoError(t, err)

	require.NoError(t, auth.Logout(ctx, pair.RefreshToken))

	_, err = auth.Refresh(ctx, pair.RefreshToken)
	assert.Equal(t, apperrors.Unauthorized, apperrors.KindOf(err))

	// logout is idempotent
	assert.NoError(t, auth.Logout(ctx, pair.RefreshToken))
}

func TestAuthService_RequireRole(t *testing.T) {
	auth, _, _ := newAuthService()

	admin := Identity{Role: models.RoleAdmin}
	user := Identity{Role: models.RoleUser}

	assert.NoError(t, auth.RequireRole(admin, models.RoleAdmin))
	err := auth.RequireRole(user, models.RoleAdmin)
	assert.Equal(t, apperrors.Forbidden, apperrors.KindOf(err))
}
