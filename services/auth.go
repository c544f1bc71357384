package services

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/pddapp/backend/apperrors"
	"github.com/pddapp/backend/models"
	"github.com/pddapp/backend/utils"
)

type UserStore interface {
	InsertUser(ctx context.Context, user models.User) (models.User, error)
	UserByID(ctx context.Context, id bson.ObjectID) (models.User, error)
	UserByEmail(ctx context.Context, email string) (models.User, error)
	UserByUsername(ctx context.Context, username string) (models.User, error)
}

type RefreshTokenStore interface {
	InsertToken(ctx context.Context, token models.RefreshToken) error
	TokenExists(ctx context.Context, token string, userID bson.ObjectID) (bool, error)
	DeleteToken(ctx context.Context, token string) error
}

// Identity is what the rest of the API gets back for a valid bearer token.
type Identity struct {
	ID       bson.ObjectID
	Email    string
	Username string
	Role     models.Role
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// AuthService owns the credential lifecycle: registration, login, access
// token refresh and revocation. Access tokens are stateless; refresh tokens
// are persisted so logout can actually revoke them.
type AuthService struct {
	users  UserStore
	tokens RefreshTokenStore
	codec  *utils.TokenCodec
}

func NewAuthService(users UserStore, tokens RefreshTokenStore, codec *utils.TokenCodec) *AuthService {
	return &AuthService{users: users, tokens: tokens, codec: codec}
}

func (s *AuthService) Register(ctx context.Context, email, username, password string) (models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)

	if _, err := s.users.UserByEmail(ctx, email); err == nil {
		return models.User{}, apperrors.New(apperrors.Conflict, "email already exists")
	} else if apperrors.KindOf(err) != apperrors.NotFound {
		return models.User{}, err
	}
	if _, err := s.users.UserByUsername(ctx, username); err == nil {
		return models.User{}, apperrors.New(apperrors.Conflict, "username already exists")
	} else if apperrors.KindOf(err) != apperrors.NotFound {
		return models.User{}, err
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}

	// The unique indexes still backstop the checks above under races.
	return s.users.InsertUser(ctx, models.User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Role:         models.RoleUser,
		CreatedAt:    time.Now().UTC(),
	})
}

// Login verifies credentials and issues both tokens. Unknown email and bad
// password produce the same error so the response does not leak which check
// failed.
func (s *AuthService) Login(ctx context.Context, email, password string) (TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	invalid := apperrors.New(apperrors.Unauthorized, "invalid email or password")

	user, err := s.users.UserByEmail(ctx, email)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.NotFound {
			return TokenPair{}, invalid
		}
		return TokenPair{}, err
	}
	if err := utils.CheckPassword(user.PasswordHash, password); err != nil {
		return TokenPair{}, invalid
	}

	access, err := s.codec.IssueAccess(user.ID.Hex(), user.Email)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.codec.IssueRefresh(user.ID.Hex())
	if err != nil {
		return TokenPair{}, err
	}

	if err := s.tokens.InsertToken(ctx, models.RefreshToken{
		UserID:    user.ID,
		Token:     refresh,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
	}, nil
}

// Refresh mints a new access token. The refresh token itself is not rotated;
// the same grant stays valid until logout or its own expiry.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.codec.Verify(refreshToken, utils.TokenRefresh)
	if err != nil {
		return "", err
	}

	userID, err := bson.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return "", apperrors.New(apperrors.Unauthorized, "invalid token subject")
	}

	exists, err := s.tokens.TokenExists(ctx, refreshToken, userID)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", apperrors.New(apperrors.Unauthorized, "token revoked")
	}

	user, err := s.users.UserByID(ctx, userID)
	if err != nil {
		return "", err
	}

	return s.codec.IssueAccess(user.ID.Hex(), user.Email)
}

// Logout revokes the persisted grant. Idempotent.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.tokens.DeleteToken(ctx, refreshToken)
}

// ResolveIdentity validates an access token and loads the subject. This is
// the capability every authenticated endpoint hangs off.
func (s *AuthService) ResolveIdentity(ctx context.Context, accessToken string) (Identity, error) {
	claims, err := s.codec.Verify(accessToken, utils.TokenAccess)
	if err != nil {
		return Identity{}, err
	}

	userID, err := bson.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return Identity{}, apperrors.New(apperrors.Unauthorized, "invalid token subject")
	}

	user, err := s.users.UserByID(ctx, userID)
	if err != nil {
		return Identity{}, err
	}

	return Identity{
		ID:       user.ID,
		Email:    user.Email,
		Username: user.Username,
		Role:     user.Role,
	}, nil
}

func (s *AuthService) RequireRole(ident Identity, role models.Role) error {
	if ident.Role != role {
		return apperrors.New(apperrors.Forbidden, "access denied")
	}
	return nil
}
