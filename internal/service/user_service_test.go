package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"stockflow/internal/config"
	"stockflow/internal/model"
)

type stubUserRepo struct {
	users  map[uuid.UUID]*model.User
	tokens map[string]*model.RefreshToken
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{
		users:  make(map[uuid.UUID]*model.User),
		tokens: make(map[string]*model.RefreshToken),
	}
}

func (r *stubUserRepo) Create(ctx context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *stubUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return nil, gorm.ErrRecordNotFound
	}
	user, ok := r.users[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *user
	return &clone, nil
}

func (r *stubUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubUserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	for _, user := range r.users {
		if user.Username == username {
			clone := *user
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubUserRepo) List(ctx context.Context, page, limit int) ([]model.User, int64, error) {
	var out []model.User
	for _, user := range r.users {
		out = append(out, *user)
	}
	return out, int64(len(out)), nil
}

func (r *stubUserRepo) Update(ctx context.Context, user *model.User) error {
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *stubUserRepo) Delete(ctx context.Context, id string) error {
	userID, err := uuid.Parse(id)
	if err != nil {
		return gorm.ErrRecordNotFound
	}
	delete(r.users, userID)
	return nil
}

func (r *stubUserRepo) StoreRefreshToken(ctx context.Context, token *model.RefreshToken) error {
	clone := *token
	r.tokens[token.Token] = &clone
	return nil
}

func (r *stubUserRepo) GetRefreshToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	stored, ok := r.tokens[token]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *stored
	return &clone, nil
}

func (r *stubUserRepo) DeleteRefreshToken(ctx context.Context, token string) error {
	delete(r.tokens, token)
	return nil
}

type userFixture struct {
	svc   UserService
	users *stubUserRepo
	audit *stubAuditRepo
}

func newUserFixture(t *testing.T, cfg *config.Config) *userFixture {
	t.Helper()
	f := &userFixture{users: newStubUserRepo(), audit: &stubAuditRepo{}}
	f.svc = NewUserService(f.users, f.audit, stubTxManager{}, cfg)
	return f
}

func (f *userFixture) seedUser(t *testing.T, email, password string) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := &model.User{
		Username: "tech1",
		Email:    email,
		Password: string(hash),
		Role:     model.RoleStaff,
	}
	require.NoError(t, f.users.Create(context.Background(), user))
	return user
}

func TestLoginSignsTokenWithConfiguredSecret(t *testing.T) {
	cfg := &config.Config{
		JWTSecret:          "configured-secret",
		JWTExpirationHours: 2,
		JWTRefreshHours:    48,
	}
	f := newUserFixture(t, cfg)
	user := f.seedUser(t, "tech@example.com", "password123")

	resp, err := f.svc.Login(context.Background(), LoginUserRequest{
		Email:    "tech@example.com",
		Password: "password123",
	}, "10.0.0.3")
	require.NoError(t, err)

	// Token must verify against the configured key, not a process env var
	token, err := jwt.Parse(resp.Token, func(t *jwt.Token) (interface{}, error) {
		return []byte("configured-secret"), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, user.ID.String(), claims["sub"])
	assert.Equal(t, model.RoleStaff, claims["role"])

	exp, err := claims.GetExpirationTime()
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), exp.Time, time.Minute)

	stored, ok := f.users.tokens[resp.RefreshToken]
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(48*time.Hour), stored.ExpiresAt, time.Minute)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	f := newUserFixture(t, &config.Config{JWTSecret: "configured-secret"})
	f.seedUser(t, "tech@example.com", "password123")

	_, err := f.svc.Login(context.Background(), LoginUserRequest{
		Email:    "tech@example.com",
		Password: "nope",
	}, "10.0.0.3")
	assert.ErrorContains(t, err, "invalid email or password")
	assert.Empty(t, f.users.tokens)
}

func TestRefreshRotatesToken(t *testing.T) {
	f := newUserFixture(t, &config.Config{JWTSecret: "configured-secret", JWTExpirationHours: 1, JWTRefreshHours: 24})
	f.seedUser(t, "tech@example.com", "password123")

	login, err := f.svc.Login(context.Background(), LoginUserRequest{
		Email:    "tech@example.com",
		Password: "password123",
	}, "10.0.0.3")
	require.NoError(t, err)

	next, err := f.svc.RefreshToken(context.Background(), RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)

	assert.NotEqual(t, login.RefreshToken, next.RefreshToken)
	_, old := f.users.tokens[login.RefreshToken]
	assert.False(t, old)
}

func TestGetUserMissingIsNotFound(t *testing.T) {
	f := newUserFixture(t, &config.Config{JWTSecret: "configured-secret"})

	_, err := f.svc.GetUserByID(context.Background(), uuid.NewString())
	assert.True(t, errors.Is(err, ErrNotFound))
}
