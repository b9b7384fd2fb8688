package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/arena/internal/crypto"
	"github.com/vedran77/arena/internal/domain"
	"github.com/vedran77/arena/internal/repository"
)

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.UserStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

const testSecret = "test-secret"

func TestRegister(t *testing.T) {
	repo := new(mockUserRepo)
	svc := NewAuthService(repo, crypto.NewHasher(testHashParams), testSecret, time.Hour)

	repo.On("GetByEmail", mock.Anything, "alice@arena.test").Return(nil, nil)
	repo.On("GetByUsername", mock.Anything, "alice").Return(nil, nil)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Email == "alice@arena.test" && u.PasswordHash != "" && u.PasswordHash != "hunter22"
	})).Return(nil)

	resp, err := svc.Register(context.Background(), RegisterInput{
		Email:    " Alice@Arena.test ",
		Username: "alice",
		Password: "hunter22",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", resp.User.DisplayName)
	assert.Equal(t, domain.StatusOffline, resp.User.Status)

	id, err := svc.ParseToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, id)
	repo.AssertExpectations(t)
}

func TestRegister_Taken(t *testing.T) {
	existing := &domain.User{ID: uuid.New(), Email: "alice@arena.test", Username: "alice"}

	t.Run("email", func(t *testing.T) {
		repo := new(mockUserRepo)
		svc := NewAuthService(repo, crypto.NewHasher(testHashParams), testSecret, time.Hour)
		repo.On("GetByEmail", mock.Anything, "alice@arena.test").Return(existing, nil)

		_, err := svc.Register(context.Background(), RegisterInput{Email: "alice@arena.test", Username: "other", Password: "pw"})
		assert.ErrorIs(t, err, ErrEmailTaken)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("username", func(t *testing.T) {
		repo := new(mockUserRepo)
		svc := NewAuthService(repo, crypto.NewHasher(testHashParams), testSecret, time.Hour)
		repo.On("GetByEmail", mock.Anything, "new@arena.test").Return(nil, nil)
		repo.On("GetByUsername", mock.Anything, "alice").Return(existing, nil)

		_, err := svc.Register(context.Background(), RegisterInput{Email: "new@arena.test", Username: "alice", Password: "pw"})
		assert.ErrorIs(t, err, ErrUsernameTaken)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("lost race", func(t *testing.T) {
		repo := new(mockUserRepo)
		svc := NewAuthService(repo, crypto.NewHasher(testHashParams), testSecret, time.Hour)
		repo.On("GetByEmail", mock.Anything, mock.Anything).Return(nil, nil)
		repo.On("GetByUsername", mock.Anything, mock.Anything).Return(nil, nil)
		repo.On("Create", mock.Anything, mock.Anything).Return(repository.ErrDuplicate)

		_, err := svc.Register(context.Background(), RegisterInput{Email: "x@arena.test", Username: "x", Password: "pw"})
		assert.ErrorIs(t, err, ErrConflict)
	})
}

func TestLogin(t *testing.T) {
	hasher := crypto.NewHasher(testHashParams)
	digest, err := hasher.Hash("hunter22")
	require.NoError(t, err)
	user := &domain.User{ID: uuid.New(), Email: "alice@arena.test", Username: "alice", PasswordHash: digest}

	repo := new(mockUserRepo)
	repo.On("GetByEmail", mock.Anything, "alice@arena.test").Return(user, nil)
	repo.On("GetByEmail", mock.Anything, "ghost@arena.test").Return(nil, nil)
	svc := NewAuthService(repo, hasher, testSecret, time.Hour)

	resp, err := svc.Login(context.Background(), LoginInput{Email: "ALICE@arena.test", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, resp.User.ID)
	assert.NotEmpty(t, resp.AccessToken)

	_, err = svc.Login(context.Background(), LoginInput{Email: "alice@arena.test", Password: "nope"})
	assert.ErrorIs(t, err, ErrInvalidCreds)
	assert.ErrorIs(t, err, ErrAuthFailed)

	_, err = svc.Login(context.Background(), LoginInput{Email: "ghost@arena.test", Password: "hunter22"})
	assert.ErrorIs(t, err, ErrInvalidCreds)
}

func TestParseToken_Rejects(t *testing.T) {
	userID := uuid.New()
	sign := func(method jwt.SigningMethod, key any, claims jwt.RegisteredClaims) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	valid := jwt.RegisteredClaims{
		Subject:   userID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}

	id, err := ParseToken(sign(jwt.SigningMethodHS256, []byte(testSecret), valid), []byte(testSecret))
	require.NoError(t, err)
	assert.Equal(t, userID, id)

	cases := map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": sign(jwt.SigningMethodHS256, []byte("other"), valid),
		"wrong alg":    sign(jwt.SigningMethodHS384, []byte(testSecret), valid),
		"expired": sign(jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		}),
		"bad subject": sign(jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{Subject: "nobody"}),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseToken(token, []byte(testSecret))
			assert.ErrorIs(t, err, ErrAuthFailed)
		})
	}
}
