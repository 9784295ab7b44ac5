package auth

import (
	"testing"

	"stagepay/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
)

type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepo) GetByID(id uint) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepo) GetByEmail(email string) (*models.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepo) Update(user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepo) IncrementTokenVersion(userID uint) error {
	args := m.Called(userID)
	return args.Error(0)
}

func hashedUser(t *testing.T, password string) *models.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	assert.NoError(t, err)
	return &models.User{
		ID:           1,
		Email:        "fan@example.com",
		Password:     string(hashed),
		Role:         models.RoleFan,
		TokenVersion: 3,
	}
}

func TestRegister(t *testing.T) {
	t.Run("defaults to fan role", func(t *testing.T) {
		repo := new(MockUserRepo)
		repo.On("Create", mock.Anything).Return(nil)

		svc := NewService(repo)
		user, err := svc.Register("fan@example.com", "longenough", "Fan", "admin")
		assert.NoError(t, err)
		assert.Equal(t, models.RoleFan, user.Role)
		assert.NotEqual(t, "longenough", user.Password)
		repo.AssertExpectations(t)
	})

	t.Run("rejects short password", func(t *testing.T) {
		svc := NewService(new(MockUserRepo))
		_, err := svc.Register("fan@example.com", "short", "Fan", models.RoleFan)
		assert.Error(t, err)
	})
}

func TestLogin(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	t.Run("valid credentials", func(t *testing.T) {
		user := hashedUser(t, "correct-horse")
		repo := new(MockUserRepo)
		repo.On("GetByEmail", user.Email).Return(user, nil)

		svc := NewService(repo)
		got, access, refresh, err := svc.Login(user.Email, "correct-horse")
		assert.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.NotEmpty(t, access)
		assert.NotEmpty(t, refresh)
	})

	t.Run("wrong password", func(t *testing.T) {
		user := hashedUser(t, "correct-horse")
		repo := new(MockUserRepo)
		repo.On("GetByEmail", user.Email).Return(user, nil)

		svc := NewService(repo)
		_, _, _, err := svc.Login(user.Email, "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		repo := new(MockUserRepo)
		repo.On("GetByEmail", "nobody@example.com").Return(nil, assert.AnError)

		svc := NewService(repo)
		_, _, _, err := svc.Login("nobody@example.com", "whatever")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestRefreshTokens(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	user := hashedUser(t, "correct-horse")

	repo := new(MockUserRepo)
	repo.On("GetByEmail", user.Email).Return(user, nil)
	repo.On("GetByID", user.ID).Return(user, nil)

	svc := NewService(repo)
	_, _, refresh, err := svc.Login(user.Email, "correct-horse")
	assert.NoError(t, err)

	access, newRefresh, err := svc.RefreshTokens(refresh)
	assert.NoError(t, err)
	assert.NotEmpty(t, access)
	assert.NotEmpty(t, newRefresh)

	t.Run("stale token version", func(t *testing.T) {
		bumped := *user
		bumped.TokenVersion = user.TokenVersion + 1
		staleRepo := new(MockUserRepo)
		staleRepo.On("GetByID", user.ID).Return(&bumped, nil)

		staleSvc := NewService(staleRepo)
		_, _, err := staleSvc.RefreshTokens(refresh)
		assert.Error(t, err)
	})
}

func TestLogout(t *testing.T) {
	repo := new(MockUserRepo)
	repo.On("IncrementTokenVersion", uint(1)).Return(nil)

	svc := NewService(repo)
	assert.NoError(t, svc.Logout(1))
	repo.AssertExpectations(t)
}
