package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"ruleforge/internal/model"
	mongorepo "ruleforge/internal/repository/mongo"
)

var (
	// ErrEmailAlreadyInUse is returned when the email is already registered.
	ErrEmailAlreadyInUse = errors.New("email is already in use")
	// ErrInvalidCredentials is returned when email or password is wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// AuthService handles the demo accounts that gate write access to the
// ruleset repository.
type AuthService struct {
	users *mongorepo.UserRepository
	jwt   *JWTService
}

// NewAuthService creates a new AuthService.
func NewAuthService(users *mongorepo.UserRepository, jwt *JWTService) *AuthService {
	return &AuthService{users: users, jwt: jwt}
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// Register creates a new user account.
func (s *AuthService) Register(ctx context.Context, email, password string) (*model.User, error) {
	email = normalizeEmail(email)

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailAlreadyInUse
	}

	if len(password) < 6 {
		return nil, errors.New("password must be at least 6 characters")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:     email,
		Password:  string(hashed),
		Role:      model.RoleUser,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	user.Password = ""
	return user, nil
}

// Login authenticates a user and returns a bearer token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	email = normalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}
	if user == nil {
		return "", nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateToken(user.ID.Hex())
	if err != nil {
		return "", nil, err
	}

	user.Password = ""
	return token, user, nil
}

// GetUserByID retrieves a user by their ID string.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	user, err := s.users.GetByIDString(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("user not found")
	}
	user.Password = ""
	return user, nil
}
