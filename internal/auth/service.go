package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dunamismax/blastflow/internal/domain"
	"github.com/dunamismax/blastflow/internal/store"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const AdminUsername = "admin"

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidUser        = errors.New("username and password are required")
)

type Service struct {
	users  store.UserStore
	logger *zap.Logger
	cost   int
}

func NewService(users store.UserStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{users: users, logger: logger.Named("auth"), cost: bcrypt.DefaultCost}
}

// Register creates a non-admin account.
func (s *Service) Register(ctx context.Context, username, password string) (domain.User, error) {
	return s.create(ctx, username, password, false)
}

func (s *Service) create(ctx context.Context, username, password string, admin bool) (domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.User{}, ErrInvalidUser
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, domain.User{
		Username:     username,
		PasswordHash: string(hash),
		IsAdmin:      admin,
	})
	if err != nil {
		return domain.User{}, err
	}
	s.logger.Info("user created", zap.String("username", username), zap.Bool("admin", admin))
	return user, nil
}

// Authenticate checks a username/password pair. Unknown users and wrong
// passwords both return ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (domain.User, error) {
	user, ok, err := s.users.GetUserByName(ctx, username)
	if err != nil {
		return domain.User{}, fmt.Errorf("lookup user: %w", err)
	}
	if !ok {
		return domain.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// EnsureAdmin creates the admin account if it does not exist yet. It
// reports whether a new account was created.
func (s *Service) EnsureAdmin(ctx context.Context, password string) (bool, error) {
	if _, ok, err := s.users.GetUserByName(ctx, AdminUsername); err != nil {
		return false, fmt.Errorf("lookup admin: %w", err)
	} else if ok {
		return false, nil
	}

	if _, err := s.create(ctx, AdminUsername, password, true); err != nil {
		if errors.Is(err, store.ErrUserExists) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
