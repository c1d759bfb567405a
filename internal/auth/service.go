package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/ayush/daybook/internal/models"
	"github.com/ayush/daybook/internal/store"
)

const maxUsernameLength = 50

// Demo account created by SeedDemoUser.
const (
	DemoUsername = "demo"
	DemoPassword = "password"
)

// Service implements registration, login and session lookup.
type Service struct {
	users    store.UserRepository
	sessions SessionStore
	hasher   *PasswordHasher

	// serializes Register's check-then-create
	registerMu sync.Mutex
}

func NewService(users store.UserRepository, sessions SessionStore, hasher *PasswordHasher) *Service {
	return &Service{users: users, sessions: sessions, hasher: hasher}
}

// Register creates an account. It does not start a session.
func (s *Service) Register(ctx context.Context, username, password string) (models.User, error) {
	username = strings.TrimSpace(username)
	switch {
	case username == "":
		return models.User{}, models.Invalid("username", "Username is required")
	case utf8.RuneCountInString(username) > maxUsernameLength:
		return models.User{}, models.Invalid("username", "Username must be at most %d characters", maxUsernameLength)
	case password == "":
		return models.User{}, models.Invalid("password", "Password is required")
	case len(password) > MaxPasswordBytes:
		return models.User{}, models.Invalid("password", "Password must be at most %d bytes", MaxPasswordBytes)
	}

	s.registerMu.Lock()
	defer s.registerMu.Unlock()

	_, exists, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return models.User{}, fmt.Errorf("check username: %w", err)
	}
	if exists {
		return models.User{}, models.ErrDuplicateUsername
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}
	user, err := s.users.Create(ctx, models.NewUser{Username: username, Password: hashed})
	if err != nil {
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login checks credentials and opens a session. Unknown users and wrong
// passwords fail identically.
func (s *Service) Login(ctx context.Context, username, password string) (models.User, string, error) {
	user, found, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return models.User{}, "", fmt.Errorf("lookup user: %w", err)
	}
	if !found || !s.hasher.Verify(password, user.Password) {
		return models.User{}, "", models.ErrInvalidCredentials
	}

	sid := NewSessionID()
	if err := s.sessions.Set(ctx, sid, user.ID); err != nil {
		return models.User{}, "", fmt.Errorf("create session: %w", err)
	}
	return user, sid, nil
}

// Logout ends the session. Empty or unknown ids are fine.
func (s *Service) Logout(ctx context.Context, sid string) error {
	if sid == "" {
		return nil
	}
	return s.sessions.Clear(ctx, sid)
}

// CurrentUser resolves a session id to its user, or models.ErrUnauthorized.
func (s *Service) CurrentUser(ctx context.Context, sid string) (models.User, error) {
	if sid == "" {
		return models.User{}, models.ErrUnauthorized
	}
	userID, found, err := s.sessions.Get(ctx, sid)
	if err != nil {
		return models.User{}, fmt.Errorf("load session: %w", err)
	}
	if !found {
		return models.User{}, models.ErrUnauthorized
	}
	user, found, err := s.users.Get(ctx, userID)
	if err != nil {
		return models.User{}, fmt.Errorf("load user: %w", err)
	}
	if !found {
		_ = s.sessions.Clear(ctx, sid)
		return models.User{}, models.ErrUnauthorized
	}
	return user, nil
}

// SeedDemoUser registers demo/password unless it already exists.
func (s *Service) SeedDemoUser(ctx context.Context) (models.User, bool, error) {
	if user, found, err := s.users.GetByUsername(ctx, DemoUsername); err != nil || found {
		return user, false, err
	}
	user, err := s.Register(ctx, DemoUsername, DemoPassword)
	if err != nil {
		return models.User{}, false, err
	}
	return user, true, nil
}
