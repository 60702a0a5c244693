package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"match-narrator/internal/model"
	"match-narrator/internal/pkg/token"
	"match-narrator/internal/repository"
)

// ErrBadCredentials is returned for an unknown user or a wrong password.
var ErrBadCredentials = errors.New("invalid username or password")

const minPasswordLength = 8

// AuthService manages accounts and issues bearer tokens.
type AuthService struct {
	users  UserStore
	tokens *token.Service
	audit  *AuditService
	cost   int
}

// NewAuthService creates a new AuthService instance.
func NewAuthService(users UserStore, tokens *token.Service, audit *AuditService) *AuthService {
	return &AuthService{users: users, tokens: tokens, audit: audit, cost: bcrypt.DefaultCost}
}

// WithCost sets the bcrypt cost; tests use bcrypt.MinCost.
func (s *AuthService) WithCost(cost int) *AuthService {
	s.cost = cost
	return s
}

// LoginResult is a freshly issued token.
type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

// Login checks a password and issues a token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	u, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		log.Warn().Str("username", u.Username).Msg("Failed login")
		return nil, ErrBadCredentials
	}

	tok, expires, err := s.tokens.Issue(u)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &LoginResult{Token: tok, ExpiresAt: expires, User: u}, nil
}

// Authenticate resolves a bearer token into an actor. The account must still
// exist; its stored role wins over the role in the token.
func (s *AuthService) Authenticate(ctx context.Context, bearer string) (Actor, error) {
	claims, err := s.tokens.Parse(bearer)
	if err != nil {
		return Actor{}, err
	}
	id, err := claims.UserID()
	if err != nil {
		return Actor{}, err
	}
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return Actor{}, token.ErrInvalidToken
	}
	if err != nil {
		return Actor{}, err
	}
	return Actor{UserID: u.ID, Username: u.Username, Role: u.Role}, nil
}

// Me returns the account of actor.
func (s *AuthService) Me(ctx context.Context, actor Actor) (*model.User, error) {
	return s.users.GetByID(ctx, actor.UserID)
}

func (s *AuthService) create(ctx context.Context, username, password string, role model.Role) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(username) > 64 {
		return nil, invalid("username", "must be 1 to 64 characters")
	}
	if len(password) < minPasswordLength {
		return nil, invalid("password", "must be at least %d characters", minPasswordLength)
	}
	if !role.Valid() {
		return nil, invalid("role", "must be admin or narrator")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return s.users.Create(ctx, username, string(hash), role)
}

// CreateUser adds an account.
func (s *AuthService) CreateUser(ctx context.Context, actor Actor, username, password string, role model.Role) (*model.User, error) {
	u, err := s.create(ctx, username, password, role)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "user.create", model.EntityUser, u.ID, map[string]string{
		"username": u.Username,
		"role":     string(u.Role),
	})
	return u, nil
}

// ListUsers returns all accounts.
func (s *AuthService) ListUsers(ctx context.Context) ([]*model.User, error) {
	return s.users.List(ctx)
}

// Bootstrap creates the first admin account when there are no users yet.
// It reports whether an account was created.
func (s *AuthService) Bootstrap(ctx context.Context, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, nil
	}
	n, err := s.users.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	u, err := s.create(ctx, username, password, model.RoleAdmin)
	if err != nil {
		return false, fmt.Errorf("failed to create bootstrap admin: %w", err)
	}
	log.Info().Str("username", u.Username).Msg("Created bootstrap admin")
	s.audit.Record(ctx, System, "user.bootstrap", model.EntityUser, u.ID, nil)
	return true, nil
}
