package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"finsight/internal/cache"
	"finsight/internal/log"
)

const minPasswordLen = 8

// Service registers users, logs them in and revokes tokens on logout.
type Service struct {
	users   UserStore
	tokens  *Tokens
	revoked *cache.LRUCache[struct{}]
	cost    int
	logger  *log.Logger
}

// NewService wires a Service. revoked holds the ids of logged-out tokens
// until they would have expired anyway.
func NewService(users UserStore, tokens *Tokens, revoked *cache.LRUCache[struct{}], logger *log.Logger) *Service {
	return &Service{
		users:   users,
		tokens:  tokens,
		revoked: revoked,
		cost:    bcrypt.DefaultCost,
		logger:  logger.WithComponent(log.ComponentAuth),
	}
}

// NewRevocationList returns the set backing logout. It has no size bound:
// evicting a live entry would let a logged-out token authenticate again.
// Entries leave only when the token they name expires.
func NewRevocationList(sessionTTL time.Duration) *cache.LRUCache[struct{}] {
	return cache.NewLRUCache[struct{}](0, sessionTTL)
}

// WithHashCost overrides the bcrypt cost; tests use bcrypt.MinCost.
func (s *Service) WithHashCost(cost int) *Service {
	s.cost = cost
	return s
}

func (s *Service) Register(ctx context.Context, email, password string) (User, error) {
	email = NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return User{}, err
	}
	if len(password) < minPasswordLen {
		return User{}, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	u := User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return User{}, err
	}
	s.logger.InfoContext(ctx, "User registered", log.FieldUserID, u.ID)
	return u, nil
}

// Login checks the password and issues a session. Unknown users and wrong
// passwords both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := s.users.UserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	sess, err := s.tokens.Issue(u)
	if err != nil {
		return Session{}, err
	}
	s.logger.InfoContext(ctx, "User logged in", log.FieldUserID, u.ID, log.FieldOperation, log.OpLogin)
	return sess, nil
}

// Authenticate verifies a raw token and rejects revoked ones.
func (s *Service) Authenticate(raw string) (Session, error) {
	if raw == "" {
		return Session{}, ErrInvalidToken
	}
	sess, err := s.tokens.Verify(raw)
	if err != nil {
		return Session{}, err
	}
	if _, revoked := s.revoked.Get(sess.TokenID); revoked {
		return Session{}, ErrTokenRevoked
	}
	return sess, nil
}

// Logout revokes the session's token for the rest of its lifetime.
func (s *Service) Logout(ctx context.Context, sess Session) {
	s.revoked.SetWithTTL(sess.TokenID, struct{}{}, time.Until(sess.ExpiresAt))
	s.logger.InfoContext(ctx, "User logged out", log.FieldUserID, sess.UserID)
}
