// Package session manages the small amount of state a client keeps on the
// device between runs: who is logged in and the API token to use.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/classtrack/classtrack/internal/domain/shared"
	"github.com/classtrack/classtrack/pkg/logger"
)

// ErrNoSession is returned by Current when nobody is logged in.
var ErrNoSession = shared.NewDomainError("session", "Current", shared.ErrUnauthorized, "no active session")

// Session is the persisted login.
type Session struct {
	Token     string `json:"token"`
	UserID    string `json:"user_id,omitempty"`
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
	Role      string `json:"role,omitempty"`
}

// Store persists a single session. Clear removes everything the store holds
// for this device, not only the session keys.
type Store interface {
	Save(ctx context.Context, s Session) error
	Load(ctx context.Context) (*Session, error) // nil, nil when empty
	Clear(ctx context.Context) error
}

// Service is the session use-case facade.
type Service struct {
	store         Store
	fallbackToken string
	logger        *slog.Logger
}

// NewService creates a session service. fallbackToken is used by Token
// when no session is stored.
func NewService(store Store, fallbackToken string, log *slog.Logger) *Service {
	return &Service{
		store:         store,
		fallbackToken: fallbackToken,
		logger:        logger.OrDefault(log).With(logger.Component("session")),
	}
}

// Start stores a new session, replacing any existing one.
func (s *Service) Start(ctx context.Context, sess Session) error {
	sess.UserName = strings.TrimSpace(sess.UserName)
	sess.UserEmail = strings.TrimSpace(sess.UserEmail)
	if sess.UserName == "" || sess.UserEmail == "" {
		return shared.NewDomainError("session", "Start", shared.ErrValidation, "name and email are required")
	}

	if err := s.store.Save(ctx, sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	s.logger.Info("session started", slog.String("email", sess.UserEmail))
	return nil
}

// Current returns the stored session or ErrNoSession.
func (s *Service) Current(ctx context.Context) (*Session, error) {
	sess, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		return nil, ErrNoSession
	}
	return sess, nil
}

// Token returns the session token, or the fallback token when logged out.
func (s *Service) Token(ctx context.Context) (string, error) {
	sess, err := s.Current(ctx)
	if errors.Is(err, ErrNoSession) {
		return s.fallbackToken, nil
	}
	if err != nil {
		return "", err
	}
	if sess.Token == "" {
		return s.fallbackToken, nil
	}
	return sess.Token, nil
}

// Logout clears the local state wholesale.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.logger.Info("session cleared")
	return nil
}

// Forget clears local state after the logged-in account was deleted.
func (s *Service) Forget(ctx context.Context, deletedUserID string) error {
	sess, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if sess != nil && sess.UserID != "" && sess.UserID != deletedUserID {
		return nil
	}
	return s.Logout(ctx)
}

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY STORE
// ══════════════════════════════════════════════════════════════════════════════

// MemoryStore keeps the session in process memory.
type MemoryStore struct {
	mu   sync.Mutex
	sess *Session
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Save(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = &s
	return nil
}

func (m *MemoryStore) Load(_ context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return nil, nil
	}
	c := *m.sess
	return &c, nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = nil
	return nil
}
