package service

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/SachinGupta0206/saas-contracts-dashboard/config"
	"github.com/SachinGupta0206/saas-contracts-dashboard/model"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidCredentials signals a password other than the shared secret.
var ErrInvalidCredentials = errors.New("invalid credentials")

// identityNamespace scopes the name-based identity IDs.
var identityNamespace = uuid.MustParse("6f1b0c7e-2f43-4c55-9a0e-2d8a3c9b5e11")

// SessionClaims is the payload of a session token.
type SessionClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// SessionStore holds the signed-in identity and keeps it in sync with durable storage.
type SessionStore struct {
	storage IdentityStorage
	cfg     *config.AuthConfig
	now     func() time.Time
	logger  *slog.Logger

	mu       sync.RWMutex
	identity *model.Identity
	token    string
}

func NewSessionStore(storage IdentityStorage, cfg *config.AuthConfig) *SessionStore {
	return &SessionStore{
		storage: storage,
		cfg:     cfg,
		now:     time.Now,
		logger:  slog.Default(),
	}
}

// NewIdentity derives the identity for a username.
func NewIdentity(username, emailDomain string) model.Identity {
	return model.Identity{
		ID:       uuid.NewSHA1(identityNamespace, []byte(username)).String(),
		Username: username,
		Email:    username + "@" + emailDomain,
		Name:     capitalize(username),
	}
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// SignIn accepts any username whose password matches the shared secret.
func (s *SessionStore) SignIn(ctx context.Context, username, password string) (model.Identity, error) {
	if subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.SharedSecret)) != 1 {
		return model.Identity{}, ErrInvalidCredentials
	}

	identity := NewIdentity(username, s.cfg.EmailDomain)
	token, err := s.issueToken(identity)
	if err != nil {
		return model.Identity{}, fmt.Errorf("generate token: %w", err)
	}

	encoded, err := json.Marshal(identity)
	if err != nil {
		return model.Identity{}, fmt.Errorf("encode identity: %w", err)
	}
	if err := s.storage.Save(ctx, token, encoded); err != nil {
		return model.Identity{}, fmt.Errorf("persist session: %w", err)
	}

	s.mu.Lock()
	s.identity = &identity
	s.token = token
	s.mu.Unlock()

	s.logger.Info("signed in", "username", username)
	return identity, nil
}

// SignOut forgets the session. Memory is cleared even if storage fails.
func (s *SessionStore) SignOut(ctx context.Context) error {
	s.mu.Lock()
	s.identity = nil
	s.token = ""
	s.mu.Unlock()

	if err := s.storage.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// RestoreSession adopts a previously persisted session. Anything unreadable is
// treated as no session and wiped from storage.
func (s *SessionStore) RestoreSession(ctx context.Context) (model.Identity, bool) {
	token, encoded, err := s.storage.Load(ctx)
	if err != nil {
		s.logger.Warn("failed to load persisted session", "error", err)
		return model.Identity{}, false
	}
	if token == "" && len(encoded) == 0 {
		return model.Identity{}, false
	}

	identity, err := s.decodeSession(token, encoded)
	if err != nil {
		s.logger.Warn("discarding persisted session", "error", err)
		if err := s.storage.Clear(ctx); err != nil {
			s.logger.Error("failed to clear persisted session", "error", err)
		}
		return model.Identity{}, false
	}

	s.mu.Lock()
	s.identity = &identity
	s.token = token
	s.mu.Unlock()
	return identity, true
}

func (s *SessionStore) decodeSession(token string, encoded []byte) (model.Identity, error) {
	if token == "" || len(encoded) == 0 {
		return model.Identity{}, errors.New("incomplete session")
	}

	var identity model.Identity
	if err := json.Unmarshal(encoded, &identity); err != nil {
		return model.Identity{}, fmt.Errorf("decode identity: %w", err)
	}

	claims, err := s.parseToken(token)
	if err != nil {
		return model.Identity{}, fmt.Errorf("verify token: %w", err)
	}
	if claims.Subject != identity.ID || claims.Username != identity.Username {
		return model.Identity{}, errors.New("token does not belong to identity")
	}
	return identity, nil
}

// Current returns the in-memory identity.
func (s *SessionStore) Current() (model.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return model.Identity{}, false
	}
	return *s.identity, true
}

// Token returns the active session token, or "" when signed out.
func (s *SessionStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Authenticate checks a presented token against the active session.
func (s *SessionStore) Authenticate(token string) (model.Identity, bool) {
	s.mu.RLock()
	active, identity := s.token, s.identity
	s.mu.RUnlock()

	if identity == nil || token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(active)) != 1 {
		return model.Identity{}, false
	}
	if _, err := s.parseToken(token); err != nil {
		return model.Identity{}, false
	}
	return *identity, true
}

func (s *SessionStore) issueToken(identity model.Identity) (string, error) {
	now := s.now()
	claims := SessionClaims{
		Username: identity.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.New().String(),
			Subject:  identity.ID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if s.cfg.TokenExpireHours > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(time.Duration(s.cfg.TokenExpireHours) * time.Hour))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func (s *SessionStore) parseToken(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	return claims, nil
}
