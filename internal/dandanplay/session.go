package dandanplay

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"log/slog"
	"sync"

	"github.com/jonboulle/clockwork"

	"danmaku/internal/logging"
	"danmaku/internal/services"
)

// Credentials are the application and account secrets used to log in.
type Credentials struct {
	AppID     string
	AppSecret string
	Username  string
	Password  string
}

// Complete reports whether every credential needed for login is present.
func (c Credentials) Complete() bool {
	return c.AppID != "" && c.AppSecret != "" && c.Username != "" && c.Password != ""
}

// LoginDigest returns md5hex(appId + password + timestamp + username + appSecret).
func LoginDigest(c Credentials, timestamp string) string {
	sum := md5.Sum([]byte(c.AppID + c.Password + timestamp + c.Username + c.AppSecret))
	return hex.EncodeToString(sum[:])
}

type loginFunc func(ctx context.Context, creds Credentials, timestamp string) (map[string]any, error)

// Session owns the bearer token. It is the only component that reads or writes
// the token store or performs a login.
type Session struct {
	mu     sync.Mutex
	clock  clockwork.Clock
	store  TokenStore
	login  loginFunc
	logger *slog.Logger

	creds    Credentials
	cached   *Token
	rejected string
}

func newSession(store TokenStore, clock clockwork.Clock, login loginFunc, logger *slog.Logger) *Session {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Session{
		clock:  clock,
		store:  store,
		login:  login,
		logger: logging.NewComponentLogger(logger, "session"),
	}
}

// SetCredentials replaces the login credentials. The cached token is kept.
func (s *Session) SetCredentials(creds Credentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = creds
}

// EnsureToken returns a usable bearer token, logging in when the cached one is
// missing or stale. When login is impossible or fails, the previous cached
// token (even a stale one) is returned so callers may still try it.
func (s *Session) EnsureToken(ctx context.Context) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cached := s.loadLocked()
	if cached != nil && cached.Valid(s.clock.Now()) {
		return cached.Value, true
	}
	if !s.creds.Complete() {
		return fallback(cached)
	}

	timestamp := unixString(s.clock.Now())
	payload, err := s.login(ctx, s.creds, timestamp)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "dandanplay login failed", "login_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check dandanplay credentials and network"),
			logging.String(logging.FieldImpact, "continuing with cached or anonymous access"),
		)
		return fallback(cached)
	}
	if value, _ := payload["token"].(string); value == "" {
		logging.WarnWithContext(s.logger, "login response did not include a token", "login_tokenless",
			logging.String(logging.FieldImpact, "continuing with cached or anonymous access"),
		)
		return fallback(cached)
	}

	normalizeLoginPayload(payload)
	tok := ParseToken(payload)
	s.cached = &tok
	s.rejected = ""
	s.logger.Info("authenticated with dandanplay", logging.String("username", s.creds.Username))

	if s.store != nil {
		if err := s.store.Save(payload); err != nil {
			wrapped := services.Wrap(services.ErrPersistence, "session", "save token", "", err)
			logging.WarnWithContext(s.logger, "token not persisted", "token_persist_failed",
				logging.Error(wrapped),
				logging.String(logging.FieldErrorHint, "check profile directory permissions"),
				logging.String(logging.FieldImpact, "token kept in memory for this session only"),
			)
		}
	}
	return tok.Value, true
}

// Invalidate drops the in-memory token after the server rejected it. The file
// on disk is left alone, but the rejected value is not reloaded from it.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != nil {
		s.rejected = s.cached.Value
	}
	s.cached = nil
}

// Cached returns the in-memory token, if any, without refreshing.
func (s *Session) Cached() (Token, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok := s.loadLocked()
	if tok == nil {
		return Token{}, false
	}
	return *tok, true
}

func (s *Session) loadLocked() *Token {
	if s.cached != nil {
		return s.cached
	}
	if s.store == nil {
		return nil
	}
	payload, err := s.store.Load()
	if err != nil {
		logging.WarnWithContext(s.logger, "failed to load cached token", "token_load_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "a fresh login will be attempted"),
		)
		return nil
	}
	if payload == nil {
		return nil
	}
	tok := ParseToken(payload)
	if tok.Value == "" || tok.Value == s.rejected {
		return nil
	}
	s.cached = &tok
	return s.cached
}

func fallback(tok *Token) (string, bool) {
	if tok != nil && tok.Value != "" {
		return tok.Value, true
	}
	return "", false
}
