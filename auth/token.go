// Package auth issues and caches the marketplace bearer token.
package auth

import (
	"context"
	"sync"
	"time"

	"wmorders/models"
	"wmorders/utils/logger"
)

// DefaultMaxAge is how long an issued token is reused
const DefaultMaxAge = 860 * time.Second

// Token is the persisted token record, overwritten on every refresh
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
	ExpiresIn   int64  `json:"expires_in,omitempty"`
	// Timestamp is the acquisition time in epoch seconds
	Timestamp int64 `json:"timestamp"`
}

// Store persists the single cached token. Load returns nil, nil when nothing is cached.
type Store interface {
	Load(ctx context.Context) (*Token, error)
	Save(ctx context.Context, t *Token) error
}

// Issuer requests a brand new token
type Issuer interface {
	Issue(ctx context.Context) (*Token, error)
}

// Manager hands out a valid token, refreshing the cached one once it is older than MaxAge
type Manager struct {
	store  Store
	issuer Issuer
	maxAge time.Duration
	now    func() time.Time
	mu     sync.Mutex
}

// NewManager builds a manager, maxAge <= 0 uses DefaultMaxAge
func NewManager(store Store, issuer Issuer, maxAge time.Duration) *Manager {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Manager{store: store, issuer: issuer, maxAge: maxAge, now: time.Now}
}

// Token returns the cached access token, or a fresh one when missing or expired
func (m *Manager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tok, err := m.store.Load(ctx)
	if err != nil {
		logger.WarnFmt("[auth.Token] cached token unreadable, requesting a new one: %v", err)
		tok = nil
	}
	if tok == nil || tok.AccessToken == "" {
		logger.Info("[auth.Token] no cached token")
		tok, err = m.refresh(ctx)
	} else if age := m.now().Sub(time.Unix(tok.Timestamp, 0)); age > m.maxAge {
		logger.InfoFmt("[auth.Token] token expired, age %v", age.Round(time.Second))
		tok, err = m.refresh(ctx)
	}
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// Refresh issues and persists a new token regardless of the cached one
func (m *Manager) Refresh(ctx context.Context) (*Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refresh(ctx)
}

func (m *Manager) refresh(ctx context.Context) (*Token, error) {
	tok, err := m.issuer.Issue(ctx)
	if err != nil {
		return nil, logger.Err(models.NewError(models.ErrAuth, "auth.Refresh", err))
	}
	if tok == nil || tok.AccessToken == "" {
		return nil, logger.Err(models.Errorf(models.ErrAuth, "auth.Refresh", "issuer returned an empty token"))
	}
	tok.Timestamp = m.now().Unix()
	if err := m.store.Save(ctx, tok); err != nil {
		logger.WarnFmt("[auth.Refresh] unable to persist token: %v", err)
	} else {
		logger.Info("[auth.Refresh] token has been saved")
	}
	return tok, nil
}
