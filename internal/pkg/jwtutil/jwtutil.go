package jwtutil

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var ErrInvalidToken = errors.New("invalid or expired token")

type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

type Payload struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
}

type Claims struct {
	Payload
	jwt.RegisteredClaims
}

type Pair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type KeyConfig struct {
	Secret     string
	Expiration time.Duration
}

// Manager signs and verifies access and refresh tokens, each kind with its own key.
type Manager struct {
	access  KeyConfig
	refresh KeyConfig
	now     func() time.Time
}

func NewManager(access, refresh KeyConfig) *Manager {
	return &Manager{access: access, refresh: refresh, now: time.Now}
}

func (m *Manager) IssueAccess(p Payload) (string, error) {
	return m.issue(KindAccess, m.access, p)
}

func (m *Manager) IssueRefresh(p Payload) (string, error) {
	return m.issue(KindRefresh, m.refresh, p)
}

// IssuePair signs both tokens concurrently.
func (m *Manager) IssuePair(ctx context.Context, p Payload) (Pair, error) {
	var pair Pair
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		token, err := m.IssueAccess(p)
		pair.AccessToken = token
		return err
	})
	g.Go(func() error {
		token, err := m.IssueRefresh(p)
		pair.RefreshToken = token
		return err
	})
	if err := g.Wait(); err != nil {
		return Pair{}, err
	}
	return pair, nil
}

func (m *Manager) ParseAccess(token string) (*Claims, error) {
	return m.parse(m.access, token)
}

func (m *Manager) ParseRefresh(token string) (*Claims, error) {
	return m.parse(m.refresh, token)
}

// Decode reads claims without checking the signature or expiry.
func (m *Manager) Decode(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("decode token failed: %w", err)
	}
	return claims, nil
}

func (m *Manager) AccessTTL() time.Duration {
	return m.access.Expiration
}

func (m *Manager) RefreshTTL() time.Duration {
	return m.refresh.Expiration
}

func (m *Manager) issue(kind Kind, key KeyConfig, p Payload) (string, error) {
	now := m.now()
	claims := Claims{
		Payload: p,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   string(kind),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(key.Expiration)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key.Secret))
	if err != nil {
		return "", fmt.Errorf("sign %s token failed: %w", kind, err)
	}
	return signed, nil
}

func (m *Manager) parse(key KeyConfig, token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(key.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
