package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"taxclient/internal/model"
)

const (
	DefaultIssuer   = "taxclient-dev"
	DefaultTokenTTL = time.Hour
)

var (
	ErrNoSecret     = errors.New("session token secret is not configured")
	ErrInvalidToken = errors.New("invalid session token")
)

// Provider reports who is using the client.
type Provider interface {
	CurrentUser(ctx context.Context) (model.User, bool)
	Authenticated(ctx context.Context) bool
}

// TokenSource supplies the bearer token sent with backend requests.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type Claims struct {
	jwt.RegisteredClaims
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
}

// DemoUser is the fixed account the mock session signs in as.
func DemoUser() model.User {
	created := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	return model.User{
		ID:        "1",
		FirstName: "John",
		LastName:  "Doe",
		Email:     "john.doe@example.com",
		Role:      model.RoleUser,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

type MockConfig struct {
	Secret   string
	Issuer   string
	TokenTTL time.Duration
	Now      func() time.Time
}

// Mock is an always-signed-in session. SignOut flips it to anonymous so
// callers can exercise the login redirect.
type Mock struct {
	cfg      MockConfig
	user     model.User
	signedIn atomic.Bool
}

func NewMock(cfg MockConfig) *Mock {
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	m := &Mock{cfg: cfg, user: DemoUser()}
	m.signedIn.Store(true)
	return m
}

func (m *Mock) CurrentUser(context.Context) (model.User, bool) {
	if !m.signedIn.Load() {
		return model.User{}, false
	}
	return m.user, true
}

func (m *Mock) Authenticated(context.Context) bool {
	return m.signedIn.Load()
}

func (m *Mock) SignIn() {
	m.signedIn.Store(true)
}

func (m *Mock) SignOut() {
	m.signedIn.Store(false)
}

// Token signs a short-lived HS256 token for the current user. It returns
// an empty token when signed out or when no secret is configured.
func (m *Mock) Token(context.Context) (string, error) {
	if !m.signedIn.Load() || m.cfg.Secret == "" {
		return "", nil
	}
	return SignToken(m.user, m.cfg.Secret, m.cfg.Issuer, m.cfg.Now(), m.cfg.TokenTTL)
}

func SignToken(user model.User, secret string, issuer string, now time.Time, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrNoSecret
	}
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: user.Email,
		Role:  user.Role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// VerifyToken checks signature, issuer and expiry of a token minted by
// SignToken.
func VerifyToken(token string, secret string, issuer string, now time.Time) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, ErrInvalidToken
	}
	if secret == "" {
		return Claims{}, ErrNoSecret
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// Verifier checks bearer tokens with a fixed secret and issuer.
type Verifier struct {
	Secret string
	Issuer string
	Now    func() time.Time
}

func (v Verifier) Verify(token string) (Claims, error) {
	now := time.Now
	if v.Now != nil {
		now = v.Now
	}
	issuer := v.Issuer
	if issuer == "" {
		issuer = DefaultIssuer
	}
	return VerifyToken(token, v.Secret, issuer, now())
}
