package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMockSessionIsAuthenticated(t *testing.T) {
	mock := NewMock(MockConfig{})
	user, ok := mock.CurrentUser(context.Background())
	if !ok || !mock.Authenticated(context.Background()) {
		t.Fatalf("expected signed in session")
	}
	if user.FullName() != "John Doe" || user.Email != "john.doe@example.com" {
		t.Fatalf("unexpected user %+v", user)
	}

	mock.SignOut()
	if _, ok := mock.CurrentUser(context.Background()); ok {
		t.Fatalf("expected no user after sign out")
	}
	if mock.Authenticated(context.Background()) {
		t.Fatalf("expected anonymous session")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	now := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	mock := NewMock(MockConfig{Secret: "dev-secret", Now: func() time.Time { return now }})

	token, err := mock.Token(context.Background())
	if err != nil || token == "" {
		t.Fatalf("token: %q %v", token, err)
	}
	claims, err := VerifyToken(token, "dev-secret", DefaultIssuer, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "1" || claims.Email != "john.doe@example.com" {
		t.Fatalf("unexpected claims %+v", claims)
	}

	if _, err := VerifyToken(token, "other-secret", DefaultIssuer, now); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid signature, got %v", err)
	}
	if _, err := VerifyToken(token, "dev-secret", DefaultIssuer, now.Add(2*time.Hour)); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token, got %v", err)
	}
	verifier := Verifier{Secret: "dev-secret", Now: func() time.Time { return now }}
	if _, err := verifier.Verify(token); err != nil {
		t.Fatalf("verifier: %v", err)
	}
}

func TestTokenEmptyWhenSignedOutOrUnconfigured(t *testing.T) {
	mock := NewMock(MockConfig{})
	if token, err := mock.Token(context.Background()); err != nil || token != "" {
		t.Fatalf("expected no token without secret, got %q %v", token, err)
	}
	mock = NewMock(MockConfig{Secret: "s"})
	mock.SignOut()
	if token, _ := mock.Token(context.Background()); token != "" {
		t.Fatalf("expected no token when signed out")
	}
	if _, err := SignToken(DemoUser(), "", DefaultIssuer, time.Now(), time.Hour); !errors.Is(err, ErrNoSecret) {
		t.Fatalf("expected ErrNoSecret, got %v", err)
	}
}
