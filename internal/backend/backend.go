package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

//go:generate mockgen -destination=mocks/mock_backend.go -package=mocks taxclient/internal/backend Backend

// Backend performs one REST call against the tax service and returns the
// raw JSON response body. Non-2xx answers come back as
// *apperr.StatusError.
type Backend interface {
	Do(ctx context.Context, method string, path string, body any) ([]byte, error)
}

// TokenSource supplies the bearer token attached to outgoing calls. An
// empty token sends no Authorization header.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type tokenKey struct{}

// WithToken attaches the caller's bearer token to ctx for in-process
// backends.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func TokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// encodeBody turns a request body into JSON. nil stays nil.
func encodeBody(body any) ([]byte, error) {
	switch v := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		return data, nil
	}
}
