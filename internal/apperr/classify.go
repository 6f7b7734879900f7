package apperr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Kind int

const (
	KindNone Kind = iota
	KindNetwork
	KindApp
	KindAuth
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindApp:
		return "app"
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	default:
		return "none"
	}
}

// Classification is the tagged result of Classify. Reason is a short
// label suitable for metrics ("dial", "timeout", "status_500", ...).
type Classification struct {
	Kind   Kind
	Reason string
	Status int
	Detail string
}

// Classify maps an error to its class. It has no side effects.
func Classify(err error) Classification {
	if err == nil {
		return Classification{Kind: KindNone}
	}
	detail := err.Error()

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return Classification{Kind: KindValidation, Reason: "validation", Detail: detail}
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return classifyHTTPStatus(statusErr.Status, detail)
	}

	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		return classifyGRPCCode(st.Code(), st.Message())
	}

	if reason, ok := transportReason(err); ok {
		return Classification{Kind: KindNetwork, Reason: reason, Detail: detail}
	}
	return Classification{Kind: KindApp, Reason: "unknown", Detail: detail}
}

func IsAuth(err error) bool {
	return Classify(err).Kind == KindAuth
}

// Retryable reports whether err is a transport failure worth another
// attempt. Cancellation by the caller and an open circuit are never
// retried.
func Retryable(err error) bool {
	classification := Classify(err)
	if classification.Kind != KindNetwork {
		return false
	}
	return classification.Reason != "canceled" && classification.Reason != "circuit_open"
}

func classifyHTTPStatus(code int, detail string) Classification {
	if code == http.StatusUnauthorized || code == http.StatusForbidden {
		return Classification{Kind: KindAuth, Reason: statusReason(code), Status: code, Detail: detail}
	}
	return Classification{Kind: KindApp, Reason: statusReason(code), Status: code, Detail: detail}
}

func classifyGRPCCode(code codes.Code, detail string) Classification {
	switch code {
	case codes.Unauthenticated:
		return Classification{Kind: KindAuth, Reason: "grpc_unauthenticated", Status: http.StatusUnauthorized, Detail: detail}
	case codes.PermissionDenied:
		return Classification{Kind: KindAuth, Reason: "grpc_permission_denied", Status: http.StatusForbidden, Detail: detail}
	case codes.Unavailable:
		return Classification{Kind: KindNetwork, Reason: "grpc_unavailable", Detail: detail}
	case codes.DeadlineExceeded:
		return Classification{Kind: KindNetwork, Reason: "timeout", Detail: detail}
	case codes.Canceled:
		return Classification{Kind: KindNetwork, Reason: "canceled", Detail: detail}
	default:
		return Classification{Kind: KindApp, Reason: "grpc_" + code.String(), Detail: detail}
	}
}

func transportReason(err error) (string, bool) {
	if errors.Is(err, context.Canceled) {
		return "canceled", true
	}
	if errors.Is(err, ErrCircuitOpen) {
		return "circuit_open", true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return "dial", true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout", true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout", true
	}
	if errors.Is(err, syscall.ECONNRESET) {
		return "reset", true
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return "refused", true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return "eof", true
	}
	return "", false
}

func statusReason(code int) string {
	return fmt.Sprintf("status_%d", code)
}
