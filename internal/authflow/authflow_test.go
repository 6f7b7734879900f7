package authflow

import (
	"errors"
	"sync"
	"testing"
	"time"

	"taxclient/internal/apperr"
)

type recorder struct {
	mu        sync.Mutex
	toasts    []Toast
	navigated []string
	scheduled []func()
	delays    []time.Duration
}

func (r *recorder) config() Config {
	return Config{
		Notifier: NotifierFunc(func(toast Toast) {
			r.mu.Lock()
			r.toasts = append(r.toasts, toast)
			r.mu.Unlock()
		}),
		Navigator: NavigatorFunc(func(path string) {
			r.mu.Lock()
			r.navigated = append(r.navigated, path)
			r.mu.Unlock()
		}),
		Schedule: func(d time.Duration, f func()) {
			r.mu.Lock()
			r.delays = append(r.delays, d)
			r.scheduled = append(r.scheduled, f)
			r.mu.Unlock()
		},
		FailureMessages: map[string]string{"itr.create": "Failed to create ITR form"},
		SuccessMessages: map[string]string{"itr.create": "ITR form created successfully"},
	}
}

func (r *recorder) fire() {
	r.mu.Lock()
	scheduled := r.scheduled
	r.scheduled = nil
	r.mu.Unlock()
	for _, f := range scheduled {
		f()
	}
}

func TestAuthFailureSchedulesSingleRedirect(t *testing.T) {
	rec := &recorder{}
	handler := New(rec.config())

	for i := 0; i < 3; i++ {
		handler.HandleMutationError("itr.create", apperr.NewStatusError(401, "Unauthorized"))
	}
	handler.HandleQueryError("/api/itr-forms", apperr.NewStatusError(403, "Forbidden"))

	if len(rec.scheduled) != 1 {
		t.Fatalf("expected one scheduled redirect, got %d", len(rec.scheduled))
	}
	if rec.delays[0] != DefaultRedirectDelay {
		t.Fatalf("expected %s delay, got %s", DefaultRedirectDelay, rec.delays[0])
	}
	if len(rec.toasts) != 1 || rec.toasts[0].Title != UnauthorizedTitle || rec.toasts[0].Description != UnauthorizedMessage {
		t.Fatalf("unexpected toasts %+v", rec.toasts)
	}
	if !handler.Pending() {
		t.Fatalf("expected pending redirect")
	}

	rec.fire()
	if len(rec.navigated) != 1 || rec.navigated[0] != DefaultLoginPath {
		t.Fatalf("expected navigation to login, got %v", rec.navigated)
	}
	if handler.Pending() {
		t.Fatalf("expected redirect to complete")
	}
	if handler.Redirects() != 1 {
		t.Fatalf("expected one redirect, got %d", handler.Redirects())
	}
}

func TestAppFailureShowsOperationMessage(t *testing.T) {
	rec := &recorder{}
	handler := New(rec.config())

	classification := handler.Handle("itr.create", apperr.NewStatusError(500, "boom"))
	if classification.Kind != apperr.KindApp {
		t.Fatalf("expected app kind, got %s", classification.Kind)
	}
	handler.Handle("gst.create", errors.New("unexpected"))

	if len(rec.scheduled) != 0 {
		t.Fatalf("expected no redirect for app failures")
	}
	if len(rec.toasts) != 2 {
		t.Fatalf("expected two toasts, got %d", len(rec.toasts))
	}
	if rec.toasts[0].Description != "Failed to create ITR form" {
		t.Fatalf("unexpected message %q", rec.toasts[0].Description)
	}
	if rec.toasts[1].Description != GenericFailure {
		t.Fatalf("expected generic message, got %q", rec.toasts[1].Description)
	}
}

func TestQueryErrorsOtherThanAuthAreSilent(t *testing.T) {
	rec := &recorder{}
	handler := New(rec.config())
	handler.HandleQueryError("/api/experts", apperr.NewStatusError(500, "boom"))
	if len(rec.toasts) != 0 || len(rec.scheduled) != 0 {
		t.Fatalf("expected no side effects, got %+v", rec.toasts)
	}
}

func TestRequireSession(t *testing.T) {
	rec := &recorder{}
	handler := New(rec.config())
	if !handler.RequireSession(true) {
		t.Fatalf("expected authenticated session to pass")
	}
	if handler.RequireSession(false) {
		t.Fatalf("expected missing session to fail")
	}
	if len(rec.scheduled) != 1 {
		t.Fatalf("expected redirect for missing session")
	}
}

func TestSucceededUsesRegisteredMessage(t *testing.T) {
	rec := &recorder{}
	handler := New(rec.config())
	handler.Succeeded("itr.create")
	handler.Succeeded("unknown")
	if len(rec.toasts) != 1 || rec.toasts[0].Description != "ITR form created successfully" {
		t.Fatalf("unexpected toasts %+v", rec.toasts)
	}
}

func TestDefaultScheduleNavigates(t *testing.T) {
	navigated := make(chan string, 1)
	handler := New(Config{
		RedirectDelay: time.Millisecond,
		Navigator:     NavigatorFunc(func(path string) { navigated <- path }),
	})
	handler.RequireSession(false)
	select {
	case path := <-navigated:
		if path != DefaultLoginPath {
			t.Fatalf("unexpected path %q", path)
		}
	case <-time.After(time.Second):
		t.Fatalf("redirect never ran")
	}
}
