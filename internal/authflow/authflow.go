package authflow

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"taxclient/internal/apperr"
	"taxclient/internal/obs"
)

const (
	DefaultLoginPath     = "/api/login"
	DefaultRedirectDelay = 500 * time.Millisecond

	UnauthorizedTitle   = "Unauthorized"
	UnauthorizedMessage = "You are logged out. Logging in again..."
	GenericFailure      = "Something went wrong. Please try again."
)

type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

// Toast is a transient user notification.
type Toast struct {
	Title       string
	Description string
	Variant     Variant
}

type Notifier interface {
	Notify(toast Toast)
}

type NotifierFunc func(toast Toast)

func (f NotifierFunc) Notify(toast Toast) { f(toast) }

type Navigator interface {
	Navigate(path string)
}

type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) { f(path) }

type Config struct {
	LoginPath     string
	RedirectDelay time.Duration
	Notifier      Notifier
	Navigator     Navigator
	Logger        *zap.Logger
	Metrics       *obs.Metrics
	// Schedule runs f after d. Defaults to time.AfterFunc.
	Schedule func(d time.Duration, f func())
	// FailureMessages maps an operation name to the toast shown when it
	// fails for a reason other than authentication.
	FailureMessages map[string]string
	SuccessMessages map[string]string
}

// Handler is the single place where failure classifications turn into
// user-visible side effects. Auth failures notify once and schedule one
// navigation to the login path; further auth failures are absorbed while
// that redirect is pending.
type Handler struct {
	cfg    Config
	logger *zap.Logger

	mu        sync.Mutex
	pending   bool
	redirects int
}

func New(cfg Config) *Handler {
	if cfg.LoginPath == "" {
		cfg.LoginPath = DefaultLoginPath
	}
	if cfg.RedirectDelay <= 0 {
		cfg.RedirectDelay = DefaultRedirectDelay
	}
	if cfg.Schedule == nil {
		cfg.Schedule = func(d time.Duration, f func()) { time.AfterFunc(d, f) }
	}
	return &Handler{cfg: cfg, logger: obs.Logger(cfg.Logger).Named("authflow")}
}

// HandleMutationError reacts to a failed write. It fits
// cache.Config.OnMutationError.
func (h *Handler) HandleMutationError(name string, err error) {
	h.Handle(name, err)
}

// Handle classifies err and performs the matching side effect.
func (h *Handler) Handle(operation string, err error) apperr.Classification {
	classification := apperr.Classify(err)
	switch classification.Kind {
	case apperr.KindNone:
	case apperr.KindAuth:
		h.redirect("auth_error")
	case apperr.KindValidation:
		h.notify(Toast{Title: "Error", Description: err.Error(), Variant: VariantDestructive})
	default:
		h.notify(Toast{Title: "Error", Description: h.failureMessage(operation), Variant: VariantDestructive})
	}
	return classification
}

// HandleQueryError reacts to a failed read. Only auth failures have a
// side effect; other read errors are rendered by the view.
func (h *Handler) HandleQueryError(key string, err error) apperr.Classification {
	classification := apperr.Classify(err)
	if classification.Kind == apperr.KindAuth {
		h.logger.Debug("read requires authentication", zap.String("key", key))
		h.redirect("auth_error")
	}
	return classification
}

// RequireSession redirects to login when the session is not
// authenticated and reports whether it was.
func (h *Handler) RequireSession(authenticated bool) bool {
	if !authenticated {
		h.redirect("no_session")
	}
	return authenticated
}

// Succeeded shows the success toast registered for operation, if any.
func (h *Handler) Succeeded(operation string) {
	message, ok := h.cfg.SuccessMessages[operation]
	if !ok {
		return
	}
	h.notify(Toast{Title: "Success", Description: message, Variant: VariantDefault})
}

func (h *Handler) Pending() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pending
}

// Redirects is the number of navigations scheduled so far.
func (h *Handler) Redirects() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.redirects
}

func (h *Handler) redirect(trigger string) {
	h.mu.Lock()
	if h.pending {
		h.mu.Unlock()
		return
	}
	h.pending = true
	h.redirects++
	h.mu.Unlock()

	h.cfg.Metrics.RecordRedirect(trigger)
	h.logger.Info("scheduling login redirect",
		zap.String("trigger", trigger),
		zap.String("path", h.cfg.LoginPath),
		zap.Duration("delay", h.cfg.RedirectDelay),
	)
	h.notify(Toast{Title: UnauthorizedTitle, Description: UnauthorizedMessage, Variant: VariantDestructive})
	h.cfg.Schedule(h.cfg.RedirectDelay, func() {
		if h.cfg.Navigator != nil {
			h.cfg.Navigator.Navigate(h.cfg.LoginPath)
		}
		h.mu.Lock()
		h.pending = false
		h.mu.Unlock()
	})
}

func (h *Handler) notify(toast Toast) {
	if h.cfg.Notifier == nil {
		return
	}
	h.cfg.Notifier.Notify(toast)
}

func (h *Handler) failureMessage(operation string) string {
	if message, ok := h.cfg.FailureMessages[operation]; ok {
		return message
	}
	return GenericFailure
}
