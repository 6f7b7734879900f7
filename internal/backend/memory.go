package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"taxclient/internal/apperr"
	"taxclient/internal/model"
	"taxclient/internal/obs"
	"taxclient/internal/session"
)

const recentFormsLimit = 5

type TokenVerifier interface {
	Verify(token string) (session.Claims, error)
}

type MemoryConfig struct {
	User model.User
	// Verifier, when set, rejects calls without a valid bearer token.
	Verifier TokenVerifier
	// EmptyDocuments starts without the seeded documents.
	EmptyDocuments bool
	Logger         *zap.Logger
	Now            func() time.Time
}

// Memory is an in-process tax service. Every call runs under one lock, so
// a read issued after a write's acknowledgment always sees that write.
type Memory struct {
	logger   *zap.Logger
	verifier TokenVerifier
	now      func() time.Time

	mu            sync.Mutex
	user          model.User
	authenticated bool
	nextID        int
	itrForms      []model.ItrForm
	gstReturns    []model.GstReturn
	tdsReturns    []model.TdsReturn
	documents     []model.Document
	consultations []model.Consultation
	experts       []model.Expert
	plans         []model.PricingPlan
	calls         map[string]int
}

func NewMemory(cfg MemoryConfig) *Memory {
	user := cfg.User
	if user.ID == "" {
		user = session.DemoUser()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	m := &Memory{
		logger:        obs.Logger(cfg.Logger).Named("backend.memory"),
		verifier:      cfg.Verifier,
		now:           now,
		user:          user,
		authenticated: true,
		experts:       fixtureExperts(),
		plans:         fixturePlans(),
		calls:         make(map[string]int),
	}
	if !cfg.EmptyDocuments {
		m.documents = fixtureDocuments(user.ID)
	}
	return m
}

// SetAuthenticated toggles whether the caller is signed in. While false
// every call fails with 401.
func (m *Memory) SetAuthenticated(authenticated bool) {
	m.mu.Lock()
	m.authenticated = authenticated
	m.mu.Unlock()
}

// Calls returns how many times "METHOD path" was served.
func (m *Memory) Calls(method string, path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method+" "+path]
}

func (m *Memory) Do(ctx context.Context, method string, path string, body any) ([]byte, error) {
	payload, err := encodeBody(body)
	if err != nil {
		return nil, apperr.NewStatusError(http.StatusBadRequest, err.Error())
	}
	route, _, _ := strings.Cut(path, "?")

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[method+" "+route]++

	if err := m.authorizeLocked(ctx); err != nil {
		return nil, err
	}
	result, err := m.routeLocked(method, route, payload)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(result)
	if err != nil {
		return nil, apperr.NewStatusError(http.StatusInternalServerError, err.Error())
	}
	return data, nil
}

func (m *Memory) authorizeLocked(ctx context.Context) error {
	if !m.authenticated {
		return apperr.NewStatusError(http.StatusUnauthorized, "Unauthorized")
	}
	if m.verifier == nil {
		return nil
	}
	if _, err := m.verifier.Verify(TokenFrom(ctx)); err != nil {
		m.logger.Debug("rejected token", zap.Error(err))
		return apperr.NewStatusError(http.StatusUnauthorized, "Unauthorized")
	}
	return nil
}

func (m *Memory) routeLocked(method string, route string, payload []byte) (any, error) {
	switch route {
	case "/api/auth/user":
		if method == http.MethodGet {
			return m.user, nil
		}
	case "/api/dashboard-stats":
		if method == http.MethodGet {
			return m.statsLocked(), nil
		}
	case "/api/itr-forms":
		switch method {
		case http.MethodGet:
			return nonNil(m.itrForms), nil
		case http.MethodPost:
			return m.createItrLocked(payload)
		}
	case "/api/gst-returns":
		switch method {
		case http.MethodGet:
			return nonNil(m.gstReturns), nil
		case http.MethodPost:
			return m.createGstLocked(payload)
		}
	case "/api/tds-returns":
		switch method {
		case http.MethodGet:
			return nonNil(m.tdsReturns), nil
		case http.MethodPost:
			return m.createTdsLocked(payload)
		}
	case "/api/documents":
		if method == http.MethodGet {
			return nonNil(m.documents), nil
		}
	case "/api/experts":
		if method == http.MethodGet {
			return m.experts, nil
		}
	case "/api/consultations":
		switch method {
		case http.MethodGet:
			return nonNil(m.consultations), nil
		case http.MethodPost:
			return m.createConsultationLocked(payload)
		}
	case "/api/pricing-plans":
		if method == http.MethodGet {
			return m.plans, nil
		}
	default:
		if id, ok := strings.CutPrefix(route, "/api/itr-forms/"); ok && id != "" {
			switch method {
			case http.MethodGet:
				return m.findItrLocked(id)
			case http.MethodPut:
				return m.updateItrLocked(id, payload)
			}
			return nil, apperr.NewStatusError(http.StatusMethodNotAllowed, "Method Not Allowed")
		}
		return nil, apperr.NewStatusError(http.StatusNotFound, "Not found")
	}
	return nil, apperr.NewStatusError(http.StatusMethodNotAllowed, "Method Not Allowed")
}

func (m *Memory) newIDLocked(prefix string) string {
	m.nextID++
	return prefix + "-" + strconv.Itoa(m.nextID)
}

func decodeInput(payload []byte, target any) error {
	if len(payload) == 0 {
		return apperr.NewStatusError(http.StatusBadRequest, "request body is required")
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return apperr.NewStatusError(http.StatusBadRequest, fmt.Sprintf("invalid body: %v", err))
	}
	return nil
}

func (m *Memory) createItrLocked(payload []byte) (model.ItrForm, error) {
	var input model.ItrFormInput
	if err := decodeInput(payload, &input); err != nil {
		return model.ItrForm{}, err
	}
	now := m.now()
	form := model.ItrForm{
		ID:             m.newIDLocked("itr"),
		UserID:         m.user.ID,
		FormType:       input.FormType,
		AssessmentYear: input.AssessmentYear,
		FinancialYear:  input.FinancialYear,
		FormData:       input.FormData,
		Status:         "draft",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	m.itrForms = append(m.itrForms, form)
	return form, nil
}

func (m *Memory) findItrLocked(id string) (model.ItrForm, error) {
	for _, form := range m.itrForms {
		if form.ID == id {
			return form, nil
		}
	}
	return model.ItrForm{}, apperr.NewStatusError(http.StatusNotFound, "ITR form not found")
}

func (m *Memory) updateItrLocked(id string, payload []byte) (model.ItrForm, error) {
	var input model.ItrFormInput
	if err := decodeInput(payload, &input); err != nil {
		return model.ItrForm{}, err
	}
	for i := range m.itrForms {
		if m.itrForms[i].ID != id {
			continue
		}
		form := &m.itrForms[i]
		form.FormType = input.FormType
		form.AssessmentYear = input.AssessmentYear
		form.FinancialYear = input.FinancialYear
		form.FormData = input.FormData
		form.UpdatedAt = m.now()
		return *form, nil
	}
	return model.ItrForm{}, apperr.NewStatusError(http.StatusNotFound, "ITR form not found")
}

func (m *Memory) createGstLocked(payload []byte) (model.GstReturn, error) {
	var input model.GstReturnInput
	if err := decodeInput(payload, &input); err != nil {
		return model.GstReturn{}, err
	}
	now := m.now()
	ret := model.GstReturn{
		ID:         m.newIDLocked("gst"),
		UserID:     m.user.ID,
		GSTIN:      input.GSTIN,
		ReturnType: input.ReturnType,
		Period:     input.Period,
		ReturnData: input.ReturnData,
		Status:     "draft",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	m.gstReturns = append(m.gstReturns, ret)
	return ret, nil
}

func (m *Memory) createTdsLocked(payload []byte) (model.TdsReturn, error) {
	var input model.TdsReturnInput
	if err := decodeInput(payload, &input); err != nil {
		return model.TdsReturn{}, err
	}
	now := m.now()
	ret := model.TdsReturn{
		ID:            m.newIDLocked("tds"),
		UserID:        m.user.ID,
		TAN:           input.TAN,
		Quarter:       input.Quarter,
		FinancialYear: input.FinancialYear,
		FormType:      input.FormType,
		ReturnData:    input.ReturnData,
		Status:        "draft",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	m.tdsReturns = append(m.tdsReturns, ret)
	return ret, nil
}

func (m *Memory) createConsultationLocked(payload []byte) (model.Consultation, error) {
	var input model.ConsultationInput
	if err := decodeInput(payload, &input); err != nil {
		return model.Consultation{}, err
	}
	known := false
	for _, expert := range m.experts {
		if expert.ID == input.ExpertID {
			known = true
			break
		}
	}
	if !known {
		return model.Consultation{}, apperr.NewStatusError(http.StatusBadRequest, "unknown expert")
	}
	now := m.now()
	consultation := model.Consultation{
		ID:            m.newIDLocked("cons"),
		UserID:        m.user.ID,
		ExpertID:      input.ExpertID,
		ServiceType:   input.ServiceType,
		ScheduledDate: input.ScheduledDate,
		Notes:         input.Notes,
		Status:        "pending",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	m.consultations = append(m.consultations, consultation)
	return consultation, nil
}

func (m *Memory) statsLocked() model.DashboardStats {
	stats := model.DashboardStats{
		TotalItrForms:   len(m.itrForms),
		TotalGstReturns: len(m.gstReturns),
		TotalTdsReturns: len(m.tdsReturns),
		TotalDocuments:  len(m.documents),
		RecentForms:     []model.RecentForm{},
	}
	forms := append([]model.ItrForm(nil), m.itrForms...)
	sort.SliceStable(forms, func(i, j int) bool { return forms[i].CreatedAt.After(forms[j].CreatedAt) })
	for i, form := range forms {
		if refund, err := strconv.ParseFloat(form.RefundAmount, 64); err == nil {
			stats.ExpectedRefund += refund
		}
		if i < recentFormsLimit {
			stats.RecentForms = append(stats.RecentForms, model.RecentForm{
				ID:           form.ID,
				FormType:     form.FormType,
				Status:       form.Status,
				FilingDate:   form.FilingDate,
				RefundAmount: form.RefundAmount,
			})
		}
	}
	return stats
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
