package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"taxclient/internal/apperr"
	"taxclient/internal/authflow"
	"taxclient/internal/backend"
	"taxclient/internal/backend/mocks"
	"taxclient/internal/cache"
	"taxclient/internal/model"
	"taxclient/internal/session"
	"taxclient/internal/testutil"
)

type redirectRecorder struct {
	mu        sync.Mutex
	scheduled int
	toasts    []authflow.Toast
}

func (r *redirectRecorder) schedule(time.Duration, func()) {
	r.mu.Lock()
	r.scheduled++
	r.mu.Unlock()
}

func (r *redirectRecorder) notify(toast authflow.Toast) {
	r.mu.Lock()
	r.toasts = append(r.toasts, toast)
	r.mu.Unlock()
}

func (r *redirectRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scheduled
}

func newTestClient(t *testing.T, b backend.Backend, sess session.Provider) (*Client, *authflow.Handler, *redirectRecorder) {
	t.Helper()
	rec := &redirectRecorder{}
	handler := authflow.New(authflow.Config{
		Schedule:        rec.schedule,
		Notifier:        authflow.NotifierFunc(rec.notify),
		FailureMessages: FailureMessages,
		SuccessMessages: SuccessMessages,
	})
	store := cache.New(cache.Config{
		OnMutationError: handler.HandleMutationError,
		RetryBackoff:    time.Millisecond,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = store.Close(ctx)
	})
	if sess == nil {
		sess = session.NewMock(session.MockConfig{})
	}
	client, err := New(Config{Cache: store, Backend: b, Session: sess, Auth: handler})
	require.NoError(t, err)
	return client, handler, rec
}

func validItr(salary float64) model.ItrFormInput {
	return model.ItrFormInput{
		FormType:       "ITR-1",
		AssessmentYear: "2024-25",
		FinancialYear:  "2023-24",
		FormData: model.ItrFormData{
			PersonalInfo: model.PersonalInfo{PAN: "ABCDE1234F", Mobile: "9876543210", Email: "john.doe@example.com"},
			Income:       model.Income{Salary: salary},
		},
	}
}

func TestCreateThenReadRoundTrip(t *testing.T) {
	mem := backend.NewMemory(backend.MemoryConfig{})
	client, _, rec := newTestClient(t, mem, nil)
	ctx := context.Background()

	sub := client.Subscribe(KeyItrForms, nil)
	defer sub.Unsubscribe()
	testutil.WaitForState(t, client.Cache(), KeyItrForms, testutil.Settled)

	created, err := client.CreateItrForm(ctx, validItr(1000))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	state := testutil.WaitForState(t, client.Cache(), KeyItrForms, func(s cache.State) bool {
		forms, ok := cache.Value[[]model.ItrForm](s)
		return ok && len(forms) == 1
	})
	forms, _ := cache.Value[[]model.ItrForm](state)
	assert.Equal(t, 1000.0, forms[0].FormData.Income.Salary)
	assert.Equal(t, created.ID, forms[0].ID)

	listed, _, err := client.ItrForms(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, 1000.0, listed[0].FormData.Income.Salary)

	require.Len(t, rec.toasts, 1)
	assert.Equal(t, "ITR form created successfully", rec.toasts[0].Description)
}

func TestAuthFailingMutationLeavesCacheAndRedirectsOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	mock := mocks.NewMockBackend(ctrl)
	mock.EXPECT().Do(gomock.Any(), http.MethodGet, KeyExperts, nil).
		Return([]byte(`[{"id":"exp-1","firstName":"Priya","lastName":"Sharma"}]`), nil).Times(1)
	mock.EXPECT().Do(gomock.Any(), http.MethodGet, KeyItrForms, nil).
		Return([]byte(`[]`), nil).Times(1)
	mock.EXPECT().Do(gomock.Any(), http.MethodPost, KeyItrForms, gomock.Any()).
		Return(nil, apperr.NewStatusError(http.StatusUnauthorized, "Unauthorized")).Times(2)

	client, handler, rec := newTestClient(t, mock, nil)
	ctx := context.Background()

	experts := client.Subscribe(KeyExperts, nil)
	defer experts.Unsubscribe()
	forms := client.Subscribe(KeyItrForms, nil)
	defer forms.Unsubscribe()
	before := testutil.WaitForState(t, client.Cache(), KeyExperts, testutil.Settled)
	testutil.WaitForState(t, client.Cache(), KeyItrForms, testutil.Settled)

	for i := 0; i < 2; i++ {
		_, err := client.CreateItrForm(ctx, validItr(1000))
		require.Error(t, err)
		assert.True(t, apperr.IsAuth(err))
	}

	after, ok := client.Cache().Peek(KeyExperts)
	require.True(t, ok)
	assert.Equal(t, before.Value, after.Value)
	assert.True(t, before.UpdatedAt.Equal(after.UpdatedAt))
	assert.False(t, after.Stale)

	itr, _ := client.Cache().Peek(KeyItrForms)
	assert.False(t, itr.Stale)
	assert.False(t, itr.Fetching)

	assert.Equal(t, 1, rec.count())
	assert.Equal(t, 1, handler.Redirects())
	require.Len(t, rec.toasts, 1)
	assert.Equal(t, authflow.UnauthorizedTitle, rec.toasts[0].Title)
}

func TestValidationFailureNeverReachesBackend(t *testing.T) {
	ctrl := gomock.NewController(t)
	mock := mocks.NewMockBackend(ctrl)
	client, _, rec := newTestClient(t, mock, nil)

	input := validItr(1000)
	input.FormData.PersonalInfo.PAN = "123"
	_, err := client.CreateItrForm(context.Background(), input)

	var verr *apperr.ValidationError
	require.True(t, errors.As(err, &verr))
	_, ok := verr.Field("formData.personalInfo.pan")
	assert.True(t, ok)
	assert.Zero(t, rec.count())
}

func TestMutationInvalidatesDeclaredKeys(t *testing.T) {
	ctrl := gomock.NewController(t)
	mock := mocks.NewMockBackend(ctrl)
	mock.EXPECT().Do(gomock.Any(), http.MethodGet, KeyGstReturns, nil).Return([]byte(`[]`), nil).Times(2)
	mock.EXPECT().Do(gomock.Any(), http.MethodGet, KeyDashboardStats, nil).Return([]byte(`{"totalGstReturns":0}`), nil).Times(2)
	mock.EXPECT().Do(gomock.Any(), http.MethodGet, KeyTdsReturns, nil).Return([]byte(`[]`), nil).Times(1)
	mock.EXPECT().Do(gomock.Any(), http.MethodPost, KeyGstReturns, gomock.Any()).
		Return([]byte(`{"id":"gst-1","gstin":"27AAPFU0939F1ZV"}`), nil).Times(1)

	client, _, _ := newTestClient(t, mock, nil)
	for _, key := range []string{KeyGstReturns, KeyDashboardStats, KeyTdsReturns} {
		sub := client.Subscribe(key, nil)
		defer sub.Unsubscribe()
		testutil.WaitForState(t, client.Cache(), key, testutil.Settled)
	}

	created, err := client.CreateGstReturn(context.Background(), model.GstReturnInput{
		GSTIN: "27AAPFU0939F1ZV", ReturnType: "GSTR1", Period: "2024-06",
	})
	require.NoError(t, err)
	assert.Equal(t, "gst-1", created.ID)

	for _, key := range []string{KeyGstReturns, KeyDashboardStats} {
		testutil.WaitForState(t, client.Cache(), key, func(s cache.State) bool {
			return testutil.Settled(s) && !s.Stale
		})
	}
	tds, _ := client.Cache().Peek(KeyTdsReturns)
	assert.False(t, tds.Stale)
}

func TestPrefetchWarmsKeysOnce(t *testing.T) {
	mem := backend.NewMemory(backend.MemoryConfig{})
	client, _, _ := newTestClient(t, mem, nil)
	ctx := context.Background()

	require.NoError(t, client.Prefetch(ctx, KeyExperts, KeyPricingPlans, KeyDocuments))
	for _, key := range []string{KeyExperts, KeyPricingPlans, KeyDocuments} {
		state := client.Read(key)
		assert.Equal(t, cache.StatusSuccess, state.Status, key)
		assert.Equal(t, 1, mem.Calls(http.MethodGet, key), key)
	}
	plans, _, err := client.PricingPlans(ctx)
	require.NoError(t, err)
	assert.Len(t, plans, 5)
}

func TestSignedOutReadsStayIdle(t *testing.T) {
	mem := backend.NewMemory(backend.MemoryConfig{})
	sess := session.NewMock(session.MockConfig{})
	sess.SignOut()
	client, _, _ := newTestClient(t, mem, sess)

	state := client.Read(KeyItrForms)
	assert.Equal(t, cache.StatusIdle, state.Status)
	forms, state, err := client.ItrForms(context.Background())
	require.NoError(t, err)
	assert.Nil(t, forms)
	assert.Equal(t, cache.StatusIdle, state.Status)

	_, _, err = client.PricingPlans(context.Background())
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, mem.Calls(http.MethodGet, KeyItrForms))
	assert.Equal(t, 1, mem.Calls(http.MethodGet, KeyPricingPlans))
}

func TestReadAuthFailureRedirects(t *testing.T) {
	mem := backend.NewMemory(backend.MemoryConfig{})
	mem.SetAuthenticated(false)
	client, _, rec := newTestClient(t, mem, nil)

	_, state, err := client.Documents(context.Background())
	require.Error(t, err)
	assert.Equal(t, cache.StatusError, state.Status)
	assert.Equal(t, 1, rec.count())
}

func TestUpdateItrFormUsesItemPath(t *testing.T) {
	mem := backend.NewMemory(backend.MemoryConfig{})
	client, _, _ := newTestClient(t, mem, nil)
	ctx := context.Background()

	created, err := client.CreateItrForm(ctx, validItr(1000))
	require.NoError(t, err)
	updated, err := client.UpdateItrForm(ctx, created.ID, validItr(5000))
	require.NoError(t, err)
	assert.Equal(t, 5000.0, updated.FormData.Income.Salary)
	assert.Equal(t, 1, mem.Calls(http.MethodPut, KeyItrForms+"/"+created.ID))

	_, err = client.UpdateItrForm(ctx, "missing", validItr(1))
	assert.Equal(t, http.StatusNotFound, apperr.Classify(err).Status)
}

func TestBookConsultationNormalizesDate(t *testing.T) {
	mem := backend.NewMemory(backend.MemoryConfig{})
	client, _, _ := newTestClient(t, mem, nil)

	booked, err := client.BookConsultation(context.Background(), model.ConsultationInput{
		ExpertID: "exp-1", ServiceType: "itr", ScheduledDate: "2024-08-01T10:30:00+05:30",
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-08-01T05:00:00.000Z", booked.ScheduledDate)
	assert.Equal(t, "pending", booked.Status)
}
