package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nurpe/gigpay/internal/auth"
	"github.com/nurpe/gigpay/internal/config"
	"github.com/nurpe/gigpay/internal/http/middleware"
	"github.com/nurpe/gigpay/internal/model"
	"github.com/nurpe/gigpay/internal/pdf"
	"github.com/nurpe/gigpay/internal/service"
)

const testSecret = "test-secret"

type memStore struct {
	mu        sync.Mutex
	profiles  map[uuid.UUID]model.Profile
	contracts map[uuid.UUID]model.Contract
	jobs      map[uuid.UUID]model.Job
}

func newMemStore() *memStore {
	return &memStore{
		profiles:  map[uuid.UUID]model.Profile{},
		contracts: map[uuid.UUID]model.Contract{},
		jobs:      map[uuid.UUID]model.Job{},
	}
}

func (s *memStore) InTransaction(_ context.Context, fn func(tx service.TxStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// handler tests only exercise single requests; rejection paths return
	// before mutating, so no snapshot is needed here
	return fn(memTx{store: s})
}

func (s *memStore) GetProfile(_ context.Context, id uuid.UUID) (*model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile(id)
}

func (s *memStore) GetContract(_ context.Context, id uuid.UUID) (*model.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contract(id)
}

func (s *memStore) GetJob(_ context.Context, id uuid.UUID) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobByID(id)
}

func (s *memStore) ListContractsForProfile(_ context.Context, profileID uuid.UUID) ([]model.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Contract{}
	for _, c := range s.contracts {
		if c.IsParty(profileID) && c.Status != model.ContractStatusTerminated {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memStore) ListUnpaidJobsForProfile(_ context.Context, profileID uuid.UUID) ([]model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Job{}
	for _, j := range s.jobs {
		c, ok := s.contracts[j.ContractID]
		if ok && c.IsParty(profileID) && c.Status != model.ContractStatusTerminated && !j.Paid {
			out = append(out, j)
		}
	}
	return out, nil
}

func (s *memStore) SumOutstanding(_ context.Context, clientID uuid.UUID) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outstanding(clientID), nil
}

func (s *memStore) profile(id uuid.UUID) (*model.Profile, error) {
	p, ok := s.profiles[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (s *memStore) contract(id uuid.UUID) (*model.Contract, error) {
	c, ok := s.contracts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (s *memStore) jobByID(id uuid.UUID) (*model.Job, error) {
	j, ok := s.jobs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &j, nil
}

func (s *memStore) outstanding(clientID uuid.UUID) float64 {
	total := 0.0
	for _, j := range s.jobs {
		c, ok := s.contracts[j.ContractID]
		if ok && c.ClientID == clientID && c.Status != model.ContractStatusTerminated && !j.Paid {
			total += j.Price
		}
	}
	return total
}

type memTx struct {
	store *memStore
}

func (t memTx) GetProfileForUpdate(_ context.Context, id uuid.UUID) (*model.Profile, error) {
	return t.store.profile(id)
}

func (t memTx) GetJobForUpdate(_ context.Context, id uuid.UUID) (*model.Job, error) {
	return t.store.jobByID(id)
}

func (t memTx) GetContract(_ context.Context, id uuid.UUID) (*model.Contract, error) {
	return t.store.contract(id)
}

func (t memTx) SumOutstanding(_ context.Context, clientID uuid.UUID) (float64, error) {
	return t.store.outstanding(clientID), nil
}

func (t memTx) MarkJobPaid(_ context.Context, jobID uuid.UUID, paidAt time.Time) error {
	j := t.store.jobs[jobID]
	j.Paid = true
	j.PaymentDate = &paidAt
	j.UpdatedAt = paidAt
	t.store.jobs[jobID] = j
	return nil
}

func (t memTx) AdjustBalance(_ context.Context, profileID uuid.UUID, delta float64) error {
	p := t.store.profiles[profileID]
	p.Balance += delta
	t.store.profiles[profileID] = p
	return nil
}

type testEnv struct {
	router     *gin.Engine
	store      *memStore
	client     model.Profile
	contractor model.Profile
	contract   model.Contract
	job        model.Job
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := newMemStore()
	client := model.Profile{ID: uuid.New(), Type: model.ProfileTypeClient, FirstName: "Harry", LastName: "Potter", Balance: 100}
	contractor := model.Profile{ID: uuid.New(), Type: model.ProfileTypeContractor, FirstName: "John", LastName: "Lenon", Profession: "Musician"}
	contract := model.Contract{ID: uuid.New(), ClientID: client.ID, ContractorID: contractor.ID, Status: model.ContractStatusInProgress}
	job := model.Job{ID: uuid.New(), ContractID: contract.ID, Description: "work", Price: 80, UpdatedAt: time.Now()}

	store.profiles[client.ID] = client
	store.profiles[contractor.ID] = contractor
	store.contracts[contract.ID] = contract
	store.jobs[job.ID] = job

	cfg := &config.Config{Environment: "development"}
	cfg.Billing.DepositCapRatio = 0.25
	cfg.Billing.DefaultReportLimit = 2

	billing := service.NewBillingService(store, pdf.NewGenerator(), cfg)
	reports := service.NewReportService(stubReportStore{}, stubExcel{}, cfg)

	handler := NewHandler(billing, reports, zerolog.Nop())
	authMiddleware := middleware.Auth(auth.NewParser(testSecret), store)
	router := NewRouter(handler, authMiddleware, cfg.Environment)

	return &testEnv{
		router:     router,
		store:      store,
		client:     client,
		contractor: contractor,
		contract:   contract,
		job:        job,
	}
}

type stubReportStore struct{}

func (stubReportStore) BestProfession(context.Context, time.Time, time.Time) (*model.ProfessionEarnings, error) {
	return &model.ProfessionEarnings{Profession: "Programmer", Earned: 2683}, nil
}

func (stubReportStore) BestClients(context.Context, time.Time, time.Time, int) ([]model.ClientPayments, error) {
	return []model.ClientPayments{{ID: uuid.New(), FullName: "Ash Kethcum", Paid: 2020}}, nil
}

type stubExcel struct{}

func (stubExcel) Generate(model.BestClientsReport) ([]byte, error) {
	return []byte("xlsx"), nil
}

func signToken(t *testing.T, profileID uuid.UUID) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   profileID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (e *testEnv) do(t *testing.T, method, path string, caller uuid.UUID, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+signToken(t, caller))

	recorder := httptest.NewRecorder()
	e.router.ServeHTTP(recorder, req)
	return recorder
}

func TestAuthRejectsMissingAndBadTokens(t *testing.T) {
	e := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/contracts", nil)
	recorder := httptest.NewRecorder()
	e.router.ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	req = httptest.NewRequest(http.MethodGet, "/contracts", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	recorder = httptest.NewRecorder()
	e.router.ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	// valid token for a profile that does not exist
	recorder = e.do(t, http.MethodGet, "/contracts", uuid.New(), nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestGetContract(t *testing.T) {
	e := newTestEnv(t)

	recorder := e.do(t, http.MethodGet, "/contracts/"+e.contract.ID.String(), e.client.ID, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var contract model.Contract
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &contract))
	assert.Equal(t, e.contract.ID, contract.ID)

	// a profile outside the contract gets 403
	stranger := model.Profile{ID: uuid.New(), Type: model.ProfileTypeClient}
	e.store.profiles[stranger.ID] = stranger
	recorder = e.do(t, http.MethodGet, "/contracts/"+e.contract.ID.String(), stranger.ID, nil)
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	recorder = e.do(t, http.MethodGet, "/contracts/"+uuid.NewString(), e.client.ID, nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestListUnpaidJobs(t *testing.T) {
	e := newTestEnv(t)

	recorder := e.do(t, http.MethodGet, "/jobs/unpaid", e.client.ID, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var jobs []model.Job
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &jobs))
	require.Len(t, jobs, 1)
	assert.Equal(t, e.job.ID, jobs[0].ID)
}

func TestPayJobEndpoint(t *testing.T) {
	e := newTestEnv(t)

	recorder := e.do(t, http.MethodPut, fmt.Sprintf("/jobs/%s/pay", e.job.ID), e.client.ID, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var payload struct {
		Balance float64   `json:"balance"`
		Job     model.Job `json:"job"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	assert.InDelta(t, 20, payload.Balance, 0.001)
	assert.True(t, payload.Job.Paid)

	// replay is a 200 without a second debit
	recorder = e.do(t, http.MethodPut, fmt.Sprintf("/jobs/%s/pay", e.job.ID), e.client.ID, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.InDelta(t, 20, e.store.profiles[e.client.ID].Balance, 0.001)
}

func TestPayJobEndpointFailures(t *testing.T) {
	e := newTestEnv(t)

	// contractor cannot pay
	recorder := e.do(t, http.MethodPut, fmt.Sprintf("/jobs/%s/pay", e.job.ID), e.contractor.ID, nil)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	// missing job
	recorder = e.do(t, http.MethodPut, fmt.Sprintf("/jobs/%s/pay", uuid.New()), e.client.ID, nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)

	// insufficient balance
	broke := e.store.profiles[e.client.ID]
	broke.Balance = 10
	e.store.profiles[e.client.ID] = broke
	recorder = e.do(t, http.MethodPut, fmt.Sprintf("/jobs/%s/pay", e.job.ID), e.client.ID, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	assert.False(t, e.store.jobs[e.job.ID].Paid)
}

func TestDepositEndpoint(t *testing.T) {
	e := newTestEnv(t)

	// outstanding total is 80, cap is 20
	recorder := e.do(t, http.MethodPost, "/balances/deposit/"+e.client.ID.String(), e.client.ID, gin.H{"amount": 20})
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.InDelta(t, 120, e.store.profiles[e.client.ID].Balance, 0.001)

	recorder = e.do(t, http.MethodPost, "/balances/deposit/"+e.client.ID.String(), e.client.ID, gin.H{"amount": 21})
	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)

	recorder = e.do(t, http.MethodPost, "/balances/deposit/"+e.client.ID.String(), e.client.ID, gin.H{})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = e.do(t, http.MethodPost, "/balances/deposit/"+e.contractor.ID.String(), e.client.ID, gin.H{"amount": 5})
	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
}

func TestReceiptEndpoint(t *testing.T) {
	e := newTestEnv(t)

	recorder := e.do(t, http.MethodGet, fmt.Sprintf("/jobs/%s/receipt", e.job.ID), e.client.ID, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)

	recorder = e.do(t, http.MethodPut, fmt.Sprintf("/jobs/%s/pay", e.job.ID), e.client.ID, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = e.do(t, http.MethodGet, fmt.Sprintf("/jobs/%s/receipt", e.job.ID), e.client.ID, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "application/pdf", recorder.Header().Get("Content-Type"))
	assert.NotEmpty(t, recorder.Body.Bytes())
}

func TestAdminReports(t *testing.T) {
	e := newTestEnv(t)

	recorder := e.do(t, http.MethodGet, "/admin/best-profession?start=2025-01-01&end=2025-02-01", e.client.ID, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var profession model.ProfessionEarnings
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &profession))
	assert.Equal(t, "Programmer", profession.Profession)

	recorder = e.do(t, http.MethodGet, "/admin/best-clients?start=2025-01-01&end=2025-02-01&limit=2", e.client.ID, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var clients []model.ClientPayments
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &clients))
	require.Len(t, clients, 1)

	recorder = e.do(t, http.MethodGet, "/admin/best-clients?start=bogus&end=2025-02-01", e.client.ID, nil)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = e.do(t, http.MethodGet, "/admin/best-clients/export?start=2025-01-01&end=2025-02-01", e.client.ID, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Header().Get("Content-Disposition"), "best-clients-20250101-20250201.xlsx")
}
