package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AkshitaMeena-Jharwal/biomtake-healthcare-system/internal/auth"
	"github.com/AkshitaMeena-Jharwal/biomtake-healthcare-system/pkg/config"
	"github.com/AkshitaMeena-Jharwal/biomtake-healthcare-system/pkg/logger"
	"github.com/AkshitaMeena-Jharwal/biomtake-healthcare-system/pkg/types"
)

// fakeLedger records submissions and replays a canned response.
type fakeLedger struct {
	mu       sync.Mutex
	calls    [][]string
	response []byte
	err      error
}

func (f *fakeLedger) Submit(_ context.Context, fn string, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, append([]string{fn}, args...))
	if f.err != nil {
		return nil, f.err
	}
	if f.response == nil {
		return []byte(`[]`), nil
	}
	return f.response, nil
}

func (f *fakeLedger) lastCall() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.calls) == 0 {
		return nil
	}
	return f.calls[len(f.calls)-1]
}

type testHarness struct {
	service  *Service
	ledger   *fakeLedger
	sessions *auth.MemorySessionStore
	tokens   *auth.TokenIssuer
}

func newTestHarness(t *testing.T, cfgMutators ...func(*config.Config)) *testHarness {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 0},
		JWT: config.JWTConfig{
			SecretKey: "test-secret",
			TokenTTL:  86400,
			Issuer:    "biomtake-api",
		},
	}
	for _, mutate := range cfgMutators {
		mutate(cfg)
	}

	ledger := &fakeLedger{}
	sessions := auth.NewMemorySessionStore()
	tokens := auth.NewTokenIssuer(cfg.JWT.SecretKey, cfg.JWT.Issuer, time.Duration(cfg.JWT.TokenTTL)*time.Second)

	service := NewService(cfg, Dependencies{
		Credentials: auth.NewSeedCredentialStore(),
		Sessions:    sessions,
		Tokens:      tokens,
		Authorizer:  auth.NewRoleAuthorizer(),
		Ledger:      ledger,
	}, logger.New("error"))

	return &testHarness{service: service, ledger: ledger, sessions: sessions, tokens: tokens}
}

func (h *testHarness) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	h.service.Handler().ServeHTTP(recorder, req)
	return recorder
}

func (h *testHarness) tokenFor(t *testing.T, email string) string {
	t.Helper()

	recorder := h.do(t, http.MethodPost, "/api/auth/login", "", types.LoginRequest{
		Email:    email,
		Password: "password",
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	require.NotEmpty(t, body.Token)
	return body.Token
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	body := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

func TestLogin(t *testing.T) {
	h := newTestHarness(t)

	recorder := h.do(t, http.MethodPost, "/api/auth/login", "", types.LoginRequest{
		Email:    "dr.smith@hospital.com",
		Password: "password",
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	body := decodeBody(t, recorder)
	assert.Equal(t, "Login successful", body["message"])
	assert.NotEmpty(t, body["token"])

	user, ok := body["user"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "doctor1", user["id"])
	assert.Equal(t, "doctor", user["role"])
	assert.NotContains(t, recorder.Body.String(), "$2a$", "password hash must not leak")

	// Login leaves a session bookkeeping entry.
	_, exists := h.sessions.Get("doctor1")
	assert.True(t, exists)
}

func TestLogin_WrongPassword(t *testing.T) {
	h := newTestHarness(t)

	recorder := h.do(t, http.MethodPost, "/api/auth/login", "", types.LoginRequest{
		Email:    "dr.smith@hospital.com",
		Password: "not-the-password",
	})
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, "Invalid credentials", decodeBody(t, recorder)["error"])
}

func TestLogin_UnknownEmail(t *testing.T) {
	h := newTestHarness(t)

	recorder := h.do(t, http.MethodPost, "/api/auth/login", "", types.LoginRequest{
		Email:    "nobody@hospital.com",
		Password: "password",
	})
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, "Invalid credentials", decodeBody(t, recorder)["error"])
}

func TestProtectedRoute_MissingToken(t *testing.T) {
	h := newTestHarness(t)

	recorder := h.do(t, http.MethodGet, "/api/devices", "", nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, "Access token required", decodeBody(t, recorder)["error"])
	assert.Nil(t, h.ledger.lastCall(), "ledger must not be reached without a token")
}

func TestProtectedRoute_ExpiredToken(t *testing.T) {
	h := newTestHarness(t)

	expiredIssuer := auth.NewTokenIssuer("test-secret", "biomtake-api", -time.Hour)
	token, err := expiredIssuer.Issue(&types.Credential{ID: "doctor1", Role: types.RoleDoctor})
	require.NoError(t, err)

	recorder := h.do(t, http.MethodGet, "/api/devices", token, nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, "Invalid or expired token", decodeBody(t, recorder)["error"])
}

func TestProtectedRoute_ForgedToken(t *testing.T) {
	h := newTestHarness(t)

	forger := auth.NewTokenIssuer("some-other-secret", "biomtake-api", time.Hour)
	token, err := forger.Issue(&types.Credential{ID: "admin1", Role: types.RoleAdmin})
	require.NoError(t, err)

	recorder := h.do(t, http.MethodGet, "/api/devices", token, nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestListDevices(t *testing.T) {
	h := newTestHarness(t)
	h.ledger.response = []byte(`[{"HPBIM":"HPBM-001","PIDM":"PIDM-001","registeredAt":"2025-01-01T00:00:00Z","registeredBy":"doctor1"}]`)

	recorder := h.do(t, http.MethodGet, "/api/devices", h.tokenFor(t, "dr.smith@hospital.com"), nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var devices []types.Device
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &devices))
	require.Len(t, devices, 1)
	assert.Equal(t, "HPBM-001", devices[0].HPBIM)
	assert.Equal(t, []string{"GetAllAssets"}, h.ledger.lastCall())
}

func TestListDevices_PatientForbidden(t *testing.T) {
	h := newTestHarness(t)

	recorder := h.do(t, http.MethodGet, "/api/devices", h.tokenFor(t, "patient.john@email.com"), nil)
	assert.Equal(t, http.StatusForbidden, recorder.Code)
	assert.Equal(t, "Insufficient permissions", decodeBody(t, recorder)["error"])
	assert.Nil(t, h.ledger.lastCall(), "denied requests must not reach the ledger")
}

func TestRegisterDevice(t *testing.T) {
	h := newTestHarness(t)
	h.ledger.response = []byte(`{}`)

	recorder := h.do(t, http.MethodPost, "/api/devices", h.tokenFor(t, "dr.smith@hospital.com"), types.RegisterDeviceRequest{
		HPBM: "HPBM-042",
		PIDM: "PIDM-042",
	})
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "Device registered successfully!", decodeBody(t, recorder)["message"])

	// registeredBy comes from the verified token, not the body.
	assert.Equal(t, []string{"CreateAsset", "HPBM-042", "PIDM-042", "doctor1"}, h.ledger.lastCall())
}

func TestAddHealthRecord_ArgumentStringification(t *testing.T) {
	h := newTestHarness(t)
	h.ledger.response = []byte(`{}`)

	recorder := h.do(t, http.MethodPost, "/api/health-records", h.tokenFor(t, "dr.smith@hospital.com"), types.AddHealthRecordRequest{
		RecordID:      "rec-001",
		DeviceHPBM:    "HPBM-042",
		PatientID:     "patient1",
		HeartRate:     72,
		BloodPressure: "120/80",
		Temperature:   36.6,
		OxygenLevel:   98.2,
		Notes:         "stable",
	})
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "Health record added successfully!", decodeBody(t, recorder)["message"])

	assert.Equal(t, []string{
		"AddHealthRecord",
		"rec-001", "HPBM-042", "patient1", "doctor1",
		"72", "120/80", "36.6", "98.2", "stable",
	}, h.ledger.lastCall())
}

func TestAddHealthRecord_AdminForbidden(t *testing.T) {
	h := newTestHarness(t)

	recorder := h.do(t, http.MethodPost, "/api/health-records", h.tokenFor(t, "admin@hospital.com"), types.AddHealthRecordRequest{
		RecordID:   "rec-001",
		DeviceHPBM: "HPBM-042",
		PatientID:  "patient1",
	})
	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestListHealthRecords_PatientScopedToSelf(t *testing.T) {
	h := newTestHarness(t)

	recorder := h.do(t, http.MethodGet, "/api/health-records", h.tokenFor(t, "patient.john@email.com"), nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, []string{"GetHealthRecordsByPatient", "patient1"}, h.ledger.lastCall())
}

func TestListHealthRecords_DoctorSeesAll(t *testing.T) {
	h := newTestHarness(t)

	recorder := h.do(t, http.MethodGet, "/api/health-records", h.tokenFor(t, "dr.smith@hospital.com"), nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, []string{"GetAllHealthRecords"}, h.ledger.lastCall())
}

func TestHealthRecordsByPatient(t *testing.T) {
	h := newTestHarness(t)

	recorder := h.do(t, http.MethodGet, "/api/health-records/patient/patient7", h.tokenFor(t, "admin@hospital.com"), nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, []string{"GetHealthRecordsByPatient", "patient7"}, h.ledger.lastCall())
}

func TestHealthRecordsByPatient_PatientForbidden(t *testing.T) {
	h := newTestHarness(t)

	// Patients may not query arbitrary patients, including themselves
	// through this route.
	recorder := h.do(t, http.MethodGet, "/api/health-records/patient/patient1", h.tokenFor(t, "patient.john@email.com"), nil)
	assert.Equal(t, http.StatusForbidden, recorder.Code)
	assert.Nil(t, h.ledger.lastCall())
}

func TestRegisterUser(t *testing.T) {
	h := newTestHarness(t)
	h.ledger.response = []byte(`{}`)

	recorder := h.do(t, http.MethodPost, "/api/users/register", "", types.RegisterUserRequest{
		UserID: "patient9",
		Role:   types.RolePatient,
		Name:   "Jane Roe",
		Email:  "jane.roe@email.com",
	})
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "User registered successfully on blockchain", decodeBody(t, recorder)["message"])
	assert.Equal(t, []string{"RegisterUser", "patient9", "patient", "Jane Roe", "jane.roe@email.com"}, h.ledger.lastCall())
}

func TestRegisterUser_InvalidRole(t *testing.T) {
	h := newTestHarness(t)

	recorder := h.do(t, http.MethodPost, "/api/users/register", "", types.RegisterUserRequest{
		UserID: "x1",
		Role:   "superuser",
		Name:   "X",
		Email:  "x@example.com",
	})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Nil(t, h.ledger.lastCall())
}

func TestLedgerFailure_SurfacesCause(t *testing.T) {
	h := newTestHarness(t)
	h.ledger.err = types.NewGatewayError(types.ErrCodeSubmitFailed, "transaction submission failed",
		assert.AnError)

	recorder := h.do(t, http.MethodGet, "/api/devices", h.tokenFor(t, "dr.smith@hospital.com"), nil)
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)

	message, _ := decodeBody(t, recorder)["error"].(string)
	assert.Contains(t, message, "Blockchain error: ")
	assert.Contains(t, message, assert.AnError.Error())
}

func TestLogout(t *testing.T) {
	h := newTestHarness(t)

	token := h.tokenFor(t, "dr.smith@hospital.com")
	_, exists := h.sessions.Get("doctor1")
	require.True(t, exists)

	recorder := h.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "Logout successful", decodeBody(t, recorder)["message"])

	_, exists = h.sessions.Get("doctor1")
	assert.False(t, exists)

	// Logout is bookkeeping only; the token stays valid until expiry.
	recorder = h.do(t, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestMe(t *testing.T) {
	h := newTestHarness(t)

	recorder := h.do(t, http.MethodGet, "/api/auth/me", h.tokenFor(t, "admin@hospital.com"), nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	user, ok := decodeBody(t, recorder)["user"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "admin1", user["id"])
	assert.Equal(t, "admin", user["role"])
}

func TestPublicEndpoints(t *testing.T) {
	h := newTestHarness(t)

	recorder := h.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "healthy", decodeBody(t, recorder)["status"])

	recorder = h.do(t, http.MethodGet, "/api/system-info", "", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "BioMTAKE Healthcare System", decodeBody(t, recorder)["system"])

	recorder = h.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)

	recorder = h.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestRateLimit(t *testing.T) {
	h := newTestHarness(t, func(cfg *config.Config) {
		cfg.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMin: 1, BurstSize: 1}
	})

	token := h.tokenFor(t, "dr.smith@hospital.com")

	recorder := h.do(t, http.MethodGet, "/api/devices", token, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = h.do(t, http.MethodGet, "/api/devices", token, nil)
	assert.Equal(t, http.StatusTooManyRequests, recorder.Code)
	assert.Equal(t, "Too many requests", decodeBody(t, recorder)["error"])
}
