package api_test

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/warp/punch-engine/api"
	"github.com/warp/punch-engine/punch"
	"github.com/warp/punch-engine/punch/store"
	"github.com/warp/punch-engine/timeclock"
)

// =============================================================================
// TEST SERVER
// =============================================================================

const (
	testPassword = "hunter2-but-longer"
	testSecret   = "test-signing-secret"
)

type testServer struct {
	router http.Handler
	store  *store.Memory
	now    time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	mem := store.NewMemory()

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	mem.PutWorker(punch.Worker{
		ID:           "w-1",
		OrgID:        "org-1",
		Name:         "Ada Torres",
		Email:        "ada@example.com",
		PasswordHash: string(hash),
		OrgTimezone:  "UTC",
	})

	ts := &testServer{
		store: mem,
		now:   time.Date(2026, time.February, 3, 8, 0, 0, 0, time.UTC),
	}

	service := timeclock.New(timeclock.Config{
		Store:     mem,
		Evidence:  mem,
		Audit:     mem,
		Directory: mem,
		Now:       func() time.Time { return ts.now },
	})

	auth := api.NewAuth(mem, []byte(testSecret))
	handler := api.NewHandler(service, auth, nil)
	ts.router = api.NewRouter(handler, []string{"*"})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) login(t *testing.T) string {
	t.Helper()

	rec := ts.do(t, http.MethodPost, "/api/login", "", api.LoginRequest{
		Email:    "ada@example.com",
		Password: testPassword,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp api.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

// =============================================================================
// AUTHENTICATION
// =============================================================================

func TestLogin_IssuesTokenWithProfile(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/login", "", api.LoginRequest{
		Email:    "ada@example.com",
		Password: testPassword,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[api.LoginResponse](t, rec)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "w-1", resp.User.ID)
	assert.Equal(t, "org-1", resp.User.OrgID)
	assert.Equal(t, "UTC", resp.User.Timezone)
}

func TestLogin_BadCredentials_SameResponse(t *testing.T) {
	// GIVEN: A wrong password and an unknown email
	// WHEN: Logging in with each
	// THEN: Both get an identical 401, leaking nothing about which was wrong

	ts := newTestServer(t)

	wrongPassword := ts.do(t, http.MethodPost, "/api/login", "", api.LoginRequest{
		Email:    "ada@example.com",
		Password: "nope",
	})
	unknownEmail := ts.do(t, http.MethodPost, "/api/login", "", api.LoginRequest{
		Email:    "nobody@example.com",
		Password: testPassword,
	})

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
}

func TestPunches_RequireToken(t *testing.T) {
	ts := newTestServer(t)

	paths := []struct{ method, path string }{
		{http.MethodPost, "/api/punches"},
		{http.MethodGet, "/api/punches/today"},
		{http.MethodGet, "/api/punches?from=2026-02-01&to=2026-02-03"},
		{http.MethodGet, "/api/punches/day/2026-02-03"},
		{http.MethodGet, "/api/punches/some-id/photo"},
	}
	for _, p := range paths {
		rec := ts.do(t, p.method, p.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", p.method, p.path)
	}

	rec := ts.do(t, http.MethodGet, "/api/punches/today", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReadViews_RemovedWorker_Unauthorized(t *testing.T) {
	// GIVEN: A validly signed token whose worker no longer exists
	// WHEN: Reading today, a period, or a day
	// THEN: 401, not an internal error

	ts := newTestServer(t)

	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub": "ghost",
		"org": "org-1",
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	paths := []string{
		"/api/punches/today",
		"/api/punches?from=2026-02-01&to=2026-02-03",
		"/api/punches/day/2026-02-03",
	}
	for _, path := range paths {
		rec := ts.do(t, http.MethodGet, path, token, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "GET %s: %s", path, rec.Body.String())
	}

	rec := ts.do(t, http.MethodPost, "/api/punches", token, api.SubmitPunchRequest{Type: "IN"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// =============================================================================
// SUBMIT AND READ FLOW
// =============================================================================

func TestSubmitAndToday_Flow(t *testing.T) {
	// GIVEN: An authenticated worker
	// WHEN: Punching IN with a selfie, then reading today
	// THEN: The punch shows up with has_photo and the live summary tracks now

	ts := newTestServer(t)
	token := ts.login(t)

	photo := base64.StdEncoding.EncodeToString([]byte{0xFF, 0xD8, 0xFF})
	rec := ts.do(t, http.MethodPost, "/api/punches", token, api.SubmitPunchRequest{
		Type:        "IN",
		Latitude:    -23.55,
		Longitude:   -46.63,
		AccuracyM:   8,
		PhotoBase64: photo,
		PhotoMime:   "image/jpeg",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decode[api.PunchDTO](t, rec)
	assert.Equal(t, "IN", created.Type)
	assert.Equal(t, 1, created.Ordinal)
	assert.True(t, created.HasPhoto)
	require.NotNil(t, created.PhotoID)

	// Two and a half hours later.
	ts.now = ts.now.Add(2*time.Hour + 30*time.Minute)

	rec = ts.do(t, http.MethodGet, "/api/punches/today", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	today := decode[api.TodayResponse](t, rec)
	assert.Equal(t, "2026-02-03", today.Date)
	require.Len(t, today.Punches, 1)
	require.NotNil(t, today.NextExpected)
	assert.Equal(t, "BREAK_START", *today.NextExpected)
	assert.False(t, today.IsComplete)
	assert.Equal(t, int64(9000), today.Summary.WorkedSeconds)
	assert.Equal(t, "2.5", today.Summary.WorkedHours)
}

func TestSubmit_WrongType_ReturnsExpected(t *testing.T) {
	// GIVEN: An empty day
	// WHEN: Submitting OUT
	// THEN: 400 with the expected next type so the client can re-prompt

	ts := newTestServer(t)
	token := ts.login(t)

	rec := ts.do(t, http.MethodPost, "/api/punches", token, api.SubmitPunchRequest{Type: "OUT"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decode[api.ErrorResponse](t, rec)
	assert.Equal(t, "IN", resp.Expected)
	assert.NotEmpty(t, resp.Error)
}

func TestSubmit_InvalidType(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(t)

	rec := ts.do(t, http.MethodPost, "/api/punches", token, api.SubmitPunchRequest{Type: "LUNCH"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmit_FifthPunch_Rejected(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(t)

	for _, typ := range punch.Sequence {
		rec := ts.do(t, http.MethodPost, "/api/punches", token, api.SubmitPunchRequest{Type: string(typ)})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		ts.now = ts.now.Add(2 * time.Hour)
	}

	rec := ts.do(t, http.MethodPost, "/api/punches", token, api.SubmitPunchRequest{Type: "IN"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// HISTORY AND EVIDENCE
// =============================================================================

func TestListPeriod_Validation(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(t)

	rec := ts.do(t, http.MethodGet, "/api/punches?from=2026-02-04&to=2026-02-03", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/punches?from=2026-02-03", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/punches?from=2026-02-01&to=2026-02-03", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decode[api.PeriodResponse](t, rec)
	assert.Empty(t, resp.Items)
}

func TestGetDay_LocationIncluded(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(t)

	rec := ts.do(t, http.MethodPost, "/api/punches", token, api.SubmitPunchRequest{
		Type:      "IN",
		Latitude:  -23.55,
		Longitude: -46.63,
		AccuracyM: 8,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/punches/day/2026-02-03", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	day := decode[api.DayResponse](t, rec)
	require.Len(t, day.Items, 1)
	assert.Equal(t, -23.55, day.Items[0].Latitude)
	assert.Equal(t, -46.63, day.Items[0].Longitude)
	assert.False(t, day.Items[0].HasPhoto)
}

func TestGetPhoto_StreamsPayload(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(t)

	payload := []byte{0x89, 0x50, 0x4E, 0x47}
	rec := ts.do(t, http.MethodPost, "/api/punches", token, api.SubmitPunchRequest{
		Type:        "IN",
		PhotoBase64: base64.StdEncoding.EncodeToString(payload),
		PhotoMime:   "image/png",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[api.PunchDTO](t, rec)

	rec = ts.do(t, http.MethodGet, "/api/punches/"+created.ID+"/photo", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, payload, rec.Body.Bytes())
}

func TestGetPhoto_NotFound(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(t)

	rec := ts.do(t, http.MethodGet, "/api/punches/no-such-id/photo", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// A punch without a photo also reads as not found.
	created := decode[api.PunchDTO](t,
		ts.do(t, http.MethodPost, "/api/punches", token, api.SubmitPunchRequest{Type: "IN"}))
	rec = ts.do(t, http.MethodGet, "/api/punches/"+created.ID+"/photo", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
