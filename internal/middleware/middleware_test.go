package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"licensor/internal/shared/testutil"
)

func okHandler(t *testing.T, called *bool) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestIDGeneratesWhenAbsent(t *testing.T) {
	var captured string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetReqID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotEmpty(t, captured)
	assert.Equal(t, captured, rec.Header().Get("X-Request-ID"))
}

func TestRequestIDHonorsInboundHeader(t *testing.T) {
	var captured string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetReqID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", captured)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}

func TestAdminAuthAcceptsValidSecret(t *testing.T) {
	logger, _ := testutil.NewTestLogger()
	var called bool
	handler := AdminAuth("hunter2", logger)(okHandler(t, &called))

	req := httptest.NewRequest(http.MethodGet, "/api/licenses", nil)
	req.Header.Set(AdminSecretHeader, "hunter2")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminAuthRejectsBadSecret(t *testing.T) {
	logger, logs := testutil.NewTestLogger()
	var called bool
	handler := AdminAuth("hunter2", logger)(okHandler(t, &called))

	req := httptest.NewRequest(http.MethodGet, "/api/licenses", nil)
	req.Header.Set(AdminSecretHeader, "wrong")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
	assert.True(t, logs.ContainsMessage("admin authentication failed"))
}

func TestAdminAuthRejectsMissingHeader(t *testing.T) {
	logger, _ := testutil.NewTestLogger()
	var called bool
	handler := AdminAuth("hunter2", logger)(okHandler(t, &called))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/licenses", nil))

	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminAuthEmptySecretRejectsEverything(t *testing.T) {
	logger, _ := testutil.NewTestLogger()
	var called bool
	handler := AdminAuth("", logger)(okHandler(t, &called))

	req := httptest.NewRequest(http.MethodGet, "/api/licenses", nil)
	req.Header.Set(AdminSecretHeader, "")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRateLimiterRejectsOverBurst(t *testing.T) {
	logger, logs := testutil.NewTestLogger()
	rl := NewRateLimiter(1, 2, logger)
	handler := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/validate", nil))
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, http.StatusOK, codes[0])
	assert.Equal(t, http.StatusOK, codes[1])
	assert.Equal(t, http.StatusTooManyRequests, codes[2])
	assert.True(t, logs.ContainsMessage("rate limit exceeded"))
}

func TestRecovererConvertsPanicTo500(t *testing.T) {
	logger, logs := testutil.NewTestLogger()
	handler := Recoverer(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_FAILURE")
	assert.True(t, logs.ContainsMessage("panic recovered"))
}

func TestStructuredLoggerLogsCompletion(t *testing.T) {
	logger, logs := testutil.NewTestLogger()
	handler := RequestID(StructuredLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/licenses", nil))

	require.True(t, logs.ContainsMessage("request completed"))
	assert.True(t, logs.ContainsAttr("status", int64(http.StatusTeapot)))
}
