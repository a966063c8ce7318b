package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func runCORS(t *testing.T, origins []string, method, origin, preflightMethod string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	called := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(method, "/desk/agenda", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	if preflightMethod != "" {
		req.Header.Set("Access-Control-Request-Method", preflightMethod)
	}
	rec := httptest.NewRecorder()
	CORS(origins)(handler).ServeHTTP(rec, req)
	return rec, called
}

func TestCORSAllowsListedOrigin(t *testing.T) {
	rec, called := runCORS(t, []string{"https://desk.clinic.example"}, http.MethodGet, "https://desk.clinic.example", "")
	assert.True(t, called)
	assert.Equal(t, "https://desk.clinic.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestCORSDeniesUnknownOrigin(t *testing.T) {
	rec, called := runCORS(t, []string{"https://desk.clinic.example"}, http.MethodGet, "https://evil.example", "")
	assert.True(t, called, "the request itself still goes through, only the headers are withheld")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSWildcardEchoesOrigin(t *testing.T) {
	rec, _ := runCORS(t, []string{"*"}, http.MethodGet, "https://anywhere.example", "")
	assert.Equal(t, "https://anywhere.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	rec, called := runCORS(t, []string{"https://desk.clinic.example"}, http.MethodOptions, "https://desk.clinic.example", "POST")
	assert.False(t, called)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequestLoggerPassesThrough(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	req := httptest.NewRequest(http.MethodGet, "/desk/agenda", nil)
	rec := httptest.NewRecorder()

	RequestLogger(nil)(handler).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
