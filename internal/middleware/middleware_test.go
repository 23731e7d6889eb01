package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/threadmind/dm-concierge/internal/model"
	"github.com/threadmind/dm-concierge/pkg/logger"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, scopes ...string) string {
	t.Helper()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "operator",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Scopes: scopes,
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(GetSubject(r.Context())))
})

func TestAuth(t *testing.T) {
	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"bad signature", "Bearer " + signToken(t, "other"), http.StatusUnauthorized},
		{"valid", "Bearer " + signToken(t, testSecret), http.StatusOK},
	}
	h := Auth(testSecret)(okHandler)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "operator", rec.Body.String())
			}
		})
	}
}

func TestAuth_DisabledWithoutSecret(t *testing.T) {
	rec := httptest.NewRecorder()
	Auth("")(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireScope(t *testing.T) {
	h := Auth(testSecret)(RequireScope(true, ScopeRunPoller)(okHandler))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "logs:read"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, ScopeRunPoller))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	RequireScope(false, ScopeRunPoller)(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogging_SetsCorrelationID(t *testing.T) {
	var seen string
	r := chi.NewRouter()
	r.Use(Logging(logger.NewNop()))
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		seen = logger.CorrelationID(r.Context())
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(CorrelationHeader))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(CorrelationHeader, "abc-123")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)
}

func TestLogging_RecordsSubjectFromInnerAuth(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := chi.NewRouter()
	r.Use(Logging(&logger.Logger{Logger: zap.New(core)}))
	r.Route("/api", func(r chi.Router) {
		r.Use(Auth(testSecret))
		r.Get("/ping", okHandler)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret))
	r.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("request completed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "operator", entries[0].ContextMap()["subject"])
	assert.Equal(t, "/api/ping", entries[0].ContextMap()["path"])
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestCORS_AllowsConfiguredOrigin(t *testing.T) {
	h := CORS([]string{"http://localhost:5173"})(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(2, time.Minute)(okHandler)
	codes := make([]int, 3)
	for i := range codes {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes[i] = rec.Code
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}

func TestValidateUsername(t *testing.T) {
	assert.NoError(t, ValidateUsername("some.user_1"))
	assert.Error(t, ValidateUsername(""))
	assert.Error(t, ValidateUsername("has space"))
	assert.Error(t, ValidateUsername(strings.Repeat("a", 31)))
	assert.Equal(t, "alice", NormalizeUsername("  @alice "))
}

func TestValidateTemplates(t *testing.T) {
	assert.NoError(t, ValidateCreateTemplate(model.CreateTemplateRequest{
		Intent: model.IntentGreeting, Title: "Hi", Content: "Hello!",
	}))
	assert.Error(t, ValidateCreateTemplate(model.CreateTemplateRequest{
		Intent: "weather", Title: "Hi", Content: "Hello!",
	}))
	assert.Error(t, ValidateCreateTemplate(model.CreateTemplateRequest{
		Intent: model.IntentGreeting, Title: " ", Content: "Hello!",
	}))

	blank := ""
	assert.Error(t, ValidateUpdateTemplate(model.UpdateTemplateRequest{Content: &blank}))
	tags := []string{"ok", ""}
	assert.Error(t, ValidateUpdateTemplate(model.UpdateTemplateRequest{Tags: &tags}))
	assert.NoError(t, ValidateUpdateTemplate(model.UpdateTemplateRequest{}))
}

func TestValidateMessages(t *testing.T) {
	msg := func(text string) model.Message {
		return model.Message{ID: "m1", ThreadID: "t1", FromUser: "alice", Text: text}
	}
	assert.NoError(t, ValidateMessages([]model.Message{msg("hi")}))
	assert.Error(t, ValidateMessages([]model.Message{msg(strings.Repeat("x", maxMessageLen+1))}))
	assert.Error(t, ValidateMessages([]model.Message{msg("\xff")}))

	for _, m := range []model.Message{
		{},
		{ThreadID: "t1", FromUser: "alice", Text: "hi"},
		{ID: "m1", FromUser: "alice", Text: "hi"},
		{ID: "m1", ThreadID: "t1", Text: "hi"},
	} {
		assert.Error(t, ValidateMessages([]model.Message{m}))
	}
}
