package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func performJSON(t *testing.T, router http.Handler, method string, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	request := httptest.NewRequest(method, target, reader)
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

func decodeObject(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode payload %q: %v", recorder.Body.String(), err)
	}
	return payload
}

func TestConfigureCORS(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	middleware, err := ConfigureCORS(zap.NewNop(), []string{"http://localhost:5173"})
	if err != nil {
		t.Fatalf("unexpected error configuring CORS: %v", err)
	}
	router.Use(middleware)
	router.GET("/resource", func(contextGin *gin.Context) {
		contextGin.Status(http.StatusNoContent)
	})

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodOptions, "/resource", nil)
	request.Header.Set("Origin", "http://localhost:5173")
	request.Header.Set("Access-Control-Request-Method", http.MethodGet)
	router.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("expected 204 from preflight, got %d", recorder.Code)
	}
	if origin := recorder.Header().Get("Access-Control-Allow-Origin"); origin != "http://localhost:5173" {
		t.Fatalf("unexpected allowed origin header: %q", origin)
	}
	if credentials := recorder.Header().Get("Access-Control-Allow-Credentials"); credentials != "true" {
		t.Fatalf("expected credentials to be allowed, got %q", credentials)
	}
}

func TestConfigureCORSRejectsInvalidOrigins(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name    string
		origins []string
	}{
		{name: "nil", origins: nil},
		{name: "whitespace", origins: []string{"  "}},
		{name: "wildcard", origins: []string{"*"}},
		{name: "path", origins: []string{"https://example.com/app"}},
		{name: "scheme", origins: []string{"ftp://example.com"}},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			if _, err := ConfigureCORS(zap.NewNop(), testCase.origins); err == nil {
				t.Fatalf("expected error for origins %v", testCase.origins)
			}
		})
	}
}

func TestSanitizeOriginsWarnsOnPlainHTTP(t *testing.T) {
	t.Parallel()
	core, logs := observer.New(zap.WarnLevel)
	sanitized, err := sanitizeOrigins(zap.New(core), []string{"http://crm.example.com", "https://crm.example.com/", "http://crm.example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sanitized) != 2 {
		t.Fatalf("expected duplicates collapsed, got %v", sanitized)
	}
	if logs.FilterField(zap.String("code", "cors.origin.unsafe")).Len() != 1 {
		t.Fatalf("expected one unsafe origin warning, got %d", logs.Len())
	}
}

func TestRequestLoggerAssignsRequestID(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	core, logs := observer.New(zap.InfoLevel)
	router := gin.New()
	router.Use(RequestLogger(zap.New(core)))
	router.GET("/ping", func(contextGin *gin.Context) {
		contextGin.JSON(http.StatusOK, gin.H{"pong": true})
	})

	recorder := performJSON(t, router, http.MethodGet, "/ping", nil)
	generated := recorder.Header().Get(RequestIDHeader)
	if _, err := uuid.Parse(generated); err != nil {
		t.Fatalf("expected generated uuid request id, got %q", generated)
	}
	if logs.FilterMessage("http request").Len() != 1 {
		t.Fatalf("expected one request log entry")
	}

	inbound := uuid.NewString()
	request := httptest.NewRequest(http.MethodGet, "/ping", nil)
	request.Header.Set(RequestIDHeader, inbound)
	reused := httptest.NewRecorder()
	router.ServeHTTP(reused, request)
	if reused.Header().Get(RequestIDHeader) != inbound {
		t.Fatalf("expected inbound request id to be reused")
	}

	request = httptest.NewRequest(http.MethodGet, "/ping", nil)
	request.Header.Set(RequestIDHeader, "not-a-uuid")
	replaced := httptest.NewRecorder()
	router.ServeHTTP(replaced, request)
	if replaced.Header().Get(RequestIDHeader) == "not-a-uuid" {
		t.Fatalf("expected malformed request id to be replaced")
	}
}

func TestRecoveryReturnsInternalError(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(Recovery(zap.NewNop()))
	router.GET("/boom", func(*gin.Context) {
		panic("boom")
	})

	recorder := performJSON(t, router, http.MethodGet, "/boom", nil)
	if recorder.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", recorder.Code)
	}
	if payload := decodeObject(t, recorder); payload["error"] != "internal_error" {
		t.Fatalf("unexpected payload: %v", payload)
	}
}
