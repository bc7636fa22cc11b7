package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tyemirov/lifecrm/internal/store"
	"github.com/tyemirov/lifecrm/internal/whoop"
)

type fakeWhoopStatus struct {
	status whoop.ConnectionStatus
}

func (fake fakeWhoopStatus) Status(context.Context) (whoop.ConnectionStatus, error) {
	return fake.status, nil
}

type fakeWhoopAuthorizer struct {
	url         string
	urlErr      error
	completeErr error
	codes       []string
}

func (fake *fakeWhoopAuthorizer) AuthorizationURL(context.Context) (string, error) {
	return fake.url, fake.urlErr
}

func (fake *fakeWhoopAuthorizer) Complete(_ context.Context, code string, state string) error {
	fake.codes = append(fake.codes, code)
	if fake.completeErr != nil {
		return fake.completeErr
	}
	if code == "" {
		return whoop.ErrMissingCode
	}
	if state != "expected-state" {
		return whoop.ErrInvalidState
	}
	return nil
}

type fakeWhoopSyncer struct {
	result       whoop.SyncResult
	err          error
	requestedDay []int
}

func (fake *fakeWhoopSyncer) SyncRange(_ context.Context, days int) (whoop.SyncResult, error) {
	fake.requestedDay = append(fake.requestedDay, days)
	return fake.result, fake.err
}

type fakeRecordReader struct {
	records []store.DailyRecord
	start   string
	end     string
}

func (fake *fakeRecordReader) DailyRecords(_ context.Context, startDate string, endDate string) ([]store.DailyRecord, error) {
	fake.start = startDate
	fake.end = endDate
	return fake.records, nil
}

type whoopFixture struct {
	router     *gin.Engine
	authorizer *fakeWhoopAuthorizer
	syncer     *fakeWhoopSyncer
	records    *fakeRecordReader
}

func newWhoopFixture(t *testing.T) *whoopFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	fixture := &whoopFixture{
		authorizer: &fakeWhoopAuthorizer{url: "https://api.prod.whoop.com/oauth/oauth2/auth?state=expected-state"},
		syncer: &fakeWhoopSyncer{result: whoop.SyncResult{
			Upserted:   3,
			RangeStart: time.Date(2024, 3, 8, 12, 0, 0, 0, time.UTC),
			RangeEnd:   time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
		}},
		records: &fakeRecordReader{records: []store.DailyRecord{{Date: "2024-03-10"}}},
	}
	handlers := NewWhoopHandlers(fakeWhoopStatus{status: whoop.ConnectionStatus{Connected: true}}, fixture.authorizer, fixture.syncer, fixture.records, zap.NewNop())
	handlers.now = func() time.Time { return time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC) }

	fixture.router = gin.New()
	api := fixture.router.Group("/api")
	handlers.Mount(api)
	handlers.MountCron(api, func(contextGin *gin.Context) { contextGin.Next() })
	return fixture
}

func TestWhoopSyncReportsRange(t *testing.T) {
	t.Parallel()
	fixture := newWhoopFixture(t)

	recorder := performJSON(t, fixture.router, http.MethodPost, "/api/whoop/sync", map[string]any{"days": 7})
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	payload := decodeObject(t, recorder)
	if payload["ok"] != true || payload["upserted"] != float64(3) {
		t.Fatalf("unexpected payload: %v", payload)
	}
	window, ok := payload["range"].(map[string]any)
	if !ok {
		t.Fatalf("expected range object, got %v", payload["range"])
	}
	if window["start"] != "2024-03-08T12:00:00.000Z" || window["end"] != "2024-03-10T12:00:00.000Z" {
		t.Fatalf("unexpected range: %v", window)
	}
	if fixture.syncer.requestedDay[0] != 7 {
		t.Fatalf("expected requested days forwarded, got %v", fixture.syncer.requestedDay)
	}
}

func TestWhoopSyncDefaults(t *testing.T) {
	t.Parallel()
	fixture := newWhoopFixture(t)

	if recorder := performJSON(t, fixture.router, http.MethodPost, "/api/whoop/sync", nil); recorder.Code != http.StatusOK {
		t.Fatalf("expected 200 without body, got %d", recorder.Code)
	}
	if recorder := performJSON(t, fixture.router, http.MethodPost, "/api/cron/whoop-sync", nil); recorder.Code != http.StatusOK {
		t.Fatalf("expected 200 from cron, got %d", recorder.Code)
	}
	if len(fixture.syncer.requestedDay) != 2 || fixture.syncer.requestedDay[0] != defaultManualSyncDays || fixture.syncer.requestedDay[1] != defaultCronSyncDays {
		t.Fatalf("unexpected day defaults: %v", fixture.syncer.requestedDay)
	}

	request := httptest.NewRequest(http.MethodPost, "/api/whoop/sync", strings.NewReader("{not json"))
	request.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	fixture.router.ServeHTTP(recorder, request)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", recorder.Code)
	}
}

func TestWhoopSyncErrorMapping(t *testing.T) {
	t.Parallel()

	upstream := &whoop.UpstreamUnavailableError{
		Cycles: &whoop.FetchError{Resource: "cycle", StatusCode: http.StatusNotFound, Body: map[string]any{"message": "missing"}},
		Sleep:  &whoop.FetchError{Resource: "sleep", Err: errors.New("dial tcp: timeout")},
	}
	testCases := []struct {
		name         string
		err          error
		expectedCode int
		expectedErr  string
	}{
		{name: "not connected", err: fmt.Errorf("whoop.token: %w", whoop.ErrNotConnected), expectedCode: http.StatusPreconditionFailed, expectedErr: "whoop.not_connected"},
		{name: "configuration", err: fmt.Errorf("whoop.refresh: %w", whoop.ErrConfiguration), expectedCode: http.StatusInternalServerError, expectedErr: "whoop.configuration"},
		{name: "upstream", err: upstream, expectedCode: http.StatusBadGateway, expectedErr: "whoop.upstream_unavailable"},
		{name: "other", err: errors.New("store offline"), expectedCode: http.StatusInternalServerError, expectedErr: "whoop.sync"},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			fixture := newWhoopFixture(t)
			fixture.syncer.err = testCase.err

			recorder := performJSON(t, fixture.router, http.MethodPost, "/api/whoop/sync", nil)
			if recorder.Code != testCase.expectedCode {
				t.Fatalf("expected %d, got %d", testCase.expectedCode, recorder.Code)
			}
			payload := decodeObject(t, recorder)
			if payload["error"] != testCase.expectedErr {
				t.Fatalf("unexpected error payload: %v", payload)
			}
			if testCase.name == "upstream" {
				cycles, ok := payload["cycles"].(map[string]any)
				if !ok || cycles["message"] != "missing" {
					t.Fatalf("expected upstream cycle body, got %v", payload["cycles"])
				}
				if payload["sleep"] != "dial tcp: timeout" {
					t.Fatalf("expected sleep error text, got %v", payload["sleep"])
				}
				if payload["hint"] == "" {
					t.Fatalf("expected hint")
				}
			}
		})
	}
}

func TestWhoopCallback(t *testing.T) {
	t.Parallel()
	fixture := newWhoopFixture(t)

	redirected := performJSON(t, fixture.router, http.MethodGet, "/api/whoop/callback?code=abc&state=expected-state", nil)
	if redirected.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", redirected.Code)
	}
	if location := redirected.Header().Get("Location"); location != connectedRedirect {
		t.Fatalf("unexpected redirect: %q", location)
	}

	forged := performJSON(t, fixture.router, http.MethodGet, "/api/whoop/callback?code=abc&state=forged", nil)
	if forged.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad state, got %d", forged.Code)
	}
	if payload := decodeObject(t, forged); payload["error"] != "whoop.invalid_state" {
		t.Fatalf("unexpected payload: %v", payload)
	}

	missing := performJSON(t, fixture.router, http.MethodGet, "/api/whoop/callback?state=expected-state", nil)
	if missing.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing code, got %d", missing.Code)
	}
}

func TestWhoopConnectAndStatus(t *testing.T) {
	t.Parallel()
	fixture := newWhoopFixture(t)

	connected := performJSON(t, fixture.router, http.MethodGet, "/api/whoop/connect", nil)
	if payload := decodeObject(t, connected); payload["url"] != fixture.authorizer.url {
		t.Fatalf("unexpected connect payload: %v", payload)
	}

	status := performJSON(t, fixture.router, http.MethodGet, "/api/whoop/status", nil)
	if payload := decodeObject(t, status); payload["connected"] != true {
		t.Fatalf("unexpected status payload: %v", payload)
	}

	fixture.authorizer.urlErr = fmt.Errorf("whoop.connect: %w", whoop.ErrConfiguration)
	misconfigured := performJSON(t, fixture.router, http.MethodGet, "/api/whoop/connect", nil)
	if misconfigured.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 without configuration, got %d", misconfigured.Code)
	}
}

func TestWhoopDataDefaultsWindow(t *testing.T) {
	t.Parallel()
	fixture := newWhoopFixture(t)

	recorder := performJSON(t, fixture.router, http.MethodGet, "/api/whoop/data", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if fixture.records.start != "2024-02-09" || fixture.records.end != "2024-03-10" {
		t.Fatalf("unexpected window: %s..%s", fixture.records.start, fixture.records.end)
	}

	performJSON(t, fixture.router, http.MethodGet, "/api/whoop/data?start=2024-01-01&end=2024-01-31", nil)
	if fixture.records.start != "2024-01-01" || fixture.records.end != "2024-01-31" {
		t.Fatalf("expected explicit window, got %s..%s", fixture.records.start, fixture.records.end)
	}
}
