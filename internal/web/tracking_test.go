package web

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tyemirov/lifecrm/internal/store"
)

func newTrackingRouter(t *testing.T) (*gin.Engine, *store.DatabaseStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	databaseStore, err := store.NewDatabaseStore("sqlite://" + filepath.Join(t.TempDir(), "lifecrm.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	if err := databaseStore.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}
	handlers := NewTrackingHandlers(databaseStore, zap.NewNop())
	handlers.now = func() time.Time { return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC) }
	router := gin.New()
	handlers.Mount(router.Group("/api"))
	return router, databaseStore
}

func TestExpenseLifecycle(t *testing.T) {
	t.Parallel()
	router, _ := newTrackingRouter(t)

	created := performJSON(t, router, http.MethodPost, "/api/expenses", map[string]any{
		"amount":   42.5,
		"category": "groceries",
		"date":     "2024-03-09",
	})
	if created.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", created.Code, created.Body.String())
	}
	if _, ok := decodeObject(t, created)["id"]; !ok {
		t.Fatalf("expected id in create response")
	}

	listed := performJSON(t, router, http.MethodGet, "/api/expenses", nil)
	var expenses []store.Expense
	if err := json.Unmarshal(listed.Body.Bytes(), &expenses); err != nil {
		t.Fatalf("failed to decode expenses: %v", err)
	}
	if len(expenses) != 1 || expenses[0].Category != "groceries" {
		t.Fatalf("unexpected expenses: %+v", expenses)
	}

	outside := performJSON(t, router, http.MethodGet, "/api/expenses?start=2024-01-01&end=2024-01-31", nil)
	if outside.Body.String() != "[]" {
		t.Fatalf("expected empty window, got %s", outside.Body.String())
	}

	deleted := performJSON(t, router, http.MethodDelete, "/api/expenses/1", nil)
	if deleted.Code != http.StatusOK {
		t.Fatalf("expected 200 on delete, got %d", deleted.Code)
	}
}

func TestCreateExpenseRequiresFields(t *testing.T) {
	t.Parallel()
	router, _ := newTrackingRouter(t)

	testCases := []struct {
		name string
		body map[string]any
	}{
		{name: "missing amount", body: map[string]any{"category": "rent", "date": "2024-03-01"}},
		{name: "missing category", body: map[string]any{"amount": 10, "date": "2024-03-01"}},
		{name: "malformed date", body: map[string]any{"amount": 10, "category": "rent", "date": "03/01/2024"}},
	}
	for _, testCase := range testCases {
		recorder := performJSON(t, router, http.MethodPost, "/api/expenses", testCase.body)
		if recorder.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", testCase.name, recorder.Code)
		}
	}
}

func TestDeleteExpenseRejectsInvalidID(t *testing.T) {
	t.Parallel()
	router, _ := newTrackingRouter(t)

	recorder := performJSON(t, router, http.MethodDelete, "/api/expenses/abc", nil)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
	if payload := decodeObject(t, recorder); payload["error"] != "invalid_id" {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestDuplicateFinancialGoalIsRejected(t *testing.T) {
	t.Parallel()
	router, _ := newTrackingRouter(t)

	first := performJSON(t, router, http.MethodPost, "/api/financial-goals", map[string]any{"amount": 10000})
	if first.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", first.Code, first.Body.String())
	}
	second := performJSON(t, router, http.MethodPost, "/api/financial-goals", map[string]any{"amount": 10000})
	if second.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate goal, got %d", second.Code)
	}
	if payload := decodeObject(t, second); payload["error"] != "a goal of 10000 already exists" {
		t.Fatalf("unexpected payload: %v", payload)
	}

	achieved := performJSON(t, router, http.MethodPost, "/api/financial-goals/1/achieve", nil)
	if achieved.Code != http.StatusOK {
		t.Fatalf("expected 200 on achieve, got %d", achieved.Code)
	}
	listed := performJSON(t, router, http.MethodGet, "/api/financial-goals", nil)
	var goals []store.FinancialGoal
	if err := json.Unmarshal(listed.Body.Bytes(), &goals); err != nil {
		t.Fatalf("failed to decode goals: %v", err)
	}
	if len(goals) != 1 || !goals[0].Achieved {
		t.Fatalf("unexpected goals: %+v", goals)
	}
}

func TestWeightUpsertKeepsOneRowPerDay(t *testing.T) {
	t.Parallel()
	router, _ := newTrackingRouter(t)

	for _, weight := range []float64{81.2, 80.9} {
		recorder := performJSON(t, router, http.MethodPost, "/api/weight", map[string]any{"date": "2024-03-10", "weight": weight})
		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
		}
	}
	listed := performJSON(t, router, http.MethodGet, "/api/weight", nil)
	var weights []store.WeightEntry
	if err := json.Unmarshal(listed.Body.Bytes(), &weights); err != nil {
		t.Fatalf("failed to decode weights: %v", err)
	}
	if len(weights) != 1 || weights[0].Weight != 80.9 {
		t.Fatalf("expected a single updated entry, got %+v", weights)
	}
}

func TestHabitLogsDefaultToToday(t *testing.T) {
	t.Parallel()
	router, _ := newTrackingRouter(t)

	if recorder := performJSON(t, router, http.MethodPost, "/api/habits", map[string]any{"name": "Read"}); recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	logged := performJSON(t, router, http.MethodPost, "/api/habits/logs", map[string]any{"habit_id": 1, "date": "2024-03-10", "completed": true})
	if logged.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", logged.Code, logged.Body.String())
	}

	listed := performJSON(t, router, http.MethodGet, "/api/habits/logs", nil)
	var views []store.HabitLogView
	if err := json.Unmarshal(listed.Body.Bytes(), &views); err != nil {
		t.Fatalf("failed to decode habit logs: %v", err)
	}
	if len(views) != 1 || !views[0].Completed {
		t.Fatalf("unexpected habit logs: %+v", views)
	}

	invalid := performJSON(t, router, http.MethodGet, "/api/habits/logs?date=yesterday", nil)
	if invalid.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed date, got %d", invalid.Code)
	}
}
