package web

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tyemirov/lifecrm/internal/store"
)

// LowRecoveryThreshold is the Whoop recovery score under which the dashboard raises an alert.
const LowRecoveryThreshold = 33

const (
	alertWeeklyBudget = "weekly budget exceeded"
	alertCaloriesTDEE = "calories today above TDEE"
	alertLowRecovery  = "low Whoop recovery"
)

// DashboardStore supplies the dashboard aggregates and the settings table.
type DashboardStore interface {
	DashboardStats(ctx context.Context) (store.DashboardStats, error)
	AllSettings(ctx context.Context) (map[string]string, error)
	SetSetting(ctx context.Context, key string, value string) error
}

// DashboardHandlers serves /dashboard and /settings.
type DashboardHandlers struct {
	store  DashboardStore
	logger *zap.Logger
}

func NewDashboardHandlers(dashboardStore DashboardStore, logger *zap.Logger) *DashboardHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardHandlers{store: dashboardStore, logger: logger}
}

// Mount registers the dashboard and settings routes on a session-protected group.
func (handlers *DashboardHandlers) Mount(router gin.IRouter) {
	router.GET("/dashboard", handlers.dashboard)
	router.GET("/settings", handlers.listSettings)
	router.POST("/settings", handlers.updateSetting)
}

func (handlers *DashboardHandlers) dashboard(contextGin *gin.Context) {
	ctx := contextGin.Request.Context()
	stats, err := handlers.store.DashboardStats(ctx)
	if err != nil {
		storeFailure(contextGin, handlers.logger, "api.dashboard.stats", err)
		return
	}
	settings, err := handlers.store.AllSettings(ctx)
	if err != nil {
		storeFailure(contextGin, handlers.logger, "api.dashboard.settings", err)
		return
	}
	contextGin.JSON(http.StatusOK, gin.H{
		"stats":    stats,
		"alerts":   dashboardAlerts(stats, settings),
		"settings": settings,
	})
}

// dashboardAlerts applies the threshold rules; a missing or zero threshold disables its rule.
func dashboardAlerts(stats store.DashboardStats, settings map[string]string) []string {
	alerts := make([]string, 0, 3)
	if budget := settingNumber(settings, "weekly_budget"); budget > 0 && stats.ExpensesWeek > budget {
		alerts = append(alerts, alertWeeklyBudget)
	}
	if tdee := settingNumber(settings, "tdee"); tdee > 0 && float64(stats.CaloriesToday) > tdee {
		alerts = append(alerts, alertCaloriesTDEE)
	}
	if stats.WhoopRecovery != nil && *stats.WhoopRecovery < LowRecoveryThreshold {
		alerts = append(alerts, alertLowRecovery)
	}
	return alerts
}

func settingNumber(settings map[string]string, key string) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(settings[key]), 64)
	if err != nil {
		return 0
	}
	return parsed
}

func (handlers *DashboardHandlers) listSettings(contextGin *gin.Context) {
	settings, err := handlers.store.AllSettings(contextGin.Request.Context())
	if err != nil {
		storeFailure(contextGin, handlers.logger, "api.settings.list", err)
		return
	}
	contextGin.JSON(http.StatusOK, settings)
}

func (handlers *DashboardHandlers) updateSetting(contextGin *gin.Context) {
	var inbound struct {
		Key   string `json:"key"`
		Value any    `json:"value"`
	}
	if err := contextGin.ShouldBindJSON(&inbound); err != nil || strings.TrimSpace(inbound.Key) == "" {
		badRequest(contextGin, "key required")
		return
	}
	if err := handlers.store.SetSetting(contextGin.Request.Context(), inbound.Key, settingValue(inbound.Value)); err != nil {
		storeFailure(contextGin, handlers.logger, "api.settings.update", err)
		return
	}
	contextGin.JSON(http.StatusOK, gin.H{"ok": true})
}

// settingValue stores JSON scalars as text; null becomes the empty string.
func settingValue(raw any) string {
	switch value := raw.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	default:
		return fmt.Sprint(value)
	}
}
