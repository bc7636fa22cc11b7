package web

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tyemirov/lifecrm/internal/store"
	"github.com/tyemirov/lifecrm/internal/whoop"
)

const (
	defaultManualSyncDays = 30
	defaultCronSyncDays   = 2

	connectedRedirect = "/?whoop=connected"
	upstreamHint      = "Check the Whoop developer API endpoints and scopes; this build reads /developer/v1/cycle and /developer/v1/sleep."
)

// WhoopStatusReporter reports whether a Whoop credential is stored.
type WhoopStatusReporter interface {
	Status(ctx context.Context) (whoop.ConnectionStatus, error)
}

// WhoopAuthorizer runs the authorization code flow.
type WhoopAuthorizer interface {
	AuthorizationURL(ctx context.Context) (string, error)
	Complete(ctx context.Context, code string, state string) error
}

// WhoopSyncer runs one sync pass.
type WhoopSyncer interface {
	SyncRange(ctx context.Context, days int) (whoop.SyncResult, error)
}

// DailyRecordReader lists stored daily biometric records.
type DailyRecordReader interface {
	DailyRecords(ctx context.Context, startDate string, endDate string) ([]store.DailyRecord, error)
}

// WhoopHandlers serves the Whoop connect, sync, and data routes.
type WhoopHandlers struct {
	status     WhoopStatusReporter
	authorizer WhoopAuthorizer
	syncer     WhoopSyncer
	records    DailyRecordReader
	logger     *zap.Logger
	now        func() time.Time
}

func NewWhoopHandlers(status WhoopStatusReporter, authorizer WhoopAuthorizer, syncer WhoopSyncer, records DailyRecordReader, logger *zap.Logger) *WhoopHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WhoopHandlers{
		status:     status,
		authorizer: authorizer,
		syncer:     syncer,
		records:    records,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Mount registers the session-protected /whoop routes.
func (handlers *WhoopHandlers) Mount(router gin.IRouter) {
	router.GET("/whoop/status", handlers.connectionStatus)
	router.GET("/whoop/connect", handlers.connect)
	router.GET("/whoop/callback", handlers.callback)
	router.POST("/whoop/sync", handlers.syncHandler(defaultManualSyncDays))
	router.GET("/whoop/data", handlers.data)
}

// MountCron registers the scheduled sync trigger behind the given guard.
func (handlers *WhoopHandlers) MountCron(router gin.IRouter, guard gin.HandlerFunc) {
	router.POST("/cron/whoop-sync", guard, handlers.syncHandler(defaultCronSyncDays))
}

func (handlers *WhoopHandlers) connectionStatus(contextGin *gin.Context) {
	status, err := handlers.status.Status(contextGin.Request.Context())
	if err != nil {
		internalFailure(contextGin, handlers.logger, "whoop.status", err)
		return
	}
	contextGin.JSON(http.StatusOK, status)
}

func (handlers *WhoopHandlers) connect(contextGin *gin.Context) {
	authURL, err := handlers.authorizer.AuthorizationURL(contextGin.Request.Context())
	if err != nil {
		handlers.whoopFailure(contextGin, "whoop.connect", err)
		return
	}
	contextGin.JSON(http.StatusOK, gin.H{"url": authURL})
}

func (handlers *WhoopHandlers) callback(contextGin *gin.Context) {
	err := handlers.authorizer.Complete(contextGin.Request.Context(), contextGin.Query("code"), contextGin.Query("state"))
	switch {
	case err == nil:
		contextGin.Redirect(http.StatusFound, connectedRedirect)
	case errors.Is(err, whoop.ErrMissingCode):
		badRequest(contextGin, whoop.ErrMissingCode.Error())
	case errors.Is(err, whoop.ErrInvalidState):
		handlers.logger.Warn("whoop callback rejected", zap.String("code", whoop.ErrInvalidState.Error()))
		badRequest(contextGin, whoop.ErrInvalidState.Error())
	default:
		handlers.whoopFailure(contextGin, "whoop.callback", err)
	}
}

func (handlers *WhoopHandlers) syncHandler(defaultDays int) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		var inbound struct {
			Days int `json:"days"`
		}
		if contextGin.Request.ContentLength != 0 {
			if err := contextGin.ShouldBindJSON(&inbound); err != nil && !errors.Is(err, io.EOF) {
				badRequest(contextGin, "invalid_json")
				return
			}
		}
		days := inbound.Days
		if days == 0 {
			days = defaultDays
		}
		result, err := handlers.syncer.SyncRange(contextGin.Request.Context(), days)
		if err != nil {
			handlers.whoopFailure(contextGin, "whoop.sync", err)
			return
		}
		contextGin.JSON(http.StatusOK, gin.H{
			"ok":       true,
			"upserted": result.Upserted,
			"range": gin.H{
				"start": whoop.FormatInstant(result.RangeStart),
				"end":   whoop.FormatInstant(result.RangeEnd),
			},
		})
	}
}

func (handlers *WhoopHandlers) data(contextGin *gin.Context) {
	start, end := dateWindow(contextGin, handlers.now(), defaultListDays)
	records, err := handlers.records.DailyRecords(contextGin.Request.Context(), start, end)
	if err != nil {
		storeFailure(contextGin, handlers.logger, "whoop.data", err)
		return
	}
	contextGin.JSON(http.StatusOK, records)
}

// whoopFailure maps the whoop error taxonomy onto HTTP responses.
func (handlers *WhoopHandlers) whoopFailure(contextGin *gin.Context, code string, err error) {
	var upstreamErr *whoop.UpstreamUnavailableError
	switch {
	case errors.Is(err, whoop.ErrNotConnected):
		contextGin.AbortWithStatusJSON(http.StatusPreconditionFailed, gin.H{"error": whoop.ErrNotConnected.Error()})
	case errors.Is(err, whoop.ErrConfiguration):
		handlers.logger.Error("whoop configuration incomplete", zap.String("code", code), zap.Error(err))
		contextGin.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":  whoop.ErrConfiguration.Error(),
			"detail": err.Error(),
		})
	case errors.As(err, &upstreamErr):
		contextGin.AbortWithStatusJSON(http.StatusBadGateway, gin.H{
			"error":  "whoop.upstream_unavailable",
			"hint":   upstreamHint,
			"cycles": upstreamErr.CyclesPayload(),
			"sleep":  upstreamErr.SleepPayload(),
		})
	default:
		internalFailure(contextGin, handlers.logger, code, err)
	}
}
