package web

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tyemirov/lifecrm/internal/observability"
	"github.com/tyemirov/lifecrm/internal/store"
)

const isoDateLayout = "2006-01-02"

// Default look-back windows for list endpoints, in days.
const (
	defaultListDays      = 30
	defaultNutritionDays = 14
	defaultWeightDays    = 90
)

// dateWindow reads ?start and ?end, defaulting to the last lookbackDays days ending today (UTC).
func dateWindow(contextGin *gin.Context, now time.Time, lookbackDays int) (string, string) {
	today := now.UTC()
	start := contextGin.Query("start")
	if start == "" {
		start = today.AddDate(0, 0, -lookbackDays).Format(isoDateLayout)
	}
	end := contextGin.Query("end")
	if end == "" {
		end = today.Format(isoDateLayout)
	}
	return start, end
}

func validDate(value string) bool {
	_, err := time.Parse(isoDateLayout, value)
	return err == nil
}

func pathID(contextGin *gin.Context) (uint, bool) {
	parsed, err := strconv.ParseUint(contextGin.Param("id"), 10, 64)
	if err != nil || parsed == 0 {
		contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_id"})
		return 0, false
	}
	return uint(parsed), true
}

func badRequest(contextGin *gin.Context, message string) {
	contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": message})
}

// storeFailure maps store errors onto HTTP statuses; unexpected ones are logged and reported.
func storeFailure(contextGin *gin.Context, logger *zap.Logger, code string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		contextGin.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case errors.Is(err, store.ErrDuplicate):
		contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "duplicate"})
	default:
		internalFailure(contextGin, logger, code, err)
	}
}

func internalFailure(contextGin *gin.Context, logger *zap.Logger, code string, err error) {
	logger.Error("request failed", zap.String("code", code), zap.Error(err))
	observability.CaptureError(code, err)
	_ = contextGin.Error(err)
	contextGin.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": code})
}

func isDuplicate(err error) bool {
	return errors.Is(err, store.ErrDuplicate)
}
