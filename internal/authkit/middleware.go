package authkit

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tyemirov/lifecrm/pkg/sessionvalidator"
)

// CronSecretHeader carries the shared secret for scheduled triggers.
const CronSecretHeader = "X-Cron-Secret"

// RequireSession validates the session cookie and injects claims.
func RequireSession(validator *sessionvalidator.Validator) gin.HandlerFunc {
	return validator.GinMiddleware(sessionvalidator.DefaultContextKey)
}

// RequireCronSecret admits requests presenting the secret in the X-Cron-Secret header or the
// secret query parameter. An empty configured secret disables the guarded routes entirely.
func RequireCronSecret(secret string) gin.HandlerFunc {
	expected := strings.TrimSpace(secret)
	return func(contextGin *gin.Context) {
		if expected == "" {
			contextGin.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "cron_disabled"})
			return
		}
		presented := contextGin.GetHeader(CronSecretHeader)
		if presented == "" {
			presented = contextGin.Query("secret")
		}
		if subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) != 1 {
			contextGin.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_cron_secret"})
			return
		}
		contextGin.Next()
	}
}
