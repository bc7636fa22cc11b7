package authkit

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tyemirov/lifecrm/internal/observability"
	"github.com/tyemirov/lifecrm/pkg/sessionvalidator"
)

// MountAuthRoutes registers /auth/login, /auth/check, and /auth/logout.
func MountAuthRoutes(router gin.IRouter, configuration ServerConfig, passwords PasswordVerifier, validator *sessionvalidator.Validator, logger *zap.Logger, metrics observability.MetricsRecorder) {
	configuration = configuration.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NopMetrics{}
	}
	limiter := NewLoginRateLimiter(configuration.LoginMaxAttempts, configuration.LoginWindow, configuration.Clock)

	router.POST("/auth/login", limiter.Middleware(), func(contextGin *gin.Context) {
		var inbound struct {
			Password string `json:"password"`
		}
		if err := contextGin.ShouldBindJSON(&inbound); err != nil || inbound.Password == "" {
			contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_json"})
			return
		}
		if !configuration.AllowInsecureHTTP && !isHTTPS(contextGin.Request) {
			contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "https_required"})
			return
		}

		if verifyErr := passwords.Verify(inbound.Password); verifyErr != nil {
			metrics.Increment("auth.login.failure")
			if !errors.Is(verifyErr, ErrInvalidPassword) {
				logger.Error("password verification failed", zap.String("code", "auth.verify_password"), zap.Error(verifyErr))
				contextGin.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			contextGin.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_password"})
			return
		}

		sessionToken, sessionExpiresAt, mintErr := MintSessionJWT(configuration.Clock, SessionSubject, configuration.SessionIssuer, configuration.SessionSigningKey, configuration.SessionTTL)
		if mintErr != nil {
			logger.Error("session mint failed", zap.String("code", "auth.mint_session"), zap.Error(mintErr))
			contextGin.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		writeSessionCookie(contextGin, configuration, sessionToken, sessionExpiresAt)
		metrics.Increment("auth.login.success")
		contextGin.JSON(http.StatusOK, gin.H{"ok": true, "expires": sessionExpiresAt})
	})

	router.GET("/auth/check", func(contextGin *gin.Context) {
		_, err := validator.ValidateRequest(contextGin.Request)
		contextGin.JSON(http.StatusOK, gin.H{"authenticated": err == nil})
	})

	router.POST("/auth/logout", func(contextGin *gin.Context) {
		clearCookie(contextGin, configuration)
		contextGin.JSON(http.StatusOK, gin.H{"ok": true})
	})
}

func writeSessionCookie(contextGin *gin.Context, configuration ServerConfig, sessionToken string, expiresAt time.Time) {
	http.SetCookie(contextGin.Writer, &http.Cookie{
		Name:     configuration.SessionCookieName,
		Value:    sessionToken,
		Path:     "/",
		Domain:   configuration.CookieDomain,
		Expires:  expiresAt,
		MaxAge:   int(configuration.SessionTTL.Seconds()),
		Secure:   !configuration.AllowInsecureHTTP,
		HttpOnly: true,
		SameSite: configuration.SameSiteMode,
	})
}

func clearCookie(contextGin *gin.Context, configuration ServerConfig) {
	http.SetCookie(contextGin.Writer, &http.Cookie{
		Name:     configuration.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   configuration.CookieDomain,
		MaxAge:   -1,
		Secure:   !configuration.AllowInsecureHTTP,
		HttpOnly: true,
		SameSite: configuration.SameSiteMode,
	})
}

func isHTTPS(request *http.Request) bool {
	if request.TLS != nil {
		return true
	}
	if strings.EqualFold(request.Header.Get("X-Forwarded-Proto"), "https") {
		return true
	}
	forwarded := request.Header.Get("Forwarded")
	if forwarded != "" && strings.Contains(strings.ToLower(forwarded), "proto=https") {
		return true
	}
	host, _, splitErr := net.SplitHostPort(request.Host)
	return splitErr == nil && host == "localhost"
}
