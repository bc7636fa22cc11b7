package authkit

import (
	"net/http"
	"time"
)

const (
	DefaultSessionCookieName = "lifecrm_auth"
	DefaultSessionIssuer     = "lifecrm"
	DefaultSessionTTL        = 30 * 24 * time.Hour

	defaultLoginMaxAttempts = 10
	defaultLoginWindow      = time.Minute
)

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// ServerConfig configures the password gate, the session cookie, and the cron guard.
type ServerConfig struct {
	SessionSigningKey []byte
	SessionIssuer     string
	CookieDomain      string
	SessionCookieName string
	SessionTTL        time.Duration
	SameSiteMode      http.SameSite
	AllowInsecureHTTP bool
	CronSecret        string
	LoginMaxAttempts  int
	LoginWindow       time.Duration
	Clock             Clock
}

func (configuration ServerConfig) withDefaults() ServerConfig {
	if configuration.SessionIssuer == "" {
		configuration.SessionIssuer = DefaultSessionIssuer
	}
	if configuration.SessionCookieName == "" {
		configuration.SessionCookieName = DefaultSessionCookieName
	}
	if configuration.SessionTTL <= 0 {
		configuration.SessionTTL = DefaultSessionTTL
	}
	if configuration.SameSiteMode == 0 {
		configuration.SameSiteMode = http.SameSiteLaxMode
	}
	if configuration.LoginMaxAttempts <= 0 {
		configuration.LoginMaxAttempts = defaultLoginMaxAttempts
	}
	if configuration.LoginWindow <= 0 {
		configuration.LoginWindow = defaultLoginWindow
	}
	if configuration.Clock == nil {
		configuration.Clock = systemClock{}
	}
	return configuration
}
