package whoop

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultAuthURL        = "https://api.prod.whoop.com/oauth/oauth2/auth"
	DefaultTokenURL       = "https://api.prod.whoop.com/oauth/oauth2/token"
	DefaultAPIBaseURL     = "https://api.prod.whoop.com/developer/v1"
	DefaultRequestTimeout = 20 * time.Second
)

// Scopes requested during authorization. "offline" yields a refresh token.
var Scopes = []string{
	"read:profile",
	"read:recovery",
	"read:cycles",
	"read:sleep",
	"read:workout",
	"read:body_measurement",
	"offline",
}

// Config carries the provider registration and endpoints.
type Config struct {
	ClientID       string
	ClientSecret   string
	RedirectURI    string
	AuthURL        string
	TokenURL       string
	APIBaseURL     string
	RequestTimeout time.Duration
}

func (config Config) withDefaults() Config {
	if strings.TrimSpace(config.AuthURL) == "" {
		config.AuthURL = DefaultAuthURL
	}
	if strings.TrimSpace(config.TokenURL) == "" {
		config.TokenURL = DefaultTokenURL
	}
	if strings.TrimSpace(config.APIBaseURL) == "" {
		config.APIBaseURL = DefaultAPIBaseURL
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = DefaultRequestTimeout
	}
	return config
}

// requireAuthorize checks the fields needed to issue an authorization URL.
func (config Config) requireAuthorize() error {
	return requireFields(map[string]string{
		"whoop_client_id":    config.ClientID,
		"whoop_redirect_uri": config.RedirectURI,
	})
}

// requireExchange checks the fields needed for any token exchange.
func (config Config) requireExchange() error {
	return requireFields(map[string]string{
		"whoop_client_id":     config.ClientID,
		"whoop_client_secret": config.ClientSecret,
		"whoop_redirect_uri":  config.RedirectURI,
	})
}

func requireFields(fields map[string]string) error {
	missing := make([]string, 0, len(fields))
	for _, name := range []string{"whoop_client_id", "whoop_client_secret", "whoop_redirect_uri"} {
		value, required := fields[name]
		if required && strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrConfiguration, strings.Join(missing, ", "))
	}
	return nil
}
