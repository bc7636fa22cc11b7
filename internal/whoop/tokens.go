package whoop

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tyemirov/lifecrm/internal/observability"
	"github.com/tyemirov/lifecrm/internal/store"
)

const (
	// RefreshMargin is how close to expiry a stored token must be before it is refreshed.
	RefreshMargin = 60 * time.Second
	// DefaultTokenLifetime applies when the provider omits expires_in.
	DefaultTokenLifetime = 3600 * time.Second
)

// CredentialStore is the single-slot credential persistence consumed by the token manager.
type CredentialStore interface {
	LatestCredential(ctx context.Context) (*store.Credential, error)
	ReplaceCredential(ctx context.Context, accessToken string, refreshToken string, expiresAt time.Time) error
}

// ConnectionStatus summarizes the stored credential for status endpoints.
type ConnectionStatus struct {
	Connected bool       `json:"connected"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// TokenManager hands out access tokens, refreshing them shortly before they expire.
type TokenManager struct {
	config      Config
	credentials CredentialStore
	exchanger   TokenExchanger
	logger      *zap.Logger
	metrics     observability.MetricsRecorder
	now         func() time.Time
}

// NewTokenManager wires a TokenManager. Nil logger and metrics fall back to no-ops.
func NewTokenManager(config Config, credentials CredentialStore, exchanger TokenExchanger, logger *zap.Logger, metrics observability.MetricsRecorder) *TokenManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NopMetrics{}
	}
	return &TokenManager{
		config:      config,
		credentials: credentials,
		exchanger:   exchanger,
		logger:      logger,
		metrics:     metrics,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// EnsureValidToken returns a credential whose access token stays valid past the refresh margin.
// It returns ErrNotConnected when nothing is stored and ErrConfiguration when a refresh is due
// but the provider registration is incomplete. Exchange failures are returned as is.
func (manager *TokenManager) EnsureValidToken(ctx context.Context) (store.Credential, error) {
	current, err := manager.credentials.LatestCredential(ctx)
	if err != nil {
		return store.Credential{}, fmt.Errorf("whoop.token.load: %w", err)
	}
	if current == nil || strings.TrimSpace(current.AccessToken) == "" {
		return store.Credential{}, ErrNotConnected
	}
	if current.ExpiresAt.After(manager.now().Add(RefreshMargin)) {
		return *current, nil
	}

	if configErr := manager.config.requireExchange(); configErr != nil {
		return store.Credential{}, configErr
	}
	if strings.TrimSpace(current.RefreshToken) == "" {
		return store.Credential{}, fmt.Errorf("whoop.token.refresh: %w", ErrNotConnected)
	}

	grant, exchangeErr := manager.exchanger.ExchangeRefreshToken(ctx, current.RefreshToken)
	if exchangeErr != nil {
		manager.metrics.Increment("whoop.token.refresh_failed")
		manager.logger.Warn("whoop token refresh failed", zap.Error(exchangeErr))
		return store.Credential{}, exchangeErr
	}
	refreshed, storeErr := manager.storeGrant(ctx, grant, current.RefreshToken)
	if storeErr != nil {
		return store.Credential{}, storeErr
	}
	manager.metrics.Increment("whoop.token.refresh")
	manager.logger.Info("whoop token refreshed", zap.Time("expires_at", refreshed.ExpiresAt))
	return refreshed, nil
}

// Status reports whether a credential is stored and when it expires.
func (manager *TokenManager) Status(ctx context.Context) (ConnectionStatus, error) {
	current, err := manager.credentials.LatestCredential(ctx)
	if err != nil {
		return ConnectionStatus{}, fmt.Errorf("whoop.token.status: %w", err)
	}
	if current == nil {
		return ConnectionStatus{Connected: false}, nil
	}
	expiresAt := current.ExpiresAt
	return ConnectionStatus{Connected: true, ExpiresAt: &expiresAt}, nil
}

// storeGrant replaces the stored credential with the grant. An empty refresh token in the
// grant keeps previousRefreshToken.
func (manager *TokenManager) storeGrant(ctx context.Context, grant TokenGrant, previousRefreshToken string) (store.Credential, error) {
	if strings.TrimSpace(grant.AccessToken) == "" {
		return store.Credential{}, errors.New("whoop.token.empty_access_token")
	}
	refreshToken := grant.RefreshToken
	if strings.TrimSpace(refreshToken) == "" {
		refreshToken = previousRefreshToken
	}
	lifetime := grant.ExpiresIn
	if lifetime <= 0 {
		lifetime = DefaultTokenLifetime
	}
	expiresAt := manager.now().Add(lifetime)
	if err := manager.credentials.ReplaceCredential(ctx, grant.AccessToken, refreshToken, expiresAt); err != nil {
		return store.Credential{}, fmt.Errorf("whoop.token.store: %w", err)
	}
	return store.Credential{
		AccessToken:  grant.AccessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}
