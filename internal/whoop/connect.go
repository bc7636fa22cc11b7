package whoop

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// StateSettingKey is the settings key holding the pending authorization nonce.
const StateSettingKey = "whoop_oauth_state"

const stateBytes = 16

// SettingStore is the key/value persistence for the authorization nonce.
type SettingStore interface {
	Setting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key string, value string) error
}

// Connector runs the authorization code flow and stores the resulting credential.
type Connector struct {
	config     Config
	authorizer Authorizer
	exchanger  TokenExchanger
	settings   SettingStore
	tokens     *TokenManager
	logger     *zap.Logger
}

// NewConnector wires a Connector. Credentials are written through tokens.
func NewConnector(config Config, authorizer Authorizer, exchanger TokenExchanger, settings SettingStore, tokens *TokenManager, logger *zap.Logger) *Connector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Connector{
		config:     config,
		authorizer: authorizer,
		exchanger:  exchanger,
		settings:   settings,
		tokens:     tokens,
		logger:     logger,
	}
}

// AuthorizationURL persists a fresh nonce and returns the consent URL carrying it.
func (connector *Connector) AuthorizationURL(ctx context.Context) (string, error) {
	if err := connector.config.requireAuthorize(); err != nil {
		return "", err
	}
	state, stateErr := newState()
	if stateErr != nil {
		return "", fmt.Errorf("whoop.connect.state: %w", stateErr)
	}
	if err := connector.settings.SetSetting(ctx, StateSettingKey, state); err != nil {
		return "", fmt.Errorf("whoop.connect.persist_state: %w", err)
	}
	return connector.authorizer.AuthorizationURL(state), nil
}

// Complete validates the callback state and exchanges the code for the initial credential.
// A persisted nonce must match state exactly; the nonce is left in place.
func (connector *Connector) Complete(ctx context.Context, code string, state string) error {
	if strings.TrimSpace(code) == "" {
		return ErrMissingCode
	}
	expected, found, err := connector.settings.Setting(ctx, StateSettingKey)
	if err != nil {
		return fmt.Errorf("whoop.connect.load_state: %w", err)
	}
	if found && expected != "" && subtle.ConstantTimeCompare([]byte(expected), []byte(state)) != 1 {
		connector.logger.Warn("whoop callback state mismatch")
		return ErrInvalidState
	}
	if err := connector.config.requireExchange(); err != nil {
		return err
	}
	grant, exchangeErr := connector.exchanger.ExchangeAuthorizationCode(ctx, code)
	if exchangeErr != nil {
		return exchangeErr
	}
	credential, storeErr := connector.tokens.storeGrant(ctx, grant, "")
	if storeErr != nil {
		return storeErr
	}
	connector.logger.Info("whoop connected", zap.Time("expires_at", credential.ExpiresAt))
	return nil
}

func newState() (string, error) {
	buffer := make([]byte, stateBytes)
	if _, err := rand.Read(buffer); err != nil {
		return "", err
	}
	return hex.EncodeToString(buffer), nil
}
