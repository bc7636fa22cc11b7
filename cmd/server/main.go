package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/tyemirov/lifecrm/internal/authkit"
	"github.com/tyemirov/lifecrm/internal/whoop"
)

var serveHTTP = func(server *http.Server) error {
	return server.ListenAndServe()
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "lifecrm",
		Short:             "Single-user life tracker with Whoop sync, finance, training, nutrition, and habits",
		SilenceUsage:      true,
		PersistentPreRunE: loadEnvironment,
		PreRunE:           prepareServerConfig,
		RunE:              runServer,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("listen_addr", ":8080", "HTTP listen address")
	flags.String("database_url", "sqlite://lifecrm.db", "Database URL (sqlite:// or postgres://)")
	flags.String("password_hash", "", "bcrypt hash of the login password")
	flags.String("session_signing_key", "", "HS256 signing secret for the session cookie")
	flags.Duration("session_ttl", authkit.DefaultSessionTTL, "Session cookie lifetime")
	flags.String("cookie_domain", "", "Cookie domain; empty for host-only")
	flags.Bool("dev_insecure_http", false, "Allow login over plain HTTP for local dev")
	flags.String("cron_secret", "", "Shared secret for the scheduled sync trigger; empty disables it")
	flags.String("whoop_client_id", "", "Whoop OAuth client id")
	flags.String("whoop_client_secret", "", "Whoop OAuth client secret")
	flags.String("whoop_redirect_uri", "", "Whoop OAuth redirect URI")
	flags.String("whoop_auth_url", whoop.DefaultAuthURL, "Whoop authorization endpoint")
	flags.String("whoop_token_url", whoop.DefaultTokenURL, "Whoop token endpoint")
	flags.String("whoop_api_base", whoop.DefaultAPIBaseURL, "Whoop developer API base URL")
	flags.Duration("whoop_request_timeout", whoop.DefaultRequestTimeout, "Per-call timeout for Whoop requests")
	flags.Bool("enable_cors", false, "Enable CORS for cross-origin clients (switches the cookie to SameSite=None)")
	flags.StringSlice("cors_allowed_origins", []string{}, "Allowed origins when CORS is enabled")
	flags.String("sentry_dsn", "", "Sentry DSN; empty disables error reporting")
	flags.String("environment", "production", "Environment name reported to Sentry")

	for _, key := range configKeys {
		_ = viper.BindPFlag(key, flags.Lookup(key))
	}

	viper.SetEnvPrefix("LIFECRM")
	viper.AutomaticEnv()

	rootCmd.AddCommand(newSyncCommand(), newHashPasswordCommand())
	return rootCmd
}

var configKeys = []string{
	"listen_addr",
	"database_url",
	"password_hash",
	"session_signing_key",
	"session_ttl",
	"cookie_domain",
	"dev_insecure_http",
	"cron_secret",
	"whoop_client_id",
	"whoop_client_secret",
	"whoop_redirect_uri",
	"whoop_auth_url",
	"whoop_token_url",
	"whoop_api_base",
	"whoop_request_timeout",
	"enable_cors",
	"cors_allowed_origins",
	"sentry_dsn",
	"environment",
}

const (
	configCodeMissingDatabaseURL      = "config.missing_database_url"
	configCodeMissingPasswordHash     = "config.missing_password_hash"
	configCodeInvalidPasswordHash     = "config.invalid_password_hash"
	configCodeMissingSigningKey       = "config.missing_session_signing_key"
	configCodeInvalidSessionTTL       = "config.invalid_session_ttl"
	configCodeInvalidWhoopTimeout     = "config.invalid_whoop_request_timeout"
	configCodeMissingCORSOrigins      = "config.missing_cors_allowed_origins"
	configCodeUninitializedServerConf = "config.uninitialized_server_config"
	configCodeDotEnv                  = "config.dotenv"
)

type contextKey string

const serverConfigContextKey contextKey = "serverConfig"

// appConfig is everything the serve and sync commands read from flags and the environment.
type appConfig struct {
	ListenAddr   string
	DatabaseURL  string
	PasswordHash string
	Auth         authkit.ServerConfig
	Whoop        whoop.Config
	EnableCORS   bool
	CORSOrigins  []string
	SentryDSN    string
	Environment  string
}

func loadEnvironment(command *cobra.Command, arguments []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return configError(configCodeDotEnv, err.Error())
	}
	return nil
}

func prepareServerConfig(command *cobra.Command, arguments []string) error {
	serverConfig, loadErr := LoadServerConfig()
	if loadErr != nil {
		return loadErr
	}
	storeConfig(command, serverConfig)
	return nil
}

func storeConfig(command *cobra.Command, configuration appConfig) {
	existingContext := command.Context()
	if existingContext == nil {
		existingContext = context.Background()
	}
	command.SetContext(context.WithValue(existingContext, serverConfigContextKey, configuration))
}

func configFromContext(command *cobra.Command) (appConfig, error) {
	commandContext := command.Context()
	var contextValue any
	if commandContext != nil {
		contextValue = commandContext.Value(serverConfigContextKey)
	}
	configuration, ok := contextValue.(appConfig)
	if !ok {
		return appConfig{}, configError(configCodeUninitializedServerConf, "server configuration not prepared; PreRunE must execute before RunE")
	}
	return configuration, nil
}

func configError(code, message string) error {
	return fmt.Errorf("%s: %s", code, message)
}

// LoadServerConfig reads the full serve configuration, including the login gate.
func LoadServerConfig() (appConfig, error) {
	configuration, err := loadSyncConfig()
	if err != nil {
		return appConfig{}, err
	}

	passwordHash := strings.TrimSpace(viper.GetString("password_hash"))
	if passwordHash == "" {
		return appConfig{}, configError(configCodeMissingPasswordHash, "password_hash must be provided")
	}

	signingKey := viper.GetString("session_signing_key")
	if signingKey == "" {
		return appConfig{}, configError(configCodeMissingSigningKey, "session_signing_key must be provided")
	}

	sessionTTL := viper.GetDuration("session_ttl")
	if sessionTTL <= 0 {
		return appConfig{}, configError(configCodeInvalidSessionTTL, "session_ttl must be greater than zero")
	}

	configuration.EnableCORS = viper.GetBool("enable_cors")
	configuration.CORSOrigins = splitList(viper.GetStringSlice("cors_allowed_origins"))
	if configuration.EnableCORS && len(configuration.CORSOrigins) == 0 {
		return appConfig{}, configError(configCodeMissingCORSOrigins, "cors_allowed_origins must be provided when enable_cors is set")
	}

	sameSite := http.SameSiteLaxMode
	if configuration.EnableCORS {
		sameSite = http.SameSiteNoneMode
	}

	configuration.ListenAddr = viper.GetString("listen_addr")
	configuration.PasswordHash = passwordHash
	configuration.Auth = authkit.ServerConfig{
		SessionSigningKey: []byte(signingKey),
		SessionIssuer:     authkit.DefaultSessionIssuer,
		CookieDomain:      viper.GetString("cookie_domain"),
		SessionCookieName: authkit.DefaultSessionCookieName,
		SessionTTL:        sessionTTL,
		SameSiteMode:      sameSite,
		AllowInsecureHTTP: viper.GetBool("dev_insecure_http"),
		CronSecret:        viper.GetString("cron_secret"),
	}
	return configuration, nil
}

// loadSyncConfig reads what a headless sync pass needs: the database and the Whoop client.
func loadSyncConfig() (appConfig, error) {
	databaseURL := strings.TrimSpace(viper.GetString("database_url"))
	if databaseURL == "" {
		return appConfig{}, configError(configCodeMissingDatabaseURL, "database_url must be provided")
	}

	requestTimeout := viper.GetDuration("whoop_request_timeout")
	if requestTimeout < 0 {
		return appConfig{}, configError(configCodeInvalidWhoopTimeout, "whoop_request_timeout must not be negative")
	}

	return appConfig{
		DatabaseURL: databaseURL,
		Whoop: whoop.Config{
			ClientID:       viper.GetString("whoop_client_id"),
			ClientSecret:   viper.GetString("whoop_client_secret"),
			RedirectURI:    viper.GetString("whoop_redirect_uri"),
			AuthURL:        viper.GetString("whoop_auth_url"),
			TokenURL:       viper.GetString("whoop_token_url"),
			APIBaseURL:     viper.GetString("whoop_api_base"),
			RequestTimeout: requestTimeout,
		},
		SentryDSN:   viper.GetString("sentry_dsn"),
		Environment: viper.GetString("environment"),
	}, nil
}

// splitList accepts both repeated values and a single comma-separated environment value.
func splitList(values []string) []string {
	result := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
	}
	return result
}

func runServer(command *cobra.Command, arguments []string) error {
	serverConfig, configErr := configFromContext(command)
	if configErr != nil {
		return configErr
	}

	logger, loggerErr := zap.NewProduction()
	if loggerErr != nil {
		return loggerErr
	}
	defer func() { _ = logger.Sync() }()

	app, appErr := newApplication(command.Context(), serverConfig, logger)
	if appErr != nil {
		return appErr
	}
	defer app.close()

	router, routerErr := app.router()
	if routerErr != nil {
		return routerErr
	}

	server := &http.Server{
		Addr:              serverConfig.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())
	defer shutdownCancel()

	go func() {
		stopSignals := make(chan os.Signal, 1)
		signal.Notify(stopSignals, syscall.SIGINT, syscall.SIGTERM)
		<-stopSignals
		graceCtx, graceCancel := context.WithTimeout(shutdownCtx, 10*time.Second)
		defer graceCancel()
		if err := server.Shutdown(graceCtx); err != nil {
			logger.Error("server shutdown error", zap.Error(err))
		}
	}()

	logger.Info("listening", zap.String("addr", serverConfig.ListenAddr), zap.String("driver", app.store.Driver()))
	if err := serveHTTP(server); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen error: %w", err)
	}
	return nil
}
