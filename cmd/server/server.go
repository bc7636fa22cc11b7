package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tyemirov/lifecrm/internal/authkit"
	"github.com/tyemirov/lifecrm/internal/observability"
	"github.com/tyemirov/lifecrm/internal/store"
	"github.com/tyemirov/lifecrm/internal/web"
	"github.com/tyemirov/lifecrm/internal/whoop"
	"github.com/tyemirov/lifecrm/pkg/sessionvalidator"
)

const metricsNamespace = "lifecrm"

// application holds the long-lived collaborators shared by the serve and sync commands.
type application struct {
	config     appConfig
	logger     *zap.Logger
	store      *store.DatabaseStore
	metrics    *observability.PrometheusMetrics
	tokens     *whoop.TokenManager
	reconciler *whoop.Reconciler
	connector  *whoop.Connector
}

func newApplication(ctx context.Context, configuration appConfig, logger *zap.Logger) (*application, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if sentryErr := observability.InitSentry(configuration.SentryDSN, configuration.Environment); sentryErr != nil {
		logger.Warn("sentry disabled", zap.String("code", "observability.sentry_init"), zap.Error(sentryErr))
	}

	databaseStore, storeErr := store.NewDatabaseStore(configuration.DatabaseURL)
	if storeErr != nil {
		return nil, storeErr
	}
	if migrateErr := databaseStore.Migrate(ctx); migrateErr != nil {
		logger.Error("schema migration failed", zap.String("code", "store.migrate_failed"), zap.Error(migrateErr))
	}

	metrics := observability.NewPrometheusMetrics(metricsNamespace)
	client := whoop.NewClient(configuration.Whoop, nil)
	tokens := whoop.NewTokenManager(configuration.Whoop, databaseStore, client, logger, metrics)

	return &application{
		config:     configuration,
		logger:     logger,
		store:      databaseStore,
		metrics:    metrics,
		tokens:     tokens,
		reconciler: whoop.NewReconciler(tokens, client, databaseStore, logger, metrics),
		connector:  whoop.NewConnector(configuration.Whoop, client, client, databaseStore, tokens, logger),
	}, nil
}

func (app *application) close() {
	observability.FlushSentry()
	if err := app.store.Close(); err != nil {
		app.logger.Warn("store close failed", zap.String("code", "store.close"), zap.Error(err))
	}
}

// router assembles the public and session-protected route groups.
func (app *application) router() (*gin.Engine, error) {
	passwords, passwordErr := authkit.NewBcryptPasswordVerifier(app.config.PasswordHash)
	if passwordErr != nil {
		return nil, configError(configCodeInvalidPasswordHash, passwordErr.Error())
	}
	validator, validatorErr := sessionvalidator.New(sessionvalidator.Config{
		SigningKey: app.config.Auth.SessionSigningKey,
		Issuer:     app.config.Auth.SessionIssuer,
		CookieName: app.config.Auth.SessionCookieName,
	})
	if validatorErr != nil {
		return nil, validatorErr
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(web.Recovery(app.logger))
	router.Use(web.RequestLogger(app.logger))

	if app.config.EnableCORS {
		corsMiddleware, corsErr := web.ConfigureCORS(app.logger, app.config.CORSOrigins)
		if corsErr != nil {
			return nil, corsErr
		}
		router.Use(corsMiddleware)
	}

	router.GET("/metrics", gin.WrapH(app.metrics.Handler()))

	whoopHandlers := web.NewWhoopHandlers(app.tokens, app.connector, app.reconciler, app.store, app.logger)

	public := router.Group("/api")
	public.GET("/health", func(contextGin *gin.Context) {
		contextGin.JSON(http.StatusOK, gin.H{"status": "ok", "ts": time.Now().UTC()})
	})
	authkit.MountAuthRoutes(public, app.config.Auth, passwords, validator, app.logger, app.metrics)
	whoopHandlers.MountCron(public, authkit.RequireCronSecret(app.config.Auth.CronSecret))

	protected := router.Group("/api")
	protected.Use(authkit.RequireSession(validator))
	whoopHandlers.Mount(protected)
	web.NewTrackingHandlers(app.store, app.logger).Mount(protected)
	web.NewDashboardHandlers(app.store, app.logger).Mount(protected)

	return router, nil
}
