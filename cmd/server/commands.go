package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/lifecrm/internal/authkit"
	"github.com/tyemirov/lifecrm/internal/whoop"
)

const defaultCommandSyncDays = 2

var errEmptyPassword = errors.New("password must be non-empty")

// newSyncCommand runs one reconciliation pass without starting the server, for external schedulers.
func newSyncCommand() *cobra.Command {
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull recent Whoop cycles and sleep into the database once",
		PreRunE: func(command *cobra.Command, arguments []string) error {
			configuration, err := loadSyncConfig()
			if err != nil {
				return err
			}
			storeConfig(command, configuration)
			return nil
		},
		RunE: runSync,
	}
	syncCmd.Flags().Int("days", defaultCommandSyncDays, "Days to look back (clamped to 1..365)")
	return syncCmd
}

func runSync(command *cobra.Command, arguments []string) error {
	configuration, configErr := configFromContext(command)
	if configErr != nil {
		return configErr
	}
	days, flagErr := command.Flags().GetInt("days")
	if flagErr != nil {
		return flagErr
	}

	logger, loggerErr := zap.NewProduction()
	if loggerErr != nil {
		return loggerErr
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(command.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, appErr := newApplication(ctx, configuration, logger)
	if appErr != nil {
		return appErr
	}
	defer app.close()

	result, syncErr := app.reconciler.SyncRange(ctx, days)
	if syncErr != nil {
		logger.Error("whoop sync failed", zap.String("code", "whoop.sync"), zap.Error(syncErr))
		return syncErr
	}
	_, _ = fmt.Fprintf(command.OutOrStdout(), "upserted %d day(s) from %s to %s\n",
		result.Upserted, whoop.FormatInstant(result.RangeStart), whoop.FormatInstant(result.RangeEnd))
	return nil
}

// newHashPasswordCommand prints a bcrypt hash suitable for LIFECRM_PASSWORD_HASH.
func newHashPasswordCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print the bcrypt hash of a login password",
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			if arguments[0] == "" {
				return errEmptyPassword
			}
			hash, err := authkit.HashPassword(arguments[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(command.OutOrStdout(), hash)
			return nil
		},
	}
}
