package store

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	postgresMaxOpenConns    = 8
	postgresMaxIdleConns    = 1
	postgresMaxConnLifetime = 30 * time.Minute
	postgresMaxConnIdleTime = 5 * time.Minute
)

// openPostgres parses the URL with pgx and hands GORM a bounded connection pool.
// Nothing connects until the first query.
func openPostgres(databaseURL string) (gorm.Dialector, error) {
	connConfig, err := pgx.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("store.postgres.parse: %w", err)
	}
	sqlDB := stdlib.OpenDB(*connConfig)
	sqlDB.SetMaxOpenConns(postgresMaxOpenConns)
	sqlDB.SetMaxIdleConns(postgresMaxIdleConns)
	sqlDB.SetConnMaxLifetime(postgresMaxConnLifetime)
	sqlDB.SetConnMaxIdleTime(postgresMaxConnIdleTime)
	return postgres.New(postgres.Config{Conn: sqlDB}), nil
}
