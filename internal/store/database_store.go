package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	sqliteDialector "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// DatabaseStore persists LifeCRM state using GORM.
type DatabaseStore struct {
	db          *gorm.DB
	driverLabel string
	now         func() time.Time
}

// Driver exposes the selected database driver label.
func (store *DatabaseStore) Driver() string {
	return store.driverLabel
}

// Close releases the underlying connection pool.
func (store *DatabaseStore) Close() error {
	sqlDB, err := store.db.DB()
	if err != nil {
		return fmt.Errorf("store.close.%s: %w", store.driverLabel, err)
	}
	return sqlDB.Close()
}

// NewDatabaseStore opens a GORM connection for the URL. Schema creation is left to Migrate.
func NewDatabaseStore(databaseURL string) (*DatabaseStore, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("store.open: %w", errEmptyDatabaseURL)
	}
	dialector, driverLabel, err := resolveDialector(databaseURL)
	if err != nil {
		return nil, err
	}
	gormDB, openErr := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if openErr != nil {
		return nil, fmt.Errorf("store.open.%s: %w", driverLabel, openErr)
	}
	return &DatabaseStore{
		db:          gormDB,
		driverLabel: driverLabel,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

// Migrate creates the schema and seeds default settings and goals.
func (store *DatabaseStore) Migrate(ctx context.Context) error {
	migrateErr := store.db.WithContext(ctx).AutoMigrate(
		&Setting{},
		&Credential{},
		&DailyRecord{},
		&Expense{},
		&FinancialGoal{},
		&Workout{},
		&Exercise{},
		&Cardio{},
		&PersonalRecord{},
		&NutritionEntry{},
		&WeightEntry{},
		&Habit{},
		&HabitLog{},
	)
	if migrateErr != nil {
		return fmt.Errorf("store.migrate.%s: %w", store.driverLabel, migrateErr)
	}
	for key, value := range defaultSettings {
		seed := Setting{Key: key, Value: value, UpdatedAt: store.now()}
		if err := store.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return fmt.Errorf("store.seed_settings.%s: %w", store.driverLabel, err)
		}
	}
	for _, goal := range defaultGoals {
		seed := goal
		if err := store.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return fmt.Errorf("store.seed_goals.%s: %w", store.driverLabel, err)
		}
	}
	return nil
}

// LatestCredential returns the most recent credential, or nil when none is stored.
func (store *DatabaseStore) LatestCredential(ctx context.Context) (*Credential, error) {
	var record Credential
	err := store.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("store.latest_credential.%s: %w", store.driverLabel, err)
	}
	return &record, nil
}

// ReplaceCredential deletes every stored credential and inserts the new one in one transaction.
func (store *DatabaseStore) ReplaceCredential(ctx context.Context, accessToken string, refreshToken string, expiresAt time.Time) error {
	err := store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		if err := transaction.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Credential{}).Error; err != nil {
			return err
		}
		record := Credential{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			ExpiresAt:    expiresAt.UTC(),
			CreatedAt:    store.now(),
		}
		return transaction.Create(&record).Error
	})
	if err != nil {
		return fmt.Errorf("store.replace_credential.%s: %w", store.driverLabel, err)
	}
	return nil
}

// DeleteCredentials removes every stored credential.
func (store *DatabaseStore) DeleteCredentials(ctx context.Context) error {
	if err := store.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Credential{}).Error; err != nil {
		return fmt.Errorf("store.delete_credentials.%s: %w", store.driverLabel, err)
	}
	return nil
}

// Setting returns the stored value and whether the key exists.
func (store *DatabaseStore) Setting(ctx context.Context, key string) (string, bool, error) {
	var record Setting
	err := store.db.WithContext(ctx).Where("key = ?", key).Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("store.setting.%s: %w", store.driverLabel, err)
	}
	return record.Value, true, nil
}

// SetSetting inserts or overwrites a setting.
func (store *DatabaseStore) SetSetting(ctx context.Context, key string, value string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("store.set_setting.%s: %w", store.driverLabel, ErrEmptySettingKey)
	}
	record := Setting{Key: key, Value: value, UpdatedAt: store.now()}
	err := store.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("store.set_setting.%s: %w", store.driverLabel, err)
	}
	return nil
}

// AllSettings returns every setting as a map.
func (store *DatabaseStore) AllSettings(ctx context.Context) (map[string]string, error) {
	var records []Setting
	if err := store.db.WithContext(ctx).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("store.all_settings.%s: %w", store.driverLabel, err)
	}
	settings := make(map[string]string, len(records))
	for _, record := range records {
		settings[record.Key] = record.Value
	}
	return settings, nil
}

// UpsertDailyRecord inserts the record or overwrites every metric of the row with the same date.
func (store *DatabaseStore) UpsertDailyRecord(ctx context.Context, record DailyRecord) error {
	if strings.TrimSpace(record.Date) == "" {
		return fmt.Errorf("store.upsert_daily_record.%s: %w", store.driverLabel, ErrEmptyRecordDate)
	}
	record.ID = 0
	record.CreatedAt = store.now()
	err := store.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoUpdates: clause.AssignmentColumns(dailyRecordColumns),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("store.upsert_daily_record.%s: %w", store.driverLabel, err)
	}
	return nil
}

// DailyRecords lists records with start <= date <= end, newest first.
func (store *DatabaseStore) DailyRecords(ctx context.Context, startDate string, endDate string) ([]DailyRecord, error) {
	records := make([]DailyRecord, 0)
	err := store.db.WithContext(ctx).
		Where("date >= ? AND date <= ?", startDate, endDate).
		Order("date DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("store.daily_records.%s: %w", store.driverLabel, err)
	}
	return records, nil
}

func resolveDialector(databaseURL string) (gorm.Dialector, string, error) {
	parsed, err := url.Parse(databaseURL)
	if err != nil {
		return nil, "", fmt.Errorf("store.parse_url: %w", err)
	}
	if parsed.Scheme == "" {
		return nil, "", fmt.Errorf("store.dialect: %w", errUnsupportedNoScheme)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "postgres", "postgresql":
		dialector, pgErr := openPostgres(databaseURL)
		if pgErr != nil {
			return nil, "", pgErr
		}
		return dialector, "postgres", nil
	case "sqlite", "sqlite3":
		dsn, dsnErr := buildSQLiteDSN(parsed)
		if dsnErr != nil {
			return nil, "", fmt.Errorf("store.sqlite: %w", dsnErr)
		}
		return sqliteDialector.Open(dsn), "sqlite", nil
	default:
		return nil, "", fmt.Errorf("store.dialect.%s: %w", strings.ToLower(parsed.Scheme), ErrUnsupportedDialect)
	}
}

func buildSQLiteDSN(parsed *url.URL) (string, error) {
	if parsed == nil {
		return "", errSQLiteInvalidURL
	}
	var builder strings.Builder
	switch {
	case parsed.Opaque != "":
		builder.WriteString(parsed.Opaque)
	case parsed.Host != "":
		builder.WriteString(parsed.Host)
		if parsed.Path != "" {
			if !strings.HasPrefix(parsed.Path, "/") {
				builder.WriteString("/")
			}
			builder.WriteString(parsed.Path)
		}
	default:
		builder.WriteString(parsed.Path)
	}
	if builder.Len() == 0 {
		return "", errSQLiteEmptyPath
	}
	if parsed.RawQuery != "" {
		builder.WriteString("?")
		builder.WriteString(parsed.RawQuery)
	}
	return builder.String(), nil
}
