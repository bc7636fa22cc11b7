package store

import "errors"

var (
	// ErrUnsupportedDialect indicates that no GORM dialector is available for the scheme.
	ErrUnsupportedDialect = errors.New("store.unsupported_dialect")
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("store.not_found")
	// ErrDuplicate indicates a unique constraint rejected the write.
	ErrDuplicate = errors.New("store.duplicate")
	// ErrEmptySettingKey indicates a setting write without a key.
	ErrEmptySettingKey = errors.New("store.empty_setting_key")
	// ErrEmptyRecordDate indicates a daily record without its date key.
	ErrEmptyRecordDate = errors.New("store.empty_record_date")

	errEmptyDatabaseURL    = errors.New("store.empty_database_url")
	errSQLiteEmptyPath     = errors.New("store.sqlite.empty_path")
	errSQLiteInvalidURL    = errors.New("store.sqlite.invalid_url")
	errUnsupportedNoScheme = errors.New("store.unsupported_no_scheme")
)
