package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps the Whoop credential, settings, and daily records in memory.
// Intended for tests and local dev.
type MemoryStore struct {
	mutex       sync.Mutex
	credentials []Credential
	settings    map[string]string
	daily       map[string]DailyRecord
	sequenceID  uint

	replaceCalls int
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		settings: make(map[string]string),
		daily:    make(map[string]DailyRecord),
	}
}

// LatestCredential returns the last stored credential, or nil when none exists.
func (store *MemoryStore) LatestCredential(ctx context.Context) (*Credential, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	if len(store.credentials) == 0 {
		return nil, nil
	}
	latest := store.credentials[len(store.credentials)-1]
	return &latest, nil
}

// ReplaceCredential drops every stored credential and keeps only the new one.
func (store *MemoryStore) ReplaceCredential(ctx context.Context, accessToken string, refreshToken string, expiresAt time.Time) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	store.sequenceID++
	store.replaceCalls++
	store.credentials = []Credential{{
		ID:           store.sequenceID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt.UTC(),
		CreatedAt:    time.Now().UTC(),
	}}
	return nil
}

// CredentialCount reports how many credentials are stored.
func (store *MemoryStore) CredentialCount() int {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	return len(store.credentials)
}

// ReplaceCalls reports how many times ReplaceCredential ran.
func (store *MemoryStore) ReplaceCalls() int {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	return store.replaceCalls
}

func (store *MemoryStore) Setting(ctx context.Context, key string) (string, bool, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	value, ok := store.settings[key]
	return value, ok, nil
}

func (store *MemoryStore) SetSetting(ctx context.Context, key string, value string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("store.set_setting.memory: %w", ErrEmptySettingKey)
	}
	store.mutex.Lock()
	defer store.mutex.Unlock()
	store.settings[key] = value
	return nil
}

// UpsertDailyRecord overwrites the record stored under the same date.
func (store *MemoryStore) UpsertDailyRecord(ctx context.Context, record DailyRecord) error {
	if strings.TrimSpace(record.Date) == "" {
		return fmt.Errorf("store.upsert_daily_record.memory: %w", ErrEmptyRecordDate)
	}
	store.mutex.Lock()
	defer store.mutex.Unlock()
	if existing, ok := store.daily[record.Date]; ok {
		record.ID = existing.ID
		record.CreatedAt = existing.CreatedAt
	} else {
		store.sequenceID++
		record.ID = store.sequenceID
		record.CreatedAt = time.Now().UTC()
	}
	store.daily[record.Date] = record
	return nil
}

// DailyRecords lists records with start <= date <= end, newest first.
func (store *MemoryStore) DailyRecords(ctx context.Context, startDate string, endDate string) ([]DailyRecord, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	records := make([]DailyRecord, 0, len(store.daily))
	for date, record := range store.daily {
		if date >= startDate && date <= endDate {
			records = append(records, record)
		}
	}
	sort.Slice(records, func(left, right int) bool {
		return records[left].Date > records[right].Date
	})
	return records, nil
}
