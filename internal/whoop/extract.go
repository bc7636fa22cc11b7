package whoop

import (
	"encoding/json"
	"math"
	"time"

	"github.com/tyemirov/lifecrm/internal/store"
)

// KilocaloriesPerKilojoule converts cycle energy to kcal (1 kcal = 4.184 kJ).
const KilocaloriesPerKilojoule = 1 / 4.184

// SleepDurationSecondsPerHour converts raw sleep duration values to hours.
// Every sleep-duration path is read as seconds.
const SleepDurationSecondsPerHour = 3600.0

// containerKeys are the keys a list response may nest its records under, in priority order.
var containerKeys = []string{"records", "data"}

var (
	cycleDateFields = []string{"end", "timestamp", "date", "cycle_end"}
	sleepDateFields = []string{"end", "timestamp", "date", "sleep_start"}
)

// fieldPath addresses a value through nested objects.
type fieldPath []string

// fieldRule lists alternative locations of one value: current schema first, legacy flat fields last.
type fieldRule []fieldPath

var (
	sleepScoreRule = fieldRule{
		{"score", "stage_summary", "score"},
		{"score", "sleep_performance_percentage"},
		{"score", "sleep"},
		{"score"},
		{"sleep_score"},
	}
	recoveryScoreRule = fieldRule{
		{"score", "recovery_score"},
		{"score", "recovery"},
		{"recovery_score"},
	}
	strainRule = fieldRule{
		{"score", "strain"},
		{"strain"},
	}
	hrvRule = fieldRule{
		{"score", "hrv_rmssd_milli"},
		{"hrv"},
	}
	restingHeartRateRule = fieldRule{
		{"score", "resting_heart_rate"},
		{"resting_hr"},
	}
	sleepDurationRule = fieldRule{
		{"score", "duration"},
		{"score", "sleep_hours"},
		{"sleep_hours"},
	}
	sleepDebtRule = fieldRule{
		{"score", "sleep_debt"},
		{"sleep_debt"},
	}
	kilojouleRule = fieldRule{
		{"score", "kilojoule"},
	}
	caloriesRule = fieldRule{
		{"calories"},
	}
)

// normalizeRecords flattens a decoded list response into record objects.
// Arrays are used as is; objects holding an array under a container key yield that
// array; any other object is treated as a single record.
func normalizeRecords(body any) []map[string]any {
	var items []any
	switch typed := body.(type) {
	case []any:
		items = typed
	case map[string]any:
		items = []any{typed}
		for _, key := range containerKeys {
			if nested, ok := typed[key].([]any); ok {
				items = nested
				break
			}
		}
	}
	records := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if record, ok := item.(map[string]any); ok {
			records = append(records, record)
		}
	}
	return records
}

// dateKey returns the YYYY-MM-DD prefix of the first listed field holding a date-like string.
func dateKey(record map[string]any, fields []string) (string, bool) {
	for _, field := range fields {
		text, ok := record[field].(string)
		if !ok || len(text) < 10 {
			continue
		}
		candidate := text[:10]
		if _, err := time.Parse("2006-01-02", candidate); err != nil {
			continue
		}
		return candidate, true
	}
	return "", false
}

func lookup(record map[string]any, path fieldPath) (any, bool) {
	var current any = record
	for _, key := range path {
		object, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = object[key]
		if !ok || current == nil {
			return nil, false
		}
	}
	return current, true
}

func asNumber(value any) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case json.Number:
		parsed, err := typed.Float64()
		return parsed, err == nil
	default:
		return 0, false
	}
}

// firstNumber resolves the first numeric value found along the rule's paths.
func firstNumber(record map[string]any, rule fieldRule) (float64, bool) {
	if record == nil {
		return 0, false
	}
	for _, path := range rule {
		value, found := lookup(record, path)
		if !found {
			continue
		}
		if number, ok := asNumber(value); ok {
			return number, true
		}
	}
	return 0, false
}

func firstInt(record map[string]any, rule fieldRule) *int {
	number, ok := firstNumber(record, rule)
	if !ok {
		return nil
	}
	rounded := int(math.Round(number))
	return &rounded
}

func firstFloat(record map[string]any, rule fieldRule) *float64 {
	number, ok := firstNumber(record, rule)
	if !ok {
		return nil
	}
	return &number
}

// kilojoulesToKilocalories rounds to the nearest whole kcal.
func kilojoulesToKilocalories(kilojoules float64) int {
	return int(math.Round(kilojoules * KilocaloriesPerKilojoule))
}

func sleepDurationToHours(duration float64) float64 {
	return math.Round(duration/SleepDurationSecondsPerHour*100) / 100
}

// projectDailyRecord merges one cycle and its same-day sleep record (which may be nil).
func projectDailyRecord(date string, cycle map[string]any, sleep map[string]any) store.DailyRecord {
	record := store.DailyRecord{
		Date:          date,
		SleepScore:    firstInt(sleep, sleepScoreRule),
		RecoveryScore: firstInt(cycle, recoveryScoreRule),
		Strain:        firstFloat(cycle, strainRule),
		HRV:           firstInt(cycle, hrvRule),
		RestingHR:     firstInt(cycle, restingHeartRateRule),
		SleepDebt:     firstInt(sleep, sleepDebtRule),
	}
	if duration, ok := firstNumber(sleep, sleepDurationRule); ok {
		hours := sleepDurationToHours(duration)
		record.SleepHours = &hours
	}
	if kilojoules, ok := firstNumber(cycle, kilojouleRule); ok {
		calories := kilojoulesToKilocalories(kilojoules)
		record.Calories = &calories
	} else {
		record.Calories = firstInt(cycle, caloriesRule)
	}
	return record
}
