package whoop

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeJSON(t *testing.T, raw string) any {
	t.Helper()
	var decoded any
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	return decoded
}

func TestKilojoulesToKilocalories(t *testing.T) {
	assert.Equal(t, 239, kilojoulesToKilocalories(1000))
	assert.Equal(t, 0, kilojoulesToKilocalories(0))
	assert.Equal(t, 2390, kilojoulesToKilocalories(10000))
}

func TestDateKey(t *testing.T) {
	testCases := []struct {
		name   string
		record map[string]any
		key    string
		found  bool
	}{
		{name: "end", record: map[string]any{"end": "2024-03-01T23:00:00Z"}, key: "2024-03-01", found: true},
		{name: "end wins over date", record: map[string]any{"end": "2024-03-02T01:00:00Z", "date": "2024-03-01"}, key: "2024-03-02", found: true},
		{name: "falls through unusable end", record: map[string]any{"end": nil, "timestamp": "2024-02-29T08:00:00.000Z"}, key: "2024-02-29", found: true},
		{name: "legacy cycle_end", record: map[string]any{"cycle_end": "2024-01-15"}, key: "2024-01-15", found: true},
		{name: "too short", record: map[string]any{"end": "2024-03"}, found: false},
		{name: "not a date", record: map[string]any{"end": "yesterday at noon"}, found: false},
		{name: "missing", record: map[string]any{"id": 7}, found: false},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			key, found := dateKey(testCase.record, cycleDateFields)
			assert.Equal(t, testCase.found, found)
			assert.Equal(t, testCase.key, key)
		})
	}
}

func TestNormalizeRecordsShapes(t *testing.T) {
	testCases := []struct {
		name  string
		body  string
		count int
	}{
		{name: "bare array", body: `[{"id":1},{"id":2}]`, count: 2},
		{name: "records container", body: `{"records":[{"id":1},{"id":2},{"id":3}],"next_token":null}`, count: 3},
		{name: "data container", body: `{"data":[{"id":1}]}`, count: 1},
		{name: "single object", body: `{"id":1,"end":"2024-03-01T00:00:00Z"}`, count: 1},
		{name: "non-object items dropped", body: `[{"id":1},"junk",3]`, count: 1},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Len(t, normalizeRecords(decodeJSON(t, testCase.body)), testCase.count)
		})
	}
	assert.Empty(t, normalizeRecords(nil))
}

func TestFirstNumberPrefersPrimaryPath(t *testing.T) {
	record := decodeJSON(t, `{"score":{"recovery_score":71},"recovery_score":12}`).(map[string]any)
	value, ok := firstNumber(record, recoveryScoreRule)
	require.True(t, ok)
	assert.Equal(t, 71.0, value)

	legacy := decodeJSON(t, `{"recovery_score":12}`).(map[string]any)
	value, ok = firstNumber(legacy, recoveryScoreRule)
	require.True(t, ok)
	assert.Equal(t, 12.0, value)

	zero := decodeJSON(t, `{"score":{"strain":0},"strain":14.2}`).(map[string]any)
	value, ok = firstNumber(zero, strainRule)
	require.True(t, ok)
	assert.Equal(t, 0.0, value)

	_, ok = firstNumber(decodeJSON(t, `{"score":{"strain":"high"}}`).(map[string]any), strainRule)
	assert.False(t, ok)
}

func TestSleepScoreSkipsObjectValuedScore(t *testing.T) {
	nested := decodeJSON(t, `{"score":{"sleep_performance_percentage":88}}`).(map[string]any)
	value, ok := firstNumber(nested, sleepScoreRule)
	require.True(t, ok)
	assert.Equal(t, 88.0, value)

	flat := decodeJSON(t, `{"score":64}`).(map[string]any)
	value, ok = firstNumber(flat, sleepScoreRule)
	require.True(t, ok)
	assert.Equal(t, 64.0, value)
}

func TestProjectDailyRecord(t *testing.T) {
	cycle := decodeJSON(t, `{
		"end": "2024-03-01T23:00:00Z",
		"score": {"strain": 12.4, "kilojoule": 1000, "recovery_score": 66.6, "hrv_rmssd_milli": 48.2, "resting_heart_rate": 52}
	}`).(map[string]any)
	sleep := decodeJSON(t, `{
		"end": "2024-03-01T07:00:00Z",
		"score": {"sleep_performance_percentage": 91, "duration": 27000, "sleep_debt": 35}
	}`).(map[string]any)

	record := projectDailyRecord("2024-03-01", cycle, sleep)
	assert.Equal(t, "2024-03-01", record.Date)
	require.NotNil(t, record.Calories)
	assert.Equal(t, 239, *record.Calories)
	require.NotNil(t, record.Strain)
	assert.InDelta(t, 12.4, *record.Strain, 1e-9)
	require.NotNil(t, record.RecoveryScore)
	assert.Equal(t, 67, *record.RecoveryScore)
	require.NotNil(t, record.HRV)
	assert.Equal(t, 48, *record.HRV)
	require.NotNil(t, record.RestingHR)
	assert.Equal(t, 52, *record.RestingHR)
	require.NotNil(t, record.SleepScore)
	assert.Equal(t, 91, *record.SleepScore)
	require.NotNil(t, record.SleepHours)
	assert.InDelta(t, 7.5, *record.SleepHours, 1e-9)
	require.NotNil(t, record.SleepDebt)
	assert.Equal(t, 35, *record.SleepDebt)
}

func TestProjectDailyRecordLegacyFieldsAndMissingSleep(t *testing.T) {
	cycle := decodeJSON(t, `{"date":"2023-11-05","strain":9.1,"calories":2100,"recovery_score":40,"hrv":55,"resting_hr":58}`).(map[string]any)

	record := projectDailyRecord("2023-11-05", cycle, nil)
	require.NotNil(t, record.Calories)
	assert.Equal(t, 2100, *record.Calories)
	require.NotNil(t, record.Strain)
	assert.InDelta(t, 9.1, *record.Strain, 1e-9)
	require.NotNil(t, record.RecoveryScore)
	assert.Equal(t, 40, *record.RecoveryScore)
	assert.Nil(t, record.SleepScore)
	assert.Nil(t, record.SleepHours)
	assert.Nil(t, record.SleepDebt)
}
