package store

import "time"

// Credential is the single stored Whoop OAuth credential.
type Credential struct {
	ID           uint      `gorm:"column:id;primaryKey" json:"-"`
	AccessToken  string    `gorm:"column:access_token;not null" json:"-"`
	RefreshToken string    `gorm:"column:refresh_token;not null" json:"-"`
	ExpiresAt    time.Time `gorm:"column:expires_at;not null" json:"expires_at"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Credential) TableName() string {
	return "whoop_auth"
}

// DailyRecord is one merged day of Whoop biometrics, keyed by calendar date.
type DailyRecord struct {
	ID            uint      `gorm:"column:id;primaryKey" json:"id"`
	Date          string    `gorm:"column:date;size:10;uniqueIndex;not null" json:"date"`
	SleepScore    *int      `gorm:"column:sleep_score" json:"sleep_score"`
	RecoveryScore *int      `gorm:"column:recovery_score" json:"recovery_score"`
	Strain        *float64  `gorm:"column:strain" json:"strain"`
	HRV           *int      `gorm:"column:hrv" json:"hrv"`
	RestingHR     *int      `gorm:"column:resting_hr" json:"resting_hr"`
	SleepHours    *float64  `gorm:"column:sleep_hours" json:"sleep_hours"`
	SleepDebt     *int      `gorm:"column:sleep_debt" json:"sleep_debt"`
	Calories      *int      `gorm:"column:calories" json:"calories"`
	CreatedAt     time.Time `gorm:"column:created_at" json:"created_at"`
}

func (DailyRecord) TableName() string {
	return "whoop_data"
}

// dailyRecordColumns lists every column overwritten on a date conflict.
var dailyRecordColumns = []string{
	"sleep_score", "recovery_score", "strain", "hrv", "resting_hr",
	"sleep_hours", "sleep_debt", "calories",
}

// Setting is a free-form key/value pair.
type Setting struct {
	ID        uint      `gorm:"column:id;primaryKey"`
	Key       string    `gorm:"column:key;uniqueIndex;not null"`
	Value     string    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}

type Expense struct {
	ID        uint      `gorm:"column:id;primaryKey" json:"id"`
	Amount    float64   `gorm:"column:amount;not null" json:"amount"`
	Category  string    `gorm:"column:category;not null" json:"category"`
	Note      *string   `gorm:"column:note" json:"note"`
	Tags      *string   `gorm:"column:tags" json:"tags"`
	Date      string    `gorm:"column:date;size:10;index;not null" json:"date"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Expense) TableName() string {
	return "expenses"
}

type FinancialGoal struct {
	ID         uint       `gorm:"column:id;primaryKey" json:"id"`
	Amount     int        `gorm:"column:amount;uniqueIndex;not null" json:"amount"`
	Label      *string    `gorm:"column:label" json:"label"`
	Achieved   bool       `gorm:"column:achieved;not null;default:false" json:"achieved"`
	AchievedAt *time.Time `gorm:"column:achieved_at" json:"achieved_at"`
	CreatedAt  time.Time  `gorm:"column:created_at" json:"created_at"`
}

func (FinancialGoal) TableName() string {
	return "financial_goals"
}

type Workout struct {
	ID          uint       `gorm:"column:id;primaryKey" json:"id"`
	Date        string     `gorm:"column:date;size:10;index;not null" json:"date"`
	DurationMin *int       `gorm:"column:duration_min" json:"duration_min"`
	Notes       *string    `gorm:"column:notes" json:"notes"`
	CreatedAt   time.Time  `gorm:"column:created_at" json:"created_at"`
	Exercises   []Exercise `gorm:"foreignKey:WorkoutID;constraint:OnDelete:CASCADE" json:"exercises,omitempty"`
}

func (Workout) TableName() string {
	return "workouts"
}

type Exercise struct {
	ID        uint     `gorm:"column:id;primaryKey" json:"id"`
	WorkoutID uint     `gorm:"column:workout_id;index;not null" json:"workout_id"`
	Name      string   `gorm:"column:name;not null" json:"name"`
	Sets      int      `gorm:"column:sets;not null" json:"sets"`
	Reps      int      `gorm:"column:reps;not null" json:"reps"`
	Weight    *float64 `gorm:"column:weight" json:"weight"`
	RPE       *int     `gorm:"column:rpe" json:"rpe"`
	Notes     *string  `gorm:"column:notes" json:"notes"`
}

func (Exercise) TableName() string {
	return "exercises"
}

type Cardio struct {
	ID          uint      `gorm:"column:id;primaryKey" json:"id"`
	Date        string    `gorm:"column:date;size:10;index;not null" json:"date"`
	Type        string    `gorm:"column:type;not null" json:"type"`
	DurationMin int       `gorm:"column:duration_min;not null" json:"duration_min"`
	Intensity   *string   `gorm:"column:intensity" json:"intensity"`
	Calories    *int      `gorm:"column:calories" json:"calories"`
	Notes       *string   `gorm:"column:notes" json:"notes"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Cardio) TableName() string {
	return "cardio"
}

// PersonalRecord is a lift PR.
type PersonalRecord struct {
	ID           uint      `gorm:"column:id;primaryKey" json:"id"`
	ExerciseName string    `gorm:"column:exercise_name;not null" json:"exercise_name"`
	Weight       float64   `gorm:"column:weight;not null" json:"weight"`
	Reps         int       `gorm:"column:reps;not null" json:"reps"`
	Date         string    `gorm:"column:date;size:10;not null" json:"date"`
	Notes        *string   `gorm:"column:notes" json:"notes"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
}

func (PersonalRecord) TableName() string {
	return "prs"
}

type NutritionEntry struct {
	ID        uint      `gorm:"column:id;primaryKey" json:"id"`
	Date      string    `gorm:"column:date;size:10;index;not null" json:"date"`
	MealName  *string   `gorm:"column:meal_name" json:"meal_name"`
	Calories  int       `gorm:"column:calories;not null" json:"calories"`
	Protein   *float64  `gorm:"column:protein" json:"protein"`
	Carbs     *float64  `gorm:"column:carbs" json:"carbs"`
	Fat       *float64  `gorm:"column:fat" json:"fat"`
	Notes     *string   `gorm:"column:notes" json:"notes"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (NutritionEntry) TableName() string {
	return "nutrition"
}

type WeightEntry struct {
	ID        uint      `gorm:"column:id;primaryKey" json:"id"`
	Date      string    `gorm:"column:date;size:10;uniqueIndex;not null" json:"date"`
	Weight    float64   `gorm:"column:weight;not null" json:"weight"`
	Waist     *float64  `gorm:"column:waist" json:"waist"`
	Notes     *string   `gorm:"column:notes" json:"notes"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (WeightEntry) TableName() string {
	return "weight"
}

type Habit struct {
	ID          uint      `gorm:"column:id;primaryKey" json:"id"`
	Name        string    `gorm:"column:name;not null" json:"name"`
	Description *string   `gorm:"column:description" json:"description"`
	Active      bool      `gorm:"column:active;not null;default:true" json:"active"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Habit) TableName() string {
	return "habits"
}

type HabitLog struct {
	ID        uint    `gorm:"column:id;primaryKey" json:"id"`
	HabitID   uint    `gorm:"column:habit_id;not null;uniqueIndex:idx_habit_logs_habit_date" json:"habit_id"`
	Date      string  `gorm:"column:date;size:10;not null;uniqueIndex:idx_habit_logs_habit_date" json:"date"`
	Completed bool    `gorm:"column:completed;not null;default:false" json:"completed"`
	Notes     *string `gorm:"column:notes" json:"notes"`
	Habit     *Habit  `gorm:"foreignKey:HabitID;constraint:OnDelete:CASCADE" json:"-"`
}

func (HabitLog) TableName() string {
	return "habit_logs"
}

// HabitLogView joins a log row with its habit's name and description.
type HabitLogView struct {
	ID          uint    `json:"id"`
	HabitID     uint    `json:"habit_id"`
	Date        string  `json:"date"`
	Completed   bool    `json:"completed"`
	Notes       *string `json:"notes"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// DashboardStats aggregates the headline numbers shown on the dashboard.
type DashboardStats struct {
	ExpensesWeek  float64  `json:"expenses_week"`
	WeightCurrent float64  `json:"weight_current"`
	CaloriesToday int      `json:"calories_today"`
	WhoopRecovery *int     `json:"whoop_recovery"`
	WhoopStrain   *float64 `json:"whoop_strain"`
	WorkoutsWeek  int      `json:"workouts_week"`
}

var defaultSettings = map[string]string{
	"weekly_budget":  "500",
	"tdee":           "2500",
	"protein_target": "180",
	"carbs_target":   "250",
	"fat_target":     "70",
	"weight_goal":    "80",
	"unit_system":    "metric",
}

var defaultGoals = []FinancialGoal{
	{Amount: 1000, Label: stringPointer("First milestone")},
	{Amount: 2000, Label: stringPointer("Intermediate milestone")},
	{Amount: 5000, Label: stringPointer("5K goal")},
	{Amount: 10000, Label: stringPointer("10K goal")},
}

func stringPointer(value string) *string {
	return &value
}
