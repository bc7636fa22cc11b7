package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const isoDateLayout = "2006-01-02"

func (store *DatabaseStore) wrap(operation string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("store.%s.%s: %w", operation, store.driverLabel, ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("store.%s.%s: %w", operation, store.driverLabel, ErrDuplicate)
	default:
		return fmt.Errorf("store.%s.%s: %w", operation, store.driverLabel, err)
	}
}

func (store *DatabaseStore) listBetween(ctx context.Context, operation string, destination any, startDate string, endDate string, orders ...string) error {
	query := store.db.WithContext(ctx).Where("date >= ? AND date <= ?", startDate, endDate)
	for _, order := range orders {
		query = query.Order(order)
	}
	return store.wrap(operation, query.Find(destination).Error)
}

func (store *DatabaseStore) Expenses(ctx context.Context, startDate string, endDate string) ([]Expense, error) {
	rows := make([]Expense, 0)
	if err := store.listBetween(ctx, "expenses", &rows, startDate, endDate, "date DESC"); err != nil {
		return nil, err
	}
	return rows, nil
}

func (store *DatabaseStore) CreateExpense(ctx context.Context, expense Expense) (uint, error) {
	expense.ID = 0
	expense.CreatedAt = store.now()
	if err := store.db.WithContext(ctx).Create(&expense).Error; err != nil {
		return 0, store.wrap("create_expense", err)
	}
	return expense.ID, nil
}

func (store *DatabaseStore) DeleteExpense(ctx context.Context, id uint) error {
	return store.wrap("delete_expense", store.db.WithContext(ctx).Delete(&Expense{}, id).Error)
}

func (store *DatabaseStore) FinancialGoals(ctx context.Context) ([]FinancialGoal, error) {
	rows := make([]FinancialGoal, 0)
	if err := store.db.WithContext(ctx).Order("amount ASC").Find(&rows).Error; err != nil {
		return nil, store.wrap("financial_goals", err)
	}
	return rows, nil
}

// CreateFinancialGoal fails with ErrDuplicate when a goal with the same amount exists.
func (store *DatabaseStore) CreateFinancialGoal(ctx context.Context, amount int, label *string) (uint, error) {
	goal := FinancialGoal{Amount: amount, Label: label, CreatedAt: store.now()}
	if err := store.db.WithContext(ctx).Create(&goal).Error; err != nil {
		return 0, store.wrap("create_financial_goal", err)
	}
	return goal.ID, nil
}

func (store *DatabaseStore) AchieveGoal(ctx context.Context, id uint) error {
	achievedAt := store.now()
	result := store.db.WithContext(ctx).Model(&FinancialGoal{}).Where("id = ?", id).
		Updates(map[string]any{"achieved": true, "achieved_at": achievedAt})
	return store.wrap("achieve_goal", result.Error)
}

func (store *DatabaseStore) DeleteFinancialGoal(ctx context.Context, id uint) error {
	return store.wrap("delete_financial_goal", store.db.WithContext(ctx).Delete(&FinancialGoal{}, id).Error)
}

// CleanupDuplicateGoals keeps the newest goal per amount and reports how many rows were removed.
func (store *DatabaseStore) CleanupDuplicateGoals(ctx context.Context) (int64, error) {
	keep := store.db.Model(&FinancialGoal{}).Select("MAX(id)").Group("amount")
	result := store.db.WithContext(ctx).Where("id NOT IN (?)", keep).Delete(&FinancialGoal{})
	if result.Error != nil {
		return 0, store.wrap("cleanup_goals", result.Error)
	}
	return result.RowsAffected, nil
}

func (store *DatabaseStore) Workouts(ctx context.Context, startDate string, endDate string) ([]Workout, error) {
	rows := make([]Workout, 0)
	if err := store.listBetween(ctx, "workouts", &rows, startDate, endDate, "date DESC"); err != nil {
		return nil, err
	}
	return rows, nil
}

// Workout loads one workout with its exercises in insertion order.
func (store *DatabaseStore) Workout(ctx context.Context, id uint) (*Workout, error) {
	var workout Workout
	err := store.db.WithContext(ctx).
		Preload("Exercises", func(query *gorm.DB) *gorm.DB { return query.Order("id") }).
		Take(&workout, id).Error
	if err != nil {
		return nil, store.wrap("workout", err)
	}
	return &workout, nil
}

// CreateWorkout inserts the workout and its exercises atomically.
func (store *DatabaseStore) CreateWorkout(ctx context.Context, workout Workout) (uint, error) {
	exercises := workout.Exercises
	workout.ID = 0
	workout.Exercises = nil
	workout.CreatedAt = store.now()
	err := store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		if err := transaction.Create(&workout).Error; err != nil {
			return err
		}
		for index := range exercises {
			exercise := exercises[index]
			exercise.ID = 0
			exercise.WorkoutID = workout.ID
			if err := transaction.Create(&exercise).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, store.wrap("create_workout", err)
	}
	return workout.ID, nil
}

func (store *DatabaseStore) Cardio(ctx context.Context, startDate string, endDate string) ([]Cardio, error) {
	rows := make([]Cardio, 0)
	if err := store.listBetween(ctx, "cardio", &rows, startDate, endDate, "date DESC"); err != nil {
		return nil, err
	}
	return rows, nil
}

func (store *DatabaseStore) CreateCardio(ctx context.Context, cardio Cardio) (uint, error) {
	cardio.ID = 0
	cardio.CreatedAt = store.now()
	if err := store.db.WithContext(ctx).Create(&cardio).Error; err != nil {
		return 0, store.wrap("create_cardio", err)
	}
	return cardio.ID, nil
}

// PersonalRecords returns the 20 most recent PRs.
func (store *DatabaseStore) PersonalRecords(ctx context.Context) ([]PersonalRecord, error) {
	rows := make([]PersonalRecord, 0)
	if err := store.db.WithContext(ctx).Order("date DESC").Limit(20).Find(&rows).Error; err != nil {
		return nil, store.wrap("prs", err)
	}
	return rows, nil
}

func (store *DatabaseStore) CreatePersonalRecord(ctx context.Context, record PersonalRecord) (uint, error) {
	record.ID = 0
	record.CreatedAt = store.now()
	if err := store.db.WithContext(ctx).Create(&record).Error; err != nil {
		return 0, store.wrap("create_pr", err)
	}
	return record.ID, nil
}

func (store *DatabaseStore) Nutrition(ctx context.Context, startDate string, endDate string) ([]NutritionEntry, error) {
	rows := make([]NutritionEntry, 0)
	if err := store.listBetween(ctx, "nutrition", &rows, startDate, endDate, "date DESC", "created_at DESC"); err != nil {
		return nil, err
	}
	return rows, nil
}

func (store *DatabaseStore) CreateNutrition(ctx context.Context, entry NutritionEntry) (uint, error) {
	entry.ID = 0
	entry.CreatedAt = store.now()
	if err := store.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return 0, store.wrap("create_nutrition", err)
	}
	return entry.ID, nil
}

func (store *DatabaseStore) DeleteNutrition(ctx context.Context, id uint) error {
	return store.wrap("delete_nutrition", store.db.WithContext(ctx).Delete(&NutritionEntry{}, id).Error)
}

func (store *DatabaseStore) Weights(ctx context.Context, startDate string, endDate string) ([]WeightEntry, error) {
	rows := make([]WeightEntry, 0)
	if err := store.listBetween(ctx, "weight", &rows, startDate, endDate, "date DESC"); err != nil {
		return nil, err
	}
	return rows, nil
}

// UpsertWeight records the weight for a date, overwriting an existing entry.
func (store *DatabaseStore) UpsertWeight(ctx context.Context, entry WeightEntry) (uint, error) {
	entry.ID = 0
	entry.CreatedAt = store.now()
	err := store.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"weight", "waist", "notes"}),
	}).Create(&entry).Error
	if err != nil {
		return 0, store.wrap("upsert_weight", err)
	}
	var stored WeightEntry
	if err := store.db.WithContext(ctx).Where("date = ?", entry.Date).Take(&stored).Error; err != nil {
		return 0, store.wrap("upsert_weight", err)
	}
	return stored.ID, nil
}

// Habits lists active habits in creation order.
func (store *DatabaseStore) Habits(ctx context.Context) ([]Habit, error) {
	rows := make([]Habit, 0)
	if err := store.db.WithContext(ctx).Where("active = ?", true).Order("created_at").Find(&rows).Error; err != nil {
		return nil, store.wrap("habits", err)
	}
	return rows, nil
}

func (store *DatabaseStore) CreateHabit(ctx context.Context, name string, description *string) (uint, error) {
	habit := Habit{Name: name, Description: description, Active: true, CreatedAt: store.now()}
	if err := store.db.WithContext(ctx).Create(&habit).Error; err != nil {
		return 0, store.wrap("create_habit", err)
	}
	return habit.ID, nil
}

func (store *DatabaseStore) HabitLogs(ctx context.Context, date string) ([]HabitLogView, error) {
	rows := make([]HabitLogView, 0)
	err := store.db.WithContext(ctx).Table("habit_logs").
		Select("habit_logs.id, habit_logs.habit_id, habit_logs.date, habit_logs.completed, habit_logs.notes, habits.name, habits.description").
		Joins("JOIN habits ON habits.id = habit_logs.habit_id").
		Where("habit_logs.date = ?", date).
		Order("habits.created_at").
		Scan(&rows).Error
	if err != nil {
		return nil, store.wrap("habit_logs", err)
	}
	return rows, nil
}

// LogHabit marks a habit for a date, overwriting the completion flag on repeat.
func (store *DatabaseStore) LogHabit(ctx context.Context, habitID uint, date string, completed bool) error {
	entry := HabitLog{HabitID: habitID, Date: date, Completed: completed}
	err := store.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "habit_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"completed"}),
	}).Create(&entry).Error
	return store.wrap("log_habit", err)
}

// DashboardStats aggregates the last seven days of spending and training plus today's intake.
func (store *DatabaseStore) DashboardStats(ctx context.Context) (DashboardStats, error) {
	now := store.now()
	today := now.Format(isoDateLayout)
	weekStart := now.Add(-7 * 24 * time.Hour).Format(isoDateLayout)
	database := store.db.WithContext(ctx)

	var stats DashboardStats
	if err := database.Model(&Expense{}).Where("date >= ?", weekStart).Select("COALESCE(SUM(amount), 0)").Scan(&stats.ExpensesWeek).Error; err != nil {
		return DashboardStats{}, store.wrap("dashboard.expenses", err)
	}

	var lastWeight WeightEntry
	weightErr := database.Order("date DESC").Take(&lastWeight).Error
	switch {
	case weightErr == nil:
		stats.WeightCurrent = lastWeight.Weight
	case !errors.Is(weightErr, gorm.ErrRecordNotFound):
		return DashboardStats{}, store.wrap("dashboard.weight", weightErr)
	}

	var caloriesTotal int64
	if err := database.Model(&NutritionEntry{}).Where("date = ?", today).Select("COALESCE(SUM(calories), 0)").Scan(&caloriesTotal).Error; err != nil {
		return DashboardStats{}, store.wrap("dashboard.nutrition", err)
	}
	stats.CaloriesToday = int(caloriesTotal)

	var latestWhoop DailyRecord
	whoopErr := database.Order("date DESC").Take(&latestWhoop).Error
	switch {
	case whoopErr == nil:
		stats.WhoopRecovery = latestWhoop.RecoveryScore
		stats.WhoopStrain = latestWhoop.Strain
	case !errors.Is(whoopErr, gorm.ErrRecordNotFound):
		return DashboardStats{}, store.wrap("dashboard.whoop", whoopErr)
	}

	var workoutCount int64
	if err := database.Model(&Workout{}).Where("date >= ?", weekStart).Count(&workoutCount).Error; err != nil {
		return DashboardStats{}, store.wrap("dashboard.workouts", err)
	}
	stats.WorkoutsWeek = int(workoutCount)
	return stats, nil
}
