package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tyemirov/lifecrm/internal/store"
)

// TrackingStore is the persistence behind the finance, training, nutrition, weight, and habit routes.
type TrackingStore interface {
	Expenses(ctx context.Context, startDate string, endDate string) ([]store.Expense, error)
	CreateExpense(ctx context.Context, expense store.Expense) (uint, error)
	DeleteExpense(ctx context.Context, id uint) error

	FinancialGoals(ctx context.Context) ([]store.FinancialGoal, error)
	CreateFinancialGoal(ctx context.Context, amount int, label *string) (uint, error)
	AchieveGoal(ctx context.Context, id uint) error
	DeleteFinancialGoal(ctx context.Context, id uint) error
	CleanupDuplicateGoals(ctx context.Context) (int64, error)

	Workouts(ctx context.Context, startDate string, endDate string) ([]store.Workout, error)
	Workout(ctx context.Context, id uint) (*store.Workout, error)
	CreateWorkout(ctx context.Context, workout store.Workout) (uint, error)
	Cardio(ctx context.Context, startDate string, endDate string) ([]store.Cardio, error)
	CreateCardio(ctx context.Context, cardio store.Cardio) (uint, error)
	PersonalRecords(ctx context.Context) ([]store.PersonalRecord, error)
	CreatePersonalRecord(ctx context.Context, record store.PersonalRecord) (uint, error)

	Nutrition(ctx context.Context, startDate string, endDate string) ([]store.NutritionEntry, error)
	CreateNutrition(ctx context.Context, entry store.NutritionEntry) (uint, error)
	DeleteNutrition(ctx context.Context, id uint) error

	Weights(ctx context.Context, startDate string, endDate string) ([]store.WeightEntry, error)
	UpsertWeight(ctx context.Context, entry store.WeightEntry) (uint, error)

	Habits(ctx context.Context) ([]store.Habit, error)
	CreateHabit(ctx context.Context, name string, description *string) (uint, error)
	HabitLogs(ctx context.Context, date string) ([]store.HabitLogView, error)
	LogHabit(ctx context.Context, habitID uint, date string, completed bool) error
}

// TrackingHandlers serves the CRUD routes over a TrackingStore.
type TrackingHandlers struct {
	store  TrackingStore
	logger *zap.Logger
	now    func() time.Time
}

// NewTrackingHandlers constructs TrackingHandlers.
func NewTrackingHandlers(trackingStore TrackingStore, logger *zap.Logger) *TrackingHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrackingHandlers{
		store:  trackingStore,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Mount registers the tracking routes on a session-protected group.
func (handlers *TrackingHandlers) Mount(router gin.IRouter) {
	router.GET("/expenses", handlers.listExpenses)
	router.POST("/expenses", handlers.createExpense)
	router.DELETE("/expenses/:id", handlers.deleteExpense)

	router.GET("/financial-goals", handlers.listGoals)
	router.POST("/financial-goals", handlers.createGoal)
	router.POST("/financial-goals/:id/achieve", handlers.achieveGoal)
	router.DELETE("/financial-goals/:id", handlers.deleteGoal)
	router.POST("/admin/cleanup-goals", handlers.cleanupGoals)

	router.GET("/workouts", handlers.listWorkouts)
	router.GET("/workouts/:id", handlers.getWorkout)
	router.POST("/workouts", handlers.createWorkout)
	router.GET("/cardio", handlers.listCardio)
	router.POST("/cardio", handlers.createCardio)
	router.GET("/prs", handlers.listPersonalRecords)
	router.POST("/prs", handlers.createPersonalRecord)

	router.GET("/nutrition", handlers.listNutrition)
	router.POST("/nutrition", handlers.createNutrition)
	router.DELETE("/nutrition/:id", handlers.deleteNutrition)

	router.GET("/weight", handlers.listWeights)
	router.POST("/weight", handlers.upsertWeight)

	router.GET("/habits", handlers.listHabits)
	router.POST("/habits", handlers.createHabit)
	router.GET("/habits/logs", handlers.listHabitLogs)
	router.POST("/habits/logs", handlers.logHabit)
}

func (handlers *TrackingHandlers) listExpenses(contextGin *gin.Context) {
	start, end := dateWindow(contextGin, handlers.now(), defaultListDays)
	rows, err := handlers.store.Expenses(contextGin.Request.Context(), start, end)
	if err != nil {
		storeFailure(contextGin, handlers.logger, "api.expenses.list", err)
		return
	}
	contextGin.JSON(http.StatusOK, rows)
}

func (handlers *TrackingHandlers) createExpense(contextGin *gin.Context) {
	var inbound struct {
		Amount   float64 `json:"amount" binding:"required"`
		Category string  `json:"category" binding:"required"`
		Note     *string `json:"note"`
		Tags     *string `json:"tags"`
		Date     string  `json:"date" binding:"required,datetime=2006-01-02"`
	}
	if err := contextGin.ShouldBindJSON(&inbound); err != nil {
		badRequest(contextGin, "amount, category, date required")
		return
	}
	id, err := handlers.store.CreateExpense(contextGin.Request.Context(), store.Expense{
		Amount:   inbound.Amount,
		Category: inbound.Category,
		Note:     inbound.Note,
		Tags:     inbound.Tags,
		Date:     inbound.Date,
	})
	if err != nil {
		storeFailure(contextGin, handlers.logger, "api.expenses.create", err)
		return
	}
	contextGin.JSON(http.StatusOK, gin.H{"id": id})
}

func (handlers *TrackingHandlers) deleteExpense(contextGin *gin.Context) {
	id, ok := pathID(contextGin)
	if !ok {
		return
	}
	if err := handlers.store.DeleteExpense(contextGin.Request.Context(), id); err != nil {
		storeFailure(contextGin, handlers.logger, "api.expenses.delete", err)
		return
	}
	contextGin.JSON(http.StatusOK, gin.H{"ok": true})
}

func (handlers *TrackingHandlers) listGoals(contextGin *gin.Context) {
	rows, err := handlers.store.FinancialGoals(contextGin.Request.Context())
	if err != nil {
		storeFailure(contextGin, handlers.logger, "api.financial_goals.list", err)
		return
	}
	contextGin.JSON(http.StatusOK, rows)
}

func (handlers *TrackingHandlers) createGoal(contextGin *gin.Context) {
	var inbound struct {
		Amount int     `json:"amount" binding:"required"`
		Label  *string `json:"label"`
	}
	if err := contextGin.ShouldBindJSON(&inbound); err != nil {
		badRequest(contextGin, "amount required")
		return
	}
	id, err := handlers.store.CreateFinancialGoal(contextGin.Request.Context(), inbound.Amount, inbound.Label)
	if err != nil {
		if isDuplicate(err) {
			badRequest(contextGin, fmt.Sprintf("a goal of %d already exists", inbound.Amount))
			return
		}
		storeFailure(contextGin, handlers.logger, "api.financial_goals.create", err)
		return
	}
	contextGin.JSON(http.StatusOK, gin.H{"id": id})
}

func (handlers *TrackingHandlers) achieveGoal(contextGin *gin.Context) {
	id, ok := pathID(contextGin)
	if !ok {
		return
	}
	if err := handlers.store.AchieveGoal(contextGin.Request.Context(), id); err != nil {
		storeFailure(contextGin, handlers.logger, "api.financial_goals.achieve", err)
		return
	}
	contextGin.JSON(http.StatusOK, gin.H{"ok": true})
}

func (handlers *TrackingHandlers) deleteGoal(contextGin *gin.Context) {
	id, ok := pathID(contextGin)
	if !ok {
		return
	}
	if err := handlers.store.DeleteFinancialGoal(contextGin.Request.Context(), id); err != nil {
		storeFailure(contextGin, handlers.logger, "api.financial_goals.delete", err)
		return
	}
	contextGin.JSON(http.StatusOK, gin.H{"ok": true})
}

func (handlers *TrackingHandlers) cleanupGoals(contextGin *gin.Context) {
	deleted, err := handlers.store.CleanupDuplicateGoals(contextGin.Request.Context())
	if err != nil {
		storeFailure(contextGin, handlers.logger, "api.admin.cleanup_goals", err)
		return
	}
	contextGin.JSON(http.StatusOK, gin.H{"ok": true, "deleted": deleted})
}

func (handlers *TrackingHandlers) listWorkouts(contextGin *gin.Context) {
	start, end := dateWindow(contextGin, handlers.now(), defaultListDays)
	rows, err := handlers.store.Workouts(contextGin.Request.Context(), start, end)
	if err != nil {
		storeFailure(contextGin, handlers.logger, "api.workouts.list", err)
		return
	}
	contextGin.JSON(http.StatusOK, rows)
}

func (handlers *TrackingHandlers) getWorkout(contextGin *gin.Context) {
	id, ok := pathID(contextGin)
	if !ok {
		return
	}
	workout, err := handlers.store.Workout(contextGin.Request.Context(), id)
	if err != nil {
		storeFailure(contextGin, handlers.logger, "api.workouts.get", err)
		return
	}
	contextGin.JSON(http.StatusOK, workout)
}

type exercisePayload struct {
	Name   string   `json:"name" binding:"required"`
	Sets   int      `json:"sets"`
	Reps   int      `json:"reps"`
	Weight *float64 `json:"weight"`
	RPE    *int     `json:"rpe"`
	Notes  *string  `json:"notes"`
}

func (handlers *TrackingHandlers) createWorkout(contextGin *gin.Context) {
	var inbound struct {
		Date        string            `json:"date" binding:"required,datetime=2006-01-02"`
		DurationMin *int              `json:"duration_min"`
		Notes       *string           `json:"notes"`
		Exercises   []exercisePayload `json:"exercises" binding:"dive"`
	}
	if err := contextGin.ShouldBindJSON(&inbound); err != nil {
		badRequest(contextGin, "date required; exercises must be an array of named exercises")
		return
	}
	workout := store.Workout{
		Date:        inbound.Date,
		DurationMin: inbound.DurationMin,
		Notes:       inbound.Notes,
		Exercises:   make([]store.Exercise, 0, len(inbound.Exercises)),
	}
	for _, exercise := range inbound.Exercises {
		workout.Exercises = append(workout.Exercises, store.Exercise{
			Name:   exercise.Name,
			Sets:   exercise.Sets,
			Reps:   exercise.Reps,
			Weight: exercise.Weight,
			RPE:    exercise.RPE,
			Notes:  exercise.Notes,
		})
	}
	id, err := handlers.store.CreateWorkout(contextGin.Request.Context(), workout)
	if err != nil {
		storeFailure(contextGin, handlers.logger, "api.workouts.create", err)
		return
	}
	contextGin.JSON(http.StatusOK, gin.H{"id": id})
}

func (handlers *TrackingHandlers) listCardio(contextGin *gin.Context) {
	start, end := dateWindow(contextGin, handlers.now(), defaultListDays)
	rows, err := handlers.store.Cardio(contextGin.Request.Context(), start, end)
	if err != nil {
		storeFailure(contextGin, handlers.logger, "api.cardio.list", err)
		return
	}
	contextGin.JSON(http.StatusOK, rows)
}

func (handlers *TrackingHandlers) createCardio(contextGin *gin.Context) {
	var inbound struct {
		Date        string  `json:"date" binding:"required,datetime=2006-01-02"`
		Type        string  `json:"type" binding:"required"`
		DurationMin int     `json:"duration_min" binding:"required"`
		Intensity   *string `json:"intensity"`
		Calories    *int    `json:"calories"`
		Notes       *string `json:"notes"`
	}
	if err := contextGin.ShouldBindJSON(&inbound); err != nil {
		badRequest(contextGin, "date, type, duration_min required")
		return
	}
	id, err := handlers.store.CreateCardio(contextGin.Request.Context(), store.Cardio{
		Date:        inbound.Date,
		Type:        inbound.Type,
		DurationMin: inbound.DurationMin,
		Intensity:   inbound.Intensity,
		Calories:    inbound.Calories,
		Notes:       inbound.Notes,
	})
	if err != nil {
		storeFailure(contextGin, handlers.logger, "api.cardio.create", err)
		return
	}
	contextGin.JSON(http.StatusOK, gin.H{"id": id})
}

func (handlers *TrackingHandlers) listPersonalRecords(contextGin *gin.Context) {
	rows, err := handlers.store.PersonalRecords(contextGin.Request.Context())
	if err != nil {
		storeFailure(contextGin, handlers.logger, "api.prs.list", err)
		return
	}
	contextGin.JSON(http.StatusOK, rows)
}

func (handlers *TrackingHandlers) createPersonalRecord(contextGin *gin.Context) {
	var inbound struct {
		ExerciseName string  `json:"exercise_name" binding:"required"`
		Weight       float64 `json:"weight" binding:"required"`
		Reps         int     `json:"reps" binding:"required"`
		Date         string  `json:"date" binding:"required,datetime=2006-01-02"`
		Notes        *string `json:"notes"`
	}
	if err := contextGin.ShouldBindJSON(&inbound); err != nil {
		badRequest(contextGin, "exercise_name, weight, reps, date required")
		return
	}
	id, err := handlers.store.CreatePersonalRecord(contextGin.Request.Context(), store.PersonalRecord{
		ExerciseName: inbound.ExerciseName,
		Weight:       inbound.Weight,
		Reps:         inbound.Reps,
		Date:         inbound.Date,
		Notes:        inbound.Notes,
	})
	if err != nil {
		storeFailure(contextGin, handlers.logger, "api.prs.create", err)
		return
	}
	contextGin.JSON(http.StatusOK, gin.H{"id": id})
}

func (handlers *TrackingHandlers) listNutrition(contextGin *gin.Context) {
	start, end := dateWindow(contextGin, handlers.now(), defaultNutritionDays)
	rows, err := handlers.store.Nutrition(contextGin.Request.Context(), start, end)
	if err != nil {
		storeFailure(contextGin, handlers.logger, "api.nutrition.list", err)
		return
	}
	contextGin.JSON(http.StatusOK, rows)
}

func (handlers *TrackingHandlers) createNutrition(contextGin *gin.Context) {
	var inbound struct {
		Date     string   `json:"date" binding:"required,datetime=2006-01-02"`
		MealName *string  `json:"meal_name"`
		Calories int      `json:"calories" binding:"required"`
		Protein  *float64 `json:"protein"`
		Carbs    *float64 `json:"carbs"`
		Fat      *float64 `json:"fat"`
		Notes    *string  `json:"notes"`
	}
	if err := contextGin.ShouldBindJSON(&inbound); err != nil {
		badRequest(contextGin, "date, calories required")
		return
	}
	id, err := handlers.store.CreateNutrition(contextGin.Request.Context(), store.NutritionEntry{
		Date:     inbound.Date,
		MealName: inbound.MealName,
		Calories: inbound.Calories,
		Protein:  inbound.Protein,
		Carbs:    inbound.Carbs,
		Fat:      inbound.Fat,
		Notes:    inbound.Notes,
	})
	if err != nil {
		storeFailure(contextGin, handlers.logger, "api.nutrition.create", err)
		return
	}
	contextGin.JSON(http.StatusOK, gin.H{"id": id})
}

func (handlers *TrackingHandlers) deleteNutrition(contextGin *gin.Context) {
	id, ok := pathID(contextGin)
	if !ok {
		return
	}
	if err := handlers.store.DeleteNutrition(contextGin.Request.Context(), id); err != nil {
		storeFailure(contextGin, handlers.logger, "api.nutrition.delete", err)
		return
	}
	contextGin.JSON(http.StatusOK, gin.H{"ok": true})
}

func (handlers *TrackingHandlers) listWeights(contextGin *gin.Context) {
	start, end := dateWindow(contextGin, handlers.now(), defaultWeightDays)
	rows, err := handlers.store.Weights(contextGin.Request.Context(), start, end)
	if err != nil {
		storeFailure(contextGin, handlers.logger, "api.weight.list", err)
		return
	}
	contextGin.JSON(http.StatusOK, rows)
}

func (handlers *TrackingHandlers) upsertWeight(contextGin *gin.Context) {
	var inbound struct {
		Date   string   `json:"date" binding:"required,datetime=2006-01-02"`
		Weight float64  `json:"weight" binding:"required"`
		Waist  *float64 `json:"waist"`
		Notes  *string  `json:"notes"`
	}
	if err := contextGin.ShouldBindJSON(&inbound); err != nil {
		badRequest(contextGin, "date, weight required")
		return
	}
	id, err := handlers.store.UpsertWeight(contextGin.Request.Context(), store.WeightEntry{
		Date:   inbound.Date,
		Weight: inbound.Weight,
		Waist:  inbound.Waist,
		Notes:  inbound.Notes,
	})
	if err != nil {
		storeFailure(contextGin, handlers.logger, "api.weight.upsert", err)
		return
	}
	contextGin.JSON(http.StatusOK, gin.H{"id": id})
}

func (handlers *TrackingHandlers) listHabits(contextGin *gin.Context) {
	rows, err := handlers.store.Habits(contextGin.Request.Context())
	if err != nil {
		storeFailure(contextGin, handlers.logger, "api.habits.list", err)
		return
	}
	contextGin.JSON(http.StatusOK, rows)
}

func (handlers *TrackingHandlers) createHabit(contextGin *gin.Context) {
	var inbound struct {
		Name        string  `json:"name" binding:"required"`
		Description *string `json:"description"`
	}
	if err := contextGin.ShouldBindJSON(&inbound); err != nil {
		badRequest(contextGin, "name required")
		return
	}
	id, err := handlers.store.CreateHabit(contextGin.Request.Context(), inbound.Name, inbound.Description)
	if err != nil {
		storeFailure(contextGin, handlers.logger, "api.habits.create", err)
		return
	}
	contextGin.JSON(http.StatusOK, gin.H{"id": id})
}

func (handlers *TrackingHandlers) listHabitLogs(contextGin *gin.Context) {
	date := contextGin.Query("date")
	if date == "" {
		date = handlers.now().Format(isoDateLayout)
	}
	if !validDate(date) {
		badRequest(contextGin, "date must be YYYY-MM-DD")
		return
	}
	rows, err := handlers.store.HabitLogs(contextGin.Request.Context(), date)
	if err != nil {
		storeFailure(contextGin, handlers.logger, "api.habit_logs.list", err)
		return
	}
	contextGin.JSON(http.StatusOK, rows)
}

func (handlers *TrackingHandlers) logHabit(contextGin *gin.Context) {
	var inbound struct {
		HabitID   uint   `json:"habit_id" binding:"required"`
		Date      string `json:"date" binding:"required,datetime=2006-01-02"`
		Completed bool   `json:"completed"`
	}
	if err := contextGin.ShouldBindJSON(&inbound); err != nil {
		badRequest(contextGin, "habit_id, date required")
		return
	}
	if err := handlers.store.LogHabit(contextGin.Request.Context(), inbound.HabitID, inbound.Date, inbound.Completed); err != nil {
		storeFailure(contextGin, handlers.logger, "api.habit_logs.create", err)
		return
	}
	contextGin.JSON(http.StatusOK, gin.H{"ok": true})
}
