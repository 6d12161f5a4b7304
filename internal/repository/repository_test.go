package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/mealplan/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newJob(email string) *domain.MealPlanJob {
	return &domain.MealPlanJob{
		CustomerEmail: email,
		FamilySize:    2,
		DietType:      "keto",
		PaymentRef:    "pay_" + email,
	}
}

func TestJobRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewJobRepository(openTestDB(t))

	job := newJob("a@example.com")
	job.Status = domain.JobStatusCompleted
	require.NoError(t, repo.Create(ctx, job))
	assert.NotEmpty(t, job.ID)

	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPending, got.Status)
	assert.Equal(t, domain.PhaseDinnersFirst, got.CurrentPhase)
	assert.Empty(t, got.Accumulated)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestJobRepository_ClaimIsExclusive(t *testing.T) {
	ctx := context.Background()
	repo := NewJobRepository(openTestDB(t))
	job := newJob("claim@example.com")
	require.NoError(t, repo.Create(ctx, job))

	ok, err := repo.Claim(ctx, job.ID, domain.JobStatusPending, domain.JobStatusProcessing, 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	// The status no longer matches.
	ok, err = repo.Claim(ctx, job.ID, domain.JobStatusPending, domain.JobStatusProcessing, 10*time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// Processing but leased.
	ok, err = repo.Claim(ctx, job.ID, domain.JobStatusProcessing, domain.JobStatusProcessing, 10*time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusProcessing, got.Status)
	assert.NotNil(t, got.StartedAt)
}

func TestJobRepository_ExpiredLeaseCanBeReclaimed(t *testing.T) {
	ctx := context.Background()
	repo := NewJobRepository(openTestDB(t))
	job := newJob("lease@example.com")
	require.NoError(t, repo.Create(ctx, job))

	ok, err := repo.Claim(ctx, job.ID, domain.JobStatusPending, domain.JobStatusProcessing, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	jobs, err := repo.FetchActionable(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, jobs)

	later := time.Now().UTC().Add(time.Hour)
	repo.now = func() time.Time { return later }

	jobs, err = repo.FetchActionable(ctx, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	ok, err = repo.Claim(ctx, job.ID, domain.JobStatusProcessing, domain.JobStatusProcessing, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestJobRepository_FetchActionableSkipsTerminal(t *testing.T) {
	ctx := context.Background()
	repo := NewJobRepository(openTestDB(t))

	pending := newJob("p@example.com")
	done := newJob("d@example.com")
	require.NoError(t, repo.Create(ctx, pending))
	require.NoError(t, repo.Create(ctx, done))
	require.NoError(t, repo.SetStatus(ctx, done.ID, domain.JobStatusCompleted, StatusFields{}))

	jobs, err := repo.FetchActionable(ctx, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, pending.ID, jobs[0].ID)
}

func TestJobRepository_AdvancePhase(t *testing.T) {
	ctx := context.Background()
	repo := NewJobRepository(openTestDB(t))
	job := newJob("adv@example.com")
	require.NoError(t, repo.Create(ctx, job))

	// Not processing yet.
	err := repo.AdvancePhase(ctx, job.ID, domain.PhaseDinnersFirst, domain.PhaseDinnersSecond, "x", nil)
	assert.ErrorIs(t, err, ErrPhaseConflict)

	ok, err := repo.Claim(ctx, job.ID, domain.JobStatusPending, domain.JobStatusProcessing, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	acc := []domain.Recipe{{ID: "r1", Name: "Steak"}, {ID: "r2", Name: "Salmon"}}
	require.NoError(t, repo.AdvancePhase(ctx, job.ID, domain.PhaseDinnersFirst, domain.PhaseDinnersSecond, "Dinners 1/2", acc))

	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseDinnersSecond, got.CurrentPhase)
	assert.Equal(t, "Dinners 1/2", got.ProgressMessage)
	assert.Nil(t, got.LeaseExpiresAt)
	require.Len(t, got.Accumulated, 2)
	assert.Equal(t, "r1", got.Accumulated[0].ID)
	assert.Equal(t, "r2", got.Accumulated[1].ID)

	// Stale writer still thinks the job is in phase 1.
	err = repo.AdvancePhase(ctx, job.ID, domain.PhaseDinnersFirst, domain.PhaseDinnersSecond, "stale", nil)
	assert.ErrorIs(t, err, ErrPhaseConflict)
}

func TestJobRepository_SetStatusTerminalIsFinal(t *testing.T) {
	ctx := context.Background()
	repo := NewJobRepository(openTestDB(t))
	job := newJob("term@example.com")
	require.NoError(t, repo.Create(ctx, job))

	count := 31
	require.NoError(t, repo.SetStatus(ctx, job.ID, domain.JobStatusCompleted, StatusFields{
		DocumentURL: "https://cdn.example.com/plan.xlsx",
		RecipeCount: &count,
	}))

	err := repo.SetStatus(ctx, job.ID, domain.JobStatusFailed, StatusFields{ErrorMessage: "late"})
	assert.ErrorIs(t, err, ErrJobNotActionable)

	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, got.Status)
	assert.Equal(t, 31, got.RecipeCount)
	assert.Equal(t, "https://cdn.example.com/plan.xlsx", got.DocumentURL)
	assert.Empty(t, got.ErrorMessage)
	assert.NotNil(t, got.CompletedAt)
}

func TestDeliveryRepository_RecordDeliveredIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewDeliveryRepository(db)

	require.NoError(t, repo.RecordDelivered(ctx, "c@example.com", []string{"r1", "r2", ""}, "2026-10"))
	require.NoError(t, repo.RecordDelivered(ctx, "c@example.com", []string{"r2", "r3"}, "2026-10"))
	require.NoError(t, repo.RecordDelivered(ctx, "c@example.com", nil, "2026-10"))

	var ids []string
	require.NoError(t, db.Model(&domain.DeliveredRecipe{}).
		Where("customer_email = ? AND year_month = ?", "c@example.com", "2026-10").
		Order("id ASC").
		Pluck("recipe_id", &ids).Error)
	assert.Equal(t, []string{"r1", "r2", "r3"}, ids)
}

func seedLibrary(t *testing.T, repo *LibraryRepository) {
	t.Helper()
	ctx := context.Background()
	recipes := []domain.Recipe{
		{ID: "d1", Name: "Keto Steak", MealType: domain.MealTypeDinner, DietType: "Keto"},
		{ID: "d2", Name: "Keto Salmon", MealType: domain.MealTypeDinner, DietType: "keto"},
		{ID: "d3", Name: "Vegan Curry", MealType: domain.MealTypeDinner, DietType: "vegan"},
		{ID: "d4", Name: "Roast Chicken", MealType: domain.MealTypeDinner},
		{ID: "b1", Name: "Keto Eggs", MealType: domain.MealTypeBreakfast, DietType: "keto"},
	}
	for _, r := range recipes {
		require.NoError(t, repo.Save(ctx, r, "test"))
	}
}

func TestLibraryRepository_SampleFilters(t *testing.T) {
	ctx := context.Background()
	repo := NewLibraryRepository(openTestDB(t))
	seedLibrary(t, repo)

	got, err := repo.Sample(ctx, domain.LibraryQuery{
		DietType:  "keto",
		MealTypes: []domain.MealType{domain.MealTypeDinner},
		Limit:     10,
	})
	require.NoError(t, err)

	ids := make([]string, 0, len(got))
	for _, r := range got {
		ids = append(ids, r.ID)
		assert.Equal(t, domain.MealTypeDinner, r.MealType)
	}
	// Untagged recipes match every diet.
	assert.ElementsMatch(t, []string{"d1", "d2", "d4"}, ids)

	got, err = repo.Sample(ctx, domain.LibraryQuery{DietType: "keto", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = repo.Sample(ctx, domain.LibraryQuery{Limit: 0})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLibraryRepository_SampleDietWildcardsMatchLiterally(t *testing.T) {
	ctx := context.Background()
	repo := NewLibraryRepository(openTestDB(t))
	seedLibrary(t, repo)

	for _, diet := range []string{"%", "k_to", `\`} {
		got, err := repo.Sample(ctx, domain.LibraryQuery{
			DietType:  diet,
			MealTypes: []domain.MealType{domain.MealTypeDinner},
			Limit:     10,
		})
		require.NoError(t, err, diet)

		ids := make([]string, 0, len(got))
		for _, r := range got {
			ids = append(ids, r.ID)
		}
		assert.Equal(t, []string{"d4"}, ids, diet)
	}
}

func TestLibraryRepository_SampleSkipsRecentDeliveries(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewLibraryRepository(db)
	deliveries := NewDeliveryRepository(db)
	seedLibrary(t, repo)

	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	require.NoError(t, deliveries.RecordDelivered(ctx, "c@example.com", []string{"d1"}, "2026-10"))
	require.NoError(t, deliveries.RecordDelivered(ctx, "c@example.com", []string{"d2"}, "2026-09"))
	require.NoError(t, deliveries.RecordDelivered(ctx, "c@example.com", []string{"d4"}, "2026-08"))
	require.NoError(t, deliveries.RecordDelivered(ctx, "other@example.com", []string{"d3"}, "2026-10"))

	got, err := repo.Sample(ctx, domain.LibraryQuery{
		MealTypes:     []domain.MealType{domain.MealTypeDinner},
		Limit:         10,
		CustomerEmail: "c@example.com",
	})
	require.NoError(t, err)

	ids := make([]string, 0, len(got))
	for _, r := range got {
		ids = append(ids, r.ID)
	}
	assert.ElementsMatch(t, []string{"d3", "d4"}, ids)
}

func TestLibraryRepository_SaveUpserts(t *testing.T) {
	ctx := context.Background()
	repo := NewLibraryRepository(openTestDB(t))

	r := domain.Recipe{
		ID:          "g1",
		Name:        "Herb Chicken",
		MealType:    domain.MealTypeDinner,
		Ingredients: []domain.Ingredient{{Item: "chicken", Quantity: 1, Unit: "lb"}},
		Nutrition:   &domain.Nutrition{Calories: 420},
	}
	require.NoError(t, repo.Save(ctx, r, "generated"))
	r.Name = "Lemon Herb Chicken"
	require.NoError(t, repo.Save(ctx, r, "generated"))

	n, err := repo.Count(ctx, domain.MealTypeDinner)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := repo.Sample(ctx, domain.LibraryQuery{Limit: 5})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Lemon Herb Chicken", got[0].Name)
	require.Len(t, got[0].Ingredients, 1)
	assert.Equal(t, "chicken", got[0].Ingredients[0].Item)
	require.NotNil(t, got[0].Nutrition)
	assert.Equal(t, 420.0, got[0].Nutrition.Calories)

	exists, err := repo.ExistsByID(ctx, "g1")
	require.NoError(t, err)
	assert.True(t, exists)
}
