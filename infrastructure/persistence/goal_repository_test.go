package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"milestones-backend/domain"
	"milestones-backend/infrastructure/persistence/memory"
	appErrors "milestones-backend/pkg/errors"
)

func strPtr(s string) *string {
	return &s
}

func intPtr(i int) *int {
	return &i
}

func newTestGoalRepository(t *testing.T) (*GoalRepository, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	return NewGoalRepository(store, zap.NewNop()), store
}

func TestGoalRepository_Create(t *testing.T) {
	ctx := context.Background()
	repo, store := newTestGoalRepository(t)

	t.Run("creates goal with defaults", func(t *testing.T) {
		goal, err := repo.Create(ctx, "user-1", domain.NewGoalInput{
			Title:       "Learn guitar",
			Description: "Practice daily",
			StartDate:   "2026-01-01",
			EndDate:     "2026-06-30",
		})

		require.NoError(t, err)
		require.NotNil(t, goal)
		assert.NotEmpty(t, goal.ID)
		assert.Equal(t, "user-1", goal.UserID)
		assert.Equal(t, domain.GoalStatusNotStarted, goal.Status)
		assert.Equal(t, "2026-01-01", goal.StartDate)
		assert.False(t, goal.CreatedAt.IsZero())
		assert.Equal(t, goal.CreatedAt, goal.UpdatedAt)
	})

	t.Run("rejects inverted date range without writing", func(t *testing.T) {
		before := store.Len()

		goal, err := repo.Create(ctx, "user-1", domain.NewGoalInput{
			Title:     "Backwards",
			StartDate: "2026-06-30",
			EndDate:   "2026-01-01",
		})

		require.Error(t, err)
		assert.True(t, appErrors.IsValidation(err))
		assert.Nil(t, goal)
		assert.Equal(t, before, store.Len())
	})

	t.Run("rejects malformed date", func(t *testing.T) {
		goal, err := repo.Create(ctx, "user-1", domain.NewGoalInput{
			Title:     "Bad date",
			StartDate: "01/01/2026",
			EndDate:   "2026-06-30",
		})

		require.Error(t, err)
		assert.True(t, appErrors.IsValidation(err))
		assert.Nil(t, goal)
	})

	t.Run("allows single day goal", func(t *testing.T) {
		goal, err := repo.Create(ctx, "user-1", domain.NewGoalInput{
			Title:     "One day",
			StartDate: "2026-03-15",
			EndDate:   "2026-03-15",
		})

		require.NoError(t, err)
		require.NotNil(t, goal)
	})
}

func TestGoalRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestGoalRepository(t)

	created, err := repo.Create(ctx, "user-1", domain.NewGoalInput{
		Title:     "Readable",
		StartDate: "2026-01-01",
		EndDate:   "2026-12-31",
	})
	require.NoError(t, err)

	t.Run("returns stored goal", func(t *testing.T) {
		goal, err := repo.GetByID(ctx, "user-1", created.ID)

		require.NoError(t, err)
		require.NotNil(t, goal)
		assert.Equal(t, created.ID, goal.ID)
		assert.Equal(t, created.Title, goal.Title)
		assert.True(t, created.CreatedAt.Truncate(0).Equal(goal.CreatedAt) ||
			created.CreatedAt.Unix() == goal.CreatedAt.Unix())
	})

	t.Run("returns nil for unknown id", func(t *testing.T) {
		goal, err := repo.GetByID(ctx, "user-1", "no-such-goal")

		require.NoError(t, err)
		assert.Nil(t, goal)
	})

	t.Run("returns nil for another user's partition", func(t *testing.T) {
		goal, err := repo.GetByID(ctx, "user-2", created.ID)

		require.NoError(t, err)
		assert.Nil(t, goal)
	})
}

func TestGoalRepository_ListByUser(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestGoalRepository(t)

	t.Run("empty list for user with no goals", func(t *testing.T) {
		goals, err := repo.ListByUser(ctx, "nobody")

		require.NoError(t, err)
		assert.Empty(t, goals)
	})

	t.Run("lists only the user's goals", func(t *testing.T) {
		for _, title := range []string{"First", "Second", "Third"} {
			_, err := repo.Create(ctx, "user-1", domain.NewGoalInput{
				Title:     title,
				StartDate: "2026-01-01",
				EndDate:   "2026-12-31",
			})
			require.NoError(t, err)
		}
		_, err := repo.Create(ctx, "user-2", domain.NewGoalInput{
			Title:     "Other",
			StartDate: "2026-01-01",
			EndDate:   "2026-12-31",
		})
		require.NoError(t, err)

		goals, err := repo.ListByUser(ctx, "user-1")

		require.NoError(t, err)
		assert.Len(t, goals, 3)
		for _, g := range goals {
			assert.Equal(t, "user-1", g.UserID)
		}
	})
}

func TestGoalRepository_Update(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestGoalRepository(t)

	created, err := repo.Create(ctx, "user-1", domain.NewGoalInput{
		Title:       "Original",
		Description: "Before",
		StartDate:   "2026-01-01",
		EndDate:     "2026-12-31",
	})
	require.NoError(t, err)

	t.Run("merges only set fields", func(t *testing.T) {
		status := domain.GoalStatusInProgress
		goal, err := repo.Update(ctx, "user-1", created.ID, domain.GoalPatch{
			Title:  strPtr("Renamed"),
			Status: &status,
		})

		require.NoError(t, err)
		require.NotNil(t, goal)
		assert.Equal(t, "Renamed", goal.Title)
		assert.Equal(t, domain.GoalStatusInProgress, goal.Status)
		assert.Equal(t, "Before", goal.Description)
		assert.Equal(t, "2026-01-01", goal.StartDate)
	})

	t.Run("rejects patch that inverts the merged date range", func(t *testing.T) {
		goal, err := repo.Update(ctx, "user-1", created.ID, domain.GoalPatch{
			EndDate: strPtr("2025-06-01"),
		})

		require.Error(t, err)
		assert.True(t, appErrors.IsValidation(err))
		assert.Nil(t, goal)

		current, err := repo.GetByID(ctx, "user-1", created.ID)
		require.NoError(t, err)
		assert.Equal(t, "2026-12-31", current.EndDate)
	})

	t.Run("returns nil for missing goal", func(t *testing.T) {
		goal, err := repo.Update(ctx, "user-1", "no-such-goal", domain.GoalPatch{
			Title: strPtr("Ghost"),
		})

		require.NoError(t, err)
		assert.Nil(t, goal)
	})
}

func TestGoalRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo, store := newTestGoalRepository(t)

	created, err := repo.Create(ctx, "user-1", domain.NewGoalInput{
		Title:     "Doomed",
		StartDate: "2026-01-01",
		EndDate:   "2026-12-31",
	})
	require.NoError(t, err)

	t.Run("reports existence on first delete", func(t *testing.T) {
		existed, err := repo.Delete(ctx, "user-1", created.ID)

		require.NoError(t, err)
		assert.True(t, existed)
		assert.Equal(t, 0, store.Len())
	})

	t.Run("second delete reports absence", func(t *testing.T) {
		existed, err := repo.Delete(ctx, "user-1", created.ID)

		require.NoError(t, err)
		assert.False(t, existed)
	})
}

func TestGoalRepository_StoreFailures(t *testing.T) {
	ctx := context.Background()
	repo, store := newTestGoalRepository(t)
	storeErr := errors.New("provisioned throughput exceeded")

	t.Run("create surfaces store error", func(t *testing.T) {
		store.SetError("Put", storeErr)
		defer store.SetError("Put", nil)

		_, err := repo.Create(ctx, "user-1", domain.NewGoalInput{
			Title:     "Unlucky",
			StartDate: "2026-01-01",
			EndDate:   "2026-12-31",
		})

		require.Error(t, err)
		assert.True(t, appErrors.IsInternal(err))
	})

	t.Run("list surfaces store error", func(t *testing.T) {
		store.SetError("Query", storeErr)
		defer store.SetError("Query", nil)

		_, err := repo.ListByUser(ctx, "user-1")

		require.Error(t, err)
	})
}
