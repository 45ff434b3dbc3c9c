package persistence

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"milestones-backend/domain"
	"milestones-backend/infrastructure/persistence/memory"
)

func newTestMilestoneRepository(t *testing.T) (*MilestoneRepository, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	return NewMilestoneRepository(store, zap.NewNop()), store
}

func createMilestones(t *testing.T, repo *MilestoneRepository, goalID string, titles ...string) []domain.Milestone {
	t.Helper()
	ctx := context.Background()
	created := make([]domain.Milestone, 0, len(titles))
	for _, title := range titles {
		m, err := repo.Create(ctx, goalID, domain.NewMilestoneInput{
			Title:   title,
			DueDate: "2026-06-01",
		})
		require.NoError(t, err)
		created = append(created, *m)
	}
	return created
}

func TestMilestoneRepository_Create(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestMilestoneRepository(t)

	t.Run("first milestone gets order 1", func(t *testing.T) {
		m, err := repo.Create(ctx, "goal-1", domain.NewMilestoneInput{
			Title:   "Outline",
			DueDate: "2026-02-01",
		})

		require.NoError(t, err)
		require.NotNil(t, m)
		assert.Equal(t, 1, m.Order)
		assert.Equal(t, domain.MilestoneStatusPending, m.Status)
		assert.Equal(t, "goal-1", m.GoalID)
		assert.NotEmpty(t, m.ID)
	})

	t.Run("orders are sequential per goal", func(t *testing.T) {
		second, err := repo.Create(ctx, "goal-1", domain.NewMilestoneInput{
			Title:   "Draft",
			DueDate: "2026-03-01",
		})
		require.NoError(t, err)
		third, err := repo.Create(ctx, "goal-1", domain.NewMilestoneInput{
			Title:   "Review",
			DueDate: "2026-04-01",
		})
		require.NoError(t, err)

		assert.Equal(t, 2, second.Order)
		assert.Equal(t, 3, third.Order)
	})

	t.Run("order counters are independent across goals", func(t *testing.T) {
		m, err := repo.Create(ctx, "goal-2", domain.NewMilestoneInput{
			Title:   "Elsewhere",
			DueDate: "2026-05-01",
		})

		require.NoError(t, err)
		assert.Equal(t, 1, m.Order)
	})

	t.Run("fills after the current maximum, not gaps", func(t *testing.T) {
		milestones := createMilestones(t, repo, "goal-3", "a", "b", "c")

		existed, err := repo.Delete(ctx, "goal-3", milestones[1].ID)
		require.NoError(t, err)
		require.True(t, existed)

		m, err := repo.Create(ctx, "goal-3", domain.NewMilestoneInput{
			Title:   "d",
			DueDate: "2026-06-01",
		})
		require.NoError(t, err)
		assert.Equal(t, 4, m.Order)
	})

	t.Run("concurrent creates never share an order", func(t *testing.T) {
		const workers = 8
		var wg sync.WaitGroup
		results := make([]int, workers)
		errs := make([]error, workers)

		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				m, err := repo.Create(ctx, "goal-concurrent", domain.NewMilestoneInput{
					Title:   fmt.Sprintf("task %d", i),
					DueDate: "2026-06-01",
				})
				if err != nil {
					errs[i] = err
					return
				}
				results[i] = m.Order
			}(i)
		}
		wg.Wait()

		for _, err := range errs {
			require.NoError(t, err)
		}
		seen := make(map[int]bool, workers)
		for _, order := range results {
			assert.False(t, seen[order], "order %d assigned twice", order)
			seen[order] = true
		}
	})
}

func TestMilestoneRepository_ListByGoal(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestMilestoneRepository(t)

	t.Run("empty for unknown goal", func(t *testing.T) {
		milestones, err := repo.ListByGoal(ctx, "no-such-goal")

		require.NoError(t, err)
		assert.Empty(t, milestones)
	})

	t.Run("sorted by order, not by id", func(t *testing.T) {
		created := createMilestones(t, repo, "goal-1", "first", "second", "third")

		// Invert the orders so store key order disagrees with milestone order.
		_, err := repo.Update(ctx, "goal-1", created[0].ID, domain.MilestonePatch{Order: intPtr(3)})
		require.NoError(t, err)
		_, err = repo.Update(ctx, "goal-1", created[2].ID, domain.MilestonePatch{Order: intPtr(1)})
		require.NoError(t, err)

		milestones, err := repo.ListByGoal(ctx, "goal-1")

		require.NoError(t, err)
		require.Len(t, milestones, 3)
		assert.Equal(t, "third", milestones[0].Title)
		assert.Equal(t, "second", milestones[1].Title)
		assert.Equal(t, "first", milestones[2].Title)
		for i, m := range milestones {
			assert.Equal(t, i+1, m.Order)
		}
	})
}

func TestMilestoneRepository_Update(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestMilestoneRepository(t)
	created := createMilestones(t, repo, "goal-1", "task")

	t.Run("merges only set fields", func(t *testing.T) {
		status := domain.MilestoneStatusCompleted
		m, err := repo.Update(ctx, "goal-1", created[0].ID, domain.MilestonePatch{
			Status:  &status,
			DueDate: strPtr("2026-09-15"),
		})

		require.NoError(t, err)
		require.NotNil(t, m)
		assert.Equal(t, domain.MilestoneStatusCompleted, m.Status)
		assert.Equal(t, "2026-09-15", m.DueDate)
		assert.Equal(t, "task", m.Title)
		assert.Equal(t, 1, m.Order)
	})

	t.Run("returns nil for missing milestone", func(t *testing.T) {
		m, err := repo.Update(ctx, "goal-1", "no-such-milestone", domain.MilestonePatch{
			Title: strPtr("Ghost"),
		})

		require.NoError(t, err)
		assert.Nil(t, m)
	})
}

func TestMilestoneRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestMilestoneRepository(t)
	created := createMilestones(t, repo, "goal-1", "task")

	existed, err := repo.Delete(ctx, "goal-1", created[0].ID)
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = repo.Delete(ctx, "goal-1", created[0].ID)
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestMilestoneRepository_DeleteAllByGoal(t *testing.T) {
	ctx := context.Background()
	repo, store := newTestMilestoneRepository(t)

	createMilestones(t, repo, "goal-1", "a", "b", "c")
	createMilestones(t, repo, "goal-2", "keepme")

	t.Run("removes every milestone under the goal", func(t *testing.T) {
		count, err := repo.DeleteAllByGoal(ctx, "goal-1")

		require.NoError(t, err)
		assert.Equal(t, 3, count)

		remaining, err := repo.ListByGoal(ctx, "goal-1")
		require.NoError(t, err)
		assert.Empty(t, remaining)

		others, err := repo.ListByGoal(ctx, "goal-2")
		require.NoError(t, err)
		assert.Len(t, others, 1)
		assert.Equal(t, 1, store.Len())
	})

	t.Run("zero for goal with no milestones", func(t *testing.T) {
		count, err := repo.DeleteAllByGoal(ctx, "goal-1")

		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}

func TestMilestoneRepository_Reorder(t *testing.T) {
	ctx := context.Background()

	t.Run("renumbers in the requested sequence", func(t *testing.T) {
		repo, _ := newTestMilestoneRepository(t)
		created := createMilestones(t, repo, "goal-1", "a", "b", "c")

		updated, err := repo.Reorder(ctx, "goal-1", []string{created[2].ID, created[0].ID, created[1].ID})

		require.NoError(t, err)
		require.Len(t, updated, 3)
		assert.Equal(t, "c", updated[0].Title)
		assert.Equal(t, 1, updated[0].Order)
		assert.Equal(t, "a", updated[1].Title)
		assert.Equal(t, 2, updated[1].Order)
		assert.Equal(t, "b", updated[2].Title)
		assert.Equal(t, 3, updated[2].Order)

		listed, err := repo.ListByGoal(ctx, "goal-1")
		require.NoError(t, err)
		assert.Equal(t, "c", listed[0].Title)
	})

	t.Run("unknown ids are skipped without consuming a slot", func(t *testing.T) {
		repo, _ := newTestMilestoneRepository(t)
		created := createMilestones(t, repo, "goal-1", "a", "b")

		updated, err := repo.Reorder(ctx, "goal-1", []string{"bogus", created[1].ID, created[0].ID})

		require.NoError(t, err)
		require.Len(t, updated, 2)
		assert.Equal(t, "b", updated[0].Title)
		assert.Equal(t, 1, updated[0].Order)
		assert.Equal(t, "a", updated[1].Title)
		assert.Equal(t, 2, updated[1].Order)
	})

	t.Run("omitted milestones keep their old order", func(t *testing.T) {
		repo, _ := newTestMilestoneRepository(t)
		created := createMilestones(t, repo, "goal-1", "a", "b", "c")

		updated, err := repo.Reorder(ctx, "goal-1", []string{created[1].ID})

		require.NoError(t, err)
		require.Len(t, updated, 1)
		assert.Equal(t, "b", updated[0].Title)
		assert.Equal(t, 1, updated[0].Order)

		untouched, err := repo.GetByID(ctx, "goal-1", created[2].ID)
		require.NoError(t, err)
		assert.Equal(t, 3, untouched.Order)
	})

	t.Run("empty result for unknown goal", func(t *testing.T) {
		repo, _ := newTestMilestoneRepository(t)

		updated, err := repo.Reorder(ctx, "no-such-goal", []string{"anything"})

		require.NoError(t, err)
		assert.Empty(t, updated)
	})
}
