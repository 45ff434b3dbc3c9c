// Package ports defines the repository interfaces the transport layer
// depends on. Concrete implementations live under
// infrastructure/persistence.
package ports

import (
	"context"

	"milestones-backend/domain"
)

// GoalRepository persists goals under the owning user's partition. Point
// reads and updates signal absence with a nil goal, never an error; the
// caller decides whether absence is a 404.
type GoalRepository interface {
	Create(ctx context.Context, userID string, in domain.NewGoalInput) (*domain.Goal, error)
	GetByID(ctx context.Context, userID, goalID string) (*domain.Goal, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Goal, error)
	Update(ctx context.Context, userID, goalID string, patch domain.GoalPatch) (*domain.Goal, error)
	Delete(ctx context.Context, userID, goalID string) (bool, error)
}

// MilestoneRepository persists milestones under the owning goal's partition.
// DeleteAllByGoal must run before the goal row itself is removed so a crash
// mid-cascade strands milestones, not a goal pointing at deleted milestones.
type MilestoneRepository interface {
	Create(ctx context.Context, goalID string, in domain.NewMilestoneInput) (*domain.Milestone, error)
	GetByID(ctx context.Context, goalID, milestoneID string) (*domain.Milestone, error)
	ListByGoal(ctx context.Context, goalID string) ([]domain.Milestone, error)
	Update(ctx context.Context, goalID, milestoneID string, patch domain.MilestonePatch) (*domain.Milestone, error)
	Delete(ctx context.Context, goalID, milestoneID string) (bool, error)
	DeleteAllByGoal(ctx context.Context, goalID string) (int, error)
	Reorder(ctx context.Context, goalID string, orderedIDs []string) ([]domain.Milestone, error)
}
