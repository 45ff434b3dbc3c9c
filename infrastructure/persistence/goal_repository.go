// Package persistence maps the Goal and Milestone entities onto the flat
// key-value table. Two one-to-many relationships share one table:
//
//	goal:      PK=USER#<userID>  SK=GOAL#<goalID>
//	milestone: PK=GOAL#<goalID>  SK=MILESTONE#<milestoneID>
//
// Listing a user's goals and listing a goal's milestones are both prefix
// queries; point lookups need the full owning key. There is no global
// secondary lookup — callers must already know the owner.
package persistence

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"milestones-backend/application/ports"
	"milestones-backend/domain"
	"milestones-backend/infrastructure/persistence/abstractions"
	appErrors "milestones-backend/pkg/errors"
)

const (
	userKeyPrefix      = "USER#"
	goalKeyPrefix      = "GOAL#"
	milestoneKeyPrefix = "MILESTONE#"

	typeGoal      = "goal"
	typeMilestone = "milestone"
)

func userPK(userID string) string { return userKeyPrefix + userID }

func goalSK(goalID string) string { return goalKeyPrefix + goalID }

func goalPK(goalID string) string { return goalKeyPrefix + goalID }

func milestoneSK(milestoneID string) string { return milestoneKeyPrefix + milestoneID }

// goalItem is the storage encoding of a goal row.
type goalItem struct {
	PK          string `dynamodbav:"PK"`
	SK          string `dynamodbav:"SK"`
	Type        string `dynamodbav:"type"`
	ID          string `dynamodbav:"id"`
	UserID      string `dynamodbav:"user_id"`
	Title       string `dynamodbav:"title"`
	Description string `dynamodbav:"description"`
	StartDate   string `dynamodbav:"start_date"`
	EndDate     string `dynamodbav:"end_date"`
	Status      string `dynamodbav:"status"`
	CreatedAt   string `dynamodbav:"created_at"`
	UpdatedAt   string `dynamodbav:"updated_at"`
}

func goalToItem(g *domain.Goal) goalItem {
	return goalItem{
		PK:          userPK(g.UserID),
		SK:          goalSK(g.ID),
		Type:        typeGoal,
		ID:          g.ID,
		UserID:      g.UserID,
		Title:       g.Title,
		Description: g.Description,
		StartDate:   g.StartDate,
		EndDate:     g.EndDate,
		Status:      string(g.Status),
		CreatedAt:   g.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   g.UpdatedAt.Format(time.RFC3339),
	}
}

func goalFromItem(item goalItem) (*domain.Goal, error) {
	createdAt, err := time.Parse(time.RFC3339, item.CreatedAt)
	if err != nil {
		return nil, appErrors.NewInternal(fmt.Sprintf("goal %s has malformed created_at", item.ID), err)
	}
	updatedAt, err := time.Parse(time.RFC3339, item.UpdatedAt)
	if err != nil {
		return nil, appErrors.NewInternal(fmt.Sprintf("goal %s has malformed updated_at", item.ID), err)
	}
	return &domain.Goal{
		ID:          item.ID,
		UserID:      item.UserID,
		Title:       item.Title,
		Description: item.Description,
		StartDate:   item.StartDate,
		EndDate:     item.EndDate,
		Status:      domain.GoalStatus(item.Status),
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}

// GoalRepository implements ports.GoalRepository on the key-value store.
type GoalRepository struct {
	store  abstractions.Store
	logger *zap.Logger
}

// NewGoalRepository creates a goal repository.
func NewGoalRepository(store abstractions.Store, logger *zap.Logger) *GoalRepository {
	return &GoalRepository{store: store, logger: logger}
}

var _ ports.GoalRepository = (*GoalRepository)(nil)

// Create validates the date range, then persists a new goal. Nothing is
// written when validation fails.
func (r *GoalRepository) Create(ctx context.Context, userID string, in domain.NewGoalInput) (*domain.Goal, error) {
	goal, err := domain.NewGoal(userID, in)
	if err != nil {
		return nil, err
	}

	if err := r.store.Put(ctx, goalToItem(goal)); err != nil {
		return nil, appErrors.Wrap(err, "failed to persist goal")
	}

	r.logger.Debug("goal created",
		zap.String("goal_id", goal.ID),
		zap.String("user_id", userID),
	)
	return goal, nil
}

// GetByID returns (nil, nil) when the goal does not exist.
func (r *GoalRepository) GetByID(ctx context.Context, userID, goalID string) (*domain.Goal, error) {
	var item goalItem
	found, err := r.store.Get(ctx, userPK(userID), goalSK(goalID), &item)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to read goal")
	}
	if !found {
		return nil, nil
	}
	return goalFromItem(item)
}

// ListByUser returns the user's goals in store-native order; goals carry no
// ordering field.
func (r *GoalRepository) ListByUser(ctx context.Context, userID string) ([]domain.Goal, error) {
	var items []goalItem
	if err := r.store.Query(ctx, userPK(userID), goalKeyPrefix, &items); err != nil {
		return nil, appErrors.Wrap(err, "failed to list goals")
	}

	goals := make([]domain.Goal, 0, len(items))
	for _, item := range items {
		goal, err := goalFromItem(item)
		if err != nil {
			return nil, err
		}
		goals = append(goals, *goal)
	}
	return goals, nil
}

// Update merges the set patch fields into an existing goal and refreshes
// updated_at. A missing goal yields (nil, nil). The start/end relationship is
// re-checked against the merged dates, so a partial update cannot invert the
// range.
func (r *GoalRepository) Update(ctx context.Context, userID, goalID string, patch domain.GoalPatch) (*domain.Goal, error) {
	existing, err := r.GetByID(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	startDate, endDate := existing.StartDate, existing.EndDate
	if patch.StartDate != nil {
		startDate = *patch.StartDate
	}
	if patch.EndDate != nil {
		endDate = *patch.EndDate
	}
	if err := domain.ValidateDateRange(startDate, endDate); err != nil {
		return nil, err
	}

	fields := map[string]any{"updated_at": time.Now().UTC().Format(time.RFC3339)}
	if patch.Title != nil {
		fields["title"] = *patch.Title
	}
	if patch.Description != nil {
		fields["description"] = *patch.Description
	}
	if patch.StartDate != nil {
		fields["start_date"] = *patch.StartDate
	}
	if patch.EndDate != nil {
		fields["end_date"] = *patch.EndDate
	}
	if patch.Status != nil {
		fields["status"] = string(*patch.Status)
	}

	var item goalItem
	if err := r.store.Update(ctx, userPK(userID), goalSK(goalID), fields, &item); err != nil {
		// The goal vanished between the read and the write.
		if appErrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, "failed to update goal")
	}
	return goalFromItem(item)
}

// Delete removes the goal row and reports whether it existed. Dependent
// milestones are the caller's responsibility and must be removed first.
func (r *GoalRepository) Delete(ctx context.Context, userID, goalID string) (bool, error) {
	existing, err := r.GetByID(ctx, userID, goalID)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, nil
	}

	if err := r.store.Delete(ctx, userPK(userID), goalSK(goalID)); err != nil {
		return false, appErrors.Wrap(err, "failed to delete goal")
	}

	r.logger.Debug("goal deleted",
		zap.String("goal_id", goalID),
		zap.String("user_id", userID),
	)
	return true, nil
}
