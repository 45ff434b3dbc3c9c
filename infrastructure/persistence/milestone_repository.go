package persistence

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"milestones-backend/application/ports"
	"milestones-backend/domain"
	"milestones-backend/infrastructure/persistence/abstractions"
	appErrors "milestones-backend/pkg/errors"
)

// milestoneItem is the storage encoding of a milestone row.
type milestoneItem struct {
	PK          string `dynamodbav:"PK"`
	SK          string `dynamodbav:"SK"`
	Type        string `dynamodbav:"type"`
	ID          string `dynamodbav:"id"`
	GoalID      string `dynamodbav:"goal_id"`
	Title       string `dynamodbav:"title"`
	Description string `dynamodbav:"description"`
	DueDate     string `dynamodbav:"due_date"`
	Status      string `dynamodbav:"status"`
	Order       int    `dynamodbav:"order"`
	CreatedAt   string `dynamodbav:"created_at"`
	UpdatedAt   string `dynamodbav:"updated_at"`
}

func milestoneToItem(m *domain.Milestone) milestoneItem {
	return milestoneItem{
		PK:          goalPK(m.GoalID),
		SK:          milestoneSK(m.ID),
		Type:        typeMilestone,
		ID:          m.ID,
		GoalID:      m.GoalID,
		Title:       m.Title,
		Description: m.Description,
		DueDate:     m.DueDate,
		Status:      string(m.Status),
		Order:       m.Order,
		CreatedAt:   m.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   m.UpdatedAt.Format(time.RFC3339),
	}
}

func milestoneFromItem(item milestoneItem) (*domain.Milestone, error) {
	createdAt, err := time.Parse(time.RFC3339, item.CreatedAt)
	if err != nil {
		return nil, appErrors.NewInternal(fmt.Sprintf("milestone %s has malformed created_at", item.ID), err)
	}
	updatedAt, err := time.Parse(time.RFC3339, item.UpdatedAt)
	if err != nil {
		return nil, appErrors.NewInternal(fmt.Sprintf("milestone %s has malformed updated_at", item.ID), err)
	}
	return &domain.Milestone{
		ID:          item.ID,
		GoalID:      item.GoalID,
		Title:       item.Title,
		Description: item.Description,
		DueDate:     item.DueDate,
		Status:      domain.MilestoneStatus(item.Status),
		Order:       item.Order,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}

// keyedMutex hands out one mutex per key. Used to serialize the
// read-max-then-write order assignment per goal within this process.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// MilestoneRepository implements ports.MilestoneRepository on the key-value
// store.
type MilestoneRepository struct {
	store    abstractions.Store
	logger   *zap.Logger
	createMu *keyedMutex
}

// NewMilestoneRepository creates a milestone repository.
func NewMilestoneRepository(store abstractions.Store, logger *zap.Logger) *MilestoneRepository {
	return &MilestoneRepository{
		store:    store,
		logger:   logger,
		createMu: newKeyedMutex(),
	}
}

var _ ports.MilestoneRepository = (*MilestoneRepository)(nil)

// Create assigns the next order slot (max existing + 1) and persists the
// milestone. The per-goal lock serializes concurrent creates within this
// process so two creates cannot compute the same slot; the conditional write
// additionally refuses to overwrite an existing row.
func (r *MilestoneRepository) Create(ctx context.Context, goalID string, in domain.NewMilestoneInput) (*domain.Milestone, error) {
	unlock := r.createMu.lock(goalID)
	defer unlock()

	existing, err := r.ListByGoal(ctx, goalID)
	if err != nil {
		return nil, err
	}
	maxOrder := 0
	for _, m := range existing {
		if m.Order > maxOrder {
			maxOrder = m.Order
		}
	}

	milestone := domain.NewMilestone(goalID, in, maxOrder+1)
	if err := r.store.PutNew(ctx, milestoneToItem(milestone)); err != nil {
		return nil, appErrors.Wrap(err, "failed to persist milestone")
	}

	r.logger.Debug("milestone created",
		zap.String("milestone_id", milestone.ID),
		zap.String("goal_id", goalID),
		zap.Int("order", milestone.Order),
	)
	return milestone, nil
}

// GetByID returns (nil, nil) when the milestone does not exist.
func (r *MilestoneRepository) GetByID(ctx context.Context, goalID, milestoneID string) (*domain.Milestone, error) {
	var item milestoneItem
	found, err := r.store.Get(ctx, goalPK(goalID), milestoneSK(milestoneID), &item)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to read milestone")
	}
	if !found {
		return nil, nil
	}
	return milestoneFromItem(item)
}

// ListByGoal returns the goal's milestones sorted ascending by order. The
// store's native ordering is by sort key (milestone id), so the sort here is
// mandatory, not cosmetic.
func (r *MilestoneRepository) ListByGoal(ctx context.Context, goalID string) ([]domain.Milestone, error) {
	var items []milestoneItem
	if err := r.store.Query(ctx, goalPK(goalID), milestoneKeyPrefix, &items); err != nil {
		return nil, appErrors.Wrap(err, "failed to list milestones")
	}

	milestones := make([]domain.Milestone, 0, len(items))
	for _, item := range items {
		milestone, err := milestoneFromItem(item)
		if err != nil {
			return nil, err
		}
		milestones = append(milestones, *milestone)
	}
	sort.SliceStable(milestones, func(i, j int) bool {
		return milestones[i].Order < milestones[j].Order
	})
	return milestones, nil
}

// Update merges the set patch fields into an existing milestone and
// refreshes updated_at. A missing milestone yields (nil, nil).
func (r *MilestoneRepository) Update(ctx context.Context, goalID, milestoneID string, patch domain.MilestonePatch) (*domain.Milestone, error) {
	existing, err := r.GetByID(ctx, goalID, milestoneID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	fields := map[string]any{"updated_at": time.Now().UTC().Format(time.RFC3339)}
	if patch.Title != nil {
		fields["title"] = *patch.Title
	}
	if patch.Description != nil {
		fields["description"] = *patch.Description
	}
	if patch.DueDate != nil {
		fields["due_date"] = *patch.DueDate
	}
	if patch.Status != nil {
		fields["status"] = string(*patch.Status)
	}
	if patch.Order != nil {
		fields["order"] = *patch.Order
	}

	var item milestoneItem
	if err := r.store.Update(ctx, goalPK(goalID), milestoneSK(milestoneID), fields, &item); err != nil {
		if appErrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, "failed to update milestone")
	}
	return milestoneFromItem(item)
}

// Delete removes the milestone and reports whether it existed, so the route
// layer can decide between 404 and success. Neither call errors on absence.
func (r *MilestoneRepository) Delete(ctx context.Context, goalID, milestoneID string) (bool, error) {
	existing, err := r.GetByID(ctx, goalID, milestoneID)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, nil
	}

	if err := r.store.Delete(ctx, goalPK(goalID), milestoneSK(milestoneID)); err != nil {
		return false, appErrors.Wrap(err, "failed to delete milestone")
	}
	return true, nil
}

// DeleteAllByGoal removes every milestone under the goal in one batch and
// returns the count removed. Callers delete milestones before the goal row.
func (r *MilestoneRepository) DeleteAllByGoal(ctx context.Context, goalID string) (int, error) {
	milestones, err := r.ListByGoal(ctx, goalID)
	if err != nil {
		return 0, err
	}
	if len(milestones) == 0 {
		return 0, nil
	}

	keys := make([]abstractions.Key, 0, len(milestones))
	for _, m := range milestones {
		keys = append(keys, abstractions.Key{PK: goalPK(goalID), SK: milestoneSK(m.ID)})
	}
	if err := r.store.BatchDelete(ctx, keys); err != nil {
		return 0, appErrors.Wrap(err, "failed to cascade delete milestones")
	}

	r.logger.Debug("milestones cascade deleted",
		zap.String("goal_id", goalID),
		zap.Int("count", len(keys)),
	)
	return len(keys), nil
}

// Reorder assigns order 1..N to the ids in orderedIDs, in that sequence. Ids
// that do not belong to the goal are silently skipped. Milestones omitted
// from orderedIDs keep their old order values, so a partial reorder can leave
// duplicate orders. Returns the touched milestones sorted by their new order.
func (r *MilestoneRepository) Reorder(ctx context.Context, goalID string, orderedIDs []string) ([]domain.Milestone, error) {
	milestones, err := r.ListByGoal(ctx, goalID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Milestone, len(milestones))
	for _, m := range milestones {
		byID[m.ID] = m
	}

	now := time.Now().UTC()
	updatedAt := now.Format(time.RFC3339)
	updated := make([]domain.Milestone, 0, len(orderedIDs))
	order := 0
	for _, milestoneID := range orderedIDs {
		milestone, ok := byID[milestoneID]
		if !ok {
			continue
		}
		order++

		fields := map[string]any{
			"order":      order,
			"updated_at": updatedAt,
		}
		if err := r.store.Update(ctx, goalPK(goalID), milestoneSK(milestoneID), fields, nil); err != nil {
			return nil, appErrors.Wrap(err, fmt.Sprintf("failed to reorder milestone %s", milestoneID))
		}

		milestone.Order = order
		milestone.UpdatedAt = now
		updated = append(updated, milestone)
	}

	sort.SliceStable(updated, func(i, j int) bool {
		return updated[i].Order < updated[j].Order
	})
	return updated, nil
}
