package domain

import (
	"time"

	"github.com/google/uuid"
)

// MilestoneStatus represents the lifecycle state of a milestone.
type MilestoneStatus string

const (
	MilestoneStatusPending    MilestoneStatus = "pending"
	MilestoneStatusInProgress MilestoneStatus = "in_progress"
	MilestoneStatusCompleted  MilestoneStatus = "completed"
)

// IsValid reports whether s is a known milestone status.
func (s MilestoneStatus) IsValid() bool {
	switch s {
	case MilestoneStatusPending, MilestoneStatusInProgress, MilestoneStatusCompleted:
		return true
	}
	return false
}

// Milestone is owned exclusively by its goal. Order is 1-based and assigned
// max+1 on creation; gaps and duplicates may exist after deletions or partial
// reorders, so listings always sort by the current order value.
type Milestone struct {
	ID          string
	GoalID      string
	Title       string
	Description string
	DueDate     string
	Status      MilestoneStatus
	Order       int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewMilestoneInput carries the caller-supplied fields for milestone
// creation. The order slot is assigned by the store, not the caller.
type NewMilestoneInput struct {
	Title       string
	Description string
	DueDate     string
}

// NewMilestone creates a milestone with a fresh identifier and pending
// status in the given order slot.
func NewMilestone(goalID string, in NewMilestoneInput, order int) *Milestone {
	now := time.Now().UTC()
	return &Milestone{
		ID:          uuid.New().String(),
		GoalID:      goalID,
		Title:       in.Title,
		Description: in.Description,
		DueDate:     in.DueDate,
		Status:      MilestoneStatusPending,
		Order:       order,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// MilestonePatch describes a partial update. Nil fields are left untouched.
type MilestonePatch struct {
	Title       *string
	Description *string
	DueDate     *string
	Status      *MilestoneStatus
	Order       *int
}
