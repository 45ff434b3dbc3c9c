// Package domain holds the Goal and Milestone entities and their lifecycle
// rules. Entities are plain structs; the transport layer guarantees field
// shapes, so the only validation here is what crosses field boundaries.
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	appErrors "milestones-backend/pkg/errors"
	"milestones-backend/pkg/utils"
)

// GoalStatus represents the lifecycle state of a goal.
type GoalStatus string

const (
	GoalStatusNotStarted GoalStatus = "not_started"
	GoalStatusInProgress GoalStatus = "in_progress"
	GoalStatusCompleted  GoalStatus = "completed"
	GoalStatusOnHold     GoalStatus = "on_hold"
)

// IsValid reports whether s is a known goal status.
func (s GoalStatus) IsValid() bool {
	switch s {
	case GoalStatusNotStarted, GoalStatusInProgress, GoalStatusCompleted, GoalStatusOnHold:
		return true
	}
	return false
}

// Goal is owned exclusively by its user. Start and end dates are calendar
// dates in 2006-01-02 format; timestamps are UTC.
type Goal struct {
	ID          string
	UserID      string
	Title       string
	Description string
	StartDate   string
	EndDate     string
	Status      GoalStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewGoalInput carries the caller-supplied fields for goal creation. Shapes
// are validated upstream; the cross-field date check happens here.
type NewGoalInput struct {
	Title       string
	Description string
	StartDate   string
	EndDate     string
}

// NewGoal creates a goal with a fresh identifier and not_started status.
// The end date must not precede the start date; violations are rejected
// before anything is written.
func NewGoal(userID string, in NewGoalInput) (*Goal, error) {
	if err := ValidateDateRange(in.StartDate, in.EndDate); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Goal{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       in.Title,
		Description: in.Description,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Status:      GoalStatusNotStarted,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ValidateDateRange checks that both dates parse and that end >= start.
func ValidateDateRange(startDate, endDate string) error {
	start, err := utils.ParseDate(startDate)
	if err != nil {
		return appErrors.NewValidation(fmt.Sprintf("invalid start date %q", startDate))
	}
	end, err := utils.ParseDate(endDate)
	if err != nil {
		return appErrors.NewValidation(fmt.Sprintf("invalid end date %q", endDate))
	}
	if end.Before(start) {
		return appErrors.NewValidation("end date must not be before start date")
	}
	return nil
}

// GoalPatch describes a partial update. Nil fields are left untouched.
type GoalPatch struct {
	Title       *string
	Description *string
	StartDate   *string
	EndDate     *string
	Status      *GoalStatus
}
