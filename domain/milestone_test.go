package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewMilestone(t *testing.T) {
	m := NewMilestone("goal-1", NewMilestoneInput{
		Title:   "First draft",
		DueDate: "2026-03-01",
	}, 3)

	assert.NotEmpty(t, m.ID)
	assert.Equal(t, "goal-1", m.GoalID)
	assert.Equal(t, MilestoneStatusPending, m.Status)
	assert.Equal(t, 3, m.Order)
	assert.False(t, m.CreatedAt.IsZero())
	assert.Equal(t, m.CreatedAt, m.UpdatedAt)
}

func TestMilestoneStatus_IsValid(t *testing.T) {
	for _, status := range []MilestoneStatus{MilestoneStatusPending, MilestoneStatusInProgress, MilestoneStatusCompleted} {
		assert.True(t, status.IsValid(), string(status))
	}
	assert.False(t, MilestoneStatus("on_hold").IsValid())
}
