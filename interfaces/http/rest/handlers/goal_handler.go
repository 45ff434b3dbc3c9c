package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"milestones-backend/application/ports"
	"milestones-backend/domain"
	"milestones-backend/pkg/auth"
	appErrors "milestones-backend/pkg/errors"
	"milestones-backend/pkg/utils"
)

// GoalHandler handles goal CRUD requests. Deleting a goal cascades to its
// milestones; the milestone repository is needed for that sequencing.
type GoalHandler struct {
	goals      ports.GoalRepository
	milestones ports.MilestoneRepository
	logger     *zap.Logger
}

// NewGoalHandler creates a goal handler.
func NewGoalHandler(goals ports.GoalRepository, milestones ports.MilestoneRepository, logger *zap.Logger) *GoalHandler {
	return &GoalHandler{
		goals:      goals,
		milestones: milestones,
		logger:     logger,
	}
}

// CreateGoalRequest is the request body for creating a goal.
type CreateGoalRequest struct {
	Title       string `json:"title" validate:"required,min=1,max=200"`
	Description string `json:"description" validate:"max=2000"`
	StartDate   string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate     string `json:"endDate" validate:"required,datetime=2006-01-02"`
}

// UpdateGoalRequest is the request body for a partial goal update. Absent
// fields are left untouched.
type UpdateGoalRequest struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	StartDate   *string `json:"startDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate     *string `json:"endDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Status      *string `json:"status,omitempty" validate:"omitempty,oneof=not_started in_progress completed on_hold"`
}

// GoalResponse is the wire representation of a goal.
type GoalResponse struct {
	ID          string `json:"id"`
	UserID      string `json:"userId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Status      string `json:"status"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

func goalResponse(g *domain.Goal) GoalResponse {
	return GoalResponse{
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

// ListGoals handles GET /goals.
func (h *GoalHandler) ListGoals(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	goals, err := h.goals.ListByUser(r.Context(), userCtx.UserID)
	if err != nil {
		h.logger.Error("failed to list goals",
			zap.String("user_id", userCtx.UserID),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "Failed to list goals")
		return
	}

	responses := make([]GoalResponse, 0, len(goals))
	for i := range goals {
		responses = append(responses, goalResponse(&goals[i]))
	}
	respondJSON(w, http.StatusOK, responses)
}

// CreateGoal handles POST /goals.
func (h *GoalHandler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	var req CreateGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		respondError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	goal, err := h.goals.Create(r.Context(), userCtx.UserID, domain.NewGoalInput{
		Title:       req.Title,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	})
	if err != nil {
		if appErrors.IsValidation(err) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to create goal",
			zap.String("user_id", userCtx.UserID),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "Failed to create goal")
		return
	}

	respondJSON(w, http.StatusCreated, goalResponse(goal))
}

// GetGoal handles GET /goals/{goalID}.
func (h *GoalHandler) GetGoal(w http.ResponseWriter, r *http.Request) {
	goalID := chi.URLParam(r, "goalID")
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	goal, err := h.goals.GetByID(r.Context(), userCtx.UserID, goalID)
	if err != nil {
		h.logger.Error("failed to read goal",
			zap.String("goal_id", goalID),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "Failed to read goal")
		return
	}
	if goal == nil {
		respondError(w, http.StatusNotFound, "Goal not found")
		return
	}
	respondJSON(w, http.StatusOK, goalResponse(goal))
}

// UpdateGoal handles PUT /goals/{goalID}.
func (h *GoalHandler) UpdateGoal(w http.ResponseWriter, r *http.Request) {
	goalID := chi.URLParam(r, "goalID")

	var req UpdateGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		respondError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	patch := domain.GoalPatch{
		Title:       req.Title,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	}
	if req.Status != nil {
		status := domain.GoalStatus(*req.Status)
		patch.Status = &status
	}

	goal, err := h.goals.Update(r.Context(), userCtx.UserID, goalID, patch)
	if err != nil {
		if appErrors.IsValidation(err) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to update goal",
			zap.String("goal_id", goalID),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "Failed to update goal")
		return
	}
	if goal == nil {
		respondError(w, http.StatusNotFound, "Goal not found")
		return
	}
	respondJSON(w, http.StatusOK, goalResponse(goal))
}

// DeleteGoal handles DELETE /goals/{goalID}. Milestones are removed before
// the goal row so a crash in between leaves unreachable milestones rather
// than a goal pointing at nothing.
func (h *GoalHandler) DeleteGoal(w http.ResponseWriter, r *http.Request) {
	goalID := chi.URLParam(r, "goalID")
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	goal, err := h.goals.GetByID(r.Context(), userCtx.UserID, goalID)
	if err != nil {
		h.logger.Error("failed to read goal for delete",
			zap.String("goal_id", goalID),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "Failed to delete goal")
		return
	}
	if goal == nil {
		respondError(w, http.StatusNotFound, "Goal not found")
		return
	}

	deleted, err := h.milestones.DeleteAllByGoal(r.Context(), goalID)
	if err != nil {
		h.logger.Error("failed to cascade delete milestones",
			zap.String("goal_id", goalID),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "Failed to delete goal")
		return
	}

	if _, err := h.goals.Delete(r.Context(), userCtx.UserID, goalID); err != nil {
		h.logger.Error("failed to delete goal",
			zap.String("goal_id", goalID),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "Failed to delete goal")
		return
	}

	h.logger.Info("goal deleted",
		zap.String("goal_id", goalID),
		zap.String("user_id", userCtx.UserID),
		zap.Int("milestones_deleted", deleted),
	)
	respondJSON(w, http.StatusNoContent, nil)
}
