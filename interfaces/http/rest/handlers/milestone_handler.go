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

// MilestoneHandler handles milestone CRUD and reorder requests. Every route
// first proves the parent goal belongs to the caller; milestone keys alone
// say nothing about ownership.
type MilestoneHandler struct {
	goals      ports.GoalRepository
	milestones ports.MilestoneRepository
	logger     *zap.Logger
}

// NewMilestoneHandler creates a milestone handler.
func NewMilestoneHandler(goals ports.GoalRepository, milestones ports.MilestoneRepository, logger *zap.Logger) *MilestoneHandler {
	return &MilestoneHandler{
		goals:      goals,
		milestones: milestones,
		logger:     logger,
	}
}

// CreateMilestoneRequest is the request body for creating a milestone.
type CreateMilestoneRequest struct {
	Title       string `json:"title" validate:"required,min=1,max=200"`
	Description string `json:"description" validate:"max=2000"`
	DueDate     string `json:"dueDate" validate:"required,datetime=2006-01-02"`
}

// UpdateMilestoneRequest is the request body for a partial milestone update.
type UpdateMilestoneRequest struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	DueDate     *string `json:"dueDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Status      *string `json:"status,omitempty" validate:"omitempty,oneof=pending in_progress completed"`
	Order       *int    `json:"order,omitempty" validate:"omitempty,min=1"`
}

// ReorderMilestonesRequest carries the desired milestone sequence. Ids not
// belonging to the goal are ignored; omitted milestones keep their order.
type ReorderMilestonesRequest struct {
	OrderedIDs []string `json:"ordered_ids" validate:"required,min=1"`
}

// MilestoneResponse is the wire representation of a milestone.
type MilestoneResponse struct {
	ID          string `json:"id"`
	GoalID      string `json:"goalId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	DueDate     string `json:"dueDate"`
	Status      string `json:"status"`
	Order       int    `json:"order"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

// MilestoneListResponse wraps a milestone collection.
type MilestoneListResponse struct {
	Milestones []MilestoneResponse `json:"milestones"`
	Count      int                 `json:"count"`
}

func milestoneResponse(m *domain.Milestone) MilestoneResponse {
	return MilestoneResponse{
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

func milestoneListResponse(milestones []domain.Milestone) MilestoneListResponse {
	responses := make([]MilestoneResponse, 0, len(milestones))
	for i := range milestones {
		responses = append(responses, milestoneResponse(&milestones[i]))
	}
	return MilestoneListResponse{Milestones: responses, Count: len(responses)}
}

// verifyGoalOwnership checks that the goal exists under the caller's
// partition. It writes the response on failure and reports whether the
// handler may proceed.
func (h *MilestoneHandler) verifyGoalOwnership(w http.ResponseWriter, r *http.Request, goalID string) (*auth.UserContext, bool) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}

	goal, err := h.goals.GetByID(r.Context(), userCtx.UserID, goalID)
	if err != nil {
		h.logger.Error("failed to verify goal ownership",
			zap.String("goal_id", goalID),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "Failed to read goal")
		return nil, false
	}
	if goal == nil {
		respondError(w, http.StatusNotFound, "Goal not found")
		return nil, false
	}
	return userCtx, true
}

// ListMilestones handles GET /goals/{goalID}/milestones.
func (h *MilestoneHandler) ListMilestones(w http.ResponseWriter, r *http.Request) {
	goalID := chi.URLParam(r, "goalID")
	if _, ok := h.verifyGoalOwnership(w, r, goalID); !ok {
		return
	}

	milestones, err := h.milestones.ListByGoal(r.Context(), goalID)
	if err != nil {
		h.logger.Error("failed to list milestones",
			zap.String("goal_id", goalID),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "Failed to list milestones")
		return
	}
	respondJSON(w, http.StatusOK, milestoneListResponse(milestones))
}

// CreateMilestone handles POST /goals/{goalID}/milestones.
func (h *MilestoneHandler) CreateMilestone(w http.ResponseWriter, r *http.Request) {
	goalID := chi.URLParam(r, "goalID")

	var req CreateMilestoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		respondError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	if _, ok := h.verifyGoalOwnership(w, r, goalID); !ok {
		return
	}

	milestone, err := h.milestones.Create(r.Context(), goalID, domain.NewMilestoneInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
	})
	if err != nil {
		h.logger.Error("failed to create milestone",
			zap.String("goal_id", goalID),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "Failed to create milestone")
		return
	}
	respondJSON(w, http.StatusCreated, milestoneResponse(milestone))
}

// GetMilestone handles GET /goals/{goalID}/milestones/{milestoneID}.
func (h *MilestoneHandler) GetMilestone(w http.ResponseWriter, r *http.Request) {
	goalID := chi.URLParam(r, "goalID")
	milestoneID := chi.URLParam(r, "milestoneID")
	if _, ok := h.verifyGoalOwnership(w, r, goalID); !ok {
		return
	}

	milestone, err := h.milestones.GetByID(r.Context(), goalID, milestoneID)
	if err != nil {
		h.logger.Error("failed to read milestone",
			zap.String("milestone_id", milestoneID),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "Failed to read milestone")
		return
	}
	if milestone == nil {
		respondError(w, http.StatusNotFound, "Milestone not found")
		return
	}
	respondJSON(w, http.StatusOK, milestoneResponse(milestone))
}

// UpdateMilestone handles PUT /goals/{goalID}/milestones/{milestoneID}.
func (h *MilestoneHandler) UpdateMilestone(w http.ResponseWriter, r *http.Request) {
	goalID := chi.URLParam(r, "goalID")
	milestoneID := chi.URLParam(r, "milestoneID")

	var req UpdateMilestoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		respondError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	if _, ok := h.verifyGoalOwnership(w, r, goalID); !ok {
		return
	}

	patch := domain.MilestonePatch{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Order:       req.Order,
	}
	if req.Status != nil {
		status := domain.MilestoneStatus(*req.Status)
		patch.Status = &status
	}

	milestone, err := h.milestones.Update(r.Context(), goalID, milestoneID, patch)
	if err != nil {
		if appErrors.IsValidation(err) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to update milestone",
			zap.String("milestone_id", milestoneID),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "Failed to update milestone")
		return
	}
	if milestone == nil {
		respondError(w, http.StatusNotFound, "Milestone not found")
		return
	}
	respondJSON(w, http.StatusOK, milestoneResponse(milestone))
}

// DeleteMilestone handles DELETE /goals/{goalID}/milestones/{milestoneID}.
func (h *MilestoneHandler) DeleteMilestone(w http.ResponseWriter, r *http.Request) {
	goalID := chi.URLParam(r, "goalID")
	milestoneID := chi.URLParam(r, "milestoneID")
	if _, ok := h.verifyGoalOwnership(w, r, goalID); !ok {
		return
	}

	existed, err := h.milestones.Delete(r.Context(), goalID, milestoneID)
	if err != nil {
		h.logger.Error("failed to delete milestone",
			zap.String("milestone_id", milestoneID),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "Failed to delete milestone")
		return
	}
	if !existed {
		respondError(w, http.StatusNotFound, "Milestone not found")
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// ReorderMilestones handles POST /goals/{goalID}/milestones/reorder.
func (h *MilestoneHandler) ReorderMilestones(w http.ResponseWriter, r *http.Request) {
	goalID := chi.URLParam(r, "goalID")

	var req ReorderMilestonesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		respondError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	if _, ok := h.verifyGoalOwnership(w, r, goalID); !ok {
		return
	}

	milestones, err := h.milestones.Reorder(r.Context(), goalID, req.OrderedIDs)
	if err != nil {
		h.logger.Error("failed to reorder milestones",
			zap.String("goal_id", goalID),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "Failed to reorder milestones")
		return
	}
	respondJSON(w, http.StatusOK, milestoneListResponse(milestones))
}
