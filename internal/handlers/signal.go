package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/waypointhq/onboarding-backend/internal/services"
)

// SignalHandler receives completion webhooks from the assessment and
// training subsystems. Signals are idempotent: replays and signals for
// non-current phases are acknowledged without effect.
type SignalHandler struct {
	advanceService services.AdvanceService
}

func NewSignalHandler(advanceService services.AdvanceService) *SignalHandler {
	return &SignalHandler{advanceService: advanceService}
}

func (sh *SignalHandler) AssessmentCompleted(c *gin.Context) {
	var req struct {
		PhaseID      uuid.UUID `json:"phase_id" binding:"required"`
		AssessmentID uuid.UUID `json:"assessment_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", fmt.Errorf("invalid request body"))
		return
	}
	if err := sh.advanceService.HandleAssessmentCompleted(c.Request.Context(), req.PhaseID, req.AssessmentID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"accepted": true})
}

func (sh *SignalHandler) TrainingCompleted(c *gin.Context) {
	var req struct {
		PhaseID              uuid.UUID `json:"phase_id" binding:"required"`
		TrainingAssignmentID uuid.UUID `json:"training_assignment_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", fmt.Errorf("invalid request body"))
		return
	}
	if err := sh.advanceService.HandleTrainingCompleted(c.Request.Context(), req.PhaseID, req.TrainingAssignmentID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"accepted": true})
}
