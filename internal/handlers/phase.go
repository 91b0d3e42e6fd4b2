package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/waypointhq/onboarding-backend/internal/domain"
	"github.com/waypointhq/onboarding-backend/internal/middleware"
	"github.com/waypointhq/onboarding-backend/internal/services"
)

type PhaseHandler struct {
	phaseService   services.PhaseService
	advanceService services.AdvanceService
}

func NewPhaseHandler(phaseService services.PhaseService, advanceService services.AdvanceService) *PhaseHandler {
	return &PhaseHandler{phaseService: phaseService, advanceService: advanceService}
}

type insertPhaseRequest struct {
	PhaseType    string `json:"phase_type"`
	Title        string `json:"title" binding:"required"`
	Description  string `json:"description"`
	DurationDays int    `json:"duration_days" binding:"required"`
	InsertAfter  *int   `json:"insert_after_phase_number"`
}

func (ph *PhaseHandler) Insert(c *gin.Context) {
	journeyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("invalid journey id"))
		return
	}
	var req insertPhaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", fmt.Errorf("invalid request body"))
		return
	}
	phase, err := ph.phaseService.InsertPhase(c.Request.Context(), journeyID, domain.PhaseConfig{
		PhaseType:    req.PhaseType,
		Title:        req.Title,
		Description:  req.Description,
		DurationDays: req.DurationDays,
	}, req.InsertAfter, middleware.Actor(c))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"phase": phase})
}

func (ph *PhaseHandler) Update(c *gin.Context) {
	phaseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("invalid phase id"))
		return
	}
	var req struct {
		Title        *string `json:"title"`
		Description  *string `json:"description"`
		DurationDays *int    `json:"duration_days"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", fmt.Errorf("invalid request body"))
		return
	}
	phase, err := ph.phaseService.UpdatePhaseDetails(c.Request.Context(), phaseID, services.UpdatePhaseInput{
		Title:        req.Title,
		Description:  req.Description,
		DurationDays: req.DurationDays,
	}, middleware.Actor(c))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"phase": phase})
}

func (ph *PhaseHandler) Delete(c *gin.Context) {
	phaseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("invalid phase id"))
		return
	}
	if err := ph.phaseService.DeletePhase(c.Request.Context(), phaseID, middleware.Actor(c)); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}

func (ph *PhaseHandler) Skip(c *gin.Context) {
	phaseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("invalid phase id"))
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)
	if err := ph.advanceService.SkipJourneyPhase(c.Request.Context(), phaseID, middleware.Actor(c), req.Reason); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"skipped": true})
}

func (ph *PhaseHandler) Complete(c *gin.Context) {
	phaseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("invalid phase id"))
		return
	}
	if err := ph.advanceService.CompletePhase(c.Request.Context(), phaseID, middleware.Actor(c)); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"completed": true})
}

func (ph *PhaseHandler) LinkAssessment(c *gin.Context) {
	phaseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("invalid phase id"))
		return
	}
	var req struct {
		AssessmentID uuid.UUID `json:"assessment_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", fmt.Errorf("invalid request body"))
		return
	}
	if err := ph.advanceService.LinkAssessmentToPhase(c.Request.Context(), phaseID, req.AssessmentID, middleware.Actor(c)); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"linked": true})
}

func (ph *PhaseHandler) LinkTraining(c *gin.Context) {
	phaseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("invalid phase id"))
		return
	}
	var req struct {
		TrainingAssignmentID uuid.UUID `json:"training_assignment_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", fmt.Errorf("invalid request body"))
		return
	}
	if err := ph.advanceService.LinkTrainingToPhase(c.Request.Context(), phaseID, req.TrainingAssignmentID, middleware.Actor(c)); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"linked": true})
}
