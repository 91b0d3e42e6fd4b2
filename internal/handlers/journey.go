package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/waypointhq/onboarding-backend/internal/domain"
	"github.com/waypointhq/onboarding-backend/internal/middleware"
	"github.com/waypointhq/onboarding-backend/internal/services"
)

type JourneyHandler struct {
	journeyService  services.JourneyService
	progressService services.ProgressService
}

func NewJourneyHandler(journeyService services.JourneyService, progressService services.ProgressService) *JourneyHandler {
	return &JourneyHandler{journeyService: journeyService, progressService: progressService}
}

type createJourneyRequest struct {
	EmployeeID   uuid.UUID            `json:"employee_id" binding:"required"`
	EmployeeType domain.EmployeeType  `json:"employee_type" binding:"required"`
	StartDate    *time.Time           `json:"start_date"`
	CustomPhases []domain.PhaseConfig `json:"custom_phases"`
}

func (jh *JourneyHandler) Create(c *gin.Context) {
	var req createJourneyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", fmt.Errorf("invalid request body"))
		return
	}
	journey, phases, err := jh.journeyService.CreateJourney(c.Request.Context(), services.CreateJourneyInput{
		EmployeeID:   req.EmployeeID,
		EmployeeType: req.EmployeeType,
		CustomPhases: req.CustomPhases,
		StartDate:    req.StartDate,
		ActorUserID:  middleware.Actor(c),
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"journey": journey, "phases": phases})
}

func (jh *JourneyHandler) Get(c *gin.Context) {
	journeyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("invalid journey id"))
		return
	}
	journey, phases, err := jh.journeyService.GetJourney(c.Request.Context(), journeyID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"journey": journey, "phases": phases})
}

func (jh *JourneyHandler) Progress(c *gin.Context) {
	journeyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("invalid journey id"))
		return
	}
	report, err := jh.progressService.CalculatePhaseProgress(c.Request.Context(), journeyID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, report)
}

func (jh *JourneyHandler) Activities(c *gin.Context) {
	journeyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("invalid journey id"))
		return
	}
	activities, err := jh.journeyService.ListActivities(c.Request.Context(), journeyID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"activities": activities})
}

func (jh *JourneyHandler) Pause(c *gin.Context) {
	journeyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("invalid journey id"))
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)
	if err := jh.journeyService.PauseJourney(c.Request.Context(), journeyID, middleware.Actor(c), req.Reason); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"status": string(domain.JourneyStatusPaused)})
}

func (jh *JourneyHandler) Resume(c *gin.Context) {
	journeyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("invalid journey id"))
		return
	}
	if err := jh.journeyService.ResumeJourney(c.Request.Context(), journeyID, middleware.Actor(c)); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"status": string(domain.JourneyStatusInProgress)})
}
