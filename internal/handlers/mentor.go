package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/waypointhq/onboarding-backend/internal/middleware"
	"github.com/waypointhq/onboarding-backend/internal/services"
)

type MentorHandler struct {
	mentorService services.MentorService
}

func NewMentorHandler(mentorService services.MentorService) *MentorHandler {
	return &MentorHandler{mentorService: mentorService}
}

func (mh *MentorHandler) Assign(c *gin.Context) {
	phaseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("invalid phase id"))
		return
	}
	req := struct {
		MentorID uuid.UUID `json:"mentor_id" binding:"required"`
		Notify   *bool     `json:"notify"`
	}{}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", fmt.Errorf("invalid request body"))
		return
	}
	notify := req.Notify == nil || *req.Notify
	if err := mh.mentorService.AssignMentorToPhase(c.Request.Context(), phaseID, req.MentorID, notify, middleware.Actor(c)); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"assigned": true})
}

func (mh *MentorHandler) Remove(c *gin.Context) {
	phaseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("invalid phase id"))
		return
	}
	if err := mh.mentorService.RemoveMentorFromPhase(c.Request.Context(), phaseID, middleware.Actor(c)); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"removed": true})
}
