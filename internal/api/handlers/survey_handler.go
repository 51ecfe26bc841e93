package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/audition/internal/services"
	"github.com/yoockh/audition/internal/utils"
)

type SurveyHandler struct {
	svc services.SurveyService
}

func NewSurveyHandler(svc services.SurveyService) *SurveyHandler {
	return &SurveyHandler{svc: svc}
}

type SubmitSurveyRequest struct {
	SessionID    string `json:"session_id"`
	SubmissionID string `json:"submission_id"`
	UserID       string `json:"user_id"`
	Rating       int    `json:"rating"`
	Reason       string `json:"reason"`
}

func (h *SurveyHandler) Submit(c *gin.Context) {
	const op = "SurveyHandler.Submit"

	var req SubmitSurveyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid request body", err))
		return
	}
	userID, ok := resolveUserID(c, op, req.UserID)
	if !ok {
		return
	}

	sv, err := h.svc.Submit(c.Request.Context(), services.SubmitSurvey{
		SessionID:    req.SessionID,
		SubmissionID: req.SubmissionID,
		UserID:       userID,
		Rating:       req.Rating,
		Reason:       req.Reason,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "survey_id": sv.ID})
}
