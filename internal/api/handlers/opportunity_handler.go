package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/audition/internal/models"
	"github.com/yoockh/audition/internal/services"
)

type OpportunityHandler struct {
	svc services.OpportunityService
}

func NewOpportunityHandler(svc services.OpportunityService) *OpportunityHandler {
	return &OpportunityHandler{svc: svc}
}

type QuestionsResponse struct {
	OpportunityID string            `json:"opportunity_id"`
	Questions     []models.Question `json:"questions"`
}

func (h *OpportunityHandler) List(c *gin.Context) {
	rows, err := h.svc.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"opportunities": rows})
}

func (h *OpportunityHandler) Get(c *gin.Context) {
	o, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *OpportunityHandler) Questions(c *gin.Context) {
	id := c.Param("id")
	qs, err := h.svc.Questions(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, QuestionsResponse{OpportunityID: id, Questions: qs})
}
