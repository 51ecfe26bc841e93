package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/audition/internal/api/handlers"
	"github.com/yoockh/audition/internal/api/middleware"
	"github.com/yoockh/audition/internal/metrics"
	"github.com/yoockh/audition/internal/models"
)

type Deps struct {
	Opportunity *handlers.OpportunityHandler
	Audition    *handlers.AuditionHandler
	Survey      *handlers.SurveyHandler
	Review      *handlers.ReviewHandler
	WS          *handlers.WSHandler
	Auth        middleware.JWTConfig
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	api.Use(middleware.JWTAuth(d.Auth))

	api.GET("/opportunities", d.Opportunity.List)
	api.GET("/opportunities/:id", d.Opportunity.Get)
	api.GET("/opportunities/:id/questions", d.Opportunity.Questions)

	api.POST("/audition/sessions", d.Audition.StartSession)
	api.GET("/audition/sessions/:session_id", d.Audition.GetSession)
	api.POST("/audition/sessions/:session_id/end", d.Audition.EndSession)
	api.POST("/audition/submit-answer", d.Audition.SubmitAnswer)
	api.POST("/audition/submit-survey", d.Survey.Submit)

	reviewers := api.Group("/")
	reviewers.Use(middleware.RequireRole(models.ReviewerRoles...))
	reviewers.GET("/submissions", d.Review.ListSubmissions)

	// WebSocket
	ws := r.Group("/ws")
	ws.Use(middleware.JWTAuth(d.Auth))
	ws.GET("/audition/:session_id", d.WS.AuditionStatus)
}
