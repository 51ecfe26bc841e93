package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/audition/internal/models"
	"github.com/yoockh/audition/internal/services"
	"github.com/yoockh/audition/internal/utils"
)

type AuditionHandler struct {
	auditions services.AuditionService
	answers   services.AnswerService
	maxAudio  int64
}

func NewAuditionHandler(auditions services.AuditionService, answers services.AnswerService, maxAudio int64) *AuditionHandler {
	return &AuditionHandler{auditions: auditions, answers: answers, maxAudio: maxAudio}
}

type StartSessionRequest struct {
	UserID        string `json:"user_id"`
	OpportunityID string `json:"opportunity_id" binding:"required"`
}

type StartSessionResponse struct {
	SessionID      string            `json:"session_id"`
	SubmissionID   string            `json:"submission_id"`
	OpportunityID  string            `json:"opportunity_id"`
	Status         string            `json:"status"`
	GlobalSeconds  int               `json:"global_seconds"`
	GlobalDeadline time.Time         `json:"global_deadline"`
	Questions      []models.Question `json:"questions"`
}

func (h *AuditionHandler) StartSession(c *gin.Context) {
	const op = "AuditionHandler.StartSession"

	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid request body", err))
		return
	}
	userID, ok := resolveUserID(c, op, req.UserID)
	if !ok {
		return
	}

	out, err := h.auditions.Start(c.Request.Context(), userID, req.OpportunityID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, StartSessionResponse{
		SessionID:      out.Session.SessionID,
		SubmissionID:   out.Submission.ID,
		OpportunityID:  out.Submission.OpportunityID,
		Status:         out.Submission.Status,
		GlobalSeconds:  out.GlobalSeconds,
		GlobalDeadline: out.Submission.GlobalDeadline,
		Questions:      out.Questions,
	})
}

func (h *AuditionHandler) GetSession(c *gin.Context) {
	const op = "AuditionHandler.GetSession"

	userID, ok := resolveUserID(c, op, c.Query("user_id"))
	if !ok {
		return
	}

	sess, err := h.auditions.Get(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	// basic authorization
	if sess.UserID != userID {
		writeError(c, utils.E(utils.CodeForbidden, op, "forbidden", nil))
		return
	}
	c.JSON(http.StatusOK, sess)
}

type AnswerReceipt struct {
	AnswerID         string `json:"answer_id"`
	QuestionID       string `json:"question_id"`
	AudioURL         string `json:"audio_url"`
	Transcript       string `json:"transcript"`
	TranscriptStatus string `json:"transcript_status"`
}

// SubmitAnswer accepts one recorded answer as multipart/form-data with the
// audio in the "audio" part.
func (h *AuditionHandler) SubmitAnswer(c *gin.Context) {
	const op = "AuditionHandler.SubmitAnswer"

	// room for the form fields around the audio
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxAudio+1<<20)

	fh, err := c.FormFile("audio")
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "missing multipart field 'audio'", err))
		return
	}

	userID, ok := resolveUserID(c, op, c.PostForm("user_id"))
	if !ok {
		return
	}

	index, err := strconv.Atoi(c.DefaultPostForm("question_index", "0"))
	if err != nil || index < 0 {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "question_index must be a non-negative integer", err))
		return
	}
	duration, _ := strconv.ParseFloat(c.PostForm("duration_seconds"), 64)

	file, err := fh.Open()
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, op, "failed to open upload", err))
		return
	}
	defer file.Close()

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = contentTypeFromName(fh.Filename)
	}

	out, err := h.answers.Submit(c.Request.Context(), services.SubmitAnswer{
		SessionID:       c.PostForm("session_id"),
		UserID:          userID,
		OpportunityID:   c.PostForm("opportunity_id"),
		QuestionID:      c.PostForm("question_id"),
		QuestionText:    c.PostForm("question_text"),
		QuestionIndex:   index,
		DurationSeconds: duration,
		ContentType:     contentType,
		Size:            fh.Size,
		Audio:           file,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, AnswerReceipt{
		AnswerID:         out.Answer.ID,
		QuestionID:       out.Answer.QuestionID,
		AudioURL:         out.AudioURL,
		Transcript:       out.Answer.Transcript,
		TranscriptStatus: out.Answer.TranscriptStatus,
	})
}

func contentTypeFromName(name string) string {
	switch {
	case strings.HasSuffix(name, ".wav"):
		return "audio/wav"
	case strings.HasSuffix(name, ".ogg"):
		return "audio/ogg"
	case strings.HasSuffix(name, ".mp3"):
		return "audio/mpeg"
	case strings.HasSuffix(name, ".webm"):
		return "audio/webm"
	default:
		return ""
	}
}

type EndSessionRequest struct {
	UserID          string `json:"user_id"`
	Status          string `json:"status" binding:"required"`
	DurationSeconds int    `json:"duration_seconds"`

	// reported by the client for logging; the server counts stored answers
	Answered int `json:"answered"`
	Skipped  int `json:"skipped"`
}

func (h *AuditionHandler) EndSession(c *gin.Context) {
	const op = "AuditionHandler.EndSession"

	var req EndSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid request body", err))
		return
	}
	userID, ok := resolveUserID(c, op, req.UserID)
	if !ok {
		return
	}

	sub, err := h.auditions.End(c.Request.Context(), services.EndAudition{
		SessionID:       c.Param("session_id"),
		UserID:          userID,
		Status:          strings.ToLower(strings.TrimSpace(req.Status)),
		DurationSeconds: req.DurationSeconds,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}
