package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/audition/internal/models"
	"github.com/yoockh/audition/internal/services"
	"github.com/yoockh/audition/internal/utils"
)

type fakeOpportunities struct {
	list      func() ([]models.Opportunity, error)
	get       func(id string) (*models.Opportunity, error)
	questions func(id string) ([]models.Question, error)
}

func (f *fakeOpportunities) List(context.Context) ([]models.Opportunity, error) { return f.list() }
func (f *fakeOpportunities) Get(_ context.Context, id string) (*models.Opportunity, error) {
	return f.get(id)
}
func (f *fakeOpportunities) Questions(_ context.Context, id string) ([]models.Question, error) {
	return f.questions(id)
}
func (f *fakeOpportunities) InvalidateQuestions(context.Context, string) error { return nil }

type fakeAuditions struct {
	start func(userID, oppID string) (*services.StartedAudition, error)
	get   func(sessionID string) (*models.AuditionSession, error)
	end   func(in services.EndAudition) (*models.Submission, error)
}

func (f *fakeAuditions) Start(_ context.Context, userID, oppID string) (*services.StartedAudition, error) {
	return f.start(userID, oppID)
}
func (f *fakeAuditions) Get(_ context.Context, id string) (*models.AuditionSession, error) {
	return f.get(id)
}
func (f *fakeAuditions) End(_ context.Context, in services.EndAudition) (*models.Submission, error) {
	return f.end(in)
}

type fakeAnswers struct {
	submit func(in services.SubmitAnswer, audio []byte) (*services.SubmittedAnswer, error)
}

func (f *fakeAnswers) Submit(_ context.Context, in services.SubmitAnswer) (*services.SubmittedAnswer, error) {
	b, _ := io.ReadAll(in.Audio)
	return f.submit(in, b)
}
func (f *fakeAnswers) MarkTranscribing(context.Context, string) error { return nil }
func (f *fakeAnswers) RecordTranscript(context.Context, string, string, string, float64) error {
	return nil
}

type fakeSurveys struct {
	submit func(in services.SubmitSurvey) (*models.Survey, error)
}

func (f *fakeSurveys) Submit(_ context.Context, in services.SubmitSurvey) (*models.Survey, error) {
	return f.submit(in)
}

type fakeReviews struct {
	list func(oppID string, limit int) ([]services.SubmissionReview, error)
}

func (f *fakeReviews) ListSubmissions(_ context.Context, oppID string, limit int) ([]services.SubmissionReview, error) {
	return f.list(oppID, limit)
}

func init() { gin.SetMode(gin.TestMode) }

// asUser simulates a verified token.
func asUser(id string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id != "" {
			c.Set("user_id", id)
		}
		c.Next()
	}
}

func serve(r *gin.Engine, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) APIError {
	t.Helper()
	var e APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	return e
}

func TestOpportunityHandler(t *testing.T) {
	h := NewOpportunityHandler(&fakeOpportunities{
		list: func() ([]models.Opportunity, error) {
			return []models.Opportunity{{ID: "opp-1", Title: "Backend"}}, nil
		},
		get: func(id string) (*models.Opportunity, error) {
			return nil, utils.E(utils.CodeNotFound, "OpportunityService.Get", "opportunity not found", utils.ErrNotFound)
		},
		questions: func(id string) ([]models.Question, error) {
			return []models.Question{{ID: "q1", Prompt: "Hi", TimeLimitSeconds: 90, Position: 1}}, nil
		},
	})
	r := gin.New()
	r.GET("/opportunities", h.List)
	r.GET("/opportunities/:id", h.Get)
	r.GET("/opportunities/:id/questions", h.Questions)

	w := serve(r, http.MethodGet, "/opportunities", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"opportunities":[{"id":"opp-1"`)

	w = serve(r, http.MethodGet, "/opportunities/opp-1/questions", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var qr QuestionsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &qr))
	assert.Equal(t, "opp-1", qr.OpportunityID)
	require.Len(t, qr.Questions, 1)
	assert.Equal(t, 90, qr.Questions[0].TimeLimitSeconds)

	w = serve(r, http.MethodGet, "/opportunities/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, APIError{Code: utils.CodeNotFound, Message: "opportunity not found"}, decodeError(t, w))
}

func startedAudition() *services.StartedAudition {
	deadline := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	return &services.StartedAudition{
		Submission:    &models.Submission{ID: "sub-1", SessionID: "sess-1", OpportunityID: "opp-1", Status: models.SubmissionInProgress, GlobalDeadline: deadline},
		Session:       &models.AuditionSession{SessionID: "sess-1", UserID: "u1"},
		Questions:     []models.Question{{ID: "q1", Prompt: "Hi", TimeLimitSeconds: 90}},
		GlobalSeconds: 1800,
	}
}

func TestAuditionHandler_StartSession(t *testing.T) {
	var gotUser string
	auditions := &fakeAuditions{start: func(userID, oppID string) (*services.StartedAudition, error) {
		gotUser = userID
		if oppID == "dup" {
			return nil, utils.E(utils.CodeConflict, "AuditionService.Start", "audition already started for this opportunity", utils.ErrConflict)
		}
		return startedAudition(), nil
	}}

	t.Run("open mode uses body user", func(t *testing.T) {
		r := gin.New()
		r.POST("/sessions", NewAuditionHandler(auditions, &fakeAnswers{}, 1<<20).StartSession)

		w := serve(r, http.MethodPost, "/sessions", jsonBody(t, map[string]string{"user_id": "u1", "opportunity_id": "opp-1"}), "application/json")
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Equal(t, "u1", gotUser)

		var resp StartSessionResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "sess-1", resp.SessionID)
		assert.Equal(t, "sub-1", resp.SubmissionID)
		assert.Equal(t, 1800, resp.GlobalSeconds)
		require.Len(t, resp.Questions, 1)
	})

	t.Run("duplicate is a conflict", func(t *testing.T) {
		r := gin.New()
		r.POST("/sessions", NewAuditionHandler(auditions, &fakeAnswers{}, 1<<20).StartSession)

		w := serve(r, http.MethodPost, "/sessions", jsonBody(t, map[string]string{"user_id": "u1", "opportunity_id": "dup"}), "application/json")
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, utils.CodeConflict, decodeError(t, w).Code)
	})

	t.Run("token subject must match body", func(t *testing.T) {
		r := gin.New()
		r.Use(asUser("u1"))
		r.POST("/sessions", NewAuditionHandler(auditions, &fakeAnswers{}, 1<<20).StartSession)

		w := serve(r, http.MethodPost, "/sessions", jsonBody(t, map[string]string{"user_id": "u2", "opportunity_id": "opp-1"}), "application/json")
		assert.Equal(t, http.StatusForbidden, w.Code)

		gotUser = ""
		w = serve(r, http.MethodPost, "/sessions", jsonBody(t, map[string]string{"opportunity_id": "opp-1"}), "application/json")
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "u1", gotUser)
	})

	t.Run("missing user and bad body", func(t *testing.T) {
		r := gin.New()
		r.POST("/sessions", NewAuditionHandler(auditions, &fakeAnswers{}, 1<<20).StartSession)

		w := serve(r, http.MethodPost, "/sessions", jsonBody(t, map[string]string{"opportunity_id": "opp-1"}), "application/json")
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		w = serve(r, http.MethodPost, "/sessions", strings.NewReader("{"), "application/json")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAuditionHandler_GetSession(t *testing.T) {
	h := NewAuditionHandler(&fakeAuditions{get: func(id string) (*models.AuditionSession, error) {
		return &models.AuditionSession{SessionID: id, UserID: "u1", CurrentIndex: 2}, nil
	}}, &fakeAnswers{}, 1<<20)
	r := gin.New()
	r.GET("/sessions/:session_id", h.GetSession)

	w := serve(r, http.MethodGet, "/sessions/sess-1?user_id=u1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"current_index":2`)

	w = serve(r, http.MethodGet, "/sessions/sess-1?user_id=u2", nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func multipartAnswer(t *testing.T, fields map[string]string, audio []byte, partType string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if audio != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="audio"; filename="q1.wav"`)
		if partType != "" {
			h.Set("Content-Type", partType)
		}
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(audio)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestAuditionHandler_SubmitAnswer(t *testing.T) {
	var got services.SubmitAnswer
	var gotAudio []byte
	answers := &fakeAnswers{submit: func(in services.SubmitAnswer, audio []byte) (*services.SubmittedAnswer, error) {
		got, gotAudio = in, audio
		if in.QuestionID == "boom" {
			return nil, utils.E(utils.CodeUnavailable, "AnswerService.Submit", "failed to store audio", nil)
		}
		return &services.SubmittedAnswer{
			Answer:   &models.Answer{ID: "ans-1", QuestionID: in.QuestionID, TranscriptStatus: models.TranscriptPending},
			AudioURL: "https://signed.example/ans-1",
		}, nil
	}}
	r := gin.New()
	r.POST("/submit-answer", NewAuditionHandler(&fakeAuditions{}, answers, 1<<20).SubmitAnswer)

	fields := map[string]string{
		"session_id":       "sess-1",
		"user_id":          "u1",
		"opportunity_id":   "opp-1",
		"question_id":      "q1",
		"question_text":    "Tell me about yourself",
		"question_index":   "2",
		"duration_seconds": "12.50",
	}

	body, ct := multipartAnswer(t, fields, []byte("RIFFdata"), "audio/wav")
	w := serve(r, http.MethodPost, "/submit-answer", body, ct)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"answer_id":"ans-1","question_id":"q1","audio_url":"https://signed.example/ans-1","transcript":"","transcript_status":"pending"}`, w.Body.String())
	assert.Equal(t, "sess-1", got.SessionID)
	assert.Equal(t, 2, got.QuestionIndex)
	assert.InDelta(t, 12.5, got.DurationSeconds, 1e-9)
	assert.Equal(t, "audio/wav", got.ContentType)
	assert.EqualValues(t, 8, got.Size)
	assert.Equal(t, "RIFFdata", string(gotAudio))

	// generic part type falls back to the file name
	body, ct = multipartAnswer(t, fields, []byte("RIFF"), "application/octet-stream")
	w = serve(r, http.MethodPost, "/submit-answer", body, ct)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio/wav", got.ContentType)

	body, ct = multipartAnswer(t, fields, nil, "")
	w = serve(r, http.MethodPost, "/submit-answer", body, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	bad := map[string]string{"user_id": "u1", "question_index": "-1"}
	body, ct = multipartAnswer(t, bad, []byte("RIFF"), "audio/wav")
	w = serve(r, http.MethodPost, "/submit-answer", body, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	fields["question_id"] = "boom"
	body, ct = multipartAnswer(t, fields, []byte("RIFF"), "audio/wav")
	w = serve(r, http.MethodPost, "/submit-answer", body, ct)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "failed to store audio", decodeError(t, w).Message)
}

func TestAuditionHandler_EndSession(t *testing.T) {
	var got services.EndAudition
	h := NewAuditionHandler(&fakeAuditions{end: func(in services.EndAudition) (*models.Submission, error) {
		got = in
		return &models.Submission{ID: "sub-1", Status: in.Status, AnsweredCount: 2}, nil
	}}, &fakeAnswers{}, 1<<20)
	r := gin.New()
	r.POST("/sessions/:session_id/end", h.EndSession)

	w := serve(r, http.MethodPost, "/sessions/sess-1/end", jsonBody(t, map[string]any{
		"user_id": "u1", "status": "Completed", "answered": 2, "skipped": 1, "duration_seconds": 105,
	}), "application/json")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, services.EndAudition{SessionID: "sess-1", UserID: "u1", Status: "completed", DurationSeconds: 105}, got)

	w = serve(r, http.MethodPost, "/sessions/sess-1/end", jsonBody(t, map[string]any{"user_id": "u1"}), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSurveyHandler(t *testing.T) {
	var got services.SubmitSurvey
	h := NewSurveyHandler(&fakeSurveys{submit: func(in services.SubmitSurvey) (*models.Survey, error) {
		got = in
		if in.Rating > 5 {
			return nil, utils.E(utils.CodeInvalidArgument, "SurveyService.Submit", "rating must be between 1 and 5", nil)
		}
		return &models.Survey{ID: "sv-1"}, nil
	}})
	r := gin.New()
	r.POST("/submit-survey", h.Submit)

	w := serve(r, http.MethodPost, "/submit-survey", jsonBody(t, map[string]any{
		"session_id": "sess-1", "user_id": "u1", "rating": 4, "reason": "smooth",
	}), "application/json")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"success":true,"survey_id":"sv-1"}`, w.Body.String())
	assert.Equal(t, "smooth", got.Reason)

	w = serve(r, http.MethodPost, "/submit-survey", jsonBody(t, map[string]any{
		"session_id": "sess-1", "user_id": "u1", "rating": 9,
	}), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReviewHandler(t *testing.T) {
	var gotLimit int
	h := NewReviewHandler(&fakeReviews{list: func(oppID string, limit int) ([]services.SubmissionReview, error) {
		gotLimit = limit
		sub := &models.Submission{ID: "sub-1", OpportunityID: oppID}
		return []services.SubmissionReview{{
			Submission: sub,
			Answers:    []services.AnswerReview{{Answer: models.Answer{ID: "a1"}, AudioURL: "https://signed"}},
		}}, nil
	}})
	r := gin.New()
	r.GET("/submissions", h.ListSubmissions)

	w := serve(r, http.MethodGet, "/submissions?opportunity_id=opp-1&limit=5", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, gotLimit)

	var out struct {
		Submissions []struct {
			ID      string `json:"id"`
			Answers []struct {
				ID       string `json:"id"`
				AudioURL string `json:"audio_url"`
			} `json:"answers"`
		} `json:"submissions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out.Submissions, 1)
	assert.Equal(t, "sub-1", out.Submissions[0].ID)
	require.Len(t, out.Submissions[0].Answers, 1)
	assert.Equal(t, "https://signed", out.Submissions[0].Answers[0].AudioURL)
}
