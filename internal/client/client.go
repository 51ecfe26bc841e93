// Package client talks to the audition backend on behalf of the candidate.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/audition/internal/audition"
	"github.com/yoockh/audition/internal/utils"
)

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *logrus.Entry
}

type Option func(*Client)

func WithToken(token string) Option { return func(c *Client) { c.token = token } }

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

func WithLogger(l *logrus.Logger) Option {
	return func(c *Client) { c.log = l.WithField("component", "api_client") }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
		log:     logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type apiError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

type Opportunity struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Company     string   `json:"company"`
	Description string   `json:"description"`
	Skills      []string `json:"skills"`
}

type SessionInfo struct {
	SessionID      string              `json:"session_id"`
	SubmissionID   string              `json:"submission_id"`
	OpportunityID  string              `json:"opportunity_id"`
	GlobalSeconds  int                 `json:"global_seconds"`
	GlobalDeadline time.Time           `json:"global_deadline"`
	Questions      []audition.Question `json:"-"`
}

type AnswerSubmission struct {
	SessionID       string
	UserID          string
	OpportunityID   string
	QuestionID      string
	QuestionText    string
	QuestionIndex   int
	DurationSeconds float64
	ContentType     string
	Audio           []byte
}

type AnswerReceipt struct {
	AnswerID         string `json:"answer_id"`
	AudioURL         string `json:"audio_url"`
	Transcript       string `json:"transcript"`
	TranscriptStatus string `json:"transcript_status"`
	QuestionID       string `json:"question_id"`
}

type EndSessionRequest struct {
	UserID          string `json:"user_id"`
	Status          string `json:"status"`
	Answered        int    `json:"answered"`
	Skipped         int    `json:"skipped"`
	DurationSeconds int    `json:"duration_seconds"`
}

type SurveyRequest struct {
	SessionID    string `json:"session_id,omitempty"`
	SubmissionID string `json:"submission_id,omitempty"`
	UserID       string `json:"user_id"`
	Rating       int    `json:"rating"`
	Reason       string `json:"reason,omitempty"`
}

func (c *Client) ListOpportunities(ctx context.Context) ([]Opportunity, error) {
	const op = "Client.ListOpportunities"

	var out struct {
		Opportunities []Opportunity `json:"opportunities"`
	}
	if err := c.doJSON(ctx, op, http.MethodGet, "/api/opportunities", nil, &out); err != nil {
		return nil, err
	}
	return out.Opportunities, nil
}

// FetchQuestions returns the opportunity's questions in order, adapted to the
// canonical question type.
func (c *Client) FetchQuestions(ctx context.Context, opportunityID string) ([]audition.Question, error) {
	const op = "Client.FetchQuestions"

	if opportunityID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "opportunity id is required", nil)
	}

	var out questionsEnvelope
	path := "/api/opportunities/" + url.PathEscape(opportunityID) + "/questions"
	if err := c.doJSON(ctx, op, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return ToQuestions(out.Questions), nil
}

func (c *Client) StartSession(ctx context.Context, userID, opportunityID string) (*SessionInfo, error) {
	const op = "Client.StartSession"

	if userID == "" || opportunityID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user id and opportunity id are required", nil)
	}

	body := map[string]string{"user_id": userID, "opportunity_id": opportunityID}
	var out struct {
		SessionInfo
		Questions []WireQuestion `json:"questions"`
	}
	if err := c.doJSON(ctx, op, http.MethodPost, "/api/audition/sessions", body, &out); err != nil {
		return nil, err
	}
	info := out.SessionInfo
	info.Questions = ToQuestions(out.Questions)
	return &info, nil
}

// SubmitAnswer uploads one recorded answer as multipart form data.
func (c *Client) SubmitAnswer(ctx context.Context, s AnswerSubmission) (*AnswerReceipt, error) {
	const op = "Client.SubmitAnswer"

	if len(s.Audio) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "audio payload is empty", nil)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"session_id", s.SessionID},
		{"user_id", s.UserID},
		{"opportunity_id", s.OpportunityID},
		{"question_id", s.QuestionID},
		{"question_text", s.QuestionText},
		{"question_index", strconv.Itoa(s.QuestionIndex)},
		{"duration_seconds", strconv.FormatFloat(s.DurationSeconds, 'f', 2, 64)},
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, utils.E(utils.CodeInternal, op, "failed to build form", err)
		}
	}

	contentType := s.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio"; filename="%s%s"`, s.QuestionID, extensionFor(contentType)))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to build form", err)
	}
	if _, err := part.Write(s.Audio); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to build form", err)
	}
	if err := mw.Close(); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to build form", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/audition/submit-answer", &buf)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to build request", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out AnswerReceipt
	if err := c.do(req, op, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) EndSession(ctx context.Context, sessionID string, in EndSessionRequest) error {
	const op = "Client.EndSession"
	path := "/api/audition/sessions/" + url.PathEscape(sessionID) + "/end"
	return c.doJSON(ctx, op, http.MethodPost, path, in, nil)
}

func (c *Client) SubmitSurvey(ctx context.Context, in SurveyRequest) error {
	const op = "Client.SubmitSurvey"

	if in.Rating < 1 || in.Rating > 5 {
		return utils.E(utils.CodeInvalidArgument, op, "rating must be between 1 and 5", nil)
	}
	return c.doJSON(ctx, op, http.MethodPost, "/api/audition/submit-survey", in, nil)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return utils.E(utils.CodeInternal, op, "failed to encode request", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to build request", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, op, out)
}

func (c *Client) do(req *http.Request, op string, out any) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if req.Context().Err() != nil {
			return utils.E(utils.CodeTimeout, op, "request cancelled", err)
		}
		return utils.E(utils.CodeUnavailable, op, "backend unreachable", err)
	}
	defer resp.Body.Close()

	c.log.WithFields(logrus.Fields{
		"request_id": req.Header.Get("X-Request-Id"),
		"method":     req.Method,
		"path":       req.URL.Path,
		"status":     resp.StatusCode,
		"latency_ms": time.Since(start).Milliseconds(),
	}).Debug("api call")

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return utils.E(utils.CodeUnavailable, op, "failed to read response", err)
	}

	if resp.StatusCode >= 300 {
		var ae apiError
		_ = json.Unmarshal(raw, &ae)
		code := ae.Code
		if code == "" {
			code = utils.CodeFromStatus(resp.StatusCode)
		}
		msg := ae.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return utils.E(code, op, msg, fmt.Errorf("status %d", resp.StatusCode))
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return utils.E(utils.CodeInternal, op, "invalid response body", err)
	}
	return nil
}

func extensionFor(contentType string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "webm"):
		return ".webm"
	case strings.Contains(ct, "ogg"):
		return ".ogg"
	case strings.Contains(ct, "wav"):
		return ".wav"
	case strings.Contains(ct, "mpeg"), strings.Contains(ct, "mp3"):
		return ".mp3"
	default:
		return ".bin"
	}
}
