// Package upload submits captured answers to the backend. It makes exactly one
// attempt per call; retrying is the caller's decision.
package upload

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/audition/internal/audition"
	"github.com/yoockh/audition/internal/client"
	"github.com/yoockh/audition/internal/utils"
)

// AnswerAPI is the part of the backend client the uploader needs.
type AnswerAPI interface {
	SubmitAnswer(ctx context.Context, s client.AnswerSubmission) (*client.AnswerReceipt, error)
}

type Uploader struct {
	api           AnswerAPI
	userID        string
	opportunityID string
	timeout       time.Duration
	log           *logrus.Entry
}

func New(api AnswerAPI, userID, opportunityID string, log *logrus.Logger) *Uploader {
	return &Uploader{
		api:           api,
		userID:        userID,
		opportunityID: opportunityID,
		timeout:       90 * time.Second,
		log:           log.WithField("component", "uploader"),
	}
}

func (u *Uploader) Submit(ctx context.Context, sessionID string, q audition.Question, c audition.CapturedAnswer) audition.UploadResult {
	const op = "Uploader.Submit"

	if c.Empty() {
		return audition.UploadResult{Err: utils.E(utils.CodeInvalidArgument, op, "nothing was recorded", nil)}
	}

	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	log := u.log.WithFields(logrus.Fields{
		"session_id":  sessionID,
		"question_id": q.ID,
		"bytes":       len(c.Payload),
	})

	rc, err := u.api.SubmitAnswer(ctx, client.AnswerSubmission{
		SessionID:       sessionID,
		UserID:          u.userID,
		OpportunityID:   u.opportunityID,
		QuestionID:      q.ID,
		QuestionText:    q.Text,
		QuestionIndex:   q.Position,
		DurationSeconds: c.DurationSeconds,
		ContentType:     c.ContentType,
		Audio:           c.Payload,
	})
	if err != nil {
		log.WithError(err).Warn("answer upload failed")
		return audition.UploadResult{Err: err}
	}

	log.WithField("answer_id", rc.AnswerID).Info("answer uploaded")
	return audition.UploadResult{
		Success:        true,
		RemoteAnswerID: rc.AnswerID,
		AudioURL:       rc.AudioURL,
		Transcript:     rc.Transcript,
	}
}
