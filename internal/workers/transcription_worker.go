package workers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/audition/internal/metrics"
	"github.com/yoockh/audition/internal/models"
	"github.com/yoockh/audition/internal/providers/stt"
	"github.com/yoockh/audition/internal/queue"
	"github.com/yoockh/audition/internal/storage"
)

// TranscriptStore is the part of the answer service the worker writes to.
type TranscriptStore interface {
	MarkTranscribing(ctx context.Context, answerID string) error
	RecordTranscript(ctx context.Context, answerID, status, transcript string, confidence float64) error
}

type TranscriptionWorkerPool struct {
	Redis      *redis.Client
	Answers    TranscriptStore
	Audio      storage.Reader
	STT        stt.Provider
	NumWorkers int

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string
	Language       string
	Block          time.Duration
	JobTimeout     time.Duration
}

func (p *TranscriptionWorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Answers == nil || p.Audio == nil || p.STT == nil {
		return errors.New("TranscriptionWorkerPool missing dependency: Redis/Answers/Audio/STT must be set")
	}
	if p.Stream == "" {
		p.Stream = "stream:transcribe"
	}
	if p.Group == "" {
		p.Group = "transcribers"
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 4
	}
	if p.Block <= 0 {
		p.Block = 5 * time.Second
	}
	if p.JobTimeout <= 0 {
		p.JobTimeout = 2 * time.Minute
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}

	err := p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	return nil
}

func (p *TranscriptionWorkerPool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    10,
			Block:    p.Block,
		}).Result()

		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			p.Logger.WithError(err).WithField("consumer", consumer).Warn("xreadgroup failed")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				p.handleMsg(ctx, msg)
				_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
			}
		}
	}
}

func (p *TranscriptionWorkerPool) handleMsg(ctx context.Context, msg redis.XMessage) {
	job, err := queue.ParseJob(msg.Values)
	if err != nil {
		p.Logger.WithError(err).WithField("redis_id", msg.ID).Warn("dropping transcription job")
		return
	}
	ctx, cancel := context.WithTimeout(ctx, p.JobTimeout)
	defer cancel()
	p.Process(ctx, job)
}

func normalizeLanguage(v string) string {
	v = strings.TrimSpace(v)
	switch v {
	case "id", "id-ID":
		return "id-ID"
	case "en", "en-US", "":
		return "en-US"
	default:
		return v
	}
}

// Process transcribes one answer. Every path ends with the answer in a
// terminal transcript status and a status event on the session channel.
func (p *TranscriptionWorkerPool) Process(ctx context.Context, job queue.TranscriptionJob) {
	log := p.Logger.WithFields(logrus.Fields{
		"answer_id":   job.AnswerID,
		"session_id":  job.SessionID,
		"question_id": job.QuestionID,
	})
	start := time.Now()

	if err := p.Answers.MarkTranscribing(ctx, job.AnswerID); err != nil {
		log.WithError(err).Warn("mark transcribing failed")
	}
	p.publish(ctx, job, models.TranscriptProcessing, "", 0)

	finish := func(status, text string, conf float64) {
		if err := p.Answers.RecordTranscript(ctx, job.AnswerID, status, text, conf); err != nil {
			log.WithError(err).Error("save transcript failed")
		}
		metrics.Transcribed(status, time.Since(start))
		p.publish(ctx, job, status, text, conf)
	}

	audio, err := p.Audio.Read(ctx, job.ObjectPath)
	if err != nil || len(audio) == 0 {
		log.WithError(err).Error("audio read failed")
		finish(models.TranscriptFailed, models.TranscriptUnavailable, 0)
		return
	}

	lang := job.Language
	if lang == "" {
		lang = p.Language
	}
	text, conf, err := p.STT.Transcribe(ctx, audio, job.ContentType, normalizeLanguage(lang))
	if err != nil {
		log.WithError(err).Error("stt failed")
		finish(models.TranscriptFailed, models.TranscriptUnavailable, 0)
		return
	}
	if strings.TrimSpace(text) == "" {
		finish(models.TranscriptDone, models.TranscriptNoSpeech, 0)
		return
	}
	finish(models.TranscriptDone, text, conf)
}

func (p *TranscriptionWorkerPool) publish(ctx context.Context, job queue.TranscriptionJob, status, text string, conf float64) {
	err := queue.PublishStatus(ctx, p.Redis, job.SessionID, queue.StatusEvent{
		AnswerID:      job.AnswerID,
		QuestionID:    job.QuestionID,
		QuestionIndex: job.QuestionIndex,
		Status:        status,
		Transcript:    text,
		Confidence:    conf,
	})
	if err != nil {
		p.Logger.WithError(err).WithField("answer_id", job.AnswerID).Warn("publish status failed")
	}
}
