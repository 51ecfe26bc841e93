// Package session drives a candidate through a timed audition: one question at
// a time, a hard limit per question, a global clock over the whole audition,
// and an upload of every recorded answer before moving on.
//
// All mutable state is owned by the goroutine running Run. Commands, clock
// ticks and upload completions are events on that loop, so a question timeout
// and a manual stop can never both apply to the same recording.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/audition/internal/audition"
	"github.com/yoockh/audition/internal/audition/notify"
	"github.com/yoockh/audition/internal/audition/recorder"
	"github.com/yoockh/audition/internal/audition/timer"
	"github.com/yoockh/audition/internal/utils"
)

// Uploader submits one capture. It must not retry on its own.
type Uploader interface {
	Submit(ctx context.Context, sessionID string, q audition.Question, c audition.CapturedAnswer) audition.UploadResult
}

type Config struct {
	SessionID      string
	Questions      []audition.Question
	GlobalSeconds  int
	WarningSeconds int

	// AllowWithoutDevice lets the audition run when the microphone cannot be
	// acquired. Every question then times out unanswered.
	AllowWithoutDevice bool

	// FinalUploadTimeout bounds the best-effort submission made when the
	// global clock runs out. An upload already in flight is waited for in
	// clock ticks, so it is rounded to whole seconds.
	FinalUploadTimeout time.Duration

	// OnChange is called from the control loop after every processed event.
	OnChange func(Snapshot)
}

type Deps struct {
	Recorder *recorder.Recorder
	Uploader Uploader
	Notifier notify.Notifier
	Clock    timer.Clock
	Logger   *logrus.Logger
}

type commandKind int

const (
	cmdStop commandKind = iota
	cmdAdvance
	cmdRetry
	cmdSkip
)

type command struct {
	kind  commandKind
	reply chan error
}

type uploadDone struct {
	index  int
	result audition.UploadResult
}

type Controller struct {
	cfg   Config
	rec   *recorder.Recorder
	up    Uploader
	notes notify.Notifier
	clock timer.Clock
	log   *logrus.Entry

	commands chan command
	queries  chan chan Snapshot
	uploads  chan uploadDone
	started  chan struct{}
	done     chan struct{}
	runOnce  sync.Once

	// loop-owned
	ctx           context.Context
	ticker        timer.Ticker
	status        Status
	index         int
	question      *timer.Countdown
	global        *timer.Countdown
	pending       *audition.CapturedAnswer
	uploading     bool
	lastErr       error
	withoutDevice bool
	outcomes      []AnswerOutcome
	startedAt     time.Time

	mu     sync.Mutex
	final  Snapshot
	result Result
}

func New(cfg Config, deps Deps) (*Controller, error) {
	const op = "session.New"

	if cfg.SessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session id is required", nil)
	}
	if len(cfg.Questions) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "at least one question is required", nil)
	}
	if deps.Recorder == nil || deps.Uploader == nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "recorder and uploader are required", nil)
	}
	if cfg.GlobalSeconds <= 0 {
		cfg.GlobalSeconds = audition.DefaultGlobalSeconds
	}
	if cfg.WarningSeconds <= 0 {
		cfg.WarningSeconds = audition.DefaultWarningSeconds
	}
	if cfg.FinalUploadTimeout <= 0 {
		cfg.FinalUploadTimeout = 15 * time.Second
	}
	if deps.Notifier == nil {
		deps.Notifier = &notify.Memory{}
	}
	if deps.Clock == nil {
		deps.Clock = timer.RealClock()
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}

	outcomes := make([]AnswerOutcome, len(cfg.Questions))
	for i, q := range cfg.Questions {
		outcomes[i] = AnswerOutcome{QuestionID: q.ID, Index: i, Outcome: OutcomeUnanswered}
	}

	return &Controller{
		cfg:      cfg,
		rec:      deps.Recorder,
		up:       deps.Uploader,
		notes:    deps.Notifier,
		clock:    deps.Clock,
		log:      deps.Logger.WithFields(logrus.Fields{"component": "session", "session_id": cfg.SessionID}),
		commands: make(chan command),
		queries:  make(chan chan Snapshot),
		uploads:  make(chan uploadDone, 1),
		started:  make(chan struct{}),
		done:     make(chan struct{}),
		status:   StatusNotStarted,
		question: timer.New(cfg.Questions[0].Limit()),
		global:   timer.New(cfg.GlobalSeconds),
		outcomes: outcomes,
	}, nil
}

// Run acquires the microphone, plays the audition to a terminal state and
// returns its result. The recorder is released on every return path.
func (c *Controller) Run(ctx context.Context) (Result, error) {
	const op = "Controller.Run"

	first := false
	c.runOnce.Do(func() { first = true })
	if !first {
		return Result{}, utils.E(utils.CodeConflict, op, "session has already run", nil)
	}

	defer close(c.done)
	defer func() {
		if err := c.rec.Release(); err != nil {
			c.log.WithError(err).Warn("release recorder")
		}
	}()

	c.ctx = ctx
	if err := c.preflight(ctx); err != nil {
		c.finish()
		return c.result, err
	}

	c.ticker = c.clock.NewTicker(time.Second)
	defer c.ticker.Stop()

	c.begin()
	close(c.started)
	c.emit()

	for !c.status.Terminal() {
		select {
		case <-ctx.Done():
			c.log.Warn("audition interrupted")
			c.finish()
			return c.result, utils.E(utils.CodeTimeout, op, "audition interrupted", ctx.Err())
		case <-c.ticker.C():
			c.onTick()
		case cmd := <-c.commands:
			cmd.reply <- c.handle(cmd.kind)
		case q := <-c.queries:
			q <- c.snapshot()
			continue
		case u := <-c.uploads:
			c.onUploadDone(u)
		}
		c.emit()
	}

	c.finish()
	return c.result, nil
}

func (c *Controller) Done() <-chan struct{} { return c.done }

// Result returns the final result once Run has returned.
func (c *Controller) Result() (Result, bool) {
	select {
	case <-c.done:
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.result, true
	default:
		return Result{}, false
	}
}

// StopRecording ends the current capture without submitting it.
func (c *Controller) StopRecording() error { return c.send("Controller.StopRecording", cmdStop) }

// Advance submits the current capture and moves on once the upload succeeds.
// With nothing recorded it skips the question.
func (c *Controller) Advance() error { return c.send("Controller.Advance", cmdAdvance) }

// Retry resubmits a capture whose upload failed.
func (c *Controller) Retry() error { return c.send("Controller.Retry", cmdRetry) }

// Skip discards any capture and moves to the next question.
func (c *Controller) Skip() error { return c.send("Controller.Skip", cmdSkip) }

func (c *Controller) send(op string, kind commandKind) error {
	select {
	case <-c.done:
		return utils.E(utils.CodeConflict, op, "audition has ended", nil)
	default:
	}
	select {
	case <-c.started:
	default:
		return utils.E(utils.CodeConflict, op, "audition has not started", nil)
	}

	reply := make(chan error, 1)
	select {
	case c.commands <- command{kind: kind, reply: reply}:
	case <-c.done:
		return utils.E(utils.CodeConflict, op, "audition has ended", nil)
	}

	select {
	case err := <-reply:
		return err
	case <-c.done:
		select {
		case err := <-reply:
			return err
		default:
			return utils.E(utils.CodeConflict, op, "audition has ended", nil)
		}
	}
}

// Snapshot is safe to call from any goroutine.
func (c *Controller) Snapshot() Snapshot {
	select {
	case <-c.done:
		return c.finalSnapshot()
	default:
	}
	select {
	case <-c.started:
	default:
		return c.initialSnapshot()
	}

	reply := make(chan Snapshot, 1)
	select {
	case c.queries <- reply:
	case <-c.done:
		return c.finalSnapshot()
	}
	select {
	case s := <-reply:
		return s
	case <-c.done:
		return c.finalSnapshot()
	}
}

func (c *Controller) finalSnapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.final
}

func (c *Controller) initialSnapshot() Snapshot {
	q := c.cfg.Questions[0]
	return Snapshot{
		Status:            StatusNotStarted,
		Total:             len(c.cfg.Questions),
		Question:          q,
		QuestionRemaining: q.Limit(),
		QuestionLimit:     q.Limit(),
		GlobalRemaining:   c.cfg.GlobalSeconds,
		QuestionClock:     timer.FormatSeconds(q.Limit()),
		GlobalClock:       timer.FormatSeconds(c.cfg.GlobalSeconds),
	}
}

func (c *Controller) preflight(ctx context.Context) error {
	err := c.rec.Acquire(ctx)
	if err == nil {
		return nil
	}

	log := c.log.WithError(err).WithField("device_error", recorder.DeviceErrorKind(err))
	if !c.cfg.AllowWithoutDevice {
		log.Error("microphone unavailable")
		c.notes.Error("Microphone unavailable", utils.MessageOf(err))
		return err
	}

	log.Warn("continuing without microphone")
	c.notes.Warn("Continuing without microphone", "Answers cannot be recorded in this session.")
	c.withoutDevice = true
	return nil
}

func (c *Controller) begin() {
	c.status = StatusInProgress
	c.startedAt = c.clock.Now()
	c.global.Start()
	c.log.WithField("questions", len(c.cfg.Questions)).Info("audition started")
	c.enterQuestion(0)
}

// enterQuestion re-arms the question timer, resets the recorder and starts
// recording for question i.
func (c *Controller) enterQuestion(i int) {
	c.index = i
	q := c.cfg.Questions[i]
	c.pending = nil
	c.lastErr = nil

	c.question.SetInitial(q.Limit())
	c.question.Start()
	c.rec.Reset()

	if c.withoutDevice {
		return
	}
	if err := c.rec.Start(c.ctx, q.ID); err != nil {
		c.log.WithError(err).WithField("question_id", q.ID).Warn("recording did not start")
		c.notes.Error("Recording failed to start", utils.MessageOf(err))
	}
}

func (c *Controller) onTick() {
	if c.status != StatusInProgress {
		return
	}
	c.global.Tick()
	if c.global.IsExpired() {
		c.expire()
		return
	}
	if c.question.Tick() {
		c.onQuestionTimeout()
	}
}

func (c *Controller) onQuestionTimeout() {
	c.log.WithField("question_index", c.index).Info("question time limit reached")

	if c.uploading {
		return
	}
	if c.rec.State() == recorder.Recording {
		c.stopRecording()
	}
	if c.pending != nil && !c.pending.Empty() {
		c.startUpload()
		return
	}

	c.pending = nil
	c.outcomes[c.index].Outcome = OutcomeUnanswered
	c.advance()
}

func (c *Controller) handle(kind commandKind) error {
	const op = "Controller.Command"

	if c.status != StatusInProgress {
		return utils.E(utils.CodeConflict, op, "audition is not in progress", nil)
	}
	if c.uploading {
		return utils.E(utils.CodeConflict, op, "an answer is still uploading", nil)
	}

	switch kind {
	case cmdStop:
		if c.rec.State() != recorder.Recording {
			return utils.E(utils.CodeInvalidArgument, op, "not recording", nil)
		}
		c.stopRecording()

	case cmdAdvance:
		if c.rec.State() == recorder.Recording {
			c.stopRecording()
		}
		if c.pending == nil || c.pending.Empty() {
			c.pending = nil
			c.outcomes[c.index].Outcome = OutcomeSkipped
			c.advance()
			return nil
		}
		c.startUpload()

	case cmdRetry:
		if c.pending == nil || c.lastErr == nil {
			return utils.E(utils.CodeInvalidArgument, op, "no failed upload to retry", nil)
		}
		c.startUpload()

	case cmdSkip:
		if c.pending != nil || c.rec.State() == recorder.Recording {
			c.notes.Warn("Answer discarded", "The recording for this question was not submitted.")
		}
		c.rec.Reset()
		c.pending = nil
		c.lastErr = nil
		c.outcomes[c.index].Outcome = OutcomeSkipped
		c.advance()
	}
	return nil
}

// stopRecording also stops the question timer: once the candidate has stopped,
// the hard limit no longer applies to that question.
func (c *Controller) stopRecording() {
	c.question.Stop()
	c.log.WithFields(logrus.Fields{
		"question_index":  c.index,
		"elapsed_seconds": c.question.Elapsed(),
	}).Debug("recording stopped")
	if err := c.rec.Stop(); err != nil {
		c.log.WithError(err).Warn("stop recording")
		c.notes.Error("Recording failed", utils.MessageOf(err))
		return
	}
	if capture, ok := c.rec.Captured(); ok {
		c.pending = &capture
	}
}

func (c *Controller) startUpload() {
	if c.uploading || c.pending == nil {
		return
	}
	c.uploading = true
	c.lastErr = nil

	idx := c.index
	q := c.cfg.Questions[idx]
	capture := *c.pending
	ctx := c.ctx
	go func() {
		res := c.up.Submit(ctx, c.cfg.SessionID, q, capture)
		c.uploads <- uploadDone{index: idx, result: res}
	}()
}

func (c *Controller) onUploadDone(u uploadDone) {
	c.uploading = false
	c.recordUpload(u)
	if c.status != StatusInProgress || u.index != c.index {
		return
	}

	if !u.result.Success {
		c.lastErr = u.result.Err
		c.notes.Error("Upload failed", utils.MessageOf(u.result.Err)+". Retry or skip this question.")
		return
	}

	c.pending = nil
	c.rec.Reset()
	c.advance()
}

func (c *Controller) recordUpload(u uploadDone) {
	o := &c.outcomes[u.index]
	if u.result.Success {
		o.Outcome = OutcomeSubmitted
		o.RemoteAnswerID = u.result.RemoteAnswerID
		o.Transcript = u.result.Transcript
		return
	}
	o.Outcome = OutcomeFailed
	c.log.WithError(u.result.Err).WithField("question_index", u.index).Warn("answer upload failed")
}

func (c *Controller) advance() {
	if c.index >= len(c.cfg.Questions)-1 {
		c.complete()
		return
	}
	c.enterQuestion(c.index + 1)
}

func (c *Controller) complete() {
	c.status = StatusCompleted
	c.question.Stop()
	c.global.Stop()
	_ = c.rec.Release()
	c.log.Info("audition completed")
	c.notes.Info("Audition complete", "You have reached the end of the audition.")
}

// expire supersedes everything else: it makes one bounded attempt to submit
// whatever is recorded, then releases the microphone. Every answer that did
// not make it gets its own notice before the closing one.
func (c *Controller) expire() {
	c.status = StatusExpired
	c.question.Stop()
	c.global.Stop()

	if c.uploading {
		c.awaitInFlight()
	} else {
		if c.rec.State() == recorder.Recording {
			c.stopRecording()
		}
		if c.pending != nil && !c.pending.Empty() {
			ctx, cancel := context.WithTimeout(c.ctx, c.cfg.FinalUploadTimeout)
			res := c.up.Submit(ctx, c.cfg.SessionID, c.cfg.Questions[c.index], *c.pending)
			cancel()
			c.recordUpload(uploadDone{index: c.index, result: res})
			if !res.Success {
				c.notSubmitted(c.index, res.Err)
			}
		}
	}

	c.pending = nil
	c.lastErr = nil
	_ = c.rec.Release()

	submitted := 0
	for _, o := range c.outcomes {
		if o.Outcome == OutcomeSubmitted {
			submitted++
		}
	}
	c.log.WithField("submitted", submitted).Info("audition expired")
	c.notes.Info("Time's up", fmt.Sprintf("The audition time limit has been reached. %d of %d answers were submitted.", submitted, len(c.outcomes)))
}

// awaitInFlight waits for the upload started before expiry, for at most
// FinalUploadTimeout worth of ticks.
func (c *Controller) awaitInFlight() {
	idx := c.index
	limit := int(c.cfg.FinalUploadTimeout / time.Second)
	if limit < 1 {
		limit = 1
	}

	for waited := 0; waited < limit; {
		select {
		case u := <-c.uploads:
			c.uploading = false
			c.recordUpload(u)
			if !u.result.Success {
				c.notSubmitted(u.index, u.result.Err)
			}
			return
		case <-c.ticker.C():
			waited++
		case <-c.ctx.Done():
			waited = limit
		}
	}

	c.uploading = false
	c.outcomes[idx].Outcome = OutcomePending
	c.log.WithField("question_index", idx).Warn("in-flight upload did not finish before expiry")
	c.notes.Warn("Answer not confirmed",
		fmt.Sprintf("Your answer to question %d was still uploading when time ran out and may not have been saved.", idx+1))
}

func (c *Controller) notSubmitted(idx int, err error) {
	c.notes.Error("Answer not submitted",
		fmt.Sprintf("Your answer to question %d could not be uploaded before time ran out: %s.", idx+1, utils.MessageOf(err)))
}

func (c *Controller) snapshot() Snapshot {
	q := c.cfg.Questions[c.index]
	s := Snapshot{
		Status:            c.status,
		Index:             c.index,
		Total:             len(c.cfg.Questions),
		Question:          q,
		QuestionRemaining: c.question.Remaining(),
		QuestionLimit:     c.question.Initial(),
		QuestionElapsed:   c.question.Elapsed(),
		GlobalRemaining:   c.global.Remaining(),
		QuestionClock:     c.question.Format(),
		GlobalClock:       c.global.Format(),
		Recording:         c.rec.State(),
		Uploading:         c.uploading,
		HasCapture:        c.pending != nil,
		WithoutDevice:     c.withoutDevice,
	}
	s.Overtime = c.status == StatusInProgress && c.question.Running() && c.question.Remaining() <= c.cfg.WarningSeconds
	if c.lastErr != nil {
		s.LastError = utils.MessageOf(c.lastErr)
	}
	return s
}

func (c *Controller) emit() {
	if c.cfg.OnChange != nil {
		c.cfg.OnChange(c.snapshot())
	}
}

func (c *Controller) finish() {
	end := c.clock.Now()
	outcomes := make([]AnswerOutcome, len(c.outcomes))
	copy(outcomes, c.outcomes)

	snap := c.snapshot()
	if c.status == StatusNotStarted {
		snap = c.initialSnapshot()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.final = snap
	c.result = Result{
		SessionID: c.cfg.SessionID,
		Status:    c.status,
		Answers:   outcomes,
		StartedAt: c.startedAt,
		EndedAt:   end,
	}
}
