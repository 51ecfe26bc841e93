// Package recorder owns the microphone for an audition: it acquires the
// capture stream once, keeps it warm between questions and turns each
// recording into a single payload.
package recorder

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yoockh/audition/internal/audition"
	"github.com/yoockh/audition/internal/utils"
)

type State int

const (
	Idle State = iota
	Recording
	Captured
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Captured:
		return "captured"
	default:
		return "unknown"
	}
}

var (
	// ErrPayloadPending is returned by Start while a capture awaits Reset.
	ErrPayloadPending = errors.New("captured payload pending")
	ErrReleased       = errors.New("recorder released")
)

type Recorder struct {
	mu       sync.Mutex
	device   Device
	stream   Stream
	state    State
	released bool

	startedAt time.Time
	capture   *audition.CapturedAnswer

	now func() time.Time
}

func New(device Device) *Recorder {
	return &Recorder{device: device, now: time.Now}
}

// Acquire opens the device stream without starting a capture. Start calls it
// implicitly; callers use it to surface permission problems up front.
func (r *Recorder) Acquire(ctx context.Context) error {
	const op = "Recorder.Acquire"

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.acquireLocked(ctx, op)
}

func (r *Recorder) acquireLocked(ctx context.Context, op string) error {
	if r.released {
		return utils.E(utils.CodeUnavailable, op, "recorder has been released", ErrReleased)
	}
	if r.stream != nil {
		return nil
	}
	if r.device == nil {
		return deviceError(op, ErrUnsupported)
	}
	s, err := r.device.Open(ctx)
	if err != nil {
		return deviceError(op, err)
	}
	r.stream = s
	return nil
}

// Start begins buffering for questionID. A failed start leaves the recorder Idle.
func (r *Recorder) Start(ctx context.Context, questionID string) error {
	const op = "Recorder.Start"

	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case Recording:
		return nil
	case Captured:
		return utils.E(utils.CodeConflict, op, "reset the captured answer before recording again", ErrPayloadPending)
	}

	if err := r.acquireLocked(ctx, op); err != nil {
		return err
	}
	if err := r.stream.Begin(); err != nil {
		return utils.E(utils.CodeUnavailable, op, "failed to start recording", err)
	}

	r.state = Recording
	r.startedAt = r.now()
	r.capture = &audition.CapturedAnswer{QuestionID: questionID}
	return nil
}

// Stop finalizes the buffered audio into one payload. It is a no-op unless Recording.
func (r *Recorder) Stop() error {
	const op = "Recorder.Stop"

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != Recording {
		return nil
	}

	payload, err := r.stream.End()
	if err != nil {
		r.state = Idle
		r.capture = nil
		return utils.E(utils.CodeInternal, op, "failed to finalize recording", err)
	}

	r.capture.Payload = payload
	r.capture.ContentType = r.stream.ContentType()
	r.capture.DurationSeconds = r.now().Sub(r.startedAt).Seconds()
	r.state = Captured
	return nil
}

// Reset discards any payload and returns to Idle with the stream kept warm.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == Recording && r.stream != nil {
		_, _ = r.stream.End()
	}
	r.state = Idle
	r.capture = nil
}

// Release ends any capture and closes the stream. The recorder refuses to
// start afterwards.
func (r *Recorder) Release() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.released {
		return nil
	}
	r.released = true

	var err error
	if r.stream != nil {
		if r.state == Recording {
			_, _ = r.stream.End()
		}
		err = r.stream.Close()
		r.stream = nil
	}
	r.state = Idle
	r.capture = nil
	return err
}

func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Recorder) Released() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.released
}

// Captured returns a copy of the pending capture, if any.
func (r *Recorder) Captured() (audition.CapturedAnswer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != Captured || r.capture == nil {
		return audition.CapturedAnswer{}, false
	}
	return *r.capture, true
}
