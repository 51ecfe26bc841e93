package recorder

import (
	"context"
	"errors"

	"github.com/yoockh/audition/internal/utils"
)

// Device acquires a capture stream. Opening is where the platform asks the
// candidate for microphone permission.
type Device interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream is an acquired input. Begin and End bracket one capture; the stream
// stays open between captures until Close.
type Stream interface {
	Begin() error
	End() ([]byte, error)
	ContentType() string
	Close() error
}

var (
	ErrPermissionDenied = errors.New("microphone permission denied")
	ErrNoDevice         = errors.New("no microphone found")
	ErrUnsupported      = errors.New("audio capture not supported")
)

// DeviceErrorKind names the acquisition failure for display.
func DeviceErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "permission-denied"
	case errors.Is(err, ErrNoDevice):
		return "no-device"
	case errors.Is(err, ErrUnsupported):
		return "unsupported"
	default:
		return "unknown"
	}
}

func deviceError(op string, err error) error {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return utils.E(utils.CodeForbidden, op, "microphone access was denied", err)
	case errors.Is(err, ErrNoDevice):
		return utils.E(utils.CodeUnavailable, op, "no microphone was found", err)
	case errors.Is(err, ErrUnsupported):
		return utils.E(utils.CodeUnavailable, op, "audio capture is not supported on this system", err)
	default:
		return utils.E(utils.CodeUnavailable, op, "failed to access microphone", err)
	}
}
