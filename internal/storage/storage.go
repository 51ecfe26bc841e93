package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"
)

type Uploader interface {
	// Upload stores r under objectName and returns the object path.
	Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (storedPath string, err error)
}

type Reader interface {
	Read(ctx context.Context, objectName string) ([]byte, error)
}

type Signer interface {
	SignedGetURL(ctx context.Context, objectName string, ttl time.Duration) (string, error)
}

// Store is the full object storage surface used by the backend.
type Store interface {
	Uploader
	Reader
	Signer
}

// AnswerObjectName lays out answer audio as
// answers/{user}/{opportunity}/{question}_{unixms}.{ext}.
func AnswerObjectName(userID, opportunityID, questionID string, at time.Time, contentType string) string {
	return path.Join("answers", userID, opportunityID,
		fmt.Sprintf("%s_%d.%s", questionID, at.UnixMilli(), ExtFor(contentType)))
}

// ExtFor picks a file extension for an audio content type. Unknown types
// fall back to webm, the browser recorder's format.
func ExtFor(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(contentType))
	}
	switch mt {
	case "audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave":
		return "wav"
	case "audio/ogg", "audio/opus":
		return "ogg"
	case "audio/mpeg", "audio/mp3":
		return "mp3"
	case "audio/mp4", "audio/m4a", "audio/x-m4a", "audio/aac":
		return "m4a"
	case "audio/flac", "audio/x-flac":
		return "flac"
	default:
		return "webm"
	}
}
