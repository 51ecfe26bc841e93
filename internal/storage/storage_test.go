package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/audition/internal/utils"
)

func TestAnswerObjectName(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	got := AnswerObjectName("u1", "opp-1", "q3", at, "audio/webm;codecs=opus")
	assert.Equal(t, "answers/u1/opp-1/q3_1700000000123.webm", got)

	got = AnswerObjectName("u1", "opp-1", "q3", at, "audio/wav")
	assert.Equal(t, "answers/u1/opp-1/q3_1700000000123.wav", got)
}

func TestExtFor(t *testing.T) {
	cases := map[string]string{
		"audio/webm":             "webm",
		"audio/ogg; codecs=opus": "ogg",
		"audio/x-wav":            "wav",
		"audio/mpeg":             "mp3",
		"audio/mp4":              "m4a",
		"audio/flac":             "flac",
		"":                       "webm",
		"AUDIO/WAV":              "wav",
	}
	for ct, want := range cases {
		assert.Equal(t, want, ExtFor(ct), ct)
	}
}

func TestMemoryStore(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	p, err := m.Upload(ctx, "answers/a.wav", "audio/wav", strings.NewReader("RIFF"))
	require.NoError(t, err)
	assert.Equal(t, "answers/a.wav", p)
	assert.Equal(t, "audio/wav", m.ContentType(p))

	b, err := m.Read(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(b))

	u, err := m.SignedGetURL(ctx, p, time.Minute)
	require.NoError(t, err)
	assert.Contains(t, u, "answers/a.wav")

	_, err = m.Read(ctx, "missing")
	assert.ErrorIs(t, err, utils.ErrNotFound)
	_, err = m.SignedGetURL(ctx, "missing", time.Minute)
	assert.ErrorIs(t, err, utils.ErrNotFound)
}
