package stt

import (
	"testing"

	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/stretchr/testify/assert"
)

func TestRecognitionConfig(t *testing.T) {
	cases := []struct {
		contentType string
		encoding    speechpb.RecognitionConfig_AudioEncoding
		rate        int32
	}{
		{"audio/webm;codecs=opus", speechpb.RecognitionConfig_WEBM_OPUS, 48000},
		{"audio/ogg", speechpb.RecognitionConfig_OGG_OPUS, 48000},
		{"audio/wav", speechpb.RecognitionConfig_LINEAR16, 16000},
		{"audio/x-wav", speechpb.RecognitionConfig_LINEAR16, 16000},
		{"audio/flac", speechpb.RecognitionConfig_FLAC, 0},
		{"audio/mpeg", speechpb.RecognitionConfig_MP3, 0},
		{"", speechpb.RecognitionConfig_WEBM_OPUS, 48000},
	}
	for _, tc := range cases {
		cfg := RecognitionConfig(tc.contentType, "")
		assert.Equal(t, tc.encoding, cfg.Encoding, tc.contentType)
		assert.Equal(t, tc.rate, cfg.SampleRateHertz, tc.contentType)
		assert.Equal(t, "en-US", cfg.LanguageCode)
		assert.True(t, cfg.EnableAutomaticPunctuation)
	}

	assert.Equal(t, "id-ID", RecognitionConfig("audio/wav", "id-ID").LanguageCode)
}

func TestBest(t *testing.T) {
	text, conf := Best(nil)
	assert.Empty(t, text)
	assert.Zero(t, conf)

	text, conf = Best([]*speechpb.SpeechRecognitionResult{
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: " I led the migration ", Confidence: 0.9}, {Transcript: "eye", Confidence: 0.1}}},
		{Alternatives: nil},
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "to Postgres.", Confidence: 0.7}}},
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "  ", Confidence: 0.2}}},
	})
	assert.Equal(t, "I led the migration to Postgres.", text)
	assert.InDelta(t, 0.8, conf, 1e-6)
}
