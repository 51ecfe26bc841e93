package stt

import (
	"context"
	"mime"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"
)

type GoogleSpeech struct {
	c *speech.Client
}

// NewGoogleSpeech uses credentialsFile when set, application default
// credentials otherwise.
func NewGoogleSpeech(ctx context.Context, credentialsFile string) (*GoogleSpeech, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	c, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &GoogleSpeech{c: c}, nil
}

func (g *GoogleSpeech) Close() error { return g.c.Close() }

// language example: "en-US", "id-ID"
func (g *GoogleSpeech) Transcribe(ctx context.Context, audio []byte, contentType, language string) (string, float64, error) {
	resp, err := g.c.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: RecognitionConfig(contentType, language),
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return "", 0, err
	}
	text, conf := Best(resp.Results)
	return text, conf, nil
}

// RecognitionConfig picks the encoding from the upload's content type.
// Browser recordings are Opus at 48kHz; the CLI records 16kHz PCM WAV.
func RecognitionConfig(contentType, language string) *speechpb.RecognitionConfig {
	if language == "" {
		language = "en-US"
	}
	cfg := &speechpb.RecognitionConfig{
		LanguageCode:               language,
		EnableAutomaticPunctuation: true,
		Model:                      "default",
	}

	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.ToLower(contentType)
	}
	switch mt {
	case "audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave":
		cfg.Encoding = speechpb.RecognitionConfig_LINEAR16
		cfg.SampleRateHertz = 16000
	case "audio/ogg", "audio/opus":
		cfg.Encoding = speechpb.RecognitionConfig_OGG_OPUS
		cfg.SampleRateHertz = 48000
	case "audio/flac", "audio/x-flac":
		cfg.Encoding = speechpb.RecognitionConfig_FLAC
	case "audio/mpeg", "audio/mp3":
		cfg.Encoding = speechpb.RecognitionConfig_MP3
	default:
		cfg.Encoding = speechpb.RecognitionConfig_WEBM_OPUS
		cfg.SampleRateHertz = 48000
	}
	return cfg
}

// Best joins the top alternative of every result and averages their
// confidence. Results are consecutive segments of the same utterance.
func Best(results []*speechpb.SpeechRecognitionResult) (string, float64) {
	var (
		parts []string
		sum   float64
	)
	for _, r := range results {
		if len(r.Alternatives) == 0 {
			continue
		}
		alt := r.Alternatives[0]
		t := strings.TrimSpace(alt.Transcript)
		if t == "" {
			continue
		}
		parts = append(parts, t)
		sum += float64(alt.Confidence)
	}
	if len(parts) == 0 {
		return "", 0
	}
	return strings.Join(parts, " "), sum / float64(len(parts))
}
