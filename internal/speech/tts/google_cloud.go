package tts

import (
	"context"
	"fmt"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/sirupsen/logrus"

	"parrot/internal/domain/fragment"
)

// speechClient is the part of the Cloud client the engine needs.
type speechClient interface {
	SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest, opts ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error)
	Close() error
}

// GoogleCloudEngine uses the Cloud Text-to-Speech API. Credentials come from
// the environment (GOOGLE_APPLICATION_CREDENTIALS).
type GoogleCloudEngine struct {
	config Config
	client speechClient
	log    logrus.FieldLogger
}

func newGoogleCloudEngine(config Config, log logrus.FieldLogger) (*GoogleCloudEngine, error) {
	client, err := texttospeech.NewClient(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to create TTS client: %w", err)
	}
	return &GoogleCloudEngine{config: config, client: client, log: log}, nil
}

func (g *GoogleCloudEngine) Kind() EngineKind {
	return EngineKindGoogleCloud
}

func (g *GoogleCloudEngine) request(text string) *texttospeechpb.SynthesizeSpeechRequest {
	name := g.config.Voice
	if name == "" {
		name = g.config.CloudVoice
	}
	return &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: g.config.Language,
			Name:         name, // empty lets the API pick one for the language
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
		},
	}
}

func (g *GoogleCloudEngine) Synthesize(ctx context.Context, f fragment.Fragment) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.config.timeout())
	defer cancel()

	resp, err := g.client.SynthesizeSpeech(ctx, g.request(f.Text))
	if err != nil {
		return "", fmt.Errorf("%w: fragment %d: %w", ErrFetch, f.Index, err)
	}
	if len(resp.GetAudioContent()) == 0 {
		return "", fmt.Errorf("%w: fragment %d: empty audio content", ErrFetch, f.Index)
	}

	path, err := writeFragment(g.config, f, resp.GetAudioContent())
	if err != nil {
		return "", err
	}

	g.log.WithFields(logrus.Fields{
		"fragment": f.Index,
		"bytes":    len(resp.GetAudioContent()),
		"path":     path,
	}).Debug("Fragment audio written")

	return path, nil
}

func (g *GoogleCloudEngine) Close() error {
	return g.client.Close()
}
