package tts

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"parrot/internal/domain/fragment"
)

const googleTranslateURL = "http://translate.google.com/translate_tts"

// GoogleEngine uses the speech endpoint behind Google Translate.
type GoogleEngine struct {
	config  Config
	baseURL string
	dl      *downloader
}

func newGoogleEngine(config Config, log logrus.FieldLogger) *GoogleEngine {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = googleTranslateURL
	}
	return &GoogleEngine{
		config:  config,
		baseURL: baseURL,
		dl:      newDownloader(config, log),
	}
}

func (g *GoogleEngine) Kind() EngineKind {
	return EngineKindGoogle
}

// URL returns the request URL for text. The endpoint has no voice choice.
func (g *GoogleEngine) URL(text string) string {
	return fmt.Sprintf("%s?ie=UTF-8&client=tw-ob&tl=%s&q=%s", g.baseURL, quote(g.config.Language), quote(text))
}

func (g *GoogleEngine) Synthesize(ctx context.Context, f fragment.Fragment) (string, error) {
	return g.dl.download(ctx, f, g.URL(f.Text), nil)
}

func (g *GoogleEngine) Close() error {
	return nil
}
