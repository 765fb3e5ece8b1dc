package tts

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"parrot/internal/domain/fragment"
)

const (
	voxygenURL     = "https://www.voxygen.fr/sites/all/modules/voxygen_voices/assets/proxy/index.php"
	voxygenReferer = "http://voxygen.fr/fr"
	voxygenCookie  = "has_js=1"

	// VoxygenDefaultVoice is used when no voice is configured.
	VoxygenDefaultVoice = "Agnes"
)

// VoxygenEngine uses the Voxygen demo proxy. It picks the language from
// the voice, so Config.Language is not sent.
type VoxygenEngine struct {
	config  Config
	baseURL string
	voice   string
	now     func() time.Time
	dl      *downloader
}

func newVoxygenEngine(config Config, log logrus.FieldLogger) *VoxygenEngine {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = voxygenURL
	}
	voice := config.Voice
	if voice == "" {
		voice = VoxygenDefaultVoice
	}
	return &VoxygenEngine{
		config:  config,
		baseURL: baseURL,
		voice:   voice,
		now:     time.Now,
		dl:      newDownloader(config, log),
	}
}

func (v *VoxygenEngine) Kind() EngineKind {
	return EngineKindVoxygen
}

// URL returns the request URL for text. ts changes every second.
func (v *VoxygenEngine) URL(text string) string {
	return fmt.Sprintf("%s?method=redirect&text=%s&voice=%s&ts=%d",
		v.baseURL, quote(text), quote(v.voice), v.now().Unix())
}

func (v *VoxygenEngine) Synthesize(ctx context.Context, f fragment.Fragment) (string, error) {
	header := http.Header{}
	header.Set("Referer", voxygenReferer)
	header.Set("Cookie", voxygenCookie)
	return v.dl.download(ctx, f, v.URL(f.Text), header)
}

func (v *VoxygenEngine) Close() error {
	return nil
}
