package tts

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

type EngineKind string

const (
	EngineKindGoogle      EngineKind = "google"      // Google Translate speech endpoint
	EngineKindVoxygen     EngineKind = "voxygen"     // Voxygen demo proxy
	EngineKindGoogleCloud EngineKind = "googlecloud" // Google Cloud Text-to-Speech API
)

func (e EngineKind) String() string {
	return string(e)
}

// Kinds returns every supported engine kind.
func Kinds() []EngineKind {
	return []EngineKind{EngineKindGoogle, EngineKindVoxygen, EngineKindGoogleCloud}
}

// ParseEngineKind validates an engine name.
func ParseEngineKind(s string) (EngineKind, error) {
	kind := EngineKind(strings.ToLower(strings.TrimSpace(s)))
	for _, k := range Kinds() {
		if k == kind {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEngine, s)
}

// NewEngine creates the engine selected by config.Kind.
func NewEngine(config Config, log logrus.FieldLogger) (Engine, error) {
	log = log.WithField("engine", config.Kind.String())

	switch config.Kind {
	case EngineKindGoogle:
		return newGoogleEngine(config, log), nil

	case EngineKindVoxygen:
		return newVoxygenEngine(config, log), nil

	case EngineKindGoogleCloud:
		return newGoogleCloudEngine(config, log)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, config.Kind)
	}
}
