package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"parrot/internal/domain/fragment"
	"parrot/internal/speech/tts"
)

// ErrConfig marks every invalid-configuration failure.
var ErrConfig = errors.New("invalid configuration")

type Config struct {
	Text          string        `mapstructure:"text"`
	InFile        string        `mapstructure:"in_file"`
	OutFile       string        `mapstructure:"out_file"`
	Engine        string        `mapstructure:"engine"`
	Language      string        `mapstructure:"language"`
	Voice         string        `mapstructure:"voice"`
	Endpoint      string        `mapstructure:"endpoint"`
	MaxLen        int           `mapstructure:"max_len"`
	CachePath     string        `mapstructure:"cache_path"`
	TempPath      string        `mapstructure:"temp_path"`
	NoCache       bool          `mapstructure:"no_cache"`
	Verbose       bool          `mapstructure:"verbose"`
	Strict        bool          `mapstructure:"strict"`
	Workers       int           `mapstructure:"workers"`
	Timeout       time.Duration `mapstructure:"timeout"`
	KeepFragments bool          `mapstructure:"keep_fragments"`

	Assembler   AssemblerConfig   `mapstructure:"assembler"`
	Player      PlayerConfig      `mapstructure:"player"`
	GoogleCloud GoogleCloudConfig `mapstructure:"googlecloud"`
}

type AssemblerConfig struct {
	Tool string `mapstructure:"tool"` // ffmpeg, avconv, a path, or "native"
}

type PlayerConfig struct {
	Command string `mapstructure:"command"` // empty plays in-process
}

type GoogleCloudConfig struct {
	Voice string `mapstructure:"voice"`
}

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"text":           "text",
	"in-file":        "in_file",
	"out-file":       "out_file",
	"engine":         "engine",
	"language":       "language",
	"voice":          "voice",
	"endpoint":       "endpoint",
	"max-len":        "max_len",
	"cache-path":     "cache_path",
	"temp-path":      "temp_path",
	"no-cache":       "no_cache",
	"verbose":        "verbose",
	"strict":         "strict",
	"workers":        "workers",
	"timeout":        "timeout",
	"keep-fragments": "keep_fragments",
	"concat-tool":    "assembler.tool",
	"player":         "player.command",
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("text", "")
	v.SetDefault("in_file", "")
	v.SetDefault("out_file", "")
	v.SetDefault("engine", tts.EngineKindGoogle.String())
	v.SetDefault("language", "en")
	v.SetDefault("voice", "")
	v.SetDefault("endpoint", "")
	v.SetDefault("max_len", fragment.DefaultMaxLen)
	v.SetDefault("cache_path", "cache/")
	v.SetDefault("temp_path", os.TempDir())
	v.SetDefault("no_cache", false)
	v.SetDefault("verbose", false)
	v.SetDefault("strict", false)
	v.SetDefault("workers", 1) // sequential fetch unless asked otherwise
	v.SetDefault("timeout", tts.DefaultTimeout)
	v.SetDefault("keep_fragments", false)
	v.SetDefault("assembler.tool", "ffmpeg")
	v.SetDefault("player.command", "")
	v.SetDefault("googlecloud.voice", "")
}

// New returns a viper instance with defaults, PARROT_* environment
// variables and the parrot.yaml search path.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetConfigName("parrot")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME/.parrot")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PARROT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// BindFlags binds every known flag present in flags.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Load reads the config file, if any, and decodes the merged settings.
// configFile overrides the search path when set. The result is not
// validated; commands call Validate for what they need.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: read config: %w", ErrConfig, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("%w: decode config: %w", ErrConfig, err)
	}
	c.Text = strings.TrimSpace(c.Text)

	return &c, nil
}

// Validate checks everything that can fail before any network activity.
func (c *Config) Validate() error {
	switch {
	case c.Text == "" && c.InFile == "":
		return fmt.Errorf("%w: text must not be empty", ErrConfig)
	case c.Text != "" && c.InFile != "":
		return fmt.Errorf("%w: use either text or in_file, not both", ErrConfig)
	case strings.TrimSpace(c.Language) == "":
		return fmt.Errorf("%w: language must not be empty", ErrConfig)
	case c.MaxLen < 1:
		return fmt.Errorf("%w: max_len must be at least 1, got %d", ErrConfig, c.MaxLen)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrConfig, c.Workers)
	case c.Timeout <= 0:
		return fmt.Errorf("%w: timeout must be positive", ErrConfig)
	}

	if _, err := tts.ParseEngineKind(c.Engine); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return nil
}

// EngineConfig returns the engine part of the configuration.
func (c *Config) EngineConfig() tts.Config {
	kind, _ := tts.ParseEngineKind(c.Engine)
	return tts.Config{
		Kind:       kind,
		Language:   c.Language,
		Voice:      c.Voice,
		TempDir:    c.TempPath,
		Timeout:    c.Timeout,
		BaseURL:    c.Endpoint,
		CloudVoice: c.GoogleCloud.Voice,
	}
}

// ResolveText returns Text, or the content of InFile ("-" reads stdin).
func (c *Config) ResolveText(stdin io.Reader) (string, error) {
	if c.InFile == "" {
		return c.Text, nil
	}

	var (
		data []byte
		err  error
	)
	if c.InFile == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(c.InFile)
	}
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %w", ErrConfig, c.InFile, err)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrConfig, c.InFile)
	}
	return text, nil
}
