// Package app holds the command handlers behind the parrot CLI.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"parrot/internal/cli/scheme/colours"
	"parrot/internal/config"
	"parrot/internal/domain/fragment"
	"parrot/internal/speech/assembler"
	"parrot/internal/speech/cache"
	"parrot/internal/speech/narrator"
	"parrot/internal/speech/player"
	"parrot/internal/speech/tts"
)

// App wires configuration into the speech pipeline for each command.
type App struct {
	v      *viper.Viper
	log    *logrus.Logger
	stdin  io.Reader
	ctx    context.Context
	Cancel context.CancelFunc

	// ConfigFile overrides the parrot.yaml search path.
	ConfigFile string
	// Speaker plays audio when no player command is configured.
	Speaker player.Player
}

func New() *App {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.WarnLevel)

	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		v:      config.New(),
		log:    log,
		stdin:  os.Stdin,
		ctx:    ctx,
		Cancel: cancel,
	}
}

// BindFlags makes flags override file and environment settings.
func (a *App) BindFlags(cmd *cobra.Command) error {
	return config.BindFlags(a.v, cmd.PersistentFlags())
}

func (a *App) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(a.v, a.ConfigFile)
	if err != nil {
		return nil, err
	}
	if cfg.Verbose {
		a.log.SetLevel(logrus.DebugLevel)
	}
	return cfg, nil
}

// loadText returns the validated configuration and the text to speak.
// Positional arguments are used as text when no text flag is given.
func (a *App) loadText(args []string) (*config.Config, string, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, "", err
	}
	if cfg.Text == "" && len(args) > 0 {
		cfg.Text = strings.TrimSpace(strings.Join(args, " "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	text, err := cfg.ResolveText(a.stdin)
	if err != nil {
		return nil, "", err
	}
	return cfg, text, nil
}

// Speak synthesizes the text and plays it, or writes it to --out-file.
func (a *App) Speak(cmd *cobra.Command, args []string) error {
	cfg, text, err := a.loadText(args)
	if err != nil {
		return err
	}

	engineCfg := cfg.EngineConfig()
	a.log.WithFields(logrus.Fields{
		"engine":   engineCfg.Kind.String(),
		"language": engineCfg.Language,
	}).Debug("Use engine")

	store, err := cache.Open(cfg.CachePath, cache.DefaultExt, a.log)
	if err != nil {
		return err
	}

	engine, err := tts.NewEngine(engineCfg, a.log)
	if err != nil {
		return err
	}
	defer engine.Close()

	asm := assembler.New(store, assembler.NewConcatenator(cfg.Assembler.Tool, a.log), a.log)
	n := narrator.New(engine, engineCfg, asm, narrator.Options{
		MaxLen:        cfg.MaxLen,
		Strict:        cfg.Strict,
		BypassCache:   cfg.NoCache,
		Workers:       cfg.Workers,
		KeepFragments: cfg.KeepFragments,
	}, a.log)

	var p player.Player
	if cfg.OutFile == "" {
		if p, err = a.player(cfg); err != nil {
			return err
		}
	}

	out, err := n.Run(a.ctx, text)
	if err != nil {
		return err
	}

	if err := narrator.Deliver(a.ctx, out, cfg.OutFile, p, a.log); err != nil {
		return err
	}

	if cfg.OutFile != "" {
		colours.Success.Fprintf(cmd.OutOrStdout(), "✅ Wrote %s\n", cfg.OutFile)
	}
	return nil
}

func (a *App) player(cfg *config.Config) (player.Player, error) {
	if cfg.Player.Command != "" {
		return player.NewCommand(cfg.Player.Command)
	}
	if a.Speaker == nil {
		return nil, fmt.Errorf("%w: no audio output available, set --player or --out-file", config.ErrConfig)
	}
	return a.Speaker, nil
}

// ShowSegments prints the fragments the text would be sent as.
func (a *App) ShowSegments(cmd *cobra.Command, args []string) error {
	cfg, text, err := a.loadText(args)
	if err != nil {
		return err
	}

	var fragments []fragment.Fragment
	if cfg.Strict {
		fragments, err = fragment.SegmentStrict(text, cfg.MaxLen)
		if err != nil {
			return err
		}
	} else {
		fragments = fragment.Segment(text, cfg.MaxLen)
	}

	engineCfg := cfg.EngineConfig()
	w := cmd.OutOrStdout()
	colours.Title.Fprintf(w, "%d fragments (max %d)\n", len(fragments), cfg.MaxLen)
	for _, f := range fragments {
		colours.Info.Fprintf(w, "%3d ", f.Index)
		colours.Key.Fprintf(w, "%s ", engineCfg.FragmentKey(f.Text).Short())
		fmt.Fprintf(w, "[%3d] %s\n", f.Len(), f.Text)
	}
	return nil
}

// ListEngines prints the supported engine kinds.
func (a *App) ListEngines(cmd *cobra.Command, args []string) {
	w := cmd.OutOrStdout()
	colours.Title.Fprintln(w, "Engines")
	for _, k := range tts.Kinds() {
		fmt.Fprintf(w, "  • %s\n", k)
	}
}

func (a *App) openStore() (*cache.Store, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	return cache.Open(cfg.CachePath, cache.DefaultExt, a.log)
}

// ShowCacheStatus prints the number and size of cached artifacts.
func (a *App) ShowCacheStatus(cmd *cobra.Command, args []string) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	stats, err := store.Stats()
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	colours.Title.Fprintln(w, "📊 Audio cache")
	colours.Info.Fprintf(w, "📁 Location: %s\n", stats.Directory)
	colours.Info.Fprintf(w, "🎧 Files: %d\n", stats.Files)
	colours.Info.Fprintf(w, "📏 Size: %.2f MB\n", stats.SizeMB())
	return nil
}

// ClearCache deletes every cached artifact.
func (a *App) ClearCache(cmd *cobra.Command, args []string) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	removed, err := store.Clear()
	if err != nil {
		return err
	}
	colours.Success.Fprintf(cmd.OutOrStdout(), "🧹 Removed %d cached files from %s\n", removed, store.Dir())
	return nil
}
