package app

import (
	"github.com/spf13/cobra"

	"parrot/internal/domain/fragment"
	"parrot/internal/speech/assembler"
	"parrot/internal/speech/tts"
)

// Command builds the parrot command tree.
func (a *App) Command() (*cobra.Command, error) {
	rootCmd := &cobra.Command{
		Use:   "parrot [text]",
		Short: "🦜 Speak text through online text-to-speech engines",
		Long: `
parrot splits text into short fragments, has a remote engine speak each one,
joins the audio into a single MP3 and caches it. Without --out-file the result
is played right away.
		`,
		Example:       `  parrot -l en -t "Hello world" -v`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE:          a.Speak,
	}

	// Segment command
	segmentCmd := &cobra.Command{
		Use:   "segment [text]",
		Short: "✂️ Show how text is split into fragments",
		Long:  "Print the fragments that would be sent to the engine, without any network call",
		RunE:  a.ShowSegments,
	}

	// Engines command
	enginesCmd := &cobra.Command{
		Use:   "engines",
		Short: "🔊 List supported engines",
		Args:  cobra.NoArgs,
		Run:   a.ListEngines,
	}

	// Cache parent command
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "🗄️ Manage the audio cache",
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "📊 Show cache status",
		Args:  cobra.NoArgs,
		RunE:  a.ShowCacheStatus,
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "🧹 Remove cached audio",
		Args:  cobra.NoArgs,
		RunE:  a.ClearCache,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.ConfigFile, "config", "", "Config file (default $HOME/.parrot/parrot.yaml or ./parrot.yaml)")
	flags.StringP("text", "t", "", "Text to speech")
	flags.StringP("in-file", "i", "", "Text file to speech (- for stdin)")
	flags.StringP("out-file", "o", "", "Write the audio here instead of playing it")
	flags.StringP("engine", "e", tts.EngineKindGoogle.String(), "Engine for rendering: google, voxygen or googlecloud")
	flags.StringP("language", "l", "en", "Language of TTS")
	flags.StringP("voice", "V", "", "Voice to use, if the engine supports it")
	flags.IntP("max-len", "m", fragment.DefaultMaxLen, "Max length of segments")
	flags.String("cache-path", "cache/", "Path for cache files")
	flags.String("temp-path", "", "Path for fragment files (default OS temp dir)")
	flags.BoolP("no-cache", "c", false, "Ignore and overwrite cached audio")
	flags.BoolP("verbose", "v", false, "Verbose")
	flags.Bool("strict", false, "Fail on parts that cannot be cut at whitespace")
	flags.Int("workers", 1, "Fragments fetched in parallel")
	flags.Duration("timeout", tts.DefaultTimeout, "Timeout of each fragment request")
	flags.Bool("keep-fragments", false, "Keep fragment files after assembly")
	flags.String("concat-tool", assembler.DefaultTool, "Concatenation tool (ffmpeg, avconv, or native)")
	flags.String("player", "", "Player command line, e.g. \"mpg123 -q\" (default built-in)")
	flags.String("endpoint", "", "Override the engine endpoint URL")
	flags.MarkHidden("endpoint")

	if err := a.BindFlags(rootCmd); err != nil {
		return nil, err
	}

	cacheCmd.AddCommand(statusCmd, clearCmd)
	rootCmd.AddCommand(segmentCmd, enginesCmd, cacheCmd)

	return rootCmd, nil
}
