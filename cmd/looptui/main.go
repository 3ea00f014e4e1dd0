// Command looptui is a terminal player for practicing along with a track:
// loop a region, split it into sections and change the tempo.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gopxl/beep/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dewi-tim/looptui/internal/audio"
	"github.com/dewi-tim/looptui/internal/bpm"
	"github.com/dewi-tim/looptui/internal/config"
	"github.com/dewi-tim/looptui/internal/player"
	"github.com/dewi-tim/looptui/internal/session"
	"github.com/dewi-tim/looptui/internal/ui"
)

var Version = "dev"

var v = viper.New()

var rootCmd = &cobra.Command{
	Use:   "looptui [file or directory]",
	Short: "Loop, section and slow down audio for practice",
	Long: `looptui plays an audio file in the terminal with the tools used to
practice along with a recording: an A-B loop, evenly split sections,
tempo from 25% to 400% and a BPM estimate.

Settings come from flags, LOOPTUI_* environment variables and
config.yaml in the user config directory, in that order.`,
	Version:      Version,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	f := rootCmd.Flags()
	f.String("config", "", "Config file (default $XDG_CONFIG_HOME/looptui/config.yaml)")
	f.StringP("engine", "e", "granular", "Playback engine: granular keeps pitch, native shifts it")
	f.Float64("volume", 1, "Initial volume between 0 and 1")
	f.Int("sample-rate", 44100, "Output sample rate")
	f.Duration("buffer", 100*time.Millisecond, "Output buffer length")
	f.Duration("tick-interval", player.DefaultTickInterval, "Time update interval")
	f.String("repeat", "off", "Repeat mode: off or one")
	f.Bool("no-audio", false, "Run without an audio device")
	f.Float64("bpm-min", bpm.DefaultMin, "Lowest BPM to detect")
	f.Float64("bpm-max", bpm.DefaultMax, "Highest BPM to detect")
	f.Int("section-count", 4, "Default number of sections")
	f.Duration("section-length", 30*time.Second, "Default section length")
	f.StringP("library", "L", "", "Music library root to scan (empty disables the library panel)")
	f.String("log-file", "", "Log file (default $XDG_STATE_HOME/looptui/looptui.log)")
	f.String("log-level", "info", "Log level")

	if err := v.BindPFlags(f); err != nil {
		panic(err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	log, closeLog, err := openLog(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	opts := ui.Options{
		StartDir:      cfg.StartDir,
		LibraryRoot:   cfg.Library,
		SectionCount:  cfg.SectionCount,
		SectionLength: cfg.SectionLength,
	}
	if len(args) == 1 {
		info, err := os.Stat(args[0])
		if err != nil {
			return err
		}
		if info.IsDir() {
			opts.StartDir = args[0]
		} else {
			opts.InitialPath = args[0]
			opts.StartDir = filepath.Dir(args[0])
		}
	}

	rate := beep.SampleRate(cfg.SampleRate)
	var out audio.Output
	if cfg.NoAudio {
		out = audio.NewNullOutput(rate)
	} else {
		out = audio.NewOtoOutput(rate, cfg.Buffer)
	}
	defer out.Close()

	native := player.NewNativeEngine(out)
	engines := []player.Engine{native}
	if cfg.Engine == "granular" {
		engines = []player.Engine{player.NewGranularEngine(out, cfg.GrainSize, cfg.GrainOverlap), native}
	}

	tr := player.NewTransport(
		player.WithEngines(engines...),
		player.WithTickInterval(cfg.TickInterval),
		player.WithRepeat(cfg.RepeatMode()),
		player.WithLogger(log),
	)
	tr.SetVolume(cfg.Volume)

	det := bpm.New(bpm.WithRange(cfg.BPMMin, cfg.BPMMax), bpm.WithLogger(log))
	sess := session.New(tr, session.WithDetector(det), session.WithLogger(log))
	defer sess.Close()

	log.WithFields(logrus.Fields{
		"engine":      cfg.Engine,
		"sample_rate": cfg.SampleRate,
		"no_audio":    cfg.NoAudio,
	}).Info("starting")

	p := tea.NewProgram(ui.New(sess, opts), tea.WithAltScreen())
	sess.OnChange(func() { p.Send(ui.TickMsg(time.Now())) })
	sess.OnEnded(func() { go p.Send(ui.EndedMsg{}) })

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}

// openLog opens the log file. The TUI owns stdout, so logs never go there.
func openLog(cfg config.Config) (*logrus.Logger, func(), error) {
	path := cfg.LogFile
	if path == "" {
		path = defaultLogPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log: %w", err)
	}

	log := logrus.New()
	log.SetOutput(f)
	log.SetLevel(cfg.Level())
	log.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	return log, func() { f.Close() }, nil
}

func defaultLogPath() string {
	dir := os.Getenv("XDG_STATE_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "state")
		} else {
			dir = os.TempDir()
		}
	}
	return filepath.Join(dir, "looptui", "looptui.log")
}
