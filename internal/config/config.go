// Package config loads runtime settings from defaults, an optional YAML
// file, LOOPTUI_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/dewi-tim/looptui/internal/player"
)

// EnvPrefix prefixes every environment variable, e.g. LOOPTUI_ENGINE.
const EnvPrefix = "LOOPTUI"

var ErrInvalid = errors.New("invalid configuration")

// Config holds all runtime configuration.
type Config struct {
	// Playback
	Engine       string        `mapstructure:"engine"`
	TickInterval time.Duration `mapstructure:"tick-interval"`
	Volume       float64       `mapstructure:"volume"`
	SampleRate   int           `mapstructure:"sample-rate"`
	Buffer       time.Duration `mapstructure:"buffer"`
	Repeat       string        `mapstructure:"repeat"`
	NoAudio      bool          `mapstructure:"no-audio"`

	// Granular engine
	GrainSize    time.Duration `mapstructure:"grain-size"`
	GrainOverlap time.Duration `mapstructure:"grain-overlap"`

	// Tempo detection range
	BPMMin float64 `mapstructure:"bpm-min"`
	BPMMax float64 `mapstructure:"bpm-max"`

	// Sectioning defaults
	SectionCount  int           `mapstructure:"section-count"`
	SectionLength time.Duration `mapstructure:"section-length"`

	StartDir string `mapstructure:"start-dir"`
	Library  string `mapstructure:"library"`
	LogFile  string `mapstructure:"log-file"`
	LogLevel string `mapstructure:"log-level"`
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("engine", "granular")
	v.SetDefault("tick-interval", player.DefaultTickInterval)
	v.SetDefault("volume", 1.0)
	v.SetDefault("sample-rate", 44100)
	v.SetDefault("buffer", 100*time.Millisecond)
	v.SetDefault("repeat", "off")
	v.SetDefault("no-audio", false)
	v.SetDefault("grain-size", player.DefaultGrainSize)
	v.SetDefault("grain-overlap", player.DefaultGrainOverlap)
	v.SetDefault("bpm-min", 60.0)
	v.SetDefault("bpm-max", 200.0)
	v.SetDefault("section-count", 4)
	v.SetDefault("section-length", 30*time.Second)
	v.SetDefault("start-dir", ".")
	v.SetDefault("library", "")
	v.SetDefault("log-file", "")
	v.SetDefault("log-level", "info")
}

// Load reads configuration into a Config. Flags bound to v beforehand take
// precedence over the environment, which takes precedence over the file.
// The file is the "config" key if set, otherwise config.yaml in the user
// config directory when present.
func Load(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "looptui"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate clamps soft limits and rejects values nothing can run with.
func (c *Config) Validate() error {
	c.Engine = strings.ToLower(strings.TrimSpace(c.Engine))
	switch c.Engine {
	case "granular", "native":
	default:
		return fmt.Errorf("%w: engine %q (want granular or native)", ErrInvalid, c.Engine)
	}

	if _, ok := player.ParseRepeatMode(c.Repeat); !ok {
		return fmt.Errorf("%w: repeat %q (want off or one)", ErrInvalid, c.Repeat)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log-level: %w", ErrInvalid, err)
	}

	if c.SampleRate < 8000 || c.SampleRate > 192000 {
		return fmt.Errorf("%w: sample-rate %d", ErrInvalid, c.SampleRate)
	}
	if c.GrainSize <= 0 {
		return fmt.Errorf("%w: grain-size %v", ErrInvalid, c.GrainSize)
	}
	if c.GrainOverlap <= 0 || c.GrainOverlap >= c.GrainSize {
		c.GrainOverlap = c.GrainSize / 2
	}
	if c.BPMMin <= 0 || c.BPMMax <= c.BPMMin {
		return fmt.Errorf("%w: bpm range %v-%v", ErrInvalid, c.BPMMin, c.BPMMax)
	}

	c.TickInterval = min(max(c.TickInterval, time.Millisecond), time.Second)
	c.Buffer = min(max(c.Buffer, 10*time.Millisecond), time.Second)
	c.Volume = min(max(c.Volume, 0), 1)
	c.SectionCount = max(c.SectionCount, 1)
	if c.SectionLength <= 0 {
		c.SectionLength = 30 * time.Second
	}

	return nil
}

// RepeatMode returns the parsed repeat setting.
func (c Config) RepeatMode() player.RepeatMode {
	m, _ := player.ParseRepeatMode(c.Repeat)
	return m
}

// Level returns the parsed log level, Info if it does not parse.
func (c Config) Level() logrus.Level {
	l, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return l
}
