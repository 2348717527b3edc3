// Package config loads wavecap settings from a yaml file and WAVECAP_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/olivier-w/wavecap/internal/plot"
	"github.com/olivier-w/wavecap/internal/recorder"
)

// ErrInvalid wraps validation failures.
var ErrInvalid = errors.New("config: invalid")

// EnvPrefix prefixes environment overrides, e.g. WAVECAP_WAVE_DENSITY.
const EnvPrefix = "WAVECAP"

// WaveConfig mirrors plot.Config with colors as hex strings.
type WaveConfig struct {
	Color              string  `mapstructure:"color" yaml:"color" validate:"required,hexcolor"`
	Background         string  `mapstructure:"background" yaml:"background" validate:"omitempty,hexcolor"`
	Frequency          float64 `mapstructure:"frequency" yaml:"frequency" validate:"gte=0"`
	IdleAmplitude      float64 `mapstructure:"idle_amplitude" yaml:"idle_amplitude" validate:"gte=0,lte=1"`
	NumberOfWaves      int     `mapstructure:"number_of_waves" yaml:"number_of_waves" validate:"min=1,max=64"`
	PhaseShift         float64 `mapstructure:"phase_shift" yaml:"phase_shift"`
	Density            float64 `mapstructure:"density" yaml:"density" validate:"gt=0"`
	PrimaryLineWidth   float64 `mapstructure:"primary_line_width" yaml:"primary_line_width" validate:"gte=0"`
	SecondaryLineWidth float64 `mapstructure:"secondary_line_width" yaml:"secondary_line_width" validate:"gte=0"`
}

type RecordConfig struct {
	SampleRate  int     `mapstructure:"sample_rate" yaml:"sample_rate" validate:"min=8000,max=192000"`
	Channels    int     `mapstructure:"channels" yaml:"channels" validate:"min=1,max=2"`
	MinSeconds  float64 `mapstructure:"min_seconds" yaml:"min_seconds" validate:"gte=0"`
	OutputDir   string  `mapstructure:"output_dir" yaml:"output_dir"`
	TempDir     string  `mapstructure:"temp_dir" yaml:"temp_dir"`
	CatalogPath string  `mapstructure:"catalog_path" yaml:"catalog_path"`
}

type SnapshotConfig struct {
	Width  int `mapstructure:"width" yaml:"width" validate:"min=16,max=8192"`
	Height int `mapstructure:"height" yaml:"height" validate:"min=16,max=8192"`
	Frames int `mapstructure:"frames" yaml:"frames" validate:"min=1"`
}

type LogConfig struct {
	File       string `mapstructure:"file" yaml:"file"`
	Level      string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups" validate:"gte=0"`
}

// Config is the full application configuration.
type Config struct {
	FPS      int            `mapstructure:"fps" yaml:"fps" validate:"min=1,max=240"`
	Volume   float64        `mapstructure:"volume" yaml:"volume" validate:"gte=0,lte=1"`
	Wave     WaveConfig     `mapstructure:"wave" yaml:"wave"`
	Record   RecordConfig   `mapstructure:"record" yaml:"record"`
	Snapshot SnapshotConfig `mapstructure:"snapshot" yaml:"snapshot"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		FPS:    60,
		Volume: 0.8,
		Wave: WaveConfig{
			Color:              "#000000",
			Background:         "#ffffff",
			Frequency:          1.5,
			IdleAmplitude:      0,
			NumberOfWaves:      4,
			PhaseShift:         -0.15,
			Density:            0.5,
			PrimaryLineWidth:   2,
			SecondaryLineWidth: 1,
		},
		Record: RecordConfig{
			SampleRate: recorder.DefaultSampleRate,
			Channels:   recorder.DefaultChannels,
			MinSeconds: recorder.DefaultMinDuration.Seconds(),
			OutputDir:  ".",
		},
		Snapshot: SnapshotConfig{
			Width:  800,
			Height: 200,
			Frames: 30,
		},
		Log: LogConfig{
			File:       DefaultLogPath(),
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("fps", d.FPS)
	v.SetDefault("volume", d.Volume)

	v.SetDefault("wave.color", d.Wave.Color)
	v.SetDefault("wave.background", d.Wave.Background)
	v.SetDefault("wave.frequency", d.Wave.Frequency)
	v.SetDefault("wave.idle_amplitude", d.Wave.IdleAmplitude)
	v.SetDefault("wave.number_of_waves", d.Wave.NumberOfWaves)
	v.SetDefault("wave.phase_shift", d.Wave.PhaseShift)
	v.SetDefault("wave.density", d.Wave.Density)
	v.SetDefault("wave.primary_line_width", d.Wave.PrimaryLineWidth)
	v.SetDefault("wave.secondary_line_width", d.Wave.SecondaryLineWidth)

	v.SetDefault("record.sample_rate", d.Record.SampleRate)
	v.SetDefault("record.channels", d.Record.Channels)
	v.SetDefault("record.min_seconds", d.Record.MinSeconds)
	v.SetDefault("record.output_dir", d.Record.OutputDir)
	v.SetDefault("record.temp_dir", d.Record.TempDir)
	v.SetDefault("record.catalog_path", d.Record.CatalogPath)

	v.SetDefault("snapshot.width", d.Snapshot.Width)
	v.SetDefault("snapshot.height", d.Snapshot.Height)
	v.SetDefault("snapshot.frames", d.Snapshot.Frames)

	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
}

// DefaultPath is where Load looks when no file is given.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "wavecap.yaml"
	}
	return filepath.Join(dir, "wavecap", "config.yaml")
}

// DefaultLogPath is the log file used when none is configured. It is empty,
// and logging disabled, when the user has no cache directory.
func DefaultLogPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "wavecap", "wavecap.log")
}

// Load reads path, or DefaultPath when path is empty, applies environment
// overrides and validates the result. A missing default file is not an
// error; a missing explicit file is.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and that the wave settings convert to
// a usable plot configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	pc, err := c.PlotConfig()
	if err != nil {
		return err
	}
	if err := pc.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// WriteDefault writes the built-in configuration to path. It refuses to
// overwrite an existing file.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("encoding default config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(append([]byte("# wavecap configuration\n"), data...)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// PlotConfig converts the wave settings to a plot.Config.
func (c *Config) PlotConfig() (plot.Config, error) {
	waveColor, err := ParseHexColor(c.Wave.Color)
	if err != nil {
		return plot.Config{}, err
	}
	var background color.Color
	if c.Wave.Background != "" {
		if background, err = ParseHexColor(c.Wave.Background); err != nil {
			return plot.Config{}, err
		}
	}

	return plot.Config{
		WaveColor:          waveColor,
		Background:         background,
		Frequency:          c.Wave.Frequency,
		IdleAmplitude:      c.Wave.IdleAmplitude,
		NumberOfWaves:      c.Wave.NumberOfWaves,
		PhaseShift:         c.Wave.PhaseShift,
		Density:            c.Wave.Density,
		PrimaryLineWidth:   c.Wave.PrimaryLineWidth,
		SecondaryLineWidth: c.Wave.SecondaryLineWidth,
	}, nil
}

// RecorderOptions converts the record settings. Observer and Logger are
// left for the caller.
func (c *Config) RecorderOptions() recorder.Options {
	return recorder.Options{
		SampleRate:  c.Record.SampleRate,
		Channels:    c.Record.Channels,
		MinDuration: time.Duration(c.Record.MinSeconds * float64(time.Second)),
		TempDir:     c.Record.TempDir,
		OutputDir:   c.Record.OutputDir,
	}
}

// ParseHexColor parses #rgb, #rgba, #rrggbb or #rrggbbaa, the forms the
// hexcolor validation accepts. Alpha is straight, not premultiplied.
func ParseHexColor(s string) (color.NRGBA, error) {
	c := color.NRGBA{A: 0xff}
	var err error
	switch len(s) {
	case 9:
		_, err = fmt.Sscanf(s, "#%02x%02x%02x%02x", &c.R, &c.G, &c.B, &c.A)
	case 7:
		_, err = fmt.Sscanf(s, "#%02x%02x%02x", &c.R, &c.G, &c.B)
	case 5:
		_, err = fmt.Sscanf(s, "#%1x%1x%1x%1x", &c.R, &c.G, &c.B, &c.A)
		c.R *= 17
		c.G *= 17
		c.B *= 17
		c.A *= 17
	case 4:
		_, err = fmt.Sscanf(s, "#%1x%1x%1x", &c.R, &c.G, &c.B)
		c.R *= 17
		c.G *= 17
		c.B *= 17
	default:
		err = errors.New("want #rgb, #rgba, #rrggbb or #rrggbbaa")
	}
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: color %q: %v", ErrInvalid, s, err)
	}
	return c, nil
}
