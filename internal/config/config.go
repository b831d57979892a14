// Package config loads chitra settings from a YAML file merged over defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/chitra/internal/capture"
	"github.com/ayusman/chitra/internal/detector"
	"github.com/ayusman/chitra/internal/palette"
)

// DirName is the per-user data directory under $HOME.
const DirName = ".chitra"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config is the full application configuration.
type Config struct {
	Addr     string          `yaml:"addr"`
	DataDir  string          `yaml:"data_dir"`
	WebDir   string          `yaml:"web_dir"`
	LogLevel string          `yaml:"log_level"`
	Tray     bool            `yaml:"tray"`
	Camera   capture.Config  `yaml:"camera"`
	Detector detector.Config `yaml:"detector"`
	Painter  Painter         `yaml:"painter"`
}

// Painter holds drawing defaults.
type Painter struct {
	Color     string `yaml:"color"`
	Thickness int    `yaml:"thickness"`
	HeaderDir string `yaml:"header_dir"`
	Annotate  bool   `yaml:"annotate"`
	// PublicURL is the base used in session join QR codes.
	PublicURL string        `yaml:"public_url"`
	Persist   time.Duration `yaml:"persist_interval"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:     ":8080",
		DataDir:  defaultDataDir(),
		LogLevel: "info",
		Camera:   capture.DefaultConfig(),
		Detector: detector.DefaultConfig(),
		Painter: Painter{
			Color:     "red",
			Thickness: 20,
			Annotate:  true,
			Persist:   2 * time.Second,
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DirName
	}
	return filepath.Join(home, DirName)
}

// DefaultPath returns ~/.chitra/config.yaml.
func DefaultPath() string {
	return filepath.Join(defaultDataDir(), "config.yaml")
}

// Load reads path over the defaults and applies environment overrides.
// A missing file is not an error when path is the default location.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}

	cfg.applyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv honors PORT and CHITRA_ADDR. CHITRA_ADDR wins over PORT.
func (c *Config) applyEnv(getenv func(string) string) {
	if port := getenv("PORT"); port != "" {
		c.Addr = ":" + strings.TrimPrefix(port, ":")
	}
	if addr := getenv("CHITRA_ADDR"); addr != "" {
		c.Addr = addr
	}
}

// Validate checks the values the rest of the program relies on.
func (c Config) Validate() error {
	var errs []error

	if c.Addr == "" {
		errs = append(errs, errors.New("addr is empty"))
	} else if i := strings.LastIndex(c.Addr, ":"); i < 0 {
		errs = append(errs, fmt.Errorf("addr %q has no port", c.Addr))
	} else if p, err := strconv.Atoi(c.Addr[i+1:]); err != nil || p < 0 || p > 65535 {
		errs = append(errs, fmt.Errorf("addr %q has a bad port", c.Addr))
	}

	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		errs = append(errs, fmt.Errorf("camera size %dx%d", c.Camera.Width, c.Camera.Height))
	} else if c.Camera.Height <= palette.HeaderHeight {
		errs = append(errs, fmt.Errorf("camera height %d leaves no room below the header", c.Camera.Height))
	}
	if c.Camera.FPS <= 0 {
		errs = append(errs, fmt.Errorf("camera fps %d", c.Camera.FPS))
	}

	if c.Painter.Thickness < 5 || c.Painter.Thickness > 50 {
		errs = append(errs, fmt.Errorf("painter thickness %d outside 5..50", c.Painter.Thickness))
	}
	if _, ok := palette.DefaultIndex(c.Painter.Color); !ok {
		errs = append(errs, fmt.Errorf("painter color %q is not a swatch", c.Painter.Color))
	}

	if c.Detector.MinConfidence < 0 || c.Detector.MinConfidence > 1 {
		errs = append(errs, fmt.Errorf("detector min_confidence %v", c.Detector.MinConfidence))
	}
	if c.Detector.MaxHands <= 0 {
		errs = append(errs, fmt.Errorf("detector max_hands %d", c.Detector.MaxHands))
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return l, fmt.Errorf("log level %q: %w", s, err)
	}
	return l, nil
}

// Write saves cfg as YAML, creating the parent directory.
func Write(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
