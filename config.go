package loom

import (
	"fmt"
	"io"
	"log"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/kungfusheep/loom/value"
	"gopkg.in/yaml.v3"
)

// Config holds the runtime settings. The YAML-tagged fields can be loaded
// from a file with LoadConfig; the rest are wired up in code.
type Config struct {
	// MaxDepth bounds element, block and expression nesting in templates.
	MaxDepth int `yaml:"max_depth"`
	// TickInterval is how long the app waits for input before ticking anyway.
	TickInterval time.Duration `yaml:"tick_interval"`
	// QuitKeys end App.Run when pressed, e.g. "ctrl+c" or "q".
	QuitKeys []string `yaml:"quit_keys"`
	// InboxSize is the capacity of the App.Send channel.
	InboxSize int `yaml:"inbox_size"`
	// ColorProfile is auto, truecolor, 256, 16 or none.
	ColorProfile string `yaml:"color_profile"`
	// DebugFlush logs per-flush statistics to Logger.
	DebugFlush bool `yaml:"debug_flush"`

	// InitialSize is the viewport a Runtime starts with before any resize.
	InitialSize Size `yaml:"-"`
	// Logger receives bind, eval and layout failures and debug output.
	// Nil discards.
	Logger *log.Logger `yaml:"-"`
	// Reporter, when set, is called with every distinct failure.
	Reporter func(error) `yaml:"-"`
	// Metrics observes each tick. Nil means NopMetrics.
	Metrics Metrics `yaml:"-"`
	// OnEvent handles every non-resize event during Tick, typically by
	// writing to state.
	OnEvent func(ev Event, state *value.State) `yaml:"-"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		MaxDepth:     128,
		TickInterval: 100 * time.Millisecond,
		QuitKeys:     []string{"ctrl+c"},
		InboxSize:    64,
		ColorProfile: "auto",
	}
}

var colorProfiles = []string{"auto", "truecolor", "256", "16", "none"}

// LoadConfig reads a YAML config file over DefaultConfig. ${VAR} and
// ${VAR:-default} in the file are replaced from the environment, and
// LOOM_COLOR_PROFILE and LOOM_DEBUG_FLUSH override the file.
func LoadConfig(path string) (Config, error) {
	return loadConfig(path, os.Getenv)
}

func loadConfig(path string, getenv func(string) string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		data = interpolateEnv(data, getenv)
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	if p := getenv("LOOM_COLOR_PROFILE"); p != "" {
		cfg.ColorProfile = p
	}
	if getenv("LOOM_DEBUG_FLUSH") == "1" {
		cfg.DebugFlush = true
	}
	return cfg, cfg.Validate()
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []string
	if c.MaxDepth < 1 {
		errs = append(errs, fmt.Sprintf("max_depth must be positive, got %d", c.MaxDepth))
	}
	if c.TickInterval <= 0 {
		errs = append(errs, fmt.Sprintf("tick_interval must be positive, got %s", c.TickInterval))
	}
	if c.InboxSize < 0 {
		errs = append(errs, fmt.Sprintf("inbox_size must not be negative, got %d", c.InboxSize))
	}
	known := false
	for _, p := range colorProfiles {
		known = known || c.ColorProfile == p
	}
	if !known {
		errs = append(errs, fmt.Sprintf("color_profile %q is not one of %s", c.ColorProfile, strings.Join(colorProfiles, ", ")))
	}
	for _, k := range c.QuitKeys {
		if _, err := ParseKey(k); err != nil {
			errs = append(errs, fmt.Sprintf("quit_keys: %v", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func (c Config) logger() *log.Logger {
	if c.Logger == nil {
		return log.New(io.Discard, "", 0)
	}
	return c.Logger
}

func (c Config) metrics() Metrics {
	if c.Metrics == nil {
		return NopMetrics{}
	}
	return c.Metrics
}

// envPattern matches ${VAR} or ${VAR:-default}
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func interpolateEnv(data []byte, getenv func(string) string) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		parts := envPattern.FindSubmatch(match)
		v := getenv(string(parts[1]))
		if v == "" && len(parts[2]) > 0 {
			v = string(parts[2])
		}
		return []byte(v)
	})
}
