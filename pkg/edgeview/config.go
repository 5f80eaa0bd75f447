// Package edgeview wires a frame source, the pipeline worker, the edge
// processor, a display and the web preview into one application.
package edgeview

import (
	"github.com/teslashibe/go-edgeview/internal/config"
	"github.com/teslashibe/go-edgeview/pkg/source"
)

// DefaultTitle is the window title.
const DefaultTitle = "edgeview"

// Config holds all configuration for the application.
// Flag parsing is done in cmd/edgeview/main.go; this struct is data only.
type Config struct {
	// Debug enables verbose debug logging.
	Debug bool

	// DebugFrames prints a line per processed frame.
	DebugFrames bool

	// Source describes where frames come from.
	Source source.Config

	// Headless processes into an in-memory texture instead of a window.
	Headless bool
	Title    string

	// Web preview. Empty WebPort disables it.
	WebPort string
	Quality int
}

// DefaultConfig returns defaults taken from the environment.
func DefaultConfig() Config {
	cfg := Config{
		Source:  source.DefaultConfig(),
		Title:   DefaultTitle,
		WebPort: config.DefaultWebPort,
	}
	cfg.LoadEnvConfig()
	return cfg
}

// LoadEnvConfig applies environment overrides.
func (c *Config) LoadEnvConfig() {
	env := config.Load()
	c.Source.Kind, c.Source.Device = source.ParseSource(env.Source)
	c.Source.Width = env.Width
	c.Source.Height = env.Height
	c.Source.Framerate = env.FPS
	c.WebPort = env.WebPort
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if errs := c.Source.Validate(); len(errs) > 0 {
		return &ConfigError{Field: "Source", Message: "invalid source: " + errs[0]}
	}
	if c.Quality < 0 || c.Quality > 100 {
		return &ConfigError{Field: "Quality", Message: "quality must be between 0 and 100"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}
