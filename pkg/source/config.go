package source

import (
	"fmt"
)

// Source kinds.
const (
	KindSynthetic = "synthetic"
	KindCapture   = "capture"
)

// Limits for configurable values.
const (
	MaxWidth     = 4096
	MaxHeight    = 2160
	MaxFramerate = 120
)

// Config holds source settings. They can be changed at runtime through
// the Manager.
type Config struct {
	Kind      string `json:"kind"`
	Device    string `json:"device"` // camera index, file path or URL (capture only)
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Framerate int    `json:"framerate"`
	Loop      bool   `json:"loop"` // restart video files at EOF
}

// DefaultConfig is a 640x480 synthetic pattern at 30 FPS.
func DefaultConfig() Config {
	return Config{
		Kind:      KindSynthetic,
		Width:     640,
		Height:    480,
		Framerate: 30,
	}
}

// Validate returns a list of problems, or nil if the config is usable.
func (c *Config) Validate() []string {
	var errors []string

	if c.Kind != KindSynthetic && c.Kind != KindCapture {
		errors = append(errors, "kind must be synthetic or capture")
	}
	if c.Kind == KindCapture && c.Device == "" {
		errors = append(errors, "device is required for capture")
	}
	if c.Width < 2 || c.Width > MaxWidth || c.Width%2 != 0 {
		errors = append(errors, fmt.Sprintf("width must be even and between 2 and %d", MaxWidth))
	}
	if c.Height < 2 || c.Height > MaxHeight || c.Height%2 != 0 {
		errors = append(errors, fmt.Sprintf("height must be even and between 2 and %d", MaxHeight))
	}
	if c.Framerate < 1 || c.Framerate > MaxFramerate {
		errors = append(errors, fmt.Sprintf("framerate must be between 1 and %d", MaxFramerate))
	}

	return errors
}
