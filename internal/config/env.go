// Package config provides configuration helpers for go-edgeview commands.
// Values come from environment variables; command flags override them.
package config

import (
	"os"
	"strconv"
)

// Defaults used when the environment does not say otherwise.
const (
	DefaultSource   = "synthetic"
	DefaultWidth    = 640
	DefaultHeight   = 480
	DefaultFPS      = 30
	DefaultWebPort  = "8080"
	DefaultLogLevel = "info"
)

// Environment variable names.
const (
	EnvSource   = "EDGEVIEW_SOURCE"
	EnvWidth    = "EDGEVIEW_WIDTH"
	EnvHeight   = "EDGEVIEW_HEIGHT"
	EnvFPS      = "EDGEVIEW_FPS"
	EnvWebPort  = "EDGEVIEW_PORT"
	EnvLogLevel = "LOG_LEVEL"
)

// Env is the resolved environment configuration.
type Env struct {
	Source   string
	Width    int
	Height   int
	FPS      int
	WebPort  string
	LogLevel string
}

// Load reads the environment, falling back to defaults for missing or
// unparsable values.
func Load() Env {
	return Env{
		Source:   String(EnvSource, DefaultSource),
		Width:    Int(EnvWidth, DefaultWidth),
		Height:   Int(EnvHeight, DefaultHeight),
		FPS:      Int(EnvFPS, DefaultFPS),
		WebPort:  String(EnvWebPort, DefaultWebPort),
		LogLevel: String(EnvLogLevel, DefaultLogLevel),
	}
}

// String returns the env var or def when unset.
func String(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Int returns the env var parsed as an int, or def.
func Int(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
