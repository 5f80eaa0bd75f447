package config

import "testing"

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{EnvSource, EnvWidth, EnvHeight, EnvFPS, EnvWebPort, EnvLogLevel} {
		t.Setenv(k, "")
	}

	env := Load()
	if env.Source != DefaultSource {
		t.Errorf("Source: got %q, want %q", env.Source, DefaultSource)
	}
	if env.Width != DefaultWidth || env.Height != DefaultHeight {
		t.Errorf("size: got %dx%d, want %dx%d", env.Width, env.Height, DefaultWidth, DefaultHeight)
	}
	if env.FPS != DefaultFPS {
		t.Errorf("FPS: got %d, want %d", env.FPS, DefaultFPS)
	}
	if env.WebPort != DefaultWebPort {
		t.Errorf("WebPort: got %q, want %q", env.WebPort, DefaultWebPort)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv(EnvSource, "0")
	t.Setenv(EnvWidth, "1280")
	t.Setenv(EnvHeight, "720")
	t.Setenv(EnvFPS, "not-a-number")

	env := Load()
	if env.Source != "0" {
		t.Errorf("Source: got %q", env.Source)
	}
	if env.Width != 1280 || env.Height != 720 {
		t.Errorf("size: got %dx%d", env.Width, env.Height)
	}
	if env.FPS != DefaultFPS {
		t.Errorf("bad FPS should fall back to default, got %d", env.FPS)
	}
}
