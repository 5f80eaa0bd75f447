package source

// Preset names for common resolutions.
const (
	PresetDefault = "default"
	PresetQVGA    = "qvga"
	PresetVGA     = "vga"
	Preset720p    = "720p"
	Preset1080p   = "1080p"
)

// PresetNames lists the presets in a stable order.
func PresetNames() []string {
	return []string{PresetDefault, PresetQVGA, PresetVGA, Preset720p, Preset1080p}
}

// GetPreset applies a preset's resolution and framerate to base. ok is
// false for unknown names.
func GetPreset(name string, base Config) (cfg Config, ok bool) {
	cfg = base
	switch name {
	case PresetDefault:
		d := DefaultConfig()
		cfg.Width, cfg.Height, cfg.Framerate = d.Width, d.Height, d.Framerate
	case PresetQVGA:
		cfg.Width, cfg.Height, cfg.Framerate = 320, 240, 30
	case PresetVGA:
		cfg.Width, cfg.Height, cfg.Framerate = 640, 480, 30
	case Preset720p:
		cfg.Width, cfg.Height, cfg.Framerate = 1280, 720, 30
	case Preset1080p:
		cfg.Width, cfg.Height, cfg.Framerate = 1920, 1080, 30
	default:
		return base, false
	}
	return cfg, true
}
