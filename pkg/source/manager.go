package source

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Manager holds the current source configuration and handles updates.
type Manager struct {
	config Config
	mu     sync.RWMutex

	// Serializes SetConfig so a failed apply cannot interleave with another.
	applyMu sync.Mutex

	// Callback when config changes (reopen the source)
	OnConfigChange func(cfg Config) error
}

// NewManager creates a manager starting from cfg.
func NewManager(cfg Config) *Manager {
	return &Manager{config: cfg}
}

// GetConfig returns the current configuration.
func (m *Manager) GetConfig() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// SetConfig validates cfg, applies it through OnConfigChange and stores it.
// The previous config stays current if the callback fails.
func (m *Manager) SetConfig(cfg Config) error {
	if errors := cfg.Validate(); len(errors) > 0 {
		return fmt.Errorf("validation failed: %v", errors)
	}

	m.applyMu.Lock()
	defer m.applyMu.Unlock()

	m.mu.RLock()
	callback := m.OnConfigChange
	m.mu.RUnlock()

	if callback != nil {
		if err := callback(cfg); err != nil {
			return fmt.Errorf("failed to apply config: %w", err)
		}
	}

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// UpdateConfig applies a partial update. A "preset" key is applied first,
// then individual fields override it.
func (m *Manager) UpdateConfig(params map[string]interface{}) error {
	cfg := m.GetConfig()

	if name, ok := params["preset"].(string); ok {
		preset, found := GetPreset(name, cfg)
		if !found {
			return fmt.Errorf("unknown preset: %s", name)
		}
		cfg = preset
	}

	for key, value := range params {
		switch key {
		case "kind":
			if v, ok := value.(string); ok {
				cfg.Kind = v
			}
		case "device":
			if v, ok := value.(string); ok {
				cfg.Device = v
			}
		case "width":
			if v, ok := toInt(value); ok {
				cfg.Width = v
			}
		case "height":
			if v, ok := toInt(value); ok {
				cfg.Height = v
			}
		case "framerate":
			if v, ok := toInt(value); ok {
				cfg.Framerate = v
			}
		case "loop":
			if v, ok := value.(bool); ok {
				cfg.Loop = v
			}
		}
	}

	return m.SetConfig(cfg)
}

func toInt(v interface{}) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		return int(val), true
	case json.Number:
		i, err := val.Int64()
		if err == nil {
			return int(i), true
		}
	}
	return 0, false
}
