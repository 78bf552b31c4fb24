// Package config handles tool configuration loading and management.
package config

import (
	"fmt"
	"math"
	"strings"
)

// Extrusion depth bounds enforced at the configuration boundary. The
// geometry builder itself accepts any positive depth.
const (
	MinExtrusionDepth = 0.05
	MaxExtrusionDepth = 1.00
)

// Default model values used when the file or flags carry invalid data.
const (
	DefaultExtrusionDepth = 0.10
	DefaultSideColor      = "#ffffff"
	DefaultBackMode       = "image"
)

// Config holds all tool settings.
type Config struct {
	Model   ModelConfig   `yaml:"model"`
	Window  WindowConfig  `yaml:"window"`
	Export  ExportConfig  `yaml:"export"`
	Logging LoggingConfig `yaml:"logging"`
}

// ModelConfig holds the box construction parameters.
type ModelConfig struct {
	ExtrusionDepth float32 `yaml:"extrusion_depth"` // Box depth, clamped to [0.05, 1.00]
	SideColor      string  `yaml:"side_color"`      // Hex color "#rrggbb" for the four side faces
	BackMode       string  `yaml:"back_mode"`       // "image" or "color"
}

// WindowConfig holds editor window settings.
type WindowConfig struct {
	Width  int  `yaml:"width"`
	Height int  `yaml:"height"`
	VSync  bool `yaml:"vsync"`
}

// ExportConfig holds GLB export settings.
type ExportConfig struct {
	OutputDir string `yaml:"output_dir"` // Default directory for save dialogs; empty means cwd
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			ExtrusionDepth: DefaultExtrusionDepth,
			SideColor:      DefaultSideColor,
			BackMode:       DefaultBackMode,
		},
		Window: WindowConfig{
			Width:  1280,
			Height: 720,
			VSync:  true,
		},
		Export: ExportConfig{
			OutputDir: "",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Normalize clamps and validates the model settings in place, replacing
// invalid values with defaults. It returns one message per correction so
// the caller can log them once the logger is up.
func (c *Config) Normalize() []string {
	var warnings []string

	d := c.Model.ExtrusionDepth
	switch {
	case math.IsNaN(float64(d)) || math.IsInf(float64(d), 0):
		c.Model.ExtrusionDepth = DefaultExtrusionDepth
		warnings = append(warnings, fmt.Sprintf("extrusion depth is not a number, using %.2f", DefaultExtrusionDepth))
	case d < MinExtrusionDepth:
		c.Model.ExtrusionDepth = MinExtrusionDepth
		warnings = append(warnings, fmt.Sprintf("extrusion depth %.3f below minimum, clamped to %.2f", d, MinExtrusionDepth))
	case d > MaxExtrusionDepth:
		c.Model.ExtrusionDepth = MaxExtrusionDepth
		warnings = append(warnings, fmt.Sprintf("extrusion depth %.3f above maximum, clamped to %.2f", d, MaxExtrusionDepth))
	}

	if !validHexColor(c.Model.SideColor) {
		warnings = append(warnings, fmt.Sprintf("invalid side color %q, using %s", c.Model.SideColor, DefaultSideColor))
		c.Model.SideColor = DefaultSideColor
	}

	mode := strings.ToLower(c.Model.BackMode)
	if mode != "image" && mode != "color" {
		warnings = append(warnings, fmt.Sprintf("invalid back mode %q, using %s", c.Model.BackMode, DefaultBackMode))
		mode = DefaultBackMode
	}
	c.Model.BackMode = mode

	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		warnings = append(warnings, fmt.Sprintf("invalid window size %dx%d, using 1280x720", c.Window.Width, c.Window.Height))
		c.Window.Width = 1280
		c.Window.Height = 720
	}

	return warnings
}

// validHexColor reports whether s is a "#rrggbb" hex color.
func validHexColor(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, r := range s[1:] {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
