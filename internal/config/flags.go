package config

import "flag"

var (
	flagConfig = flag.String("config", "", "Path to config file")
	flagDebug  = flag.Bool("debug", false, "Enable debug logging")
	flagLog    = flag.String("log", "", "Path to log file")
	flagWidth  = flag.Int("width", 0, "Window width")
	flagHeight = flag.Int("height", 0, "Window height")
	flagDepth  = flag.Float64("depth", 0, "Box extrusion depth")
	flagColor  = flag.String("color", "", "Side face color, #rrggbb")
	flagBack   = flag.String("back", "", "Back face mode: image or color")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagLog != "" {
		cfg.Logging.LogFile = *flagLog
	}
	if *flagWidth > 0 {
		cfg.Window.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Window.Height = *flagHeight
	}
	if *flagDepth > 0 {
		cfg.Model.ExtrusionDepth = float32(*flagDepth)
	}
	if *flagColor != "" {
		cfg.Model.SideColor = *flagColor
	}
	if *flagBack != "" {
		cfg.Model.BackMode = *flagBack
	}
}
