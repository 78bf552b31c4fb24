// 3dafy-studio is the graphical editor: load an image, tune the box,
// watch the live preview, export a GLB.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	"go.uber.org/zap"

	"github.com/FreshLemonLeaf/3dafy/internal/box"
	"github.com/FreshLemonLeaf/3dafy/internal/config"
	"github.com/FreshLemonLeaf/3dafy/internal/logger"
	"github.com/FreshLemonLeaf/3dafy/internal/session"
)

func main() {
	runtime.LockOSThread()

	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		cfg = config.Default()
	}

	fileCfg := logger.FileConfig{}
	if cfg.Logging.LogFile != "" {
		fileCfg = logger.DefaultFileConfig(cfg.Logging.LogFile)
	}
	if err := logger.InitWithFileConfig(cfg.Logging.Level, fileCfg, true); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logger init failed: %v\n", err)
	}
	defer logger.Sync()

	for _, warn := range cfg.Normalize() {
		logger.Warn(warn)
	}

	side, _ := box.ParseHex(cfg.Model.SideColor)
	mode, _ := box.ParseBackMode(cfg.Model.BackMode)
	sess := session.New(cfg.Model.ExtrusionDepth, side, mode)

	// An image path on the command line is loaded at startup.
	if args := flag.Args(); len(args) > 0 {
		if data, err := os.ReadFile(args[0]); err != nil {
			logger.Warn("could not read image", zap.String("path", args[0]), zap.Error(err))
		} else {
			sess.LoadImage(data)
		}
	}

	app := NewApp(cfg, sess)
	app.Run()

	// Persist the settings the user ended up with.
	cfg.Model.ExtrusionDepth = sess.Depth()
	cfg.Model.SideColor = sess.SideColor().Hex()
	cfg.Model.BackMode = sess.BackMode().String()
	if err := cfg.Save(); err != nil {
		logger.Warn("could not save config", zap.Error(err))
	}

	logger.Info("shutting down")
}
