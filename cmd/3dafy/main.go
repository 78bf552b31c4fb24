// 3dafy is a CLI for turning a 2D image into an extruded 3D box model.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/FreshLemonLeaf/3dafy/internal/box"
	"github.com/FreshLemonLeaf/3dafy/internal/config"
	"github.com/FreshLemonLeaf/3dafy/internal/export"
	"github.com/FreshLemonLeaf/3dafy/internal/logger"
	"github.com/FreshLemonLeaf/3dafy/internal/preview"
	"github.com/FreshLemonLeaf/3dafy/internal/render"
	"github.com/FreshLemonLeaf/3dafy/internal/session"
	"github.com/FreshLemonLeaf/3dafy/pkg/gltf"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "build":
		cmdBuild(args)
	case "inspect":
		cmdInspect(args)
	case "view":
		cmdView(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`3dafy - turn a 2D image into an extruded 3D box model

Usage:
  3dafy <command> [options]

Commands:
  build <image>    Build a GLB model from an image
  inspect <file>   Show a GLB file's structure
  view [image]     Open an interactive preview window

Build options:
  -depth N         Extrusion depth, 0.05 to 1.00
  -color #rrggbb   Side face color
  -back MODE       Back face: image or color
  -o FILE          Output path (default: image name + .glb)

Examples:
  3dafy build photo.png -depth 0.25 -o photo.glb
  3dafy inspect photo.glb
  3dafy view photo.png`)
}

// loadConfig reads the config file, falling back to defaults when it is
// missing or broken. CLI commands never fail on a bad config file.
func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		cfg = config.Default()
	}
	return cfg
}

func initLogging(cfg *config.Config) {
	fileCfg := logger.FileConfig{}
	if cfg.Logging.LogFile != "" {
		fileCfg = logger.DefaultFileConfig(cfg.Logging.LogFile)
	}
	if err := logger.InitWithFileConfig(cfg.Logging.Level, fileCfg, true); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logger init failed: %v\n", err)
	}
	for _, warn := range cfg.Normalize() {
		logger.Warn(warn)
	}
}

// modelSettings converts the normalized config values to model types.
func modelSettings(cfg *config.Config) (float32, box.RGB, box.BackMode) {
	side, err := box.ParseHex(cfg.Model.SideColor)
	if err != nil {
		side = box.White
	}
	mode, err := box.ParseBackMode(cfg.Model.BackMode)
	if err != nil {
		mode = box.BackImage
	}
	return cfg.Model.ExtrusionDepth, side, mode
}

func cmdBuild(args []string) {
	cfg := loadConfig()

	fs := flag.NewFlagSet("build", flag.ExitOnError)
	depth := fs.Float64("depth", float64(cfg.Model.ExtrusionDepth), "Extrusion depth, 0.05 to 1.00")
	color := fs.String("color", cfg.Model.SideColor, "Side face color, #rrggbb")
	back := fs.String("back", cfg.Model.BackMode, "Back face mode: image or color")
	out := fs.String("o", "", "Output GLB path")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: 3dafy build <image> [-depth N] [-color #rrggbb] [-back image|color] [-o out.glb]")
		os.Exit(1)
	}

	cfg.Model.ExtrusionDepth = float32(*depth)
	cfg.Model.SideColor = *color
	cfg.Model.BackMode = *back
	initLogging(cfg)
	defer logger.Sync()

	imagePath := fs.Arg(0)
	data, err := os.ReadFile(imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	sess := session.New(modelSettings(cfg))
	sess.LoadImage(data)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := sess.Ready(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if !sess.CanExport() {
		fmt.Fprintf(os.Stderr, "Error: could not decode %s\n", imagePath)
		os.Exit(1)
	}

	outPath := *out
	if outPath == "" {
		outPath = strings.TrimSuffix(imagePath, filepath.Ext(imagePath)) + ".glb"
	}

	if err := export.NewExporter().Export(ctx, sess, outPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	info, err := os.Stat(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	m := sess.Model()
	fmt.Printf("Wrote %s (%d triangles, %d bytes)\n", outPath, m.TriangleCount(), info.Size())
}

func cmdInspect(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: 3dafy inspect <file.glb>")
		os.Exit(1)
	}
	path := args[0]

	doc, bin, err := gltf.ParseGLBFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	info, err := os.Stat(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("File:      %s (%d bytes)\n", path, info.Size())
	fmt.Printf("Asset:     glTF %s", doc.Asset.Version)
	if doc.Asset.Generator != "" {
		fmt.Printf(", generator %q", doc.Asset.Generator)
	}
	fmt.Println()
	fmt.Printf("Binary:    %d bytes\n", len(bin))
	fmt.Printf("Counts:    %d mesh(es), %d material(s), %d image(s), %d accessor(s)\n",
		len(doc.Meshes), len(doc.Materials), len(doc.Images), len(doc.Accessors))
	fmt.Printf("Geometry:  %d vertices, %d triangles\n", doc.VertexCount(), doc.TriangleCount())
	fmt.Println()

	for mi, mesh := range doc.Meshes {
		name := mesh.Name
		if name == "" {
			name = fmt.Sprintf("#%d", mi)
		}
		fmt.Printf("Mesh %s:\n", name)
		for pi, prim := range mesh.Primitives {
			desc := describePrimitive(doc, prim)
			fmt.Printf("  primitive %d: %s\n", pi, desc)
		}
	}

	if len(doc.Images) > 0 {
		fmt.Println()
		for ii, img := range doc.Images {
			size := 0
			if img.BufferView != nil {
				if data, err := doc.ViewData(bin, *img.BufferView); err == nil {
					size = len(data)
				}
			}
			fmt.Printf("Image %d: %s, %s, %d bytes\n", ii, img.Name, img.MimeType, size)
		}
	}
}

func describePrimitive(doc *gltf.Document, prim gltf.Primitive) string {
	triangles := 0
	if prim.Indices != nil && *prim.Indices < len(doc.Accessors) {
		triangles = doc.Accessors[*prim.Indices].Count / 3
	}

	material := "none"
	if prim.Material != nil && *prim.Material < len(doc.Materials) {
		m := doc.Materials[*prim.Material]
		material = m.Name
		if material == "" {
			material = fmt.Sprintf("#%d", *prim.Material)
		}
		if m.PBRMetallicRoughness != nil && m.PBRMetallicRoughness.BaseColorTexture != nil {
			material += " (textured)"
		}
	}

	return fmt.Sprintf("%d triangles, material %s", triangles, material)
}

func cmdView(args []string) {
	cfg := loadConfig()

	fs := flag.NewFlagSet("view", flag.ExitOnError)
	depth := fs.Float64("depth", float64(cfg.Model.ExtrusionDepth), "Extrusion depth, 0.05 to 1.00")
	color := fs.String("color", cfg.Model.SideColor, "Side face color, #rrggbb")
	back := fs.String("back", cfg.Model.BackMode, "Back face mode: image or color")
	fs.Parse(args)

	cfg.Model.ExtrusionDepth = float32(*depth)
	cfg.Model.SideColor = *color
	cfg.Model.BackMode = *back
	initLogging(cfg)
	defer logger.Sync()

	sess := session.New(modelSettings(cfg))
	if fs.NArg() > 0 {
		data, err := os.ReadFile(fs.Arg(0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		sess.LoadImage(data)
	}

	if err := runViewer(cfg, sess); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runViewer owns the SDL window and the frame loop for the view command.
func runViewer(cfg *config.Config, sess *session.Session) error {
	win, err := render.NewWindow(render.WindowConfig{
		Title:  "3dafy viewer",
		Width:  cfg.Window.Width,
		Height: cfg.Window.Height,
		VSync:  cfg.Window.VSync,
	})
	if err != nil {
		return err
	}
	defer win.Close()

	if err := gl.Init(); err != nil {
		return fmt.Errorf("initializing OpenGL: %w", err)
	}

	w, h := win.DrawableSize()
	viewer, err := render.NewBoxViewer(w, h)
	if err != nil {
		return err
	}
	defer viewer.Destroy()

	ctrl := preview.NewController(sess, viewer)
	input := render.NewInput()

	var (
		dragging     bool
		lastX, lastY int32
	)
	last := time.Now()

	for {
		if input.Update() {
			return nil
		}

		for _, e := range input.Events() {
			switch e.Type {
			case render.EventKeyDown:
				switch e.Key {
				case sdl.SCANCODE_ESCAPE:
					return nil
				case sdl.SCANCODE_SPACE:
					ctrl.SetSpinning(!ctrl.Spinning())
				case sdl.SCANCODE_R:
					viewer.ResetCamera()
					ctrl.ResetAngle()
				}

			case render.EventMouseDown:
				if e.Button == sdl.BUTTON_LEFT {
					dragging = true
					lastX, lastY = e.MouseX, e.MouseY
				}

			case render.EventMouseUp:
				if e.Button == sdl.BUTTON_LEFT {
					dragging = false
				}

			case render.EventMouseMove:
				if dragging {
					viewer.Orbit(float32(e.MouseX-lastX), float32(e.MouseY-lastY))
					lastX, lastY = e.MouseX, e.MouseY
				}

			case render.EventMouseWheel:
				viewer.Zoom(e.WheelY)

			case render.EventDropFile:
				data, err := os.ReadFile(e.File)
				if err != nil {
					logger.Warn("could not read dropped file", zap.Error(err))
					continue
				}
				sess.LoadImage(data)
			}
		}

		now := time.Now()
		dt := float32(now.Sub(last).Seconds())
		last = now

		w, h := win.DrawableSize()
		ctrl.Step(dt, w, h)
		viewer.Present(w, h)
		win.SwapBuffers()
	}
}
