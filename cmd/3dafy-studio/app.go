package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/AllenDang/cimgui-go/backend"
	"github.com/AllenDang/cimgui-go/backend/sdlbackend"
	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/FreshLemonLeaf/3dafy/internal/box"
	"github.com/FreshLemonLeaf/3dafy/internal/config"
	"github.com/FreshLemonLeaf/3dafy/internal/export"
	"github.com/FreshLemonLeaf/3dafy/internal/logger"
	"github.com/FreshLemonLeaf/3dafy/internal/preview"
	"github.com/FreshLemonLeaf/3dafy/internal/render"
	"github.com/FreshLemonLeaf/3dafy/internal/session"
)

const (
	controlsPanelWidth = float32(280)
	statusBarHeight    = float32(30)
	statusMsgDuration  = 4 * time.Second
)

// lastMousePos tracks the previous mouse position for drag deltas over
// the preview image.
var lastMousePos imgui.Vec2

type exportResult struct {
	path string
	err  error
}

// App holds the editor state and drives the per-frame UI.
type App struct {
	backend backend.Backend[sdlbackend.SDLWindowFlags]

	cfg      *config.Config
	sess     *session.Session
	exporter *export.Exporter

	viewer *render.BoxViewer
	ctrl   *preview.Controller

	// Widget bindings. The session is the source of truth; these mirror
	// it for ImGui's pointer-based widgets.
	depth     float32
	sideColor [3]float32
	backMode  int32

	// Image state shown in the status bar.
	imageName string
	imageSize [2]int

	// File dialogs run on a helper goroutine; SDL windows must be
	// touched from the main thread only, so results land in pending
	// fields the render loop picks up.
	pendingImage chan string
	pendingSave  chan string
	exportDone   chan exportResult

	statusMsg  string
	statusTime time.Time

	lastFrame time.Time
}

// NewApp creates the backend, the window, and the GL-backed viewer.
func NewApp(cfg *config.Config, sess *session.Session) *App {
	app := &App{
		cfg:          cfg,
		sess:         sess,
		exporter:     export.NewExporter(),
		depth:        sess.Depth(),
		sideColor:    sess.SideColor().Floats(),
		pendingImage: make(chan string, 1),
		pendingSave:  make(chan string, 1),
		exportDone:   make(chan exportResult, 1),
		lastFrame:    time.Now(),
	}
	if sess.BackMode() == box.BackColor {
		app.backMode = 1
	}

	var err error
	app.backend, err = backend.CreateBackend(sdlbackend.NewSDLBackend())
	if err != nil {
		logger.Fatal("creating UI backend", zap.Error(err))
	}

	app.backend.SetBgColor(imgui.NewVec4(0.1, 0.1, 0.12, 1.0))
	app.backend.CreateWindow("3dafy studio", cfg.Window.Width, cfg.Window.Height)

	if err := gl.Init(); err != nil {
		logger.Fatal("initializing OpenGL", zap.Error(err))
	}

	app.viewer, err = render.NewBoxViewer(512, 512)
	if err != nil {
		logger.Fatal("creating preview viewer", zap.Error(err))
	}
	app.ctrl = preview.NewController(sess, app.viewer)

	return app
}

// Run enters the frame loop and blocks until the window closes.
func (app *App) Run() {
	app.backend.Run(app.render)
	app.viewer.Destroy()
}

// render draws one frame of the UI.
func (app *App) render() {
	app.processPending()

	if imgui.BeginMainMenuBar() {
		if imgui.BeginMenu("File") {
			if imgui.MenuItemBool("Open Image...") {
				app.openImageDialog()
			}
			exportable := app.sess.CanExport() && !app.exporter.Busy()
			if imgui.MenuItemBoolV("Export GLB...", "", false, exportable) {
				app.saveDialog()
			}
			imgui.Separator()
			if imgui.MenuItemBool("Exit") {
				app.backend.SetShouldClose(true)
			}
			imgui.EndMenu()
		}
		imgui.EndMainMenuBar()
	}

	viewport := imgui.MainViewport()
	workPos := viewport.WorkPos()
	workSize := viewport.WorkSize()
	contentHeight := workSize.Y - statusBarHeight

	flags := imgui.WindowFlagsNoMove | imgui.WindowFlagsNoResize | imgui.WindowFlagsNoCollapse

	imgui.SetNextWindowPos(workPos)
	imgui.SetNextWindowSize(imgui.NewVec2(controlsPanelWidth, contentHeight))
	if imgui.BeginV("Controls", nil, flags) {
		app.renderControls()
	}
	imgui.End()

	imgui.SetNextWindowPos(imgui.NewVec2(workPos.X+controlsPanelWidth, workPos.Y))
	imgui.SetNextWindowSize(imgui.NewVec2(workSize.X-controlsPanelWidth, contentHeight))
	if imgui.BeginV("Preview", nil, flags) {
		app.renderPreview()
	}
	imgui.End()

	imgui.SetNextWindowPos(imgui.NewVec2(workPos.X, workPos.Y+contentHeight))
	imgui.SetNextWindowSize(imgui.NewVec2(workSize.X, statusBarHeight))
	statusFlags := flags | imgui.WindowFlagsNoTitleBar | imgui.WindowFlagsNoScrollbar
	if imgui.BeginV("##StatusBar", nil, statusFlags) {
		app.renderStatusBar()
	}
	imgui.End()
}

// processPending handles dialog results and finished work queued for the
// main thread.
func (app *App) processPending() {
	select {
	case path := <-app.pendingImage:
		app.loadImageFile(path)
	default:
	}

	select {
	case path := <-app.pendingSave:
		app.startExport(path)
	default:
	}

	select {
	case res := <-app.exportDone:
		if res.err != nil {
			logger.Error("export failed", zap.String("path", res.path), zap.Error(res.err))
			app.notify(fmt.Sprintf("Export failed: %v", res.err))
		} else {
			app.notify("Exported " + filepath.Base(res.path))
			app.cfg.Export.OutputDir = filepath.Dir(res.path)
		}
	default:
	}

	// Surface decode outcomes without blocking the frame.
	for {
		select {
		case res := <-app.sess.Results():
			if res.Err != nil {
				app.notify("Could not decode image")
				app.imageName = ""
				app.imageSize = [2]int{}
			} else {
				r := res.Texture.Resource
				app.imageSize = [2]int{r.Width, r.Height}
				app.notify(fmt.Sprintf("Loaded %s (%dx%d)", app.imageName, r.Width, r.Height))
			}
		default:
			return
		}
	}
}

func (app *App) renderControls() {
	imgui.Text("Extrusion")
	imgui.SetNextItemWidth(-1)
	if imgui.SliderFloatV("##depth", &app.depth,
		config.MinExtrusionDepth, config.MaxExtrusionDepth, "%.2f", imgui.SliderFlagsNone) {
		app.sess.SetDepth(app.depth)
	}

	imgui.Spacing()
	imgui.Separator()

	imgui.Text("Side color")
	if imgui.ColorEdit3("##sidecolor", &app.sideColor) {
		app.sess.SetSideColor(rgbFromFloats(app.sideColor))
	}

	imgui.Spacing()
	imgui.Separator()

	imgui.Text("Back face")
	if imgui.RadioButtonIntPtr("Image##back", &app.backMode, 0) {
		app.sess.SetBackMode(box.BackImage)
	}
	if imgui.RadioButtonIntPtr("Side color##back", &app.backMode, 1) {
		app.sess.SetBackMode(box.BackColor)
	}

	imgui.Spacing()
	imgui.Separator()

	spinning := app.ctrl.Spinning()
	if imgui.Checkbox("Spin", &spinning) {
		app.ctrl.SetSpinning(spinning)
	}
	if imgui.Button("Reset view") {
		app.viewer.ResetCamera()
		app.ctrl.ResetAngle()
	}

	imgui.Spacing()
	imgui.Separator()
	imgui.Spacing()

	if imgui.ButtonV("Open Image...", imgui.NewVec2(-1, 0)) {
		app.openImageDialog()
	}

	exportable := app.sess.CanExport() && !app.exporter.Busy()
	imgui.BeginDisabledV(!exportable)
	if imgui.ButtonV("Export GLB...", imgui.NewVec2(-1, 0)) {
		app.saveDialog()
	}
	imgui.EndDisabled()
	if !app.sess.CanExport() && imgui.IsItemHovered() {
		imgui.SetTooltip("Load an image first")
	}
}

func (app *App) renderPreview() {
	now := time.Now()
	dt := float32(now.Sub(app.lastFrame).Seconds())
	app.lastFrame = now

	avail := imgui.ContentRegionAvail()
	w, h := int32(avail.X), int32(avail.Y)
	app.ctrl.Step(dt, w, h)

	texRef := imgui.NewTextureRefTextureID(imgui.TextureID(app.viewer.Texture()))
	imgui.ImageWithBgV(
		*texRef,
		imgui.NewVec2(avail.X, avail.Y),
		imgui.NewVec2(0, 1), // GL textures are bottom-up
		imgui.NewVec2(1, 0),
		imgui.NewVec4(0.15, 0.15, 0.2, 1.0),
		imgui.NewVec4(1, 1, 1, 1),
	)

	if imgui.IsItemHovered() {
		mousePos := imgui.MousePos()
		if imgui.IsMouseDragging(imgui.MouseButtonLeft) {
			app.viewer.Orbit(mousePos.X-lastMousePos.X, mousePos.Y-lastMousePos.Y)
		}
		lastMousePos = mousePos

		if wheel := imgui.CurrentIO().MouseWheel(); wheel != 0 {
			app.viewer.Zoom(wheel)
		}
	}
}

func (app *App) renderStatusBar() {
	var parts []string

	switch {
	case app.sess.Busy():
		parts = append(parts, "Decoding image...")
	case app.imageName != "":
		parts = append(parts, fmt.Sprintf("%s %dx%d", app.imageName, app.imageSize[0], app.imageSize[1]))
	default:
		parts = append(parts, "No image loaded")
	}

	if app.exporter.Busy() {
		parts = append(parts, "Exporting...")
	}
	if app.statusMsg != "" && time.Since(app.statusTime) < statusMsgDuration {
		parts = append(parts, app.statusMsg)
	}

	imgui.Text(strings.Join(parts, " | "))
}

// openImageDialog asks for an image on a helper goroutine and hands the
// chosen path back to the render loop.
func (app *App) openImageDialog() {
	go func() {
		filename, err := fileDialogLoad()
		if err != nil {
			return
		}
		select {
		case app.pendingImage <- filename:
		default:
		}
	}()
}

// saveDialog asks where to write the GLB.
func (app *App) saveDialog() {
	startDir := app.cfg.Export.OutputDir
	startName := "box.glb"
	if app.imageName != "" {
		startName = strings.TrimSuffix(app.imageName, filepath.Ext(app.imageName)) + ".glb"
	}

	go func() {
		filename, err := fileDialogSave(startDir, startName)
		if err != nil {
			return
		}
		if filepath.Ext(filename) == "" {
			filename += ".glb"
		}
		select {
		case app.pendingSave <- filename:
		default:
		}
	}()
}

func (app *App) loadImageFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("could not read image", zap.String("path", path), zap.Error(err))
		app.notify("Could not read " + filepath.Base(path))
		return
	}

	app.imageName = filepath.Base(path)
	app.imageSize = [2]int{}
	app.sess.LoadImage(data)
	app.backend.SetWindowTitle("3dafy studio - " + app.imageName)
}

// startExport writes the GLB on a worker goroutine. The exporter's gate
// rejects overlapping runs; the snapshot it reads is immutable, so the
// UI stays fully interactive while the file is written.
func (app *App) startExport(path string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := app.exporter.Export(ctx, app.sess, path)
		app.exportDone <- exportResult{path: path, err: err}
	}()
}

func (app *App) notify(msg string) {
	app.statusMsg = msg
	app.statusTime = time.Now()
}

func rgbFromFloats(c [3]float32) box.RGB {
	return box.RGB{
		R: uint8(c[0]*255 + 0.5),
		G: uint8(c[1]*255 + 0.5),
		B: uint8(c[2]*255 + 0.5),
	}
}
