package session

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/FreshLemonLeaf/3dafy/internal/box"
	"github.com/FreshLemonLeaf/3dafy/internal/export"
	"github.com/FreshLemonLeaf/3dafy/internal/logger"
	"github.com/FreshLemonLeaf/3dafy/pkg/gltf"
)

func TestMain(m *testing.M) {
	logger.InitWithFileConfig("error", logger.FileConfig{}, false)
	os.Exit(m.Run())
}

func TestNewBuildsFlatModel(t *testing.T) {
	s := New(0.10, box.RGB{R: 255, G: 0, B: 0}, box.BackImage)

	m := s.Model()
	if m == nil {
		t.Fatal("Model() = nil for a fresh session")
	}
	if m.Depth != 0.10 {
		t.Errorf("model depth = %v, want 0.10", m.Depth)
	}
	if got := len(m.Vertices); got != box.FaceCount*box.VerticesPerFace {
		t.Errorf("vertex count = %d, want %d", got, box.FaceCount*box.VerticesPerFace)
	}

	front := m.Materials[box.FaceFront]
	if front.Kind != box.KindColor || front.Color != box.White {
		t.Errorf("front material = %+v, want flat white", front)
	}
	if back := m.Materials[box.FaceBack]; back.Color != s.SideColor() {
		t.Errorf("back material color = %+v, want side color fallback", back.Color)
	}
	for _, f := range []box.Face{box.FaceRight, box.FaceLeft, box.FaceTop, box.FaceBottom} {
		if got := m.Materials[f]; got.Kind != box.KindColor || got.Color != (box.RGB{R: 255, G: 0, B: 0}) {
			t.Errorf("%v material = %+v, want flat red", f, got)
		}
	}
}

func TestDecodeCompletionObserved(t *testing.T) {
	s := New(0.10, box.White, box.BackImage)

	s.LoadImage(pngBytes(t, 4, 3))
	waitReady(t, s)

	m := s.Model()
	front := m.Materials[box.FaceFront]
	if front.Kind != box.KindTexture || front.Texture == nil {
		t.Fatalf("front material = %+v, want textured", front)
	}
	if r := front.Texture.Resource; r.Width != 4 || r.Height != 3 {
		t.Errorf("texture size = %dx%d, want 4x3", r.Width, r.Height)
	}
	if back := m.Materials[box.FaceBack]; back.Texture != front.Texture {
		t.Errorf("back texture = %p, want shared with front %p", back.Texture, front.Texture)
	}
}

func TestDepthOnlyChangeKeepsMaterials(t *testing.T) {
	s := New(0.30, box.RGB{R: 16, G: 32, B: 48}, box.BackImage)
	s.LoadImage(pngBytes(t, 2, 2))
	waitReady(t, s)

	before := s.Model()
	s.SetDepth(0.90)
	after := s.Model()

	if after == before {
		t.Fatal("depth change did not produce a new snapshot")
	}
	if after.Depth != 0.90 {
		t.Errorf("depth = %v, want 0.90", after.Depth)
	}
	if after.Bounds.Min[2] != -0.45 || after.Bounds.Max[2] != 0.45 {
		t.Errorf("z bounds = [%v, %v], want [-0.45, 0.45]",
			after.Bounds.Min[2], after.Bounds.Max[2])
	}
	if after.Materials != before.Materials {
		t.Errorf("materials changed on a depth-only edit:\nbefore %+v\nafter  %+v",
			before.Materials, after.Materials)
	}
}

func TestSideColorChangeRecomputes(t *testing.T) {
	s := New(0.10, box.RGB{R: 255, G: 0, B: 0}, box.BackColor)
	s.LoadImage(pngBytes(t, 2, 2))
	waitReady(t, s)

	before := s.Model()
	green := box.RGB{R: 0, G: 255, B: 0}
	s.SetSideColor(green)
	after := s.Model()

	if got := after.Materials[box.FaceRight].Color; got != green {
		t.Errorf("side color = %+v, want %+v", got, green)
	}
	if got := after.Materials[box.FaceBack].Color; got != green {
		t.Errorf("back color = %+v, want side color %+v", got, green)
	}
	if after.Materials[box.FaceFront].Texture != before.Materials[box.FaceFront].Texture {
		t.Error("front texture identity changed on a color-only edit")
	}
}

func TestBackModeToggle(t *testing.T) {
	s := New(0.10, box.RGB{R: 10, G: 20, B: 30}, box.BackImage)
	s.LoadImage(pngBytes(t, 2, 2))
	waitReady(t, s)

	if back := s.Model().Materials[box.FaceBack]; back.Kind != box.KindTexture {
		t.Fatalf("back material = %+v, want textured in image mode", back)
	}

	s.SetBackMode(box.BackColor)
	back := s.Model().Materials[box.FaceBack]
	if back.Kind != box.KindColor || back.Color != (box.RGB{R: 10, G: 20, B: 30}) {
		t.Errorf("back material = %+v, want flat side color", back)
	}

	s.SetBackMode(box.BackImage)
	if back := s.Model().Materials[box.FaceBack]; back.Kind != box.KindTexture {
		t.Errorf("back material = %+v, want textured after toggling back", back)
	}
}

func TestNewestUploadWins(t *testing.T) {
	s := New(0.10, box.White, box.BackImage)

	s.LoadImage(pngBytes(t, 2, 2))
	s.LoadImage(pngBytes(t, 5, 3))
	waitReady(t, s)

	front := s.Model().Materials[box.FaceFront]
	if front.Texture == nil {
		t.Fatal("front not textured after two uploads")
	}
	if r := front.Texture.Resource; r.Width != 5 || r.Height != 3 {
		t.Errorf("texture size = %dx%d, want the newer 5x3", r.Width, r.Height)
	}
}

func TestFailedDecodeClearsImage(t *testing.T) {
	s := New(0.10, box.White, box.BackImage)
	s.LoadImage(pngBytes(t, 2, 2))
	waitReady(t, s)

	s.LoadImage([]byte("not an image"))
	waitReady(t, s)

	if front := s.Model().Materials[box.FaceFront]; front.Kind != box.KindColor {
		t.Errorf("front material = %+v, want flat after a failed decode", front)
	}
	if s.CanExport() {
		t.Error("CanExport() = true after a failed decode")
	}
}

func TestCanExport(t *testing.T) {
	s := New(0.10, box.White, box.BackImage)
	if s.CanExport() {
		t.Error("CanExport() = true with no image")
	}

	s.LoadImage(pngBytes(t, 2, 2))
	if !s.CanExport() {
		t.Error("CanExport() = false right after an upload")
	}

	waitReady(t, s)
	if !s.CanExport() {
		t.Error("CanExport() = false with a decoded image")
	}

	s.ClearImage()
	if s.CanExport() {
		t.Error("CanExport() = true after clearing the image")
	}
}

func TestModelStableWhenUnchanged(t *testing.T) {
	s := New(0.10, box.White, box.BackImage)

	m1 := s.Model()
	m2 := s.Model()
	if m1 != m2 {
		t.Error("repeated reads produced distinct snapshots with no changes")
	}

	s.SetDepth(0.10)
	if s.Model() != m1 {
		t.Error("setting the depth to its current value rebuilt the model")
	}
}

func TestExportThroughSession(t *testing.T) {
	s := New(0.25, box.RGB{R: 200, G: 100, B: 50}, box.BackImage)
	s.LoadImage(pngBytes(t, 2, 2))

	path := filepath.Join(t.TempDir(), "box.glb")
	if err := export.NewExporter().Export(context.Background(), s, path); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	doc, _, err := gltf.ParseGLBFile(path)
	if err != nil {
		t.Fatalf("ParseGLBFile() error = %v", err)
	}
	if len(doc.Meshes) != 1 {
		t.Fatalf("mesh count = %d, want 1", len(doc.Meshes))
	}
	// Merged sides plus one primitive each for the textured front and back.
	if got := len(doc.Meshes[0].Primitives); got != 3 {
		t.Errorf("primitive count = %d, want 3", got)
	}
	if got := len(doc.Images); got != 1 {
		t.Errorf("image count = %d, want 1 shared embedded image", got)
	}
}

func waitReady(t *testing.T, s *Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Ready(ctx); err != nil {
		t.Fatalf("Ready() error = %v", err)
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(40 * x), G: uint8(40 * y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}
