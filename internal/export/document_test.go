package export

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"math"
	"testing"

	"github.com/FreshLemonLeaf/3dafy/internal/box"
	"github.com/FreshLemonLeaf/3dafy/internal/texture"
	"github.com/FreshLemonLeaf/3dafy/pkg/gltf"
)

func TestBuildDocumentNoTexture(t *testing.T) {
	// Flat blue sides, untextured white front, back falls back to the
	// side color.
	side := box.RGB{R: 0x21, G: 0x96, B: 0xf3}
	model := box.Build(0.3, box.AssignMaterials(side, nil, box.BackImage))

	doc, bin, err := BuildDocument(model, DocumentOptions{})
	if err != nil {
		t.Fatalf("BuildDocument failed: %v", err)
	}

	prims := doc.Meshes[0].Primitives
	if len(prims) != 2 {
		t.Fatalf("expected 2 primitives, got %d", len(prims))
	}
	if len(doc.Materials) != 2 {
		t.Errorf("expected 2 materials, got %d", len(doc.Materials))
	}
	if len(doc.Images) != 0 || len(doc.Textures) != 0 || len(doc.Samplers) != 0 {
		t.Error("untextured model must not embed images")
	}

	// Sides plus back merge into the first primitive
	if got := doc.Accessors[*prims[0].Indices].Count; got != 30 {
		t.Errorf("merged primitive: expected 30 indices, got %d", got)
	}
	if got := doc.Accessors[*prims[1].Indices].Count; got != 6 {
		t.Errorf("front primitive: expected 6 indices, got %d", got)
	}

	if doc.VertexCount() != model.VertexCount() {
		t.Errorf("document vertex count %d != model %d", doc.VertexCount(), model.VertexCount())
	}
	if doc.TriangleCount() != model.TriangleCount() {
		t.Errorf("document triangle count %d != model %d", doc.TriangleCount(), model.TriangleCount())
	}

	if doc.Buffers[0].ByteLength != len(bin) {
		t.Errorf("buffer declares %d bytes, binary blob has %d", doc.Buffers[0].ByteLength, len(bin))
	}
}

func TestBuildDocumentSingleMaterial(t *testing.T) {
	// All six faces white: one merged primitive covering the whole box
	model := box.Build(0.5, box.AssignMaterials(box.White, nil, box.BackColor))

	doc, _, err := BuildDocument(model, DocumentOptions{})
	if err != nil {
		t.Fatalf("BuildDocument failed: %v", err)
	}

	prims := doc.Meshes[0].Primitives
	if len(prims) != 1 {
		t.Fatalf("expected 1 primitive, got %d", len(prims))
	}
	if len(doc.Materials) != 1 {
		t.Errorf("expected 1 material, got %d", len(doc.Materials))
	}
	if got := doc.Accessors[*prims[0].Indices].Count; got != 36 {
		t.Errorf("expected 36 indices, got %d", got)
	}
}

func TestBuildDocumentTexturedBackColor(t *testing.T) {
	// 100x100 image, depth 0.30, blue sides, back painted with the
	// side color: sides and back merge, the front stands alone.
	side := box.RGB{R: 0x21, G: 0x96, B: 0xf3}
	tex, texData := pngTexture(t, 100, 100)
	model := box.Build(0.3, box.AssignMaterials(side, tex, box.BackColor))

	doc, bin, err := BuildDocument(model, DocumentOptions{})
	if err != nil {
		t.Fatalf("BuildDocument failed: %v", err)
	}

	prims := doc.Meshes[0].Primitives
	if len(prims) != 2 {
		t.Fatalf("expected 2 primitives, got %d", len(prims))
	}
	if len(doc.Materials) != 2 {
		t.Errorf("expected 2 materials, got %d", len(doc.Materials))
	}
	if len(doc.Images) != 1 {
		t.Fatalf("expected 1 embedded image, got %d", len(doc.Images))
	}

	// Merged sides and back: 10 triangles. Front: 2.
	if got := doc.Accessors[*prims[0].Indices].Count; got != 30 {
		t.Errorf("merged primitive: expected 30 indices, got %d", got)
	}
	if got := doc.Accessors[*prims[1].Indices].Count; got != 6 {
		t.Errorf("front primitive: expected 6 indices, got %d", got)
	}

	// First material is the flat side color
	sidesMat := doc.Materials[*prims[0].Material]
	if sidesMat.PBRMetallicRoughness.BaseColorFactor == nil {
		t.Fatal("sides material missing baseColorFactor")
	}
	factor := *sidesMat.PBRMetallicRoughness.BaseColorFactor
	want := [4]float64{float64(0x21) / 255, float64(0x96) / 255, float64(0xf3) / 255, 1}
	if factor != want {
		t.Errorf("sides baseColorFactor %v, want %v", factor, want)
	}

	// Front material references the embedded texture
	frontMat := doc.Materials[*prims[1].Material]
	if frontMat.PBRMetallicRoughness.BaseColorTexture == nil {
		t.Fatal("front material missing baseColorTexture")
	}
	if frontMat.PBRMetallicRoughness.BaseColorTexture.Index != 0 {
		t.Errorf("front texture index %d, want 0", frontMat.PBRMetallicRoughness.BaseColorTexture.Index)
	}

	// PNG source bytes are embedded verbatim
	img := doc.Images[0]
	if img.MimeType != gltf.MIMEPNG {
		t.Errorf("image MIME %s, want %s", img.MimeType, gltf.MIMEPNG)
	}
	embedded, err := doc.ViewData(bin, *img.BufferView)
	if err != nil {
		t.Fatalf("reading image view: %v", err)
	}
	if !bytes.Equal(embedded, texData) {
		t.Error("embedded image bytes differ from the original encoding")
	}
}

func TestBuildDocumentTexturedBackImage(t *testing.T) {
	// Back mirrors the front image: front and back are separate
	// primitives sharing one material and one embedded image.
	side := box.RGB{R: 0x21, G: 0x96, B: 0xf3}
	tex, _ := pngTexture(t, 100, 100)
	model := box.Build(0.3, box.AssignMaterials(side, tex, box.BackImage))

	doc, _, err := BuildDocument(model, DocumentOptions{})
	if err != nil {
		t.Fatalf("BuildDocument failed: %v", err)
	}

	prims := doc.Meshes[0].Primitives
	if len(prims) != 3 {
		t.Fatalf("expected 3 primitives, got %d", len(prims))
	}
	if len(doc.Materials) != 2 {
		t.Errorf("expected 2 materials, got %d", len(doc.Materials))
	}
	if len(doc.Images) != 1 {
		t.Errorf("expected 1 embedded image, got %d", len(doc.Images))
	}
	if len(doc.Textures) != 1 {
		t.Errorf("expected 1 texture entry, got %d", len(doc.Textures))
	}

	// Sides merge to 8 triangles; front and back 2 each
	wantIndexCounts := []int{24, 6, 6}
	for i, prim := range prims {
		if got := doc.Accessors[*prim.Indices].Count; got != wantIndexCounts[i] {
			t.Errorf("primitive %d: expected %d indices, got %d", i, wantIndexCounts[i], got)
		}
	}

	// Front and back share the material, and through it the texture
	if *prims[1].Material != *prims[2].Material {
		t.Errorf("front material %d != back material %d", *prims[1].Material, *prims[2].Material)
	}
	if *prims[0].Material == *prims[1].Material {
		t.Error("sides share the textured material")
	}
}

func TestBuildDocumentJPEGEmbeddedVerbatim(t *testing.T) {
	img := testImage(8, 8)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encoding jpeg: %v", err)
	}

	res, err := texture.Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("decoding jpeg: %v", err)
	}
	tex := &texture.Texture{Resource: res}
	model := box.Build(0.3, box.AssignMaterials(box.White, tex, box.BackColor))

	doc, bin, err := BuildDocument(model, DocumentOptions{})
	if err != nil {
		t.Fatalf("BuildDocument failed: %v", err)
	}

	if doc.Images[0].MimeType != gltf.MIMEJPEG {
		t.Errorf("image MIME %s, want %s", doc.Images[0].MimeType, gltf.MIMEJPEG)
	}
	embedded, err := doc.ViewData(bin, *doc.Images[0].BufferView)
	if err != nil {
		t.Fatalf("reading image view: %v", err)
	}
	if !bytes.Equal(embedded, buf.Bytes()) {
		t.Error("JPEG bytes were not embedded verbatim")
	}
}

func TestBuildDocumentReencodesGIF(t *testing.T) {
	img := testImage(8, 8)
	var buf bytes.Buffer
	if err := gif.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encoding gif: %v", err)
	}

	res, err := texture.Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("decoding gif: %v", err)
	}
	tex := &texture.Texture{Resource: res}
	model := box.Build(0.3, box.AssignMaterials(box.White, tex, box.BackColor))

	doc, bin, err := BuildDocument(model, DocumentOptions{})
	if err != nil {
		t.Fatalf("BuildDocument failed: %v", err)
	}

	// GIF cannot be embedded directly, so it is re-encoded to PNG
	if doc.Images[0].MimeType != gltf.MIMEPNG {
		t.Fatalf("image MIME %s, want %s", doc.Images[0].MimeType, gltf.MIMEPNG)
	}
	embedded, err := doc.ViewData(bin, *doc.Images[0].BufferView)
	if err != nil {
		t.Fatalf("reading image view: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(embedded))
	if err != nil {
		t.Fatalf("embedded bytes are not valid PNG: %v", err)
	}
	if decoded.Bounds().Dx() != 8 || decoded.Bounds().Dy() != 8 {
		t.Errorf("re-encoded image is %dx%d, want 8x8",
			decoded.Bounds().Dx(), decoded.Bounds().Dy())
	}
}

func TestBuildDocumentLayout(t *testing.T) {
	tex, _ := pngTexture(t, 16, 16)
	model := box.Build(0.3, box.AssignMaterials(box.RGB{R: 10, G: 20, B: 30}, tex, box.BackImage))

	doc, bin, err := BuildDocument(model, DocumentOptions{Name: "crate"})
	if err != nil {
		t.Fatalf("BuildDocument failed: %v", err)
	}

	if doc.Meshes[0].Name != "crate" || doc.Nodes[0].Name != "crate" {
		t.Error("name option not applied")
	}
	if doc.Scene == nil || *doc.Scene != 0 {
		t.Error("default scene not set")
	}

	// Every view is 4-byte aligned and within the blob
	for i, view := range doc.BufferViews {
		if view.ByteOffset%4 != 0 {
			t.Errorf("view %d offset %d not 4-byte aligned", i, view.ByteOffset)
		}
		if view.ByteOffset+view.ByteLength > len(bin) {
			t.Errorf("view %d overruns the binary blob", i)
		}
	}

	// Accessor element sizes predict their view lengths
	elemSize := map[string]int{"SCALAR": 1, "VEC2": 2, "VEC3": 3}
	for i, acc := range doc.Accessors {
		compSize := 4
		if acc.ComponentType == gltf.ComponentUnsignedShort {
			compSize = 2
		}
		want := acc.Count * elemSize[acc.Type] * compSize
		if got := doc.BufferViews[*acc.BufferView].ByteLength; got != want {
			t.Errorf("accessor %d: view length %d, want %d", i, got, want)
		}
	}
}

func TestBuildDocumentPositionBounds(t *testing.T) {
	depth := float32(0.3)
	tex, _ := pngTexture(t, 4, 4)
	model := box.Build(depth, box.AssignMaterials(box.RGB{R: 1, G: 2, B: 3}, tex, box.BackColor))

	doc, _, err := BuildDocument(model, DocumentOptions{})
	if err != nil {
		t.Fatalf("BuildDocument failed: %v", err)
	}

	hd := float64(depth / 2)
	prims := doc.Meshes[0].Primitives

	// The merged sides+back span the whole box
	sidesPos := doc.Accessors[prims[0].Attributes["POSITION"]]
	checkVec(t, "sides min", sidesPos.Min, []float64{-0.5, -0.5, -hd})
	checkVec(t, "sides max", sidesPos.Max, []float64{0.5, 0.5, hd})

	// The front face sits on the +Z plane
	frontPos := doc.Accessors[prims[1].Attributes["POSITION"]]
	checkVec(t, "front min", frontPos.Min, []float64{-0.5, -0.5, hd})
	checkVec(t, "front max", frontPos.Max, []float64{0.5, 0.5, hd})
}

func TestBuildDocumentVertexData(t *testing.T) {
	tex, _ := pngTexture(t, 4, 4)
	model := box.Build(0.3, box.AssignMaterials(box.RGB{R: 1, G: 2, B: 3}, tex, box.BackColor))

	doc, bin, err := BuildDocument(model, DocumentOptions{})
	if err != nil {
		t.Fatalf("BuildDocument failed: %v", err)
	}

	// The front primitive's first vertex is the bottom-left corner
	front := doc.Meshes[0].Primitives[1]
	positions := readFloats(t, doc, bin, front.Attributes["POSITION"])
	if len(positions) != 12 {
		t.Fatalf("expected 12 position floats, got %d", len(positions))
	}

	hd := float32(0.3) / 2
	wantFirst := [3]float32{-0.5, -0.5, hd}
	for i := 0; i < 3; i++ {
		if positions[i] != wantFirst[i] {
			t.Errorf("front vertex 0 component %d: %v, want %v", i, positions[i], wantFirst[i])
		}
	}

	// Index data walks the two front triangles
	idxData, err := doc.ViewData(bin, *doc.Accessors[*front.Indices].BufferView)
	if err != nil {
		t.Fatalf("reading index view: %v", err)
	}
	wantIdx := []uint16{0, 1, 2, 0, 2, 3}
	for i, w := range wantIdx {
		got := binary.LittleEndian.Uint16(idxData[i*2:])
		if got != w {
			t.Errorf("front index %d: %d, want %d", i, got, w)
		}
	}
}

func TestBuildDocumentRoundTrip(t *testing.T) {
	side := box.RGB{R: 0x21, G: 0x96, B: 0xf3}
	tex, texData := pngTexture(t, 32, 32)
	model := box.Build(0.3, box.AssignMaterials(side, tex, box.BackImage))

	doc, bin, err := BuildDocument(model, DocumentOptions{})
	if err != nil {
		t.Fatalf("BuildDocument failed: %v", err)
	}

	data, err := gltf.EncodeGLB(doc, bin)
	if err != nil {
		t.Fatalf("EncodeGLB failed: %v", err)
	}

	parsed, parsedBin, err := gltf.ParseGLB(data)
	if err != nil {
		t.Fatalf("ParseGLB failed: %v", err)
	}

	if parsed.VertexCount() != model.VertexCount() {
		t.Errorf("parsed vertex count %d, want %d", parsed.VertexCount(), model.VertexCount())
	}
	if parsed.TriangleCount() != model.TriangleCount() {
		t.Errorf("parsed triangle count %d, want %d", parsed.TriangleCount(), model.TriangleCount())
	}
	if len(parsed.Materials) != len(doc.Materials) {
		t.Errorf("parsed %d materials, want %d", len(parsed.Materials), len(doc.Materials))
	}
	if len(parsed.Meshes[0].Primitives) != len(doc.Meshes[0].Primitives) {
		t.Errorf("parsed %d primitives, want %d", len(parsed.Meshes[0].Primitives), len(doc.Meshes[0].Primitives))
	}

	embedded, err := parsed.ViewData(parsedBin, *parsed.Images[0].BufferView)
	if err != nil {
		t.Fatalf("reading parsed image view: %v", err)
	}
	if !bytes.Equal(embedded, texData) {
		t.Error("image bytes did not survive the GLB round trip")
	}
}

// Helper functions for creating test data

// testImage builds a w x h RGBA image with a distinct color per pixel.
func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(17*x + 5),
				G: uint8(17*y + 5),
				B: 99,
				A: 255,
			})
		}
	}
	return img
}

// pngTexture decodes a generated PNG into a canonical texture, returning
// the texture and the original encoded bytes.
func pngTexture(t *testing.T, w, h int) (*texture.Texture, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage(w, h)); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	res, err := texture.Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("decoding png: %v", err)
	}
	return &texture.Texture{Resource: res}, buf.Bytes()
}

// readFloats decodes an accessor's buffer view as little-endian float32s.
func readFloats(t *testing.T, doc *gltf.Document, bin []byte, accessor int) []float32 {
	t.Helper()
	data, err := doc.ViewData(bin, *doc.Accessors[accessor].BufferView)
	if err != nil {
		t.Fatalf("reading accessor %d view: %v", accessor, err)
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// checkVec compares a bounds vector componentwise.
func checkVec(t *testing.T, label string, got, want []float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Errorf("%s: got %v, want %v", label, got, want)
		return
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("%s component %d: %v, want %v", label, i, got[i], want[i])
		}
	}
}
