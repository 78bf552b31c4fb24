package box

import (
	"testing"
)

func defaultMaterials() [6]Material {
	return AssignMaterials(RGB{128, 128, 128}, nil, BackColor)
}

func TestBuildCounts(t *testing.T) {
	m := Build(0.3, defaultMaterials())

	if m.VertexCount() != 24 {
		t.Errorf("expected 24 vertices, got %d", m.VertexCount())
	}
	if len(m.Indices) != 36 {
		t.Errorf("expected 36 indices, got %d", len(m.Indices))
	}
	if m.TriangleCount() != 12 {
		t.Errorf("expected 12 triangles, got %d", m.TriangleCount())
	}
	if m.Depth != 0.3 {
		t.Errorf("expected depth 0.3, got %v", m.Depth)
	}
}

func TestBuildBounds(t *testing.T) {
	depths := []float32{0.05, 0.3, 1.0}

	for _, depth := range depths {
		m := Build(depth, defaultMaterials())
		hd := depth / 2

		wantMin := [3]float32{-0.5, -0.5, -hd}
		wantMax := [3]float32{0.5, 0.5, hd}

		if m.Bounds.Min != wantMin {
			t.Errorf("depth %v: min %v, want %v", depth, m.Bounds.Min, wantMin)
		}
		if m.Bounds.Max != wantMax {
			t.Errorf("depth %v: max %v, want %v", depth, m.Bounds.Max, wantMax)
		}
	}
}

func TestBuildFacePlanes(t *testing.T) {
	depth := float32(0.4)
	m := Build(depth, defaultMaterials())
	hd := depth / 2

	// Every vertex of a face lies on that face's outward plane
	wantDist := [FaceCount]float32{
		FaceRight:  0.5,
		FaceLeft:   0.5,
		FaceTop:    0.5,
		FaceBottom: 0.5,
		FaceFront:  hd,
		FaceBack:   hd,
	}

	for f := Face(0); f < FaceCount; f++ {
		for i := 0; i < VerticesPerFace; i++ {
			v := m.Vertices[int(f)*VerticesPerFace+i]
			d := v.Position[0]*v.Normal[0] + v.Position[1]*v.Normal[1] + v.Position[2]*v.Normal[2]
			if d != wantDist[f] {
				t.Errorf("face %v vertex %d: plane distance %v, want %v", f, i, d, wantDist[f])
			}
		}
	}
}

func TestBuildNormals(t *testing.T) {
	m := Build(0.3, defaultMaterials())

	wantNormals := [FaceCount][3]float32{
		FaceRight:  {1, 0, 0},
		FaceLeft:   {-1, 0, 0},
		FaceTop:    {0, 1, 0},
		FaceBottom: {0, -1, 0},
		FaceFront:  {0, 0, 1},
		FaceBack:   {0, 0, -1},
	}

	for f := Face(0); f < FaceCount; f++ {
		for i := 0; i < VerticesPerFace; i++ {
			v := m.Vertices[int(f)*VerticesPerFace+i]
			if v.Normal != wantNormals[f] {
				t.Errorf("face %v vertex %d: normal %v, want %v", f, i, v.Normal, wantNormals[f])
			}
		}
	}
}

func TestBuildWinding(t *testing.T) {
	m := Build(0.3, defaultMaterials())

	// Each triangle's geometric normal must point the same way as the
	// face normal, i.e. counter-clockwise seen from outside.
	for tri := 0; tri < m.TriangleCount(); tri++ {
		a := m.Vertices[m.Indices[tri*3]]
		b := m.Vertices[m.Indices[tri*3+1]]
		c := m.Vertices[m.Indices[tri*3+2]]

		e1 := [3]float32{b.Position[0] - a.Position[0], b.Position[1] - a.Position[1], b.Position[2] - a.Position[2]}
		e2 := [3]float32{c.Position[0] - a.Position[0], c.Position[1] - a.Position[1], c.Position[2] - a.Position[2]}

		cross := [3]float32{
			e1[1]*e2[2] - e1[2]*e2[1],
			e1[2]*e2[0] - e1[0]*e2[2],
			e1[0]*e2[1] - e1[1]*e2[0],
		}

		dot := cross[0]*a.Normal[0] + cross[1]*a.Normal[1] + cross[2]*a.Normal[2]
		if dot <= 0 {
			t.Errorf("triangle %d winds clockwise against its normal (dot %v)", tri, dot)
		}
	}
}

func TestBuildUVCoverage(t *testing.T) {
	m := Build(0.3, defaultMaterials())

	// Every face carries the full [0,1] x [0,1] square
	want := map[[2]float32]bool{
		{0, 0}: true, {1, 0}: true, {0, 1}: true, {1, 1}: true,
	}

	for f := Face(0); f < FaceCount; f++ {
		seen := make(map[[2]float32]bool)
		for i := 0; i < VerticesPerFace; i++ {
			seen[m.Vertices[int(f)*VerticesPerFace+i].TexCoord] = true
		}
		for uv := range want {
			if !seen[uv] {
				t.Errorf("face %v: missing texture corner %v", f, uv)
			}
		}
	}
}

func TestBuildFrontBackOrientation(t *testing.T) {
	m := Build(0.3, defaultMaterials())

	// The texture's left edge (u=0) sits at world -X on the front face
	// and at world +X on the back face, so the image reads unflipped
	// from either side.
	frontLeft := findVertex(t, m, FaceFront, [2]float32{0, 1})
	if frontLeft.Position[0] != -0.5 {
		t.Errorf("front u=0 at x=%v, want -0.5", frontLeft.Position[0])
	}

	backLeft := findVertex(t, m, FaceBack, [2]float32{0, 1})
	if backLeft.Position[0] != 0.5 {
		t.Errorf("back u=0 at x=%v, want 0.5", backLeft.Position[0])
	}

	// v=1 is the bottom edge on both
	if frontLeft.Position[1] != -0.5 {
		t.Errorf("front v=1 at y=%v, want -0.5", frontLeft.Position[1])
	}
	if backLeft.Position[1] != -0.5 {
		t.Errorf("back v=1 at y=%v, want -0.5", backLeft.Position[1])
	}
}

func TestBuildIndicesStayWithinFace(t *testing.T) {
	m := Build(0.3, defaultMaterials())

	for f := Face(0); f < FaceCount; f++ {
		start, count := m.IndexRange(f)
		lo := uint16(int(f) * VerticesPerFace)
		hi := lo + VerticesPerFace

		for i := start; i < start+count; i++ {
			if m.Indices[i] < lo || m.Indices[i] >= hi {
				t.Errorf("face %v index %d references vertex %d outside [%d, %d)", f, i, m.Indices[i], lo, hi)
			}
		}
	}
}

func TestBuildIdempotent(t *testing.T) {
	mats := defaultMaterials()

	a := Build(0.3, mats)
	b := Build(0.3, mats)

	if len(a.Vertices) != len(b.Vertices) || len(a.Indices) != len(b.Indices) {
		t.Fatal("rebuild changed mesh size")
	}
	for i := range a.Vertices {
		if a.Vertices[i] != b.Vertices[i] {
			t.Fatalf("vertex %d differs between identical builds", i)
		}
	}
	for i := range a.Indices {
		if a.Indices[i] != b.Indices[i] {
			t.Fatalf("index %d differs between identical builds", i)
		}
	}

	// Snapshots must not share backing storage
	a.Vertices[0].Position[0] = 99
	if b.Vertices[0].Position[0] == 99 {
		t.Error("builds share vertex storage")
	}
}

func TestBuildMaterialsCarried(t *testing.T) {
	side := RGB{1, 2, 3}
	mats := AssignMaterials(side, nil, BackColor)
	m := Build(0.5, mats)

	if m.Materials != mats {
		t.Error("model does not carry the assigned materials")
	}
}

// findVertex returns the vertex of face f carrying the given texture
// coordinate.
func findVertex(t *testing.T, m *Model, f Face, uv [2]float32) Vertex {
	t.Helper()
	for i := 0; i < VerticesPerFace; i++ {
		v := m.Vertices[int(f)*VerticesPerFace+i]
		if v.TexCoord == uv {
			return v
		}
	}
	t.Fatalf("face %v has no vertex with uv %v", f, uv)
	return Vertex{}
}
