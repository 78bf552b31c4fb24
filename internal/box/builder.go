// Package box builds the extruded box mesh: material assignment for the
// six faces and the triangulated geometry ready for rendering and export.
package box

// Face identifies one of the six box faces. The values double as the
// fixed material slot order; consumers rely on it and it is never
// reordered.
type Face int

const (
	FaceRight Face = iota
	FaceLeft
	FaceTop
	FaceBottom
	FaceFront
	FaceBack
)

// FaceCount is the number of box faces.
const FaceCount = 6

// Four corner vertices and six indices per triangulated quad.
const (
	VerticesPerFace = 4
	IndicesPerFace  = 6
)

func (f Face) String() string {
	switch f {
	case FaceRight:
		return "right"
	case FaceLeft:
		return "left"
	case FaceTop:
		return "top"
	case FaceBottom:
		return "bottom"
	case FaceFront:
		return "front"
	case FaceBack:
		return "back"
	}
	return "unknown"
}

// Vertex is a mesh vertex with position, outward normal, and texture
// coordinates.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	TexCoord [2]float32
}

// Bounds is the axis-aligned bounding box of the mesh.
type Bounds struct {
	Min [3]float32
	Max [3]float32
}

// Model is an immutable snapshot of the built box. Face f owns vertices
// [4f, 4f+4) and indices [6f, 6f+6); the indices reference the shared
// vertex array.
type Model struct {
	Vertices  []Vertex
	Indices   []uint16
	Materials [6]Material
	Depth     float32
	Bounds    Bounds
}

// VertexCount returns the number of mesh vertices.
func (m *Model) VertexCount() int {
	return len(m.Vertices)
}

// TriangleCount returns the number of mesh triangles.
func (m *Model) TriangleCount() int {
	return len(m.Indices) / 3
}

// IndexRange returns the index window of one face.
func (m *Model) IndexRange(f Face) (start, count int) {
	return int(f) * IndicesPerFace, IndicesPerFace
}

// faceDef describes one face by its outward normal and its four corners
// as seen from outside the box: bottom-left, bottom-right, top-right,
// top-left.
type faceDef struct {
	normal  [3]float32
	corners [4][3]float32
}

// faceTable returns the six face definitions for a box of the given half
// depth. Width and height are fixed at 1. The back face corners run
// mirrored in X so the texture reads unflipped when viewed from behind.
func faceTable(hd float32) [FaceCount]faceDef {
	const hw, hh = float32(0.5), float32(0.5)

	return [FaceCount]faceDef{
		FaceRight: {
			normal: [3]float32{1, 0, 0},
			corners: [4][3]float32{
				{hw, -hh, hd}, {hw, -hh, -hd}, {hw, hh, -hd}, {hw, hh, hd},
			},
		},
		FaceLeft: {
			normal: [3]float32{-1, 0, 0},
			corners: [4][3]float32{
				{-hw, -hh, -hd}, {-hw, -hh, hd}, {-hw, hh, hd}, {-hw, hh, -hd},
			},
		},
		FaceTop: {
			normal: [3]float32{0, 1, 0},
			corners: [4][3]float32{
				{-hw, hh, hd}, {hw, hh, hd}, {hw, hh, -hd}, {-hw, hh, -hd},
			},
		},
		FaceBottom: {
			normal: [3]float32{0, -1, 0},
			corners: [4][3]float32{
				{-hw, -hh, -hd}, {hw, -hh, -hd}, {hw, -hh, hd}, {-hw, -hh, hd},
			},
		},
		FaceFront: {
			normal: [3]float32{0, 0, 1},
			corners: [4][3]float32{
				{-hw, -hh, hd}, {hw, -hh, hd}, {hw, hh, hd}, {-hw, hh, hd},
			},
		},
		FaceBack: {
			normal: [3]float32{0, 0, -1},
			corners: [4][3]float32{
				{hw, -hh, -hd}, {-hw, -hh, -hd}, {-hw, hh, -hd}, {hw, hh, -hd},
			},
		},
	}
}

// Corner texture coordinates, top-left UV origin: bottom-left,
// bottom-right, top-right, top-left.
var cornerUVs = [4][2]float32{
	{0, 1}, {1, 1}, {1, 0}, {0, 0},
}

// Two counter-clockwise triangles per quad.
var quadIndices = [IndicesPerFace]uint16{0, 1, 2, 0, 2, 3}

// Build constructs the box mesh for the given depth and face materials.
// The box is 1 wide and 1 tall, centered at the origin, extruded by
// depth along Z. Building is a pure full recomputation; the result never
// shares state with previous builds.
func Build(depth float32, materials [6]Material) *Model {
	hd := depth / 2
	faces := faceTable(hd)

	vertices := make([]Vertex, 0, FaceCount*VerticesPerFace)
	indices := make([]uint16, 0, FaceCount*IndicesPerFace)

	for f := 0; f < FaceCount; f++ {
		def := faces[f]
		base := uint16(len(vertices))

		for i := 0; i < VerticesPerFace; i++ {
			vertices = append(vertices, Vertex{
				Position: def.corners[i],
				Normal:   def.normal,
				TexCoord: cornerUVs[i],
			})
		}
		for _, qi := range quadIndices {
			indices = append(indices, base+qi)
		}
	}

	return &Model{
		Vertices:  vertices,
		Indices:   indices,
		Materials: materials,
		Depth:     depth,
		Bounds:    computeBounds(vertices),
	}
}

// computeBounds scans the vertices for the axis-aligned extents.
func computeBounds(vertices []Vertex) Bounds {
	b := Bounds{
		Min: vertices[0].Position,
		Max: vertices[0].Position,
	}
	for _, v := range vertices[1:] {
		for i := 0; i < 3; i++ {
			if v.Position[i] < b.Min[i] {
				b.Min[i] = v.Position[i]
			}
			if v.Position[i] > b.Max[i] {
				b.Max[i] = v.Position[i]
			}
		}
	}
	return b
}
