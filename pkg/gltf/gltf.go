// Package gltf implements the glTF 2.0 document model and the GLB binary
// container that carries it. Only the schema subset this tool emits and
// inspects is modeled: a single scene, triangle meshes, PBR materials with
// flat color or base-color texture, and images embedded in the binary chunk.
package gltf

import "fmt"

// Accessor component types.
const (
	ComponentUnsignedShort = 5123 // uint16
	ComponentUnsignedInt   = 5125 // uint32
	ComponentFloat         = 5126 // float32
)

// Accessor element types.
const (
	TypeScalar = "SCALAR"
	TypeVec2   = "VEC2"
	TypeVec3   = "VEC3"
)

// Buffer view targets.
const (
	TargetArrayBuffer        = 34962 // Vertex attributes
	TargetElementArrayBuffer = 34963 // Indices
)

// Sampler filter and wrap modes.
const (
	FilterNearest   = 9728
	FilterLinear    = 9729
	WrapRepeat      = 10497
	WrapClampToEdge = 33071
)

// Embedded image MIME types the container may carry.
const (
	MIMEPNG  = "image/png"
	MIMEJPEG = "image/jpeg"
)

// Document is the root glTF object serialized into the JSON chunk.
type Document struct {
	Asset       Asset        `json:"asset"`
	Scene       *int         `json:"scene,omitempty"`
	Scenes      []Scene      `json:"scenes,omitempty"`
	Nodes       []Node       `json:"nodes,omitempty"`
	Meshes      []Mesh       `json:"meshes,omitempty"`
	Materials   []Material   `json:"materials,omitempty"`
	Textures    []Texture    `json:"textures,omitempty"`
	Images      []Image      `json:"images,omitempty"`
	Samplers    []Sampler    `json:"samplers,omitempty"`
	Accessors   []Accessor   `json:"accessors,omitempty"`
	BufferViews []BufferView `json:"bufferViews,omitempty"`
	Buffers     []Buffer     `json:"buffers,omitempty"`
}

// Asset identifies the format version and the producing tool.
type Asset struct {
	Version   string `json:"version"`
	Generator string `json:"generator,omitempty"`
}

// Scene lists the root nodes to display.
type Scene struct {
	Nodes []int `json:"nodes,omitempty"`
}

// Node places a mesh in the scene.
type Node struct {
	Name string `json:"name,omitempty"`
	Mesh *int   `json:"mesh,omitempty"`
}

// Mesh groups the primitives that make up one drawable object.
type Mesh struct {
	Name       string      `json:"name,omitempty"`
	Primitives []Primitive `json:"primitives"`
}

// Primitive is one draw call: vertex attributes, indices and a material.
type Primitive struct {
	Attributes map[string]int `json:"attributes"`
	Indices    *int           `json:"indices,omitempty"`
	Material   *int           `json:"material,omitempty"`
	Mode       *int           `json:"mode,omitempty"`
}

// Material describes surface appearance via the metallic-roughness model.
type Material struct {
	Name                 string                `json:"name,omitempty"`
	PBRMetallicRoughness *PBRMetallicRoughness `json:"pbrMetallicRoughness,omitempty"`
	DoubleSided          bool                  `json:"doubleSided,omitempty"`
}

// PBRMetallicRoughness holds either a flat base color or a base color texture.
type PBRMetallicRoughness struct {
	BaseColorFactor  *[4]float64  `json:"baseColorFactor,omitempty"`
	BaseColorTexture *TextureInfo `json:"baseColorTexture,omitempty"`
	MetallicFactor   *float64     `json:"metallicFactor,omitempty"`
	RoughnessFactor  *float64     `json:"roughnessFactor,omitempty"`
}

// TextureInfo references a texture by index.
type TextureInfo struct {
	Index int `json:"index"`
}

// Texture pairs an image source with a sampler.
type Texture struct {
	Sampler *int `json:"sampler,omitempty"`
	Source  *int `json:"source,omitempty"`
}

// Image is an embedded picture: raw bytes in a buffer view plus a MIME type.
type Image struct {
	Name       string `json:"name,omitempty"`
	MimeType   string `json:"mimeType,omitempty"`
	BufferView *int   `json:"bufferView,omitempty"`
	URI        string `json:"uri,omitempty"`
}

// Sampler sets texture filtering and wrapping.
type Sampler struct {
	MagFilter *int `json:"magFilter,omitempty"`
	MinFilter *int `json:"minFilter,omitempty"`
	WrapS     *int `json:"wrapS,omitempty"`
	WrapT     *int `json:"wrapT,omitempty"`
}

// Accessor types a span of a buffer view as an array of elements.
type Accessor struct {
	BufferView    *int      `json:"bufferView,omitempty"`
	ByteOffset    int       `json:"byteOffset,omitempty"`
	ComponentType int       `json:"componentType"`
	Count         int       `json:"count"`
	Type          string    `json:"type"`
	Min           []float64 `json:"min,omitempty"`
	Max           []float64 `json:"max,omitempty"`
}

// BufferView is a byte range of a buffer.
type BufferView struct {
	Buffer     int `json:"buffer"`
	ByteOffset int `json:"byteOffset,omitempty"`
	ByteLength int `json:"byteLength"`
	Target     int `json:"target,omitempty"`
}

// Buffer declares the length of a binary data block. A GLB's first buffer
// has no URI: its data is the BIN chunk.
type Buffer struct {
	ByteLength int    `json:"byteLength"`
	URI        string `json:"uri,omitempty"`
}

// Index returns a pointer to i, for the optional index fields above.
func Index(i int) *int {
	return &i
}

// Float returns a pointer to f, for optional factor fields.
func Float(f float64) *float64 {
	return &f
}

// VertexCount returns the summed POSITION accessor counts across all mesh
// primitives.
func (d *Document) VertexCount() int {
	total := 0
	for _, mesh := range d.Meshes {
		for _, prim := range mesh.Primitives {
			idx, ok := prim.Attributes["POSITION"]
			if !ok || idx < 0 || idx >= len(d.Accessors) {
				continue
			}
			total += d.Accessors[idx].Count
		}
	}
	return total
}

// TriangleCount returns the summed triangle counts across all mesh
// primitives, derived from their index accessors.
func (d *Document) TriangleCount() int {
	total := 0
	for _, mesh := range d.Meshes {
		for _, prim := range mesh.Primitives {
			if prim.Indices == nil || *prim.Indices < 0 || *prim.Indices >= len(d.Accessors) {
				continue
			}
			total += d.Accessors[*prim.Indices].Count / 3
		}
	}
	return total
}

// ViewData returns the bytes a buffer view covers within the binary chunk.
func (d *Document) ViewData(bin []byte, view int) ([]byte, error) {
	if view < 0 || view >= len(d.BufferViews) {
		return nil, fmt.Errorf("buffer view %d out of range", view)
	}
	bv := d.BufferViews[view]
	end := bv.ByteOffset + bv.ByteLength
	if bv.ByteOffset < 0 || end > len(bin) {
		return nil, fmt.Errorf("buffer view %d spans [%d:%d) outside binary chunk of %d bytes",
			view, bv.ByteOffset, end, len(bin))
	}
	return bin[bv.ByteOffset:end], nil
}
