// Package export serializes a built box model into a self-contained
// binary glTF file.
package export

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image/png"
	"math"

	"github.com/FreshLemonLeaf/3dafy/internal/box"
	"github.com/FreshLemonLeaf/3dafy/internal/texture"
	"github.com/FreshLemonLeaf/3dafy/pkg/gltf"
)

// ErrSerialization indicates the model could not be turned into a valid
// GLB payload. Nothing is written when it occurs.
var ErrSerialization = errors.New("model serialization failed")

// DocumentOptions names the exported object.
type DocumentOptions struct {
	Name      string // mesh and node name, default "box"
	Generator string // asset generator tag, default "3dafy"
}

// BuildDocument walks the model and produces the glTF document plus the
// packed binary blob it references. Flat faces sharing a material
// identity merge into one primitive; textured faces stay separate
// primitives but share their material and embedded image.
func BuildDocument(model *box.Model, opts DocumentOptions) (*gltf.Document, []byte, error) {
	if opts.Name == "" {
		opts.Name = "box"
	}
	if opts.Generator == "" {
		opts.Generator = "3dafy"
	}

	b := &docBuilder{
		doc: &gltf.Document{
			Asset: gltf.Asset{Version: "2.0", Generator: opts.Generator},
		},
		matIndices: make(map[box.Material]int),
		texIndices: make(map[*texture.Texture]int),
	}

	var primitives []gltf.Primitive
	for _, group := range groupFaces(model) {
		prim, err := b.buildPrimitive(model, group)
		if err != nil {
			return nil, nil, err
		}
		primitives = append(primitives, prim)
	}

	b.doc.Meshes = []gltf.Mesh{{Name: opts.Name, Primitives: primitives}}
	b.doc.Nodes = []gltf.Node{{Name: opts.Name, Mesh: gltf.Index(0)}}
	b.doc.Scenes = []gltf.Scene{{Nodes: []int{0}}}
	b.doc.Scene = gltf.Index(0)

	data := b.bin.bytes()
	b.doc.Buffers = []gltf.Buffer{{ByteLength: len(data)}}

	return b.doc, data, nil
}

// faceGroup collects the faces serialized as one primitive.
type faceGroup struct {
	material box.Material
	faces    []box.Face
}

// groupFaces partitions the six faces into primitives, in slot order.
// Flat faces with the same material merge into one group, so the four
// sides always share a primitive and the back joins them when it falls
// back to the side color. Textured faces each keep their own primitive.
func groupFaces(model *box.Model) []faceGroup {
	var groups []faceGroup
	flatIndex := make(map[box.Material]int)

	for f := box.Face(0); f < box.FaceCount; f++ {
		mat := model.Materials[f]

		if mat.Kind == box.KindTexture {
			groups = append(groups, faceGroup{material: mat, faces: []box.Face{f}})
			continue
		}

		gi, ok := flatIndex[mat]
		if !ok {
			gi = len(groups)
			flatIndex[mat] = gi
			groups = append(groups, faceGroup{material: mat})
		}
		groups[gi].faces = append(groups[gi].faces, f)
	}

	return groups
}

// docBuilder accumulates the document, the packed binary buffer, and the
// dedup maps that keep materials and images single-instanced.
type docBuilder struct {
	doc        *gltf.Document
	bin        binBuilder
	matIndices map[box.Material]int
	texIndices map[*texture.Texture]int
}

// buildPrimitive packs one face group into accessors and buffer views
// and returns the primitive referencing them.
func (b *docBuilder) buildPrimitive(model *box.Model, group faceGroup) (gltf.Primitive, error) {
	var (
		positions []float32
		normals   []float32
		uvs       []float32
		indices   []uint16
	)
	posMin := [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)}
	posMax := [3]float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)}

	for k, f := range group.faces {
		vbase := int(f) * box.VerticesPerFace
		for i := 0; i < box.VerticesPerFace; i++ {
			v := model.Vertices[vbase+i]
			positions = append(positions, v.Position[:]...)
			normals = append(normals, v.Normal[:]...)
			uvs = append(uvs, v.TexCoord[:]...)

			for c := 0; c < 3; c++ {
				p := float64(v.Position[c])
				if p < posMin[c] {
					posMin[c] = p
				}
				if p > posMax[c] {
					posMax[c] = p
				}
			}
		}

		// Rebase the face's indices from the model vertex array onto
		// this primitive's own vertex order.
		istart, icount := model.IndexRange(f)
		for _, gi := range model.Indices[istart : istart+icount] {
			indices = append(indices, uint16(int(gi)-vbase+k*box.VerticesPerFace))
		}
	}

	vertexCount := len(group.faces) * box.VerticesPerFace

	posView := b.addView(floatBytes(positions), gltf.TargetArrayBuffer)
	normView := b.addView(floatBytes(normals), gltf.TargetArrayBuffer)
	uvView := b.addView(floatBytes(uvs), gltf.TargetArrayBuffer)
	idxView := b.addView(indexBytes(indices), gltf.TargetElementArrayBuffer)

	posAcc := b.addAccessor(gltf.Accessor{
		BufferView:    gltf.Index(posView),
		ComponentType: gltf.ComponentFloat,
		Count:         vertexCount,
		Type:          gltf.TypeVec3,
		Min:           posMin[:],
		Max:           posMax[:],
	})
	normAcc := b.addAccessor(gltf.Accessor{
		BufferView:    gltf.Index(normView),
		ComponentType: gltf.ComponentFloat,
		Count:         vertexCount,
		Type:          gltf.TypeVec3,
	})
	uvAcc := b.addAccessor(gltf.Accessor{
		BufferView:    gltf.Index(uvView),
		ComponentType: gltf.ComponentFloat,
		Count:         vertexCount,
		Type:          gltf.TypeVec2,
	})
	idxAcc := b.addAccessor(gltf.Accessor{
		BufferView:    gltf.Index(idxView),
		ComponentType: gltf.ComponentUnsignedShort,
		Count:         len(indices),
		Type:          gltf.TypeScalar,
	})

	matIndex, err := b.addMaterial(group.material)
	if err != nil {
		return gltf.Primitive{}, err
	}

	return gltf.Primitive{
		Attributes: map[string]int{
			"POSITION":   posAcc,
			"NORMAL":     normAcc,
			"TEXCOORD_0": uvAcc,
		},
		Indices:  gltf.Index(idxAcc),
		Material: gltf.Index(matIndex),
	}, nil
}

// addMaterial returns the document material index for a face material,
// appending it on first sight. Flat faces carry the color as
// baseColorFactor; textured faces reference the embedded image.
func (b *docBuilder) addMaterial(mat box.Material) (int, error) {
	if idx, ok := b.matIndices[mat]; ok {
		return idx, nil
	}

	pbr := &gltf.PBRMetallicRoughness{
		MetallicFactor:  gltf.Float(0),
		RoughnessFactor: gltf.Float(1),
	}

	var name string
	if mat.Kind == box.KindTexture {
		texIndex, err := b.ensureTexture(mat.Texture)
		if err != nil {
			return 0, err
		}
		pbr.BaseColorTexture = &gltf.TextureInfo{Index: texIndex}
		name = "image"
	} else {
		c := mat.Color
		pbr.BaseColorFactor = &[4]float64{
			float64(c.R) / 255,
			float64(c.G) / 255,
			float64(c.B) / 255,
			1,
		}
		name = "color-" + c.Hex()[1:]
	}

	b.doc.Materials = append(b.doc.Materials, gltf.Material{
		Name:                 name,
		PBRMetallicRoughness: pbr,
	})

	idx := len(b.doc.Materials) - 1
	b.matIndices[mat] = idx
	return idx, nil
}

// ensureTexture embeds the texture's image once and returns its texture
// index. PNG and JPEG sources are embedded verbatim; other formats are
// re-encoded to PNG.
func (b *docBuilder) ensureTexture(tex *texture.Texture) (int, error) {
	if idx, ok := b.texIndices[tex]; ok {
		return idx, nil
	}
	if tex == nil || tex.Resource == nil {
		return 0, fmt.Errorf("%w: textured face without image data", ErrSerialization)
	}

	data := tex.Resource.Data
	mime := tex.Resource.MIME
	if mime != gltf.MIMEPNG && mime != gltf.MIMEJPEG {
		var buf bytes.Buffer
		if err := png.Encode(&buf, tex.Resource.RGBA); err != nil {
			return 0, fmt.Errorf("%w: re-encoding %s image: %v", ErrSerialization, mime, err)
		}
		data = buf.Bytes()
		mime = gltf.MIMEPNG
	}

	view := b.addView(data, 0)
	b.doc.Images = append(b.doc.Images, gltf.Image{
		MimeType:   mime,
		BufferView: gltf.Index(view),
	})
	b.doc.Samplers = append(b.doc.Samplers, gltf.Sampler{
		MagFilter: gltf.Index(filterConst(tex.Filter)),
		MinFilter: gltf.Index(filterConst(tex.Filter)),
		WrapS:     gltf.Index(gltf.WrapClampToEdge),
		WrapT:     gltf.Index(gltf.WrapClampToEdge),
	})
	b.doc.Textures = append(b.doc.Textures, gltf.Texture{
		Sampler: gltf.Index(len(b.doc.Samplers) - 1),
		Source:  gltf.Index(len(b.doc.Images) - 1),
	})

	idx := len(b.doc.Textures) - 1
	b.texIndices[tex] = idx
	return idx, nil
}

func (b *docBuilder) addAccessor(acc gltf.Accessor) int {
	b.doc.Accessors = append(b.doc.Accessors, acc)
	return len(b.doc.Accessors) - 1
}

// addView appends data to the binary buffer and records a buffer view
// for it. A zero target is omitted from the view.
func (b *docBuilder) addView(data []byte, target int) int {
	offset := b.bin.buf.Len()
	b.bin.buf.Write(data)
	for b.bin.buf.Len()%4 != 0 {
		b.bin.buf.WriteByte(0)
	}

	b.doc.BufferViews = append(b.doc.BufferViews, gltf.BufferView{
		Buffer:     0,
		ByteOffset: offset,
		ByteLength: len(data),
		Target:     target,
	})
	return len(b.doc.BufferViews) - 1
}

func filterConst(f texture.FilterMode) int {
	if f == texture.FilterNearest {
		return gltf.FilterNearest
	}
	return gltf.FilterLinear
}

// binBuilder packs buffer view payloads into the single binary buffer,
// keeping every view offset 4-byte aligned.
type binBuilder struct {
	buf bytes.Buffer
}

func (b *binBuilder) bytes() []byte {
	return b.buf.Bytes()
}

// floatBytes packs float32 values little-endian.
func floatBytes(values []float32) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, values)
	return buf.Bytes()
}

// indexBytes packs uint16 values little-endian.
func indexBytes(values []uint16) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, values)
	return buf.Bytes()
}
