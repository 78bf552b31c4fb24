package render

import (
	gomath "math"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/FreshLemonLeaf/3dafy/internal/box"
	"github.com/FreshLemonLeaf/3dafy/internal/logger"
	"github.com/FreshLemonLeaf/3dafy/internal/texture"
	"github.com/FreshLemonLeaf/3dafy/pkg/math"
)

const (
	defaultPitch    = 0.3
	defaultYaw      = 0.5
	defaultDistance = 2.2
	minDistance     = 0.75
	maxDistance     = 8.0
	maxPitch        = 1.5
)

const boxVertexShader = `#version 410 core
layout (location = 0) in vec3 aPosition;
layout (location = 1) in vec3 aNormal;
layout (location = 2) in vec2 aTexCoord;

uniform mat4 uModel;
uniform mat4 uView;
uniform mat4 uProjection;

out vec3 vNormal;
out vec2 vTexCoord;

void main() {
    vNormal = mat3(uModel) * aNormal;
    vTexCoord = aTexCoord;
    gl_Position = uProjection * uView * uModel * vec4(aPosition, 1.0);
}
`

const boxFragmentShader = `#version 410 core
in vec3 vNormal;
in vec2 vTexCoord;

uniform sampler2D uTexture;
uniform bool uUseTexture;
uniform vec3 uFlatColor;
uniform vec3 uLightDir;
uniform vec3 uAmbient;
uniform vec3 uDiffuse;

out vec4 FragColor;

void main() {
    vec3 normal = normalize(vNormal);
    float diff = max(dot(normal, normalize(uLightDir)), 0.0);
    vec4 base = uUseTexture ? texture(uTexture, vTexCoord) : vec4(uFlatColor, 1.0);
    vec3 lit = (uAmbient + diff * uDiffuse) * base.rgb;
    FragColor = vec4(lit, base.a);
}
`

// BoxViewer renders model snapshots into an offscreen framebuffer. Each
// face is drawn as its own index range so a face can switch between a
// flat color uniform and a bound texture.
type BoxViewer struct {
	fb      *Framebuffer
	program uint32

	locModel      int32
	locView       int32
	locProjection int32
	locTexture    int32
	locUseTexture int32
	locFlatColor  int32
	locLightDir   int32
	locAmbient    int32
	locDiffuse    int32

	vao uint32
	vbo uint32
	ebo uint32

	// uploaded tracks which snapshot currently lives on the GPU; the
	// session hands out a fresh pointer per rebuild, so pointer
	// identity is enough.
	uploaded   *box.Model
	glTextures map[*texture.Texture]uint32

	pitch    float32
	yaw      float32
	distance float32
}

// NewBoxViewer creates a viewer with a width by height offscreen target.
// It needs a current OpenGL context.
func NewBoxViewer(width, height int32) (*BoxViewer, error) {
	fb, err := NewFramebuffer(width, height)
	if err != nil {
		return nil, err
	}

	program, err := compileProgram(boxVertexShader, boxFragmentShader)
	if err != nil {
		fb.Destroy()
		return nil, err
	}

	v := &BoxViewer{
		fb:         fb,
		program:    program,
		glTextures: make(map[*texture.Texture]uint32),
		pitch:      defaultPitch,
		yaw:        defaultYaw,
		distance:   defaultDistance,
	}

	v.locModel = uniformLocation(program, "uModel")
	v.locView = uniformLocation(program, "uView")
	v.locProjection = uniformLocation(program, "uProjection")
	v.locTexture = uniformLocation(program, "uTexture")
	v.locUseTexture = uniformLocation(program, "uUseTexture")
	v.locFlatColor = uniformLocation(program, "uFlatColor")
	v.locLightDir = uniformLocation(program, "uLightDir")
	v.locAmbient = uniformLocation(program, "uAmbient")
	v.locDiffuse = uniformLocation(program, "uDiffuse")

	return v, nil
}

// Render draws one frame of the model at the given spin angle into the
// offscreen target, resized to width by height first.
func (v *BoxViewer) Render(m *box.Model, angle float32, width, height int32) {
	if m == nil {
		return
	}

	v.fb.Resize(width, height)
	if v.uploaded != m {
		v.upload(m)
	}

	restore := v.fb.Bind()
	defer restore()

	v.fb.Clear(0.15, 0.15, 0.2, 1.0)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)

	gl.UseProgram(v.program)

	fbW, fbH := v.fb.Size()
	aspect := float32(fbW) / float32(fbH)
	projection := math.Perspective(0.785398, aspect, 0.1, 100.0)
	view := math.LookAt(v.eye(), math.Vec3{}, math.Vec3{Y: 1})
	model := math.RotateY(angle)

	gl.UniformMatrix4fv(v.locProjection, 1, false, projection.Ptr())
	gl.UniformMatrix4fv(v.locView, 1, false, view.Ptr())
	gl.UniformMatrix4fv(v.locModel, 1, false, model.Ptr())

	gl.Uniform3f(v.locLightDir, 0.5, 1.0, 0.5)
	gl.Uniform3f(v.locAmbient, 0.4, 0.4, 0.4)
	gl.Uniform3f(v.locDiffuse, 0.6, 0.6, 0.6)

	gl.ActiveTexture(gl.TEXTURE0)
	gl.Uniform1i(v.locTexture, 0)
	gl.BindVertexArray(v.vao)

	for f := box.Face(0); f < box.FaceCount; f++ {
		mat := m.Materials[f]
		if mat.Kind == box.KindTexture && mat.Texture != nil {
			gl.BindTexture(gl.TEXTURE_2D, v.glTextures[mat.Texture])
			gl.Uniform1i(v.locUseTexture, 1)
		} else {
			c := mat.Color.Floats()
			gl.Uniform3f(v.locFlatColor, c[0], c[1], c[2])
			gl.Uniform1i(v.locUseTexture, 0)
		}

		start, count := m.IndexRange(f)
		gl.DrawElementsWithOffset(gl.TRIANGLES, int32(count), gl.UNSIGNED_SHORT, uintptr(start*2))
	}

	gl.BindVertexArray(0)
}

// upload replaces the GPU mesh and texture set with the snapshot's.
func (v *BoxViewer) upload(m *box.Model) {
	v.deleteBuffers()

	gl.GenVertexArrays(1, &v.vao)
	gl.BindVertexArray(v.vao)

	stride := int32(unsafe.Sizeof(box.Vertex{}))

	gl.GenBuffers(1, &v.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, v.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(m.Vertices)*int(stride), unsafe.Pointer(&m.Vertices[0]), gl.STATIC_DRAW)

	gl.GenBuffers(1, &v.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, v.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(m.Indices)*2, unsafe.Pointer(&m.Indices[0]), gl.STATIC_DRAW)

	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, stride, 0)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, stride, 12)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(2, 2, gl.FLOAT, false, stride, 24)
	gl.EnableVertexAttribArray(2)

	gl.BindVertexArray(0)

	v.syncTextures(m)
	v.uploaded = m
}

// syncTextures uploads textures the snapshot references and frees the
// ones it no longer does.
func (v *BoxViewer) syncTextures(m *box.Model) {
	live := make(map[*texture.Texture]bool, 2)
	for _, mat := range m.Materials {
		if mat.Kind == box.KindTexture && mat.Texture != nil {
			live[mat.Texture] = true
		}
	}

	for tex, id := range v.glTextures {
		if !live[tex] {
			gl.DeleteTextures(1, &id)
			delete(v.glTextures, tex)
		}
	}

	for tex := range live {
		if _, ok := v.glTextures[tex]; ok {
			continue
		}
		v.glTextures[tex] = uploadTexture(tex)
		logger.Debug("texture uploaded",
			zap.Int("width", tex.Resource.Width),
			zap.Int("height", tex.Resource.Height))
	}
}

func uploadTexture(tex *texture.Texture) uint32 {
	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)

	res := tex.Resource
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA,
		int32(res.Width), int32(res.Height),
		0, gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&res.RGBA.Pix[0]))

	if tex.Filter == texture.FilterNearest {
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	} else {
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
		gl.GenerateMipmap(gl.TEXTURE_2D)
	}
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)

	return id
}

// eye converts the orbit angles and distance to a camera position around
// the origin, where the box is centered.
func (v *BoxViewer) eye() math.Vec3 {
	cosP := float32(gomath.Cos(float64(v.pitch)))
	sinP := float32(gomath.Sin(float64(v.pitch)))
	cosY := float32(gomath.Cos(float64(v.yaw)))
	sinY := float32(gomath.Sin(float64(v.yaw)))

	return math.Vec3{
		X: v.distance * cosP * sinY,
		Y: v.distance * sinP,
		Z: v.distance * cosP * cosY,
	}
}

// Orbit rotates the camera by a mouse drag delta. Pitch is clamped so
// the camera cannot flip over the poles.
func (v *BoxViewer) Orbit(deltaX, deltaY float32) {
	v.yaw += deltaX * 0.01
	v.pitch += deltaY * 0.01

	if v.pitch > maxPitch {
		v.pitch = maxPitch
	}
	if v.pitch < -maxPitch {
		v.pitch = -maxPitch
	}
}

// Zoom moves the camera along the view axis, clamped to a range that
// keeps the box visible.
func (v *BoxViewer) Zoom(delta float32) {
	v.distance -= delta * 0.2
	if v.distance < minDistance {
		v.distance = minDistance
	}
	if v.distance > maxDistance {
		v.distance = maxDistance
	}
}

// ResetCamera restores the default orbit position.
func (v *BoxViewer) ResetCamera() {
	v.pitch = defaultPitch
	v.yaw = defaultYaw
	v.distance = defaultDistance
}

// Texture returns the color texture the frame was rendered into, for
// display by the UI layer.
func (v *BoxViewer) Texture() uint32 {
	return v.fb.ColorTexture()
}

// Present copies the rendered frame onto the window's framebuffer.
func (v *BoxViewer) Present(width, height int32) {
	v.fb.BlitToScreen(width, height)
}

// Size returns the offscreen target dimensions.
func (v *BoxViewer) Size() (int32, int32) {
	return v.fb.Size()
}

func (v *BoxViewer) deleteBuffers() {
	if v.vao != 0 {
		gl.DeleteVertexArrays(1, &v.vao)
		v.vao = 0
	}
	if v.vbo != 0 {
		gl.DeleteBuffers(1, &v.vbo)
		v.vbo = 0
	}
	if v.ebo != 0 {
		gl.DeleteBuffers(1, &v.ebo)
		v.ebo = 0
	}
}

// Destroy releases every GL resource the viewer owns.
func (v *BoxViewer) Destroy() {
	v.deleteBuffers()

	for tex, id := range v.glTextures {
		gl.DeleteTextures(1, &id)
		delete(v.glTextures, tex)
	}
	if v.program != 0 {
		gl.DeleteProgram(v.program)
		v.program = 0
	}
	if v.fb != nil {
		v.fb.Destroy()
		v.fb = nil
	}
}
