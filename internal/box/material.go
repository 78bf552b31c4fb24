package box

import (
	"fmt"
	"strconv"

	"github.com/FreshLemonLeaf/3dafy/internal/texture"
)

// RGB is an 8-bit color triple.
type RGB struct {
	R, G, B uint8
}

// White is the fallback color for an untextured front face.
var White = RGB{255, 255, 255}

// ParseHex parses a "#rrggbb" hex color.
func ParseHex(s string) (RGB, error) {
	if len(s) != 7 || s[0] != '#' {
		return RGB{}, fmt.Errorf("invalid hex color %q", s)
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("invalid hex color %q", s)
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// Hex formats the color as "#rrggbb".
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Floats returns the color channels normalized to [0, 1].
func (c RGB) Floats() [3]float32 {
	return [3]float32{
		float32(c.R) / 255,
		float32(c.G) / 255,
		float32(c.B) / 255,
	}
}

// BackMode selects how the back face is painted.
type BackMode int

const (
	// BackImage mirrors the front texture onto the back face when an
	// image is loaded.
	BackImage BackMode = iota
	// BackColor paints the back face with the side color.
	BackColor
)

// ParseBackMode maps a configuration string to a BackMode.
func ParseBackMode(s string) (BackMode, error) {
	switch s {
	case "image":
		return BackImage, nil
	case "color":
		return BackColor, nil
	default:
		return BackImage, fmt.Errorf("unknown back mode %q", s)
	}
}

func (m BackMode) String() string {
	if m == BackColor {
		return "color"
	}
	return "image"
}

// MaterialKind tells a consumer how to paint a face.
type MaterialKind int

const (
	KindColor MaterialKind = iota
	KindTexture
)

// Material describes one face surface. It is a comparable value: two
// faces share a mesh primitive on export exactly when their materials
// are equal. Texture identity is the canonical pointer, so the same
// image referenced from two faces compares equal.
type Material struct {
	Kind    MaterialKind
	Color   RGB
	Texture *texture.Texture
}

// AssignMaterials maps the current settings to the six face materials in
// slot order [right, left, top, bottom, front, back]. It is pure: the
// same inputs always produce the same array, and every slot is assigned.
//
//   - The four sides are always the flat side color.
//   - The front shows the texture when one is loaded, else flat white.
//   - The back shows the texture only in BackImage mode with a texture
//     present; otherwise it falls back to the side color.
func AssignMaterials(side RGB, tex *texture.Texture, mode BackMode) [6]Material {
	sideMat := Material{Kind: KindColor, Color: side}

	front := Material{Kind: KindColor, Color: White}
	if tex != nil {
		front = Material{Kind: KindTexture, Texture: tex}
	}

	back := sideMat
	if mode == BackImage && tex != nil {
		back = front
	}

	return [6]Material{
		FaceRight:  sideMat,
		FaceLeft:   sideMat,
		FaceTop:    sideMat,
		FaceBottom: sideMat,
		FaceFront:  front,
		FaceBack:   back,
	}
}
