// Package texture provides image decoding and the canonical texture cache
// shared by the preview renderer and the exporter.
package texture

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	// PNG, JPEG and GIF come from the standard library; BMP, TIFF and
	// WebP are registered by the golang.org/x/image decoders. All are
	// auto-detected by image.Decode.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrDecode indicates the uploaded bytes are not a decodable image.
var ErrDecode = errors.New("unsupported or corrupt image data")

// Resource is one decoded image. Data keeps the original encoded bytes so
// formats that can be embedded directly are never re-encoded on export.
type Resource struct {
	RGBA   *image.RGBA
	Width  int
	Height int
	MIME   string
	Data   []byte
}

// FilterMode selects the sampling filter applied to a texture.
type FilterMode int

const (
	FilterLinear FilterMode = iota
	FilterNearest
)

// Texture pairs a decoded resource with its sampling mode. One canonical
// instance exists per resource; it is never mutated after creation, and
// consumers compare textures by pointer identity.
type Texture struct {
	Resource *Resource
	Filter   FilterMode
}

// Decode decodes image bytes into a Resource. The pixel data is normalized
// to RGBA with a zero origin. Failure wraps ErrDecode.
func Decode(data []byte) (*Resource, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	rgba := toRGBA(img)
	bounds := rgba.Bounds()

	return &Resource{
		RGBA:   rgba,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		MIME:   mimeForFormat(format),
		Data:   data,
	}, nil
}

// toRGBA converts a decoded image to *image.RGBA with the origin at (0,0).
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			rgba.Set(x, y, img.At(bounds.Min.X+x, bounds.Min.Y+y))
		}
	}
	return rgba
}

// mimeForFormat maps an image.Decode format name to its MIME type.
func mimeForFormat(format string) string {
	switch format {
	case "png":
		return "image/png"
	case "jpeg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	case "bmp":
		return "image/bmp"
	case "tiff":
		return "image/tiff"
	case "webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
