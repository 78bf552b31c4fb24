// Package session owns the editor state: the loaded image, the model
// settings, and the current box model kept in step with both.
package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/FreshLemonLeaf/3dafy/internal/box"
	"github.com/FreshLemonLeaf/3dafy/internal/logger"
	"github.com/FreshLemonLeaf/3dafy/internal/texture"
)

// matKey captures the inputs of material assignment. Materials are only
// recomputed when it changes, so a depth-only edit keeps the material
// array identity stable.
type matKey struct {
	side box.RGB
	tex  *texture.Texture
	mode box.BackMode
}

// Session orchestrates one image, the model settings, and the built box.
// Every recognized change rebuilds the model snapshot; reads always
// observe the newest decoded resource, never a superseded one.
type Session struct {
	mu     sync.Mutex
	loader *texture.Loader

	depth float32
	side  box.RGB
	mode  box.BackMode

	matKey    matKey
	materials [6]box.Material
	model     *box.Model
}

// New creates a session with the given settings and no image.
func New(depth float32, side box.RGB, mode box.BackMode) *Session {
	s := &Session{
		loader: texture.NewLoader(),
		depth:  depth,
		side:   side,
		mode:   mode,
	}
	s.matKey = matKey{side: side, mode: mode}
	s.materials = box.AssignMaterials(side, nil, mode)
	s.model = box.Build(depth, s.materials)
	return s
}

// LoadImage starts decoding image bytes. The model picks up the result
// as soon as the decode settles; an older upload can never win over a
// newer one.
func (s *Session) LoadImage(data []byte) {
	s.loader.Load(data)
}

// ClearImage drops the current image and aborts any in-flight decode.
func (s *Session) ClearImage() {
	s.loader.Cancel()
}

// Results delivers settled decodes, for event loops that surface status.
func (s *Session) Results() <-chan texture.Result {
	return s.loader.Results()
}

// SetDepth updates the extrusion depth and rebuilds the geometry.
func (s *Session) SetDepth(d float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.depth == d {
		return
	}
	s.depth = d
	s.ensureLocked()
}

// SetSideColor updates the side face color and rebuilds.
func (s *Session) SetSideColor(c box.RGB) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.side == c {
		return
	}
	s.side = c
	s.ensureLocked()
}

// SetBackMode updates the back face mode and rebuilds.
func (s *Session) SetBackMode(m box.BackMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == m {
		return
	}
	s.mode = m
	s.ensureLocked()
}

// Depth returns the current extrusion depth.
func (s *Session) Depth() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.depth
}

// SideColor returns the current side face color.
func (s *Session) SideColor() box.RGB {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.side
}

// BackMode returns the current back face mode.
func (s *Session) BackMode() box.BackMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Model returns the current immutable snapshot, rebuilt first if the
// settings or the decoded image moved since the last build.
func (s *Session) Model() *box.Model {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked()
	return s.model
}

// CanExport reports whether an image is present or still decoding.
func (s *Session) CanExport() bool {
	return s.loader.Texture() != nil || s.loader.Busy()
}

// Busy reports whether an image decode is in flight.
func (s *Session) Busy() bool {
	return s.loader.Busy()
}

// Ready blocks until any in-flight decode has settled. Together with
// Model it satisfies the exporter's source contract: after Ready, the
// snapshot reflects the decode outcome.
func (s *Session) Ready(ctx context.Context) error {
	return s.loader.Wait(ctx)
}

// ensureLocked recomputes the materials when their inputs changed and
// rebuilds the geometry when it no longer matches the settings.
func (s *Session) ensureLocked() {
	key := matKey{side: s.side, tex: s.loader.Texture(), mode: s.mode}

	materialsChanged := key != s.matKey
	if materialsChanged {
		s.matKey = key
		s.materials = box.AssignMaterials(key.side, key.tex, key.mode)
	}

	if materialsChanged || s.model.Depth != s.depth {
		s.model = box.Build(s.depth, s.materials)
		logger.Debug("model rebuilt",
			zap.Float32("depth", s.depth),
			zap.String("side", s.side.Hex()),
			zap.Stringer("back", s.mode),
			zap.Bool("textured", key.tex != nil))
	}
}
