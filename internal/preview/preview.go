// Package preview drives the turntable animation of the current model
// and hands each frame to the rendering collaborator.
package preview

import (
	"math"

	"github.com/FreshLemonLeaf/3dafy/internal/box"
)

// DefaultSpinSpeed is the turntable rate in radians per second.
const DefaultSpinSpeed = math.Pi / 4

// ModelSource supplies the current immutable model snapshot.
type ModelSource interface {
	Model() *box.Model
}

// Renderer draws one frame of the model at the given spin angle into the
// host viewport.
type Renderer interface {
	Render(m *box.Model, angle float32, width, height int32)
}

// Controller advances the spin angle over time and delegates drawing.
// It reads model snapshots and never writes into them. Not safe for
// concurrent use; it belongs to the host's frame loop.
type Controller struct {
	source   ModelSource
	renderer Renderer

	angle    float32
	speed    float32
	spinning bool
}

// NewController creates a controller spinning at DefaultSpinSpeed.
func NewController(source ModelSource, renderer Renderer) *Controller {
	return &Controller{
		source:   source,
		renderer: renderer,
		speed:    DefaultSpinSpeed,
		spinning: true,
	}
}

// Step advances the animation by dt seconds and renders one frame into a
// width by height viewport. The angle wraps at a full turn; a paused
// controller still renders, it just stops advancing.
func (c *Controller) Step(dt float32, width, height int32) {
	if c.spinning && dt > 0 {
		c.angle = float32(math.Mod(float64(c.angle)+float64(c.speed*dt), 2*math.Pi))
	}
	c.renderer.Render(c.source.Model(), c.angle, width, height)
}

// Spinning reports whether the turntable is advancing.
func (c *Controller) Spinning() bool {
	return c.spinning
}

// SetSpinning pauses or resumes the turntable.
func (c *Controller) SetSpinning(on bool) {
	c.spinning = on
}

// ResetAngle snaps the model back to its resting orientation.
func (c *Controller) ResetAngle() {
	c.angle = 0
}

// Angle returns the current spin angle in radians, in [0, 2π).
func (c *Controller) Angle() float32 {
	return c.angle
}

// SetSpeed overrides the turntable rate in radians per second.
func (c *Controller) SetSpeed(radPerSec float32) {
	c.speed = radPerSec
}
