package systems

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/pelagos/reef/config"
	"github.com/pelagos/reef/steering"
)

// CurrentField is a time-animated noise field producing a weak ambient
// drift force. It never dominates behavior; strength 0 disables it.
type CurrentField struct {
	noise    opensimplex.Noise
	strength float32
	scale    float64
	timePos  float64
	timeStep float64
}

// NewCurrentField creates a current field seeded deterministically.
func NewCurrentField(cfg config.CurrentsConfig, seed int64) *CurrentField {
	return &CurrentField{
		noise:    opensimplex.New(seed),
		strength: cfg.Strength,
		scale:    cfg.Scale,
		timeStep: cfg.TimeScale,
	}
}

// Update advances the field animation by one tick.
func (c *CurrentField) Update() {
	c.timePos += c.timeStep
}

// ForceAt returns the drift force at a world position. The noise value
// selects a flow direction; magnitude is the configured strength.
func (c *CurrentField) ForceAt(x, y float32) steering.Vec2 {
	if c.strength == 0 {
		return steering.Vec2{}
	}
	angle := c.noise.Eval3(float64(x)*c.scale, float64(y)*c.scale, c.timePos) * math.Pi * 2
	return steering.Vec2{
		X: float32(math.Cos(angle)) * c.strength,
		Y: float32(math.Sin(angle)) * c.strength,
	}
}
