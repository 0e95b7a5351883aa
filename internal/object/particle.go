package object

import (
	"math"
	"math/rand/v2"
	"sync"

	"github.com/tomz197/reflex/internal/draw"
)

// particlePool is a sync.Pool for reusing Particle objects to reduce allocations.
var particlePool = sync.Pool{
	New: func() any {
		return &Particle{}
	},
}

// Particle is a short-lived colored dot, in play-area pixels.
type Particle struct {
	X, Y        float64 // Position
	VX, VY      float64 // Velocity, px/s
	Lifetime    float64 // Seconds remaining
	MaxLifetime float64 // Initial lifetime (for fade calculation)
	Drag        float64 // Velocity decay (1.0 = no drag)
	Color       draw.Color
}

// NewParticle creates a single particle from the pool.
func NewParticle(x, y, vx, vy, lifetime float64, color draw.Color) *Particle {
	p := particlePool.Get().(*Particle)
	p.X = x
	p.Y = y
	p.VX = vx
	p.VY = vy
	p.Lifetime = lifetime
	p.MaxLifetime = lifetime
	p.Drag = 0.92
	p.Color = color
	return p
}

// Release returns the particle to the pool for reuse.
func (p *Particle) Release() {
	particlePool.Put(p)
}

// SpawnBurst creates particles in a circular burst around (x, y), as drawn
// when a target is hit.
func SpawnBurst(x, y float64, count int, speed, lifetime float64, colors []draw.Color, spawner Spawner) {
	if spawner == nil || len(colors) == 0 {
		return
	}
	for i := 0; i < count; i++ {
		// Random direction
		angle := rand.Float64() * 2 * math.Pi
		// Random speed variation (50% to 150%)
		spd := speed * (0.5 + rand.Float64())
		// Random lifetime variation (50% to 100%)
		life := lifetime * (0.5 + rand.Float64()*0.5)

		vx := math.Cos(angle) * spd
		vy := math.Sin(angle) * spd

		spawner.Spawn(NewParticle(x, y, vx, vy, life, colors[rand.IntN(len(colors))]))
	}
}

// Update moves the particle and checks lifetime.
func (p *Particle) Update(ctx UpdateContext) (bool, error) {
	dt := ctx.Delta.Seconds()

	p.Lifetime -= dt
	if p.Lifetime <= 0 {
		return true, nil
	}

	dragFactor := math.Pow(p.Drag, dt*60) // Normalize drag to ~60fps
	p.VX *= dragFactor
	p.VY *= dragFactor

	p.X += p.VX * dt
	p.Y += p.VY * dt
	return false, nil
}

// Draw renders the particle as a sub-pixel, dimming as it ages.
func (p *Particle) Draw(ctx DrawContext) error {
	if ctx.Disabled || p.MaxLifetime <= 0 {
		return nil
	}
	frac := p.Lifetime / p.MaxLifetime
	if frac < 0.15 {
		return nil
	}
	ctx.Canvas.SetPixel(p.X+ctx.OffsetX, p.Y+ctx.OffsetY, p.Color.Scale(0.4+0.6*frac))
	return nil
}
