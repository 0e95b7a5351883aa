// Package object holds short-lived visual effects drawn over the play area:
// hit particles and floating score text. Effects never touch game state.
package object

import (
	"time"

	"github.com/tomz197/reflex/internal/draw"
)

// Spawner allows objects to spawn new objects during update.
type Spawner interface {
	Spawn(obj Object)
}

// UpdateContext provides all the information an object needs during update.
type UpdateContext struct {
	Delta   time.Duration
	Spawner Spawner
}

// DrawContext provides drawing resources for objects.
type DrawContext struct {
	Canvas   *draw.Canvas
	OffsetX  float64 // screen shake, in pixels
	OffsetY  float64
	Elapsed  time.Duration
	Disabled bool
}

// Object is a drawable and updatable effect.
type Object interface {
	// Update updates the object state. Returns true if the object should be removed.
	Update(ctx UpdateContext) (remove bool, err error)

	// Draw draws the object onto ctx.Canvas.
	Draw(ctx DrawContext) error
}

// Releasable is implemented by pooled objects that can be returned to a pool.
type Releasable interface {
	// Release returns the object to its pool for reuse.
	Release()
}

// ReleaseObject releases an object back to its pool if it implements Releasable.
func ReleaseObject(obj Object) {
	if r, ok := obj.(Releasable); ok {
		r.Release()
	}
}

// Layer is an ordered set of live effects. Not safe for concurrent use;
// each client owns one.
type Layer struct {
	objects []Object
	spawned []Object
}

// Spawn queues obj; it joins the layer after the current Update.
func (l *Layer) Spawn(obj Object) {
	l.spawned = append(l.spawned, obj)
}

// Update advances every effect and drops the finished ones.
func (l *Layer) Update(delta time.Duration) error {
	l.objects = append(l.objects, l.spawned...)
	l.spawned = l.spawned[:0]

	ctx := UpdateContext{Delta: delta, Spawner: l}
	kept := l.objects[:0]
	var firstErr error
	for _, obj := range l.objects {
		remove, err := obj.Update(ctx)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		if remove {
			ReleaseObject(obj)
			continue
		}
		kept = append(kept, obj)
	}
	clear(l.objects[len(kept):])
	l.objects = kept
	return firstErr
}

// Draw draws every live effect in spawn order.
func (l *Layer) Draw(ctx DrawContext) error {
	for _, obj := range l.objects {
		if err := obj.Draw(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of live and queued effects.
func (l *Layer) Len() int {
	return len(l.objects) + len(l.spawned)
}

// Reset drops every effect.
func (l *Layer) Reset() {
	for _, obj := range l.objects {
		ReleaseObject(obj)
	}
	for _, obj := range l.spawned {
		ReleaseObject(obj)
	}
	l.objects = l.objects[:0]
	l.spawned = l.spawned[:0]
}

// ShouldRenderBlink returns true if an object with remaining
// time should be rendered this frame (for blinking effect).
// Returns true always if remainingTime <= 0.
func ShouldRenderBlink(remainingTime float64, frequency float64) bool {
	if remainingTime <= 0 {
		return true
	}
	// Blink based on frequency (e.g., 5.0 = 5Hz, 10.0 = 10Hz)
	phase := int(remainingTime * frequency)
	return phase%2 != 0
}
