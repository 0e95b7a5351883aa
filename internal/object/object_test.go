package object

import (
	"testing"
	"time"

	"github.com/tomz197/reflex/internal/draw"
)

func TestLayerExpiresEffects(t *testing.T) {
	var l Layer
	SpawnBurst(100, 100, 12, 80, 0.2, []draw.Color{draw.Red}, &l)
	l.Spawn(NewFloatingText(100, 100, "+20", draw.Yellow, 0.5))
	if l.Len() != 13 {
		t.Fatalf("len = %d", l.Len())
	}
	if err := l.Update(16 * time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if l.Len() != 13 {
		t.Fatalf("after first frame len = %d", l.Len())
	}
	c := draw.NewCanvas(40, 20)
	if err := l.Draw(DrawContext{Canvas: c}); err != nil {
		t.Fatal(err)
	}
	_ = l.Update(300 * time.Millisecond)
	if l.Len() != 1 {
		t.Fatalf("particles should expire before the label, len = %d", l.Len())
	}
	_ = l.Update(300 * time.Millisecond)
	if l.Len() != 0 {
		t.Fatalf("label should expire, len = %d", l.Len())
	}
}

func TestFloatingTextRises(t *testing.T) {
	f := NewFloatingText(50, 100, "x", draw.White, 1)
	if _, err := f.Update(UpdateContext{Delta: 500 * time.Millisecond}); err != nil {
		t.Fatal(err)
	}
	if f.Y >= 100 {
		t.Fatalf("y = %v, want < 100", f.Y)
	}
}

func TestShouldRenderBlink(t *testing.T) {
	if !ShouldRenderBlink(0, 5) {
		t.Fatal("no remaining time should always render")
	}
	if ShouldRenderBlink(0.1, 5) == ShouldRenderBlink(0.3, 5) {
		t.Fatal("phases 0 and 1 should differ")
	}
}
