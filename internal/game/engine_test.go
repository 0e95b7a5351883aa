package game

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"
)

type fakeAudio struct {
	mu      sync.Mutex
	played  []Sound
	ambient int
	paused  int
	muted   bool
}

func (a *fakeAudio) Play(s Sound) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.played = append(a.played, s)
}
func (a *fakeAudio) StartAmbient() { a.mu.Lock(); a.ambient++; a.mu.Unlock() }
func (a *fakeAudio) PauseAmbient() { a.mu.Lock(); a.paused++; a.mu.Unlock() }
func (a *fakeAudio) SetMuted(m bool) { a.mu.Lock(); a.muted = m; a.mu.Unlock() }

func (a *fakeAudio) count(s Sound) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, p := range a.played {
		if p == s {
			n++
		}
	}
	return n
}

type panicAudio struct{ NopAudio }

func (panicAudio) Play(Sound) { panic("device gone") }

type harness struct {
	engine  *Engine
	clock   *ManualClock
	audio   *fakeAudio
	results []Result
}

func newHarness(t *testing.T, mutate func(*Options)) *harness {
	t.Helper()
	h := &harness{
		clock: NewManualClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)),
		audio: &fakeAudio{},
	}
	next := 0
	opts := Options{
		Clock:    h.clock,
		Audio:    h.audio,
		Area:     FixedArea(800, 600),
		Rand:     rand.New(rand.NewPCG(1, 2)),
		Recorder: RecorderFunc(func(r Result) { h.results = append(h.results, r) }),
		NewID: func() string {
			next++
			return fmt.Sprintf("t%d", next)
		},
	}
	if mutate != nil {
		mutate(&opts)
	}
	h.engine = NewEngine(opts)
	return h
}

func (h *harness) snap() *Snapshot { return h.engine.Snapshot() }

func TestPoints(t *testing.T) {
	tests := []struct {
		base int
		rt   int64
		want int
	}{
		{10, 0, 20},
		{10, 1000, 10},
		{10, 2000, 10},
		{10, 500, 15},
		{20, -50, 40},
		{30, 250, 52},
	}
	for _, tt := range tests {
		if got := Points(tt.base, tt.rt); got != tt.want {
			t.Errorf("Points(%d, %d) = %d, want %d", tt.base, tt.rt, got, tt.want)
		}
	}
}

func TestAverageReaction(t *testing.T) {
	if got := AverageReaction([]int{100, 300}); got != 200 {
		t.Errorf("AverageReaction = %d, want 200", got)
	}
	if got := AverageReaction(nil); got != 0 {
		t.Errorf("AverageReaction(nil) = %d, want 0", got)
	}
	if got := AverageReaction([]int{1, 2}); got != 2 {
		t.Errorf("AverageReaction rounds half up: got %d", got)
	}
}

func TestIsAchievement(t *testing.T) {
	for score, want := range map[int]bool{0: false, 100: true, 200: true, 150: false, 99: false} {
		if got := IsAchievement(score); got != want {
			t.Errorf("IsAchievement(%d) = %v", score, got)
		}
	}
}

func TestStartSpawnsAndRuns(t *testing.T) {
	h := newHarness(t, nil)
	if err := h.engine.Start("easy"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s := h.snap()
	if s.Status != StatusRunning {
		t.Fatalf("status = %s, want running", s.Status)
	}
	if s.TimeRemaining != 60 {
		t.Errorf("time remaining = %d, want 60", s.TimeRemaining)
	}
	if len(s.Targets) != 1 {
		t.Fatalf("targets after start = %d, want 1", len(s.Targets))
	}
	if h.audio.ambient != 1 {
		t.Errorf("ambient started %d times", h.audio.ambient)
	}

	h.clock.Advance(2 * time.Second)
	if n := len(h.snap().Targets); n != 2 {
		t.Errorf("targets after one interval = %d, want 2", n)
	}
	if got := h.snap().TimeRemaining; got != 58 {
		t.Errorf("time remaining = %d, want 58", got)
	}
}

func TestStartRejections(t *testing.T) {
	h := newHarness(t, nil)
	err := h.engine.Start("nightmare")
	if !errors.Is(err, ErrInvalidDifficulty) {
		t.Fatalf("err = %v, want ErrInvalidDifficulty", err)
	}
	if s := h.snap(); s.Status != StatusIdle || len(s.Targets) != 0 {
		t.Fatalf("state changed on invalid difficulty: %+v", s)
	}
	if h.clock.Pending() != 0 {
		t.Fatalf("timers armed on invalid difficulty")
	}

	if err := h.engine.Start("HARD"); err != nil {
		t.Fatalf("Start(HARD): %v", err)
	}
	if err := h.engine.Start("easy"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("second Start err = %v, want ErrInvalidTransition", err)
	}
	if h.snap().Difficulty.Name != "hard" {
		t.Errorf("difficulty changed by rejected start")
	}
}

func TestStopWhileIdle(t *testing.T) {
	h := newHarness(t, nil)
	if err := h.engine.Stop(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Stop err = %v, want ErrInvalidTransition", err)
	}
}

func TestTargetsWithinBounds(t *testing.T) {
	for _, d := range Difficulties() {
		t.Run(d.Name, func(t *testing.T) {
			h := newHarness(t, func(o *Options) { o.Area = FixedArea(300, 200) })
			custom := d
			custom.MaxTargets = 1000
			custom.TargetLifetime = time.Hour
			custom.SpawnInterval = 10 * time.Millisecond
			if err := h.engine.StartWith(custom); err != nil {
				t.Fatal(err)
			}
			h.clock.Advance(900 * time.Millisecond)
			targets := h.snap().Targets
			if len(targets) < 50 {
				t.Fatalf("only %d targets spawned", len(targets))
			}
			ids := map[string]bool{}
			for _, tg := range targets {
				if tg.Size < d.MinSize || tg.Size > d.MaxSize {
					t.Errorf("size %d outside [%d,%d]", tg.Size, d.MinSize, d.MaxSize)
				}
				if tg.X < 0 || tg.Y < 0 || tg.X+tg.Size > 300 || tg.Y+tg.Size > 200 {
					t.Errorf("target %+v leaves the play area", tg)
				}
				if ids[tg.ID] {
					t.Errorf("duplicate id %s", tg.ID)
				}
				ids[tg.ID] = true
			}
		})
	}
}

func TestSizeClampedToSmallArea(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Area = FixedArea(65, 400) })
	if err := h.engine.Start("easy"); err != nil {
		t.Fatal(err)
	}
	tg := h.snap().Targets[0]
	if tg.Size < 60 || tg.Size > 65 {
		t.Errorf("size %d not clamped to area", tg.Size)
	}
	if tg.X+tg.Size > 65 {
		t.Errorf("target overflows width: %+v", tg)
	}
}

func TestAdmissionLimit(t *testing.T) {
	h := newHarness(t, nil)
	d := Easy
	d.MaxTargets = 2
	d.TargetLifetime = 10 * time.Second
	d.SpawnInterval = 100 * time.Millisecond
	if err := h.engine.StartWith(d); err != nil {
		t.Fatal(err)
	}
	h.clock.Advance(100 * time.Millisecond)
	if n := len(h.snap().Targets); n != 2 {
		t.Fatalf("targets = %d, want 2", n)
	}
	h.clock.Advance(500 * time.Millisecond)
	if n := len(h.snap().Targets); n != 2 {
		t.Fatalf("admission limit exceeded: %d targets", n)
	}
}

func TestLayoutUnavailableDefersSpawn(t *testing.T) {
	var mu sync.Mutex
	ready := false
	area := func() (int, int, bool) {
		mu.Lock()
		defer mu.Unlock()
		if !ready {
			return 0, 0, false
		}
		return 640, 480, true
	}
	h := newHarness(t, func(o *Options) { o.Area = area })
	if err := h.engine.Start("easy"); err != nil {
		t.Fatal(err)
	}
	if n := len(h.snap().Targets); n != 0 {
		t.Fatalf("spawned %d targets without a layout", n)
	}
	mu.Lock()
	ready = true
	mu.Unlock()
	h.clock.Advance(2 * time.Second)
	if n := len(h.snap().Targets); n != 1 {
		t.Fatalf("targets after layout became ready = %d, want 1", n)
	}
}

func TestDegenerateAreaNeverSpawns(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Area = FixedArea(30, 30) })
	if err := h.engine.Start("easy"); err != nil {
		t.Fatal(err)
	}
	h.clock.Advance(10 * time.Second)
	if n := len(h.snap().Targets); n != 0 {
		t.Fatalf("spawned %d targets in an area smaller than min size", n)
	}
}

func TestHitScoring(t *testing.T) {
	tests := []struct {
		wait time.Duration
		want int
	}{
		{0, 20},
		{time.Second, 10},
		{2 * time.Second, 10},
	}
	for _, tt := range tests {
		t.Run(tt.wait.String(), func(t *testing.T) {
			h := newHarness(t, nil)
			if err := h.engine.Start("easy"); err != nil {
				t.Fatal(err)
			}
			id := h.snap().Targets[0].ID
			h.clock.Advance(tt.wait)
			res, ok := h.engine.Hit(id)
			if !ok {
				t.Fatal("hit ignored")
			}
			if res.Points != tt.want || h.snap().Score != tt.want {
				t.Errorf("points = %d score = %d, want %d", res.Points, h.snap().Score, tt.want)
			}
			if res.ReactionMs != int(tt.wait.Milliseconds()) {
				t.Errorf("reaction = %d", res.ReactionMs)
			}
			if h.audio.count(SoundHit) != 1 {
				t.Errorf("hit sound not played")
			}
		})
	}
}

func TestHitNoOps(t *testing.T) {
	h := newHarness(t, nil)
	if _, ok := h.engine.Hit("t1"); ok {
		t.Fatal("hit accepted while idle")
	}
	if err := h.engine.Start("easy"); err != nil {
		t.Fatal(err)
	}
	if _, ok := h.engine.Hit("missing"); ok {
		t.Fatal("hit accepted for unknown target")
	}
	id := h.snap().Targets[0].ID
	if _, ok := h.engine.Hit(id); !ok {
		t.Fatal("first hit ignored")
	}
	score := h.snap().Score
	if _, ok := h.engine.Hit(id); ok {
		t.Fatal("second hit accepted")
	}
	if h.snap().Score != score || h.snap().Hits != 1 {
		t.Fatalf("duplicate hit mutated state: %+v", h.snap())
	}
}

func TestHitRemovalDelay(t *testing.T) {
	h := newHarness(t, nil)
	if err := h.engine.Start("easy"); err != nil {
		t.Fatal(err)
	}
	id := h.snap().Targets[0].ID
	h.engine.Hit(id)
	tg, ok := h.snap().Target(id)
	if !ok || !tg.Hit {
		t.Fatal("hit target removed immediately")
	}
	h.clock.Advance(HitRemovalDelay)
	if _, ok := h.snap().Target(id); ok {
		t.Fatal("hit target still present after removal delay")
	}
}

func TestExpiryRemovesUnhitTarget(t *testing.T) {
	h := newHarness(t, nil)
	if err := h.engine.Start("easy"); err != nil {
		t.Fatal(err)
	}
	id := h.snap().Targets[0].ID
	h.clock.Advance(2999 * time.Millisecond)
	if _, ok := h.snap().Target(id); !ok {
		t.Fatal("target expired early")
	}
	h.clock.Advance(time.Millisecond)
	if _, ok := h.snap().Target(id); ok {
		t.Fatal("target survived its lifetime")
	}
	if h.snap().Score != 0 {
		t.Errorf("expiry changed score")
	}
	if _, ok := h.engine.Hit(id); ok {
		t.Fatal("hit accepted on expired target")
	}
}

func TestAchievement(t *testing.T) {
	h := newHarness(t, nil)
	d := Easy
	d.PointsPerHit = 50
	d.SpawnInterval = 5 * time.Second
	if err := h.engine.StartWith(d); err != nil {
		t.Fatal(err)
	}
	// 100 points at an instant hit.
	res, ok := h.engine.Hit(h.snap().Targets[0].ID)
	if !ok || !res.Achievement {
		t.Fatalf("expected achievement, got %+v", res)
	}
	if h.audio.count(SoundAchievement) != 1 {
		t.Errorf("achievement sound not played")
	}
	found := false
	for len(h.engine.Events()) > 0 {
		if ev := <-h.engine.Events(); ev.Type == EventAchievement {
			found = ev.Score == 100
		}
	}
	if !found {
		t.Error("no achievement event")
	}
}

func TestCountdownFinishes(t *testing.T) {
	h := newHarness(t, nil)
	if err := h.engine.Start("hard"); err != nil {
		t.Fatal(err)
	}
	h.engine.Hit(h.snap().Targets[0].ID)
	h.clock.Advance(29 * time.Second)
	if h.snap().Status != StatusRunning {
		t.Fatal("session ended early")
	}
	h.clock.Advance(time.Second)

	s := h.snap()
	if s.Status != StatusIdle {
		t.Fatalf("status = %s, want idle", s.Status)
	}
	if len(s.Targets) != 0 {
		t.Errorf("targets not cleared")
	}
	if len(h.results) != 1 {
		t.Fatalf("recorded %d results, want 1", len(h.results))
	}
	r := h.results[0]
	if !r.Completed || r.TimePlayed != 30*time.Second {
		t.Errorf("result = %+v", r)
	}
	if r.Entry.Difficulty != "hard" || r.Entry.Score != 60 || r.Entry.AvgReactionMs != 0 {
		t.Errorf("entry = %+v", r.Entry)
	}
	if s.LastResult == nil || s.LastResult.Entry != r.Entry {
		t.Errorf("snapshot last result = %+v", s.LastResult)
	}
	if h.clock.Pending() != 0 {
		t.Errorf("%d timers still armed after game over", h.clock.Pending())
	}
	if h.audio.paused != 1 || h.audio.count(SoundGameOver) != 1 {
		t.Errorf("audio after game over: paused=%d gameover=%d", h.audio.paused, h.audio.count(SoundGameOver))
	}
}

func TestNoMutationAfterStop(t *testing.T) {
	h := newHarness(t, nil)
	if err := h.engine.Start("medium"); err != nil {
		t.Fatal(err)
	}
	id := h.snap().Targets[0].ID
	h.clock.Advance(500 * time.Millisecond)
	h.engine.Hit(id)
	if err := h.engine.Stop(); err != nil {
		t.Fatal(err)
	}
	before := *h.snap()
	h.clock.Advance(time.Minute)
	after := h.snap()
	if after.Score != before.Score || after.TimeRemaining != before.TimeRemaining || len(after.Targets) != 0 {
		t.Fatalf("state mutated after stop: before %+v after %+v", before, after)
	}
	if len(h.results) != 1 || h.results[0].Completed {
		t.Fatalf("stop result = %+v", h.results)
	}
	if h.results[0].Entry.AvgReactionMs != 500 {
		t.Errorf("avg = %d, want 500", h.results[0].Entry.AvgReactionMs)
	}
	if got := h.results[0].TimePlayed; got != 0 {
		t.Errorf("time played = %s, want 0", got)
	}
}

func TestScoreResetsOnStart(t *testing.T) {
	h := newHarness(t, nil)
	if err := h.engine.Start("easy"); err != nil {
		t.Fatal(err)
	}
	h.engine.Hit(h.snap().Targets[0].ID)
	if err := h.engine.Stop(); err != nil {
		t.Fatal(err)
	}
	if h.snap().Score == 0 {
		t.Fatal("final score not kept after stop")
	}
	if err := h.engine.Start("easy"); err != nil {
		t.Fatal(err)
	}
	s := h.snap()
	if s.Score != 0 || s.Hits != 0 || s.TimeRemaining != 60 {
		t.Fatalf("state not reset on start: %+v", s)
	}
}

func TestConfirmVisibility(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.ConfirmVisibility = true })
	if err := h.engine.Start("easy"); err != nil {
		t.Fatal(err)
	}
	id := h.snap().Targets[0].ID
	if _, ok := h.engine.Hit(id); ok {
		t.Fatal("hit accepted before visibility")
	}
	h.clock.Advance(400 * time.Millisecond)
	if !h.engine.MarkVisible(id) {
		t.Fatal("MarkVisible rejected")
	}
	if h.engine.MarkVisible(id) {
		t.Fatal("MarkVisible accepted twice")
	}
	// Expiry counts from visibility, not creation.
	h.clock.Advance(2800 * time.Millisecond)
	if _, ok := h.snap().Target(id); !ok {
		t.Fatal("target expired relative to creation")
	}
	res, ok := h.engine.Hit(id)
	if !ok || res.ReactionMs != 2800 {
		t.Fatalf("hit = %+v ok=%v, want reaction 2800", res, ok)
	}
}

func TestProvisionalExpiryWithoutVisibility(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.ConfirmVisibility = true })
	if err := h.engine.Start("easy"); err != nil {
		t.Fatal(err)
	}
	id := h.snap().Targets[0].ID
	h.clock.Advance(3 * time.Second)
	if _, ok := h.snap().Target(id); ok {
		t.Fatal("never-shown target not expired")
	}
}

// lateClock hands out timers whose Stop never wins, as when a real timer
// has already fired and its callback is waiting for the engine lock.
type lateClock struct{ *ManualClock }

type lateTimer struct{ Timer }

func (lateTimer) Stop() bool { return false }

func (c lateClock) AfterFunc(d time.Duration, f func()) Timer {
	return lateTimer{c.ManualClock.AfterFunc(d, f)}
}

func TestSupersededExpiryIsIgnored(t *testing.T) {
	h := &harness{clock: NewManualClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))}
	h.engine = NewEngine(Options{
		Clock:             lateClock{h.clock},
		Area:              FixedArea(800, 600),
		Rand:              rand.New(rand.NewPCG(1, 2)),
		ConfirmVisibility: true,
	})
	if err := h.engine.Start("easy"); err != nil {
		t.Fatal(err)
	}
	id := h.snap().Targets[0].ID
	h.clock.Advance(2900 * time.Millisecond)
	if !h.engine.MarkVisible(id) {
		t.Fatal("MarkVisible rejected")
	}

	// The provisional expiry still fires at 3s but is no longer current.
	h.clock.Advance(200 * time.Millisecond)
	if _, ok := h.snap().Target(id); !ok {
		t.Fatal("target removed by the provisional expiry after becoming visible")
	}
	h.clock.Advance(2800 * time.Millisecond)
	if _, ok := h.snap().Target(id); ok {
		t.Fatal("target outlived a full lifetime from visibility")
	}
}

func TestAudioPanicIsContained(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Audio = panicAudio{} })
	if err := h.engine.Start("easy"); err != nil {
		t.Fatal(err)
	}
	if _, ok := h.engine.Hit(h.snap().Targets[0].ID); !ok {
		t.Fatal("hit lost to audio panic")
	}
	if err := h.engine.Stop(); err != nil {
		t.Fatal(err)
	}
}

func TestHitAtPrefersTopmost(t *testing.T) {
	h := newHarness(t, nil)
	d := Easy
	d.MinSize, d.MaxSize = 100, 100
	d.SpawnInterval = 10 * time.Millisecond
	h.engine.area = FixedArea(100, 100)
	if err := h.engine.StartWith(d); err != nil {
		t.Fatal(err)
	}
	h.clock.Advance(10 * time.Millisecond)
	targets := h.snap().Targets
	if len(targets) != 2 {
		t.Fatalf("targets = %d", len(targets))
	}
	res, ok := h.engine.HitAt(50, 50)
	if !ok || res.TargetID != targets[1].ID {
		t.Fatalf("HitAt hit %q, want topmost %q", res.TargetID, targets[1].ID)
	}
	if _, ok := h.engine.HitAt(1, 1); ok {
		t.Fatal("corner outside the circle counted as a hit")
	}
}

func TestEventsDoNotBlock(t *testing.T) {
	h := newHarness(t, nil)
	d := Easy
	d.SpawnInterval = time.Millisecond
	d.MaxTargets = 1000
	d.TargetLifetime = time.Millisecond
	if err := h.engine.StartWith(d); err != nil {
		t.Fatal(err)
	}
	h.clock.Advance(time.Second)
	if len(h.engine.Events()) != eventBufferSize {
		t.Errorf("event buffer len = %d", len(h.engine.Events()))
	}
}
