package client

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tomz197/reflex/internal/draw"
	"github.com/tomz197/reflex/internal/game"
	"github.com/tomz197/reflex/internal/highscore"
	"github.com/tomz197/reflex/internal/input"
	"github.com/tomz197/reflex/internal/loop/config"
	"github.com/tomz197/reflex/internal/loop/server"
	"github.com/tomz197/reflex/internal/physics"
)

type fakeAudio struct {
	mu    sync.Mutex
	muted bool
	plays []game.Sound
}

func (f *fakeAudio) Play(s game.Sound) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plays = append(f.plays, s)
}
func (f *fakeAudio) StartAmbient() {}
func (f *fakeAudio) PauseAmbient() {}
func (f *fakeAudio) SetMuted(m bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.muted = m
}
func (f *fakeAudio) isMuted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.muted
}

type harness struct {
	ui     *UI
	clock  *game.ManualClock
	audio  *fakeAudio
	store  *highscore.MemoryStore
	canvas *draw.Canvas

	mu      sync.Mutex
	results []int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock:  game.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		audio:  &fakeAudio{},
		store:  &highscore.MemoryStore{},
		canvas: draw.NewCanvas(80, 26),
	}
	h.ui = NewUI(UIOptions{
		Board:    highscore.NewBoard(h.store, nil),
		Settings: h.store,
		Audio:    h.audio,
		Clock:    h.clock,
		OnResult: func(_ game.Result, rank int) {
			h.mu.Lock()
			h.results = append(h.results, rank)
			h.mu.Unlock()
		},
	})
	h.ui.Resize(80, 26)
	return h
}

func (h *harness) frame() {
	h.ui.Update(16 * time.Millisecond)
	h.canvas.Clear()
	h.ui.Draw(h.canvas)
}

func (h *harness) startEasy(t *testing.T) {
	t.Helper()
	h.ui.Handle(input.Input{Enter: true})
	if h.ui.State() != GameStateDifficulty {
		t.Fatalf("state = %s, want difficulty", h.ui.State())
	}
	h.ui.Handle(input.Input{Digits: []int{1}})
	if h.ui.State() != GameStatePlaying {
		t.Fatalf("state = %s, want playing", h.ui.State())
	}
	h.frame()
}

func TestResizeSetsPlayArea(t *testing.T) {
	h := newHarness(t)
	w, hgt, ok := h.ui.area()
	if !ok || w != 80*physics.CellWidthPx || hgt != (26-config.HUDRows-config.FooterRows)*physics.CellHeightPx {
		t.Fatalf("area = %d x %d (%v)", w, hgt, ok)
	}
	h.ui.Resize(80, 1)
	if _, _, ok := h.ui.area(); ok {
		t.Fatal("area should be unavailable without play rows")
	}
}

func TestDrawConfirmsVisibilityAndLabelHits(t *testing.T) {
	h := newHarness(t)
	h.startEasy(t)

	snap := h.ui.Engine().Snapshot()
	if len(snap.Targets) != 1 || !snap.Targets[0].Visible() {
		t.Fatalf("drawn target should be visible: %+v", snap.Targets)
	}
	h.clock.Advance(200 * time.Millisecond)
	h.ui.Handle(input.Input{Digits: []int{1}})

	snap = h.ui.Engine().Snapshot()
	if snap.Score != game.Points(game.Easy.PointsPerHit, 200) {
		t.Fatalf("score = %d", snap.Score)
	}
	h.frame()
	if h.ui.effects.Len() == 0 {
		t.Fatal("hit should spawn effects")
	}
}

func TestClickHitsTarget(t *testing.T) {
	h := newHarness(t)
	h.startEasy(t)

	tgt := h.ui.Engine().Snapshot().Targets[0]
	cx, cy := tgt.Center()
	col, row := physics.PixelToCell(cx, cy)
	h.ui.Handle(input.Input{Clicks: []input.Click{{Col: col, Row: row + config.HUDRows}}})

	if snap := h.ui.Engine().Snapshot(); snap.Hits != 1 {
		t.Fatalf("hits = %d", snap.Hits)
	}
}

func TestEscapeEndsSessionAndShowsRank(t *testing.T) {
	h := newHarness(t)
	h.startEasy(t)
	h.ui.Handle(input.Input{Digits: []int{1}})
	h.ui.Handle(input.Input{Escape: true})
	h.frame()

	if h.ui.State() != GameStateResults {
		t.Fatalf("state = %s", h.ui.State())
	}
	rank, ok := h.ui.rankOf(h.ui.result)
	if !ok || rank != 1 {
		t.Fatalf("rank = %d ok = %v", rank, ok)
	}
	if h.ui.result.Completed {
		t.Fatal("stopped session should not be completed")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.results) != 1 || h.results[0] != 1 {
		t.Fatalf("OnResult ranks = %v", h.results)
	}

	// Play again keeps the difficulty.
	h.ui.Handle(input.Input{Enter: true})
	if h.ui.State() != GameStatePlaying || h.ui.Engine().Snapshot().Difficulty.Name != "easy" {
		t.Fatalf("replay state = %s", h.ui.State())
	}
}

func TestCountdownShowsResults(t *testing.T) {
	h := newHarness(t)
	h.startEasy(t)
	h.clock.Advance(game.Easy.GameTime)
	h.frame()
	if h.ui.State() != GameStateResults || !h.ui.result.Completed {
		t.Fatalf("state = %s result = %+v", h.ui.State(), h.ui.result)
	}
}

func TestSettingsOverlayPersists(t *testing.T) {
	h := newHarness(t)
	h.ui.Handle(input.Input{Settings: true})
	if !h.ui.settingsOpen {
		t.Fatal("settings should open")
	}
	h.ui.Handle(input.Input{Right: true}) // difficulty -> medium
	h.ui.Handle(input.Input{Down: true})
	h.ui.Handle(input.Input{Space: true}) // sound off
	if !h.audio.isMuted() {
		t.Fatal("sound off should mute audio")
	}
	h.ui.Handle(input.Input{Escape: true})
	if h.ui.settingsOpen {
		t.Fatal("escape should close settings")
	}

	saved, err := h.store.LoadSettings(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if saved.Difficulty != "medium" || saved.SoundEnabled {
		t.Fatalf("saved = %+v", saved)
	}
	if h.ui.diffCursor != 1 {
		t.Fatalf("difficulty cursor = %d", h.ui.diffCursor)
	}
}

func TestMuteToggle(t *testing.T) {
	h := newHarness(t)
	h.ui.Handle(input.Input{Mute: true})
	if !h.audio.isMuted() || h.ui.Settings().SoundEnabled {
		t.Fatal("m should mute")
	}
	h.ui.Handle(input.Input{Mute: true})
	if h.audio.isMuted() {
		t.Fatal("second m should unmute")
	}
}

type panicAudio struct{ game.NopAudio }

func (panicAudio) SetMuted(bool) { panic("device gone") }
func (panicAudio) StartAmbient() { panic("device gone") }
func (panicAudio) PauseAmbient() { panic("device gone") }

func TestAudioPanicIsContained(t *testing.T) {
	clock := game.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	ui := NewUI(UIOptions{Audio: panicAudio{}, Clock: clock})
	ui.Resize(80, 26)
	ui.Handle(input.Input{Mute: true})
	ui.Handle(input.Input{Mute: true})
	if !ui.Settings().SoundEnabled {
		t.Fatal("second m should unmute")
	}
	ui.Close()
}

func TestQuitAndShutdown(t *testing.T) {
	h := newHarness(t)
	if !h.ui.Handle(input.Input{Quit: true}) {
		t.Fatal("q should quit")
	}
	h.startEasy(t)
	h.ui.Shutdown(1)
	if h.ui.Engine().Snapshot().Status != game.StatusIdle {
		t.Fatal("shutdown should end the session")
	}
	h.ui.Update(2 * time.Second)
	if h.ui.State() != GameStateShutdown || !h.ui.ShutdownElapsed() {
		t.Fatalf("state = %s", h.ui.State())
	}
}

func TestLabelDigits(t *testing.T) {
	for i := 0; i < maxLabels; i++ {
		if got := labelIndex(labelDigit(i)); got != i {
			t.Fatalf("label round trip %d -> %d", i, got)
		}
	}
	if labelDigit(9) != 0 {
		t.Fatal("tenth label should be 0")
	}
}

func TestClientFrameRendersAndRings(t *testing.T) {
	hub := server.NewHub(server.Options{Board: highscore.NewBoard(nil, nil)})
	var out bytes.Buffer
	c := NewClient(hub, bufio.NewReader(strings.NewReader("")), &out, ClientOptions{
		TermSizeFunc: func() (int, int, error) { return 80, 24, nil },
		Username:     "alice",
	})
	if hub.GetSnapshot().Players != 1 {
		t.Fatalf("players = %d", hub.GetSnapshot().Players)
	}
	c.handle.Bell.Play(game.SoundHit)
	if err := c.drawFrame(); err != nil {
		t.Fatal(err)
	}
	s := out.String()
	if !strings.Contains(s, "REFLEX") {
		t.Fatal("status line missing")
	}
	if !strings.Contains(s, "\a") {
		t.Fatal("bell not flushed")
	}
}

func TestClampTermSize(t *testing.T) {
	w, h, oc, or := clampTermSize(config.MaxTermWidth+20, 10)
	if w != config.MaxTermWidth || h != 10 || oc != 10 || or != 0 {
		t.Fatalf("got %d %d %d %d", w, h, oc, or)
	}
}
