package game

import (
	"fmt"
	"io"
	"math/rand/v2"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

const (
	// HitRemovalDelay is how long a hit target lingers before removal.
	HitRemovalDelay = 300 * time.Millisecond

	eventBufferSize = 128
)

// Options configures an Engine. Zero values select defaults.
type Options struct {
	Clock    Clock
	Audio    Audio
	Recorder Recorder
	Area     AreaFunc
	Logger   *log.Logger
	Rand     *rand.Rand
	NewID    func() string

	// ConfirmVisibility makes the reaction clock wait for MarkVisible.
	// Without it a target counts as visible the moment it spawns.
	ConfirmVisibility bool
}

// Engine runs one game session at a time. All methods are safe for
// concurrent use; timer callbacks and input calls are serialized.
type Engine struct {
	clock    Clock
	audio    Audio
	recorder Recorder
	area     AreaFunc
	logger   *log.Logger
	rng      *rand.Rand
	newID    func() string
	confirm  bool

	mu         sync.Mutex
	status     Status
	difficulty Difficulty
	score      int
	remaining  int
	targets    []*Target
	reactions  []int
	lastRT     int
	lastResult *Result
	startedAt  time.Time

	// token identifies the current session; callbacks armed under an
	// older token do nothing.
	token          uint64
	spawnTimer     Timer
	countdownTimer Timer
	targetTimers   map[string]targetTimer
	timerGen       uint64

	snapshot atomic.Pointer[Snapshot]
	events   chan Event
}

// NewEngine creates an idle engine.
func NewEngine(opts Options) *Engine {
	e := &Engine{
		clock:        opts.Clock,
		audio:        opts.Audio,
		recorder:     opts.Recorder,
		area:         opts.Area,
		logger:       opts.Logger,
		rng:          opts.Rand,
		newID:        opts.NewID,
		confirm:      opts.ConfirmVisibility,
		difficulty:   Easy,
		targetTimers: make(map[string]targetTimer),
		events:       make(chan Event, eventBufferSize),
	}
	if e.clock == nil {
		e.clock = RealClock()
	}
	if e.audio == nil {
		e.audio = NopAudio{}
	}
	if e.logger == nil {
		e.logger = log.New(io.Discard)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if e.newID == nil {
		e.newID = uuid.NewString
	}
	if e.area == nil {
		e.area = func() (int, int, bool) { return 0, 0, false }
	}
	e.publishLocked()
	return e
}

// Events returns the event channel. Events are dropped when it is full.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// Snapshot returns the latest state. The result must not be modified.
func (e *Engine) Snapshot() *Snapshot {
	return e.snapshot.Load()
}

// Audio returns the injected audio collaborator.
func (e *Engine) Audio() Audio {
	return e.audio
}

// Start begins a session with the named preset. Only valid while idle.
func (e *Engine) Start(name string) error {
	d, err := LookupDifficulty(name)
	if err != nil {
		e.logger.Warn("start rejected", "difficulty", name, "err", err)
		return err
	}
	return e.StartWith(d)
}

// StartWith begins a session with a custom preset.
func (e *Engine) StartWith(d Difficulty) error {
	if err := d.Validate(); err != nil {
		e.logger.Warn("start rejected", "difficulty", d.Name, "err", err)
		return fmt.Errorf("%w: %v", ErrInvalidDifficulty, err)
	}

	e.mu.Lock()
	if e.status != StatusIdle {
		status := e.status
		e.mu.Unlock()
		e.logger.Debug("start rejected", "status", status)
		return fmt.Errorf("%w: start while %s", ErrInvalidTransition, status)
	}

	e.token++
	tok := e.token
	e.difficulty = d
	e.score = 0
	e.remaining = d.Seconds()
	e.targets = nil
	e.reactions = nil
	e.lastRT = 0
	e.startedAt = e.clock.Now()
	e.status = StatusRunning

	snap := e.publishLocked()
	e.emit(Event{Type: EventStarted}, snap)

	e.spawnLocked()
	e.spawnTimer = e.clock.AfterFunc(d.SpawnInterval, func() { e.spawnTick(tok) })
	e.countdownTimer = e.clock.AfterFunc(time.Second, func() { e.countdownTick(tok) })
	e.mu.Unlock()

	e.logger.Info("session started", "difficulty", d.Name)
	e.safeAudio("start ambient", e.audio.StartAmbient)
	return nil
}

// Stop ends the running session early. The result is still recorded.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if e.status != StatusRunning {
		status := e.status
		e.mu.Unlock()
		return fmt.Errorf("%w: stop while %s", ErrInvalidTransition, status)
	}
	res := e.finishLocked(false)
	e.mu.Unlock()

	e.afterFinish(res)
	return nil
}

// Hit registers a hit on the target. The second return is false when the
// hit was ignored: no session, unknown or already hit, or not yet visible.
func (e *Engine) Hit(id string) (HitResult, bool) {
	e.mu.Lock()
	if e.status != StatusRunning {
		e.mu.Unlock()
		return HitResult{}, false
	}
	t := e.findLocked(id)
	if t == nil || t.Hit || !t.Visible() {
		e.mu.Unlock()
		return HitResult{}, false
	}

	now := e.clock.Now()
	rt := now.Sub(t.VisibleAt).Milliseconds()
	if rt < 0 {
		rt = 0
	}
	t.Hit = true
	points := Points(e.difficulty.PointsPerHit, rt)
	e.score += points
	e.reactions = append(e.reactions, int(rt))
	e.lastRT = int(rt)

	e.armTargetTimerLocked(id, HitRemovalDelay, e.removeTick)

	res := HitResult{
		TargetID:    id,
		Points:      points,
		ReactionMs:  int(rt),
		Score:       e.score,
		Achievement: IsAchievement(e.score),
	}
	snap := e.publishLocked()
	e.emit(Event{Type: EventHit, Target: *t, Points: points, ReactionMs: int(rt), Score: e.score}, snap)
	if res.Achievement {
		e.emit(Event{Type: EventAchievement, Score: e.score}, snap)
	}
	e.mu.Unlock()

	e.safeAudio("play hit", func() { e.audio.Play(SoundHit) })
	if res.Achievement {
		e.logger.Debug("achievement", "score", res.Score)
		e.safeAudio("play achievement", func() { e.audio.Play(SoundAchievement) })
	}
	return res, true
}

// HitAt hits the topmost target under the point, if any.
func (e *Engine) HitAt(px, py float64) (HitResult, bool) {
	t, ok := e.Snapshot().TargetAt(px, py)
	if !ok {
		return HitResult{}, false
	}
	return e.Hit(t.ID)
}

// MarkVisible starts the reaction clock of a target. It only has an effect
// with ConfirmVisibility, the first time it is called for a target.
func (e *Engine) MarkVisible(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status != StatusRunning {
		return false
	}
	t := e.findLocked(id)
	if t == nil || t.Hit || t.Visible() {
		return false
	}
	t.VisibleAt = e.clock.Now()
	e.armExpiryLocked(t)
	e.publishLocked()
	return true
}

func (e *Engine) spawnTick(tok uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if tok != e.token || e.status != StatusRunning {
		return
	}
	e.spawnLocked()
	e.spawnTimer = e.clock.AfterFunc(e.difficulty.SpawnInterval, func() { e.spawnTick(tok) })
}

// spawnLocked creates one target if the admission limit and layout allow.
func (e *Engine) spawnLocked() {
	d := e.difficulty
	if len(e.targets) >= d.MaxTargets {
		return
	}
	w, h, ok := e.area()
	if !ok || w < d.MinSize || h < d.MinSize {
		e.logger.Debug("spawn deferred", "err", ErrLayoutUnavailable, "width", w, "height", h)
		return
	}

	maxSize := min(d.MaxSize, w, h)
	size := d.MinSize + e.rng.IntN(maxSize-d.MinSize+1)
	now := e.clock.Now()
	t := &Target{
		ID:        e.newID(),
		Size:      size,
		X:         e.rng.IntN(w - size + 1),
		Y:         e.rng.IntN(h - size + 1),
		Color:     Palette[e.rng.IntN(len(Palette))],
		CreatedAt: now,
	}
	if !e.confirm {
		t.VisibleAt = now
	}
	e.targets = append(e.targets, t)
	e.armExpiryLocked(t)

	snap := e.publishLocked()
	e.emit(Event{Type: EventSpawned, Target: *t}, snap)
}

// armExpiryLocked schedules expiry one lifetime after visibility, or after
// creation while visibility is still unconfirmed.
func (e *Engine) armExpiryLocked(t *Target) {
	e.armTargetTimerLocked(t.ID, e.difficulty.TargetLifetime, e.expireTick)
}

// targetTimer is the pending expiry or removal of one target. gen tells a
// callback whether it is still the current one: Stop cannot recall a
// callback that already fired and is waiting for the lock.
type targetTimer struct {
	Timer
	gen uint64
}

// armTargetTimerLocked replaces the target's pending timer.
func (e *Engine) armTargetTimerLocked(id string, d time.Duration, f func(tok, gen uint64, id string)) {
	e.stopTargetTimerLocked(id)
	e.timerGen++
	tok, gen := e.token, e.timerGen
	e.targetTimers[id] = targetTimer{
		Timer: e.clock.AfterFunc(d, func() { f(tok, gen, id) }),
		gen:   gen,
	}
}

// currentTimerLocked reports whether a callback armed under tok and gen is
// still the live timer of target id.
func (e *Engine) currentTimerLocked(tok, gen uint64, id string) bool {
	if tok != e.token || e.status != StatusRunning {
		return false
	}
	t, ok := e.targetTimers[id]
	return ok && t.gen == gen
}

func (e *Engine) expireTick(tok, gen uint64, id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.currentTimerLocked(tok, gen, id) {
		return
	}
	t := e.findLocked(id)
	if t == nil || t.Hit {
		return
	}
	expired := *t
	e.removeLocked(id)
	snap := e.publishLocked()
	e.emit(Event{Type: EventExpired, Target: expired}, snap)
}

func (e *Engine) removeTick(tok, gen uint64, id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.currentTimerLocked(tok, gen, id) {
		return
	}
	t := e.findLocked(id)
	if t == nil {
		return
	}
	removed := *t
	e.removeLocked(id)
	snap := e.publishLocked()
	e.emit(Event{Type: EventRemoved, Target: removed}, snap)
}

func (e *Engine) countdownTick(tok uint64) {
	e.mu.Lock()
	if tok != e.token || e.status != StatusRunning {
		e.mu.Unlock()
		return
	}
	e.remaining--
	snap := e.publishLocked()
	e.emit(Event{Type: EventTick, Score: e.score}, snap)
	if e.remaining > 0 {
		e.countdownTimer = e.clock.AfterFunc(time.Second, func() { e.countdownTick(tok) })
		e.mu.Unlock()
		return
	}
	res := e.finishLocked(true)
	e.mu.Unlock()

	e.afterFinish(res)
}

// finishLocked cancels every timer, clears the targets and builds the
// result. The engine passes through Ended and settles in Idle.
func (e *Engine) finishLocked(completed bool) Result {
	e.token++
	if e.spawnTimer != nil {
		e.spawnTimer.Stop()
		e.spawnTimer = nil
	}
	if e.countdownTimer != nil {
		e.countdownTimer.Stop()
		e.countdownTimer = nil
	}
	for id, t := range e.targetTimers {
		t.Stop()
		delete(e.targetTimers, id)
	}
	e.targets = nil

	played := time.Duration(e.difficulty.Seconds()-e.remaining) * time.Second
	if played < 0 {
		played = 0
	}
	res := Result{
		Entry: HighScoreEntry{
			Difficulty:    e.difficulty.Name,
			Score:         e.score,
			AvgReactionMs: AverageReaction(e.reactions),
		},
		ReactionTimes: slices.Clone(e.reactions),
		TimePlayed:    played,
		Completed:     completed,
		EndedAt:       e.clock.Now(),
	}
	e.lastResult = &res

	e.status = StatusEnded
	e.publishLocked()
	e.status = StatusIdle
	snap := e.publishLocked()
	e.emit(Event{Type: EventGameOver, Score: res.Entry.Score, Result: &res}, snap)
	return res
}

func (e *Engine) afterFinish(res Result) {
	e.logger.Info("session ended",
		"difficulty", res.Entry.Difficulty,
		"score", res.Entry.Score,
		"avg_ms", res.Entry.AvgReactionMs,
		"completed", res.Completed,
	)
	e.safeAudio("pause ambient", e.audio.PauseAmbient)
	e.safeAudio("play gameover", func() { e.audio.Play(SoundGameOver) })
	if e.recorder != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					e.logger.Error("recorder panicked", "panic", r)
				}
			}()
			e.recorder.Record(res)
		}()
	}
}

func (e *Engine) findLocked(id string) *Target {
	for _, t := range e.targets {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (e *Engine) removeLocked(id string) {
	e.stopTargetTimerLocked(id)
	e.targets = slices.DeleteFunc(e.targets, func(t *Target) bool { return t.ID == id })
}

func (e *Engine) stopTargetTimerLocked(id string) {
	if t, ok := e.targetTimers[id]; ok {
		t.Stop()
		delete(e.targetTimers, id)
	}
}

func (e *Engine) publishLocked() *Snapshot {
	targets := make([]Target, len(e.targets))
	for i, t := range e.targets {
		targets[i] = *t
	}
	snap := &Snapshot{
		Status:         e.status,
		Difficulty:     e.difficulty,
		Score:          e.score,
		TimeRemaining:  e.remaining,
		Targets:        targets,
		Hits:           len(e.reactions),
		LastReactionMs: e.lastRT,
		LastResult:     e.lastResult,
	}
	e.snapshot.Store(snap)
	return snap
}

// emit sends without blocking; a slow reader loses events but never stalls
// the engine.
func (e *Engine) emit(ev Event, snap *Snapshot) {
	ev.Snapshot = snap
	select {
	case e.events <- ev:
	default:
	}
}

func (e *Engine) safeAudio(op string, f func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("audio panicked", "op", op, "panic", r)
		}
	}()
	f()
}
