package client

import (
	"context"
	"io"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tomz197/reflex/internal/game"
	"github.com/tomz197/reflex/internal/highscore"
	"github.com/tomz197/reflex/internal/input"
	"github.com/tomz197/reflex/internal/loop/config"
	"github.com/tomz197/reflex/internal/loop/server"
	"github.com/tomz197/reflex/internal/object"
	"github.com/tomz197/reflex/internal/physics"
)

// UIOptions configures a UI. Zero values select defaults.
type UIOptions struct {
	Board    *highscore.Board
	Settings highscore.SettingsStore
	Audio    game.Audio
	Clock    game.Clock
	Logger   *log.Logger
	Username string

	// OnResult runs after a finished session has been placed on the board.
	OnResult func(res game.Result, rank int)

	// Lobby, when set, feeds the player count on the status line.
	Lobby func() *server.LobbySnapshot
}

// UI is the front-end independent part of a client: it owns the player's
// engine, maps input onto it, and draws screens onto a canvas. The ANSI
// client and the tcell adapter both drive a UI.
//
// Handle, Update and Draw must be called from one goroutine.
type UI struct {
	engine   *game.Engine
	board    *highscore.Board
	store    highscore.SettingsStore
	audio    game.Audio
	logger   *log.Logger
	username string
	onResult func(game.Result, int)
	lobby    func() *server.LobbySnapshot

	// Play area in pixels. Read by engine timers, hence atomic.
	areaW, areaH atomic.Int32

	state        GameState
	settings     highscore.Settings
	settingsOpen bool
	settingsRow  settingsRow
	diffCursor   int

	effects   object.Layer
	shakeLeft time.Duration
	shakeX    float64
	shakeY    float64
	elapsed   time.Duration

	labels []string // target ids in label order, rebuilt by Draw
	result *game.Result

	rankMu sync.Mutex
	ranks  map[time.Time]int // by Result.EndedAt

	notice       string
	noticeLeft   time.Duration
	shutdownLeft float64
}

// NewUI creates a UI on the menu screen.
func NewUI(opts UIOptions) *UI {
	u := &UI{
		board:    opts.Board,
		store:    opts.Settings,
		audio:    opts.Audio,
		logger:   opts.Logger,
		username: opts.Username,
		onResult: opts.OnResult,
		lobby:    opts.Lobby,
		ranks:    make(map[time.Time]int),
	}
	if u.logger == nil {
		u.logger = log.New(io.Discard)
	}
	if u.audio == nil {
		u.audio = game.NopAudio{}
	}
	u.audio = game.GuardAudio(u.audio, u.logger)
	if u.board == nil {
		u.board = highscore.NewBoard(nil, u.logger)
	}
	if u.store == nil {
		u.store = &highscore.MemoryStore{}
	}

	u.settings = u.loadSettings()
	u.diffCursor = difficultyIndex(u.settings.Difficulty)
	u.audio.SetMuted(!u.settings.SoundEnabled)

	u.engine = game.NewEngine(game.Options{
		Clock:             opts.Clock,
		Audio:             u.audio,
		Recorder:          game.RecorderFunc(u.record),
		Area:              u.area,
		Logger:            u.logger,
		ConfirmVisibility: true,
	})
	return u
}

// Engine returns the player's engine.
func (u *UI) Engine() *game.Engine { return u.engine }

// State returns the current screen.
func (u *UI) State() GameState { return u.state }

// Settings returns the current settings.
func (u *UI) Settings() highscore.Settings { return u.settings }

// Resize sets the canvas size in cells. The play area is what remains
// below the status line and above the hint line.
func (u *UI) Resize(cols, rows int) {
	playRows := rows - config.HUDRows - config.FooterRows
	if cols <= 0 || playRows <= 0 {
		u.areaW.Store(0)
		u.areaH.Store(0)
		return
	}
	w, h := physics.CellsToPixels(cols, playRows)
	u.areaW.Store(int32(w))
	u.areaH.Store(int32(h))
}

func (u *UI) area() (int, int, bool) {
	w, h := int(u.areaW.Load()), int(u.areaH.Load())
	return w, h, w > 0 && h > 0
}

// Handle applies one frame of input. Clicks are 0-based canvas cells.
// It returns true when the player asked to quit.
func (u *UI) Handle(in input.Input) (quit bool) {
	if in.Quit {
		return true
	}
	if u.state == GameStateShutdown {
		return false
	}
	if u.settingsOpen {
		u.handleSettings(in)
		return false
	}

	switch u.state {
	case GameStateMenu:
		switch {
		case in.Settings:
			u.openSettings()
		case in.Mute:
			u.toggleSound()
		case in.Confirm():
			u.state = GameStateDifficulty
		}
	case GameStateDifficulty:
		u.handleDifficulty(in)
	case GameStatePlaying:
		if in.Mute {
			u.toggleSound()
		}
		if in.Escape {
			if err := u.engine.Stop(); err != nil {
				u.logger.Debug("stop ignored", "err", err)
			}
			return false
		}
		for _, c := range in.Clicks {
			u.hitCell(c.Col, c.Row)
		}
		for _, d := range in.Digits {
			u.hitLabel(d)
		}
	case GameStateResults:
		switch {
		case in.Settings:
			u.openSettings()
		case in.Escape:
			u.state = GameStateMenu
		case in.Confirm():
			name := u.settings.Difficulty
			if u.result != nil {
				name = u.result.Entry.Difficulty
			}
			u.start(name)
		}
	}
	return false
}

func (u *UI) handleDifficulty(in input.Input) {
	presets := game.Difficulties()
	switch {
	case in.Escape:
		u.state = GameStateMenu
		return
	case in.Up || in.Left:
		u.diffCursor = (u.diffCursor + len(presets) - 1) % len(presets)
	case in.Down || in.Right:
		u.diffCursor = (u.diffCursor + 1) % len(presets)
	}
	for _, d := range in.Digits {
		if d >= 1 && d <= len(presets) {
			u.diffCursor = d - 1
			u.start(presets[u.diffCursor].Name)
			return
		}
	}
	if in.Confirm() {
		u.start(presets[u.diffCursor].Name)
	}
}

func (u *UI) start(name string) {
	if err := u.engine.Start(name); err != nil {
		u.logger.Warn("start failed", "difficulty", name, "err", err)
		return
	}
	u.state = GameStatePlaying
	u.result = nil
	u.effects.Reset()
	u.labels = u.labels[:0]
}

// hitCell tries both half-block sub-pixels of a clicked cell, matching
// how targets are sampled when drawn.
func (u *UI) hitCell(col, row int) {
	row -= config.HUDRows
	if col < 0 || row < 0 {
		return
	}
	x := float64(col*physics.CellWidthPx) + physics.CellWidthPx/2 - u.shakeX
	top := float64(row*physics.CellHeightPx) + physics.SubRowPx/2 - u.shakeY
	for _, y := range []float64{top, top + physics.SubRowPx} {
		if _, ok := u.engine.HitAt(x, y); ok {
			return
		}
	}
}

func (u *UI) hitLabel(digit int) {
	i := labelIndex(digit)
	if i < 0 || i >= len(u.labels) {
		return
	}
	u.engine.Hit(u.labels[i])
}

// Update drains engine events and advances effects by delta.
func (u *UI) Update(delta time.Duration) {
	u.elapsed += delta
	u.drainEvents()

	// The event channel drops when full; the snapshot is authoritative.
	if u.state == GameStatePlaying {
		if snap := u.engine.Snapshot(); snap.Status == game.StatusIdle && snap.LastResult != nil {
			u.result = snap.LastResult
			u.state = GameStateResults
		}
	}

	if err := u.effects.Update(delta); err != nil {
		u.logger.Debug("effect update", "err", err)
	}

	if u.shakeLeft > 0 {
		u.shakeLeft -= delta
		u.shakeX = (rand.Float64()*2 - 1) * config.ShakeAmplitude
		u.shakeY = (rand.Float64()*2 - 1) * config.ShakeAmplitude
	} else {
		u.shakeX, u.shakeY = 0, 0
	}

	if u.noticeLeft > 0 {
		u.noticeLeft -= delta
		if u.noticeLeft <= 0 {
			u.notice = ""
		}
	}
	if u.state == GameStateShutdown && u.shutdownLeft > 0 {
		u.shutdownLeft -= delta.Seconds()
	}
}

func (u *UI) drainEvents() {
	for {
		select {
		case ev := <-u.engine.Events():
			u.handleEvent(ev)
		default:
			return
		}
	}
}

func (u *UI) handleEvent(ev game.Event) {
	playTop := float64(config.HUDRows * physics.CellHeightPx)
	switch ev.Type {
	case game.EventStarted:
		if u.state != GameStateShutdown {
			u.state = GameStatePlaying
		}
	case game.EventHit:
		cx, cy := ev.Target.Center()
		cy += playTop
		if u.settings.ParticleEffects {
			colors := targetColors(ev.Target.Color)
			object.SpawnBurst(cx, cy, config.ParticlesPerHit, config.ParticleSpeed, config.ParticleLifetime, colors[:], &u.effects)
			u.effects.Spawn(object.NewFloatingText(cx, cy, "+"+highscore.FormatScore(ev.Points), colors[0], config.ScorePopupLifetime))
		}
		if u.settings.ScreenShake {
			u.shakeLeft = config.ShakeDuration
		}
	case game.EventAchievement:
		w, h, _ := u.area()
		banner := object.NewFloatingText(float64(w)/2, playTop+float64(h)/3,
			"* "+highscore.FormatScore(ev.Score)+" POINTS *", achievementColor, config.AchievementLifetime)
		banner.Rise = physics.CellHeightPx / 2
		u.effects.Spawn(banner)
	case game.EventGameOver:
		u.result = ev.Result
		u.shakeLeft = 0
		if u.state != GameStateShutdown {
			u.state = GameStateResults
		}
	}
}

// record is the engine's recorder. It runs on the engine's goroutine.
func (u *UI) record(res game.Result) {
	rank := u.board.RecordRank(res)
	u.rankMu.Lock()
	u.ranks[res.EndedAt] = rank
	u.rankMu.Unlock()
	if u.onResult != nil {
		u.onResult(res, rank)
	}
}

// rankOf returns the board rank of a recorded result. ok is false while
// the board has not been updated yet.
func (u *UI) rankOf(res *game.Result) (rank int, ok bool) {
	u.rankMu.Lock()
	defer u.rankMu.Unlock()
	rank, ok = u.ranks[res.EndedAt]
	return rank, ok
}

// Notify shows a message on the status line for d.
func (u *UI) Notify(msg string, d time.Duration) {
	u.notice = msg
	u.noticeLeft = d
}

// Shutdown switches to the shutdown screen, ending any running session.
func (u *UI) Shutdown(seconds float64) {
	if u.state == GameStateShutdown {
		return
	}
	u.settingsOpen = false
	u.state = GameStateShutdown
	u.shutdownLeft = seconds
	if u.engine.Snapshot().Status == game.StatusRunning {
		_ = u.engine.Stop()
	}
}

// ShutdownElapsed reports whether the shutdown countdown has run out.
func (u *UI) ShutdownElapsed() bool {
	return u.state == GameStateShutdown && u.shutdownLeft <= 0
}

// Close ends a running session. The partial result is still recorded.
func (u *UI) Close() {
	if u.engine.Snapshot().Status == game.StatusRunning {
		_ = u.engine.Stop()
	}
	u.audio.PauseAmbient()
}

func (u *UI) openSettings() {
	u.settingsOpen = true
	u.settingsRow = rowDifficulty
}

func (u *UI) handleSettings(in input.Input) {
	switch {
	case in.Escape || in.Settings:
		u.settingsOpen = false
		u.saveSettings()
		return
	case in.Up:
		u.settingsRow = (u.settingsRow + settingsRows - 1) % settingsRows
		return
	case in.Down:
		u.settingsRow = (u.settingsRow + 1) % settingsRows
		return
	}

	step := 0
	switch {
	case in.Left:
		step = -1
	case in.Right, in.Confirm():
		step = 1
	}
	if step == 0 {
		return
	}
	switch u.settingsRow {
	case rowDifficulty:
		presets := game.Difficulties()
		i := (difficultyIndex(u.settings.Difficulty) + step + len(presets)) % len(presets)
		u.settings.Difficulty = presets[i].Name
		u.diffCursor = i
	case rowSound:
		u.settings.SoundEnabled = !u.settings.SoundEnabled
		u.audio.SetMuted(!u.settings.SoundEnabled)
	case rowParticles:
		u.settings.ParticleEffects = !u.settings.ParticleEffects
	case rowShake:
		u.settings.ScreenShake = !u.settings.ScreenShake
	}
}

func (u *UI) toggleSound() {
	u.settings.SoundEnabled = !u.settings.SoundEnabled
	u.audio.SetMuted(!u.settings.SoundEnabled)
	if u.settings.SoundEnabled && u.state == GameStatePlaying {
		u.audio.StartAmbient()
	}
	u.saveSettings()
}

func (u *UI) loadSettings() highscore.Settings {
	ctx, cancel := context.WithTimeout(context.Background(), config.SettingsSaveTimeout)
	defer cancel()
	s, err := u.store.LoadSettings(ctx)
	if err != nil {
		u.logger.Warn("load settings", "err", err)
		return highscore.DefaultSettings()
	}
	return s.Validate()
}

func (u *UI) saveSettings() {
	u.settings = u.settings.Validate()
	ctx, cancel := context.WithTimeout(context.Background(), config.SettingsSaveTimeout)
	defer cancel()
	if err := u.store.SaveSettings(ctx, u.settings); err != nil {
		u.logger.Error("save settings", "err", err)
	}
}

func difficultyIndex(name string) int {
	for i, d := range game.Difficulties() {
		if d.Name == name {
			return i
		}
	}
	return 0
}
