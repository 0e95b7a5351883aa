package client

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/tomz197/reflex/internal/draw"
	"github.com/tomz197/reflex/internal/game"
	"github.com/tomz197/reflex/internal/highscore"
	"github.com/tomz197/reflex/internal/loop/config"
	"github.com/tomz197/reflex/internal/object"
	"github.com/tomz197/reflex/internal/physics"
)

var (
	achievementColor = draw.Yellow
	hitFlashColor    = draw.White
	panelColor       = draw.RGB(18, 18, 28)
	accentColor      = draw.Cyan
)

// paletteColors caches the parsed target palette.
var paletteColors = func() map[game.ColorPair][2]draw.Color {
	m := make(map[game.ColorPair][2]draw.Color, len(game.Palette))
	for _, p := range game.Palette {
		m[p] = [2]draw.Color{draw.MustHex(p.Start), draw.MustHex(p.End)}
	}
	return m
}()

// targetColors returns the center and rim colors of a pair.
func targetColors(p game.ColorPair) [2]draw.Color {
	if c, ok := paletteColors[p]; ok {
		return c
	}
	return [2]draw.Color{draw.MustHex(p.Start), draw.MustHex(p.End)}
}

var titleArt = []string{
	` ___ ___ ___ _    _____  __`,
	`| _ \ __| __| |  | __\ \/ /`,
	`|   / _|| _|| |__| _| >  < `,
	`|_|_\___|_| |____|___/_/\_\`,
}

// Draw renders the current screen onto c. Targets drawn this frame have
// their visibility confirmed with the engine, which starts their
// reaction clock.
func (u *UI) Draw(c *draw.Canvas) {
	snap := u.engine.Snapshot()
	u.drawStatusLine(c, snap)

	if _, _, ok := u.area(); !ok {
		c.TextCentered(c.Height()/2, "Terminal too small", draw.Red)
		return
	}

	switch u.state {
	case GameStateMenu:
		u.drawMenu(c)
	case GameStateDifficulty:
		u.drawDifficulty(c)
	case GameStatePlaying:
		u.drawPlaying(c, snap)
	case GameStateResults:
		u.drawResults(c)
	case GameStateShutdown:
		u.drawShutdown(c)
	}
	if u.settingsOpen {
		u.drawSettings(c)
	}
	u.drawFooter(c)
}

func (u *UI) drawStatusLine(c *draw.Canvas, snap *game.Snapshot) {
	c.FillRect(0, 0, c.Width(), config.HUDRows, panelColor)
	left := " REFLEX"
	if u.state == GameStatePlaying {
		left = fmt.Sprintf(" %-6s  Score %-7s  Time %2ds  Hits %-3d",
			snap.Difficulty.Name, highscore.FormatScore(snap.Score), snap.TimeRemaining, snap.Hits)
		if snap.LastReactionMs > 0 {
			left += fmt.Sprintf("  Last %dms", snap.LastReactionMs)
		}
	}
	c.TextStyled(0, 0, left, draw.White, panelColor)

	var right []string
	if u.notice != "" {
		right = append(right, u.notice)
	}
	if u.lobby != nil {
		if ls := u.lobby(); ls != nil {
			right = append(right, "Players "+strconv.Itoa(ls.Players))
		}
	}
	if u.settings.SoundEnabled {
		right = append(right, "Sound on")
	} else {
		right = append(right, "Sound off")
	}
	r := strings.Join(right, "  ") + " "
	c.TextStyled(c.Width()-runewidth.StringWidth(r), 0, r, draw.Gray, panelColor)
}

func (u *UI) drawFooter(c *draw.Canvas) {
	var hint string
	switch {
	case u.settingsOpen:
		hint = "Up/Down select  Left/Right change  Esc close"
	case u.state == GameStateMenu:
		hint = "Enter play  S settings  M sound  Q quit"
	case u.state == GameStateDifficulty:
		hint = "1-3 or arrows + Enter  Esc back"
	case u.state == GameStatePlaying:
		hint = "Click targets or press their number  M sound  Esc end game"
	case u.state == GameStateResults:
		hint = "Enter play again  Esc menu  S settings  Q quit"
	case u.state == GameStateShutdown:
		hint = "Q disconnect now"
	}
	c.TextCentered(c.Height()-1, hint, draw.Dim)
}

func (u *UI) blinkOn() bool {
	return object.ShouldRenderBlink(u.elapsed.Seconds()+1, config.PromptBlinkFrequency)
}

func (u *UI) drawMenu(c *draw.Canvas) {
	width := c.Width()
	top := max(config.HUDRows+1, c.Height()/2-9)
	titleWidth := runewidth.StringWidth(titleArt[0])
	for i, line := range titleArt {
		c.Text((width-titleWidth)/2, top+i, line, accentColor)
	}
	row := top + len(titleArt) + 1
	c.TextCentered(row, "~ How fast are your reflexes? ~", draw.Gray)
	if u.username != "" {
		row++
		c.TextCentered(row, "Welcome, "+u.username, draw.Gray)
	}

	row += 2
	c.TextCentered(row, "High Scores", draw.White)
	row++
	row = u.drawScores(c, row, nil)

	row++
	if u.blinkOn() {
		c.TextCentered(row, ">>  Press ENTER to Start  <<", achievementColor)
	}
}

// drawScores lists the top of the board starting at row and returns the
// next free row. mark, when set, is highlighted.
func (u *UI) drawScores(c *draw.Canvas, row int, mark *game.HighScoreEntry) int {
	entries := u.board.Top("", config.HighScoresShown)
	if len(entries) == 0 {
		c.TextCentered(row, "No scores yet", draw.Dim)
		return row + 1
	}
	highlighted := false
	for i, e := range entries {
		line := fmt.Sprintf("%2d. %s", i+1, highscore.FormatEntry(e))
		color := draw.Gray
		if mark != nil && !highlighted && e == *mark {
			color = achievementColor
			highlighted = true
		}
		c.TextCentered(row, line, color)
		row++
	}
	return row
}

func (u *UI) drawDifficulty(c *draw.Canvas) {
	presets := game.Difficulties()
	top := max(config.HUDRows+1, c.Height()/2-len(presets)-2)
	c.TextCentered(top, "Select Difficulty", draw.White)
	for i, d := range presets {
		line := fmt.Sprintf("%d  %-6s  %2ds  targets %d-%dpx  %d pts",
			i+1, d.Name, d.Seconds(), d.MinSize, d.MaxSize, d.PointsPerHit)
		color := draw.Gray
		if i == u.diffCursor {
			line = "> " + line + " <"
			color = accentColor
		} else {
			line = "  " + line + "  "
		}
		c.TextCentered(top+2+i*2, line, color)
	}
}

func (u *UI) drawPlaying(c *draw.Canvas, snap *game.Snapshot) {
	playTop := float64(config.HUDRows * physics.CellHeightPx)
	u.labels = u.labels[:0]

	for _, t := range snap.Targets {
		cx, cy := t.Center()
		cx += u.shakeX
		cy += playTop + u.shakeY
		r := float64(t.Size) / 2
		if t.Hit {
			c.FillCircle(cx, cy, r*0.6, hitFlashColor, hitFlashColor.Scale(0.5))
			c.StrokeCircle(cx, cy, r, hitFlashColor.Scale(0.7))
			continue
		}
		colors := targetColors(t.Color)
		c.FillCircle(cx, cy, r, colors[0], colors[1])
		if !t.Visible() {
			u.engine.MarkVisible(t.ID)
		}
		if len(u.labels) < maxLabels {
			label := strconv.Itoa(labelDigit(len(u.labels)))
			u.labels = append(u.labels, t.ID)
			col, row := physics.PixelToCell(cx, cy)
			c.TextStyled(col, row, label, draw.RGB(0, 0, 0), colors[0])
		}
	}

	if err := u.effects.Draw(object.DrawContext{
		Canvas:   c,
		OffsetX:  u.shakeX,
		OffsetY:  u.shakeY,
		Elapsed:  u.elapsed,
		Disabled: !u.settings.ParticleEffects,
	}); err != nil {
		u.logger.Debug("effect draw", "err", err)
	}
}

func (u *UI) drawResults(c *draw.Canvas) {
	res := u.result
	if res == nil {
		return
	}
	top := max(config.HUDRows+1, c.Height()/2-10)
	title := "TIME'S UP"
	if !res.Completed {
		title = "GAME ENDED"
	}
	c.TextCentered(top, title, accentColor)

	lines := []string{
		fmt.Sprintf("Difficulty       %s", res.Entry.Difficulty),
		fmt.Sprintf("Score            %s", highscore.FormatScore(res.Entry.Score)),
		fmt.Sprintf("Targets hit      %d", len(res.ReactionTimes)),
		fmt.Sprintf("Avg reaction     %dms", res.Entry.AvgReactionMs),
		fmt.Sprintf("Time played      %s", res.TimePlayed.Round(time.Second)),
	}
	for i, line := range lines {
		c.TextCentered(top+2+i, fmt.Sprintf("%-26s", line), draw.White)
	}

	row := top + 3 + len(lines)
	rank, ok := u.rankOf(res)
	switch {
	case !ok:
		c.TextCentered(row, "Saving...", draw.Dim)
	case rank == 1:
		c.TextCentered(row, "NEW HIGH SCORE!", achievementColor)
	case rank > 0:
		c.TextCentered(row, fmt.Sprintf("You placed #%d", rank), achievementColor)
	default:
		c.TextCentered(row, "Not in the top "+strconv.Itoa(highscore.MaxEntries), draw.Gray)
	}

	row += 2
	var mark *game.HighScoreEntry
	if ok && rank > 0 {
		mark = &res.Entry
	}
	u.drawScores(c, row, mark)
}

func (u *UI) drawShutdown(c *draw.Canvas) {
	centerY := c.Height() / 2
	c.TextCentered(centerY-3, "SERVER SHUTTING DOWN", draw.Red)
	c.TextCentered(centerY-1, "The server is restarting for maintenance.", draw.White)
	c.TextCentered(centerY, "Please reconnect in a moment.", draw.White)
	remaining := max(int(u.shutdownLeft)+1, 1)
	c.TextCentered(centerY+2, fmt.Sprintf("Disconnecting in %d seconds...", remaining), draw.Gray)
}

func (u *UI) drawSettings(c *draw.Canvas) {
	const w, h = 40, 10
	col := (c.Width() - w) / 2
	row := max(config.HUDRows, (c.Height()-h)/2)
	c.FillRect(col, row, w, h, panelColor)
	c.Box(col, row, w, h, accentColor)
	c.TextStyled(col+(w-8)/2, row+1, "Settings", draw.White, panelColor)

	onOff := func(b bool) string {
		if b {
			return "on"
		}
		return "off"
	}
	values := [settingsRows]string{
		rowDifficulty: u.settings.Difficulty,
		rowSound:      onOff(u.settings.SoundEnabled),
		rowParticles:  onOff(u.settings.ParticleEffects),
		rowShake:      onOff(u.settings.ScreenShake),
	}
	names := [settingsRows]string{
		rowDifficulty: "Default difficulty",
		rowSound:      "Sound",
		rowParticles:  "Particle effects",
		rowShake:      "Screen shake",
	}
	for i := settingsRow(0); i < settingsRows; i++ {
		line := fmt.Sprintf("%-20s < %-6s >", names[i], values[i])
		color := draw.Gray
		if i == u.settingsRow {
			color = accentColor
		}
		c.TextStyled(col+3, row+3+int(i), line, color, panelColor)
	}
}
