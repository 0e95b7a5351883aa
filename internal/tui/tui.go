// Package tui runs a client UI on a tcell screen, for local play with
// native mouse support.
package tui

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gdamore/tcell/v2"
	"github.com/tomz197/reflex/internal/draw"
	"github.com/tomz197/reflex/internal/input"
	"github.com/tomz197/reflex/internal/loop/client"
	"github.com/tomz197/reflex/internal/loop/config"
)

// Runner drives a UI from tcell events.
type Runner struct {
	screen tcell.Screen
	ui     *client.UI
	canvas *draw.Canvas
	logger *log.Logger

	buttons tcell.ButtonMask // previous mouse state, for press edges
}

// New creates a runner. The screen must already be initialized.
func New(screen tcell.Screen, ui *client.UI, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	w, h := screen.Size()
	r := &Runner{
		screen: screen,
		ui:     ui,
		canvas: draw.NewCanvas(w, h),
		logger: logger,
	}
	ui.Resize(w, h)
	return r
}

// Run blocks until the player quits or ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.screen.EnableMouse()
	r.screen.HideCursor()
	r.screen.Clear()

	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := r.screen.PollEvent()
			if ev == nil {
				close(events)
				return
			}
			events <- ev
		}
	}()

	ticker := time.NewTicker(config.ClientTargetFrameTime)
	defer ticker.Stop()
	last := time.Now()

	var pending input.Input
	for {
		select {
		case <-ctx.Done():
			r.ui.Close()
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				r.ui.Close()
				return nil
			}
			r.apply(&pending, ev)
		case now := <-ticker.C:
			if r.ui.Handle(pending) {
				r.ui.Close()
				return nil
			}
			pending = input.Input{}
			r.ui.Update(now.Sub(last))
			last = now
			r.draw()
		}
	}
}

// apply folds one tcell event into the frame's input.
func (r *Runner) apply(in *input.Input, ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		applyKey(in, ev.Key(), ev.Rune())
	case *tcell.EventMouse:
		x, y := ev.Position()
		r.applyMouse(in, x, y, ev.Buttons())
	case *tcell.EventResize:
		w, h := ev.Size()
		r.canvas.Resize(w, h)
		r.ui.Resize(w, h)
		r.screen.Sync()
	}
}

// applyMouse records a click on the press edge of the primary button.
func (r *Runner) applyMouse(in *input.Input, x, y int, buttons tcell.ButtonMask) {
	pressed := buttons&tcell.Button1 != 0 && r.buttons&tcell.Button1 == 0
	r.buttons = buttons
	if pressed {
		in.Clicks = append(in.Clicks, input.Click{Col: x, Row: y})
		in.Pressed = append(in.Pressed, 0)
	}
}

// applyKey maps a key onto the same fields the byte parser fills.
func applyKey(in *input.Input, key tcell.Key, ch rune) {
	switch key {
	case tcell.KeyCtrlC:
		in.Quit = true
	case tcell.KeyEscape:
		in.Escape = true
	case tcell.KeyEnter:
		in.Enter = true
	case tcell.KeyUp:
		in.Up = true
	case tcell.KeyDown:
		in.Down = true
	case tcell.KeyLeft:
		in.Left = true
	case tcell.KeyRight:
		in.Right = true
	case tcell.KeyRune:
		parsed, _ := input.Parse([]byte(string(ch)))
		merge(in, parsed)
		return
	default:
		return
	}
	in.Pressed = append(in.Pressed, 0)
}

func merge(dst *input.Input, src input.Input) {
	dst.Quit = dst.Quit || src.Quit
	dst.Up = dst.Up || src.Up
	dst.Down = dst.Down || src.Down
	dst.Left = dst.Left || src.Left
	dst.Right = dst.Right || src.Right
	dst.Space = dst.Space || src.Space
	dst.Enter = dst.Enter || src.Enter
	dst.Escape = dst.Escape || src.Escape
	dst.Mute = dst.Mute || src.Mute
	dst.Settings = dst.Settings || src.Settings
	dst.Digits = append(dst.Digits, src.Digits...)
	dst.Clicks = append(dst.Clicks, src.Clicks...)
	dst.Pressed = append(dst.Pressed, src.Pressed...)
}

// draw copies the canvas onto the screen.
func (r *Runner) draw() {
	r.canvas.Clear()
	r.ui.Draw(r.canvas)
	for row := 0; row < r.canvas.Height(); row++ {
		for col := 0; col < r.canvas.Width(); col++ {
			ch, fg, bg := r.canvas.Cell(col, row)
			if ch == 0 {
				continue // right half of a wide rune
			}
			r.screen.SetContent(col, row, ch, nil, styleFor(fg, bg))
		}
	}
	r.screen.Show()
}

func styleFor(fg, bg draw.Color) tcell.Style {
	style := tcell.StyleDefault
	if fg.IsSet() {
		style = style.Foreground(tcellColor(fg))
	}
	if bg.IsSet() {
		style = style.Background(tcellColor(bg))
	}
	return style
}

func tcellColor(c draw.Color) tcell.Color {
	r, g, b := c.Components()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}
