// Package client runs one player's screens: menu, difficulty selection,
// play and results. UI holds the front-end independent logic; Client
// drives it over a raw ANSI byte stream (SSH sessions, local raw terminal).
package client

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tomz197/reflex/internal/draw"
	"github.com/tomz197/reflex/internal/game"
	"github.com/tomz197/reflex/internal/highscore"
	"github.com/tomz197/reflex/internal/input"
	"github.com/tomz197/reflex/internal/loop/config"
	"github.com/tomz197/reflex/internal/loop/server"
)

// Client handles rendering and input for a single connection.
type Client struct {
	server       server.GameServer
	handle       *server.ClientHandle
	ui           *UI
	canvas       *draw.Canvas
	chunkWriter  *draw.ChunkWriter // Accumulates output for chunked writes
	writer       io.Writer
	inputStream  *input.Stream
	lastInput    time.Time
	termSizeFunc draw.TermSizeFunc
	logger       *log.Logger

	running       bool
	isInactive    bool
	wasInactive   bool
	prevGameState GameState
	delta         time.Duration
}

// ClientOptions configures the client.
type ClientOptions struct {
	TermSizeFunc draw.TermSizeFunc
	Username     string
	Clock        game.Clock
	Logger       *log.Logger
}

// NewClient registers with the server and creates a client.
func NewClient(gs server.GameServer, r *bufio.Reader, w io.Writer, opts ClientOptions) *Client {
	termSizeFunc := opts.TermSizeFunc
	if termSizeFunc == nil {
		termSizeFunc = draw.DefaultTermSizeFunc
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	handle := gs.RegisterClient(opts.Username)
	ui := NewUI(UIOptions{
		Board:    gs.Board(),
		Settings: handle.Settings,
		Audio:    handle.Audio,
		Clock:    opts.Clock,
		Logger:   logger,
		Username: opts.Username,
		OnResult: func(res game.Result, rank int) {
			gs.ReportResult(handle.ID, res, rank)
		},
		Lobby: gs.GetSnapshot,
	})

	termWidth, termHeight, _ := termSizeFunc()
	renderWidth, renderHeight, offsetCol, offsetRow := clampTermSize(termWidth, termHeight)
	canvas := draw.NewCanvas(renderWidth, renderHeight)
	canvas.SetOffset(offsetCol, offsetRow)
	ui.Resize(renderWidth, renderHeight)

	return &Client{
		server:        gs,
		handle:        handle,
		ui:            ui,
		canvas:        canvas,
		chunkWriter:   draw.NewChunkWriter(w, offsetCol, offsetRow),
		writer:        w,
		inputStream:   input.StartStream(r),
		lastInput:     time.Now(),
		termSizeFunc:  termSizeFunc,
		logger:        logger,
		running:       true,
		prevGameState: ui.State(),
	}
}

// UI returns the client's screens.
func (c *Client) UI() *UI { return c.ui }

// Run starts the client loop. Blocks until the client disconnects or server stops.
func (c *Client) Run() error {
	draw.EnterAltScreen(c.writer)
	draw.HideCursor(c.writer)
	draw.EnableMouse(c.writer)
	draw.ClearScreen(c.writer)
	defer func() {
		draw.DisableMouse(c.writer)
		draw.ResetStyle(c.writer)
		draw.ShowCursor(c.writer)
		draw.ExitAltScreen(c.writer)
	}()

	lastTime := time.Now()
	var runErr error

	for c.running {
		frameStart := time.Now()
		c.delta = frameStart.Sub(lastTime)
		lastTime = frameStart

		c.processInput()
		c.processServerEvents()
		c.updateScreen()
		c.ui.Update(c.delta)
		if c.ui.ShutdownElapsed() {
			c.running = false
		}

		if err := c.drawFrame(); err != nil {
			runErr = err
			break
		}

		elapsed := time.Since(frameStart)
		if elapsed < config.ClientTargetFrameTime {
			time.Sleep(config.ClientTargetFrameTime - elapsed)
		}
	}

	c.ui.Close()
	c.server.UnregisterClient(c.handle.ID)
	draw.ClearScreen(c.writer)
	return runErr
}

// processInput reads input and hands it to the UI.
func (c *Client) processInput() {
	in := input.ReadInput(c.inputStream)
	if in.Closed {
		c.running = false
	}

	if in.Any() {
		c.lastInput = time.Now()
		if c.isInactive {
			// The key that dismisses the warning is not forwarded.
			c.isInactive = false
			return
		}
	} else if time.Since(c.lastInput).Seconds() > config.InactivityDisconnectUser {
		c.logger.Info("disconnecting inactive player", "user", c.handle.Username)
		c.running = false
	} else if time.Since(c.lastInput).Seconds() > config.InactivityWarnUser {
		c.isInactive = true
	}

	// Mouse positions are absolute; the UI wants canvas cells.
	clicks := in.Clicks[:0]
	for _, click := range in.Clicks {
		if col, row, ok := c.canvas.CellAt(click.Col, click.Row); ok {
			clicks = append(clicks, input.Click{Col: col, Row: row})
		}
	}
	in.Clicks = clicks

	if c.ui.Handle(in) {
		c.running = false
	}
}

// processServerEvents handles events from the server.
func (c *Client) processServerEvents() {
	for {
		select {
		case event, ok := <-c.handle.EventsCh:
			if !ok {
				// Server closed the channel
				c.running = false
				return
			}
			switch event.Type {
			case server.EventTopScore:
				c.ui.Notify(fmt.Sprintf("%s set a new top score: %s on %s",
					event.Username, highscore.FormatScore(event.Entry.Score), event.Entry.Difficulty), 8*time.Second)
			case server.EventServerShutdown:
				c.ui.Shutdown(config.ShutdownDisplaySeconds)
			}
		default:
			return
		}
	}
}

// updateScreen handles terminal resize, clamping to max render resolution.
// On actual size changes, clears the terminal to remove residual cells
// outside the new canvas area (e.g. old borders or offset content).
func (c *Client) updateScreen() {
	termWidth, termHeight, err := c.termSizeFunc()
	if err != nil {
		return
	}
	renderWidth, renderHeight, offsetCol, offsetRow := clampTermSize(termWidth, termHeight)

	if renderWidth != c.canvas.Width() || renderHeight != c.canvas.Height() ||
		offsetCol != c.canvas.OffsetCol() || offsetRow != c.canvas.OffsetRow() {
		c.chunkWriter.WriteString("\033[0m\033[H\033[2J")
		c.canvas.Invalidate()
	}

	c.canvas.Resize(renderWidth, renderHeight)
	c.canvas.SetOffset(offsetCol, offsetRow)
	c.chunkWriter.SetOffset(offsetCol, offsetRow)
	c.ui.Resize(renderWidth, renderHeight)
}

// clampTermSize clamps terminal dimensions to the max render resolution and computes
// the centering offset for the render area.
func clampTermSize(termWidth, termHeight int) (renderWidth, renderHeight, offsetCol, offsetRow int) {
	renderWidth = min(termWidth, config.MaxTermWidth)
	renderHeight = min(termHeight, config.MaxTermHeight)
	offsetCol = (termWidth - renderWidth) / 2
	offsetRow = (termHeight - renderHeight) / 2
	return
}

// drawFrame draws the current frame.
func (c *Client) drawFrame() error {
	// On screen or inactivity transitions, repaint everything so nothing
	// from the previous screen persists.
	state := c.ui.State()
	if state != c.prevGameState || c.isInactive != c.wasInactive {
		c.canvas.Invalidate()
		c.prevGameState = state
		c.wasInactive = c.isInactive
	}

	c.canvas.Clear()
	if c.isInactive {
		c.drawInactivityScreen()
	} else {
		c.ui.Draw(c.canvas)
	}

	if err := c.canvas.Render(c.chunkWriter); err != nil {
		return err
	}
	c.canvas.RenderBorder(c.chunkWriter)
	if c.handle.Bell != nil {
		if _, err := c.handle.Bell.WriteTo(c.chunkWriter); err != nil {
			return err
		}
	}
	return c.chunkWriter.Flush()
}

// drawInactivityScreen draws the inactivity warning screen.
func (c *Client) drawInactivityScreen() {
	centerY := c.canvas.Height() / 2
	c.canvas.TextCentered(centerY-2, "INACTIVITY WARNING", draw.Yellow)
	msg := fmt.Sprintf(
		"You have been inactive for too long. You will be disconnected in %d seconds.",
		int(config.InactivityDisconnectUser-time.Since(c.lastInput).Seconds()),
	)
	c.canvas.TextCentered(centerY, msg, draw.White)
	c.canvas.TextCentered(centerY+2, "Press any key to continue", draw.Gray)
}
