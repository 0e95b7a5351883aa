// Package server keeps track of the players connected to a shared deployment.
// Each player gets an independent game engine; the hub only shares the
// high-score board and announces notable results to everyone online.
package server

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tomz197/reflex/internal/audio"
	"github.com/tomz197/reflex/internal/game"
	"github.com/tomz197/reflex/internal/highscore"
)

// snapshotInterval is how often Run refreshes the lobby snapshot.
const snapshotInterval = time.Second

// topScoresShown is the length of the snapshot's leaderboard.
const topScoresShown = 5

// GameServer is the interface clients use to communicate with the hub.
// Decouples the Client from the concrete Hub implementation, enabling
// testing and potential network-based server implementations.
type GameServer interface {
	RegisterClient(username string) *ClientHandle
	UnregisterClient(clientID int)
	ReportResult(clientID int, res game.Result, rank int)
	GetSnapshot() *LobbySnapshot
	Board() *highscore.Board
}

// Options configures a Hub. Board is required.
type Options struct {
	Board *highscore.Board
	// Settings, when set, is shared by every client. Otherwise each client
	// gets its own in-memory settings.
	Settings highscore.SettingsStore
	// NewAudio builds a client's audio. Defaults to a terminal bell.
	NewAudio func() game.Audio
	// Recorder also receives every finished session.
	Recorder game.Recorder
	Logger   *log.Logger
}

// Hub manages connected players.
type Hub struct {
	board    *highscore.Board
	settings highscore.SettingsStore
	newAudio func() game.Audio
	recorder game.Recorder
	logger   *log.Logger

	mu           sync.RWMutex
	clients      map[int]*ClientHandle
	nextClientID int
	shuttingDown bool

	snapshot atomic.Pointer[LobbySnapshot]
}

// Compile-time check that Hub implements GameServer.
var _ GameServer = (*Hub)(nil)

// ClientHandle represents a client's connection to the hub.
type ClientHandle struct {
	ID       int
	Username string
	Audio    game.Audio
	Bell     *audio.Bell // nil unless Audio is a terminal bell
	Settings highscore.SettingsStore
	EventsCh chan ClientEvent // Events sent to the client
}

// ClientEvent represents an event sent from the hub to a client.
type ClientEvent struct {
	Type     ClientEventType
	Username string               // EventTopScore
	Entry    game.HighScoreEntry // EventTopScore
}

// ClientEventType identifies the type of client event.
type ClientEventType int

const (
	EventTopScore ClientEventType = iota
	EventServerShutdown
)

// NewHub creates a hub around a shared board.
func NewHub(opts Options) *Hub {
	h := &Hub{
		board:        opts.Board,
		settings:     opts.Settings,
		newAudio:     opts.NewAudio,
		recorder:     opts.Recorder,
		logger:       opts.Logger,
		clients:      make(map[int]*ClientHandle),
		nextClientID: 1,
	}
	if h.board == nil {
		h.board = highscore.NewBoard(nil, nil)
	}
	if h.logger == nil {
		h.logger = log.New(io.Discard)
	}
	h.refreshSnapshot()
	return h
}

// Run refreshes the snapshot periodically. Blocks until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(snapshotInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.refreshSnapshot()
		}
	}
}

// Shutdown notifies all connected clients and waits for them to disconnect
// (up to the given timeout).
func (h *Hub) Shutdown(timeout time.Duration) {
	h.mu.Lock()
	h.shuttingDown = true
	for _, handle := range h.clients {
		select {
		case handle.EventsCh <- ClientEvent{Type: EventServerShutdown}:
		default:
		}
	}
	h.mu.Unlock()

	deadline := time.After(timeout)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-deadline:
			return
		case <-ticker.C:
			h.mu.RLock()
			remaining := len(h.clients)
			h.mu.RUnlock()
			if remaining == 0 {
				return
			}
		}
	}
}

// RegisterClient registers a new client with the given username and returns its handle.
func (h *Hub) RegisterClient(username string) *ClientHandle {
	handle := &ClientHandle{
		Username: username,
		EventsCh: make(chan ClientEvent, 16),
		Settings: h.settings,
	}
	if handle.Settings == nil {
		handle.Settings = &highscore.MemoryStore{}
	}
	if h.newAudio != nil {
		handle.Audio = h.newAudio()
	} else {
		handle.Bell = &audio.Bell{}
		handle.Audio = handle.Bell
	}
	if b, ok := handle.Audio.(*audio.Bell); ok {
		handle.Bell = b
	}

	h.mu.Lock()
	handle.ID = h.nextClientID
	h.nextClientID++
	h.clients[handle.ID] = handle
	if h.shuttingDown {
		handle.EventsCh <- ClientEvent{Type: EventServerShutdown}
	}
	online := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("player joined", "user", username, "id", handle.ID, "online", online)
	h.refreshSnapshot()
	return handle
}

// UnregisterClient removes a client. Its event channel is closed.
func (h *Hub) UnregisterClient(clientID int) {
	h.mu.Lock()
	handle, ok := h.clients[clientID]
	if ok {
		close(handle.EventsCh)
		delete(h.clients, clientID)
	}
	online := len(h.clients)
	h.mu.Unlock()
	if !ok {
		return
	}
	h.logger.Info("player left", "user", handle.Username, "id", clientID, "online", online)
	h.refreshSnapshot()
}

// ReportResult is called once a client's session has been recorded on the
// board. A new first place is announced to every other client.
func (h *Hub) ReportResult(clientID int, res game.Result, rank int) {
	h.mu.RLock()
	handle, ok := h.clients[clientID]
	username := ""
	if ok {
		username = handle.Username
	}
	if ok && rank == 1 {
		ev := ClientEvent{Type: EventTopScore, Username: username, Entry: res.Entry}
		for id, other := range h.clients {
			if id == clientID {
				continue
			}
			select {
			case other.EventsCh <- ev:
			default:
			}
		}
	}
	h.mu.RUnlock()

	h.logger.Info("session recorded",
		"user", username,
		"difficulty", res.Entry.Difficulty,
		"score", res.Entry.Score,
		"rank", rank,
	)
	if h.recorder != nil {
		h.recorder.Record(res)
	}
	h.refreshSnapshot()
}

// GetSnapshot returns the current lobby snapshot.
func (h *Hub) GetSnapshot() *LobbySnapshot {
	return h.snapshot.Load()
}

// Board returns the shared board.
func (h *Hub) Board() *highscore.Board {
	return h.board
}

func (h *Hub) refreshSnapshot() {
	h.mu.RLock()
	players := len(h.clients)
	h.mu.RUnlock()
	h.snapshot.Store(&LobbySnapshot{
		Players:   players,
		TopScores: h.board.Top("", topScoresShown),
		Taken:     time.Now(),
	})
}
