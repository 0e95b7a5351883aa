package api

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tomz197/reflex/internal/game"
)

const defaultSyncTimeout = 10 * time.Second

// SessionSync submits finished games to the backend in the background.
type SessionSync struct {
	client  *Client
	logger  *log.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

var _ game.Recorder = (*SessionSync)(nil)

// NewSessionSync creates a recorder around c.
func NewSessionSync(c *Client, logger *log.Logger) *SessionSync {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &SessionSync{client: c, logger: logger, timeout: defaultSyncTimeout}
}

// Record queues the result for upload. Results are skipped while logged out.
func (s *SessionSync) Record(r game.Result) {
	if !s.client.Authenticated() {
		s.logger.Debug("session not synced, not logged in")
		return
	}
	session := SessionFromResult(r)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		saved, err := s.client.SaveSession(ctx, session)
		if err != nil {
			s.logger.Warn("sync session", "err", err)
			return
		}
		s.logger.Info("session synced", "id", saved.ID, "score", saved.Score)
	}()
}

// Wait blocks until every queued upload has finished.
func (s *SessionSync) Wait() {
	s.wg.Wait()
}
