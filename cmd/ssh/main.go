package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/activeterm"
	"github.com/charmbracelet/wish/logging"
	"github.com/tomz197/reflex/internal/config"
	"github.com/tomz197/reflex/internal/draw"
	"github.com/tomz197/reflex/internal/highscore"
	"github.com/tomz197/reflex/internal/highscore/sqlite"
	"github.com/tomz197/reflex/internal/loop/client"
	"github.com/tomz197/reflex/internal/loop/server"
)

func main() {
	var cfg config.SSH
	if err := config.ParseEnv(&cfg); err != nil {
		config.Exitf("config: %v", err)
	}
	logger := config.NewLogger(os.Stderr, cfg.LogLevel, "ssh")
	workingDir, workErr := os.Getwd()
	if workErr != nil {
		logger.Warn("failed to get working directory", "err", workErr)
	}
	logger.Info("ssh config", "host", cfg.Host, "port", cfg.Port, "hostKeyPath", cfg.HostKeyPath, "db", cfg.DBPath, "workingDir", workingDir)

	store, err := sqlite.Open(context.Background(), cfg.DBPath)
	if err != nil {
		logger.Fatal("open database", "path", cfg.DBPath, "err", err)
	}
	defer store.Close()

	board := highscore.NewBoard(store, logger)
	defer board.Wait()
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 5*time.Second)
	if err := board.Load(loadCtx); err != nil {
		logger.Warn("load high scores", "err", err)
	}
	cancelLoad()

	// One hub is shared by all SSH sessions.
	hub := server.NewHub(server.Options{Board: board, Logger: logger})
	hubCtx, cancelHub := context.WithCancel(context.Background())
	go hub.Run(hubCtx)
	logger.Info("game hub started", "scores", len(board.Entries()))

	opts := []ssh.Option{
		wish.WithAddress(net.JoinHostPort(cfg.Host, cfg.Port)),
		wish.WithMiddleware(
			gameMiddleware(hub, logger),
			activeterm.Middleware(),
			logging.MiddlewareWithLogger(logger),
		),
		// Set TCP_NODELAY to reduce latency for clicks
		ssh.WrapConn(func(ctx ssh.Context, conn net.Conn) net.Conn {
			if tcpConn, ok := conn.(*net.TCPConn); ok {
				_ = tcpConn.SetNoDelay(true)
			}
			return conn
		}),
	}
	if cfg.HostKeyPath != "" {
		opts = append(opts, wish.WithHostKeyPath(cfg.HostKeyPath))
	}

	s, err := wish.NewServer(opts...)
	if err != nil {
		logger.Fatal("failed to create server", "err", err)
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	logger.Info("starting ssh server", "addr", net.JoinHostPort(cfg.Host, cfg.Port))
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			logger.Fatal("server error", "err", err)
		}
	}()

	<-done
	logger.Info("shutting down server")

	// Notify players and wait for them to disconnect.
	hub.Shutdown(15 * time.Second)
	cancelHub()
	logger.Info("game hub stopped")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "err", err)
	}
}

// gameMiddleware runs a game client for each SSH session.
func gameMiddleware(gs server.GameServer, logger *log.Logger) wish.Middleware {
	return func(next ssh.Handler) ssh.Handler {
		return func(sess ssh.Session) {
			pty, winCh, ok := sess.Pty()
			if !ok {
				fmt.Fprintln(sess, "Error: PTY required. Please connect with: ssh -t user@host")
				return
			}

			sessLogger := logger.With("user", sess.User(), "remote", sess.RemoteAddr().String())
			sessLogger.Info("new game session", "terminal", pty.Term, "width", pty.Window.Width, "height", pty.Window.Height)

			sizeTracker := newSizeTracker(pty.Window.Width, pty.Window.Height)
			go func() {
				for win := range winCh {
					sizeTracker.update(win.Width, win.Height)
				}
			}()

			c := client.NewClient(gs, bufio.NewReader(sess), sess, client.ClientOptions{
				TermSizeFunc: sizeTracker.getSize,
				Username:     sess.User(),
				Logger:       sessLogger,
			})
			if err := c.Run(); err != nil {
				sessLogger.Warn("game error", "err", err)
			}

			sessLogger.Info("session ended")
			next(sess)
		}
	}
}

// sizeTracker tracks terminal size from SSH window change events.
type sizeTracker struct {
	mu     sync.RWMutex
	width  int
	height int
}

func newSizeTracker(width, height int) *sizeTracker {
	return &sizeTracker{width: width, height: height}
}

func (s *sizeTracker) update(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width = width
	s.height = height
}

func (s *sizeTracker) getSize() (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.width, s.height, nil
}

var _ draw.TermSizeFunc = (*sizeTracker)(nil).getSize
