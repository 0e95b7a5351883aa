package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/gdamore/tcell/v2"
	"github.com/tomz197/reflex/internal/api"
	"github.com/tomz197/reflex/internal/audio"
	"github.com/tomz197/reflex/internal/config"
	"github.com/tomz197/reflex/internal/game"
	"github.com/tomz197/reflex/internal/highscore"
	"github.com/tomz197/reflex/internal/highscore/sqlite"
	"github.com/tomz197/reflex/internal/loop/client"
	"github.com/tomz197/reflex/internal/loop/server"
	"github.com/tomz197/reflex/internal/tui"
	"golang.org/x/term"
)

func main() {
	var cfg config.Game
	if err := config.ParseEnv(&cfg); err != nil {
		config.Exitf("config: %v", err)
	}

	flag.StringVar(&cfg.Renderer, "renderer", cfg.Renderer, "terminal renderer: tcell or ansi")
	flag.StringVar(&cfg.Difficulty, "difficulty", cfg.Difficulty, "default difficulty: easy, medium or hard")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "path to the high score database")
	flag.BoolVar(&cfg.Sound, "sound", cfg.Sound, "enable sound")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")
	logFile := flag.String("log-file", "", "write logs to this file instead of discarding them")
	flag.Parse()

	cfg.Renderer = config.Normalize(cfg.Renderer)
	if err := cfg.Validate(); err != nil {
		config.Exitf("config: %v", err)
	}

	// The terminal belongs to the game, so logs only go to a file.
	logger := log.New(io.Discard)
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			config.Exitf("open log file: %v", err)
		}
		defer f.Close()
		logger = config.NewLogger(f, cfg.LogLevel, "game")
	}

	if err := run(cfg, logger); err != nil {
		config.Exitf("game error: %v", err)
	}
}

func run(cfg config.Game, logger *log.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	store, err := sqlite.Open(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	board := highscore.NewBoard(store, logger)
	defer board.Wait()
	if err := board.Load(ctx); err != nil {
		logger.Warn("load high scores", "err", err)
	}
	if cfg.Difficulty != "" {
		applyDifficulty(ctx, store, cfg.Difficulty, logger)
	}

	sound := audio.Nop()
	if cfg.Sound {
		if sound, err = audio.New(); err != nil {
			logger.Warn("audio unavailable", "err", err)
		}
	}
	if synth, ok := sound.(*audio.Synth); ok {
		defer synth.Close()
	}

	uploader := newSync(cfg, logger)
	if uploader != nil {
		defer uploader.Wait()
	}

	if cfg.Renderer == "ansi" {
		return runANSI(ctx, board, store, sound, uploader, logger)
	}
	return runTcell(ctx, board, store, sound, uploader, logger)
}

// applyDifficulty makes name the stored default difficulty.
func applyDifficulty(ctx context.Context, store highscore.SettingsStore, name string, logger *log.Logger) {
	d, err := game.LookupDifficulty(name)
	if err != nil {
		return
	}
	settings, err := store.LoadSettings(ctx)
	if err != nil {
		logger.Warn("load settings", "err", err)
		settings = highscore.DefaultSettings()
	}
	settings.Difficulty = d.Name
	if err := store.SaveSettings(ctx, settings); err != nil {
		logger.Warn("save settings", "err", err)
	}
}

// newSync returns a recorder uploading sessions to the backend, or nil when
// no account is logged in.
func newSync(cfg config.Game, logger *log.Logger) *api.SessionSync {
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = cfg.Account.APIURL
	}
	c := api.NewClient(api.Config{
		BaseURL: apiURL,
		Tokens:  api.NewKeyringStore(cfg.Account.KeyringService, cfg.Account.TokenFallback),
		Logger:  logger,
	})
	if !c.Authenticated() {
		return nil
	}
	logger.Info("session sync enabled", "api", c.BaseURL())
	return api.NewSessionSync(c, logger)
}

func runTcell(ctx context.Context, board *highscore.Board, store highscore.SettingsStore, sound game.Audio, uploader *api.SessionSync, logger *log.Logger) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	defer screen.Fini()

	ui := client.NewUI(client.UIOptions{
		Board:    board,
		Settings: store,
		Audio:    sound,
		Logger:   logger,
		Username: os.Getenv("USER"),
		OnResult: func(res game.Result, rank int) {
			logger.Info("session recorded", "difficulty", res.Entry.Difficulty, "score", res.Entry.Score, "rank", rank)
			if uploader != nil {
				uploader.Record(res)
			}
		},
	})
	err = tui.New(screen, ui, logger).Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// runANSI plays on the raw terminal through a single-player hub.
func runANSI(ctx context.Context, board *highscore.Board, store highscore.SettingsStore, sound game.Audio, uploader *api.SessionSync, logger *log.Logger) error {
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("failed to enable raw mode: %w", err)
	}
	defer func() {
		_ = term.Restore(fd, oldState)
	}()

	opts := server.Options{
		Board:    board,
		Settings: store,
		Logger:   logger,
	}
	// A Synth plays locally; without one the terminal bell is used.
	if _, ok := sound.(*audio.Synth); ok {
		opts.NewAudio = func() game.Audio { return sound }
	}
	if uploader != nil {
		opts.Recorder = uploader
	}
	hub := server.NewHub(opts)
	hubCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go hub.Run(hubCtx)

	go func() {
		<-ctx.Done()
		hub.Shutdown(0)
	}()

	c := client.NewClient(hub, bufio.NewReader(os.Stdin), os.Stdout, client.ClientOptions{
		Username: os.Getenv("USER"),
		Logger:   logger,
	})
	return c.Run()
}
