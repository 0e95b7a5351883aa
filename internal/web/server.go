// Package web serves the public leaderboard page and its JSON API.
package web

import (
	"context"
	_ "embed"
	"encoding/json"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tomz197/reflex/internal/game"
	"github.com/tomz197/reflex/internal/highscore"
)

const (
	defaultLimit   = highscore.MaxEntries
	requestTimeout = 10 * time.Second
	loadTimeout    = 3 * time.Second
)

//go:embed index.html
var indexHTML string

var indexTemplate = template.Must(template.New("index").Parse(indexHTML))

// Options configures a Server.
type Options struct {
	// Board is reloaded from its persister on every request, so scores
	// written by other processes sharing the database show up.
	Board      *highscore.Board
	SSHCommand string
	Logger     *log.Logger
	Now        func() time.Time
}

// Server handles HTTP requests.
type Server struct {
	board      *highscore.Board
	sshCommand string
	logger     *log.Logger
	now        func() time.Time
	started    time.Time
}

// New creates a server.
func New(opts Options) *Server {
	s := &Server{
		board:      opts.Board,
		sshCommand: opts.SSHCommand,
		logger:     opts.Logger,
		now:        opts.Now,
	}
	if s.board == nil {
		s.board = highscore.NewBoard(nil, nil)
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard)
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.started = s.now()
	return s
}

// Routes sets up the HTTP routes with middleware.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/highscores", s.handleHighScores)
		r.Get("/difficulties", s.handleDifficulties)
	})
	return r
}

// logRequests logs one line per request through the server's logger.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).Round(time.Microsecond),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) reload(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, loadTimeout)
	defer cancel()
	if err := s.board.Load(ctx); err != nil {
		s.logger.Warn("reload high scores", "err", err)
	}
}

// scoreRow is one leaderboard line.
type scoreRow struct {
	Rank          int    `json:"rank"`
	Difficulty    string `json:"difficulty"`
	Score         int    `json:"score"`
	DisplayScore  string `json:"displayScore"`
	AvgReactionMs int    `json:"avgReactionTime"`
}

func rows(entries []game.HighScoreEntry) []scoreRow {
	out := make([]scoreRow, 0, len(entries))
	for i, e := range entries {
		out = append(out, scoreRow{
			Rank:          i + 1,
			Difficulty:    e.Difficulty,
			Score:         e.Score,
			DisplayScore:  highscore.FormatScore(e.Score),
			AvgReactionMs: e.AvgReactionMs,
		})
	}
	return out
}

type indexData struct {
	SSHCommand   string
	Scores       []scoreRow
	Difficulties []game.Difficulty
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.reload(r.Context())
	data := indexData{
		SSHCommand:   s.sshCommand,
		Scores:       rows(s.board.Top("", defaultLimit)),
		Difficulties: game.Difficulties(),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		s.logger.Error("render index", "err", err)
	}
}

type highScoresResponse struct {
	Difficulty string     `json:"difficulty,omitempty"`
	Scores     []scoreRow `json:"scores"`
}

func (s *Server) handleHighScores(w http.ResponseWriter, r *http.Request) {
	difficulty := r.URL.Query().Get("difficulty")
	if difficulty != "" {
		d, err := game.LookupDifficulty(difficulty)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		difficulty = d.Name
	}
	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > highscore.MaxEntries {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(highscore.MaxEntries))
			return
		}
		limit = n
	}

	s.reload(r.Context())
	writeJSON(w, http.StatusOK, highScoresResponse{
		Difficulty: difficulty,
		Scores:     rows(s.board.Top(difficulty, limit)),
	})
}

type difficultyInfo struct {
	Name         string `json:"name"`
	Seconds      int    `json:"seconds"`
	MinSize      int    `json:"minSize"`
	MaxSize      int    `json:"maxSize"`
	PointsPerHit int    `json:"pointsPerHit"`
}

func (s *Server) handleDifficulties(w http.ResponseWriter, r *http.Request) {
	var out []difficultyInfo
	for _, d := range game.Difficulties() {
		out = append(out, difficultyInfo{
			Name:         d.Name,
			Seconds:      d.Seconds(),
			MinSize:      d.MinSize,
			MaxSize:      d.MaxSize,
			PointsPerHit: d.PointsPerHit,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Uptime    string `json:"uptime"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Timestamp: now.UTC().Format(time.RFC3339),
		Uptime:    now.Sub(s.started).Round(time.Second).String(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
