package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tomz197/reflex/internal/game"
	"github.com/tomz197/reflex/internal/highscore"
)

func newTestServer(t *testing.T, entries ...game.HighScoreEntry) (*httptest.Server, *highscore.MemoryStore) {
	t.Helper()
	store := &highscore.MemoryStore{}
	if err := store.SaveHighScores(context.Background(), entries); err != nil {
		t.Fatalf("seed: %v", err)
	}
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	calls := 0
	s := New(Options{
		Board:      highscore.NewBoard(store, nil),
		SSHCommand: "ssh -p 2222 play.example.com",
		Now: func() time.Time {
			calls++
			return start.Add(time.Duration(calls-1) * time.Minute)
		},
	})
	ts := httptest.NewServer(s.Routes())
	t.Cleanup(ts.Close)
	return ts, store
}

func getJSON(t *testing.T, url string, wantStatus int, out any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("GET %s: status %d, want %d", url, resp.StatusCode, wantStatus)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
}

func TestHighScoresAll(t *testing.T) {
	ts, _ := newTestServer(t,
		game.HighScoreEntry{Difficulty: "easy", Score: 120, AvgReactionMs: 400},
		game.HighScoreEntry{Difficulty: "hard", Score: 2400, AvgReactionMs: 250},
	)
	var got highScoresResponse
	getJSON(t, ts.URL+"/api/highscores", http.StatusOK, &got)
	if len(got.Scores) != 2 {
		t.Fatalf("scores = %+v", got.Scores)
	}
	first := got.Scores[0]
	if first.Rank != 1 || first.Difficulty != "hard" || first.Score != 2400 || first.DisplayScore != "2,400" {
		t.Errorf("first = %+v", first)
	}
	if got.Scores[1].Rank != 2 {
		t.Errorf("second rank = %d", got.Scores[1].Rank)
	}
}

func TestHighScoresByDifficulty(t *testing.T) {
	ts, _ := newTestServer(t,
		game.HighScoreEntry{Difficulty: "easy", Score: 120},
		game.HighScoreEntry{Difficulty: "hard", Score: 2400},
		game.HighScoreEntry{Difficulty: "easy", Score: 80},
	)
	var got highScoresResponse
	getJSON(t, ts.URL+"/api/highscores?difficulty=EASY", http.StatusOK, &got)
	if got.Difficulty != "easy" || len(got.Scores) != 2 {
		t.Fatalf("got %+v", got)
	}
	for _, s := range got.Scores {
		if s.Difficulty != "easy" {
			t.Errorf("unexpected difficulty %q", s.Difficulty)
		}
	}

	getJSON(t, ts.URL+"/api/highscores?limit=1", http.StatusOK, &got)
	if len(got.Scores) != 1 || got.Scores[0].Score != 2400 {
		t.Errorf("limit=1 got %+v", got.Scores)
	}
}

func TestHighScoresRejectsBadQuery(t *testing.T) {
	ts, _ := newTestServer(t)
	var body map[string]string
	getJSON(t, ts.URL+"/api/highscores?difficulty=insane", http.StatusBadRequest, &body)
	if body["error"] == "" {
		t.Error("missing error message")
	}
	getJSON(t, ts.URL+"/api/highscores?limit=0", http.StatusBadRequest, nil)
	getJSON(t, ts.URL+"/api/highscores?limit=abc", http.StatusBadRequest, nil)
}

func TestHighScoresReloadsStore(t *testing.T) {
	ts, store := newTestServer(t)
	var got highScoresResponse
	getJSON(t, ts.URL+"/api/highscores", http.StatusOK, &got)
	if len(got.Scores) != 0 {
		t.Fatalf("scores = %+v", got.Scores)
	}

	// Another process writes to the shared database.
	if err := store.SaveHighScores(context.Background(), []game.HighScoreEntry{{Difficulty: "medium", Score: 300}}); err != nil {
		t.Fatal(err)
	}
	getJSON(t, ts.URL+"/api/highscores", http.StatusOK, &got)
	if len(got.Scores) != 1 || got.Scores[0].Difficulty != "medium" {
		t.Errorf("after write: %+v", got.Scores)
	}
}

func TestDifficulties(t *testing.T) {
	ts, _ := newTestServer(t)
	var got []difficultyInfo
	getJSON(t, ts.URL+"/api/difficulties", http.StatusOK, &got)
	if len(got) != 3 || got[0].Name != "easy" || got[2].Name != "hard" {
		t.Fatalf("got %+v", got)
	}
	if got[0].Seconds != 60 || got[0].PointsPerHit != 10 {
		t.Errorf("easy = %+v", got[0])
	}
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t)
	var got healthResponse
	getJSON(t, ts.URL+"/health", http.StatusOK, &got)
	if got.Status != "healthy" || got.Uptime != "1m0s" {
		t.Errorf("got %+v", got)
	}
}

func TestIndexPage(t *testing.T) {
	ts, _ := newTestServer(t, game.HighScoreEntry{Difficulty: "medium", Score: 1500, AvgReactionMs: 310})
	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	page := string(body)
	for _, want := range []string{"ssh -p 2222 play.example.com", "1,500", "310ms", `data-difficulty="hard"`} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestUnknownRoute(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/nope")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status %d, want 404", resp.StatusCode)
	}
}
