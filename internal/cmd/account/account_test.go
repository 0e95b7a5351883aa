package account

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tomz197/reflex/internal/api"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newEnv(t *testing.T, h http.HandlerFunc, toks api.Tokens) (Env, *bytes.Buffer, *api.MemoryStore) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	store := &api.MemoryStore{}
	_ = store.Save(toks)
	out := &bytes.Buffer{}
	return Env{
		Client: api.NewClient(api.Config{BaseURL: srv.URL + "/api", Tokens: store}),
		Out:    out,
		Password: func(string) (string, error) {
			return "secret", nil
		},
	}, out, store
}

var loggedIn = api.Tokens{Access: "acc", Refresh: "ref"}

func TestRunUsage(t *testing.T) {
	env, _, _ := newEnv(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	}, api.Tokens{})
	for _, args := range [][]string{
		nil,
		{"nope"},
		{"login"},
		{"register", "-u", "ada"},
		{"befriend"},
		{"accept", "x"},
		{"reject"},
		{"leaderboard", "-n", "0"},
		{"profile", "-dob", "yesterday"},
	} {
		if err := Run(context.Background(), env, args); !errors.Is(err, ErrUsage) {
			t.Errorf("Run(%v) = %v, want usage error", args, err)
		}
	}
}

func TestLogin(t *testing.T) {
	env, out, store := newEnv(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login/":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["username"] != "ada" || body["password"] != "secret" {
				t.Errorf("login body = %v", body)
			}
			writeJSON(w, http.StatusOK, api.Tokens{Access: "a1", Refresh: "r1"})
		case "/api/auth/profile/":
			writeJSON(w, http.StatusOK, map[string]any{"id": 1, "username": "ada"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}, api.Tokens{})

	if err := Run(context.Background(), env, []string{"login", "-u", "ada"}); err != nil {
		t.Fatal(err)
	}
	if got := out.String(); got != "Logged in as ada.\n" {
		t.Errorf("output = %q", got)
	}
	if toks, _ := store.Load(); toks.Access != "a1" {
		t.Errorf("tokens = %+v", toks)
	}
}

func TestLoginReadsPasswordFromInput(t *testing.T) {
	env, _, _ := newEnv(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/login/" {
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["password"] != "typed" {
				t.Errorf("password = %q", body["password"])
			}
			writeJSON(w, http.StatusOK, api.Tokens{Access: "a1"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"username": "ada"})
	}, api.Tokens{})
	env.Password = nil
	env.In = strings.NewReader("typed\n")
	if err := Run(context.Background(), env, []string{"login", "-u", "ada"}); err != nil {
		t.Fatal(err)
	}
}

func TestRegisterValidationError(t *testing.T) {
	env, _, _ := newEnv(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"password": []string{"Password fields didn't match."}})
	}, api.Tokens{})
	err := Run(context.Background(), env, []string{"register", "-u", "ada", "-e", "ada@example.com"})
	var verr *api.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if !strings.Contains(err.Error(), "didn't match") {
		t.Errorf("message = %q", err.Error())
	}
}

func TestLogout(t *testing.T) {
	env, out, store := newEnv(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	}, loggedIn)
	if err := Run(context.Background(), env, []string{"logout"}); err != nil {
		t.Fatal(err)
	}
	if toks, _ := store.Load(); toks.Access != "" {
		t.Errorf("tokens not cleared: %+v", toks)
	}
	if !strings.Contains(out.String(), "Logged out") {
		t.Errorf("output = %q", out.String())
	}
}

func TestLeaderboard(t *testing.T) {
	env, out, _ := newEnv(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/games/leaderboard/top/" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if q := r.URL.Query(); q.Get("limit") != "3" || q.Get("difficulty") != "hard" {
			t.Errorf("query = %v", q)
		}
		avg := 241.6
		writeJSON(w, http.StatusOK, []api.LeaderboardEntry{
			{Username: "ada", Score: 12340, Difficulty: "hard", Rank: 1, AvgReactionTime: &avg},
			{Username: "bob", Score: 900, Difficulty: "hard"},
		})
	}, api.Tokens{})
	if err := Run(context.Background(), env, []string{"leaderboard", "-d", "HARD", "-n", "3"}); err != nil {
		t.Fatal(err)
	}
	got := out.String()
	for _, want := range []string{"PLAYER", "ada", "12,340", "242ms", "bob", "-"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	lines := strings.Split(strings.TrimSpace(got), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[2], "2") {
		t.Errorf("lines = %q", lines)
	}
}

func TestLatestNone(t *testing.T) {
	env, out, _ := newEnv(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "No game sessions found"})
	}, loggedIn)
	if err := Run(context.Background(), env, []string{"latest"}); err != nil {
		t.Fatal(err)
	}
	if out.String() != "No sessions yet.\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestSessions(t *testing.T) {
	env, out, _ := newEnv(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"count": 1,
			"results": []map[string]any{{
				"id": 4, "score": 1500, "difficulty": "medium", "time_played": 45,
				"is_completed": true, "created_at": "2026-03-01T10:00:00Z",
			}},
		})
	}, loggedIn)
	if err := Run(context.Background(), env, []string{"sessions"}); err != nil {
		t.Fatal(err)
	}
	got := out.String()
	for _, want := range []string{"medium", "1,500", "45s", "true"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestFriendCommands(t *testing.T) {
	var paths []string
	env, out, _ := newEnv(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		switch r.URL.Path {
		case "/api/games/friends/":
			if r.Method == http.MethodPost {
				var body map[string]string
				_ = json.NewDecoder(r.Body).Decode(&body)
				if body["friend_identifier"] != "bob@example.com" {
					t.Errorf("body = %v", body)
				}
				writeJSON(w, http.StatusCreated, api.Friendship{ID: 9, ToUsername: "bob", Status: "pending"})
				return
			}
			writeJSON(w, http.StatusOK, []api.Friendship{{ID: 9, FromUsername: "ada", ToUsername: "bob", Status: "pending"}})
		case "/api/games/friends/9/accept/":
			writeJSON(w, http.StatusOK, map[string]string{"message": "Friend request accepted"})
		case "/api/games/friends/9/reject/":
			writeJSON(w, http.StatusOK, map[string]string{})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}, loggedIn)

	ctx := context.Background()
	for _, args := range [][]string{
		{"befriend", "bob@example.com"},
		{"requests"},
		{"accept", "9"},
		{"reject", "9"},
	} {
		if err := Run(ctx, env, args); err != nil {
			t.Fatalf("Run(%v): %v", args, err)
		}
	}
	want := []string{
		"POST /api/games/friends/",
		"GET /api/games/friends/",
		"POST /api/games/friends/9/accept/",
		"POST /api/games/friends/9/reject/",
	}
	if strings.Join(paths, ",") != strings.Join(want, ",") {
		t.Errorf("requests = %v", paths)
	}
	got := out.String()
	for _, s := range []string{"Friend request 9 sent to bob.", "pending", "Friend request accepted", "Friend request rejected."} {
		if !strings.Contains(got, s) {
			t.Errorf("output missing %q:\n%s", s, got)
		}
	}
}

func TestProfileNotLoggedIn(t *testing.T) {
	env, _, _ := newEnv(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	}, api.Tokens{})
	if err := Run(context.Background(), env, []string{"profile"}); !errors.Is(err, api.ErrNotAuthenticated) {
		t.Errorf("err = %v", err)
	}
}
