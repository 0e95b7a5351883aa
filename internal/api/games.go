package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tomz197/reflex/internal/game"
)

// SessionFromResult converts a finished engine session for submission.
func SessionFromResult(r game.Result) NewSession {
	rts := r.ReactionTimes
	if rts == nil {
		rts = []int{}
	}
	state := map[string]any{
		"avg_reaction_time": r.Entry.AvgReactionMs,
	}
	if !r.EndedAt.IsZero() {
		state["ended_at"] = r.EndedAt.UTC().Format(time.RFC3339)
	}
	return NewSession{
		GameState:     state,
		Score:         r.Entry.Score,
		Difficulty:    r.Entry.Difficulty,
		TimePlayed:    int(r.TimePlayed / time.Second),
		IsCompleted:   r.Completed,
		ReactionTimes: rts,
	}
}

// SaveSession stores a finished game.
func (c *Client) SaveSession(ctx context.Context, s NewSession) (*GameSession, error) {
	if s.GameState == nil {
		s.GameState = map[string]any{}
	}
	if s.ReactionTimes == nil {
		s.ReactionTimes = []int{}
	}
	var out GameSession
	if err := c.do(ctx, http.MethodPost, "/games/sessions/", s, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Sessions lists the user's sessions, newest first.
func (c *Client) Sessions(ctx context.Context) ([]GameSession, error) {
	raw, err := c.getList(ctx, "/games/sessions/")
	if err != nil {
		return nil, err
	}
	return decodeList[GameSession](raw)
}

// LatestSession returns the newest session, or nil if there is none.
func (c *Client) LatestSession(ctx context.Context) (*GameSession, error) {
	var out GameSession
	err := c.do(ctx, http.MethodGet, "/games/sessions/latest/", nil, &out)
	var herr *HTTPError
	if errors.As(err, &herr) && herr.IsNotFound() {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Leaderboard returns the top entries. With limit > 0 the top endpoint is
// used; difficulty filters when non-empty.
func (c *Client) Leaderboard(ctx context.Context, difficulty string, limit int) ([]LeaderboardEntry, error) {
	q := url.Values{}
	path := "/games/leaderboard/"
	if limit > 0 {
		path = "/games/leaderboard/top/"
		q.Set("limit", strconv.Itoa(limit))
	}
	if difficulty != "" {
		q.Set("difficulty", difficulty)
	}
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	raw, err := c.getList(ctx, path)
	if err != nil {
		return nil, err
	}
	return decodeList[LeaderboardEntry](raw)
}

// Achievements lists every achievement.
func (c *Client) Achievements(ctx context.Context) ([]Achievement, error) {
	raw, err := c.getList(ctx, "/games/achievements/")
	if err != nil {
		return nil, err
	}
	return decodeList[Achievement](raw)
}

// UserAchievements lists the achievements the user has unlocked.
func (c *Client) UserAchievements(ctx context.Context) ([]UserAchievement, error) {
	raw, err := c.getList(ctx, "/games/user-achievements/")
	if err != nil {
		return nil, err
	}
	return decodeList[UserAchievement](raw)
}

// Friends lists accepted friends.
func (c *Client) Friends(ctx context.Context) ([]Friend, error) {
	raw, err := c.getList(ctx, "/games/friends/friends/")
	if err != nil {
		return nil, err
	}
	return decodeList[Friend](raw)
}

// FriendRequests lists friend requests sent or received.
func (c *Client) FriendRequests(ctx context.Context) ([]Friendship, error) {
	raw, err := c.getList(ctx, "/games/friends/")
	if err != nil {
		return nil, err
	}
	return decodeList[Friendship](raw)
}

// SendFriendRequest asks a user, by username or email, to be friends.
func (c *Client) SendFriendRequest(ctx context.Context, identifier string) (*Friendship, error) {
	if identifier == "" {
		return nil, fmt.Errorf("api: friend identifier is required")
	}
	var out Friendship
	body := map[string]string{"friend_identifier": identifier}
	if err := c.do(ctx, http.MethodPost, "/games/friends/", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AcceptFriendRequest accepts a pending request and returns the server message.
func (c *Client) AcceptFriendRequest(ctx context.Context, id int) (string, error) {
	return c.friendAction(ctx, id, "accept")
}

// RejectFriendRequest rejects a pending request and returns the server message.
func (c *Client) RejectFriendRequest(ctx context.Context, id int) (string, error) {
	return c.friendAction(ctx, id, "reject")
}

func (c *Client) friendAction(ctx context.Context, id int, action string) (string, error) {
	var out messageResponse
	path := fmt.Sprintf("/games/friends/%d/%s/", id, action)
	if err := c.do(ctx, http.MethodPost, path, nil, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}
