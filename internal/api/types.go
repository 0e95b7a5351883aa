package api

import "time"

// Tokens is a JWT access/refresh pair.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Profile is the current user's profile.
type Profile struct {
	ID          int     `json:"id"`
	Username    string  `json:"username"`
	Email       string  `json:"email"`
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	Avatar      *string `json:"avatar"`
	Bio         string  `json:"bio"`
	DateOfBirth *string `json:"date_of_birth"`
}

// ProfileUpdate holds the writable profile fields.
type ProfileUpdate struct {
	Bio         string  `json:"bio"`
	DateOfBirth *string `json:"date_of_birth,omitempty"`
}

// User is the basic account record returned on registration.
type User struct {
	ID         int       `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Profile    *Profile  `json:"profile"`
	DateJoined time.Time `json:"date_joined"`
}

// Registration is the sign-up request.
type Registration struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
}

// RegisterResponse is returned by Register.
type RegisterResponse struct {
	User    User   `json:"user"`
	Tokens  Tokens `json:"tokens"`
	Message string `json:"message"`
}

// NewSession is a finished game submitted to the backend.
type NewSession struct {
	GameState     map[string]any `json:"game_state"`
	Score         int            `json:"score"`
	Difficulty    string         `json:"difficulty"`
	TimePlayed    int            `json:"time_played"`
	IsCompleted   bool           `json:"is_completed"`
	ReactionTimes []int          `json:"reaction_times"`
}

// GameSession is a stored session.
type GameSession struct {
	ID              int            `json:"id"`
	Username        string         `json:"username"`
	GameState       map[string]any `json:"game_state"`
	Score           int            `json:"score"`
	Difficulty      string         `json:"difficulty"`
	TimePlayed      int            `json:"time_played"`
	IsCompleted     bool           `json:"is_completed"`
	ReactionTimes   []int          `json:"reaction_times"`
	AvgReactionTime *float64       `json:"avg_reaction_time"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// LeaderboardEntry is one row of the global leaderboard.
type LeaderboardEntry struct {
	ID              int       `json:"id"`
	UserID          int       `json:"user_id"`
	Username        string    `json:"username"`
	Score           int       `json:"score"`
	Rank            int       `json:"rank"`
	Difficulty      string    `json:"difficulty"`
	DateAchieved    time.Time `json:"date_achieved"`
	AvgReactionTime *float64  `json:"avg_reaction_time"`
}

// Achievement is an unlockable goal.
type Achievement struct {
	ID              int            `json:"id"`
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	Icon            *string        `json:"icon"`
	AchievementType string         `json:"achievement_type"`
	Requirement     map[string]any `json:"requirement"`
	Points          int            `json:"points"`
	CreatedAt       time.Time      `json:"created_at"`
}

// UserAchievement is an achievement the user has unlocked.
type UserAchievement struct {
	ID          int         `json:"id"`
	Achievement Achievement `json:"achievement"`
	UnlockedAt  time.Time   `json:"unlocked_at"`
}

// Friend is an accepted friend.
type Friend struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Profile  struct {
		Avatar *string `json:"avatar"`
		Bio    string  `json:"bio"`
	} `json:"profile"`
}

// Friendship is a friend request in either direction.
type Friendship struct {
	ID           int       `json:"id"`
	FromUsername string    `json:"from_username"`
	ToUsername   string    `json:"to_username"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type messageResponse struct {
	Message string `json:"message"`
}
