package config

import (
	"fmt"
	"strings"

	"github.com/tomz197/reflex/internal/game"
)

// Game configures the local binary.
type Game struct {
	DBPath     string `env:"REFLEX_DB_PATH" envDefault:"reflex.db"`
	Difficulty string `env:"REFLEX_DIFFICULTY"`
	Sound      bool   `env:"REFLEX_SOUND" envDefault:"true"`
	Renderer   string `env:"REFLEX_RENDERER" envDefault:"tcell"`
	APIURL     string `env:"REFLEX_API_URL"`
	LogLevel   string `env:"REFLEX_LOG_LEVEL" envDefault:"warn"`
	Account    Account
}

// Validate checks enumerated values.
func (g Game) Validate() error {
	switch g.Renderer {
	case "tcell", "ansi":
	default:
		return fmt.Errorf("renderer must be tcell or ansi, got %q", g.Renderer)
	}
	if g.Difficulty != "" {
		if _, err := game.LookupDifficulty(g.Difficulty); err != nil {
			return err
		}
	}
	return nil
}

// SSH configures the SSH server.
type SSH struct {
	Host        string `env:"SSH_HOST" envDefault:"0.0.0.0"`
	Port        string `env:"SSH_PORT" envDefault:"2222"`
	HostKeyPath string `env:"SSH_HOST_KEY" envDefault:".ssh/id_ed25519"`
	DBPath      string `env:"REFLEX_DB_PATH" envDefault:"reflex.db"`
	LogLevel    string `env:"REFLEX_LOG_LEVEL" envDefault:"info"`
}

// Web configures the leaderboard page.
type Web struct {
	Host           string `env:"WEB_HOST" envDefault:"0.0.0.0"`
	Port           string `env:"WEB_PORT" envDefault:"8080"`
	SSHDisplayHost string `env:"SSH_DISPLAY_HOST" envDefault:"localhost"`
	SSHPort        string `env:"SSH_PORT" envDefault:"2222"`
	DBPath         string `env:"REFLEX_DB_PATH" envDefault:"reflex.db"`
	LogLevel       string `env:"REFLEX_LOG_LEVEL" envDefault:"info"`
}

// SSHCommand is the command players paste to connect.
func (w Web) SSHCommand() string {
	if w.SSHPort == "" || w.SSHPort == "22" {
		return "ssh " + w.SSHDisplayHost
	}
	return fmt.Sprintf("ssh -p %s %s", w.SSHPort, w.SSHDisplayHost)
}

// Account configures the backend client.
type Account struct {
	APIURL         string `env:"REFLEX_API_URL" envDefault:"http://localhost:8000/api"`
	KeyringService string `env:"REFLEX_KEYRING_SERVICE" envDefault:"reflex"`
	TokenFallback  string `env:"REFLEX_TOKEN_FALLBACK"`
	LogLevel       string `env:"REFLEX_LOG_LEVEL" envDefault:"warn"`
}

// Normalize trims and lowercases enumerated fields.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
