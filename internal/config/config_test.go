package config

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("REFLEX_TEST_VALUE", "set")
	if got := GetEnv("REFLEX_TEST_VALUE", "fallback"); got != "set" {
		t.Errorf("GetEnv = %q", got)
	}
	if got := GetEnv("REFLEX_TEST_MISSING", "fallback"); got != "fallback" {
		t.Errorf("GetEnv = %q", got)
	}
}

func TestParseEnvDefaults(t *testing.T) {
	var g Game
	if err := ParseEnv(&g); err != nil {
		t.Fatalf("ParseEnv: %v", err)
	}
	if g.DBPath != "reflex.db" || g.Renderer != "tcell" || !g.Sound {
		t.Errorf("defaults = %+v", g)
	}
	if g.Account.APIURL != "http://localhost:8000/api" {
		t.Errorf("nested default = %q", g.Account.APIURL)
	}
	if err := g.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestParseEnvOverrides(t *testing.T) {
	t.Setenv("SSH_PORT", "23234")
	t.Setenv("SSH_HOST", "127.0.0.1")
	var s SSH
	if err := ParseEnv(&s); err != nil {
		t.Fatal(err)
	}
	if s.Port != "23234" || s.Host != "127.0.0.1" {
		t.Errorf("ssh = %+v", s)
	}
}

func TestParseEnvError(t *testing.T) {
	t.Setenv("REFLEX_SOUND", "loud")
	var g Game
	err := ParseEnv(&g)
	if err == nil || !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("err = %v", err)
	}
}

func TestGameValidate(t *testing.T) {
	if err := (Game{Renderer: "gl"}).Validate(); err == nil {
		t.Error("unknown renderer accepted")
	}
	if err := (Game{Renderer: "ansi", Difficulty: "insane"}).Validate(); err == nil {
		t.Error("unknown difficulty accepted")
	}
}

func TestSSHCommand(t *testing.T) {
	if got := (Web{SSHDisplayHost: "play.example", SSHPort: "22"}).SSHCommand(); got != "ssh play.example" {
		t.Errorf("SSHCommand = %q", got)
	}
	if got := (Web{SSHDisplayHost: "localhost", SSHPort: "2222"}).SSHCommand(); got != "ssh -p 2222 localhost" {
		t.Errorf("SSHCommand = %q", got)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "DEBUG", "test")
	if logger.GetLevel() != log.DebugLevel {
		t.Errorf("level = %v", logger.GetLevel())
	}
	if NewLogger(&buf, "chatty", "").GetLevel() != log.InfoLevel {
		t.Error("unknown level did not fall back to info")
	}
	logger.Debug("hello", "k", "v")
	if !strings.Contains(buf.String(), "hello") || !strings.Contains(buf.String(), "k=v") {
		t.Errorf("output = %q", buf.String())
	}
}
