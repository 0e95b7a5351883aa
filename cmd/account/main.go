// Command account manages a reflex backend account from the terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomz197/reflex/internal/api"
	"github.com/tomz197/reflex/internal/cmd/account"
	"github.com/tomz197/reflex/internal/config"
	"golang.org/x/term"
)

func main() {
	var cfg config.Account
	if err := config.ParseEnv(&cfg); err != nil {
		config.Exitf("config: %v", err)
	}
	logger := config.NewLogger(os.Stderr, cfg.LogLevel, "account")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := account.Env{
		Client: api.NewClient(api.Config{
			BaseURL: cfg.APIURL,
			Tokens:  api.NewKeyringStore(cfg.KeyringService, cfg.TokenFallback),
			Logger:  logger,
		}),
		Out: os.Stdout,
		In:  os.Stdin,
	}
	// Piped input is read line by line instead.
	if term.IsTerminal(int(os.Stdin.Fd())) {
		env.Password = readPassword
	}

	err := account.Run(ctx, env, os.Args[1:])
	switch {
	case err == nil:
	case errors.Is(err, account.ErrUsage):
		fmt.Fprintln(os.Stderr, err)
		account.Usage(os.Stderr)
		os.Exit(2)
	default:
		config.Exitf("%v", err)
	}
}

// readPassword prompts on stderr and reads without echo.
func readPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}
