// Package account implements the reflex account command: login, profile,
// sessions, leaderboard, achievements and friends against the backend.
package account

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/tomz197/reflex/internal/api"
	"github.com/tomz197/reflex/internal/highscore"
)

// Commands lists the subcommands in usage order.
var Commands = []string{
	"login", "register", "logout", "profile", "sessions", "latest",
	"leaderboard", "achievements", "my-achievements",
	"friends", "requests", "befriend", "accept", "reject",
}

// PasswordFunc reads a secret without echo.
type PasswordFunc func(prompt string) (string, error)

// Env is everything a command needs.
type Env struct {
	Client   *api.Client
	Out      io.Writer
	In       io.Reader
	Password PasswordFunc

	lines *bufio.Reader
}

// ErrUsage reports a malformed command line.
var ErrUsage = errors.New("usage error")

// Usage writes the command summary.
func Usage(w io.Writer) {
	fmt.Fprintln(w, "usage: account <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	fmt.Fprintln(w, "  login -u NAME              log in and store tokens")
	fmt.Fprintln(w, "  register -u NAME -e EMAIL  create an account")
	fmt.Fprintln(w, "  logout                     forget stored tokens")
	fmt.Fprintln(w, "  profile [-bio TEXT]        show or update the profile")
	fmt.Fprintln(w, "  sessions                   list your game sessions")
	fmt.Fprintln(w, "  latest                     show your latest session")
	fmt.Fprintln(w, "  leaderboard [-d DIFF] [-n N]")
	fmt.Fprintln(w, "  achievements               list every achievement")
	fmt.Fprintln(w, "  my-achievements            list unlocked achievements")
	fmt.Fprintln(w, "  friends                    list friends")
	fmt.Fprintln(w, "  requests                   list friend requests")
	fmt.Fprintln(w, "  befriend NAME|EMAIL        send a friend request")
	fmt.Fprintln(w, "  accept ID | reject ID      answer a friend request")
}

// Run executes one subcommand. args[0] names it.
func Run(ctx context.Context, env Env, args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}
	if env.Out == nil {
		env.Out = io.Discard
	}
	if env.In != nil {
		env.lines = bufio.NewReader(env.In)
	}
	name, rest := args[0], args[1:]
	switch name {
	case "login":
		return login(ctx, env, rest)
	case "register":
		return register(ctx, env, rest)
	case "logout":
		if err := env.Client.Logout(); err != nil {
			return err
		}
		fmt.Fprintln(env.Out, "Logged out.")
		return nil
	case "profile":
		return profile(ctx, env, rest)
	case "sessions":
		return sessions(ctx, env)
	case "latest":
		return latest(ctx, env)
	case "leaderboard":
		return leaderboard(ctx, env, rest)
	case "achievements":
		return achievements(ctx, env)
	case "my-achievements":
		return myAchievements(ctx, env)
	case "friends":
		return friends(ctx, env)
	case "requests":
		return requests(ctx, env)
	case "befriend":
		if len(rest) != 1 {
			return fmt.Errorf("%w: befriend takes a username or email", ErrUsage)
		}
		f, err := env.Client.SendFriendRequest(ctx, rest[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(env.Out, "Friend request %d sent to %s.\n", f.ID, f.ToUsername)
		return nil
	case "accept", "reject":
		if len(rest) != 1 {
			return fmt.Errorf("%w: %s takes a request id", ErrUsage, name)
		}
		id, err := strconv.Atoi(rest[0])
		if err != nil {
			return fmt.Errorf("%w: invalid request id %q", ErrUsage, rest[0])
		}
		var msg string
		if name == "accept" {
			msg, err = env.Client.AcceptFriendRequest(ctx, id)
		} else {
			msg, err = env.Client.RejectFriendRequest(ctx, id)
		}
		if err != nil {
			return err
		}
		if msg == "" {
			msg = "Friend request " + name + "ed."
		}
		fmt.Fprintln(env.Out, msg)
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", ErrUsage, name)
	}
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	return nil
}

// secret reads a password through env.Password, or a line from env.In.
func secret(env Env, prompt string) (string, error) {
	if env.Password != nil {
		return env.Password(prompt)
	}
	if env.lines == nil {
		return "", fmt.Errorf("%w: no password given", ErrUsage)
	}
	fmt.Fprint(env.Out, prompt)
	line, err := env.lines.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func login(ctx context.Context, env Env, args []string) error {
	fs := newFlagSet("login")
	username := fs.String("u", "", "username")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *username == "" {
		return fmt.Errorf("%w: -u is required", ErrUsage)
	}
	password, err := secret(env, "Password: ")
	if err != nil {
		return err
	}
	p, err := env.Client.Login(ctx, *username, password)
	if err != nil {
		return err
	}
	if p != nil {
		fmt.Fprintf(env.Out, "Logged in as %s.\n", p.Username)
	} else {
		fmt.Fprintln(env.Out, "Logged in.")
	}
	return nil
}

func register(ctx context.Context, env Env, args []string) error {
	fs := newFlagSet("register")
	username := fs.String("u", "", "username")
	email := fs.String("e", "", "email")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *username == "" || *email == "" {
		return fmt.Errorf("%w: -u and -e are required", ErrUsage)
	}
	password, err := secret(env, "Password: ")
	if err != nil {
		return err
	}
	confirm, err := secret(env, "Confirm password: ")
	if err != nil {
		return err
	}
	res, err := env.Client.Register(ctx, api.Registration{
		Username:  *username,
		Email:     *email,
		Password:  password,
		Password2: confirm,
	})
	if err != nil {
		return err
	}
	msg := res.Message
	if msg == "" {
		msg = "Account created."
	}
	fmt.Fprintf(env.Out, "%s Logged in as %s.\n", msg, res.User.Username)
	return nil
}

func profile(ctx context.Context, env Env, args []string) error {
	fs := newFlagSet("profile")
	bio := fs.String("bio", "", "new bio")
	dob := fs.String("dob", "", "date of birth, YYYY-MM-DD")
	if err := parse(fs, args); err != nil {
		return err
	}

	var p *api.Profile
	var err error
	if *bio != "" || *dob != "" {
		update := api.ProfileUpdate{Bio: *bio}
		if *dob != "" {
			if _, perr := time.Parse(time.DateOnly, *dob); perr != nil {
				return fmt.Errorf("%w: -dob must be YYYY-MM-DD", ErrUsage)
			}
			update.DateOfBirth = dob
		}
		p, err = env.Client.UpdateProfile(ctx, update)
	} else {
		p, err = env.Client.Profile(ctx)
	}
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(env.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Username\t%s\n", p.Username)
	fmt.Fprintf(tw, "Email\t%s\n", p.Email)
	if name := strings.TrimSpace(p.FirstName + " " + p.LastName); name != "" {
		fmt.Fprintf(tw, "Name\t%s\n", name)
	}
	if p.Bio != "" {
		fmt.Fprintf(tw, "Bio\t%s\n", p.Bio)
	}
	if p.DateOfBirth != nil {
		fmt.Fprintf(tw, "Born\t%s\n", *p.DateOfBirth)
	}
	return tw.Flush()
}

func avg(ms *float64) string {
	if ms == nil {
		return "-"
	}
	return strconv.Itoa(int(*ms+0.5)) + "ms"
}

func sessions(ctx context.Context, env Env) error {
	list, err := env.Client.Sessions(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(env.Out, "No sessions yet.")
		return nil
	}
	tw := tabwriter.NewWriter(env.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tDIFFICULTY\tSCORE\tAVG\tTIME\tDONE")
	for _, s := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%ds\t%t\n",
			s.ID, s.CreatedAt.Local().Format(time.DateTime), s.Difficulty,
			highscore.FormatScore(s.Score), avg(s.AvgReactionTime), s.TimePlayed, s.IsCompleted)
	}
	return tw.Flush()
}

func latest(ctx context.Context, env Env) error {
	s, err := env.Client.LatestSession(ctx)
	if err != nil {
		return err
	}
	if s == nil {
		fmt.Fprintln(env.Out, "No sessions yet.")
		return nil
	}
	tw := tabwriter.NewWriter(env.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Date\t%s\n", s.CreatedAt.Local().Format(time.DateTime))
	fmt.Fprintf(tw, "Difficulty\t%s\n", s.Difficulty)
	fmt.Fprintf(tw, "Score\t%s\n", highscore.FormatScore(s.Score))
	fmt.Fprintf(tw, "Targets hit\t%d\n", len(s.ReactionTimes))
	fmt.Fprintf(tw, "Avg reaction\t%s\n", avg(s.AvgReactionTime))
	fmt.Fprintf(tw, "Time played\t%ds\n", s.TimePlayed)
	return tw.Flush()
}

func leaderboard(ctx context.Context, env Env, args []string) error {
	fs := newFlagSet("leaderboard")
	difficulty := fs.String("d", "", "difficulty filter")
	limit := fs.Int("n", 10, "number of entries")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *limit < 1 {
		return fmt.Errorf("%w: -n must be positive", ErrUsage)
	}
	list, err := env.Client.Leaderboard(ctx, strings.ToLower(*difficulty), *limit)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(env.Out, "No scores yet.")
		return nil
	}
	tw := tabwriter.NewWriter(env.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tPLAYER\tDIFFICULTY\tSCORE\tAVG")
	for i, e := range list {
		rank := e.Rank
		if rank == 0 {
			rank = i + 1
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			rank, e.Username, e.Difficulty, highscore.FormatScore(e.Score), avg(e.AvgReactionTime))
	}
	return tw.Flush()
}

func achievements(ctx context.Context, env Env) error {
	list, err := env.Client.Achievements(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(env.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPOINTS\tDESCRIPTION")
	for _, a := range list {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", a.Name, a.Points, a.Description)
	}
	return tw.Flush()
}

func myAchievements(ctx context.Context, env Env) error {
	list, err := env.Client.UserAchievements(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(env.Out, "No achievements unlocked yet.")
		return nil
	}
	tw := tabwriter.NewWriter(env.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPOINTS\tUNLOCKED")
	total := 0
	for _, u := range list {
		total += u.Achievement.Points
		fmt.Fprintf(tw, "%s\t%d\t%s\n", u.Achievement.Name, u.Achievement.Points, u.UnlockedAt.Local().Format(time.DateOnly))
	}
	fmt.Fprintf(tw, "Total\t%d\t\n", total)
	return tw.Flush()
}

func friends(ctx context.Context, env Env) error {
	list, err := env.Client.Friends(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(env.Out, "No friends yet.")
		return nil
	}
	for _, f := range list {
		line := f.Username
		if f.Profile.Bio != "" {
			line += "  " + f.Profile.Bio
		}
		fmt.Fprintln(env.Out, line)
	}
	return nil
}

func requests(ctx context.Context, env Env) error {
	list, err := env.Client.FriendRequests(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(env.Out, "No friend requests.")
		return nil
	}
	tw := tabwriter.NewWriter(env.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFROM\tTO\tSTATUS")
	for _, f := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", f.ID, f.FromUsername, f.ToUsername, f.Status)
	}
	return tw.Flush()
}
