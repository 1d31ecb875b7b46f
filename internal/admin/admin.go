package admin

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/rooftop/internal/common"
	"github.com/dmitrijs2005/rooftop/internal/server/models"
)

var (
	ErrUsage         = errors.New("usage: partyctl [flags] migrate | set-password <username> | verify-user <username> | sweep-sessions <username>")
	ErrPasswordMatch = errors.New("passwords do not match")
)

// Users is the account surface the operator commands need.
type Users interface {
	SetPassword(ctx context.Context, username, newPassword string) (*models.User, error)
	ForceVerify(ctx context.Context, username string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// Sessions revokes stale session tokens.
type Sessions interface {
	SweepStale(ctx context.Context, userID string) (int64, error)
}

type App struct {
	users    Users
	sessions Sessions
	out      io.Writer
}

func NewApp(users Users, sessions Sessions, out io.Writer) *App {
	return &App{users: users, sessions: sessions, out: out}
}

// Run executes the command found among args. Migrations are applied when
// the store is opened, so migrate only reports success.
func (a *App) Run(ctx context.Context, args []string) error {
	cmd := positional(args)
	if len(cmd) == 0 {
		return ErrUsage
	}

	switch cmd[0] {
	case "migrate":
		if len(cmd) != 1 {
			return ErrUsage
		}
		fmt.Fprintln(a.out, "Schema is up to date")
		return nil
	case "set-password":
		if len(cmd) != 2 {
			return ErrUsage
		}
		return a.setPassword(ctx, cmd[1])
	case "verify-user":
		if len(cmd) != 2 {
			return ErrUsage
		}
		return a.verifyUser(ctx, cmd[1])
	case "sweep-sessions":
		if len(cmd) != 2 {
			return ErrUsage
		}
		return a.sweepSessions(ctx, cmd[1])
	default:
		return fmt.Errorf("unknown command %q: %w", cmd[0], ErrUsage)
	}
}

func (a *App) setPassword(ctx context.Context, username string) error {
	pw, err := getPassword(a.out, "New password: ")
	if err != nil {
		return err
	}
	confirm, err := getPassword(a.out, "Repeat password: ")
	if err != nil {
		return err
	}
	if pw != confirm {
		return ErrPasswordMatch
	}

	user, err := a.users.SetPassword(ctx, username, pw)
	if err != nil {
		return describe(username, err)
	}
	fmt.Fprintf(a.out, "Password updated for %s (%s)\n", user.Username, user.ID)
	return nil
}

func (a *App) verifyUser(ctx context.Context, username string) error {
	user, err := a.users.ForceVerify(ctx, username)
	if errors.Is(err, common.ErrAlreadyVerified) {
		fmt.Fprintf(a.out, "%s is already verified\n", username)
		return nil
	}
	if err != nil {
		return describe(username, err)
	}
	fmt.Fprintf(a.out, "Verified %s (%s)\n", user.Username, user.ID)
	return nil
}

func (a *App) sweepSessions(ctx context.Context, username string) error {
	user, err := a.users.FindByUsername(ctx, username)
	if err != nil {
		return describe(username, err)
	}
	n, err := a.sessions.SweepStale(ctx, user.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Revoked %d stale session(s) of %s\n", n, user.Username)
	return nil
}

func describe(username string, err error) error {
	var ve *common.ValidationError
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return fmt.Errorf("no user named %q: %w", username, err)
	case errors.As(err, &ve):
		return fmt.Errorf("rejected: %w", ve)
	}
	return err
}
