// Command trackerctl runs maintenance tasks against the applyhub database:
// issuing invitations, promoting admins and applying migrations.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/geocoder89/applyhub/internal/config"
	"github.com/geocoder89/applyhub/internal/db"
	"github.com/geocoder89/applyhub/internal/observability"
	"github.com/geocoder89/applyhub/internal/repo/postgres"
	"github.com/geocoder89/applyhub/internal/security"
	"github.com/geocoder89/applyhub/internal/service"
)

const usage = `usage: trackerctl <command> [flags]

commands:
  invite [-days N] email...   issue invitation codes (reuses a pending one per email)
  promote -email ADDRESS      grant ADMIN to an existing account
  migrate                     apply database migrations
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := observability.NewLogger(cfg.Env, cfg.LogLevel).With(slog.String("component", "trackerctl"))

	ctx, cancel := config.WithTimeout(2 * time.Minute)
	defer cancel()

	if err := run(ctx, cfg, log, os.Args[1], os.Args[2:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger, cmd string, args []string, out io.Writer) error {
	switch cmd {
	case "invite", "promote", "migrate":
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q\n\n%s", cmd, usage)
	}

	pool, err := db.NewPool(ctx, cfg.DBURL, 2)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer pool.Close()

	store := postgres.NewStore(pool, nil)
	opts := []service.Option{service.WithLogger(log)}

	switch cmd {
	case "invite":
		return invite(ctx, service.NewInvitations(store, opts...), args, out)
	case "promote":
		return promote(ctx, service.NewAccounts(store, security.NewHasher(), opts...), args, out)
	default:
		if err := db.Migrate(pool); err != nil {
			return err
		}
		fmt.Fprintln(out, "migrations applied")
		return nil
	}
}

type issuer interface {
	Issue(ctx context.Context, email string, validFor time.Duration) (service.IssueResult, error)
}

// invite keeps going past bad addresses and reports them at the end.
func invite(ctx context.Context, inv issuer, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("invite", flag.ContinueOnError)
	fs.SetOutput(out)
	days := fs.Int("days", 7, "days until the invitation expires")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("invite: at least one email is required")
	}
	if *days < 1 {
		return errors.New("invite: -days must be at least 1")
	}

	validFor := time.Duration(*days) * 24 * time.Hour

	var failed int
	for _, email := range fs.Args() {
		res, err := inv.Issue(ctx, email, validFor)
		if err != nil {
			failed++
			fmt.Fprintf(out, "%s\tFAILED\t%v\n", email, err)
			continue
		}

		state := "NEW"
		if res.Existing {
			state = "EXISTING"
		}
		fmt.Fprintf(out, "%s\t%s\t%s\texpires %s\n",
			res.Invitation.Email, res.Invitation.Token, state, res.Invitation.ExpiresAt.Format(time.RFC3339))
	}

	if failed > 0 {
		return fmt.Errorf("invite: %d of %d invitations failed", failed, fs.NArg())
	}
	return nil
}

type promoter interface {
	Promote(ctx context.Context, email string) error
}

func promote(ctx context.Context, accounts promoter, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("promote", flag.ContinueOnError)
	fs.SetOutput(out)
	email := fs.String("email", "", "email of the account to promote")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return errors.New("promote: -email is required")
	}

	if err := accounts.Promote(ctx, *email); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return fmt.Errorf("promote: no account for %s", *email)
		}
		return err
	}

	fmt.Fprintf(out, "%s is now an admin\n", *email)
	return nil
}
