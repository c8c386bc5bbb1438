// Package cli implements the packsync command line client.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/packsync/packsync/internal/client/remote"
	"github.com/packsync/packsync/internal/client/session"
	"github.com/packsync/packsync/internal/domain"
)

const (
	defaultServer = "http://localhost:8080"
	sessionFile   = "session.db"
)

// app is the state shared by every command of one invocation.
type app struct {
	server  string
	home    string
	verbose bool

	log     *slog.Logger
	client  *remote.Client
	store   *session.SQLiteStore
	session *session.Session
}

// NewRootCommand builds the packsync command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "packsync",
		Short: "Plan trips and pack together",
		Long: `packsync - plan trips, pick the one you are working on, and tick off a
shared packing list with your travel companions.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context(), cmd.ErrOrStderr())
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}
	a.bindFlags(root.PersistentFlags())

	root.AddGroup(
		&cobra.Group{ID: "account", Title: "Account Commands:"},
		&cobra.Group{ID: "travel", Title: "Travel Commands:"},
	)
	root.AddCommand(
		newSignUpCommand(a),
		newLoginCommand(a),
		newLogoutCommand(a),
		newWhoAmICommand(a),
		newProfileCommand(a),
		newPlansCommand(a),
		newItemsCommand(a),
		newUICommand(a),
	)
	return root
}

// Execute runs the CLI with os.Args and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func (a *app) bindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&a.server, "server", envOr("PACKSYNC_SERVER", defaultServer), "Packsync server URL (env PACKSYNC_SERVER)")
	fs.StringVar(&a.home, "home", envOr("PACKSYNC_HOME", defaultHome()), "directory for the local session (env PACKSYNC_HOME)")
	fs.BoolVarP(&a.verbose, "verbose", "v", false, "log debug output to stderr")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultHome() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".packsync"
	}
	return filepath.Join(dir, "packsync")
}

// open prepares the session, restoring a saved login if there is one.
func (a *app) open(ctx context.Context, stderr io.Writer) error {
	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	a.log = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	if err := os.MkdirAll(a.home, 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", a.home, err)
	}
	store, err := session.OpenSQLite(ctx, filepath.Join(a.home, sessionFile))
	if err != nil {
		return err
	}
	a.store = store

	a.client = remote.New(a.server,
		remote.WithLogger(a.log),
		remote.WithTokenSource(func() string { return a.session.Token() }),
	)
	a.session = session.New(a.client, a.store, a.log)

	if _, _, err := a.session.Restore(ctx); err != nil {
		a.log.Warn("could not restore session", "error", err)
	}
	return nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

// requireUser returns the signed-in user or a friendly error.
func (a *app) requireUser() (domain.User, error) {
	u, ok := a.session.CurrentUser()
	if !ok {
		return domain.User{}, errors.New("not logged in: run `packsync login` first")
	}
	return u, nil
}
