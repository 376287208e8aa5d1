package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"libripal/api"
	"libripal/chat"
	"libripal/config"
	"libripal/library"
	"libripal/views"

	"github.com/spf13/cobra"
)

// app is the state shared by every command, built once the flags are parsed.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *library.Store
	client  *api.Client
	manager *library.LibraryManager
	closers []io.Closer

	in  io.Reader
	out io.Writer
}

var errNotSignedIn = errors.New("not signed in, run `libripal login` first")

// newRootCmd builds the command tree. The caller closes the returned app
// once the command has run.
func newRootCmd(in io.Reader, out io.Writer) (*cobra.Command, *app) {
	a := &app{in: in, out: out}
	var flags struct {
		apiURL, dataDir, logLevel string
	}

	root := &cobra.Command{
		Use:           "libripal",
		Short:         "LibriPal, your AI-powered library assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(".env")
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("api-url") {
				cfg.APIURL = flags.apiURL
			}
			if cmd.Flags().Changed("data-dir") {
				cfg.DataDir = flags.dataDir
			}
			if cmd.Flags().Changed("log-level") {
				if cfg.LogLevel, err = config.ParseLevel(flags.logLevel); err != nil {
					return err
				}
			}
			return a.open(cfg)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.shell(cmd.Context())
		},
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(out)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.apiURL, "api-url", config.DefaultAPIURL, "LibriPal API base URL")
	pf.StringVar(&flags.dataDir, "data-dir", "", "directory for the local store and logs")
	pf.StringVar(&flags.logLevel, "log-level", "info", "debug, info, warn or error")

	root.AddCommand(a.commands()...)
	return root, a
}

// open wires config into the logger, store, client and stored session.
func (a *app) open(cfg *config.Config) error {
	a.cfg = cfg
	logger, closer, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	a.logger = logger
	a.closers = append(a.closers, closer)

	store, err := library.NewStore(cfg.StorePath())
	if err != nil {
		return fmt.Errorf("open local store: %w", err)
	}
	a.store = store
	a.closers = append(a.closers, store)

	a.client = api.NewClient(cfg.APIURL, api.WithTimeout(cfg.RequestTimeout), api.WithLogger(logger))

	sess, err := store.LoadSession(views.SessionName, timeNow())
	if err != nil && !errors.Is(err, library.ErrNoSession) {
		logger.Warn("load session", "err", err)
	}
	a.manager = library.NewLibraryManager(a.client, sess)
	return nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && a.logger != nil {
			a.logger.Warn("close", "err", err)
		}
	}
	a.closers = nil
}

// env assembles the view environment around the current manager.
func (a *app) env() *views.Env {
	return &views.Env{
		Term:     views.NewTerminal(a.in, a.out),
		Manager:  a.manager,
		Chat:     chat.NewService(a.manager.Client(), a.cfg.ChatTimeout),
		Store:    a.store,
		Logger:   a.logger,
		Currency: a.cfg.Currency,
		Now:      timeNow,
	}
}

func (a *app) signedIn() bool { return a.manager.Session().Valid(timeNow()) }

func (a *app) requireSession(*cobra.Command, []string) error {
	if !a.signedIn() {
		return errNotSignedIn
	}
	return nil
}

// signIn binds sess to a fresh manager.
func (a *app) signIn(sess *library.Session) {
	a.manager = library.NewLibraryManager(a.client, sess)
}

// signOut forgets the stored session and closes the live one.
func (a *app) signOut() {
	if err := a.store.DeleteSession(views.SessionName); err != nil {
		a.logger.Warn("delete session", "err", err)
	}
	a.manager.Logout()
	a.manager = library.NewLibraryManager(a.client, nil)
}

// shell is the interactive client: the login page until a session exists,
// then the navigation menu until the user quits.
func (a *app) shell(ctx context.Context) error {
	for {
		if !a.signedIn() {
			sess, err := views.LoginPage(ctx, a.env())
			if errors.Is(err, views.ErrLoginAborted) {
				return nil
			}
			if err != nil {
				return err
			}
			a.signIn(sess)
		}

		env := a.env()
		nav := views.Navigation{
			Env:      env,
			Screens:  views.DefaultScreens(),
			Boundary: views.ErrorBoundary{Term: env.Term, Logger: a.logger},
		}
		route, err := nav.Run(ctx, views.RouteDashboard)
		if err != nil {
			return err
		}
		if route != views.RouteLogout {
			return nil
		}
		a.signOut()
		fmt.Fprintln(a.out, "👋 Signed out.")
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, a := newRootCmd(os.Stdin, os.Stdout)
	err := root.ExecuteContext(ctx)
	a.close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
