package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/dmitrijs2005/credcore/internal/buildinfo"
	"github.com/dmitrijs2005/credcore/internal/client/client"
	"github.com/dmitrijs2005/credcore/internal/client/config"
	"github.com/dmitrijs2005/credcore/internal/client/session"
	"github.com/dmitrijs2005/credcore/internal/dbx"
)

// ErrUsage reports a malformed command line; usage has already been printed.
var ErrUsage = errors.New("usage error")

// SessionStore is the subset of *session.Store the CLI needs.
type SessionStore interface {
	Save(ctx context.Context, s session.Session) error
	Load(ctx context.Context) (session.Session, error)
	UpdateTokens(ctx context.Context, access, refresh string) error
	Clear(ctx context.Context) error
	Close() error
}

type command struct {
	summary string
	run     func(a *App, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"register":    {"create an account", (*App).Register},
	"login":       {"log in with username and password", (*App).Login},
	"request-otp": {"ask for a one-time code by email or SMS", (*App).RequestOTP},
	"login-otp":   {"log in with a one-time code", (*App).LoginOTP},
	"refresh":     {"rotate the stored token pair", (*App).Refresh},
	"whoami":      {"show the logged-in user", (*App).WhoAmI},
	"token":       {"print the stored access token", (*App).Token},
	"admin-ping":  {"check super_user access", (*App).AdminPing},
	"logout":      {"revoke the session and forget local tokens", (*App).Logout},
	"version":     {"print build information", (*App).Version},
}

type App struct {
	timeout time.Duration
	client  client.Client
	store   SessionStore
	prompt  *prompter
	out     io.Writer
}

// NewApp dials the endpoint and opens the session database named in c.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	store, err := session.Open(ctx, c.SessionDB)
	if err != nil {
		return nil, err
	}

	apiClient, err := client.NewGRPCClient(c.ServerEndpointAddr)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	a := newApp(apiClient, store, c.RequestTimeout, os.Stdin, os.Stdout)
	a.prompt.fd = int(os.Stdin.Fd())
	return a, nil
}

func newApp(c client.Client, store SessionStore, timeout time.Duration, in io.Reader, out io.Writer) *App {
	a := &App{
		timeout: timeout,
		client:  c,
		store:   store,
		prompt:  newPrompter(in, out, -1),
		out:     out,
	}
	c.OnRotate(a.persistTokens)
	return a
}

// persistTokens keeps the session file in step with silent refreshes.
func (a *App) persistTokens(t client.Tokens) {
	ctx, cancel := dbx.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	if err := a.store.UpdateTokens(ctx, t.AccessToken, t.RefreshToken); err != nil {
		fmt.Fprintf(a.out, "warning: could not save session: %v\n", err)
	}
}

func (a *App) Close() error {
	return errors.Join(a.client.Close(), a.store.Close())
}

// Run executes the subcommand named by args[0].
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		a.usage()
		if len(args) == 0 {
			return ErrUsage
		}
		return nil
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(a.out, "unknown command %q\n", args[0])
		a.usage()
		return ErrUsage
	}

	ctx, cancel := dbx.WithTimeout(ctx, a.timeout)
	defer cancel()
	return cmd.run(a, ctx, args[1:])
}

func (a *App) Version(_ context.Context, args []string) error {
	if err := a.parse(a.flagSet("version"), args); err != nil {
		return err
	}
	buildinfo.PrintBuildData(a.out)
	return nil
}

func (a *App) usage() {
	fmt.Fprintln(a.out, "Usage: credcore-cli [-a addr] [-t seconds] [-db path] [-c config.json] <command> [flags]")
	fmt.Fprintln(a.out, "Commands:")

	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(a.out, "  %-12s %s\n", n, commands[n].summary)
	}
}

func (a *App) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

func (a *App) parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return ErrUsage
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(a.out, "unexpected arguments: %v\n", fs.Args())
		return ErrUsage
	}
	return nil
}

// resume loads the stored session into the client.
func (a *App) resume(ctx context.Context) (session.Session, error) {
	sess, err := a.store.Load(ctx)
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return sess, client.ErrNotLoggedIn
		}
		return sess, err
	}
	a.client.SetTokens(sess.AccessToken, sess.RefreshToken)
	return sess, nil
}
