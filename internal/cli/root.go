// Package cli is the injunctl command-line front end. Every command maps to
// a dashboard page: it enters that page's route through the navigator
// before touching the API, so login and admin guards apply the same way
// they do in the browser.
package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/injunweb/injunctl/internal/app"
	"github.com/injunweb/injunctl/internal/config"
	"github.com/injunweb/injunctl/internal/log"
)

// Run is the main CLI entry point. It parses args and dispatches to the
// appropriate subcommand, returning a process exit code.
func Run(args []string) int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	loadInjunwebEnvFromDotEnv(".env")
	return run(ctx, args, os.Stdin, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, appOpts ...app.Option) int {
	cfg, rest, err := config.ParseGlobalFlags(args)
	if errors.Is(err, pflag.ErrHelp) {
		printUsage(stdout)
		return 0
	}
	if err != nil {
		fprintln(stderr, "error:", err)
		return 2
	}

	c := &cli{
		cfg:     cfg,
		log:     log.NewWriter(stderr, cfg.LogLevel),
		stdin:   stdin,
		stdout:  stdout,
		stderr:  stderr,
		appOpts: append([]app.Option{app.WithUserAgent("injunctl/" + Version)}, appOpts...),
	}
	return c.dispatch(ctx, rest)
}

func (c *cli) dispatch(ctx context.Context, args []string) int {
	if len(args) == 0 {
		printUsage(c.stderr)
		return 2
	}

	switch args[0] {
	case "login":
		return c.runLogin(ctx, args[1:])
	case "register":
		return c.runRegister(ctx, args[1:])
	case "logout":
		return c.runLogout(ctx, args[1:])
	case "whoami":
		return c.runWhoami(ctx, args[1:])
	case "status":
		return c.runStatus(ctx, args[1:])
	case "profile":
		return c.runProfile(ctx, args[1:])
	case "apps", "app", "applications":
		return c.runApps(ctx, args[1:])
	case "env":
		return c.runEnv(ctx, args[1:])
	case "admin":
		return c.runAdmin(ctx, args[1:])
	case "notifications", "notification":
		return c.runNotifications(ctx, args[1:])
	case "version", "--version", "-v":
		printVersion(c.stdout)
		return 0
	case "-h", "--help", "help":
		printUsage(c.stdout)
		return 0
	default:
		fprintln(c.stderr, "unknown command:", args[0])
		printUsage(c.stderr)
		return 2
	}
}
