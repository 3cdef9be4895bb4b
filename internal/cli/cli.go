package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"

	"github.com/injunweb/injunctl/internal/app"
	"github.com/injunweb/injunctl/internal/config"
	"github.com/injunweb/injunctl/internal/domain"
	"github.com/injunweb/injunctl/internal/guard"
)

var (
	errLoginRequired   = errors.New("login required")
	errAdminRequired   = errors.New("admin access required")
	errAlreadyLoggedIn = errors.New("already logged in, run `injunctl logout` first")
)

type cli struct {
	cfg     config.ClientConfig
	log     *slog.Logger
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
	appOpts []app.Option

	in *bufio.Reader
}

// withApp wires an App, enters the dashboard location the command belongs
// to and runs fn. An empty location skips the guard.
func (c *cli) withApp(ctx context.Context, name, location string, fn func(context.Context, *app.App) error) int {
	a, err := app.New(c.cfg, c.log, c.appOpts...)
	if err != nil {
		fprintln(c.stderr, name+" error:", err)
		return 1
	}
	defer a.Close()

	if location != "" {
		if err := enter(a, location); err != nil {
			return c.fail(name, a, err)
		}
	}
	return c.fail(name, a, fn(ctx, a))
}

// withAppAt is withApp for a route with one path variable.
func (c *cli) withAppAt(ctx context.Context, name, route, param, id string, fn func(context.Context, *app.App) error) int {
	loc, err := location(route, param, id)
	if err != nil {
		return c.fail(name, nil, err)
	}
	return c.withApp(ctx, name, loc, fn)
}

// enter navigates to location and turns a guard redirect into the error
// the command reports. A denied login leaves the location preserved for
// after the next login.
func enter(a *app.App, location string) error {
	res, err := a.Nav.Navigate(location)
	if err != nil {
		return err
	}
	if !res.Redirected() {
		return nil
	}
	switch {
	case res.Path == guard.LoginPath:
		return errLoginRequired
	case res.Denied.Kind == guard.AdminOnly:
		return errAdminRequired
	case res.Denied.Kind == guard.PublicOnly:
		return errAlreadyLoggedIn
	default:
		return fmt.Errorf("redirected to %s", res.Path)
	}
}

var dashboard = guard.NewRouter(guard.DefaultRoutes())

// location builds the dashboard location of a named route. A value that
// cannot form a path segment is reported as invalid input.
func location(route, name, id string) (string, error) {
	loc, err := dashboard.URL(route, name, id)
	if err != nil || strings.TrimSpace(id) == "" {
		return "", invalidf("invalid id %q", id)
	}
	return loc, nil
}

func (c *cli) fail(name string, a *app.App, err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		fprintln(c.stderr, name+" canceled")
		return 130
	case errors.Is(err, errLoginRequired), errors.Is(err, errAdminRequired):
		fprintln(c.stderr, err)
		return 1
	case a != nil && a.SessionExpired():
		fprintln(c.stderr, "session expired, please log in again")
		return 1
	case errors.Is(err, domain.ErrInvalidInput):
		fprintln(c.stderr, name+" error:", err)
		return 2
	default:
		fprintln(c.stderr, name+" error:", err)
		return 1
	}
}

func (c *cli) flagSet(name, usage string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(c.stderr)
	fs.Usage = func() {
		fprintln(c.stderr, "usage: injunctl", usage)
		fs.PrintDefaults()
	}
	return fs
}

// parse reports ok=false with the exit code when the command must stop.
func (c *cli) parse(fs *pflag.FlagSet, args []string) (int, bool) {
	err := fs.Parse(args)
	if errors.Is(err, pflag.ErrHelp) {
		return 0, false
	}
	if err != nil {
		return 2, false
	}
	return 0, true
}

func (c *cli) usage(line string) int {
	fprintln(c.stderr, "usage: injunctl", line)
	return 2
}

func (c *cli) unknown(group, sub string) int {
	fprintln(c.stderr, "unknown "+group+" command:", sub)
	return 2
}

func (c *cli) reader() *bufio.Reader {
	if c.in == nil {
		c.in = bufio.NewReader(c.stdin)
	}
	return c.in
}

func (c *cli) interactive() bool {
	return isTerminal(c.stdin)
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, fmt.Sprintf(format, args...))
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func fprintf(w io.Writer, format string, a ...any) {
	_, _ = fmt.Fprintf(w, format, a...)
}
