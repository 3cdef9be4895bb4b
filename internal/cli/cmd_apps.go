package cli

import (
	"context"
	"io"

	"github.com/injunweb/injunctl/internal/app"
	"github.com/injunweb/injunctl/internal/domain"
)

func (c *cli) runApps(ctx context.Context, args []string) int {
	if len(args) == 0 {
		return c.usage("apps list|show|submit|delete|hostname")
	}
	switch args[0] {
	case "list", "ls":
		return c.runAppsList(ctx, args[1:])
	case "show", "get":
		if len(args) != 2 {
			return c.usage("apps show ID")
		}
		id := args[1]
		return c.withAppAt(ctx, "apps show", "application", "appId", id, func(ctx context.Context, a *app.App) error {
			got, err := a.Applications.Get(ctx, id)
			if err != nil {
				return err
			}
			return c.render(got, func(w io.Writer) error { return writeApplication(w, got) })
		})
	case "submit", "new":
		return c.runAppsSubmit(ctx, args[1:])
	case "delete", "rm":
		return c.runAppsDelete(ctx, args[1:])
	case "hostname", "hostnames":
		return c.runAppsHostname(ctx, args[1:])
	default:
		return c.unknown("apps", args[0])
	}
}

func (c *cli) runAppsList(ctx context.Context, args []string) int {
	fs := c.flagSet("apps list", "apps list [--refresh]")
	refresh := false
	fs.BoolVar(&refresh, "refresh", refresh, "Ignore cached data")
	if code, ok := c.parse(fs, args); !ok {
		return code
	}
	if fs.NArg() != 0 {
		return c.usage("apps list [--refresh]")
	}
	return c.withApp(ctx, "apps list", "/applications", func(ctx context.Context, a *app.App) error {
		list := a.Applications.List
		if refresh {
			list = a.Applications.Refresh
		}
		apps, err := list(ctx)
		if err != nil {
			return err
		}
		return c.render(apps, func(w io.Writer) error { return writeApplications(w, apps, false) })
	})
}

func (c *cli) runAppsSubmit(ctx context.Context, args []string) int {
	const usage = "apps submit --name N --git-url URL --port P [--branch B] [--description D]"
	fs := c.flagSet("apps submit", usage)
	var req domain.SubmitApplicationRequest
	fs.StringVar(&req.Name, "name", "", "Application name")
	fs.StringVar(&req.GitURL, "git-url", "", "Git repository URL")
	fs.IntVar(&req.Port, "port", 0, "Port the application listens on")
	fs.StringVar(&req.Branch, "branch", "main", "Git branch to deploy")
	fs.StringVar(&req.Description, "description", "", "Short description")
	if code, ok := c.parse(fs, args); !ok {
		return code
	}
	if fs.NArg() != 0 {
		return c.usage(usage)
	}
	return c.withApp(ctx, "apps submit", "/applications/new", func(ctx context.Context, a *app.App) error {
		if err := a.Applications.Submit(ctx, req); err != nil {
			return err
		}
		c.message("Application %s submitted and awaiting approval.", req.Name)
		return nil
	})
}

func (c *cli) runAppsDelete(ctx context.Context, args []string) int {
	fs := c.flagSet("apps delete", "apps delete ID [--yes]")
	yes := false
	fs.BoolVarP(&yes, "yes", "y", yes, "Do not ask for confirmation")
	if code, ok := c.parse(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		return c.usage("apps delete ID [--yes]")
	}
	id := fs.Arg(0)
	return c.withAppAt(ctx, "apps delete", "application", "appId", id, func(ctx context.Context, a *app.App) error {
		if !yes {
			if !c.interactive() {
				return invalidf("refusing to delete without --yes")
			}
			ok, err := confirm(c.reader(), c.stderr, "Delete application "+id+"?")
			if err != nil {
				return err
			}
			if !ok {
				c.message("Aborted.")
				return nil
			}
		}
		if err := a.Applications.Delete(ctx, id); err != nil {
			return err
		}
		c.message("Application %s deleted.", id)
		return nil
	})
}

func (c *cli) runAppsHostname(ctx context.Context, args []string) int {
	if len(args) != 3 {
		return c.usage("apps hostname add|remove ID HOST")
	}
	op, id, host := args[0], args[1], args[2]
	if op != "add" && op != "remove" {
		return c.unknown("apps hostname", op)
	}
	return c.withAppAt(ctx, "apps hostname "+op, "application", "appId", id, func(ctx context.Context, a *app.App) error {
		if op == "add" {
			if err := a.Applications.AddHostname(ctx, id, host); err != nil {
				return err
			}
			c.message("Hostname %s added.", host)
			return nil
		}
		if err := a.Applications.RemoveHostname(ctx, id, host); err != nil {
			return err
		}
		c.message("Hostname %s removed.", host)
		return nil
	})
}
