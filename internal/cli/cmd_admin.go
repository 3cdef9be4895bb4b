package cli

import (
	"context"
	"io"

	"github.com/injunweb/injunctl/internal/app"
)

func (c *cli) runAdmin(ctx context.Context, args []string) int {
	if len(args) == 0 {
		return c.usage("admin users|user|user-apps|apps|app|approve|cancel-approve|primary-hostname")
	}
	sub, rest := args[0], args[1:]
	name := "admin " + sub

	oneID := func() (string, bool) {
		if len(rest) != 1 {
			return "", false
		}
		return rest[0], true
	}

	switch sub {
	case "users":
		if len(rest) != 0 {
			return c.usage("admin users")
		}
		return c.withApp(ctx, name, "/admin/users", func(ctx context.Context, a *app.App) error {
			users, err := a.Admin.Users(ctx)
			if err != nil {
				return err
			}
			return c.render(users, func(w io.Writer) error { return writeUsers(w, users) })
		})
	case "user":
		id, ok := oneID()
		if !ok {
			return c.usage("admin user ID")
		}
		return c.withAppAt(ctx, name, "admin-user", "userId", id, func(ctx context.Context, a *app.App) error {
			u, err := a.Admin.User(ctx, id)
			if err != nil {
				return err
			}
			return c.render(u, func(w io.Writer) error { return writeUser(w, u) })
		})
	case "user-apps":
		id, ok := oneID()
		if !ok {
			return c.usage("admin user-apps ID")
		}
		return c.withAppAt(ctx, name, "admin-user", "userId", id, func(ctx context.Context, a *app.App) error {
			apps, err := a.Admin.UserApplications(ctx, id)
			if err != nil {
				return err
			}
			return c.render(apps, func(w io.Writer) error { return writeApplications(w, apps, false) })
		})
	case "apps":
		if len(rest) != 0 {
			return c.usage("admin apps")
		}
		return c.withApp(ctx, name, "/admin/applications", func(ctx context.Context, a *app.App) error {
			apps, err := a.Admin.Applications(ctx)
			if err != nil {
				return err
			}
			return c.render(apps, func(w io.Writer) error { return writeApplications(w, apps, true) })
		})
	case "app":
		id, ok := oneID()
		if !ok {
			return c.usage("admin app ID")
		}
		return c.withAppAt(ctx, name, "admin-application", "appId", id, func(ctx context.Context, a *app.App) error {
			got, err := a.Admin.Application(ctx, id)
			if err != nil {
				return err
			}
			return c.render(got, func(w io.Writer) error { return writeApplication(w, got) })
		})
	case "approve", "cancel-approve":
		id, ok := oneID()
		if !ok {
			return c.usage("admin " + sub + " ID")
		}
		return c.withAppAt(ctx, name, "admin-application", "appId", id, func(ctx context.Context, a *app.App) error {
			if sub == "approve" {
				if err := a.Admin.Approve(ctx, id); err != nil {
					return err
				}
				c.message("Application %s approved.", id)
				return nil
			}
			if err := a.Admin.CancelApproval(ctx, id); err != nil {
				return err
			}
			c.message("Approval of application %s cancelled.", id)
			return nil
		})
	case "primary-hostname":
		if len(rest) != 2 {
			return c.usage("admin primary-hostname ID HOST")
		}
		id, host := rest[0], rest[1]
		return c.withAppAt(ctx, name, "admin-application", "appId", id, func(ctx context.Context, a *app.App) error {
			if err := a.Admin.SetPrimaryHostname(ctx, id, host); err != nil {
				return err
			}
			c.message("Primary hostname of application %s set to %s.", id, host)
			return nil
		})
	default:
		return c.unknown("admin", sub)
	}
}
