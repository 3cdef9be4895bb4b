package cli

import (
	"context"
	"io"

	"github.com/injunweb/injunctl/internal/app"
	"github.com/injunweb/injunctl/internal/domain"
)

const notificationsPath = "/notifications"

func (c *cli) runNotifications(ctx context.Context, args []string) int {
	if len(args) == 0 {
		return c.usage("notifications list|read|delete|subscribe|vapid-key")
	}
	sub, rest := args[0], args[1:]
	name := "notifications " + sub

	switch sub {
	case "list", "ls":
		if len(rest) != 0 {
			return c.usage("notifications list")
		}
		return c.withApp(ctx, name, notificationsPath, func(ctx context.Context, a *app.App) error {
			list, err := a.Notifications.List(ctx)
			if err != nil {
				return err
			}
			return c.render(list, func(w io.Writer) error { return writeNotifications(w, list) })
		})
	case "read":
		if len(rest) != 0 {
			return c.usage("notifications read")
		}
		return c.withApp(ctx, name, notificationsPath, func(ctx context.Context, a *app.App) error {
			if err := a.Notifications.MarkAllRead(ctx); err != nil {
				return err
			}
			c.message("All notifications marked read.")
			return nil
		})
	case "delete", "rm":
		if len(rest) != 1 {
			return c.usage("notifications delete ID")
		}
		id := rest[0]
		return c.withApp(ctx, name, notificationsPath, func(ctx context.Context, a *app.App) error {
			if err := a.Notifications.Delete(ctx, id); err != nil {
				return err
			}
			c.message("Notification %s deleted.", id)
			return nil
		})
	case "subscribe":
		return c.runNotificationsSubscribe(ctx, rest)
	case "vapid-key":
		if len(rest) != 0 {
			return c.usage("notifications vapid-key")
		}
		return c.withApp(ctx, name, notificationsPath, func(ctx context.Context, a *app.App) error {
			key, err := a.Notifications.PublicKey(ctx)
			if err != nil {
				return err
			}
			return c.render(domain.VAPIDKeyResponse{VAPIDPublicKey: key}, func(w io.Writer) error {
				fprintln(w, key)
				return nil
			})
		})
	default:
		return c.unknown("notifications", sub)
	}
}

func (c *cli) runNotificationsSubscribe(ctx context.Context, args []string) int {
	const usage = "notifications subscribe --endpoint URL --p256dh KEY --auth SECRET"
	fs := c.flagSet("notifications subscribe", usage)
	var sub domain.PushSubscription
	fs.StringVar(&sub.Endpoint, "endpoint", "", "Push service endpoint (https)")
	fs.StringVar(&sub.Keys.P256dh, "p256dh", "", "Client public key")
	fs.StringVar(&sub.Keys.Auth, "auth", "", "Client auth secret")
	if code, ok := c.parse(fs, args); !ok {
		return code
	}
	if fs.NArg() != 0 {
		return c.usage(usage)
	}
	return c.withApp(ctx, "notifications subscribe", notificationsPath, func(ctx context.Context, a *app.App) error {
		if err := a.Notifications.Subscribe(ctx, sub); err != nil {
			return err
		}
		c.message("Push endpoint registered.")
		return nil
	})
}
