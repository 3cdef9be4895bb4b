package resource

import (
	"context"
	"net/url"
	"strings"

	"github.com/injunweb/injunctl/internal/api"
	"github.com/injunweb/injunctl/internal/cache"
	"github.com/injunweb/injunctl/internal/domain"
)

// Notifications is the caller's inbox.
type Notifications struct {
	api   *api.Client
	cache *cache.Cache
}

// NewNotifications returns the notifications resource.
func NewNotifications(client *api.Client, c *cache.Cache) *Notifications {
	return &Notifications{api: client, cache: c}
}

// List returns the inbox, newest first, with the unread count.
func (n *Notifications) List(ctx context.Context) (domain.NotificationList, error) {
	return cache.Query(ctx, n.cache, cache.KeyNotifications, n.api.ListNotifications)
}

// MarkAllRead marks every notification read.
func (n *Notifications) MarkAllRead(ctx context.Context) error {
	return mutate(ctx, n.cache, "mark-notifications-read", "all", func(ctx context.Context) error {
		if err := n.api.MarkNotificationsRead(ctx); err != nil {
			return err
		}
		n.cache.Invalidate(ctx, cache.KeyNotifications)
		return nil
	})
}

// Delete removes one notification.
func (n *Notifications) Delete(ctx context.Context, id string) error {
	id, err := requireID("notification", id)
	if err != nil {
		return err
	}
	return mutate(ctx, n.cache, "delete-notification", id, func(ctx context.Context) error {
		if err := n.api.DeleteNotification(ctx, id); err != nil {
			return err
		}
		n.cache.Invalidate(ctx, cache.KeyNotifications)
		return nil
	})
}

// Subscribe registers a push endpoint for the caller.
func (n *Notifications) Subscribe(ctx context.Context, sub domain.PushSubscription) error {
	sub.Endpoint = strings.TrimSpace(sub.Endpoint)
	u, err := url.Parse(sub.Endpoint)
	if sub.Endpoint == "" || err != nil || u.Scheme != "https" || u.Host == "" {
		return invalid("push endpoint must be an https URL")
	}
	if strings.TrimSpace(sub.Keys.P256dh) == "" || strings.TrimSpace(sub.Keys.Auth) == "" {
		return invalid("push subscription keys are required")
	}
	return mutate(ctx, n.cache, "subscribe", sub.Endpoint, func(ctx context.Context) error {
		return n.api.Subscribe(ctx, sub)
	})
}

// PublicKey returns the server's VAPID public key.
func (n *Notifications) PublicKey(ctx context.Context) (string, error) {
	return cache.Query(ctx, n.cache, cache.KeyVAPIDPublicKey, n.api.VAPIDPublicKey)
}
