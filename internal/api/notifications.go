package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/injunweb/injunctl/internal/domain"
)

// ListNotifications returns the inbox and its unread count.
func (c *Client) ListNotifications(ctx context.Context) (domain.NotificationList, error) {
	var out domain.NotificationList
	if err := c.do(ctx, "list notifications", http.MethodGet, "/notifications", nil, &out); err != nil {
		return domain.NotificationList{}, err
	}
	out.Notifications = nonNil(out.Notifications)
	return out, nil
}

// MarkNotificationsRead marks the whole inbox as read.
func (c *Client) MarkNotificationsRead(ctx context.Context) error {
	return c.do(ctx, "mark notifications read", http.MethodPost, "/notifications/read", nil, nil)
}

// DeleteNotification removes one notification.
func (c *Client) DeleteNotification(ctx context.Context, id string) error {
	p, err := pathID(id)
	if err != nil {
		return err
	}
	return c.do(ctx, "delete notification", http.MethodDelete, "/notifications/"+p, nil, nil)
}

// Subscribe registers a push subscription for the logged-in user.
func (c *Client) Subscribe(ctx context.Context, sub domain.PushSubscription) error {
	return c.do(ctx, "subscribe", http.MethodPost, "/notifications/subscribe", sub, nil)
}

// VAPIDPublicKey returns the server's push application key.
func (c *Client) VAPIDPublicKey(ctx context.Context) (string, error) {
	var out domain.VAPIDKeyResponse
	if err := c.do(ctx, "get vapid key", http.MethodGet, "/notifications/vapid-public-key", nil, &out); err != nil {
		return "", err
	}
	if out.VAPIDPublicKey == "" {
		return "", errors.New("get vapid key: server returned an empty key")
	}
	return out.VAPIDPublicKey, nil
}
