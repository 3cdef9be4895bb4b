package resource

import (
	"context"
	"net/mail"
	"strings"

	"github.com/injunweb/injunctl/internal/api"
	"github.com/injunweb/injunctl/internal/cache"
	"github.com/injunweb/injunctl/internal/domain"
)

// Users is the caller's own account.
type Users struct {
	api   *api.Client
	cache *cache.Cache
}

// NewUsers returns the users resource.
func NewUsers(client *api.Client, c *cache.Cache) *Users {
	return &Users{api: client, cache: c}
}

// Me returns the caller's account.
func (u *Users) Me(ctx context.Context) (domain.User, error) {
	return cache.Query(ctx, u.cache, cache.KeyUser, u.api.GetUser)
}

// UpdateProfile changes the non-empty fields of req.
func (u *Users) UpdateProfile(ctx context.Context, req domain.UpdateUserRequest) error {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" && req.Email == "" && req.Password == "" {
		return invalid("nothing to update")
	}
	if err := validateEmail(req.Email); err != nil {
		return err
	}
	return mutate(ctx, u.cache, "update-user", "me", func(ctx context.Context) error {
		if err := u.api.UpdateUser(ctx, req); err != nil {
			return err
		}
		u.cache.Invalidate(ctx, cache.KeyUser)
		return nil
	})
}

func validateEmail(email string) error {
	if email == "" {
		return nil
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return invalid("email %q is not valid", email)
	}
	return nil
}
