// Package resource exposes the injunweb resources as cached reads and
// guarded mutations. Reads go through the shared [cache.Cache]; every
// mutation holds the in-flight mark for its resource and invalidates the
// reads it affects before returning.
package resource

import (
	"context"
	"fmt"
	"strings"

	"github.com/injunweb/injunctl/internal/cache"
	"github.com/injunweb/injunctl/internal/domain"
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, fmt.Sprintf(format, args...))
}

// mutate runs fn while holding the in-flight mark for (kind, id).
func mutate(ctx context.Context, c *cache.Cache, kind, id string, fn func(context.Context) error) error {
	done, err := c.Begin(kind, id)
	if err != nil {
		return err
	}
	defer done()
	return fn(ctx)
}

func requireID(what, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", invalid("%s id is required", what)
	}
	return id, nil
}
