package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/injunweb/injunctl/internal/domain"
)

type snapshot struct {
	entry entry
	ok    bool
	epoch uint64
}

// Optimistic runs mutate with an optimistic local update of key.
//
// The cached value is snapshotted and replaced by update(current) before
// mutate runs, so readers see the expected result immediately. If mutate
// fails the snapshot is restored exactly, unless the cache was cleared
// while mutate ran. Either way key is then
// invalidated and refetched to reconcile with the server. The mutation
// error is returned; a failed refetch is only logged.
//
// update must not modify its argument in place. When key is not cached
// there is nothing to update and only the mutation and refetch run.
func Optimistic[T any](
	ctx context.Context,
	c *Cache,
	key Key,
	update func(T) T,
	mutate func(context.Context) error,
	refetch func(context.Context) (T, error),
) error {
	current, cached := Peek[T](ctx, c, key)
	snap := c.snapshot(key)
	if cached && update != nil {
		SetData(ctx, c, key, update(current))
	}

	err := mutate(ctx)
	if err != nil {
		c.restore(ctx, key, snap)
		c.log.Info("optimistic update rolled back", "key", key, "err", err)
	}

	c.Invalidate(ctx, key)
	if refetch != nil {
		if _, rerr := Refetch(ctx, c, key, refetch); rerr != nil {
			c.log.Warn("refetch after mutation failed", "key", key, "err", rerr)
		}
	}
	return err
}

func (c *Cache) snapshot(key Key) snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return snapshot{epoch: c.epoch}
	}
	return snapshot{entry: *e, ok: true, epoch: c.epoch}
}

func (c *Cache) restore(ctx context.Context, key Key, snap snapshot) {
	c.mu.Lock()
	if c.epoch != snap.epoch {
		c.mu.Unlock()
		c.log.Debug("rollback discarded after clear", "key", key)
		return
	}
	if !snap.ok {
		c.mu.Unlock()
		c.remove(ctx, key)
		return
	}
	restored := snap.entry
	c.entries[key] = &restored
	c.mu.Unlock()
	if c.backend != nil {
		c.persist(ctx, key, restored)
	}
}

// Begin marks a mutation of kind on resourceID as in flight. While it is,
// a second Begin for the same pair fails with [domain.ErrMutationInFlight].
// done releases the mark and may be called more than once.
func (c *Cache) Begin(kind, resourceID string) (done func(), err error) {
	id := kind + ":" + resourceID
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inflight[id]; busy {
		return nil, fmt.Errorf("%s %s: %w", kind, resourceID, domain.ErrMutationInFlight)
	}
	c.inflight[id] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.inflight, id)
			c.mu.Unlock()
		})
	}, nil
}
