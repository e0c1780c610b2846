package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// Remember returns the cached value for key, or calls fetch, caches its
// JSON encoding and returns the fresh value.
//
// A blob that no longer decodes into T is treated as a miss. Concurrent
// misses for the same key in this process share one fetch. A failed fetch
// is not cached.
//
// The shared fetch runs detached from the caller's cancellation, so one
// caller giving up does not fail the others; each caller still returns as
// soon as its own ctx is done. Per-attempt timeouts belong to fetch.
func Remember[T any](ctx context.Context, c *Cache, key string, fetch func(context.Context) (T, error)) (T, error) {
	var zero T

	blob, ok, err := c.Get(ctx, key)
	if err != nil {
		return zero, err
	}
	if ok {
		var v T
		if err := json.Unmarshal(blob, &v); err == nil {
			return v, nil
		}
		slog.WarnContext(ctx, "store: undecodable cache entry, refetching", "key", key)
	}

	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		fresh, err := fetch(shared)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(fresh)
		if err != nil {
			return nil, fmt.Errorf("store: encode %s: %w", key, err)
		}
		if err := c.Set(shared, key, data); err != nil {
			// The fresh value is still good for this request.
			slog.WarnContext(shared, "store: cache write failed", "key", key, "error", err)
		}
		return fresh, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}
