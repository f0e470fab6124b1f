// Package dedupe collapses concurrent runs of the same keyed operation.
//
// It wraps golang.org/x/sync/singleflight with context handling: the shared
// run is detached from any one caller's cancellation, and each caller stops
// waiting as soon as its own context is done.
package dedupe

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Group deduplicates operations by key. The zero value is ready to use.
type Group struct {
	g singleflight.Group
}

// Do runs fn once for all concurrent callers passing the same key and returns
// its error to each of them. fn receives the first caller's context without
// its cancellation, keeping its values and leaving timeouts to the transport.
// A caller whose ctx ends first gets ctx.Err(); the run itself continues.
func (g *Group) Do(ctx context.Context, key string, fn func(context.Context) error) error {
	ch := g.g.DoChan(key, func() (any, error) {
		return nil, fn(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}
