// Package workflow implements the multi-document order operations: creating
// an order from line items and deleting an order with its line items.
package workflow

import (
	"errors"

	"golang.org/x/sync/errgroup"
)

// FanOut runs fn(i) for every i in [0, n) concurrently and waits for all of
// them to return. A failing call does not cancel its siblings; the first
// error is returned.
func FanOut(n int, fn func(i int) error) error {
	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error { return fn(i) })
	}
	return g.Wait()
}

// FanOutAll is FanOut but joins every error instead of keeping the first.
func FanOutAll(n int, fn func(i int) error) error {
	errs := make([]error, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			errs[i] = fn(i)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
