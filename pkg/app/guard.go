package app

import (
	"fmt"
	"io"
	"sync"

	"go.uber.org/multierr"
)

// guard closes a resource at most once.
type guard struct {
	name string
	c    io.Closer
	once sync.Once
	err  error
}

func newGuard(name string, c io.Closer) *guard {
	return &guard{name: name, c: c}
}

// Close closes the resource on the first call and returns the same result
// on later calls.
func (g *guard) Close() error {
	g.once.Do(func() {
		if err := g.c.Close(); err != nil {
			g.err = fmt.Errorf("close %s: %w", g.name, err)
		}
	})
	return g.err
}

// closeAll closes guards in reverse order of acquisition.
func closeAll(guards []*guard) error {
	var err error
	for i := len(guards) - 1; i >= 0; i-- {
		err = multierr.Append(err, guards[i].Close())
	}
	return err
}
