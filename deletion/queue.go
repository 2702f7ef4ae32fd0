// Package deletion defers the release of GPU objects until the work that may still reference
// them has finished executing.
package deletion

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/lifecycle/gpuutils"
	"golang.org/x/exp/slog"
)

// Releaser frees a single GPU object or any other resource that must outlive in-flight work
type Releaser interface {
	Release()
}

// ReleaseFunc adapts a plain function into a Releaser
type ReleaseFunc func()

func (f ReleaseFunc) Release() { f() }

// Queue is a LIFO list of pending releases. Objects created later may depend on objects created
// earlier, so Flush releases them in the reverse of the order they were pushed.
//
// Queue is not synchronized: each queue is owned by a single frame slot or by the engine.
type Queue struct {
	logger  *slog.Logger
	name    string
	entries []Releaser
}

func NewQueue(logger *slog.Logger, name string) *Queue {
	return &Queue{logger: logger, name: name}
}

func (q *Queue) Name() string { return q.name }

// Push registers a release to be run on the next Flush
func (q *Queue) Push(releaser Releaser) {
	q.entries = append(q.entries, releaser)
	gpuutils.DebugValidate(q)
}

// PushFunc registers a function to be run on the next Flush
func (q *Queue) PushFunc(release func()) {
	q.Push(ReleaseFunc(release))
}

// Len is the number of releases waiting for the next Flush
func (q *Queue) Len() int {
	return len(q.entries)
}

// Flush runs every pending release, most recently pushed first, and empties the queue. Releases
// pushed by other releases while the flush is running are run by the same flush.
func (q *Queue) Flush() {
	if len(q.entries) == 0 {
		return
	}

	released := 0
	for len(q.entries) > 0 {
		last := len(q.entries) - 1
		releaser := q.entries[last]
		q.entries[last] = nil
		q.entries = q.entries[:last]

		releaser.Release()
		released++
	}

	q.logger.LogAttrs(context.Background(), slog.LevelDebug, "flushed deletion queue",
		slog.String("queue", q.name),
		slog.Int("released", released))
}

func (q *Queue) Validate() error {
	for index, entry := range q.entries {
		if entry == nil {
			return errors.Newf("deletion queue %q has a nil release at index %d", q.name, index)
		}
		if release, ok := entry.(ReleaseFunc); ok && release == nil {
			return errors.Newf("deletion queue %q has a nil release func at index %d", q.name, index)
		}
	}
	return nil
}
