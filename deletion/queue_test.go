package deletion

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

type namedRelease struct {
	name     string
	released *[]string
}

func (r namedRelease) Release() {
	*r.released = append(*r.released, r.name)
}

func testQueue() *Queue {
	return NewQueue(slog.New(slog.NewTextHandler(io.Discard)), "test")
}

func TestFlushReleasesInReverseOrder(t *testing.T) {
	queue := testQueue()

	var released []string
	queue.Push(namedRelease{name: "A", released: &released})
	queue.PushFunc(func() { released = append(released, "B") })
	queue.Push(namedRelease{name: "C", released: &released})
	require.Equal(t, 3, queue.Len())
	require.NoError(t, queue.Validate())

	queue.Flush()
	require.Equal(t, []string{"C", "B", "A"}, released)
	require.Equal(t, 0, queue.Len())

	queue.Flush()
	require.Equal(t, []string{"C", "B", "A"}, released)
}

func TestReleasesPushedDuringFlush(t *testing.T) {
	queue := testQueue()

	var released []string
	queue.PushFunc(func() { released = append(released, "A") })
	queue.PushFunc(func() {
		released = append(released, "B")
		queue.PushFunc(func() { released = append(released, "B.child") })
	})

	queue.Flush()
	require.Equal(t, []string{"B", "B.child", "A"}, released)
	require.Equal(t, 0, queue.Len())
}

func TestValidateRejectsNilRelease(t *testing.T) {
	queue := testQueue()
	queue.entries = append(queue.entries, nil)

	require.Error(t, queue.Validate())
}

func TestValidateRejectsNilReleaseFunc(t *testing.T) {
	queue := testQueue()
	queue.entries = append(queue.entries, ReleaseFunc(nil))

	require.Error(t, queue.Validate())
}

func TestPushFuncIsValidated(t *testing.T) {
	queue := testQueue()

	pushNil := func() { queue.PushFunc(nil) }
	if debugValidation {
		require.Panics(t, pushNil)
	} else {
		require.NotPanics(t, pushNil)
		require.Error(t, queue.Validate())
	}
}

func TestQueueIsReusableAfterFlush(t *testing.T) {
	queue := testQueue()

	count := 0
	for i := 0; i < 3; i++ {
		queue.PushFunc(func() { count++ })
		queue.PushFunc(func() { count++ })
		queue.Flush()
	}
	require.Equal(t, 6, count)
	require.Equal(t, "test", queue.Name())
}
