package frames

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/extensions/v2/khr_swapchain"
	"github.com/vkngwrapper/lifecycle/descriptors"
	"github.com/vkngwrapper/lifecycle/device"
	"github.com/vkngwrapper/lifecycle/device/devicetest"
	"github.com/vkngwrapper/lifecycle/gpuutils"
	"golang.org/x/exp/slices"
	"golang.org/x/exp/slog"
)

type mockPresenter struct {
	mock.Mock
}

func (p *mockPresenter) Acquire(timeout time.Duration, signal device.Semaphore) (int, common.VkResult, error) {
	args := p.Called(timeout, signal)
	return args.Int(0), args.Get(1).(common.VkResult), args.Error(2)
}

func (p *mockPresenter) Present(imageIndex int, wait device.Semaphore) (common.VkResult, error) {
	args := p.Called(imageIndex, wait)
	return args.Get(0).(common.VkResult), args.Error(1)
}

func (p *mockPresenter) Recreate() error {
	return p.Called().Error(0)
}

func workingPresenter() *mockPresenter {
	presenter := &mockPresenter{}
	presenter.On("Acquire", mock.Anything, mock.Anything).Return(0, core1_0.VKSuccess, nil)
	presenter.On("Present", mock.Anything, mock.Anything).Return(core1_0.VKSuccess, nil)
	return presenter
}

func readyRing(t *testing.T, presenter Presenter) (*devicetest.Device, *Ring) {
	dev := devicetest.New()
	ring, err := New(slog.New(slog.NewTextHandler(io.Discard)), dev, presenter, CreateOptions{
		DescriptorHint: 4,
		DescriptorRatios: []descriptors.PoolSizeRatio{
			{Type: core1_0.DescriptorTypeUniformBuffer, Ratio: 1},
		},
	})
	require.NoError(t, err)
	return dev, ring
}

func drawFrame(t *testing.T, ring *Ring) *Frame {
	frame, err := ring.BeginFrame()
	require.NoError(t, err)
	require.NotNil(t, frame)
	require.NoError(t, ring.EndFrame())
	return frame
}

func eventIndex(t *testing.T, events []string, event string, occurrence int) int {
	seen := 0
	for i, e := range events {
		if e == event {
			if seen == occurrence {
				return i
			}
			seen++
		}
	}
	require.Failf(t, "missing event", "%q occurrence %d not found in %v", event, occurrence, events)
	return -1
}

func TestRingWrapsAround(t *testing.T) {
	presenter := workingPresenter()
	dev, ring := readyRing(t, presenter)
	require.Equal(t, DefaultFramesInFlight, ring.FramesInFlight())

	var indices []int
	for i := 0; i < 7; i++ {
		frame := drawFrame(t, ring)
		require.Equal(t, uint64(i), frame.Number())
		indices = append(indices, frame.Index())

		require.LessOrEqual(t, dev.Pending(), 3)
		require.LessOrEqual(t, ring.InFlight(), 3)
	}

	require.Equal(t, []int{0, 1, 2, 0, 1, 2, 0}, indices)
	require.Equal(t, uint64(7), ring.FrameNumber())
	require.LessOrEqual(t, dev.MaxPending(), 3)

	// Slot 0's first submission must be complete before its commands are reset for frame 3
	signaled := eventIndex(t, dev.Events, "gpu signal fence0", 0)
	reused := eventIndex(t, dev.Events, "reset commands0", 1)
	require.Less(t, signaled, reused)
	require.Less(t, eventIndex(t, dev.Events, "wait fence0", 1), signaled)

	presenter.AssertNumberOfCalls(t, "Present", 7)
}

func TestSubmissionWiring(t *testing.T) {
	presenter := workingPresenter()
	dev, ring := readyRing(t, presenter)

	frame, err := ring.BeginFrame()
	require.NoError(t, err)
	require.Equal(t, SlotStateRecording, ring.SlotState(0))
	require.NoError(t, ring.EndFrame())
	require.Equal(t, SlotStateSubmitted, ring.SlotState(0))

	require.Len(t, dev.Submitted, 1)
	submission := dev.Submitted[0]
	require.Equal(t, frame.Commands(), submission.Commands)
	require.Equal(t, device.Semaphore(dev.Semaphores[0]), submission.Wait)
	require.Equal(t, device.Semaphore(dev.Semaphores[1]), submission.Signal)
	require.Equal(t, device.Fence(dev.Fences[0]), submission.Fence)

	presenter.AssertCalled(t, "Acquire", DefaultFenceTimeout, device.Semaphore(dev.Semaphores[0]))
	presenter.AssertCalled(t, "Present", 0, device.Semaphore(dev.Semaphores[1]))
}

func TestSlotResourcesAreReleasedAfterCompletion(t *testing.T) {
	dev, ring := readyRing(t, workingPresenter())

	frame, err := ring.BeginFrame()
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = frame.Descriptors().Allocate(nil)
		require.NoError(t, err)
	}
	frame.Deletion().PushFunc(func() {
		dev.Events = append(dev.Events, "release frame0")
	})
	require.NoError(t, ring.EndFrame())

	drawFrame(t, ring)
	drawFrame(t, ring)
	require.Equal(t, 1, frame.Deletion().Len())

	reused, err := ring.BeginFrame()
	require.NoError(t, err)
	require.Equal(t, 0, reused.Index())
	require.Same(t, frame.Descriptors(), reused.Descriptors())

	require.Equal(t, 0, reused.Deletion().Len())
	require.Less(t, eventIndex(t, dev.Events, "gpu signal fence0", 0), eventIndex(t, dev.Events, "release frame0", 0))

	pool := dev.DescriptorPools[0]
	require.Equal(t, 0, pool.Allocated)
	require.Equal(t, 2, pool.Resets)
	require.NoError(t, ring.EndFrame())
}

func TestOutOfDateAcquireAbandonsFrame(t *testing.T) {
	presenter := &mockPresenter{}
	presenter.On("Acquire", mock.Anything, mock.Anything).Return(0, khr_swapchain.VKErrorOutOfDate, nil).Once()
	presenter.On("Acquire", mock.Anything, mock.Anything).Return(1, core1_0.VKSuccess, nil)
	presenter.On("Present", mock.Anything, mock.Anything).Return(core1_0.VKSuccess, nil)
	presenter.On("Recreate").Return(nil)
	dev, ring := readyRing(t, presenter)

	frame, err := ring.BeginFrame()
	require.NoError(t, err)
	require.Nil(t, frame)
	require.True(t, ring.ResizeRequested())
	require.Equal(t, uint64(0), ring.FrameNumber())

	// The fence was not reset, so a retry does not deadlock
	require.True(t, dev.Fences[0].Signaled())
	require.Empty(t, dev.Submitted)

	require.NoError(t, ring.Resize())
	require.False(t, ring.ResizeRequested())
	require.Equal(t, 1, dev.WaitIdleCalls())
	presenter.AssertNumberOfCalls(t, "Recreate", 1)

	frame = drawFrame(t, ring)
	require.Equal(t, uint64(0), frame.Number())
	require.Equal(t, 0, frame.Index())
	require.Equal(t, 1, frame.ImageIndex())
}

func TestStalePresentRequestsResize(t *testing.T) {
	presenter := &mockPresenter{}
	presenter.On("Acquire", mock.Anything, mock.Anything).Return(0, core1_0.VKSuccess, nil)
	presenter.On("Present", mock.Anything, mock.Anything).Return(khr_swapchain.VKSuboptimal, nil).Once()
	presenter.On("Present", mock.Anything, mock.Anything).Return(khr_swapchain.VKErrorOutOfDate, khr_swapchain.VKErrorOutOfDate.ToError()).Once()
	_, ring := readyRing(t, presenter)

	drawFrame(t, ring)
	require.True(t, ring.ResizeRequested())
	require.Equal(t, uint64(1), ring.FrameNumber())

	drawFrame(t, ring)
	require.True(t, ring.ResizeRequested())
	require.Equal(t, uint64(2), ring.FrameNumber())
}

func TestHungGPUIsFatal(t *testing.T) {
	dev, ring := readyRing(t, workingPresenter())
	dev.HangGPU = true

	for i := 0; i < 3; i++ {
		drawFrame(t, ring)
	}

	_, err := ring.BeginFrame()
	require.Error(t, err)
	require.True(t, gpuutils.IsFatal(err))
	require.Equal(t, uint64(3), ring.FrameNumber())
}

func TestFailedAcquireIsFatal(t *testing.T) {
	presenter := &mockPresenter{}
	presenter.On("Acquire", mock.Anything, mock.Anything).Return(0, core1_0.VKErrorDeviceLost, core1_0.VKErrorDeviceLost.ToError())
	_, ring := readyRing(t, presenter)

	_, err := ring.BeginFrame()
	require.True(t, gpuutils.IsFatal(err))
}

func TestFrameCallOrdering(t *testing.T) {
	_, ring := readyRing(t, workingPresenter())

	require.Error(t, ring.EndFrame())

	_, err := ring.BeginFrame()
	require.NoError(t, err)
	_, err = ring.BeginFrame()
	require.Error(t, err)
	require.False(t, gpuutils.IsFatal(err))
	require.Error(t, ring.Resize())

	require.NoError(t, ring.EndFrame())
}

func TestDestroy(t *testing.T) {
	dev, ring := readyRing(t, workingPresenter())

	var released []int
	for i := 0; i < 4; i++ {
		frame, err := ring.BeginFrame()
		require.NoError(t, err)
		index := frame.Index()
		frame.Deletion().PushFunc(func() { released = append(released, index) })
		require.NoError(t, ring.EndFrame())
	}

	require.NoError(t, ring.Destroy())
	require.Equal(t, 0, dev.Pending())
	require.Equal(t, 3*4, dev.Destroyed())
	for _, pool := range dev.DescriptorPools {
		require.True(t, pool.Destroyed())
	}

	slices.Sort(released)
	require.Equal(t, []int{0, 0, 1, 2}, released)

	_, err := ring.BeginFrame()
	require.Error(t, err)
}

func TestFailedCreationCleansUp(t *testing.T) {
	dev := devicetest.New()
	dev.FailDescriptorPoolCreation = true

	_, err := New(slog.New(slog.NewTextHandler(io.Discard)), dev, workingPresenter(), CreateOptions{})
	require.True(t, gpuutils.IsFatal(err))
	require.Equal(t, 4, dev.Destroyed())

	dev = devicetest.New()
	dev.FailFenceCreation = true
	_, err = New(slog.New(slog.NewTextHandler(io.Discard)), dev, workingPresenter(), CreateOptions{})
	require.True(t, gpuutils.IsFatal(err))
	require.Equal(t, 1, dev.Destroyed())
}

func TestSlotStateString(t *testing.T) {
	require.Equal(t, "Submitted", SlotStateSubmitted.String())
}
