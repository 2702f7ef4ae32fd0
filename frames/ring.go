// Package frames paces the host against the GPU with a fixed ring of frame slots. Each slot's
// objects are only reused after the GPU has signaled that the slot's previous submission is
// complete, so at most FramesInFlight frames are ever outstanding.
package frames

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/extensions/v2/khr_swapchain"
	"github.com/vkngwrapper/lifecycle/device"
	"github.com/vkngwrapper/lifecycle/gpuutils"
	"golang.org/x/exp/slog"
)

// Presenter is the swap-managed image source frames render into
type Presenter interface {
	// Acquire requests the next presentable image and signals the provided semaphore once it
	// is ready. A stale presenter reports khr_swapchain.VKErrorOutOfDate.
	Acquire(timeout time.Duration, signal device.Semaphore) (int, common.VkResult, error)
	// Present queues the image for display once the wait semaphore is signaled
	Present(imageIndex int, wait device.Semaphore) (common.VkResult, error)
	// Recreate rebuilds the presenter's swap-managed resources. The device is idle when it
	// is called.
	Recreate() error
}

// Ring owns the frame slots and hands them out in order
type Ring struct {
	logger    *slog.Logger
	device    device.Device
	queue     device.Queue
	presenter Presenter

	slots        []*slot
	fenceTimeout time.Duration

	frameNumber     uint64
	current         *Frame
	resizeRequested bool
}

// New creates a ring and every slot it will use
func New(logger *slog.Logger, dev device.Device, presenter Presenter, options CreateOptions) (*Ring, error) {
	options = options.withDefaults()
	if options.FramesInFlight < 1 {
		return nil, errors.Newf("frames in flight must be positive, but was %d", options.FramesInFlight)
	}

	ring := &Ring{
		logger:       logger,
		device:       dev,
		queue:        dev.Queue(options.QueueFamilyIndex),
		presenter:    presenter,
		fenceTimeout: options.FenceTimeout,
	}

	for i := 0; i < options.FramesInFlight; i++ {
		s, err := newSlot(logger, dev, i, options)
		if err != nil {
			for _, created := range ring.slots {
				created.destroy()
			}
			return nil, err
		}
		ring.slots = append(ring.slots, s)
	}

	return ring, nil
}

func (r *Ring) FramesInFlight() int { return len(r.slots) }

// FrameNumber is the number the next call to BeginFrame will use
func (r *Ring) FrameNumber() uint64 { return r.frameNumber }

func (r *Ring) SlotState(index int) SlotState { return r.slots[index].state }

// InFlight is the number of slots with submitted work that has not been waited on
func (r *Ring) InFlight() int {
	count := 0
	for _, s := range r.slots {
		if s.state == SlotStateSubmitted {
			count++
		}
	}
	return count
}

// ResizeRequested reports whether the presenter went stale and Resize should be called before
// the next frame
func (r *Ring) ResizeRequested() bool { return r.resizeRequested }

// RequestResize flags the presenter for recreation, usually because the window changed size
func (r *Ring) RequestResize() { r.resizeRequested = true }

// BeginFrame waits until the next slot's previous submission has finished, releases everything
// that submission used, and acquires the next presentable image. If the presenter is out of date
// the frame is abandoned: BeginFrame requests a resize and returns a nil frame and a nil error.
func (r *Ring) BeginFrame() (*Frame, error) {
	r.logger.Debug("Ring::BeginFrame")

	if len(r.slots) == 0 {
		return nil, errors.New("BeginFrame called on a destroyed frame ring")
	}
	if r.current != nil {
		return nil, errors.Newf("BeginFrame called for frame %d while frame %d is still recording", r.frameNumber, r.current.number)
	}

	s := r.slots[r.frameNumber%uint64(len(r.slots))]

	res, err := s.renderFence.Wait(r.fenceTimeout)
	if err != nil || res != core1_0.VKSuccess {
		return nil, gpuutils.FatalResult(res, err, "failed waiting %s on frame slot %d for frame %d", r.fenceTimeout, s.index, r.frameNumber)
	}
	s.state = SlotStateIdle

	s.deletion.Flush()
	err = s.descriptors.ClearPools()
	if err != nil {
		return nil, err
	}

	imageIndex, res, err := r.presenter.Acquire(r.fenceTimeout, s.acquireSemaphore)
	switch {
	case res == khr_swapchain.VKErrorOutOfDate:
		// The fence stays signaled so the next attempt at this slot does not block
		r.resizeRequested = true
		r.logger.LogAttrs(context.Background(), slog.LevelDebug, "abandoned frame with out of date presenter",
			slog.Uint64("frame", r.frameNumber),
			slog.Int("slot", s.index))
		return nil, nil
	case res == khr_swapchain.VKSuboptimal:
		r.resizeRequested = true
	case err != nil || res != core1_0.VKSuccess:
		return nil, gpuutils.FatalResult(res, err, "failed to acquire an image for frame %d", r.frameNumber)
	}

	res, err = s.renderFence.Reset()
	if err != nil || res != core1_0.VKSuccess {
		return nil, gpuutils.FatalResult(res, err, "failed to reset the render fence on frame slot %d", s.index)
	}

	res, err = s.commands.Reset()
	if err != nil || res != core1_0.VKSuccess {
		return nil, gpuutils.FatalResult(res, err, "failed to reset commands on frame slot %d", s.index)
	}

	res, err = s.commands.Begin()
	if err != nil || res != core1_0.VKSuccess {
		return nil, gpuutils.FatalResult(res, err, "failed to begin commands on frame slot %d", s.index)
	}

	s.state = SlotStateRecording
	r.current = &Frame{
		slot:       s,
		number:     r.frameNumber,
		imageIndex: imageIndex,
	}
	return r.current, nil
}

// EndFrame submits the current frame's commands and presents its image. The submission waits
// on the acquired image and signals the slot's fence when the GPU finishes with it.
func (r *Ring) EndFrame() error {
	r.logger.Debug("Ring::EndFrame")

	frame := r.current
	if frame == nil {
		return errors.New("EndFrame called without a frame in progress")
	}
	r.current = nil
	s := frame.slot

	res, err := s.commands.End()
	if err != nil || res != core1_0.VKSuccess {
		return gpuutils.FatalResult(res, err, "failed to end commands on frame slot %d", s.index)
	}

	res, err = r.queue.Submit(device.Submission{
		Commands: s.commands,
		Wait:     s.acquireSemaphore,
		Signal:   s.presentSemaphore,
		Fence:    s.renderFence,
	})
	if err != nil || res != core1_0.VKSuccess {
		return gpuutils.FatalResult(res, err, "failed to submit frame %d", frame.number)
	}
	s.state = SlotStateSubmitted
	r.frameNumber++

	res, err = r.presenter.Present(frame.imageIndex, s.presentSemaphore)
	switch {
	case res == khr_swapchain.VKErrorOutOfDate || res == khr_swapchain.VKSuboptimal:
		r.resizeRequested = true
	case err != nil || res != core1_0.VKSuccess:
		return gpuutils.FatalResult(res, err, "failed to present frame %d", frame.number)
	}

	return nil
}

// Resize waits for the device to go idle and recreates the presenter's resources
func (r *Ring) Resize() error {
	r.logger.Debug("Ring::Resize")

	if r.current != nil {
		return errors.Newf("attempted to resize while frame %d is still recording", r.current.number)
	}

	res, err := r.device.WaitIdle()
	if err != nil || res != core1_0.VKSuccess {
		return gpuutils.FatalResult(res, err, "failed waiting for the device to go idle before resizing")
	}

	err = r.presenter.Recreate()
	if err != nil {
		return gpuutils.Fatal(err, "failed to recreate the presenter")
	}

	r.resizeRequested = false
	return nil
}

// Destroy waits for the device to go idle and destroys every slot. The ring can not be used
// afterwards.
func (r *Ring) Destroy() error {
	r.logger.Debug("Ring::Destroy")

	res, err := r.device.WaitIdle()
	if err != nil || res != core1_0.VKSuccess {
		err = gpuutils.FatalResult(res, err, "failed waiting for the device to go idle before destroying frames")
	}

	for _, s := range r.slots {
		s.destroy()
	}
	r.slots = nil
	r.current = nil

	return err
}
