package frames

import (
	"fmt"

	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/lifecycle/deletion"
	"github.com/vkngwrapper/lifecycle/descriptors"
	"github.com/vkngwrapper/lifecycle/device"
	"github.com/vkngwrapper/lifecycle/gpuutils"
	"golang.org/x/exp/slog"
)

// SlotState tracks where a frame slot is in its record/submit cycle
type SlotState int32

const (
	// SlotStateIdle slots have no outstanding GPU work
	SlotStateIdle SlotState = iota
	// SlotStateRecording slots are handed out to the caller for recording
	SlotStateRecording
	// SlotStateSubmitted slots have work on the GPU that has not been waited on
	SlotStateSubmitted
)

var slotStateMapping = map[SlotState]string{
	SlotStateIdle:      "Idle",
	SlotStateRecording: "Recording",
	SlotStateSubmitted: "Submitted",
}

func (s SlotState) String() string {
	return slotStateMapping[s]
}

// slot is the set of per-frame objects reused every FramesInFlight frames
type slot struct {
	index int
	state SlotState

	commands         device.CommandContext
	renderFence      device.Fence
	acquireSemaphore device.Semaphore
	presentSemaphore device.Semaphore

	descriptors *descriptors.GrowableAllocator
	deletion    *deletion.Queue
}

func newSlot(logger *slog.Logger, dev device.Device, index int, options CreateOptions) (*slot, error) {
	s := &slot{index: index}

	commands, res, err := dev.CreateCommandContext(options.QueueFamilyIndex)
	if err != nil || res != core1_0.VKSuccess {
		return nil, gpuutils.FatalResult(res, err, "failed to create command context for frame slot %d", index)
	}
	s.commands = commands

	// Created signaled so the first wait on each slot returns immediately
	s.renderFence, res, err = dev.CreateFence(true)
	if err != nil || res != core1_0.VKSuccess {
		s.destroy()
		return nil, gpuutils.FatalResult(res, err, "failed to create render fence for frame slot %d", index)
	}

	s.acquireSemaphore, res, err = dev.CreateSemaphore()
	if err != nil || res != core1_0.VKSuccess {
		s.destroy()
		return nil, gpuutils.FatalResult(res, err, "failed to create acquire semaphore for frame slot %d", index)
	}

	s.presentSemaphore, res, err = dev.CreateSemaphore()
	if err != nil || res != core1_0.VKSuccess {
		s.destroy()
		return nil, gpuutils.FatalResult(res, err, "failed to create present semaphore for frame slot %d", index)
	}

	allocatorOptions := options.Descriptors
	if allocatorOptions.Name == "" {
		allocatorOptions.Name = fmt.Sprintf("frame%d", index)
	} else {
		allocatorOptions.Name = fmt.Sprintf("%s%d", allocatorOptions.Name, index)
	}
	s.descriptors, err = descriptors.New(logger, dev, options.DescriptorHint, options.DescriptorRatios, allocatorOptions)
	if err != nil {
		s.destroy()
		return nil, err
	}

	s.deletion = deletion.NewQueue(logger, allocatorOptions.Name)
	return s, nil
}

// destroy releases everything the slot owns. The GPU must be finished with the slot.
func (s *slot) destroy() {
	if s.deletion != nil {
		s.deletion.Flush()
	}
	if s.descriptors != nil {
		s.descriptors.DestroyPools()
	}
	if s.commands != nil {
		s.commands.Destroy()
	}
	if s.renderFence != nil {
		s.renderFence.Destroy()
	}
	if s.acquireSemaphore != nil {
		s.acquireSemaphore.Destroy()
	}
	if s.presentSemaphore != nil {
		s.presentSemaphore.Destroy()
	}
}

// Frame is the slot handed to the caller between BeginFrame and EndFrame
type Frame struct {
	slot       *slot
	number     uint64
	imageIndex int
}

// Index is the slot index, Number() mod FramesInFlight
func (f *Frame) Index() int { return f.slot.index }

// Number is the monotonically increasing frame counter this frame was begun at
func (f *Frame) Number() uint64 { return f.number }

// ImageIndex is the presentable image acquired for this frame
func (f *Frame) ImageIndex() int { return f.imageIndex }

func (f *Frame) Commands() device.CommandContext { return f.slot.commands }

func (f *Frame) CommandBuffer() core1_0.CommandBuffer { return f.slot.commands.CommandBuffer() }

// Descriptors is cleared at the start of every frame that reuses this slot
func (f *Frame) Descriptors() *descriptors.GrowableAllocator { return f.slot.descriptors }

// Deletion is flushed once the GPU has finished with this slot's work, at the start of the next
// frame that reuses it
func (f *Frame) Deletion() *deletion.Queue { return f.slot.deletion }
