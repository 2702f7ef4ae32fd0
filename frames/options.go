package frames

import (
	"time"

	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/lifecycle/descriptors"
)

const (
	// DefaultFramesInFlight is the number of frame slots used when CreateOptions.FramesInFlight is left 0
	DefaultFramesInFlight int = 3
	// DefaultFenceTimeout bounds how long BeginFrame waits on a slot's previous submission
	DefaultFenceTimeout = time.Second
	// DefaultDescriptorHint is the set capacity hint for each slot's descriptor allocator
	DefaultDescriptorHint int = 1000
)

// DefaultDescriptorRatios are the per-set descriptor counts used by slot allocators when
// CreateOptions.DescriptorRatios is empty
var DefaultDescriptorRatios = []descriptors.PoolSizeRatio{
	{Type: core1_0.DescriptorTypeStorageImage, Ratio: 3},
	{Type: core1_0.DescriptorTypeStorageBuffer, Ratio: 3},
	{Type: core1_0.DescriptorTypeUniformBuffer, Ratio: 3},
	{Type: core1_0.DescriptorTypeCombinedImageSampler, Ratio: 4},
}

// CreateOptions contains optional settings when creating a Ring
type CreateOptions struct {
	// FramesInFlight is the number of slots. It is fixed for the lifetime of the ring.
	FramesInFlight int
	// FenceTimeout bounds the wait on a slot's completion fence and the image acquire. A timeout
	// is fatal.
	FenceTimeout time.Duration
	// QueueFamilyIndex is the family command contexts are created for and frames are submitted to
	QueueFamilyIndex int

	// DescriptorHint is the expected number of sets a single frame allocates
	DescriptorHint int
	// DescriptorRatios are the per-set descriptor counts for each slot's allocator
	DescriptorRatios []descriptors.PoolSizeRatio
	// Descriptors holds further settings for each slot's allocator. Slot allocators are always
	// externally synchronized.
	Descriptors descriptors.CreateOptions
}

func (o CreateOptions) withDefaults() CreateOptions {
	if o.FramesInFlight == 0 {
		o.FramesInFlight = DefaultFramesInFlight
	}
	if o.FenceTimeout == 0 {
		o.FenceTimeout = DefaultFenceTimeout
	}
	if o.DescriptorHint == 0 {
		o.DescriptorHint = DefaultDescriptorHint
	}
	if len(o.DescriptorRatios) == 0 {
		o.DescriptorRatios = DefaultDescriptorRatios
	}
	o.Descriptors.Flags |= descriptors.AllocatorCreateExternallySynchronized
	return o
}
