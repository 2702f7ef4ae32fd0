package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/core/v2/driver"
	"github.com/vkngwrapper/lifecycle/deletion"
)

// ReleaseKind identifies which kind of Vulkan object a Release destroys
type ReleaseKind int32

const (
	ReleaseBuffer ReleaseKind = iota
	ReleaseImage
	ReleaseImageView
	ReleaseSampler
	ReleasePipeline
	ReleasePipelineLayout
	ReleaseDescriptorSetLayout
	ReleaseFence
	ReleaseSemaphore
	ReleaseCommandPool
	ReleaseDeviceMemory
)

var releaseKindMapping = map[ReleaseKind]string{
	ReleaseBuffer:              "Buffer",
	ReleaseImage:               "Image",
	ReleaseImageView:           "ImageView",
	ReleaseSampler:             "Sampler",
	ReleasePipeline:            "Pipeline",
	ReleasePipelineLayout:      "PipelineLayout",
	ReleaseDescriptorSetLayout: "DescriptorSetLayout",
	ReleaseFence:               "Fence",
	ReleaseSemaphore:           "Semaphore",
	ReleaseCommandPool:         "CommandPool",
	ReleaseDeviceMemory:        "DeviceMemory",
}

func (k ReleaseKind) String() string {
	return releaseKindMapping[k]
}

// Release destroys one Vulkan object when a deletion queue is flushed. Object must hold the
// core1_0 type matching Kind.
type Release struct {
	Kind      ReleaseKind
	Object    any
	Callbacks *driver.AllocationCallbacks
}

var _ deletion.Releaser = Release{}

func (r Release) mismatch() error {
	return errors.AssertionFailedf("release of kind %s holds an object of type %T", r.Kind, r.Object)
}

func (r Release) Release() {
	switch r.Kind {
	case ReleaseBuffer:
		buffer, ok := r.Object.(core1_0.Buffer)
		if !ok {
			panic(r.mismatch())
		}
		buffer.Destroy(r.Callbacks)
	case ReleaseImage:
		image, ok := r.Object.(core1_0.Image)
		if !ok {
			panic(r.mismatch())
		}
		image.Destroy(r.Callbacks)
	case ReleaseImageView:
		imageView, ok := r.Object.(core1_0.ImageView)
		if !ok {
			panic(r.mismatch())
		}
		imageView.Destroy(r.Callbacks)
	case ReleaseSampler:
		sampler, ok := r.Object.(core1_0.Sampler)
		if !ok {
			panic(r.mismatch())
		}
		sampler.Destroy(r.Callbacks)
	case ReleasePipeline:
		pipeline, ok := r.Object.(core1_0.Pipeline)
		if !ok {
			panic(r.mismatch())
		}
		pipeline.Destroy(r.Callbacks)
	case ReleasePipelineLayout:
		layout, ok := r.Object.(core1_0.PipelineLayout)
		if !ok {
			panic(r.mismatch())
		}
		layout.Destroy(r.Callbacks)
	case ReleaseDescriptorSetLayout:
		layout, ok := r.Object.(core1_0.DescriptorSetLayout)
		if !ok {
			panic(r.mismatch())
		}
		layout.Destroy(r.Callbacks)
	case ReleaseFence:
		fence, ok := r.Object.(core1_0.Fence)
		if !ok {
			panic(r.mismatch())
		}
		fence.Destroy(r.Callbacks)
	case ReleaseSemaphore:
		semaphore, ok := r.Object.(core1_0.Semaphore)
		if !ok {
			panic(r.mismatch())
		}
		semaphore.Destroy(r.Callbacks)
	case ReleaseCommandPool:
		pool, ok := r.Object.(core1_0.CommandPool)
		if !ok {
			panic(r.mismatch())
		}
		pool.Destroy(r.Callbacks)
	case ReleaseDeviceMemory:
		memory, ok := r.Object.(core1_0.DeviceMemory)
		if !ok {
			panic(r.mismatch())
		}
		memory.Free(r.Callbacks)
	default:
		panic(errors.AssertionFailedf("unknown release kind %d", r.Kind))
	}
}
