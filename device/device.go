// Package device is the narrow view of the GPU that the lifecycle core depends on. The vulkan
// package implements it on top of vkngwrapper; tests implement it with fakes.
package device

import (
	"time"

	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
)

// NoTimeout can be passed to Fence.Wait to block until the fence is signaled
const NoTimeout = time.Duration(1<<63 - 1)

// Fence is a host-observable completion signal set by the GPU when a submission finishes
type Fence interface {
	// Wait blocks until the fence is signaled or the timeout elapses. A timeout is reported
	// as core1_0.VKTimeout with a nil error.
	Wait(timeout time.Duration) (common.VkResult, error)
	Reset() (common.VkResult, error)
	Destroy()
}

// Semaphore orders two pieces of GPU work without host visibility
type Semaphore interface {
	Destroy()
}

// CommandContext is a command pool with a single primary command buffer recorded from it
type CommandContext interface {
	// Reset discards all commands recorded into the buffer
	Reset() (common.VkResult, error)
	// Begin starts a one-time-submit recording
	Begin() (common.VkResult, error)
	End() (common.VkResult, error)
	// CommandBuffer is the buffer commands are recorded into. Fakes may return nil.
	CommandBuffer() core1_0.CommandBuffer
	Destroy()
}

// Submission describes one queue submission. Wait, Signal and Fence are all optional.
type Submission struct {
	Commands CommandContext
	// Wait is waited on before the color attachment output stage executes
	Wait   Semaphore
	Signal Semaphore
	Fence  Fence
}

// Queue accepts recorded command buffers for execution
type Queue interface {
	Submit(submission Submission) (common.VkResult, error)
	WaitIdle() (common.VkResult, error)
}

// DescriptorPoolSize is the number of descriptors of one type a pool can hand out
type DescriptorPoolSize struct {
	Type            core1_0.DescriptorType
	DescriptorCount int
}

// DescriptorPoolCreateInfo describes a fixed-capacity descriptor pool
type DescriptorPoolCreateInfo struct {
	MaxSets   int
	PoolSizes []DescriptorPoolSize
}

// DescriptorPool is a fixed-capacity pool that descriptor sets are allocated from
type DescriptorPool interface {
	// AllocateSet allocates one set. An exhausted pool reports core1_1.VkErrorOutOfPoolMemory
	// or core1_0.VKErrorFragmentedPool.
	AllocateSet(layout core1_0.DescriptorSetLayout, next common.Options) (core1_0.DescriptorSet, common.VkResult, error)
	// Reset returns every set allocated from the pool to it
	Reset() (common.VkResult, error)
	Destroy()
}

// DescriptorPoolFactory creates descriptor pools
type DescriptorPoolFactory interface {
	CreateDescriptorPool(o DescriptorPoolCreateInfo) (DescriptorPool, common.VkResult, error)
}

// Device creates the synchronization objects, command contexts and descriptor pools used by
// the frame ring and the immediate executor
type Device interface {
	DescriptorPoolFactory

	CreateFence(signaled bool) (Fence, common.VkResult, error)
	CreateSemaphore() (Semaphore, common.VkResult, error)
	CreateCommandContext(queueFamilyIndex int) (CommandContext, common.VkResult, error)
	// Queue returns the first queue of the requested family
	Queue(queueFamilyIndex int) Queue
	WaitIdle() (common.VkResult, error)
}
