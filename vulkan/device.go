// Package vulkan implements the device seam on top of vkngwrapper, along with the Vulkan-specific
// helpers used with the lifecycle components: a swapchain presenter, typed release actions for
// deletion queues, and staged buffer uploads.
package vulkan

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/core/v2/driver"
	"github.com/vkngwrapper/lifecycle/device"
	"golang.org/x/exp/slog"
)

// CreateOptions contains optional settings when creating a Device
type CreateOptions struct {
	// VulkanCallbacks is an optional set of callbacks that will be executed from Vulkan for every
	// object the Device creates
	VulkanCallbacks *driver.AllocationCallbacks
}

// Device implements device.Device with a core1_0.Device
type Device struct {
	logger        *slog.Logger
	device        core1_0.Device
	callbacks     *driver.AllocationCallbacks
	extensionData *extensionData
	queues        map[int]*Queue
}

var _ device.Device = &Device{}

// New wraps a device that the caller continues to own
func New(logger *slog.Logger, coreDevice core1_0.Device, options CreateOptions) *Device {
	d := &Device{
		logger:        logger,
		device:        coreDevice,
		callbacks:     options.VulkanCallbacks,
		extensionData: newExtensionData(coreDevice),
		queues:        make(map[int]*Queue),
	}

	logger.LogAttrs(context.Background(), slog.LevelDebug, "wrapped vulkan device",
		slog.Bool("poolMemoryErrors", d.extensionData.PoolMemoryErrors),
		slog.Bool("swapchain", d.extensionData.Swapchain != nil))

	return d
}

func (d *Device) Core() core1_0.Device { return d.device }

func (d *Device) CreateDescriptorPool(o device.DescriptorPoolCreateInfo) (device.DescriptorPool, common.VkResult, error) {
	poolSizes := make([]core1_0.DescriptorPoolSize, 0, len(o.PoolSizes))
	for _, size := range o.PoolSizes {
		if size.DescriptorCount < 1 {
			continue
		}
		poolSizes = append(poolSizes, core1_0.DescriptorPoolSize{
			Type:            size.Type,
			DescriptorCount: size.DescriptorCount,
		})
	}

	pool, res, err := d.device.CreateDescriptorPool(d.callbacks, core1_0.DescriptorPoolCreateInfo{
		MaxSets:   o.MaxSets,
		PoolSizes: poolSizes,
	})
	if err != nil {
		return nil, res, err
	}

	return &DescriptorPool{
		Pool:             pool,
		device:           d.device,
		callbacks:        d.callbacks,
		poolMemoryErrors: d.extensionData.PoolMemoryErrors,
	}, res, nil
}

func (d *Device) CreateFence(signaled bool) (device.Fence, common.VkResult, error) {
	var flags core1_0.FenceCreateFlags
	if signaled {
		flags = core1_0.FenceCreateSignaled
	}

	fence, res, err := d.device.CreateFence(d.callbacks, core1_0.FenceCreateInfo{Flags: flags})
	if err != nil {
		return nil, res, err
	}
	return &Fence{Fence: fence, callbacks: d.callbacks}, res, nil
}

func (d *Device) CreateSemaphore() (device.Semaphore, common.VkResult, error) {
	semaphore, res, err := d.device.CreateSemaphore(d.callbacks, core1_0.SemaphoreCreateInfo{})
	if err != nil {
		return nil, res, err
	}
	return &Semaphore{Semaphore: semaphore, callbacks: d.callbacks}, res, nil
}

func (d *Device) CreateCommandContext(queueFamilyIndex int) (device.CommandContext, common.VkResult, error) {
	pool, res, err := d.device.CreateCommandPool(d.callbacks, core1_0.CommandPoolCreateInfo{
		Flags:            core1_0.CommandPoolCreateResetBuffer,
		QueueFamilyIndex: queueFamilyIndex,
	})
	if err != nil {
		return nil, res, err
	}

	buffers, res, err := d.device.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        pool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	})
	if err != nil {
		pool.Destroy(d.callbacks)
		return nil, res, err
	}
	if len(buffers) != 1 {
		pool.Destroy(d.callbacks)
		return nil, core1_0.VKErrorUnknown, errors.Newf("allocated %d command buffers instead of 1", len(buffers))
	}

	return &CommandContext{
		Pool:      pool,
		Buffer:    buffers[0],
		device:    d.device,
		callbacks: d.callbacks,
	}, res, nil
}

// Queue returns the first queue of the family. Queues are cached so each family is only
// retrieved once.
func (d *Device) Queue(queueFamilyIndex int) device.Queue {
	queue, ok := d.queues[queueFamilyIndex]
	if !ok {
		queue = &Queue{Queue: d.device.GetQueue(queueFamilyIndex, 0)}
		d.queues[queueFamilyIndex] = queue
	}
	return queue
}

func (d *Device) WaitIdle() (common.VkResult, error) {
	return d.device.WaitIdle()
}
