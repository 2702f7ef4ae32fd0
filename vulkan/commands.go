package vulkan

import (
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/core/v2/driver"
	"github.com/vkngwrapper/lifecycle/device"
)

// CommandContext is a resettable command pool with one primary command buffer
type CommandContext struct {
	Pool   core1_0.CommandPool
	Buffer core1_0.CommandBuffer

	device    core1_0.Device
	callbacks *driver.AllocationCallbacks
}

var _ device.CommandContext = &CommandContext{}

func (c *CommandContext) Reset() (common.VkResult, error) {
	return c.Buffer.Reset(0)
}

func (c *CommandContext) Begin() (common.VkResult, error) {
	return c.Buffer.Begin(core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	})
}

func (c *CommandContext) End() (common.VkResult, error) {
	return c.Buffer.End()
}

func (c *CommandContext) CommandBuffer() core1_0.CommandBuffer {
	return c.Buffer
}

// Destroy frees the command buffer along with its pool
func (c *CommandContext) Destroy() {
	c.device.FreeCommandBuffers([]core1_0.CommandBuffer{c.Buffer})
	c.Pool.Destroy(c.callbacks)
}
