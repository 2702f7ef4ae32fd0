package vulkan

import (
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/core/v2/core1_1"
	"github.com/vkngwrapper/core/v2/driver"
	"github.com/vkngwrapper/lifecycle/device"
)

// DescriptorPool adapts a core1_0.DescriptorPool to the device seam
type DescriptorPool struct {
	Pool core1_0.DescriptorPool

	device           core1_0.Device
	callbacks        *driver.AllocationCallbacks
	poolMemoryErrors bool
}

var _ device.DescriptorPool = &DescriptorPool{}

// poolResult normalizes the result of an allocation from an exhausted pool. Without
// khr_maintenance1, drivers may report an exhausted pool as running out of host or device memory.
func poolResult(res common.VkResult, poolMemoryErrors bool) common.VkResult {
	if poolMemoryErrors {
		return res
	}
	if res == core1_0.VKErrorOutOfHostMemory || res == core1_0.VKErrorOutOfDeviceMemory {
		return core1_1.VkErrorOutOfPoolMemory
	}
	return res
}

func (p *DescriptorPool) AllocateSet(layout core1_0.DescriptorSetLayout, next common.Options) (core1_0.DescriptorSet, common.VkResult, error) {
	sets, res, err := p.device.AllocateDescriptorSets(core1_0.DescriptorSetAllocateInfo{
		DescriptorPool: p.Pool,
		SetLayouts:     []core1_0.DescriptorSetLayout{layout},
		NextOptions:    common.NextOptions{Next: next},
	})
	res = poolResult(res, p.poolMemoryErrors)
	if err != nil || res != core1_0.VKSuccess {
		return nil, res, err
	}
	return sets[0], res, nil
}

func (p *DescriptorPool) Reset() (common.VkResult, error) {
	return p.Pool.Reset(0)
}

func (p *DescriptorPool) Destroy() {
	p.Pool.Destroy(p.callbacks)
}
