package vulkan

import (
	"time"

	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/core/v2/driver"
	"github.com/vkngwrapper/lifecycle/device"
)

// Fence adapts a core1_0.Fence to the device seam
type Fence struct {
	Fence     core1_0.Fence
	callbacks *driver.AllocationCallbacks
}

var _ device.Fence = &Fence{}

func (f *Fence) Wait(timeout time.Duration) (common.VkResult, error) {
	return f.Fence.Wait(timeout)
}

func (f *Fence) Reset() (common.VkResult, error) {
	return f.Fence.Reset()
}

func (f *Fence) Destroy() {
	f.Fence.Destroy(f.callbacks)
}

// Semaphore adapts a core1_0.Semaphore to the device seam
type Semaphore struct {
	Semaphore core1_0.Semaphore
	callbacks *driver.AllocationCallbacks
}

var _ device.Semaphore = &Semaphore{}

func (s *Semaphore) Destroy() {
	s.Semaphore.Destroy(s.callbacks)
}
