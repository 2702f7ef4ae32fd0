package vulkan

import (
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/core/v2/core1_1"
	"github.com/vkngwrapper/extensions/v2/khr_maintenance1"
	"github.com/vkngwrapper/extensions/v2/khr_swapchain"
)

type extensionData struct {
	// PoolMemoryErrors is set when exhausted descriptor pools report VkErrorOutOfPoolMemory
	PoolMemoryErrors bool
	// Swapchain is nil when khr_swapchain is not active
	Swapchain khr_swapchain.Extension
}

func newExtensionData(device core1_0.Device) *extensionData {
	data := &extensionData{}

	// Core 1.1 includes khr_maintenance1
	device11 := core1_1.PromoteDevice(device)
	if device11 != nil || device.IsDeviceExtensionActive(khr_maintenance1.ExtensionName) {
		data.PoolMemoryErrors = true
	}

	if device.IsDeviceExtensionActive(khr_swapchain.ExtensionName) {
		data.Swapchain = khr_swapchain.CreateExtensionFromDevice(device)
	}

	return data
}
