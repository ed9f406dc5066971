package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
)

// VulkanContext carries the handles every GPU operation in this package
// needs. Instance and device bring-up lives in device.go; window surface and
// swapchain handling belong to the embedding application.
type VulkanContext struct {
	// The framebuffer's current width.
	FramebufferWidth uint32
	// The framebuffer's current height.
	FramebufferHeight uint32

	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks

	Device *VulkanDevice
}

// Destroy tears down the device and then the instance.
func (vc *VulkanContext) Destroy() {
	if vc.Device != nil {
		vc.Device.Destroy(vc)
		vc.Device = nil
	}
	if vc.Instance != nil {
		vk.DestroyInstance(vc.Instance, vc.Allocator)
		vc.Instance = nil
	}
}

func (vc *VulkanContext) FindMemoryIndex(typeFilter, propertyFlags uint32) int32 {
	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(vc.Device.PhysicalDevice, &memoryProperties)
	memoryProperties.Deref()

	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		// Check each memory type to see if its bit is set to 1.
		memoryProperties.MemoryTypes[i].Deref()
		if (typeFilter&(1<<i)) != 0 && (uint32(memoryProperties.MemoryTypes[i].PropertyFlags)&propertyFlags) == propertyFlags {
			return int32(i)
		}
	}
	core.LogWarn("Unable to find suitable memory type!")
	return -1
}
