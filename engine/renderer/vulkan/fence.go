package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
)

type VulkanFence struct {
	Handle     vk.Fence
	IsSignaled bool
}

func NewFence(context *VulkanContext, createSignaled bool) (*VulkanFence, error) {
	fence := &VulkanFence{
		// Make sure to signal the fence if required.
		IsSignaled: createSignaled,
	}

	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if fence.IsSignaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var pFence vk.Fence
	if res := vk.CreateFence(context.Device.LogicalDevice, &fenceCreateInfo, context.Allocator, &pFence); res != vk.Success {
		err := fmt.Errorf("failed to create fence")
		core.LogError(err.Error())
		return nil, err
	}
	fence.Handle = pFence
	return fence, nil
}

func (vf *VulkanFence) Destroy(context *VulkanContext) {
	if vf.Handle != nil {
		vk.DestroyFence(context.Device.LogicalDevice, vf.Handle, context.Allocator)
		vf.Handle = nil
	}
	vf.IsSignaled = false
}

func (vf *VulkanFence) Wait(context *VulkanContext, timeoutNs uint64) bool {
	if vf.IsSignaled {
		// If already signaled, do not wait.
		return true
	}
	result := vk.WaitForFences(context.Device.LogicalDevice, 1, []vk.Fence{vf.Handle}, vk.True, timeoutNs)
	switch result {
	case vk.Success:
		vf.IsSignaled = true
		return true
	case vk.Timeout:
		core.LogWarn("fence wait - Timed out")
	default:
		core.LogError("fence wait - %s", VulkanResultString(result))
	}
	return false
}

func (vf *VulkanFence) Reset(context *VulkanContext) error {
	if vf.IsSignaled {
		if res := vk.ResetFences(context.Device.LogicalDevice, 1, []vk.Fence{vf.Handle}); res != vk.Success {
			err := fmt.Errorf("failed to reset fence")
			core.LogError(err.Error())
			return err
		}
		vf.IsSignaled = false
	}
	return nil
}
