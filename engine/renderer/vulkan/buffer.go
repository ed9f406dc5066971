package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
)

/**
 * @brief A device buffer together with its backing memory allocation.
 */
type VulkanBuffer struct {
	Handle    vk.Buffer
	Memory    vk.DeviceMemory
	TotalSize vk.DeviceSize
	Usage     vk.BufferUsageFlags
}

func NewBuffer(
	context *VulkanContext,
	size vk.DeviceSize,
	usage vk.BufferUsageFlags,
	memoryFlags vk.MemoryPropertyFlags,
) (*VulkanBuffer, error) {
	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}

	var handle vk.Buffer
	if res := vk.CreateBuffer(context.Device.LogicalDevice, &bufferInfo, context.Allocator, &handle); res != vk.Success {
		err := fmt.Errorf("failed to create buffer: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	var memReqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, handle, &memReqs)
	memReqs.Deref()

	memoryIndex := context.FindMemoryIndex(memReqs.MemoryTypeBits, uint32(memoryFlags))
	if memoryIndex < 0 {
		vk.DestroyBuffer(context.Device.LogicalDevice, handle, context.Allocator)
		err := fmt.Errorf("no suitable memory type for buffer")
		core.LogError(err.Error())
		return nil, err
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: uint32(memoryIndex),
	}

	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(context.Device.LogicalDevice, &allocInfo, context.Allocator, &memory); res != vk.Success {
		vk.DestroyBuffer(context.Device.LogicalDevice, handle, context.Allocator)
		err := fmt.Errorf("failed to allocate buffer memory: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	vk.BindBufferMemory(context.Device.LogicalDevice, handle, memory, 0)

	return &VulkanBuffer{
		Handle:    handle,
		Memory:    memory,
		TotalSize: size,
		Usage:     usage,
	}, nil
}

func (b *VulkanBuffer) Destroy(context *VulkanContext) {
	if b.Handle != nil {
		vk.DestroyBuffer(context.Device.LogicalDevice, b.Handle, context.Allocator)
		b.Handle = nil
	}
	if b.Memory != nil {
		vk.FreeMemory(context.Device.LogicalDevice, b.Memory, context.Allocator)
		b.Memory = nil
	}
	b.TotalSize = 0
}

/**
 * @brief Copies data into the buffer's memory. Only valid for host-visible
 * buffers.
 */
func (b *VulkanBuffer) LoadData(context *VulkanContext, offset vk.DeviceSize, data []byte) error {
	var pData unsafe.Pointer
	if res := vk.MapMemory(context.Device.LogicalDevice, b.Memory, offset, vk.DeviceSize(len(data)), 0, &pData); res != vk.Success {
		err := fmt.Errorf("failed to map buffer memory: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	vk.Memcopy(pData, data)
	vk.UnmapMemory(context.Device.LogicalDevice, b.Memory)
	return nil
}

/**
 * @brief Records a full-range copy from src into dst on the given command
 * buffer.
 */
func (b *VulkanBuffer) CopyFrom(cmd *VulkanCommandBuffer, src *VulkanBuffer, size vk.DeviceSize) {
	copyRegion := vk.BufferCopy{
		SrcOffset: 0,
		DstOffset: 0,
		Size:      size,
	}
	vk.CmdCopyBuffer(cmd.Handle, src.Handle, b.Handle, 1, []vk.BufferCopy{copyRegion})
}
