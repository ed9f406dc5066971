package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
)

/**
 * @brief Records an inline update of a device-local buffer, fenced by
 * memory barriers so in-flight shader reads finish before the transfer
 * write and later reads in readStages see the new contents.
 */
func CmdUpdateBufferBarriered(
	cmd *VulkanCommandBuffer,
	buffer *VulkanBuffer,
	data []byte,
	readStages vk.PipelineStageFlags,
) {
	beforeBarrier := vk.BufferMemoryBarrier{
		SType:               vk.StructureTypeBufferMemoryBarrier,
		SrcAccessMask:       vk.AccessFlags(vk.AccessShaderReadBit),
		DstAccessMask:       vk.AccessFlags(vk.AccessTransferWriteBit),
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Buffer:              buffer.Handle,
		Offset:              0,
		Size:                vk.DeviceSize(len(data)),
	}
	vk.CmdPipelineBarrier(cmd.Handle,
		readStages,
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		0,
		0, nil,
		1, []vk.BufferMemoryBarrier{beforeBarrier},
		0, nil)

	vk.CmdUpdateBuffer(cmd.Handle, buffer.Handle, 0, vk.DeviceSize(len(data)), (*uint32)(unsafe.Pointer(&data[0])))

	afterBarrier := vk.BufferMemoryBarrier{
		SType:               vk.StructureTypeBufferMemoryBarrier,
		SrcAccessMask:       vk.AccessFlags(vk.AccessTransferWriteBit),
		DstAccessMask:       vk.AccessFlags(vk.AccessShaderReadBit),
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Buffer:              buffer.Handle,
		Offset:              0,
		Size:                vk.DeviceSize(len(data)),
	}
	vk.CmdPipelineBarrier(cmd.Handle,
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		readStages,
		0,
		0, nil,
		1, []vk.BufferMemoryBarrier{afterBarrier},
		0, nil)
}
