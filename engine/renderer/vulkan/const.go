package vulkan

import vk "github.com/goki/vulkan"

/**
 * @brief VK_KHR_ray_tracing_pipeline and VK_KHR_acceleration_structure
 * enum values. The bindings predate these extensions, so the values are
 * declared here as registered in the Vulkan registry.
 */
const (
	ShaderStageRaygenBitKHR       vk.ShaderStageFlagBits = 0x00000100
	ShaderStageAnyHitBitKHR       vk.ShaderStageFlagBits = 0x00000200
	ShaderStageClosestHitBitKHR   vk.ShaderStageFlagBits = 0x00000400
	ShaderStageMissBitKHR         vk.ShaderStageFlagBits = 0x00000800
	ShaderStageIntersectionBitKHR vk.ShaderStageFlagBits = 0x00001000
)

const (
	BufferUsageShaderDeviceAddressBit                        vk.BufferUsageFlagBits = 0x00020000
	BufferUsageShaderBindingTableBitKHR                      vk.BufferUsageFlagBits = 0x00000400
	BufferUsageAccelerationStructureBuildInputReadOnlyBitKHR vk.BufferUsageFlagBits = 0x00080000
	BufferUsageAccelerationStructureStorageBitKHR            vk.BufferUsageFlagBits = 0x00100000
)

const (
	PipelineStageRayTracingShaderBitKHR vk.PipelineStageFlagBits = 0x00200000
)

const (
	DescriptorTypeAccelerationStructureKHR vk.DescriptorType = 1000150000
)
