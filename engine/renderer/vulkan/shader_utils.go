package vulkan

import (
	"fmt"
	"os"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
)

/**
 * @brief Represents a single shader stage.
 */
type VulkanShaderStage struct {
	/** @brief The internal shader module Handle. */
	Handle vk.ShaderModule
	/** @brief The pipeline shader stage creation info. */
	ShaderStageCreateInfo vk.PipelineShaderStageCreateInfo
}

/**
 * @brief Loads a SPIR-V binary from disk and wraps it in a shader stage.
 */
func LoadShaderModule(context *VulkanContext, path string, stage vk.ShaderStageFlagBits) (*VulkanShaderStage, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		core.LogError("unable to read shader module %s: %s", path, err)
		return nil, err
	}
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, fmt.Errorf("shader module %s is not valid SPIR-V", path)
	}

	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code)),
		PCode:    sliceUint32(code),
	}

	var handle vk.ShaderModule
	if res := vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &handle); res != vk.Success {
		err := fmt.Errorf("failed to create shader module %s: %s", path, VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	return &VulkanShaderStage{
		Handle: handle,
		ShaderStageCreateInfo: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  stage,
			Module: handle,
			PName:  VulkanSafeString("main"),
		},
	}, nil
}

func (s *VulkanShaderStage) Destroy(context *VulkanContext) {
	if s.Handle != nil {
		vk.DestroyShaderModule(context.Device.LogicalDevice, s.Handle, context.Allocator)
		s.Handle = nil
	}
}

func sliceUint32(data []byte) []uint32 {
	return unsafe.Slice((*uint32)(unsafe.Pointer(&data[0])), len(data)/4)
}
