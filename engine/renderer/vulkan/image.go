package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
)

type VulkanImage struct {
	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView
	Width  uint32
	Height uint32
	Format vk.Format
}

/**
 * @brief A sampled image plus the sampler the shaders read it through.
 */
type VulkanTexture struct {
	Image   VulkanImage
	Sampler vk.Sampler
}

func NewImage(
	context *VulkanContext,
	width, height uint32,
	format vk.Format,
	tiling vk.ImageTiling,
	usage vk.ImageUsageFlags,
	memoryFlags vk.MemoryPropertyFlags,
	aspect vk.ImageAspectFlags,
) (*VulkanImage, error) {
	imageInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent: vk.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        format,
		Tiling:        tiling,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         usage,
		Samples:       vk.SampleCount1Bit,
		SharingMode:   vk.SharingModeExclusive,
	}

	var handle vk.Image
	if res := vk.CreateImage(context.Device.LogicalDevice, &imageInfo, context.Allocator, &handle); res != vk.Success {
		err := fmt.Errorf("failed to create image: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	var memReqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(context.Device.LogicalDevice, handle, &memReqs)
	memReqs.Deref()

	memoryIndex := context.FindMemoryIndex(memReqs.MemoryTypeBits, uint32(memoryFlags))
	if memoryIndex < 0 {
		vk.DestroyImage(context.Device.LogicalDevice, handle, context.Allocator)
		err := fmt.Errorf("no suitable memory type for image")
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
		vk.DestroyImage(context.Device.LogicalDevice, handle, context.Allocator)
		err := fmt.Errorf("failed to allocate image memory: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	vk.BindImageMemory(context.Device.LogicalDevice, handle, memory, 0)

	image := &VulkanImage{
		Handle: handle,
		Memory: memory,
		Width:  width,
		Height: height,
		Format: format,
	}

	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    handle,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	if res := vk.CreateImageView(context.Device.LogicalDevice, &viewInfo, context.Allocator, &image.View); res != vk.Success {
		image.Destroy(context)
		err := fmt.Errorf("failed to create image view: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	return image, nil
}

func (i *VulkanImage) Destroy(context *VulkanContext) {
	if i.View != nil {
		vk.DestroyImageView(context.Device.LogicalDevice, i.View, context.Allocator)
		i.View = nil
	}
	if i.Handle != nil {
		vk.DestroyImage(context.Device.LogicalDevice, i.Handle, context.Allocator)
		i.Handle = nil
	}
	if i.Memory != nil {
		vk.FreeMemory(context.Device.LogicalDevice, i.Memory, context.Allocator)
		i.Memory = nil
	}
}

/**
 * @brief Records a layout transition for the image. Only the transitions
 * the renderer performs are handled.
 */
func (i *VulkanImage) TransitionLayout(
	cmd *VulkanCommandBuffer,
	oldLayout, newLayout vk.ImageLayout,
) error {
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               i.Handle,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}

	var srcStage, dstStage vk.PipelineStageFlags
	switch {
	case oldLayout == vk.ImageLayoutUndefined && newLayout == vk.ImageLayoutTransferDstOptimal:
		barrier.SrcAccessMask = 0
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	case oldLayout == vk.ImageLayoutTransferDstOptimal && newLayout == vk.ImageLayoutShaderReadOnlyOptimal:
		barrier.SrcAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessShaderReadBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)
	case oldLayout == vk.ImageLayoutUndefined && newLayout == vk.ImageLayoutGeneral:
		barrier.SrcAccessMask = 0
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessShaderReadBit | vk.AccessShaderWriteBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit)
	default:
		err := fmt.Errorf("unsupported image layout transition %d -> %d", oldLayout, newLayout)
		core.LogError(err.Error())
		return err
	}

	vk.CmdPipelineBarrier(cmd.Handle,
		srcStage, dstStage,
		0,
		0, nil,
		0, nil,
		1, []vk.ImageMemoryBarrier{barrier})
	return nil
}

/**
 * @brief Records a copy of the whole staging buffer into the image. The
 * image must be in TRANSFER_DST_OPTIMAL layout.
 */
func (i *VulkanImage) CopyFromBuffer(cmd *VulkanCommandBuffer, buffer *VulkanBuffer) {
	region := vk.BufferImageCopy{
		BufferOffset:      0,
		BufferRowLength:   0,
		BufferImageHeight: 0,
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		ImageExtent: vk.Extent3D{
			Width:  i.Width,
			Height: i.Height,
			Depth:  1,
		},
	}
	vk.CmdCopyBufferToImage(cmd.Handle, buffer.Handle, i.Handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
}

func NewTextureSampler(context *VulkanContext) (vk.Sampler, error) {
	context.Device.Properties.Limits.Deref()
	samplerInfo := vk.SamplerCreateInfo{
		SType:            vk.StructureTypeSamplerCreateInfo,
		MagFilter:        vk.FilterLinear,
		MinFilter:        vk.FilterLinear,
		MipmapMode:       vk.SamplerMipmapModeLinear,
		AddressModeU:     vk.SamplerAddressModeRepeat,
		AddressModeV:     vk.SamplerAddressModeRepeat,
		AddressModeW:     vk.SamplerAddressModeRepeat,
		AnisotropyEnable: vk.True,
		MaxAnisotropy:    context.Device.Properties.Limits.MaxSamplerAnisotropy,
		CompareOp:        vk.CompareOpAlways,
		BorderColor:      vk.BorderColorIntOpaqueBlack,
	}

	var sampler vk.Sampler
	if res := vk.CreateSampler(context.Device.LogicalDevice, &samplerInfo, context.Allocator, &sampler); res != vk.Success {
		err := fmt.Errorf("failed to create texture sampler: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	return sampler, nil
}

func (t *VulkanTexture) Destroy(context *VulkanContext) {
	if t.Sampler != nil {
		vk.DestroySampler(context.Device.LogicalDevice, t.Sampler, context.Allocator)
		t.Sampler = nil
	}
	t.Image.Destroy(context)
}
