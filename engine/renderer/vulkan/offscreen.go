package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
)

/**
 * @brief Offscreen render target shared by the raster and ray tracing
 * paths. The color attachment is a float image so accumulated samples do
 * not clip, and it stays in GENERAL layout so the ray tracing path can
 * write it as a storage image while the raster path renders into it.
 */
type VulkanOffscreen struct {
	Color       *VulkanImage
	Depth       *VulkanImage
	RenderPass  vk.RenderPass
	Framebuffer vk.Framebuffer
	Sampler     vk.Sampler

	DepthFormat vk.Format
}

const OffscreenColorFormat = vk.FormatR32g32b32a32Sfloat

func NewOffscreen(context *VulkanContext, width, height uint32) (*VulkanOffscreen, error) {
	o := &VulkanOffscreen{
		DepthFormat: vk.FormatX8D24UnormPack32,
	}

	if err := o.createTargets(context, width, height); err != nil {
		return nil, err
	}
	if err := o.createRenderPass(context); err != nil {
		return nil, err
	}
	if err := o.createFramebuffer(context, width, height); err != nil {
		return nil, err
	}

	sampler, err := NewTextureSampler(context)
	if err != nil {
		return nil, err
	}
	o.Sampler = sampler
	return o, nil
}

func (o *VulkanOffscreen) createTargets(context *VulkanContext, width, height uint32) error {
	color, err := NewImage(context, width, height,
		OffscreenColorFormat,
		vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit|vk.ImageUsageSampledBit|vk.ImageUsageStorageBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		vk.ImageAspectFlags(vk.ImageAspectColorBit))
	if err != nil {
		return err
	}
	o.Color = color

	depth, err := NewImage(context, width, height,
		o.DepthFormat,
		vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		vk.ImageAspectFlags(vk.ImageAspectDepthBit))
	if err != nil {
		return err
	}
	o.Depth = depth
	return nil
}

func (o *VulkanOffscreen) createRenderPass(context *VulkanContext) error {
	attachments := []vk.AttachmentDescription{
		{
			Format:         OffscreenColorFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutGeneral,
			FinalLayout:    vk.ImageLayoutGeneral,
		},
		{
			Format:         o.DepthFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpDontCare,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		},
	}

	colorReference := []vk.AttachmentReference{{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}}
	depthReference := vk.AttachmentReference{
		Attachment: 1,
		Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		ColorAttachmentCount:    1,
		PColorAttachments:       colorReference,
		PDepthStencilAttachment: &depthReference,
	}

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit) | vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
	}

	renderpassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	var renderPass vk.RenderPass
	if res := vk.CreateRenderPass(context.Device.LogicalDevice, &renderpassCreateInfo, context.Allocator, &renderPass); res != vk.Success {
		err := fmt.Errorf("failed to create offscreen render pass: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	o.RenderPass = renderPass
	return nil
}

func (o *VulkanOffscreen) createFramebuffer(context *VulkanContext, width, height uint32) error {
	attachments := []vk.ImageView{o.Color.View, o.Depth.View}

	framebufferInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      o.RenderPass,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		Width:           width,
		Height:          height,
		Layers:          1,
	}

	var framebuffer vk.Framebuffer
	if res := vk.CreateFramebuffer(context.Device.LogicalDevice, &framebufferInfo, context.Allocator, &framebuffer); res != vk.Success {
		err := fmt.Errorf("failed to create offscreen framebuffer: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	o.Framebuffer = framebuffer
	return nil
}

/**
 * @brief Transitions the freshly created color target into GENERAL layout.
 * Must run inside an open allocator batch.
 */
func (o *VulkanOffscreen) PrepareColorLayout(cmd *VulkanCommandBuffer) error {
	return o.Color.TransitionLayout(cmd, vk.ImageLayoutUndefined, vk.ImageLayoutGeneral)
}

/**
 * @brief Recreates the attachments and framebuffer at a new size. The
 * render pass is format-compatible and survives the resize.
 */
func (o *VulkanOffscreen) Recreate(context *VulkanContext, width, height uint32) error {
	vk.DeviceWaitIdle(context.Device.LogicalDevice)

	if o.Framebuffer != nil {
		vk.DestroyFramebuffer(context.Device.LogicalDevice, o.Framebuffer, context.Allocator)
		o.Framebuffer = nil
	}
	o.Color.Destroy(context)
	o.Depth.Destroy(context)

	if err := o.createTargets(context, width, height); err != nil {
		return err
	}
	return o.createFramebuffer(context, width, height)
}

func (o *VulkanOffscreen) Begin(cmd *VulkanCommandBuffer, width, height uint32, r, g, b, a float32) {
	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  o.RenderPass,
		Framebuffer: o.Framebuffer,
		RenderArea: vk.Rect2D{
			Extent: vk.Extent2D{
				Width:  width,
				Height: height,
			},
		},
	}

	clearValues := make([]vk.ClearValue, 2)
	clearValues[0].SetColor([]float32{r, g, b, a})
	clearValues[1].SetDepthStencil(1.0, 0)
	beginInfo.ClearValueCount = 2
	beginInfo.PClearValues = clearValues

	vk.CmdBeginRenderPass(cmd.Handle, &beginInfo, vk.SubpassContentsInline)
	cmd.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
}

func (o *VulkanOffscreen) End(cmd *VulkanCommandBuffer) {
	vk.CmdEndRenderPass(cmd.Handle)
	cmd.State = COMMAND_BUFFER_STATE_RECORDING
}

func (o *VulkanOffscreen) Destroy(context *VulkanContext) {
	if o.Sampler != nil {
		vk.DestroySampler(context.Device.LogicalDevice, o.Sampler, context.Allocator)
		o.Sampler = nil
	}
	if o.Framebuffer != nil {
		vk.DestroyFramebuffer(context.Device.LogicalDevice, o.Framebuffer, context.Allocator)
		o.Framebuffer = nil
	}
	if o.RenderPass != nil {
		vk.DestroyRenderPass(context.Device.LogicalDevice, o.RenderPass, context.Allocator)
		o.RenderPass = nil
	}
	if o.Color != nil {
		o.Color.Destroy(context)
	}
	if o.Depth != nil {
		o.Depth.Destroy(context)
	}
}
