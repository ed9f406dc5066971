package renderer

import (
	"fmt"
	"path/filepath"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/raytrace"
	"github.com/spaghettifunk/lumen/engine/renderer/scene"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
)

/**
 * @brief Renderer dispatches the per-frame work: it refreshes the camera
 * uniform buffer, then either rasterizes every instance into the offscreen
 * target or hands the frame to the ray tracer, gated by the accumulation
 * counter.
 */
type Renderer struct {
	context  *vulkan.VulkanContext
	uploader *vulkan.Allocator
	registry *scene.Registry
	binder   *scene.Binder

	Offscreen    *vulkan.VulkanOffscreen
	pipeline     *vulkan.VulkanPipeline
	vertShader   *vulkan.VulkanShaderStage
	fragShader   *vulkan.VulkanShaderStage
	cameraBuffer *vulkan.VulkanBuffer
	framePool    vk.CommandPool

	Camera      *Camera
	Accumulator *Accumulator
	tracer      raytrace.Tracer

	UseRayTracing bool
	ClearColor    math.Vec4

	LightPosition  math.Vec3
	LightIntensity float32
	LightType      int32
}

func NewRenderer(
	context *vulkan.VulkanContext,
	uploader *vulkan.Allocator,
	registry *scene.Registry,
	binder *scene.Binder,
	camera *Camera,
	maxFrames int32,
) *Renderer {
	return &Renderer{
		context:        context,
		uploader:       uploader,
		registry:       registry,
		binder:         binder,
		Camera:         camera,
		Accumulator:    NewAccumulator(maxFrames),
		ClearColor:     math.NewVec4(1.0, 1.0, 1.0, 1.0),
		LightPosition:  math.NewVec3(10.0, 15.0, 8.0),
		LightIntensity: 100.0,
		LightType:      0,
	}
}

/**
 * @brief Builds the GPU state the frame loop needs: offscreen target,
 * camera uniform buffer, raster pipeline and the descriptor set contents.
 * The binder must be frozen and laid out before this runs.
 */
func (r *Renderer) Prepare(shaderDir string) error {
	offscreen, err := vulkan.NewOffscreen(r.context, r.context.FramebufferWidth, r.context.FramebufferHeight)
	if err != nil {
		return err
	}
	r.Offscreen = offscreen

	if err := r.prepareOffscreenLayout(); err != nil {
		return err
	}

	if r.cameraBuffer, err = r.uploader.CreateUniformBuffer(scene.CameraMatricesSize); err != nil {
		return err
	}

	if err := r.createRasterPipeline(shaderDir); err != nil {
		return err
	}

	poolInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: r.context.Device.GraphicsQueueIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit),
	}
	if res := vk.CreateCommandPool(r.context.Device.LogicalDevice, &poolInfo, r.context.Allocator, &r.framePool); res != vk.Success {
		return fmt.Errorf("failed to create frame command pool: %s", vulkan.VulkanResultString(res))
	}

	writes, err := r.binder.BuildWrites(r.registry, r.cameraBuffer)
	if err != nil {
		return err
	}
	r.binder.Write(r.context, writes)

	core.LogInfo("Renderer prepared: %dx%d, %d instances",
		r.context.FramebufferWidth, r.context.FramebufferHeight, len(r.registry.Instances))
	return nil
}

// prepareOffscreenLayout transitions the fresh color target to GENERAL in
// its own upload batch.
func (r *Renderer) prepareOffscreenLayout() error {
	if err := r.uploader.Begin(); err != nil {
		return err
	}
	if err := r.Offscreen.PrepareColorLayout(r.uploader.Cmd()); err != nil {
		r.uploader.Abort()
		return err
	}
	return r.uploader.Submit()
}

func (r *Renderer) SetTracer(tracer raytrace.Tracer) {
	r.tracer = tracer
}

func (r *Renderer) createRasterPipeline(shaderDir string) error {
	var err error
	if r.vertShader, err = vulkan.LoadShaderModule(r.context,
		filepath.Join(shaderDir, "shader.vert.spv"), vk.ShaderStageVertexBit); err != nil {
		return err
	}
	if r.fragShader, err = vulkan.LoadShaderModule(r.context,
		filepath.Join(shaderDir, "shader.frag.spv"), vk.ShaderStageFragmentBit); err != nil {
		return err
	}

	attributes := []vk.VertexInputAttributeDescription{
		{Location: 0, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 0},
		{Location: 1, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 12},
		{Location: 2, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 24},
		{Location: 3, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: 36},
	}

	pipeline, err := vulkan.NewGraphicsPipeline(r.context, &vulkan.VulkanPipelineConfig{
		RenderPass:           r.Offscreen.RenderPass,
		Stride:               scene.VertexSize,
		Attributes:           attributes,
		DescriptorSetLayouts: []vk.DescriptorSetLayout{r.binder.Layout},
		Stages: []vk.PipelineShaderStageCreateInfo{
			r.vertShader.ShaderStageCreateInfo,
			r.fragShader.ShaderStageCreateInfo,
		},
		Viewport: vk.Viewport{
			Width:    float32(r.context.FramebufferWidth),
			Height:   float32(r.context.FramebufferHeight),
			MaxDepth: 1.0,
		},
		Scissor: vk.Rect2D{
			Extent: vk.Extent2D{Width: r.context.FramebufferWidth, Height: r.context.FramebufferHeight},
		},
		CullMode:           vk.CullModeNone,
		PushConstantSize:   scene.PushConstantsSize,
		PushConstantStages: vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
	})
	if err != nil {
		return err
	}
	r.pipeline = pipeline
	return nil
}

/**
 * @brief Records and submits one frame, blocking until it completes.
 */
func (r *Renderer) DrawFrame() error {
	cmd, err := vulkan.AllocateAndBeginSingleUse(r.context, r.framePool)
	if err != nil {
		return err
	}

	r.updateCameraBuffer(cmd)

	if r.UseRayTracing && r.tracer != nil {
		r.raytrace(cmd)
	} else {
		r.rasterize(cmd)
	}

	return cmd.EndSingleUse(r.context, r.framePool, r.context.Device.GraphicsQueue)
}

// updateCameraBuffer rewrites the camera UBO in place, fenced so shader
// reads from the previous frame finish first.
func (r *Renderer) updateCameraBuffer(cmd *vulkan.VulkanCommandBuffer) {
	aspect := float32(r.context.FramebufferWidth) / float32(r.context.FramebufferHeight)
	data := scene.Pack(r.Camera.Matrices(aspect))

	readStages := vk.PipelineStageFlags(vk.PipelineStageVertexShaderBit) |
		vk.PipelineStageFlags(vulkan.PipelineStageRayTracingShaderBitKHR)
	vulkan.CmdUpdateBufferBarriered(cmd, r.cameraBuffer, data, readStages)
}

func (r *Renderer) pushConstants(frame int32, instanceID uint32) []byte {
	return scene.Pack(scene.PushConstants{
		LightPosition:  r.LightPosition,
		InstanceID:     instanceID,
		LightIntensity: r.LightIntensity,
		LightType:      r.LightType,
		Frame:          frame,
	})
}

/**
 * @brief Draws every instance into the offscreen target.
 */
func (r *Renderer) rasterize(cmd *vulkan.VulkanCommandBuffer) {
	width := r.context.FramebufferWidth
	height := r.context.FramebufferHeight

	r.Offscreen.Begin(cmd, width, height,
		r.ClearColor.X, r.ClearColor.Y, r.ClearColor.Z, r.ClearColor.W)

	viewport := vk.Viewport{
		Width:    float32(width),
		Height:   float32(height),
		MaxDepth: 1.0,
	}
	vk.CmdSetViewport(cmd.Handle, 0, 1, []vk.Viewport{viewport})
	scissor := vk.Rect2D{Extent: vk.Extent2D{Width: width, Height: height}}
	vk.CmdSetScissor(cmd.Handle, 0, 1, []vk.Rect2D{scissor})

	r.pipeline.Bind(cmd, vk.PipelineBindPointGraphics)
	vk.CmdBindDescriptorSets(cmd.Handle, vk.PipelineBindPointGraphics,
		r.pipeline.PipelineLayout, 0, 1, []vk.DescriptorSet{r.binder.Set}, 0, nil)

	for i, instance := range r.registry.Instances {
		model := r.registry.Models[instance.ObjIndex]

		constants := r.pushConstants(r.Accumulator.Frame, uint32(i))
		vk.CmdPushConstants(cmd.Handle, r.pipeline.PipelineLayout,
			vk.ShaderStageFlags(vk.ShaderStageVertexBit)|vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
			0, uint32(len(constants)), unsafe.Pointer(&constants[0]))

		vk.CmdBindVertexBuffers(cmd.Handle, 0, 1,
			[]vk.Buffer{model.VertexBuffer.Handle}, []vk.DeviceSize{0})
		vk.CmdBindIndexBuffer(cmd.Handle, model.IndexBuffer.Handle, 0, vk.IndexTypeUint32)
		vk.CmdDrawIndexed(cmd.Handle, model.IndexCount, 1, 0, 0, 0)
	}

	r.Offscreen.End(cmd)
}

/**
 * @brief Advances accumulation and dispatches the ray tracer, unless the
 * image has already converged for this viewpoint.
 */
func (r *Renderer) raytrace(cmd *vulkan.VulkanCommandBuffer) {
	frame := r.Accumulator.Tick(r.Camera.ViewMatrix(), r.Camera.Fov)
	if r.Accumulator.Converged() {
		return
	}

	extent := vk.Extent2D{
		Width:  r.context.FramebufferWidth,
		Height: r.context.FramebufferHeight,
	}
	r.tracer.Trace(cmd, r.ClearColor, r.binder.Set, extent, r.pushConstants(frame, 0))
}

/**
 * @brief Rebuilds the offscreen target at the new size, points the ray
 * tracer at the fresh storage image and restarts accumulation.
 */
func (r *Renderer) OnResize(width, height uint32) error {
	if width == 0 || height == 0 {
		return nil
	}
	r.context.FramebufferWidth = width
	r.context.FramebufferHeight = height

	if err := r.Offscreen.Recreate(r.context, width, height); err != nil {
		return err
	}
	if err := r.prepareOffscreenLayout(); err != nil {
		return err
	}

	if r.tracer != nil {
		r.tracer.UpdateOutputImage(r.Offscreen.Color.View)
	}
	r.Accumulator.Reset()

	core.LogDebug("Resized to %dx%d", width, height)
	return nil
}

func (r *Renderer) Destroy() {
	vk.DeviceWaitIdle(r.context.Device.LogicalDevice)

	if r.pipeline != nil {
		r.pipeline.Destroy(r.context)
	}
	if r.vertShader != nil {
		r.vertShader.Destroy(r.context)
	}
	if r.fragShader != nil {
		r.fragShader.Destroy(r.context)
	}
	r.binder.Destroy(r.context)
	if r.cameraBuffer != nil {
		r.cameraBuffer.Destroy(r.context)
		r.cameraBuffer = nil
	}
	r.registry.Destroy()
	if r.Offscreen != nil {
		r.Offscreen.Destroy(r.context)
	}
	if r.tracer != nil {
		r.tracer.Destroy()
	}
	if r.framePool != nil {
		vk.DestroyCommandPool(r.context.Device.LogicalDevice, r.framePool, r.context.Allocator)
		r.framePool = nil
	}
}
