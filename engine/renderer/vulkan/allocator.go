package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
)

/**
 * @brief GPU resource allocator. Batches buffer and texture uploads into a
 * single-use command buffer: Begin opens a batch, the Create* calls record
 * staged copies into it, and Submit runs the batch and blocks until the GPU
 * has consumed it, after which the staging memory is released.
 */
type Allocator struct {
	context *VulkanContext
	pool    vk.CommandPool
	cmd     *VulkanCommandBuffer
	staging []*VulkanBuffer
}

func NewAllocator(context *VulkanContext) (*Allocator, error) {
	poolInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: context.Device.GraphicsQueueIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit),
	}

	var pool vk.CommandPool
	if res := vk.CreateCommandPool(context.Device.LogicalDevice, &poolInfo, context.Allocator, &pool); res != vk.Success {
		err := fmt.Errorf("failed to create allocator command pool: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	return &Allocator{
		context: context,
		pool:    pool,
	}, nil
}

func (a *Allocator) Begin() error {
	if a.cmd != nil {
		return fmt.Errorf("allocator batch already open")
	}
	cmd, err := AllocateAndBeginSingleUse(a.context, a.pool)
	if err != nil {
		return err
	}
	a.cmd = cmd
	return nil
}

// Cmd exposes the open batch's command buffer for callers that need to
// record their own transfer-time commands, layout transitions mostly.
func (a *Allocator) Cmd() *VulkanCommandBuffer {
	return a.cmd
}

/**
 * @brief Creates a device-local buffer filled with data. Must be called
 * inside a Begin/Submit batch.
 */
func (a *Allocator) CreateBuffer(data []byte, usage vk.BufferUsageFlags) (*VulkanBuffer, error) {
	if a.cmd == nil {
		return nil, fmt.Errorf("allocator batch not open")
	}
	size := vk.DeviceSize(len(data))

	staging, err := NewBuffer(a.context, size,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}
	if err := staging.LoadData(a.context, 0, data); err != nil {
		staging.Destroy(a.context)
		return nil, err
	}
	a.staging = append(a.staging, staging)

	buffer, err := NewBuffer(a.context, size,
		usage|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return nil, err
	}
	buffer.CopyFrom(a.cmd, staging, size)
	return buffer, nil
}

/**
 * @brief Creates a device-local uniform buffer that is updated through
 * transfer writes each frame rather than staged uploads.
 */
func (a *Allocator) CreateUniformBuffer(size vk.DeviceSize) (*VulkanBuffer, error) {
	return NewBuffer(a.context, size,
		vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit|vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
}

/**
 * @brief Creates a sampled texture from RGBA pixel data. Must be called
 * inside a Begin/Submit batch; the image ends up SHADER_READ_ONLY_OPTIMAL.
 */
func (a *Allocator) CreateTexture(pixels []byte, width, height uint32) (*VulkanTexture, error) {
	if a.cmd == nil {
		return nil, fmt.Errorf("allocator batch not open")
	}

	staging, err := NewBuffer(a.context, vk.DeviceSize(len(pixels)),
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}
	if err := staging.LoadData(a.context, 0, pixels); err != nil {
		staging.Destroy(a.context)
		return nil, err
	}
	a.staging = append(a.staging, staging)

	image, err := NewImage(a.context, width, height,
		vk.FormatR8g8b8a8Srgb,
		vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageTransferDstBit|vk.ImageUsageSampledBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		vk.ImageAspectFlags(vk.ImageAspectColorBit))
	if err != nil {
		return nil, err
	}

	if err := image.TransitionLayout(a.cmd, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal); err != nil {
		return nil, err
	}
	image.CopyFromBuffer(a.cmd, staging)
	if err := image.TransitionLayout(a.cmd, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal); err != nil {
		return nil, err
	}

	sampler, err := NewTextureSampler(a.context)
	if err != nil {
		image.Destroy(a.context)
		return nil, err
	}

	return &VulkanTexture{Image: *image, Sampler: sampler}, nil
}

/**
 * @brief Closes the open batch without submitting it, releasing the
 * command buffer and any staged memory so the next Begin starts clean.
 */
func (a *Allocator) Abort() {
	if a.cmd == nil {
		return
	}
	a.cmd.Free(a.context, a.pool)
	a.cmd = nil

	for _, s := range a.staging {
		s.Destroy(a.context)
	}
	a.staging = nil
}

/**
 * @brief Submits the open batch, blocks on its fence and frees staging.
 */
func (a *Allocator) Submit() error {
	if a.cmd == nil {
		return fmt.Errorf("allocator batch not open")
	}
	err := a.cmd.EndSingleUse(a.context, a.pool, a.context.Device.GraphicsQueue)
	a.cmd = nil

	for _, s := range a.staging {
		s.Destroy(a.context)
	}
	a.staging = nil
	return err
}

func (a *Allocator) DestroyBuffer(buffer *VulkanBuffer) {
	buffer.Destroy(a.context)
}

func (a *Allocator) DestroyTexture(texture *VulkanTexture) {
	texture.Destroy(a.context)
}

func (a *Allocator) Destroy() {
	if a.pool != nil {
		vk.DestroyCommandPool(a.context.Device.LogicalDevice, a.pool, a.context.Allocator)
		a.pool = nil
	}
}
