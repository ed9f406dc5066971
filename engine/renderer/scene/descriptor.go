package scene

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
)

// Descriptor bindings shared by the raster and ray tracing pipelines.
const (
	BindingCamera    = 0
	BindingMaterials = 1
	BindingSceneDesc = 2
	BindingTextures  = 3
	BindingMatIndex  = 4
	BindingVertices  = 5
	BindingIndices   = 6
	BindingImplicits = 7
)

/**
 * @brief Binder builds the shared descriptor set over the registry's
 * resources. Array sizes are baked into the layout, so the registry's
 * counts are captured by Freeze and any later registry growth makes the
 * binder stale; a stale binder refuses to produce writes until it is
 * frozen and laid out again.
 */
type Binder struct {
	modelCount   int
	textureCount int
	frozen       bool

	Layout vk.DescriptorSetLayout
	Pool   vk.DescriptorPool
	Set    vk.DescriptorSet
}

func NewBinder() *Binder {
	return &Binder{}
}

/**
 * @brief Captures the registry's resource counts. The registry must hold
 * at least one model and one texture; EnsureFallbackTexture covers the
 * textureless case.
 */
func (b *Binder) Freeze(registry *Registry) error {
	if len(registry.Models) == 0 {
		return fmt.Errorf("cannot freeze bindings with no models loaded")
	}
	if len(registry.Textures) == 0 {
		return fmt.Errorf("cannot freeze bindings with no textures registered")
	}
	b.modelCount = len(registry.Models)
	b.textureCount = len(registry.Textures)
	b.frozen = true
	return nil
}

// Stale reports whether the registry grew past the frozen counts.
func (b *Binder) Stale(registry *Registry) bool {
	if !b.frozen {
		return true
	}
	return len(registry.Models) != b.modelCount || len(registry.Textures) != b.textureCount
}

func rasterAndHitStages() vk.ShaderStageFlags {
	return vk.ShaderStageFlags(vk.ShaderStageFragmentBit) |
		vk.ShaderStageFlags(vulkan.ShaderStageClosestHitBitKHR) |
		vk.ShaderStageFlags(vulkan.ShaderStageAnyHitBitKHR)
}

/**
 * @brief Creates the descriptor layout, pool and set for the frozen
 * counts.
 */
func (b *Binder) CreateLayout(context *vulkan.VulkanContext) error {
	if !b.frozen {
		return fmt.Errorf("bindings must be frozen before the layout is created")
	}

	nbObj := uint32(b.modelCount)
	nbTxt := uint32(b.textureCount)

	bindings := []vk.DescriptorSetLayoutBinding{
		{
			Binding:         BindingCamera,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			StageFlags: vk.ShaderStageFlags(vk.ShaderStageVertexBit) |
				vk.ShaderStageFlags(vulkan.ShaderStageRaygenBitKHR),
		},
		{
			Binding:         BindingMaterials,
			DescriptorType:  vk.DescriptorTypeStorageBuffer,
			DescriptorCount: nbObj + 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit) | rasterAndHitStages(),
		},
		{
			Binding:         BindingSceneDesc,
			DescriptorType:  vk.DescriptorTypeStorageBuffer,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit) | rasterAndHitStages(),
		},
		{
			Binding:         BindingTextures,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: nbTxt,
			StageFlags:      rasterAndHitStages(),
		},
		{
			Binding:         BindingMatIndex,
			DescriptorType:  vk.DescriptorTypeStorageBuffer,
			DescriptorCount: nbObj,
			StageFlags:      rasterAndHitStages(),
		},
		{
			Binding:         BindingVertices,
			DescriptorType:  vk.DescriptorTypeStorageBuffer,
			DescriptorCount: nbObj,
			StageFlags:      vk.ShaderStageFlags(vulkan.ShaderStageClosestHitBitKHR),
		},
		{
			Binding:         BindingIndices,
			DescriptorType:  vk.DescriptorTypeStorageBuffer,
			DescriptorCount: nbObj,
			StageFlags:      vk.ShaderStageFlags(vulkan.ShaderStageClosestHitBitKHR),
		},
		{
			Binding:         BindingImplicits,
			DescriptorType:  vk.DescriptorTypeStorageBuffer,
			DescriptorCount: 1,
			StageFlags: vk.ShaderStageFlags(vulkan.ShaderStageClosestHitBitKHR) |
				vk.ShaderStageFlags(vulkan.ShaderStageIntersectionBitKHR) |
				vk.ShaderStageFlags(vulkan.ShaderStageAnyHitBitKHR),
		},
	}

	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}

	var layout vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &layoutInfo, context.Allocator, &layout); res != vk.Success {
		err := fmt.Errorf("failed to create descriptor set layout: %s", vulkan.VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	b.Layout = layout

	poolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: 1},
		{Type: vk.DescriptorTypeStorageBuffer, DescriptorCount: 4*nbObj + 3},
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: nbTxt},
	}

	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       1,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}

	var pool vk.DescriptorPool
	if res := vk.CreateDescriptorPool(context.Device.LogicalDevice, &poolInfo, context.Allocator, &pool); res != vk.Success {
		err := fmt.Errorf("failed to create descriptor pool: %s", vulkan.VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	b.Pool = pool

	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}

	sets := make([]vk.DescriptorSet, 1)
	if res := vk.AllocateDescriptorSets(context.Device.LogicalDevice, &allocInfo, &sets[0]); res != vk.Success {
		err := fmt.Errorf("failed to allocate descriptor set: %s", vulkan.VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	b.Set = sets[0]
	return nil
}

/**
 * @brief Produces the descriptor writes for every binding. The material
 * array holds one entry per model plus the implicit material buffer last,
 * which is how the shaders address materials of implicit hits; every
 * other per-model array holds exactly one entry per model.
 */
func (b *Binder) BuildWrites(registry *Registry, cameraBuffer *vulkan.VulkanBuffer) ([]vk.WriteDescriptorSet, error) {
	if b.Stale(registry) {
		return nil, fmt.Errorf("descriptor bindings are stale, freeze and rebuild the layout first")
	}
	if registry.SceneDescBuf == nil || registry.ImplicitBuf == nil || registry.ImplicitMatBuf == nil {
		return nil, fmt.Errorf("scene buffers must be created before descriptors are written")
	}

	wholeBuffer := func(buffer *vulkan.VulkanBuffer) vk.DescriptorBufferInfo {
		return vk.DescriptorBufferInfo{
			Buffer: buffer.Handle,
			Offset: 0,
			Range:  vk.DeviceSize(vk.WholeSize),
		}
	}

	var dbiMat, dbiMatIdx, dbiVert, dbiIdx []vk.DescriptorBufferInfo
	for _, model := range registry.Models {
		dbiMat = append(dbiMat, wholeBuffer(model.MaterialBuffer))
		dbiMatIdx = append(dbiMatIdx, wholeBuffer(model.MatIndexBuffer))
		dbiVert = append(dbiVert, wholeBuffer(model.VertexBuffer))
		dbiIdx = append(dbiIdx, wholeBuffer(model.IndexBuffer))
	}
	dbiMat = append(dbiMat, wholeBuffer(registry.ImplicitMatBuf))

	var dbiTxt []vk.DescriptorImageInfo
	for _, texture := range registry.Textures {
		dbiTxt = append(dbiTxt, vk.DescriptorImageInfo{
			Sampler:     texture.Sampler,
			ImageView:   texture.Image.View,
			ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
		})
	}

	// The layout baked these lengths in; a mismatch here means the write
	// arrays drifted from the frozen counts.
	if len(dbiMat) != b.modelCount+1 || len(dbiMatIdx) != b.modelCount ||
		len(dbiVert) != b.modelCount || len(dbiIdx) != b.modelCount ||
		len(dbiTxt) != b.textureCount {
		return nil, fmt.Errorf("descriptor write lengths do not match the frozen layout")
	}

	bufferWrite := func(binding uint32, infos []vk.DescriptorBufferInfo, descType vk.DescriptorType) vk.WriteDescriptorSet {
		return vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          b.Set,
			DstBinding:      binding,
			DescriptorCount: uint32(len(infos)),
			DescriptorType:  descType,
			PBufferInfo:     infos,
		}
	}

	writes := []vk.WriteDescriptorSet{
		bufferWrite(BindingCamera, []vk.DescriptorBufferInfo{wholeBuffer(cameraBuffer)}, vk.DescriptorTypeUniformBuffer),
		bufferWrite(BindingMaterials, dbiMat, vk.DescriptorTypeStorageBuffer),
		bufferWrite(BindingSceneDesc, []vk.DescriptorBufferInfo{wholeBuffer(registry.SceneDescBuf)}, vk.DescriptorTypeStorageBuffer),
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          b.Set,
			DstBinding:      BindingTextures,
			DescriptorCount: uint32(len(dbiTxt)),
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			PImageInfo:      dbiTxt,
		},
		bufferWrite(BindingMatIndex, dbiMatIdx, vk.DescriptorTypeStorageBuffer),
		bufferWrite(BindingVertices, dbiVert, vk.DescriptorTypeStorageBuffer),
		bufferWrite(BindingIndices, dbiIdx, vk.DescriptorTypeStorageBuffer),
		bufferWrite(BindingImplicits, []vk.DescriptorBufferInfo{wholeBuffer(registry.ImplicitBuf)}, vk.DescriptorTypeStorageBuffer),
	}
	return writes, nil
}

/**
 * @brief Pushes the writes to the device.
 */
func (b *Binder) Write(context *vulkan.VulkanContext, writes []vk.WriteDescriptorSet) {
	vk.UpdateDescriptorSets(context.Device.LogicalDevice, uint32(len(writes)), writes, 0, nil)
}

func (b *Binder) Destroy(context *vulkan.VulkanContext) {
	if b.Pool != nil {
		vk.DestroyDescriptorPool(context.Device.LogicalDevice, b.Pool, context.Allocator)
		b.Pool = nil
	}
	if b.Layout != nil {
		vk.DestroyDescriptorSetLayout(context.Device.LogicalDevice, b.Layout, context.Allocator)
		b.Layout = nil
	}
	b.frozen = false
}
