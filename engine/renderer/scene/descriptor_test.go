package scene

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
)

func preparedRegistry(t *testing.T, modelCount int) (*Registry, *fakeUploader) {
	t.Helper()
	uploader := &fakeUploader{}
	registry := NewRegistry(uploader, whiteDecoder)
	for i := 0; i < modelCount; i++ {
		require.NoError(t, registry.AddModel(triangleMesh(), math.NewMat4Identity()))
	}
	require.NoError(t, registry.EnsureFallbackTexture())
	require.NoError(t, registry.CreateImplicitBuffers())
	require.NoError(t, registry.CreateSceneDescriptionBuffer())
	return registry, uploader
}

func TestFreezeRequiresResources(t *testing.T) {
	uploader := &fakeUploader{}
	registry := NewRegistry(uploader, whiteDecoder)
	binder := NewBinder()

	assert.Error(t, binder.Freeze(registry))

	require.NoError(t, registry.AddModel(triangleMesh(), math.NewMat4Identity()))
	assert.Error(t, binder.Freeze(registry), "still no textures")

	require.NoError(t, registry.EnsureFallbackTexture())
	assert.NoError(t, binder.Freeze(registry))
}

func TestStaleTracksRegistryGrowth(t *testing.T) {
	registry, _ := preparedRegistry(t, 1)
	binder := NewBinder()

	assert.True(t, binder.Stale(registry), "unfrozen binder is stale")
	require.NoError(t, binder.Freeze(registry))
	assert.False(t, binder.Stale(registry))

	require.NoError(t, registry.AddModel(triangleMesh(), math.NewMat4Identity()))
	assert.True(t, binder.Stale(registry))

	// Re-freezing over the new counts clears the staleness.
	require.NoError(t, binder.Freeze(registry))
	assert.False(t, binder.Stale(registry))
}

func TestBuildWritesRejectsStaleBinder(t *testing.T) {
	registry, _ := preparedRegistry(t, 1)
	binder := NewBinder()
	require.NoError(t, binder.Freeze(registry))

	require.NoError(t, registry.AddModel(triangleMesh(), math.NewMat4Identity()))

	_, err := binder.BuildWrites(registry, &vulkan.VulkanBuffer{})
	assert.Error(t, err)
}

func TestBuildWritesLayout(t *testing.T) {
	registry, _ := preparedRegistry(t, 2)
	binder := NewBinder()
	require.NoError(t, binder.Freeze(registry))

	writes, err := binder.BuildWrites(registry, &vulkan.VulkanBuffer{})
	require.NoError(t, err)
	require.Len(t, writes, 8)

	byBinding := map[uint32]vk.WriteDescriptorSet{}
	for _, w := range writes {
		byBinding[w.DstBinding] = w
	}

	assert.Equal(t, vk.DescriptorTypeUniformBuffer, byBinding[BindingCamera].DescriptorType)
	assert.Equal(t, uint32(1), byBinding[BindingCamera].DescriptorCount)

	// Only the material array carries an extra entry: the implicit
	// material buffer appended after the per-model entries.
	assert.Equal(t, uint32(3), byBinding[BindingMaterials].DescriptorCount)
	require.Len(t, byBinding[BindingMaterials].PBufferInfo, 3)

	// The matIndex, vertex and index arrays stay at exactly one entry
	// per model.
	assert.Equal(t, uint32(2), byBinding[BindingMatIndex].DescriptorCount)
	require.Len(t, byBinding[BindingMatIndex].PBufferInfo, 2)
	assert.Equal(t, uint32(2), byBinding[BindingVertices].DescriptorCount)
	assert.Equal(t, uint32(2), byBinding[BindingIndices].DescriptorCount)
	assert.Equal(t, uint32(1), byBinding[BindingSceneDesc].DescriptorCount)
	assert.Equal(t, uint32(1), byBinding[BindingImplicits].DescriptorCount)

	textures := byBinding[BindingTextures]
	assert.Equal(t, vk.DescriptorTypeCombinedImageSampler, textures.DescriptorType)
	assert.Equal(t, uint32(1), textures.DescriptorCount)
	assert.Len(t, textures.PImageInfo, 1)
	assert.Equal(t, vk.ImageLayoutShaderReadOnlyOptimal, textures.PImageInfo[0].ImageLayout)
}

func TestBuildWritesRequiresSceneBuffers(t *testing.T) {
	uploader := &fakeUploader{}
	registry := NewRegistry(uploader, whiteDecoder)
	require.NoError(t, registry.AddModel(triangleMesh(), math.NewMat4Identity()))
	require.NoError(t, registry.EnsureFallbackTexture())

	binder := NewBinder()
	require.NoError(t, binder.Freeze(registry))

	_, err := binder.BuildWrites(registry, &vulkan.VulkanBuffer{})
	assert.Error(t, err, "scene description and implicit buffers are missing")
}
