package raytrace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/scene"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
)

func testRegistry() *scene.Registry {
	registry := &scene.Registry{
		Models: []*scene.Model{
			{
				VertexCount:  3,
				IndexCount:   3,
				VertexBuffer: &vulkan.VulkanBuffer{},
				IndexBuffer:  &vulkan.VulkanBuffer{},
			},
			{
				VertexCount:  6,
				IndexCount:   12,
				VertexBuffer: &vulkan.VulkanBuffer{},
				IndexBuffer:  &vulkan.VulkanBuffer{},
			},
		},
		Instances: []scene.Instance{
			{Transform: math.NewMat4Identity(), ObjIndex: 0},
			{Transform: math.NewMat4Translation(math.NewVec3(2, 0, 0)), ObjIndex: 1},
			{Transform: math.NewMat4Identity(), ObjIndex: 0},
		},
		Implicits:   []scene.ImplicitPrimitive{{}, {}},
		ImplicitBuf: &vulkan.VulkanBuffer{},
	}
	return registry
}

func TestToTransformKHRIdentity(t *testing.T) {
	got := ToTransformKHR(math.NewMat4Identity())
	want := [12]float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
	}
	assert.Equal(t, want, got)
}

func TestToTransformKHRTranslation(t *testing.T) {
	got := ToTransformKHR(math.NewMat4Translation(math.NewVec3(1, 2, 3)))
	// Translation lands in the last column of each row.
	assert.Equal(t, float32(1), got[3])
	assert.Equal(t, float32(2), got[7])
	assert.Equal(t, float32(3), got[11])
}

func TestBuildGeometryInputsAppendsAABBsLast(t *testing.T) {
	registry := testRegistry()
	inputs := BuildGeometryInputs(registry)

	require.Len(t, inputs, 3)
	assert.False(t, inputs[0].IsAABBs)
	assert.Equal(t, uint32(scene.VertexSize), inputs[0].VertexStride)
	assert.Same(t, registry.Models[1].IndexBuffer, inputs[1].IndexBuffer)

	aabbs := inputs[2]
	assert.True(t, aabbs.IsAABBs)
	assert.Same(t, registry.ImplicitBuf, aabbs.AABBBuffer)
	assert.Equal(t, uint32(2), aabbs.AABBCount)
	assert.Equal(t, uint32(scene.ImplicitSize), aabbs.AABBStride)
}

func TestBuildGeometryInputsWithoutImplicits(t *testing.T) {
	registry := testRegistry()
	registry.ImplicitBuf = nil

	inputs := BuildGeometryInputs(registry)
	require.Len(t, inputs, 2)
	assert.False(t, inputs[1].IsAABBs)
}

func TestBuildInstanceInputs(t *testing.T) {
	registry := testRegistry()
	inputs := BuildInstanceInputs(registry)

	require.Len(t, inputs, 4)
	for i, instance := range registry.Instances {
		assert.Equal(t, uint32(instance.ObjIndex), inputs[i].CustomIndex)
		assert.Equal(t, int(instance.ObjIndex), inputs[i].BlasIndex)
		assert.Equal(t, uint32(0), inputs[i].SBTOffset)
		assert.Equal(t, uint8(0xFF), inputs[i].Mask)
	}

	implicit := inputs[3]
	assert.Equal(t, 2, implicit.BlasIndex, "implicit BLAS follows the models")
	assert.Equal(t, uint32(1), implicit.SBTOffset, "implicit hits use the intersection hit group")
	assert.Equal(t, ToTransformKHR(math.NewMat4Identity()), implicit.Transform)
}
