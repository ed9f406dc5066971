package raytrace

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/scene"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
)

/**
 * @brief Tracer is the ray tracing pipeline behind the dispatcher. It owns
 * the acceleration structures, the ray pipeline and its shader binding
 * table; the dispatcher only hands it a command buffer and the shared
 * descriptor set each frame.
 */
type Tracer interface {
	// Trace records the ray dispatch for one frame.
	Trace(cmd *vulkan.VulkanCommandBuffer, clearColor math.Vec4, sceneSet vk.DescriptorSet, extent vk.Extent2D, constants []byte)
	// UpdateOutputImage rebinds the storage image after a resize.
	UpdateOutputImage(view vk.ImageView)
	Destroy()
}

/**
 * @brief One bottom-level geometry, either indexed triangles or AABBs for
 * analytically intersected primitives.
 */
type GeometryInput struct {
	VertexBuffer *vulkan.VulkanBuffer
	VertexCount  uint32
	VertexStride uint32
	IndexBuffer  *vulkan.VulkanBuffer
	IndexCount   uint32

	IsAABBs    bool
	AABBBuffer *vulkan.VulkanBuffer
	AABBCount  uint32
	AABBStride uint32
}

/**
 * @brief One top-level instance. Transform is the 3x4 row-major form the
 * acceleration structure build consumes.
 */
type InstanceInput struct {
	Transform   [12]float32
	CustomIndex uint32
	BlasIndex   int
	SBTOffset   uint32
	Mask        uint8
}

// ToTransformKHR collapses a 4x4 matrix to the row-major 3x4 layout of
// VkTransformMatrixKHR, dropping the last row.
func ToTransformKHR(m math.Mat4) [12]float32 {
	var out [12]float32
	for row := 0; row < 3; row++ {
		for col := 0; col < 4; col++ {
			out[row*4+col] = m.Data[col*4+row]
		}
	}
	return out
}

/**
 * @brief Assembles one bottom-level geometry per model, with the implicit
 * primitives' AABB geometry appended last.
 */
func BuildGeometryInputs(registry *scene.Registry) []GeometryInput {
	inputs := make([]GeometryInput, 0, len(registry.Models)+1)
	for _, model := range registry.Models {
		inputs = append(inputs, GeometryInput{
			VertexBuffer: model.VertexBuffer,
			VertexCount:  model.VertexCount,
			VertexStride: scene.VertexSize,
			IndexBuffer:  model.IndexBuffer,
			IndexCount:   model.IndexCount,
		})
	}
	if registry.ImplicitBuf != nil {
		inputs = append(inputs, GeometryInput{
			IsAABBs:    true,
			AABBBuffer: registry.ImplicitBuf,
			AABBCount:  uint32(len(registry.Implicits)),
			AABBStride: scene.ImplicitSize,
		})
	}
	return inputs
}

/**
 * @brief Assembles the top-level instances. Model instances use hit group
 * 0; the implicit instance references the AABB geometry appended after
 * the models and uses hit group 1, which carries the intersection shader.
 */
func BuildInstanceInputs(registry *scene.Registry) []InstanceInput {
	inputs := make([]InstanceInput, 0, len(registry.Instances)+1)
	for _, instance := range registry.Instances {
		inputs = append(inputs, InstanceInput{
			Transform:   ToTransformKHR(instance.Transform),
			CustomIndex: uint32(instance.ObjIndex),
			BlasIndex:   int(instance.ObjIndex),
			SBTOffset:   0,
			Mask:        0xFF,
		})
	}
	if registry.ImplicitBuf != nil {
		inputs = append(inputs, InstanceInput{
			Transform:   ToTransformKHR(math.NewMat4Identity()),
			CustomIndex: uint32(len(registry.Models)),
			BlasIndex:   len(registry.Models),
			SBTOffset:   1,
			Mask:        0xFF,
		})
	}
	return inputs
}
