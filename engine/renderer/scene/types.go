package scene

import (
	"bytes"
	"encoding/binary"

	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
)

/**
 * @brief Per-vertex data as laid out in the vertex buffer. 44 bytes.
 */
type Vertex struct {
	Position math.Vec3
	Normal   math.Vec3
	Color    math.Vec3
	TexCoord math.Vec2
}

// VertexSize is the stride of one packed Vertex.
const VertexSize = 44

/**
 * @brief Wavefront material as the shaders read it. 80 bytes.
 */
type Material struct {
	Ambient       math.Vec3
	Diffuse       math.Vec3
	Specular      math.Vec3
	Transmittance math.Vec3
	Emission      math.Vec3
	Shininess     float32
	IOR           float32
	Dissolve      float32
	// Illumination model, see the Wavefront MTL specification.
	Illum     int32
	TextureID int32
}

// MaterialSize is the packed size of one Material.
const MaterialSize = 80

// DefaultMaterial returns the material used when a mesh carries none.
func DefaultMaterial() Material {
	return Material{
		Ambient:   math.Vec3{X: 0.1, Y: 0.1, Z: 0.1},
		Diffuse:   math.Vec3{X: 0.7, Y: 0.7, Z: 0.7},
		Specular:  math.Vec3{X: 1.0, Y: 1.0, Z: 1.0},
		Shininess: 0.0,
		IOR:       1.0,
		Dissolve:  1.0,
		Illum:     1,
		TextureID: -1,
	}
}

/**
 * @brief CPU-side mesh produced by the loaders, ready for upload.
 */
type MeshData struct {
	Vertices     []Vertex
	Indices      []uint32
	Materials    []Material
	MatIndices   []int32
	TexturePaths []string
}

/**
 * @brief GPU resources of one uploaded mesh.
 */
type Model struct {
	VertexCount uint32
	IndexCount  uint32

	VertexBuffer   *vulkan.VulkanBuffer
	IndexBuffer    *vulkan.VulkanBuffer
	MaterialBuffer *vulkan.VulkanBuffer
	MatIndexBuffer *vulkan.VulkanBuffer
}

/**
 * @brief One placed model. ObjIndex selects the model's buffers in the
 * shader, TxtOffset rebases its material texture ids into the global
 * texture array. 136 bytes on the wire.
 */
type Instance struct {
	Transform   math.Mat4
	TransformIT math.Mat4
	ObjIndex    int32
	TxtOffset   int32
}

// InstanceSize is the packed size of one Instance.
const InstanceSize = 136

type ObjType int32

const (
	ObjTypeSphere ObjType = 0
	ObjTypeCube   ObjType = 1
)

/**
 * @brief An analytically intersected primitive. 32 bytes on the wire.
 */
type ImplicitPrimitive struct {
	Minimum math.Vec3
	Maximum math.Vec3
	ObjType ObjType
	MatID   int32
}

// ImplicitSize is the packed size of one ImplicitPrimitive.
const ImplicitSize = 32

/**
 * @brief Push constant block shared by the raster and ray tracing paths.
 */
type PushConstants struct {
	LightPosition  math.Vec3
	InstanceID     uint32
	LightIntensity float32
	LightType      int32
	Frame          int32
}

// PushConstantsSize is the packed size of the push constant block.
const PushConstantsSize = 28

/**
 * @brief Camera matrices uploaded to the uniform buffer each frame.
 * The inverses feed ray generation.
 */
type CameraMatrices struct {
	View        math.Mat4
	Proj        math.Mat4
	ViewInverse math.Mat4
	ProjInverse math.Mat4
}

// CameraMatricesSize is the packed size of CameraMatrices.
const CameraMatricesSize = 256

// Pack serializes any of the fixed-layout GPU types above into little
// endian bytes. The structs carry only float32 and int32 scalars, so the
// packed layout matches what the shaders declare.
func Pack(v any) []byte {
	var buf bytes.Buffer
	// Fixed-size scalar structs cannot fail to encode.
	_ = binary.Write(&buf, binary.LittleEndian, v)
	return buf.Bytes()
}

// PackSlice serializes a slice of fixed-layout values element by element.
func PackSlice[T any](items []T) []byte {
	var buf bytes.Buffer
	for i := range items {
		_ = binary.Write(&buf, binary.LittleEndian, items[i])
	}
	return buf.Bytes()
}
