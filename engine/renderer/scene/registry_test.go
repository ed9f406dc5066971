package scene

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
)

type recordedBuffer struct {
	data   []byte
	usage  vk.BufferUsageFlags
	handle *vulkan.VulkanBuffer
}

type recordedTexture struct {
	pixels        []byte
	width, height uint32
	handle        *vulkan.VulkanTexture
}

// fakeUploader records every allocation without touching a GPU.
type fakeUploader struct {
	open     bool
	batches  int
	aborts   int
	buffers  []recordedBuffer
	textures []recordedTexture

	destroyedBuffers  int
	destroyedTextures int
}

func (f *fakeUploader) Begin() error {
	if f.open {
		return assert.AnError
	}
	f.open = true
	return nil
}

func (f *fakeUploader) CreateBuffer(data []byte, usage vk.BufferUsageFlags) (*vulkan.VulkanBuffer, error) {
	if !f.open {
		return nil, assert.AnError
	}
	handle := &vulkan.VulkanBuffer{TotalSize: vk.DeviceSize(len(data)), Usage: usage}
	f.buffers = append(f.buffers, recordedBuffer{data: append([]byte(nil), data...), usage: usage, handle: handle})
	return handle, nil
}

func (f *fakeUploader) CreateTexture(pixels []byte, width, height uint32) (*vulkan.VulkanTexture, error) {
	if !f.open {
		return nil, assert.AnError
	}
	handle := &vulkan.VulkanTexture{}
	f.textures = append(f.textures, recordedTexture{
		pixels: append([]byte(nil), pixels...),
		width:  width,
		height: height,
		handle: handle,
	})
	return handle, nil
}

func (f *fakeUploader) Submit() error {
	if !f.open {
		return assert.AnError
	}
	f.open = false
	f.batches++
	return nil
}

func (f *fakeUploader) Abort() {
	f.open = false
	f.aborts++
}

func (f *fakeUploader) DestroyBuffer(*vulkan.VulkanBuffer)   { f.destroyedBuffers++ }
func (f *fakeUploader) DestroyTexture(*vulkan.VulkanTexture) { f.destroyedTextures++ }

func whiteDecoder(string) ([]byte, uint32, uint32) {
	return []byte{255, 255, 255, 255}, 1, 1
}

func triangleMesh(texturePaths ...string) *MeshData {
	return &MeshData{
		Vertices: []Vertex{
			{Position: math.Vec3{X: 0, Y: 0, Z: 0}},
			{Position: math.Vec3{X: 1, Y: 0, Z: 0}},
			{Position: math.Vec3{X: 0, Y: 1, Z: 0}},
		},
		Indices: []uint32{0, 1, 2},
		Materials: []Material{{
			Diffuse:   math.Vec3{X: 0.5, Y: 0.5, Z: 0.5},
			IOR:       1,
			Dissolve:  1,
			Illum:     1,
			TextureID: -1,
		}},
		MatIndices:   []int32{0},
		TexturePaths: texturePaths,
	}
}

// fakeMeshSource hands back a canned mesh or error.
type fakeMeshSource struct {
	mesh *MeshData
	err  error
}

func (s fakeMeshSource) Load(path string) (*MeshData, error) {
	return s.mesh, s.err
}

func TestLoadModelGoesThroughSource(t *testing.T) {
	uploader := &fakeUploader{}
	registry := NewRegistry(uploader, whiteDecoder)

	source := fakeMeshSource{mesh: triangleMesh()}
	require.NoError(t, registry.LoadModel(source, "models/tri.obj", math.NewMat4Identity()))
	assert.Len(t, registry.Models, 1)

	failing := fakeMeshSource{err: assert.AnError}
	require.Error(t, registry.LoadModel(failing, "models/missing.obj", math.NewMat4Identity()))
	assert.Len(t, registry.Models, 1)
}

// failingUploader fails the nth CreateBuffer call.
type failingUploader struct {
	fakeUploader
	failOn int
	calls  int
}

func (f *failingUploader) CreateBuffer(data []byte, usage vk.BufferUsageFlags) (*vulkan.VulkanBuffer, error) {
	f.calls++
	if f.calls == f.failOn {
		return nil, assert.AnError
	}
	return f.fakeUploader.CreateBuffer(data, usage)
}

func TestAddModelAbortsBatchOnFailure(t *testing.T) {
	uploader := &failingUploader{failOn: 2}
	registry := NewRegistry(uploader, whiteDecoder)

	require.Error(t, registry.AddModel(triangleMesh(), math.NewMat4Identity()))
	assert.False(t, uploader.open, "failed upload must not leave the batch open")
	assert.Equal(t, 1, uploader.aborts)
	assert.Empty(t, registry.Models)
	// The vertex buffer created before the failure is released.
	assert.Equal(t, 1, uploader.destroyedBuffers)

	// The next upload starts a fresh batch.
	require.NoError(t, registry.AddModel(triangleMesh(), math.NewMat4Identity()))
	assert.Len(t, registry.Models, 1)
}

func TestLoadModelRecordsInstance(t *testing.T) {
	uploader := &fakeUploader{}
	registry := NewRegistry(uploader, whiteDecoder)

	transform := math.NewMat4Translation(math.Vec3{X: 1, Y: 2, Z: 3})
	require.NoError(t, registry.AddModel(triangleMesh(), transform))

	require.Len(t, registry.Models, 1)
	require.Len(t, registry.Instances, 1)
	instance := registry.Instances[0]
	assert.Equal(t, int32(0), instance.ObjIndex)
	assert.Equal(t, int32(0), instance.TxtOffset)
	assert.True(t, instance.Transform.Compare(transform, math.K_FLOAT_EPSILON))
	assert.True(t, instance.TransformIT.Compare(transform.NormalMatrix(), math.K_FLOAT_EPSILON))

	model := registry.Models[0]
	assert.Equal(t, uint32(3), model.VertexCount)
	assert.Equal(t, uint32(3), model.IndexCount)

	// One batch, four buffers uploaded in vertex, index, material,
	// matIndex order.
	assert.Equal(t, 1, uploader.batches)
	require.Len(t, uploader.buffers, 4)
	assert.Same(t, model.VertexBuffer, uploader.buffers[0].handle)
	assert.Same(t, model.IndexBuffer, uploader.buffers[1].handle)
	assert.Same(t, model.MaterialBuffer, uploader.buffers[2].handle)
	assert.Same(t, model.MatIndexBuffer, uploader.buffers[3].handle)
}

func TestLoadModelConvertsMaterialsToLinear(t *testing.T) {
	uploader := &fakeUploader{}
	registry := NewRegistry(uploader, whiteDecoder)

	require.NoError(t, registry.AddModel(triangleMesh(), math.NewMat4Identity()))

	expected := triangleMesh().Materials[0]
	expected.Ambient = expected.Ambient.Pow(2.2)
	expected.Diffuse = expected.Diffuse.Pow(2.2)
	expected.Specular = expected.Specular.Pow(2.2)
	assert.Equal(t, PackSlice([]Material{expected}), uploader.buffers[2].data)
}

func TestLoadModelDefaultsEmptyMaterials(t *testing.T) {
	uploader := &fakeUploader{}
	registry := NewRegistry(uploader, whiteDecoder)

	mesh := triangleMesh()
	mesh.Materials = nil
	mesh.MatIndices = nil
	require.NoError(t, registry.AddModel(mesh, math.NewMat4Identity()))

	assert.Equal(t, PackSlice([]Material{DefaultMaterial()}), uploader.buffers[2].data)
	// One matIndex entry per triangle.
	assert.Equal(t, PackSlice([]int32{0}), uploader.buffers[3].data)
}

func TestLoadModelBuffersCarryRayTracingUsage(t *testing.T) {
	uploader := &fakeUploader{}
	registry := NewRegistry(uploader, whiteDecoder)

	require.NoError(t, registry.AddModel(triangleMesh(), math.NewMat4Identity()))

	asUsage := vk.BufferUsageFlags(vulkan.BufferUsageAccelerationStructureBuildInputReadOnlyBitKHR)
	addrUsage := vk.BufferUsageFlags(vulkan.BufferUsageShaderDeviceAddressBit)

	vertexUsage := uploader.buffers[0].usage
	assert.NotZero(t, vertexUsage&vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit))
	assert.NotZero(t, vertexUsage&asUsage)
	assert.NotZero(t, vertexUsage&addrUsage)

	indexUsage := uploader.buffers[1].usage
	assert.NotZero(t, indexUsage&vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit))
	assert.NotZero(t, indexUsage&asUsage)

	materialUsage := uploader.buffers[2].usage
	assert.NotZero(t, materialUsage&vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit))
	assert.Zero(t, materialUsage&asUsage)
}

func TestTextureOffsetsAccumulateAcrossModels(t *testing.T) {
	uploader := &fakeUploader{}
	registry := NewRegistry(uploader, whiteDecoder)

	require.NoError(t, registry.AddModel(triangleMesh("a.png", "b.png"), math.NewMat4Identity()))
	require.NoError(t, registry.AddModel(triangleMesh("c.png"), math.NewMat4Identity()))

	assert.Equal(t, int32(0), registry.Instances[0].TxtOffset)
	assert.Equal(t, int32(2), registry.Instances[1].TxtOffset)
	assert.Equal(t, int32(1), registry.Instances[1].ObjIndex)
	assert.Len(t, registry.Textures, 3)
}

func TestAddInstanceReusesModel(t *testing.T) {
	uploader := &fakeUploader{}
	registry := NewRegistry(uploader, whiteDecoder)

	require.NoError(t, registry.AddModel(triangleMesh("a.png"), math.NewMat4Identity()))
	require.NoError(t, registry.AddInstance(0, math.NewMat4Translation(math.Vec3{X: 5})))

	require.Len(t, registry.Instances, 2)
	assert.Equal(t, int32(0), registry.Instances[1].ObjIndex)
	assert.Equal(t, int32(0), registry.Instances[1].TxtOffset)
	assert.Error(t, registry.AddInstance(3, math.NewMat4Identity()))
}

func TestImplicitPrimitives(t *testing.T) {
	uploader := &fakeUploader{}
	registry := NewRegistry(uploader, whiteDecoder)

	matID := registry.AddImplicitMaterial(DefaultMaterial())
	registry.AddImplicitSphere(math.Vec3{X: 1, Y: 1, Z: 1}, 0.5, matID)
	registry.AddImplicitBox(math.Vec3{X: -1, Y: -1, Z: -1}, math.Vec3{X: 1, Y: 1, Z: 1}, matID)

	require.NoError(t, registry.CreateImplicitBuffers())

	require.Len(t, registry.Implicits, 2)
	sphere := registry.Implicits[0]
	assert.Equal(t, ObjTypeSphere, sphere.ObjType)
	assert.Equal(t, math.Vec3{X: 0.5, Y: 0.5, Z: 0.5}, sphere.Minimum)
	assert.Equal(t, math.Vec3{X: 1.5, Y: 1.5, Z: 1.5}, sphere.Maximum)
	assert.Equal(t, ObjTypeCube, registry.Implicits[1].ObjType)

	require.NotNil(t, registry.ImplicitBuf)
	require.NotNil(t, registry.ImplicitMatBuf)
	assert.NotZero(t, registry.ImplicitBuf.Usage&vk.BufferUsageFlags(vulkan.BufferUsageShaderBindingTableBitKHR))
}

func TestCreateImplicitBuffersPadsDefaults(t *testing.T) {
	uploader := &fakeUploader{}
	registry := NewRegistry(uploader, whiteDecoder)

	require.NoError(t, registry.CreateImplicitBuffers())

	require.Len(t, registry.Implicits, 1)
	assert.Equal(t, ImplicitPrimitive{}, registry.Implicits[0])
	require.Len(t, registry.ImplicitMats, 1)
	assert.Equal(t, DefaultMaterial(), registry.ImplicitMats[0])
}

func TestEnsureFallbackTexture(t *testing.T) {
	uploader := &fakeUploader{}
	registry := NewRegistry(uploader, whiteDecoder)

	require.NoError(t, registry.EnsureFallbackTexture())
	require.Len(t, uploader.textures, 1)
	assert.Equal(t, []byte{255, 255, 255, 255}, uploader.textures[0].pixels)
	assert.Equal(t, uint32(1), uploader.textures[0].width)
	assert.Equal(t, uint32(1), uploader.textures[0].height)

	// A second call is a no-op.
	require.NoError(t, registry.EnsureFallbackTexture())
	assert.Len(t, uploader.textures, 1)
}

func TestSceneDescriptionBuffer(t *testing.T) {
	uploader := &fakeUploader{}
	registry := NewRegistry(uploader, whiteDecoder)

	assert.Error(t, registry.CreateSceneDescriptionBuffer())

	require.NoError(t, registry.AddModel(triangleMesh(), math.NewMat4Identity()))
	require.NoError(t, registry.CreateSceneDescriptionBuffer())

	require.NotNil(t, registry.SceneDescBuf)
	last := uploader.buffers[len(uploader.buffers)-1]
	assert.Equal(t, PackSlice(registry.Instances), last.data)
	assert.Equal(t, InstanceSize, len(last.data))
}

func TestDestroyReleasesEverything(t *testing.T) {
	uploader := &fakeUploader{}
	registry := NewRegistry(uploader, whiteDecoder)

	require.NoError(t, registry.AddModel(triangleMesh("a.png"), math.NewMat4Identity()))
	require.NoError(t, registry.CreateImplicitBuffers())
	require.NoError(t, registry.CreateSceneDescriptionBuffer())

	registry.Destroy()

	// 4 model buffers, scene description, implicit buffer and material.
	assert.Equal(t, 7, uploader.destroyedBuffers)
	assert.Equal(t, 1, uploader.destroyedTextures)
	assert.Nil(t, registry.SceneDescBuf)
	assert.Empty(t, registry.Models)
}

func TestPackedSizes(t *testing.T) {
	assert.Equal(t, VertexSize, len(Pack(Vertex{})))
	assert.Equal(t, MaterialSize, len(Pack(Material{})))
	assert.Equal(t, InstanceSize, len(Pack(Instance{})))
	assert.Equal(t, ImplicitSize, len(Pack(ImplicitPrimitive{})))
	assert.Equal(t, PushConstantsSize, len(Pack(PushConstants{})))
	assert.Equal(t, CameraMatricesSize, len(Pack(CameraMatrices{})))
}
