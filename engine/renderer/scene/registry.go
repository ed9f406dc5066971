package scene

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
)

/**
 * @brief Registry owns every GPU resource the scene references: model
 * buffers, instances, textures and implicit primitives. Uploads are staged
 * synchronously through the Uploader, so once a Load* call returns the
 * data is resident and the staging memory is gone.
 */
type Registry struct {
	uploader Uploader
	decode   ImageDecoder

	Models    []*Model
	Instances []Instance
	Textures  []*vulkan.VulkanTexture

	SceneDescBuf *vulkan.VulkanBuffer

	Implicits      []ImplicitPrimitive
	ImplicitMats   []Material
	ImplicitBuf    *vulkan.VulkanBuffer
	ImplicitMatBuf *vulkan.VulkanBuffer
}

func NewRegistry(uploader Uploader, decode ImageDecoder) *Registry {
	return &Registry{
		uploader: uploader,
		decode:   decode,
	}
}

// rayTracingUsage marks buffers the acceleration structure build reads.
func rayTracingUsage() vk.BufferUsageFlags {
	return vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit) |
		vk.BufferUsageFlags(vulkan.BufferUsageShaderDeviceAddressBit) |
		vk.BufferUsageFlags(vulkan.BufferUsageAccelerationStructureBuildInputReadOnlyBitKHR)
}

/**
 * @brief Parses a mesh through the source and places one instance of it.
 */
func (r *Registry) LoadModel(source MeshSource, path string, transform math.Mat4) error {
	mesh, err := source.Load(path)
	if err != nil {
		return err
	}
	return r.AddModel(mesh, transform)
}

/**
 * @brief Uploads a mesh and places one instance of it. Material colors are
 * converted from sRGB to linear before upload. The instance indexes the
 * model being appended and rebases its texture ids past the textures
 * already registered.
 */
func (r *Registry) AddModel(mesh *MeshData, transform math.Mat4) error {
	// Shaders work in linear space, Wavefront materials are authored sRGB.
	materials := make([]Material, len(mesh.Materials))
	copy(materials, mesh.Materials)
	for i := range materials {
		materials[i].Ambient = materials[i].Ambient.Pow(2.2)
		materials[i].Diffuse = materials[i].Diffuse.Pow(2.2)
		materials[i].Specular = materials[i].Specular.Pow(2.2)
	}
	if len(materials) == 0 {
		materials = append(materials, DefaultMaterial())
	}
	matIndices := mesh.MatIndices
	if len(matIndices) == 0 {
		matIndices = make([]int32, len(mesh.Indices)/3)
	}

	instance := Instance{
		Transform:   transform,
		TransformIT: transform.NormalMatrix(),
		ObjIndex:    int32(len(r.Models)),
		TxtOffset:   int32(len(r.Textures)),
	}

	if err := r.uploader.Begin(); err != nil {
		return err
	}

	model := &Model{
		VertexCount: uint32(len(mesh.Vertices)),
		IndexCount:  uint32(len(mesh.Indices)),
	}

	var textures []*vulkan.VulkanTexture
	err := func() error {
		var err error
		if model.VertexBuffer, err = r.uploader.CreateBuffer(
			PackSlice(mesh.Vertices),
			vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)|rayTracingUsage()); err != nil {
			return err
		}
		if model.IndexBuffer, err = r.uploader.CreateBuffer(
			PackSlice(mesh.Indices),
			vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit)|rayTracingUsage()); err != nil {
			return err
		}
		if model.MaterialBuffer, err = r.uploader.CreateBuffer(
			PackSlice(materials),
			vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)|vk.BufferUsageFlags(vulkan.BufferUsageShaderDeviceAddressBit)); err != nil {
			return err
		}
		if model.MatIndexBuffer, err = r.uploader.CreateBuffer(
			PackSlice(matIndices),
			vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)|vk.BufferUsageFlags(vulkan.BufferUsageShaderDeviceAddressBit)); err != nil {
			return err
		}

		for _, path := range mesh.TexturePaths {
			pixels, width, height := r.decode(path)
			texture, err := r.uploader.CreateTexture(pixels, width, height)
			if err != nil {
				return err
			}
			textures = append(textures, texture)
		}
		return nil
	}()
	if err != nil {
		r.uploader.Abort()
		r.releaseModel(model, textures)
		return err
	}

	if err := r.uploader.Submit(); err != nil {
		r.releaseModel(model, textures)
		return err
	}

	r.Textures = append(r.Textures, textures...)
	r.Models = append(r.Models, model)
	r.Instances = append(r.Instances, instance)

	core.LogInfo("Loaded model %d: %d vertices, %d indices, %d materials",
		instance.ObjIndex, model.VertexCount, model.IndexCount, len(materials))
	return nil
}

// releaseModel frees whatever a failed upload managed to create.
func (r *Registry) releaseModel(model *Model, textures []*vulkan.VulkanTexture) {
	for _, buffer := range []*vulkan.VulkanBuffer{
		model.VertexBuffer, model.IndexBuffer, model.MaterialBuffer, model.MatIndexBuffer,
	} {
		if buffer != nil {
			r.uploader.DestroyBuffer(buffer)
		}
	}
	for _, texture := range textures {
		r.uploader.DestroyTexture(texture)
	}
}

/**
 * @brief Places an extra instance of an already loaded model.
 */
func (r *Registry) AddInstance(objIndex int32, transform math.Mat4) error {
	if int(objIndex) >= len(r.Models) {
		return fmt.Errorf("instance references model %d but only %d are loaded", objIndex, len(r.Models))
	}
	base := r.Instances[objIndex]
	r.Instances = append(r.Instances, Instance{
		Transform:   transform,
		TransformIT: transform.NormalMatrix(),
		ObjIndex:    objIndex,
		TxtOffset:   base.TxtOffset,
	})
	return nil
}

func (r *Registry) AddImplicitSphere(center math.Vec3, radius float32, matID int32) {
	r.Implicits = append(r.Implicits, ImplicitPrimitive{
		Minimum: center.SubScalar(radius),
		Maximum: center.AddScalar(radius),
		ObjType: ObjTypeSphere,
		MatID:   matID,
	})
}

func (r *Registry) AddImplicitBox(minimum, maximum math.Vec3, matID int32) {
	r.Implicits = append(r.Implicits, ImplicitPrimitive{
		Minimum: minimum,
		Maximum: maximum,
		ObjType: ObjTypeCube,
		MatID:   matID,
	})
}

// AddImplicitMaterial registers a material for implicit primitives and
// returns its index for use as a MatID.
func (r *Registry) AddImplicitMaterial(material Material) int32 {
	r.ImplicitMats = append(r.ImplicitMats, material)
	return int32(len(r.ImplicitMats) - 1)
}

/**
 * @brief Uploads the implicit primitives and their materials. Empty lists
 * are padded with one default entry so the shaders always have a valid
 * buffer to bind.
 */
func (r *Registry) CreateImplicitBuffers() error {
	if len(r.Implicits) == 0 {
		r.Implicits = append(r.Implicits, ImplicitPrimitive{})
	}
	if len(r.ImplicitMats) == 0 {
		r.ImplicitMats = append(r.ImplicitMats, DefaultMaterial())
	}

	if err := r.uploader.Begin(); err != nil {
		return err
	}

	implBuf, err := r.uploader.CreateBuffer(
		PackSlice(r.Implicits),
		vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)|
			vk.BufferUsageFlags(vulkan.BufferUsageShaderDeviceAddressBit)|
			vk.BufferUsageFlags(vulkan.BufferUsageShaderBindingTableBitKHR))
	if err != nil {
		r.uploader.Abort()
		return err
	}
	matBuf, err := r.uploader.CreateBuffer(
		PackSlice(r.ImplicitMats),
		vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)|
			vk.BufferUsageFlags(vulkan.BufferUsageShaderDeviceAddressBit))
	if err != nil {
		r.uploader.Abort()
		r.uploader.DestroyBuffer(implBuf)
		return err
	}

	if err := r.uploader.Submit(); err != nil {
		r.uploader.DestroyBuffer(implBuf)
		r.uploader.DestroyBuffer(matBuf)
		return err
	}
	r.ImplicitBuf = implBuf
	r.ImplicitMatBuf = matBuf
	return nil
}

/**
 * @brief Guarantees the texture array is never empty by uploading a 1x1
 * white texture when nothing else was registered.
 */
func (r *Registry) EnsureFallbackTexture() error {
	if len(r.Textures) > 0 {
		return nil
	}
	if err := r.uploader.Begin(); err != nil {
		return err
	}
	texture, err := r.uploader.CreateTexture([]byte{255, 255, 255, 255}, 1, 1)
	if err != nil {
		r.uploader.Abort()
		return err
	}
	if err := r.uploader.Submit(); err != nil {
		r.uploader.DestroyTexture(texture)
		return err
	}
	r.Textures = append(r.Textures, texture)
	return nil
}

/**
 * @brief Releases every GPU resource the registry owns.
 */
func (r *Registry) Destroy() {
	for _, m := range r.Models {
		r.uploader.DestroyBuffer(m.VertexBuffer)
		r.uploader.DestroyBuffer(m.IndexBuffer)
		r.uploader.DestroyBuffer(m.MaterialBuffer)
		r.uploader.DestroyBuffer(m.MatIndexBuffer)
	}
	r.Models = nil
	r.Instances = nil

	for _, t := range r.Textures {
		r.uploader.DestroyTexture(t)
	}
	r.Textures = nil

	if r.SceneDescBuf != nil {
		r.uploader.DestroyBuffer(r.SceneDescBuf)
		r.SceneDescBuf = nil
	}
	if r.ImplicitBuf != nil {
		r.uploader.DestroyBuffer(r.ImplicitBuf)
		r.ImplicitBuf = nil
	}
	if r.ImplicitMatBuf != nil {
		r.uploader.DestroyBuffer(r.ImplicitMatBuf)
		r.ImplicitMatBuf = nil
	}
}
