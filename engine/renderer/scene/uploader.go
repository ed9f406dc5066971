package scene

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
)

/**
 * @brief Uploader is the GPU allocation surface the registry drives. Begin
 * opens an upload batch, the Create* calls stage data into it and Submit
 * blocks until the GPU owns everything. Abort discards an open batch so a
 * failed upload cannot wedge the next one. Implemented by
 * vulkan.Allocator.
 */
type Uploader interface {
	Begin() error
	CreateBuffer(data []byte, usage vk.BufferUsageFlags) (*vulkan.VulkanBuffer, error)
	CreateTexture(pixels []byte, width, height uint32) (*vulkan.VulkanTexture, error)
	Submit() error
	Abort()
	DestroyBuffer(buffer *vulkan.VulkanBuffer)
	DestroyTexture(texture *vulkan.VulkanTexture)
}

/**
 * @brief MeshSource parses a mesh file into MeshData. A failure here is
 * fatal to scene setup. Implemented by loaders.ObjLoader.
 */
type MeshSource interface {
	Load(path string) (*MeshData, error)
}

/**
 * @brief ImageDecoder turns a texture path into tightly packed RGBA
 * pixels. Decode failures never propagate; implementations return a
 * placeholder instead so a broken asset cannot take the scene down.
 */
type ImageDecoder func(path string) (pixels []byte, width, height uint32)
