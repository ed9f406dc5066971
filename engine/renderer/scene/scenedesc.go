package scene

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
)

/**
 * @brief Uploads the instance table the shaders index by gl_InstanceID or
 * the raster push constant. Must run after every LoadModel and AddInstance
 * call; the buffer snapshots the instances at upload time.
 */
func (r *Registry) CreateSceneDescriptionBuffer() error {
	if len(r.Instances) == 0 {
		return fmt.Errorf("no instances to describe")
	}

	if err := r.uploader.Begin(); err != nil {
		return err
	}

	buffer, err := r.uploader.CreateBuffer(
		PackSlice(r.Instances),
		vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)|
			vk.BufferUsageFlags(vulkan.BufferUsageShaderDeviceAddressBit))
	if err != nil {
		r.uploader.Abort()
		return err
	}

	if err := r.uploader.Submit(); err != nil {
		r.uploader.DestroyBuffer(buffer)
		return err
	}
	r.SceneDescBuf = buffer
	return nil
}
