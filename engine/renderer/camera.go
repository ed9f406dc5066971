package renderer

import (
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/scene"
)

/**
 * @brief A simple look-at camera. Fov is in degrees.
 */
type Camera struct {
	Position math.Vec3
	Target   math.Vec3
	Up       math.Vec3
	Fov      float32

	NearClip float32
	FarClip  float32
}

func NewCamera() *Camera {
	return &Camera{
		Position: math.NewVec3(4.0, 4.0, 4.0),
		Target:   math.NewVec3Zero(),
		Up:       math.NewVec3Up(),
		Fov:      60.0,
		NearClip: 0.1,
		FarClip:  1000.0,
	}
}

func (c *Camera) ViewMatrix() math.Mat4 {
	return math.NewMat4LookAt(c.Position, c.Target, c.Up)
}

/**
 * @brief Builds the camera matrix block for the uniform buffer. The
 * projection flips Y for Vulkan clip space; the inverses feed ray
 * generation.
 */
func (c *Camera) Matrices(aspect float32) scene.CameraMatrices {
	view := c.ViewMatrix()
	proj := math.NewMat4Perspective(math.DegToRad(c.Fov), aspect, c.NearClip, c.FarClip)
	proj.Data[5] *= -1

	return scene.CameraMatrices{
		View:        view,
		Proj:        proj,
		ViewInverse: view.Inverse(),
		ProjInverse: proj.Inverse(),
	}
}
