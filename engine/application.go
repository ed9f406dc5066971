package engine

import (
	"path/filepath"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/spaghettifunk/lumen/engine/assets"
	"github.com/spaghettifunk/lumen/engine/assets/loaders"
	"github.com/spaghettifunk/lumen/engine/config"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/platform"
	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/renderer/scene"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
)

/**
 * @brief Application ties the subsystems together: window, Vulkan device,
 * scene resources and the frame loop.
 */
type Application struct {
	config *config.Config

	platform  *platform.Platform
	context   *vulkan.VulkanContext
	allocator *vulkan.Allocator
	registry  *scene.Registry
	binder    *scene.Binder
	renderer  *renderer.Renderer
	assets    *assets.AssetManager
	clock     *core.Clock

	isRunning bool
}

func New(cfg *config.Config) *Application {
	return &Application{
		config: cfg,
		clock:  core.NewClock(),
	}
}

func (a *Application) Initialize() error {
	var err error

	if a.platform, err = platform.New(); err != nil {
		return err
	}
	if err = a.platform.Startup(a.config.Window.Title, a.config.Window.Width, a.config.Window.Height); err != nil {
		return err
	}

	if a.context, err = vulkan.NewContext(a.config.Window.Title,
		a.platform.GetRequiredExtensionNames(),
		a.config.Window.Width, a.config.Window.Height); err != nil {
		return err
	}

	if a.allocator, err = vulkan.NewAllocator(a.context); err != nil {
		return err
	}

	a.registry = scene.NewRegistry(a.allocator, loaders.DecodeImage)
	if err = a.loadScene(); err != nil {
		return err
	}

	a.binder = scene.NewBinder()
	if err = a.binder.Freeze(a.registry); err != nil {
		return err
	}
	if err = a.binder.CreateLayout(a.context); err != nil {
		return err
	}

	camera := renderer.NewCamera()
	a.renderer = renderer.NewRenderer(a.context, a.allocator, a.registry, a.binder, camera, a.config.Renderer.MaxFrames)
	a.renderer.UseRayTracing = a.config.Renderer.RayTracing
	cc := a.config.Renderer.ClearColor
	a.renderer.ClearColor = math.NewVec4(cc[0], cc[1], cc[2], cc[3])

	shaderDir := filepath.Join(a.config.Renderer.AssetDir, "shaders")
	if err = a.renderer.Prepare(shaderDir); err != nil {
		return err
	}

	a.platform.OnResize = func(width, height uint32) {
		if err := a.renderer.OnResize(width, height); err != nil {
			core.LogError("resize failed: %s", err)
		}
	}
	a.platform.OnKey = func(key glfw.Key) {
		switch key {
		case glfw.KeySpace:
			a.renderer.UseRayTracing = !a.renderer.UseRayTracing
			a.renderer.Accumulator.Reset()
		case glfw.KeyEscape:
			a.isRunning = false
		}
	}

	if a.assets, err = assets.NewAssetManager(); err != nil {
		return err
	}
	a.assets.OnChange = func(info assets.AssetInfo) {
		// Shaders and textures are baked into GPU state at startup; a
		// changed asset at least restarts accumulation so stale frames
		// are not blended with whatever the user is iterating on.
		core.LogInfo("asset changed: %s", info.Path)
		a.renderer.Accumulator.Reset()
	}
	if err = a.assets.Initialize(a.config.Renderer.AssetDir); err != nil {
		return err
	}

	a.isRunning = true
	return nil
}

// loadScene populates the registry from the configuration.
func (a *Application) loadScene() error {
	for _, m := range a.config.Scene.Models {
		transform := math.TransformFromPosition(vec3(m.Translate))
		transform.SetRotation(math.NewVec3(
			math.DegToRad(m.Rotate[0]),
			math.DegToRad(m.Rotate[1]),
			math.DegToRad(m.Rotate[2])))
		if m.Scale != [3]float32{} {
			transform.SetScale(vec3(m.Scale))
		}
		path := filepath.Join(a.config.Renderer.AssetDir, m.Path)
		if err := a.registry.LoadModel(loaders.ObjLoader{}, path, transform.Local()); err != nil {
			return err
		}
	}

	for _, mat := range a.config.Scene.Materials {
		material := scene.DefaultMaterial()
		material.Diffuse = vec3(mat.Diffuse)
		material.Specular = vec3(mat.Specular)
		material.Emission = vec3(mat.Emission)
		a.registry.AddImplicitMaterial(material)
	}
	for _, s := range a.config.Scene.Spheres {
		a.registry.AddImplicitSphere(vec3(s.Center), s.Radius, s.Material)
	}
	for _, b := range a.config.Scene.Boxes {
		a.registry.AddImplicitBox(vec3(b.Min), vec3(b.Max), b.Material)
	}

	if err := a.registry.EnsureFallbackTexture(); err != nil {
		return err
	}
	if err := a.registry.CreateImplicitBuffers(); err != nil {
		return err
	}
	return a.registry.CreateSceneDescriptionBuffer()
}

func (a *Application) Run() error {
	a.clock.Start()
	metrics := core.NewMetrics()
	lastTime := 0.0
	logTimer := 0.0

	for a.isRunning && !a.platform.ShouldClose() {
		a.platform.PumpMessages()

		if err := a.renderer.DrawFrame(); err != nil {
			return err
		}

		a.clock.Update()
		now := a.clock.Elapsed() / 1e9
		delta := now - lastTime
		lastTime = now

		metrics.Update(delta)
		logTimer += delta
		if logTimer > 5 {
			core.LogDebug("%.0f fps, %.2f ms/frame", metrics.FPS(), metrics.FrameTime())
			logTimer = 0
		}
	}
	return nil
}

func (a *Application) Shutdown() error {
	a.isRunning = false

	if a.assets != nil {
		a.assets.Shutdown()
	}
	if a.renderer != nil {
		a.renderer.Destroy()
	}
	if a.allocator != nil {
		a.allocator.Destroy()
	}
	if a.context != nil {
		a.context.Destroy()
	}
	if a.platform != nil {
		return a.platform.Shutdown()
	}
	return nil
}

func vec3(v [3]float32) math.Vec3 {
	return math.NewVec3(v[0], v[1], v[2])
}
