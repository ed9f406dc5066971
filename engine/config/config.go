package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Window holds the windowing configuration.
type Window struct {
	Title  string `toml:"title"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

// Renderer holds the renderer configuration.
type Renderer struct {
	// Maximum number of accumulated ray-traced frames before the image is
	// considered converged and dispatch stops.
	MaxFrames  int32      `toml:"max_frames"`
	ClearColor [4]float32 `toml:"clear_color"`
	// Enables the ray-traced path when the device supports it.
	RayTracing bool `toml:"ray_tracing"`
	AssetDir   string `toml:"asset_dir"`
}

// Model is one triangle-mesh entry of the scene.
type Model struct {
	Path      string     `toml:"path"`
	Translate [3]float32 `toml:"translate"`
	// Euler angles in degrees, applied in X, Y, Z order.
	Rotate [3]float32 `toml:"rotate"`
	Scale  [3]float32 `toml:"scale"`
}

// Sphere is one implicit sphere entry of the scene.
type Sphere struct {
	Center   [3]float32 `toml:"center"`
	Radius   float32    `toml:"radius"`
	Material int32      `toml:"material"`
}

// Box is one implicit axis-aligned box entry of the scene.
type Box struct {
	Min      [3]float32 `toml:"min"`
	Max      [3]float32 `toml:"max"`
	Material int32      `toml:"material"`
}

// Material is one implicit material entry of the scene.
type Material struct {
	Diffuse  [3]float32 `toml:"diffuse"`
	Specular [3]float32 `toml:"specular"`
	Emission [3]float32 `toml:"emission"`
}

// Scene lists the content loaded at startup.
type Scene struct {
	Models    []Model    `toml:"models"`
	Spheres   []Sphere   `toml:"spheres"`
	Boxes     []Box      `toml:"boxes"`
	Materials []Material `toml:"materials"`
}

type Config struct {
	Window   Window   `toml:"window"`
	Renderer Renderer `toml:"renderer"`
	Scene    Scene    `toml:"scene"`
}

// Default returns the configuration used when no file is provided.
func Default() *Config {
	return &Config{
		Window: Window{
			Title:  "Lumen",
			Width:  1280,
			Height: 720,
		},
		Renderer: Renderer{
			MaxFrames:  100,
			ClearColor: [4]float32{0.0, 0.0, 0.0, 1.0},
			RayTracing: true,
			AssetDir:   "assets",
		},
	}
}

// Load reads a TOML configuration file and overlays it on the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if cfg.Window.Width == 0 || cfg.Window.Height == 0 {
		return nil, fmt.Errorf("config: window size must be non-zero")
	}
	if cfg.Renderer.MaxFrames <= 0 {
		return nil, fmt.Errorf("config: renderer.max_frames must be positive")
	}
	return cfg, nil
}
