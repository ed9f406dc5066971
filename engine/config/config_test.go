package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lumen.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
[window]
title = "demo"
width = 800
height = 600

[renderer]
max_frames = 50
clear_color = [0.2, 0.2, 0.8, 1.0]
ray_tracing = true
asset_dir = "assets"

[[scene.models]]
path = "models/cube.obj"
translate = [0.0, 1.0, 0.0]
scale = [1.0, 1.0, 1.0]

[[scene.spheres]]
center = [0.0, 2.0, 0.0]
radius = 1.5
material = 0

[[scene.materials]]
diffuse = [0.8, 0.2, 0.2]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "demo", cfg.Window.Title)
	assert.Equal(t, uint32(800), cfg.Window.Width)
	assert.Equal(t, int32(50), cfg.Renderer.MaxFrames)
	assert.Equal(t, [4]float32{0.2, 0.2, 0.8, 1.0}, cfg.Renderer.ClearColor)
	require.Len(t, cfg.Scene.Models, 1)
	assert.Equal(t, "models/cube.obj", cfg.Scene.Models[0].Path)
	require.Len(t, cfg.Scene.Spheres, 1)
	assert.Equal(t, float32(1.5), cfg.Scene.Spheres[0].Radius)
	require.Len(t, cfg.Scene.Materials, 1)
}

func TestLoadKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
[window]
title = "partial"
width = 640
height = 480
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	// Unset renderer section falls back to defaults.
	assert.Equal(t, int32(100), cfg.Renderer.MaxFrames)
	assert.Equal(t, "assets", cfg.Renderer.AssetDir)
}

func TestLoadRejectsBadValues(t *testing.T) {
	path := writeConfig(t, `
[window]
width = 0
height = 600
`)
	_, err := Load(path)
	assert.Error(t, err)

	path = writeConfig(t, `
[renderer]
max_frames = -1
`)
	_, err = Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}
