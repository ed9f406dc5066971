package loaders

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/lumen/engine/math"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const quadOBJ = `# a unit quad
mtllib quad.mtl
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
vn 0 0 1
usemtl red
f 1/1/1 2/2/1 3/3/1 4/4/1
`

const quadMTL = `newmtl red
Kd 1 0 0
Ks 0.5 0.5 0.5
Ns 32
Ni 1.45
d 1
illum 2
map_Kd red.png
`

func TestLoadOBJQuad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "quad.mtl", quadMTL)
	path := writeFile(t, dir, "quad.obj", quadOBJ)

	mesh, err := LoadOBJ(path)
	require.NoError(t, err)

	// Four deduplicated vertices, two fan triangles.
	assert.Len(t, mesh.Vertices, 4)
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, mesh.Indices)
	assert.Equal(t, []int32{0, 0}, mesh.MatIndices)

	require.Len(t, mesh.Materials, 1)
	mat := mesh.Materials[0]
	assert.Equal(t, math.Vec3{X: 1, Y: 0, Z: 0}, mat.Diffuse)
	assert.Equal(t, float32(32), mat.Shininess)
	assert.Equal(t, float32(1.45), mat.IOR)
	assert.Equal(t, int32(2), mat.Illum)
	assert.Equal(t, int32(0), mat.TextureID)

	require.Len(t, mesh.TexturePaths, 1)
	assert.Equal(t, filepath.Join(dir, "red.png"), mesh.TexturePaths[0])

	// The texcoord V axis is flipped.
	assert.Equal(t, math.Vec2{X: 0, Y: 1}, mesh.Vertices[0].TexCoord)
	assert.Equal(t, math.Vec3{X: 0, Y: 0, Z: 1}, mesh.Vertices[0].Normal)
}

func TestLoadOBJComputesMissingNormals(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "tri.obj", `v 0 0 0
v 1 0 0
v 0 1 0
f 1 2 3
`)

	mesh, err := LoadOBJ(path)
	require.NoError(t, err)

	require.Len(t, mesh.Vertices, 3)
	for _, v := range mesh.Vertices {
		assert.Equal(t, math.Vec3{X: 0, Y: 0, Z: 1}, v.Normal)
	}
	// No usemtl means every triangle maps to material slot zero.
	assert.Equal(t, []int32{0}, mesh.MatIndices)
	assert.Empty(t, mesh.Materials)
}

func TestLoadOBJNegativeIndices(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "tri.obj", `v 0 0 0
v 1 0 0
v 0 1 0
f -3 -2 -1
`)

	mesh, err := LoadOBJ(path)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1, 2}, mesh.Indices)
}

func TestLoadOBJRejectsBadInput(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadOBJ(filepath.Join(dir, "missing.obj"))
	assert.Error(t, err)

	empty := writeFile(t, dir, "empty.obj", "v 0 0 0\n")
	_, err = LoadOBJ(empty)
	assert.Error(t, err, "no faces")

	bad := writeFile(t, dir, "bad.obj", "v 0 0 0\nf 1 2 9\n")
	_, err = LoadOBJ(bad)
	assert.Error(t, err, "index out of range")
}

func TestLoadOBJMissingMTLIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "tri.obj", `mtllib nowhere.mtl
v 0 0 0
v 1 0 0
v 0 1 0
f 1 2 3
`)

	mesh, err := LoadOBJ(path)
	require.NoError(t, err)
	assert.Len(t, mesh.Indices, 3)
}
