package loaders

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/scene"
)

// ObjLoader satisfies scene.MeshSource for Wavefront OBJ files.
type ObjLoader struct{}

func (ObjLoader) Load(path string) (*scene.MeshData, error) {
	return LoadOBJ(path)
}

// objIndex identifies one position/texcoord/normal combination.
type objIndex struct {
	v, vt, vn int
}

type objParser struct {
	positions []math.Vec3
	texCoords []math.Vec2
	normals   []math.Vec3

	mesh      *scene.MeshData
	vertexMap map[objIndex]uint32

	materialIndex map[string]int32
	currentMat    int32
}

/**
 * @brief LoadOBJ parses a Wavefront OBJ file and its MTL libraries into a
 * mesh ready for upload. Faces are triangulated with a fan, vertices are
 * deduplicated per index triple and each triangle records the material it
 * was drawn with.
 */
func LoadOBJ(path string) (*scene.MeshData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p := &objParser{
		mesh:          &scene.MeshData{},
		vertexMap:     make(map[objIndex]uint32),
		materialIndex: make(map[string]int32),
		currentMat:    -1,
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)

		switch fields[0] {
		case "v":
			vec, err := parseVec3(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
			}
			p.positions = append(p.positions, vec)
		case "vt":
			if len(fields) < 3 {
				return nil, fmt.Errorf("%s:%d: texcoord needs two components", path, lineNo)
			}
			u, err1 := parseFloat(fields[1])
			v, err2 := parseFloat(fields[2])
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("%s:%d: bad texcoord", path, lineNo)
			}
			// OBJ texture space is bottom-up.
			p.texCoords = append(p.texCoords, math.Vec2{X: u, Y: 1.0 - v})
		case "vn":
			vec, err := parseVec3(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
			}
			p.normals = append(p.normals, vec)
		case "f":
			if err := p.addFace(fields[1:]); err != nil {
				return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
			}
		case "usemtl":
			name := strings.Join(fields[1:], " ")
			if idx, ok := p.materialIndex[name]; ok {
				p.currentMat = idx
			} else {
				core.LogWarn("%s:%d: unknown material %q", path, lineNo, name)
				p.currentMat = -1
			}
		case "mtllib":
			for _, lib := range fields[1:] {
				if err := p.loadMTL(filepath.Join(filepath.Dir(path), lib)); err != nil {
					core.LogWarn("material library %s skipped: %s", lib, err)
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(p.mesh.Indices) == 0 {
		return nil, fmt.Errorf("%s contains no faces", path)
	}

	return p.mesh, nil
}

func (p *objParser) addFace(refs []string) error {
	if len(refs) < 3 {
		return fmt.Errorf("face needs at least three vertices")
	}

	corners := make([]uint32, len(refs))
	for i, ref := range refs {
		idx, err := p.resolveIndex(ref)
		if err != nil {
			return err
		}
		corners[i] = idx
	}

	matID := p.currentMat
	if matID < 0 {
		matID = 0
	}

	// Triangle fan around the first corner.
	for i := 1; i < len(corners)-1; i++ {
		a, b, c := corners[0], corners[i], corners[i+1]
		p.fixupNormals(a, b, c)
		p.mesh.Indices = append(p.mesh.Indices, a, b, c)
		p.mesh.MatIndices = append(p.mesh.MatIndices, matID)
	}
	return nil
}

// resolveIndex turns a v/vt/vn reference into a deduplicated vertex.
func (p *objParser) resolveIndex(ref string) (uint32, error) {
	parts := strings.Split(ref, "/")

	key := objIndex{v: -1, vt: -1, vn: -1}
	var err error
	if key.v, err = p.lookup(parts[0], len(p.positions)); err != nil {
		return 0, err
	}
	if len(parts) > 1 && parts[1] != "" {
		if key.vt, err = p.lookup(parts[1], len(p.texCoords)); err != nil {
			return 0, err
		}
	}
	if len(parts) > 2 && parts[2] != "" {
		if key.vn, err = p.lookup(parts[2], len(p.normals)); err != nil {
			return 0, err
		}
	}

	if idx, ok := p.vertexMap[key]; ok {
		return idx, nil
	}

	vertex := scene.Vertex{
		Position: p.positions[key.v],
		Color:    math.NewVec3One(),
	}
	if key.vt >= 0 {
		vertex.TexCoord = p.texCoords[key.vt]
	}
	if key.vn >= 0 {
		vertex.Normal = p.normals[key.vn]
	}

	idx := uint32(len(p.mesh.Vertices))
	p.mesh.Vertices = append(p.mesh.Vertices, vertex)
	p.vertexMap[key] = idx
	return idx, nil
}

// lookup resolves a one-based or negative OBJ index against count.
func (p *objParser) lookup(field string, count int) (int, error) {
	n, err := strconv.Atoi(field)
	if err != nil {
		return 0, fmt.Errorf("bad index %q", field)
	}
	if n < 0 {
		n = count + n
	} else {
		n--
	}
	if n < 0 || n >= count {
		return 0, fmt.Errorf("index %q out of range", field)
	}
	return n, nil
}

// fixupNormals gives flat geometric normals to corners that had none.
func (p *objParser) fixupNormals(a, b, c uint32) {
	verts := p.mesh.Vertices
	zero := math.NewVec3Zero()
	if verts[a].Normal != zero && verts[b].Normal != zero && verts[c].Normal != zero {
		return
	}
	normal := verts[b].Position.Sub(verts[a].Position).
		Cross(verts[c].Position.Sub(verts[a].Position)).Normalized()
	for _, i := range []uint32{a, b, c} {
		if verts[i].Normal == zero {
			verts[i].Normal = normal
		}
	}
}

func (p *objParser) loadMTL(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var current *scene.Material
	flush := func() {
		if current != nil {
			p.mesh.Materials = append(p.mesh.Materials, *current)
		}
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)

		if fields[0] == "newmtl" {
			flush()
			name := strings.Join(fields[1:], " ")
			mat := scene.DefaultMaterial()
			current = &mat
			p.materialIndex[name] = int32(len(p.mesh.Materials))
			continue
		}
		if current == nil {
			continue
		}

		switch fields[0] {
		case "Ka":
			current.Ambient, _ = parseVec3(fields[1:])
		case "Kd":
			current.Diffuse, _ = parseVec3(fields[1:])
		case "Ks":
			current.Specular, _ = parseVec3(fields[1:])
		case "Ke":
			current.Emission, _ = parseVec3(fields[1:])
		case "Tf":
			current.Transmittance, _ = parseVec3(fields[1:])
		case "Ns":
			if v, err := parseFloat(fields[1]); err == nil {
				current.Shininess = v
			}
		case "Ni":
			if v, err := parseFloat(fields[1]); err == nil {
				current.IOR = v
			}
		case "d":
			if v, err := parseFloat(fields[1]); err == nil {
				current.Dissolve = math.Clamp(v, 0.0, 1.0)
			}
		case "illum":
			if v, err := strconv.Atoi(fields[1]); err == nil {
				current.Illum = int32(v)
			}
		case "map_Kd":
			texture := strings.Join(fields[1:], " ")
			current.TextureID = int32(len(p.mesh.TexturePaths))
			p.mesh.TexturePaths = append(p.mesh.TexturePaths,
				filepath.Join(filepath.Dir(path), texture))
		}
	}
	flush()
	return scanner.Err()
}

func parseVec3(fields []string) (math.Vec3, error) {
	if len(fields) < 3 {
		return math.Vec3{}, fmt.Errorf("expected three components")
	}
	x, err1 := parseFloat(fields[0])
	y, err2 := parseFloat(fields[1])
	z, err3 := parseFloat(fields[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return math.Vec3{}, fmt.Errorf("bad vector %v", fields)
	}
	return math.Vec3{X: x, Y: y, Z: z}, nil
}

func parseFloat(s string) (float32, error) {
	v, err := strconv.ParseFloat(s, 32)
	return float32(v), err
}
