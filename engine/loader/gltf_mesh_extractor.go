package loader

import (
	"cmp"
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/go-gl/mathgl/mgl32"
)

// gltfMeshExtractor bakes every mesh instance of a parsed document's default scene into
// world-space CPU meshes.
type gltfMeshExtractor struct {
	parser    *gltfParser
	materials *gltfMaterialExtractor
}

// newGLTFMeshExtractor creates a new mesh extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//   - materials: the extractor resolving primitive materials
//
// Returns:
//   - *gltfMeshExtractor: the mesh extractor
func newGLTFMeshExtractor(parser *gltfParser, materials *gltfMaterialExtractor) *gltfMeshExtractor {
	return &gltfMeshExtractor{parser: parser, materials: materials}
}

// extractAll returns one Mesh per primitive per node instance, walking the default scene.
// Documents without scenes walk every root node; documents without nodes import each mesh
// untransformed.
func (e *gltfMeshExtractor) extractAll() ([]Mesh, error) {
	doc := e.parser.document
	if doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}

	if len(doc.Nodes) == 0 {
		var out []Mesh
		for i := range doc.Meshes {
			meshes, err := e.extractMesh(i, mgl32.Ident4())
			if err != nil {
				return nil, err
			}
			out = append(out, meshes...)
		}
		return out, nil
	}

	roots, err := e.rootNodes()
	if err != nil {
		return nil, err
	}

	var out []Mesh
	visiting := make(map[int]bool)
	var walk func(node int, parent mgl32.Mat4) error
	walk = func(node int, parent mgl32.Mat4) error {
		if node < 0 || node >= len(doc.Nodes) {
			return fmt.Errorf("node index %d out of range", node)
		}
		if visiting[node] {
			return fmt.Errorf("node %d is its own ancestor", node)
		}
		visiting[node] = true
		defer delete(visiting, node)

		n := &doc.Nodes[node]
		world := parent.Mul4(nodeTransform(n))
		if n.Mesh != nil {
			meshes, err := e.extractMesh(*n.Mesh, world)
			if err != nil {
				return fmt.Errorf("node %d: %w", node, err)
			}
			for i := range meshes {
				if n.Name != "" {
					meshes[i].Name = n.Name + "/" + meshes[i].Name
				}
			}
			out = append(out, meshes...)
		}
		for _, child := range n.Children {
			if err := walk(child, world); err != nil {
				return err
			}
		}
		return nil
	}
	for _, root := range roots {
		if err := walk(root, mgl32.Ident4()); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// rootNodes returns the nodes of the default scene, or every parentless node when the document has no scenes.
func (e *gltfMeshExtractor) rootNodes() ([]int, error) {
	doc := e.parser.document
	if len(doc.Scenes) > 0 {
		scene := 0
		if doc.Scene != nil {
			scene = *doc.Scene
		}
		if scene < 0 || scene >= len(doc.Scenes) {
			return nil, fmt.Errorf("scene index %d out of range", scene)
		}
		return doc.Scenes[scene].Nodes, nil
	}

	isChild := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if c >= 0 && c < len(isChild) {
				isChild[c] = true
			}
		}
	}
	var roots []int
	for i, child := range isChild {
		if !child {
			roots = append(roots, i)
		}
	}
	return roots, nil
}

// nodeTransform returns the local matrix of a node: its Matrix, or T * R * S.
func nodeTransform(n *gltfNode) mgl32.Mat4 {
	if n.Matrix != nil {
		return mgl32.Mat4(*n.Matrix)
	}
	m := mgl32.Ident4()
	if n.Translation != nil {
		t := n.Translation
		m = m.Mul4(mgl32.Translate3D(t[0], t[1], t[2]))
	}
	if n.Rotation != nil {
		r := n.Rotation
		q := mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}.Normalize()
		m = m.Mul4(q.Mat4())
	}
	if n.Scale != nil {
		s := n.Scale
		m = m.Mul4(mgl32.Scale3D(s[0], s[1], s[2]))
	}
	return m
}

// extractMesh extracts every primitive of a mesh, transformed by world.
func (e *gltfMeshExtractor) extractMesh(meshIndex int, world mgl32.Mat4) ([]Mesh, error) {
	doc := e.parser.document
	if meshIndex < 0 || meshIndex >= len(doc.Meshes) {
		return nil, fmt.Errorf("mesh index %d out of range", meshIndex)
	}

	mesh := &doc.Meshes[meshIndex]
	result := make([]Mesh, 0, len(mesh.Primitives))
	for primIdx := range mesh.Primitives {
		imported, err := e.extractPrimitive(&mesh.Primitives[primIdx], world)
		if err != nil {
			return nil, fmt.Errorf("mesh %d primitive %d: %w", meshIndex, primIdx, err)
		}
		imported.Name = cmp.Or(mesh.Name, fmt.Sprintf("mesh%d", meshIndex))
		if len(mesh.Primitives) > 1 {
			imported.Name = fmt.Sprintf("%s.%d", imported.Name, primIdx)
		}
		result = append(result, imported)
	}
	return result, nil
}

// extractPrimitive reads one triangle primitive and bakes world into its positions and normals.
func (e *gltfMeshExtractor) extractPrimitive(prim *gltfPrimitive, world mgl32.Mat4) (Mesh, error) {
	if prim.Mode != nil && *prim.Mode != gltfPrimitiveModeTriangles {
		return Mesh{}, fmt.Errorf("unsupported primitive mode: %d (only triangles supported)", *prim.Mode)
	}

	posAccessor, ok := prim.Attributes["POSITION"]
	if !ok {
		return Mesh{}, fmt.Errorf("primitive has no POSITION attribute")
	}
	positions, err := e.parser.readVec3(posAccessor)
	if err != nil {
		return Mesh{}, fmt.Errorf("failed to read positions: %w", err)
	}

	var cpu common.CPUMesh
	cpu.Positions = make([]mgl32.Vec3, len(positions))
	for i, p := range positions {
		cpu.Positions[i] = world.Mul4x1(p.Vec4(1)).Vec3()
	}

	if idx, ok := prim.Attributes["NORMAL"]; ok {
		normals, err := e.parser.readVec3(idx)
		if err != nil {
			return Mesh{}, fmt.Errorf("failed to read normals: %w", err)
		}
		normalMatrix := common.NormalMatrix(world)
		cpu.Normals = make([]mgl32.Vec3, len(normals))
		for i, n := range normals {
			v := normalMatrix.Mul4x1(n.Vec4(0)).Vec3()
			if v.Len() > 0 {
				v = v.Normalize()
			}
			cpu.Normals[i] = v
		}
	}

	if idx, ok := prim.Attributes["TEXCOORD_0"]; ok {
		cpu.UVs, err = e.parser.readVec2(idx)
		if err != nil {
			return Mesh{}, fmt.Errorf("failed to read texture coordinates: %w", err)
		}
	}

	if prim.Indices != nil {
		cpu.Indices, err = e.parser.readIndices(*prim.Indices)
		if err != nil {
			return Mesh{}, fmt.Errorf("failed to read indices: %w", err)
		}
	}

	// A mirroring transform turns counter-clockwise triangles clockwise.
	if world.Det() < 0 {
		flipWinding(&cpu)
	}

	if cpu.Normals == nil {
		cpu.ComputeNormals()
	}
	if err := cpu.Validate(); err != nil {
		return Mesh{}, err
	}

	material := defaultMaterialInfo()
	if prim.Material != nil {
		material, err = e.materials.extract(*prim.Material)
		if err != nil {
			return Mesh{}, err
		}
	}
	return Mesh{CPU: cpu, Material: material}, nil
}

// flipWinding swaps the second and third corner of every triangle.
func flipWinding(m *common.CPUMesh) {
	if m.Indices != nil {
		for t := 0; t+2 < len(m.Indices); t += 3 {
			m.Indices[t+1], m.Indices[t+2] = m.Indices[t+2], m.Indices[t+1]
		}
		return
	}
	for t := 0; t+2 < len(m.Positions); t += 3 {
		m.Positions[t+1], m.Positions[t+2] = m.Positions[t+2], m.Positions[t+1]
		if m.Normals != nil {
			m.Normals[t+1], m.Normals[t+2] = m.Normals[t+2], m.Normals[t+1]
		}
		if m.UVs != nil {
			m.UVs[t+1], m.UVs[t+2] = m.UVs[t+2], m.UVs[t+1]
		}
	}
}
