package model

import "fmt"

// SubMesh is a flat triangle list indexing into the owning mesh's positions.
type SubMesh struct {
	Triangles []int `json:"triangles"`
}

// Mesh is indexed triangle geometry.
//
// Normals and UVs are either empty or parallel to Positions.
type Mesh struct {
	ID        Identifier `json:"id"`
	Name      string     `json:"name"`
	Positions []Vec3     `json:"positions"`
	Normals   []Vec3     `json:"normals,omitempty"`
	UVs       []Vec2     `json:"uvs,omitempty"`
	SubMeshes []SubMesh  `json:"sub_meshes"`
}

// NewMesh builds and validates a mesh.
func NewMesh(id Identifier, name string, positions, normals []Vec3, uvs []Vec2, subMeshes ...SubMesh) (*Mesh, error) {
	m := &Mesh{
		ID:        id,
		Name:      name,
		Positions: positions,
		Normals:   normals,
		UVs:       uvs,
		SubMeshes: subMeshes,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Mesh) EntityID() Identifier { return m.ID }
func (m *Mesh) Kind() Kind           { return KindMesh }
func (*Mesh) entity()                {}

// TriangleCount returns the number of triangles across all sub-meshes.
func (m *Mesh) TriangleCount() int {
	n := 0
	for _, sm := range m.SubMeshes {
		n += len(sm.Triangles) / 3
	}
	return n
}

// Validate checks identifiers, attribute lengths and triangle indices.
func (m *Mesh) Validate() error {
	if m.ID == "" {
		return invalid(ErrEmptyIdentifier, KindMesh, m.ID, "id", "identifier must not be empty")
	}
	n := len(m.Positions)
	if len(m.Normals) != 0 && len(m.Normals) != n {
		return invalid(ErrAttributeLength, KindMesh, m.ID, "normals",
			"has %d entries, expected 0 or %d", len(m.Normals), n)
	}
	if len(m.UVs) != 0 && len(m.UVs) != n {
		return invalid(ErrAttributeLength, KindMesh, m.ID, "uvs",
			"has %d entries, expected 0 or %d", len(m.UVs), n)
	}
	for i, p := range m.Positions {
		if !p.finite() {
			return invalid(ErrNonFinite, KindMesh, m.ID, fmt.Sprintf("positions[%d]", i), "component is not finite")
		}
	}
	for i, nv := range m.Normals {
		if !nv.finite() {
			return invalid(ErrNonFinite, KindMesh, m.ID, fmt.Sprintf("normals[%d]", i), "component is not finite")
		}
	}
	for i, uv := range m.UVs {
		if !uv.finite() {
			return invalid(ErrNonFinite, KindMesh, m.ID, fmt.Sprintf("uvs[%d]", i), "component is not finite")
		}
	}
	if len(m.SubMeshes) == 0 {
		return invalid(ErrNoSubMesh, KindMesh, m.ID, "sub_meshes", "at least one sub-mesh is required")
	}
	for s, sm := range m.SubMeshes {
		if len(sm.Triangles)%3 != 0 {
			return invalid(ErrTriangleCount, KindMesh, m.ID, fmt.Sprintf("sub_meshes[%d].triangles", s),
				"index count %d is not a multiple of 3", len(sm.Triangles))
		}
		for i, idx := range sm.Triangles {
			if idx < 0 || idx >= n {
				return invalid(ErrIndexOutOfRange, KindMesh, m.ID, fmt.Sprintf("sub_meshes[%d].triangles[%d]", s, i),
					"index %d out of range [0,%d)", idx, n)
			}
		}
	}
	return nil
}
