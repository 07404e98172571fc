package model

import "math"

// Vec2 is a 2D vector, used for texture coordinates.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Vec3 is a 3D vector, used for positions, normals, translation and scale.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Quaternion represents a rotation.
type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// QuaternionIdentity is the rotation that leaves a vector unchanged.
func QuaternionIdentity() Quaternion {
	return Quaternion{W: 1}
}

// Transform places an object or instance relative to its parent.
type Transform struct {
	Translation Vec3       `json:"translation"`
	Rotation    Quaternion `json:"rotation"`
	Scale       Vec3       `json:"scale"`
}

// IdentityTransform returns zero translation, identity rotation, unit scale.
func IdentityTransform() Transform {
	return Transform{
		Rotation: QuaternionIdentity(),
		Scale:    Vec3{X: 1, Y: 1, Z: 1},
	}
}

// IsIdentity reports whether t equals IdentityTransform.
func (t Transform) IsIdentity() bool {
	return t == IdentityTransform()
}

func (v Vec2) finite() bool {
	return isFinite(v.X) && isFinite(v.Y)
}

func (v Vec3) finite() bool {
	return isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z)
}

func (q Quaternion) finite() bool {
	return isFinite(q.X) && isFinite(q.Y) && isFinite(q.Z) && isFinite(q.W)
}

func (t Transform) finite() bool {
	return t.Translation.finite() && t.Rotation.finite() && t.Scale.finite()
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
