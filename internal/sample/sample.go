// Package sample builds the demonstration scene published by the CLI: a
// textured quad under a parent object, plus an instance of that parent.
package sample

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/roach88/scenesync/internal/model"
)

// Identifiers of the sample entities.
const (
	MeshID     model.Identifier = "Mesh id"
	MaterialID model.Identifier = "Material id"
	ParentID   model.Identifier = "Parent id"
	ChildID    model.Identifier = "Child id"
	InstanceID model.Identifier = "Instance id"
)

// SourceName is the display name of the sample source project.
const SourceName = "Go Sample Quad"

// Scene is the live sample scene. Recolor stands in for a user editing the
// host application.
type Scene struct {
	mu       sync.Mutex
	mesh     *model.Mesh
	material *model.Material
	parent   *model.Object
	instance *model.ObjectInstance
}

// Quad builds the sample scene with a white material.
func Quad() (*Scene, error) {
	mesh, err := QuadMesh()
	if err != nil {
		return nil, err
	}
	material, err := Material(model.White)
	if err != nil {
		return nil, err
	}
	child, err := model.NewObject(ChildID, "Quad Object Child",
		model.WithMesh(mesh.ID),
		model.WithMaterials(material.ID),
	)
	if err != nil {
		return nil, err
	}
	parent, err := model.NewObject(ParentID, "Quad Object Parent",
		model.WithChildren(child),
		model.WithMetadata("Key 1", model.NewParameter("Value", "Group", true)),
		model.WithMetadata("Key 2", model.NewParameter("Other value", "Group", true)),
	)
	if err != nil {
		return nil, err
	}
	instance, err := model.NewObjectInstance(InstanceID, "Quad instance", parent.ID,
		model.WithInstanceMetadata(parent.Metadata),
	)
	if err != nil {
		return nil, err
	}
	return &Scene{mesh: mesh, material: material, parent: parent, instance: instance}, nil
}

// QuadMesh is a unit quad in the XY plane facing +Z.
func QuadMesh() (*model.Mesh, error) {
	return model.NewMesh(MeshID, "Quad mesh",
		[]model.Vec3{{X: 0, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0}},
		[]model.Vec3{{Z: 1}, {Z: 1}, {Z: 1}, {Z: 1}},
		[]model.Vec2{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 0}, {X: 1, Y: 1}},
		model.SubMesh{Triangles: []int{0, 1, 2, 1, 3, 2}},
	)
}

// Material is the sample material with the given base colour.
func Material(c model.Color) (*model.Material, error) {
	return model.NewMaterial(MaterialID, "", c)
}

// Entities returns the scene in export order: mesh, material, parent
// (with its child) and instance.
func (s *Scene) Entities() []model.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return []model.Entity{s.mesh, s.material, s.parent, s.instance}
}

// Snapshot returns the current entities.
func (s *Scene) Snapshot(ctx context.Context) ([]model.Entity, error) {
	return s.Entities(), ctx.Err()
}

// MaterialColor returns the current base colour.
func (s *Scene) MaterialColor() model.Color {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.material.BaseColor
}

// Recolor gives the material a random opaque colour and returns the
// entities that changed.
func (s *Scene) Recolor(rng *rand.Rand) ([]model.Entity, error) {
	return s.SetColor(model.ColorFrom256(rng.IntN(256), rng.IntN(256), rng.IntN(256)))
}

// SetColor replaces the material's base colour and returns the entities
// that changed.
func (s *Scene) SetColor(c model.Color) ([]model.Entity, error) {
	m, err := Material(c)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.material = m
	s.mu.Unlock()
	return []model.Entity{m}, nil
}

// Changes recolours the scene with a process-wide random source.
func (s *Scene) Changes() ([]model.Entity, error) {
	return s.Recolor(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
}
