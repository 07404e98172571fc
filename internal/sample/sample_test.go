package sample

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scenesync/internal/model"
)

func TestQuad_Entities(t *testing.T) {
	scene, err := Quad()
	require.NoError(t, err)

	entities := scene.Entities()
	require.Len(t, entities, 4)

	var ids []model.Identifier
	for _, e := range entities {
		require.NoError(t, e.Validate())
		ids = append(ids, e.EntityID())
	}
	assert.Equal(t, []model.Identifier{MeshID, MaterialID, ParentID, InstanceID}, ids)

	mesh := entities[0].(*model.Mesh)
	assert.Equal(t, 2, mesh.TriangleCount())

	parent := entities[2].(*model.Object)
	require.Len(t, parent.Children, 1)
	assert.Equal(t, ChildID, parent.Children[0].ID)
	assert.Equal(t, "Value", parent.Metadata["Key 1"].Value)

	inst := entities[3].(*model.ObjectInstance)
	assert.Equal(t, parent.Metadata, inst.Metadata)
}

func TestQuad_ReferencesResolveWithinScene(t *testing.T) {
	scene, err := Quad()
	require.NoError(t, err)

	known := map[model.Identifier]model.Kind{}
	var refs []model.Reference
	for _, e := range scene.Entities() {
		known[e.EntityID()] = e.Kind()
		if o, ok := e.(*model.Object); ok {
			o.Walk(func(node, _ *model.Object) bool {
				known[node.ID] = model.KindObject
				return true
			})
		}
		refs = append(refs, model.References(e)...)
	}

	require.NotEmpty(t, refs)
	for _, r := range refs {
		assert.Equal(t, r.Kind, known[r.To], "reference %s -> %s", r.From, r.To)
	}
}

func TestRecolor(t *testing.T) {
	scene, err := Quad()
	require.NoError(t, err)
	assert.Equal(t, model.White, scene.MaterialColor())

	rng := rand.New(rand.NewPCG(1, 2))
	changed, err := scene.Recolor(rng)
	require.NoError(t, err)
	require.Len(t, changed, 1)

	m := changed[0].(*model.Material)
	assert.Equal(t, MaterialID, m.ID)
	assert.Equal(t, uint8(255), m.BaseColor.A)
	assert.Equal(t, m.BaseColor, scene.MaterialColor())

	snap, err := scene.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Same(t, m, snap[1])
}
