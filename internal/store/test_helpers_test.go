package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/scenesync/internal/model"
)

// createTestStore creates a new temp-dir store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestSession inserts an open session for project "p", source "src".
func createTestSession(t *testing.T, s *Store, id string, seq int64) Session {
	t.Helper()
	sess := Session{
		ID:               id,
		ProjectID:        "p",
		ProjectName:      "Project",
		SourceID:         "src",
		SourceName:       "Sample Quad",
		Publisher:        "test",
		PublisherVersion: "1.0.0",
		LengthUnit:       "meters",
		AxisInversion:    "none",
		OpenedSeq:        seq,
	}
	require.NoError(t, s.CreateSession(context.Background(), sess))
	return sess
}

func encode(t *testing.T, e model.Entity) model.Record {
	t.Helper()
	r, err := model.Encode(e)
	require.NoError(t, err)
	return r
}

func testMesh(t *testing.T) *model.Mesh {
	t.Helper()
	m, err := model.NewMesh("Mesh id", "Quad mesh",
		[]model.Vec3{{}, {Y: 1}, {X: 1}, {X: 1, Y: 1}}, nil, nil,
		model.SubMesh{Triangles: []int{0, 1, 2, 1, 3, 2}})
	require.NoError(t, err)
	return m
}

func testMaterial(t *testing.T, c model.Color) *model.Material {
	t.Helper()
	m, err := model.NewMaterial("Material id", "", c)
	require.NoError(t, err)
	return m
}

func testParent(t *testing.T) *model.Object {
	t.Helper()
	child, err := model.NewObject("Child id", "Quad Object Child",
		model.WithMesh("Mesh id"), model.WithMaterials("Material id"))
	require.NoError(t, err)
	parent, err := model.NewObject("Parent id", "Quad Object Parent", model.WithChildren(child))
	require.NoError(t, err)
	return parent
}
