package publisher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/scenesync/internal/ident"
	"github.com/roach88/scenesync/internal/model"
	"github.com/roach88/scenesync/internal/settings"
	"github.com/roach88/scenesync/internal/testutil"
)

func testSettings() *settings.Settings {
	return &settings.Settings{
		User: settings.User{DisplayName: "Jane"},
		TargetProject: settings.TargetProject{
			ID:   "p",
			Name: "Project",
			Host: settings.Host{ServerName: "local", Address: "localhost:7420"},
		},
		LengthUnit:    settings.Meters,
		AxisInversion: settings.AxisNone,
	}
}

func testInfo(t *testing.T) Info {
	t.Helper()
	info, err := ParseInfo("test publisher", "1.0.0")
	require.NoError(t, err)
	return info
}

// openFake opens a client over a fake connection with sequential tx ids.
func openFake(t *testing.T, opts ...Option) (*Client, *testutil.FakeConnection, *testutil.RecordingSink) {
	t.Helper()
	conn := testutil.NewFakeConnection("session-1")
	sink := &testutil.RecordingSink{}
	opts = append([]Option{
		WithConnection(conn),
		WithLogSink(sink),
		WithTransactionIDs(ident.NewSequenceGenerator("tx")),
	}, opts...)
	c, err := Open(context.Background(), testInfo(t), "Sample", "src", testSettings(), opts...)
	require.NoError(t, err)
	return c, conn, sink
}

func testMaterial(t *testing.T, id model.Identifier, c model.Color) *model.Material {
	t.Helper()
	m, err := model.NewMaterial(id, "", c)
	require.NoError(t, err)
	return m
}

func testMesh(t *testing.T, id model.Identifier) *model.Mesh {
	t.Helper()
	m, err := model.NewMesh(id, "tri",
		[]model.Vec3{{X: 0}, {X: 1}, {Y: 1}}, nil, nil,
		model.SubMesh{Triangles: []int{0, 1, 2}},
	)
	require.NoError(t, err)
	return m
}
