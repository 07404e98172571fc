package settings

import (
	"context"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() *Settings {
	return &Settings{
		User: User{DisplayName: "Ada"},
		TargetProject: TargetProject{
			ID:   "proj-1",
			Name: "Bridge",
			Host: Host{ServerName: "local", Address: "localhost:7420"},
		},
		LengthUnit:    Meters,
		AxisInversion: AxisNone,
	}
}

func TestValidate_Valid(t *testing.T) {
	require.NoError(t, Validate(validSettings()))

	s := validSettings()
	s.Rules = "merge: all"
	s.LengthUnit = Inches
	s.AxisInversion = AxisSwapYZ
	assert.NoError(t, Validate(s))
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
		field  string
	}{
		{"empty project id", func(s *Settings) { s.TargetProject.ID = "" }, "target_project.id"},
		{"empty project name", func(s *Settings) { s.TargetProject.Name = "" }, "target_project.name"},
		{"address without port", func(s *Settings) { s.TargetProject.Host.Address = "localhost" }, "target_project.host.address"},
		{"unknown unit", func(s *Settings) { s.LengthUnit = "parsecs" }, "length_unit"},
		{"unknown axis", func(s *Settings) { s.AxisInversion = "swap_xy" }, "axis_inversion"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings()
			tt.mutate(s)

			err := Validate(s)
			require.Error(t, err)

			var verrs ValidationErrors
			require.ErrorAs(t, err, &verrs)
			require.NotEmpty(t, verrs)
			assert.Equal(t, ErrSchemaViolation, verrs[0].Code)
			assert.Equal(t, tt.field, verrs[0].Field)
		})
	}
}

func TestValidate_Nil(t *testing.T) {
	assert.Error(t, Validate(nil))
}

func TestWriteLoad_RoundTrip(t *testing.T) {
	fs := memfs.New()
	s := validSettings()
	s.Rules = "layers: keep"

	require.NoError(t, s.Write(fs, "conf/settings.yaml"))

	got, err := Load(fs, "conf/settings.yaml")
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestWrite_RejectsInvalid(t *testing.T) {
	fs := memfs.New()
	s := validSettings()
	s.LengthUnit = "cubits"

	require.Error(t, s.Write(fs, "settings.yaml"))
	_, err := fs.Stat("settings.yaml")
	assert.Error(t, err, "invalid settings must not be written")
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte("user: [unterminated"))
	assert.Error(t, err)
}

func TestLoadRules(t *testing.T) {
	fs := memfs.New()

	rules, ok, err := LoadRules(fs, "rules.txt")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, rules)

	require.NoError(t, util.WriteFile(fs, "rules.txt", []byte("group: by-layer"), 0o644))
	rules, ok, err = LoadRules(fs, "rules.txt")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "group: by-layer", rules)
}

func TestFileSelector(t *testing.T) {
	ctx := context.Background()
	fs := memfs.New()
	sel := FileSelector(fs, "settings.yaml")

	got, err := sel(ctx)
	require.NoError(t, err)
	assert.Nil(t, got, "missing file cancels the selection")

	require.NoError(t, validSettings().Write(fs, "settings.yaml"))
	got, err = sel(ctx)
	require.NoError(t, err)
	assert.Equal(t, validSettings(), got)

	require.NoError(t, util.WriteFile(fs, "settings.yaml", []byte("length_unit: furlongs\n"), 0o644))
	_, err = sel(ctx)
	assert.Error(t, err)
}

func TestStaticSelector_ReturnsCopy(t *testing.T) {
	s := validSettings()
	sel := StaticSelector(s)

	got, err := sel(context.Background())
	require.NoError(t, err)
	got.LengthUnit = Feet
	assert.Equal(t, Meters, s.LengthUnit)

	got, err = StaticSelector(nil)(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}
