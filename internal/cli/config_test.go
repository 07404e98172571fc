package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scenesync/internal/settings"
)

func TestConfig_WritesLoadableSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "scenesync.yaml")

	out, _, err := executeRoot(t, "config", path,
		"--user", "Jane Doe",
		"--project", "Tower",
		"--project-id", "tower-1",
		"--server", "Local",
		"--address", "127.0.0.1:7370",
		"--unit", "feet",
		"--axis", "swap_yz")
	require.NoError(t, err)
	assert.Contains(t, out, `Settings for project "Tower" written to`)

	s, err := settings.Load(osfs.New("/"), path)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "Jane Doe", s.User.DisplayName)
	assert.Equal(t, "tower-1", s.TargetProject.ID)
	assert.Equal(t, "Local", s.TargetProject.Host.ServerName)
	assert.Equal(t, settings.Feet, s.LengthUnit)
	assert.Equal(t, settings.AxisSwapYZ, s.AxisInversion)
}

func TestConfig_ServerNameDefaultsToAddress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenesync.yaml")

	out, _, err := executeRoot(t, "--format", "json", "config", path,
		"--user", "Jane", "--project", "Tower", "--project-id", "tower-1")
	require.NoError(t, err)

	var resp struct {
		Data ConfigResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, path, resp.Data.Path)
	assert.Equal(t, DefaultAddress, resp.Data.Settings.TargetProject.Host.ServerName)
	assert.Equal(t, settings.Meters, resp.Data.Settings.LengthUnit)
}

func TestConfig_InvalidSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenesync.yaml")

	out, _, err := executeRoot(t, "--format", "json", "config", path,
		"--user", "Jane", "--project", "Tower", "--project-id", "tower-1",
		"--unit", "cubits")

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidSettings, resp.Error.Code)
	assert.NotEmpty(t, resp.Error.Details)

	_, statErr := osfs.New("/").Stat(path)
	assert.Error(t, statErr, "invalid settings must not be written")
}

func TestConfig_RequiredFlags(t *testing.T) {
	_, _, err := executeRoot(t, "config", filepath.Join(t.TempDir(), "s.yaml"), "--user", "Jane")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project")
}
