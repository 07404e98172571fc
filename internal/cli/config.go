package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/roach88/scenesync/internal/settings"
)

// ConfigOptions holds flags for the config command.
type ConfigOptions struct {
	*RootOptions
	User        string
	ProjectName string
	ProjectID   string
	ServerName  string
	Address     string
	Unit        string
	Axis        string
	Rules       string
}

// ConfigResult is the payload of a written settings file.
type ConfigResult struct {
	Path     string             `json:"path"`
	Settings *settings.Settings `json:"settings"`
}

func (r ConfigResult) String() string {
	return fmt.Sprintf("Settings for project %q written to %s", r.Settings.TargetProject.Name, r.Path)
}

// NewConfigCommand creates the config command.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConfigOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "config <path>",
		Short: "Write a publisher settings file",
		Long: `Write a settings file naming the user, the target project and the sync
server it lives on. The file is validated before it is written.

Example:
  scenesync config ./scenesync.yaml --user "Jane Doe" \
    --project "Tower" --project-id tower-1 \
    --server "Local" --address 127.0.0.1:7370`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfig(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.User, "user", "", "display name of the publishing user (required)")
	cmd.Flags().StringVar(&opts.ProjectName, "project", "", "target project name (required)")
	cmd.Flags().StringVar(&opts.ProjectID, "project-id", "", "target project identifier (required)")
	cmd.Flags().StringVar(&opts.ServerName, "server", "", "sync server display name")
	cmd.Flags().StringVar(&opts.Address, "address", DefaultAddress, "sync server address (host:port)")
	cmd.Flags().StringVar(&opts.Unit, "unit", string(settings.Meters), "length unit of the source")
	cmd.Flags().StringVar(&opts.Axis, "axis", string(settings.AxisNone), "axis inversion (none|swap_yz)")
	cmd.Flags().StringVar(&opts.Rules, "rules", "", "inline rules document")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("project-id")

	return cmd
}

func runConfig(opts *ConfigOptions, path string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	abs, err := filepath.Abs(path)
	if err != nil {
		return out.Fail(ExitCommandError, CodeInvalidArgs, "invalid path", err)
	}

	serverName := opts.ServerName
	if serverName == "" {
		serverName = opts.Address
	}
	s := &settings.Settings{
		User: settings.User{DisplayName: opts.User},
		TargetProject: settings.TargetProject{
			ID:   opts.ProjectID,
			Name: opts.ProjectName,
			Host: settings.Host{ServerName: serverName, Address: opts.Address},
		},
		LengthUnit:    settings.LengthUnit(opts.Unit),
		AxisInversion: settings.AxisInversion(opts.Axis),
		Rules:         opts.Rules,
	}

	if err := s.Write(osfs.New("/"), abs); err != nil {
		var verrs settings.ValidationErrors
		if errors.As(err, &verrs) {
			_ = out.Error(CodeInvalidSettings, "invalid settings", verrs)
			return WrapExitError(ExitCommandError, "invalid settings", err)
		}
		return out.Fail(ExitFailure, CodeInvalidSettings, "failed to write settings", err)
	}

	out.VerboseLog("wrote %s", abs)
	return out.Success(ConfigResult{Path: abs, Settings: s})
}
