package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/roach88/scenesync/internal/logsink"
	"github.com/roach88/scenesync/internal/model"
	"github.com/roach88/scenesync/internal/publish"
	"github.com/roach88/scenesync/internal/publisher"
	"github.com/roach88/scenesync/internal/sample"
	"github.com/roach88/scenesync/internal/settings"
	"github.com/roach88/scenesync/internal/syncloop"
)

// Default file names, resolved against the working directory.
const (
	DefaultSettingsFile = "scenesync.yaml"
	DefaultRulesFile    = "rules.json"
	DefaultSourceID     = "scenesync-sample-quad"
)

// PublishOptions holds flags for the publish command.
type PublishOptions struct {
	*RootOptions
	Sync       bool
	Settings   string
	Rules      string
	SourceName string
	SourceID   string
	Interval   time.Duration
	Watch      string
	LogFile    string

	// ClientOptions are passed to the publisher client (for testing).
	ClientOptions []publisher.Option
}

// PublishResult is the JSON payload of a finished publish.
type PublishResult struct {
	Mode     string `json:"mode"`
	Settings string `json:"settings"`
	SourceID string `json:"source_id"`
}

func (r PublishResult) String() string {
	return fmt.Sprintf("Publish (%s) of %s finished.", r.Mode, r.SourceID)
}

// NewPublishCommand creates the publish command.
func NewPublishCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PublishOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Export the sample scene and optionally keep it in sync",
		Long: `Export the sample quad scene to the project named in the settings file.

Without --sync the scene is exported in one transaction and the session is
closed. With --sync the publisher keeps running after the export, sending
changed entities on every tick until interrupted. Ticks come from --interval,
or from changes to the file named by --watch.

A missing settings file means no project was selected; the command logs
that and exits successfully. The rules file, when present, is forwarded to
the server unchanged.

Example:
  scenesync publish --settings ./scenesync.yaml
  scenesync publish --sync --interval 5s
  scenesync publish --sync --watch ./scene.json --log-file publish.log`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Sync, "sync", false, "keep the scene in sync after the export")
	cmd.Flags().StringVar(&opts.Settings, "settings", DefaultSettingsFile, "settings file")
	cmd.Flags().StringVar(&opts.Rules, "rules", DefaultRulesFile, "optional rules file forwarded to the server")
	cmd.Flags().StringVar(&opts.SourceName, "source-name", sample.SourceName, "source project name")
	cmd.Flags().StringVar(&opts.SourceID, "source-id", DefaultSourceID, "stable source project identifier")
	cmd.Flags().DurationVar(&opts.Interval, "interval", syncloop.DefaultInterval, "sync interval")
	cmd.Flags().StringVar(&opts.Watch, "watch", "", "sync when this file changes instead of on an interval")
	cmd.Flags().StringVar(&opts.LogFile, "log-file", "", "also append publisher logs to this file")

	return cmd
}

func runPublish(opts *PublishOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	configureLogging(opts.RootOptions, cmd.ErrOrStderr())

	if opts.Interval <= 0 {
		return out.Fail(ExitCommandError, CodeInvalidArgs, "--interval must be positive", nil)
	}
	if opts.Watch != "" && !opts.Sync {
		return out.Fail(ExitCommandError, CodeInvalidArgs, "--watch requires --sync", nil)
	}
	info, err := publisher.ParseInfo("scenesync", Version)
	if err != nil {
		return out.Fail(ExitCommandError, CodeInvalidArgs, "invalid publisher version", err)
	}
	settingsPath, err := filepath.Abs(opts.Settings)
	if err != nil {
		return out.Fail(ExitCommandError, CodeInvalidArgs, "invalid settings path", err)
	}
	rulesPath, err := filepath.Abs(opts.Rules)
	if err != nil {
		return out.Fail(ExitCommandError, CodeInvalidArgs, "invalid rules path", err)
	}

	// Paths are absolute, so the filesystem is rooted at /.
	fs := osfs.New("/")

	// The file sink opens before the hub so a failure leaves nothing
	// running, and its close is deferred first so it runs after the flush.
	var fileSink *logsink.FileSink
	if opts.LogFile != "" {
		logPath, err := filepath.Abs(opts.LogFile)
		if err != nil {
			return out.Fail(ExitCommandError, CodeInvalidArgs, "invalid log file path", err)
		}
		fileSink, err = logsink.OpenFileSink(fs, logPath)
		if err != nil {
			return out.Fail(ExitCommandError, CodeInvalidArgs, "cannot open log file", err)
		}
		defer fileSink.Close()
	}

	hub := logsink.NewHub()
	defer hub.Close()
	minLevel := logsink.LevelInfo
	if opts.Verbose {
		minLevel = logsink.LevelDebug
	}
	hub.Subscribe(logsink.NewConsoleSink(cmd.ErrOrStderr(), minLevel))
	if fileSink != nil {
		hub.Subscribe(fileSink)
	}

	scene, err := sample.Quad()
	if err != nil {
		return out.Fail(ExitFailure, CodePublishFailed, "cannot build the sample scene", err)
	}

	cfg := publish.Config{
		Info:          info,
		SourceName:    opts.SourceName,
		SourceID:      opts.SourceID,
		Mode:          publish.Export,
		Select:        settings.FileSelector(fs, settingsPath),
		RulesFS:       fs,
		RulesPath:     rulesPath,
		Scene:         scene,
		Interval:      opts.Interval,
		Sink:          hub,
		ClientOptions: opts.ClientOptions,
	}

	if opts.Sync {
		cfg.Mode = publish.ExportAndSync
		// The sample has no host application editing it, so every tick
		// recolours the material to produce a change.
		cfg.Updates = syncloop.SourceFunc(func(ctx context.Context) ([]model.Entity, error) {
			if _, err := scene.Changes(); err != nil {
				return nil, err
			}
			return scene.Snapshot(ctx)
		})
		if opts.Watch != "" {
			trigger, err := syncloop.NewFileTrigger(opts.Watch)
			if err != nil {
				return out.Fail(ExitCommandError, CodeInvalidArgs, "cannot watch file", err)
			}
			defer trigger.Stop()
			cfg.Trigger = trigger
		}
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	if err := publish.Run(ctx, cfg); err != nil {
		return out.Fail(ExitFailure, CodePublishFailed, "publish failed", err)
	}
	return out.Success(PublishResult{
		Mode:     cfg.Mode.String(),
		Settings: settingsPath,
		SourceID: opts.SourceID,
	})
}
