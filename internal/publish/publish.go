// Package publish is the top-level publishing flow: select settings, open
// a publisher client, export the scene and optionally keep it in sync.
package publish

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-git/go-billy/v5"

	"github.com/roach88/scenesync/internal/logsink"
	"github.com/roach88/scenesync/internal/model"
	"github.com/roach88/scenesync/internal/publisher"
	"github.com/roach88/scenesync/internal/settings"
	"github.com/roach88/scenesync/internal/syncloop"
)

// Mode selects between a one-shot export and export followed by sync.
type Mode int

const (
	Export Mode = iota
	ExportAndSync
)

func (m Mode) String() string {
	if m == ExportAndSync {
		return "export+sync"
	}
	return "export"
}

// closeTimeout bounds the client close after a failure.
const closeTimeout = 10 * time.Second

// Config describes one publish run.
type Config struct {
	Info       publisher.Info
	SourceName string
	SourceID   string
	Mode       Mode

	// Select produces the settings. A nil result means the user cancelled.
	Select settings.Selector

	// RulesFS and RulesPath locate an optional rules document.
	RulesFS   billy.Filesystem
	RulesPath string

	// Scene is exported in full. Updates is polled by the sync loop and
	// defaults to Scene.
	Scene   syncloop.Source
	Updates syncloop.Source

	// Trigger drives the sync loop; defaults to an interval trigger.
	Trigger  syncloop.Trigger
	Interval time.Duration

	Sink          logsink.Sink
	ClientOptions []publisher.Option
}

// Run publishes according to cfg. Failures, including panics, are logged
// to cfg.Sink and returned; Run itself never panics. In ExportAndSync mode
// Run blocks until ctx is cancelled, then closes the client and returns
// nil.
func Run(ctx context.Context, cfg Config) (err error) {
	log := logsink.NewLogger(cfg.Sink, "publish")
	var client *publisher.Client

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("publish: unexpected failure: %v", r)
			log.Error("%v", err)
			if client != nil {
				closeClient(ctx, client)
			}
		}
	}()

	s, err := cfg.Select(ctx)
	if err != nil {
		log.Error("Project selection failed: %v", err)
		return err
	}
	if s == nil {
		log.Info("No project selected.")
		return nil
	}

	log.Info("Logged in as %s", s.User.DisplayName)
	log.Info("Target project: %s", s.TargetProject.Name)
	log.Info("Target sync server: %s", s.TargetProject.Host.ServerName)

	s, err = customize(s, cfg, log)
	if err != nil {
		log.Error("%v", err)
		return err
	}

	opts := append([]publisher.Option{publisher.WithLogSink(cfg.Sink)}, cfg.ClientOptions...)
	client, err = publisher.Open(ctx, cfg.Info, cfg.SourceName, cfg.SourceID, s, opts...)
	if err != nil {
		log.Error("Could not open the publisher client: %v", err)
		return err
	}

	exported, err := export(ctx, client, cfg.Scene, log)
	if err != nil {
		log.Error("Export failed: %v", err)
		closeClient(ctx, client)
		return err
	}

	if cfg.Mode == Export {
		if err := client.CloseAndWait(ctx); err != nil {
			log.Error("Closing the publisher client failed: %v", err)
			return err
		}
		return nil
	}
	return keepInSync(ctx, client, cfg, exported, log.With("sync"))
}

// customize applies the publisher's fixed choices to a copy of s.
func customize(s *settings.Settings, cfg Config, log logsink.Logger) (*settings.Settings, error) {
	s = s.Clone()
	s.LengthUnit = settings.Meters
	s.AxisInversion = settings.AxisNone

	if cfg.RulesFS == nil || cfg.RulesPath == "" {
		return s, nil
	}
	rules, ok, err := settings.LoadRules(cfg.RulesFS, cfg.RulesPath)
	if err != nil {
		return nil, err
	}
	if ok {
		s.Rules = rules
		log.Debug("Using rules from %s", cfg.RulesPath)
	}
	return s, nil
}

// export sends the whole scene in one transaction, bracketed by progress
// reports.
func export(ctx context.Context, client *publisher.Client, scene syncloop.Source, log logsink.Logger) ([]model.Entity, error) {
	if err := client.ReportProgress(ctx, 0); err != nil {
		return nil, err
	}

	entities, err := scene.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := client.StartTransaction()
	if err != nil {
		return nil, err
	}
	half := max(1, len(entities)/2)
	for i, e := range entities {
		if err := tx.Send(e); err != nil {
			return nil, err
		}
		if i+1 == half {
			if err := client.ReportProgress(ctx, 50); err != nil {
				return nil, err
			}
		}
	}
	if len(entities) == 0 {
		if err := client.ReportProgress(ctx, 50); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	if err := client.ReportProgress(ctx, 100); err != nil {
		return nil, err
	}

	log.Info("Exported %d entities", tx.Len())
	return entities, nil
}

func keepInSync(ctx context.Context, client *publisher.Client, cfg Config, exported []model.Entity, log logsink.Logger) error {
	trigger := cfg.Trigger
	if trigger == nil {
		trigger = syncloop.NewIntervalTrigger(cfg.Interval)
	}
	updates := cfg.Updates
	if updates == nil {
		updates = cfg.Scene
	}

	d := syncloop.New(client, trigger, updates, syncloop.WithLogSink(cfg.Sink))
	if err := d.Prime(exported); err != nil {
		log.Error("Sync setup failed: %v", err)
		closeClient(ctx, client)
		return err
	}

	log.Info("Watching for changes")
	err := d.Run(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func closeClient(ctx context.Context, client *publisher.Client) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer cancel()
	client.CloseAndWait(cctx)
}
