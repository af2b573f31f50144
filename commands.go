package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/appbaseio/rebuild-indices/admin"
	"github.com/appbaseio/rebuild-indices/buildindices"
	"github.com/appbaseio/rebuild-indices/config"
	"github.com/appbaseio/rebuild-indices/errors"
	"github.com/appbaseio/rebuild-indices/lock"
	"github.com/appbaseio/rebuild-indices/migration"
	"github.com/appbaseio/rebuild-indices/model/index"
	"github.com/appbaseio/rebuild-indices/registry"
	"github.com/appbaseio/rebuild-indices/util"
	"github.com/robfig/cron"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// app holds what every command needs to talk to the cluster.
type app struct {
	cfg    *config.Config
	admin  *admin.Elasticsearch
	lock   *lock.Elasticsearch
	source *registry.Registry
}

func newApp(withCluster bool) (*app, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	reg, err := registry.Load(cfg.RegistryPath)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, source: reg.WithPrefix(cfg.IndexPrefix)}
	if !withCluster {
		return a, nil
	}

	client, err := util.NewClient(util.ClientOptions{
		URL:         cfg.EsURL,
		Header:      cfg.EsHeader,
		Sniff:       cfg.Sniffing,
		Healthcheck: true,
	})
	if err != nil {
		return nil, err
	}
	a.admin = admin.NewElasticsearch(client, util.GetESURL(cfg.EsURL), cfg.RefreshInterval())
	a.lock = lock.NewElasticsearch(client, cfg.LockIndex, lock.Owner())
	return a, nil
}

func (a *app) upgrade() *buildindices.BuildIndices {
	opts := buildindices.Options{
		BulkRefreshInterval: a.cfg.BulkRefreshInterval,
		Retries:             a.cfg.StepRetries,
		CloneWriteBlock:     a.cfg.CloneWriteBlock,
	}
	if a.cfg.CloneCleanup == config.CloneCleanupReconcile {
		opts.CloneRetention = a.cfg.CloneRetention
	}
	return buildindices.New(a.admin, a.source, nil, opts)
}

// reap deletes expired clones of every registered index under the run lock.
func (a *app) reap(ctx context.Context) ([]index.Name, error) {
	names, err := registry.Enumerate(a.source)
	if err != nil {
		return nil, err
	}
	reaper := buildindices.NewCloneReaper(a.admin, a.cfg.CloneRetention, nil)
	var deleted []index.Name
	err = migration.Guard(ctx, a.lock, buildindices.UpgradeID, a.cfg.LockTTL, func(ctx context.Context) error {
		deleted, err = reaper.Reap(ctx, names)
		return err
	})
	return deleted, err
}

func newRunCommand() *cobra.Command {
	var skipClone bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the BuildIndices upgrade",
		Long: `Run the BuildIndices upgrade against every index of the registry:
  1. PreConfigureESStep   - relax the refresh interval, clone every index
  2. BuildIndicesStep     - create missing indices, apply registry mappings
  3. PostBuildIndicesStep - restore the steady-state refresh interval`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(true)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("skip-clone") {
				a.cfg.SkipClone = skipClone
			}

			u := a.upgrade()
			mctx := migration.NewContext(util.NewRunID(), a.cfg.SkipClone, nil)
			runner := migration.NewRunner()

			var code int
			err = migration.Guard(cmd.Context(), a.lock, u.ID(), a.cfg.LockTTL, func(ctx context.Context) error {
				outcome := runner.Run(ctx, u, mctx)
				printOutcome(cmd.OutOrStdout(), outcome)
				code = outcome.ExitCode()
				return nil
			})
			if err != nil {
				return err
			}
			if code != 0 {
				return &exitError{code: code}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipClone, "skip-clone", false, "Do not clone indices before the build, overrides "+config.SkipCloneKey)
	return cmd
}

func newIndicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "indices",
		Short: "Print the indices a run would touch, in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			names, err := registry.Enumerate(a.source)
			if err != nil {
				return err
			}
			if len(names) == 0 {
				return errors.ErrNoIndices
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newCleanupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup-clones",
		Short: "Delete clones older than " + config.CloneRetentionKey,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(true)
			if err != nil {
				return err
			}
			deleted, err := a.reap(cmd.Context())
			printDeleted(cmd.OutOrStdout(), deleted)
			return err
		},
	}
}

func newScheduleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Delete expired clones on " + config.CleanupScheduleKey + " until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(true)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cronjob := cron.New()
			err = cronjob.AddFunc(a.cfg.CleanupSchedule, func() {
				deleted, err := a.reap(ctx)
				if err != nil {
					log.Errorln(logTag, ": scheduled clone cleanup failed:", err)
					return
				}
				log.Infoln(logTag, ": scheduled clone cleanup deleted", len(deleted), "clone(s)")
			})
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", config.CleanupScheduleKey, a.cfg.CleanupSchedule, err)
			}
			cronjob.Start()
			log.Infoln(logTag, ": clone cleanup scheduled", a.cfg.CleanupSchedule)

			<-ctx.Done()
			cronjob.Stop()
			return nil
		},
	}
}
