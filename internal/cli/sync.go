package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/smeegoan/Immich2GeekMagic/internal/archive"
	"github.com/smeegoan/Immich2GeekMagic/internal/config"
	"github.com/smeegoan/Immich2GeekMagic/internal/geekmagic"
	"github.com/smeegoan/Immich2GeekMagic/internal/immich"
	"github.com/smeegoan/Immich2GeekMagic/internal/service"
	"github.com/smeegoan/Immich2GeekMagic/pkg/logger"
	"github.com/smeegoan/Immich2GeekMagic/pkg/utils"
)

var (
	flagDate   string
	flagDryRun bool
	flagVerify bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync: fetch today's memories and push them to the display",
	RunE:  runSync,
}

func init() {
	syncCmd.Flags().StringVar(&flagDate, "date", "", "override target date (MM-DD or YYYY-MM-DD)")
	syncCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "fetch and normalize but do not touch the device")
	syncCmd.Flags().BoolVar(&flagVerify, "verify", false, "verify the API key against the server before syncing")
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if flagDate != "" {
		cfg.Sync.OverrideDate = flagDate
	}
	if flagDryRun {
		cfg.Sync.DryRun = true
	}
	if flagVerify {
		cfg.Sync.Verify = true
	}

	// Fail fast on bad config: nothing below makes a network call until the
	// orchestrator runs.
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Console)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer log.Sync()

	source := immich.NewClient(&cfg.Immich, log)
	device := geekmagic.NewClient(&cfg.Device, log)
	normalizer := utils.NewImageProcessor(cfg.Sync.ImageSize, cfg.Sync.JPEGQuality, log)

	var sink service.Archiver
	if cfg.Archive.Enabled() {
		s3Sink, err := archive.New(&cfg.Archive, log)
		if err != nil {
			return fmt.Errorf("initialize archive: %w", err)
		}
		sink = s3Sink
	}

	svc := service.NewSyncService(source, device, normalizer, sink, cfg, log)

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := svc.Run(ctx)
	if err != nil {
		return err
	}

	// Partial success is fine; a run where nothing made it to the device is
	// not.
	if summary.Total > 0 && summary.Succeeded == 0 {
		return fmt.Errorf("all %d memories failed to sync", summary.Total)
	}

	return nil
}
