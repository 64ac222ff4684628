package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smeegoan/Immich2GeekMagic/internal/config"
	"github.com/smeegoan/Immich2GeekMagic/internal/domain"
	"github.com/smeegoan/Immich2GeekMagic/internal/immich"
)

// MemorySource lists and downloads "on this day" photos.
type MemorySource interface {
	ListMemories(ctx context.Context, q domain.MemoryQuery) ([]domain.MemoryAsset, error)
	FetchAssetBytes(ctx context.Context, asset domain.MemoryAsset) ([]byte, error)
	VerifyCredentials(ctx context.Context) error
}

// Device receives normalized images and exposes basic file housekeeping.
type Device interface {
	Upload(ctx context.Context, filename string, data []byte) (attempts int, err error)
	FileList(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, filename string) error
}

// Normalizer converts raw photo bytes into the device's square JPEG format.
type Normalizer interface {
	Normalize(raw []byte) ([]byte, error)
}

// Archiver optionally stores a copy of every normalized frame.
type Archiver interface {
	Store(ctx context.Context, key string, data []byte) error
}

// SyncService drives one run: resolve the target day, list memories across
// prior years, then fetch, normalize and upload each asset sequentially. One
// asset's failure never stops the run; only configuration-time errors do.
type SyncService struct {
	source     MemorySource
	device     Device
	normalizer Normalizer
	archive    Archiver // nil when archiving is disabled
	cfg        *config.Config
	log        *zap.Logger
}

func NewSyncService(source MemorySource, device Device, normalizer Normalizer, archive Archiver, cfg *config.Config, log *zap.Logger) *SyncService {
	return &SyncService{
		source:     source,
		device:     device,
		normalizer: normalizer,
		archive:    archive,
		cfg:        cfg,
		log:        log,
	}
}

func (s *SyncService) Run(ctx context.Context) (domain.RunSummary, error) {
	log := s.log.With(zap.String("run_id", uuid.New().String()))

	var summary domain.RunSummary

	query, err := immich.ResolveQuery(s.cfg.Sync.OverrideDate, s.cfg.Sync.YearsBack)
	if err != nil {
		return summary, err
	}

	log.Info("Starting memory sync",
		zap.Int("month", int(query.Month)),
		zap.Int("day", query.Day),
		zap.Int("years_back", query.YearsBack),
		zap.Bool("dry_run", s.cfg.Sync.DryRun))

	if s.cfg.Sync.Verify {
		if err := s.source.VerifyCredentials(ctx); err != nil {
			return summary, err
		}
	}

	assets, err := s.source.ListMemories(ctx, query)
	if err != nil {
		return summary, err
	}

	if len(assets) == 0 {
		log.Info("No memories today",
			zap.Int("month", int(query.Month)),
			zap.Int("day", query.Day))
		return summary, nil
	}

	if s.cfg.Device.Prune && !s.cfg.Sync.DryRun {
		s.pruneDevice(ctx, log, assets)
	}

	for i, asset := range assets {
		log.Info("Processing memory",
			zap.Int("index", i+1),
			zap.Int("total", len(assets)),
			zap.String("asset_id", asset.ID),
			zap.Time("taken_at", asset.TakenAt))

		summary.Record(s.processAsset(ctx, log, asset))
	}

	s.report(log, summary)
	return summary, nil
}

// processAsset runs one asset through fetch → normalize → archive → upload.
// Any stage failure becomes a Failed outcome for this asset only.
func (s *SyncService) processAsset(ctx context.Context, log *zap.Logger, asset domain.MemoryAsset) domain.UploadOutcome {
	raw, err := s.source.FetchAssetBytes(ctx, asset)
	if err != nil {
		log.Error("Failed to fetch asset",
			zap.String("asset_id", asset.ID),
			zap.Error(err))
		return domain.UploadOutcome{AssetID: asset.ID, Failure: err.Error()}
	}

	normalized, err := s.normalizer.Normalize(raw)
	if err != nil {
		log.Error("Failed to normalize asset",
			zap.String("asset_id", asset.ID),
			zap.Error(err))
		return domain.UploadOutcome{AssetID: asset.ID, Failure: err.Error()}
	}

	if s.archive != nil {
		key := s.cfg.Archive.Prefix + uploadFilename(asset)
		if err := s.archive.Store(ctx, key, normalized); err != nil {
			// Archive is best effort; never fails the asset.
			log.Warn("Failed to archive normalized image",
				zap.String("asset_id", asset.ID),
				zap.String("key", key),
				zap.Error(err))
		}
	}

	if s.cfg.Sync.DryRun {
		log.Info("Dry run, skipping device upload",
			zap.String("asset_id", asset.ID),
			zap.Int("bytes", len(normalized)))
		return domain.UploadOutcome{AssetID: asset.ID}
	}

	attempts, err := s.device.Upload(ctx, uploadFilename(asset), normalized)
	if err != nil {
		log.Error("Failed to upload asset to device",
			zap.String("asset_id", asset.ID),
			zap.Int("attempts", attempts),
			zap.Error(err))
		return domain.UploadOutcome{AssetID: asset.ID, Attempts: attempts, Failure: err.Error()}
	}

	return domain.UploadOutcome{AssetID: asset.ID, Attempts: attempts}
}

// pruneDevice removes files from the display that do not belong to any asset
// in this run. The device truncates long filenames, so matching is done on
// the last segment of the asset UUID. Best effort throughout.
func (s *SyncService) pruneDevice(ctx context.Context, log *zap.Logger, assets []domain.MemoryAsset) {
	existing, err := s.device.FileList(ctx)
	if err != nil {
		log.Warn("Could not list device files, skipping prune", zap.Error(err))
		return
	}

	suffixes := make(map[string]struct{}, len(assets))
	for _, asset := range assets {
		suffixes[assetSuffix(asset.ID)] = struct{}{}
	}

	deleted := 0
	for _, file := range existing {
		if keepFile(file, suffixes) {
			continue
		}
		if err := s.device.Delete(ctx, file); err != nil {
			log.Warn("Failed to delete stale file",
				zap.String("filename", file),
				zap.Error(err))
			continue
		}
		deleted++
	}

	if deleted > 0 {
		log.Info("Pruned stale files from device", zap.Int("deleted", deleted))
	}
}

func keepFile(filename string, suffixes map[string]struct{}) bool {
	for suffix := range suffixes {
		if suffix != "" && strings.Contains(filename, suffix) {
			return true
		}
	}
	return false
}

func assetSuffix(id string) string {
	parts := strings.Split(id, "-")
	return parts[len(parts)-1]
}

func uploadFilename(asset domain.MemoryAsset) string {
	return "resized_" + asset.ID + ".jpg"
}

func (s *SyncService) report(log *zap.Logger, summary domain.RunSummary) {
	log.Info("Sync run finished",
		zap.Int("total", summary.Total),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed))

	for _, outcome := range summary.Failures() {
		log.Warn("Asset failed",
			zap.String("asset_id", outcome.AssetID),
			zap.Int("attempts", outcome.Attempts),
			zap.String("reason", outcome.Failure))
	}
}
