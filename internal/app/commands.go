package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"property_insights/internal/adapters/observability"
	"property_insights/internal/domain"
)

type BuildService struct {
	store domain.ArchiveWriter
	cache domain.Cache
}

func NewBuildService(s domain.ArchiveWriter, cache domain.Cache) *BuildService {
	return &BuildService{store: s, cache: cache}
}

// Build aggregates props and writes a fresh archive at path, replacing any
// previous content.
func (s *BuildService) Build(ctx context.Context, props []domain.PropertyRecord, path string) (domain.BuildResult, error) {
	start := time.Now()
	a := Compile(props)

	err := s.store.Write(path, a)
	observability.ObserveArchive("write", err, time.Since(start))
	if err != nil {
		return domain.BuildResult{}, err
	}
	observability.PropertiesStored.Set(float64(len(props)))

	// the archive identity changed; drop whatever summary was cached for this path
	if s.cache != nil {
		_ = s.cache.Del(ctx, summaryKey(path))
	}

	log.Debug().
		Str("path", path).
		Int("properties", len(props)).
		Int("cities", len(a.Aggregations.Cities)).
		Dur("took", time.Since(start)).
		Msg("archive written")

	return domain.BuildResult{Status: "ok", PropertiesStored: len(props)}, nil
}

type ExportService struct {
	store    domain.ArchiveReader
	exporter domain.FeatureExporter
}

func NewExportService(s domain.ArchiveReader, e domain.FeatureExporter) *ExportService {
	return &ExportService{store: s, exporter: e}
}

// Export writes the archive's properties section to dst as point features.
func (s *ExportService) Export(ctx context.Context, archivePath, dst string) (domain.ExportResult, error) {
	start := time.Now()
	n, err := s.export(archivePath, dst)
	observability.ObserveArchive("export", err, time.Since(start))
	if err != nil {
		return domain.ExportResult{}, err
	}
	log.Debug().Str("archive", archivePath).Str("dst", dst).Int("features", n).Msg("properties exported")
	return domain.ExportResult{Status: "ok", FeaturesWritten: n, Path: dst}, nil
}

func (s *ExportService) export(archivePath, dst string) (int, error) {
	cols, err := s.store.ReadProperties(archivePath)
	if err != nil {
		return 0, err
	}
	n, err := s.exporter.Export(dst, cols)
	if err != nil {
		return 0, fmt.Errorf("export %s: %w", dst, err)
	}
	return n, nil
}
