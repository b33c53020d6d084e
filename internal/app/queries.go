package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"property_insights/internal/adapters/observability"
	"property_insights/internal/domain"
)

type QueryService struct {
	store    domain.ArchiveReader
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(s domain.ArchiveReader, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{store: s, cache: c, cacheTTL: ttl}
}

// cachedSummary pins a summary to the size and mtime of the archive it came from.
type cachedSummary struct {
	Size    int64                  `json:"size"`
	ModTime int64                  `json:"modTime"`
	Summary domain.InsightsSummary `json:"summary"`
}

const summaryCache = "summary"

func summaryKey(path string) string { return "insights:summary:" + path }

// Summary reads the archive at path and returns its JSON summary.
func (s *QueryService) Summary(ctx context.Context, path string) (domain.InsightsSummary, error) {
	if s.cache == nil {
		return s.read(path)
	}

	info, err := s.store.Info(path)
	if err != nil {
		return domain.InsightsSummary{}, err
	}
	key := summaryKey(path)
	var hit cachedSummary
	ok, err := s.cache.Get(ctx, key, &hit)
	switch {
	case err != nil:
		observability.ObserveCache(summaryCache, "error")
		log.Warn().Err(err).Str("path", path).Msg("summary cache get failed")
	case !ok:
		observability.ObserveCache(summaryCache, "miss")
	case hit.Size == info.Size && hit.ModTime == info.ModTime.UnixNano():
		observability.ObserveCache(summaryCache, "hit")
		return hit.Summary, nil
	default:
		observability.ObserveCache(summaryCache, "stale")
	}

	out, err := s.read(path)
	if err != nil {
		return domain.InsightsSummary{}, err
	}
	entry := cachedSummary{Size: info.Size, ModTime: info.ModTime.UnixNano(), Summary: out}
	if err := s.cache.Set(ctx, key, entry, int(s.cacheTTL.Seconds())); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("summary cache set failed")
	}
	return out, nil
}

func (s *QueryService) read(path string) (domain.InsightsSummary, error) {
	start := time.Now()
	stored, err := s.store.ReadAggregates(path)
	observability.ObserveArchive("read", err, time.Since(start))
	if err != nil {
		return domain.InsightsSummary{}, err
	}
	return Summarize(stored), nil
}
