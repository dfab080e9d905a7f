package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"wine-dashboard/internal/assets"
	"wine-dashboard/internal/models"
	"wine-dashboard/internal/observability"
	"wine-dashboard/internal/pipeline"
	"wine-dashboard/internal/storage"
)

var (
	ErrRecordsUnavailable = errors.New("wine records not loaded")
	ErrRankingUnavailable = errors.New("country ranking not available")
)

const defaultMemoSize = 256

// Catalog holds the session's RecordSet and summary manifest. The RecordSet
// is never mutated after SetRecords; a reload swaps it wholesale.
type Catalog struct {
	mu       sync.RWMutex
	records  []models.Record
	manifest *assets.Manifest
	source   string
	loadedAt time.Time

	memoMu   sync.Mutex
	memo     map[string]models.ViewResult
	memoSize int
	group    singleflight.Group

	queries   atomic.Int64
	memoHits  atomic.Int64
	lastQuery atomic.Int64
	logger    *slog.Logger
}

func NewCatalog(memoSize int, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	if memoSize < 0 {
		memoSize = defaultMemoSize
	}
	return &Catalog{
		memo:     make(map[string]models.ViewResult),
		memoSize: memoSize,
		logger:   logger,
	}
}

// SetRecords installs a RecordSet. Records that violate the cleaned-data
// contract are dropped and logged.
func (c *Catalog) SetRecords(records []models.Record) {
	valid, dropped := pipeline.Sanitize(records)
	if dropped > 0 {
		c.logger.Warn("dropped invalid records", "dropped", dropped, "kept", len(valid))
	}
	if valid == nil {
		valid = []models.Record{}
	}

	c.mu.Lock()
	c.records = valid
	c.loadedAt = time.Now()
	c.mu.Unlock()

	c.resetMemo()
}

func (c *Catalog) SetManifest(m *assets.Manifest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.manifest = m
}

func (c *Catalog) Manifest() *assets.Manifest {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.manifest
}

func (c *Catalog) Load(ctx context.Context, src storage.Source) error {
	start := time.Now()
	records, err := src.Load(ctx)
	if err != nil {
		return fmt.Errorf("load %s: %w", src.Name(), err)
	}

	c.SetRecords(records)

	c.mu.Lock()
	c.source = src.Name()
	c.mu.Unlock()

	c.logger.Info("records loaded",
		"source", src.Name(),
		"records", len(records),
		"duration", time.Since(start),
	)
	return nil
}

func (c *Catalog) Available() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.records != nil
}

func (c *Catalog) snapshot() ([]models.Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.records == nil {
		return nil, ErrRecordsUnavailable
	}
	return c.records, nil
}

// Query runs the pipeline for q. The sort must already be valid; callers
// parse user input with models.ParseSortSpec.
func (c *Catalog) Query(ctx context.Context, q models.Query) (models.ViewResult, error) {
	records, err := c.snapshot()
	if err != nil {
		return models.ViewResult{}, err
	}

	ctx, span := observability.StartSpan(ctx, "catalog.query")
	defer span.End(ctx, c.logger)

	c.queries.Add(1)
	c.lastQuery.Store(time.Now().UnixNano())

	key := q.Key()
	if result, ok := c.memoGet(key); ok {
		c.memoHits.Add(1)
		span.SetTag("memo", "hit")
		span.SetTag("matched", strconv.Itoa(result.Matched))
		return result, nil
	}

	v, _, _ := c.group.Do(key, func() (any, error) {
		result := pipeline.Run(records, q)
		c.memoPut(key, result)
		return result, nil
	})
	result := v.(models.ViewResult)

	span.SetTag("memo", "miss")
	span.SetTag("matched", strconv.Itoa(result.Matched))
	c.logger.DebugContext(ctx, "query executed",
		"key", key,
		"matched", result.Matched,
		"shown", result.Shown,
	)
	return result, nil
}

func (c *Catalog) memoGet(key string) (models.ViewResult, bool) {
	c.memoMu.Lock()
	defer c.memoMu.Unlock()
	r, ok := c.memo[key]
	return r, ok
}

// memoPut drops the whole memo when it is full. Queries are cheap to
// recompute; the memo only absorbs bursts of identical SSE requests.
func (c *Catalog) memoPut(key string, r models.ViewResult) {
	if c.memoSize == 0 {
		return
	}
	c.memoMu.Lock()
	defer c.memoMu.Unlock()
	if len(c.memo) >= c.memoSize {
		clear(c.memo)
	}
	c.memo[key] = r
}

func (c *Catalog) resetMemo() {
	c.memoMu.Lock()
	defer c.memoMu.Unlock()
	clear(c.memo)
}

func (c *Catalog) Options(criteria models.FilterCriteria) (models.FacetOptions, error) {
	records, err := c.snapshot()
	if err != nil {
		return models.FacetOptions{}, err
	}
	return pipeline.Options(records, criteria), nil
}

func (c *Catalog) Top(n int) ([]models.Record, error) {
	records, err := c.snapshot()
	if err != nil {
		return nil, err
	}
	return pipeline.TopByPoints(records, n), nil
}

// Ranking prefers a ranking computed from the loaded records and falls back
// to the manifest's precomputed one.
func (c *Catalog) Ranking() ([]models.CountryScore, error) {
	c.mu.RLock()
	records, manifest := c.records, c.manifest
	c.mu.RUnlock()

	if len(records) > 0 {
		return pipeline.RankCountries(records), nil
	}
	if ranking, ok := manifest.RankingScores().Get(); ok {
		return ranking, nil
	}
	return nil, ErrRankingUnavailable
}

// Overview assembles the landing slide. Labels from the manifest win over
// values derived from the records.
func (c *Catalog) Overview() models.Overview {
	c.mu.RLock()
	records, manifest := c.records, c.manifest
	c.mu.RUnlock()

	var ov models.Overview
	ov.Records = len(records)

	if ranking, err := c.Ranking(); err == nil {
		ov.Ranking = models.Some(ranking)
	}

	ov.TopCountry, ov.TopScore = topCountry(manifest, ov.Ranking)

	ov.BestValue = manifest.BestValueLabel()
	if !ov.BestValue.Available {
		ov.BestValue = pipeline.BestValue(records)
	}

	ov.Assets = []models.Asset{}
	if manifest != nil {
		ov.Assets = append(ov.Assets, manifest.Assets...)
	}
	return ov
}

// topCountry keeps the country and its score paired. With neither in the
// manifest both come from the ranking leader; a manifest country without a
// score takes its own mean from the ranking; a score without a country is
// shown alone.
func topCountry(m *assets.Manifest, ranking models.Optional[[]models.CountryScore]) (models.Optional[string], models.Optional[float64]) {
	country, score := m.TopCountryLabel(), m.TopScoreValue()
	scores, _ := ranking.Get()

	name, hasCountry := country.Get()
	switch {
	case !hasCountry && !score.Available:
		if len(scores) > 0 {
			return models.Some(scores[0].Country), models.Some(scores[0].MeanPoints)
		}
	case hasCountry && !score.Available:
		for _, s := range scores {
			if s.Country == name {
				return country, models.Some(s.MeanPoints)
			}
		}
	}
	return country, score
}

// Stats is reported by the admin endpoint.
func (c *Catalog) Stats() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	c.memoMu.Lock()
	memoEntries := len(c.memo)
	c.memoMu.Unlock()

	stats := map[string]any{
		"records_available":  c.records != nil,
		"record_count":       len(c.records),
		"source":             c.source,
		"manifest_available": c.manifest != nil,
		"queries":            c.queries.Load(),
		"memo_hits":          c.memoHits.Load(),
		"memo_entries":       memoEntries,
	}
	if !c.loadedAt.IsZero() {
		stats["loaded_at"] = c.loadedAt
	}
	if last := c.lastQuery.Load(); last > 0 {
		stats["last_query"] = time.Unix(0, last)
	}
	return stats
}
