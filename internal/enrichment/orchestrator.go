package enrichment

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/autogt/autogt/internal/config"
	"github.com/autogt/autogt/internal/models"
	"github.com/autogt/autogt/internal/risk"
	"github.com/autogt/autogt/internal/storage"
	"github.com/autogt/autogt/pkg/logger"
)

// Orchestrator runs a driver over a strategy's selection, consults the
// cache, and persists the result as an analysis artifact. Individual
// asset failures are captured per item; the run fails only when nothing
// succeeds.
type Orchestrator struct {
	driver   Driver
	strategy Strategy
	cache    *Cache
	storage  *storage.Storage
	logger   logger.Logger
}

// NewOrchestrator creates an orchestrator. Cache and storage may be nil,
// in which case responses are neither cached nor persisted.
func NewOrchestrator(driver Driver, strategy Strategy, cache *Cache, store *storage.Storage, log logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Orchestrator{
		driver:   driver,
		strategy: strategy,
		cache:    cache,
		storage:  store,
		logger:   log,
	}
}

// FromConfig assembles an orchestrator from the enrichment configuration:
// the exec driver when an assistant command is set, the heuristic driver
// otherwise, and a cache under the storage directory when enabled.
func FromConfig(cfg *config.Config, store *storage.Storage, log logger.Logger) (*Orchestrator, error) {
	strategy, err := DefaultRegistry.Get(cfg.Enrichment.Strategy)
	if err != nil {
		return nil, err
	}

	var driver Driver = NewHeuristicDriver()
	if cfg.Enrichment.Assistant.Command != "" {
		driver = NewExecDriver(cfg.Enrichment.Assistant.Command, cfg.Enrichment.Assistant.Timeout.Std())
	}

	var cache *Cache
	if cfg.Enrichment.Cache.Enabled {
		cache, err = NewCache(filepath.Join(cfg.Storage.Dir, ".cache"), cfg.Enrichment.Cache.TTL.Std())
		if err != nil {
			return nil, err
		}
	}

	return NewOrchestrator(driver, strategy, cache, store, log), nil
}

// Driver returns the configured driver.
func (o *Orchestrator) Driver() Driver { return o.driver }

// Strategy returns the configured strategy.
func (o *Orchestrator) Strategy() Strategy { return o.strategy }

// SuggestThreats enriches the strategy's selection of items and returns
// one AssetEnrichment per selected asset. When the analysis and a storage
// are present the result is saved as the enrichments artifact.
func (o *Orchestrator) SuggestThreats(ctx context.Context, analysis *models.Analysis, items []Item, opts Options) (*RunResult, error) {
	if !o.driver.IsAvailable(ctx) {
		return nil, fmt.Errorf("enrichment driver %s is not available", o.driver.Name())
	}

	result := &RunResult{
		Metadata: Metadata{
			RunID:       uuid.New().String(),
			StartedAt:   time.Now(),
			Strategy:    o.strategy.Name(),
			Driver:      o.driver.Name(),
			TotalAssets: len(items),
		},
	}

	selected := o.strategy.Select(items)
	result.Metadata.SelectedAssets = len(selected)

	o.logger.Info("Starting enrichment run",
		"run_id", result.Metadata.RunID,
		"driver", result.Metadata.Driver,
		"strategy", result.Metadata.Strategy,
		"selected", len(selected),
		"total", len(items),
	)

	for _, item := range selected {
		if item.Asset == nil {
			continue
		}
		result.Enrichments = append(result.Enrichments, o.enrichAsset(ctx, item, opts, &result.Metadata))
	}

	result.Metadata.CompletedAt = time.Now()

	if result.Metadata.SelectedAssets > 0 && result.Metadata.EnrichedAssets == 0 {
		return nil, fmt.Errorf("enrichment failed for all %d selected assets", result.Metadata.SelectedAssets)
	}

	if analysis != nil && o.storage != nil {
		dir, err := o.storage.EnsureAnalysisDir(analysis)
		if err != nil {
			return nil, fmt.Errorf("saving enrichments: %w", err)
		}
		if err := o.storage.SaveArtifact(dir, storage.FileEnrichments, result); err != nil {
			return nil, fmt.Errorf("saving enrichments: %w", err)
		}
	}

	o.logger.Info("Enrichment run complete",
		"run_id", result.Metadata.RunID,
		"enriched", result.Metadata.EnrichedAssets,
		"cache_hits", result.Metadata.CacheHits,
		"errors", len(result.Metadata.Errors),
		"duration", result.Metadata.CompletedAt.Sub(result.Metadata.StartedAt),
	)
	return result, nil
}

func (o *Orchestrator) enrichAsset(ctx context.Context, item Item, opts Options, meta *Metadata) AssetEnrichment {
	enriched := AssetEnrichment{
		AssetID:   item.Asset.ID,
		AssetName: item.Asset.Name,
	}

	request := execRequest{
		Kind:    kindSuggestThreats,
		Vehicle: opts.Vehicle,
		Max:     opts.MaxSuggestions,
		Asset:   item.Asset,
	}

	var key string
	if o.cache != nil {
		var err error
		key, err = CacheKey(o.driver.Name(), request)
		if err == nil {
			var cached []ThreatSuggestion
			found, getErr := o.cache.Get(key, &cached)
			if getErr != nil {
				o.logger.Warn("Cache lookup failed", "asset", item.Asset.Name, "error", getErr)
			} else if found {
				enriched.Suggestions = cached
				enriched.Cached = true
				meta.CacheHits++
				meta.EnrichedAssets++
				return enriched
			}
		}
	}

	suggestions, err := o.driver.SuggestThreats(ctx, item.Asset, opts)
	if err != nil {
		o.logger.Error("Asset enrichment failed", "asset", item.Asset.Name, "error", err)
		enriched.Err = err.Error()
		meta.Errors = append(meta.Errors, fmt.Sprintf("asset %s: %v", item.Asset.Name, err))
		return enriched
	}

	enriched.Suggestions = suggestions
	meta.EnrichedAssets++

	if o.cache != nil && key != "" {
		if err := o.cache.Put(key, suggestions); err != nil {
			o.logger.Warn("Caching enrichment failed", "asset", item.Asset.Name, "error", err)
		}
	}
	return enriched
}

// ReviewRisks asks the driver for a second opinion on each risk value.
// Failed reviews are logged and skipped; an error is returned only when
// every review fails.
func (o *Orchestrator) ReviewRisks(ctx context.Context, values []*risk.Value, opts Options) ([]ReviewNote, error) {
	if len(values) == 0 {
		return nil, nil
	}
	if !o.driver.IsAvailable(ctx) {
		return nil, fmt.Errorf("enrichment driver %s is not available", o.driver.Name())
	}

	var notes []ReviewNote
	var failures []string

	for _, value := range values {
		if value == nil {
			continue
		}
		note, err := o.reviewRisk(ctx, value, opts)
		if err != nil {
			o.logger.Error("Risk review failed", "risk_id", value.ID, "error", err)
			failures = append(failures, fmt.Sprintf("risk %s: %v", value.ID, err))
			continue
		}
		notes = append(notes, note)
	}

	if len(notes) == 0 && len(failures) > 0 {
		return nil, fmt.Errorf("review failed for all %d risks: %s", len(failures), failures[0])
	}
	return notes, nil
}

func (o *Orchestrator) reviewRisk(ctx context.Context, value *risk.Value, opts Options) (ReviewNote, error) {
	request := execRequest{
		Kind:    kindReviewRisk,
		Vehicle: opts.Vehicle,
		Risk:    value,
	}

	var key string
	if o.cache != nil {
		var err error
		key, err = CacheKey(o.driver.Name(), request)
		if err == nil {
			var cached ReviewNote
			found, getErr := o.cache.Get(key, &cached)
			if getErr == nil && found {
				return cached, nil
			}
		}
	}

	note, err := o.driver.ReviewRisk(ctx, value, opts)
	if err != nil {
		return ReviewNote{}, err
	}

	if o.cache != nil && key != "" {
		if err := o.cache.Put(key, note); err != nil {
			o.logger.Warn("Caching review failed", "risk_id", value.ID, "error", err)
		}
	}
	return note, nil
}
