package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/feeds"
)

// RefreshJob keeps feed snapshots warm for the configured campus sectors.
type RefreshJob struct {
	config RefreshConfig
	logger zerolog.Logger

	feedsService *feeds.Service

	metrics *RefreshMetrics
}

// RefreshMetrics tracks refresh job statistics.
type RefreshMetrics struct {
	mu sync.RWMutex

	// Counters
	TotalRuns         int64
	SuccessfulSectors int64
	FailedSectors     int64
	DegradedLayers    int64

	// Timings
	LastRunAt       time.Time
	LastRunDuration time.Duration
	TotalDuration   time.Duration
}

// RefreshJobConfig holds configuration for creating a RefreshJob.
type RefreshJobConfig struct {
	Config       RefreshConfig
	Logger       zerolog.Logger
	FeedsService *feeds.Service
}

// NewRefreshJob creates a new refresh job processor.
func NewRefreshJob(cfg RefreshJobConfig) *RefreshJob {
	config := cfg.Config
	if len(config.Sectors) == 0 {
		config = DefaultRefreshConfig()
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 3
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &RefreshJob{
		config:       config,
		logger:       cfg.Logger,
		feedsService: cfg.FeedsService,
		metrics:      &RefreshMetrics{},
	}
}

// RefreshResult contains the result of a refresh run.
type RefreshResult struct {
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
	TotalSectors   int
	Successful     int
	Failed         int
	DegradedLayers int
	Errors         []RefreshError
}

// RefreshError represents an error during refresh.
type RefreshError struct {
	Sector string
	Error  string
}

// Run warms the feed snapshot for every configured sector. Invalidate forces
// a reload by dropping the snapshot cache first.
func (j *RefreshJob) Run(ctx context.Context, invalidate bool) *RefreshResult {
	startTime := time.Now()
	result := &RefreshResult{
		StartTime:    startTime,
		TotalSectors: j.config.TotalSectors(),
	}

	j.logger.Info().
		Int("total_sectors", result.TotalSectors).
		Int("concurrency", j.config.Concurrency).
		Bool("invalidate", invalidate).
		Msg("starting feed refresh job")

	if invalidate {
		j.feedsService.InvalidateCache()
	}

	sectors := j.config.AllSectors()

	sectorsChan := make(chan RefreshSector, len(sectors))
	resultsChan := make(chan sectorResult, len(sectors))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.refreshWorker(ctx, sectorsChan, resultsChan)
		}()
	}

	for _, s := range sectors {
		sectorsChan <- s
	}
	close(sectorsChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for sr := range resultsChan {
		if sr.success {
			result.Successful++
		} else {
			result.Failed++
		}
		result.DegradedLayers += sr.degradedLayers
		result.Errors = append(result.Errors, sr.errors...)
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Int("degraded_layers", result.DegradedLayers).
		Msg("feed refresh job completed")

	return result
}

type sectorResult struct {
	sector         RefreshSector
	success        bool
	degradedLayers int
	errors         []RefreshError
}

func (j *RefreshJob) refreshWorker(ctx context.Context, sectors <-chan RefreshSector, results chan<- sectorResult) {
	for sector := range sectors {
		select {
		case <-ctx.Done():
			return
		default:
			results <- j.refreshSector(ctx, sector)
		}
	}
}

func (j *RefreshJob) refreshSector(ctx context.Context, sector RefreshSector) sectorResult {
	result := sectorResult{
		sector:  sector,
		success: true,
	}

	sectorCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	snapshot, err := j.feedsService.GetSnapshot(sectorCtx, sector.Bounds)
	if err != nil {
		result.errors = append(result.errors, RefreshError{
			Sector: sector.Name,
			Error:  err.Error(),
		})
		result.success = false
		return result
	}

	result.degradedLayers = len(snapshot.Degraded)
	if result.degradedLayers > 0 {
		j.logger.Warn().
			Str("sector", sector.Name).
			Strs("degraded", snapshot.Degraded).
			Msg("sector refreshed with degraded layers")
		atomic.AddInt64(&j.metrics.DegradedLayers, int64(result.degradedLayers))
	}

	return result
}

func (j *RefreshJob) updateMetrics(result *RefreshResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.SuccessfulSectors += int64(result.Successful)
	j.metrics.FailedSectors += int64(result.Failed)
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *RefreshJob) GetMetrics() RefreshMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return RefreshMetrics{
		TotalRuns:         j.metrics.TotalRuns,
		SuccessfulSectors: j.metrics.SuccessfulSectors,
		FailedSectors:     j.metrics.FailedSectors,
		DegradedLayers:    j.metrics.DegradedLayers,
		LastRunAt:         j.metrics.LastRunAt,
		LastRunDuration:   j.metrics.LastRunDuration,
		TotalDuration:     j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *RefreshJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_runs":         m.TotalRuns,
		"successful_sectors": m.SuccessfulSectors,
		"failed_sectors":     m.FailedSectors,
		"degraded_layers":    m.DegradedLayers,
		"last_run_at":        m.LastRunAt,
		"last_run_duration":  m.LastRunDuration.String(),
		"total_duration":     m.TotalDuration.String(),
	}
}
