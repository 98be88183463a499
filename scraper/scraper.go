// Package scraper fetches the companies index and drives every listed company
// through the retry pipeline.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/aluiziolira/go-scrape-companies/config"
	"github.com/aluiziolira/go-scrape-companies/models"
	"github.com/aluiziolira/go-scrape-companies/pipeline"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Source lists the companies and fetches their detail pages.
type Source interface {
	FetchCompanies(ctx context.Context) ([]models.CompanyShort, error)
	pipeline.Fetcher
}

// Store is the store the driver sorts and the pipeline writes to.
type Store interface {
	pipeline.Store
	Len() int
	Sort(cmp func(a, b models.Company) int)
}

// Scraper runs one scrape over a source into a store.
type Scraper struct {
	cfg      *config.Config
	source   Source
	store    Store
	pipeline *pipeline.Pipeline
	sink     ProgressSink
	logger   *slog.Logger
	Metrics  *Metrics

	pipelineOpts []pipeline.Option
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithProgress sets the sink receiving per-target progress.
func WithProgress(sink ProgressSink) Option {
	return func(s *Scraper) {
		s.sink = sink
	}
}

// WithLogger sets the logger for the driver and its pipeline.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scraper) {
		s.logger = l
	}
}

// WithMetrics sets the metrics shared with the fetcher.
func WithMetrics(m *Metrics) Option {
	return func(s *Scraper) {
		s.Metrics = m
	}
}

// WithPipelineOptions passes extra options to the pipeline.
func WithPipelineOptions(opts ...pipeline.Option) Option {
	return func(s *Scraper) {
		s.pipelineOpts = append(s.pipelineOpts, opts...)
	}
}

// NewScraper builds a driver. The store must already be opened with the
// resolved mode.
func NewScraper(cfg *config.Config, source Source, store Store, opts ...Option) *Scraper {
	s := &Scraper{
		cfg:    cfg,
		source: source,
		store:  store,
		sink:   ProgressFunc(func(models.Progress) {}),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	pipelineOpts := []pipeline.Option{pipeline.WithLogger(s.logger)}
	if s.Metrics != nil {
		pipelineOpts = append(pipelineOpts, pipeline.WithRecorder(s.Metrics))
	}
	s.pipeline = pipeline.NewPipeline(source, store, cfg, append(pipelineOpts, s.pipelineOpts...)...)
	return s
}

// Run fetches the index once, applies the optional sort and processes every
// target in order. Any error other than an exhausted target stops the run.
func (s *Scraper) Run(ctx context.Context) (*models.RunResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	result := &models.RunResult{StartTime: time.Now()}
	defer func() {
		result.EndTime = time.Now()
	}()

	targets, err := s.source.FetchCompanies(ctx)
	if err != nil {
		return result, fmt.Errorf("fetch companies: %w", err)
	}
	targets, result.Duplicates = dedupe(targets)
	result.Total = len(targets)
	s.Metrics.SetTargets(len(targets))
	s.logger.Info("companies found", slog.Int("count", len(targets)))
	if result.Duplicates > 0 {
		s.logger.Warn("duplicate companies dropped", slog.Int("count", result.Duplicates))
	}

	if s.cfg.Sort != nil {
		if err := s.sort(targets); err != nil {
			return result, err
		}
	}

	for i, target := range targets {
		outcome, err := s.pipeline.Process(ctx, target)
		if err != nil {
			return result, err
		}
		tally(result, target, outcome)
		s.sink.Report(models.Progress{
			Index:   i + 1,
			Total:   len(targets),
			URL:     target.URL,
			Outcome: outcome,
		})
		if err := s.pipeline.Throttle(ctx, outcome); err != nil {
			return result, err
		}
	}

	return result, nil
}

func (s *Scraper) sort(targets []models.CompanyShort) error {
	cmp := NewComparator(*s.cfg.Sort)
	slices.SortStableFunc(targets, cmp.Targets)
	s.store.Sort(cmp.Companies)
	if s.store.Len() > 0 {
		if err := s.store.Flush(); err != nil {
			return fmt.Errorf("flush sorted store: %w", err)
		}
	}
	s.logger.Info("sorting success",
		slog.String("key", string(s.cfg.Sort.Key)),
		slog.String("order", string(s.cfg.Sort.Order)),
	)
	return nil
}

// dedupe drops rows whose url was already listed, keeping the first one.
func dedupe(targets []models.CompanyShort) ([]models.CompanyShort, int) {
	if len(targets) == 0 {
		return targets, 0
	}
	seen, err := lru.New[string, struct{}](len(targets))
	if err != nil {
		return targets, 0
	}
	unique := make([]models.CompanyShort, 0, len(targets))
	for _, target := range targets {
		if found, _ := seen.ContainsOrAdd(target.URL, struct{}{}); found {
			continue
		}
		unique = append(unique, target)
	}
	return unique, len(targets) - len(unique)
}

func tally(result *models.RunResult, target models.CompanyShort, outcome models.Outcome) {
	if outcome.Attempts > 1 {
		result.Retries += outcome.Attempts - 1
	}
	switch outcome.Kind {
	case models.Skipped:
		result.Skipped++
	case models.Fetched:
		result.Fetched++
	case models.Exhausted:
		result.Exhausted++
		result.FailedURLs = append(result.FailedURLs, target.URL)
	}
}
