// Package pipeline fetches one company at a time with bounded retries and
// commits every success to the store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-scrape-companies/config"
	"github.com/aluiziolira/go-scrape-companies/models"
)

// ErrNilDetails is returned when a fetcher reports success without details.
var ErrNilDetails = errors.New("pipeline: fetcher returned no details")

// Fetcher retrieves and extracts a company detail page.
type Fetcher interface {
	FetchDetails(ctx context.Context, url string) models.FetchResult
}

// Store is the persistence the pipeline commits to. The pipeline must be its
// only writer for url uniqueness to hold.
type Store interface {
	Contains(url string) bool
	Append(company models.Company)
	Flush() error
}

// Recorder receives pipeline counters.
type Recorder interface {
	IncRetries()
	IncOutcome(outcome string)
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the default Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Pipeline processes targets sequentially.
type Pipeline struct {
	fetcher Fetcher
	store   Store
	cfg     *config.Config
	sleep   Sleeper
	metrics Recorder
	logger  *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSleeper replaces the delay implementation.
func WithSleeper(s Sleeper) Option {
	return func(p *Pipeline) {
		p.sleep = s
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) {
		p.metrics = r
	}
}

// WithLogger sets the logger used for per-attempt warnings.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// NewPipeline builds a pipeline over fetcher and store.
func NewPipeline(fetcher Fetcher, store Store, cfg *config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		fetcher: fetcher,
		store:   store,
		cfg:     cfg,
		sleep:   Sleep,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessTarget runs Process and then Throttle.
func (p *Pipeline) ProcessTarget(ctx context.Context, target models.CompanyShort) (models.Outcome, error) {
	outcome, err := p.Process(ctx, target)
	if err != nil {
		return outcome, err
	}
	if err := p.Throttle(ctx, outcome); err != nil {
		return outcome, err
	}
	return outcome, nil
}

// Process fetches target unless it is already stored. Transient failures are
// retried up to cfg.RetriesPerCompany times; any other failure is returned
// as an error with a Failed outcome and must abort the run. The delay
// between companies is left to Throttle.
func (p *Pipeline) Process(ctx context.Context, target models.CompanyShort) (models.Outcome, error) {
	if p.store.Contains(target.URL) {
		outcome := models.Outcome{Kind: models.Skipped}
		p.record(outcome)
		return outcome, nil
	}

	outcome, err := p.fetch(ctx, target)
	if err != nil {
		return outcome, err
	}
	p.record(outcome)
	return outcome, nil
}

// Throttle waits the delay between companies that follows outcome. Skipped
// targets wait only when cfg.ThrottleSkipped is set.
func (p *Pipeline) Throttle(ctx context.Context, outcome models.Outcome) error {
	if outcome.Kind == models.Skipped && !p.cfg.ThrottleSkipped {
		return nil
	}
	return p.sleep(ctx, p.cfg.DelayBetweenCompanies)
}

func (p *Pipeline) fetch(ctx context.Context, target models.CompanyShort) (models.Outcome, error) {
	maxAttempts := p.cfg.Attempts()
	failed := func(attempts int, err error) (models.Outcome, error) {
		return models.Outcome{Kind: models.Failed, Attempts: attempts, Err: err}, err
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return failed(attempt-1, err)
		}

		result := p.fetcher.FetchDetails(ctx, target.URL)
		switch result.Kind {
		case models.FetchOK:
			if result.Details == nil {
				return failed(attempt, fmt.Errorf("%s: %w", target.URL, ErrNilDetails))
			}
			company := models.NewCompany(target, *result.Details)
			p.store.Append(company)
			if err := p.store.Flush(); err != nil {
				return failed(attempt, fmt.Errorf("flush store: %w", err))
			}
			return models.Outcome{Kind: models.Fetched, Attempts: attempt, Record: &company}, nil

		case models.FetchTransient:
			lastErr = result.Err
			p.logger.Warn("cannot fetch company",
				slog.String("url", target.URL),
				slog.Int("attempt", attempt),
				slog.Int("attempts", maxAttempts),
				slog.Any("error", result.Err),
			)
			if attempt < maxAttempts {
				if p.metrics != nil {
					p.metrics.IncRetries()
				}
				if err := p.sleep(ctx, p.cfg.DelayBetweenRetries); err != nil {
					return failed(attempt, err)
				}
			}

		default:
			err := result.Err
			if err == nil {
				err = fmt.Errorf("fetch failed with kind %s", result.Kind)
			}
			return failed(attempt, fmt.Errorf("%s: %w", target.URL, err))
		}
	}

	return models.Outcome{Kind: models.Exhausted, Attempts: maxAttempts, Err: lastErr}, nil
}

func (p *Pipeline) record(outcome models.Outcome) {
	if p.metrics != nil {
		p.metrics.IncOutcome(outcome.Kind.String())
	}
}
