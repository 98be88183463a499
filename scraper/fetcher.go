package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/aluiziolira/go-scrape-companies/config"
	"github.com/aluiziolira/go-scrape-companies/models"
	"github.com/aluiziolira/go-scrape-companies/parser"
	"github.com/gocolly/colly/v2"
	"golang.org/x/time/rate"
)

const (
	phaseIndex  = "index"
	phaseDetail = "detail"

	responseKey = "response"
	startKey    = "start"
)

// Fetcher issues GET requests through a colly collector and extracts the
// index and detail pages.
type Fetcher struct {
	cfg       *config.Config
	collector *colly.Collector
	limiter   *rate.Limiter
	metrics   *Metrics
	logger    *slog.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithTransport replaces the HTTP transport of the collector.
func WithTransport(rt http.RoundTripper) FetcherOption {
	return func(f *Fetcher) {
		f.collector.WithTransport(rt)
	}
}

// WithFetcherLogger sets the logger used for request diagnostics.
func WithFetcherLogger(l *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		f.logger = l
	}
}

// NewFetcher builds a sequential fetcher configured from cfg.
func NewFetcher(cfg *config.Config, metrics *Metrics, opts ...FetcherOption) (*Fetcher, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Hostname()),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
	)
	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = true
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	f := &Fetcher{
		cfg:       cfg,
		collector: collector,
		metrics:   metrics,
		logger:    slog.Default(),
	}
	if cfg.RateLimit > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	for _, opt := range opts {
		opt(f)
	}
	f.configureHandlers()
	return f, nil
}

func (f *Fetcher) configureHandlers() {
	f.collector.OnRequest(func(r *colly.Request) {
		r.Ctx.Put(startKey, time.Now())
		f.logger.Debug("request", slog.String("url", r.URL.String()))
	})

	f.collector.OnResponse(func(r *colly.Response) {
		r.Ctx.Put(responseKey, r)
		if start, ok := r.Ctx.GetAny(startKey).(time.Time); ok {
			f.metrics.ObserveDuration(time.Since(start))
		}
	})
}

// FetchCompanies downloads the index page and extracts every listed company.
func (f *Fetcher) FetchCompanies(ctx context.Context) ([]models.CompanyShort, error) {
	body, err := f.get(ctx, f.cfg.BaseURL, phaseIndex)
	if err != nil {
		return nil, err
	}
	companies, err := parser.ParseCompanies(bytes.NewReader(body), f.cfg.BaseURL)
	if err != nil {
		f.recordError(err)
		return nil, fmt.Errorf("parse index: %w", err)
	}
	return companies, nil
}

// FetchDetails downloads and extracts one company page. A non-2xx response is
// transient; anything else that goes wrong is fatal.
func (f *Fetcher) FetchDetails(ctx context.Context, pageURL string) models.FetchResult {
	body, err := f.get(ctx, pageURL, phaseDetail)
	if err != nil {
		if IsTransient(err) {
			return models.Transient(err)
		}
		return models.Fatal(err)
	}
	details, err := parser.ParseCompanyDetails(bytes.NewReader(body), pageURL)
	if err != nil {
		f.recordError(err)
		return models.Fatal(err)
	}
	return models.OK(details)
}

func (f *Fetcher) get(ctx context.Context, target, phase string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	f.metrics.IncRequest(phase)
	reqCtx := colly.NewContext()
	if err := f.collector.Request(http.MethodGet, target, nil, reqCtx, nil); err != nil {
		classified := classifyError(err, 0, target)
		f.recordError(classified)
		return nil, fmt.Errorf("GET %s: %w", target, classified)
	}

	resp, ok := reqCtx.GetAny(responseKey).(*colly.Response)
	if !ok {
		return nil, fmt.Errorf("GET %s: no response", target)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		statusErr := classifyError(nil, resp.StatusCode, target)
		f.recordError(statusErr)
		return nil, statusErr
	}
	return resp.Body, nil
}

func (f *Fetcher) recordError(err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	f.metrics.IncError(errorTypeLabel(err))
}
