package scraper

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aluiziolira/go-scrape-companies/config"
	"github.com/aluiziolira/go-scrape-companies/models"
	"github.com/aluiziolira/go-scrape-companies/pipeline"
	"github.com/aluiziolira/go-scrape-companies/store"
	"github.com/jarcoal/httpmock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

type harness struct {
	cfg       *config.Config
	transport *httpmock.MockTransport
	store     *store.JSONStore
	progress  []models.Progress
	scraper   *Scraper
	metrics   *Metrics
}

func newHarness(t *testing.T, cfg *config.Config, transport *httpmock.MockTransport, opts ...Option) *harness {
	t.Helper()
	metrics := NewMetrics()
	fetcher, err := NewFetcher(cfg, metrics, WithTransport(transport), WithFetcherLogger(discardLogger()))
	require.NoError(t, err)

	st, err := store.Open(cfg.OutputFile, cfg.Mode)
	require.NoError(t, err)

	h := &harness{cfg: cfg, transport: transport, store: st, metrics: metrics}
	defaults := []Option{
		WithMetrics(metrics),
		WithLogger(discardLogger()),
		WithProgress(ProgressFunc(func(p models.Progress) {
			h.progress = append(h.progress, p)
		})),
		WithPipelineOptions(pipeline.WithSleeper(noSleep)),
	}
	h.scraper = NewScraper(cfg, fetcher, st, append(defaults, opts...)...)
	return h
}

func siteTransport(t *testing.T, itransition httpmock.Responder) *httpmock.MockTransport {
	t.Helper()
	transport := httpmock.NewMockTransport()
	registerIndex(transport, httpmock.NewStringResponder(http.StatusOK, readFixture(t, "index.html")))
	company := readFixture(t, "company.html")
	transport.RegisterResponder(http.MethodGet, epamURL, httpmock.NewStringResponder(http.StatusOK, company))
	if itransition == nil {
		itransition = httpmock.NewStringResponder(http.StatusOK, strings.ReplaceAll(company, "EPAM Systems", "Itransition"))
	}
	transport.RegisterResponder(http.MethodGet, itransURL, itransition)
	return transport
}

func outputConfig(t *testing.T) *config.Config {
	cfg := testConfig()
	cfg.OutputFile = filepath.Join(t.TempDir(), "companies.json")
	return cfg
}

func TestRunRecoversAfterTransientFailures(t *testing.T) {
	cfg := outputConfig(t)
	cfg.RetriesPerCompany = 2
	itransition := httpmock.NewStringResponder(http.StatusInternalServerError, "").
		Then(httpmock.NewStringResponder(http.StatusInternalServerError, "")).
		Then(httpmock.NewStringResponder(http.StatusOK, readFixture(t, "company.html")))
	h := newHarness(t, cfg, siteTransport(t, itransition))

	result, err := h.scraper.Run(context.Background())
	require.NoError(t, err)

	calls := h.transport.GetCallCountInfo()
	assert.Equal(t, 1, calls["GET "+epamURL])
	assert.Equal(t, 3, calls["GET "+itransURL])

	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 2, result.Fetched)
	assert.Equal(t, 2, result.Retries)
	assert.Zero(t, result.Exhausted)

	loaded, err := store.Load(cfg.OutputFile)
	require.NoError(t, err)
	require.Equal(t, 2, loaded.Len())
	assert.True(t, loaded.Contains(epamURL))
	assert.True(t, loaded.Contains(itransURL))

	require.Len(t, h.progress, 2)
	assert.Equal(t, 3, h.progress[1].Outcome.Attempts)
	assert.Equal(t, 2.0, testutil.ToFloat64(h.metrics.Retries))
	assert.Equal(t, 2.0, testutil.ToFloat64(h.metrics.Outcomes.WithLabelValues("fetched")))
	assert.Equal(t, 2.0, testutil.ToFloat64(h.metrics.Targets))
}

func TestRunReportsProgressBeforeCompanyDelay(t *testing.T) {
	cfg := outputConfig(t)
	cfg.DelayBetweenCompanies = time.Second
	cfg.DelayBetweenRetries = time.Millisecond
	cfg.RetriesPerCompany = 1
	itransition := httpmock.NewStringResponder(http.StatusBadGateway, "").
		Then(httpmock.NewStringResponder(http.StatusOK, readFixture(t, "company.html")))

	var h *harness
	var reportedAtDelay []int
	sleeper := func(ctx context.Context, d time.Duration) error {
		if d == cfg.DelayBetweenCompanies {
			reportedAtDelay = append(reportedAtDelay, len(h.progress))
		}
		return ctx.Err()
	}
	h = newHarness(t, cfg, siteTransport(t, itransition), WithPipelineOptions(pipeline.WithSleeper(sleeper)))

	_, err := h.scraper.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, h.progress, 2)
	assert.Equal(t, 2, h.progress[1].Outcome.Attempts)
	assert.Equal(t, []int{1, 2}, reportedAtDelay)
}

func TestRunExhaustedTargetDoesNotAbort(t *testing.T) {
	cfg := outputConfig(t)
	cfg.RetriesPerCompany = 1
	h := newHarness(t, cfg, siteTransport(t, httpmock.NewStringResponder(http.StatusServiceUnavailable, "")))

	result, err := h.scraper.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, h.transport.GetCallCountInfo()["GET "+itransURL])
	assert.Equal(t, 1, result.Fetched)
	assert.Equal(t, 1, result.Exhausted)
	assert.Equal(t, []string{itransURL}, result.FailedURLs)

	require.Len(t, h.progress, 2)
	exhausted := h.progress[1].Outcome
	assert.Equal(t, models.Exhausted, exhausted.Kind)
	assert.EqualError(t, exhausted.Err, "Error 503: Service Unavailable")
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Outcomes.WithLabelValues("exhausted")))
}

func TestRunIndexFailureIsFatal(t *testing.T) {
	cfg := outputConfig(t)
	transport := httpmock.NewMockTransport()
	registerIndex(transport, httpmock.NewStringResponder(http.StatusInternalServerError, ""))
	h := newHarness(t, cfg, transport)

	_, err := h.scraper.Run(context.Background())

	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 1, transport.GetTotalCallCount())
	assert.False(t, store.Exists(cfg.OutputFile))
}

func TestRunExtractionFailureAborts(t *testing.T) {
	cfg := outputConfig(t)
	h := newHarness(t, cfg, siteTransport(t, httpmock.NewStringResponder(http.StatusOK, "<html></html>")))

	_, err := h.scraper.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), itransURL)
	assert.Equal(t, 1, h.transport.GetCallCountInfo()["GET "+itransURL])

	loaded, err := store.Load(cfg.OutputFile)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Len())
}

func TestRunContinueIsIdempotent(t *testing.T) {
	cfg := outputConfig(t)
	first := newHarness(t, cfg, siteTransport(t, nil))
	_, err := first.scraper.Run(context.Background())
	require.NoError(t, err)

	before, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)

	cfg.Mode = config.ModeContinue
	second := newHarness(t, cfg, siteTransport(t, nil))
	result, err := second.scraper.Run(context.Background())
	require.NoError(t, err)

	after, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))

	calls := second.transport.GetCallCountInfo()
	assert.Zero(t, calls["GET "+epamURL])
	assert.Zero(t, calls["GET "+itransURL])
	assert.Equal(t, 2, result.Skipped)
}

func TestRunFreshModeRejectsExistingFile(t *testing.T) {
	cfg := outputConfig(t)
	require.NoError(t, os.WriteFile(cfg.OutputFile, []byte("[]"), 0o644))

	_, err := store.Open(cfg.OutputFile, config.ModeFresh)
	require.ErrorIs(t, err, store.ErrStoreConflict)
}

func TestRunSortsTargetsAndStore(t *testing.T) {
	cfg := outputConfig(t)
	cfg.RetriesPerCompany = 0
	first := newHarness(t, cfg, siteTransport(t, httpmock.NewStringResponder(http.StatusServiceUnavailable, "")))
	_, err := first.scraper.Run(context.Background())
	require.NoError(t, err)

	cfg.Mode = config.ModeContinue
	cfg.Sort = &config.SortSpec{Key: config.SortByName, Order: config.Desc}
	second := newHarness(t, cfg, siteTransport(t, nil))
	result, err := second.scraper.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, second.progress, 2)
	assert.Equal(t, itransURL, second.progress[0].URL)
	assert.Equal(t, models.Fetched, second.progress[0].Outcome.Kind)
	assert.Equal(t, epamURL, second.progress[1].URL)
	assert.Equal(t, models.Skipped, second.progress[1].Outcome.Kind)
	assert.Equal(t, 1, result.Fetched)

	loaded, err := store.Load(cfg.OutputFile)
	require.NoError(t, err)
	all := loaded.All()
	require.Len(t, all, 2)
	assert.Equal(t, epamURL, all[0].URL)
	assert.Equal(t, itransURL, all[1].URL)
}

func TestRunDropsDuplicateIndexRows(t *testing.T) {
	cfg := outputConfig(t)
	row := `<tr><td><a href="/epam-systems">EPAM Systems</a></td><td data="4.1"></td><td data="9000"></td><td></td><td>3</td></tr>`
	index := `<table class="companies"><tbody>` + row + row + `</tbody></table>`

	transport := httpmock.NewMockTransport()
	registerIndex(transport, httpmock.NewStringResponder(http.StatusOK, index))
	transport.RegisterResponder(http.MethodGet, epamURL, httpmock.NewStringResponder(http.StatusOK, readFixture(t, "company.html")))
	h := newHarness(t, cfg, transport)

	result, err := h.scraper.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Total)
	assert.Equal(t, 1, result.Duplicates)
	assert.Equal(t, 1, transport.GetCallCountInfo()["GET "+epamURL])
}

func TestRunCancelledContext(t *testing.T) {
	cfg := outputConfig(t)
	h := newHarness(t, cfg, siteTransport(t, nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.scraper.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, h.transport.GetTotalCallCount())
}
