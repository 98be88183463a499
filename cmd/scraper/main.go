package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/aluiziolira/go-scrape-companies/models"
	"github.com/aluiziolira/go-scrape-companies/parser"
	"github.com/aluiziolira/go-scrape-companies/scraper"
	"github.com/aluiziolira/go-scrape-companies/store"
	"github.com/google/uuid"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", errorKind(err), err)
		stop()
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Transport replaces the HTTP transport. Used by end-to-end tests.
	Transport http.RoundTripper
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{}
}

// configError marks errors caused by invalid flags.
type configError struct {
	err error
}

func (e *configError) Error() string {
	return e.err.Error()
}

func (e *configError) Unwrap() error {
	return e.err
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cli := &CLI{}
	cliParser, err := kong.New(cli,
		kong.Name("scraper"),
		kong.Description("Scrape companies.devby.io into a JSON file"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 1 && (args[0] == "--help" || args[0] == "-h" || args[0] == "help") {
		_, _ = cliParser.Parse([]string{"--help"})
		return nil
	}

	if _, err := cliParser.Parse(args); err != nil {
		return &configError{err: err}
	}
	cfg, err := cli.Config()
	if err != nil {
		return &configError{err: err}
	}

	logger := newLogger(stderr, cfg.Verbose).With(slog.String("run_id", uuid.NewString()))

	st, err := store.Open(cfg.OutputFile, cfg.Mode)
	if err != nil {
		return err
	}

	metrics := scraper.NewMetrics()
	fetcherOpts := []scraper.FetcherOption{scraper.WithFetcherLogger(logger)}
	if m.Transport != nil {
		fetcherOpts = append(fetcherOpts, scraper.WithTransport(m.Transport))
	}
	fetcher, err := scraper.NewFetcher(cfg, metrics, fetcherOpts...)
	if err != nil {
		return &configError{err: err}
	}

	metricsServer := startMetricsServer(cfg.MetricsAddr, metrics, logger)
	defer stopMetricsServer(metricsServer, logger)

	s := scraper.NewScraper(cfg, fetcher, st,
		scraper.WithMetrics(metrics),
		scraper.WithLogger(logger),
		scraper.WithProgress(scraper.NewConsoleProgress(stdout, logger, cfg.Full, cfg.Attempts())),
	)

	logger.Info("starting scrape",
		slog.String("base_url", cfg.BaseURL),
		slog.String("output", cfg.OutputFile),
		slog.String("mode", cfg.Mode.String()),
		slog.Int("stored", st.Len()),
	)

	result, err := s.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("scrape interrupted", slog.String("output", cfg.OutputFile))
		}
		return err
	}

	printSummary(stdout, result, cfg.OutputFile)
	return nil
}

func startMetricsServer(addr string, metrics *scraper.Metrics, logger *slog.Logger) *http.Server {
	if addr == "" {
		return nil
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	logger.Info("metrics server enabled", slog.String("addr", addr))
	return server
}

func stopMetricsServer(server *http.Server, logger *slog.Logger) {
	if server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("metrics server shutdown failed", slog.Any("error", err))
	}
}

func printSummary(w io.Writer, result *models.RunResult, outputFile string) {
	separator := "--------------------------------------------------"
	fmt.Fprintln(w, "\n"+separator)
	fmt.Fprintln(w, "Scrape complete")
	fmt.Fprintf(w, "  Companies:     %d\n", result.Total)
	fmt.Fprintf(w, "  Fetched:       %d\n", result.Fetched)
	fmt.Fprintf(w, "  Already saved: %d\n", result.Skipped)
	fmt.Fprintf(w, "  Failed:        %d\n", result.Exhausted)
	fmt.Fprintf(w, "  Retries:       %d\n", result.Retries)
	if result.Duplicates > 0 {
		fmt.Fprintf(w, "  Duplicates:    %d\n", result.Duplicates)
	}
	fmt.Fprintf(w, "  Duration:      %v\n", result.EndTime.Sub(result.StartTime).Round(time.Millisecond))
	fmt.Fprintf(w, "  Output file:   %s\n", outputFile)
	fmt.Fprintln(w, separator)
}

// errorKind names the failure class printed before a fatal error.
func errorKind(err error) string {
	var (
		cfgErr        *configError
		statusErr     *scraper.HTTPStatusError
		extractionErr *parser.ExtractionError
	)
	switch {
	case errors.As(err, &cfgErr):
		return "ConfigValidation"
	case errors.Is(err, store.ErrStoreConflict):
		return "StoreConflict"
	case errors.Is(err, store.ErrCorruptStore):
		return "CorruptStore"
	case errors.As(err, &statusErr):
		return "TransientFetchFailure"
	case errors.As(err, &extractionErr):
		return "StructuralExtractionFailure"
	case errors.Is(err, context.Canceled):
		return "Interrupted"
	default:
		return "Error"
	}
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if isTerminal(w) {
		handler = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
