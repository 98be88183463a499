package scraper

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aluiziolira/go-scrape-companies/models"
	"gopkg.in/yaml.v3"
)

// ProgressSink receives one report per processed target.
type ProgressSink interface {
	Report(p models.Progress)
}

// ProgressFunc adapts a function to ProgressSink.
type ProgressFunc func(p models.Progress)

// Report calls fn(p).
func (fn ProgressFunc) Report(p models.Progress) {
	fn(p)
}

// ConsoleProgress prints a line per target to out and logs the outcome.
type ConsoleProgress struct {
	out         io.Writer
	logger      *slog.Logger
	full        bool
	maxAttempts int
}

// NewConsoleProgress creates a console sink. With full set every fetched
// record is printed as YAML.
func NewConsoleProgress(out io.Writer, logger *slog.Logger, full bool, maxAttempts int) *ConsoleProgress {
	return &ConsoleProgress{
		out:         out,
		logger:      logger,
		full:        full,
		maxAttempts: maxAttempts,
	}
}

// Report implements ProgressSink.
func (c *ConsoleProgress) Report(p models.Progress) {
	prefix := fmt.Sprintf("Company [%d/%d] %s", p.Index, p.Total, p.URL)
	outcome := p.Outcome

	switch outcome.Kind {
	case models.Skipped:
		fmt.Fprintf(c.out, "%s - already saved\n", prefix)

	case models.Fetched:
		fmt.Fprintln(c.out, prefix)
		if c.full && outcome.Record != nil {
			formatted, err := FormatRecord(*outcome.Record)
			if err != nil {
				c.logger.Error("format record", slog.String("url", p.URL), slog.Any("error", err))
				break
			}
			fmt.Fprintf(c.out, "\n%s\n", formatted)
		} else if outcome.Attempts > 1 {
			fmt.Fprintf(c.out, "\t[%d/%d]. Fetched %s successful.\n", outcome.Attempts, c.maxAttempts, p.URL)
		}

	case models.Exhausted:
		fmt.Fprintf(c.out, "%s - failed after %d attempts\n", prefix, outcome.Attempts)
		c.logger.Error("company skipped after retries",
			slog.String("url", p.URL),
			slog.Int("attempts", outcome.Attempts),
			slog.Any("error", outcome.Err),
		)
	}

	c.logger.Debug("company processed",
		slog.Int("index", p.Index),
		slog.Int("total", p.Total),
		slog.String("url", p.URL),
		slog.String("outcome", outcome.Kind.String()),
		slog.Int("attempts", outcome.Attempts),
	)
}

var blankLines = regexp.MustCompile(`\n+`)

// FormatRecord renders a company as 4-space indented YAML with every line
// prefixed by a tab.
func FormatRecord(company models.Company) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(4)
	if err := enc.Encode(company); err != nil {
		return "", fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encode yaml: %w", err)
	}

	text := blankLines.ReplaceAllString(strings.TrimRight(buf.String(), "\n"), "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = "\t" + line
	}
	return strings.Join(lines, "\n"), nil
}
