package main

import (
	"time"

	"github.com/aluiziolira/go-scrape-companies/config"
)

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Filename string `arg:"" help:"Output JSON file"`

	Force    bool `short:"f" xor:"mode" help:"Overwrite the output file if it exists"`
	Continue bool `short:"c" xor:"mode" help:"Continue fetching into an existing output file"`
	Full     bool `help:"Print every fetched company"`

	RetriesPerCompany     int `short:"n" default:"10" help:"Retries per company after a failed fetch"`
	DelayBetweenRetries   int `short:"d" default:"2000" help:"Delay (milliseconds) between fetch retries"`
	DelayBetweenCompanies int `short:"D" default:"4000" help:"Delay (milliseconds) between fetching previous company and next"`

	Sort        bool `help:"Fetch companies in sorted order (with --continue sorts old records before fetching new)"`
	Asc         bool `xor:"order" help:"Ascending order of sorting (default)"`
	Desc        bool `xor:"order" help:"Descending order of sorting"`
	ByName      bool `xor:"key" help:"Name as sorting key (default)"`
	ByRating    bool `xor:"key" help:"Rating as sorting key"`
	ByEmployees bool `xor:"key" help:"Employees number as sorting key"`
	ByReviews   bool `xor:"key" help:"Reviews number as sorting key"`

	BaseURL           string        `name:"base-url" default:"https://companies.devby.io" help:"Companies index URL"`
	Timeout           time.Duration `default:"30s" help:"HTTP request timeout"`
	RateLimit         float64       `default:"0" help:"Maximum requests per second (0 disables)"`
	MetricsAddr       string        `help:"Prometheus metrics listen address (e.g. :9090)"`
	NoThrottleSkipped bool          `help:"Do not wait between companies that are already saved"`
	Verbose           bool          `short:"v" help:"Enable verbose logging"`
}

// sortRequested reports whether any sorting flag was given. Order and key
// flags imply --sort.
func (c *CLI) sortRequested() bool {
	return c.Sort || c.Asc || c.Desc || c.ByName || c.ByRating || c.ByEmployees || c.ByReviews
}

func (c *CLI) sortSpec() *config.SortSpec {
	if !c.sortRequested() {
		return nil
	}
	spec := &config.SortSpec{Key: config.SortByName, Order: config.Asc}
	switch {
	case c.ByRating:
		spec.Key = config.SortByRating
	case c.ByEmployees:
		spec.Key = config.SortByEmployees
	case c.ByReviews:
		spec.Key = config.SortByReviews
	}
	if c.Desc {
		spec.Order = config.Desc
	}
	return spec
}

// Config builds the run configuration from parsed flags.
func (c *CLI) Config() (*config.Config, error) {
	mode, err := config.ResolveMode(c.Force, c.Continue)
	if err != nil {
		return nil, err
	}

	cfg := config.DefaultConfig()
	cfg.BaseURL = c.BaseURL
	cfg.OutputFile = c.Filename
	cfg.Mode = mode
	cfg.Full = c.Full
	cfg.RetriesPerCompany = c.RetriesPerCompany
	cfg.DelayBetweenRetries = time.Duration(c.DelayBetweenRetries) * time.Millisecond
	cfg.DelayBetweenCompanies = time.Duration(c.DelayBetweenCompanies) * time.Millisecond
	cfg.ThrottleSkipped = !c.NoThrottleSkipped
	cfg.Sort = c.sortSpec()
	cfg.Timeout = c.Timeout
	cfg.RateLimit = c.RateLimit
	cfg.Verbose = c.Verbose
	cfg.MetricsAddr = c.MetricsAddr

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
