package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Mode decides what happens to an existing output file.
type Mode int

const (
	// ModeFresh refuses to touch an existing output file.
	ModeFresh Mode = iota
	// ModeForce truncates an existing output file.
	ModeForce
	// ModeContinue loads an existing output file and skips stored companies.
	ModeContinue
)

func (m Mode) String() string {
	switch m {
	case ModeForce:
		return "force"
	case ModeContinue:
		return "continue"
	default:
		return "fresh"
	}
}

// SortKey names the field companies are ordered by.
type SortKey string

const (
	SortByName      SortKey = "name"
	SortByRating    SortKey = "rating"
	SortByEmployees SortKey = "employees"
	SortByReviews   SortKey = "reviews"
)

// SortOrder is the sort direction.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// SortSpec is an optional ordering for targets and stored records.
type SortSpec struct {
	Key   SortKey
	Order SortOrder
}

// Config holds the options of a single run.
type Config struct {
	BaseURL               string
	OutputFile            string
	Mode                  Mode
	Full                  bool
	RetriesPerCompany     int
	DelayBetweenRetries   time.Duration
	DelayBetweenCompanies time.Duration
	ThrottleSkipped       bool
	Sort                  *SortSpec
	Timeout               time.Duration
	RateLimit             float64 // requests per second, 0 disables
	UserAgent             string
	Verbose               bool
	MetricsAddr           string
}

// DefaultConfig returns the defaults used by the CLI.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:               "https://companies.devby.io",
		OutputFile:            "companies.json",
		Mode:                  ModeFresh,
		RetriesPerCompany:     10,
		DelayBetweenRetries:   2000 * time.Millisecond,
		DelayBetweenCompanies: 4000 * time.Millisecond,
		ThrottleSkipped:       true,
		Timeout:               30 * time.Second,
		UserAgent:             "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
	}
}

// Attempts is the maximum number of fetches issued for one company.
func (c *Config) Attempts() int {
	return c.RetriesPerCompany + 1
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if strings.TrimSpace(c.OutputFile) == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.Mode != ModeFresh && c.Mode != ModeForce && c.Mode != ModeContinue {
		return fmt.Errorf("unknown mode %d", c.Mode)
	}
	if c.RetriesPerCompany < 0 {
		return fmt.Errorf("only non-negative number of retries is accepted (--retries-per-company >= 0)")
	}
	if c.DelayBetweenRetries < 0 || c.DelayBetweenCompanies < 0 {
		return fmt.Errorf("only non-negative time is accepted (--delay-between-companies >= 0, --delay-between-retries >= 0)")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit cannot be negative")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.Sort != nil {
		if err := c.Sort.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// Validate checks the key and order are known.
func (s *SortSpec) Validate() error {
	switch s.Key {
	case SortByName, SortByRating, SortByEmployees, SortByReviews:
	default:
		return fmt.Errorf("sort key must be name, rating, employees, or reviews")
	}
	if s.Order != Asc && s.Order != Desc {
		return fmt.Errorf("sort order must be asc or desc")
	}
	return nil
}

// ResolveMode maps the force/continue flags to a Mode.
func ResolveMode(force, resume bool) (Mode, error) {
	switch {
	case force && resume:
		return ModeFresh, fmt.Errorf("--force and --continue are mutually exclusive")
	case force:
		return ModeForce, nil
	case resume:
		return ModeContinue, nil
	default:
		return ModeFresh, nil
	}
}
