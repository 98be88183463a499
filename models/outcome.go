package models

import "time"

// FetchKind tags the result of a single fetch-and-extract attempt.
type FetchKind int

const (
	FetchOK FetchKind = iota
	FetchTransient
	FetchFatal
)

func (k FetchKind) String() string {
	switch k {
	case FetchOK:
		return "ok"
	case FetchTransient:
		return "transient"
	case FetchFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// FetchResult is Ok(details) | Transient(err) | Fatal(err).
type FetchResult struct {
	Kind    FetchKind
	Details *CompanyDetails
	Err     error
}

// OK wraps successfully extracted details.
func OK(details *CompanyDetails) FetchResult {
	return FetchResult{Kind: FetchOK, Details: details}
}

// Transient wraps a retryable failure.
func Transient(err error) FetchResult {
	return FetchResult{Kind: FetchTransient, Err: err}
}

// Fatal wraps a failure that must abort the run.
func Fatal(err error) FetchResult {
	return FetchResult{Kind: FetchFatal, Err: err}
}

// OutcomeKind is the terminal state of one target.
type OutcomeKind int

const (
	// Failed is the zero value. It marks an outcome returned with an error
	// that ended the run.
	Failed OutcomeKind = iota
	Skipped
	Fetched
	Exhausted
)

func (k OutcomeKind) String() string {
	switch k {
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	case Fetched:
		return "fetched"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Outcome describes how a target finished.
type Outcome struct {
	Kind     OutcomeKind
	Attempts int
	Record   *Company
	Err      error
}

// Progress is reported once per target.
type Progress struct {
	Index   int
	Total   int
	URL     string
	Outcome Outcome
}

// RunResult holds the overall result of a run.
type RunResult struct {
	StartTime  time.Time
	EndTime    time.Time
	Total      int
	Duplicates int
	Fetched    int
	Skipped    int
	Exhausted  int
	Retries    int
	FailedURLs []string
}
