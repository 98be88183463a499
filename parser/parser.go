// Package parser maps companies.devby.io documents to records.
package parser

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-scrape-companies/models"
)

// ExtractionError reports that an expected element was absent or unparsable.
type ExtractionError struct {
	Field string
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Field, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

var errMissing = errors.New("element not found")

func missing(field string) error {
	return &ExtractionError{Field: field, Err: errMissing}
}

func invalid(field string, err error) error {
	return &ExtractionError{Field: field, Err: err}
}

// ValidateCompanyShort ensures an index row carries a name and a link.
func ValidateCompanyShort(c *models.CompanyShort) error {
	if c == nil {
		return fmt.Errorf("company is nil")
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("company missing name")
	}
	if strings.TrimSpace(c.URL) == "" {
		return fmt.Errorf("company missing url for %s", c.Name)
	}
	return nil
}

// StripNewlines removes line breaks and surrounding whitespace.
func StripNewlines(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, "\n", ""))
}

var newlineRuns = regexp.MustCompile(`\n+`)

// NormalizeDescription trims the text and collapses blank lines.
func NormalizeDescription(text string) string {
	return newlineRuns.ReplaceAllString(strings.TrimSpace(text), "\n")
}

// NormalizeCount removes the approximation marks used in head counts.
func NormalizeCount(text string) string {
	text = strings.ReplaceAll(text, "≈", "")
	text = strings.ReplaceAll(text, "=", "")
	return strings.TrimSpace(text)
}

// ParseInt parses an integer that may contain digit group separators.
// Empty input is zero.
func ParseInt(text string) (int, error) {
	text = removeSpaces(text)
	if text == "" {
		return 0, nil
	}
	return strconv.Atoi(text)
}

// ParseRating parses a rating value. Empty input has no rating.
func ParseRating(text string) (*float64, error) {
	text = strings.ReplaceAll(removeSpaces(text), ",", ".")
	if text == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func removeSpaces(text string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\t', '\r', '\u00a0', '\u202f':
			return -1
		}
		return r
	}, text)
}

// ResolveLink returns href as an absolute URL against base.
func ResolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if base == nil || href == "" {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
