package scraper

import (
	"cmp"

	"github.com/aluiziolira/go-scrape-companies/config"
	"github.com/aluiziolira/go-scrape-companies/models"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// sortFields are the values a SortSpec can order by.
type sortFields struct {
	name      string
	rating    *float64
	employees int
	reviews   int
}

// Comparator orders companies and targets by one key. Both lists of a run
// must be sorted with the same Comparator so resumed files keep their order.
type Comparator struct {
	spec     config.SortSpec
	collator *collate.Collator
}

// NewComparator builds a comparator for spec. Names are compared with the
// root locale collation; missing ratings count as 0.
func NewComparator(spec config.SortSpec) *Comparator {
	return &Comparator{
		spec:     spec,
		collator: collate.New(language.Und),
	}
}

// Targets compares two index rows.
func (c *Comparator) Targets(a, b models.CompanyShort) int {
	return c.compare(
		sortFields{a.Name, a.Rating, a.Employees, a.Reviews},
		sortFields{b.Name, b.Rating, b.Employees, b.Reviews},
	)
}

// Companies compares two stored records.
func (c *Comparator) Companies(a, b models.Company) int {
	return c.compare(
		sortFields{a.Name, a.Rating, a.Employees, a.Reviews},
		sortFields{b.Name, b.Rating, b.Employees, b.Reviews},
	)
}

func (c *Comparator) compare(a, b sortFields) int {
	var result int
	switch c.spec.Key {
	case config.SortByRating:
		result = cmp.Compare(ratingOrZero(a.rating), ratingOrZero(b.rating))
	case config.SortByEmployees:
		result = cmp.Compare(a.employees, b.employees)
	case config.SortByReviews:
		result = cmp.Compare(a.reviews, b.reviews)
	default:
		result = c.collator.CompareString(a.name, b.name)
	}
	if c.spec.Order == config.Desc {
		return -result
	}
	return result
}

func ratingOrZero(r *float64) float64 {
	if r == nil {
		return 0
	}
	return *r
}
