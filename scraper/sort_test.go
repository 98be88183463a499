package scraper

import (
	"slices"
	"testing"

	"github.com/aluiziolira/go-scrape-companies/config"
	"github.com/aluiziolira/go-scrape-companies/models"
)

func rating(v float64) *float64 {
	return &v
}

func names(targets []models.CompanyShort) []string {
	out := make([]string, len(targets))
	for i, t := range targets {
		out[i] = t.Name
	}
	return out
}

func TestComparatorTargets(t *testing.T) {
	tests := []struct {
		name    string
		spec    config.SortSpec
		targets []models.CompanyShort
		want    []string
	}{
		{
			name:    "name ascending",
			spec:    config.SortSpec{Key: config.SortByName, Order: config.Asc},
			targets: []models.CompanyShort{{Name: "B", Rating: rating(3)}, {Name: "A", Rating: rating(5)}},
			want:    []string{"A", "B"},
		},
		{
			name:    "name descending",
			spec:    config.SortSpec{Key: config.SortByName, Order: config.Desc},
			targets: []models.CompanyShort{{Name: "A"}, {Name: "b"}, {Name: "C"}},
			want:    []string{"C", "b", "A"},
		},
		{
			name:    "cyrillic names",
			spec:    config.SortSpec{Key: config.SortByName, Order: config.Asc},
			targets: []models.CompanyShort{{Name: "Яндекс"}, {Name: "Альфа"}, {Name: "Бета"}},
			want:    []string{"Альфа", "Бета", "Яндекс"},
		},
		{
			name:    "rating descending",
			spec:    config.SortSpec{Key: config.SortByRating, Order: config.Desc},
			targets: []models.CompanyShort{{Name: "B", Rating: rating(3)}, {Name: "A", Rating: rating(5)}},
			want:    []string{"A", "B"},
		},
		{
			name:    "missing rating counts as zero",
			spec:    config.SortSpec{Key: config.SortByRating, Order: config.Asc},
			targets: []models.CompanyShort{{Name: "positive", Rating: rating(1)}, {Name: "none"}, {Name: "negative", Rating: rating(-1)}},
			want:    []string{"negative", "none", "positive"},
		},
		{
			name:    "employees ascending",
			spec:    config.SortSpec{Key: config.SortByEmployees, Order: config.Asc},
			targets: []models.CompanyShort{{Name: "big", Employees: 900}, {Name: "small", Employees: 10}},
			want:    []string{"small", "big"},
		},
		{
			name:    "reviews descending keeps ties stable",
			spec:    config.SortSpec{Key: config.SortByReviews, Order: config.Desc},
			targets: []models.CompanyShort{{Name: "x", Reviews: 1}, {Name: "y", Reviews: 7}, {Name: "z", Reviews: 1}},
			want:    []string{"y", "x", "z"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			targets := slices.Clone(tt.targets)
			slices.SortStableFunc(targets, NewComparator(tt.spec).Targets)
			if got := names(targets); !slices.Equal(got, tt.want) {
				t.Fatalf("order = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComparatorCompaniesMatchesTargets(t *testing.T) {
	cmp := NewComparator(config.SortSpec{Key: config.SortByRating, Order: config.Desc})

	a := models.Company{CompanyDetails: models.CompanyDetails{Name: "A", Rating: rating(5)}}
	b := models.Company{CompanyDetails: models.CompanyDetails{Name: "B", Rating: rating(3)}}
	if cmp.Companies(a, b) >= 0 {
		t.Fatalf("expected A before B")
	}

	ta := models.CompanyShort{Name: "A", Rating: rating(5)}
	tb := models.CompanyShort{Name: "B", Rating: rating(3)}
	if cmp.Targets(ta, tb) >= 0 {
		t.Fatalf("expected A before B")
	}
}
