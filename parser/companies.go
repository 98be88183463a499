package parser

import (
	"fmt"
	"io"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-companies/models"
)

// ParseCompanies reads the companies table of the index page. Links are
// resolved against baseURL.
func ParseCompanies(r io.Reader, baseURL string) ([]models.CompanyShort, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, invalid("index", err)
	}

	rows := doc.Find("table.companies > tbody > tr")
	companies := make([]models.CompanyShort, 0, rows.Length())
	var rowErr error
	rows.EachWithBreak(func(i int, row *goquery.Selection) bool {
		company, err := parseCompanyRow(row, base)
		if err != nil {
			rowErr = fmt.Errorf("row %d: %w", i+1, err)
			return false
		}
		companies = append(companies, company)
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}
	return companies, nil
}

func parseCompanyRow(row *goquery.Selection, base *url.URL) (models.CompanyShort, error) {
	cells := row.Find("td")
	if cells.Length() < 5 {
		return models.CompanyShort{}, invalid("index row", fmt.Errorf("expected 5 cells, got %d", cells.Length()))
	}

	link := cells.Eq(0).Find("a").First()
	if link.Length() == 0 {
		return models.CompanyShort{}, missing("index name")
	}
	href, _ := link.Attr("href")

	ratingAttr, _ := cells.Eq(1).Attr("data")
	rating, err := ParseRating(ratingAttr)
	if err != nil {
		return models.CompanyShort{}, invalid("index rating", err)
	}
	employeesAttr, _ := cells.Eq(2).Attr("data")
	employees, err := ParseInt(employeesAttr)
	if err != nil {
		return models.CompanyShort{}, invalid("index employees", err)
	}
	reviews, err := ParseInt(cells.Eq(4).Text())
	if err != nil {
		return models.CompanyShort{}, invalid("index reviews", err)
	}

	company := models.CompanyShort{
		Name:      link.Text(),
		URL:       ResolveLink(base, href),
		Rating:    rating,
		Employees: employees,
		Reviews:   reviews,
	}
	if err := ValidateCompanyShort(&company); err != nil {
		return models.CompanyShort{}, invalid("index row", err)
	}
	return company, nil
}
