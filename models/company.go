// Package models defines data structures for the scraper.
package models

// CompanyShort is a row of the companies index. Reviews and employees are
// not repeated on the detail page, so they are carried onto the final record.
type CompanyShort struct {
	Name      string   `json:"name"`
	URL       string   `json:"url"`
	Rating    *float64 `json:"rating"`
	Employees int      `json:"employees"`
	Reviews   int      `json:"reviews"`
}

// EmployeesDetails holds the head counts shown in the detail page header.
type EmployeesDetails struct {
	Total          *int `json:"total,omitempty" yaml:"total,omitempty"`
	InBelarus      *int `json:"inBelarus,omitempty" yaml:"inBelarus,omitempty"`
	InBelarusNonIT *int `json:"inBelarusNonIT,omitempty" yaml:"inBelarusNonIT,omitempty"`
}

// Contacts is the sidebar contact block.
type Contacts struct {
	Email   string `json:"email" yaml:"email"`
	Phone   string `json:"phone" yaml:"phone"`
	Website string `json:"website" yaml:"website"`
}

// Agent is a company representative.
type Agent struct {
	Name     string `json:"name" yaml:"name"`
	Link     string `json:"link" yaml:"link"`
	Position string `json:"position" yaml:"position"`
}

// Person is a current or former worker.
type Person struct {
	Name string `json:"name" yaml:"name"`
	Link string `json:"link" yaml:"link"`
}

// Workers groups current and former workers.
type Workers struct {
	Actual []Person `json:"actual" yaml:"actual"`
	Former []Person `json:"former" yaml:"former"`
}

// CompanyDetails is everything extracted from a company detail page.
type CompanyDetails struct {
	Name             string            `json:"name" yaml:"name"`
	LegalName        string            `json:"legalName" yaml:"legalName"`
	Tags             []string          `json:"tags" yaml:"tags"`
	FoundationYear   *int              `json:"foundationYear" yaml:"foundationYear"`
	EmployeesDetails *EmployeesDetails `json:"employeesDetails" yaml:"employeesDetails"`
	Description      string            `json:"description" yaml:"description"`
	Rating           *float64          `json:"rating" yaml:"rating"`
	Contacts         Contacts          `json:"contacts" yaml:"contacts"`
	Address          *string           `json:"address" yaml:"address"`
	Views            int               `json:"views" yaml:"views"`
	Agents           []Agent           `json:"agents" yaml:"agents"`
	Workers          Workers           `json:"workers" yaml:"workers"`
}

// Company is the persisted record, keyed by URL.
type Company struct {
	CompanyDetails `yaml:",inline"`
	URL            string `json:"url" yaml:"url"`
	Reviews        int    `json:"reviews" yaml:"reviews"`
	Employees      int    `json:"employees" yaml:"employees"`
}

// NewCompany merges index fields with detail fields. Name and rating come
// from the detail page.
func NewCompany(target CompanyShort, details CompanyDetails) Company {
	return Company{
		CompanyDetails: details,
		URL:            target.URL,
		Reviews:        target.Reviews,
		Employees:      target.Employees,
	}
}
