package parser

import (
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-companies/models"
)

const (
	headerSelector  = ".widget-companies-header > .clearfix > .left"
	sidebarSelector = ".sidebar-for-companies"

	labelTotal          = "Сотрудники"
	labelInBelarus      = "Технические специалисты в Беларуси"
	labelInBelarusNonIT = "Сотрудники в Беларуси"
	foundationMarker    = "год основания"
)

type detailPage struct {
	doc     *goquery.Document
	header  *goquery.Selection
	sidebar *goquery.Selection
	base    *url.URL
}

// ParseCompanyDetails extracts a company profile. A missing required
// section yields an *ExtractionError.
func ParseCompanyDetails(r io.Reader, pageURL string) (*models.CompanyDetails, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, invalid("document", err)
	}

	p := &detailPage{doc: doc, base: base}
	if p.header = doc.Find(headerSelector).First(); p.header.Length() == 0 {
		return nil, missing("header")
	}
	if p.sidebar = doc.Find(sidebarSelector).First(); p.sidebar.Length() == 0 {
		return nil, missing("sidebar")
	}

	details := &models.CompanyDetails{}
	steps := []func(*models.CompanyDetails) error{
		p.name,
		p.legalName,
		p.tags,
		p.foundationYear,
		p.employees,
		p.description,
		p.rating,
		p.contacts,
		p.address,
		p.views,
		p.agents,
		p.workers,
	}
	for _, step := range steps {
		if err := step(details); err != nil {
			return nil, err
		}
	}
	return details, nil
}

func (p *detailPage) name(d *models.CompanyDetails) error {
	h1 := p.header.Find("h1").First()
	if h1.Length() == 0 {
		return missing("name")
	}
	d.Name = h1.Text()
	return nil
}

func (p *detailPage) legalName(d *models.CompanyDetails) error {
	el := p.sidebar.Find(".fn.org.hidden").First()
	if el.Length() == 0 {
		return missing("legalName")
	}
	d.LegalName = StripNewlines(el.Text())
	return nil
}

func (p *detailPage) tags(d *models.CompanyDetails) error {
	el := p.header.Find(".full-name > .gray").First()
	if el.Length() == 0 {
		return missing("tags")
	}
	d.Tags = strings.Split(StripNewlines(el.Text()), ", ")
	return nil
}

func (p *detailPage) foundationYear(d *models.CompanyDetails) error {
	var block *goquery.Selection
	p.header.Find(".data-info").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.Contains(s.Text(), foundationMarker) {
			block = s
			return false
		}
		return true
	})
	if block == nil {
		return nil
	}
	fields := strings.Fields(strings.ReplaceAll(block.Text(), "\n", " "))
	if len(fields) == 0 {
		return nil
	}
	year, err := strconv.Atoi(fields[0])
	if err != nil {
		return invalid("foundationYear", err)
	}
	d.FoundationYear = &year
	return nil
}

func (p *detailPage) employees(d *models.CompanyDetails) error {
	var block *goquery.Selection
	p.header.Find(".data-info").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.Find("span.employee-count").Length() > 0 {
			block = s
			return false
		}
		return true
	})
	if block == nil {
		return nil
	}

	counts := &models.EmployeesDetails{}
	var err error
	block.Find("span.employee-count").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var n int
		n, err = ParseInt(NormalizeCount(s.Text()))
		if err != nil {
			err = invalid("employeesDetails", err)
			return false
		}
		switch strings.TrimSpace(s.Prev().Text()) {
		case labelTotal:
			counts.Total = &n
		case labelInBelarus:
			counts.InBelarus = &n
		case labelInBelarusNonIT:
			counts.InBelarusNonIT = &n
		}
		return true
	})
	if err != nil {
		return err
	}
	d.EmployeesDetails = counts
	return nil
}

func (p *detailPage) description(d *models.CompanyDetails) error {
	el := p.doc.Find(".widget-companies-description .description>.text").First()
	if el.Length() == 0 {
		return missing("description")
	}
	d.Description = NormalizeDescription(el.Text())
	return nil
}

func (p *detailPage) rating(d *models.CompanyDetails) error {
	el := p.doc.Find(".avg-rating").First()
	if el.Length() == 0 {
		return nil
	}
	rating, err := ParseRating(StripNewlines(el.Text()))
	if err != nil {
		return invalid("rating", err)
	}
	d.Rating = rating
	return nil
}

func (p *detailPage) contacts(d *models.CompanyDetails) error {
	items := p.sidebar.Find(".sidebar-views-contacts li")
	if items.Length() < 3 {
		return missing("contacts")
	}
	email := items.Eq(0).Find("span").First()
	phone := items.Eq(1).Find("span").First()
	website := items.Eq(2).Find("a").First()
	if email.Length() == 0 || phone.Length() == 0 || website.Length() == 0 {
		return missing("contacts")
	}
	href, _ := website.Attr("href")
	d.Contacts = models.Contacts{
		Email:   email.Text(),
		Phone:   phone.Text(),
		Website: ResolveLink(p.base, href),
	}
	return nil
}

func (p *detailPage) address(d *models.CompanyDetails) error {
	el := p.sidebar.Find(".street-address").First()
	if el.Length() == 0 {
		return nil
	}
	address := strings.ReplaceAll(el.Text(), "\n", "")
	d.Address = &address
	return nil
}

func (p *detailPage) views(d *models.CompanyDetails) error {
	icon := p.sidebar.Find(".info-company-panel .icon-dev-show").First()
	if icon.Length() == 0 {
		return missing("views")
	}
	fields := strings.Fields(StripNewlines(icon.Parent().Text()))
	if len(fields) == 0 {
		return missing("views")
	}
	views, err := ParseInt(fields[len(fields)-1])
	if err != nil {
		return invalid("views", err)
	}
	d.Views = views
	return nil
}

func (p *detailPage) agents(d *models.CompanyDetails) error {
	block := p.doc.Find(".widget-companies-agents").First()
	if block.Length() == 0 {
		return missing("agents")
	}
	d.Agents = []models.Agent{}
	if block.Find(".no-agent").Length() > 0 {
		return nil
	}

	var err error
	block.Find("li").EachWithBreak(func(_ int, li *goquery.Selection) bool {
		link := li.Find("a").First()
		position := li.Find("span").First()
		if link.Length() == 0 || position.Length() == 0 {
			err = missing("agents")
			return false
		}
		href, _ := link.Attr("href")
		d.Agents = append(d.Agents, models.Agent{
			Name:     link.Text(),
			Link:     ResolveLink(p.base, href),
			Position: StripNewlines(position.Text()),
		})
		return true
	})
	return err
}

func (p *detailPage) workers(d *models.CompanyDetails) error {
	actual, err := p.people(`.widget-companies-worker > ul[data-type="actual"] > li`)
	if err != nil {
		return err
	}
	former, err := p.people(`.widget-companies-worker > ul[data-type="former"] > li`)
	if err != nil {
		return err
	}
	d.Workers = models.Workers{Actual: actual, Former: former}
	return nil
}

func (p *detailPage) people(selector string) ([]models.Person, error) {
	people := []models.Person{}
	var err error
	p.doc.Find(selector).EachWithBreak(func(_ int, li *goquery.Selection) bool {
		link := li.Find("a").First()
		if link.Length() == 0 {
			err = missing("workers")
			return false
		}
		href, _ := link.Attr("href")
		people = append(people, models.Person{
			Name: link.Text(),
			Link: ResolveLink(p.base, href),
		})
		return true
	})
	if err != nil {
		return nil, err
	}
	return people, nil
}
