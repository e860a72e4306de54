package model

import (
	"net/url"
	"time"

	"backoffice/data/query"
	"backoffice/domain"
	"backoffice/validation"
)

const (
	ProjectActive    = "active"
	ProjectCompleted = "completed"
	ProjectPaused    = "paused"
)

var projectStatuses = []string{ProjectActive, ProjectCompleted, ProjectPaused}

// Project 项目
type Project struct {
	domain.Entity
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Client      string     `json:"client"`
	Status      string     `json:"status"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
}

func (p *Project) ApplyDefaults() {
	if p.Status == "" {
		p.Status = ProjectActive
	}
}

func (p *Project) Validate() error {
	v := validation.New().
		Required("name", p.Name).
		Required("client", p.Client).
		OneOf("status", p.Status, projectStatuses...)
	if p.StartDate != nil && p.EndDate != nil {
		v.Check(!p.EndDate.Before(*p.StartDate), "endDate", "endDate 不能早于 startDate")
	}
	return v.Err()
}

// ProjectFilter 项目过滤条件，日期区间作用于 startDate
type ProjectFilter struct {
	Name           string
	Client         string
	Status         string
	StartDate      *time.Time
	EndDate        *time.Time
	IncludeDeleted bool
}

func (f ProjectFilter) Query() query.Filter {
	q := &query.Filter{IncludeDeleted: f.IncludeDeleted}
	q.Contains("name", f.Name).
		Contains("client", f.Client).
		Equals("status", f.Status).
		DateRange("startDate", f.StartDate, f.EndDate)
	return *q
}

func ParseProjectFilter(values url.Values) (ProjectFilter, error) {
	p := newParams(values)
	f := ProjectFilter{
		Name:           p.str("name"),
		Client:         p.str("client"),
		Status:         p.oneOf("status", projectStatuses...),
		StartDate:      p.date("startDate"),
		EndDate:        p.date("endDate"),
		IncludeDeleted: p.boolean("includeDeleted"),
	}
	return f, p.err
}

// ProjectSummary 项目及其有效费用与付款汇总
type ProjectSummary struct {
	*Project
	ClientCharges   []*ClientCharge   `json:"clientCharges"`
	PartnerPayments []*PartnerPayment `json:"partnerPayments"`
	TotalCharges    float64           `json:"totalCharges"`
	TotalPayments   float64           `json:"totalPayments"`
	NetAmount       float64           `json:"netAmount"`
}
