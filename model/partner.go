package model

import (
	"net/url"

	"backoffice/data/query"
	"backoffice/domain"
	"backoffice/validation"
)

const (
	PartnerActive   = "active"
	PartnerInactive = "inactive"
)

var partnerStatuses = []string{PartnerActive, PartnerInactive}

// Partner 合作方
type Partner struct {
	domain.Entity
	Name    string   `json:"name"`
	Email   string   `json:"email"`
	Phone   string   `json:"phone,omitempty"`
	Company string   `json:"company,omitempty"`
	Address string   `json:"address,omitempty"`
	Notes   string   `json:"notes,omitempty"`
	Status  string   `json:"status"`
	Tags    []string `json:"tags"`
}

func (p *Partner) ApplyDefaults() {
	if p.Status == "" {
		p.Status = PartnerActive
	}
}

func (p *Partner) Validate() error {
	return validation.New().
		Required("name", p.Name).
		Required("email", p.Email).
		Email("email", p.Email).
		OneOf("status", p.Status, partnerStatuses...).
		Err()
}

// PartnerFilter 合作方过滤条件
type PartnerFilter struct {
	Name           string
	Email          string
	Company        string
	Status         string
	Tags           []string
	IncludeDeleted bool
}

func (f PartnerFilter) Query() query.Filter {
	q := &query.Filter{IncludeDeleted: f.IncludeDeleted}
	q.Contains("name", f.Name).
		Contains("email", f.Email).
		Contains("company", f.Company).
		Equals("status", f.Status).
		AnyOf("tags", f.Tags)
	return *q
}

func ParsePartnerFilter(values url.Values) (PartnerFilter, error) {
	p := newParams(values)
	f := PartnerFilter{
		Name:           p.str("name"),
		Email:          p.str("email"),
		Company:        p.str("company"),
		Status:         p.oneOf("status", partnerStatuses...),
		Tags:           p.list("tags"),
		IncludeDeleted: p.boolean("includeDeleted"),
	}
	return f, p.err
}
