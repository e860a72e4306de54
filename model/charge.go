package model

import (
	"net/url"
	"time"

	"backoffice/data/query"
	"backoffice/domain"
	"backoffice/validation"
)

const (
	CurrencyUSD = "USD"
	CurrencyEUR = "EUR"
	CurrencyGBP = "GBP"
)

var currencies = []string{CurrencyUSD, CurrencyEUR, CurrencyGBP}

const (
	ChargePending = "pending"
	ChargePaid    = "paid"
	ChargeOverdue = "overdue"
)

var chargeStatuses = []string{ChargePending, ChargePaid, ChargeOverdue}

// ClientCharge 向客户收取的费用
type ClientCharge struct {
	domain.Entity
	ProjectID   string    `json:"projectId"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Status      string    `json:"status"`
}

func (c *ClientCharge) ApplyDefaults() {
	if c.Currency == "" {
		c.Currency = CurrencyUSD
	}
	if c.Status == "" {
		c.Status = ChargePending
	}
}

func (c *ClientCharge) Validate() error {
	return validation.New().
		Required("projectId", c.ProjectID).
		NonNegative("amount", c.Amount).
		OneOf("currency", c.Currency, currencies...).
		Required("description", c.Description).
		Check(!c.Date.IsZero(), "date", "date 不能为空").
		OneOf("status", c.Status, chargeStatuses...).
		Err()
}

// ClientChargeFilter 费用过滤条件
type ClientChargeFilter struct {
	ProjectID      string
	Description    string
	Currency       string
	Status         string
	MinAmount      *float64
	MaxAmount      *float64
	StartDate      *time.Time
	EndDate        *time.Time
	IncludeDeleted bool
}

func (f ClientChargeFilter) Query() query.Filter {
	q := &query.Filter{IncludeDeleted: f.IncludeDeleted}
	q.Equals("projectId", f.ProjectID).
		Contains("description", f.Description).
		Equals("currency", f.Currency).
		Equals("status", f.Status).
		Range("amount", f.MinAmount, f.MaxAmount).
		DateRange("date", f.StartDate, f.EndDate)
	return *q
}

func ParseClientChargeFilter(values url.Values) (ClientChargeFilter, error) {
	p := newParams(values)
	f := ClientChargeFilter{
		ProjectID:      p.str("projectId"),
		Description:    p.str("description"),
		Currency:       p.oneOf("currency", currencies...),
		Status:         p.oneOf("status", chargeStatuses...),
		MinAmount:      p.float("minAmount"),
		MaxAmount:      p.float("maxAmount"),
		StartDate:      p.date("startDate"),
		EndDate:        p.date("endDate"),
		IncludeDeleted: p.boolean("includeDeleted"),
	}
	return f, p.err
}
