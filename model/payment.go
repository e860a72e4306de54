package model

import (
	"net/url"
	"time"

	"backoffice/data/query"
	"backoffice/domain"
	"backoffice/validation"
)

const (
	PaymentPending   = "pending"
	PaymentPaid      = "paid"
	PaymentCancelled = "cancelled"
)

var paymentStatuses = []string{PaymentPending, PaymentPaid, PaymentCancelled}

const (
	MethodBankTransfer = "bank_transfer"
	MethodPaypal       = "paypal"
	MethodStripe       = "stripe"
	MethodCash         = "cash"
)

var paymentMethods = []string{MethodBankTransfer, MethodPaypal, MethodStripe, MethodCash}

// PartnerPayment 支付给合作方的款项
type PartnerPayment struct {
	domain.Entity
	ProjectID     string    `json:"projectId"`
	PartnerName   string    `json:"partnerName"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	Description   string    `json:"description"`
	Date          time.Time `json:"date"`
	Status        string    `json:"status"`
	PaymentMethod string    `json:"paymentMethod"`
}

func (p *PartnerPayment) ApplyDefaults() {
	if p.Currency == "" {
		p.Currency = CurrencyUSD
	}
	if p.Status == "" {
		p.Status = PaymentPending
	}
	if p.PaymentMethod == "" {
		p.PaymentMethod = MethodBankTransfer
	}
}

func (p *PartnerPayment) Validate() error {
	return validation.New().
		Required("projectId", p.ProjectID).
		Required("partnerName", p.PartnerName).
		NonNegative("amount", p.Amount).
		OneOf("currency", p.Currency, currencies...).
		Required("description", p.Description).
		Check(!p.Date.IsZero(), "date", "date 不能为空").
		OneOf("status", p.Status, paymentStatuses...).
		OneOf("paymentMethod", p.PaymentMethod, paymentMethods...).
		Err()
}

// PartnerPaymentFilter 合作方付款过滤条件
type PartnerPaymentFilter struct {
	ProjectID      string
	PartnerName    string
	Description    string
	Currency       string
	Status         string
	PaymentMethod  string
	MinAmount      *float64
	MaxAmount      *float64
	StartDate      *time.Time
	EndDate        *time.Time
	IncludeDeleted bool
}

func (f PartnerPaymentFilter) Query() query.Filter {
	q := &query.Filter{IncludeDeleted: f.IncludeDeleted}
	q.Equals("projectId", f.ProjectID).
		Contains("partnerName", f.PartnerName).
		Contains("description", f.Description).
		Equals("currency", f.Currency).
		Equals("status", f.Status).
		Equals("paymentMethod", f.PaymentMethod).
		Range("amount", f.MinAmount, f.MaxAmount).
		DateRange("date", f.StartDate, f.EndDate)
	return *q
}

func ParsePartnerPaymentFilter(values url.Values) (PartnerPaymentFilter, error) {
	p := newParams(values)
	f := PartnerPaymentFilter{
		ProjectID:      p.str("projectId"),
		PartnerName:    p.str("partnerName"),
		Description:    p.str("description"),
		Currency:       p.oneOf("currency", currencies...),
		Status:         p.oneOf("status", paymentStatuses...),
		PaymentMethod:  p.oneOf("paymentMethod", paymentMethods...),
		MinAmount:      p.float("minAmount"),
		MaxAmount:      p.float("maxAmount"),
		StartDate:      p.date("startDate"),
		EndDate:        p.date("endDate"),
		IncludeDeleted: p.boolean("includeDeleted"),
	}
	return f, p.err
}
