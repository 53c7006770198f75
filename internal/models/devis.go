package models

import (
	"fmt"
	"time"
)

// DevisStatus is the lifecycle state of a quote.
type DevisStatus string

const (
	DevisStatusDraft    DevisStatus = "draft"
	DevisStatusSent     DevisStatus = "sent"
	DevisStatusAccepted DevisStatus = "accepted"
	DevisStatusRejected DevisStatus = "rejected"
	DevisStatusExpired  DevisStatus = "expired"
)

var devisTransitions = map[DevisStatus][]DevisStatus{
	DevisStatusDraft:    {DevisStatusSent, DevisStatusAccepted, DevisStatusRejected},
	DevisStatusSent:     {DevisStatusAccepted, DevisStatusRejected, DevisStatusExpired, DevisStatusDraft},
	DevisStatusRejected: {DevisStatusDraft},
	DevisStatusExpired:  {DevisStatusDraft},
	DevisStatusAccepted: nil,
}

// Valid reports whether s is a known status.
func (s DevisStatus) Valid() bool {
	_, ok := devisTransitions[s]
	return ok
}

// CanTransitionTo reports whether a quote in status s may move to next.
func (s DevisStatus) CanTransitionTo(next DevisStatus) bool {
	for _, allowed := range devisTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Quote templates. Only the classic one is available on the free tier.
const (
	TemplateClassic = "classic"
	TemplateModern  = "modern"
	TemplateElegant = "elegant"
)

// IsPremiumTemplate reports whether template requires a premium account.
func IsPremiumTemplate(template string) bool {
	return template == TemplateModern || template == TemplateElegant
}

// Devis is a quote header. Totals are derived from Articles and stored for listing.
type Devis struct {
	ID         string      `db:"id" json:"id"`
	UserID     string      `db:"user_id" json:"user_id"`
	ClientID   *string     `db:"client_id" json:"client_id,omitempty"`
	Number     string      `db:"number" json:"number"`
	IssueDate  time.Time   `db:"issue_date" json:"issue_date"`
	ValidUntil time.Time   `db:"valid_until" json:"valid_until"`
	Currency   string      `db:"currency" json:"currency"`
	Template   string      `db:"template" json:"template"`
	Status     DevisStatus `db:"status" json:"status"`
	Notes      string      `db:"notes" json:"notes"`
	Subtotal   float64     `db:"subtotal" json:"subtotal"`
	TotalVAT   float64     `db:"total_vat" json:"total_vat"`
	TotalTTC   float64     `db:"total_ttc" json:"total_ttc"`
	ShareToken *string     `db:"share_token" json:"share_token,omitempty"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at" json:"updated_at"`

	Articles []ArticleDevis `db:"-" json:"articles,omitempty"`
	Client   *Client        `db:"-" json:"client,omitempty"`
}

// ArticleDevis is one line of a quote.
type ArticleDevis struct {
	ID          string  `db:"id" json:"id"`
	DevisID     string  `db:"devis_id" json:"devis_id"`
	Position    int     `db:"position" json:"position"`
	Designation string  `db:"designation" json:"designation"`
	Quantity    float64 `db:"quantity" json:"quantity"`
	UnitPrice   float64 `db:"unit_price" json:"unit_price"`
	VATRate     float64 `db:"vat_rate" json:"vat_rate"`
	TotalHT     float64 `db:"total_ht" json:"total_ht"`
}

// ArticleInput is one line of a quote request.
type ArticleInput struct {
	Designation string  `json:"designation" validate:"required,max=500"`
	Quantity    float64 `json:"quantity" validate:"gte=0.001"`
	UnitPrice   float64 `json:"unit_price" validate:"gte=0"`
	VATRate     float64 `json:"vat_rate" validate:"gte=0,lte=100"`
}

// DevisInput is the request body for creating or updating a quote.
// Dates use the 2006-01-02 layout.
type DevisInput struct {
	ClientID   string         `json:"client_id" validate:"omitempty,uuid"`
	IssueDate  string         `json:"issue_date" validate:"required"`
	ValidUntil string         `json:"valid_until" validate:"required"`
	Currency   string         `json:"currency" validate:"omitempty,len=3,alpha"`
	Template   string         `json:"template" validate:"omitempty,oneof=classic modern elegant"`
	Notes      string         `json:"notes" validate:"max=4000"`
	Articles   []ArticleInput `json:"articles" validate:"required,min=1,max=200,dive"`
}

// DevisFilter narrows quote listings.
type DevisFilter struct {
	Status DevisStatus
	Limit  int
	Offset int
}

// DevisNumber formats the sequential number of a quote, e.g. DEV-2026-0007.
func DevisNumber(year, seq int) string {
	return fmt.Sprintf("DEV-%d-%04d", year, seq)
}
