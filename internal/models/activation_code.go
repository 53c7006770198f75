package models

import "time"

// CodeStatus is the lifecycle state of a premium activation code.
type CodeStatus string

const (
	CodeStatusAvailable CodeStatus = "AVAILABLE"
	CodeStatusSold      CodeStatus = "SOLD"
	CodeStatusUsed      CodeStatus = "USED"
	CodeStatusRevoked   CodeStatus = "REVOKED"
)

// Valid reports whether s is a known status.
func (s CodeStatus) Valid() bool {
	switch s {
	case CodeStatusAvailable, CodeStatusSold, CodeStatusUsed, CodeStatusRevoked:
		return true
	}
	return false
}

// Activatable reports whether a code in status s can still be redeemed.
func (s CodeStatus) Activatable() bool {
	return s == CodeStatusAvailable || s == CodeStatusSold
}

// ActivationCode is a one-time premium code.
type ActivationCode struct {
	ID                string     `db:"id" json:"id"`
	Code              string     `db:"code" json:"code"`
	Status            CodeStatus `db:"status" json:"status"`
	BatchID           string     `db:"batch_id" json:"batch_id"`
	Notes             string     `db:"notes" json:"notes,omitempty"`
	CreatedBy         *string    `db:"created_by" json:"created_by,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	SoldAt            *time.Time `db:"sold_at" json:"sold_at,omitempty"`
	CustomerEmail     *string    `db:"customer_email" json:"customer_email,omitempty"`
	CustomerName      *string    `db:"customer_name" json:"customer_name,omitempty"`
	UsedAt            *time.Time `db:"used_at" json:"used_at,omitempty"`
	UsedBy            *string    `db:"used_by" json:"used_by,omitempty"`
	DeviceFingerprint *string    `db:"device_fingerprint" json:"device_fingerprint,omitempty"`
	RevokedAt         *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
	RevokeReason      *string    `db:"revoke_reason" json:"revoke_reason,omitempty"`
}

// ActivationCodeStats counts codes per status.
type ActivationCodeStats struct {
	Total     int `db:"total" json:"total"`
	Available int `db:"available" json:"available"`
	Sold      int `db:"sold" json:"sold"`
	Used      int `db:"used" json:"used"`
	Revoked   int `db:"revoked" json:"revoked"`
}

// ActivationResult is returned to a user after a successful activation.
type ActivationResult struct {
	Code        string    `json:"code"`
	ActivatedAt time.Time `json:"activated_at"`
	IsPremium   bool      `json:"is_premium"`
}

// CodeFilter narrows activation code listings.
type CodeFilter struct {
	Status CodeStatus
	Limit  int
	Offset int
}
