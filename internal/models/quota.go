package models

// UnlimitedQuota is the limit reported for premium users.
const UnlimitedQuota = -1

// QuotaInfo is the monthly quote allowance of a user.
type QuotaInfo struct {
	Used      int    `json:"used"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
	IsPremium bool   `json:"is_premium"`
	Period    string `json:"period"`
	// Fallback is set when storage could not be reached and defaults were returned.
	Fallback bool `json:"fallback,omitempty"`
}

// CanCreate reports whether one more quote fits in the allowance.
func (q QuotaInfo) CanCreate() bool {
	return q.IsPremium || q.Used < q.Limit
}
