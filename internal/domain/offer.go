package domain

import "github.com/shopspring/decimal"

type OfferStatus string

const (
	OfferStatusPending   OfferStatus = "PENDING"
	OfferStatusAccepted  OfferStatus = "ACCEPTED"
	OfferStatusRejected  OfferStatus = "REJECTED"
	OfferStatusWithdrawn OfferStatus = "WITHDRAWN"
)

// Terminal reports whether no further status transition is allowed.
func (s OfferStatus) Terminal() bool {
	return s != OfferStatusPending
}

type OfferAction string

const (
	OfferActionAccept   OfferAction = "accept"
	OfferActionReject   OfferAction = "reject"
	OfferActionWithdraw OfferAction = "withdraw"
)

// TargetStatus maps an action to the status it produces.
func (a OfferAction) TargetStatus() (OfferStatus, bool) {
	switch a {
	case OfferActionAccept:
		return OfferStatusAccepted, true
	case OfferActionReject:
		return OfferStatusRejected, true
	case OfferActionWithdraw:
		return OfferStatusWithdrawn, true
	}
	return "", false
}

type Offer struct {
	ID         string          `json:"id"`
	PropertyID string          `json:"property_id"`
	TenantID   string          `json:"tenant_id"`
	RentAmount decimal.Decimal `json:"rent_amount"`
	Message    *string         `json:"message,omitempty"`
	Status     OfferStatus     `json:"status"`
	Property   *Property       `json:"property,omitempty"` // Populated by GetByID
	Tenant     *User           `json:"tenant,omitempty"`   // Populated by GetByID
	CreatedOn  string          `json:"created_on"`
	UpdatedOn  string          `json:"updated_on"`
}
