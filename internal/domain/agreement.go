package domain

import "github.com/shopspring/decimal"

type AgreementStatus string

const (
	AgreementStatusActive     AgreementStatus = "ACTIVE"
	AgreementStatusTerminated AgreementStatus = "TERMINATED"
	AgreementStatusExpired    AgreementStatus = "EXPIRED"
)

// Agreement is the local record of a notarized rental agreement. ContentID,
// OnChainID and TxHash are written by a single insert.
type Agreement struct {
	ID          string          `json:"id"`
	OfferID     string          `json:"offer_id"`
	PropertyID  string          `json:"property_id"`
	OwnerID     string          `json:"owner_id"`
	TenantID    string          `json:"tenant_id"`
	MonthlyRent decimal.Decimal `json:"monthly_rent"`
	StartDate   string          `json:"start_date"`
	EndDate     string          `json:"end_date"`
	ContentID   string          `json:"content_id"`
	OnChainID   uint64          `json:"on_chain_id"` // 0 when the confirmation event was not found
	TxHash      string          `json:"tx_hash"`
	Status      AgreementStatus `json:"status"`
	CreatedOn   string          `json:"created_on"`
	UpdatedOn   string          `json:"updated_on"`
}
