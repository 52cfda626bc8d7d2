package domain

import "time"

type NotarizationStatus string

const (
	NotarizationStatusSubmitting NotarizationStatus = "SUBMITTING"
	NotarizationStatusConfirmed  NotarizationStatus = "CONFIRMED"
	NotarizationStatusRecorded   NotarizationStatus = "RECORDED"
	NotarizationStatusFailed     NotarizationStatus = "FAILED"
)

// Notarization journals one finalize attempt per offer so that a confirmed
// ledger transaction without a local agreement stays visible and resumable.
// StartDate and EndDate are the dates that were pinned and submitted.
type Notarization struct {
	OfferID   string             `json:"offer_id"`
	ContentID string             `json:"content_id"`
	StartDate string             `json:"start_date"`
	EndDate   string             `json:"end_date"`
	TxHash    *string            `json:"tx_hash,omitempty"`
	OnChainID *uint64            `json:"on_chain_id,omitempty"`
	Status    NotarizationStatus `json:"status"`
	LastError string             `json:"last_error,omitempty"`
	CreatedOn time.Time          `json:"created_on"`
	UpdatedOn time.Time          `json:"updated_on"`
}

// Covers reports whether the journaled dates are exactly start and end
// (YYYY-MM-DD).
func (n *Notarization) Covers(start, end string) bool {
	return n.StartDate == start && n.EndDate == end
}
