package service

import (
	"encoding/json"
	"time"

	"rentchain-backend/internal/domain"
	"rentchain-backend/internal/utils"
)

type documentProperty struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Location string `json:"location"`
}

type documentOwner struct {
	ID string `json:"id"`
}

type documentTenant struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// agreementDocument is the JSON pinned to the content store. Field order is
// part of the format.
type agreementDocument struct {
	Property    documentProperty `json:"property"`
	Owner       documentOwner    `json:"owner"`
	Tenant      documentTenant   `json:"tenant"`
	MonthlyRent json.Number      `json:"monthlyRent"`
	StartDate   string           `json:"startDate"`
	EndDate     string           `json:"endDate"`
	OfferID     string           `json:"offerId"`
	GeneratedAt string           `json:"generatedAt"`
}

// buildAgreementDocument expects offer to carry its Property and Tenant.
func buildAgreementDocument(offer *domain.Offer, start, end utils.Date, generatedAt time.Time) (json.RawMessage, error) {
	doc := agreementDocument{
		Property: documentProperty{
			ID:       offer.Property.ID,
			Title:    offer.Property.Title,
			Location: offer.Property.Location,
		},
		Owner: documentOwner{ID: offer.Property.OwnerID},
		Tenant: documentTenant{
			ID:    offer.Tenant.ID,
			Name:  offer.Tenant.Name,
			Email: offer.Tenant.Email,
		},
		MonthlyRent: json.Number(offer.RentAmount.String()),
		StartDate:   start.String(),
		EndDate:     end.String(),
		OfferID:     offer.ID,
		GeneratedAt: generatedAt.UTC().Format(time.RFC3339),
	}
	return json.Marshal(doc)
}
