package domain

import "github.com/shopspring/decimal"

type Property struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"owner_id"`
	Owner       *User           `json:"owner,omitempty"` // Populated when fetching property details
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Location    string          `json:"location"`
	MonthlyRent decimal.Decimal `json:"monthly_rent"` // asking rent
	IsAvailable bool            `json:"is_available"`
	CreatedOn   string          `json:"created_on"`
	UpdatedOn   string          `json:"updated_on"`
}
