package repository

import (
	"context"
	"time"

	"rentchain-backend/internal/domain"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// LinkWallet sets the wallet address only when none is linked yet.
	// Returns ErrForbidden when the user already has one and ErrConflict
	// when the address belongs to another user.
	LinkWallet(ctx context.Context, userID, address string) error
}

type PropertyRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Property, error)
}

// OfferFilter narrows List. Empty fields do not filter.
type OfferFilter struct {
	PropertyID string
	TenantID   string
	OwnerID    string
}

type OfferRepository interface {
	Create(ctx context.Context, offer *domain.Offer) error
	// GetByID loads the offer with its Property and Tenant populated.
	GetByID(ctx context.Context, id string) (*domain.Offer, error)
	HasPending(ctx context.Context, propertyID, tenantID string) (bool, error)
	// Transition moves a PENDING offer to status. ErrInvalidState if it is no longer PENDING.
	Transition(ctx context.Context, id string, status domain.OfferStatus) error
	// Accept marks the offer ACCEPTED and rejects every other PENDING offer on
	// the same property in one transaction. It returns the rejected offer ids.
	Accept(ctx context.Context, id string) ([]string, error)
	List(ctx context.Context, filter OfferFilter) ([]domain.Offer, error)
}

// AgreementFilter narrows List. Empty fields do not filter.
type AgreementFilter struct {
	OwnerID  string
	TenantID string
}

type AgreementRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Agreement, error)
	GetByOfferID(ctx context.Context, offerID string) (*domain.Agreement, error)
	// Create inserts the agreement, marks the property unavailable and closes
	// the offer's notarization journal row, all in one transaction.
	Create(ctx context.Context, agreement *domain.Agreement) error
	List(ctx context.Context, filter AgreementFilter) ([]domain.Agreement, error)
	// ExpireEnded moves ACTIVE agreements ending before today to EXPIRED.
	ExpireEnded(ctx context.Context, today string) ([]domain.Agreement, error)
}

type NotarizationRepository interface {
	GetByOfferID(ctx context.Context, offerID string) (*domain.Notarization, error)
	// Begin creates a SUBMITTING row for n.OfferID holding its content id and
	// dates, or re-arms a FAILED one. ErrConflict when another attempt holds the row.
	Begin(ctx context.Context, n domain.Notarization) error
	MarkConfirmed(ctx context.Context, offerID, txHash string, onChainID uint64) error
	MarkFailed(ctx context.Context, offerID, reason string) error
	ListStale(ctx context.Context, before time.Time) ([]domain.Notarization, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, note *domain.Notification) error
	List(ctx context.Context, userID string, limit, offset int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, id, userID string) error
}
