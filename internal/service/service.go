package service

import (
	"context"

	"rentchain-backend/internal/domain"

	"github.com/shopspring/decimal"
)

type UserService interface {
	GetUser(ctx context.Context, actor domain.Actor) (*domain.User, error)
	// LinkWallet is one-way: a linked wallet can never be replaced.
	LinkWallet(ctx context.Context, actor domain.Actor, address string) (*domain.User, error)
}

type OfferService interface {
	PlaceOffer(ctx context.Context, actor domain.Actor, propertyID string, rentAmount decimal.Decimal, message *string) (*domain.Offer, error)
	TransitionOffer(ctx context.Context, actor domain.Actor, offerID string, action domain.OfferAction) (*domain.Offer, error)
	ListOffers(ctx context.Context, actor domain.Actor, propertyID string) ([]domain.Offer, error)
}

// FinalizeRequest carries calendar dates as yyyy-mm-dd.
type FinalizeRequest struct {
	OfferID   string `json:"offer_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// AgreementVerification compares the locally stored content id with the ledger record.
type AgreementVerification struct {
	AgreementID string `json:"agreement_id"`
	OnChainID   uint64 `json:"on_chain_id"`
	ContentID   string `json:"content_id"`
	TxHash      string `json:"tx_hash"`
	Verified    bool   `json:"verified"`
}

type AgreementService interface {
	FinalizeAgreement(ctx context.Context, actor domain.Actor, req FinalizeRequest) (*domain.Agreement, error)
	ListAgreements(ctx context.Context, actor domain.Actor) ([]domain.Agreement, error)
	VerifyAgreement(ctx context.Context, actor domain.Actor, agreementID string) (*AgreementVerification, error)
	// ListStaleNotarizations returns journal rows stuck in SUBMITTING or
	// CONFIRMED for longer than the configured threshold. Admin only.
	ListStaleNotarizations(ctx context.Context, actor domain.Actor) ([]domain.Notarization, error)
}

type NotificationService interface {
	// Notify stores the notification and pushes it to the user's devices.
	// Push failures are logged, not returned.
	Notify(ctx context.Context, note *domain.Notification) error
	GetNotifications(ctx context.Context, actor domain.Actor, page, pageSize int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, actor domain.Actor, notificationID string) error
}

type EmailService interface {
	SendOfferReceived(ctx context.Context, ownerEmail, ownerName, tenantName, propertyTitle string, rent decimal.Decimal) error
	SendOfferDecision(ctx context.Context, tenantEmail, tenantName, propertyTitle string, status domain.OfferStatus) error
	SendAgreementFinalized(ctx context.Context, email, name, propertyTitle string, agreement *domain.Agreement) error
}

type PushService interface {
	Push(ctx context.Context, note *domain.Notification) error
}
