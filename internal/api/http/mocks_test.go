package http_test

import (
	"context"

	"rentchain-backend/internal/domain"
	"rentchain-backend/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) GetUser(ctx context.Context, actor domain.Actor) (*domain.User, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserService) LinkWallet(ctx context.Context, actor domain.Actor, address string) (*domain.User, error) {
	args := m.Called(ctx, actor, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type MockOfferService struct {
	mock.Mock
}

func (m *MockOfferService) PlaceOffer(ctx context.Context, actor domain.Actor, propertyID string, rentAmount decimal.Decimal, message *string) (*domain.Offer, error) {
	args := m.Called(ctx, actor, propertyID, rentAmount, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Offer), args.Error(1)
}
func (m *MockOfferService) TransitionOffer(ctx context.Context, actor domain.Actor, offerID string, action domain.OfferAction) (*domain.Offer, error) {
	args := m.Called(ctx, actor, offerID, action)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Offer), args.Error(1)
}
func (m *MockOfferService) ListOffers(ctx context.Context, actor domain.Actor, propertyID string) ([]domain.Offer, error) {
	args := m.Called(ctx, actor, propertyID)
	return args.Get(0).([]domain.Offer), args.Error(1)
}

type MockAgreementService struct {
	mock.Mock
}

func (m *MockAgreementService) FinalizeAgreement(ctx context.Context, actor domain.Actor, req service.FinalizeRequest) (*domain.Agreement, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Agreement), args.Error(1)
}
func (m *MockAgreementService) ListAgreements(ctx context.Context, actor domain.Actor) ([]domain.Agreement, error) {
	args := m.Called(ctx, actor)
	return args.Get(0).([]domain.Agreement), args.Error(1)
}
func (m *MockAgreementService) VerifyAgreement(ctx context.Context, actor domain.Actor, agreementID string) (*service.AgreementVerification, error) {
	args := m.Called(ctx, actor, agreementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AgreementVerification), args.Error(1)
}
func (m *MockAgreementService) ListStaleNotarizations(ctx context.Context, actor domain.Actor) ([]domain.Notarization, error) {
	args := m.Called(ctx, actor)
	return args.Get(0).([]domain.Notarization), args.Error(1)
}

type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) Notify(ctx context.Context, note *domain.Notification) error {
	args := m.Called(ctx, note)
	return args.Error(0)
}
func (m *MockNotificationService) GetNotifications(ctx context.Context, actor domain.Actor, page, pageSize int32) ([]domain.Notification, int32, error) {
	args := m.Called(ctx, actor, page, pageSize)
	return args.Get(0).([]domain.Notification), int32(args.Int(1)), args.Error(2)
}
func (m *MockNotificationService) MarkAsRead(ctx context.Context, actor domain.Actor, notificationID string) error {
	args := m.Called(ctx, actor, notificationID)
	return args.Error(0)
}
