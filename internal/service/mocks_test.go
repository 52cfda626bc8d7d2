package service_test

import (
	"context"
	"encoding/json"
	"time"

	"rentchain-backend/internal/domain"
	"rentchain-backend/internal/ledger"
	"rentchain-backend/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockUserRepo
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserRepo) LinkWallet(ctx context.Context, userID, address string) error {
	args := m.Called(ctx, userID, address)
	return args.Error(0)
}

// MockPropertyRepo
type MockPropertyRepo struct {
	mock.Mock
}

func (m *MockPropertyRepo) GetByID(ctx context.Context, id string) (*domain.Property, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Property), args.Error(1)
}

// MockOfferRepo
type MockOfferRepo struct {
	mock.Mock
}

func (m *MockOfferRepo) Create(ctx context.Context, offer *domain.Offer) error {
	args := m.Called(ctx, offer)
	return args.Error(0)
}
func (m *MockOfferRepo) GetByID(ctx context.Context, id string) (*domain.Offer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Offer), args.Error(1)
}
func (m *MockOfferRepo) HasPending(ctx context.Context, propertyID, tenantID string) (bool, error) {
	args := m.Called(ctx, propertyID, tenantID)
	return args.Bool(0), args.Error(1)
}
func (m *MockOfferRepo) Transition(ctx context.Context, id string, status domain.OfferStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}
func (m *MockOfferRepo) Accept(ctx context.Context, id string) ([]string, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
func (m *MockOfferRepo) List(ctx context.Context, filter repository.OfferFilter) ([]domain.Offer, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Offer), args.Error(1)
}

// MockAgreementRepo
type MockAgreementRepo struct {
	mock.Mock
}

func (m *MockAgreementRepo) GetByID(ctx context.Context, id string) (*domain.Agreement, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Agreement), args.Error(1)
}
func (m *MockAgreementRepo) GetByOfferID(ctx context.Context, offerID string) (*domain.Agreement, error) {
	args := m.Called(ctx, offerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Agreement), args.Error(1)
}
func (m *MockAgreementRepo) Create(ctx context.Context, agreement *domain.Agreement) error {
	args := m.Called(ctx, agreement)
	return args.Error(0)
}
func (m *MockAgreementRepo) List(ctx context.Context, filter repository.AgreementFilter) ([]domain.Agreement, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Agreement), args.Error(1)
}
func (m *MockAgreementRepo) ExpireEnded(ctx context.Context, today string) ([]domain.Agreement, error) {
	args := m.Called(ctx, today)
	return args.Get(0).([]domain.Agreement), args.Error(1)
}

// MockNotarizationRepo
type MockNotarizationRepo struct {
	mock.Mock
}

func (m *MockNotarizationRepo) GetByOfferID(ctx context.Context, offerID string) (*domain.Notarization, error) {
	args := m.Called(ctx, offerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Notarization), args.Error(1)
}
func (m *MockNotarizationRepo) Begin(ctx context.Context, n domain.Notarization) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}
func (m *MockNotarizationRepo) MarkConfirmed(ctx context.Context, offerID, txHash string, onChainID uint64) error {
	args := m.Called(ctx, offerID, txHash, onChainID)
	return args.Error(0)
}
func (m *MockNotarizationRepo) MarkFailed(ctx context.Context, offerID, reason string) error {
	args := m.Called(ctx, offerID, reason)
	return args.Error(0)
}
func (m *MockNotarizationRepo) ListStale(ctx context.Context, before time.Time) ([]domain.Notarization, error) {
	args := m.Called(ctx, before)
	return args.Get(0).([]domain.Notarization), args.Error(1)
}

// MockNotificationRepo
type MockNotificationRepo struct {
	mock.Mock
}

func (m *MockNotificationRepo) Create(ctx context.Context, note *domain.Notification) error {
	args := m.Called(ctx, note)
	return args.Error(0)
}
func (m *MockNotificationRepo) List(ctx context.Context, userID string, limit, offset int32) ([]domain.Notification, int32, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]domain.Notification), int32(args.Int(1)), args.Error(2)
}
func (m *MockNotificationRepo) MarkAsRead(ctx context.Context, id, userID string) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

// MockContentStore
type MockContentStore struct {
	mock.Mock
}

func (m *MockContentStore) PinDocument(ctx context.Context, name string, doc json.RawMessage) (string, error) {
	args := m.Called(ctx, name, doc)
	return args.String(0), args.Error(1)
}
func (m *MockContentStore) PinBlob(ctx context.Context, data []byte, name, mimeType string) (string, error) {
	args := m.Called(ctx, data, name, mimeType)
	return args.String(0), args.Error(1)
}
func (m *MockContentStore) Fetch(ctx context.Context, cid string) ([]byte, error) {
	args := m.Called(ctx, cid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockNotary
type MockNotary struct {
	mock.Mock
}

func (m *MockNotary) Submit(ctx context.Context, n ledger.Notarization) (*ledger.Receipt, error) {
	args := m.Called(ctx, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Receipt), args.Error(1)
}
func (m *MockNotary) Verify(ctx context.Context, onChainID uint64, contentID string) (bool, error) {
	args := m.Called(ctx, onChainID, contentID)
	return args.Bool(0), args.Error(1)
}

// MockNotificationService
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

// MockEmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendOfferReceived(ctx context.Context, ownerEmail, ownerName, tenantName, propertyTitle string, rent decimal.Decimal) error {
	args := m.Called(ctx, ownerEmail, ownerName, tenantName, propertyTitle, rent)
	return args.Error(0)
}
func (m *MockEmailService) SendOfferDecision(ctx context.Context, tenantEmail, tenantName, propertyTitle string, status domain.OfferStatus) error {
	args := m.Called(ctx, tenantEmail, tenantName, propertyTitle, status)
	return args.Error(0)
}
func (m *MockEmailService) SendAgreementFinalized(ctx context.Context, email, name, propertyTitle string, agreement *domain.Agreement) error {
	args := m.Called(ctx, email, name, propertyTitle, agreement)
	return args.Error(0)
}

// MockPushService
type MockPushService struct {
	mock.Mock
}

func (m *MockPushService) Push(ctx context.Context, note *domain.Notification) error {
	args := m.Called(ctx, note)
	return args.Error(0)
}
