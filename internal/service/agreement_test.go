package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"rentchain-backend/internal/domain"
	"rentchain-backend/internal/ledger"
	"rentchain-backend/internal/metrics"
	"rentchain-backend/internal/repository"
	"rentchain-backend/internal/service"
	"rentchain-backend/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const tenantWallet = "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"

var (
	ownerActor  = domain.Actor{ID: "owner-1", Role: domain.RoleOwner}
	tenantActor = domain.Actor{ID: "tenant-1", Role: domain.RoleTenant}
	rivalActor  = domain.Actor{ID: "tenant-2", Role: domain.RoleTenant}
	adminActor  = domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}
)

// recordingStore remembers the last document it pinned.
type recordingStore struct {
	storage.ContentStore
	pinned json.RawMessage
}

func (s *recordingStore) PinDocument(ctx context.Context, name string, doc json.RawMessage) (string, error) {
	s.pinned = append(json.RawMessage(nil), doc...)
	return s.ContentStore.PinDocument(ctx, name, doc)
}

// flakyAgreements fails the first createFailures calls to Create.
type flakyAgreements struct {
	repository.AgreementRepository
	createFailures int
}

func (r *flakyAgreements) Create(ctx context.Context, a *domain.Agreement) error {
	if r.createFailures > 0 {
		r.createFailures--
		return domain.WrapError(domain.KindInternal, errors.New("connection reset"), "insert agreement")
	}
	return r.AgreementRepository.Create(ctx, a)
}

type finalizeFixture struct {
	db         *memoryDB
	store      *recordingStore
	agreements repository.AgreementRepository
	notary     *MockNotary
	notifier   *MockNotificationService
	emailSvc   *MockEmailService
	registry   *prometheus.Registry
	metrics    *metrics.Metrics
	now        time.Time
	offers     service.OfferService
	svc        service.AgreementService
}

func newFinalizeFixture(t *testing.T, now time.Time) *finalizeFixture {
	t.Helper()

	db := newMemoryDB()
	wallet := tenantWallet
	db.users["owner-1"] = domain.User{ID: "owner-1", Email: "olga@example.com", Name: "Olga Owner", Role: domain.RoleOwner}
	db.users["tenant-1"] = domain.User{ID: "tenant-1", Email: "tina@example.com", Name: "Tina Tenant", Role: domain.RoleTenant, WalletAddress: &wallet}
	db.users["tenant-2"] = domain.User{ID: "tenant-2", Email: "rob@example.com", Name: "Rob Rival", Role: domain.RoleTenant}
	db.users["tenant-3"] = domain.User{ID: "tenant-3", Email: "late@example.com", Name: "Late Comer", Role: domain.RoleTenant}
	db.properties["P1"] = domain.Property{
		ID:          "P1",
		OwnerID:     "owner-1",
		Title:       "Harbor Loft",
		Location:    "Lisbon",
		MonthlyRent: decimal.NewFromInt(15000),
		IsAvailable: true,
	}

	local, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	notifier := new(MockNotificationService)
	notifier.On("Notify", mock.Anything, mock.Anything).Return(nil).Maybe()
	emailSvc := new(MockEmailService)
	emailSvc.On("SendOfferReceived", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	emailSvc.On("SendOfferDecision", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	emailSvc.On("SendAgreementFinalized", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	f := &finalizeFixture{
		db:         db,
		store:      &recordingStore{ContentStore: local},
		agreements: db.Agreements(),
		notary:     new(MockNotary),
		notifier:   notifier,
		emailSvc:   emailSvc,
		registry:   prometheus.NewRegistry(),
		now:        now,
	}
	f.metrics = metrics.New(f.registry)
	f.build()
	return f
}

// build wires the services over the fixture's current dependencies. Calling it
// again after swapping one of them keeps the same collectors.
func (f *finalizeFixture) build() {
	m := f.metrics
	f.offers = service.NewOfferService(f.db.Offers(), f.db.Properties(), f.db.Users(), f.notifier, f.emailSvc, m)
	f.svc = service.NewAgreementService(f.db.Offers(), f.agreements, f.db.Notarizations(), f.store, f.notary,
		f.notifier, f.emailSvc, m, service.AgreementOptions{
			Location: time.UTC,
			Now:      func() time.Time { return f.now },
		})
}

// acceptedOffer places an offer from tenant-1 and accepts it as owner-1.
func (f *finalizeFixture) acceptedOffer(t *testing.T, rent int64) *domain.Offer {
	t.Helper()
	ctx := context.Background()
	offer, err := f.offers.PlaceOffer(ctx, tenantActor, "P1", decimal.NewFromInt(rent), nil)
	require.NoError(t, err)
	accepted, err := f.offers.TransitionOffer(ctx, ownerActor, offer.ID, domain.OfferActionAccept)
	require.NoError(t, err)
	return accepted
}

func (f *finalizeFixture) counter(t *testing.T, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := f.registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metricLoop:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue metricLoop
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func minorUnits(rent string) string {
	return rent + strings.Repeat("0", int(ledger.DefaultRentDecimals))
}

func TestAgreementService_FinalizeScenario(t *testing.T) {
	f := newFinalizeFixture(t, time.Date(2025, 5, 20, 9, 30, 0, 0, time.UTC))
	ctx := context.Background()

	rivalOffer, err := f.offers.PlaceOffer(ctx, rivalActor, "P1", decimal.NewFromInt(14000), nil)
	require.NoError(t, err)
	offer := f.acceptedOffer(t, 15000)

	assert.Equal(t, domain.OfferStatusAccepted, f.db.offer(offer.ID).Status)
	assert.Equal(t, domain.OfferStatusRejected, f.db.offer(rivalOffer.ID).Status)

	f.notary.On("Submit", mock.Anything, mock.MatchedBy(func(n ledger.Notarization) bool {
		return n.TenantAddress == tenantWallet &&
			n.PropertyID == "P1" &&
			n.RentMinorUnits.String() == minorUnits("15000") &&
			n.StartEpoch == 1748736000 &&
			n.EndEpoch == 1764547200 &&
			strings.HasPrefix(n.ContentID, "bafkrei")
	})).Return(&ledger.Receipt{OnChainID: 7, TxHash: "0xfeed", BlockNumber: 120, EventFound: true}, nil).Once()

	agreement, err := f.svc.FinalizeAgreement(ctx, ownerActor, service.FinalizeRequest{
		OfferID:   offer.ID,
		StartDate: "2025-06-01",
		EndDate:   "2025-12-01",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.AgreementStatusActive, agreement.Status)
	assert.True(t, agreement.MonthlyRent.Equal(decimal.NewFromInt(15000)))
	assert.Equal(t, uint64(7), agreement.OnChainID)
	assert.Equal(t, "0xfeed", agreement.TxHash)
	assert.Equal(t, "2025-06-01", agreement.StartDate)
	assert.Equal(t, "2025-12-01", agreement.EndDate)
	assert.Equal(t, "tenant-1", agreement.TenantID)
	assert.Equal(t, "owner-1", agreement.OwnerID)
	assert.False(t, f.db.property("P1").IsAvailable)

	journal, err := f.db.Notarizations().GetByOfferID(ctx, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.NotarizationStatusRecorded, journal.Status)
	assert.Equal(t, agreement.ContentID, journal.ContentID)

	t.Run("Second finalize is a conflict", func(t *testing.T) {
		_, err := f.svc.FinalizeAgreement(ctx, ownerActor, service.FinalizeRequest{
			OfferID:   offer.ID,
			StartDate: "2025-06-01",
			EndDate:   "2025-12-01",
		})
		assert.Equal(t, domain.KindConflict, domain.KindOf(err))
		assert.Equal(t, 1, f.db.agreementCount())
		f.notary.AssertNumberOfCalls(t, "Submit", 1)
	})

	t.Run("Unavailable property takes no new offers", func(t *testing.T) {
		_, err := f.offers.PlaceOffer(ctx, domain.Actor{ID: "tenant-3", Role: domain.RoleTenant}, "P1", decimal.NewFromInt(16000), nil)
		assert.Equal(t, domain.KindUnavailable, domain.KindOf(err))
	})

	t.Run("Accepted offer cannot be accepted again", func(t *testing.T) {
		_, err := f.offers.TransitionOffer(ctx, ownerActor, rivalOffer.ID, domain.OfferActionAccept)
		assert.Equal(t, domain.KindInvalidState, domain.KindOf(err))
	})

	assert.Equal(t, 1.0, f.counter(t, "rentchain_finalize_total", map[string]string{"outcome": "ok"}))
	assert.Equal(t, 1.0, f.counter(t, "rentchain_finalize_total", map[string]string{"outcome": "CONFLICT"}))
}

func TestAgreementService_DocumentRoundTrip(t *testing.T) {
	f := newFinalizeFixture(t, time.Date(2025, 2, 15, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()
	offer := f.acceptedOffer(t, 20000)

	var cid string
	f.notary.On("Submit", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		n := args.Get(1).(ledger.Notarization)
		cid = n.ContentID
		assert.Equal(t, int64(1740787200), n.StartEpoch)
		assert.Equal(t, int64(1772323200), n.EndEpoch)
		assert.Equal(t, minorUnits("20000"), n.RentMinorUnits.String())
	}).Return(&ledger.Receipt{OnChainID: 3, TxHash: "0xbeef", EventFound: true}, nil).Once()

	agreement, err := f.svc.FinalizeAgreement(ctx, ownerActor, service.FinalizeRequest{
		OfferID:   offer.ID,
		StartDate: "2025-03-01",
		EndDate:   "2026-03-01",
	})
	require.NoError(t, err)
	assert.Equal(t, cid, agreement.ContentID)

	expected := fmt.Sprintf(`{"property":{"id":"P1","title":"Harbor Loft","location":"Lisbon"},`+
		`"owner":{"id":"owner-1"},`+
		`"tenant":{"id":"tenant-1","name":"Tina Tenant","email":"tina@example.com"},`+
		`"monthlyRent":20000,"startDate":"2025-03-01","endDate":"2026-03-01",`+
		`"offerId":%q,"generatedAt":"2025-02-15T12:00:00Z"}`, offer.ID)
	assert.Equal(t, expected, string(f.store.pinned))

	fetched, err := f.store.Fetch(ctx, cid)
	require.NoError(t, err)
	assert.Equal(t, []byte(f.store.pinned), fetched)
	assert.Equal(t, cid, storage.ComputeCID(fetched))
}

func TestAgreementService_FinalizePreconditions(t *testing.T) {
	now := time.Date(2025, 5, 20, 23, 59, 0, 0, time.UTC)
	valid := func(offerID string) service.FinalizeRequest {
		return service.FinalizeRequest{OfferID: offerID, StartDate: "2025-06-01", EndDate: "2025-12-01"}
	}

	tests := []struct {
		name    string
		actor   domain.Actor
		setup   func(f *finalizeFixture, offer *domain.Offer)
		request func(offerID string) service.FinalizeRequest
		kind    domain.ErrorKind
	}{
		{
			name:    "Unauthenticated",
			actor:   domain.Actor{},
			request: valid,
			kind:    domain.KindUnauthorized,
		},
		{
			name:    "Tenant cannot finalize",
			actor:   tenantActor,
			request: valid,
			kind:    domain.KindForbidden,
		},
		{
			name:  "Timestamp instead of date",
			actor: ownerActor,
			request: func(id string) service.FinalizeRequest {
				return service.FinalizeRequest{OfferID: id, StartDate: "2025-06-01T00:00:00Z", EndDate: "2025-12-01"}
			},
			kind: domain.KindValidation,
		},
		{
			name:  "Start yesterday",
			actor: ownerActor,
			request: func(id string) service.FinalizeRequest {
				return service.FinalizeRequest{OfferID: id, StartDate: "2025-05-19", EndDate: "2025-12-01"}
			},
			kind: domain.KindValidation,
		},
		{
			name:  "End equals start",
			actor: ownerActor,
			request: func(id string) service.FinalizeRequest {
				return service.FinalizeRequest{OfferID: id, StartDate: "2025-06-01", EndDate: "2025-06-01"}
			},
			kind: domain.KindValidation,
		},
		{
			name:  "End before start",
			actor: ownerActor,
			request: func(id string) service.FinalizeRequest {
				return service.FinalizeRequest{OfferID: id, StartDate: "2025-06-01", EndDate: "2025-05-31"}
			},
			kind: domain.KindValidation,
		},
		{
			name:  "Unknown offer",
			actor: ownerActor,
			request: func(string) service.FinalizeRequest {
				return valid("missing")
			},
			kind: domain.KindNotFound,
		},
		{
			name:  "Offer not accepted",
			actor: ownerActor,
			setup: func(f *finalizeFixture, offer *domain.Offer) {
				o := f.db.offers[offer.ID]
				o.Status = domain.OfferStatusPending
				f.db.offers[offer.ID] = o
			},
			request: valid,
			kind:    domain.KindInvalidState,
		},
		{
			name:    "Another owner",
			actor:   domain.Actor{ID: "owner-2", Role: domain.RoleOwner},
			request: valid,
			kind:    domain.KindForbidden,
		},
		{
			name:  "Already finalized",
			actor: ownerActor,
			setup: func(f *finalizeFixture, offer *domain.Offer) {
				f.db.agreements["a-1"] = domain.Agreement{ID: "a-1", OfferID: offer.ID}
			},
			request: valid,
			kind:    domain.KindConflict,
		},
		{
			name:  "Tenant without wallet",
			actor: ownerActor,
			setup: func(f *finalizeFixture, _ *domain.Offer) {
				u := f.db.users["tenant-1"]
				u.WalletAddress = nil
				f.db.users["tenant-1"] = u
			},
			request: valid,
			kind:    domain.KindPrecondition,
		},
		{
			name:  "Property no longer available",
			actor: ownerActor,
			setup: func(f *finalizeFixture, _ *domain.Offer) {
				p := f.db.properties["P1"]
				p.IsAvailable = false
				f.db.properties["P1"] = p
			},
			request: valid,
			kind:    domain.KindUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFinalizeFixture(t, now)
			offer := f.acceptedOffer(t, 15000)
			if tt.setup != nil {
				tt.setup(f, offer)
			}

			agreement, err := f.svc.FinalizeAgreement(context.Background(), tt.actor, tt.request(offer.ID))
			assert.Nil(t, agreement)
			assert.Equal(t, tt.kind, domain.KindOf(err))

			assert.Nil(t, f.store.pinned)
			f.notary.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
			assert.True(t, f.db.property("P1").IsAvailable || tt.kind == domain.KindUnavailable)
			_, jerr := f.db.Notarizations().GetByOfferID(context.Background(), offer.ID)
			assert.True(t, errors.Is(jerr, domain.ErrNotFound))
		})
	}
}

func TestAgreementService_StartDateUsesBusinessDay(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	// 02:00 UTC on June 1st is still May 31st in New York.
	f := newFinalizeFixture(t, time.Date(2025, 6, 1, 2, 0, 0, 0, time.UTC))
	f.svc = service.NewAgreementService(f.db.Offers(), f.agreements, f.db.Notarizations(), f.store, f.notary,
		f.notifier, f.emailSvc, nil, service.AgreementOptions{
			Location: ny,
			Now:      func() time.Time { return f.now },
		})
	offer := f.acceptedOffer(t, 15000)

	f.notary.On("Submit", mock.Anything, mock.MatchedBy(func(n ledger.Notarization) bool {
		return n.StartEpoch == time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC).Unix()
	})).Return(&ledger.Receipt{OnChainID: 1, TxHash: "0x01", EventFound: true}, nil).Once()

	_, err = f.svc.FinalizeAgreement(context.Background(), ownerActor, service.FinalizeRequest{
		OfferID: offer.ID, StartDate: "2025-05-31", EndDate: "2025-11-30",
	})
	assert.NoError(t, err)
}

func TestAgreementService_ExternalFailures(t *testing.T) {
	now := time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()
	req := func(id string) service.FinalizeRequest {
		return service.FinalizeRequest{OfferID: id, StartDate: "2025-06-01", EndDate: "2025-12-01"}
	}

	t.Run("Store unavailable", func(t *testing.T) {
		f := newFinalizeFixture(t, now)
		offer := f.acceptedOffer(t, 15000)
		failing := new(MockContentStore)
		failing.On("PinDocument", mock.Anything, "agreement-"+offer.ID, mock.Anything).
			Return("", domain.NewError(domain.KindStoreUnavailable, "pinning service returned 503"))
		f.store = &recordingStore{ContentStore: failing}
		f.build()

		_, err := f.svc.FinalizeAgreement(ctx, ownerActor, req(offer.ID))
		assert.Equal(t, domain.KindStoreUnavailable, domain.KindOf(err))
		f.notary.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
		assert.True(t, f.db.property("P1").IsAvailable)
		_, jerr := f.db.Notarizations().GetByOfferID(ctx, offer.ID)
		assert.True(t, errors.Is(jerr, domain.ErrNotFound))
	})

	t.Run("Ledger rejects then succeeds on retry", func(t *testing.T) {
		f := newFinalizeFixture(t, now)
		offer := f.acceptedOffer(t, 15000)
		f.notary.On("Submit", mock.Anything, mock.Anything).
			Return(nil, domain.NewError(domain.KindLedgerRejected, "execution reverted: duplicate")).Once()

		_, err := f.svc.FinalizeAgreement(ctx, ownerActor, req(offer.ID))
		assert.Equal(t, domain.KindLedgerRejected, domain.KindOf(err))
		assert.Equal(t, 0, f.db.agreementCount())
		assert.True(t, f.db.property("P1").IsAvailable)

		journal, err := f.db.Notarizations().GetByOfferID(ctx, offer.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.NotarizationStatusFailed, journal.Status)
		assert.Contains(t, journal.LastError, "duplicate")

		f.notary.On("Submit", mock.Anything, mock.Anything).
			Return(&ledger.Receipt{OnChainID: 9, TxHash: "0x09", EventFound: true}, nil).Once()
		agreement, err := f.svc.FinalizeAgreement(ctx, ownerActor, req(offer.ID))
		require.NoError(t, err)
		assert.Equal(t, uint64(9), agreement.OnChainID)
	})

	t.Run("Unknown outcome keeps the attempt open", func(t *testing.T) {
		f := newFinalizeFixture(t, now)
		offer := f.acceptedOffer(t, 15000)
		f.notary.On("Submit", mock.Anything, mock.Anything).
			Return(nil, &ledger.BroadcastError{TxHash: "0x77", Err: context.DeadlineExceeded}).Once()

		_, err := f.svc.FinalizeAgreement(ctx, ownerActor, req(offer.ID))
		assert.Equal(t, domain.KindLedgerUnavailable, domain.KindOf(err))

		journal, err := f.db.Notarizations().GetByOfferID(ctx, offer.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.NotarizationStatusSubmitting, journal.Status)

		_, err = f.svc.FinalizeAgreement(ctx, ownerActor, req(offer.ID))
		assert.Equal(t, domain.KindConflict, domain.KindOf(err))
		f.notary.AssertNumberOfCalls(t, "Submit", 1)
	})

	t.Run("Missing event is recorded with zero id", func(t *testing.T) {
		f := newFinalizeFixture(t, now)
		offer := f.acceptedOffer(t, 15000)
		f.notary.On("Submit", mock.Anything, mock.Anything).
			Return(&ledger.Receipt{TxHash: "0x55", BlockNumber: 10}, nil).Once()

		agreement, err := f.svc.FinalizeAgreement(ctx, ownerActor, req(offer.ID))
		require.NoError(t, err)
		assert.Equal(t, uint64(0), agreement.OnChainID)
		assert.Equal(t, "0x55", agreement.TxHash)
		assert.Equal(t, 1.0, f.counter(t, "rentchain_ledger_missing_event_total", nil))
	})
}

func TestAgreementService_Reconciliation(t *testing.T) {
	f := newFinalizeFixture(t, time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC))
	f.agreements = &flakyAgreements{AgreementRepository: f.db.Agreements(), createFailures: 1}
	f.build()
	ctx := context.Background()
	offer := f.acceptedOffer(t, 15000)
	req := service.FinalizeRequest{OfferID: offer.ID, StartDate: "2025-06-01", EndDate: "2025-12-01"}

	f.notary.On("Submit", mock.Anything, mock.Anything).
		Return(&ledger.Receipt{OnChainID: 11, TxHash: "0x11", EventFound: true}, nil).Once()

	_, err := f.svc.FinalizeAgreement(ctx, ownerActor, req)
	var recon *domain.ReconciliationError
	require.ErrorAs(t, err, &recon)
	assert.Equal(t, "0x11", recon.TxHash)
	assert.Equal(t, uint64(11), recon.OnChainID)
	assert.Equal(t, domain.KindReconciliationRequired, domain.KindOf(err))
	assert.True(t, f.db.property("P1").IsAvailable)

	journal, err := f.db.Notarizations().GetByOfferID(ctx, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.NotarizationStatusConfirmed, journal.Status)
	assert.Equal(t, "2025-06-01", journal.StartDate)
	assert.Equal(t, "2025-12-01", journal.EndDate)

	// Re-running finalize records the confirmed transaction without resubmitting.
	agreement, err := f.svc.FinalizeAgreement(ctx, ownerActor, req)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), agreement.OnChainID)
	assert.Equal(t, "0x11", agreement.TxHash)
	assert.Equal(t, journal.ContentID, agreement.ContentID)
	assert.False(t, f.db.property("P1").IsAvailable)
	f.notary.AssertNumberOfCalls(t, "Submit", 1)
}

func TestAgreementService_ResumeKeepsNotarizedDates(t *testing.T) {
	f := newFinalizeFixture(t, time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC))
	f.agreements = &flakyAgreements{AgreementRepository: f.db.Agreements(), createFailures: 1}
	f.build()
	ctx := context.Background()
	offer := f.acceptedOffer(t, 15000)
	notarized := service.FinalizeRequest{OfferID: offer.ID, StartDate: "2025-06-01", EndDate: "2025-12-01"}

	f.notary.On("Submit", mock.Anything, mock.MatchedBy(func(n ledger.Notarization) bool {
		return n.StartEpoch == 1748736000 && n.EndEpoch == 1764547200
	})).Return(&ledger.Receipt{OnChainID: 12, TxHash: "0x12", EventFound: true}, nil).Once()

	_, err := f.svc.FinalizeAgreement(ctx, ownerActor, notarized)
	require.Equal(t, domain.KindReconciliationRequired, domain.KindOf(err))

	t.Run("Different dates are a conflict", func(t *testing.T) {
		_, err := f.svc.FinalizeAgreement(ctx, ownerActor, service.FinalizeRequest{
			OfferID: offer.ID, StartDate: "2026-01-01", EndDate: "2030-01-01",
		})
		assert.Equal(t, domain.KindConflict, domain.KindOf(err))
		assert.Contains(t, err.Error(), "2025-06-01 to 2025-12-01")
		assert.Equal(t, 0, f.db.agreementCount())
		assert.True(t, f.db.property("P1").IsAvailable)
	})

	t.Run("Past start date with other dates is rejected", func(t *testing.T) {
		f.now = time.Date(2025, 7, 15, 9, 0, 0, 0, time.UTC)
		_, err := f.svc.FinalizeAgreement(ctx, ownerActor, service.FinalizeRequest{
			OfferID: offer.ID, StartDate: "2025-06-02", EndDate: "2025-12-01",
		})
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))
		assert.Equal(t, 0, f.db.agreementCount())
	})

	t.Run("Notarized dates resume after the start date passed", func(t *testing.T) {
		f.now = time.Date(2025, 7, 15, 9, 0, 0, 0, time.UTC)
		agreement, err := f.svc.FinalizeAgreement(ctx, ownerActor, notarized)
		require.NoError(t, err)
		assert.Equal(t, "2025-06-01", agreement.StartDate)
		assert.Equal(t, "2025-12-01", agreement.EndDate)
		assert.Equal(t, uint64(12), agreement.OnChainID)
		assert.False(t, f.db.property("P1").IsAvailable)
	})

	f.notary.AssertNumberOfCalls(t, "Submit", 1)
}

func TestAgreementService_VerifyAgreement(t *testing.T) {
	ctx := context.Background()
	agreementRepo := new(MockAgreementRepo)
	notary := new(MockNotary)
	svc := service.NewAgreementService(new(MockOfferRepo), agreementRepo, new(MockNotarizationRepo),
		new(MockContentStore), notary, new(MockNotificationService), new(MockEmailService), nil, service.AgreementOptions{})

	recorded := &domain.Agreement{ID: "a-1", OwnerID: "owner-1", TenantID: "tenant-1", ContentID: "bafkreiabc", OnChainID: 4, TxHash: "0x04"}
	agreementRepo.On("GetByID", ctx, "a-1").Return(recorded, nil)
	agreementRepo.On("GetByID", ctx, "a-0").Return(&domain.Agreement{ID: "a-0", OwnerID: "owner-1", TenantID: "tenant-1", TxHash: "0x00"}, nil)

	t.Run("Party verifies", func(t *testing.T) {
		notary.On("Verify", ctx, uint64(4), "bafkreiabc").Return(true, nil).Once()
		res, err := svc.VerifyAgreement(ctx, tenantActor, "a-1")
		require.NoError(t, err)
		assert.True(t, res.Verified)
		assert.Equal(t, uint64(4), res.OnChainID)
	})

	t.Run("Mismatch", func(t *testing.T) {
		notary.On("Verify", ctx, uint64(4), "bafkreiabc").Return(false, nil).Once()
		res, err := svc.VerifyAgreement(ctx, adminActor, "a-1")
		require.NoError(t, err)
		assert.False(t, res.Verified)
	})

	t.Run("Stranger", func(t *testing.T) {
		_, err := svc.VerifyAgreement(ctx, rivalActor, "a-1")
		assert.Equal(t, domain.KindForbidden, domain.KindOf(err))
	})

	t.Run("No on-chain id", func(t *testing.T) {
		_, err := svc.VerifyAgreement(ctx, ownerActor, "a-0")
		assert.Equal(t, domain.KindPrecondition, domain.KindOf(err))
	})

	t.Run("Ledger down", func(t *testing.T) {
		notary.On("Verify", ctx, uint64(4), "bafkreiabc").Return(false, errors.New("dial tcp: connection refused")).Once()
		_, err := svc.VerifyAgreement(ctx, ownerActor, "a-1")
		assert.Equal(t, domain.KindLedgerUnavailable, domain.KindOf(err))
	})
}

func TestAgreementService_ListStaleNotarizations(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC)
	notarRepo := new(MockNotarizationRepo)
	svc := service.NewAgreementService(new(MockOfferRepo), new(MockAgreementRepo), notarRepo,
		new(MockContentStore), new(MockNotary), new(MockNotificationService), new(MockEmailService), nil,
		service.AgreementOptions{StaleAfter: time.Hour, Now: func() time.Time { return now }})

	notarRepo.On("ListStale", ctx, now.Add(-time.Hour)).Return([]domain.Notarization{{OfferID: "o-1"}}, nil)

	rows, err := svc.ListStaleNotarizations(ctx, adminActor)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	_, err = svc.ListStaleNotarizations(ctx, ownerActor)
	assert.Equal(t, domain.KindForbidden, domain.KindOf(err))
}

func TestAgreementService_ListAgreements(t *testing.T) {
	ctx := context.Background()
	agreementRepo := new(MockAgreementRepo)
	svc := service.NewAgreementService(new(MockOfferRepo), agreementRepo, new(MockNotarizationRepo),
		new(MockContentStore), new(MockNotary), new(MockNotificationService), new(MockEmailService), nil, service.AgreementOptions{})

	agreementRepo.On("List", ctx, repository.AgreementFilter{OwnerID: "owner-1"}).Return([]domain.Agreement{{ID: "a-1"}}, nil)
	agreementRepo.On("List", ctx, repository.AgreementFilter{TenantID: "tenant-1"}).Return([]domain.Agreement{{ID: "a-2"}}, nil)
	agreementRepo.On("List", ctx, repository.AgreementFilter{}).Return([]domain.Agreement{{ID: "a-1"}, {ID: "a-2"}}, nil)

	owned, err := svc.ListAgreements(ctx, ownerActor)
	require.NoError(t, err)
	assert.Equal(t, "a-1", owned[0].ID)

	rented, err := svc.ListAgreements(ctx, tenantActor)
	require.NoError(t, err)
	assert.Equal(t, "a-2", rented[0].ID)

	all, err := svc.ListAgreements(ctx, adminActor)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.ListAgreements(ctx, domain.Actor{})
	assert.Equal(t, domain.KindUnauthorized, domain.KindOf(err))
}
