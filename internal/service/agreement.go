package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rentchain-backend/internal/domain"
	"rentchain-backend/internal/ledger"
	"rentchain-backend/internal/logger"
	"rentchain-backend/internal/metrics"
	"rentchain-backend/internal/repository"
	"rentchain-backend/internal/storage"
	"rentchain-backend/internal/utils"
)

// AgreementOptions tunes the finalizer. Zero values fall back to defaults.
type AgreementOptions struct {
	// RentDecimals is the number of decimal places of the ledger's rent unit.
	RentDecimals int32
	// Location decides the calendar day "today" for start-date checks.
	Location *time.Location
	// StaleAfter is how long a notarization may sit unrecorded before it is reported.
	StaleAfter time.Duration
	Now        func() time.Time
}

type agreementService struct {
	offerRepo        repository.OfferRepository
	agreementRepo    repository.AgreementRepository
	notarizationRepo repository.NotarizationRepository
	store            storage.ContentStore
	notary           ledger.Notary
	notifier         NotificationService
	emailSvc         EmailService
	metrics          *metrics.Metrics
	rentDecimals     int32
	loc              *time.Location
	staleAfter       time.Duration
	now              func() time.Time
}

func NewAgreementService(
	offerRepo repository.OfferRepository,
	agreementRepo repository.AgreementRepository,
	notarizationRepo repository.NotarizationRepository,
	store storage.ContentStore,
	notary ledger.Notary,
	notifier NotificationService,
	emailSvc EmailService,
	m *metrics.Metrics,
	opts AgreementOptions,
) AgreementService {
	s := &agreementService{
		offerRepo:        offerRepo,
		agreementRepo:    agreementRepo,
		notarizationRepo: notarizationRepo,
		store:            store,
		notary:           notary,
		notifier:         notifier,
		emailSvc:         emailSvc,
		metrics:          m,
		rentDecimals:     opts.RentDecimals,
		loc:              opts.Location,
		staleAfter:       opts.StaleAfter,
		now:              opts.Now,
	}
	if s.rentDecimals == 0 {
		s.rentDecimals = ledger.DefaultRentDecimals
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.staleAfter <= 0 {
		s.staleAfter = 30 * time.Minute
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *agreementService) FinalizeAgreement(ctx context.Context, actor domain.Actor, req FinalizeRequest) (agreement *domain.Agreement, err error) {
	logger.EnterMethod("agreementService.FinalizeAgreement", "actorID", actor.ID, "offerID", req.OfferID,
		"startDate", req.StartDate, "endDate", req.EndDate)
	defer func() {
		if err != nil {
			s.metrics.FinalizeOutcome(string(domain.KindOf(err)))
			logger.ExitMethodWithError("agreementService.FinalizeAgreement", err, "offerID", req.OfferID)
			return
		}
		s.metrics.FinalizeOutcome("ok")
		logger.ExitMethod("agreementService.FinalizeAgreement", "agreementID", agreement.ID)
	}()

	offer, start, end, err := s.checkFinalize(ctx, actor, req)
	if err != nil {
		return nil, err
	}

	journal, err := s.notarizationRepo.GetByOfferID(ctx, offer.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if journal != nil {
		switch journal.Status {
		case domain.NotarizationStatusSubmitting:
			return nil, domain.NewError(domain.KindConflict, "notarization for offer %s is already in progress", offer.ID)
		case domain.NotarizationStatusRecorded:
			return nil, domain.NewError(domain.KindConflict, "offer %s is already finalized", offer.ID)
		case domain.NotarizationStatusConfirmed:
			// The ledger already holds this agreement; only the local record is missing.
			if !journal.Covers(start.String(), end.String()) {
				return nil, domain.NewError(domain.KindConflict,
					"offer %s was notarized for %s to %s; finalize with those dates to record it",
					offer.ID, journal.StartDate, journal.EndDate)
			}
			var txHash string
			var onChainID uint64
			if journal.TxHash != nil {
				txHash = *journal.TxHash
			}
			if journal.OnChainID != nil {
				onChainID = *journal.OnChainID
			}
			logger.WithOffer(offer.ID).WarnContext(ctx, "Resuming confirmed notarization", "txHash", txHash, "contentID", journal.ContentID)
			return s.record(ctx, offer, start, end, journal.ContentID, txHash, onChainID)
		}
	}

	doc, err := buildAgreementDocument(offer, start, end, s.now())
	if err != nil {
		return nil, domain.WrapError(domain.KindInternal, err, "build agreement document")
	}
	contentID, err := s.store.PinDocument(ctx, "agreement-"+offer.ID, doc)
	if err != nil {
		return nil, asKind(err, domain.KindStoreUnavailable)
	}

	rentUnits, err := ledger.RentToMinorUnits(offer.RentAmount, s.rentDecimals)
	if err != nil {
		return nil, domain.WrapError(domain.KindValidation, err, "convert rent")
	}

	if err := s.notarizationRepo.Begin(ctx, domain.Notarization{
		OfferID:   offer.ID,
		ContentID: contentID,
		StartDate: start.String(),
		EndDate:   end.String(),
	}); err != nil {
		return nil, err
	}

	sentAt := time.Now()
	receipt, err := s.notary.Submit(ctx, ledger.Notarization{
		TenantAddress:  *offer.Tenant.WalletAddress,
		PropertyID:     offer.PropertyID,
		RentMinorUnits: rentUnits,
		StartEpoch:     start.Unix(),
		EndEpoch:       end.Unix(),
		ContentID:      contentID,
	})
	if err != nil {
		var be *ledger.BroadcastError
		if errors.As(err, &be) {
			// The transaction may still be mined; keep the journal row SUBMITTING
			// so the stale-notarization report surfaces it.
			logger.WithOffer(offer.ID).ErrorContext(ctx, "Notarization outcome unknown", "txHash", be.TxHash, "error", err)
		} else if ferr := s.notarizationRepo.MarkFailed(context.WithoutCancel(ctx), offer.ID, err.Error()); ferr != nil {
			logger.WithOffer(offer.ID).ErrorContext(ctx, "Failed to mark notarization failed", "error", ferr)
		}
		return nil, asKind(err, domain.KindLedgerUnavailable)
	}
	s.metrics.ObserveLedgerSubmit(time.Since(sentAt))

	if !receipt.EventFound {
		logger.WithOffer(offer.ID).WarnContext(ctx, "Agreement recorded without on-chain id", "txHash", receipt.TxHash)
		s.metrics.LedgerMissingEvent()
	}

	if err := s.notarizationRepo.MarkConfirmed(ctx, offer.ID, receipt.TxHash, receipt.OnChainID); err != nil {
		logger.WithOffer(offer.ID).ErrorContext(ctx, "Failed to journal confirmed notarization", "txHash", receipt.TxHash, "error", err)
	}

	return s.record(ctx, offer, start, end, contentID, receipt.TxHash, receipt.OnChainID)
}

// checkFinalize runs the finalize preconditions in order and returns the
// loaded offer with its parsed dates.
func (s *agreementService) checkFinalize(ctx context.Context, actor domain.Actor, req FinalizeRequest) (*domain.Offer, utils.Date, utils.Date, error) {
	var zero utils.Date

	if !actor.Authenticated() {
		return nil, zero, zero, domain.NewError(domain.KindUnauthorized, "authentication required")
	}
	if actor.Role != domain.RoleOwner {
		return nil, zero, zero, domain.NewError(domain.KindForbidden, "only owners can finalize agreements")
	}

	start, err := utils.ParseDate(req.StartDate)
	if err != nil {
		return nil, zero, zero, domain.WrapError(domain.KindValidation, err, "start date")
	}
	end, err := utils.ParseDate(req.EndDate)
	if err != nil {
		return nil, zero, zero, domain.WrapError(domain.KindValidation, err, "end date")
	}
	today := utils.Today(s.now(), s.loc)
	if start.Before(today) && !s.resumable(ctx, req.OfferID, start, end) {
		return nil, zero, zero, domain.NewError(domain.KindValidation, "start date %s is before today (%s)", start, today)
	}
	if !end.After(start) {
		return nil, zero, zero, domain.NewError(domain.KindValidation, "end date %s must be after start date %s", end, start)
	}

	offer, err := s.offerRepo.GetByID(ctx, req.OfferID)
	if err != nil {
		return nil, zero, zero, err
	}
	if offer.Status != domain.OfferStatusAccepted {
		return nil, zero, zero, domain.NewError(domain.KindInvalidState, "offer %s is %s, not ACCEPTED", offer.ID, offer.Status)
	}
	if offer.Property == nil || offer.Property.OwnerID != actor.ID {
		return nil, zero, zero, domain.NewError(domain.KindForbidden, "offer %s is for a property you do not own", offer.ID)
	}

	if _, err := s.agreementRepo.GetByOfferID(ctx, offer.ID); err == nil {
		return nil, zero, zero, domain.NewError(domain.KindConflict, "offer %s is already finalized", offer.ID)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, zero, zero, err
	}

	if offer.Tenant == nil || !offer.Tenant.HasWallet() {
		return nil, zero, zero, domain.NewError(domain.KindPrecondition, "tenant has not linked a wallet")
	}
	if !offer.Property.IsAvailable {
		return nil, zero, zero, domain.NewError(domain.KindUnavailable, "property %s is no longer available", offer.PropertyID)
	}

	return offer, start, end, nil
}

// resumable reports whether offerID has a CONFIRMED notarization for exactly
// these dates. Such a row may be recorded after its start date has passed.
func (s *agreementService) resumable(ctx context.Context, offerID string, start, end utils.Date) bool {
	journal, err := s.notarizationRepo.GetByOfferID(ctx, offerID)
	if err != nil {
		return false
	}
	return journal.Status == domain.NotarizationStatusConfirmed && journal.Covers(start.String(), end.String())
}

// record persists the agreement for a confirmed ledger transaction. Any
// failure other than a concurrent finalize leaves the ledger record without a
// local agreement and is reported as a reconciliation error.
func (s *agreementService) record(ctx context.Context, offer *domain.Offer, start, end utils.Date, contentID, txHash string, onChainID uint64) (*domain.Agreement, error) {
	agreement := &domain.Agreement{
		OfferID:     offer.ID,
		PropertyID:  offer.PropertyID,
		OwnerID:     offer.Property.OwnerID,
		TenantID:    offer.TenantID,
		MonthlyRent: offer.RentAmount,
		StartDate:   start.String(),
		EndDate:     end.String(),
		ContentID:   contentID,
		OnChainID:   onChainID,
		TxHash:      txHash,
		Status:      domain.AgreementStatusActive,
	}

	if err := s.agreementRepo.Create(ctx, agreement); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		return nil, &domain.ReconciliationError{
			OfferID:   offer.ID,
			ContentID: contentID,
			TxHash:    txHash,
			OnChainID: onChainID,
			Err:       err,
		}
	}

	logger.WithOffer(offer.ID).InfoContext(ctx, "Agreement finalized", "agreementID", agreement.ID,
		"contentID", contentID, "txHash", txHash, "onChainID", onChainID)

	s.notifyFinalized(ctx, offer, agreement)
	return agreement, nil
}

func (s *agreementService) notifyFinalized(ctx context.Context, offer *domain.Offer, a *domain.Agreement) {
	title := offer.Property.Title
	_ = s.emailSvc.SendAgreementFinalized(ctx, offer.Tenant.Email, offer.Tenant.Name, title, a)
	for _, userID := range []string{a.OwnerID, a.TenantID} {
		_ = s.notifier.Notify(ctx, &domain.Notification{
			UserID:  userID,
			Title:   "Agreement Finalized",
			Message: fmt.Sprintf("The rental agreement for %s from %s to %s is recorded", title, a.StartDate, a.EndDate),
			Attributes: map[string]string{
				"type":         "AGREEMENT_FINALIZED",
				"agreement_id": a.ID,
				"content_id":   a.ContentID,
				"tx_hash":      a.TxHash,
			},
		})
	}
}

func (s *agreementService) ListAgreements(ctx context.Context, actor domain.Actor) ([]domain.Agreement, error) {
	if !actor.Authenticated() {
		return nil, domain.NewError(domain.KindUnauthorized, "authentication required")
	}
	var filter repository.AgreementFilter
	switch actor.Role {
	case domain.RoleOwner:
		filter.OwnerID = actor.ID
	case domain.RoleTenant:
		filter.TenantID = actor.ID
	}
	return s.agreementRepo.List(ctx, filter)
}

func (s *agreementService) VerifyAgreement(ctx context.Context, actor domain.Actor, agreementID string) (*AgreementVerification, error) {
	logger.EnterMethod("agreementService.VerifyAgreement", "actorID", actor.ID, "agreementID", agreementID)

	if !actor.Authenticated() {
		return nil, domain.NewError(domain.KindUnauthorized, "authentication required")
	}
	a, err := s.agreementRepo.GetByID(ctx, agreementID)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleAdmin && actor.ID != a.OwnerID && actor.ID != a.TenantID {
		return nil, domain.NewError(domain.KindForbidden, "agreement %s is not yours", agreementID)
	}
	if a.OnChainID == 0 {
		return nil, domain.NewError(domain.KindPrecondition, "agreement %s has no on-chain id to verify (tx %s)", agreementID, a.TxHash)
	}

	ok, err := s.notary.Verify(ctx, a.OnChainID, a.ContentID)
	if err != nil {
		logger.ExitMethodWithError("agreementService.VerifyAgreement", err)
		return nil, asKind(err, domain.KindLedgerUnavailable)
	}
	if !ok {
		logger.Warn("Agreement content id does not match ledger", "agreementID", agreementID, "onChainID", a.OnChainID)
	}

	logger.ExitMethod("agreementService.VerifyAgreement", "verified", ok)
	return &AgreementVerification{
		AgreementID: a.ID,
		OnChainID:   a.OnChainID,
		ContentID:   a.ContentID,
		TxHash:      a.TxHash,
		Verified:    ok,
	}, nil
}

func (s *agreementService) ListStaleNotarizations(ctx context.Context, actor domain.Actor) ([]domain.Notarization, error) {
	if !actor.Authenticated() {
		return nil, domain.NewError(domain.KindUnauthorized, "authentication required")
	}
	if actor.Role != domain.RoleAdmin {
		return nil, domain.NewError(domain.KindForbidden, "admin role required")
	}
	return s.notarizationRepo.ListStale(ctx, s.now().Add(-s.staleAfter))
}

// asKind classifies errors from collaborators that did not classify them.
func asKind(err error, kind domain.ErrorKind) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	return domain.WrapError(kind, err, "%s", kind)
}
