package service

import (
	"context"
	"fmt"

	"rentchain-backend/internal/domain"
	"rentchain-backend/internal/logger"
	"rentchain-backend/internal/metrics"
	"rentchain-backend/internal/repository"

	"github.com/shopspring/decimal"
)

type offerService struct {
	offerRepo    repository.OfferRepository
	propertyRepo repository.PropertyRepository
	userRepo     repository.UserRepository
	notifier     NotificationService
	emailSvc     EmailService
	metrics      *metrics.Metrics
}

func NewOfferService(
	offerRepo repository.OfferRepository,
	propertyRepo repository.PropertyRepository,
	userRepo repository.UserRepository,
	notifier NotificationService,
	emailSvc EmailService,
	m *metrics.Metrics,
) OfferService {
	return &offerService{
		offerRepo:    offerRepo,
		propertyRepo: propertyRepo,
		userRepo:     userRepo,
		notifier:     notifier,
		emailSvc:     emailSvc,
		metrics:      m,
	}
}

func (s *offerService) PlaceOffer(ctx context.Context, actor domain.Actor, propertyID string, rentAmount decimal.Decimal, message *string) (*domain.Offer, error) {
	logger.EnterMethod("offerService.PlaceOffer", "actorID", actor.ID, "propertyID", propertyID)

	if !actor.Authenticated() {
		return nil, domain.NewError(domain.KindUnauthorized, "authentication required")
	}
	if actor.Role != domain.RoleTenant {
		return nil, domain.NewError(domain.KindForbidden, "only tenants can place offers")
	}
	if !rentAmount.IsPositive() {
		return nil, domain.NewError(domain.KindValidation, "rent amount must be greater than zero")
	}
	if !rentAmount.Equal(rentAmount.Truncate(2)) {
		return nil, domain.NewError(domain.KindValidation, "rent amount %s has more than 2 decimal places", rentAmount)
	}

	property, err := s.propertyRepo.GetByID(ctx, propertyID)
	if err != nil {
		logger.ExitMethodWithError("offerService.PlaceOffer", err)
		return nil, err
	}
	if !property.IsAvailable {
		return nil, domain.NewError(domain.KindUnavailable, "property %s is not available", propertyID)
	}

	pending, err := s.offerRepo.HasPending(ctx, propertyID, actor.ID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, domain.NewError(domain.KindConflict, "a pending offer already exists for property %s", propertyID)
	}

	offer := &domain.Offer{
		PropertyID: propertyID,
		TenantID:   actor.ID,
		RentAmount: rentAmount,
		Message:    message,
		Property:   property,
	}
	if err := s.offerRepo.Create(ctx, offer); err != nil {
		logger.ExitMethodWithError("offerService.PlaceOffer", err)
		return nil, err
	}
	s.metrics.OfferTransition(string(domain.OfferStatusPending), 1)

	// Notify owner
	owner, _ := s.userRepo.GetByID(ctx, property.OwnerID)
	tenant, _ := s.userRepo.GetByID(ctx, actor.ID)
	if owner != nil && tenant != nil {
		_ = s.emailSvc.SendOfferReceived(ctx, owner.Email, owner.Name, tenant.Name, property.Title, rentAmount)
		_ = s.notifier.Notify(ctx, &domain.Notification{
			UserID:  owner.ID,
			Title:   "New Offer",
			Message: fmt.Sprintf("%s offered %s for %s", tenant.Name, rentAmount.String(), property.Title),
			Attributes: map[string]string{
				"type":     "OFFER_PLACED",
				"offer_id": offer.ID,
			},
		})
	}

	logger.ExitMethod("offerService.PlaceOffer", "offerID", offer.ID)
	return offer, nil
}

func (s *offerService) TransitionOffer(ctx context.Context, actor domain.Actor, offerID string, action domain.OfferAction) (*domain.Offer, error) {
	logger.EnterMethod("offerService.TransitionOffer", "actorID", actor.ID, "offerID", offerID, "action", action)

	if !actor.Authenticated() {
		return nil, domain.NewError(domain.KindUnauthorized, "authentication required")
	}

	offer, err := s.offerRepo.GetByID(ctx, offerID)
	if err != nil {
		logger.ExitMethodWithError("offerService.TransitionOffer", err)
		return nil, err
	}
	target, ok := action.TargetStatus()
	if !ok {
		return nil, domain.NewError(domain.KindValidation, "unknown offer action %q", action)
	}
	if offer.Status != domain.OfferStatusPending {
		return nil, domain.NewError(domain.KindInvalidState, "offer %s is %s, not PENDING", offerID, offer.Status)
	}

	switch action {
	case domain.OfferActionWithdraw:
		if actor.ID != offer.TenantID {
			return nil, domain.NewError(domain.KindForbidden, "only the tenant who placed the offer can withdraw it")
		}
	default:
		if offer.Property == nil || actor.ID != offer.Property.OwnerID {
			return nil, domain.NewError(domain.KindForbidden, "only the property owner can %s an offer", action)
		}
	}

	if action == domain.OfferActionAccept {
		rejected, err := s.offerRepo.Accept(ctx, offerID)
		if err != nil {
			logger.ExitMethodWithError("offerService.TransitionOffer", err)
			return nil, err
		}
		s.metrics.OfferTransition(string(domain.OfferStatusRejected), len(rejected))
		if len(rejected) > 0 {
			logger.Info("Competing offers rejected", "offerID", offerID, "rejectedOfferIDs", rejected)
		}
	} else if err := s.offerRepo.Transition(ctx, offerID, target); err != nil {
		logger.ExitMethodWithError("offerService.TransitionOffer", err)
		return nil, err
	}
	s.metrics.OfferTransition(string(target), 1)
	offer.Status = target

	s.notifyTransition(ctx, offer)

	logger.ExitMethod("offerService.TransitionOffer", "offerID", offerID, "status", target)
	return offer, nil
}

func (s *offerService) notifyTransition(ctx context.Context, offer *domain.Offer) {
	title := ""
	if offer.Property != nil {
		title = offer.Property.Title
	}

	if offer.Status == domain.OfferStatusWithdrawn {
		if offer.Property == nil {
			return
		}
		_ = s.notifier.Notify(ctx, &domain.Notification{
			UserID:  offer.Property.OwnerID,
			Title:   "Offer Withdrawn",
			Message: fmt.Sprintf("An offer for %s was withdrawn", title),
			Attributes: map[string]string{
				"type":     "OFFER_WITHDRAWN",
				"offer_id": offer.ID,
			},
		})
		return
	}

	if offer.Tenant != nil {
		_ = s.emailSvc.SendOfferDecision(ctx, offer.Tenant.Email, offer.Tenant.Name, title, offer.Status)
	}
	_ = s.notifier.Notify(ctx, &domain.Notification{
		UserID:  offer.TenantID,
		Title:   "Offer " + string(offer.Status),
		Message: fmt.Sprintf("Your offer for %s was %s", title, offer.Status),
		Attributes: map[string]string{
			"type":     "OFFER_" + string(offer.Status),
			"offer_id": offer.ID,
		},
	})
}

func (s *offerService) ListOffers(ctx context.Context, actor domain.Actor, propertyID string) ([]domain.Offer, error) {
	if !actor.Authenticated() {
		return nil, domain.NewError(domain.KindUnauthorized, "authentication required")
	}

	filter := repository.OfferFilter{PropertyID: propertyID}
	switch actor.Role {
	case domain.RoleTenant:
		filter.TenantID = actor.ID
	case domain.RoleOwner:
		if propertyID != "" {
			property, err := s.propertyRepo.GetByID(ctx, propertyID)
			if err != nil {
				return nil, err
			}
			if property.OwnerID != actor.ID {
				return nil, domain.NewError(domain.KindForbidden, "property %s belongs to another owner", propertyID)
			}
		}
		filter.OwnerID = actor.ID
	}
	return s.offerRepo.List(ctx, filter)
}
