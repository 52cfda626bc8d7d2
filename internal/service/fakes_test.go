package service_test

import (
	"context"
	"sync"
	"time"

	"rentchain-backend/internal/domain"
	"rentchain-backend/internal/repository"

	"github.com/google/uuid"
)

// memoryDB keeps users, properties, offers, agreements and the notarization
// journal in memory and enforces the same uniqueness rules as the schema.
type memoryDB struct {
	mu            sync.Mutex
	users         map[string]domain.User
	properties    map[string]domain.Property
	offers        map[string]domain.Offer
	agreements    map[string]domain.Agreement
	notarizations map[string]domain.Notarization
}

func newMemoryDB() *memoryDB {
	return &memoryDB{
		users:         map[string]domain.User{},
		properties:    map[string]domain.Property{},
		offers:        map[string]domain.Offer{},
		agreements:    map[string]domain.Agreement{},
		notarizations: map[string]domain.Notarization{},
	}
}

func (db *memoryDB) Users() repository.UserRepository                 { return memUsers{db} }
func (db *memoryDB) Properties() repository.PropertyRepository        { return memProperties{db} }
func (db *memoryDB) Offers() repository.OfferRepository               { return memOffers{db} }
func (db *memoryDB) Agreements() repository.AgreementRepository       { return memAgreements{db} }
func (db *memoryDB) Notarizations() repository.NotarizationRepository { return memNotarizations{db} }

func (db *memoryDB) property(id string) domain.Property {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.properties[id]
}

func (db *memoryDB) offer(id string) domain.Offer {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.offers[id]
}

func (db *memoryDB) agreementCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.agreements)
}

type memUsers struct{ db *memoryDB }

func (r memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil, domain.NewError(domain.KindNotFound, "user %s not found", id)
	}
	return &u, nil
}

func (r memUsers) LinkWallet(_ context.Context, userID, address string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[userID]
	if !ok {
		return domain.NewError(domain.KindNotFound, "user %s not found", userID)
	}
	if u.HasWallet() {
		return domain.NewError(domain.KindForbidden, "wallet already linked")
	}
	for _, other := range r.db.users {
		if other.HasWallet() && *other.WalletAddress == address {
			return domain.NewError(domain.KindConflict, "wallet linked to another user")
		}
	}
	u.WalletAddress = &address
	r.db.users[userID] = u
	return nil
}

type memProperties struct{ db *memoryDB }

func (r memProperties) GetByID(_ context.Context, id string) (*domain.Property, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.properties[id]
	if !ok {
		return nil, domain.NewError(domain.KindNotFound, "property %s not found", id)
	}
	return &p, nil
}

type memOffers struct{ db *memoryDB }

func (r memOffers) Create(_ context.Context, offer *domain.Offer) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, o := range r.db.offers {
		if o.PropertyID == offer.PropertyID && o.TenantID == offer.TenantID && o.Status == domain.OfferStatusPending {
			return domain.NewError(domain.KindConflict, "pending offer exists")
		}
	}
	offer.ID = uuid.NewString()
	offer.Status = domain.OfferStatusPending
	stored := *offer
	stored.Property, stored.Tenant = nil, nil
	r.db.offers[offer.ID] = stored
	return nil
}

func (r memOffers) GetByID(_ context.Context, id string) (*domain.Offer, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	o, ok := r.db.offers[id]
	if !ok {
		return nil, domain.NewError(domain.KindNotFound, "offer %s not found", id)
	}
	p := r.db.properties[o.PropertyID]
	u := r.db.users[o.TenantID]
	o.Property, o.Tenant = &p, &u
	return &o, nil
}

func (r memOffers) HasPending(_ context.Context, propertyID, tenantID string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, o := range r.db.offers {
		if o.PropertyID == propertyID && o.TenantID == tenantID && o.Status == domain.OfferStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (r memOffers) Transition(_ context.Context, id string, status domain.OfferStatus) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	o := r.db.offers[id]
	if o.Status != domain.OfferStatusPending {
		return domain.NewError(domain.KindInvalidState, "offer %s is %s", id, o.Status)
	}
	o.Status = status
	r.db.offers[id] = o
	return nil
}

func (r memOffers) Accept(_ context.Context, id string) ([]string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	target := r.db.offers[id]
	if target.Status != domain.OfferStatusPending {
		return nil, domain.NewError(domain.KindInvalidState, "offer %s is %s", id, target.Status)
	}
	target.Status = domain.OfferStatusAccepted
	r.db.offers[id] = target

	var rejected []string
	for oid, o := range r.db.offers {
		if oid != id && o.PropertyID == target.PropertyID && o.Status == domain.OfferStatusPending {
			o.Status = domain.OfferStatusRejected
			r.db.offers[oid] = o
			rejected = append(rejected, oid)
		}
	}
	return rejected, nil
}

func (r memOffers) List(_ context.Context, filter repository.OfferFilter) ([]domain.Offer, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []domain.Offer
	for _, o := range r.db.offers {
		if filter.PropertyID != "" && o.PropertyID != filter.PropertyID {
			continue
		}
		if filter.TenantID != "" && o.TenantID != filter.TenantID {
			continue
		}
		if filter.OwnerID != "" && r.db.properties[o.PropertyID].OwnerID != filter.OwnerID {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

type memAgreements struct{ db *memoryDB }

func (r memAgreements) GetByID(_ context.Context, id string) (*domain.Agreement, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a, ok := r.db.agreements[id]
	if !ok {
		return nil, domain.NewError(domain.KindNotFound, "agreement %s not found", id)
	}
	return &a, nil
}

func (r memAgreements) GetByOfferID(_ context.Context, offerID string) (*domain.Agreement, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, a := range r.db.agreements {
		if a.OfferID == offerID {
			return &a, nil
		}
	}
	return nil, domain.NewError(domain.KindNotFound, "no agreement for offer %s", offerID)
}

func (r memAgreements) Create(_ context.Context, a *domain.Agreement) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.agreements {
		if existing.OfferID == a.OfferID {
			return domain.NewError(domain.KindConflict, "offer %s already finalized", a.OfferID)
		}
	}
	a.ID = uuid.NewString()
	r.db.agreements[a.ID] = *a

	p := r.db.properties[a.PropertyID]
	p.IsAvailable = false
	r.db.properties[a.PropertyID] = p

	if n, ok := r.db.notarizations[a.OfferID]; ok {
		n.Status = domain.NotarizationStatusRecorded
		r.db.notarizations[a.OfferID] = n
	}
	return nil
}

func (r memAgreements) List(_ context.Context, _ repository.AgreementFilter) ([]domain.Agreement, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []domain.Agreement
	for _, a := range r.db.agreements {
		out = append(out, a)
	}
	return out, nil
}

func (r memAgreements) ExpireEnded(_ context.Context, _ string) ([]domain.Agreement, error) {
	return nil, nil
}

type memNotarizations struct{ db *memoryDB }

func (r memNotarizations) GetByOfferID(_ context.Context, offerID string) (*domain.Notarization, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n, ok := r.db.notarizations[offerID]
	if !ok {
		return nil, domain.NewError(domain.KindNotFound, "no notarization for offer %s", offerID)
	}
	return &n, nil
}

func (r memNotarizations) Begin(_ context.Context, n domain.Notarization) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if existing, ok := r.db.notarizations[n.OfferID]; ok && existing.Status != domain.NotarizationStatusFailed {
		return domain.NewError(domain.KindConflict, "notarization for offer %s in progress", n.OfferID)
	}
	r.db.notarizations[n.OfferID] = domain.Notarization{
		OfferID:   n.OfferID,
		ContentID: n.ContentID,
		StartDate: n.StartDate,
		EndDate:   n.EndDate,
		Status:    domain.NotarizationStatusSubmitting,
		CreatedOn: time.Now(),
		UpdatedOn: time.Now(),
	}
	return nil
}

func (r memNotarizations) MarkConfirmed(_ context.Context, offerID, txHash string, onChainID uint64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n := r.db.notarizations[offerID]
	n.TxHash, n.OnChainID = &txHash, &onChainID
	n.Status = domain.NotarizationStatusConfirmed
	r.db.notarizations[offerID] = n
	return nil
}

func (r memNotarizations) MarkFailed(_ context.Context, offerID, reason string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n := r.db.notarizations[offerID]
	n.Status = domain.NotarizationStatusFailed
	n.LastError = reason
	r.db.notarizations[offerID] = n
	return nil
}

func (r memNotarizations) ListStale(_ context.Context, before time.Time) ([]domain.Notarization, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []domain.Notarization
	for _, n := range r.db.notarizations {
		if (n.Status == domain.NotarizationStatusSubmitting || n.Status == domain.NotarizationStatusConfirmed) && n.UpdatedOn.Before(before) {
			out = append(out, n)
		}
	}
	return out, nil
}
