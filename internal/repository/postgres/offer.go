package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"rentchain-backend/internal/domain"
	"rentchain-backend/internal/logger"
	"rentchain-backend/internal/repository"

	"github.com/google/uuid"
)

const pendingOfferIndex = "offers_one_pending_per_tenant"

type offerRepository struct {
	db *sql.DB
}

func NewOfferRepository(db *sql.DB) repository.OfferRepository {
	return &offerRepository{db: db}
}

func (r *offerRepository) Create(ctx context.Context, o *domain.Offer) error {
	logger.EnterMethod("offerRepository.Create", "propertyID", o.PropertyID, "tenantID", o.TenantID)

	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	now := time.Now()
	o.Status = domain.OfferStatusPending
	o.CreatedOn = now.Format(time.RFC3339)
	o.UpdatedOn = o.CreatedOn

	query := `INSERT INTO offers (id, property_id, tenant_id, rent_amount, message, status, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	logger.DatabaseCall("INSERT", "offers", "offerID", o.ID)
	_, err := r.db.ExecContext(ctx, query, o.ID, o.PropertyID, o.TenantID, o.RentAmount, o.Message, o.Status, now, now)
	logger.DatabaseResult("INSERT", 1, err, "offerID", o.ID)
	if err != nil {
		logger.ExitMethodWithError("offerRepository.Create", err)
		if isUniqueViolation(err, pendingOfferIndex) {
			return domain.NewError(domain.KindConflict, "a pending offer already exists for property %s", o.PropertyID)
		}
		return mapError(err, "offer "+o.ID)
	}

	logger.ExitMethod("offerRepository.Create", "offerID", o.ID)
	return nil
}

const offerSelect = `SELECT o.id, o.property_id, o.tenant_id, o.rent_amount, o.message, o.status, o.created_on, o.updated_on,
	       p.owner_id, p.title, p.location, p.monthly_rent, p.is_available,
	       u.email, u.name, u.role, u.wallet_address
	FROM offers o
	JOIN properties p ON p.id = o.property_id
	JOIN users u ON u.id = o.tenant_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOffer(row rowScanner) (*domain.Offer, error) {
	o := &domain.Offer{Property: &domain.Property{}, Tenant: &domain.User{}}
	var createdOn, updatedOn time.Time
	err := row.Scan(&o.ID, &o.PropertyID, &o.TenantID, &o.RentAmount, &o.Message, &o.Status, &createdOn, &updatedOn,
		&o.Property.OwnerID, &o.Property.Title, &o.Property.Location, &o.Property.MonthlyRent, &o.Property.IsAvailable,
		&o.Tenant.Email, &o.Tenant.Name, &o.Tenant.Role, &o.Tenant.WalletAddress)
	if err != nil {
		return nil, err
	}
	o.Property.ID = o.PropertyID
	o.Tenant.ID = o.TenantID
	o.CreatedOn = createdOn.Format(time.RFC3339)
	o.UpdatedOn = updatedOn.Format(time.RFC3339)
	return o, nil
}

func (r *offerRepository) GetByID(ctx context.Context, id string) (*domain.Offer, error) {
	o, err := scanOffer(r.db.QueryRowContext(ctx, offerSelect+` WHERE o.id = $1`, id))
	if err != nil {
		return nil, mapError(err, "offer "+id)
	}
	return o, nil
}

func (r *offerRepository) HasPending(ctx context.Context, propertyID, tenantID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM offers WHERE property_id = $1 AND tenant_id = $2 AND status = 'PENDING')`
	if err := r.db.QueryRowContext(ctx, query, propertyID, tenantID).Scan(&exists); err != nil {
		return false, mapError(err, "offers on property "+propertyID)
	}
	return exists, nil
}

// notPending explains why a conditional update on a PENDING offer touched no rows.
func notPending(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}, id string) error {
	var status domain.OfferStatus
	err := q.QueryRowContext(ctx, `SELECT status FROM offers WHERE id = $1`, id).Scan(&status)
	if err != nil {
		return mapError(err, "offer "+id)
	}
	return domain.NewError(domain.KindInvalidState, "offer %s is %s, not PENDING", id, status)
}

func (r *offerRepository) Transition(ctx context.Context, id string, status domain.OfferStatus) error {
	logger.EnterMethod("offerRepository.Transition", "offerID", id, "status", status)

	query := `UPDATE offers SET status = $1, updated_on = $2 WHERE id = $3 AND status = 'PENDING'`
	logger.DatabaseCall("UPDATE", "offers", "offerID", id)
	result, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		logger.ExitMethodWithError("offerRepository.Transition", err)
		return mapError(err, "offer "+id)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return mapError(err, "offer "+id)
	}
	logger.DatabaseResult("UPDATE", rows, nil)
	if rows == 0 {
		return notPending(ctx, r.db, id)
	}

	logger.ExitMethod("offerRepository.Transition")
	return nil
}

func (r *offerRepository) Accept(ctx context.Context, id string) ([]string, error) {
	logger.EnterMethod("offerRepository.Accept", "offerID", id)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, mapError(err, "offer "+id)
	}
	defer tx.Rollback()

	now := time.Now()
	var propertyID string
	err = tx.QueryRowContext(ctx,
		`UPDATE offers SET status = 'ACCEPTED', updated_on = $1 WHERE id = $2 AND status = 'PENDING' RETURNING property_id`,
		now, id).Scan(&propertyID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notPending(ctx, tx, id)
	}
	if err != nil {
		logger.ExitMethodWithError("offerRepository.Accept", err)
		return nil, mapError(err, "offer "+id)
	}

	rows, err := tx.QueryContext(ctx,
		`UPDATE offers SET status = 'REJECTED', updated_on = $1
		 WHERE property_id = $2 AND id <> $3 AND status = 'PENDING' RETURNING id`,
		now, propertyID, id)
	if err != nil {
		logger.ExitMethodWithError("offerRepository.Accept", err)
		return nil, mapError(err, "offers on property "+propertyID)
	}
	var rejected []string
	for rows.Next() {
		var rid string
		if err := rows.Scan(&rid); err != nil {
			rows.Close()
			return nil, mapError(err, "offers on property "+propertyID)
		}
		rejected = append(rejected, rid)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "offers on property "+propertyID)
	}

	if err := tx.Commit(); err != nil {
		logger.ExitMethodWithError("offerRepository.Accept", err)
		return nil, mapError(err, "offer "+id)
	}

	logger.ExitMethod("offerRepository.Accept", "propertyID", propertyID, "rejectedCount", len(rejected))
	return rejected, nil
}

func (r *offerRepository) List(ctx context.Context, f repository.OfferFilter) ([]domain.Offer, error) {
	var conds []string
	var args []any
	add := func(cond, val string) {
		if val == "" {
			return
		}
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	add("o.property_id = $%d", f.PropertyID)
	add("o.tenant_id = $%d", f.TenantID)
	add("p.owner_id = $%d", f.OwnerID)

	query := offerSelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY o.created_on DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "offers")
	}
	defer rows.Close()

	var offers []domain.Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, mapError(err, "offers")
		}
		offers = append(offers, *o)
	}
	return offers, mapError(rows.Err(), "offers")
}
