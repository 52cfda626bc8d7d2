package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"rentchain-backend/internal/domain"
	"rentchain-backend/internal/logger"
	"rentchain-backend/internal/repository"
	"rentchain-backend/internal/utils"

	"github.com/google/uuid"
)

const (
	agreementOfferIndex  = "agreements_offer_id_key"
	activeAgreementIndex = "agreements_one_active_per_property"
)

type agreementRepository struct {
	db *sql.DB
}

func NewAgreementRepository(db *sql.DB) repository.AgreementRepository {
	return &agreementRepository{db: db}
}

const agreementColumns = `id, offer_id, property_id, owner_id, tenant_id, monthly_rent, start_date, end_date,
	content_id, on_chain_id, tx_hash, status, created_on, updated_on`

func scanAgreement(row rowScanner) (*domain.Agreement, error) {
	a := &domain.Agreement{}
	var start, end, createdOn, updatedOn time.Time
	err := row.Scan(&a.ID, &a.OfferID, &a.PropertyID, &a.OwnerID, &a.TenantID, &a.MonthlyRent, &start, &end,
		&a.ContentID, &a.OnChainID, &a.TxHash, &a.Status, &createdOn, &updatedOn)
	if err != nil {
		return nil, err
	}
	a.StartDate = start.Format(utils.DateLayout)
	a.EndDate = end.Format(utils.DateLayout)
	a.CreatedOn = createdOn.Format(time.RFC3339)
	a.UpdatedOn = updatedOn.Format(time.RFC3339)
	return a, nil
}

func (r *agreementRepository) GetByID(ctx context.Context, id string) (*domain.Agreement, error) {
	a, err := scanAgreement(r.db.QueryRowContext(ctx, `SELECT `+agreementColumns+` FROM agreements WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, "agreement "+id)
	}
	return a, nil
}

func (r *agreementRepository) GetByOfferID(ctx context.Context, offerID string) (*domain.Agreement, error) {
	a, err := scanAgreement(r.db.QueryRowContext(ctx, `SELECT `+agreementColumns+` FROM agreements WHERE offer_id = $1`, offerID))
	if err != nil {
		return nil, mapError(err, "agreement for offer "+offerID)
	}
	return a, nil
}

func (r *agreementRepository) Create(ctx context.Context, a *domain.Agreement) error {
	logger.EnterMethod("agreementRepository.Create", "offerID", a.OfferID, "propertyID", a.PropertyID)

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now()
	a.CreatedOn = now.Format(time.RFC3339)
	a.UpdatedOn = a.CreatedOn

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		logger.ExitMethodWithError("agreementRepository.Create", err)
		return mapError(err, "agreement for offer "+a.OfferID)
	}
	defer tx.Rollback()

	logger.DatabaseCall("INSERT", "agreements", "agreementID", a.ID)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO agreements (`+agreementColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		a.ID, a.OfferID, a.PropertyID, a.OwnerID, a.TenantID, a.MonthlyRent, a.StartDate, a.EndDate,
		a.ContentID, a.OnChainID, a.TxHash, a.Status, now, now)
	if err != nil {
		logger.ExitMethodWithError("agreementRepository.Create", err)
		switch {
		case isUniqueViolation(err, agreementOfferIndex):
			return domain.NewError(domain.KindConflict, "offer %s already has an agreement", a.OfferID)
		case isUniqueViolation(err, activeAgreementIndex):
			return domain.NewError(domain.KindUnavailable, "property %s already has an active agreement", a.PropertyID)
		}
		return mapError(err, "agreement for offer "+a.OfferID)
	}

	logger.DatabaseCall("UPDATE", "properties", "propertyID", a.PropertyID)
	result, err := tx.ExecContext(ctx,
		`UPDATE properties SET is_available = FALSE, updated_on = $1 WHERE id = $2 AND is_available`,
		now, a.PropertyID)
	if err != nil {
		logger.ExitMethodWithError("agreementRepository.Create", err)
		return mapError(err, "property "+a.PropertyID)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return mapError(err, "property "+a.PropertyID)
	}
	logger.DatabaseResult("UPDATE", rows, nil, "propertyID", a.PropertyID)
	if rows == 0 {
		return domain.NewError(domain.KindUnavailable, "property %s is no longer available", a.PropertyID)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE notarizations SET status = 'RECORDED', updated_on = $1 WHERE offer_id = $2`,
		now, a.OfferID)
	if err != nil {
		logger.ExitMethodWithError("agreementRepository.Create", err)
		return mapError(err, "notarization for offer "+a.OfferID)
	}

	if err := tx.Commit(); err != nil {
		logger.ExitMethodWithError("agreementRepository.Create", err)
		return mapError(err, "agreement for offer "+a.OfferID)
	}

	logger.ExitMethod("agreementRepository.Create", "agreementID", a.ID)
	return nil
}

func (r *agreementRepository) List(ctx context.Context, f repository.AgreementFilter) ([]domain.Agreement, error) {
	var conds []string
	var args []any
	if f.OwnerID != "" {
		args = append(args, f.OwnerID)
		conds = append(conds, fmt.Sprintf("owner_id = $%d", len(args)))
	}
	if f.TenantID != "" {
		args = append(args, f.TenantID)
		conds = append(conds, fmt.Sprintf("tenant_id = $%d", len(args)))
	}
	query := `SELECT ` + agreementColumns + ` FROM agreements`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_on DESC"
	return r.queryAgreements(ctx, query, args...)
}

// ExpireEnded is run by the scheduler. It returns the agreements it expired.
func (r *agreementRepository) ExpireEnded(ctx context.Context, today string) ([]domain.Agreement, error) {
	query := `UPDATE agreements SET status = 'EXPIRED', updated_on = $1
	          WHERE status = 'ACTIVE' AND end_date < $2
	          RETURNING ` + agreementColumns
	logger.DatabaseCall("UPDATE", "agreements", "today", today)
	agreements, err := r.queryAgreements(ctx, query, time.Now(), today)
	logger.DatabaseResult("UPDATE", int64(len(agreements)), err)
	return agreements, err
}

func (r *agreementRepository) queryAgreements(ctx context.Context, query string, args ...any) ([]domain.Agreement, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "agreements")
	}
	defer rows.Close()

	var agreements []domain.Agreement
	for rows.Next() {
		a, err := scanAgreement(rows)
		if err != nil {
			return nil, mapError(err, "agreements")
		}
		agreements = append(agreements, *a)
	}
	return agreements, mapError(rows.Err(), "agreements")
}
