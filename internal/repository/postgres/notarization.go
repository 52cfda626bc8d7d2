package postgres

import (
	"context"
	"database/sql"
	"time"

	"rentchain-backend/internal/domain"
	"rentchain-backend/internal/logger"
	"rentchain-backend/internal/repository"
	"rentchain-backend/internal/utils"
)

type notarizationRepository struct {
	db *sql.DB
}

func NewNotarizationRepository(db *sql.DB) repository.NotarizationRepository {
	return &notarizationRepository{db: db}
}

const notarizationColumns = `offer_id, content_id, start_date, end_date, tx_hash, on_chain_id, status, last_error, created_on, updated_on`

func scanNotarization(row rowScanner) (*domain.Notarization, error) {
	n := &domain.Notarization{}
	var start, end time.Time
	var onChainID sql.NullInt64
	err := row.Scan(&n.OfferID, &n.ContentID, &start, &end, &n.TxHash, &onChainID, &n.Status, &n.LastError, &n.CreatedOn, &n.UpdatedOn)
	if err != nil {
		return nil, err
	}
	n.StartDate = start.Format(utils.DateLayout)
	n.EndDate = end.Format(utils.DateLayout)
	if onChainID.Valid {
		id := uint64(onChainID.Int64)
		n.OnChainID = &id
	}
	return n, nil
}

func (r *notarizationRepository) GetByOfferID(ctx context.Context, offerID string) (*domain.Notarization, error) {
	n, err := scanNotarization(r.db.QueryRowContext(ctx,
		`SELECT `+notarizationColumns+` FROM notarizations WHERE offer_id = $1`, offerID))
	if err != nil {
		return nil, mapError(err, "notarization for offer "+offerID)
	}
	return n, nil
}

func (r *notarizationRepository) Begin(ctx context.Context, n domain.Notarization) error {
	offerID := n.OfferID
	logger.EnterMethod("notarizationRepository.Begin", "offerID", offerID, "contentID", n.ContentID)

	// A FAILED row is re-armed; any other existing row means another attempt owns it.
	query := `INSERT INTO notarizations (offer_id, content_id, start_date, end_date, status, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, 'SUBMITTING', $5, $5)
	          ON CONFLICT (offer_id) DO UPDATE
	          SET content_id = EXCLUDED.content_id, start_date = EXCLUDED.start_date, end_date = EXCLUDED.end_date,
	              status = 'SUBMITTING', tx_hash = NULL, on_chain_id = NULL, last_error = '',
	              updated_on = EXCLUDED.updated_on
	          WHERE notarizations.status = 'FAILED'`
	logger.DatabaseCall("UPSERT", "notarizations", "offerID", offerID)
	result, err := r.db.ExecContext(ctx, query, offerID, n.ContentID, n.StartDate, n.EndDate, time.Now())
	if err != nil {
		logger.ExitMethodWithError("notarizationRepository.Begin", err)
		return mapError(err, "notarization for offer "+offerID)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return mapError(err, "notarization for offer "+offerID)
	}
	logger.DatabaseResult("UPSERT", rows, nil)
	if rows == 0 {
		return domain.NewError(domain.KindConflict, "notarization for offer %s is already in progress", offerID)
	}

	logger.ExitMethod("notarizationRepository.Begin")
	return nil
}

func (r *notarizationRepository) MarkConfirmed(ctx context.Context, offerID, txHash string, onChainID uint64) error {
	query := `UPDATE notarizations SET status = 'CONFIRMED', tx_hash = $1, on_chain_id = $2, updated_on = $3
	          WHERE offer_id = $4 AND status = 'SUBMITTING'`
	logger.DatabaseCall("UPDATE", "notarizations", "offerID", offerID, "txHash", txHash)
	result, err := r.db.ExecContext(ctx, query, txHash, int64(onChainID), time.Now(), offerID)
	if err != nil {
		return mapError(err, "notarization for offer "+offerID)
	}
	rows, err := result.RowsAffected()
	logger.DatabaseResult("UPDATE", rows, err)
	if err != nil {
		return mapError(err, "notarization for offer "+offerID)
	}
	if rows == 0 {
		return domain.NewError(domain.KindInvalidState, "notarization for offer %s is not SUBMITTING", offerID)
	}
	return nil
}

func (r *notarizationRepository) MarkFailed(ctx context.Context, offerID, reason string) error {
	query := `UPDATE notarizations SET status = 'FAILED', last_error = $1, updated_on = $2
	          WHERE offer_id = $3 AND status = 'SUBMITTING'`
	logger.DatabaseCall("UPDATE", "notarizations", "offerID", offerID)
	result, err := r.db.ExecContext(ctx, query, reason, time.Now(), offerID)
	if err != nil {
		return mapError(err, "notarization for offer "+offerID)
	}
	rows, _ := result.RowsAffected()
	logger.DatabaseResult("UPDATE", rows, nil)
	return nil
}

func (r *notarizationRepository) ListStale(ctx context.Context, before time.Time) ([]domain.Notarization, error) {
	query := `SELECT ` + notarizationColumns + ` FROM notarizations
	          WHERE status IN ('SUBMITTING', 'CONFIRMED') AND updated_on < $1
	          ORDER BY updated_on`
	rows, err := r.db.QueryContext(ctx, query, before)
	if err != nil {
		return nil, mapError(err, "notarizations")
	}
	defer rows.Close()

	var stale []domain.Notarization
	for rows.Next() {
		n, err := scanNotarization(rows)
		if err != nil {
			return nil, mapError(err, "notarizations")
		}
		stale = append(stale, *n)
	}
	return stale, mapError(rows.Err(), "notarizations")
}
