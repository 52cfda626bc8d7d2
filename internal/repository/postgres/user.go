package postgres

import (
	"context"
	"database/sql"
	"time"

	"rentchain-backend/internal/domain"
	"rentchain-backend/internal/logger"
	"rentchain-backend/internal/repository"
)

const walletIndex = "users_wallet_address_key"

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u := &domain.User{}
	query := `SELECT id, email, name, role, wallet_address, created_on, updated_on FROM users WHERE id = $1`
	var createdOn, updatedOn time.Time
	err := r.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.WalletAddress, &createdOn, &updatedOn)
	if err != nil {
		return nil, mapError(err, "user "+id)
	}
	u.CreatedOn = createdOn.Format(time.RFC3339)
	u.UpdatedOn = updatedOn.Format(time.RFC3339)
	return u, nil
}

func (r *userRepository) LinkWallet(ctx context.Context, userID, address string) error {
	logger.EnterMethod("userRepository.LinkWallet", "userID", userID)

	query := `UPDATE users SET wallet_address = $1, updated_on = $2 WHERE id = $3 AND wallet_address IS NULL`
	logger.DatabaseCall("UPDATE", "users", "userID", userID)
	result, err := r.db.ExecContext(ctx, query, address, time.Now(), userID)
	if err != nil {
		logger.ExitMethodWithError("userRepository.LinkWallet", err)
		if isUniqueViolation(err, walletIndex) {
			return domain.NewError(domain.KindConflict, "wallet address is already linked to another account")
		}
		return mapError(err, "user "+userID)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return mapError(err, "user "+userID)
	}
	logger.DatabaseResult("UPDATE", rows, nil)
	if rows == 0 {
		// Either the user does not exist or a wallet is already linked.
		if _, err := r.GetByID(ctx, userID); err != nil {
			return err
		}
		return domain.NewError(domain.KindForbidden, "a wallet is already linked to this account")
	}

	logger.ExitMethod("userRepository.LinkWallet")
	return nil
}
