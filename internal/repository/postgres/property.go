package postgres

import (
	"context"
	"database/sql"
	"time"

	"rentchain-backend/internal/domain"
	"rentchain-backend/internal/repository"
)

type propertyRepository struct {
	db *sql.DB
}

func NewPropertyRepository(db *sql.DB) repository.PropertyRepository {
	return &propertyRepository{db: db}
}

func (r *propertyRepository) GetByID(ctx context.Context, id string) (*domain.Property, error) {
	p := &domain.Property{}
	query := `SELECT id, owner_id, title, description, location, monthly_rent, is_available, created_on, updated_on
	          FROM properties WHERE id = $1`
	var createdOn, updatedOn time.Time
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.OwnerID, &p.Title, &p.Description, &p.Location,
		&p.MonthlyRent, &p.IsAvailable, &createdOn, &updatedOn)
	if err != nil {
		return nil, mapError(err, "property "+id)
	}
	p.CreatedOn = createdOn.Format(time.RFC3339)
	p.UpdatedOn = updatedOn.Format(time.RFC3339)
	return p, nil
}
