package postgres_test

import (
	"context"
	"testing"

	"rentchain-backend/internal/domain"
	"rentchain-backend/internal/repository/postgres"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, postgres.Migrate(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorePing(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()
	store := postgres.NewStore(db)
	assert.NoError(t, store.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepository(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewNotificationRepository(db)
	ctx := context.Background()

	note := &domain.Notification{UserID: "t-1", Title: "Offer accepted", Message: "Your offer was accepted", Attributes: map[string]string{"offer_id": "o-1"}}
	mock.ExpectExec("INSERT INTO notifications").
		WithArgs(sqlmock.AnyArg(), "t-1", "Offer accepted", "Your offer was accepted", false, []byte(`{"offer_id":"o-1"}`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Create(ctx, note))
	assert.NotEmpty(t, note.ID)

	mock.ExpectExec("UPDATE notifications SET is_read").WithArgs("n-404", "t-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.MarkAsRead(ctx, "n-404", "t-1"), domain.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
