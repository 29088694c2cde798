package repositories

import (
	"context"
	"testing"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextNumberFollowsHighestIssuedSuffix(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewInvoiceRepo(NewScopedStore(mock), mock)
	tenantID := uuid.New()

	// 0001..0003 were issued and the 0002 draft was deleted. Only two rows
	// remain, but the next number must follow the highest suffix or it
	// collides with the still-existing 0003.
	mock.ExpectQuery(`SELECT COALESCE\(MAX\(substring`).
		WithArgs(tenantID, "INV-2026-%").
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(int64(3)))

	number, err := repo.NextNumber(context.Background(), tenantID, 2026)

	require.NoError(t, err)
	assert.Equal(t, "INV-2026-0004", number)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNextNumberStartsAtOne(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewInvoiceRepo(NewScopedStore(mock), mock)
	tenantID := uuid.New()

	mock.ExpectQuery(`SELECT COALESCE\(MAX\(substring`).
		WithArgs(tenantID, "INV-2026-%").
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(int64(0)))

	number, err := repo.NextNumber(context.Background(), tenantID, 2026)

	require.NoError(t, err)
	assert.Equal(t, "INV-2026-0001", number)
}
