package cashcard_test

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/alovak/cashcard-service/cashcard"
	"github.com/alovak/cashcard-service/cashcard/models"
	"github.com/stretchr/testify/require"

	_ "github.com/lib/pq"
)

// TestPGRepositoryRoundTrip exercises the postgres-backed repository
// end to end. Skips unless DB_DSN is provided and REPO_BACKEND=pg.
func TestPGRepositoryRoundTrip(t *testing.T) {
	if os.Getenv("REPO_BACKEND") != "pg" {
		t.Skip("REPO_BACKEND != pg; skipping DB integration test")
	}
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		t.Skip("DB_DSN not set; skipping DB integration test")
	}

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Ping())

	ctx := context.Background()
	svc := cashcard.NewService(cashcard.NewPGRepository(db))

	created, err := svc.Create(ctx, dec(t, "250.00"), "sarah1")
	require.NoError(t, err)
	t.Cleanup(func() {
		db.ExecContext(ctx, `DELETE FROM cash_cards WHERE id=$1`, created.ID)
	})

	got, err := svc.FindByIDAndOwner(ctx, created.ID, "sarah1")
	require.NoError(t, err)
	require.True(t, got.Amount.Equal(dec(t, "250.00")))

	// ownership scoping holds against the real store
	_, err = svc.FindByIDAndOwner(ctx, created.ID, "kumar2")
	require.ErrorIs(t, err, cashcard.ErrNotFound)

	// a bulk batch with a foreign target rolls back entirely
	foreign, err := svc.Create(ctx, dec(t, "200.00"), "kumar2")
	require.NoError(t, err)
	t.Cleanup(func() {
		db.ExecContext(ctx, `DELETE FROM cash_cards WHERE id=$1`, foreign.ID)
	})

	err = svc.BulkUpdate(ctx, []models.BulkUpdateItem{
		{ID: created.ID, Amount: dec(t, "1.00")},
		{ID: foreign.ID, Amount: dec(t, "2.00")},
	}, "sarah1")
	require.ErrorIs(t, err, cashcard.ErrNotFound)

	got, err = svc.FindByIDAndOwner(ctx, created.ID, "sarah1")
	require.NoError(t, err)
	require.True(t, got.Amount.Equal(dec(t, "250.00")))

	deleted, err := svc.Delete(ctx, created.ID, "sarah1")
	require.NoError(t, err)
	require.True(t, deleted)
}
