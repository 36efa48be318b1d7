package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumeirei/funzone-backend/internal/models"
	"github.com/dumeirei/funzone-backend/internal/testutil"
)

func TestRecommendRepository_RecordClick(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewRecommendRepository(db)
	ctx := context.Background()

	user := testutil.CreateUser(t, db, "lan", "")
	game := testutil.CreateGame(t, db, "Air Hockey", 20000)
	first := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repo.RecordClick(ctx, user.ID, game.ID, first))
	require.NoError(t, repo.RecordClick(ctx, user.ID, game.ID, first.Add(time.Minute)))

	count, err := repo.ClickCount(ctx, user.ID, game.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	var rows []models.GameClick
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].LastClickAt.Equal(first.Add(time.Minute)))

	count, err = repo.ClickCount(ctx, user.ID, 999)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRecommendRepository_Popular(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewRecommendRepository(db)
	ctx := context.Background()
	now := time.Now()

	a := testutil.CreateUser(t, db, "an", "")
	b := testutil.CreateUser(t, db, "binh", "")
	played := testutil.CreateGame(t, db, "Racing", 10000)
	clicked := testutil.CreateGame(t, db, "Claw", 5000)
	quiet := testutil.CreateGame(t, db, "Pinball", 5000)
	closed := testutil.CreateGame(t, db, "Broken", 5000)
	require.NoError(t, db.Model(closed).Update("status", models.CatalogStatusClosed).Error)

	testutil.CreateTicket(t, db, &models.Ticket{UserID: a.ID, GameID: &played.ID, Quantity: 2, UnitPrice: 1, OriginalTotal: 2, TotalPrice: 2, Status: models.TicketStatusPaid})
	testutil.CreateTicket(t, db, &models.Ticket{UserID: b.ID, GameID: &clicked.ID, Quantity: 9, UnitPrice: 1, OriginalTotal: 9, TotalPrice: 9, Status: models.TicketStatusPending})
	testutil.CreateTicket(t, db, &models.Ticket{UserID: b.ID, GameID: &closed.ID, Quantity: 9, UnitPrice: 1, OriginalTotal: 9, TotalPrice: 9, Status: models.TicketStatusPaid})
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.RecordClick(ctx, a.ID, clicked.ID, now))
	}
	require.NoError(t, repo.RecordClick(ctx, b.ID, clicked.ID, now))
	require.NoError(t, repo.RecordClick(ctx, b.ID, played.ID, now))

	rows, err := repo.Popular(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, played.ID, rows[0].GameID)
	assert.Equal(t, int64(2), rows[0].Plays)
	assert.Equal(t, int64(1), rows[0].Clicks)
	assert.Equal(t, int64(201), rows[0].Score)

	// 未付款票不计入次数
	assert.Equal(t, clicked.ID, rows[1].GameID)
	assert.Zero(t, rows[1].Plays)
	assert.Equal(t, int64(4), rows[1].Clicks)
	assert.Equal(t, "Claw", rows[1].Name)

	assert.Equal(t, quiet.ID, rows[2].GameID)
	assert.Zero(t, rows[2].Score)

	rows, err = repo.Popular(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRecommendRepository_ForUser(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewRecommendRepository(db)
	ctx := context.Background()
	now := time.Now()

	user := testutil.CreateUser(t, db, "chi", "")
	other := testutil.CreateUser(t, db, "dung", "")
	often := testutil.CreateGame(t, db, "Basketball", 10000)
	recent := testutil.CreateGame(t, db, "Drums", 10000)
	older := testutil.CreateGame(t, db, "Darts", 10000)
	closed := testutil.CreateGame(t, db, "Closed", 10000)
	require.NoError(t, db.Model(closed).Update("status", models.CatalogStatusClosed).Error)

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.RecordClick(ctx, user.ID, often.ID, now))
	}
	require.NoError(t, repo.RecordClick(ctx, user.ID, older.ID, now.Add(-time.Hour)))
	require.NoError(t, repo.RecordClick(ctx, user.ID, recent.ID, now))
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.RecordClick(ctx, user.ID, closed.ID, now))
	}
	require.NoError(t, repo.RecordClick(ctx, other.ID, older.ID, now))

	rows, err := repo.ForUser(ctx, user.ID, 10)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, often.ID, rows[0].GameID)
	assert.Equal(t, int64(3), rows[0].Score)
	assert.Equal(t, recent.ID, rows[1].GameID)
	assert.Equal(t, older.ID, rows[2].GameID)
	assert.Equal(t, int64(1), rows[2].Clicks)

	rows, err = repo.ForUser(ctx, 999, 10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
