package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dumeirei/funzone-backend/internal/models"
	"github.com/dumeirei/funzone-backend/internal/testutil"
)

func appendEntry(t *testing.T, db *gorm.DB, repo *LedgerRepository, userID, delta int64, key string) bool {
	t.Helper()
	entry := &models.PointLedgerEntry{UserID: userID, Delta: delta, Reason: "test", RefType: models.LedgerRefManual}
	if key != "" {
		entry.IdempotencyKey = &key
	}
	inserted, err := repo.AppendTx(context.Background(), db, entry)
	require.NoError(t, err)
	return inserted
}

func TestLedgerRepository_AppendIdempotent(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewLedgerRepository(db)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "le", "")

	assert.True(t, appendEntry(t, db, repo, user.ID, 24, "ticket:1:points"))
	assert.False(t, appendEntry(t, db, repo, user.ID, 24, "ticket:1:points"))
	assert.True(t, appendEntry(t, db, repo, user.ID, 10, ""))
	assert.True(t, appendEntry(t, db, repo, user.ID, 10, ""))

	sum, err := repo.SumByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(44), sum)

	entries, total, err := repo.ListByUser(ctx, user.ID, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, entries, 2)
}

func TestLedgerRepository_SumByUser_Empty(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewLedgerRepository(db)

	sum, err := repo.SumByUser(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(0), sum)
}

func TestLedgerRepository_Leaderboard(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewLedgerRepository(db)
	ctx := context.Background()

	a := testutil.CreateUser(t, db, "a", "")
	b := testutil.CreateUser(t, db, "b", "")
	c := testutil.CreateUser(t, db, "c", "")
	d := testutil.CreateUser(t, db, "d", "")
	testutil.CreateUser(t, db, "idle", "")
	game := testutil.CreateGame(t, db, "Arcade", 10000)
	event := testutil.CreateEvent(t, db, "Gala", 10000)

	appendEntry(t, db, repo, a.ID, 120, "")
	appendEntry(t, db, repo, b.ID, 120, "")
	appendEntry(t, db, repo, c.ID, 600, "")

	// b 与 a 同分，b 的已付款游戏次数更多
	testutil.CreateTicket(t, db, &models.Ticket{UserID: b.ID, GameID: &game.ID, Quantity: 3, UnitPrice: 1, OriginalTotal: 3, TotalPrice: 3, Status: models.TicketStatusPaid})
	// 未付款与活动票不计入
	testutil.CreateTicket(t, db, &models.Ticket{UserID: a.ID, GameID: &game.ID, Quantity: 5, UnitPrice: 1, OriginalTotal: 5, TotalPrice: 5, Status: models.TicketStatusPending})
	testutil.CreateTicket(t, db, &models.Ticket{UserID: a.ID, EventID: &event.ID, Quantity: 5, UnitPrice: 1, OriginalTotal: 5, TotalPrice: 5, Status: models.TicketStatusPaid})
	// d 只有游戏次数
	testutil.CreateTicket(t, db, &models.Ticket{UserID: d.ID, GameID: &game.ID, Quantity: 1, UnitPrice: 1, OriginalTotal: 1, TotalPrice: 1, Status: models.TicketStatusPaid})

	rows, err := repo.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, c.ID, rows[0].UserID)
	assert.Equal(t, int64(600), rows[0].Points)
	assert.Equal(t, b.ID, rows[1].UserID)
	assert.Equal(t, int64(3), rows[1].Plays)
	assert.Equal(t, a.ID, rows[2].UserID)
	assert.Equal(t, int64(0), rows[2].Plays)
	assert.Equal(t, d.ID, rows[3].UserID)
	assert.Equal(t, "d", rows[3].Username)

	top, err := repo.Leaderboard(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, top, 1)
}
