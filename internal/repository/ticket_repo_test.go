package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dumeirei/funzone-backend/internal/models"
	"github.com/dumeirei/funzone-backend/internal/testutil"
)

func TestTicketRepository_CreateAndGet(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewTicketRepository(db)
	ctx := context.Background()

	user := testutil.CreateUser(t, db, "an", "GOLD")
	event := testutil.CreateEvent(t, db, "Concert", 100000)

	ticket := &models.Ticket{
		UserID:        user.ID,
		EventID:       &event.ID,
		Quantity:      2,
		UnitPrice:     100000,
		OriginalTotal: 200000,
		TotalPrice:    200000,
		Status:        models.TicketStatusBooked,
	}
	require.NoError(t, repo.Create(ctx, ticket))

	found, err := repo.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, found.Event)
	assert.Equal(t, "Concert", found.Event.Name)
	assert.Nil(t, found.Game)
	assert.False(t, found.IsGame())
}

func TestTicketRepository_UpdateStatusTx(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewTicketRepository(db)
	ctx := context.Background()

	user := testutil.CreateUser(t, db, "binh", "")
	game := testutil.CreateGame(t, db, "VR", 80000)
	ticket := testutil.CreateTicket(t, db, &models.Ticket{
		UserID: user.ID, GameID: &game.ID, UnitPrice: 80000, OriginalTotal: 80000, TotalPrice: 80000,
		Status: models.TicketStatusPending,
	})

	var affected int64
	err := db.Transaction(func(tx *gorm.DB) error {
		locked, err := repo.GetForUpdate(ctx, tx, ticket.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, models.TicketStatusPending, locked.Status)
		affected, err = repo.UpdateStatusTx(ctx, tx, ticket.ID,
			[]string{models.TicketStatusPending},
			map[string]interface{}{"status": models.TicketStatusPaid})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	// 状态已变化，再次迁移不生效
	affected, err = repo.UpdateStatusTx(ctx, db, ticket.ID,
		[]string{models.TicketStatusPending},
		map[string]interface{}{"status": models.TicketStatusBooked})
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)

	found, err := repo.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusPaid, found.Status)
}

func TestTicketRepository_PaymentRef(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewTicketRepository(db)
	ctx := context.Background()

	user := testutil.CreateUser(t, db, "chi", "")
	event := testutil.CreateEvent(t, db, "Show", 50000)
	ticket := testutil.CreateTicket(t, db, &models.Ticket{
		UserID: user.ID, EventID: &event.ID, UnitPrice: 50000, OriginalTotal: 50000, TotalPrice: 50000,
	})

	require.NoError(t, repo.SetPaymentRef(ctx, ticket.ID, "12-abcd"))
	found, err := repo.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, found.PaymentRef)
	assert.Equal(t, "12-abcd", *found.PaymentRef)
}

func TestTicketRepository_Lists(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewTicketRepository(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice", "")
	bob := testutil.CreateUser(t, db, "bob", "")
	event := testutil.CreateEvent(t, db, "Festival", 10000)
	game := testutil.CreateGame(t, db, "Karting", 20000)

	testutil.CreateTicket(t, db, &models.Ticket{UserID: alice.ID, EventID: &event.ID, UnitPrice: 10000, OriginalTotal: 10000, TotalPrice: 10000})
	testutil.CreateTicket(t, db, &models.Ticket{UserID: alice.ID, GameID: &game.ID, UnitPrice: 20000, OriginalTotal: 20000, TotalPrice: 20000, Status: models.TicketStatusPending})
	testutil.CreateTicket(t, db, &models.Ticket{UserID: bob.ID, GameID: &game.ID, UnitPrice: 20000, OriginalTotal: 20000, TotalPrice: 20000, Status: models.TicketStatusPending})

	mine, total, err := repo.ListByUser(ctx, alice.ID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, mine, 2)
	assert.Greater(t, mine[0].ID, mine[1].ID)

	pending, total, err := repo.AdminList(ctx, 0, 10, []string{models.TicketStatusPending}, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, pending, 2)

	byName, total, err := repo.AdminList(ctx, 0, 10, nil, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, byName, 1)
	assert.Equal(t, bob.ID, byName[0].UserID)

	byGame, total, err := repo.AdminList(ctx, 0, 10, nil, "Kart")
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, byGame, 2)
}

func TestTicketRepository_ListStaleBooked(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewTicketRepository(db)
	ctx := context.Background()

	user := testutil.CreateUser(t, db, "dung", "")
	event := testutil.CreateEvent(t, db, "Expo", 10000)
	old := time.Now().Add(-48 * time.Hour)

	stale := testutil.CreateTicket(t, db, &models.Ticket{UserID: user.ID, EventID: &event.ID, UnitPrice: 1, OriginalTotal: 1, TotalPrice: 1, CreatedAt: old})
	legacy := testutil.CreateTicket(t, db, &models.Ticket{UserID: user.ID, EventID: &event.ID, UnitPrice: 1, OriginalTotal: 1, TotalPrice: 1, Status: models.TicketStatusUnpaid, CreatedAt: old})
	testutil.CreateTicket(t, db, &models.Ticket{UserID: user.ID, EventID: &event.ID, UnitPrice: 1, OriginalTotal: 1, TotalPrice: 1, Status: models.TicketStatusPending, CreatedAt: old})
	testutil.CreateTicket(t, db, &models.Ticket{UserID: user.ID, EventID: &event.ID, UnitPrice: 1, OriginalTotal: 1, TotalPrice: 1})

	ids, err := repo.ListStaleBooked(ctx, time.Now().Add(-24*time.Hour), 100)
	require.NoError(t, err)
	assert.Equal(t, []int64{stale.ID, legacy.ID}, ids)
}
