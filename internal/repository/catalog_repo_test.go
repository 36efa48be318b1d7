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

func TestCatalogRepository_Get(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewCatalogRepository(db)
	ctx := context.Background()

	event := testutil.CreateEvent(t, db, "Đêm nhạc", 120000)
	game := testutil.CreateGame(t, db, "Bowling", 50000)

	gotEvent, err := repo.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(120000), gotEvent.Price)

	gotGame, err := repo.GetGame(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bowling", gotGame.Name)

	_, err = repo.GetGame(ctx, 999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCatalogRepository_ListOpen(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewCatalogRepository(db)
	ctx := context.Background()

	testutil.CreateEvent(t, db, "open", 1000)
	closed := testutil.CreateEvent(t, db, "closed", 1000)
	require.NoError(t, db.Model(closed).Update("status", models.CatalogStatusClosed).Error)
	testutil.CreateGame(t, db, "arcade", 2000)

	events, err := repo.ListOpenEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "open", events[0].Name)

	games, err := repo.ListOpenGames(ctx)
	require.NoError(t, err)
	assert.Len(t, games, 1)
}
