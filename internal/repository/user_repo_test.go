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

func TestUserRepository_Lookup(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	lan := &models.User{
		Username:     "lan",
		PasswordHash: "hash",
		Role:         models.UserRoleCustomer,
		Tier:         "SILVER",
		Status:       models.UserStatusActive,
	}
	require.NoError(t, repo.Create(ctx, lan))
	require.NotZero(t, lan.ID)

	byID, err := repo.GetByID(ctx, lan.ID)
	require.NoError(t, err)
	assert.Equal(t, "SILVER", byID.Tier)

	for _, name := range []string{"lan", "LAN", "Lan"} {
		u, err := repo.GetByUsername(ctx, name)
		require.NoError(t, err, name)
		assert.Equal(t, lan.ID, u.ID, name)

		exists, err := repo.ExistsByUsername(ctx, name)
		require.NoError(t, err)
		assert.True(t, exists, name)
	}

	_, err = repo.GetByUsername(ctx, "missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	exists, err := repo.ExistsByUsername(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUserRepository_Points(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	hoa := testutil.CreateUser(t, db, "hoa", "STANDARD")

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		for _, delta := range []int64{24, 6, -10} {
			if err := repo.AddPointsTx(ctx, tx, hoa.ID, delta); err != nil {
				return err
			}
		}
		return nil
	}))

	got, err := repo.GetByID(ctx, hoa.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(20), got.Points)
}

func TestUserRepository_UpdateTier(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	tuan := testutil.CreateUser(t, db, "tuan", "STANDARD")

	require.NoError(t, repo.UpdateTier(ctx, tuan.ID, "DIAMOND"))
	got, err := repo.GetByID(ctx, tuan.ID)
	require.NoError(t, err)
	assert.Equal(t, "DIAMOND", got.Tier)

	assert.ErrorIs(t, repo.UpdateTier(ctx, 9999, "GOLD"), gorm.ErrRecordNotFound)
}
