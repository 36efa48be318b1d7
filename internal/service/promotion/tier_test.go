package promotion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTier(t *testing.T) {
	cases := map[string]Tier{
		"":          TierNone,
		"standard":  TierStandard,
		"Thường":    TierStandard,
		"THUONG":    TierStandard,
		"bạc":       TierSilver,
		"Silver":    TierSilver,
		"vàng":      TierGold,
		"GOLD":      TierGold,
		"Kim cương": TierDiamond,
		"kim_cuong": TierDiamond,
		"DIAMOND":   TierDiamond,
	}
	for in, want := range cases {
		got, err := ParseTier(in)
		assert.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	got, err := ParseTier("platinum")
	assert.ErrorIs(t, err, ErrUnknownTier)
	assert.Equal(t, TierNone, got)
}

func TestTierOrdering(t *testing.T) {
	assert.Greater(t, TierDiamond.Rank(), TierGold.Rank())
	assert.Less(t, TierSilver.Rank(), TierGold.Rank())
	assert.Less(t, TierNone.Rank(), TierStandard.Rank())
	assert.Equal(t, "GOLD", TierGold.String())
	assert.Equal(t, "", TierNone.String())
}

func TestNormalizeTier(t *testing.T) {
	assert.Equal(t, "SILVER", NormalizeTier(" Bạc "))
	assert.Equal(t, "PLATINUM", NormalizeTier("platinum"))
	assert.Equal(t, "", NormalizeTier("  "))
	assert.Equal(t, 0, RankOf("platinum"))
	assert.Equal(t, 4, RankOf("kimcuong"))
}
