package reward

import (
	"context"
	"strconv"

	"github.com/dumeirei/funzone-backend/internal/common/cache"
	"github.com/dumeirei/funzone-backend/internal/common/errors"
)

// 排行榜徽章门槛
const (
	badgeDiamondPoints = 1000
	badgeGoldPoints    = 500
	badgeSilverPoints  = 100
)

// LeaderboardEntry 排行榜条目
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	UserID      int64  `json:"user_id"`
	DisplayName string `json:"display_name"`
	Points      int64  `json:"points"`
	Plays       int64  `json:"plays"`
	Tier        string `json:"tier"`
	TierLabel   string `json:"tier_label"`
}

// Badge 按累计积分计算排行榜徽章
func Badge(points int64) (code, label string) {
	switch {
	case points >= badgeDiamondPoints:
		return "DIAMOND", "Kim cương"
	case points >= badgeGoldPoints:
		return "GOLD", "Vàng"
	case points >= badgeSilverPoints:
		return "SILVER", "Bạc"
	default:
		return "STANDARD", "Thường"
	}
}

// Leaderboard 全时段排行榜
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]*LeaderboardEntry, error) {
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	key := cache.BuildKey(cache.KeyPrefixLeaderboard, "top", strconv.Itoa(limit))
	return cache.Remember(ctx, s.store, s.metrics, "leaderboard", key, s.leaderboardTTL,
		func(ctx context.Context) ([]*LeaderboardEntry, error) {
			rows, err := s.ledgerRepo.Leaderboard(ctx, limit)
			if err != nil {
				return nil, errors.ErrDatabaseError.WithError(err)
			}
			entries := make([]*LeaderboardEntry, 0, len(rows))
			for i, row := range rows {
				name := row.Username
				if name == "" {
					name = "user_" + strconv.FormatInt(row.UserID, 10)
				}
				code, label := Badge(row.Points)
				entries = append(entries, &LeaderboardEntry{
					Rank:        i + 1,
					UserID:      row.UserID,
					DisplayName: name,
					Points:      row.Points,
					Plays:       row.Plays,
					Tier:        code,
					TierLabel:   label,
				})
			}
			return entries, nil
		})
}
