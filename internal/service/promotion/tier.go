// Package promotion 提供促销匹配、折扣计算与促销管理服务
package promotion

import (
	"errors"
	"strings"

	"github.com/gosimple/unidecode"
)

// ErrUnknownTier 无法识别的会员等级
var ErrUnknownTier = errors.New("unknown membership tier")

// Tier 会员等级，数值即排名
type Tier int

// 会员等级，由低到高
const (
	TierNone Tier = iota
	TierStandard
	TierSilver
	TierGold
	TierDiamond
)

var tierNames = map[Tier]string{
	TierStandard: "STANDARD",
	TierSilver:   "SILVER",
	TierGold:     "GOLD",
	TierDiamond:  "DIAMOND",
}

// 折叠后的别名（小写、去声调、去空格下划线）
var tierAliases = map[string]Tier{
	"standard": TierStandard,
	"thuong":   TierStandard,
	"base":     TierStandard,
	"silver":   TierSilver,
	"bac":      TierSilver,
	"gold":     TierGold,
	"vang":     TierGold,
	"diamond":  TierDiamond,
	"kimcuong": TierDiamond,
}

// String 规范名称，TierNone 为空串
func (t Tier) String() string {
	return tierNames[t]
}

// Rank 排名
func (t Tier) Rank() int {
	return int(t)
}

func foldTier(s string) string {
	folded := strings.ToLower(unidecode.Unidecode(strings.TrimSpace(s)))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(folded)
}

// ParseTier 解析会员等级，忽略大小写与越南语声调
// 空串返回 TierNone；无法识别时返回 TierNone 与 ErrUnknownTier
func ParseTier(s string) (Tier, error) {
	folded := foldTier(s)
	if folded == "" {
		return TierNone, nil
	}
	if t, ok := tierAliases[folded]; ok {
		return t, nil
	}
	return TierNone, ErrUnknownTier
}

// NormalizeTier 规范化等级名称用于比较，无法识别的名称折叠后转大写保留
func NormalizeTier(s string) string {
	folded := foldTier(s)
	if folded == "" {
		return ""
	}
	if t, ok := tierAliases[folded]; ok {
		return t.String()
	}
	return strings.ToUpper(folded)
}

// RankOf 等级排名，无法识别按 0 处理
func RankOf(s string) int {
	t, _ := ParseTier(s)
	return t.Rank()
}
