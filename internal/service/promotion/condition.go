package promotion

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// 条件字段的历史别名，按顺序取第一个有效值
var (
	minAmountKeys   = []string{"min_amount", "min", "hoa_don_toi_thieu"}
	tierListKeys    = []string{"member_tiers", "tiers"}
	membersOnlyKeys = []string{"member_only", "members_only", "only_members"}
	minTierKeys     = []string{"min_tier", "tier_at_least", "at_least"}
	eventKeys       = []string{"member_event", "event_id", "event", "events", "event_ids"}
)

// Condition 促销附加条件
type Condition struct {
	MinAmount   float64  `json:"min_amount,omitempty"`
	Tiers       []string `json:"tiers,omitempty"` // 规范化后的等级名称
	MembersOnly bool     `json:"members_only,omitempty"`
	MinTier     string   `json:"min_tier,omitempty"` // 规范化后的等级名称，非空时优先于 Tiers
	EventIDs    []int64  `json:"event_ids,omitempty"`
}

// ParseCondition 解析条件 JSON
// 空内容返回空条件；格式错误返回空条件与错误，调用方按无条件处理
func ParseCondition(raw []byte) (Condition, error) {
	var cond Condition
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return cond, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var payload map[string]interface{}
	if err := dec.Decode(&payload); err != nil {
		return Condition{}, fmt.Errorf("condition must be a JSON object: %w", err)
	}

	if v := firstTruthy(payload, minAmountKeys); v != nil {
		if amount, ok := toFloat(v); ok {
			cond.MinAmount = amount
		}
	}

	if v := firstTruthy(payload, tierListKeys); v != nil {
		for _, item := range toList(v) {
			if item == nil {
				continue
			}
			cond.Tiers = append(cond.Tiers, NormalizeTier(toString(item)))
		}
	}

	cond.MembersOnly = firstTruthy(payload, membersOnlyKeys) != nil

	if v := firstTruthy(payload, minTierKeys); v != nil {
		cond.MinTier = NormalizeTier(toString(v))
		if cond.MinTier == "" {
			cond.MinTier = toString(v)
		}
	}

	if v := firstTruthy(payload, eventKeys); v != nil {
		ids, ok := toIDs(v)
		if ok {
			cond.EventIDs = ids
		}
	}

	return cond, nil
}

// Allows 判断金额、会员等级、活动是否同时满足条件
func (c Condition) Allows(amount int64, tier string, eventID *int64) bool {
	return c.allowsAmount(amount) && c.allowsTier(tier) && c.allowsEvent(eventID)
}

func (c Condition) allowsAmount(amount int64) bool {
	return float64(amount) >= c.MinAmount
}

func (c Condition) allowsTier(tier string) bool {
	caller := NormalizeTier(tier)

	if c.MinTier != "" {
		return caller != "" && RankOf(caller) >= RankOf(c.MinTier)
	}
	if len(c.Tiers) > 0 {
		for _, t := range c.Tiers {
			if t == caller {
				return true
			}
		}
		return false
	}
	if c.MembersOnly {
		return caller != "" && caller != TierStandard.String()
	}
	return true
}

func (c Condition) allowsEvent(eventID *int64) bool {
	if len(c.EventIDs) == 0 || eventID == nil {
		return true
	}
	for _, id := range c.EventIDs {
		if id == *eventID {
			return true
		}
	}
	return false
}

func firstTruthy(payload map[string]interface{}, keys []string) interface{} {
	for _, k := range keys {
		if v, ok := payload[k]; ok && truthy(v) {
			return v
		}
	}
	return nil
}

func truthy(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case json.Number:
		f, err := x.Float64()
		return err != nil || f != 0
	case string:
		return x != ""
	case []interface{}:
		return len(x) > 0
	case map[string]interface{}:
		return len(x) > 0
	}
	return true
}

func toFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func toString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	}
	return fmt.Sprint(v)
}

func toList(v interface{}) []interface{} {
	if list, ok := v.([]interface{}); ok {
		return list
	}
	return []interface{}{v}
}

// toIDs 解析活动 ID，任一元素无法转为整数时视为无活动限制
func toIDs(v interface{}) ([]int64, bool) {
	items := toList(v)
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		id, ok := toID(item)
		if !ok {
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

func toID(v interface{}) (int64, bool) {
	switch x := v.(type) {
	case json.Number:
		if id, err := x.Int64(); err == nil {
			return id, true
		}
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		return int64(f), true
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		return id, err == nil
	}
	return 0, false
}
