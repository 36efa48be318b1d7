// Package utils 分页与金额格式化
package utils

import (
	"strconv"
	"strings"
)

// 分页默认值与上限
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Pagination 页码从 1 开始
type Pagination struct {
	Page     int `json:"page" form:"page"`
	PageSize int `json:"page_size" form:"page_size"`
}

// Normalize 页码小于 1 取 1，页大小取默认值或截断到上限
func (p *Pagination) Normalize() {
	p.Page = max(p.Page, 1)
	switch {
	case p.PageSize < 1:
		p.PageSize = DefaultPageSize
	case p.PageSize > MaxPageSize:
		p.PageSize = MaxPageSize
	}
}

func (p Pagination) Offset() int { return (p.Page - 1) * p.PageSize }
func (p Pagination) Limit() int  { return p.PageSize }

// TotalPages 向上取整
func (p Pagination) TotalPages(total int64) int {
	if total <= 0 || p.PageSize <= 0 {
		return 0
	}
	size := int64(p.PageSize)
	return int((total + size - 1) / size)
}

// Page 一页结果
type Page[T any] struct {
	List  []T   `json:"list"`
	Total int64 `json:"total"`
}

// FormatVND 千位用点号分隔，如 120000 -> "120.000đ"
func FormatVND(amount int64) string {
	digits := strconv.FormatInt(amount, 10)
	sign := ""
	if amount < 0 {
		sign, digits = "-", digits[1:]
	}

	var b strings.Builder
	b.WriteString(sign)
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}
	b.WriteString("đ")
	return b.String()
}
