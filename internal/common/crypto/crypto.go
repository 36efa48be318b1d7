// Package crypto 提供密码哈希与脱敏工具
package crypto

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordTooLong bcrypt 只接受 72 字节以内的密码
var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

// PasswordHasher bcrypt 密码哈希器
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher 创建哈希器，cost 超出范围时使用默认值
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash 对密码进行哈希
func (h *PasswordHasher) Hash(password string) (string, error) {
	if len(password) > 72 {
		return "", ErrPasswordTooLong
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify 验证密码
func (h *PasswordHasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// MaskPhone 手机号脱敏，保留前 3 位和后 3 位
func MaskPhone(phone string) string {
	if len(phone) < 7 {
		return phone
	}
	return phone[:3] + strings.Repeat("*", len(phone)-6) + phone[len(phone)-3:]
}
