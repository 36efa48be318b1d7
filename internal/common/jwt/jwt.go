// Package jwt 签发与校验 HS256 访问令牌
package jwt

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// 角色
const (
	RoleCustomer = "CUSTOMER"
	RoleStaff    = "STAFF"
	RoleAdmin    = "ADMIN"
)

// 允许的时钟偏差
const leeway = 5 * time.Second

var (
	ErrTokenInvalid   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
	ErrUnknownRole    = errors.New("unknown role")
)

// ValidRole 角色是否可签发
func ValidRole(role string) bool {
	switch role {
	case RoleCustomer, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// Claims 令牌载荷，sub 为用户 ID
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

func (c *Claims) IsStaff() bool {
	return c.Role == RoleStaff || c.Role == RoleAdmin
}

// Token 登录响应中的令牌部分
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   int64  `json:"expires_at"`
}

type Manager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Manager)

// WithClock 替换时钟，测试用
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager issuer 为空时不校验 iss
func NewManager(secret, issuer string, ttl time.Duration, opts ...Option) *Manager {
	m := &Manager{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Issue 签发访问令牌
func (m *Manager) Issue(userID int64, username, role string) (*Token, error) {
	if !ValidRole(role) {
		return nil, ErrUnknownRole
	}
	now := m.now()
	exp := now.Add(m.ttl)

	claims := &Claims{
		UserID:   userID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return nil, err
	}
	return &Token{AccessToken: signed, TokenType: "bearer", ExpiresAt: exp.Unix()}, nil
}

// Verify 校验签名、算法、有效期和签发方，返回载荷
func (m *Manager) Verify(raw string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(leeway),
		jwt.WithTimeFunc(m.now),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	claims := &Claims{}
	_, err := jwt.NewParser(opts...).ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, ErrTokenMalformed
	default:
		return nil, ErrTokenInvalid
	}

	if claims.UserID <= 0 || !ValidRole(claims.Role) {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
