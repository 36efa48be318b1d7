// Package qrcode 生成银行转账二维码
// 码内容为 "备注|金额"，柜台扫码后按备注核对到账
package qrcode

import (
	"encoding/base64"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/skip2/go-qrcode"
)

// 纠错级别，直接沿用底层库的取值
type RecoveryLevel = qrcode.RecoveryLevel

const (
	Low     = qrcode.Low
	Medium  = qrcode.Medium
	High    = qrcode.High
	Highest = qrcode.Highest
)

const payloadSep = "|"

// ErrEmptyContent 内容为空
var ErrEmptyContent = stderrors.New("qrcode: empty content")

// Generator 二维码生成器
type Generator struct {
	size          int
	recoveryLevel RecoveryLevel
	border        bool
}

type Option func(*Generator)

// WithSize 边长像素，非正数忽略
func WithSize(size int) Option {
	return func(g *Generator) {
		if size > 0 {
			g.size = size
		}
	}
}

func WithRecoveryLevel(level RecoveryLevel) Option {
	return func(g *Generator) { g.recoveryLevel = level }
}

// WithoutBorder 去掉静区，嵌入页面卡片时使用
func WithoutBorder() Option {
	return func(g *Generator) { g.border = false }
}

// NewGenerator 默认 256px、Medium 纠错、保留静区
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{size: 256, recoveryLevel: Medium, border: true}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GeneratePNG 任意内容编码为 PNG
func (g *Generator) GeneratePNG(content string) ([]byte, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}
	q, err := qrcode.New(content, g.recoveryLevel)
	if err != nil {
		return nil, fmt.Errorf("qrcode: encode: %w", err)
	}
	q.DisableBorder = !g.border
	return q.PNG(g.size)
}

// TransferPNG 生成转账码，amount 为越南盾整数金额
func (g *Generator) TransferPNG(memo string, amount int64) ([]byte, error) {
	if memo == "" || strings.Contains(memo, payloadSep) {
		return nil, fmt.Errorf("qrcode: invalid memo %q", memo)
	}
	return g.GeneratePNG(EncodeTransfer(memo, amount))
}

// GenerateDataURL 生成可直接放进 <img src> 的 Data URL
func (g *Generator) GenerateDataURL(content string) (string, error) {
	data, err := g.GeneratePNG(content)
	if err != nil {
		return "", err
	}
	return DataURL(data), nil
}

// DataURL 将 PNG 数据编码为 Data URL
func DataURL(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}

// EncodeTransfer 转账码内容
func EncodeTransfer(memo string, amount int64) string {
	return memo + payloadSep + strconv.FormatInt(amount, 10)
}
