// Package vnpay 提供 VNPay 支付网关封装：签名、支付链接与回调校验
package vnpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// 网关协议常量
const (
	Version        = "2.1.0"
	CommandPay     = "pay"
	CurrencyVND    = "VND"
	LocaleVN       = "vn"
	OrderTypeOther = "other"

	ResponseCodeSuccess = "00"
	dateLayout          = "20060102150405"
)

// 错误
var (
	ErrInvalidSignature = errors.New("vnpay: invalid signature")
	ErrUnavailable      = errors.New("vnpay: gateway unavailable")
	ErrRejected         = errors.New("vnpay: request rejected")
	ErrMissingParam     = errors.New("vnpay: missing parameter")
	ErrInvalidAmount    = errors.New("vnpay: invalid amount")
)

// Config 网关配置
type Config struct {
	TmnCode    string
	HashSecret string
	PayURL     string
	APIURL     string
	ReturnURL  string
	Timeout    time.Duration
	ExpireMins int
}

// Client VNPay 客户端
type Client struct {
	config     *Config
	httpClient *http.Client
	location   *time.Location
	now        func() time.Time
}

// Option 客户端选项
type Option func(*Client)

// WithHTTPClient 替换 HTTP 客户端
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithClock 替换时钟
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient 创建客户端，网关时间统一使用 GMT+7
func NewClient(config *Config, opts ...Option) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	c := &Client{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
		location:   time.FixedZone("ICT", 7*3600),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PaymentRequest 发起支付请求
type PaymentRequest struct {
	TxnRef    string
	Amount    int64 // 单位：越南盾
	OrderInfo string
	ClientIP  string
	BankCode  string
}

// PaymentSession 支付会话
type PaymentSession struct {
	TxnRef    string    `json:"txn_ref"`
	PayURL    string    `json:"pay_url"`
	ExpiredAt time.Time `json:"expired_at"`
}

// createResponse 网关创建支付链接的响应
type createResponse struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	PaymentURL string `json:"payment_url"`
}

// CreatePayment 向网关登记交易并获取支付链接
// 网关未返回链接时使用本地签名的链接
func (c *Client) CreatePayment(ctx context.Context, req *PaymentRequest) (*PaymentSession, error) {
	if req.TxnRef == "" || req.Amount <= 0 {
		return nil, ErrMissingParam
	}
	params := c.paymentParams(req)
	localURL := c.config.PayURL + "?" + c.signedQuery(params)

	flat := make(map[string]string, len(params)+1)
	for k := range params {
		flat[k] = params.Get(k)
	}
	flat["vnp_SecureHash"] = c.Sign(params)
	body, err := json.Marshal(flat)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.APIURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var out createResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if out.Code != ResponseCodeSuccess {
		return nil, fmt.Errorf("%w: %s %s", ErrRejected, out.Code, out.Message)
	}

	payURL := out.PaymentURL
	if payURL == "" {
		payURL = localURL
	}
	return &PaymentSession{
		TxnRef:    req.TxnRef,
		PayURL:    payURL,
		ExpiredAt: c.expireAt(),
	}, nil
}

func (c *Client) paymentParams(req *PaymentRequest) url.Values {
	now := c.now().In(c.location)
	params := url.Values{}
	params.Set("vnp_Version", Version)
	params.Set("vnp_Command", CommandPay)
	params.Set("vnp_TmnCode", c.config.TmnCode)
	params.Set("vnp_Amount", strconv.FormatInt(req.Amount*100, 10))
	params.Set("vnp_CurrCode", CurrencyVND)
	params.Set("vnp_TxnRef", req.TxnRef)
	params.Set("vnp_OrderInfo", req.OrderInfo)
	params.Set("vnp_OrderType", OrderTypeOther)
	params.Set("vnp_Locale", LocaleVN)
	params.Set("vnp_ReturnUrl", c.config.ReturnURL)
	params.Set("vnp_IpAddr", req.ClientIP)
	params.Set("vnp_CreateDate", now.Format(dateLayout))
	params.Set("vnp_ExpireDate", c.expireAt().In(c.location).Format(dateLayout))
	if req.BankCode != "" {
		params.Set("vnp_BankCode", req.BankCode)
	}
	return params
}

func (c *Client) expireAt() time.Time {
	mins := c.config.ExpireMins
	if mins <= 0 {
		mins = 15
	}
	return c.now().Add(time.Duration(mins) * time.Minute)
}

func (c *Client) signedQuery(params url.Values) string {
	return canonicalQuery(params) + "&vnp_SecureHash=" + c.Sign(params)
}

// Sign 对 vnp_ 参数按键名排序后做 HMAC-SHA512，忽略签名字段本身
func (c *Client) Sign(params url.Values) string {
	mac := hmac.New(sha512.New, []byte(c.config.HashSecret))
	mac.Write([]byte(canonicalQuery(params)))
	return hex.EncodeToString(mac.Sum(nil))
}

func canonicalQuery(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if !strings.HasPrefix(k, "vnp_") || k == "vnp_SecureHash" || k == "vnp_SecureHashType" {
			continue
		}
		if params.Get(k) == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params.Get(k)))
	}
	return b.String()
}

// CallbackResult 回调解析结果
type CallbackResult struct {
	TxnRef            string
	Amount            int64 // 单位：越南盾
	ResponseCode      string
	TransactionStatus string
	TransactionNo     string
	BankCode          string
	PayDate           string
	Raw               map[string]string
}

// Success 交易是否成功
func (r *CallbackResult) Success() bool {
	if r.ResponseCode != ResponseCodeSuccess {
		return false
	}
	return r.TransactionStatus == "" || r.TransactionStatus == ResponseCodeSuccess
}

// VerifyCallback 校验回调签名并解析结果
func (c *Client) VerifyCallback(params url.Values) (*CallbackResult, error) {
	got := params.Get("vnp_SecureHash")
	if got == "" {
		return nil, ErrInvalidSignature
	}
	want := c.Sign(params)
	if !hmac.Equal([]byte(strings.ToLower(got)), []byte(want)) {
		return nil, ErrInvalidSignature
	}

	txnRef := params.Get("vnp_TxnRef")
	rawAmount := params.Get("vnp_Amount")
	if txnRef == "" || rawAmount == "" {
		return nil, ErrMissingParam
	}
	amount, err := strconv.ParseInt(rawAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: vnp_Amount %q", ErrMissingParam, rawAmount)
	}
	// vnp_Amount 以 1/100 VND 为单位
	if amount <= 0 || amount%100 != 0 {
		return nil, fmt.Errorf("%w: vnp_Amount %d", ErrInvalidAmount, amount)
	}

	raw := make(map[string]string, len(params))
	for k := range params {
		if k != "vnp_SecureHash" {
			raw[k] = params.Get(k)
		}
	}
	return &CallbackResult{
		TxnRef:            txnRef,
		Amount:            amount / 100,
		ResponseCode:      params.Get("vnp_ResponseCode"),
		TransactionStatus: params.Get("vnp_TransactionStatus"),
		TransactionNo:     params.Get("vnp_TransactionNo"),
		BankCode:          params.Get("vnp_BankCode"),
		PayDate:           params.Get("vnp_PayDate"),
		Raw:               raw,
	}, nil
}
