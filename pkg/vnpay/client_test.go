package vnpay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 17, 3, 0, 0, 0, time.UTC)

func newTestClient(apiURL string, opts ...Option) *Client {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewClient(&Config{
		TmnCode:    "FUNZONE1",
		HashSecret: "secret",
		PayURL:     "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
		APIURL:     apiURL,
		ReturnURL:  "https://funzone.test/payments/return",
		Timeout:    time.Second,
		ExpireMins: 15,
	}, opts...)
}

// signedCallback 构造带签名的回调参数
func signedCallback(c *Client, values map[string]string) url.Values {
	params := url.Values{}
	for k, v := range values {
		params.Set(k, v)
	}
	params.Set("vnp_SecureHashType", "HmacSHA512")
	params.Set("vnp_SecureHash", c.Sign(params))
	return params
}

func TestSign_IgnoresHashFieldsAndOrder(t *testing.T) {
	c := newTestClient("")
	a := url.Values{"vnp_TxnRef": {"1"}, "vnp_Amount": {"100"}}
	b := url.Values{"vnp_Amount": {"100"}, "vnp_TxnRef": {"1"}, "vnp_SecureHash": {"x"}, "vnp_SecureHashType": {"y"}, "other": {"z"}}

	assert.Equal(t, c.Sign(a), c.Sign(b))
	assert.Len(t, c.Sign(a), 128)
	assert.Equal(t, "vnp_Amount=100&vnp_TxnRef=1", canonicalQuery(b))
}

func TestCreatePayment_UsesGatewayURL(t *testing.T) {
	var received map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_ = json.NewEncoder(w).Encode(map[string]string{"code": "00", "payment_url": "https://pay.test/abc"})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	session, err := c.CreatePayment(context.Background(), &PaymentRequest{TxnRef: "FZ1", Amount: 50000, ClientIP: "127.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, "https://pay.test/abc", session.PayURL)
	assert.Equal(t, fixedNow.Add(15*time.Minute), session.ExpiredAt)
	assert.Equal(t, "5000000", received["vnp_Amount"])
	assert.NotEmpty(t, received["vnp_SecureHash"])
}

func TestCreatePayment_FallsBackToLocalURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":"00"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	session, err := c.CreatePayment(context.Background(), &PaymentRequest{TxnRef: "FZ7abc", Amount: 120000, OrderInfo: "Thanh toan ve 7", ClientIP: "10.0.0.1"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(session.PayURL, "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html?"))

	u, err := url.Parse(session.PayURL)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "12000000", q.Get("vnp_Amount"))
	assert.Equal(t, "FZ7abc", q.Get("vnp_TxnRef"))
	assert.Equal(t, "20261017100000", q.Get("vnp_CreateDate"))
	assert.Equal(t, "20261017101500", q.Get("vnp_ExpireDate"))
	assert.Equal(t, c.Sign(q), q.Get("vnp_SecureHash"))
}

func TestCreatePayment_Errors(t *testing.T) {
	rejecting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":"75","message":"bank maintenance"}`))
	}))
	defer rejecting.Close()
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer failing.Close()
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer slow.Close()

	req := &PaymentRequest{TxnRef: "FZ3", Amount: 1000}

	_, err := newTestClient(rejecting.URL).CreatePayment(context.Background(), req)
	assert.True(t, errors.Is(err, ErrRejected))

	_, err = newTestClient(failing.URL).CreatePayment(context.Background(), req)
	assert.True(t, errors.Is(err, ErrUnavailable))

	short := newTestClient(slow.URL, WithHTTPClient(&http.Client{Timeout: 20 * time.Millisecond}))
	_, err = short.CreatePayment(context.Background(), req)
	assert.True(t, errors.Is(err, ErrUnavailable))

	_, err = newTestClient(rejecting.URL).CreatePayment(context.Background(), &PaymentRequest{})
	assert.True(t, errors.Is(err, ErrMissingParam))
}

func TestVerifyCallback(t *testing.T) {
	c := newTestClient("")
	params := signedCallback(c, map[string]string{
		"vnp_TxnRef":            "FZ7abc",
		"vnp_Amount":            "12000000",
		"vnp_ResponseCode":      "00",
		"vnp_TransactionStatus": "00",
		"vnp_TransactionNo":     "14000001",
		"vnp_OrderInfo":         "Thanh toan ve 7",
	})

	result, err := c.VerifyCallback(params)
	require.NoError(t, err)
	assert.Equal(t, "FZ7abc", result.TxnRef)
	assert.Equal(t, int64(120000), result.Amount)
	assert.Equal(t, "14000001", result.TransactionNo)
	assert.True(t, result.Success())
	assert.NotContains(t, result.Raw, "vnp_SecureHash")

	upper := url.Values{}
	for k, v := range params {
		upper[k] = v
	}
	upper.Set("vnp_SecureHash", strings.ToUpper(params.Get("vnp_SecureHash")))
	_, err = c.VerifyCallback(upper)
	assert.NoError(t, err)
}

func TestVerifyCallback_Tampered(t *testing.T) {
	c := newTestClient("")
	params := signedCallback(c, map[string]string{
		"vnp_TxnRef":       "FZ7abc",
		"vnp_Amount":       "12000000",
		"vnp_ResponseCode": "00",
	})
	params.Set("vnp_Amount", "100")

	_, err := c.VerifyCallback(params)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = c.VerifyCallback(url.Values{"vnp_TxnRef": {"x"}})
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyCallback_SubUnitAmount(t *testing.T) {
	c := newTestClient("")
	for _, raw := range []string{"12000050", "0", "-100"} {
		params := signedCallback(c, map[string]string{
			"vnp_TxnRef":       "FZ7abc",
			"vnp_Amount":       raw,
			"vnp_ResponseCode": "00",
		})
		_, err := c.VerifyCallback(params)
		assert.ErrorIs(t, err, ErrInvalidAmount, raw)
	}
}

func TestCallbackResult_Success(t *testing.T) {
	assert.False(t, (&CallbackResult{ResponseCode: "24"}).Success())
	assert.False(t, (&CallbackResult{ResponseCode: "00", TransactionStatus: "02"}).Success())
	assert.True(t, (&CallbackResult{ResponseCode: "00"}).Success())
}
