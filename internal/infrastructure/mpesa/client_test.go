package mpesa

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	domain "github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/observability"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type darajaStub struct {
	tokenCalls int32
	pushCalls  int32
	pushStatus int
	pushBody   string
	pushDelay  time.Duration
	lastPush   stkPushBody
}

func (s *darajaStub) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&s.tokenCalls, 1)
		user, pass, ok := r.BasicAuth()
		if !ok || user != "key" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "client_credentials", r.URL.Query().Get("grant_type"))
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-1", "expires_in": "3599"})
	})
	mux.HandleFunc("POST /mpesa/stkpush/v1/processrequest", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&s.pushCalls, 1)
		if s.pushDelay > 0 {
			select {
			case <-time.After(s.pushDelay):
			case <-r.Context().Done():
				return
			}
		}
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&s.lastPush))
		status := s.pushStatus
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(s.pushBody))
	})
	return mux
}

const acceptedBody = `{"MerchantRequestID":"29115-34620561-1","CheckoutRequestID":"ws_CO_191220191020363925","ResponseCode":"0","ResponseDescription":"Success. Request accepted for processing","CustomerMessage":"Success. Request accepted for processing"}`

func newTestClient(t *testing.T, stub *darajaStub, timeout time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(stub.handler(t))
	t.Cleanup(srv.Close)
	c, err := New(Config{
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		ShortCode:      "174379",
		PassKey:        "passkey",
		Timeout:        timeout,
		BaseURL:        srv.URL,
	}, srv.Client(), observability.Nop())
	require.NoError(t, err)
	c.now = func() time.Time { return time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC) }
	return c
}

func pushRequest() domain.STKPushRequest {
	return domain.STKPushRequest{
		PhoneNumber:      "254712345678",
		Amount:           99,
		AccountReference: domain.AccountReference,
		TransactionDesc:  domain.TransactionDesc,
		CallbackURL:      "https://example.com/api/mpesa/callback/",
	}
}

func TestSTKPushAccepted(t *testing.T) {
	stub := &darajaStub{pushBody: acceptedBody}
	c := newTestClient(t, stub, time.Second)

	resp, err := c.STKPush(context.Background(), pushRequest())
	require.NoError(t, err)
	assert.True(t, resp.Accepted())
	assert.Equal(t, "ws_CO_191220191020363925", resp.CheckoutRequestID)
	assert.JSONEq(t, acceptedBody, string(resp.Raw))

	assert.Equal(t, "20240305140709", stub.lastPush.Timestamp)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("174379passkey20240305140709")), stub.lastPush.Password)
	assert.Equal(t, "CustomerPayBillOnline", stub.lastPush.TransactionType)
	assert.Equal(t, int64(99), stub.lastPush.Amount)
	assert.Equal(t, "254712345678", stub.lastPush.PartyA)
	assert.Equal(t, "174379", stub.lastPush.PartyB)
	assert.Equal(t, "EcommerceShop", stub.lastPush.AccountReference)

	_, err = c.STKPush(context.Background(), pushRequest())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&stub.tokenCalls), "token is cached")
	assert.Equal(t, int32(2), atomic.LoadInt32(&stub.pushCalls))
}

func TestSTKPushRejected(t *testing.T) {
	stub := &darajaStub{
		pushStatus: http.StatusBadRequest,
		pushBody:   `{"requestId":"1-2","errorCode":"400.002.02","errorMessage":"Bad Request - Invalid PhoneNumber"}`,
	}
	c := newTestClient(t, stub, time.Second)

	_, err := c.STKPush(context.Background(), pushRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGatewayRejected)

	var ge *domain.GatewayError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, "400.002.02", ge.Code)
	assert.Equal(t, http.StatusBadRequest, ge.HTTPStatus)
}

func TestSTKPushServerError(t *testing.T) {
	stub := &darajaStub{pushStatus: http.StatusServiceUnavailable, pushBody: "upstream down"}
	c := newTestClient(t, stub, time.Second)

	_, err := c.STKPush(context.Background(), pushRequest())
	assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)
}

func TestSTKPushUnauthorizedDropsToken(t *testing.T) {
	stub := &darajaStub{pushStatus: http.StatusUnauthorized, pushBody: `{"errorCode":"404.001.03","errorMessage":"Invalid Access Token"}`}
	c := newTestClient(t, stub, time.Second)

	_, err := c.STKPush(context.Background(), pushRequest())
	assert.ErrorIs(t, err, domain.ErrGatewayRejected)
	_, _ = c.STKPush(context.Background(), pushRequest())
	assert.Equal(t, int32(2), atomic.LoadInt32(&stub.tokenCalls))
}

func TestSTKPushTimeout(t *testing.T) {
	stub := &darajaStub{pushBody: acceptedBody, pushDelay: time.Second}
	c := newTestClient(t, stub, 50*time.Millisecond)

	_, err := c.STKPush(context.Background(), pushRequest())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBadCredentials(t *testing.T) {
	stub := &darajaStub{pushBody: acceptedBody}
	c := newTestClient(t, stub, time.Second)
	c.cfg.ConsumerSecret = "wrong"

	_, err := c.STKPush(context.Background(), pushRequest())
	assert.ErrorIs(t, err, domain.ErrGatewayRejected)
	assert.Equal(t, int32(0), atomic.LoadInt32(&stub.pushCalls))
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{Environment: "staging", ConsumerKey: "k", ConsumerSecret: "s", ShortCode: "1", PassKey: "p"}, nil, nil)
	assert.Error(t, err)

	_, err = New(Config{Environment: EnvironmentSandbox, ShortCode: "1", PassKey: "p"}, nil, nil)
	assert.Error(t, err)

	c, err := New(Config{Environment: EnvironmentProduction, ConsumerKey: "k", ConsumerSecret: "s", ShortCode: "1", PassKey: "p"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, productionBaseURL, c.baseURL)
	assert.Equal(t, 15*time.Second, c.cfg.Timeout)
}

func TestDecodeCallback(t *testing.T) {
	body := []byte(`{"Body":{"stkCallback":{"MerchantRequestID":"29115-34620561-1","CheckoutRequestID":"ws_CO_1","ResultCode":0,"ResultDesc":"The service request is processed successfully.","CallbackMetadata":{"Item":[{"Name":"Amount","Value":1.00},{"Name":"MpesaReceiptNumber","Value":"NLJ7RT61SV"},{"Name":"Balance"},{"Name":"TransactionDate","Value":20191219102115},{"Name":"PhoneNumber","Value":254708374149}]}}}}`)

	res, err := DecodeCallback(body)
	require.NoError(t, err)
	assert.Equal(t, "ws_CO_1", res.CheckoutRequestID)
	assert.Equal(t, 0, res.ResultCode)
	assert.True(t, res.Amount.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, "NLJ7RT61SV", res.ReceiptNumber)
	assert.Equal(t, "20191219102115", res.TransactionDate)
	assert.Equal(t, "254708374149", res.PhoneNumber)
}

func TestDecodeCallbackCancelled(t *testing.T) {
	res, err := DecodeCallback([]byte(`{"Body":{"stkCallback":{"MerchantRequestID":"m","CheckoutRequestID":"ws_CO_2","ResultCode":1032,"ResultDesc":"Request cancelled by user"}}}`))
	require.NoError(t, err)
	assert.Equal(t, 1032, res.ResultCode)
	assert.Empty(t, res.ReceiptNumber)
}

func TestDecodeCallbackMalformed(t *testing.T) {
	_, err := DecodeCallback([]byte(`{"Body":{}}`))
	assert.ErrorIs(t, err, ErrMalformedCallback)

	_, err = DecodeCallback([]byte(`not json`))
	assert.ErrorIs(t, err, ErrMalformedCallback)
}
