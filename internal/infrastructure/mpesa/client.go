// Package mpesa is a Daraja client for Lipa na M-Pesa Online (STK push).
package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	domain "github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/observability"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/observability/logctx"
)

const (
	EnvironmentSandbox    = "sandbox"
	EnvironmentProduction = "production"

	sandboxBaseURL    = "https://sandbox.safaricom.co.ke"
	productionBaseURL = "https://api.safaricom.co.ke"

	oauthPath    = "/oauth/v1/generate?grant_type=client_credentials"
	stkPushPath  = "/mpesa/stkpush/v1/processrequest"
	timestampFmt = "20060102150405"

	transactionType = "CustomerPayBillOnline"
	peer            = "mpesa"

	// tokens are refreshed this long before Daraja says they expire
	tokenSkew = time.Minute
)

type Config struct {
	Environment    string
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	PassKey        string
	// Timeout bounds one STKPush call including the token fetch.
	Timeout time.Duration
	// BaseURL overrides the environment's host.
	BaseURL string
}

// Client implements payment.Gateway.
type Client struct {
	cfg     Config
	baseURL string
	http    *http.Client
	now     func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time

	log          observability.Logger
	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

var _ domain.Gateway = (*Client)(nil)

func New(cfg Config, httpClient *http.Client, tel observability.Observability) (*Client, error) {
	base := cfg.BaseURL
	if base == "" {
		switch cfg.Environment {
		case EnvironmentSandbox, "":
			base = sandboxBaseURL
		case EnvironmentProduction:
			base = productionBaseURL
		default:
			return nil, fmt.Errorf("mpesa: unknown environment %q", cfg.Environment)
		}
	}
	if cfg.ConsumerKey == "" || cfg.ConsumerSecret == "" {
		return nil, errors.New("mpesa: consumer key and secret are required")
	}
	if cfg.ShortCode == "" || cfg.PassKey == "" {
		return nil, errors.New("mpesa: shortcode and passkey are required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if tel == nil {
		tel = observability.Nop()
	}
	return &Client{
		cfg:          cfg,
		baseURL:      base,
		http:         httpClient,
		now:          time.Now,
		log:          tel.Logger().With(observability.F("component", "mpesa")),
		extCounter:   tel.Metrics().Counter(observability.MExternalRequests),
		extHistogram: tel.Metrics().Histogram(observability.MExternalRequestDuration),
	}, nil
}

// Password is base64(shortcode + passkey + timestamp).
func Password(shortCode, passKey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortCode + passKey + timestamp))
}

type stkPushBody struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type stkPushReply struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

type errorReply struct {
	RequestID    string `json:"requestId"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// STKPush asks Daraja to prompt the payer's phone.
func (c *Client) STKPush(ctx context.Context, req domain.STKPushRequest) (*domain.STKPushResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	ts := c.now().Format(timestampFmt)
	payload, err := json.Marshal(stkPushBody{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          Password(c.cfg.ShortCode, c.cfg.PassKey, ts),
		Timestamp:         ts,
		TransactionType:   transactionType,
		Amount:            req.Amount,
		PartyA:            req.PhoneNumber,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       req.PhoneNumber,
		CallBackURL:       req.CallbackURL,
		AccountReference:  req.AccountReference,
		TransactionDesc:   req.TransactionDesc,
	})
	if err != nil {
		return nil, fmt.Errorf("mpesa: encode stk push: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+stkPushPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("mpesa: build stk push: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	status, body, err := c.do(ctx, "stkpush", httpReq)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		c.dropToken()
	}
	if status/100 != 2 {
		return nil, gatewayError(status, body)
	}

	var reply stkPushReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, &domain.GatewayError{Kind: domain.ErrGatewayUnavailable, HTTPStatus: status, Message: "malformed response"}
	}
	return &domain.STKPushResponse{
		MerchantRequestID:   reply.MerchantRequestID,
		CheckoutRequestID:   reply.CheckoutRequestID,
		ResponseCode:        reply.ResponseCode,
		ResponseDescription: reply.ResponseDescription,
		CustomerMessage:     reply.CustomerMessage,
		Raw:                 json.RawMessage(body),
	}, nil
}

type tokenReply struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+oauthPath, nil)
	if err != nil {
		return "", fmt.Errorf("mpesa: build token request: %w", err)
	}
	httpReq.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	status, body, err := c.do(ctx, "oauth", httpReq)
	if err != nil {
		return "", err
	}
	if status/100 != 2 {
		return "", gatewayError(status, body)
	}

	var reply tokenReply
	if err := json.Unmarshal(body, &reply); err != nil || reply.AccessToken == "" {
		return "", &domain.GatewayError{Kind: domain.ErrGatewayUnavailable, HTTPStatus: status, Message: "malformed token response"}
	}
	ttl := time.Hour
	if secs, err := strconv.Atoi(reply.ExpiresIn); err == nil && secs > 0 {
		ttl = time.Duration(secs) * time.Second
	}
	if ttl > 2*tokenSkew {
		ttl -= tokenSkew
	}
	c.token = reply.AccessToken
	c.tokenExpiry = c.now().Add(ttl)

	logctx.FromOr(ctx, c.log).Info("mpesa_token_refreshed", observability.F("expires_in_s", int(ttl.Seconds())))
	return c.token, nil
}

func (c *Client) dropToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// do sends req and records external call metrics. Transport errors come back
// as context errors when the deadline hit, otherwise as ErrGatewayUnavailable.
func (c *Client) do(ctx context.Context, endpoint string, req *http.Request) (int, []byte, error) {
	start := time.Now()
	outcome := "success"
	defer func() {
		c.extCounter.Add(1,
			observability.L("peer", peer),
			observability.L("endpoint", endpoint),
			observability.L("outcome", outcome),
		)
		c.extHistogram.Observe(time.Since(start).Seconds(),
			observability.L("peer", peer),
			observability.L("endpoint", endpoint),
		)
	}()

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, c.transportError(ctx, endpoint, &outcome, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, nil, c.transportError(ctx, endpoint, &outcome, err)
	}
	if resp.StatusCode/100 != 2 {
		outcome = "error"
		logctx.FromOr(ctx, c.log).Warn("mpesa_request_failed",
			observability.F("endpoint", endpoint),
			observability.F("status", resp.StatusCode),
			observability.F("body", string(body)),
		)
	}
	return resp.StatusCode, body, nil
}

func (c *Client) transportError(ctx context.Context, endpoint string, outcome *string, err error) error {
	logger := logctx.FromOr(ctx, c.log)
	if ctxErr := ctx.Err(); ctxErr != nil {
		*outcome = "timeout"
		logger.Warn("mpesa_request_timeout", observability.F("endpoint", endpoint), observability.F("error", err.Error()))
		return fmt.Errorf("mpesa: %s: %w", endpoint, ctxErr)
	}
	*outcome = "error"
	logger.Warn("mpesa_request_failed", observability.F("endpoint", endpoint), observability.F("error", err.Error()))
	return &domain.GatewayError{Kind: domain.ErrGatewayUnavailable, Message: err.Error()}
}

func gatewayError(status int, body []byte) error {
	kind := domain.ErrGatewayRejected
	if status >= 500 {
		kind = domain.ErrGatewayUnavailable
	}
	ge := &domain.GatewayError{Kind: kind, HTTPStatus: status}
	var reply errorReply
	if json.Unmarshal(body, &reply) == nil {
		ge.Code = reply.ErrorCode
		ge.Message = reply.ErrorMessage
	}
	return ge
}
