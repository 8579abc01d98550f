package payment

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	domorder "github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/outbox"
	domain "github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/validation"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/observability"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	calls []domain.STKPushRequest
	resp  *domain.STKPushResponse
	err   error
}

func (g *fakeGateway) STKPush(_ context.Context, req domain.STKPushRequest) (*domain.STKPushResponse, error) {
	g.calls = append(g.calls, req)
	return g.resp, g.err
}

func accepted(checkoutID string) *domain.STKPushResponse {
	return &domain.STKPushResponse{
		MerchantRequestID: "29115-34620561-1",
		CheckoutRequestID: checkoutID,
		ResponseCode:      "0",
		Raw:               json.RawMessage(`{"ResponseCode":"0","CheckoutRequestID":"` + checkoutID + `"}`),
	}
}

type recordingPublisher struct{ events []domoutbox.Event }

func (p *recordingPublisher) Publish(_ context.Context, e domoutbox.Event) error {
	p.events = append(p.events, e)
	return nil
}

const callbackURL = "https://shop.example.com/api/mpesa/callback/"

func newInitiate(gw domain.Gateway, repo domain.Repository, orders OrderLookup, pub domoutbox.Publisher) *InitiatePaymentUseCase {
	return NewInitiatePaymentUseCase(gw, repo, orders, pub, callbackURL, observability.Nop())
}

func TestInitiatePaymentTruncatesAmount(t *testing.T) {
	gw := &fakeGateway{resp: accepted("ws_CO_1")}
	repo := newFakePaymentRepository()
	pub := &recordingPublisher{}
	uc := newInitiate(gw, repo, fakeOrders{}, pub)

	res, err := uc.Execute(context.Background(), InitiatePaymentInput{UserID: 1, PhoneNumber: "0712345678", Amount: "99.9"})
	require.NoError(t, err)

	require.Len(t, gw.calls, 1)
	call := gw.calls[0]
	assert.Equal(t, int64(99), call.Amount)
	assert.Equal(t, "254712345678", call.PhoneNumber)
	assert.Equal(t, "EcommerceShop", call.AccountReference)
	assert.Equal(t, "Payment for Order", call.TransactionDesc)
	assert.Equal(t, callbackURL, call.CallbackURL)

	assert.JSONEq(t, `{"ResponseCode":"0","CheckoutRequestID":"ws_CO_1"}`, string(res.Raw))
	stored, err := repo.GetByCheckoutID(context.Background(), "ws_CO_1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, stored.Status)
	require.Len(t, pub.events, 1)
	assert.Equal(t, "payment.requested", pub.events[0].EventName())
}

func TestInitiatePaymentInputErrors(t *testing.T) {
	tests := []struct {
		name   string
		phone  string
		amount string
		want   error
	}{
		{"missing phone", "", "10", domain.ErrMissingInput},
		{"missing amount", "0712345678", "", domain.ErrMissingInput},
		{"zero amount", "0712345678", "0", domain.ErrMissingInput},
		{"non numeric", "0712345678", "ten", domain.ErrInvalidAmount},
		{"below one", "0712345678", "0.5", domain.ErrInvalidAmount},
		{"bad phone", "12345", "10", domain.ErrInvalidPhone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{resp: accepted("x")}
			uc := newInitiate(gw, newFakePaymentRepository(), fakeOrders{}, nil)
			_, err := uc.Execute(context.Background(), InitiatePaymentInput{UserID: 1, PhoneNumber: tt.phone, Amount: tt.amount})
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, gw.calls)
		})
	}
}

func TestInitiatePaymentForeignOrder(t *testing.T) {
	o, err := domorder.New(2, decimal.NewFromInt(5), []domorder.Item{{ProductID: 1, Quantity: 1, Price: decimal.NewFromInt(5)}})
	require.NoError(t, err)
	o.ID = 7
	orders := fakeOrders{o.ID: o}

	gw := &fakeGateway{resp: accepted("x")}
	uc := newInitiate(gw, newFakePaymentRepository(), orders, nil)
	_, err = uc.Execute(context.Background(), InitiatePaymentInput{UserID: 1, PhoneNumber: "0712345678", Amount: "5", OrderID: &o.ID})
	assert.ErrorIs(t, err, validation.ErrInvalid)
	assert.Empty(t, gw.calls)
}

func TestInitiatePaymentGatewayFailure(t *testing.T) {
	gwErr := &domain.GatewayError{Kind: domain.ErrGatewayUnavailable, HTTPStatus: 503}
	uc := newInitiate(&fakeGateway{err: gwErr}, newFakePaymentRepository(), fakeOrders{}, nil)
	_, err := uc.Execute(context.Background(), InitiatePaymentInput{UserID: 1, PhoneNumber: "254712345678", Amount: "10"})
	assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)
}

func TestInitiatePaymentDeclinedIsRelayed(t *testing.T) {
	declined := &domain.STKPushResponse{ResponseCode: "1", Raw: json.RawMessage(`{"errorCode":"500.001.1001"}`)}
	repo := newFakePaymentRepository()
	uc := newInitiate(&fakeGateway{resp: declined}, repo, fakeOrders{}, nil)
	res, err := uc.Execute(context.Background(), InitiatePaymentInput{UserID: 1, PhoneNumber: "254712345678", Amount: "10"})
	require.NoError(t, err)
	assert.Nil(t, res.Payment)
	assert.JSONEq(t, `{"errorCode":"500.001.1001"}`, string(res.Raw))
}

func TestHandleCallback(t *testing.T) {
	ctx := context.Background()
	repo := newFakePaymentRepository()
	require.NoError(t, repo.Create(ctx, &domain.Payment{UserID: 1, CheckoutRequestID: "ws_CO_9", Status: domain.StatusPending, Amount: 10}))
	pub := &recordingPublisher{}
	uc := NewHandleCallbackUseCase(repo, pub, observability.Nop())

	p, err := uc.Execute(ctx, domain.CallbackResult{CheckoutRequestID: "ws_CO_9", ResultCode: 1032, ResultDesc: "Request cancelled by user"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, p.Status)
	require.Len(t, pub.events, 1)

	// a replay after settlement changes nothing
	p, err = uc.Execute(ctx, domain.CallbackResult{CheckoutRequestID: "ws_CO_9", ResultCode: 0})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, p.Status)
	assert.Len(t, pub.events, 1)

	_, err = uc.Execute(ctx, domain.CallbackResult{CheckoutRequestID: "unknown"})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestGetPaymentOwnerScoped(t *testing.T) {
	ctx := context.Background()
	repo := newFakePaymentRepository()
	require.NoError(t, repo.Create(ctx, &domain.Payment{UserID: 1, CheckoutRequestID: "ws_CO_2", Status: domain.StatusPending}))
	uc := NewGetPaymentUseCase(repo, observability.Nop())

	p, err := uc.Execute(ctx, GetPaymentInput{UserID: 1, CheckoutRequestID: "ws_CO_2"})
	require.NoError(t, err)
	assert.Equal(t, "ws_CO_2", p.CheckoutRequestID)

	_, err = uc.Execute(ctx, GetPaymentInput{UserID: 2, CheckoutRequestID: "ws_CO_2"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHandleCallbackLosesSettleRace(t *testing.T) {
	ctx := context.Background()
	repo := newFakePaymentRepository()
	require.NoError(t, repo.Create(ctx, &domain.Payment{UserID: 1, CheckoutRequestID: "ws_CO_7", Status: domain.StatusPending, Amount: 10}))
	pub := &recordingPublisher{}
	uc := NewHandleCallbackUseCase(repo, pub, observability.Nop())

	// A duplicate delivery settles the row between our read and our write.
	repo.beforeSettle = func() {
		p, err := repo.GetByCheckoutID(ctx, "ws_CO_7")
		require.NoError(t, err)
		p.Apply(domain.CallbackResult{CheckoutRequestID: "ws_CO_7", ResultCode: 0, ReceiptNumber: "NLJ7RT61SV"})
		applied, err := repo.Settle(ctx, p)
		require.NoError(t, err)
		require.True(t, applied)
	}

	p, err := uc.Execute(ctx, domain.CallbackResult{CheckoutRequestID: "ws_CO_7", ResultCode: 1032, ResultDesc: "Request cancelled by user"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, p.Status)
	assert.Equal(t, "NLJ7RT61SV", p.ReceiptNumber)
	assert.Empty(t, pub.events)
}
