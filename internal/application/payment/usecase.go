package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Zhima-Mochi/minishop-storefront/app/internal/application"
	domorder "github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/outbox"
	domain "github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/validation"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	paymentService          = "payment-service"
	useCasePaymentInitiate  = "payment.initiate"
	useCasePaymentCallback  = "payment.callback"
	useCasePaymentGet       = "payment.get"
	statusGatewayTimeout    = "GATEWAY_TIMEOUT"
	statusGatewayRejected   = "GATEWAY_REJECTED"
	statusGatewayUnavailable = "GATEWAY_UNAVAILABLE"
)

var (
	ErrNotFound   = domain.ErrNotFound
	ErrRepository = errors.New("payment: repository failure")
)

// OrderLookup resolves an order the caller owns.
type OrderLookup interface {
	GetForUser(ctx context.Context, userID, id uint) (*domorder.Order, error)
}

type InitiatePaymentInput struct {
	UserID      uint
	PhoneNumber string
	// Amount is the raw client value; JSON numbers arrive as their literal text.
	Amount  string
	OrderID *uint
}

type InitiatePaymentResult struct {
	Payment *domain.Payment // nil when the gateway declined the push
	// Raw is the gateway body, relayed as-is.
	Raw json.RawMessage
}

// InitiatePaymentUseCase sends one STK push and records it as a pending payment.
type InitiatePaymentUseCase struct {
	gateway     domain.Gateway
	repo        domain.Repository
	orders      OrderLookup
	publisher   domoutbox.Publisher
	callbackURL string
	inst        *application.Instrument
}

func NewInitiatePaymentUseCase(
	gateway domain.Gateway,
	repo domain.Repository,
	orders OrderLookup,
	publisher domoutbox.Publisher,
	callbackURL string,
	tel observability.Observability,
) *InitiatePaymentUseCase {
	return &InitiatePaymentUseCase{
		gateway:     gateway,
		repo:        repo,
		orders:      orders,
		publisher:   publisher,
		callbackURL: callbackURL,
		inst:        application.NewInstrument(tel, paymentService),
	}
}

func (uc *InitiatePaymentUseCase) Execute(ctx context.Context, cmd InitiatePaymentInput) (_ *InitiatePaymentResult, err error) {
	ctx, run := uc.inst.Start(ctx, useCasePaymentInitiate, "InitiatePayment",
		attribute.Int64("payment.user_id", int64(cmd.UserID)),
	)
	defer func() { run.End(err) }()

	rawPhone, rawAmount := strings.TrimSpace(cmd.PhoneNumber), strings.TrimSpace(cmd.Amount)
	if rawPhone == "" || rawAmount == "" || rawAmount == "0" {
		run.Fail("MISSING_INPUT")
		return nil, domain.ErrMissingInput
	}
	amount, truncated, err := domain.ParseAmount(rawAmount)
	if err != nil {
		run.Fail("AMOUNT_INVALID")
		return nil, err
	}
	run.Field("amount", amount)
	if truncated {
		run.Field("amount_truncated", true)
	}
	phone, err := domain.NormalizePhone(rawPhone)
	if err != nil {
		run.Fail("PHONE_INVALID")
		return nil, err
	}

	if cmd.OrderID != nil {
		if _, oerr := uc.orders.GetForUser(ctx, cmd.UserID, *cmd.OrderID); oerr != nil {
			if errors.Is(oerr, domorder.ErrNotFound) {
				run.Fail("ORDER_NOT_FOUND")
				return nil, validation.New("order_id", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", *cmd.OrderID))
			}
			run.Fail("ORDER_LOOKUP_FAILED")
			return nil, fmt.Errorf("%w: %w", ErrRepository, oerr)
		}
	}

	resp, err := uc.gateway.STKPush(ctx, domain.STKPushRequest{
		PhoneNumber:      phone,
		Amount:           amount,
		AccountReference: domain.AccountReference,
		TransactionDesc:  domain.TransactionDesc,
		CallbackURL:      uc.callbackURL,
	})
	if err != nil {
		run.Fail(classifyGatewayError(err))
		return nil, err
	}
	if !resp.Accepted() {
		run.Status("GATEWAY_DECLINED")
		run.Field("response_code", resp.ResponseCode)
		return &InitiatePaymentResult{Raw: resp.Raw}, nil
	}

	p := &domain.Payment{
		UserID:            cmd.UserID,
		OrderID:           cmd.OrderID,
		PhoneNumber:       phone,
		Amount:            amount,
		MerchantRequestID: resp.MerchantRequestID,
		CheckoutRequestID: resp.CheckoutRequestID,
		Status:            domain.StatusPending,
	}
	if err := uc.repo.Create(ctx, p); err != nil {
		run.Fail("REPO_INSERT_FAILED")
		return nil, wrapRepositoryError(err)
	}

	run.Span().SetAttributes(attribute.String("payment.checkout_request_id", p.CheckoutRequestID))
	run.Field("checkout_request_id", p.CheckoutRequestID)
	run.Publish(uc.publisher, domain.NewRequestedEvent(p))

	return &InitiatePaymentResult{Payment: p, Raw: resp.Raw}, nil
}

// HandleCallbackUseCase settles a pending payment from the gateway callback.
// Replayed callbacks for a settled payment are accepted and ignored.
type HandleCallbackUseCase struct {
	repo      domain.Repository
	publisher domoutbox.Publisher
	inst      *application.Instrument
}

func NewHandleCallbackUseCase(repo domain.Repository, publisher domoutbox.Publisher, tel observability.Observability) *HandleCallbackUseCase {
	return &HandleCallbackUseCase{
		repo:      repo,
		publisher: publisher,
		inst:      application.NewInstrument(tel, paymentService),
	}
}

func (uc *HandleCallbackUseCase) Execute(ctx context.Context, cmd domain.CallbackResult) (_ *domain.Payment, err error) {
	ctx, run := uc.inst.Start(ctx, useCasePaymentCallback, "HandleCallback",
		attribute.String("payment.checkout_request_id", cmd.CheckoutRequestID),
		attribute.Int("payment.result_code", cmd.ResultCode),
	)
	defer func() { run.End(err) }()
	run.Field("checkout_request_id", cmd.CheckoutRequestID)
	run.Field("result_code", cmd.ResultCode)

	if cmd.CheckoutRequestID == "" {
		run.Fail("CHECKOUT_ID_MISSING")
		return nil, validation.New("CheckoutRequestID", "This field is required.")
	}

	p, err := uc.repo.GetByCheckoutID(ctx, cmd.CheckoutRequestID)
	if err != nil {
		run.Fail("PAYMENT_LOOKUP_FAILED")
		return nil, wrapRepositoryError(err)
	}
	if p.Settled() {
		run.Status("ALREADY_SETTLED")
		return p, nil
	}

	p.Apply(cmd)
	applied, err := uc.repo.Settle(ctx, p)
	if err != nil {
		run.Fail("REPO_UPDATE_FAILED")
		return nil, wrapRepositoryError(err)
	}
	if !applied {
		// lost the race to a concurrent callback; report what it stored
		run.Status("ALREADY_SETTLED")
		current, err := uc.repo.GetByCheckoutID(ctx, cmd.CheckoutRequestID)
		if err != nil {
			run.Fail("PAYMENT_LOOKUP_FAILED")
			return nil, wrapRepositoryError(err)
		}
		return current, nil
	}
	run.Field("payment_status", string(p.Status))
	run.Publish(uc.publisher, domain.NewCompletedEvent(p))
	return p, nil
}

type GetPaymentInput struct {
	UserID            uint
	CheckoutRequestID string
}

type GetPaymentUseCase struct {
	repo domain.Repository
	inst *application.Instrument
}

func NewGetPaymentUseCase(repo domain.Repository, tel observability.Observability) *GetPaymentUseCase {
	return &GetPaymentUseCase{
		repo: repo,
		inst: application.NewInstrument(tel, paymentService),
	}
}

func (uc *GetPaymentUseCase) Execute(ctx context.Context, cmd GetPaymentInput) (_ *domain.Payment, err error) {
	ctx, run := uc.inst.Start(ctx, useCasePaymentGet, "GetPayment",
		attribute.String("payment.checkout_request_id", cmd.CheckoutRequestID),
	)
	defer func() { run.End(err) }()

	p, err := uc.repo.GetForUser(ctx, cmd.UserID, cmd.CheckoutRequestID)
	if err != nil {
		run.Fail("PAYMENT_LOOKUP_FAILED")
		return nil, wrapRepositoryError(err)
	}
	return p, nil
}

func classifyGatewayError(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return statusGatewayTimeout
	case errors.Is(err, domain.ErrGatewayRejected):
		return statusGatewayRejected
	default:
		return statusGatewayUnavailable
	}
}

func wrapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, domain.ErrConflict):
		return domain.ErrConflict
	default:
		return fmt.Errorf("%w: %w", ErrRepository, err)
	}
}

var (
	_ application.UseCase[InitiatePaymentInput, *InitiatePaymentResult] = (*InitiatePaymentUseCase)(nil)
	_ application.UseCase[domain.CallbackResult, *domain.Payment]       = (*HandleCallbackUseCase)(nil)
	_ application.UseCase[GetPaymentInput, *domain.Payment]             = (*GetPaymentUseCase)(nil)
)
