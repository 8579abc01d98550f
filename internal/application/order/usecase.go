package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/minishop-storefront/app/internal/application"
	domain "github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/validation"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/observability"
	"github.com/shopspring/decimal"

	"go.opentelemetry.io/otel/attribute"
)

const (
	orderService       = "order-service"
	useCaseOrderCreate = "order.create"
)

var (
	ErrNotFound   = domain.ErrNotFound
	ErrRepository = errors.New("order: repository failure")
)

type ItemInput struct {
	ProductID uint
	Quantity  int
	Price     decimal.Decimal
}

type CreateOrderInput struct {
	UserID     uint
	TotalPrice decimal.Decimal
	Items      []ItemInput
}

type CreateOrderResult struct {
	Order *domain.Order
}

// CreateOrderUseCase stores an order and its items in one transaction and
// announces it on the event bus.
type CreateOrderUseCase struct {
	repo      domain.Repository
	publisher domoutbox.Publisher
	inst      *application.Instrument
}

func NewCreateOrderUseCase(repo domain.Repository, publisher domoutbox.Publisher, tel observability.Observability) *CreateOrderUseCase {
	return &CreateOrderUseCase{
		repo:      repo,
		publisher: publisher,
		inst:      application.NewInstrument(tel, orderService),
	}
}

// Execute performs the order creation flow.
func (uc *CreateOrderUseCase) Execute(ctx context.Context, cmd CreateOrderInput) (_ *CreateOrderResult, err error) {
	ctx, run := uc.inst.Start(ctx, useCaseOrderCreate, "CreateOrder",
		attribute.Int64("order.user_id", int64(cmd.UserID)),
		attribute.Int("order.item_count", len(cmd.Items)),
	)
	defer func() { run.End(err) }()

	items := make([]domain.Item, len(cmd.Items))
	for i, it := range cmd.Items {
		items[i] = domain.Item{ProductID: it.ProductID, Quantity: it.Quantity, Price: it.Price}
	}
	entity, derr := domain.New(cmd.UserID, cmd.TotalPrice, items)
	if derr != nil {
		run.Fail("VALIDATION_FAILED")
		return nil, derr
	}

	found, rerr := uc.repo.ExistingProducts(ctx, entity.ProductIDs())
	if rerr != nil {
		run.Fail("PRODUCT_LOOKUP_FAILED")
		return nil, wrapRepositoryError(rerr)
	}
	if verr := unknownProducts(entity.Items, found); verr != nil {
		run.Fail("UNKNOWN_PRODUCT")
		return nil, verr
	}

	if err := ctx.Err(); err != nil {
		run.Fail("CONTEXT_CANCELED")
		return nil, err
	}
	if err := uc.repo.Create(ctx, entity); err != nil {
		run.Fail("REPO_INSERT_FAILED")
		return nil, wrapRepositoryError(err)
	}

	run.Span().SetAttributes(attribute.Int64("order.id", int64(entity.ID)))
	run.Field("order_id", entity.ID)
	run.Publish(uc.publisher, domain.NewCreatedEvent(entity))

	return &CreateOrderResult{Order: entity}, nil
}

func unknownProducts(items []domain.Item, found map[uint]bool) error {
	errs := validation.Errors{}
	for i, it := range items {
		if !found[it.ProductID] {
			errs.Add(fmt.Sprintf("items[%d].product", i),
				fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", it.ProductID))
		}
	}
	return errs.Err()
}

func wrapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, domain.ErrUnknownProduct):
		// a product vanished between the existence check and the insert
		return validation.New("items", "One or more products do not exist.")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrRepository, err)
	}
}

var _ application.UseCase[CreateOrderInput, *CreateOrderResult] = (*CreateOrderUseCase)(nil)
