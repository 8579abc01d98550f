package order

import (
	"context"

	"github.com/Zhima-Mochi/minishop-storefront/app/internal/application"
	domain "github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/paging"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	useCaseOrderList = "order.list"
	useCaseOrderGet  = "order.get"
)

type ListOrdersInput struct {
	UserID uint
	Page   int
}

type ListOrdersResult struct {
	Orders []domain.Order
	Total  int64
}

// ListOrdersUseCase pages through the caller's own orders.
type ListOrdersUseCase struct {
	repo     domain.Repository
	pageSize int
	inst     *application.Instrument
}

func NewListOrdersUseCase(repo domain.Repository, tel observability.Observability) *ListOrdersUseCase {
	return &ListOrdersUseCase{
		repo:     repo,
		pageSize: paging.DefaultSize,
		inst:     application.NewInstrument(tel, orderService),
	}
}

func (uc *ListOrdersUseCase) Execute(ctx context.Context, cmd ListOrdersInput) (_ *ListOrdersResult, err error) {
	ctx, run := uc.inst.Start(ctx, useCaseOrderList, "ListOrders",
		attribute.Int64("order.user_id", int64(cmd.UserID)),
		attribute.Int("page", cmd.Page),
	)
	defer func() { run.End(err) }()

	orders, total, err := uc.repo.ListByUser(ctx, cmd.UserID, paging.Page(cmd.Page, uc.pageSize))
	if err != nil {
		run.Fail("REPO_LIST_FAILED")
		return nil, wrapRepositoryError(err)
	}
	if err := paging.Check(cmd.Page, total, uc.pageSize); err != nil {
		run.Fail("INVALID_PAGE")
		return nil, err
	}
	run.Field("count", total)
	return &ListOrdersResult{Orders: orders, Total: total}, nil
}

type GetOrderInput struct {
	UserID  uint
	OrderID uint
}

// GetOrderUseCase loads one order owned by the caller. Orders owned by anyone
// else are reported as not found.
type GetOrderUseCase struct {
	repo domain.Repository
	inst *application.Instrument
}

func NewGetOrderUseCase(repo domain.Repository, tel observability.Observability) *GetOrderUseCase {
	return &GetOrderUseCase{
		repo: repo,
		inst: application.NewInstrument(tel, orderService),
	}
}

func (uc *GetOrderUseCase) Execute(ctx context.Context, cmd GetOrderInput) (_ *domain.Order, err error) {
	ctx, run := uc.inst.Start(ctx, useCaseOrderGet, "GetOrder",
		attribute.Int64("order.user_id", int64(cmd.UserID)),
		attribute.Int64("order.id", int64(cmd.OrderID)),
	)
	defer func() { run.End(err) }()

	o, err := uc.repo.GetForUser(ctx, cmd.UserID, cmd.OrderID)
	if err != nil {
		run.Fail("ORDER_LOOKUP_FAILED")
		return nil, wrapRepositoryError(err)
	}
	return o, nil
}

var (
	_ application.UseCase[ListOrdersInput, *ListOrdersResult] = (*ListOrdersUseCase)(nil)
	_ application.UseCase[GetOrderInput, *domain.Order]       = (*GetOrderUseCase)(nil)
)
