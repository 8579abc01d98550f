package gormstore

import (
	"context"
	"fmt"

	domain "github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/paging"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create writes the order row and then one row per item inside a single
// transaction; any failure leaves nothing behind.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	m := orderModel{UserID: o.UserID, TotalPrice: o.TotalPrice}
	items := make([]orderItemModel, len(o.Items))

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&m).Error; err != nil {
			return err
		}
		for i, it := range o.Items {
			items[i] = orderItemModel{
				OrderID:   m.ID,
				ProductID: it.ProductID,
				Quantity:  it.Quantity,
				Price:     it.Price,
			}
		}
		return tx.Omit(clause.Associations).Create(&items).Error
	})
	if err != nil {
		if isForeignKey(err) {
			return domain.ErrUnknownProduct
		}
		return fmt.Errorf("create order: %w", err)
	}

	o.ID, o.CreatedAt = m.ID, m.CreatedAt
	for i := range o.Items {
		o.Items[i].ID = items[i].ID
		o.Items[i].OrderID = m.ID
	}
	return nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID uint, w paging.Window) ([]domain.Order, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&orderModel{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	var rows []orderModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Order("id").Offset(w.Offset).Limit(w.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	out := make([]domain.Order, len(rows))
	for i, m := range rows {
		out[i] = m.toDomain()
	}
	return out, total, nil
}

func (r *OrderRepository) GetForUser(ctx context.Context, userID, id uint) (*domain.Order, error) {
	var m orderModel
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&m).Error
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find order: %w", err)
	}
	o := m.toDomain()
	return &o, nil
}

func (r *OrderRepository) ExistingProducts(ctx context.Context, ids []uint) (map[uint]bool, error) {
	found := make(map[uint]bool, len(ids))
	if len(ids) == 0 {
		return found, nil
	}
	var existing []uint
	if err := r.db.WithContext(ctx).Model(&productModel{}).Where("id IN ?", ids).Pluck("id", &existing).Error; err != nil {
		return nil, fmt.Errorf("check products: %w", err)
	}
	for _, id := range existing {
		found[id] = true
	}
	return found, nil
}

func (m orderModel) toDomain() domain.Order {
	o := domain.Order{
		ID:         m.ID,
		UserID:     m.UserID,
		TotalPrice: m.TotalPrice,
		CreatedAt:  m.CreatedAt,
		Items:      make([]domain.Item, len(m.Items)),
	}
	for i, it := range m.Items {
		o.Items[i] = domain.Item{
			ID:        it.ID,
			OrderID:   it.OrderID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price,
		}
	}
	return o
}
