package gormstore

import (
	"context"
	"fmt"

	domain "github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/payment"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	m := paymentFromDomain(p)
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&m).Error; err != nil {
		if isDuplicate(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("create payment: %w", err)
	}
	p.ID, p.CreatedAt, p.UpdatedAt = m.ID, m.CreatedAt, m.UpdatedAt
	return nil
}

// Settle writes the callback outcome in a single conditional UPDATE guarded
// by status = pending. Identity columns are never rewritten.
func (r *PaymentRepository) Settle(ctx context.Context, p *domain.Payment) (bool, error) {
	result := r.db.WithContext(ctx).Model(&paymentModel{}).
		Where("checkout_request_id = ? AND status = ?", p.CheckoutRequestID, string(domain.StatusPending)).
		Updates(map[string]any{
			"status":               string(p.Status),
			"result_code":          p.ResultCode,
			"result_desc":          p.ResultDesc,
			"mpesa_receipt_number": p.ReceiptNumber,
		})
	if err := result.Error; err != nil {
		return false, fmt.Errorf("settle payment: %w", err)
	}
	return result.RowsAffected == 1, nil
}

func (r *PaymentRepository) GetByCheckoutID(ctx context.Context, checkoutRequestID string) (*domain.Payment, error) {
	return r.first(ctx, r.db.WithContext(ctx).Where("checkout_request_id = ?", checkoutRequestID))
}

func (r *PaymentRepository) GetForUser(ctx context.Context, userID uint, checkoutRequestID string) (*domain.Payment, error) {
	return r.first(ctx, r.db.WithContext(ctx).Where("checkout_request_id = ? AND user_id = ?", checkoutRequestID, userID))
}

func (r *PaymentRepository) first(_ context.Context, q *gorm.DB) (*domain.Payment, error) {
	var m paymentModel
	if err := q.First(&m).Error; err != nil {
		if isNotFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find payment: %w", err)
	}
	p := m.toDomain()
	return &p, nil
}

func paymentFromDomain(p *domain.Payment) paymentModel {
	return paymentModel{
		ID:                p.ID,
		UserID:            p.UserID,
		OrderID:           p.OrderID,
		PhoneNumber:       p.PhoneNumber,
		Amount:            p.Amount,
		MerchantRequestID: p.MerchantRequestID,
		CheckoutRequestID: p.CheckoutRequestID,
		Status:            string(p.Status),
		ResultCode:        p.ResultCode,
		ResultDesc:        p.ResultDesc,
		ReceiptNumber:     p.ReceiptNumber,
	}
}

func (m paymentModel) toDomain() domain.Payment {
	return domain.Payment{
		ID:                m.ID,
		UserID:            m.UserID,
		OrderID:           m.OrderID,
		PhoneNumber:       m.PhoneNumber,
		Amount:            m.Amount,
		MerchantRequestID: m.MerchantRequestID,
		CheckoutRequestID: m.CheckoutRequestID,
		Status:            domain.Status(m.Status),
		ResultCode:        m.ResultCode,
		ResultDesc:        m.ResultDesc,
		ReceiptNumber:     m.ReceiptNumber,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}
