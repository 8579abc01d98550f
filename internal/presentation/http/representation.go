package httppresentation

import (
	"time"

	domcatalog "github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/catalog"
	domorder "github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/order"
	dompay "github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/money"
)

type categoryResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func toCategory(c *domcatalog.Category) categoryResponse {
	return categoryResponse{ID: c.ID, Name: c.Name, Slug: c.Slug}
}

type productResponse struct {
	ID              uint              `json:"id"`
	CategoryDetails *categoryResponse `json:"category_details"`
	Name            string            `json:"name"`
	Description     string            `json:"description"`
	Price           string            `json:"price"`
	Stock           int               `json:"stock"`
	Image           *string           `json:"image"`
	ExecutableFile  *string           `json:"executable_file"`
	CreatedAt       time.Time         `json:"created_at"`
}

func (s *Server) toProduct(p *domcatalog.Product) productResponse {
	out := productResponse{
		ID:             p.ID,
		Name:           p.Name,
		Description:    p.Description,
		Price:          money.Format(p.Price),
		Stock:          p.Stock,
		Image:          s.mediaURL(p.Image),
		ExecutableFile: s.mediaURL(p.ExecutableFile),
		CreatedAt:      p.CreatedAt,
	}
	if p.Category != nil {
		c := toCategory(p.Category)
		out.CategoryDetails = &c
	}
	return out
}

func (s *Server) mediaURL(rel string) *string {
	if rel == "" {
		return nil
	}
	u := s.opts.MediaURL(rel)
	return &u
}

type orderItemResponse struct {
	Product  uint   `json:"product"`
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
}

type orderResponse struct {
	ID         uint                `json:"id"`
	User       uint                `json:"user"`
	TotalPrice string              `json:"total_price"`
	CreatedAt  time.Time           `json:"created_at"`
	Items      []orderItemResponse `json:"items"`
}

func toOrder(o *domorder.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemResponse{
			Product:  it.ProductID,
			Quantity: it.Quantity,
			Price:    money.Format(it.Price),
		})
	}
	return orderResponse{
		ID:         o.ID,
		User:       o.UserID,
		TotalPrice: money.Format(o.TotalPrice),
		CreatedAt:  o.CreatedAt,
		Items:      items,
	}
}

type paymentResponse struct {
	ID                 uint      `json:"id"`
	OrderID            *uint     `json:"order_id"`
	PhoneNumber        string    `json:"phone_number"`
	Amount             int64     `json:"amount"`
	MerchantRequestID  string    `json:"merchant_request_id"`
	CheckoutRequestID  string    `json:"checkout_request_id"`
	Status             string    `json:"status"`
	ResultCode         *int      `json:"result_code"`
	ResultDesc         string    `json:"result_desc"`
	MpesaReceiptNumber string    `json:"mpesa_receipt_number"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func toPayment(p *dompay.Payment) paymentResponse {
	return paymentResponse{
		ID:                 p.ID,
		OrderID:            p.OrderID,
		PhoneNumber:        p.PhoneNumber,
		Amount:             p.Amount,
		MerchantRequestID:  p.MerchantRequestID,
		CheckoutRequestID:  p.CheckoutRequestID,
		Status:             string(p.Status),
		ResultCode:         p.ResultCode,
		ResultDesc:         p.ResultDesc,
		MpesaReceiptNumber: p.ReceiptNumber,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}
