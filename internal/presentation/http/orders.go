package httppresentation

import (
	"encoding/json"
	"fmt"
	"net/http"

	apporder "github.com/Zhima-Mochi/minishop-storefront/app/internal/application/order"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/validation"
	"github.com/shopspring/decimal"
)

type orderItemRequest struct {
	Product  *uint            `json:"product"`
	Quantity *int             `json:"quantity"`
	Price    *decimal.Decimal `json:"price"`
}

// orderRequest ignores the read-only id, user and created_at fields.
type orderRequest struct {
	ID         json.RawMessage    `json:"id"`
	User       json.RawMessage    `json:"user"`
	CreatedAt  json.RawMessage    `json:"created_at"`
	TotalPrice *decimal.Decimal   `json:"total_price"`
	Items      []orderItemRequest `json:"items"`
}

func (req orderRequest) input(userID uint) (apporder.CreateOrderInput, error) {
	errs := validation.Errors{}
	in := apporder.CreateOrderInput{UserID: userID}
	if req.TotalPrice == nil {
		errs.Add("total_price", "This field is required.")
	} else {
		in.TotalPrice = *req.TotalPrice
	}
	if req.Items == nil {
		errs.Add("items", "This field is required.")
	}
	for i, it := range req.Items {
		line := apporder.ItemInput{}
		if it.Product == nil {
			errs.Add(fmt.Sprintf("items[%d].product", i), "This field is required.")
		} else {
			line.ProductID = *it.Product
		}
		if it.Price == nil {
			errs.Add(fmt.Sprintf("items[%d].price", i), "This field is required.")
		} else {
			line.Price = *it.Price
		}
		if it.Quantity != nil {
			if *it.Quantity < 1 {
				errs.Add(fmt.Sprintf("items[%d].quantity", i), "Ensure this value is greater than or equal to 1.")
			}
			line.Quantity = *it.Quantity
		}
		in.Items = append(in.Items, line)
	}
	return in, errs.Err()
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	page, err := pageNumber(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	res, err := s.svc.ListOrders.Execute(r.Context(), apporder.ListOrdersInput{UserID: p.UserID, Page: page})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	out := make([]orderResponse, 0, len(res.Orders))
	for i := range res.Orders {
		out = append(out, toOrder(&res.Orders[i]))
	}
	writeJSON(w, http.StatusOK, newPage(r, page, res.Total, out))
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	var req orderRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	in, err := req.input(p.UserID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	res, err := s.svc.CreateOrder.Execute(r.Context(), in)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrder(res.Order))
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}
	o, err := s.svc.GetOrder.Execute(r.Context(), apporder.GetOrderInput{UserID: p.UserID, OrderID: id})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrder(o))
}
