package handlers

import (
	"time"

	"restro-system/internal/database/models"
)

// -- MODEL TO RESPONSE --
// Money leaves the API as fixed two-decimal strings.

type BillResponse struct {
	ID          uint       `json:"id"`
	OrderID     uint       `json:"order_id"`
	TotalAmount string     `json:"total_amount"`
	IsPaid      bool       `json:"is_paid"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type MenuItemResponse struct {
	ID           uint      `json:"id"`
	Name         string    `json:"name"`
	Price        string    `json:"price"`
	CategoryID   uint      `json:"category_id"`
	CategoryName string    `json:"category_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type OrderResponse struct {
	ID          uint               `json:"id"`
	TableID     uint               `json:"table_id"`
	TableNumber int                `json:"table_number,omitempty"`
	WaiterID    uint               `json:"waiter_id"`
	WaiterName  string             `json:"waiter_name,omitempty"`
	Version     int                `json:"version"`
	ItemIDs     []uint             `json:"item_ids"`
	MenuItems   []MenuItemResponse `json:"menu_items"`
	Bill        *BillResponse      `json:"bill,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

func billToResponse(b *models.Bill) *BillResponse {
	if b == nil {
		return nil
	}
	return &BillResponse{
		ID:          b.ID,
		OrderID:     b.OrderID,
		TotalAmount: b.TotalAmount.StringFixed(2),
		IsPaid:      b.IsPaid,
		PaidAt:      b.PaidAt,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

func billsToResponse(bills []models.Bill) []*BillResponse {
	out := make([]*BillResponse, 0, len(bills))
	for i := range bills {
		out = append(out, billToResponse(&bills[i]))
	}
	return out
}

func menuItemToResponse(m models.MenuItem) MenuItemResponse {
	resp := MenuItemResponse{
		ID:         m.ID,
		Name:       m.Name,
		Price:      m.Price.StringFixed(2),
		CategoryID: m.CategoryID,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
	if m.Category != nil {
		resp.CategoryName = m.Category.Name
	}
	return resp
}

func menuItemsToResponse(items []models.MenuItem) []MenuItemResponse {
	out := make([]MenuItemResponse, 0, len(items))
	for _, m := range items {
		out = append(out, menuItemToResponse(m))
	}
	return out
}

func orderToResponse(o *models.Order) OrderResponse {
	resp := OrderResponse{
		ID:        o.ID,
		TableID:   o.TableID,
		WaiterID:  o.WaiterID,
		Version:   o.Version,
		ItemIDs:   make([]uint, 0, len(o.MenuItems)),
		MenuItems: menuItemsToResponse(o.MenuItems),
		Bill:      billToResponse(o.Bill),
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
	for _, m := range o.MenuItems {
		resp.ItemIDs = append(resp.ItemIDs, m.ID)
	}
	if o.Table != nil {
		resp.TableNumber = o.Table.Number
	}
	if o.Waiter != nil {
		resp.WaiterName = o.Waiter.Name
	}
	return resp
}

func ordersToResponse(orders []models.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, orderToResponse(&orders[i]))
	}
	return out
}
