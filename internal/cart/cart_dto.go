package cart

import (
	"time"

	"go-storefront/internal/shared/helper"
)

// ==================== REQUEST STRUCTS ====================

type AddItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
	VendorID  string `json:"vendorId" validate:"required"`
	// Name is only used to label a pending cross-vendor product.
	Name string `json:"name,omitempty"`
}

// UpdateQtyRequest carries a relative change, e.g. -1 or +1.
type UpdateQtyRequest struct {
	Delta int `json:"delta" validate:"required,ne=0"`
}

// ==================== RESPONSE STRUCTS ====================

type Snapshot struct {
	Cart       Cart
	FetchedAt  time.Time
	IsFetching bool
	Stale      bool
}

type CartItemResponse struct {
	ID              string   `json:"id"`
	ProductID       string   `json:"productId"`
	Name            string   `json:"name"`
	Images          []string `json:"images"`
	VendorID        string   `json:"vendorId"`
	Quantity        int      `json:"quantity"`
	UnitPrice       string   `json:"unitPrice"`
	DiscountPercent *string  `json:"discountPercent,omitempty"`
	EffectivePrice  string   `json:"effectivePrice"`
	LineTotal       string   `json:"lineTotal"`
}

type CartResponse struct {
	ID         string             `json:"id"`
	VendorID   *string            `json:"vendorId"`
	Items      []CartItemResponse `json:"items"`
	ItemCount  int                `json:"itemCount"`
	Subtotal   string             `json:"subtotal"`
	FetchedAt  string             `json:"fetchedAt"`
	IsFetching bool               `json:"isFetching"`
	Stale      bool               `json:"stale"`
	Pending    []string           `json:"pending"`
}

func ToResponse(s Snapshot, pending []string) CartResponse {
	items := make([]CartItemResponse, 0, len(s.Cart.Items))
	for _, it := range s.Cart.Items {
		var discount *string
		if it.Product.DiscountPercent != nil {
			discount = helper.StringPtr(it.Product.DiscountPercent.String())
		}
		items = append(items, CartItemResponse{
			ID:              it.ID,
			ProductID:       it.Product.ID,
			Name:            it.Product.Name,
			Images:          it.Product.Images,
			VendorID:        it.Product.VendorID,
			Quantity:        it.Quantity,
			UnitPrice:       helper.FormatMoney(it.Price()),
			DiscountPercent: discount,
			EffectivePrice:  helper.FormatMoney(it.EffectivePrice()),
			LineTotal:       helper.FormatMoney(it.LineTotal()),
		})
	}

	var vendorID *string
	if !s.Cart.IsEmpty() {
		vendorID = helper.StringPtr(s.Cart.VendorID)
	}
	if pending == nil {
		pending = []string{}
	}

	fetchedAt := ""
	if !s.FetchedAt.IsZero() {
		fetchedAt = s.FetchedAt.Format(time.RFC3339)
	}

	return CartResponse{
		ID:         s.Cart.ID,
		VendorID:   vendorID,
		Items:      items,
		ItemCount:  s.Cart.ItemCount(),
		Subtotal:   helper.FormatMoney(s.Cart.Subtotal()),
		FetchedAt:  fetchedAt,
		IsFetching: s.IsFetching,
		Stale:      s.Stale,
		Pending:    pending,
	}
}
