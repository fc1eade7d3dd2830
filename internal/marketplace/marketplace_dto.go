package marketplace

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Images   []string         `json:"images"`
	Price    decimal.Decimal  `json:"price"`
	Discount *decimal.Decimal `json:"discount,omitempty"`
	VendorID string           `json:"vendorId"`
}

type CartItem struct {
	ID       string          `json:"id"`
	Product  Product         `json:"product"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type Cart struct {
	ID         string          `json:"id"`
	CustomerID string          `json:"customerId"`
	VendorID   *string         `json:"vendorId"`
	Items      []CartItem      `json:"items"`
	Total      decimal.Decimal `json:"total"`
}

type AddCartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	VendorID  string `json:"vendorId"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

type Coupon struct {
	ID            string           `json:"id"`
	Code          string           `json:"code"`
	Description   string           `json:"description"`
	DiscountType  string           `json:"discountType"`
	DiscountValue decimal.Decimal  `json:"discountValue"`
	MinPurchase   *decimal.Decimal `json:"minPurchase,omitempty"`
	StartDate     time.Time        `json:"startDate"`
	EndDate       time.Time        `json:"endDate"`
	IsActive      bool             `json:"isActive"`
}

type CheckoutRequest struct {
	CouponCode string `json:"couponCode,omitempty"`
}

type CheckoutSession struct {
	PaymentURL string `json:"payment_url"`
}

// envelope is how the marketplace wraps every payload.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
