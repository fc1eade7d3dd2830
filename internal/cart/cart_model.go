package cart

import (
	"go-storefront/internal/marketplace"
	"go-storefront/internal/shared/helper"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Images          []string         `json:"images"`
	Price           decimal.Decimal  `json:"price"`
	DiscountPercent *decimal.Decimal `json:"discountPercent,omitempty"`
	VendorID        string           `json:"vendorId"`
}

type CartItem struct {
	ID        string          `json:"id"`
	Product   Product         `json:"product"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// Price is the unit price captured when the item was added, falling back to
// the product's list price when the marketplace did not send a snapshot.
func (i CartItem) Price() decimal.Decimal {
	if i.UnitPrice.IsZero() {
		return i.Product.Price
	}
	return i.UnitPrice
}

// EffectivePrice applies the product's own percentage discount.
func (i CartItem) EffectivePrice() decimal.Decimal {
	pct := helper.ClampPercent(helper.DecimalPtrValue(i.Product.DiscountPercent))
	return i.Price().Mul(decimal.NewFromInt(1).Sub(helper.Percent(pct)))
}

func (i CartItem) LineTotal() decimal.Decimal {
	return i.EffectivePrice().Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Cart struct {
	ID         string     `json:"id"`
	CustomerID string     `json:"customerId"`
	VendorID   string     `json:"vendorId"`
	Items      []CartItem `json:"items"`
	// ServerTotal is what the marketplace reported; totals shown to the
	// user are always recomputed from the items.
	ServerTotal decimal.Decimal `json:"serverTotal"`
}

func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// SingleVendor reports whether every item belongs to the cart's vendor.
// An empty cart trivially holds.
func (c Cart) SingleVendor() bool {
	for _, it := range c.Items {
		if it.Product.VendorID != c.VendorID {
			return false
		}
	}
	return true
}

// AcceptsVendor is true when an item of vendorID can be added without
// replacing the cart.
func (c Cart) AcceptsVendor(vendorID string) bool {
	return c.IsEmpty() || c.VendorID == vendorID
}

func (c Cart) FindItem(itemID string) (CartItem, bool) {
	for _, it := range c.Items {
		if it.ID == itemID {
			return it, true
		}
	}
	return CartItem{}, false
}

func (c Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// ItemCount is the sum of quantities, used for the header badge.
func (c Cart) ItemCount() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// ========================
// mapping
// ========================

func fromRemote(rc marketplace.Cart) Cart {
	c := Cart{
		ID:          rc.ID,
		CustomerID:  rc.CustomerID,
		VendorID:    helper.StringPtrValue(rc.VendorID),
		Items:       make([]CartItem, 0, len(rc.Items)),
		ServerTotal: rc.Total,
	}

	for _, it := range rc.Items {
		c.Items = append(c.Items, CartItem{
			ID: it.ID,
			Product: Product{
				ID:              it.Product.ID,
				Name:            it.Product.Name,
				Images:          it.Product.Images,
				Price:           it.Product.Price,
				DiscountPercent: it.Product.Discount,
				VendorID:        it.Product.VendorID,
			},
			Quantity:  it.Quantity,
			UnitPrice: it.Price,
		})
	}

	// some responses omit the cart-level vendor
	if c.VendorID == "" && len(c.Items) > 0 {
		c.VendorID = c.Items[0].Product.VendorID
	}
	return c
}
