// Package marketplacetest runs an in-memory marketplace over HTTP for tests.
// It applies the same cart rules as the real service: one vendor per cart
// (a different vendor replaces the cart), merging of the same product,
// stock limits and a quantity floor of 1.
package marketplacetest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"go-storefront/internal/marketplace"

	"github.com/shopspring/decimal"
)

const (
	OpGetCart      = "get_cart"
	OpAddItem      = "add_item"
	OpUpdateItem   = "update_item"
	OpRemoveItem   = "remove_item"
	OpClearCart    = "clear_cart"
	OpListCoupons  = "list_coupons"
	OpCheckout     = "checkout"
	PaymentBaseURL = "https://pay.example.test/session/"
)

type failure struct {
	status  int
	message string
}

type userCart struct {
	id       string
	vendorID string
	items    []marketplace.CartItem
}

type Server struct {
	*httptest.Server

	mu       sync.Mutex
	seq      int
	products map[string]marketplace.Product
	stock    map[string]int
	coupons  []marketplace.Coupon
	carts    map[string]*userCart
	sessions map[string]string
	failures map[string][]failure
	latency  map[string]time.Duration
	calls    map[string]int
	lastKey  string
	lastCode string
	now      func() time.Time
}

func NewServer() *Server {
	s := &Server{
		products: make(map[string]marketplace.Product),
		stock:    make(map[string]int),
		carts:    make(map[string]*userCart),
		sessions: make(map[string]string),
		failures: make(map[string][]failure),
		latency:  make(map[string]time.Duration),
		calls:    make(map[string]int),
		now:      time.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /cart", s.handle(OpGetCart, s.getCart))
	mux.HandleFunc("DELETE /cart", s.handle(OpClearCart, s.clearCart))
	mux.HandleFunc("POST /cart-items", s.handle(OpAddItem, s.addItem))
	mux.HandleFunc("PUT /cart-items/{id}", s.handle(OpUpdateItem, s.updateItem))
	mux.HandleFunc("DELETE /cart-items/{id}", s.handle(OpRemoveItem, s.removeItem))
	mux.HandleFunc("GET /coupons", s.handle(OpListCoupons, s.listCoupons))
	mux.HandleFunc("POST /checkout/initiate", s.handle(OpCheckout, s.checkout))

	s.Server = httptest.NewServer(mux)
	return s
}

// Client returns a marketplace client pointed at the fake.
func (s *Server) Client() marketplace.Client {
	c, err := marketplace.NewClient(marketplace.Options{BaseURL: s.URL, HTTPClient: s.Server.Client()})
	if err != nil {
		panic(err)
	}
	return c
}

// ========================
// setup
// ========================

func (s *Server) AddProduct(p marketplace.Product, stock int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
	s.stock[p.ID] = stock
}

func (s *Server) AddCoupon(c marketplace.Coupon) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coupons = append(s.coupons, c)
}

// FailNext makes the next call of op answer with status and message.
func (s *Server) FailNext(op string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = append(s.failures[op], failure{status: status, message: message})
}

// SetLatency delays every call of op before it touches any state.
func (s *Server) SetLatency(op string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latency[op] = d
}

// ========================
// inspection
// ========================

func (s *Server) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Cart returns the server-side cart of the user behind token.
func (s *Server) Cart(token string) marketplace.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(token)
}

func (s *Server) LastIdempotencyKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastKey
}

func (s *Server) LastCouponCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastCode
}

// ========================
// handlers
// ========================

type handlerFunc func(w http.ResponseWriter, r *http.Request, token string)

func (s *Server) handle(op string, fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[op]++
		delay := s.latency[op]
		var fail *failure
		if queue := s.failures[op]; len(queue) > 0 {
			fail = &queue[0]
			s.failures[op] = queue[1:]
		}
		s.mu.Unlock()

		if delay > 0 {
			time.Sleep(delay)
		}
		if fail != nil {
			writeError(w, fail.status, "INJECTED", fail.message)
			return
		}

		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" || token == r.Header.Get("Authorization") {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
			return
		}
		fn(w, r, token)
	}
}

func (s *Server) getCart(w http.ResponseWriter, _ *http.Request, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeData(w, http.StatusOK, s.snapshot(token))
}

func (s *Server) clearCart(w http.ResponseWriter, _ *http.Request, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.cartFor(token)
	c.items = nil
	c.vendorID = ""
	writeData(w, http.StatusOK, s.snapshot(token))
}

func (s *Server) addItem(w http.ResponseWriter, r *http.Request, token string) {
	var req marketplace.AddCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[req.ProductID]
	if !ok {
		writeError(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found")
		return
	}
	if req.Quantity < 1 {
		writeError(w, http.StatusBadRequest, "INVALID_QUANTITY", "Quantity must be at least 1")
		return
	}
	if req.VendorID != "" && req.VendorID != p.VendorID {
		writeError(w, http.StatusBadRequest, "VENDOR_MISMATCH", "Product does not belong to vendor")
		return
	}

	c := s.cartFor(token)
	if len(c.items) > 0 && c.vendorID != p.VendorID {
		// another vendor replaces the cart
		c.items = nil
	}
	c.vendorID = p.VendorID

	for i := range c.items {
		if c.items[i].Product.ID == p.ID {
			if c.items[i].Quantity+req.Quantity > s.stock[p.ID] {
				writeError(w, http.StatusConflict, "INSUFFICIENT_STOCK", "Insufficient stock")
				return
			}
			c.items[i].Quantity += req.Quantity
			writeData(w, http.StatusOK, s.snapshot(token))
			return
		}
	}

	if req.Quantity > s.stock[p.ID] {
		writeError(w, http.StatusConflict, "INSUFFICIENT_STOCK", "Insufficient stock")
		return
	}
	s.seq++
	c.items = append(c.items, marketplace.CartItem{
		ID:       fmt.Sprintf("ci-%d", s.seq),
		Product:  p,
		Quantity: req.Quantity,
		Price:    p.Price,
	})
	writeData(w, http.StatusCreated, s.snapshot(token))
}

func (s *Server) updateItem(w http.ResponseWriter, r *http.Request, token string) {
	var req marketplace.UpdateCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.cartFor(token)
	idx := indexOf(c.items, r.PathValue("id"))
	if idx < 0 {
		writeError(w, http.StatusNotFound, "CART_ITEM_NOT_FOUND", "Cart item not found")
		return
	}
	if req.Quantity < 1 {
		writeError(w, http.StatusBadRequest, "INVALID_QUANTITY", "Quantity must be at least 1")
		return
	}
	if req.Quantity > s.stock[c.items[idx].Product.ID] {
		writeError(w, http.StatusConflict, "INSUFFICIENT_STOCK", "Insufficient stock")
		return
	}
	c.items[idx].Quantity = req.Quantity
	writeData(w, http.StatusOK, s.snapshot(token))
}

func (s *Server) removeItem(w http.ResponseWriter, r *http.Request, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.cartFor(token)
	idx := indexOf(c.items, r.PathValue("id"))
	if idx < 0 {
		writeError(w, http.StatusNotFound, "CART_ITEM_NOT_FOUND", "Cart item not found")
		return
	}
	c.items = append(c.items[:idx], c.items[idx+1:]...)
	if len(c.items) == 0 {
		c.vendorID = ""
	}
	writeData(w, http.StatusOK, s.snapshot(token))
}

func (s *Server) listCoupons(w http.ResponseWriter, r *http.Request, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := r.URL.Query()
	now := s.now()
	out := make([]marketplace.Coupon, 0, len(s.coupons))
	for _, c := range s.coupons {
		if q.Get("isActive") == "true" && !c.IsActive {
			continue
		}
		if q.Get("validNow") == "true" && (now.Before(c.StartDate) || now.After(c.EndDate)) {
			continue
		}
		out = append(out, c)
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) checkout(w http.ResponseWriter, r *http.Request, token string) {
	var req marketplace.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := r.Header.Get("Idempotency-Key")
	s.lastKey = key
	s.lastCode = req.CouponCode

	if key != "" {
		if u, ok := s.sessions[key]; ok {
			writeData(w, http.StatusOK, marketplace.CheckoutSession{PaymentURL: u})
			return
		}
	}

	if len(s.cartFor(token).items) == 0 {
		writeError(w, http.StatusBadRequest, "CART_EMPTY", "Cart is empty")
		return
	}
	if req.CouponCode != "" && !s.hasCoupon(req.CouponCode) {
		writeError(w, http.StatusUnprocessableEntity, "INVALID_COUPON", "Coupon is not valid")
		return
	}

	s.seq++
	u := fmt.Sprintf("%s%d", PaymentBaseURL, s.seq)
	if key != "" {
		s.sessions[key] = u
	}
	writeData(w, http.StatusCreated, marketplace.CheckoutSession{PaymentURL: u})
}

// ========================
// helpers (callers hold mu)
// ========================

func (s *Server) cartFor(token string) *userCart {
	c, ok := s.carts[token]
	if !ok {
		s.seq++
		c = &userCart{id: fmt.Sprintf("cart-%d", s.seq)}
		s.carts[token] = c
	}
	return c
}

func (s *Server) snapshot(token string) marketplace.Cart {
	c := s.cartFor(token)
	out := marketplace.Cart{
		ID:         c.id,
		CustomerID: token,
		Items:      make([]marketplace.CartItem, len(c.items)),
		Total:      decimal.Zero,
	}
	copy(out.Items, c.items)
	if len(c.items) > 0 {
		v := c.vendorID
		out.VendorID = &v
	}

	hundred := decimal.NewFromInt(100)
	for _, it := range c.items {
		price := it.Price
		if it.Product.Discount != nil {
			price = price.Mul(decimal.NewFromInt(1).Sub(it.Product.Discount.Div(hundred)))
		}
		out.Total = out.Total.Add(price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return out
}

func (s *Server) hasCoupon(code string) bool {
	for _, c := range s.coupons {
		if strings.EqualFold(c.Code, code) && c.IsActive {
			return true
		}
	}
	return false
}

func indexOf(items []marketplace.CartItem, id string) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"data":    data,
		"message": "OK",
	})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"data":    nil,
		"error":   map[string]string{"code": code, "message": message},
		"message": message,
	})
}
