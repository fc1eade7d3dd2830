// Package marketplace talks to the remote marketplace REST API that owns
// carts, coupons and payment sessions.
package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"go-storefront/internal/pkg/apperror"
)

const (
	maxBodyBytes      = 1 << 20
	maxMessageLength  = 500
	idempotencyHeader = "Idempotency-Key"
)

// Client has one method per remote operation. token is the caller's access
// token and is forwarded as a bearer credential. Calls are never retried.
//
//go:generate mockgen -source=marketplace_client.go -destination=../mock/marketplace/marketplace_mock.go -package=mock
type Client interface {
	GetCart(ctx context.Context, token string) (Cart, error)
	AddCartItem(ctx context.Context, token string, req AddCartItemRequest) error
	UpdateCartItem(ctx context.Context, token, itemID string, req UpdateCartItemRequest) error
	RemoveCartItem(ctx context.Context, token, itemID string) error
	ClearCart(ctx context.Context, token string) error
	ListCoupons(ctx context.Context, token string) ([]Coupon, error)
	InitiateCheckout(ctx context.Context, token string, req CheckoutRequest, idempotencyKey string) (CheckoutSession, error)
}

type Options struct {
	BaseURL string
	// Timeout of zero keeps the net/http default of no timeout.
	Timeout    time.Duration
	HTTPClient *http.Client
}

type httpClient struct {
	baseURL string
	http    *http.Client
}

func NewClient(opts Options) (Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("marketplace base url is not configured")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("marketplace base url: %w", err)
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}

	return &httpClient{baseURL: base, http: hc}, nil
}

func (c *httpClient) GetCart(ctx context.Context, token string) (Cart, error) {
	var cart Cart
	err := c.do(ctx, http.MethodGet, "/cart", token, nil, "", &cart)
	return cart, err
}

func (c *httpClient) AddCartItem(ctx context.Context, token string, req AddCartItemRequest) error {
	return c.do(ctx, http.MethodPost, "/cart-items", token, req, "", nil)
}

func (c *httpClient) UpdateCartItem(ctx context.Context, token, itemID string, req UpdateCartItemRequest) error {
	return c.do(ctx, http.MethodPut, "/cart-items/"+url.PathEscape(itemID), token, req, "", nil)
}

func (c *httpClient) RemoveCartItem(ctx context.Context, token, itemID string) error {
	return c.do(ctx, http.MethodDelete, "/cart-items/"+url.PathEscape(itemID), token, nil, "", nil)
}

func (c *httpClient) ClearCart(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodDelete, "/cart", token, nil, "", nil)
}

func (c *httpClient) ListCoupons(ctx context.Context, token string) ([]Coupon, error) {
	var coupons []Coupon
	err := c.do(ctx, http.MethodGet, "/coupons?validNow=true&isActive=true", token, nil, "", &coupons)
	if coupons == nil {
		coupons = []Coupon{}
	}
	return coupons, err
}

func (c *httpClient) InitiateCheckout(ctx context.Context, token string, req CheckoutRequest, idempotencyKey string) (CheckoutSession, error) {
	var sess CheckoutSession
	if err := c.do(ctx, http.MethodPost, "/checkout/initiate", token, req, idempotencyKey, &sess); err != nil {
		return CheckoutSession{}, err
	}
	if sess.PaymentURL == "" {
		return CheckoutSession{}, apperror.New(
			apperror.CodeServerRejected,
			"Marketplace did not return a payment url",
			http.StatusBadGateway,
		)
	}
	return sess, nil
}

func (c *httpClient) do(ctx context.Context, method, path, token string, payload any, idempotencyKey string, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if idempotencyKey != "" {
		req.Header.Set(idempotencyHeader, idempotencyKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperror.Wrap(err, ErrUnavailable.Code, ErrUnavailable.Message, ErrUnavailable.HTTPStatus)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return apperror.Wrap(err, ErrUnavailable.Code, ErrUnavailable.Message, ErrUnavailable.HTTPStatus)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return rejection(resp.StatusCode, respBody)
	}

	return decode(resp.StatusCode, respBody, out)
}

// decode accepts both the {success,data} envelope and a bare payload.
func decode(status int, body []byte, out any) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}

	var env envelope
	if trimmed[0] == '{' && json.Unmarshal(trimmed, &env) == nil && env.Success != nil {
		if !*env.Success {
			return rejection(status, trimmed)
		}
		if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
			return nil
		}
		return wrapDecode(json.Unmarshal(env.Data, out))
	}

	if out == nil {
		return nil
	}
	return wrapDecode(json.Unmarshal(trimmed, out))
}

func wrapDecode(err error) error {
	if err == nil {
		return nil
	}
	return apperror.Wrap(err, apperror.CodeUpstreamUnavailable, "Unexpected response from marketplace", http.StatusBadGateway)
}

func rejection(status int, body []byte) error {
	msg := rejectionMessage(body)

	switch {
	case status == http.StatusUnauthorized:
		if msg == "" {
			return ErrUnauthorized
		}
		return apperror.New(apperror.CodeUnauthorized, msg, http.StatusUnauthorized)
	case status >= 500:
		if msg == "" {
			return ErrUnavailable
		}
		return apperror.New(apperror.CodeServerRejected, msg, http.StatusBadGateway)
	case status < 400:
		// a 2xx envelope that says success=false
		status = http.StatusUnprocessableEntity
	}

	if msg == "" {
		msg = defaultRejectMessage
	}
	return apperror.New(apperror.CodeServerRejected, msg, status)
}

func rejectionMessage(body []byte) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil {
		if env.Error != nil && env.Error.Message != "" {
			return env.Error.Message
		}
		if env.Message != "" {
			return env.Message
		}
	}

	msg := strings.TrimSpace(string(body))
	if strings.HasPrefix(msg, "{") || strings.HasPrefix(msg, "<") {
		return ""
	}
	if len(msg) > maxMessageLength {
		cut := maxMessageLength
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut]
	}
	return msg
}

// IsUnavailable reports a transport failure or a 5xx answer that carried
// no message. A 5xx with a message is a rejection.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
