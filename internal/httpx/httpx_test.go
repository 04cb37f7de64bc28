package httpx_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/httpx"
	"github.com/ariefcatur/go-storefront/internal/memstore"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/payment"
	"github.com/ariefcatur/go-storefront/internal/ratelimit"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

const (
	customer  = "5b1f7a2e-0c43-4a57-9b8e-3f0d8a1c6e01"
	addressID = "a0000000-0000-4000-8000-000000000001"
	mugID     = "0b8e4c1a-1111-4d2e-8f00-000000000001"
	lampID    = "0b8e4c1a-2222-4d2e-8f00-000000000002"
	sizeID    = "0b8e4c1a-3333-4d2e-8f00-000000000003"
	largeID   = "0b8e4c1a-5555-4d2e-8f00-000000000005"
)

type response struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details *struct {
			Available int `json:"available"`
			Requested int `json:"requested"`
		} `json:"details"`
	} `json:"error"`
	Meta *httpx.Meta `json:"meta"`
}

type APISuite struct {
	suite.Suite
	db      *memstore.DB
	sandbox *payment.Sandbox
	router  http.Handler
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}

func (s *APISuite) SetupTest() {
	s.db = memstore.New()
	s.db.PutProduct(catalog.Product{ID: mugID, Name: "Mug", Price: decimal.RequireFromString("10.99"), Stock: 20})
	s.db.PutProduct(catalog.Product{ID: lampID, Name: "Lamp", Price: decimal.RequireFromString("10.00"), Stock: 50})
	s.db.PutOptionType(catalog.OptionType{ID: sizeID, ProductID: lampID, Name: "Size"})
	s.db.PutOptionValue(catalog.OptionValue{ID: largeID, OptionTypeID: sizeID, Value: "Large", PriceDelta: decimal.RequireFromString("5.00"), Stock: 30})
	s.db.PutAddress(customer, orders.Address{ID: addressID, FullName: "Sari", Line1: "Jl. Merdeka 1", City: "Bandung", PostalCode: "40111", Country: "ID"})

	log := zerolog.Nop()
	locker := cart.NewLocalLocker()
	s.sandbox = payment.NewSandbox(nil)
	svc := &orders.Service{
		Orders:     s.db.Orders(),
		Carts:      s.db.Carts(),
		Aggregator: cart.NewAggregator(s.db.Catalog()),
		Locker:     locker,
		Addresses:  s.db.Addresses(),
		Payments:   s.sandbox,
		Events:     orders.NopEvents{},
		Pricing:    orders.DefaultPricing(),
		Log:        log,
	}
	s.router = httpx.NewRouter(httpx.Deps{
		Cart:    &httpx.CartHandler{Engine: cart.NewEngine(s.db.Catalog(), s.db.Carts(), locker, log), Log: log},
		Orders:  &httpx.OrdersHandler{Service: svc, Log: log},
		Sandbox: &httpx.SandboxHandler{Sandbox: s.sandbox, Log: log},
		Limiter: ratelimit.NewFixedWindow(ratelimit.Config{Requests: 1000, Window: time.Minute}),
		Log:     log,
	})
}

func (s *APISuite) do(method, path string, body any, headers ...string) (int, response) {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(httpx.HeaderCustomerID, customer)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var resp response
	if rec.Header().Get("Content-Type") == "application/json" {
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	}
	return rec.Code, resp
}

func (s *APISuite) decodeData(resp response, dst any) {
	s.Require().NoError(json.Unmarshal(resp.Data, dst))
}

func (s *APISuite) TestHealthz() {
	code, _ := s.do(http.MethodGet, "/healthz", nil)
	s.Equal(http.StatusOK, code)
}

func (s *APISuite) TestRequiresCustomer() {
	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *APISuite) TestCart_AddAndView() {
	code, resp := s.do(http.MethodPost, "/cart", map[string]any{"productId": lampID, "quantity": 3, "selectedOptions": []string{largeID}})
	s.Require().Equal(http.StatusOK, code, resp.Message)
	s.True(resp.Success)

	code, resp = s.do(http.MethodGet, "/cart", nil)
	s.Require().Equal(http.StatusOK, code)
	var view struct {
		Items []struct {
			Subtotal    float64 `json:"subtotal"`
			Stock       int     `json:"stock"`
			IsAvailable bool    `json:"isAvailable"`
		} `json:"items"`
		Count       int     `json:"count"`
		TotalAmount float64 `json:"totalAmount"`
	}
	s.decodeData(resp, &view)
	s.Equal(1, view.Count)
	s.InDelta(45.00, view.TotalAmount, 1e-9)
	s.Equal(30, view.Items[0].Stock)
	s.True(view.Items[0].IsAvailable)
}

func (s *APISuite) TestCart_ErrorStatuses() {
	code, resp := s.do(http.MethodPost, "/cart", map[string]any{"productId": mugID})
	s.Equal(http.StatusBadRequest, code)
	s.Equal("VALIDATION", resp.Error.Code)

	code, resp = s.do(http.MethodPost, "/cart", map[string]any{"productId": mugID, "quantity": 1, "selectedOptions": []string{largeID}})
	s.Equal(http.StatusBadRequest, code)
	s.Contains(resp.Error.Message, "product has no options")

	code, _ = s.do(http.MethodPost, "/cart", map[string]any{"productId": "0b8e4c1a-9999-4d2e-8f00-000000000009", "quantity": 1})
	s.Equal(http.StatusNotFound, code)

	code, resp = s.do(http.MethodPost, "/cart", map[string]any{"productId": mugID, "quantity": 21})
	s.Equal(http.StatusBadRequest, code)
	s.Equal("INSUFFICIENT_STOCK", resp.Error.Code)
	s.Require().NotNil(resp.Error.Details)
	s.Equal(20, resp.Error.Details.Available)
	s.Equal(21, resp.Error.Details.Requested)

	code, _ = s.do(http.MethodPut, "/cart/"+mugID, map[string]any{"quantity": 1})
	s.Equal(http.StatusNotFound, code)

	_, _ = s.do(http.MethodPost, "/cart", map[string]any{"productId": lampID, "quantity": 1, "selectedOptions": []string{largeID}})
	code, _ = s.do(http.MethodDelete, "/cart/"+lampID, nil)
	s.Equal(http.StatusBadRequest, code, "options are mandatory when removing an option product")

	code, _ = s.do(http.MethodDelete, "/cart/"+lampID+"?selectedOptions="+largeID, nil)
	s.Equal(http.StatusOK, code)
}

func (s *APISuite) TestCart_UpdateAndRemove() {
	_, _ = s.do(http.MethodPost, "/cart", map[string]any{"productId": mugID, "quantity": 2})
	code, resp := s.do(http.MethodPut, "/cart/"+mugID, map[string]any{"quantity": 5})
	s.Require().Equal(http.StatusOK, code)
	var view struct {
		TotalAmount float64 `json:"totalAmount"`
	}
	s.decodeData(resp, &view)
	s.InDelta(54.95, view.TotalAmount, 1e-9)

	code, resp = s.do(http.MethodDelete, "/cart/"+mugID, map[string]any{})
	s.Require().Equal(http.StatusOK, code)
	s.decodeData(resp, &view)
	s.Zero(view.TotalAmount)
}

type orderView struct {
	ID        string  `json:"id"`
	Status    string  `json:"status"`
	CanCancel bool    `json:"canCancel"`
	Total     float64 `json:"total"`
	Payment   struct {
		Status      string `json:"status"`
		ProviderRef string `json:"providerReference"`
	} `json:"payment"`
}

func (s *APISuite) checkout(method string, headers ...string) (orderView, string) {
	_, _ = s.do(http.MethodPost, "/cart", map[string]any{"productId": lampID, "quantity": 3, "selectedOptions": []string{largeID}})
	code, resp := s.do(http.MethodPost, "/order", map[string]any{"addressId": addressID, "paymentMethod": method}, headers...)
	s.Require().Equal(http.StatusCreated, code, resp.Message)
	var created struct {
		Order        orderView `json:"order"`
		ClientSecret string    `json:"clientSecret"`
	}
	s.decodeData(resp, &created)
	return created.Order, created.ClientSecret
}

func (s *APISuite) TestOrder_CreateConfirmCancel() {
	o, secret := s.checkout("card")
	s.NotEmpty(secret)
	s.Equal("pending", o.Status)
	s.True(o.CanCancel)
	s.InDelta(58.60, o.Total, 1e-9)

	code, _ := s.do(http.MethodPatch, "/order/"+o.ID, map[string]any{"action": "confirmPayment"})
	s.Equal(http.StatusConflict, code, "provider has not confirmed yet")

	code, _ = s.do(http.MethodPost, "/sandbox/payments/"+o.Payment.ProviderRef+"/succeed", nil)
	s.Require().Equal(http.StatusOK, code)

	for i := 0; i < 2; i++ {
		code, resp := s.do(http.MethodPatch, "/order/"+o.ID, map[string]any{"action": "confirmPayment"})
		s.Require().Equal(http.StatusOK, code)
		var got orderView
		s.decodeData(resp, &got)
		s.Equal("completed", got.Payment.Status)
		s.Equal("pending", got.Status)
	}

	code, resp := s.do(http.MethodPatch, "/order/"+o.ID, map[string]any{})
	s.Require().Equal(http.StatusOK, code)
	var cancelled struct {
		Order  orderView `json:"order"`
		Refund *struct {
			Amount float64 `json:"amount"`
			Status string  `json:"status"`
		} `json:"refund"`
	}
	s.decodeData(resp, &cancelled)
	s.Equal("cancelled", cancelled.Order.Status)
	s.False(cancelled.Order.CanCancel)
	s.Require().NotNil(cancelled.Refund)
	s.Equal("refund-pending", cancelled.Refund.Status)
	s.InDelta(58.60, cancelled.Refund.Amount, 1e-9)
}

func (s *APISuite) TestOrder_CheckoutBlockedByUnavailableLineIs400() {
	_, _ = s.do(http.MethodPost, "/cart", map[string]any{"productId": mugID, "quantity": 1})
	s.db.SetProductStock(mugID, 0)

	code, resp := s.do(http.MethodPost, "/order", map[string]any{"addressId": addressID, "paymentMethod": "cod"})
	s.Equal(http.StatusBadRequest, code)
	s.Equal("CONFLICT", resp.Error.Code)
	s.Contains(resp.Error.Message, "Mug")

	code, _ = s.do(http.MethodPost, "/order", map[string]any{"addressId": addressID, "paymentMethod": "cod"})
	s.Equal(http.StatusBadRequest, code)
}

func (s *APISuite) TestOrder_EmptyCartIs400() {
	code, resp := s.do(http.MethodPost, "/order", map[string]any{"addressId": addressID, "paymentMethod": "cod"})
	s.Equal(http.StatusBadRequest, code)
	s.Equal("VALIDATION", resp.Error.Code)
}

func (s *APISuite) TestOrder_ShippedCannotBeCancelled() {
	o, _ := s.checkout("cod")
	for _, st := range []string{"processing", "shipped"} {
		code, _ := s.do(http.MethodPatch, "/admin/order/"+o.ID+"/status", map[string]any{"status": st}, httpx.HeaderRole, "admin")
		s.Require().Equal(http.StatusOK, code)
	}

	code, resp := s.do(http.MethodGet, "/order/"+o.ID, nil)
	s.Require().Equal(http.StatusOK, code)
	var got orderView
	s.decodeData(resp, &got)
	s.False(got.CanCancel)

	code, resp = s.do(http.MethodPatch, "/order/"+o.ID, map[string]any{"action": "cancel"})
	s.Equal(http.StatusConflict, code)
	s.Equal("CONFLICT", resp.Error.Code)
}

func (s *APISuite) TestAdmin_RequiresRole() {
	o, _ := s.checkout("cod")
	code, _ := s.do(http.MethodPatch, "/admin/order/"+o.ID+"/status", map[string]any{"status": "processing"})
	s.Equal(http.StatusForbidden, code)
}

func (s *APISuite) TestOrder_ListWithMeta() {
	for i := 0; i < 3; i++ {
		s.checkout("cod")
	}
	code, resp := s.do(http.MethodGet, "/order?page=1&limit=2", nil)
	s.Require().Equal(http.StatusOK, code)
	s.Require().NotNil(resp.Meta)
	s.Equal(httpx.Meta{Page: 1, Limit: 2, Total: 3, TotalPages: 2, HasNext: true, HasPrev: false}, *resp.Meta)
	var list []orderView
	s.decodeData(resp, &list)
	s.Len(list, 2)
}

func (s *APISuite) TestOrder_IdempotencyKeyWithoutStoreStillCreates() {
	o, _ := s.checkout("cod", httpx.HeaderIdempotencyKey, "abc")
	code, _ := s.do(http.MethodGet, "/order/"+o.ID, nil)
	s.Equal(http.StatusOK, code)
}

func (s *APISuite) TestOrder_UnknownIs404() {
	code, _ := s.do(http.MethodGet, "/order/0b8e4c1a-9999-4d2e-8f00-000000000009", nil)
	s.Equal(http.StatusNotFound, code)
}

func (s *APISuite) TestRateLimited() {
	log := zerolog.Nop()
	router := httpx.NewRouter(httpx.Deps{
		Cart:    &httpx.CartHandler{Engine: cart.NewEngine(s.db.Catalog(), s.db.Carts(), cart.NewLocalLocker(), log), Log: log},
		Orders:  &httpx.OrdersHandler{Log: log},
		Limiter: ratelimit.NewFixedWindow(ratelimit.Config{Requests: 1, Window: time.Hour}),
		Log:     log,
	})
	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/cart", nil)
		req.Header.Set(httpx.HeaderCustomerID, customer)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	s.Equal([]int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

func (s *APISuite) TestRateLimited_CountsBeforeAuth() {
	log := zerolog.Nop()
	router := httpx.NewRouter(httpx.Deps{
		Cart:    &httpx.CartHandler{Engine: cart.NewEngine(s.db.Catalog(), s.db.Carts(), cart.NewLocalLocker(), log), Log: log},
		Orders:  &httpx.OrdersHandler{Log: log},
		Limiter: ratelimit.NewFixedWindow(ratelimit.Config{Requests: 1, Window: time.Hour}),
		Log:     log,
	})
	send := func(remote, customerID string) int {
		req := httptest.NewRequest(http.MethodGet, "/cart", nil)
		req.RemoteAddr = remote
		if customerID != "" {
			req.Header.Set(httpx.HeaderCustomerID, customerID)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	// anonymous callers are counted per address
	s.Equal(http.StatusUnauthorized, send("203.0.113.7:5000", ""))
	s.Equal(http.StatusTooManyRequests, send("203.0.113.7:5001", "not-a-uuid"))
	s.Equal(http.StatusUnauthorized, send("203.0.113.8:5000", ""))

	// one customer, whatever the spelling of the id
	s.Equal(http.StatusOK, send("198.51.100.1:5000", customer))
	s.Equal(http.StatusTooManyRequests, send("198.51.100.2:5000", strings.ToUpper(customer)))
}

func TestNewMeta(t *testing.T) {
	m := httpx.NewMeta(2, 10, 25)
	if m.TotalPages != 3 || !m.HasNext || !m.HasPrev {
		t.Fatalf("unexpected meta %+v", m)
	}
	m = httpx.NewMeta(1, 10, 0)
	if m.TotalPages != 0 || m.HasNext || m.HasPrev {
		t.Fatalf("unexpected meta %+v", m)
	}
}
