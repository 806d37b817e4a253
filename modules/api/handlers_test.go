package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	orderdomain "github.com/Div1912/stylehub-backend/domain/order"
	"github.com/Div1912/stylehub-backend/modules/auth"
	"github.com/Div1912/stylehub-backend/modules/catalog"
	"github.com/Div1912/stylehub-backend/modules/media"
	"github.com/Div1912/stylehub-backend/modules/order"
	"github.com/Div1912/stylehub-backend/modules/payment"
	"github.com/Div1912/stylehub-backend/pkg/apperr"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	app      *fiber.App
	auth     *mockAuthPort
	catalog  *mockCatalogPort
	orders   *mockOrderPort
	payments *mockPaymentPort
	media    *mockMedia
}

func newHarness(t *testing.T, cfg Config, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		auth:     tokenAuth(),
		catalog:  &mockCatalogPort{},
		orders:   &mockOrderPort{},
		payments: &mockPaymentPort{},
		media:    &mockMedia{},
	}
	m := NewModule(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), append([]Option{WithMedia(h.media)}, opts...)...)
	m.authPort = h.auth
	m.catalogPort = h.catalog
	m.orderPort = h.orders
	m.paymentPort = h.payments
	h.app = m.buildApp()
	return h
}

type envelope struct {
	Status  string          `json:"status"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (h *harness) do(t *testing.T, method, path, token string, body any) (*http.Response, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return h.send(t, req, token)
}

func (h *harness) send(t *testing.T, req *http.Request, token string) (*http.Response, envelope) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp, env
}

func multipartRequest(t *testing.T, method, path, field, doc string, files map[string][]byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if doc != "" {
		require.NoError(t, w.WriteField(field, doc))
	}
	for name, data := range files {
		fw, err := w.CreateFormFile("images", name)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestHealth(t *testing.T) {
	h := newHarness(t, Config{})

	resp, err := h.app.Test(httptest.NewRequest("GET", "/health", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUnknownRoute_UsesEnvelope(t *testing.T) {
	h := newHarness(t, Config{})

	resp, env := h.do(t, "GET", "/api/v1/nowhere", "", nil)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "error", env.Status)
	assert.Equal(t, "not_found", env.Code)
}

func TestRegister(t *testing.T) {
	t.Run("validation", func(t *testing.T) {
		h := newHarness(t, Config{})

		resp, env := h.do(t, "POST", "/api/v1/auth/register", "", fiber.Map{
			"email": "not-an-email", "password": "short", "name": "Asha",
		})

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "validation_error", env.Code)
		assert.Contains(t, env.Message, "email must be a valid email")
		assert.Contains(t, env.Message, "password must be at least 8 characters")
	})

	t.Run("admin role cannot be requested", func(t *testing.T) {
		h := newHarness(t, Config{})

		resp, env := h.do(t, "POST", "/api/v1/auth/register", "", fiber.Map{
			"email": "a@example.com", "password": "password123", "name": "Asha", "role": "admin",
		})

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, env.Message, "role must be one of")
	})

	t.Run("created", func(t *testing.T) {
		h := newHarness(t, Config{})
		var got auth.RegisterRequest
		h.auth.registerFunc = func(_ context.Context, req auth.RegisterRequest) (*auth.AuthResponse, error) {
			got = req
			return &auth.AuthResponse{User: auth.UserResponse{ID: "user-9", Email: req.Email}}, nil
		}

		resp, env := h.do(t, "POST", "/api/v1/auth/register", "", fiber.Map{
			"email": "a@example.com", "password": "password123", "name": "Asha", "role": "seller",
		})

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, "success", env.Status)
		assert.Equal(t, "seller", got.Role)
		assert.Contains(t, string(env.Data), `"user-9"`)
	})

	t.Run("conflict keeps its code", func(t *testing.T) {
		h := newHarness(t, Config{})
		h.auth.registerFunc = func(context.Context, auth.RegisterRequest) (*auth.AuthResponse, error) {
			return nil, apperr.Conflict("email already registered")
		}

		resp, env := h.do(t, "POST", "/api/v1/auth/register", "", fiber.Map{
			"email": "a@example.com", "password": "password123", "name": "Asha",
		})

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "conflict", env.Code)
		assert.Equal(t, "email already registered", env.Message)
	})
}

func TestMe(t *testing.T) {
	h := newHarness(t, Config{})
	h.auth.getUserFunc = func(_ context.Context, id string) (*auth.UserResponse, error) {
		return &auth.UserResponse{ID: id, Email: "asha@example.com"}, nil
	}

	resp, _ := h.do(t, "GET", "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, env := h.do(t, "GET", "/api/v1/auth/me", "customer", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(env.Data), `"user-1"`)
}

func TestUnclassifiedErrorsAreHidden(t *testing.T) {
	h := newHarness(t, Config{})
	h.orders.listFunc = func(context.Context, string) ([]order.OrderResponse, error) {
		return nil, errors.New("pq: connection refused on 10.0.0.3")
	}

	resp, env := h.do(t, "GET", "/api/v1/orders", "customer", nil)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "internal_error", env.Code)
	assert.Equal(t, "internal server error", env.Message)
}

func TestErrorsDecodedFromServiceText(t *testing.T) {
	h := newHarness(t, Config{})
	h.orders.getFunc = func(context.Context, string, order.Actor) (*order.OrderResponse, error) {
		return nil, errors.New("get-order service call failed: forbidden: not allowed to access this order")
	}

	resp, env := h.do(t, "GET", "/api/v1/orders/o-1", "customer", nil)

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "forbidden", env.Code)
	assert.Equal(t, "not allowed to access this order", env.Message)
}

func orderBody() fiber.Map {
	return fiber.Map{
		"items": []fiber.Map{{"product_id": "p-1", "size": "M", "color": "blue", "quantity": 2}},
		"shipping_address": fiber.Map{
			"street": "1 MG Road", "city": "Bengaluru", "state": "KA", "country": "IN", "zip_code": "560001",
		},
		"payment_method": "cod",
	}
}

func TestCreateOrder(t *testing.T) {
	t.Run("carries the caller identity", func(t *testing.T) {
		h := newHarness(t, Config{})
		var got order.CreateOrderRequest
		h.orders.createFunc = func(_ context.Context, req order.CreateOrderRequest) (*order.OrderResponse, error) {
			got = req
			return &order.OrderResponse{ID: "o-1", Number: "SH-ABCDEFGHIJ"}, nil
		}

		resp, env := h.do(t, "POST", "/api/v1/orders", "customer", orderBody())

		require.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, "user-1", got.UserID)
		assert.Equal(t, "asha@example.com", got.CustomerEmail)
		assert.Equal(t, "Asha", got.CustomerName)
		assert.Equal(t, "cod", got.PaymentMethod)
		require.Len(t, got.Items, 1)
		assert.Equal(t, 2, got.Items[0].Quantity)
		assert.Contains(t, string(env.Data), "SH-ABCDEFGHIJ")
	})

	t.Run("requires authentication", func(t *testing.T) {
		h := newHarness(t, Config{})
		resp, _ := h.do(t, "POST", "/api/v1/orders", "", orderBody())
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("rejects empty items and unknown methods", func(t *testing.T) {
		h := newHarness(t, Config{})
		body := orderBody()
		body["items"] = []fiber.Map{}
		body["payment_method"] = "barter"

		resp, env := h.do(t, "POST", "/api/v1/orders", "customer", body)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, env.Message, "items")
		assert.Contains(t, env.Message, "payment_method must be one of")
	})

	t.Run("unverified callers are blocked when required", func(t *testing.T) {
		h := newHarness(t, Config{RequireVerifiedEmail: true})
		resp, env := h.do(t, "POST", "/api/v1/orders", "unverified", orderBody())
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "forbidden", env.Code)
	})

	t.Run("out of stock maps to 400", func(t *testing.T) {
		h := newHarness(t, Config{})
		h.orders.createFunc = func(context.Context, order.CreateOrderRequest) (*order.OrderResponse, error) {
			return nil, apperr.OutOfStock("Tee (M/blue): requested 2, available 1")
		}
		resp, env := h.do(t, "POST", "/api/v1/orders", "customer", orderBody())
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "out_of_stock", env.Code)
	})

	t.Run("runs behind the idempotency middleware", func(t *testing.T) {
		calls := 0
		guard := func(c *fiber.Ctx) error {
			calls++
			return c.Next()
		}
		h := newHarness(t, Config{}, WithIdempotency(guard))
		h.orders.createFunc = func(context.Context, order.CreateOrderRequest) (*order.OrderResponse, error) {
			return &order.OrderResponse{ID: "o-1"}, nil
		}

		h.do(t, "POST", "/api/v1/orders", "customer", orderBody())
		h.do(t, "GET", "/api/v1/orders/o-1", "customer", nil)

		assert.Equal(t, 1, calls)
	})
}

func TestUpdateOrderStatus(t *testing.T) {
	h := newHarness(t, Config{})
	var got order.UpdateStatusRequest
	h.orders.statusFunc = func(_ context.Context, req order.UpdateStatusRequest) (*order.OrderResponse, error) {
		got = req
		return &order.OrderResponse{ID: req.ID, Status: orderdomain.Status(req.Status)}, nil
	}
	body := fiber.Map{"status": "shipped", "carrier": "BlueDart", "tracking_number": "BD123"}

	resp, _ := h.do(t, "PATCH", "/api/v1/orders/o-1/status", "customer", body)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = h.do(t, "PUT", "/api/v1/orders/o-1/status", "seller", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "o-1", got.ID)
	assert.Equal(t, "seller", got.Actor.Role)
	assert.Equal(t, "BD123", got.TrackingNumber)
}

func TestCancelOrder(t *testing.T) {
	h := newHarness(t, Config{})
	var got order.CancelOrderRequest
	h.orders.cancelFunc = func(_ context.Context, req order.CancelOrderRequest) (*order.CancelOrderResponse, error) {
		got = req
		return &order.CancelOrderResponse{Order: order.OrderResponse{ID: req.ID}, Refunded: true}, nil
	}

	resp, env := h.do(t, "POST", "/api/v1/orders/o-1/cancel", "customer", fiber.Map{"reason": "changed my mind"})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "changed my mind", got.Reason)
	assert.Equal(t, "user-1", got.Actor.ID)
	assert.Contains(t, string(env.Data), `"refunded":true`)

	resp, _ = h.do(t, "POST", "/api/v1/orders/o-2/cancel", "customer", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, got.Reason)
}

func TestPaymentIntent(t *testing.T) {
	t.Run("returns the order's intent", func(t *testing.T) {
		h := newHarness(t, Config{})
		h.orders.getFunc = func(_ context.Context, id string, _ order.Actor) (*order.OrderResponse, error) {
			return &order.OrderResponse{
				ID:      id,
				Total:   decimal.RequireFromString("1180"),
				Payment: order.PaymentResponse{TransactionID: "pi_1", ClientSecret: "pi_1_secret"},
			}, nil
		}

		resp, env := h.do(t, "POST", "/api/v1/payments/intent", "customer", fiber.Map{"order_id": "o-1"})

		require.Equal(t, http.StatusOK, resp.StatusCode)
		var got IntentResponse
		require.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Equal(t, "pi_1", got.PaymentIntentID)
		assert.Equal(t, "pi_1_secret", got.ClientSecret)
		assert.True(t, got.Amount.Equal(decimal.NewFromInt(1180)))
	})

	t.Run("paid orders have nothing to collect", func(t *testing.T) {
		h := newHarness(t, Config{})
		h.orders.getFunc = func(_ context.Context, id string, _ order.Actor) (*order.OrderResponse, error) {
			return &order.OrderResponse{ID: id, Number: "SH-1"}, nil
		}
		resp, env := h.do(t, "POST", "/api/v1/payments/intent", "customer", fiber.Map{"order_id": "o-1"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "invalid_state", env.Code)
	})

	t.Run("stand-alone intent needs a positive amount", func(t *testing.T) {
		h := newHarness(t, Config{})
		resp, env := h.do(t, "POST", "/api/v1/payments/intent", "customer", fiber.Map{"amount": "0"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "validation_error", env.Code)
	})

	t.Run("stand-alone intent", func(t *testing.T) {
		h := newHarness(t, Config{})
		h.payments.createFunc = func(_ context.Context, req payment.CreateIntentRequest) (*payment.IntentResponse, error) {
			return &payment.IntentResponse{ID: "pi_9", ClientSecret: "s", Amount: req.Amount, Currency: "inr"}, nil
		}
		resp, env := h.do(t, "POST", "/api/v1/payments/intent", "customer", fiber.Map{"amount": "499.00"})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Contains(t, string(env.Data), `"pi_9"`)
	})
}

func TestPaymentCallbacks(t *testing.T) {
	h := newHarness(t, Config{})
	var confirmed order.ConfirmPaymentRequest
	h.orders.confirmFunc = func(_ context.Context, req order.ConfirmPaymentRequest) (*order.OrderResponse, error) {
		confirmed = req
		return &order.OrderResponse{ID: req.OrderID}, nil
	}
	var failed order.FailPaymentRequest
	h.orders.failFunc = func(_ context.Context, req order.FailPaymentRequest) (*order.OrderResponse, error) {
		failed = req
		return &order.OrderResponse{ID: req.OrderID}, nil
	}
	h.orders.refundFunc = func(_ context.Context, req order.RefundOrderRequest) (*order.OrderResponse, error) {
		return nil, apperr.New(apperr.KindRefundFailed, "gateway declined the refund")
	}

	resp, _ := h.do(t, "POST", "/api/v1/payments/success", "customer", fiber.Map{"order_id": "o-1"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "intent id is required")

	resp, _ = h.do(t, "POST", "/api/v1/payments/success", "customer",
		fiber.Map{"order_id": "o-1", "payment_intent_id": "pi_1"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pi_1", confirmed.PaymentIntentID)
	assert.Equal(t, "user-1", confirmed.Actor.ID)

	resp, _ = h.do(t, "POST", "/api/v1/payments/failure", "customer",
		fiber.Map{"order_id": "o-1", "reason": "card declined"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "card declined", failed.Reason)

	resp, _ = h.do(t, "POST", "/api/v1/payments/refund", "customer", fiber.Map{"order_id": "o-1"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, env := h.do(t, "POST", "/api/v1/payments/refund", "admin", fiber.Map{"order_id": "o-1"})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "refund_failed", env.Code)
}

func sampleProduct() *catalog.ProductResponse {
	return &catalog.ProductResponse{
		ID:     "p-1",
		Name:   "Linen Shirt",
		Price:  decimal.RequireFromString("1499"),
		Images: []catalog.ImageResponse{{Key: "products/a.jpg", Alt: "front"}},
		Reviews: []catalog.ReviewResponse{
			{ID: "r-1", Rating: 5, Images: []string{"reviews/b.png"}, CreatedAt: time.Now()},
		},
	}
}

func TestGetProduct_SignsImageLinks(t *testing.T) {
	h := newHarness(t, Config{})
	var actor catalog.Actor
	h.catalog.getFunc = func(_ context.Context, _ string, a catalog.Actor) (*catalog.ProductResponse, error) {
		actor = a
		return sampleProduct(), nil
	}

	resp, env := h.do(t, "GET", "/api/v1/products/p-1", "seller", nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "seller-1", actor.ID, "optional auth identifies the caller")
	var view struct {
		Images  []ImageView `json:"images"`
		Reviews []struct {
			Images []ImageView `json:"images"`
		} `json:"reviews"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &view))
	require.Len(t, view.Images, 1)
	assert.Equal(t, "signed:products/a.jpg", view.Images[0].URL)
	assert.Equal(t, "front", view.Images[0].Alt)
	require.Len(t, view.Reviews, 1)
	assert.Equal(t, "signed:reviews/b.png", view.Reviews[0].Images[0].URL)
}

func TestListProducts_ParsesFilters(t *testing.T) {
	h := newHarness(t, Config{})
	var got catalog.ListProductsRequest
	h.catalog.listFunc = func(_ context.Context, req catalog.ListProductsRequest) (*catalog.ListProductsResponse, error) {
		got = req
		return &catalog.ListProductsResponse{Items: []catalog.ProductResponse{*sampleProduct()}, Total: 1, Page: 2, Limit: 10, Pages: 1}, nil
	}

	resp, env := h.do(t, "GET", "/api/v1/products?category=men&min_price=100&max_price=2000&featured=true&sort=price_asc&page=2&limit=10", "", nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "men", got.Category)
	assert.Equal(t, "price_asc", got.Sort)
	assert.Equal(t, 2, got.Page)
	assert.Equal(t, 10, got.Limit)
	require.NotNil(t, got.MinPrice)
	assert.True(t, got.MinPrice.Equal(decimal.NewFromInt(100)))
	require.NotNil(t, got.Featured)
	assert.True(t, *got.Featured)
	assert.Contains(t, string(env.Data), "signed:products/a.jpg")

	resp, env = h.do(t, "GET", "/api/v1/products?min_price=cheap", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "min_price must be a number", env.Message)
}

func TestCreateProduct(t *testing.T) {
	doc := `{"name":"Linen Shirt","price":"1499","category":"men","variants":[{"size":"M","color":"white","stock":3}]}`

	t.Run("customers cannot sell", func(t *testing.T) {
		h := newHarness(t, Config{})
		resp, _ := h.send(t, multipartRequest(t, "POST", "/api/v1/products", formProduct, doc, nil), "customer")
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("uploads images and stores their keys", func(t *testing.T) {
		h := newHarness(t, Config{})
		var got catalog.CreateProductRequest
		h.catalog.createFunc = func(_ context.Context, req catalog.CreateProductRequest) (*catalog.ProductResponse, error) {
			got = req
			p := sampleProduct()
			p.Images = nil
			for _, img := range req.Product.Images {
				p.Images = append(p.Images, catalog.ImageResponse{Key: img.Key})
			}
			return p, nil
		}

		req := multipartRequest(t, "POST", "/api/v1/products", formProduct, doc, map[string][]byte{"front.jpg": []byte("jpeg")})
		resp, env := h.send(t, req, "seller")

		require.Equal(t, http.StatusCreated, resp.StatusCode, env.Message)
		assert.Equal(t, "seller-1", got.SellerID)
		assert.Equal(t, "Linen Shirt", got.Product.Name)
		require.Len(t, got.Product.Images, 1)
		assert.Equal(t, "products/front.jpg", got.Product.Images[0].Key)
		assert.Equal(t, []string{"products/front.jpg"}, got.Uploaded)
		require.Len(t, h.media.uploaded, 1)
		assert.Equal(t, []byte("jpeg"), h.media.uploaded[0].Data)
		assert.Contains(t, string(env.Data), "signed:products/front.jpg")
	})

	t.Run("rejected product discards its uploads", func(t *testing.T) {
		h := newHarness(t, Config{})
		h.catalog.createFunc = func(context.Context, catalog.CreateProductRequest) (*catalog.ProductResponse, error) {
			return nil, apperr.Validation("price must not be negative")
		}

		req := multipartRequest(t, "POST", "/api/v1/products", formProduct, doc, map[string][]byte{"front.jpg": []byte("jpeg")})
		resp, _ := h.send(t, req, "seller")

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, []string{"products/front.jpg"}, h.media.deleted)
	})

	t.Run("storage failure is an upstream error", func(t *testing.T) {
		h := newHarness(t, Config{})
		h.media.uploadErr = apperr.New(apperr.KindUpstream, "image upload failed")

		req := multipartRequest(t, "POST", "/api/v1/products", formProduct, doc, map[string][]byte{"front.jpg": []byte("jpeg")})
		resp, env := h.send(t, req, "seller")

		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		assert.Equal(t, "upstream_failure", env.Code)
	})

	t.Run("plain JSON without images", func(t *testing.T) {
		h := newHarness(t, Config{})
		h.catalog.createFunc = func(_ context.Context, req catalog.CreateProductRequest) (*catalog.ProductResponse, error) {
			assert.True(t, req.Product.Price.Equal(decimal.NewFromInt(1499)))
			return sampleProduct(), nil
		}
		req := httptest.NewRequest("POST", "/api/v1/products", strings.NewReader(doc))
		req.Header.Set("Content-Type", "application/json")

		resp, _ := h.send(t, req, "admin")
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Empty(t, h.media.uploaded)
	})
}

func TestUpdateProduct(t *testing.T) {
	t.Run("removed images are deleted", func(t *testing.T) {
		h := newHarness(t, Config{})
		h.catalog.updateFunc = func(_ context.Context, req catalog.UpdateProductRequest) (*catalog.UpdateProductResponse, error) {
			return &catalog.UpdateProductResponse{Product: *sampleProduct(), RemovedImageKeys: []string{"products/old.jpg"}}, nil
		}

		resp, _ := h.do(t, "PUT", "/api/v1/products/p-1", "seller", fiber.Map{"images": []fiber.Map{{"key": "products/a.jpg"}}})

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, []string{"products/old.jpg"}, h.media.deleted)
	})

	t.Run("uploads are appended to the current images", func(t *testing.T) {
		h := newHarness(t, Config{})
		h.catalog.getFunc = func(context.Context, string, catalog.Actor) (*catalog.ProductResponse, error) {
			return sampleProduct(), nil
		}
		var got catalog.UpdateProductRequest
		h.catalog.updateFunc = func(_ context.Context, req catalog.UpdateProductRequest) (*catalog.UpdateProductResponse, error) {
			got = req
			return &catalog.UpdateProductResponse{Product: *sampleProduct()}, nil
		}

		req := multipartRequest(t, "PUT", "/api/v1/products/p-1", formPatch, `{"name":"Linen Shirt II"}`,
			map[string][]byte{"back.png": []byte("png")})
		resp, _ := h.send(t, req, "seller")

		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.NotNil(t, got.Patch.Images)
		assert.Equal(t, []catalog.ImageInput{
			{Key: "products/a.jpg", Alt: "front"},
			{Key: "products/back.png"},
		}, *got.Patch.Images)
		assert.Equal(t, []string{"products/back.png"}, got.Uploaded)
		require.NotNil(t, got.Patch.Name)
		assert.Equal(t, "Linen Shirt II", *got.Patch.Name)
	})

	t.Run("too many images", func(t *testing.T) {
		h := newHarness(t, Config{})
		files := map[string][]byte{}
		for _, n := range []string{"1.jpg", "2.jpg", "3.jpg", "4.jpg", "5.jpg"} {
			files[n] = []byte("x")
		}
		h.catalog.getFunc = func(context.Context, string, catalog.Actor) (*catalog.ProductResponse, error) {
			return sampleProduct(), nil
		}

		resp, env := h.send(t, multipartRequest(t, "PUT", "/api/v1/products/p-1", formPatch, "", files), "seller")

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, env.Message, "at most 5 images")
		assert.Empty(t, h.media.uploaded)
	})
}

func TestDeleteProduct_RemovesImages(t *testing.T) {
	h := newHarness(t, Config{})
	h.catalog.deleteFunc = func(context.Context, string, catalog.Actor) (*catalog.DeleteProductResponse, error) {
		return &catalog.DeleteProductResponse{ImageKeys: []string{"products/a.jpg", "products/b.jpg"}}, nil
	}

	resp, _ := h.do(t, "DELETE", "/api/v1/products/p-1", "admin", nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"products/a.jpg", "products/b.jpg"}, h.media.deleted)
}

func TestAddReview(t *testing.T) {
	h := newHarness(t, Config{})
	var got catalog.AddReviewRequest
	h.catalog.reviewFunc = func(_ context.Context, req catalog.AddReviewRequest) (*catalog.AddReviewResponse, error) {
		got = req
		if req.UserID == "seller-1" {
			return nil, apperr.DuplicateReview("you have already reviewed this product")
		}
		return &catalog.AddReviewResponse{
			Review: catalog.ReviewResponse{ID: "r-1", Rating: req.Rating, Images: req.Images},
		}, nil
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("rating", "4"))
	require.NoError(t, w.WriteField("comment", "fits well"))
	fw, err := w.CreateFormFile("images", "fit.jpg")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("jpeg"))
	require.NoError(t, w.Close())
	req := httptest.NewRequest("POST", "/api/v1/products/p-1/reviews", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, env := h.send(t, req, "customer")

	require.Equal(t, http.StatusCreated, resp.StatusCode, env.Message)
	assert.Equal(t, "p-1", got.ProductID)
	assert.Equal(t, "Asha", got.UserName)
	assert.Equal(t, 4, got.Rating)
	assert.Equal(t, []string{"reviews/fit.jpg"}, got.Images)
	assert.Contains(t, string(env.Data), "signed:reviews/fit.jpg")

	resp, env = h.do(t, "POST", "/api/v1/products/p-1/reviews", "seller", fiber.Map{"rating": 5})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "duplicate_review", env.Code)

	resp, _ = h.do(t, "POST", "/api/v1/products/p-1/reviews", "customer", fiber.Map{"rating": 9})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServeMedia(t *testing.T) {
	h := newHarness(t, Config{})
	h.media.openFunc = func(_ context.Context, key, token string) ([]byte, *media.ObjectInfo, error) {
		if token != "good" {
			return nil, nil, apperr.Forbidden("link is invalid")
		}
		return []byte("png-bytes"), &media.ObjectInfo{Key: key, ContentType: "image/png"}, nil
	}

	resp, err := h.app.Test(httptest.NewRequest("GET", "/api/v1/media/products/a.png?token=good", nil), -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, "png-bytes", string(body))

	resp, _ = h.do(t, "GET", "/api/v1/media/products/a.png?token=bad", "", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = h.do(t, "GET", "/api/v1/media/products/a.png", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
