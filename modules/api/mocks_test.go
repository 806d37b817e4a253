package api

import (
	"context"
	"errors"

	domain "github.com/Div1912/stylehub-backend/domain/user"
	"github.com/Div1912/stylehub-backend/modules/auth"
	"github.com/Div1912/stylehub-backend/modules/catalog"
	"github.com/Div1912/stylehub-backend/modules/media"
	"github.com/Div1912/stylehub-backend/modules/order"
	"github.com/Div1912/stylehub-backend/modules/payment"
)

var errNotImplemented = errors.New("not implemented")

// mockAuthPort implements auth.AuthPort for testing
type mockAuthPort struct {
	registerFunc      func(ctx context.Context, req auth.RegisterRequest) (*auth.AuthResponse, error)
	loginFunc         func(ctx context.Context, req auth.LoginRequest) (*auth.AuthResponse, error)
	validateTokenFunc func(ctx context.Context, token string) (*domain.Claims, error)
	getUserFunc       func(ctx context.Context, userID string) (*auth.UserResponse, error)
	forgotFunc        func(ctx context.Context, email string) error
}

func (m *mockAuthPort) Register(ctx context.Context, req auth.RegisterRequest) (*auth.AuthResponse, error) {
	if m.registerFunc != nil {
		return m.registerFunc(ctx, req)
	}
	return nil, errNotImplemented
}

func (m *mockAuthPort) Login(ctx context.Context, req auth.LoginRequest) (*auth.AuthResponse, error) {
	if m.loginFunc != nil {
		return m.loginFunc(ctx, req)
	}
	return nil, errNotImplemented
}

func (m *mockAuthPort) Refresh(context.Context, string) (*domain.TokenPair, error) {
	return nil, errNotImplemented
}

func (m *mockAuthPort) ValidateToken(ctx context.Context, token string) (*domain.Claims, error) {
	if m.validateTokenFunc != nil {
		return m.validateTokenFunc(ctx, token)
	}
	return nil, errNotImplemented
}

func (m *mockAuthPort) GetUser(ctx context.Context, userID string) (*auth.UserResponse, error) {
	if m.getUserFunc != nil {
		return m.getUserFunc(ctx, userID)
	}
	return nil, errNotImplemented
}

func (m *mockAuthPort) VerifyEmail(context.Context, string) (*auth.VerifyEmailResponse, error) {
	return nil, errNotImplemented
}

func (m *mockAuthPort) ForgotPassword(ctx context.Context, email string) error {
	if m.forgotFunc != nil {
		return m.forgotFunc(ctx, email)
	}
	return errNotImplemented
}

func (m *mockAuthPort) ResetPassword(context.Context, string, string) error {
	return errNotImplemented
}

// tokens maps bearer tokens to the identities used across the tests.
var tokens = map[string]*domain.Claims{
	"customer":   {UserID: "user-1", Email: "asha@example.com", Name: "Asha", Role: domain.RoleCustomer, Verified: true},
	"unverified": {UserID: "user-2", Email: "ravi@example.com", Name: "Ravi", Role: domain.RoleCustomer},
	"seller":     {UserID: "seller-1", Email: "shop@example.com", Name: "Shop", Role: domain.RoleSeller, Verified: true},
	"admin":      {UserID: "admin-1", Email: "admin@example.com", Name: "Admin", Role: domain.RoleAdmin},
}

func tokenAuth() *mockAuthPort {
	return &mockAuthPort{
		validateTokenFunc: func(_ context.Context, token string) (*domain.Claims, error) {
			if c, ok := tokens[token]; ok {
				return c, nil
			}
			return nil, errors.New("invalid token")
		},
	}
}

type mockCatalogPort struct {
	listFunc   func(ctx context.Context, req catalog.ListProductsRequest) (*catalog.ListProductsResponse, error)
	getFunc    func(ctx context.Context, id string, actor catalog.Actor) (*catalog.ProductResponse, error)
	createFunc func(ctx context.Context, req catalog.CreateProductRequest) (*catalog.ProductResponse, error)
	updateFunc func(ctx context.Context, req catalog.UpdateProductRequest) (*catalog.UpdateProductResponse, error)
	deleteFunc func(ctx context.Context, id string, actor catalog.Actor) (*catalog.DeleteProductResponse, error)
	reviewFunc func(ctx context.Context, req catalog.AddReviewRequest) (*catalog.AddReviewResponse, error)
}

func (m *mockCatalogPort) ListProducts(ctx context.Context, req catalog.ListProductsRequest) (*catalog.ListProductsResponse, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, req)
	}
	return nil, errNotImplemented
}

func (m *mockCatalogPort) GetProduct(ctx context.Context, id string, actor catalog.Actor) (*catalog.ProductResponse, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id, actor)
	}
	return nil, errNotImplemented
}

func (m *mockCatalogPort) CreateProduct(ctx context.Context, req catalog.CreateProductRequest) (*catalog.ProductResponse, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, req)
	}
	return nil, errNotImplemented
}

func (m *mockCatalogPort) UpdateProduct(ctx context.Context, req catalog.UpdateProductRequest) (*catalog.UpdateProductResponse, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, req)
	}
	return nil, errNotImplemented
}

func (m *mockCatalogPort) DeleteProduct(ctx context.Context, id string, actor catalog.Actor) (*catalog.DeleteProductResponse, error) {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id, actor)
	}
	return nil, errNotImplemented
}

func (m *mockCatalogPort) AddReview(ctx context.Context, req catalog.AddReviewRequest) (*catalog.AddReviewResponse, error) {
	if m.reviewFunc != nil {
		return m.reviewFunc(ctx, req)
	}
	return nil, errNotImplemented
}

type mockOrderPort struct {
	createFunc  func(ctx context.Context, req order.CreateOrderRequest) (*order.OrderResponse, error)
	listFunc    func(ctx context.Context, userID string) ([]order.OrderResponse, error)
	getFunc     func(ctx context.Context, id string, actor order.Actor) (*order.OrderResponse, error)
	statusFunc  func(ctx context.Context, req order.UpdateStatusRequest) (*order.OrderResponse, error)
	cancelFunc  func(ctx context.Context, req order.CancelOrderRequest) (*order.CancelOrderResponse, error)
	confirmFunc func(ctx context.Context, req order.ConfirmPaymentRequest) (*order.OrderResponse, error)
	failFunc    func(ctx context.Context, req order.FailPaymentRequest) (*order.OrderResponse, error)
	refundFunc  func(ctx context.Context, req order.RefundOrderRequest) (*order.OrderResponse, error)
}

func (m *mockOrderPort) CreateOrder(ctx context.Context, req order.CreateOrderRequest) (*order.OrderResponse, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, req)
	}
	return nil, errNotImplemented
}

func (m *mockOrderPort) ListOrders(ctx context.Context, userID string) ([]order.OrderResponse, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, userID)
	}
	return nil, errNotImplemented
}

func (m *mockOrderPort) GetOrder(ctx context.Context, id string, actor order.Actor) (*order.OrderResponse, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id, actor)
	}
	return nil, errNotImplemented
}

func (m *mockOrderPort) UpdateStatus(ctx context.Context, req order.UpdateStatusRequest) (*order.OrderResponse, error) {
	if m.statusFunc != nil {
		return m.statusFunc(ctx, req)
	}
	return nil, errNotImplemented
}

func (m *mockOrderPort) CancelOrder(ctx context.Context, req order.CancelOrderRequest) (*order.CancelOrderResponse, error) {
	if m.cancelFunc != nil {
		return m.cancelFunc(ctx, req)
	}
	return nil, errNotImplemented
}

func (m *mockOrderPort) ConfirmPayment(ctx context.Context, req order.ConfirmPaymentRequest) (*order.OrderResponse, error) {
	if m.confirmFunc != nil {
		return m.confirmFunc(ctx, req)
	}
	return nil, errNotImplemented
}

func (m *mockOrderPort) FailPayment(ctx context.Context, req order.FailPaymentRequest) (*order.OrderResponse, error) {
	if m.failFunc != nil {
		return m.failFunc(ctx, req)
	}
	return nil, errNotImplemented
}

func (m *mockOrderPort) RefundOrder(ctx context.Context, req order.RefundOrderRequest) (*order.OrderResponse, error) {
	if m.refundFunc != nil {
		return m.refundFunc(ctx, req)
	}
	return nil, errNotImplemented
}

type mockPaymentPort struct {
	createFunc func(ctx context.Context, req payment.CreateIntentRequest) (*payment.IntentResponse, error)
}

func (m *mockPaymentPort) CreateIntent(ctx context.Context, req payment.CreateIntentRequest) (*payment.IntentResponse, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, req)
	}
	return nil, errNotImplemented
}

func (m *mockPaymentPort) GetIntent(context.Context, string) (*payment.IntentResponse, error) {
	return nil, errNotImplemented
}

func (m *mockPaymentPort) Refund(context.Context, payment.RefundRequest) (*payment.RefundResponse, error) {
	return nil, errNotImplemented
}

// mockMedia signs keys as "signed:<key>" and records uploads and deletions.
type mockMedia struct {
	uploaded  []media.File
	uploadErr error
	deleted   []string
	openFunc  func(ctx context.Context, key, token string) ([]byte, *media.ObjectInfo, error)
}

func (m *mockMedia) Upload(_ context.Context, prefix string, files []media.File, _ int) ([]string, error) {
	if m.uploadErr != nil {
		return nil, m.uploadErr
	}
	var keys []string
	for _, f := range files {
		m.uploaded = append(m.uploaded, f)
		keys = append(keys, prefix+"/"+f.Name)
	}
	return keys, nil
}

func (m *mockMedia) Delete(_ context.Context, keys []string) int {
	m.deleted = append(m.deleted, keys...)
	return len(keys)
}

func (m *mockMedia) URLs(keys []string) map[string]string {
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		out[k] = "signed:" + k
	}
	return out
}

func (m *mockMedia) Open(ctx context.Context, key, token string) ([]byte, *media.ObjectInfo, error) {
	if m.openFunc != nil {
		return m.openFunc(ctx, key, token)
	}
	return nil, nil, errNotImplemented
}
