package order

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Div1912/stylehub-backend/pkg/apperr"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// OrderPort is the order API used by the HTTP layer.
type OrderPort interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResponse, error)
	ListOrders(ctx context.Context, userID string) ([]OrderResponse, error)
	GetOrder(ctx context.Context, id string, actor Actor) (*OrderResponse, error)
	UpdateStatus(ctx context.Context, req UpdateStatusRequest) (*OrderResponse, error)
	CancelOrder(ctx context.Context, req CancelOrderRequest) (*CancelOrderResponse, error)
	ConfirmPayment(ctx context.Context, req ConfirmPaymentRequest) (*OrderResponse, error)
	FailPayment(ctx context.Context, req FailPaymentRequest) (*OrderResponse, error)
	RefundOrder(ctx context.Context, req RefundOrderRequest) (*OrderResponse, error)
}

type orderAdapter struct {
	container mono.ServiceContainer
}

// NewOrderAdapter wraps the order module's service container.
func NewOrderAdapter(container mono.ServiceContainer) OrderPort {
	if container == nil {
		panic("order adapter requires non-nil ServiceContainer")
	}
	return &orderAdapter{container: container}
}

func (a *orderAdapter) call(ctx context.Context, service string, req, resp any) error {
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		&resp,
	); err != nil {
		return apperr.Decode(fmt.Errorf("%s service call failed: %w", service, err))
	}
	return nil
}

func (a *orderAdapter) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResponse, error) {
	var resp OrderResponse
	if err := a.call(ctx, "create-order", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *orderAdapter) ListOrders(ctx context.Context, userID string) ([]OrderResponse, error) {
	req := ListOrdersRequest{UserID: userID}
	var resp ListOrdersResponse
	if err := a.call(ctx, "list-orders", &req, &resp); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}

func (a *orderAdapter) GetOrder(ctx context.Context, id string, actor Actor) (*OrderResponse, error) {
	req := GetOrderRequest{ID: id, Actor: actor}
	var resp OrderResponse
	if err := a.call(ctx, "get-order", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *orderAdapter) UpdateStatus(ctx context.Context, req UpdateStatusRequest) (*OrderResponse, error) {
	var resp OrderResponse
	if err := a.call(ctx, "update-order-status", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *orderAdapter) CancelOrder(ctx context.Context, req CancelOrderRequest) (*CancelOrderResponse, error) {
	var resp CancelOrderResponse
	if err := a.call(ctx, "cancel-order", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *orderAdapter) ConfirmPayment(ctx context.Context, req ConfirmPaymentRequest) (*OrderResponse, error) {
	var resp OrderResponse
	if err := a.call(ctx, "confirm-payment", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *orderAdapter) FailPayment(ctx context.Context, req FailPaymentRequest) (*OrderResponse, error) {
	var resp OrderResponse
	if err := a.call(ctx, "fail-payment", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *orderAdapter) RefundOrder(ctx context.Context, req RefundOrderRequest) (*OrderResponse, error) {
	var resp OrderResponse
	if err := a.call(ctx, "refund-order", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
