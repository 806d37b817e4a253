package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Div1912/stylehub-backend/pkg/apperr"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// PaymentPort is the payment API seen by the order and api modules.
type PaymentPort interface {
	CreateIntent(ctx context.Context, req CreateIntentRequest) (*IntentResponse, error)
	GetIntent(ctx context.Context, id string) (*IntentResponse, error)
	Refund(ctx context.Context, req RefundRequest) (*RefundResponse, error)
}

type paymentAdapter struct {
	container mono.ServiceContainer
}

// NewPaymentAdapter wraps the payment module's service container.
func NewPaymentAdapter(container mono.ServiceContainer) PaymentPort {
	if container == nil {
		panic("payment adapter requires non-nil ServiceContainer")
	}
	return &paymentAdapter{container: container}
}

func (a *paymentAdapter) call(ctx context.Context, service string, req, resp any) error {
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

func (a *paymentAdapter) CreateIntent(ctx context.Context, req CreateIntentRequest) (*IntentResponse, error) {
	var resp IntentResponse
	if err := a.call(ctx, "create-intent", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *paymentAdapter) GetIntent(ctx context.Context, id string) (*IntentResponse, error) {
	req := GetIntentRequest{ID: id}
	var resp IntentResponse
	if err := a.call(ctx, "get-intent", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *paymentAdapter) Refund(ctx context.Context, req RefundRequest) (*RefundResponse, error) {
	var resp RefundResponse
	if err := a.call(ctx, "refund", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
