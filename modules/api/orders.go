package api

import (
	"github.com/Div1912/stylehub-backend/modules/order"
	"github.com/Div1912/stylehub-backend/modules/payment"
	"github.com/Div1912/stylehub-backend/pkg/apperr"
	"github.com/gofiber/fiber/v2"
)

// CreateOrder places an order for the caller.
func (h *Handlers) CreateOrder(c *fiber.Ctx) error {
	claims := claimsFrom(c)
	if claims == nil {
		return apperr.Unauthorized("authentication required")
	}
	var req CreateOrderRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	items := make([]order.OrderItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, order.OrderItemInput{
			ProductID: it.ProductID,
			Size:      it.Size,
			Color:     it.Color,
			Quantity:  it.Quantity,
		})
	}
	resp, err := h.orders.CreateOrder(c.UserContext(), order.CreateOrderRequest{
		UserID:          claims.UserID,
		CustomerEmail:   claims.Email,
		CustomerName:    claims.Name,
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		PaymentMethod:   req.PaymentMethod,
		CouponCode:      req.CouponCode,
		Notes:           req.Notes,
	})
	if err != nil {
		return err
	}
	return created(c, resp)
}

// ListOrders returns the caller's orders, newest first.
func (h *Handlers) ListOrders(c *fiber.Ctx) error {
	claims := claimsFrom(c)
	if claims == nil {
		return apperr.Unauthorized("authentication required")
	}
	orders, err := h.orders.ListOrders(c.UserContext(), claims.UserID)
	if err != nil {
		return err
	}
	if orders == nil {
		orders = []order.OrderResponse{}
	}
	return ok(c, orders)
}

// GetOrder returns one order to its owner or an admin.
func (h *Handlers) GetOrder(c *fiber.Ctx) error {
	resp, err := h.orders.GetOrder(c.UserContext(), c.Params("id"), orderActor(c))
	if err != nil {
		return err
	}
	return ok(c, resp)
}

// UpdateOrderStatus moves an order along its lifecycle.
func (h *Handlers) UpdateOrderStatus(c *fiber.Ctx) error {
	var req UpdateStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	resp, err := h.orders.UpdateStatus(c.UserContext(), order.UpdateStatusRequest{
		ID:                c.Params("id"),
		Status:            req.Status,
		Actor:             orderActor(c),
		Carrier:           req.Carrier,
		TrackingNumber:    req.TrackingNumber,
		EstimatedDelivery: req.EstimatedDelivery,
		Note:              req.Note,
	})
	if err != nil {
		return err
	}
	return ok(c, resp)
}

// CancelOrder cancels a pending or confirmed order.
func (h *Handlers) CancelOrder(c *fiber.Ctx) error {
	var req CancelOrderRequest
	if len(c.Body()) > 0 {
		if err := bind(c, &req); err != nil {
			return err
		}
	}
	resp, err := h.orders.CancelOrder(c.UserContext(), order.CancelOrderRequest{
		ID:     c.Params("id"),
		Actor:  orderActor(c),
		Reason: req.Reason,
	})
	if err != nil {
		return err
	}
	return ok(c, CancelResponse{Order: resp.Order, Refunded: resp.Refunded})
}

// CreateIntent returns the client secret the storefront needs to collect a
// payment. For an order this is the intent opened at checkout.
func (h *Handlers) CreateIntent(c *fiber.Ctx) error {
	var req IntentRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if req.OrderID != "" {
		o, err := h.orders.GetOrder(c.UserContext(), req.OrderID, orderActor(c))
		if err != nil {
			return err
		}
		if o.Payment.ClientSecret == "" {
			return apperr.InvalidState("order %s has no payment awaiting completion", o.Number)
		}
		return ok(c, IntentResponse{
			PaymentIntentID: o.Payment.TransactionID,
			ClientSecret:    o.Payment.ClientSecret,
			Amount:          o.Total,
			OrderID:         o.ID,
		})
	}

	if req.Amount == nil || !req.Amount.IsPositive() {
		return apperr.Validation("amount must be greater than zero")
	}
	intent, err := h.payments.CreateIntent(c.UserContext(), payment.CreateIntentRequest{
		Amount:      *req.Amount,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return created(c, IntentResponse{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		Amount:          intent.Amount,
		Currency:        intent.Currency,
	})
}

// PaymentSuccess confirms an order's payment against the gateway.
func (h *Handlers) PaymentSuccess(c *fiber.Ctx) error {
	var req PaymentSuccessRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	resp, err := h.orders.ConfirmPayment(c.UserContext(), order.ConfirmPaymentRequest{
		OrderID:         req.OrderID,
		PaymentIntentID: req.PaymentIntentID,
		Actor:           orderActor(c),
	})
	if err != nil {
		return err
	}
	return ok(c, resp)
}

// PaymentFailure records a failed payment attempt.
func (h *Handlers) PaymentFailure(c *fiber.Ctx) error {
	var req PaymentFailureRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	resp, err := h.orders.FailPayment(c.UserContext(), order.FailPaymentRequest{
		OrderID: req.OrderID,
		Reason:  req.Reason,
		Actor:   orderActor(c),
	})
	if err != nil {
		return err
	}
	return ok(c, resp)
}

// Refund returns the full charge of a cancelled or returned order.
func (h *Handlers) Refund(c *fiber.Ctx) error {
	var req RefundRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	resp, err := h.orders.RefundOrder(c.UserContext(), order.RefundOrderRequest{
		OrderID: req.OrderID,
		Reason:  req.Reason,
	})
	if err != nil {
		return err
	}
	return ok(c, resp)
}

func orderActor(c *fiber.Ctx) order.Actor {
	claims := claimsFrom(c)
	if claims == nil {
		return order.Actor{}
	}
	return order.Actor{ID: claims.UserID, Role: string(claims.Role)}
}
