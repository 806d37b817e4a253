package order

import (
	"time"

	domain "github.com/Div1912/stylehub-backend/domain/order"
	"github.com/Div1912/stylehub-backend/events"
	"github.com/shopspring/decimal"
)

// Actor identifies who is calling.
type Actor struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

func (a Actor) isAdmin() bool {
	return a.Role == "admin"
}

func (a Actor) canFulfill() bool {
	return a.Role == "admin" || a.Role == "seller"
}

type OrderItemInput struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity"`
}

type CreateOrderRequest struct {
	UserID          string           `json:"user_id"`
	CustomerEmail   string           `json:"customer_email"`
	CustomerName    string           `json:"customer_name"`
	Items           []OrderItemInput `json:"items"`
	ShippingAddress domain.Address   `json:"shipping_address"`
	BillingAddress  *domain.Address  `json:"billing_address,omitempty"`
	PaymentMethod   string           `json:"payment_method"`
	CouponCode      string           `json:"coupon_code,omitempty"`
	Notes           string           `json:"notes,omitempty"`
}

type ListOrdersRequest struct {
	UserID string `json:"user_id"`
}

type ListOrdersResponse struct {
	Orders []OrderResponse `json:"orders"`
}

type GetOrderRequest struct {
	ID    string `json:"id"`
	Actor Actor  `json:"actor"`
}

type UpdateStatusRequest struct {
	ID                string     `json:"id"`
	Status            string     `json:"status"`
	Actor             Actor      `json:"actor"`
	Carrier           string     `json:"carrier,omitempty"`
	TrackingNumber    string     `json:"tracking_number,omitempty"`
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
	Note              string     `json:"note,omitempty"`
}

type CancelOrderRequest struct {
	ID     string `json:"id"`
	Actor  Actor  `json:"actor"`
	Reason string `json:"reason,omitempty"`
}

type CancelOrderResponse struct {
	Order    OrderResponse `json:"order"`
	Refunded bool          `json:"refunded"`
}

type ConfirmPaymentRequest struct {
	OrderID         string `json:"order_id"`
	PaymentIntentID string `json:"payment_intent_id"`
	Actor           Actor  `json:"actor"`
}

type FailPaymentRequest struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason,omitempty"`
	Actor   Actor  `json:"actor"`
}

type RefundOrderRequest struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason,omitempty"`
}

type LineItemResponse struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Size        string          `json:"size"`
	Color       string          `json:"color"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

type PaymentResponse struct {
	Method        domain.PaymentMethod `json:"method"`
	Status        domain.PaymentStatus `json:"status"`
	TransactionID string               `json:"transaction_id,omitempty"`
	ClientSecret  string               `json:"client_secret,omitempty"`
	FailureReason string               `json:"failure_reason,omitempty"`
	PaidAt        *time.Time           `json:"paid_at,omitempty"`
}

type TrackingResponse struct {
	Carrier           string     `json:"carrier,omitempty"`
	TrackingNumber    string     `json:"tracking_number,omitempty"`
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
}

type RefundResponse struct {
	RefundID   string          `json:"refund_id"`
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason,omitempty"`
	RefundedAt *time.Time      `json:"refunded_at,omitempty"`
}

type OrderResponse struct {
	ID              string             `json:"id"`
	Number          string             `json:"number"`
	UserID          string             `json:"user_id"`
	Items           []LineItemResponse `json:"items"`
	ShippingAddress domain.Address     `json:"shipping_address"`
	BillingAddress  domain.Address     `json:"billing_address"`
	Payment         PaymentResponse    `json:"payment"`
	Status          domain.Status      `json:"status"`
	NextStatuses    []domain.Status    `json:"next_statuses"`
	Subtotal        decimal.Decimal    `json:"subtotal"`
	Tax             decimal.Decimal    `json:"tax"`
	Shipping        decimal.Decimal    `json:"shipping"`
	Discount        decimal.Decimal    `json:"discount"`
	Total           decimal.Decimal    `json:"total"`
	CouponCode      string             `json:"coupon_code,omitempty"`
	Tracking        *TrackingResponse  `json:"tracking,omitempty"`
	Refund          *RefundResponse    `json:"refund,omitempty"`
	CancelReason    string             `json:"cancel_reason,omitempty"`
	ReturnReason    string             `json:"return_reason,omitempty"`
	Notes           string             `json:"notes,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

func toOrderResponse(o *domain.Order) OrderResponse {
	resp := OrderResponse{
		ID:              o.ID,
		Number:          o.Number,
		UserID:          o.UserID,
		Items:           make([]LineItemResponse, 0, len(o.Items)),
		ShippingAddress: o.ShippingAddress,
		BillingAddress:  o.BillingAddress,
		Payment: PaymentResponse{
			Method:        o.Payment.Method,
			Status:        o.Payment.Status,
			TransactionID: o.Payment.TransactionID,
			FailureReason: o.Payment.FailureReason,
			PaidAt:        o.Payment.PaidAt,
		},
		Status:       o.Status,
		NextStatuses: domain.NextStatuses(o.Status),
		Subtotal:     o.Subtotal,
		Tax:          o.Tax,
		Shipping:     o.ShippingCost,
		Discount:     o.Discount,
		Total:        o.Total,
		CouponCode:   o.CouponCode,
		CancelReason: o.CancelReason,
		ReturnReason: o.ReturnReason,
		Notes:        o.Notes,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
	// The client secret is only useful while the customer still has to pay.
	if o.Status == domain.StatusPending && o.Payment.Status != domain.PaymentPaid {
		resp.Payment.ClientSecret = o.Payment.ClientSecret
	}
	for _, item := range o.Items {
		resp.Items = append(resp.Items, LineItemResponse{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Size:        item.Size,
			Color:       item.Color,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.LineTotal(),
		})
	}
	if o.Tracking.TrackingNumber != "" || o.Tracking.Carrier != "" {
		resp.Tracking = &TrackingResponse{
			Carrier:           o.Tracking.Carrier,
			TrackingNumber:    o.Tracking.TrackingNumber,
			EstimatedDelivery: o.Tracking.EstimatedDelivery,
		}
	}
	if o.Refund.RefundID != "" {
		resp.Refund = &RefundResponse{
			RefundID:   o.Refund.RefundID,
			Amount:     o.Refund.Amount.Decimal,
			Reason:     o.Refund.Reason,
			RefundedAt: o.Refund.RefundedAt,
		}
	}
	return resp
}

func orderRef(o *domain.Order) events.OrderRef {
	return events.OrderRef{
		OrderID:       o.ID,
		OrderNumber:   o.Number,
		UserID:        o.UserID,
		CustomerEmail: o.CustomerEmail,
		CustomerName:  o.CustomerName,
	}
}

func eventItems(o *domain.Order) []events.OrderItem {
	items := make([]events.OrderItem, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, events.OrderItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Size:        item.Size,
			Color:       item.Color,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.LineTotal(),
		})
	}
	return items
}
