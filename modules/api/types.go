package api

import (
	"time"

	catalogdomain "github.com/Div1912/stylehub-backend/domain/catalog"
	orderdomain "github.com/Div1912/stylehub-backend/domain/order"
	"github.com/Div1912/stylehub-backend/modules/catalog"
	"github.com/Div1912/stylehub-backend/modules/order"
	"github.com/shopspring/decimal"
)

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"required,max=100"`
	Phone    string `json:"phone" validate:"omitempty,max=20"`
	Role     string `json:"role" validate:"omitempty,oneof=customer seller"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type ReviewRequest struct {
	Rating  int    `json:"rating" form:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" form:"comment" validate:"max=2000"`
}

type OrderItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Size      string `json:"size" validate:"required"`
	Color     string `json:"color" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type CreateOrderRequest struct {
	Items           []OrderItemRequest   `json:"items" validate:"required,min=1,dive"`
	ShippingAddress orderdomain.Address  `json:"shipping_address"`
	BillingAddress  *orderdomain.Address `json:"billing_address"`
	PaymentMethod   string               `json:"payment_method" validate:"required,oneof=card upi wallet cod"`
	CouponCode      string               `json:"coupon_code" validate:"max=50"`
	Notes           string               `json:"notes" validate:"max=500"`
}

type UpdateStatusRequest struct {
	Status            string     `json:"status" validate:"required"`
	Carrier           string     `json:"carrier" validate:"max=100"`
	TrackingNumber    string     `json:"tracking_number" validate:"max=100"`
	EstimatedDelivery *time.Time `json:"estimated_delivery"`
	Note              string     `json:"note" validate:"max=500"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// IntentRequest opens a payment. With an order id the order's own intent is
// returned; otherwise a stand-alone intent for amount is created.
type IntentRequest struct {
	OrderID     string           `json:"order_id"`
	Amount      *decimal.Decimal `json:"amount"`
	Description string           `json:"description" validate:"max=200"`
}

type IntentResponse struct {
	PaymentIntentID string          `json:"payment_intent_id"`
	ClientSecret    string          `json:"client_secret"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency,omitempty"`
	OrderID         string          `json:"order_id,omitempty"`
}

type PaymentSuccessRequest struct {
	OrderID         string `json:"order_id" validate:"required"`
	PaymentIntentID string `json:"payment_intent_id" validate:"required"`
}

type PaymentFailureRequest struct {
	OrderID string `json:"order_id" validate:"required"`
	Reason  string `json:"reason" validate:"max=500"`
}

type RefundRequest struct {
	OrderID string `json:"order_id" validate:"required"`
	Reason  string `json:"reason" validate:"max=500"`
}

type CancelResponse struct {
	Order    order.OrderResponse `json:"order"`
	Refunded bool                `json:"refunded"`
}

// ImageView is a stored image with its signed link.
type ImageView struct {
	Key string `json:"key"`
	Alt string `json:"alt,omitempty"`
	URL string `json:"url,omitempty"`
}

// ReviewView replaces a review's image keys with signed links.
type ReviewView struct {
	catalog.ReviewResponse
	Images []ImageView `json:"images,omitempty"`
}

// ProductView replaces a product's image keys with signed links.
type ProductView struct {
	catalog.ProductResponse
	Images  []ImageView  `json:"images"`
	Reviews []ReviewView `json:"reviews,omitempty"`
}

type ProductListView struct {
	Items []ProductView `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
	Pages int           `json:"pages"`
}

type ReviewCreatedView struct {
	Review ReviewView           `json:"review"`
	Rating catalogdomain.Rating `json:"rating"`
}
