package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Div1912/stylehub-backend/events"
	"github.com/shopspring/decimal"
)

// Service renders templates and hands them to the mailer.
type Service struct {
	renderer    *Renderer
	mailer      Mailer
	frontendURL string
}

// NewService creates a dispatcher. Links in mails point at frontendURL.
func NewService(renderer *Renderer, mailer Mailer, frontendURL string) *Service {
	return &Service{
		renderer:    renderer,
		mailer:      mailer,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

// Send renders templateID with data and delivers it to recipient.
func (s *Service) Send(ctx context.Context, recipient, subject, templateID string, data map[string]any) error {
	if strings.TrimSpace(recipient) == "" {
		return fmt.Errorf("no recipient for %s", templateID)
	}
	html, err := s.renderer.Render(templateID, subject, data)
	if err != nil {
		return err
	}
	return s.mailer.Send(ctx, Message{To: recipient, Subject: subject, HTML: html})
}

func (s *Service) link(format string, args ...any) string {
	return s.frontendURL + fmt.Sprintf(format, args...)
}

// mail is one composed notification.
type mail struct {
	to       string
	subject  string
	template string
	data     map[string]any
}

func (s *Service) verification(e events.UserRegisteredEvent) mail {
	return mail{
		to:       e.Email,
		subject:  "Verify your email address",
		template: TemplateVerification,
		data: map[string]any{
			"name": e.Name,
			"link": s.link("/verify-email/%s", e.VerificationToken),
		},
	}
}

func (s *Service) welcome(e events.EmailVerifiedEvent) mail {
	return mail{
		to:       e.Email,
		subject:  "Welcome to StyleHub",
		template: TemplateWelcome,
		data: map[string]any{
			"name":    e.Name,
			"shopUrl": s.link("/"),
		},
	}
}

func (s *Service) resetPassword(e events.PasswordResetRequestedEvent) mail {
	return mail{
		to:       e.Email,
		subject:  "Reset your password",
		template: TemplateResetPassword,
		data: map[string]any{
			"name":      e.Name,
			"link":      s.link("/reset-password/%s", e.Token),
			"expiresAt": e.ExpiresAt.UTC().Format(time.RFC1123),
		},
	}
}

func (s *Service) orderData(ref events.OrderRef) map[string]any {
	return map[string]any{
		"name":        ref.CustomerName,
		"orderNumber": ref.OrderNumber,
		"orderUrl":    s.link("/orders/%s", ref.OrderID),
	}
}

func (s *Service) orderConfirmation(e events.OrderPlacedEvent) mail {
	items := make([]map[string]any, 0, len(e.Items))
	for _, item := range e.Items {
		items = append(items, map[string]any{
			"productName": item.ProductName,
			"size":        item.Size,
			"color":       item.Color,
			"quantity":    item.Quantity,
			"unitPrice":   money(item.UnitPrice),
			"lineTotal":   money(item.LineTotal),
		})
	}

	data := s.orderData(e.OrderRef)
	data["items"] = items
	data["subtotal"] = money(e.Subtotal)
	data["tax"] = money(e.Tax)
	data["shipping"] = money(e.Shipping)
	data["discount"] = money(e.Discount)
	data["hasDiscount"] = e.Discount.IsPositive()
	data["total"] = money(e.Total)
	data["paymentMethod"] = strings.ToUpper(e.PaymentMethod)
	data["shippingAddress"] = e.ShippingAddress

	return mail{
		to:       e.CustomerEmail,
		subject:  "Order confirmation - " + e.OrderNumber,
		template: TemplateOrderConfirmation,
		data:     data,
	}
}

func (s *Service) statusChanged(e events.OrderStatusChangedEvent) mail {
	data := s.orderData(e.OrderRef)
	data["status"] = e.To
	data["note"] = e.Note

	m := mail{to: e.CustomerEmail, data: data}
	switch e.To {
	case "shipped":
		data["carrier"] = e.Carrier
		data["trackingNumber"] = e.TrackingNumber
		if e.EstimatedDelivery != nil {
			data["estimatedDelivery"] = e.EstimatedDelivery.UTC().Format("Mon, 02 Jan 2006")
		}
		m.subject = "Your order " + e.OrderNumber + " has shipped"
		m.template = TemplateOrderShipped
	case "delivered":
		m.subject = "Your order " + e.OrderNumber + " was delivered"
		m.template = TemplateOrderDelivered
	case "returned":
		m.subject = "Return received for order " + e.OrderNumber
		m.template = TemplateReturnStatus
	default:
		m.subject = "Order " + e.OrderNumber + " is " + e.To
		m.template = TemplateOrderStatus
	}
	return m
}

func (s *Service) paymentConfirmed(e events.PaymentConfirmedEvent) mail {
	data := s.orderData(e.OrderRef)
	data["status"] = "confirmed"
	data["note"] = "We received your payment of " + money(e.Amount) + "."
	return mail{
		to:       e.CustomerEmail,
		subject:  "Payment received for order " + e.OrderNumber,
		template: TemplateOrderStatus,
		data:     data,
	}
}

func (s *Service) paymentFailed(e events.PaymentFailedEvent) mail {
	data := s.orderData(e.OrderRef)
	data["amount"] = money(e.Amount)
	data["reason"] = e.Reason
	return mail{
		to:       e.CustomerEmail,
		subject:  "Payment failed for order " + e.OrderNumber,
		template: TemplatePaymentFailed,
		data:     data,
	}
}

func (s *Service) cancelled(e events.OrderCancelledEvent) mail {
	data := s.orderData(e.OrderRef)
	data["reason"] = e.Reason
	data["refunded"] = e.Refunded
	data["refundAmount"] = money(e.RefundAmount)
	return mail{
		to:       e.CustomerEmail,
		subject:  "Order " + e.OrderNumber + " cancelled",
		template: TemplateOrderCancellation,
		data:     data,
	}
}

func (s *Service) refunded(e events.OrderRefundedEvent) mail {
	data := s.orderData(e.OrderRef)
	data["amount"] = money(e.Amount)
	data["refundId"] = e.RefundID
	return mail{
		to:       e.CustomerEmail,
		subject:  "Refund processed for order " + e.OrderNumber,
		template: TemplateRefundConfirmation,
		data:     data,
	}
}

func money(d decimal.Decimal) string {
	return "₹" + d.StringFixed(2)
}
