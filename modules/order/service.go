package order

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	domain "github.com/Div1912/stylehub-backend/domain/order"
	"github.com/Div1912/stylehub-backend/domain/pricing"
	"github.com/Div1912/stylehub-backend/modules/catalog"
	"github.com/Div1912/stylehub-backend/modules/payment"
	"github.com/Div1912/stylehub-backend/pkg/apperr"
	"github.com/google/uuid"
)

const maxItemsPerOrder = 50

// Service is the order lifecycle manager.
type Service struct {
	repo     *Repository
	stock    catalog.StockPort
	payments payment.PaymentPort
	calc     pricing.Calculator
	numbers  *domain.NumberGenerator
	now      func() time.Time
}

// NewService creates the lifecycle manager.
func NewService(
	repo *Repository,
	stock catalog.StockPort,
	payments payment.PaymentPort,
	calc pricing.Calculator,
	numbers *domain.NumberGenerator,
) *Service {
	return &Service{
		repo:     repo,
		stock:    stock,
		payments: payments,
		calc:     calc,
		numbers:  numbers,
		now:      time.Now,
	}
}

// CreateOrder reserves stock, prices the order, opens a payment intent for
// upfront methods and persists the order. A failure after the reservation
// releases it, so a failed checkout leaves neither an order nor a decrement.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*domain.Order, error) {
	method, lines, err := validateCreate(&req)
	if err != nil {
		return nil, err
	}

	reserved, err := s.stock.ReserveStock(ctx, lines)
	if err != nil {
		return nil, err
	}

	o, err := s.buildOrder(req, method, reserved)
	if err != nil {
		s.release(ctx, "", lines)
		return nil, err
	}

	if method.Upfront() {
		intent, err := s.payments.CreateIntent(ctx, payment.CreateIntentRequest{
			Amount:      o.Total,
			OrderID:     o.ID,
			Description: "Order " + o.Number,
		})
		if err != nil {
			s.release(ctx, o.Number, lines)
			if apperr.KindOf(err) == apperr.KindValidation {
				return nil, err
			}
			return nil, apperr.Wrap(apperr.KindUpstream, err, "payment initialization failed")
		}
		o.Payment.TransactionID = intent.ID
		o.Payment.ClientSecret = intent.ClientSecret
	}

	if err := s.repo.Create(ctx, o); err != nil {
		s.release(ctx, o.Number, lines)
		return nil, err
	}
	return o, nil
}

func validateCreate(req *CreateOrderRequest) (domain.PaymentMethod, []catalog.StockLine, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return "", nil, apperr.Unauthorized("authentication required")
	}
	if len(req.Items) == 0 {
		return "", nil, apperr.Validation("order must contain at least one item")
	}
	if len(req.Items) > maxItemsPerOrder {
		return "", nil, apperr.Validation("order may contain at most %d items", maxItemsPerOrder)
	}
	if !req.ShippingAddress.Complete() {
		return "", nil, apperr.Validation("shipping address requires street, city, country and zip code")
	}
	if req.BillingAddress != nil && !req.BillingAddress.Complete() {
		return "", nil, apperr.Validation("billing address requires street, city, country and zip code")
	}
	method, err := domain.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return "", nil, apperr.Validation("%v", err)
	}

	// Repeated variants are merged so each one is reserved once.
	index := make(map[string]int, len(req.Items))
	lines := make([]catalog.StockLine, 0, len(req.Items))
	for _, item := range req.Items {
		if item.ProductID == "" || strings.TrimSpace(item.Size) == "" || strings.TrimSpace(item.Color) == "" {
			return "", nil, apperr.Validation("every item needs a product, size and color")
		}
		if item.Quantity < 1 {
			return "", nil, apperr.Validation("item quantity must be at least 1")
		}
		key := item.ProductID + "\x00" + item.Size + "\x00" + item.Color
		if i, ok := index[key]; ok {
			lines[i].Quantity += item.Quantity
			continue
		}
		index[key] = len(lines)
		lines = append(lines, catalog.StockLine{
			ProductID: item.ProductID,
			Size:      item.Size,
			Color:     item.Color,
			Quantity:  item.Quantity,
		})
	}
	return method, lines, nil
}

func (s *Service) buildOrder(req CreateOrderRequest, method domain.PaymentMethod, reserved []catalog.ReservedLine) (*domain.Order, error) {
	id := uuid.New().String()
	items := make([]domain.LineItem, 0, len(reserved))
	priced := make([]pricing.Item, 0, len(reserved))
	for _, r := range reserved {
		items = append(items, domain.LineItem{
			OrderID:     id,
			ProductID:   r.ProductID,
			ProductName: r.ProductName,
			Size:        r.Size,
			Color:       r.Color,
			Quantity:    r.Quantity,
			UnitPrice:   r.UnitPrice,
		})
		priced = append(priced, pricing.Item{UnitPrice: r.UnitPrice, Quantity: r.Quantity})
	}

	totals, err := s.calc.Compute(priced, req.CouponCode)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, err, "failed to price order")
	}

	billing := req.ShippingAddress
	if req.BillingAddress != nil {
		billing = *req.BillingAddress
	}

	now := s.now()
	o := &domain.Order{
		ID:              id,
		Number:          s.numbers.Next(),
		UserID:          req.UserID,
		CustomerEmail:   req.CustomerEmail,
		CustomerName:    req.CustomerName,
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  billing,
		Payment: domain.PaymentInfo{
			Method: method,
			Status: domain.PaymentPending,
		},
		Status:     domain.StatusPending,
		CouponCode: strings.TrimSpace(req.CouponCode),
		Notes:      req.Notes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	o.ApplyTotals(totals)
	return o, nil
}

// release returns reserved stock; a failure is logged because the caller is
// already on an error or post-commit path.
func (s *Service) release(ctx context.Context, number string, lines []catalog.StockLine) {
	if err := s.stock.ReleaseStock(ctx, lines); err != nil {
		log.Printf("[order] Warning: failed to release stock for order %s: %v", number, err)
	}
}

func lineStock(o *domain.Order) []catalog.StockLine {
	lines := make([]catalog.StockLine, 0, len(o.Items))
	for _, item := range o.Items {
		lines = append(lines, catalog.StockLine{
			ProductID: item.ProductID,
			Size:      item.Size,
			Color:     item.Color,
			Quantity:  item.Quantity,
		})
	}
	return lines
}

// ListOrders returns the user's orders, newest first.
func (s *Service) ListOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperr.Unauthorized("authentication required")
	}
	return s.repo.ListByUser(ctx, userID)
}

// GetOrder returns an order to its owner or an admin.
func (s *Service) GetOrder(ctx context.Context, id string, actor Actor) (*domain.Order, error) {
	o, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.OwnedBy(actor.ID) && !actor.isAdmin() {
		return nil, apperr.Forbidden("not allowed to access this order")
	}
	return o, nil
}

// StatusChange describes a committed fulfillment transition.
type StatusChange struct {
	Order *domain.Order
	From  domain.Status
	// Cancel is set when the update went through the cancellation path.
	Cancel *CancelResult
}

// UpdateStatus moves an order along the state machine. Only admins and sellers
// may do so; cancellation goes through the cancel path.
func (s *Service) UpdateStatus(ctx context.Context, req UpdateStatusRequest) (*StatusChange, error) {
	if !req.Actor.canFulfill() {
		return nil, apperr.Forbidden("only admins and sellers may update order status")
	}
	to, err := domain.ParseStatus(req.Status)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}

	o, err := s.repo.FindByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	from := o.Status

	if to == domain.StatusCancelled {
		res, err := s.cancel(ctx, o, req.Note)
		if res == nil {
			return nil, err
		}
		return &StatusChange{Order: res.Order, From: from, Cancel: res}, err
	}

	expect := expectOf(o)
	now := s.now()
	if err := o.Transition(to, now); err != nil {
		return nil, err
	}
	switch to {
	case domain.StatusShipped:
		if req.Carrier != "" {
			o.Tracking.Carrier = req.Carrier
		}
		if req.TrackingNumber != "" {
			o.Tracking.TrackingNumber = req.TrackingNumber
		}
		if req.EstimatedDelivery != nil {
			o.Tracking.EstimatedDelivery = req.EstimatedDelivery
		}
	case domain.StatusReturned:
		o.ReturnReason = req.Note
	}
	o.UpdatedAt = now

	if err := s.repo.Save(ctx, o, expect); err != nil {
		return nil, err
	}
	return &StatusChange{Order: o, From: from}, nil
}

// CancelResult is the outcome of a committed cancellation.
type CancelResult struct {
	Order    *domain.Order
	Refunded bool
}

// CancelOrder cancels a pending or confirmed order for its owner or an admin.
// When the refund of a paid order fails the cancellation still stands and
// the result is returned together with a refund_failed error.
func (s *Service) CancelOrder(ctx context.Context, id string, actor Actor, reason string) (*CancelResult, error) {
	o, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.OwnedBy(actor.ID) && !actor.isAdmin() {
		return nil, apperr.Forbidden("not allowed to cancel this order")
	}
	return s.cancel(ctx, o, reason)
}

func (s *Service) cancel(ctx context.Context, o *domain.Order, reason string) (*CancelResult, error) {
	expect := expectOf(o)
	now := s.now()
	if err := o.Cancel(reason, now); err != nil {
		return nil, err
	}
	o.UpdatedAt = now
	if err := s.repo.Save(ctx, o, expect); err != nil {
		return nil, err
	}

	s.release(ctx, o.Number, lineStock(o))

	res := &CancelResult{Order: o}
	if o.Payment.Status != domain.PaymentPaid || o.Payment.TransactionID == "" {
		return res, nil
	}
	if err := s.refund(ctx, o, reason); err != nil {
		return res, err
	}
	res.Refunded = true
	return res, nil
}

// ConfirmPayment records a gateway payment after checking that the intent
// belongs to the order, matches its total and reports exactly "succeeded".
// It reports false when the payment had already been recorded.
func (s *Service) ConfirmPayment(ctx context.Context, req ConfirmPaymentRequest) (*domain.Order, bool, error) {
	if strings.TrimSpace(req.PaymentIntentID) == "" {
		return nil, false, apperr.Validation("payment intent id is required")
	}
	o, err := s.repo.FindByID(ctx, req.OrderID)
	if err != nil {
		return nil, false, err
	}
	if !o.OwnedBy(req.Actor.ID) && !req.Actor.isAdmin() {
		return nil, false, apperr.Forbidden("not allowed to access this order")
	}
	if o.Payment.Method == domain.MethodCOD {
		return nil, false, apperr.InvalidState("cash on delivery orders are paid on delivery")
	}
	if o.Payment.Status == domain.PaymentPaid && o.Payment.TransactionID == req.PaymentIntentID {
		return o, false, nil
	}

	intent, err := s.payments.GetIntent(ctx, req.PaymentIntentID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, false, apperr.New(apperr.KindPaymentNotSuccessful, "payment %s not found", req.PaymentIntentID)
		}
		return nil, false, err
	}
	if intent.OrderID != o.ID && intent.ID != o.Payment.TransactionID {
		return nil, false, apperr.New(apperr.KindPaymentNotSuccessful, "payment %s does not belong to order %s", intent.ID, o.Number)
	}
	if intent.Status != payment.IntentSucceeded {
		return nil, false, apperr.New(apperr.KindPaymentNotSuccessful, "payment status is %s", intent.Status)
	}
	if !intent.Amount.Equal(o.Total) {
		return nil, false, apperr.New(apperr.KindPaymentNotSuccessful,
			"payment amount %s does not match order total %s", intent.Amount.StringFixed(2), o.Total.StringFixed(2))
	}

	expect := expectOf(o)
	now := s.now()
	changed, err := o.ConfirmPayment(intent.ID, now)
	if err != nil || !changed {
		return o, false, err
	}
	o.UpdatedAt = now
	if err := s.repo.Save(ctx, o, expect); err != nil {
		return nil, false, err
	}
	return o, true, nil
}

// FailPayment records a failed payment attempt reported by the client.
func (s *Service) FailPayment(ctx context.Context, req FailPaymentRequest) (*domain.Order, error) {
	o, err := s.repo.FindByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if !o.OwnedBy(req.Actor.ID) && !req.Actor.isAdmin() {
		return nil, apperr.Forbidden("not allowed to access this order")
	}

	expect := expectOf(o)
	if err := o.FailPayment(req.Reason); err != nil {
		return nil, err
	}
	o.UpdatedAt = s.now()
	if err := s.repo.Save(ctx, o, expect); err != nil {
		return nil, err
	}
	return o, nil
}

// RefundOrder refunds a paid order that is cancelled or returned.
func (s *Service) RefundOrder(ctx context.Context, req RefundOrderRequest) (*domain.Order, error) {
	o, err := s.repo.FindByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if err := s.refund(ctx, o, req.Reason); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Service) refund(ctx context.Context, o *domain.Order, reason string) error {
	if err := o.CheckRefundable(); err != nil {
		return err
	}

	refund, err := s.payments.Refund(ctx, payment.RefundRequest{
		OrderID:  o.ID,
		IntentID: o.Payment.TransactionID,
		Reason:   reason,
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindRefundFailed {
			return err
		}
		return apperr.Wrap(apperr.KindRefundFailed, err, "refund for order %s failed", o.Number)
	}

	expect := expectOf(o)
	now := s.now()
	if err := o.MarkRefunded(refund.ID, refund.Amount, reason, now); err != nil {
		return err
	}
	o.UpdatedAt = now
	if err := s.repo.Save(ctx, o, expect); err != nil {
		return fmt.Errorf("refund %s issued but not recorded: %w", refund.ID, err)
	}
	return nil
}
