package order

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/Div1912/stylehub-backend/domain/order"
	"github.com/Div1912/stylehub-backend/pkg/apperr"
	"gorm.io/gorm"
)

// ErrOrderNotFound is returned when no order has the requested id.
var ErrOrderNotFound = apperr.NotFound("order not found")

// mutableColumns are the columns the lifecycle may change after creation.
// Line items and money fields are never rewritten.
var mutableColumns = []string{
	"status",
	"payment_status",
	"payment_transaction_id",
	"payment_client_secret",
	"payment_failure_reason",
	"payment_paid_at",
	"tracking_carrier",
	"tracking_tracking_number",
	"tracking_estimated_delivery",
	"refund_refund_id",
	"refund_amount",
	"refund_reason",
	"refund_refunded_at",
	"cancel_reason",
	"return_reason",
	"notes",
	"updated_at",
}

// Expect is the state an update is conditional on.
type Expect struct {
	Status        domain.Status
	PaymentStatus domain.PaymentStatus
}

// expectOf captures the order's current state before it is mutated.
func expectOf(o *domain.Order) Expect {
	return Expect{Status: o.Status, PaymentStatus: o.Payment.Status}
}

// Repository provides access to order storage.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new order repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates the order tables.
func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(&domain.Order{}, &domain.LineItem{})
}

// Create saves the order with its line items.
func (r *Repository) Create(ctx context.Context, o *domain.Order) error {
	if err := r.db.WithContext(ctx).Create(o).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// FindByID loads an order with its line items.
func (r *Repository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	var o domain.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&o, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}
	return &o, nil
}

// ListByUser returns the user's orders, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	var orders []domain.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// Save writes the lifecycle columns only if the stored order is still in the
// expected state. A concurrent change surfaces as a conflict.
func (r *Repository) Save(ctx context.Context, o *domain.Order, expect Expect) error {
	result := r.db.WithContext(ctx).Model(&domain.Order{}).
		Where("id = ? AND status = ? AND payment_status = ?", o.ID, expect.Status, expect.PaymentStatus).
		Select(mutableColumns).
		Updates(o)
	if result.Error != nil {
		return fmt.Errorf("failed to update order: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.Conflict("order %s was modified concurrently", o.Number)
	}
	return nil
}
