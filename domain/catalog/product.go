package catalog

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Category is the closed set of top-level catalog categories.
type Category string

const (
	CategoryMen         Category = "men"
	CategoryWomen       Category = "women"
	CategoryKids        Category = "kids"
	CategoryAccessories Category = "accessories"
)

// Status is the publication state of a product.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusDeleted  Status = "deleted"
)

var (
	ErrInvalidCategory  = errors.New("invalid category")
	ErrInvalidStatus    = errors.New("invalid product status")
	ErrNameRequired     = errors.New("product name is required")
	ErrInvalidPrice     = errors.New("price must be a non-negative amount with at most 2 decimal places")
	ErrNegativeStock    = errors.New("variant stock must not be negative")
	ErrVariantSelector  = errors.New("variant size and color are required")
	ErrDuplicateVariant = errors.New("duplicate variant")
)

// ParseCategory validates a category string.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case CategoryMen, CategoryWomen, CategoryKids, CategoryAccessories:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

// ParseStatus validates a status string. Deleted is reserved for soft delete.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusDraft, StatusActive, StatusInactive:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Product is a catalog entry owned by a seller.
type Product struct {
	ID             string              `gorm:"primaryKey;type:text"`
	SellerID       string              `gorm:"index;not null;type:text"`
	Name           string              `gorm:"not null;type:text"`
	Description    string              `gorm:"type:text"`
	Price          decimal.Decimal     `gorm:"type:decimal(12,2);not null;index"`
	ComparePrice   decimal.NullDecimal `gorm:"type:decimal(12,2)"`
	Category       Category            `gorm:"type:text;not null;index"`
	SubCategory    string              `gorm:"type:text;index"`
	Brand          string              `gorm:"type:text;index"`
	Specifications map[string]string   `gorm:"serializer:json"`
	Tags           []string            `gorm:"serializer:json"`
	Featured       bool
	Status         Status    `gorm:"type:text;not null;index;default:draft"`
	RatingSum      int       `gorm:"not null;default:0"`
	RatingCount    int       `gorm:"not null;default:0;index"`
	Images         []Image   `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Variants       []Variant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Reviews        []Review  `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time `gorm:"index"`
	UpdatedAt      time.Time
}

// TableName returns the table name for the Product entity.
func (Product) TableName() string {
	return "products"
}

// Variant is a (size, color) stock-keeping unit with its own stock counter.
type Variant struct {
	ID        uint   `gorm:"primaryKey"`
	ProductID string `gorm:"not null;type:text;uniqueIndex:idx_variant_selector"`
	Size      string `gorm:"not null;type:text;uniqueIndex:idx_variant_selector"`
	Color     string `gorm:"not null;type:text;uniqueIndex:idx_variant_selector"`
	SKU       string `gorm:"type:text"`
	Stock     int    `gorm:"not null;check:stock >= 0"`
}

func (Variant) TableName() string {
	return "product_variants"
}

// Selector returns the variant's (size, color) key.
func (v Variant) Selector() Selector {
	return Selector{Size: v.Size, Color: v.Color}
}

// Image references a stored object by key.
type Image struct {
	ID        uint   `gorm:"primaryKey"`
	ProductID string `gorm:"not null;type:text;index"`
	Key       string `gorm:"not null;type:text"`
	Alt       string `gorm:"type:text"`
	Position  int
}

func (Image) TableName() string {
	return "product_images"
}

// Selector identifies a variant within a product.
type Selector struct {
	Size  string `json:"size"`
	Color string `json:"color"`
}

func (s Selector) String() string {
	return s.Size + "/" + s.Color
}

// Rating is the derived review aggregate.
type Rating struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// Rating returns the running average; zero when there are no reviews.
func (p *Product) Rating() Rating {
	if p.RatingCount == 0 {
		return Rating{}
	}
	return Rating{
		Average: float64(p.RatingSum) / float64(p.RatingCount),
		Count:   p.RatingCount,
	}
}

// FindVariant returns the variant matching the selector exactly.
func (p *Product) FindVariant(sel Selector) (*Variant, bool) {
	for i := range p.Variants {
		if p.Variants[i].Size == sel.Size && p.Variants[i].Color == sel.Color {
			return &p.Variants[i], true
		}
	}
	return nil, false
}

// ImageKeys returns the storage keys of all product images.
func (p *Product) ImageKeys() []string {
	keys := make([]string, 0, len(p.Images))
	for _, img := range p.Images {
		keys = append(keys, img.Key)
	}
	return keys
}

// VisibleTo reports whether the product can be read by the given actor.
// Deleted products are never visible; unpublished ones only to the owner and admins.
func (p *Product) VisibleTo(actorID string, isAdmin bool) bool {
	switch p.Status {
	case StatusDeleted:
		return false
	case StatusActive:
		return true
	default:
		return isAdmin || (actorID != "" && actorID == p.SellerID)
	}
}

// Validate checks the product's own fields and its variants.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrNameRequired
	}
	if !validAmount(p.Price) {
		return ErrInvalidPrice
	}
	if p.ComparePrice.Valid && !validAmount(p.ComparePrice.Decimal) {
		return ErrInvalidPrice
	}
	if _, err := ParseCategory(string(p.Category)); err != nil {
		return err
	}
	return ValidateVariants(p.Variants)
}

// ValidateVariants checks selectors are present and unique and stock is non-negative.
func ValidateVariants(variants []Variant) error {
	seen := make(map[Selector]struct{}, len(variants))
	for _, v := range variants {
		if strings.TrimSpace(v.Size) == "" || strings.TrimSpace(v.Color) == "" {
			return ErrVariantSelector
		}
		if v.Stock < 0 {
			return fmt.Errorf("%w: %s", ErrNegativeStock, v.Selector())
		}
		if _, dup := seen[v.Selector()]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateVariant, v.Selector())
		}
		seen[v.Selector()] = struct{}{}
	}
	return nil
}

func validAmount(d decimal.Decimal) bool {
	return !d.IsNegative() && d.Equal(d.Round(2))
}
