package catalog

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	domain "github.com/Div1912/stylehub-backend/domain/catalog"
	"github.com/Div1912/stylehub-backend/pkg/apperr"
	"github.com/Div1912/stylehub-backend/pkg/database"
	"gorm.io/gorm"
)

// ErrProductNotFound is returned when a product is absent or soft deleted.
var ErrProductNotFound = apperr.NotFound("product not found")

// ProductFilter narrows List; zero values do not filter.
type ProductFilter struct {
	ListProductsRequest
	Offset int
}

// Repository provides access to product storage.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new product repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates the catalog tables.
func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(&domain.Product{}, &domain.Variant{}, &domain.Image{}, &domain.Review{})
}

// Create saves a new product with its variants and images.
func (r *Repository) Create(ctx context.Context, p *domain.Product) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		if database.IsDuplicateKey(err) {
			return apperr.Validation("duplicate variant")
		}
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// FindByID loads a product with its variants and images, soft deleted ones included.
func (r *Repository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := r.db.WithContext(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&p, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	return &p, nil
}

// Reviews returns the product's reviews oldest first.
func (r *Repository) Reviews(ctx context.Context, productID string) ([]domain.Review, error) {
	var reviews []domain.Review
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at ASC").
		Find(&reviews).Error; err != nil {
		return nil, fmt.Errorf("failed to load reviews: %w", err)
	}
	return reviews, nil
}

// List returns one page of active products and the total match count.
func (r *Repository) List(ctx context.Context, f ProductFilter) ([]domain.Product, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Product{}).Where("status = ?", domain.StatusActive)

	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.SubCategory != "" {
		q = q.Where("sub_category = ?", f.SubCategory)
	}
	if f.Brand != "" {
		q = q.Where("brand = ?", f.Brand)
	}
	if f.SellerID != "" {
		q = q.Where("seller_id = ?", f.SellerID)
	}
	if f.MinPrice != nil {
		q = q.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("price <= ?", *f.MaxPrice)
	}
	if f.Featured != nil {
		q = q.Where("featured = ?", *f.Featured)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("(LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(brand) LIKE ?)", like, like, like)
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	var products []domain.Product
	err := q.Order(sortClause(f.Sort)).Order("id ASC").
		Offset(f.Offset).Limit(f.Limit).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Find(&products).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	return products, total, nil
}

func sortClause(sort string) string {
	switch sort {
	case SortPriceAsc:
		return "price ASC"
	case SortPriceDesc:
		return "price DESC"
	case SortRating:
		return "CASE WHEN rating_count = 0 THEN 0 ELSE CAST(rating_sum AS REAL) / rating_count END DESC"
	default:
		return "created_at DESC"
	}
}

// Update writes the product's scalar fields. Variants and images are replaced
// as whole sets when the corresponding flag is set.
func (r *Repository) Update(ctx context.Context, p *domain.Product, replaceVariants, replaceImages bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.Product{}).
			Where("id = ? AND status <> ?", p.ID, domain.StatusDeleted).
			Select("name", "description", "price", "compare_price", "category", "sub_category",
				"brand", "specifications", "tags", "featured", "status", "updated_at").
			Updates(p)
		if result.Error != nil {
			return fmt.Errorf("failed to update product: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrProductNotFound
		}

		if replaceVariants {
			if err := tx.Where("product_id = ?", p.ID).Delete(&domain.Variant{}).Error; err != nil {
				return fmt.Errorf("failed to clear variants: %w", err)
			}
			for i := range p.Variants {
				p.Variants[i].ID = 0
				p.Variants[i].ProductID = p.ID
			}
			if len(p.Variants) > 0 {
				if err := tx.Create(&p.Variants).Error; err != nil {
					if database.IsDuplicateKey(err) {
						return apperr.Validation("duplicate variant")
					}
					return fmt.Errorf("failed to save variants: %w", err)
				}
			}
		}

		if replaceImages {
			if err := tx.Where("product_id = ?", p.ID).Delete(&domain.Image{}).Error; err != nil {
				return fmt.Errorf("failed to clear images: %w", err)
			}
			for i := range p.Images {
				p.Images[i].ID = 0
				p.Images[i].ProductID = p.ID
			}
			if len(p.Images) > 0 {
				if err := tx.Create(&p.Images).Error; err != nil {
					return fmt.Errorf("failed to save images: %w", err)
				}
			}
		}
		return nil
	})
}

// SoftDelete marks the product deleted. Variants stay so that releases of
// stock held by open orders still land.
func (r *Repository) SoftDelete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Model(&domain.Product{}).
		Where("id = ? AND status <> ?", id, domain.StatusDeleted).
		Update("status", domain.StatusDeleted)
	if result.Error != nil {
		return fmt.Errorf("failed to delete product: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

// AddReview inserts the review and folds its rating into the product
// aggregate in one transaction. The (product, user) unique index makes the
// insert-if-absent atomic.
func (r *Repository) AddReview(ctx context.Context, review *domain.Review) (domain.Rating, error) {
	var rating domain.Rating
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p domain.Product
		if err := tx.Select("id", "status").First(&p, "id = ?", review.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return err
		}
		if p.Status == domain.StatusDeleted {
			return ErrProductNotFound
		}

		if err := tx.Create(review).Error; err != nil {
			if database.IsDuplicateKey(err) {
				return apperr.DuplicateReview("you have already reviewed this product")
			}
			return fmt.Errorf("failed to save review: %w", err)
		}

		if err := tx.Model(&domain.Product{}).Where("id = ?", review.ProductID).
			Updates(map[string]any{
				"rating_sum":   gorm.Expr("rating_sum + ?", review.Rating),
				"rating_count": gorm.Expr("rating_count + ?", 1),
			}).Error; err != nil {
			return fmt.Errorf("failed to update rating: %w", err)
		}

		var agg domain.Product
		if err := tx.Select("rating_sum", "rating_count").First(&agg, "id = ?", review.ProductID).Error; err != nil {
			return err
		}
		rating = agg.Rating()
		return nil
	})
	return rating, err
}

// Reserve decrements stock for every line or for none. Each decrement is
// conditional on enough stock remaining, so concurrent reservations can never
// drive a variant negative. Rows are locked in variant order so that two
// reservations over the same variants cannot deadlock; the result keeps the
// order of lines.
func (r *Repository) Reserve(ctx context.Context, lines []StockLine) ([]ReservedLine, error) {
	reserved := make([]ReservedLine, len(lines))
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		products := make(map[string]*domain.Product)
		for _, i := range lockOrder(lines) {
			line := lines[i]
			p, ok := products[line.ProductID]
			if !ok {
				var loaded domain.Product
				err := tx.Select("id", "name", "price", "status").First(&loaded, "id = ?", line.ProductID).Error
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.NotFound("product %s not found", line.ProductID)
				}
				if err != nil {
					return err
				}
				p = &loaded
				products[line.ProductID] = p
			}
			if p.Status != domain.StatusActive {
				return apperr.NotFound("product %s is not available", line.ProductID)
			}

			result := tx.Model(&domain.Variant{}).
				Where("product_id = ? AND size = ? AND color = ? AND stock >= ?",
					line.ProductID, line.Size, line.Color, line.Quantity).
				Update("stock", gorm.Expr("stock - ?", line.Quantity))
			if result.Error != nil {
				return fmt.Errorf("failed to reserve stock: %w", result.Error)
			}
			if result.RowsAffected == 0 {
				return r.reserveMiss(tx, p, line)
			}

			reserved[i] = ReservedLine{
				StockLine:   line,
				ProductName: p.Name,
				UnitPrice:   p.Price,
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reserved, nil
}

// reserveMiss explains why a conditional decrement matched no row. A variant
// that does not exist has nothing available.
func (r *Repository) reserveMiss(tx *gorm.DB, p *domain.Product, line StockLine) error {
	var v domain.Variant
	err := tx.Where("product_id = ? AND size = ? AND color = ?", line.ProductID, line.Size, line.Color).
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.OutOfStock("%s (%s/%s): requested %d, available 0",
			p.Name, line.Size, line.Color, line.Quantity)
	}
	if err != nil {
		return err
	}
	return apperr.OutOfStock("%s (%s/%s): requested %d, available %d",
		p.Name, line.Size, line.Color, line.Quantity, v.Stock)
}

// Release returns reserved quantities to stock in one transaction. Lines whose
// variant no longer exists are skipped and counted out of the result.
func (r *Repository) Release(ctx context.Context, lines []StockLine) (int, error) {
	released := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, i := range lockOrder(lines) {
			line := lines[i]
			result := tx.Model(&domain.Variant{}).
				Where("product_id = ? AND size = ? AND color = ?", line.ProductID, line.Size, line.Color).
				Update("stock", gorm.Expr("stock + ?", line.Quantity))
			if result.Error != nil {
				return fmt.Errorf("failed to release stock: %w", result.Error)
			}
			released += int(result.RowsAffected)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return released, nil
}

// lockOrder returns the indexes of lines sorted by product, size and color.
func lockOrder(lines []StockLine) []int {
	idx := make([]int, len(lines))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		x, y := lines[a], lines[b]
		return cmp.Or(
			cmp.Compare(x.ProductID, y.ProductID),
			cmp.Compare(x.Size, y.Size),
			cmp.Compare(x.Color, y.Color),
		)
	})
	return idx
}
