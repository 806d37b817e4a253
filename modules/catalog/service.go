package catalog

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	domain "github.com/Div1912/stylehub-backend/domain/catalog"
	"github.com/Div1912/stylehub-backend/pkg/apperr"
	"github.com/google/uuid"
)

// Service implements the catalog rules on top of the repository.
type Service struct {
	repo *Repository
	now  func() time.Time
}

// NewService creates a new catalog service.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// CreateProduct validates and stores a new product owned by sellerID. Image
// keys must come from uploaded, the keys stored for this request.
func (s *Service) CreateProduct(ctx context.Context, sellerID string, in ProductInput, uploaded []string) (*domain.Product, error) {
	if strings.TrimSpace(sellerID) == "" {
		return nil, apperr.Validation("seller is required")
	}
	if err := checkImageKeys(in.Images, nil, uploaded); err != nil {
		return nil, err
	}

	status := domain.StatusDraft
	if in.Status != "" {
		st, err := domain.ParseStatus(in.Status)
		if err != nil {
			return nil, validationError(err)
		}
		status = st
	}

	now := s.now()
	p := &domain.Product{
		ID:             uuid.New().String(),
		SellerID:       sellerID,
		Name:           strings.TrimSpace(in.Name),
		Description:    in.Description,
		Price:          in.Price,
		Category:       domain.Category(strings.ToLower(strings.TrimSpace(in.Category))),
		SubCategory:    in.SubCategory,
		Brand:          in.Brand,
		Specifications: in.Specifications,
		Tags:           in.Tags,
		Featured:       in.Featured,
		Status:         status,
		Variants:       toVariants(in.Variants),
		Images:         toImages(in.Images),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if in.ComparePrice != nil {
		p.ComparePrice.Decimal = *in.ComparePrice
		p.ComparePrice.Valid = true
	}

	if err := p.Validate(); err != nil {
		return nil, validationError(err)
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// GetProduct returns a product with its reviews if actor may see it.
func (s *Service) GetProduct(ctx context.Context, id string, actor Actor) (*domain.Product, *domain.ReviewSet, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !p.VisibleTo(actor.ID, actor.isAdmin()) {
		return nil, nil, ErrProductNotFound
	}

	reviews, err := s.repo.Reviews(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return p, domain.NewReviewSet(reviews), nil
}

// ListProducts returns a page of active products.
func (s *Service) ListProducts(ctx context.Context, req ListProductsRequest) ([]domain.Product, int64, ListProductsRequest, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 {
		req.Limit = defaultPageSize
	}
	if req.Limit > maxPageSize {
		req.Limit = maxPageSize
	}
	switch req.Sort {
	case "", SortNewest, SortPriceAsc, SortPriceDesc, SortRating:
	default:
		return nil, 0, req, apperr.Validation("unknown sort %q", req.Sort)
	}
	if req.Category != "" {
		c, err := domain.ParseCategory(req.Category)
		if err != nil {
			return nil, 0, req, validationError(err)
		}
		req.Category = string(c)
	}
	if req.MinPrice != nil && req.MaxPrice != nil && req.MinPrice.GreaterThan(*req.MaxPrice) {
		return nil, 0, req, apperr.Validation("min_price must not exceed max_price")
	}

	products, total, err := s.repo.List(ctx, ProductFilter{
		ListProductsRequest: req,
		Offset:              (req.Page - 1) * req.Limit,
	})
	if err != nil {
		return nil, 0, req, err
	}
	return products, total, req, nil
}

// UpdateProduct applies a patch. Only the owning seller or an admin may
// update. A new image list may only reference the product's current images
// and uploaded. It returns the image keys that are no longer referenced.
func (s *Service) UpdateProduct(ctx context.Context, id string, actor Actor, patch ProductPatch, uploaded []string) (*domain.Product, []string, error) {
	p, err := s.editable(ctx, id, actor)
	if err != nil {
		return nil, nil, err
	}
	if patch.Images != nil {
		if err := checkImageKeys(*patch.Images, p.ImageKeys(), uploaded); err != nil {
			return nil, nil, err
		}
	}

	if patch.Name != nil {
		p.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.ComparePrice != nil {
		p.ComparePrice.Decimal = *patch.ComparePrice
		p.ComparePrice.Valid = true
	}
	if patch.Category != nil {
		p.Category = domain.Category(strings.ToLower(strings.TrimSpace(*patch.Category)))
	}
	if patch.SubCategory != nil {
		p.SubCategory = *patch.SubCategory
	}
	if patch.Brand != nil {
		p.Brand = *patch.Brand
	}
	if patch.Specifications != nil {
		p.Specifications = *patch.Specifications
	}
	if patch.Tags != nil {
		p.Tags = *patch.Tags
	}
	if patch.Featured != nil {
		p.Featured = *patch.Featured
	}
	if patch.Status != nil {
		st, err := domain.ParseStatus(*patch.Status)
		if err != nil {
			return nil, nil, validationError(err)
		}
		p.Status = st
	}
	if patch.Variants != nil {
		p.Variants = toVariants(*patch.Variants)
	}

	var removed []string
	if patch.Images != nil {
		next := toImages(*patch.Images)
		removed = removedKeys(p.ImageKeys(), next)
		p.Images = next
	}

	if err := p.Validate(); err != nil {
		return nil, nil, validationError(err)
	}
	p.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, p, patch.Variants != nil, patch.Images != nil); err != nil {
		return nil, nil, err
	}

	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return updated, removed, nil
}

// DeleteProduct soft deletes a product and returns its image keys.
func (s *Service) DeleteProduct(ctx context.Context, id string, actor Actor) ([]string, error) {
	p, err := s.editable(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return nil, err
	}
	return p.ImageKeys(), nil
}

func (s *Service) editable(ctx context.Context, id string, actor Actor) (*domain.Product, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status == domain.StatusDeleted {
		return nil, ErrProductNotFound
	}
	if !actor.isAdmin() && (actor.ID == "" || actor.ID != p.SellerID) {
		return nil, apperr.Forbidden("not allowed to modify this product")
	}
	return p, nil
}

// AddReview records a review. A user reviews a product at most once.
func (s *Service) AddReview(ctx context.Context, req AddReviewRequest) (*domain.Review, domain.Rating, error) {
	review := &domain.Review{
		ID:        uuid.New().String(),
		ProductID: req.ProductID,
		UserID:    req.UserID,
		UserName:  req.UserName,
		Rating:    req.Rating,
		Comment:   strings.TrimSpace(req.Comment),
		Images:    req.Images,
		CreatedAt: s.now(),
	}
	if err := review.Validate(); err != nil {
		return nil, domain.Rating{}, validationError(err)
	}

	rating, err := s.repo.AddReview(ctx, review)
	if err != nil {
		return nil, domain.Rating{}, err
	}
	return review, rating, nil
}

// ReserveStock reserves every line or none.
func (s *Service) ReserveStock(ctx context.Context, lines []StockLine) ([]ReservedLine, error) {
	if err := validateLines(lines); err != nil {
		return nil, err
	}
	return s.repo.Reserve(ctx, lines)
}

// ReleaseStock undoes a reservation.
func (s *Service) ReleaseStock(ctx context.Context, lines []StockLine) (int, error) {
	if err := validateLines(lines); err != nil {
		return 0, err
	}
	return s.repo.Release(ctx, lines)
}

func validateLines(lines []StockLine) error {
	if len(lines) == 0 {
		return apperr.Validation("at least one line is required")
	}
	for _, l := range lines {
		if l.ProductID == "" || l.Size == "" || l.Color == "" {
			return apperr.Validation("product, size and color are required")
		}
		if l.Quantity < 1 {
			return apperr.Validation("quantity must be at least 1")
		}
	}
	return nil
}

func toVariants(in []VariantInput) []domain.Variant {
	out := make([]domain.Variant, 0, len(in))
	for _, v := range in {
		out = append(out, domain.Variant{
			Size:  strings.TrimSpace(v.Size),
			Color: strings.TrimSpace(v.Color),
			SKU:   v.SKU,
			Stock: v.Stock,
		})
	}
	return out
}

func toImages(in []ImageInput) []domain.Image {
	out := make([]domain.Image, 0, len(in))
	for i, img := range in {
		out = append(out, domain.Image{Key: img.Key, Alt: img.Alt, Position: i})
	}
	return out
}

// checkImageKeys rejects keys that are neither owned nor freshly uploaded.
// Deleting a product deletes its stored images, so a foreign key would let
// one seller remove another seller's files.
func checkImageKeys(images []ImageInput, owned, uploaded []string) error {
	for _, img := range images {
		if !slices.Contains(owned, img.Key) && !slices.Contains(uploaded, img.Key) {
			return apperr.Forbidden("image %q does not belong to this product", img.Key)
		}
	}
	return nil
}

func removedKeys(old []string, next []domain.Image) []string {
	keep := make(map[string]struct{}, len(next))
	for _, img := range next {
		keep[img.Key] = struct{}{}
	}
	var removed []string
	for _, k := range old {
		if _, ok := keep[k]; !ok {
			removed = append(removed, k)
		}
	}
	return removed
}

// validationError classifies domain validation failures.
func validationError(err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return &apperr.Error{Kind: apperr.KindValidation, Message: err.Error(), Err: err}
}
