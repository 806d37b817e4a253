package catalog

import (
	"time"

	domain "github.com/Div1912/stylehub-backend/domain/catalog"
	"github.com/shopspring/decimal"
)

// VariantInput describes one (size, color) variant.
type VariantInput struct {
	Size  string `json:"size"`
	Color string `json:"color"`
	SKU   string `json:"sku,omitempty"`
	Stock int    `json:"stock"`
}

// ImageInput references an already stored image.
type ImageInput struct {
	Key string `json:"key"`
	Alt string `json:"alt,omitempty"`
}

// ProductInput holds the writable product fields.
type ProductInput struct {
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	Price          decimal.Decimal   `json:"price"`
	ComparePrice   *decimal.Decimal  `json:"compare_price,omitempty"`
	Category       string            `json:"category"`
	SubCategory    string            `json:"sub_category,omitempty"`
	Brand          string            `json:"brand,omitempty"`
	Specifications map[string]string `json:"specifications,omitempty"`
	Tags           []string          `json:"tags,omitempty"`
	Featured       bool              `json:"featured"`
	Status         string            `json:"status,omitempty"`
	Variants       []VariantInput    `json:"variants"`
	Images         []ImageInput      `json:"images,omitempty"`
}

// ProductPatch is a partial update; nil fields are left unchanged.
// Variants and Images replace the existing set when present.
type ProductPatch struct {
	Name           *string            `json:"name,omitempty"`
	Description    *string            `json:"description,omitempty"`
	Price          *decimal.Decimal   `json:"price,omitempty"`
	ComparePrice   *decimal.Decimal   `json:"compare_price,omitempty"`
	Category       *string            `json:"category,omitempty"`
	SubCategory    *string            `json:"sub_category,omitempty"`
	Brand          *string            `json:"brand,omitempty"`
	Specifications *map[string]string `json:"specifications,omitempty"`
	Tags           *[]string          `json:"tags,omitempty"`
	Featured       *bool              `json:"featured,omitempty"`
	Status         *string            `json:"status,omitempty"`
	Variants       *[]VariantInput    `json:"variants,omitempty"`
	Images         *[]ImageInput      `json:"images,omitempty"`
}

// Actor identifies who is calling.
type Actor struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

func (a Actor) isAdmin() bool {
	return a.Role == "admin"
}

// CreateProductRequest carries the new product and the image keys stored
// while handling the same request.
type CreateProductRequest struct {
	SellerID string       `json:"seller_id"`
	Product  ProductInput `json:"product"`
	Uploaded []string     `json:"uploaded,omitempty"`
}

type UpdateProductRequest struct {
	ID       string       `json:"id"`
	Actor    Actor        `json:"actor"`
	Patch    ProductPatch `json:"patch"`
	Uploaded []string     `json:"uploaded,omitempty"`
}

type UpdateProductResponse struct {
	Product          ProductResponse `json:"product"`
	RemovedImageKeys []string        `json:"removed_image_keys,omitempty"`
}

type GetProductRequest struct {
	ID    string `json:"id"`
	Actor Actor  `json:"actor"`
}

type DeleteProductRequest struct {
	ID    string `json:"id"`
	Actor Actor  `json:"actor"`
}

type DeleteProductResponse struct {
	ImageKeys []string `json:"image_keys"`
}

// Sort orders for ListProducts.
const (
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortRating    = "rating"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ListProductsRequest filters the public catalog.
type ListProductsRequest struct {
	Category    string           `json:"category,omitempty"`
	SubCategory string           `json:"sub_category,omitempty"`
	Brand       string           `json:"brand,omitempty"`
	SellerID    string           `json:"seller_id,omitempty"`
	MinPrice    *decimal.Decimal `json:"min_price,omitempty"`
	MaxPrice    *decimal.Decimal `json:"max_price,omitempty"`
	Featured    *bool            `json:"featured,omitempty"`
	Search      string           `json:"search,omitempty"`
	Sort        string           `json:"sort,omitempty"`
	Page        int              `json:"page,omitempty"`
	Limit       int              `json:"limit,omitempty"`
}

type ListProductsResponse struct {
	Items []ProductResponse `json:"items"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
	Pages int               `json:"pages"`
}

type ImageResponse struct {
	Key string `json:"key"`
	Alt string `json:"alt,omitempty"`
}

type VariantResponse struct {
	Size  string `json:"size"`
	Color string `json:"color"`
	SKU   string `json:"sku,omitempty"`
	Stock int    `json:"stock"`
}

type ReviewResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	Images    []string  `json:"images,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ProductResponse is the public view of a product. Reviews are only filled
// by get-product.
type ProductResponse struct {
	ID             string            `json:"id"`
	SellerID       string            `json:"seller_id"`
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	Price          decimal.Decimal   `json:"price"`
	ComparePrice   *decimal.Decimal  `json:"compare_price,omitempty"`
	Category       domain.Category   `json:"category"`
	SubCategory    string            `json:"sub_category,omitempty"`
	Brand          string            `json:"brand,omitempty"`
	Specifications map[string]string `json:"specifications,omitempty"`
	Tags           []string          `json:"tags,omitempty"`
	Featured       bool              `json:"featured"`
	Status         domain.Status     `json:"status"`
	Rating         domain.Rating     `json:"rating"`
	InStock        bool              `json:"in_stock"`
	Images         []ImageResponse   `json:"images"`
	Variants       []VariantResponse `json:"variants"`
	Reviews        []ReviewResponse  `json:"reviews,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

type AddReviewRequest struct {
	ProductID string   `json:"product_id"`
	UserID    string   `json:"user_id"`
	UserName  string   `json:"user_name"`
	Rating    int      `json:"rating"`
	Comment   string   `json:"comment,omitempty"`
	Images    []string `json:"images,omitempty"`
}

type AddReviewResponse struct {
	Review ReviewResponse `json:"review"`
	Rating domain.Rating  `json:"rating"`
}

// StockLine is one requested or released quantity of a variant.
type StockLine struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity"`
}

// ReservedLine is a reserved quantity with the product data frozen at reservation time.
type ReservedLine struct {
	StockLine
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type ReserveStockRequest struct {
	Lines []StockLine `json:"lines"`
}

type ReserveStockResponse struct {
	Lines []ReservedLine `json:"lines"`
}

type ReleaseStockRequest struct {
	Lines []StockLine `json:"lines"`
}

type ReleaseStockResponse struct {
	Released int `json:"released"`
}

func toProductResponse(p *domain.Product) ProductResponse {
	resp := ProductResponse{
		ID:             p.ID,
		SellerID:       p.SellerID,
		Name:           p.Name,
		Description:    p.Description,
		Price:          p.Price,
		Category:       p.Category,
		SubCategory:    p.SubCategory,
		Brand:          p.Brand,
		Specifications: p.Specifications,
		Tags:           p.Tags,
		Featured:       p.Featured,
		Status:         p.Status,
		Rating:         p.Rating(),
		Images:         make([]ImageResponse, 0, len(p.Images)),
		Variants:       make([]VariantResponse, 0, len(p.Variants)),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	if p.ComparePrice.Valid {
		cp := p.ComparePrice.Decimal
		resp.ComparePrice = &cp
	}
	for _, img := range p.Images {
		resp.Images = append(resp.Images, ImageResponse{Key: img.Key, Alt: img.Alt})
	}
	for _, v := range p.Variants {
		resp.Variants = append(resp.Variants, VariantResponse{Size: v.Size, Color: v.Color, SKU: v.SKU, Stock: v.Stock})
		if v.Stock > 0 {
			resp.InStock = true
		}
	}
	return resp
}

func toReviewResponse(r domain.Review) ReviewResponse {
	return ReviewResponse{
		ID:        r.ID,
		UserID:    r.UserID,
		UserName:  r.UserName,
		Rating:    r.Rating,
		Comment:   r.Comment,
		Images:    r.Images,
		CreatedAt: r.CreatedAt,
	}
}
