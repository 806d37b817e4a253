package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Div1912/stylehub-backend/pkg/apperr"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// CatalogPort is what other modules need from the catalog.
type CatalogPort interface {
	ListProducts(ctx context.Context, req ListProductsRequest) (*ListProductsResponse, error)
	GetProduct(ctx context.Context, id string, actor Actor) (*ProductResponse, error)
	CreateProduct(ctx context.Context, req CreateProductRequest) (*ProductResponse, error)
	UpdateProduct(ctx context.Context, req UpdateProductRequest) (*UpdateProductResponse, error)
	DeleteProduct(ctx context.Context, id string, actor Actor) (*DeleteProductResponse, error)
	AddReview(ctx context.Context, req AddReviewRequest) (*AddReviewResponse, error)
}

// StockPort is the narrower port used by the order module.
type StockPort interface {
	ReserveStock(ctx context.Context, lines []StockLine) ([]ReservedLine, error)
	ReleaseStock(ctx context.Context, lines []StockLine) error
}

type catalogAdapter struct {
	container mono.ServiceContainer
}

// NewCatalogAdapter wraps the catalog module's service container.
func NewCatalogAdapter(container mono.ServiceContainer) *catalogAdapter {
	if container == nil {
		panic("catalog adapter requires non-nil ServiceContainer")
	}
	return &catalogAdapter{container: container}
}

var (
	_ CatalogPort = (*catalogAdapter)(nil)
	_ StockPort   = (*catalogAdapter)(nil)
)

func (a *catalogAdapter) call(ctx context.Context, service string, req, resp any) error {
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		&resp,
	); err != nil {
		return apperr.Decode(fmt.Errorf("%s service call failed: %w", service, err))
	}
	return nil
}

func (a *catalogAdapter) ListProducts(ctx context.Context, req ListProductsRequest) (*ListProductsResponse, error) {
	var resp ListProductsResponse
	if err := a.call(ctx, "list-products", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *catalogAdapter) GetProduct(ctx context.Context, id string, actor Actor) (*ProductResponse, error) {
	req := GetProductRequest{ID: id, Actor: actor}
	var resp ProductResponse
	if err := a.call(ctx, "get-product", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *catalogAdapter) CreateProduct(ctx context.Context, req CreateProductRequest) (*ProductResponse, error) {
	var resp ProductResponse
	if err := a.call(ctx, "create-product", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *catalogAdapter) UpdateProduct(ctx context.Context, req UpdateProductRequest) (*UpdateProductResponse, error) {
	var resp UpdateProductResponse
	if err := a.call(ctx, "update-product", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *catalogAdapter) DeleteProduct(ctx context.Context, id string, actor Actor) (*DeleteProductResponse, error) {
	req := DeleteProductRequest{ID: id, Actor: actor}
	var resp DeleteProductResponse
	if err := a.call(ctx, "delete-product", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *catalogAdapter) AddReview(ctx context.Context, req AddReviewRequest) (*AddReviewResponse, error) {
	var resp AddReviewResponse
	if err := a.call(ctx, "add-review", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *catalogAdapter) ReserveStock(ctx context.Context, lines []StockLine) ([]ReservedLine, error) {
	req := ReserveStockRequest{Lines: lines}
	var resp ReserveStockResponse
	if err := a.call(ctx, "reserve-stock", &req, &resp); err != nil {
		return nil, err
	}
	return resp.Lines, nil
}

func (a *catalogAdapter) ReleaseStock(ctx context.Context, lines []StockLine) error {
	req := ReleaseStockRequest{Lines: lines}
	var resp ReleaseStockResponse
	return a.call(ctx, "release-stock", &req, &resp)
}
