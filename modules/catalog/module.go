package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/Div1912/stylehub-backend/pkg/database"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"gorm.io/gorm"
)

// CatalogModule provides product catalog services.
type CatalogModule struct {
	db      *gorm.DB
	service *Service
}

// Compile-time interface checks.
var _ mono.Module = (*CatalogModule)(nil)
var _ mono.ServiceProviderModule = (*CatalogModule)(nil)
var _ mono.HealthCheckableModule = (*CatalogModule)(nil)

// NewModule creates a new catalog module backed by db.
func NewModule(db *gorm.DB) *CatalogModule {
	return &CatalogModule{db: db}
}

// Name returns the module name.
func (m *CatalogModule) Name() string {
	return "catalog"
}

// Start migrates the catalog tables and wires the service.
func (m *CatalogModule) Start(_ context.Context) error {
	if m.db == nil {
		return errors.New("catalog module requires a database")
	}
	repo := NewRepository(m.db)
	if err := repo.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	m.service = NewService(repo)

	log.Println("[catalog] Module started")
	return nil
}

// Stop shuts down the module.
func (m *CatalogModule) Stop(_ context.Context) error {
	log.Println("[catalog] Module stopped")
	return nil
}

// Health reports database connectivity.
func (m *CatalogModule) Health(_ context.Context) mono.HealthStatus {
	if err := database.Ping(m.db); err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("database ping failed: %v", err)}
	}
	return mono.HealthStatus{Healthy: true, Message: "operational"}
}

// RegisterServices registers request-reply services in the service container.
func (m *CatalogModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "list-products", json.Unmarshal, json.Marshal, m.listProducts,
	); err != nil {
		return fmt.Errorf("failed to register list-products service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "get-product", json.Unmarshal, json.Marshal, m.getProduct,
	); err != nil {
		return fmt.Errorf("failed to register get-product service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "create-product", json.Unmarshal, json.Marshal, m.createProduct,
	); err != nil {
		return fmt.Errorf("failed to register create-product service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "update-product", json.Unmarshal, json.Marshal, m.updateProduct,
	); err != nil {
		return fmt.Errorf("failed to register update-product service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "delete-product", json.Unmarshal, json.Marshal, m.deleteProduct,
	); err != nil {
		return fmt.Errorf("failed to register delete-product service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "add-review", json.Unmarshal, json.Marshal, m.addReview,
	); err != nil {
		return fmt.Errorf("failed to register add-review service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "reserve-stock", json.Unmarshal, json.Marshal, m.reserveStock,
	); err != nil {
		return fmt.Errorf("failed to register reserve-stock service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "release-stock", json.Unmarshal, json.Marshal, m.releaseStock,
	); err != nil {
		return fmt.Errorf("failed to register release-stock service: %w", err)
	}

	log.Println("[catalog] Registered services: list-products, get-product, create-product, update-product, delete-product, add-review, reserve-stock, release-stock")
	return nil
}

func (m *CatalogModule) listProducts(ctx context.Context, req ListProductsRequest, _ *mono.Msg) (ListProductsResponse, error) {
	products, total, page, err := m.service.ListProducts(ctx, req)
	if err != nil {
		return ListProductsResponse{}, err
	}

	items := make([]ProductResponse, 0, len(products))
	for i := range products {
		items = append(items, toProductResponse(&products[i]))
	}
	pages := int((total + int64(page.Limit) - 1) / int64(page.Limit))
	return ListProductsResponse{
		Items: items,
		Total: total,
		Page:  page.Page,
		Limit: page.Limit,
		Pages: pages,
	}, nil
}

func (m *CatalogModule) getProduct(ctx context.Context, req GetProductRequest, _ *mono.Msg) (ProductResponse, error) {
	p, reviews, err := m.service.GetProduct(ctx, req.ID, req.Actor)
	if err != nil {
		return ProductResponse{}, err
	}

	resp := toProductResponse(p)
	for _, r := range reviews.List() {
		resp.Reviews = append(resp.Reviews, toReviewResponse(r))
	}
	return resp, nil
}

func (m *CatalogModule) createProduct(ctx context.Context, req CreateProductRequest, _ *mono.Msg) (ProductResponse, error) {
	p, err := m.service.CreateProduct(ctx, req.SellerID, req.Product, req.Uploaded)
	if err != nil {
		return ProductResponse{}, err
	}
	log.Printf("[catalog] Product %s created by seller %s", p.ID, p.SellerID)
	return toProductResponse(p), nil
}

func (m *CatalogModule) updateProduct(ctx context.Context, req UpdateProductRequest, _ *mono.Msg) (UpdateProductResponse, error) {
	p, removed, err := m.service.UpdateProduct(ctx, req.ID, req.Actor, req.Patch, req.Uploaded)
	if err != nil {
		return UpdateProductResponse{}, err
	}
	return UpdateProductResponse{Product: toProductResponse(p), RemovedImageKeys: removed}, nil
}

func (m *CatalogModule) deleteProduct(ctx context.Context, req DeleteProductRequest, _ *mono.Msg) (DeleteProductResponse, error) {
	keys, err := m.service.DeleteProduct(ctx, req.ID, req.Actor)
	if err != nil {
		return DeleteProductResponse{}, err
	}
	log.Printf("[catalog] Product %s deleted", req.ID)
	return DeleteProductResponse{ImageKeys: keys}, nil
}

func (m *CatalogModule) addReview(ctx context.Context, req AddReviewRequest, _ *mono.Msg) (AddReviewResponse, error) {
	review, rating, err := m.service.AddReview(ctx, req)
	if err != nil {
		return AddReviewResponse{}, err
	}
	return AddReviewResponse{Review: toReviewResponse(*review), Rating: rating}, nil
}

func (m *CatalogModule) reserveStock(ctx context.Context, req ReserveStockRequest, _ *mono.Msg) (ReserveStockResponse, error) {
	lines, err := m.service.ReserveStock(ctx, req.Lines)
	if err != nil {
		return ReserveStockResponse{}, err
	}
	return ReserveStockResponse{Lines: lines}, nil
}

func (m *CatalogModule) releaseStock(ctx context.Context, req ReleaseStockRequest, _ *mono.Msg) (ReleaseStockResponse, error) {
	released, err := m.service.ReleaseStock(ctx, req.Lines)
	if err != nil {
		return ReleaseStockResponse{}, err
	}
	if released < len(req.Lines) {
		log.Printf("[catalog] Warning: released %d of %d lines; missing variants skipped", released, len(req.Lines))
	}
	return ReleaseStockResponse{Released: released}, nil
}
