package catalog

import (
	"context"
	"sync"
	"testing"
	"time"

	domain "github.com/Div1912/stylehub-backend/domain/catalog"
	"github.com/Div1912/stylehub-backend/pkg/apperr"
	"github.com/Div1912/stylehub-backend/pkg/database"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	db, err := database.Open(database.Config{Driver: database.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	repo := NewRepository(db)
	require.NoError(t, repo.Migrate())

	s := NewService(repo)
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return s
}

func shirt(name string, price string) ProductInput {
	return ProductInput{
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Category: "men",
		Brand:    "Acme",
		Status:   "active",
		Variants: []VariantInput{
			{Size: "M", Color: "blue", Stock: 5},
			{Size: "L", Color: "blue", Stock: 1},
		},
		Images: []ImageInput{{Key: "products/a.jpg"}, {Key: "products/b.jpg"}},
	}
}

func imageKeys(images []ImageInput) []string {
	keys := make([]string, 0, len(images))
	for _, img := range images {
		keys = append(keys, img.Key)
	}
	return keys
}

func create(t *testing.T, s *Service, sellerID string, in ProductInput) *domain.Product {
	t.Helper()
	p, err := s.CreateProduct(context.Background(), sellerID, in, imageKeys(in.Images))
	require.NoError(t, err)
	return p
}

func TestCreateProduct(t *testing.T) {
	s := newTestService(t)
	p := create(t, s, "seller-1", shirt("Oxford Shirt", "49.99"))

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, domain.StatusActive, p.Status)
	assert.Len(t, p.Variants, 2)

	got, _, err := s.GetProduct(context.Background(), p.ID, Actor{})
	require.NoError(t, err)
	assert.Equal(t, "Oxford Shirt", got.Name)
	assert.True(t, decimal.RequireFromString("49.99").Equal(got.Price))
	assert.Equal(t, []string{"products/a.jpg", "products/b.jpg"}, got.ImageKeys())
}

func TestCreateProduct_DefaultsToDraft(t *testing.T) {
	s := newTestService(t)
	in := shirt("Draft", "10")
	in.Status = ""
	p := create(t, s, "seller-1", in)
	assert.Equal(t, domain.StatusDraft, p.Status)
}

func TestCreateProduct_Validation(t *testing.T) {
	s := newTestService(t)

	tests := []struct {
		name   string
		mutate func(*ProductInput)
	}{
		{"missing name", func(in *ProductInput) { in.Name = " " }},
		{"negative price", func(in *ProductInput) { in.Price = decimal.NewFromInt(-1) }},
		{"three decimals", func(in *ProductInput) { in.Price = decimal.RequireFromString("1.005") }},
		{"unknown category", func(in *ProductInput) { in.Category = "pets" }},
		{"deleted status", func(in *ProductInput) { in.Status = "deleted" }},
		{"negative stock", func(in *ProductInput) { in.Variants[0].Stock = -1 }},
		{"duplicate variant", func(in *ProductInput) {
			in.Variants = append(in.Variants, VariantInput{Size: "M", Color: "blue"})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := shirt("Shirt", "10")
			tt.mutate(&in)
			_, err := s.CreateProduct(context.Background(), "seller-1", in, imageKeys(in.Images))
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestGetProduct_Visibility(t *testing.T) {
	s := newTestService(t)
	in := shirt("Draft", "10")
	in.Status = "draft"
	p := create(t, s, "seller-1", in)

	_, _, err := s.GetProduct(context.Background(), p.ID, Actor{})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, _, err = s.GetProduct(context.Background(), p.ID, Actor{ID: "seller-2", Role: "seller"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, _, err = s.GetProduct(context.Background(), p.ID, Actor{ID: "seller-1", Role: "seller"})
	assert.NoError(t, err)

	_, _, err = s.GetProduct(context.Background(), p.ID, Actor{ID: "root", Role: "admin"})
	assert.NoError(t, err)

	_, _, err = s.GetProduct(context.Background(), "missing", Actor{})
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestListProducts(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	cheap := create(t, s, "seller-1", shirt("Linen Shirt", "20"))
	mid := create(t, s, "seller-1", shirt("Denim Jacket", "80"))
	dear := create(t, s, "seller-2", shirt("Wool Coat", "200"))

	draft := shirt("Hidden", "5")
	draft.Status = "draft"
	create(t, s, "seller-1", draft)

	kids := shirt("Tiny Tee", "8")
	kids.Category = "kids"
	create(t, s, "seller-1", kids)

	t.Run("only active products", func(t *testing.T) {
		products, total, _, err := s.ListProducts(ctx, ListProductsRequest{})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		assert.Len(t, products, 4)
	})

	t.Run("newest first by default", func(t *testing.T) {
		products, _, _, err := s.ListProducts(ctx, ListProductsRequest{Category: "men"})
		require.NoError(t, err)
		require.Len(t, products, 3)
		assert.Equal(t, dear.ID, products[0].ID)
		assert.Equal(t, cheap.ID, products[2].ID)
	})

	t.Run("price range and sort", func(t *testing.T) {
		min := decimal.NewFromInt(10)
		max := decimal.NewFromInt(100)
		products, total, _, err := s.ListProducts(ctx, ListProductsRequest{
			MinPrice: &min,
			MaxPrice: &max,
			Sort:     SortPriceDesc,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, products, 2)
		assert.Equal(t, mid.ID, products[0].ID)
		assert.Equal(t, cheap.ID, products[1].ID)
	})

	t.Run("search is case insensitive", func(t *testing.T) {
		products, _, _, err := s.ListProducts(ctx, ListProductsRequest{Search: "DENIM"})
		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.Equal(t, mid.ID, products[0].ID)
	})

	t.Run("pagination keeps total", func(t *testing.T) {
		products, total, page, err := s.ListProducts(ctx, ListProductsRequest{Page: 2, Limit: 3, Sort: SortPriceAsc})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		assert.Equal(t, 2, page.Page)
		require.Len(t, products, 1)
		assert.Equal(t, dear.ID, products[0].ID)
	})

	t.Run("limits are normalized", func(t *testing.T) {
		_, _, page, err := s.ListProducts(ctx, ListProductsRequest{Page: -3, Limit: 1000})
		require.NoError(t, err)
		assert.Equal(t, 1, page.Page)
		assert.Equal(t, maxPageSize, page.Limit)
	})

	t.Run("rejects bad input", func(t *testing.T) {
		_, _, _, err := s.ListProducts(ctx, ListProductsRequest{Sort: "random"})
		assert.ErrorIs(t, err, apperr.ErrValidation)

		_, _, _, err = s.ListProducts(ctx, ListProductsRequest{Category: "pets"})
		assert.ErrorIs(t, err, apperr.ErrValidation)

		min := decimal.NewFromInt(50)
		max := decimal.NewFromInt(10)
		_, _, _, err = s.ListProducts(ctx, ListProductsRequest{MinPrice: &min, MaxPrice: &max})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})
}

func TestUpdateProduct(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	p := create(t, s, "seller-1", shirt("Shirt", "10"))

	name := "Better Shirt"
	price := decimal.RequireFromString("12.50")
	featured := true
	images := []ImageInput{{Key: "products/b.jpg"}, {Key: "products/c.jpg"}}

	updated, removed, err := s.UpdateProduct(ctx, p.ID, Actor{ID: "seller-1", Role: "seller"}, ProductPatch{
		Name:     &name,
		Price:    &price,
		Featured: &featured,
		Images:   &images,
	}, []string{"products/c.jpg"})
	require.NoError(t, err)
	assert.Equal(t, "Better Shirt", updated.Name)
	assert.True(t, price.Equal(updated.Price))
	assert.True(t, updated.Featured)
	assert.Equal(t, []string{"products/b.jpg", "products/c.jpg"}, updated.ImageKeys())
	assert.Equal(t, []string{"products/a.jpg"}, removed)
	assert.Len(t, updated.Variants, 2, "variants untouched without a patch")
}

func TestUpdateProduct_UnfeatureAndReplaceVariants(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	in := shirt("Shirt", "10")
	in.Featured = true
	p := create(t, s, "seller-1", in)

	off := false
	variants := []VariantInput{{Size: "S", Color: "red", Stock: 3}}
	updated, _, err := s.UpdateProduct(ctx, p.ID, Actor{Role: "admin"}, ProductPatch{
		Featured: &off,
		Variants: &variants,
	}, nil)
	require.NoError(t, err)
	assert.False(t, updated.Featured)
	require.Len(t, updated.Variants, 1)
	assert.Equal(t, "S", updated.Variants[0].Size)
	assert.Equal(t, 3, updated.Variants[0].Stock)
}

func TestUpdateProduct_Ownership(t *testing.T) {
	s := newTestService(t)
	p := create(t, s, "seller-1", shirt("Shirt", "10"))
	name := "Stolen"

	_, _, err := s.UpdateProduct(context.Background(), p.ID, Actor{ID: "seller-2", Role: "seller"}, ProductPatch{Name: &name}, nil)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, _, err = s.UpdateProduct(context.Background(), p.ID, Actor{}, ProductPatch{Name: &name}, nil)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestUpdateProduct_InvalidPatchLeavesProduct(t *testing.T) {
	s := newTestService(t)
	p := create(t, s, "seller-1", shirt("Shirt", "10"))
	price := decimal.NewFromInt(-5)

	_, _, err := s.UpdateProduct(context.Background(), p.ID, Actor{ID: "seller-1"}, ProductPatch{Price: &price}, nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	got, _, err := s.GetProduct(context.Background(), p.ID, Actor{})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10).Equal(got.Price))
}

func TestDeleteProduct(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	p := create(t, s, "seller-1", shirt("Shirt", "10"))

	_, err := s.DeleteProduct(ctx, p.ID, Actor{ID: "seller-2", Role: "seller"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	keys, err := s.DeleteProduct(ctx, p.ID, Actor{ID: "seller-1", Role: "seller"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"products/a.jpg", "products/b.jpg"}, keys)

	_, _, err = s.GetProduct(ctx, p.ID, Actor{Role: "admin"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = s.DeleteProduct(ctx, p.ID, Actor{Role: "admin"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	products, total, _, err := s.ListProducts(ctx, ListProductsRequest{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, products)
}

func TestAddReview(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	p := create(t, s, "seller-1", shirt("Shirt", "10"))

	_, rating, err := s.AddReview(ctx, AddReviewRequest{ProductID: p.ID, UserID: "u1", UserName: "Ann", Rating: 5, Comment: " great "})
	require.NoError(t, err)
	assert.Equal(t, domain.Rating{Average: 5, Count: 1}, rating)

	review, rating, err := s.AddReview(ctx, AddReviewRequest{ProductID: p.ID, UserID: "u2", UserName: "Bob", Rating: 2})
	require.NoError(t, err)
	assert.Equal(t, domain.Rating{Average: 3.5, Count: 2}, rating)
	assert.Equal(t, "u2", review.UserID)

	_, _, err = s.AddReview(ctx, AddReviewRequest{ProductID: p.ID, UserID: "u1", Rating: 1})
	assert.ErrorIs(t, err, apperr.ErrDuplicateReview)

	got, reviews, err := s.GetProduct(ctx, p.ID, Actor{})
	require.NoError(t, err)
	assert.Equal(t, domain.Rating{Average: 3.5, Count: 2}, got.Rating(), "failed duplicate leaves the aggregate alone")
	require.Equal(t, 2, reviews.Len())
	assert.Equal(t, "great", reviews.List()[0].Comment)
	assert.Equal(t, "u2", reviews.List()[1].UserID)
}

func TestAddReview_Invalid(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	p := create(t, s, "seller-1", shirt("Shirt", "10"))

	_, _, err := s.AddReview(ctx, AddReviewRequest{ProductID: p.ID, UserID: "u1", Rating: 6})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, _, err = s.AddReview(ctx, AddReviewRequest{ProductID: "missing", UserID: "u1", Rating: 4})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestReserveAndReleaseStock(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	p := create(t, s, "seller-1", shirt("Shirt", "10.50"))

	reserved, err := s.ReserveStock(ctx, []StockLine{{ProductID: p.ID, Size: "M", Color: "blue", Quantity: 2}})
	require.NoError(t, err)
	require.Len(t, reserved, 1)
	assert.Equal(t, "Shirt", reserved[0].ProductName)
	assert.True(t, decimal.RequireFromString("10.50").Equal(reserved[0].UnitPrice))
	assert.Equal(t, 3, stockOf(t, s, p.ID, "M"))

	released, err := s.ReleaseStock(ctx, []StockLine{{ProductID: p.ID, Size: "M", Color: "blue", Quantity: 2}})
	require.NoError(t, err)
	assert.Equal(t, 1, released)
	assert.Equal(t, 5, stockOf(t, s, p.ID, "M"))
}

func TestReserveStock_AllOrNothing(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	p := create(t, s, "seller-1", shirt("Shirt", "10"))

	_, err := s.ReserveStock(ctx, []StockLine{
		{ProductID: p.ID, Size: "M", Color: "blue", Quantity: 2},
		{ProductID: p.ID, Size: "L", Color: "blue", Quantity: 2},
	})
	require.ErrorIs(t, err, apperr.ErrOutOfStock)
	assert.Contains(t, err.Error(), "available 1")

	assert.Equal(t, 5, stockOf(t, s, p.ID, "M"), "first line rolled back")
	assert.Equal(t, 1, stockOf(t, s, p.ID, "L"))
}

func TestReserveStock_Errors(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	p := create(t, s, "seller-1", shirt("Shirt", "10"))

	draft := shirt("Draft", "10")
	draft.Status = "draft"
	d := create(t, s, "seller-1", draft)

	tests := []struct {
		name    string
		lines   []StockLine
		wantErr error
	}{
		{"no lines", nil, apperr.ErrValidation},
		{"zero quantity", []StockLine{{ProductID: p.ID, Size: "M", Color: "blue"}}, apperr.ErrValidation},
		{"unknown product", []StockLine{{ProductID: "nope", Size: "M", Color: "blue", Quantity: 1}}, apperr.ErrNotFound},
		{"unknown variant", []StockLine{{ProductID: p.ID, Size: "XL", Color: "blue", Quantity: 1}}, apperr.ErrOutOfStock},
		{"inactive product", []StockLine{{ProductID: d.ID, Size: "M", Color: "blue", Quantity: 1}}, apperr.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.ReserveStock(ctx, tt.lines)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestReleaseStock_AfterDelete(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	p := create(t, s, "seller-1", shirt("Shirt", "10"))

	_, err := s.ReserveStock(ctx, []StockLine{{ProductID: p.ID, Size: "M", Color: "blue", Quantity: 1}})
	require.NoError(t, err)
	_, err = s.DeleteProduct(ctx, p.ID, Actor{ID: "seller-1"})
	require.NoError(t, err)

	released, err := s.ReleaseStock(ctx, []StockLine{
		{ProductID: p.ID, Size: "M", Color: "blue", Quantity: 1},
		{ProductID: p.ID, Size: "XS", Color: "pink", Quantity: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, released)
	assert.Equal(t, 5, stockOf(t, s, p.ID, "M"))
}

func stockOf(t *testing.T, s *Service, productID, size string) int {
	t.Helper()
	p, err := s.repo.FindByID(context.Background(), productID)
	require.NoError(t, err)
	v, ok := p.FindVariant(domain.Selector{Size: size, Color: "blue"})
	require.True(t, ok)
	return v.Stock
}

func TestCreateProduct_RejectsForeignImageKeys(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	victim := create(t, s, "seller-1", shirt("Shirt", "10"))

	in := shirt("Copy", "10")
	_, err := s.CreateProduct(ctx, "seller-2", in, nil)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	in.Images = []ImageInput{{Key: "products/mine.jpg"}}
	p, err := s.CreateProduct(ctx, "seller-2", in, []string{"products/mine.jpg"})
	require.NoError(t, err)
	assert.Equal(t, []string{"products/mine.jpg"}, p.ImageKeys())

	got, _, err := s.GetProduct(ctx, victim.ID, Actor{})
	require.NoError(t, err)
	assert.Equal(t, []string{"products/a.jpg", "products/b.jpg"}, got.ImageKeys())
}

func TestUpdateProduct_ImageKeysMustBeOwned(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	create(t, s, "seller-1", shirt("Shirt", "10"))

	in := shirt("Other", "10")
	in.Images = []ImageInput{{Key: "products/x.jpg"}}
	other := create(t, s, "seller-2", in)

	tests := []struct {
		name     string
		images   []ImageInput
		uploaded []string
		wantErr  error
	}{
		{"another product's key", []ImageInput{{Key: "products/x.jpg"}, {Key: "products/a.jpg"}}, nil, apperr.ErrForbidden},
		{"invented key", []ImageInput{{Key: "products/zzz.jpg"}}, nil, apperr.ErrForbidden},
		{"reorder own keys", []ImageInput{{Key: "products/x.jpg", Alt: "front"}}, nil, nil},
		{"own and uploaded", []ImageInput{{Key: "products/x.jpg"}, {Key: "products/new.jpg"}}, []string{"products/new.jpg"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			images := tt.images
			_, removed, err := s.UpdateProduct(ctx, other.ID, Actor{ID: "seller-2", Role: "seller"}, ProductPatch{Images: &images}, tt.uploaded)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, removed)
		})
	}
}

func TestAddReview_ConcurrentDuplicates(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	p := create(t, s, "seller-1", shirt("Shirt", "10"))
	fixed := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, errs[i] = s.AddReview(ctx, AddReviewRequest{ProductID: p.ID, UserID: "u1", UserName: "Ann", Rating: 4})
		}()
	}
	wg.Wait()

	accepted := 0
	for _, err := range errs {
		if err == nil {
			accepted++
			continue
		}
		assert.ErrorIs(t, err, apperr.ErrDuplicateReview)
	}
	assert.Equal(t, 1, accepted)

	got, reviews, err := s.GetProduct(ctx, p.ID, Actor{})
	require.NoError(t, err)
	assert.Len(t, reviews.List(), 1)
	assert.Equal(t, 1, got.Rating().Count)
	assert.InDelta(t, 4.0, got.Rating().Average, 0.001)
}

func TestReserveStock_ConcurrentNeverNegative(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	in := shirt("Shirt", "10")
	in.Variants = []VariantInput{{Size: "M", Color: "blue", Stock: 2}}
	p := create(t, s, "seller-1", in)

	const workers = 10
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.ReserveStock(ctx, []StockLine{{ProductID: p.ID, Size: "M", Color: "blue", Quantity: 1}})
		}()
	}
	wg.Wait()

	reserved := 0
	for _, err := range errs {
		if err == nil {
			reserved++
			continue
		}
		assert.ErrorIs(t, err, apperr.ErrOutOfStock)
	}
	assert.Equal(t, 2, reserved)
	assert.Equal(t, 0, stockOf(t, s, p.ID, "M"))
}

func TestReserveStock_KeepsLineOrder(t *testing.T) {
	s := newTestService(t)
	p := create(t, s, "seller-1", shirt("Shirt", "10"))

	lines, err := s.ReserveStock(context.Background(), []StockLine{
		{ProductID: p.ID, Size: "M", Color: "blue", Quantity: 2},
		{ProductID: p.ID, Size: "L", Color: "blue", Quantity: 1},
	})
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "M", lines[0].Size)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, "L", lines[1].Size)
	assert.Equal(t, 3, stockOf(t, s, p.ID, "M"))
	assert.Equal(t, 0, stockOf(t, s, p.ID, "L"))
}

func TestLockOrder(t *testing.T) {
	lines := []StockLine{
		{ProductID: "p2", Size: "M", Color: "blue"},
		{ProductID: "p1", Size: "S", Color: "red"},
		{ProductID: "p1", Size: "L", Color: "red"},
		{ProductID: "p1", Size: "L", Color: "blue"},
	}
	assert.Equal(t, []int{3, 2, 1, 0}, lockOrder(lines))

	reversed := []StockLine{lines[3], lines[2], lines[1], lines[0]}
	assert.Equal(t, []int{0, 1, 2, 3}, lockOrder(reversed))
}
