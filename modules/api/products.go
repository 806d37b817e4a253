package api

import (
	"context"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Div1912/stylehub-backend/modules/catalog"
	"github.com/Div1912/stylehub-backend/modules/media"
	"github.com/Div1912/stylehub-backend/pkg/apperr"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// Multipart field names.
const (
	formProduct = "product"
	formPatch   = "patch"
	formImages  = "images"
)

// ListProducts returns a page of the public catalog.
func (h *Handlers) ListProducts(c *fiber.Ctx) error {
	req := catalog.ListProductsRequest{
		Category:    c.Query("category"),
		SubCategory: c.Query("sub_category"),
		Brand:       c.Query("brand"),
		SellerID:    c.Query("seller_id"),
		Search:      c.Query("search"),
		Sort:        c.Query("sort"),
		Page:        c.QueryInt("page", 1),
		Limit:       c.QueryInt("limit", 0),
	}
	var err error
	if req.MinPrice, err = queryDecimal(c, "min_price"); err != nil {
		return err
	}
	if req.MaxPrice, err = queryDecimal(c, "max_price"); err != nil {
		return err
	}
	if raw := c.Query("featured"); raw != "" {
		featured, perr := strconv.ParseBool(raw)
		if perr != nil {
			return apperr.Validation("featured must be true or false")
		}
		req.Featured = &featured
	}

	resp, err := h.catalog.ListProducts(c.UserContext(), req)
	if err != nil {
		return err
	}
	view := ProductListView{
		Items: make([]ProductView, 0, len(resp.Items)),
		Total: resp.Total,
		Page:  resp.Page,
		Limit: resp.Limit,
		Pages: resp.Pages,
	}
	for i := range resp.Items {
		view.Items = append(view.Items, h.productView(&resp.Items[i]))
	}
	return ok(c, view)
}

// GetProduct returns one product with its reviews. Drafts are visible to
// their seller and to admins.
func (h *Handlers) GetProduct(c *fiber.Ctx) error {
	resp, err := h.catalog.GetProduct(c.UserContext(), c.Params("id"), catalogActor(c))
	if err != nil {
		return err
	}
	return ok(c, h.productView(resp))
}

// CreateProduct accepts JSON, or a multipart form with the product JSON in
// the "product" field and up to five files under "images".
func (h *Handlers) CreateProduct(c *fiber.Ctx) error {
	claims := claimsFrom(c)
	if claims == nil {
		return apperr.Unauthorized("authentication required")
	}

	var input catalog.ProductInput
	if err := decodePart(c, formProduct, &input); err != nil {
		return err
	}
	files, err := readImages(c)
	if err != nil {
		return err
	}
	if len(input.Images)+len(files) > media.MaxProductImages {
		return apperr.Validation("a product may have at most %d images", media.MaxProductImages)
	}

	keys, err := h.media.Upload(c.UserContext(), media.PrefixProducts, files, media.MaxProductImages)
	if err != nil {
		return err
	}
	for _, key := range keys {
		input.Images = append(input.Images, catalog.ImageInput{Key: key})
	}

	resp, err := h.catalog.CreateProduct(c.UserContext(), catalog.CreateProductRequest{
		SellerID: claims.UserID,
		Product:  input,
		Uploaded: keys,
	})
	if err != nil {
		h.discard(c.UserContext(), keys)
		return err
	}
	return created(c, h.productView(resp))
}

// UpdateProduct applies a partial update. Uploaded files are appended to the
// product's images; images dropped by the update are deleted from storage.
func (h *Handlers) UpdateProduct(c *fiber.Ctx) error {
	actor := catalogActor(c)
	id := c.Params("id")

	var patch catalog.ProductPatch
	if err := decodePart(c, formPatch, &patch); err != nil {
		return err
	}
	files, err := readImages(c)
	if err != nil {
		return err
	}

	var keys []string
	if len(files) > 0 {
		images := patch.Images
		if images == nil {
			current, err := h.catalog.GetProduct(c.UserContext(), id, actor)
			if err != nil {
				return err
			}
			existing := make([]catalog.ImageInput, 0, len(current.Images))
			for _, img := range current.Images {
				existing = append(existing, catalog.ImageInput{Key: img.Key, Alt: img.Alt})
			}
			images = &existing
		}
		if len(*images)+len(files) > media.MaxProductImages {
			return apperr.Validation("a product may have at most %d images", media.MaxProductImages)
		}

		keys, err = h.media.Upload(c.UserContext(), media.PrefixProducts, files, media.MaxProductImages)
		if err != nil {
			return err
		}
		merged := append([]catalog.ImageInput(nil), *images...)
		for _, key := range keys {
			merged = append(merged, catalog.ImageInput{Key: key})
		}
		patch.Images = &merged
	}

	resp, err := h.catalog.UpdateProduct(c.UserContext(), catalog.UpdateProductRequest{
		ID:       id,
		Actor:    actor,
		Patch:    patch,
		Uploaded: keys,
	})
	if err != nil {
		h.discard(c.UserContext(), keys)
		return err
	}
	h.discard(c.UserContext(), resp.RemovedImageKeys)
	return ok(c, h.productView(&resp.Product))
}

// DeleteProduct soft deletes a product and removes its images.
func (h *Handlers) DeleteProduct(c *fiber.Ctx) error {
	resp, err := h.catalog.DeleteProduct(c.UserContext(), c.Params("id"), catalogActor(c))
	if err != nil {
		return err
	}
	h.discard(c.UserContext(), resp.ImageKeys)
	return ok(c, fiber.Map{"message": "product deleted"})
}

// AddReview records the caller's review with up to three images.
func (h *Handlers) AddReview(c *fiber.Ctx) error {
	claims := claimsFrom(c)
	if claims == nil {
		return apperr.Unauthorized("authentication required")
	}

	var req ReviewRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	files, err := readImages(c)
	if err != nil {
		return err
	}
	if len(files) > media.MaxReviewImages {
		return apperr.Validation("a review may have at most %d images", media.MaxReviewImages)
	}
	keys, err := h.media.Upload(c.UserContext(), media.PrefixReviews, files, media.MaxReviewImages)
	if err != nil {
		return err
	}

	resp, err := h.catalog.AddReview(c.UserContext(), catalog.AddReviewRequest{
		ProductID: c.Params("id"),
		UserID:    claims.UserID,
		UserName:  claims.Name,
		Rating:    req.Rating,
		Comment:   req.Comment,
		Images:    keys,
	})
	if err != nil {
		h.discard(c.UserContext(), keys)
		return err
	}
	return created(c, ReviewCreatedView{
		Review: h.reviewView(resp.Review),
		Rating: resp.Rating,
	})
}

// discard deletes stored images after the request outcome is decided.
func (h *Handlers) discard(ctx context.Context, keys []string) {
	if len(keys) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if removed := h.media.Delete(ctx, keys); removed < len(keys) {
		h.logger.Warn("image cleanup incomplete", "removed", removed, "requested", len(keys))
	}
}

func (h *Handlers) productView(p *catalog.ProductResponse) ProductView {
	keys := make([]string, 0, len(p.Images))
	for _, img := range p.Images {
		keys = append(keys, img.Key)
	}
	for _, r := range p.Reviews {
		keys = append(keys, r.Images...)
	}
	urls := h.media.URLs(keys)

	view := ProductView{ProductResponse: *p, Images: make([]ImageView, 0, len(p.Images))}
	for _, img := range p.Images {
		view.Images = append(view.Images, ImageView{Key: img.Key, Alt: img.Alt, URL: urls[img.Key]})
	}
	for _, r := range p.Reviews {
		view.Reviews = append(view.Reviews, reviewViewWith(r, urls))
	}
	return view
}

func (h *Handlers) reviewView(r catalog.ReviewResponse) ReviewView {
	return reviewViewWith(r, h.media.URLs(r.Images))
}

func reviewViewWith(r catalog.ReviewResponse, urls map[string]string) ReviewView {
	view := ReviewView{ReviewResponse: r}
	for _, key := range r.Images {
		view.Images = append(view.Images, ImageView{Key: key, URL: urls[key]})
	}
	return view
}

func catalogActor(c *fiber.Ctx) catalog.Actor {
	claims := claimsFrom(c)
	if claims == nil {
		return catalog.Actor{}
	}
	return catalog.Actor{ID: claims.UserID, Role: string(claims.Role)}
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm)
}

// decodePart reads a JSON document from the body, or from a form field when
// the request is multipart.
func decodePart(c *fiber.Ctx, field string, dst any) error {
	if !isMultipart(c) {
		if err := c.BodyParser(dst); err != nil {
			return apperr.Validation("invalid request body")
		}
		return nil
	}
	raw := c.FormValue(field)
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return apperr.Validation("invalid %s field", field)
	}
	return nil
}

// readImages loads the files posted under "images".
func readImages(c *fiber.Ctx) ([]media.File, error) {
	if !isMultipart(c) {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, apperr.Validation("invalid multipart form")
	}

	headers := form.File[formImages]
	files := make([]media.File, 0, len(headers))
	for _, fh := range headers {
		if fh.Size > media.MaxFileSize {
			return nil, apperr.Validation("%s exceeds the %d MB limit", fh.Filename, media.MaxFileSize>>20)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, apperr.Validation("cannot read %s", fh.Filename)
		}
		data, err := io.ReadAll(io.LimitReader(f, media.MaxFileSize+1))
		f.Close()
		if err != nil {
			return nil, apperr.Validation("cannot read %s", fh.Filename)
		}
		files = append(files, media.File{Name: fh.Filename, Data: data})
	}
	return files, nil
}

func queryDecimal(c *fiber.Ctx, key string) (*decimal.Decimal, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, apperr.Validation("%s must be a number", key)
	}
	return &d, nil
}
