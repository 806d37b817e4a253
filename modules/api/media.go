package api

import (
	"net/http"

	"github.com/Div1912/stylehub-backend/pkg/apperr"
	"github.com/gofiber/fiber/v2"
)

// ServeMedia streams an image addressed by a signed link.
func (h *Handlers) ServeMedia(c *fiber.Ctx) error {
	key := c.Params("*")
	token := c.Query("token")
	if key == "" || token == "" {
		return apperr.NotFound("image not found")
	}

	data, info, err := h.media.Open(c.UserContext(), key, token)
	if err != nil {
		return err
	}
	if info.ContentType != "" {
		c.Set(fiber.HeaderContentType, info.ContentType)
	}
	c.Set(fiber.HeaderCacheControl, "private, max-age=300")
	if !info.ModTime.IsZero() {
		c.Set(fiber.HeaderLastModified, info.ModTime.UTC().Format(http.TimeFormat))
	}
	return c.Send(data)
}
