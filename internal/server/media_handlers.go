package server

import (
	"errors"
	"mime"
	"path"

	"feedline/internal/models"
	"feedline/internal/storage"

	"github.com/gofiber/fiber/v2"
)

// ServeMedia handles GET /media/*
// It streams blobs from the configured storage backend.
func (s *Server) ServeMedia(c *fiber.Ctx) error {
	key := path.Clean("/" + c.Params("*"))[1:]
	if key == "" {
		return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("Media", c.Params("*")))
	}

	rc, err := s.storage.Read(c.UserContext(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("Media", key))
		}
		return respondServiceError(c, err)
	}

	if contentType := mime.TypeByExtension(path.Ext(key)); contentType != "" {
		c.Set(fiber.HeaderContentType, contentType)
	} else {
		c.Set(fiber.HeaderContentType, fiber.MIMEOctetStream)
	}
	c.Set(fiber.HeaderCacheControl, "public, max-age=31536000, immutable")
	return c.SendStream(rc)
}
