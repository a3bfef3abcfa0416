package image

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/image-hosting/internal/api/respond"
	"github.com/aliskhannn/image-hosting/internal/middleware"
	"github.com/aliskhannn/image-hosting/internal/model"
	"github.com/aliskhannn/image-hosting/internal/processor"
	imagerepo "github.com/aliskhannn/image-hosting/internal/repository/image"
	imagesvc "github.com/aliskhannn/image-hosting/internal/service/image"
)

// service defines the interface for image-related operations.
type service interface {
	Ingest(ctx context.Context, data []byte, filename, mediaType string) (model.Image, error)
	Resolve(ctx context.Context, id uuid.UUID, width, height int) ([]byte, string, string, error)
	GetImage(ctx context.Context, id uuid.UUID) (model.Image, error)
	ListImages(ctx context.Context) ([]model.Image, error)
	DeleteImage(ctx context.Context, id uuid.UUID) error
}

// Handler provides HTTP handlers for image-related endpoints.
// It depends on a service interface to perform the business logic.
type Handler struct {
	service service
}

// NewHandler creates a new Handler with the given service.
func NewHandler(s service) *Handler {
	return &Handler{service: s}
}

// Upload handles the HTTP request for uploading an image.
// It reads the multipart form, commits the file via the service, and
// responds with the stored record.
func (h *Handler) Upload(c *ginext.Context) {
	// Parse the multipart form with a 32MB max memory limit.
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("parse multipart form failed"))
		return
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		zlog.Logger.Err(err).Msg("failed to retrieve the file")
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("failed to retrieve the file"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		zlog.Logger.Err(err).Msg("failed to read the file")
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("failed to read the file"))
		return
	}

	img, err := h.service.Ingest(c.Request.Context(), data, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		h.fail(c, err, "failed to ingest the image")
		return
	}

	caller, _ := middleware.Caller(c)
	zlog.Logger.Info().
		Str("image_id", img.ID.String()).
		Str("filename", img.Filename).
		Int64("size", img.Size).
		Str("caller", caller).
		Msg("image uploaded")

	respond.Created(c, map[string]interface{}{
		"id":       img.ID,
		"filename": img.Filename,
		"width":    img.Width,
		"height":   img.Height,
		"size":     img.Size,
	})
}

// Get serves the image bytes for a given image ID. Without width/height
// query parameters the original is returned verbatim; with them, the cached
// variant for those dimensions is served, generated first if needed.
func (h *Handler) Get(c *ginext.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid id"))
		return
	}

	width, height, err := parseDimensions(c)
	if err != nil {
		respond.Fail(c, http.StatusBadRequest, err)
		return
	}

	data, contentType, cacheControl, err := h.service.Resolve(c.Request.Context(), id, width, height)
	if err != nil {
		h.fail(c, err, "failed to resolve the image")
		return
	}

	respond.Image(c, http.StatusOK, contentType, cacheControl, data)
}

// GetMeta returns metadata about the image (filename, dimensions, etc.)
// without serving the file itself.
func (h *Handler) GetMeta(c *ginext.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid id"))
		return
	}

	img, err := h.service.GetImage(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "failed to get image")
		return
	}

	respond.OK(c, img)
}

// List returns metadata for all stored images.
func (h *Handler) List(c *ginext.Context) {
	images, err := h.service.ListImages(c.Request.Context())
	if err != nil {
		h.fail(c, err, "failed to list images")
		return
	}

	respond.OK(c, images)
}

// Delete removes an image by ID along with all of its cached variants.
func (h *Handler) Delete(c *ginext.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid id"))
		return
	}

	if err := h.service.DeleteImage(c.Request.Context(), id); err != nil {
		h.fail(c, err, "failed to delete the image")
		return
	}

	caller, _ := middleware.Caller(c)
	zlog.Logger.Info().
		Str("image_id", id.String()).
		Str("caller", caller).
		Msg("image deleted")

	c.Status(http.StatusNoContent)
}

// fail maps service errors to HTTP statuses. Responses carry stable,
// kind-specific messages; internal details stay in the logs.
func (h *Handler) fail(c *ginext.Context, err error, logMsg string) {
	switch {
	case errors.Is(err, imagerepo.ErrImageNotFound):
		respond.Fail(c, http.StatusNotFound, fmt.Errorf("image not found"))
	case errors.Is(err, imagesvc.ErrInvalidDimensions):
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid dimensions"))
	case errors.Is(err, imagesvc.ErrInvalidMediaType):
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("unsupported media type"))
	case errors.Is(err, imagesvc.ErrPayloadTooLarge):
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("payload too large"))
	case errors.Is(err, processor.ErrDecode):
		zlog.Logger.Err(err).Msg(logMsg)
		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("failed to decode image"))
	default:
		zlog.Logger.Err(err).Msg(logMsg)
		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("internal error"))
	}
}

// parseDimensions reads the width/height query parameters. Both absent
// means the original is wanted; anything else requires both to be positive
// integers. Upper-bound checks live in the service.
func parseDimensions(c *ginext.Context) (int, int, error) {
	widthStr := c.Query("width")
	heightStr := c.Query("height")

	if widthStr == "" && heightStr == "" {
		return 0, 0, nil
	}

	width, err := strconv.Atoi(widthStr)
	if err != nil || width <= 0 {
		return 0, 0, fmt.Errorf("invalid width")
	}

	height, err := strconv.Atoi(heightStr)
	if err != nil || height <= 0 {
		return 0, 0, fmt.Errorf("invalid height")
	}

	return width, height, nil
}
