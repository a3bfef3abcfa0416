package image

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/image-hosting/internal/metrics"
	"github.com/aliskhannn/image-hosting/internal/model"
	imagerepo "github.com/aliskhannn/image-hosting/internal/repository/image"
	"github.com/aliskhannn/image-hosting/internal/storage"
)

var (
	ErrInvalidMediaType  = errors.New("unsupported media type")
	ErrPayloadTooLarge   = errors.New("payload too large")
	ErrInvalidDimensions = errors.New("invalid dimensions")
)

// CacheControl is returned with every original and variant. Stored blobs are
// immutable after commit, so one aggressive policy covers both.
const CacheControl = "public, max-age=31536000, immutable"

// Variants are always encoded as JPEG, regardless of the original's format.
const variantContentType = "image/jpeg"

// extByMediaType supplies an extension when the uploaded filename has none.
var extByMediaType = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// BlobStorage defines the blob backend interface (local filesystem or S3).
type BlobStorage interface {
	SaveOriginal(ctx context.Context, id, ext string, src io.Reader) error
	OpenOriginal(ctx context.Context, id, ext string) (io.ReadCloser, error)
	DeleteOriginal(ctx context.Context, id, ext string) error
	OpenVariant(ctx context.Context, id string, width, height int) (io.ReadCloser, error)
	SaveVariant(ctx context.Context, id string, width, height int, src io.Reader) error
	DeleteVariants(ctx context.Context, id string) error
}

// repository defines the metadata index interface.
type repository interface {
	SaveImage(ctx context.Context, img model.Image) error
	GetImage(ctx context.Context, id uuid.UUID) (model.Image, error)
	ListImages(ctx context.Context) ([]model.Image, error)
	DeleteImage(ctx context.Context, id uuid.UUID) error
}

// resizer defines the decode/resize/encode interface.
type resizer interface {
	Probe(src io.Reader) (width, height int, format string, err error)
	Fit(src io.Reader, width, height int) ([]byte, error)
}

// producer defines the interface for publishing lifecycle events to a
// message broker. May be nil when events are disabled.
type producer interface {
	Produce(ctx context.Context, event model.Event) error
}

// Config holds the service-level limits.
type Config struct {
	MaxUploadBytes    int64
	MaxDimension      int
	AllowedMediaTypes []string
}

// Service implements the image lifecycle: ingestion, on-demand variant
// resolution, and deletion. Every multi-step operation is ordered so that a
// crash in the middle leaves state that converges on the next access rather
// than corrupting the index.
type Service struct {
	cfg         Config
	fileStorage BlobStorage
	repo        repository
	resizer     resizer
	producer    producer
}

// NewService creates a new Service. producer may be nil to disable events.
func NewService(cfg Config, fs BlobStorage, repo repository, r resizer, p producer) *Service {
	return &Service{
		cfg:         cfg,
		fileStorage: fs,
		repo:        repo,
		resizer:     r,
		producer:    p,
	}
}

// Ingest validates and commits an uploaded file as one logical unit: blob
// first, index entry second. The bytes are decoded up front, so a payload
// that is not a valid image leaves no residue at all; if the index write
// fails after the blob landed, the orphaned blob is deleted before the
// error is surfaced.
func (s *Service) Ingest(ctx context.Context, data []byte, filename, mediaType string) (model.Image, error) {
	mediaType = normalizeMediaType(mediaType)
	if !s.mediaTypeAllowed(mediaType) {
		return model.Image{}, fmt.Errorf("%w: %s", ErrInvalidMediaType, mediaType)
	}

	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return model.Image{}, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(data))
	}

	width, height, format, err := s.resizer.Probe(bytes.NewReader(data))
	if err != nil {
		return model.Image{}, fmt.Errorf("ingest: %w", err)
	}

	id := uuid.New()
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = extByMediaType[mediaType]
	}

	if err := s.fileStorage.SaveOriginal(ctx, id.String(), ext, bytes.NewReader(data)); err != nil {
		return model.Image{}, fmt.Errorf("ingest: failed to save original: %w", err)
	}

	img := model.Image{
		ID:        id,
		Filename:  filename,
		MediaType: mediaType,
		Size:      int64(len(data)),
		Width:     width,
		Height:    height,
		Format:    format,
		Extension: ext,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.SaveImage(ctx, img); err != nil {
		// No record may exist without a blob and no blob without a record:
		// remove the orphan before surfacing the failure.
		if delErr := s.fileStorage.DeleteOriginal(ctx, id.String(), ext); delErr != nil {
			zlog.Logger.Error().Err(delErr).
				Str("image_id", id.String()).
				Msg("failed to roll back orphaned original")
		}

		return model.Image{}, fmt.Errorf("ingest: failed to save record: %w", err)
	}

	s.publish(ctx, model.EventImageUploaded, img)
	metrics.UploadsTotal.Inc()

	return img, nil
}

// Resolve returns the bytes to serve for (id, width, height) along with
// their content type and cache directive.
//
// width == 0 && height == 0 means the caller wants the original verbatim.
// Otherwise the cached variant is served when present; on a miss the
// original is decoded, scaled to fit inside width x height (aspect ratio
// preserved, never upscaled), re-encoded, published to the cache, and
// served. Publication uses an atomic rename, so concurrent requests for the
// same cold key may both generate but can never corrupt the cached file.
func (s *Service) Resolve(ctx context.Context, id uuid.UUID, width, height int) ([]byte, string, string, error) {
	wantsOriginal := width == 0 && height == 0
	if !wantsOriginal && (width <= 0 || height <= 0 || width > s.cfg.MaxDimension || height > s.cfg.MaxDimension) {
		return nil, "", "", fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}

	img, err := s.repo.GetImage(ctx, id)
	if err != nil {
		return nil, "", "", err
	}

	if wantsOriginal {
		data, err := s.readOriginal(ctx, img)
		if err != nil {
			return nil, "", "", err
		}

		return data, img.MediaType, CacheControl, nil
	}

	// Fast path: the variant is already cached. No decode work happens here.
	variant, err := s.fileStorage.OpenVariant(ctx, id.String(), width, height)
	if err == nil {
		defer variant.Close()

		data, err := io.ReadAll(variant)
		if err != nil {
			return nil, "", "", fmt.Errorf("resolve: failed to read variant: %w", err)
		}

		metrics.VariantCacheHits.Inc()

		return data, variantContentType, CacheControl, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, "", "", fmt.Errorf("resolve: failed to open variant: %w", err)
	}

	metrics.VariantCacheMisses.Inc()

	original, err := s.readOriginal(ctx, img)
	if err != nil {
		return nil, "", "", err
	}

	data, err := s.resizer.Fit(bytes.NewReader(original), width, height)
	if err != nil {
		return nil, "", "", fmt.Errorf("resolve: %w", err)
	}

	if err := s.fileStorage.SaveVariant(ctx, id.String(), width, height, bytes.NewReader(data)); err != nil {
		return nil, "", "", fmt.Errorf("resolve: failed to save variant: %w", err)
	}

	return data, variantContentType, CacheControl, nil
}

// GetImage returns the metadata record for id.
func (s *Service) GetImage(ctx context.Context, id uuid.UUID) (model.Image, error) {
	return s.repo.GetImage(ctx, id)
}

// ListImages returns all metadata records.
func (s *Service) ListImages(ctx context.Context) ([]model.Image, error) {
	return s.repo.ListImages(ctx)
}

// DeleteImage removes the original, every cached variant, and the index
// entry. Blobs go first and the index entry last: a crash mid-way leaves a
// record pointing at missing files, which the next access reports as not
// found, rather than unowned blobs on disk. Per-file errors are logged but
// do not block the index removal.
func (s *Service) DeleteImage(ctx context.Context, id uuid.UUID) error {
	img, err := s.repo.GetImage(ctx, id)
	if err != nil {
		return err
	}

	if err := s.fileStorage.DeleteOriginal(ctx, id.String(), img.Extension); err != nil {
		zlog.Logger.Error().Err(err).
			Str("image_id", id.String()).
			Msg("failed to delete original")
	}

	if err := s.fileStorage.DeleteVariants(ctx, id.String()); err != nil {
		zlog.Logger.Error().Err(err).
			Str("image_id", id.String()).
			Msg("failed to delete some variants")
	}

	if err := s.repo.DeleteImage(ctx, id); err != nil {
		return fmt.Errorf("delete: failed to remove record: %w", err)
	}

	s.publish(ctx, model.EventImageDeleted, img)
	metrics.DeletesTotal.Inc()

	return nil
}

// readOriginal loads the original blob for img. A record whose blob is gone
// means the index and the filesystem diverged; that case is logged
// distinctly and reported to the caller as not found.
func (s *Service) readOriginal(ctx context.Context, img model.Image) ([]byte, error) {
	src, err := s.fileStorage.OpenOriginal(ctx, img.ID.String(), img.Extension)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			zlog.Logger.Error().
				Str("image_id", img.ID.String()).
				Msg("index entry exists but original blob is missing")

			return nil, imagerepo.ErrImageNotFound
		}

		return nil, fmt.Errorf("failed to open original: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read original: %w", err)
	}

	return data, nil
}

// publish sends a lifecycle event if a producer is configured. Event
// delivery is best-effort and never fails the operation itself.
func (s *Service) publish(ctx context.Context, eventType string, img model.Image) {
	if s.producer == nil {
		return
	}

	event := model.Event{
		Type:     eventType,
		ImageID:  img.ID,
		Filename: img.Filename,
		At:       time.Now().UTC(),
	}

	if err := s.producer.Produce(ctx, event); err != nil {
		zlog.Logger.Error().Err(err).
			Str("event", eventType).
			Str("image_id", img.ID.String()).
			Msg("failed to publish event")
	}
}

func (s *Service) mediaTypeAllowed(mediaType string) bool {
	for _, allowed := range s.cfg.AllowedMediaTypes {
		if mediaType == allowed {
			return true
		}
	}

	return false
}

// normalizeMediaType strips parameters like "; charset=..." and lowercases
// the declared content type.
func normalizeMediaType(mediaType string) string {
	parsed, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(mediaType))
	}

	return parsed
}
