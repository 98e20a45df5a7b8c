package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"mime"
	"net/http"
	"path"
	"strings"

	"feedline/internal/config"
	"feedline/internal/middleware"
	"feedline/internal/models"
	"feedline/internal/storage"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultImageMaxUploadSizeMB = 10
	MaxImageDimension           = 2048
	// MaxSourceImageDimension bounds what is decoded at all; larger uploads
	// are rejected from their header alone.
	MaxSourceImageDimension = MaxImageDimension * 8
	JPEGQuality                 = 82
	WebPQuality                 = 70
	postImagePrefix             = "posts"
)

// ImageUpload is a raw image attached to a post.
type ImageUpload struct {
	Filename    string
	ContentType string
	Content     []byte
}

// StoredImage describes a blob written by ImageService.Store.
type StoredImage struct {
	Key         string
	ContentType string
	Width       int
	Height      int
	Size        int64
}

// ImageService validates post images and writes them to the storage backend.
type ImageService struct {
	store              storage.Storage
	maxUploadSizeBytes int64
}

func NewImageService(store storage.Storage, cfg *config.Config) *ImageService {
	maxUploadSizeMB := DefaultImageMaxUploadSizeMB
	if cfg != nil && cfg.ImageMaxUploadSizeMB > 0 {
		maxUploadSizeMB = cfg.ImageMaxUploadSizeMB
	}
	return &ImageService{
		store:              store,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

// Store validates the upload, downscales anything larger than
// MaxImageDimension and writes it under posts/<uuid>.<ext>.
func (s *ImageService) Store(ctx context.Context, in ImageUpload) (*StoredImage, error) {
	if len(in.Content) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}

	detectedType := http.DetectContentType(in.Content)
	if !isAllowedImageMIME(detectedType) {
		return nil, models.NewValidationError("Invalid image type")
	}

	header, _, err := image.DecodeConfig(bytes.NewReader(in.Content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}
	if header.Width > MaxSourceImageDimension || header.Height > MaxSourceImageDimension {
		return nil, models.NewValidationError(fmt.Sprintf("Image dimensions too large (max %dx%d)", MaxSourceImageDimension, MaxSourceImageDimension))
	}

	decoded, format, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}
	if !isSupportedDecodedFormat(format) {
		return nil, models.NewValidationError("Unsupported image format")
	}

	mimeType := decodedFormatToMime(format)
	if provided := normalizeContentType(in.ContentType); strings.HasPrefix(provided, "image/") && !isMatchingContentType(provided, mimeType) {
		return nil, models.NewValidationError("Image content type mismatch")
	}

	content := in.Content
	bounds := decoded.Bounds()
	if bounds.Dx() > MaxImageDimension || bounds.Dy() > MaxImageDimension {
		resized := resizeToFit(decoded, MaxImageDimension, MaxImageDimension)
		content, err = encodeImage(resized, format)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		bounds = resized.Bounds()
	}

	key := path.Join(postImagePrefix, uuid.NewString()+"."+formatExtension(format))
	if err := s.store.Write(ctx, key, bytes.NewReader(content), int64(len(content)), mimeType); err != nil {
		return nil, models.NewInternalError(err)
	}

	return &StoredImage{
		Key:         key,
		ContentType: mimeType,
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		Size:        int64(len(content)),
	}, nil
}

// Remove deletes a blob. Failures are logged; callers are already on an
// error or cleanup path.
func (s *ImageService) Remove(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.store.Delete(ctx, key); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to remove image blob", "key", key, "error", err)
	}
}

// URL returns the public URL for key, or "" when there is no image.
func (s *ImageService) URL(key string) string {
	if s == nil || key == "" {
		return ""
	}
	return s.store.URL(key)
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := min(float64(maxWidth)/float64(w), float64(maxHeight)/float64(h))
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

// encodeImage re-encodes img in its source format. GIFs lose animation.
func encodeImage(img image.Image, format string) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	var err error
	switch format {
	case "jpeg":
		err = jpeg.Encode(buf, img, &jpeg.Options{Quality: JPEGQuality})
	case "png":
		err = png.Encode(buf, img)
	case "gif":
		err = gif.Encode(buf, img, nil)
	case "webp":
		err = webp.Encode(buf, img, &webp.Options{Quality: float32(WebPQuality)})
	default:
		err = fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isMatchingContentType(provided, detected string) bool {
	p := normalizeContentType(provided)
	d := normalizeContentType(detected)
	if p == d {
		return true
	}
	return (p == "image/jpg" && d == "image/jpeg") || (p == "image/jpeg" && d == "image/jpg")
}

func isSupportedDecodedFormat(format string) bool {
	switch format {
	case "jpeg", "png", "gif", "webp":
		return true
	default:
		return false
	}
}

func decodedFormatToMime(format string) string {
	switch format {
	case "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return ""
	}
}

func formatExtension(format string) string {
	if format == "jpeg" {
		return "jpg"
	}
	return format
}
