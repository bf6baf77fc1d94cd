// Package media handles promotional image uploads: key generation, pre-upload
// validation and the no-overwrite write into the promo namespace.
package media

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/admin-console/admin-console/internal/storage"
	"github.com/admin-console/admin-console/internal/telemetry"
)

// keyPattern matches the base names produced by NewKey.
var keyPattern = regexp.MustCompile(`^\d+-[0-9a-f]+\.[a-z0-9]+$`)

// DefaultExt is used when the uploaded filename carries no usable extension.
const DefaultExt = "jpg"

var (
	// ErrInvalidImage is returned for payloads whose sniffed MIME type is not image/*.
	ErrInvalidImage = errors.New("file is not an image")

	// ErrImageTooLarge is returned for payloads above the configured size limit.
	ErrImageTooLarge = errors.New("image exceeds the maximum upload size")

	// ErrImageNotFound is returned for keys outside the namespace or with no stored object.
	ErrImageNotFound = errors.New("image not found")
)

// Image describes one stored promotional image.
type Image struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Checksum    string `json:"checksum,omitempty"`
}

// NewKey returns a storage key of the form {unixMillis}-{random}.{ext}.
// The random part is 12 hex characters taken from a v4 UUID.
func NewKey(now time.Time, ext string) string {
	id := uuid.New()
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + hex.EncodeToString(id[:6]) + "." + normalizeExt(ext)
}

// ExtFromFilename returns the extension of filename without the dot, or "" if none.
func ExtFromFilename(filename string) string {
	return strings.TrimPrefix(path.Ext(filename), ".")
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "" {
		return DefaultExt
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return DefaultExt
		}
	}
	return ext
}

// ValidateImage checks size against max and sniffs header to confirm an image type.
// header should hold at least the first 512 bytes of the payload.
func ValidateImage(header []byte, size, max int64) (string, error) {
	if size > max {
		return "", fmt.Errorf("%w: %d bytes, limit %d", ErrImageTooLarge, size, max)
	}
	mt := mimetype.Detect(header)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("%w: detected %s", ErrInvalidImage, mt.String())
	}
	return mt.String(), nil
}

// Uploader writes validated images to object storage
type Uploader struct {
	store     storage.Storage
	namespace string
	maxBytes  int64
	now       func() time.Time
}

// NewUploader creates an uploader writing under namespace with a per-image size limit
func NewUploader(store storage.Storage, namespace string, maxBytes int64) *Uploader {
	return &Uploader{
		store:     store,
		namespace: strings.Trim(namespace, "/"),
		maxBytes:  maxBytes,
		now:       time.Now,
	}
}

// MaxBytes returns the size limit applied by Upload
func (u *Uploader) MaxBytes() int64 {
	return u.maxBytes
}

// Upload validates and stores one image under a fresh key.
// Any failure, including a key collision, yields a nil Image and a non-nil error.
func (u *Uploader) Upload(ctx context.Context, filename string, r io.Reader, size int64) (*Image, error) {
	if size > u.maxBytes {
		telemetry.UploadsTotal.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrImageTooLarge, size, u.maxBytes)
	}

	data, err := io.ReadAll(io.LimitReader(r, u.maxBytes+1))
	if err != nil {
		telemetry.UploadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	contentType, err := ValidateImage(data, int64(len(data)), u.maxBytes)
	if err != nil {
		telemetry.UploadsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	key := path.Join(u.namespace, NewKey(u.now(), ExtFromFilename(filename)))
	res, err := u.store.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), storage.UploadOptions{
		ContentType: contentType,
		NoOverwrite: true,
	})
	if err != nil {
		result := "error"
		if errors.Is(err, storage.ErrObjectExists) {
			result = "collision"
		}
		telemetry.UploadsTotal.WithLabelValues(result).Inc()
		slog.Error("image upload failed", "key", key, "error", err)
		return nil, fmt.Errorf("failed to upload image: %w", err)
	}

	img := &Image{
		Key:         key,
		URL:         u.store.PublicURL(key),
		ContentType: contentType,
		Size:        int64(len(data)),
	}
	if res != nil {
		img.Checksum = res.Checksum
	}
	telemetry.UploadsTotal.WithLabelValues("success").Inc()
	slog.Info("image uploaded", "key", key, "bytes", img.Size, "content_type", contentType, "sha256", img.Checksum)
	return img, nil
}

// Discard removes an image written by Upload, used when the record that was
// going to reference it could not be saved.
func (u *Uploader) Discard(ctx context.Context, key string) error {
	if !u.owns(key) {
		return fmt.Errorf("%w: %s", ErrImageNotFound, key)
	}
	if err := u.store.Delete(ctx, key); err != nil {
		telemetry.UploadsTotal.WithLabelValues("discard_error").Inc()
		return fmt.Errorf("failed to discard image %s: %w", key, err)
	}
	telemetry.UploadsTotal.WithLabelValues("discarded").Inc()
	slog.Info("image discarded", "key", key)
	return nil
}

// Fetch reads a stored image back and returns its bytes with the sniffed content type.
func (u *Uploader) Fetch(ctx context.Context, key string) ([]byte, string, error) {
	if !u.owns(key) {
		return nil, "", fmt.Errorf("%w: %s", ErrImageNotFound, key)
	}
	ok, err := u.store.Exists(ctx, key)
	if err != nil {
		return nil, "", fmt.Errorf("failed to look up image %s: %w", key, err)
	}
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrImageNotFound, key)
	}

	rc, err := u.store.Download(ctx, key)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download image %s: %w", key, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, u.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image %s: %w", key, err)
	}
	contentType, err := ValidateImage(data, int64(len(data)), u.maxBytes)
	if err != nil {
		return nil, "", err
	}
	return data, contentType, nil
}

// owns reports whether key is a well-formed key inside this uploader's namespace.
func (u *Uploader) owns(key string) bool {
	dir, base := path.Split(key)
	return path.Clean(key) == key &&
		strings.TrimSuffix(dir, "/") == u.namespace &&
		keyPattern.MatchString(base)
}
