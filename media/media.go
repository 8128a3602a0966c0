// Package media stores uploaded images and resolves their public URLs.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Store keeps binary objects in named buckets.
type Store interface {
	// Upload stores body under bucket/name and returns the public URL of the object.
	Upload(ctx context.Context, bucket, name string, body io.Reader) (publicURL string, err error)
}

// sniffLimit is the number of leading bytes inspected to detect the content type.
const sniffLimit = 3072

var allowedContentTypes = []string{
	"image/png",
	"image/jpeg",
	"image/gif",
	"image/webp",
	"image/avif",
}

type UnsupportedMediaTypeError struct {
	ContentType string
}

func (err UnsupportedMediaTypeError) Error() string {
	return fmt.Sprintf("unsupported media type %q", err.ContentType)
}

type InvalidObjectNameError struct {
	Name string
}

func (err InvalidObjectNameError) Error() string {
	return fmt.Sprintf("invalid object name %q", err.Name)
}

type ObjectAlreadyExistsError struct {
	Bucket string
	Name   string
}

func (err ObjectAlreadyExistsError) Error() string {
	return fmt.Sprintf("object %q already exists in bucket %q", err.Name, err.Bucket)
}

var ErrEmptyObject = errors.New("object is empty")

// DiskStore keeps objects on the local file system as <root>/<bucket>/<name>.
type DiskStore struct {
	root          string
	publicBaseURL string
}

var _ Store = (*DiskStore)(nil)

func NewDiskStore(root, publicBaseURL string) (*DiskStore, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve media root %q: %w", root, err)
	}

	err = os.MkdirAll(absRoot, 0o750)
	if err != nil {
		return nil, fmt.Errorf("failed to create media root %q: %w", absRoot, err)
	}

	return &DiskStore{
		root:          absRoot,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

func (store *DiskStore) Upload(ctx context.Context, bucket, name string, body io.Reader) (string, error) {
	bucket, err := SanitizeName(bucket)
	if err != nil {
		return "", err
	}

	name, err = SanitizeName(name)
	if err != nil {
		return "", err
	}

	head := make([]byte, sniffLimit)

	n, err := io.ReadFull(body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read object: %w", err)
	}

	head = head[:n]
	if len(head) == 0 {
		return "", ErrEmptyObject
	}

	contentType := mimetype.Detect(head).String()
	if !IsAllowedContentType(contentType) {
		return "", &UnsupportedMediaTypeError{ContentType: contentType}
	}

	err = ctx.Err()
	if err != nil {
		return "", fmt.Errorf("upload canceled: %w", err)
	}

	dir := filepath.Join(store.root, bucket)

	err = os.MkdirAll(dir, 0o750)
	if err != nil {
		return "", fmt.Errorf("failed to create bucket directory: %w", err)
	}

	path := filepath.Join(dir, name)

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640) // nolint:gosec
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", &ObjectAlreadyExistsError{Bucket: bucket, Name: name}
		}

		return "", fmt.Errorf("failed to create object file: %w", err)
	}

	_, err = io.Copy(file, io.MultiReader(bytes.NewReader(head), body))
	if err != nil {
		_ = file.Close()
		store.remove(ctx, path)

		return "", fmt.Errorf("failed to write object: %w", err)
	}

	err = file.Close()
	if err != nil {
		store.remove(ctx, path)

		return "", fmt.Errorf("failed to close object file: %w", err)
	}

	return store.PublicURL(bucket, name), nil
}

func (store *DiskStore) remove(ctx context.Context, path string) {
	err := os.Remove(path)
	if err != nil {
		slog.ErrorContext(ctx, "failed to remove partial object", "path", path, "error", err)
	}
}

// PublicURL returns the URL under which an object is served.
func (store *DiskStore) PublicURL(bucket, name string) string {
	return store.publicBaseURL + "/" + url.PathEscape(bucket) + "/" + url.PathEscape(name)
}

// Handler serves stored objects. Directory listings are not exposed.
func (store *DiskStore) Handler() http.Handler {
	fileServer := http.FileServer(http.Dir(store.root))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)

			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		fileServer.ServeHTTP(w, r)
	})
}

func IsAllowedContentType(contentType string) bool {
	return slices.Contains(allowedContentTypes, contentType)
}

// MaxNameLength is the longest object name most filesystems accept.
const MaxNameLength = 255

// SanitizeName reduces name to a single safe path element.
func SanitizeName(name string) (string, error) {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))

	var sb strings.Builder

	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('-')
		}
	}

	sanitized := strings.Trim(sb.String(), ".")
	if sanitized == "" || strings.Trim(sanitized, "-") == "" || len(sanitized) > MaxNameLength {
		return "", &InvalidObjectNameError{Name: name}
	}

	return sanitized, nil
}
