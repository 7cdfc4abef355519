// Package photos validates and stores authorized picker photos.
package photos

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"pickup/internal/apperr"
)

// MaxImageBytes bounds a single upload.
const MaxImageBytes = 5 << 20

// URLPrefix is where locally stored photos are served.
const URLPrefix = "/uploads/pickers/"

var allowed = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

var (
	ErrNotImage = apperr.Validation("Only image files (JPEG, PNG, GIF, WebP) are allowed.")
	ErrTooLarge = apperr.Validation("Image must be 5 MB or smaller")
)

// Store persists an image under a stable name and returns the URL clients should use.
type Store interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
}

// Image is a validated upload.
type Image struct {
	Data []byte
	// Ext always follows the sniffed type, never the client's file name.
	Ext string
	// BaseName is the uploaded file name without directory or extension.
	BaseName string
}

// FileName builds the stored name of a picker photo.
func FileName(childID int64, sortOrder int, ext string) string {
	return fmt.Sprintf("%d_%d%s", childID, sortOrder, ext)
}

// Validate sniffs data and rejects anything but the allowed image types.
func Validate(data []byte) (string, error) {
	if len(data) > MaxImageBytes {
		return "", ErrTooLarge
	}
	mt := mimetype.Detect(data)
	for m := mt; m != nil; m = m.Parent() {
		if ext, ok := allowed[m.String()]; ok {
			return ext, nil
		}
	}
	return "", ErrNotImage
}

func imageExt(ext string) bool {
	for _, e := range allowed {
		if e == ext {
			return true
		}
	}
	return false
}

// ReadUpload reads and validates a multipart image.
func ReadUpload(fh *multipart.FileHeader) (Image, error) {
	if fh.Size > MaxImageBytes {
		return Image{}, ErrTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return Image{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, MaxImageBytes+1))
	if err != nil {
		return Image{}, fmt.Errorf("read upload: %w", err)
	}
	sniffed, err := Validate(data)
	if err != nil {
		return Image{}, err
	}
	base := filepath.Base(fh.Filename)
	if base == "." || base == string(filepath.Separator) {
		base = ""
	}
	name := strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
	return Image{Data: data, Ext: sniffed, BaseName: name}, nil
}

// NormalizeURL gives relative photo paths a leading slash; absolute URLs pass through.
func NormalizeURL(u string) string {
	if u == "" || strings.HasPrefix(u, "http") || strings.HasPrefix(u, "/") {
		return u
	}
	return "/" + u
}

// LocalStore writes photos into a directory served under URLPrefix.
type LocalStore struct {
	Dir string
}

// NewLocalStore creates dir when missing.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("uploads dir: %w", err)
	}
	return &LocalStore{Dir: dir}, nil
}

// Save refuses names whose extension is not one of the image types, since the
// directory is served as static files.
func (s *LocalStore) Save(_ context.Context, name string, data []byte) (string, error) {
	name = filepath.Base(name)
	if !imageExt(filepath.Ext(name)) {
		return "", ErrNotImage
	}
	if err := os.WriteFile(filepath.Join(s.Dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write photo: %w", err)
	}
	return URLPrefix + name, nil
}
