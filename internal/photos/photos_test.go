package photos

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var (
	pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R', 0, 0, 0, 1, 0, 0, 0, 1, 8, 6, 0, 0, 0}
	jpegHead  = []byte{0xff, 0xd8, 0xff, 0xe0, 0, 0x10, 'J', 'F', 'I', 'F', 0}
	gifHead   = []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00")
)

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		ext  string
		err  error
	}{
		{"png", pngHeader, ".png", nil},
		{"jpeg", jpegHead, ".jpg", nil},
		{"gif", gifHead, ".gif", nil},
		{"text", []byte("hello, not an image"), "", ErrNotImage},
		{"pdf", []byte("%PDF-1.4\n"), "", ErrNotImage},
		{"huge", make([]byte, MaxImageBytes+1), "", ErrTooLarge},
	}
	for _, tc := range cases {
		ext, err := Validate(tc.data)
		if !errors.Is(err, tc.err) || ext != tc.ext {
			t.Errorf("%s: got %q, %v", tc.name, ext, err)
		}
	}
}

func multipartFile(t *testing.T, filename string, data []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("photo", filename)
	if err != nil {
		t.Fatal(err)
	}
	part.Write(data)
	w.Close()

	r := multipart.NewReader(&buf, w.Boundary())
	form, err := r.ReadForm(MaxImageBytes * 2)
	if err != nil {
		t.Fatal(err)
	}
	return form.File["photo"][0]
}

func TestReadUpload(t *testing.T) {
	img, err := ReadUpload(multipartFile(t, "Grandma Ruth.PNG", pngHeader))
	if err != nil {
		t.Fatal(err)
	}
	if img.Ext != ".png" || img.BaseName != "Grandma Ruth" {
		t.Fatalf("got ext %q name %q", img.Ext, img.BaseName)
	}

	img, err = ReadUpload(multipartFile(t, "blob", jpegHead))
	if err != nil {
		t.Fatal(err)
	}
	if img.Ext != ".jpg" || img.BaseName != "blob" {
		t.Fatalf("got ext %q name %q", img.Ext, img.BaseName)
	}

	if _, err := ReadUpload(multipartFile(t, "notes.png", []byte("plain text"))); !errors.Is(err, ErrNotImage) {
		t.Fatalf("text accepted: %v", err)
	}
}

func TestReadUploadIgnoresClientExtension(t *testing.T) {
	polyglot := append(append([]byte{}, gifHead...), []byte("<script>alert(1)</script>")...)
	img, err := ReadUpload(multipartFile(t, "evil.html", polyglot))
	if err != nil {
		t.Fatal(err)
	}
	if img.Ext != ".gif" || img.BaseName != "evil" {
		t.Fatalf("got ext %q name %q", img.Ext, img.BaseName)
	}

	img, err = ReadUpload(multipartFile(t, "photo.jpg", pngHeader))
	if err != nil {
		t.Fatal(err)
	}
	if img.Ext != ".png" {
		t.Fatalf("png stored as %q", img.Ext)
	}
}

func TestLocalStoreRejectsNonImageNames(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"1_0.html", "1_0.svg", "1_0"} {
		if _, err := s.Save(context.Background(), name, gifHead); !errors.Is(err, ErrNotImage) {
			t.Errorf("%s: %v", name, err)
		}
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("files written: %d", len(entries))
	}
}

func TestNormalizeURL(t *testing.T) {
	cases := map[string]string{
		"uploads/pickers/1_0.jpg":        "/uploads/pickers/1_0.jpg",
		"/uploads/pickers/1_0.jpg":       "/uploads/pickers/1_0.jpg",
		"https://res.cloudinary.com/x.j": "https://res.cloudinary.com/x.j",
		"":                               "",
	}
	for in, want := range cases {
		if got := NormalizeURL(in); got != want {
			t.Errorf("NormalizeURL(%q) = %q", in, got)
		}
	}
}

func TestLocalStoreSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "pickers")
	s, err := NewLocalStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	url, err := s.Save(context.Background(), FileName(12, 2, ".png"), pngHeader)
	if err != nil {
		t.Fatal(err)
	}
	if url != "/uploads/pickers/12_2.png" {
		t.Fatalf("url = %s", url)
	}
	got, err := os.ReadFile(filepath.Join(dir, "12_2.png"))
	if err != nil || !bytes.Equal(got, pngHeader) {
		t.Fatalf("stored file mismatch: %v", err)
	}
}

func TestCloudinarySave(t *testing.T) {
	var form *multipart.Form
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1_1/demo/image/upload" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		form = r.MultipartForm
		io.WriteString(w, `{"public_id":"pickers/3_1","secure_url":"https://res.cloudinary.com/demo/3_1.jpg"}`)
	}))
	defer srv.Close()

	c := NewCloudinary("demo", "key", "secret", "pickers")
	c.BaseURL = srv.URL
	c.now = func() time.Time { return time.Unix(1700000000, 0) }

	url, err := c.Save(context.Background(), "3_1.jpg", jpegHead)
	if err != nil {
		t.Fatal(err)
	}
	if url != "https://res.cloudinary.com/demo/3_1.jpg" {
		t.Fatalf("url = %s", url)
	}
	if form.Value["public_id"][0] != "3_1" || form.Value["overwrite"][0] != "true" {
		t.Fatalf("form values %v", form.Value)
	}
	want := c.sign(map[string]string{"timestamp": "1700000000", "public_id": "3_1", "overwrite": "true", "folder": "pickers"})
	if form.Value["signature"][0] != want {
		t.Fatalf("signature %s, want %s", form.Value["signature"][0], want)
	}
}

func TestCloudinaryUploadError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad signature"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()
	c := NewCloudinary("demo", "key", "secret", "")
	c.BaseURL = srv.URL
	if _, err := c.Save(context.Background(), "1_0.png", pngHeader); err == nil {
		t.Fatal("upload error swallowed")
	}
}
