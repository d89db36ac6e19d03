package storage

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/chai2010/webp"

	"github.com/BruksfildServices01/service-marketplace/internal/httperr"
)

func pngOf(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x += 7 {
		img.Set(x, x%h, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png: %v", err)
	}
	return buf.Bytes()
}

func TestNormalizeImageDownscales(t *testing.T) {
	out, err := NormalizeImage(bytes.NewReader(pngOf(t, 400, 200)), 100)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}

	img, err := webp.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not webp: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 100 || b.Dy() != 50 {
		t.Fatalf("expected 100x50, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestNormalizeImageKeepsSmallImages(t *testing.T) {
	out, err := NormalizeImage(bytes.NewReader(pngOf(t, 40, 60)), 100)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	img, err := webp.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 40 || b.Dy() != 60 {
		t.Fatalf("expected 40x60, got %dx%d", b.Dx(), b.Dy())
	}
}

type memObjects struct {
	keys    []string
	deleted []string
	failAt  int
}

func (m *memObjects) Put(_ context.Context, key string, _ []byte, contentType string) (string, error) {
	if contentType != "image/webp" {
		return "", io.ErrUnexpectedEOF
	}
	if m.failAt > 0 && len(m.keys)+1 == m.failAt {
		return "", io.ErrClosedPipe
	}
	m.keys = append(m.keys, key)
	return "https://cdn.example.com/" + key, nil
}

func (m *memObjects) Delete(_ context.Context, url string) error {
	m.deleted = append(m.deleted, url)
	return nil
}

func TestEvidenceUpload(t *testing.T) {
	store := &memObjects{}
	u := NewEvidenceUploader(store, 50)

	urls, err := u.Upload(context.Background(), 12, []io.Reader{bytes.NewReader(pngOf(t, 80, 80))})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if len(urls) != 1 || !strings.HasPrefix(urls[0], "https://cdn.example.com/backjobs/12/") {
		t.Fatalf("unexpected urls %v", urls)
	}

	_, err = u.Upload(context.Background(), 12, []io.Reader{strings.NewReader("not an image")})
	if !httperr.IsBusiness(err, "invalid_image") {
		t.Fatalf("expected invalid_image, got %v", err)
	}
}

func TestEvidenceUploadCleansUpPartialWrites(t *testing.T) {
	store := &memObjects{failAt: 2}
	u := NewEvidenceUploader(store, 50)

	_, err := u.Upload(context.Background(), 12, []io.Reader{
		bytes.NewReader(pngOf(t, 30, 30)),
		bytes.NewReader(pngOf(t, 30, 30)),
	})
	if err == nil {
		t.Fatal("expected put error")
	}
	if len(store.keys) != 1 || len(store.deleted) != 1 || !strings.HasSuffix(store.deleted[0], store.keys[0]) {
		t.Fatalf("first object should be removed, keys=%v deleted=%v", store.keys, store.deleted)
	}
}

func TestEvidenceUploadSkipsStoreOnInvalidImage(t *testing.T) {
	store := &memObjects{}
	u := NewEvidenceUploader(store, 50)

	_, err := u.Upload(context.Background(), 12, []io.Reader{
		bytes.NewReader(pngOf(t, 30, 30)),
		strings.NewReader("not an image"),
	})
	if !httperr.IsBusiness(err, "invalid_image") {
		t.Fatalf("expected invalid_image, got %v", err)
	}
	if len(store.keys) != 0 {
		t.Fatalf("nothing should be stored, got %v", store.keys)
	}
}
