package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/google/uuid"

	"github.com/BruksfildServices01/service-marketplace/internal/httperr"
)

const (
	MaxEvidenceFiles    = 5
	MaxEvidenceFileSize = 10 << 20
)

// EvidenceUploader normaliza as fotos de um pedido de garantia e sobe
// para o object store.
type EvidenceUploader struct {
	store  ObjectStore
	maxDim int
}

func NewEvidenceUploader(store ObjectStore, maxDim int) *EvidenceUploader {
	if maxDim <= 0 {
		maxDim = 1600
	}
	return &EvidenceUploader{store: store, maxDim: maxDim}
}

func (u *EvidenceUploader) UploadFiles(
	ctx context.Context,
	appointmentID uint,
	files []*multipart.FileHeader,
) ([]string, error) {

	if len(files) > MaxEvidenceFiles {
		return nil, httperr.ErrValidation("too_many_files")
	}

	readers := make([]io.Reader, 0, len(files))
	for _, fh := range files {
		if fh.Size > MaxEvidenceFileSize {
			return nil, httperr.ErrValidation("file_too_large")
		}
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		readers = append(readers, f)
	}

	return u.Upload(ctx, appointmentID, readers)
}

// Upload devolve as URLs na mesma ordem das entradas.
func (u *EvidenceUploader) Upload(
	ctx context.Context,
	appointmentID uint,
	files []io.Reader,
) ([]string, error) {

	// normaliza tudo antes de gravar: imagem inválida não deixa objeto para trás
	blobs := make([][]byte, 0, len(files))
	for _, r := range files {
		data, err := NormalizeImage(io.LimitReader(r, MaxEvidenceFileSize), u.maxDim)
		if err != nil {
			return nil, httperr.ErrValidation("invalid_image")
		}
		blobs = append(blobs, data)
	}

	urls := make([]string, 0, len(blobs))
	for _, data := range blobs {
		key := fmt.Sprintf("backjobs/%d/%s.webp", appointmentID, uuid.NewString())
		url, err := u.store.Put(ctx, key, data, "image/webp")
		if err != nil {
			return nil, errors.Join(err, u.Discard(ctx, urls))
		}
		urls = append(urls, url)
	}
	return urls, nil
}

// Discard apaga objetos já enviados quando o pedido é recusado depois do upload.
func (u *EvidenceUploader) Discard(ctx context.Context, urls []string) error {
	var errs []error
	for _, url := range urls {
		if err := u.store.Delete(ctx, url); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
