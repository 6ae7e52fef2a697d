package service

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/vedthemaster/lexsy-frontend/model"
	"github.com/vedthemaster/lexsy-frontend/pkg/logger"
)

// ErrNotDocx rejects anything that is not a Word document by name.
var ErrNotDocx = errors.New("Please upload a .docx file")

// ErrNoFile is returned when the upload carries no file.
var ErrNoFile = errors.New("Please select a file to upload")

// ValidateFilename accepts only names ending in ".docx". The check is
// case sensitive.
func ValidateFilename(name string) error {
	if name == "" {
		return ErrNoFile
	}
	if !strings.HasSuffix(name, ".docx") {
		return ErrNotDocx
	}
	return nil
}

// DocumentUploader is the slice of the backend the upload flow needs.
type DocumentUploader interface {
	Upload(ctx context.Context, filename string, file io.Reader, variant model.Variant) (*model.UploadResult, error)
}

// UploadFlow validates a file locally and submits it to the backend.
type UploadFlow struct {
	api DocumentUploader
}

func NewUploadFlow(api DocumentUploader) *UploadFlow {
	return &UploadFlow{api: api}
}

// Submit uploads the file. Rejected names never reach the backend.
func (f *UploadFlow) Submit(ctx context.Context, filename string, file io.Reader, variant model.Variant) (*model.UploadResult, error) {
	if err := ValidateFilename(filename); err != nil {
		return nil, err
	}
	if variant != "" && !variant.Valid() {
		return nil, ErrUnknownVariant
	}
	variant = variant.OrDefault()

	result, err := f.api.Upload(ctx, filename, file, variant)
	if err != nil {
		logger.Warn(ctx, "upload failed", "filename", filename, "variant", variant, "error", describe(err))
		return nil, err
	}

	logger.Info(logger.WithDocument(ctx, result.DocumentID.String()), "document uploaded",
		"filename", filename,
		"title", result.Title,
		"variant", variant,
	)
	return result, nil
}
