package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/vedthemaster/lexsy-frontend/model"
	"github.com/vedthemaster/lexsy-frontend/pkg/logger"
)

// ErrDownloadInFlight rejects a download while another one for the same
// document is still running.
var ErrDownloadInFlight = errors.New("download already in progress")

// DocumentGenerator produces the filled document bytes.
type DocumentGenerator interface {
	Generate(ctx context.Context, documentID model.DocumentID, variant model.Variant) ([]byte, error)
}

// Download is a generated document ready to be handed to the user.
type Download struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Downloader generates a fresh copy of the filled document on every call.
// It never reuses the preview artifact.
type Downloader struct {
	api        DocumentGenerator
	documentID model.DocumentID
	variant    model.Variant
	inFlight   atomic.Bool
	now        func() time.Time
}

func NewDownloader(api DocumentGenerator, documentID model.DocumentID, variant model.Variant) *Downloader {
	return &Downloader{
		api:        api,
		documentID: documentID,
		variant:    variant,
		now:        time.Now,
	}
}

func (d *Downloader) Download(ctx context.Context) (*Download, error) {
	if d.documentID == "" {
		return nil, ErrNoDocument
	}
	if !d.inFlight.CompareAndSwap(false, true) {
		return nil, ErrDownloadInFlight
	}
	defer d.inFlight.Store(false)

	data, err := d.api.Generate(ctx, d.documentID, d.variant)
	if err != nil {
		logger.Warn(ctx, "document generation failed", "error", describe(err))
		return nil, err
	}

	return &Download{
		Filename:    DownloadFilename(d.now()),
		ContentType: docxContentType,
		Data:        data,
	}, nil
}

// InFlight reports whether a download is running.
func (d *Downloader) InFlight() bool {
	return d.inFlight.Load()
}

// DownloadFilename names a generated document after the moment it was requested.
func DownloadFilename(t time.Time) string {
	return fmt.Sprintf("filled-document-%d.docx", t.UnixMilli())
}
