package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vedthemaster/lexsy-frontend/pkg/logger"
)

// PreviewStatus is the visible state of a document preview. Loading, error
// and ready are mutually exclusive; idle means nothing was requested yet.
type PreviewStatus string

const (
	PreviewIdle    PreviewStatus = "idle"
	PreviewLoading PreviewStatus = "loading"
	PreviewFailed  PreviewStatus = "error"
	PreviewReady   PreviewStatus = "ready"
)

// Rendered is displayable markup produced from a document artifact.
type Rendered struct {
	HTML     string
	Warnings []string
}

// Converter turns a binary document into markup.
type Converter interface {
	Convert(data []byte) (*Rendered, error)
}

// ArtifactFetcher retrieves the binary artifact to preview.
type ArtifactFetcher func(ctx context.Context) ([]byte, error)

// PreviewView is a snapshot of the renderer for templates and JSON.
type PreviewView struct {
	Status   PreviewStatus `json:"status"`
	HTML     string        `json:"html,omitempty"`
	Warnings []string      `json:"warnings,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// PreviewRenderer fetches a document artifact once, caches it and converts
// it to HTML in the background.
type PreviewRenderer struct {
	key       string
	fetch     ArtifactFetcher
	cache     ArtifactCache
	converter Converter

	mu       sync.Mutex
	status   PreviewStatus
	html     string
	warnings []string
	errMsg   string
	done     chan struct{} // closed when the current load settles
}

func NewPreviewRenderer(key string, fetch ArtifactFetcher, cache ArtifactCache, converter Converter) *PreviewRenderer {
	return &PreviewRenderer{
		key:       key,
		fetch:     fetch,
		cache:     cache,
		converter: converter,
		status:    PreviewIdle,
	}
}

// Trigger starts loading the preview. Only the first call does anything;
// it reports whether a load was started.
func (r *PreviewRenderer) Trigger(ctx context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != PreviewIdle {
		return false
	}
	r.begin(ctx)
	return true
}

// Retry re-runs a failed load. It is a no-op in any other state.
func (r *PreviewRenderer) Retry(ctx context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != PreviewFailed {
		return false
	}
	r.begin(ctx)
	return true
}

// begin must be called with r.mu held.
func (r *PreviewRenderer) begin(ctx context.Context) {
	r.status = PreviewLoading
	r.errMsg = ""
	done := make(chan struct{})
	r.done = done

	// The load outlives the request that triggered it.
	go r.load(context.WithoutCancel(ctx), done)
}

func (r *PreviewRenderer) load(ctx context.Context, done chan struct{}) {
	defer close(done)

	data, err := r.artifact(ctx)
	if err != nil {
		logger.Warn(ctx, "preview fetch failed", "error", describe(err))
		r.fail(previewFetchMessage(err))
		return
	}

	rendered, err := safeConvert(r.converter, data)
	if err != nil {
		logger.Warn(ctx, "preview conversion failed", "error", err)
		r.fail("Failed to preview document: " + err.Error())
		return
	}
	if len(rendered.Warnings) > 0 {
		logger.Debug(ctx, "preview conversion warnings", "warnings", rendered.Warnings)
	}

	r.mu.Lock()
	r.status = PreviewReady
	r.html = rendered.HTML
	r.warnings = rendered.Warnings
	r.mu.Unlock()
}

func (r *PreviewRenderer) fail(msg string) {
	r.mu.Lock()
	r.status = PreviewFailed
	r.errMsg = msg
	r.mu.Unlock()
}

// artifact returns the cached artifact or fetches and caches it.
func (r *PreviewRenderer) artifact(ctx context.Context) ([]byte, error) {
	if r.cache != nil {
		data, err := r.cache.Get(ctx, r.key)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, ErrArtifactMiss) {
			logger.Warn(ctx, "artifact cache read failed", "key", r.key, "error", err)
		}
	}

	data, err := r.fetch(ctx)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if err := r.cache.Put(ctx, r.key, data); err != nil {
			logger.Warn(ctx, "artifact cache write failed", "key", r.key, "error", err)
		}
	}
	return data, nil
}

// Wait blocks until the current load settles or ctx is done.
func (r *PreviewRenderer) Wait(ctx context.Context) (PreviewView, error) {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return r.View(), ctx.Err()
		}
	}
	return r.View(), nil
}

func (r *PreviewRenderer) View() PreviewView {
	r.mu.Lock()
	defer r.mu.Unlock()

	view := PreviewView{Status: r.status}
	switch r.status {
	case PreviewReady:
		view.HTML = r.html
		view.Warnings = append([]string(nil), r.warnings...)
	case PreviewFailed:
		view.Error = r.errMsg
	}
	return view
}

// safeConvert keeps a malformed artifact from taking the page down.
func safeConvert(c Converter, data []byte) (out *Rendered, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out, err = nil, fmt.Errorf("converter panicked: %v", rec)
		}
	}()

	out, err = c.Convert(data)
	if err == nil && out == nil {
		err = errors.New("converter returned no output")
	}
	return out, err
}

func previewFetchMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode != 0 && apiErr.Detail != GenericMessage(apiErr.Op) {
		return apiErr.Detail
	}
	return GenericMessage(OpPreview)
}
