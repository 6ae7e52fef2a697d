package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/vedthemaster/lexsy-frontend/model"
	"github.com/vedthemaster/lexsy-frontend/pkg/logger"
)

var (
	ErrEmptyMessage    = errors.New("message is empty")
	ErrNoDocument      = errors.New("no document selected")
	ErrNoSession       = errors.New("conversation has not started")
	ErrTurnInFlight    = errors.New("a message is already being sent")
	ErrSessionComplete = errors.New("all placeholders are already filled")
)

// SessionDeps are the collaborators shared by every controller.
type SessionDeps struct {
	API       PlaceholderAPI
	Artifacts ArtifactCache
	Converter Converter
}

// SessionView is an immutable snapshot of a controller for rendering.
type SessionView struct {
	DocumentID model.DocumentID   `json:"document_id"`
	SessionID  model.SessionID    `json:"session_id,omitempty"`
	Variant    model.Variant      `json:"variant"`
	State      model.SessionState `json:"state"`
	Transcript model.Transcript   `json:"conversation"`
	Pending    bool               `json:"pending"`
	AllFilled  bool               `json:"all_filled"`
	Banner     *Banner            `json:"error,omitempty"`
	Preview    PreviewView        `json:"preview"`
	// Downloadable is true once the session is complete.
	Downloadable bool `json:"downloadable"`
}

// CanSubmit reports whether the input box should accept a message.
func (v SessionView) CanSubmit() bool {
	return v.State == model.StateAwaitingInput
}

// SessionController drives one placeholder conversation for one document.
// The lock is never held across a backend call.
type SessionController struct {
	api        PlaceholderAPI
	documentID model.DocumentID
	variant    model.Variant
	preview    *PreviewRenderer
	downloader *Downloader

	startMu sync.Mutex

	mu         sync.Mutex
	state      model.SessionState
	started    bool
	sessionID  model.SessionID
	transcript model.Transcript
	allFilled  bool
	busy       bool
	banner     *Banner
}

func NewSessionController(deps SessionDeps, tabID string, documentID model.DocumentID, variant model.Variant) *SessionController {
	variant = variant.OrDefault()
	c := &SessionController{
		api:        deps.API,
		documentID: documentID,
		variant:    variant,
		state:      model.StateStarting,
		transcript: model.Transcript{},
		downloader: NewDownloader(deps.API, documentID, variant),
	}

	fetch := func(ctx context.Context) ([]byte, error) {
		return deps.API.Generate(ctx, documentID, variant)
	}
	c.preview = NewPreviewRenderer(ArtifactKey(tabID, documentID.String()), fetch, deps.Artifacts, deps.Converter)
	return c
}

func (c *SessionController) DocumentID() model.DocumentID { return c.documentID }
func (c *SessionController) Variant() model.Variant       { return c.variant }
func (c *SessionController) Preview() *PreviewRenderer    { return c.preview }
func (c *SessionController) Downloader() *Downloader      { return c.downloader }

// Start opens the conversation. It calls the backend at most once per
// successful start; concurrent callers wait for the first one.
func (c *SessionController) Start(ctx context.Context) error {
	c.startMu.Lock()
	defer c.startMu.Unlock()

	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return nil
	}
	if c.documentID == "" {
		c.mu.Unlock()
		return ErrNoDocument
	}
	c.state = model.StateStarting
	c.banner = nil
	c.mu.Unlock()

	ctx = logger.WithDocument(ctx, c.documentID.String())
	res, err := c.api.StartSession(ctx, c.documentID, c.variant)

	c.mu.Lock()
	if err != nil {
		banner := ClassifyError(err)
		c.banner = &banner
		c.mu.Unlock()
		logger.Warn(ctx, "start session failed", "variant", c.variant, "error", describe(err))
		return err
	}
	c.started = true
	c.sessionID = res.SessionID
	c.transcript = res.Transcript.Clone()
	c.allFilled = res.AllFilled
	c.state = c.restingState()
	filled := c.allFilled
	c.mu.Unlock()

	logger.Info(ctx, "session started",
		"session_id", res.SessionID.String(),
		"variant", c.variant,
		"messages", len(res.Transcript),
		"all_filled", filled,
	)

	if filled {
		c.preview.Trigger(ctx)
	}
	return nil
}

// Submit sends one user turn. The user's message is shown immediately and
// replaced by the server transcript once the backend answers.
func (c *SessionController) Submit(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	c.mu.Lock()
	switch {
	case c.documentID == "":
		c.mu.Unlock()
		return ErrNoDocument
	case c.sessionID == "":
		c.mu.Unlock()
		return ErrNoSession
	case c.busy:
		c.mu.Unlock()
		return ErrTurnInFlight
	case c.state == model.StateCompleted:
		c.mu.Unlock()
		return ErrSessionComplete
	}
	c.busy = true
	c.banner = nil
	c.state = model.StateSending
	c.transcript = append(c.transcript.Clone(), model.Message{Role: model.RoleUser, Content: text})
	wasFilled := c.allFilled
	req := model.TurnRequest{DocumentID: c.documentID, SessionID: c.sessionID, Message: text}
	c.mu.Unlock()

	ctx = logger.WithDocument(ctx, c.documentID.String())
	res, err := c.api.ContinueSession(ctx, req, c.variant)

	c.mu.Lock()
	c.busy = false
	if err != nil {
		banner := ClassifyError(err)
		c.banner = &banner
		c.state = c.restingState()
		c.mu.Unlock()
		logger.Warn(ctx, "continue session failed", "session_id", req.SessionID.String(), "error", describe(err))
		return err
	}
	c.transcript = res.Transcript.Clone()
	c.allFilled = res.AllFilled
	c.state = c.restingState()
	nowFilled := c.allFilled
	c.mu.Unlock()

	logger.Debug(ctx, "turn completed",
		"session_id", req.SessionID.String(),
		"messages", len(res.Transcript),
		"all_filled", nowFilled,
	)

	if !wasFilled && nowFilled {
		c.preview.Trigger(ctx)
	}
	return nil
}

// Busy reports whether a start, a turn, a download or a preview load is in
// progress. Busy controllers must stay reachable.
func (c *SessionController) Busy() bool {
	if !c.startMu.TryLock() {
		return true
	}
	c.startMu.Unlock()

	c.mu.Lock()
	busy := c.busy
	c.mu.Unlock()

	return busy || c.downloader.InFlight() || c.preview.View().Status == PreviewLoading
}

// Download generates the filled document. Failures land in the banner.
func (c *SessionController) Download(ctx context.Context) (*Download, error) {
	c.mu.Lock()
	c.banner = nil
	c.mu.Unlock()

	d, err := c.downloader.Download(logger.WithDocument(ctx, c.documentID.String()))
	if err != nil && !errors.Is(err, ErrDownloadInFlight) {
		c.RecordError(err)
	}
	return d, err
}

// RecordError surfaces err in the controller's banner.
func (c *SessionController) RecordError(err error) {
	if err == nil {
		return
	}
	banner := ClassifyError(err)
	c.mu.Lock()
	c.banner = &banner
	c.mu.Unlock()
}

func (c *SessionController) View() SessionView {
	c.mu.Lock()
	view := SessionView{
		DocumentID:   c.documentID,
		SessionID:    c.sessionID,
		Variant:      c.variant,
		State:        c.state,
		Transcript:   c.transcript.Clone(),
		Pending:      c.busy,
		AllFilled:    c.allFilled,
		Downloadable: c.state == model.StateCompleted,
	}
	if c.banner != nil {
		b := *c.banner
		view.Banner = &b
	}
	c.mu.Unlock()

	view.Preview = c.preview.View()
	return view
}

// restingState must be called with c.mu held.
func (c *SessionController) restingState() model.SessionState {
	if !c.started {
		return model.StateStarting
	}
	if c.allFilled {
		return model.StateCompleted
	}
	return model.StateAwaitingInput
}
