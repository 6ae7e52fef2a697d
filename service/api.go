package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/vedthemaster/lexsy-frontend/config"
	"github.com/vedthemaster/lexsy-frontend/model"
)

var (
	// ErrUnknownVariant is returned before any network call when a variant
	// outside v1/v2 is requested.
	ErrUnknownVariant = errors.New("unknown processing variant")
	// ErrStatusUnsupported is returned for status lookups on v1.
	ErrStatusUnsupported = errors.New("session status is only available on v2")
)

// PlaceholderAPI is the backend surface the session controller depends on.
type PlaceholderAPI interface {
	StartSession(ctx context.Context, documentID model.DocumentID, variant model.Variant) (*model.SessionStart, error)
	ContinueSession(ctx context.Context, req model.TurnRequest, variant model.Variant) (*model.TurnResult, error)
	Generate(ctx context.Context, documentID model.DocumentID, variant model.Variant) ([]byte, error)
}

// APIClient talks to the placeholder backend. It does not retry or cache,
// and leaves timeouts to the transport.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// UploadResponse is the backend's reply to a document upload
type UploadResponse struct {
	Message    string `json:"message"`
	DocumentID string `json:"document_id"`
	Title      string `json:"title"`
}

// StartSessionRequest opens a conversation for a document
type StartSessionRequest struct {
	DocumentID string `json:"document_id"`
}

// StartSessionResponse carries the session handle and opening transcript
type StartSessionResponse struct {
	Success      *bool           `json:"success"`
	ThreadID     string          `json:"thread_id"`
	SessionID    string          `json:"session_id"`
	Conversation []model.Message `json:"conversation"`
	AllFilled    bool            `json:"all_filled"`
	Message      string          `json:"message"`
	Error        string          `json:"error"`
}

// ContinueSessionResponse is the canonical transcript after a turn
type ContinueSessionResponse struct {
	Success      *bool           `json:"success"`
	Conversation []model.Message `json:"conversation"`
	AllFilled    bool            `json:"all_filled"`
	Message      string          `json:"message"`
	Error        string          `json:"error"`
}

// GenerateRequest asks for the filled document
type GenerateRequest struct {
	DocumentID string `json:"document_id"`
}

// StatusRequest asks a v2 session for its progress
type StatusRequest struct {
	SessionID string `json:"session_id"`
}

// continuePayload is the variant-specific wire shape of one turn. Adding a
// variant means adding one payload type and one case in newContinuePayload.
type continuePayload interface {
	variant() model.Variant
}

type continueV1Payload struct {
	DocumentID string `json:"document_id"`
	ThreadID   string `json:"thread_id"`
	Message    string `json:"message"`
}

func (continueV1Payload) variant() model.Variant { return model.VariantV1 }

type continueV2Payload struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

func (continueV2Payload) variant() model.Variant { return model.VariantV2 }

func newContinuePayload(v model.Variant, req model.TurnRequest) (continuePayload, error) {
	switch v {
	case model.VariantV1:
		return continueV1Payload{
			DocumentID: string(req.DocumentID),
			ThreadID:   string(req.SessionID),
			Message:    req.Message,
		}, nil
	case model.VariantV2:
		return continueV2Payload{
			SessionID: string(req.SessionID),
			Message:   req.Message,
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, v)
}

func NewAPIClient(cfg *config.APIConfig) *APIClient {
	return &APIClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{},
	}
}

// resolveVariant maps the zero value to v1 and rejects anything unknown.
func resolveVariant(v model.Variant) (model.Variant, error) {
	if v == "" {
		return model.VariantV1, nil
	}
	if !v.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownVariant, v)
	}
	return v, nil
}

func (c *APIClient) endpoint(v model.Variant, path string) string {
	return c.baseURL + "/" + string(v) + path
}

// Upload sends the template as multipart form field "file".
func (c *APIClient) Upload(ctx context.Context, filename string, file io.Reader, variant model.Variant) (*model.UploadResult, error) {
	v, err := resolveVariant(variant)
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(v, "/documents/upload"), &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	respBody, err := c.do(req, OpUpload)
	if err != nil {
		return nil, err
	}

	var result UploadResponse
	if err := decode(OpUpload, respBody, &result); err != nil {
		return nil, err
	}
	if result.DocumentID == "" {
		return nil, &APIError{Op: OpUpload, StatusCode: http.StatusOK, Detail: firstNonEmpty(result.Message, GenericMessage(OpUpload))}
	}

	return &model.UploadResult{
		DocumentID: model.DocumentID(result.DocumentID),
		Title:      result.Title,
		Message:    result.Message,
	}, nil
}

// StartSession opens the placeholder conversation for a document.
func (c *APIClient) StartSession(ctx context.Context, documentID model.DocumentID, variant model.Variant) (*model.SessionStart, error) {
	v, err := resolveVariant(variant)
	if err != nil {
		return nil, err
	}

	var result StartSessionResponse
	if err := c.postJSON(ctx, OpStart, c.endpoint(v, "/placeholders/start"), StartSessionRequest{DocumentID: string(documentID)}, &result); err != nil {
		return nil, err
	}
	if err := checkSuccess(OpStart, result.Success, result.Error, result.Message); err != nil {
		return nil, err
	}

	handle := firstNonEmpty(result.ThreadID, result.SessionID)
	if handle == "" {
		return nil, &APIError{Op: OpStart, StatusCode: http.StatusOK, Detail: GenericMessage(OpStart)}
	}

	return &model.SessionStart{
		SessionID:  model.SessionID(handle),
		Transcript: model.Transcript(result.Conversation).Clone(),
		AllFilled:  result.AllFilled,
	}, nil
}

// ContinueSession submits one user turn. The request body shape depends on
// the variant.
func (c *APIClient) ContinueSession(ctx context.Context, turn model.TurnRequest, variant model.Variant) (*model.TurnResult, error) {
	v, err := resolveVariant(variant)
	if err != nil {
		return nil, err
	}
	payload, err := newContinuePayload(v, turn)
	if err != nil {
		return nil, err
	}

	var result ContinueSessionResponse
	if err := c.postJSON(ctx, OpContinue, c.endpoint(payload.variant(), "/placeholders/continue"), payload, &result); err != nil {
		return nil, err
	}
	if err := checkSuccess(OpContinue, result.Success, result.Error, result.Message); err != nil {
		return nil, err
	}

	return &model.TurnResult{
		Transcript: model.Transcript(result.Conversation).Clone(),
		AllFilled:  result.AllFilled,
		Message:    result.Message,
	}, nil
}

// Generate returns the filled document. The same call backs both the
// preview and the download; there is no separate preview endpoint.
func (c *APIClient) Generate(ctx context.Context, documentID model.DocumentID, variant model.Variant) ([]byte, error) {
	v, err := resolveVariant(variant)
	if err != nil {
		return nil, err
	}

	jsonData, err := json.Marshal(GenerateRequest{DocumentID: string(documentID)})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(v, "/documents/generate"), bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "*/*")

	return c.do(req, OpGenerate)
}

// SessionStatus returns the backend's status object for a v2 session.
func (c *APIClient) SessionStatus(ctx context.Context, sessionID model.SessionID, variant model.Variant) (map[string]any, error) {
	v, err := resolveVariant(variant)
	if err != nil {
		return nil, err
	}
	if v != model.VariantV2 {
		return nil, ErrStatusUnsupported
	}

	var result map[string]any
	if err := c.postJSON(ctx, OpStatus, c.endpoint(v, "/placeholders/status"), StatusRequest{SessionID: string(sessionID)}, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *APIClient) postJSON(ctx context.Context, op Operation, url string, payload, out any) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req, op)
	if err != nil {
		return err
	}
	return decode(op, body, out)
}

// do sends req and returns the body of a 2xx response. Anything else is an
// *APIError.
func (c *APIClient) do(req *http.Request, op Operation) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(op, fmt.Errorf("failed to send request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(op, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(op, resp.StatusCode, body)
	}
	return body, nil
}

func decode(op Operation, body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return &APIError{
			Op:         op,
			StatusCode: http.StatusOK,
			Detail:     GenericMessage(op),
			Err:        fmt.Errorf("failed to parse response: %w", err),
		}
	}
	return nil
}

// checkSuccess treats an explicit "success": false as a failure even on 2xx.
func checkSuccess(op Operation, success *bool, errMsg, msg string) error {
	if success == nil || *success {
		return nil
	}
	return &APIError{
		Op:         op,
		StatusCode: http.StatusOK,
		Detail:     firstNonEmpty(errMsg, msg, GenericMessage(op)),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
