package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Operation names one backend capability; it picks the fallback message
// shown when a failure carries no detail of its own.
type Operation string

const (
	OpUpload   Operation = "upload"
	OpStart    Operation = "start_session"
	OpContinue Operation = "continue_session"
	OpGenerate Operation = "generate"
	OpPreview  Operation = "preview"
	OpStatus   Operation = "session_status"
)

var genericMessages = map[Operation]string{
	OpUpload:   "Failed to upload document. Please try again.",
	OpStart:    "Failed to start session. Please try again.",
	OpContinue: "Failed to send message. Please try again.",
	OpGenerate: "Failed to generate document. Please try again.",
	OpPreview:  "Failed to load document preview. Please try again.",
	OpStatus:   "Failed to fetch session status. Please try again.",
}

// GenericMessage is the user-facing text for op when nothing better is known.
func GenericMessage(op Operation) string {
	if msg, ok := genericMessages[op]; ok {
		return msg
	}
	return "Something went wrong. Please try again."
}

// APIError is a failed backend call. Detail is safe to show to the user
// verbatim; Err holds the transport error, if any.
type APIError struct {
	Op         Operation
	StatusCode int
	Detail     string
	Code       string
	Err        error
}

func (e *APIError) Error() string {
	return e.Detail
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func transportError(op Operation, err error) *APIError {
	return &APIError{Op: op, Detail: GenericMessage(op), Err: err}
}

// statusError builds an APIError from a non-success response body.
func statusError(op Operation, status int, body []byte) *APIError {
	detail, code := extractDetail(body)
	if detail == "" {
		detail = GenericMessage(op)
	}
	return &APIError{Op: op, StatusCode: status, Detail: detail, Code: code}
}

// errorBody covers the shapes the backend uses for failures: FastAPI's
// {"detail": "..."} or {"detail": [{"msg": ...}]}, plus error/message keys.
type errorBody struct {
	Detail    json.RawMessage `json:"detail"`
	Error     string          `json:"error"`
	Message   string          `json:"message"`
	Code      string          `json:"code"`
	ErrorCode string          `json:"error_code"`
}

func extractDetail(body []byte) (detail, code string) {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return "", ""
	}

	code = eb.Code
	if code == "" {
		code = eb.ErrorCode
	}

	if len(eb.Detail) > 0 {
		var s string
		if err := json.Unmarshal(eb.Detail, &s); err == nil && s != "" {
			return s, code
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(eb.Detail, &items); err == nil {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				if it.Msg != "" {
					msgs = append(msgs, it.Msg)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; "), code
			}
		}
	}
	if eb.Error != "" {
		return eb.Error, code
	}
	return eb.Message, code
}

// Banner titles for classified failures.
const (
	BannerNoPlaceholders = "No Placeholders Found"
	BannerUpload         = "Upload Error"
	BannerGeneric        = "Error"
)

// Banner is a classified, displayable failure.
type Banner struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// ClassifyError turns any error into a banner. A structured code from the
// backend wins; otherwise the detail text is matched against known phrases.
func ClassifyError(err error) Banner {
	if err == nil {
		return Banner{}
	}

	detail := err.Error()
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		detail = apiErr.Detail
		switch strings.ToUpper(apiErr.Code) {
		case "NO_PLACEHOLDERS", "NO_PLACEHOLDERS_FOUND":
			return Banner{Title: BannerNoPlaceholders, Detail: detail}
		case "UPLOAD_ERROR", "INVALID_FILE":
			return Banner{Title: BannerUpload, Detail: detail}
		}
	}

	return Banner{Title: classifyDetail(detail), Detail: detail}
}

func classifyDetail(detail string) string {
	lower := strings.ToLower(detail)
	switch {
	case strings.Contains(lower, "no placeholders"),
		strings.Contains(lower, "no placeholder"),
		strings.Contains(lower, "placeholders not found"):
		return BannerNoPlaceholders
	case strings.Contains(lower, "upload"),
		strings.Contains(lower, "invalid file"),
		strings.Contains(lower, ".docx"):
		return BannerUpload
	}
	return BannerGeneric
}

// describe is used in log lines where the user-facing detail is not enough.
func describe(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Err != nil {
		return fmt.Sprintf("%s: %v", apiErr.Detail, apiErr.Err)
	}
	return err.Error()
}
