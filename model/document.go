package model

import (
	"fmt"
	"strings"
)

// DocumentID is the opaque handle the backend issues on upload.
type DocumentID string

// SessionID is the opaque handle the backend issues when a placeholder
// conversation starts. It is only valid with the DocumentID it was created for.
type SessionID string

func (id DocumentID) String() string { return string(id) }
func (id SessionID) String() string  { return string(id) }

// Variant selects the backend pipeline a document is processed by.
type Variant string

const (
	// VariantV1 is the direct function-calling pipeline.
	VariantV1 Variant = "v1"
	// VariantV2 is the tool-using agent pipeline.
	VariantV2 Variant = "v2"
)

// Variants lists the recognised variants in display order.
var Variants = []Variant{VariantV1, VariantV2}

// ParseVariant accepts "v1" or "v2" (case-insensitive). An empty string
// yields VariantV1.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(VariantV1):
		return VariantV1, nil
	case string(VariantV2):
		return VariantV2, nil
	}
	return "", fmt.Errorf("unknown processing variant %q", s)
}

// OrDefault returns v, or VariantV1 when v is not a recognised variant.
func (v Variant) OrDefault() Variant {
	if v.Valid() {
		return v
	}
	return VariantV1
}

func (v Variant) Valid() bool {
	return v == VariantV1 || v == VariantV2
}

// Label is the human readable pipeline name shown next to the selector.
func (v Variant) Label() string {
	switch v {
	case VariantV2:
		return "Agent with tools"
	default:
		return "Direct function calling"
	}
}

func (v Variant) String() string { return string(v) }

// UploadResult is what the backend returns for an accepted template.
type UploadResult struct {
	DocumentID DocumentID
	Title      string
	Message    string
}
