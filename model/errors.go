package model

import (
	"fmt"
	"strings"
)

// ErrorDetail is one entry of a validation failure.
type ErrorDetail struct {
	Type  string         `json:"type"`
	Loc   []any          `json:"loc"`
	Msg   string         `json:"msg"`
	Input any            `json:"input,omitempty"`
	Ctx   map[string]any `json:"ctx,omitempty"`
}

// ValidationError collects every failure found while validating one input.
type ValidationError struct {
	Title  string
	Errors []ErrorDetail
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	noun := "errors"
	if len(e.Errors) == 1 {
		noun = "error"
	}
	fmt.Fprintf(&b, "%d validation %s for %s", len(e.Errors), noun, e.Title)
	for _, d := range e.Errors {
		fmt.Fprintf(&b, "\n%s: %s [type=%s]", formatLoc(d.Loc), d.Msg, d.Type)
	}
	return b.String()
}

// Prefix returns a copy of the error with loc prepended to every entry.
func (e *ValidationError) Prefix(loc ...any) *ValidationError {
	out := &ValidationError{Title: e.Title, Errors: make([]ErrorDetail, len(e.Errors))}
	for i, d := range e.Errors {
		d.Loc = append(append([]any(nil), loc...), d.Loc...)
		out.Errors[i] = d
	}
	return out
}

func formatLoc(loc []any) string {
	if len(loc) == 0 {
		return "<root>"
	}
	parts := make([]string, len(loc))
	for i, l := range loc {
		parts[i] = fmt.Sprint(l)
	}
	return strings.Join(parts, ".")
}

// errorList accumulates details while walking a value.
type errorList []ErrorDetail

func (l *errorList) add(typ string, loc []any, msg string, input any) {
	*l = append(*l, ErrorDetail{
		Type:  typ,
		Loc:   append([]any{}, loc...),
		Msg:   msg,
		Input: input,
	})
}
