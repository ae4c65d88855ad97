package feed

import (
	"errors"
	"fmt"
)

var (
	ErrMissingTitle      = errors.New("title is required")
	ErrMissingAuthorName = errors.New("author name is required")
)

// MalformedFeedError is returned when the input cannot be recognized as an
// Atom or RSS document at all.
type MalformedFeedError struct {
	Reason string
	Err    error
}

func (e *MalformedFeedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed feed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed feed: %s", e.Reason)
}

func (e *MalformedFeedError) Unwrap() error {
	return e.Err
}

type TemplateNotFoundError struct {
	Name string
	Err  error
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("template '%s' not found", e.Name)
}

func (e *TemplateNotFoundError) Unwrap() error {
	return e.Err
}

// RenderError wraps a failure to substitute a feed into a template.
type RenderError struct {
	Template string
	Err      error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("failed to render template '%s': %v", e.Template, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}
