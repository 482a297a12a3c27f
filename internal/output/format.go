// Package output renders experiment reports for people and programs.
// Text and markdown are styled only when writing to a terminal; JSON and YAML
// are always plain.
package output

import (
	"fmt"
	"strings"
)

// Format is an output encoding.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
)

// String returns the format as a string.
func (f Format) String() string {
	return string(f)
}

// IsValid returns true if this is a known format.
func (f Format) IsValid() bool {
	switch f {
	case FormatText, FormatMarkdown, FormatJSON, FormatYAML:
		return true
	default:
		return false
	}
}

// AllFormats returns all valid formats.
func AllFormats() []Format {
	return []Format{FormatText, FormatMarkdown, FormatJSON, FormatYAML}
}

// ParseFormat normalises s into a Format. Empty selects text; "md" and "yml"
// are accepted as aliases.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case "md":
		return FormatMarkdown, nil
	case "yml":
		return FormatYAML, nil
	default:
		if !f.IsValid() {
			return "", fmt.Errorf("invalid format %q (valid: %v)", s, AllFormats())
		}
		return f, nil
	}
}

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error   string `json:"error" yaml:"error"`
	Code    string `json:"code,omitempty" yaml:"code,omitempty"`
	Details string `json:"details,omitempty" yaml:"details,omitempty"`
}

// NewError creates an error response.
func NewError(msg string) ErrorResponse {
	return ErrorResponse{Error: msg}
}

// NewErrorWithCode creates an error response with a code.
func NewErrorWithCode(code, msg string) ErrorResponse {
	return ErrorResponse{Error: msg, Code: code}
}
