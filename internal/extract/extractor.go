// Package extract turns uploaded document bytes into plain text. The rest of
// the system treats it as a black box byte-buffer → text function.
package extract

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/h2non/filetype"
)

// ErrUnsupportedType is returned for file formats this build cannot extract
// text from.
var ErrUnsupportedType = errors.New("unsupported file type")

// ErrEmptyFile is returned before any extraction is attempted on an empty
// buffer.
var ErrEmptyFile = errors.New("empty file")

// ExtractionError reports a supported file that failed to extract.
type ExtractionError struct {
	Detail string
	Err    error
}

func (e *ExtractionError) Error() string {
	return "extraction failed: " + e.Detail
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Extractor converts document bytes into plain text.
type Extractor interface {
	ExtractText(data []byte, declaredType string) (string, error)
}

// declared content types accepted without sniffing.
var textTypes = map[string]bool{
	"text/plain":       true,
	"text/markdown":    true,
	"application/json": true,
}

// TextExtractor handles plain-text documents and rejects binary formats by
// magic-byte sniffing. PDF and Word extraction is delegated to a richer
// implementation behind the same interface.
type TextExtractor struct{}

// NewTextExtractor creates a TextExtractor.
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

// ExtractText returns the text content of data. Empty buffers are rejected up
// front; recognized binary formats and invalid UTF-8 are unsupported.
func (x *TextExtractor) ExtractText(data []byte, declaredType string) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyFile
	}

	if base, _, ok := strings.Cut(declaredType, ";"); ok {
		declaredType = base
	}
	declaredType = strings.TrimSpace(declaredType)

	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, kind.MIME.Value)
	}

	if declaredType != "" && !textTypes[declaredType] && !strings.HasPrefix(declaredType, "text/") {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, declaredType)
	}

	if !utf8.Valid(data) {
		return "", &ExtractionError{Detail: "document is not valid UTF-8 text"}
	}

	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.TrimSpace(text)
	if text == "" {
		return "", &ExtractionError{Detail: "document contains no text"}
	}
	return text, nil
}

var _ Extractor = (*TextExtractor)(nil)
