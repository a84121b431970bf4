package document

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/okian/orgchart/internal/domain/hierarchy"
	"github.com/okian/orgchart/internal/domain/model"
)

// Format names a document encoding.
type Format string

// Supported formats.
const (
	FormatMarkdown Format = "md"
	FormatJSON     Format = "json"
)

// ParseFormat accepts "md", "markdown" and "json".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "md", "markdown":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// FormatOf guesses the format from a file extension, defaulting to markdown.
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatMarkdown
}

// Decode parses r in the given format.
func Decode(r io.Reader, f Format) ([]model.Entry, error) {
	switch f {
	case FormatJSON:
		return ParseJSON(r)
	case FormatMarkdown, "":
		return Parse(r)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// Encode writes chart in the given format.
func Encode(w io.Writer, chart *model.OrgChart, f Format) error {
	switch f {
	case FormatJSON:
		return RenderJSON(w, chart)
	case FormatMarkdown, "":
		return Render(w, chart)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// LoadChart parses a document and builds a validated chart from it.
func LoadChart(r io.Reader, f Format, opts ...hierarchy.Option) (*model.OrgChart, error) {
	entries, err := Decode(r, f)
	if err != nil {
		return nil, err
	}
	chart, err := hierarchy.FromEntries(entries, opts...)
	if err != nil {
		return nil, fmt.Errorf("build chart: %w", err)
	}
	return chart, nil
}

// LoadString is LoadChart over an in-memory document.
func LoadString(doc string, f Format, opts ...hierarchy.Option) (*model.OrgChart, error) {
	return LoadChart(strings.NewReader(doc), f, opts...)
}

// ReadFile reads a document file whole; the format follows the extension.
func ReadFile(path string) ([]byte, Format, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	return raw, FormatOf(path), nil
}

// LoadFile reads and builds a chart from path.
func LoadFile(path string, opts ...hierarchy.Option) (*model.OrgChart, error) {
	raw, f, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	chart, err := LoadChart(bytes.NewReader(raw), f, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return chart, nil
}
