// Package output converts and writes rendered templates.
package output

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Format names an output conversion.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
)

// Formats lists the accepted format names.
var Formats = []string{string(FormatText), string(FormatMarkdown)}

// Converter turns rendered text into its final form.
type Converter interface {
	Convert(src []byte, out io.Writer) error
}

type textConverter struct{}

func (textConverter) Convert(src []byte, out io.Writer) error {
	_, err := out.Write(src)
	return err
}

// markdownConverter renders GitHub flavoured markdown to HTML. Raw HTML in
// the rendered text is kept.
type markdownConverter struct {
	md goldmark.Markdown
}

func (m markdownConverter) Convert(src []byte, out io.Writer) error {
	return m.md.Convert(src, out)
}

var markdown = markdownConverter{md: goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithUnsafe()),
)}

// NewConverter returns the converter for f.
func NewConverter(f Format) (Converter, error) {
	switch f {
	case FormatText, "":
		return textConverter{}, nil
	case FormatMarkdown:
		return markdown, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", f)
	}
}

// Writer sends converted output to a file or to a stream.
type Writer struct {
	conv Converter
}

// NewWriter returns a writer applying conv to everything it writes.
func NewWriter(conv Converter) *Writer {
	if conv == nil {
		conv = textConverter{}
	}
	return &Writer{conv: conv}
}

func (w *Writer) convert(text string) ([]byte, error) {
	var buf bytes.Buffer
	if err := w.conv.Convert([]byte(text), &buf); err != nil {
		return nil, fmt.Errorf("converting output: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteTo writes the converted text to out.
func (w *Writer) WriteTo(out io.Writer, text string) error {
	data, err := w.convert(text)
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}

// WriteFile replaces path with the converted text. Readers see either the
// old file or the complete new one. Parent directories are created.
func (w *Writer) WriteFile(path, text string) error {
	data, err := w.convert(text)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
