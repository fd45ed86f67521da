// Package textextract converts raw attachment bytes of arbitrary file
// type into normalized plain text. Extraction failures never surface as
// errors: an unreadable file contributes an empty string and the
// pipeline scores the rest.
package textextract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"veritext/config"
)

// Format tags the fixed set of extraction variants.
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
	FormatText     Format = "text"
	FormatFallback Format = "fallback"
)

type extractFunc func(raw []byte) (string, error)

// Registry maps formats to extractors. It is built once at startup; if
// a backend were unavailable its entry would deterministically return
// empty text instead of probing at call time.
type Registry struct {
	extractors map[Format]extractFunc
	maxChars   int
}

// NewRegistry builds the default registry with all backends wired.
func NewRegistry() *Registry {
	return &Registry{
		extractors: map[Format]extractFunc{
			FormatPDF:      extractPDF,
			FormatDOCX:     extractDOCX,
			FormatText:     extractPlainText,
			FormatFallback: extractFallback,
		},
		maxChars: config.MaxExtractedChars,
	}
}

// FormatFor derives the extraction format from a filename's extension.
func FormatFor(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return FormatPDF
	case ".docx", ".doc":
		return FormatDOCX
	case ".txt", ".md", ".html", ".htm", ".rtf":
		return FormatText
	default:
		return FormatFallback
	}
}

// Extract converts raw bytes into normalized, length-capped plain text.
// A failed extraction is logged and yields an empty string.
func (r *Registry) Extract(filename string, raw []byte) string {
	format := FormatFor(filename)
	fn, ok := r.extractors[format]
	if !ok {
		fn = extractFallback
	}

	text, err := fn(raw)
	if err != nil {
		log.Printf("Warning: extraction failed for %s (%s): %v", filename, format, err)
		return ""
	}

	return Truncate(NormalizeWhitespace(text), r.maxChars)
}

// NormalizeWhitespace collapses runs of whitespace to single spaces and
// trims the result.
func NormalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Truncate caps text at max bytes without splitting a multi-byte rune
// at the boundary.
func Truncate(text string, max int) string {
	if len(text) <= max {
		return text
	}
	for max > 0 && !utf8.RuneStart(text[max]) {
		max--
	}
	return text[:max]
}

func extractPDF(raw []byte) (text string, err error) {
	// The pdf library panics on some malformed inputs; treat that the
	// same as a parse error.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	total := reader.NumPage()
	for i := 1; i <= total; i++ {
		p := reader.Page(i)
		if p.V.IsNull() {
			continue
		}
		content, pageErr := p.GetPlainText(nil)
		if pageErr != nil {
			continue
		}
		b.WriteString(content)
		b.WriteString("\n")
	}
	return b.String(), nil
}

func extractDOCX(raw []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", err
	}

	var xmlData []byte
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			rc, openErr := f.Open()
			if openErr != nil {
				return "", openErr
			}
			xmlData, err = io.ReadAll(rc)
			rc.Close()
			if err != nil {
				return "", err
			}
			break
		}
	}
	if len(xmlData) == 0 {
		return "", errors.New("word/document.xml not found")
	}

	decoder := xml.NewDecoder(bytes.NewReader(xmlData))
	var b strings.Builder
	inText := false
	for {
		tok, tokenErr := decoder.Token()
		if tokenErr == io.EOF {
			break
		}
		if tokenErr != nil {
			return "", tokenErr
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
			if t.Name.Local == "p" && b.Len() > 0 {
				b.WriteString("\n")
			}
		case xml.EndElement:
			if t.Name.Local == "t" {
				inText = false
			}
		case xml.CharData:
			if inText {
				b.WriteString(string(t))
			}
		}
	}
	return b.String(), nil
}

func extractPlainText(raw []byte) (string, error) {
	return string(raw), nil
}

// extractFallback best-effort decodes unknown bytes as UTF-8. Payloads
// that are mostly invalid are treated as binary and yield nothing.
func extractFallback(raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	if utf8.Valid(raw) {
		return string(raw), nil
	}

	valid := 0
	for i := 0; i < len(raw); {
		r, size := utf8.DecodeRune(raw[i:])
		if r != utf8.RuneError || size > 1 {
			valid += size
		}
		i += size
	}
	if float64(valid)/float64(len(raw)) < 0.8 {
		return "", nil
	}
	return strings.ToValidUTF8(string(raw), ""), nil
}
