// Package pdftext pulls raw text and inline visual-reference markers out of
// a PDF's binary content. It performs no I/O of its own.
package pdftext

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"coeus/internal/util"

	"github.com/ledongthuc/pdf"
)

// Visual markers are markdown-image-like tokens embedded in the page text,
// e.g. "![figure 2](fig2.png)".
var imgMarkerRE = regexp.MustCompile(`!\[.*?\]\(.*?\)`)

var (
	newlineRunRE = regexp.MustCompile(`\n{3,}`)
	spaceRunRE   = regexp.MustCompile(` {2,}`)
)

// Extract parses the document bytes and returns the cleaned text plus the
// visual markers in their original order. It returns util.ErrNoTextFound when
// nothing selectable remains after markers and whitespace are stripped.
func Extract(raw []byte) (string, []string, error) {
	r, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", nil, fmt.Errorf("open pdf: %w", err)
	}
	reader, err := r.GetPlainText()
	if err != nil {
		return "", nil, fmt.Errorf("extract pdf text: %w", err)
	}
	buf := new(strings.Builder)
	if _, err := io.Copy(buf, reader); err != nil {
		return "", nil, fmt.Errorf("read extracted text: %w", err)
	}
	return Clean(buf.String())
}

// Clean strips visual markers from already-extracted page text, collapses
// runs of 3+ newlines to a blank line, and drops control characters. Markers
// are collected before stripping so their document order is preserved.
func Clean(raw string) (string, []string, error) {
	visuals := imgMarkerRE.FindAllString(raw, -1)
	clean := imgMarkerRE.ReplaceAllString(raw, "")
	clean = newlineRunRE.ReplaceAllString(clean, "\n\n")
	clean = spaceRunRE.ReplaceAllString(clean, " ")
	clean = util.SanitizeText(clean)
	if clean == "" {
		return "", nil, util.ErrNoTextFound
	}
	return clean, visuals, nil
}
