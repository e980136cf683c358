// Package parser reads uploaded transcripts and intake documents into a
// doctree.DocTree and from there into a single narrative string.
package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/storysignals/internal/doctree"
)

// Parser converts raw document bytes into a DocTree.
type Parser interface {
	Parse(r io.Reader, filename string) (*doctree.DocTree, error)
}

// Options tune individual parsers.
type Options struct {
	PDFFallbackPdftotext bool
}

// formats maps extensions to the format label reported in telemetry.
var formats = map[string]string{
	".txt":      "txt",
	".md":       "md",
	".markdown": "md",
	".csv":      "csv",
	".html":     "html",
	".htm":      "html",
	".pdf":      "pdf",
	".docx":     "docx",
	".vtt":      "vtt",
	".srt":      "srt",
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	switch Format(filename) {
	case "txt":
		return &TextParser{}, nil
	case "md":
		return &MarkdownParser{}, nil
	case "csv":
		return &CSVParser{}, nil
	case "html":
		return &HTMLParser{}, nil
	case "pdf":
		return &PDFParser{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case "docx":
		return &DOCXParser{}, nil
	case "vtt", "srt":
		return &SubtitleParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", filepath.Ext(filename))
	}
}

// Format returns the format label for filename, or "" when unsupported.
func Format(filename string) string {
	return formats[strings.ToLower(filepath.Ext(filename))]
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	return Format(filename) != ""
}

// baseTitle strips the extension from filename.
func baseTitle(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}
