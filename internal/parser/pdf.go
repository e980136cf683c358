package parser

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/dgallion1/storysignals/internal/doctree"
)

// PDFParser handles PDF transcripts. It reads pages with the Go library
// and, when enabled, retries with pdftotext if that yields nothing usable.
type PDFParser struct {
	FallbackPdftotext bool
}

func (p *PDFParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	tmp, err := spool(r, "storysignals-pdf-*.pdf")
	if err != nil {
		return nil, err
	}
	path := tmp.Name()
	tmp.Close()
	defer os.Remove(path)

	pages, err := libraryPages(path)
	if (err != nil || blank(pages)) && p.FallbackPdftotext {
		pages, err = pdftotextPages(path)
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	tree := &doctree.DocTree{Title: baseTitle(filename)}
	for i, page := range pages {
		page = stripPageMarkers(page)
		if page == "" {
			continue
		}
		tree.Children = append(tree.Children, &doctree.DocNode{Text: page, Page: i + 1})
	}
	return tree, nil
}

// libraryPages returns one string per page. Unreadable pages are empty
// rather than fatal.
func libraryPages(path string) ([]string, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pages := make([]string, reader.NumPage())
	for i := range pages {
		page := reader.Page(i + 1)
		if page.V.IsNull() {
			continue
		}
		if text, err := page.GetPlainText(nil); err == nil {
			pages[i] = text
		}
	}
	return pages, nil
}

func pdftotextPages(path string) ([]string, error) {
	out, err := exec.Command("pdftotext", "-enc", "UTF-8", path, "-").Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}
	return strings.Split(string(out), "\f"), nil
}

func blank(pages []string) bool {
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			return false
		}
	}
	return true
}

// pageMarkerRe matches footer lines like "3", "- 3 -" or "Page 3 of 7".
// Left in, they read as bare amounts.
var pageMarkerRe = regexp.MustCompile(`(?i)^\s*(?:page\s+)?-?\s*\d{1,4}\s*-?(?:\s+of\s+\d{1,4})?\s*$`)

func stripPageMarkers(page string) string {
	lines := strings.Split(page, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if !pageMarkerRe.MatchString(l) {
			kept = append(kept, l)
		}
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
