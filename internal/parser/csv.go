package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/storysignals/internal/doctree"
)

// CSVParser handles intake-form exports. The first row is the header; each
// following row becomes one node of "header: value" lines, skipping empty
// cells.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	tree := &doctree.DocTree{Title: baseTitle(filename)}
	if len(records) == 0 {
		return tree, nil
	}

	headers := records[0]
	for i, row := range records[1:] {
		var text strings.Builder
		for j, cell := range row {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			if text.Len() > 0 {
				text.WriteString("\n")
			}
			if j < len(headers) && strings.TrimSpace(headers[j]) != "" {
				text.WriteString(strings.TrimSpace(headers[j]) + ": ")
			}
			text.WriteString(cell)
		}
		if text.Len() == 0 {
			continue
		}
		tree.Children = append(tree.Children, &doctree.DocNode{
			Title: fmt.Sprintf("Row %d", i+2), // 1-indexed, after header
			Text:  text.String(),
			Page:  i + 2,
		})
	}
	return tree, nil
}
