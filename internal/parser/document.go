package parser

import (
	"fmt"
	"io"
	"time"

	"github.com/dgallion1/storysignals/internal/telemetry"
)

// Document is one parsed upload, reduced to its narrative.
type Document struct {
	Title     string
	Format    string
	Narrative string
	SizeBytes int64
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// Read parses r as filename and reports a structural DocumentRecord to rec
// (which may be nil) whether or not parsing succeeds.
func Read(r io.Reader, filename string, opts Options, rec *telemetry.Recorder) (Document, error) {
	start := time.Now()
	format := Format(filename)
	cr := &countingReader{r: r}

	doc, err := read(cr, filename, opts)
	doc.Format = format
	doc.SizeBytes = cr.n

	rec.RecordDocument(telemetry.DocumentRecord{
		Format:     format,
		SizeBytes:  cr.n,
		ParseMs:    float64(time.Since(start).Microseconds()) / 1000,
		TextLength: len(doc.Narrative),
		Success:    err == nil,
	})
	return doc, err
}

func read(r io.Reader, filename string, opts Options) (Document, error) {
	p, err := ForFile(filename, opts)
	if err != nil {
		return Document{}, err
	}
	tree, err := p.Parse(r, filename)
	if err != nil {
		return Document{}, fmt.Errorf("parse %s: %w", Format(filename), err)
	}
	return Document{Title: tree.Title, Narrative: Narrative(tree)}, nil
}
