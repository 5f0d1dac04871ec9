// Package extract turns PDF bytes into plain text with a page count.
package extract

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/pavelanni/pdfquiz/internal/model"
)

// ErrNoPages is reported for documents that open but contain no pages.
var ErrNoPages = errors.New("document has no pages")

// Error reports a document that could not be read. Generation skips such
// documents and continues with the rest.
type Error struct {
	Filename string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("extract text from %s: %v", e.Filename, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Extractor produces a SourceDocument from PDF bytes.
type Extractor interface {
	Extract(filename string, data []byte) (model.SourceDocument, error)
}

// PDF extracts text with MuPDF.
type PDF struct{}

// NewPDF returns a MuPDF-backed Extractor.
func NewPDF() *PDF {
	return &PDF{}
}

// Extract reads every page of the document. Page texts are joined with a
// trailing newline after each page.
func (PDF) Extract(filename string, data []byte) (model.SourceDocument, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return model.SourceDocument{}, &Error{Filename: filename, Err: err}
	}
	defer doc.Close()

	pages := doc.NumPage()
	if pages < 1 {
		return model.SourceDocument{}, &Error{Filename: filename, Err: ErrNoPages}
	}

	var b strings.Builder
	for i := range pages {
		text, err := doc.Text(i)
		if err != nil {
			return model.SourceDocument{}, &Error{Filename: filename, Err: fmt.Errorf("page %d: %w", i+1, err)}
		}
		b.WriteString(text)
		b.WriteString("\n")
	}

	slog.Debug("extracted PDF text", "file", filename, "pages", pages, "chars", b.Len())
	return model.SourceDocument{
		Filename:  filename,
		Text:      b.String(),
		PageCount: pages,
	}, nil
}

// Files extracts each path with ex. Unreadable files are returned as errors
// alongside the documents that succeeded.
func Files(ex Extractor, paths []string) ([]model.SourceDocument, []error) {
	var (
		docs []model.SourceDocument
		errs []error
	)
	for _, p := range paths {
		name := filepath.Base(p)
		data, err := os.ReadFile(p)
		if err != nil {
			errs = append(errs, &Error{Filename: name, Err: err})
			continue
		}
		doc, err := ex.Extract(name, data)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, errs
}
