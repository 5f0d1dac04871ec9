package extract

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// minimalPDF builds a small valid PDF with one page per text line.
func minimalPDF(t *testing.T, pages ...string) []byte {
	t.Helper()

	var objects []string
	kids := make([]string, len(pages))
	// 1: catalog, 2: pages, 3: font, then page/content pairs.
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	)
	for i, text := range pages {
		stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestPDFExtract(t *testing.T) {
	data := minimalPDF(t, "Mitochondria make energy", "Ribosomes make proteins")

	doc, err := NewPDF().Extract("cells.pdf", data)
	require.NoError(t, err)

	assert.Equal(t, "cells.pdf", doc.Filename)
	assert.Equal(t, 2, doc.PageCount)
	assert.Contains(t, doc.Text, "Mitochondria make energy")
	assert.Contains(t, doc.Text, "Ribosomes make proteins")
	assert.Less(t, strings.Index(doc.Text, "Mitochondria"), strings.Index(doc.Text, "Ribosomes"))
}

func TestPDFExtractInvalid(t *testing.T) {
	_, err := NewPDF().Extract("notes.pdf", []byte("this is not a pdf"))
	require.Error(t, err)

	var exErr *Error
	require.True(t, errors.As(err, &exErr), "expected *extract.Error, got %T", err)
	assert.Equal(t, "notes.pdf", exErr.Filename)
	assert.Contains(t, err.Error(), "notes.pdf")
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.pdf")
	bad := filepath.Join(dir, "bad.pdf")
	require.NoError(t, os.WriteFile(good, minimalPDF(t, "Hello"), 0o644))
	require.NoError(t, os.WriteFile(bad, []byte("garbage"), 0o644))

	docs, errs := Files(NewPDF(), []string{good, bad, filepath.Join(dir, "missing.pdf")})

	require.Len(t, docs, 1)
	assert.Equal(t, "good.pdf", docs[0].Filename)
	require.Len(t, errs, 2)
	for _, err := range errs {
		var exErr *Error
		assert.True(t, errors.As(err, &exErr))
	}
}
