// Package export renders the active question set as a printable document.
package export

import (
	"context"
	"io"

	"github.com/pavelanni/pdfquiz/internal/model"
)

// Labels are the headings printed in the document.
type Labels struct {
	Title        string
	MCQ          string
	ShortAnswer  string
	SourcePrefix string
}

// DefaultLabels returns the English headings.
func DefaultLabels() Labels {
	return Labels{
		Title:        "Generated Questions",
		MCQ:          "Multiple Choice Questions",
		ShortAnswer:  "Short Answer Questions",
		SourcePrefix: "Source",
	}
}

const printStyle = `<style>body{font-family:Arial,Helvetica,sans-serif;font-size:12pt;margin:2cm;color:#000}
h1{font-size:16pt}h2{font-size:14pt;margin-top:1.5em}
ol.questions>li{margin-bottom:1em}
ul.options{list-style:none;padding-left:1.5em;margin:.3em 0}
.source{color:#555;font-style:italic}</style>`

// RenderHTML writes the document to w.
func RenderHTML(ctx context.Context, w io.Writer, set model.QuestionSet, l Labels) error {
	return Document(set, l).Render(ctx, w)
}
