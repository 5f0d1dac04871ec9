package export

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/pavelanni/pdfquiz/internal/model"
)

// PDFRenderer prints the HTML document to PDF with a headless Chrome.
type PDFRenderer struct {
	// Timeout bounds one render including browser start-up.
	Timeout time.Duration
	// ExecPath overrides the Chrome binary. Empty uses chromedp's lookup.
	ExecPath string
}

// NewPDFRenderer returns a renderer with a 30 second timeout.
func NewPDFRenderer(execPath string) *PDFRenderer {
	return &PDFRenderer{Timeout: 30 * time.Second, ExecPath: execPath}
}

// Render returns the set as PDF bytes.
func (r *PDFRenderer) Render(ctx context.Context, set model.QuestionSet, l Labels) ([]byte, error) {
	var html bytes.Buffer
	if err := RenderHTML(ctx, &html, set, l); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if r.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(r.ExecPath))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, html.String()).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("print to PDF: %w", err)
	}
	return pdf, nil
}
