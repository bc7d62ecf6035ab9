// Package extract pulls raw text and a page count out of uploaded
// study files. PDF is the first-class format; HTML and plain text are
// accepted as single-page documents.
package extract

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/studyhall/backend/pkg/logger"
)

// ErrUnsupportedType reports a file type the extractor cannot handle.
type ErrUnsupportedType struct {
	FileType string
}

func (e *ErrUnsupportedType) Error() string {
	return fmt.Sprintf("unsupported file type: %s", e.FileType)
}

// Result is the extracted text plus the source's page count.
type Result struct {
	Text      string
	PageCount int
}

var whitespaceRE = regexp.MustCompile(`\s+`)

// Extract dispatches on fileType ("pdf", "html", "txt").
func Extract(path, fileType string) (*Result, error) {
	switch strings.ToLower(fileType) {
	case "pdf":
		return extractPDF(path)
	case "html", "htm":
		return extractHTML(path)
	case "txt", "text":
		return extractText(path)
	default:
		return nil, &ErrUnsupportedType{FileType: fileType}
	}
}

// extractPDF reads every page, tolerating pages that fail to yield
// text. An entirely empty PDF is an error.
func extractPDF(path string) (*Result, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	totalPages := r.NumPage()
	var builder strings.Builder
	skipped := 0

	for pageIndex := 1; pageIndex <= totalPages; pageIndex++ {
		p := r.Page(pageIndex)
		if p.V.IsNull() {
			skipped++
			continue
		}

		text, err := p.GetPlainText(nil)
		if err != nil {
			logger.Warn("Failed to extract pdf page",
				zap.String("path", path),
				zap.Int("page", pageIndex),
				zap.Error(err),
			)
			skipped++
			continue
		}

		text = strings.TrimSpace(text)
		if text == "" {
			skipped++
			continue
		}

		if builder.Len() > 0 {
			builder.WriteString("\n\n")
		}
		builder.WriteString(text)
	}

	if builder.Len() == 0 {
		return nil, fmt.Errorf("no text content found in pdf")
	}

	logger.Info("PDF text extracted",
		zap.String("path", path),
		zap.Int("pages", totalPages),
		zap.Int("skipped_pages", skipped),
	)

	return &Result{Text: builder.String(), PageCount: totalPages}, nil
}

func extractHTML(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read html file: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	doc.Find("script, style, nav, footer, header, aside").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	text := doc.Find("body").Text()
	text = whitespaceRE.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)

	if text == "" {
		return nil, fmt.Errorf("no text content found in html")
	}

	return &Result{Text: text, PageCount: 1}, nil
}

func extractText(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read text file: %w", err)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, fmt.Errorf("text file is empty")
	}

	return &Result{Text: text, PageCount: 1}, nil
}
