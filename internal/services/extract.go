package services

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Extraction caps. Every text body is truncated before it reaches the
// context; links are collected from the raw markup, not the stripped text.
const (
	pageTextCap       = 20000
	pdfTextCap        = 20000
	pdfMaxPages       = 50
	transcriptCap     = 25000
	assignmentDescCap = 10000
	maxExtractedLinks = 10
)

var (
	lineBreakPattern  = regexp.MustCompile(`(?i)(<br\s*/?>|</p>|</div>|<p>)`)
	htmlTagPattern    = regexp.MustCompile(`<[^>]+>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	hrefPattern       = regexp.MustCompile(`href=["']([^"']+)["']`)
)

// StripHTML flattens markup to plain text: block-level breaks become
// newlines so adjacent words stay separated, tags are removed, entities
// unescaped, and all whitespace collapsed to single spaces.
func StripHTML(src string) string {
	s := lineBreakPattern.ReplaceAllString(src, "\n")
	s = htmlTagPattern.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}

// ExtractLinks collects outbound href targets from raw markup, capped at
// maxExtractedLinks.
func ExtractLinks(src string) []string {
	var links []string
	for _, m := range hrefPattern.FindAllStringSubmatch(src, -1) {
		links = append(links, m[1])
		if len(links) == maxExtractedLinks {
			break
		}
	}
	return links
}

// TruncateText cuts s to at most limit runes. Rune-based so a multi-byte
// character is never split.
func TruncateText(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// pdfPageSource is the slice of a PDF reader the collector walks: a page
// count and per-page plain text (1-based).
type pdfPageSource interface {
	NumPage() int
	PageText(i int) (string, error)
}

type pdfReaderSource struct {
	reader *pdf.Reader
}

func (s pdfReaderSource) NumPage() int { return s.reader.NumPage() }

func (s pdfReaderSource) PageText(i int) (string, error) {
	page := s.reader.Page(i)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

// ExtractPDFText pulls plain text out of in-memory PDF bytes, reading at
// most pdfMaxPages pages and capping the result at pdfTextCap runes.
func ExtractPDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}
	return collectPDFText(pdfReaderSource{reader: reader}, pdfMaxPages, pdfTextCap)
}

func collectPDFText(src pdfPageSource, maxPages, textCap int) (string, error) {
	var b strings.Builder
	pages := src.NumPage()
	if pages > maxPages {
		pages = maxPages
	}

	for i := 1; i <= pages; i++ {
		content, err := src.PageText(i)
		if err != nil {
			continue
		}
		b.WriteString(content)
		b.WriteString("\n")
	}

	text := strings.TrimSpace(whitespacePattern.ReplaceAllString(b.String(), " "))
	if text == "" {
		return "", fmt.Errorf("no extractable text found in pdf")
	}
	return TruncateText(text, textCap), nil
}
