// Package extract turns raw article HTML into plain text and pre-filters
// it by keyword before the expensive LLM pass.
package extract

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/railwatch/railwatch/internal/model"
)

// ArticleParser extracts the readable text of a news page.
type ArticleParser struct {
	minTextLength int
}

// NewArticleParser creates a parser. Extractions shorter than minTextLength
// runes are rejected as boilerplate-only pages.
func NewArticleParser(minTextLength int) *ArticleParser {
	if minTextLength <= 0 {
		minTextLength = 200
	}
	return &ArticleParser{minTextLength: minTextLength}
}

// Parse extracts title and visible text from an HTML document.
func (p *ArticleParser) Parse(pageURL, htmlContent string) (*model.ParsedArticle, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	text := extractVisibleText(doc)
	if len([]rune(text)) < p.minTextLength {
		return nil, fmt.Errorf("extracted text too short (%d chars)", len([]rune(text)))
	}

	return &model.ParsedArticle{
		URL:   pageURL,
		Title: extractTitle(doc),
		Text:  text,
	}, nil
}

// extractVisibleText collects text nodes, skipping non-content tags.
func extractVisibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "nav", "footer", "header", "aside":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return strings.TrimSpace(buf.String())
}

func extractTitle(n *html.Node) string {
	var title string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return title
}
