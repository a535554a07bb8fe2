// Package htmlmd converts a sanitized HTML fragment (as a goquery selection)
// into Markdown text, the shared final step of every structure processor's
// description/content extraction. Fragments are sanitized with bluemonday
// before conversion so malformed or unexpected markup in a documentation
// page cannot inject unwanted tags into the extracted description.
package htmlmd

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// sanitizePolicy strips everything except the inline/structural elements a
// documentation page's body reasonably carries; scripts, styles, and event
// handlers never survive into extracted descriptions.
var sanitizePolicy = bluemonday.UGCPolicy()

// FromSelection sanitizes sel's HTML content with bluemonday, then renders
// the sanitized tree as Markdown text. Sanitizing before parsing, rather
// than after, ensures stripped markup never reaches renderNode.
func FromSelection(sel *goquery.Selection) string {
	raw, err := sel.Html()
	if err != nil {
		return ""
	}

	clean := sanitizePolicy.Sanitize(raw)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(clean))
	if err != nil {
		return ""
	}

	var buf strings.Builder

	doc.Find("body").Contents().Each(func(_ int, node *goquery.Selection) {
		renderNode(&buf, node)
	})

	return strings.TrimSpace(collapseBlankLines(buf.String()))
}

func renderNode(buf *strings.Builder, node *goquery.Selection) {
	if goquery.NodeName(node) == "#text" {
		buf.WriteString(node.Text())
		return
	}

	switch goquery.NodeName(node) {
	case "p":
		buf.WriteString("\n\n")
		buf.WriteString(inlineText(node))
		buf.WriteString("\n\n")
	case "h1", "h2", "h3", "h4", "h5", "h6":
		level := int(goquery.NodeName(node)[1] - '0')
		buf.WriteString("\n\n")
		buf.WriteString(strings.Repeat("#", level))
		buf.WriteString(" ")
		buf.WriteString(inlineText(node))
		buf.WriteString("\n\n")
	case "pre":
		lang := ""
		if node.Find("code.python, code.highlight-python").Length() > 0 {
			lang = "python"
		}

		buf.WriteString("\n\n```")
		buf.WriteString(lang)
		buf.WriteString("\n")
		buf.WriteString(strings.TrimRight(node.Text(), "\n"))
		buf.WriteString("\n```\n\n")
	case "code":
		buf.WriteString("`")
		buf.WriteString(node.Text())
		buf.WriteString("`")
	case "ul", "ol":
		buf.WriteString("\n")
		node.Children().Filter("li").Each(func(i int, li *goquery.Selection) {
			marker := "-"
			if goquery.NodeName(node) == "ol" {
				marker = itoa(i+1) + "."
			}

			buf.WriteString(marker)
			buf.WriteString(" ")
			buf.WriteString(inlineText(li))
			buf.WriteString("\n")
		})
		buf.WriteString("\n")
	case "a":
		href, _ := node.Attr("href")
		buf.WriteString("[")
		buf.WriteString(node.Text())
		buf.WriteString("](")
		buf.WriteString(href)
		buf.WriteString(")")
	case "strong", "b":
		buf.WriteString("**")
		buf.WriteString(node.Text())
		buf.WriteString("**")
	case "em", "i":
		buf.WriteString("*")
		buf.WriteString(node.Text())
		buf.WriteString("*")
	case "br":
		buf.WriteString("\n")
	case "dt":
		buf.WriteString("\n\n**")
		buf.WriteString(inlineText(node))
		buf.WriteString("**\n\n")
	case "dd":
		buf.WriteString(inlineText(node))
		buf.WriteString("\n\n")
	default:
		node.Contents().Each(func(_ int, child *goquery.Selection) {
			renderNode(buf, child)
		})
	}
}

// inlineText renders a node's children inline, recursing into the same
// node-rendering logic but without the block-level wrapping newlines a
// top-level call would add.
func inlineText(node *goquery.Selection) string {
	var buf strings.Builder

	node.Contents().Each(func(_ int, child *goquery.Selection) {
		switch goquery.NodeName(child) {
		case "#text":
			buf.WriteString(child.Text())
		case "a":
			href, _ := child.Attr("href")
			buf.WriteString("[")
			buf.WriteString(child.Text())
			buf.WriteString("](")
			buf.WriteString(href)
			buf.WriteString(")")
		case "code":
			buf.WriteString("`")
			buf.WriteString(child.Text())
			buf.WriteString("`")
		case "strong", "b":
			buf.WriteString("**")
			buf.WriteString(child.Text())
			buf.WriteString("**")
		case "em", "i":
			buf.WriteString("*")
			buf.WriteString(child.Text())
			buf.WriteString("*")
		default:
			buf.WriteString(child.Text())
		}
	})

	return strings.TrimSpace(buf.String())
}

func collapseBlankLines(s string) string {
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}

	return s
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}

	neg := n < 0
	if neg {
		n = -n
	}

	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}

	if neg {
		return "-" + string(digits)
	}

	return string(digits)
}

// Snippet returns the first n characters of s, suffixed with "..." if truncated.
func Snippet(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}

	return string(runes[:n]) + "..."
}
