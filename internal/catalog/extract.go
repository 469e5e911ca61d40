package catalog

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

const summaryLimit = 240

// extract pulls the first heading and the first paragraph out of rendered
// README HTML. Parse failures yield empty strings; the card just shows less.
func extract(r io.Reader) (title, summary string) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", ""
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if title != "" && summary != "" {
			return
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "h1", "h2":
				if title == "" {
					title = strings.TrimSpace(textContent(n))
				}
			case "p":
				if summary == "" {
					summary = clip(strings.TrimSpace(textContent(n)), summaryLimit)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title, summary
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func clip(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := strings.LastIndexByte(s[:limit], ' ')
	if cut <= 0 {
		cut = limit
	}
	return s[:cut] + "…"
}
