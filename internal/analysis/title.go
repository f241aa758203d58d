package analysis

import (
	"strings"

	"github.com/nao1215/httpreqs/internal/model"
	"golang.org/x/net/html"
)

// Title returns the text of the first <title> element in body, with
// whitespace collapsed. It returns an empty string when body has no title.
// Bodies that are not HTML are parsed leniently and simply yield no title.
func Title(body string) string {
	if body == "" {
		return ""
	}
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return ""
	}

	var title string
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "title" {
			var sb strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					sb.WriteString(c.Data)
				}
			}
			title = strings.Join(strings.Fields(sb.String()), " ")
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(doc)

	return title
}

// ResponseTitles returns the title of each response body in e, in request
// order. Requests without a response or body produce an empty string.
func ResponseTitles(e *model.Entry) []string {
	titles := make([]string, len(e.Requests))
	for i, rr := range e.Requests {
		if rr.Response != nil && rr.Response.Body != nil {
			titles[i] = Title(*rr.Response.Body)
		}
	}
	return titles
}
