package importer

import (
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/nikbrunner/deskmark/internal/model"
)

// level collects the items of one folder while it is being parsed.
type level struct {
	meta  model.Meta
	items model.Items
}

// ParseHTML parses Netscape bookmark HTML into an item tree. Folders and
// bookmarks keep document order; <DD> descriptions become notes. Positions
// are left at zero for the caller to lay out.
func ParseHTML(r io.Reader) (model.Items, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	stack := []*level{{}} // root at the bottom
	var pending *level    // folder waiting to be pushed on next DL

	top := func() *level { return stack[len(stack)-1] }

	// flush adds a folder that never got a DL as an empty folder.
	flush := func() {
		if pending != nil {
			top().items = append(top().items, model.Folder{Meta: pending.meta, Children: model.Items{}})
			pending = nil
		}
	}

	var parse func(*html.Node)
	parse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch strings.ToLower(n.Data) {
			case "h3":
				flush()
				name := getTextContent(n)
				if name != "" {
					folder := model.NewFolder(model.NewFolderParams{Name: name})
					pending = &level{meta: folder.Meta}
				}
				return // Don't recurse into H3

			case "a":
				flush()
				href := strings.TrimSpace(getAttr(n, "href"))
				if href == "" {
					// Skip bookmarks without URL
					return
				}

				name := getTextContent(n)
				if name == "" {
					name = href // fallback to URL as name
				}

				top().items = append(top().items, model.NewBookmark(model.NewBookmarkParams{
					Name: name,
					URL:  href,
				}))
				return // Don't recurse into A

			case "dd":
				// Description of the item just before it
				notes := ownText(n)
				if notes == "" {
					break
				}
				if pending != nil {
					pending.meta.Notes = notes
					break
				}
				if items := top().items; len(items) > 0 {
					last := items[len(items)-1]
					m := last.Base()
					m.Notes = notes
					items[len(items)-1] = model.WithMeta(last, m)
				}

			case "dl":
				// Definition list - marks folder contents
				pushed := false
				if pending != nil {
					stack = append(stack, pending)
					pending = nil
					pushed = true
				}

				for c := n.FirstChild; c != nil; c = c.NextSibling {
					parse(c)
				}
				flush()

				if pushed {
					done := top()
					stack = stack[:len(stack)-1]
					children := done.items
					if children == nil {
						children = model.Items{}
					}
					top().items = append(top().items, model.Folder{Meta: done.meta, Children: children})
				}
				return // Don't recurse further, we handled children
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			parse(c)
		}
	}

	parse(doc)
	flush()

	if stack[0].items == nil {
		return model.Items{}, nil
	}
	return stack[0].items, nil
}

// getTextContent returns the text content of a node.
func getTextContent(n *html.Node) string {
	var text strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(text.String())
}

// ownText returns the text of n's direct text children only.
func ownText(n *html.Node) string {
	var text strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			text.WriteString(c.Data)
		}
	}
	return strings.TrimSpace(text.String())
}

// getAttr returns the value of an attribute, case-insensitive.
func getAttr(n *html.Node, key string) string {
	key = strings.ToLower(key)
	for _, attr := range n.Attr {
		if strings.ToLower(attr.Key) == key {
			return attr.Val
		}
	}
	return ""
}
