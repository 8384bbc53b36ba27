package application

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// splitFragmentBatch cuts a batch response into per-comment markup. The
// server wraps each comment's snippet in an element whose id is the target
// container ID; the part is that element's inner markup. The first element
// carrying a container ID wins. A single-comment batch without a keyed
// element is taken whole.
func splitFragmentBatch(body, containerPrefix string, commentIDs []string) (map[string]string, error) {
	nodes, err := html.ParseFragment(strings.NewReader(body), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return nil, fmt.Errorf("parse fragment batch: %w", err)
	}

	wanted := make(map[string]string, len(commentIDs))
	for _, id := range commentIDs {
		wanted[containerPrefix+"_"+id] = id
	}

	parts := make(map[string]string, len(commentIDs))
	var walk func(n *html.Node) error
	walk = func(n *html.Node) error {
		if n.Type == html.ElementNode {
			if commentID, ok := wanted[attrValue(n, "id")]; ok {
				if _, seen := parts[commentID]; !seen {
					inner, err := renderChildren(n)
					if err != nil {
						return err
					}
					parts[commentID] = inner
				}
				return nil
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	for _, n := range nodes {
		if err := walk(n); err != nil {
			return nil, fmt.Errorf("render fragment part: %w", err)
		}
	}

	if len(parts) == 0 && len(commentIDs) == 1 {
		parts[commentIDs[0]] = body
	}
	return parts, nil
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func renderChildren(n *html.Node) (string, error) {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&b, c); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}
