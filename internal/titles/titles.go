// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package titles finds paper titles on a conference page. Every text node is
// grouped by the structural path of its parent element; the groups whose
// contents look like titles are selected either explicitly or by a Policy.
package titles

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/pdiddy/paper-downloader/pkg/types"
)

// documentTag names the root step of every path.
const documentTag = "#document"

// Bucket holds the normalized text of every text node whose parent sits at Path.
type Bucket struct {
	Path  types.StructuralPath
	Texts []string
}

// Buckets is the result of one parse: buckets in the order their first text
// node was encountered, each holding its texts in document order. It is not
// modified after Parse returns.
type Buckets struct {
	list  []*Bucket
	index map[string]int
}

func newBuckets() *Buckets {
	return &Buckets{index: make(map[string]int)}
}

// add appends text to the bucket for path, creating the bucket on first use.
func (b *Buckets) add(path types.StructuralPath, text string) {
	key := path.Key()
	if i, ok := b.index[key]; ok {
		b.list[i].Texts = append(b.list[i].Texts, text)
		return
	}
	b.index[key] = len(b.list)
	b.list = append(b.list, &Bucket{Path: path, Texts: []string{text}})
}

// Len returns the number of buckets.
func (b *Buckets) Len() int {
	if b == nil {
		return 0
	}
	return len(b.list)
}

// All returns the buckets in encounter order.
func (b *Buckets) All() []Bucket {
	if b == nil {
		return nil
	}
	out := make([]Bucket, len(b.list))
	for i, bk := range b.list {
		out[i] = *bk
	}
	return out
}

// Get returns the bucket stored under path.
func (b *Buckets) Get(path types.StructuralPath) (Bucket, bool) {
	if b == nil {
		return Bucket{}, false
	}
	i, ok := b.index[path.Key()]
	if !ok {
		return Bucket{}, false
	}
	return *b.list[i], true
}

// Parse decodes an HTML document and buckets its text nodes. contentType may
// be empty; it only helps charset detection. attrs lists the attribute names
// whose values become part of each path step.
func Parse(r io.Reader, contentType string, attrs []string) (*Buckets, error) {
	utf8Reader, err := charset.NewReader(r, contentType)
	if err != nil {
		return nil, fmt.Errorf("detecting charset: %w", err)
	}
	doc, err := html.Parse(utf8Reader)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return collect(doc, attrs), nil
}

// frame is one pending node on the traversal stack together with the path
// of its parent.
type frame struct {
	node   *html.Node
	parent types.StructuralPath
}

// collect walks the tree depth first with an explicit stack. Children are
// pushed in reverse so they pop in document order.
func collect(root *html.Node, attrs []string) *Buckets {
	buckets := newBuckets()
	stack := []frame{{node: root}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch f.node.Type {
		case html.TextNode:
			if text := Normalize(f.node.Data); text != "" {
				buckets.add(f.parent, text)
			}
			continue
		case html.ElementNode, html.DocumentNode:
		default:
			continue
		}

		path := f.parent.Append(step(f.node, attrs))
		var children []*html.Node
		for c := f.node.FirstChild; c != nil; c = c.NextSibling {
			children = append(children, c)
		}
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: children[i], parent: path})
		}
	}
	return buckets
}

func step(n *html.Node, attrs []string) types.PathStep {
	s := types.PathStep{Tag: n.Data}
	if n.Type == html.DocumentNode {
		s.Tag = documentTag
	}
	if len(attrs) == 0 {
		return s
	}
	s.Attrs = make([]*string, len(attrs))
	for i, name := range attrs {
		for _, a := range n.Attr {
			if a.Namespace == "" && a.Key == name {
				s.Attrs[i] = types.StringPtr(a.Val)
				break
			}
		}
	}
	return s
}

// Normalize collapses every run of whitespace to a single space and trims
// both ends.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
