// Package richtext turns the study site's rich-text document trees into
// inline HTML suitable for a flashcard field.
package richtext

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/xhad/quizdeck/internal/models"
)

// maxDepth bounds recursion; real card text is a handful of levels deep.
const maxDepth = 64

type Kind int

const (
	KindText Kind = iota
	KindContainer
)

// Attr is one inline attribute, kept in source order.
type Attr struct {
	Key   string
	Value string
}

// Mark is a formatting mark on a text leaf. Type is one of b, i, u (or
// their long names); any mark may also carry attributes.
type Mark struct {
	Type  string
	Attrs []Attr
}

// Node is either a text leaf or a container of child nodes. A nil entry in
// Children stands for a child the source left out.
type Node struct {
	Kind     Kind
	Tag      string
	Text     string
	Marks    []Mark
	Children []*Node
}

// Text builds a text leaf.
func Text(text string, marks ...Mark) *Node {
	return &Node{Kind: KindText, Tag: "text", Text: text, Marks: marks}
}

// Container builds a container node with the given tag.
func Container(tag string, children ...*Node) *Node {
	return &Node{Kind: KindContainer, Tag: tag, Children: children}
}

// Paragraph builds a paragraph container.
func Paragraph(children ...*Node) *Node {
	return Container("paragraph", children...)
}

var containerTags = map[string]bool{
	"doc":         true,
	"paragraph":   true,
	"heading":     true,
	"blockquote":  true,
	"bulletList":  true,
	"orderedList": true,
	"listItem":    true,
	"hardBreak":   true,
}

// Parse reads a rich-text tree. An absent or null value yields a nil node.
// Some payloads store the tree as a JSON-encoded string; those are decoded
// first.
func Parse(value gjson.Result) (*Node, error) {
	if !value.Exists() || value.Type == gjson.Null {
		return nil, nil
	}
	if value.Type == gjson.String {
		if value.Str == "" {
			return nil, nil
		}
		if !gjson.Valid(value.Str) {
			return nil, &models.MalformedPayloadError{Detail: "rich text is not a JSON document"}
		}
		value = gjson.Parse(value.Str)
	}
	return parseNode(value, "richText", 0)
}

func parseNode(value gjson.Result, path string, depth int) (*Node, error) {
	if depth > maxDepth {
		return nil, &models.MalformedPayloadError{Detail: fmt.Sprintf("rich text at %s nested deeper than %d levels", path, maxDepth)}
	}
	if !value.IsObject() {
		return nil, &models.SchemaError{Path: path, Tag: value.Raw}
	}

	tag := value.Get("type").String()
	if tag == "text" {
		text := value.Get("text")
		if text.Type != gjson.String {
			return nil, &models.SchemaError{Path: path + ".text", Tag: tag}
		}
		return &Node{
			Kind:  KindText,
			Tag:   tag,
			Text:  text.Str,
			Marks: parseMarks(value.Get("marks")),
		}, nil
	}
	if !containerTags[tag] {
		return nil, &models.SchemaError{Path: path, Tag: tag}
	}

	node := &Node{Kind: KindContainer, Tag: tag}
	var err error
	i := 0
	value.Get("content").ForEach(func(_, child gjson.Result) bool {
		childPath := fmt.Sprintf("%s.content[%d]", path, i)
		i++
		if child.Type == gjson.Null {
			node.Children = append(node.Children, nil)
			return true
		}
		var parsed *Node
		parsed, err = parseNode(child, childPath, depth+1)
		if err != nil {
			return false
		}
		node.Children = append(node.Children, parsed)
		return true
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

func parseMarks(value gjson.Result) []Mark {
	var marks []Mark
	value.ForEach(func(_, m gjson.Result) bool {
		mark := Mark{Type: m.Get("type").String()}
		m.Get("attrs").ForEach(func(k, v gjson.Result) bool {
			mark.Attrs = append(mark.Attrs, Attr{Key: k.String(), Value: v.String()})
			return true
		})
		marks = append(marks, mark)
		return true
	})
	return marks
}
