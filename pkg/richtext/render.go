package richtext

import (
	"fmt"
	"html"
	"strings"
)

var markTags = map[string]string{
	"b":         "b",
	"bold":      "b",
	"strong":    "b",
	"i":         "i",
	"italic":    "i",
	"em":        "i",
	"u":         "u",
	"underline": "u",
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// EscapeText makes plain text safe to place between HTML tags.
func EscapeText(s string) string {
	return textEscaper.Replace(s)
}

// Render flattens node into inline HTML. A nil node renders as fallback,
// unchanged.
//
// Marks wrap a leaf in source order, so the first mark is innermost:
// [b, i] on "hi" gives <i><b>hi</b></i>. A mark carrying attributes adds a
// <span> with the attributes in source order.
func Render(node *Node, fallback string) string {
	if node == nil {
		return fallback
	}
	var sb strings.Builder
	render(&sb, node)
	return sb.String()
}

func render(sb *strings.Builder, node *Node) {
	switch node.Kind {
	case KindText:
		sb.WriteString(renderText(node))
	case KindContainer:
		if node.Tag == "hardBreak" {
			sb.WriteString("\n")
			return
		}
		if node.Tag == "paragraph" {
			sb.WriteString("<div>")
		}
		for _, child := range node.Children {
			if child == nil {
				sb.WriteString("\n")
				continue
			}
			render(sb, child)
		}
		if node.Tag == "paragraph" {
			sb.WriteString("</div>")
		}
	}
}

func renderText(node *Node) string {
	text := EscapeText(node.Text)
	for _, mark := range node.Marks {
		if tag, ok := markTags[mark.Type]; ok {
			text = fmt.Sprintf("<%s>%s</%s>", tag, text, tag)
		}
		if len(mark.Attrs) > 0 {
			text = fmt.Sprintf("<span %s>%s</span>", formatAttrs(mark.Attrs), text)
		}
	}
	return text
}

func formatAttrs(attrs []Attr) string {
	parts := make([]string, 0, len(attrs))
	for _, a := range attrs {
		parts = append(parts, fmt.Sprintf(`%s="%s"`, a.Key, html.EscapeString(a.Value)))
	}
	return strings.Join(parts, " ")
}

var ankifier = strings.NewReplacer(
	"\n", "<br>",
	`class="bgY"`, `style="background-color:#fff4e5;"`,
	`class="bgB"`, `style="background-color:#cde7fa;"`,
	`class="bgP"`, `style="background-color:#fde8ff;"`,
)

// Ankify prepares rendered text for a flashcard field: newlines become
// <br> and the site's highlight classes become inline background colors.
func Ankify(text string) string {
	return ankifier.Replace(text)
}
