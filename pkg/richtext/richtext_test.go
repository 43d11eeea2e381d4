package richtext

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"github.com/xhad/quizdeck/internal/models"
)

func TestRenderMarks(t *testing.T) {
	tests := []struct {
		name string
		node *Node
		want string
	}{
		{"plain", Text("hi"), "hi"},
		{"bold", Text("hi", Mark{Type: "b"}), "<b>hi</b>"},
		{"bold then italic", Text("hi", Mark{Type: "b"}, Mark{Type: "i"}), "<i><b>hi</b></i>"},
		{"italic then bold", Text("hi", Mark{Type: "i"}, Mark{Type: "b"}), "<b><i>hi</i></b>"},
		{"long names", Text("hi", Mark{Type: "underline"}), "<u>hi</u>"},
		{"unknown mark ignored", Text("hi", Mark{Type: "strike"}), "hi"},
		{"escaped text", Text("a < b & c"), "a &lt; b &amp; c"},
		{
			"attributes in order",
			Text("hi", Mark{Type: "bgY", Attrs: []Attr{{"class", "bgY"}, {"data-x", `"q"`}}}),
			`<span class="bgY" data-x="&#34;q&#34;">hi</span>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.node, "fallback"))
		})
	}
}

func TestRenderContainers(t *testing.T) {
	assert.Equal(t, "fallback", Render(nil, "fallback"))

	doc := Container("doc",
		Paragraph(Text("one"), Text("two", Mark{Type: "b"})),
		nil,
		Paragraph(Text("three")),
	)
	assert.Equal(t, "<div>one<b>two</b></div>\n<div>three</div>", Render(doc, ""))

	assert.Equal(t, "", Render(Container("doc"), "fallback"))
}

func TestParse(t *testing.T) {
	raw := `{"type":"doc","content":[{"type":"paragraph","content":[
		{"type":"text","text":"hi","marks":[{"type":"b"},{"type":"i"}]},
		{"type":"text","text":" there","marks":[{"type":"bgB","attrs":{"class":"bgB","title":"x"}}]}
	]}]}`

	node, err := Parse(gjson.Parse(raw))
	require.NoError(t, err)
	require.NotNil(t, node)
	assert.Equal(t, `<div><i><b>hi</b></i><span class="bgB" title="x"> there</span></div>`, Render(node, ""))
}

func TestParseAbsent(t *testing.T) {
	node, err := Parse(gjson.Get(`{}`, "richText"))
	require.NoError(t, err)
	assert.Nil(t, node)

	node, err = Parse(gjson.Get(`{"richText":null}`, "richText"))
	require.NoError(t, err)
	assert.Nil(t, node)
}

func TestParseEncodedString(t *testing.T) {
	raw := `{"richText":"{\"type\":\"doc\",\"content\":[{\"type\":\"text\",\"text\":\"x\"}]}"}`
	node, err := Parse(gjson.Get(raw, "richText"))
	require.NoError(t, err)
	assert.Equal(t, "x", Render(node, ""))
}

func TestParseNullChild(t *testing.T) {
	node, err := Parse(gjson.Parse(`{"type":"doc","content":[{"type":"text","text":"a"},null,{"type":"text","text":"b"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "a\nb", Render(node, ""))
}

func TestParseUnknownTag(t *testing.T) {
	_, err := Parse(gjson.Parse(`{"type":"doc","content":[{"type":"table","content":[]}]}`))
	require.Error(t, err)

	var schemaErr *models.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "table", schemaErr.Tag)
	assert.Equal(t, "richText.content[0]", schemaErr.Path)
	assert.ErrorIs(t, err, models.ErrMalformedPayload)
}

func TestParseTextWithoutString(t *testing.T) {
	_, err := Parse(gjson.Parse(`{"type":"text"}`))
	var schemaErr *models.SchemaError
	assert.True(t, errors.As(err, &schemaErr))
}

func TestAnkify(t *testing.T) {
	in := "line1\nline2 <span class=\"bgY\">y</span><span class=\"bgB\">b</span><span class=\"bgP\">p</span>"
	want := `line1<br>line2 <span style="background-color:#fff4e5;">y</span>` +
		`<span style="background-color:#cde7fa;">b</span>` +
		`<span style="background-color:#fde8ff;">p</span>`

	once := Ankify(in)
	assert.Equal(t, want, once)
	assert.Equal(t, once, Ankify(once))
}
