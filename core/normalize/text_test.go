package normalize

import (
	"html"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "Dune", "Dune"},
		{"tags", "<p>A <b>bold</b> move</p>", "A bold move"},
		{"escaped markup", "&lt;p&gt;Hello&lt;/p&gt; world", "Hello world"},
		{"entities", "Tom &amp; Jerry", "Tom & Jerry"},
		{"whitespace", "  one\n\ttwo   three  ", "one two three"},
		{"nbsp", "one&nbsp;&nbsp;two", "one two"},
		{"attribute with bracket", `<a title="x>y">link</a>`, `y"link`},
		{"stray bracket", "5 > 3 and 2 < 4", "5 3 and 2 4"},
		{"double escaped", "&amp;lt;i&amp;gt;Hi&amp;lt;/i&amp;gt;", "Hi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Text(tt.in))
		})
	}
}

func TestTextProperties(t *testing.T) {
	inputs := []string{
		"<div><p>Para one</p>\n\n<p>Para   two</p></div>",
		"&lt;script&gt;alert(1)&lt;/script&gt;",
		"<<>>",
		"a <b",
		"x &amp;<i>amp;</i> y",
		"<ul>\n<li>One</li>\r\n<li>Two</li></ul>",
	}
	for _, in := range inputs {
		out := Text(in)
		assert.NotContains(t, out, "<", "input %q", in)
		assert.NotContains(t, out, ">", "input %q", in)
		assert.False(t, strings.Contains(out, "  "), "double space in %q", out)
		assert.Equal(t, out, Text(out), "not idempotent for %q", in)
	}
}

func TestTextDeepNesting(t *testing.T) {
	escaped := "<b>Deep</b> <i>text</i>"
	for i := 0; i < 40; i++ {
		escaped = html.EscapeString(escaped)
	}
	split := strings.Repeat("&l<x>t;b&g<y>t;", 30) + "Hi"

	for _, in := range []string{escaped, split} {
		out := Text(in)
		assert.NotContains(t, out, "<")
		assert.NotContains(t, out, ">")
		assert.Equal(t, out, Text(out))
	}
	assert.Equal(t, "Deep text", Text(escaped))
	assert.Equal(t, "Hi", Text(split))
}

func TestCollapse(t *testing.T) {
	assert.Equal(t, "Book A (2001)", Collapse("\n  Book A\n   (2001) "))
	assert.Equal(t, "", Collapse(" \t\n"))
}
