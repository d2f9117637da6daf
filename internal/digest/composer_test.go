package digest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildBody_Deterministic(t *testing.T) {
	items := []string{"Invoice #1: Please pay by Friday", "Re: lunch: see you"}
	headlines := []string{"Go 1.26 released (https://example.com/go)"}
	weather := "11.0°C, clear sky, 30% chance of rain"

	first, err := BuildBody(items, weather, headlines)
	require.NoError(t, err)
	second, err := BuildBody(items, weather, headlines)
	require.NoError(t, err)

	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, first.HTML, second.HTML)
}

func TestBuildBody_TextSectionOrder(t *testing.T) {
	doc, err := BuildBody(
		[]string{"an item"},
		"sunny",
		[]string{"a headline"},
	)
	require.NoError(t, err)

	weatherIdx := strings.Index(doc.Text, "Weather:")
	headlinesIdx := strings.Index(doc.Text, "Headlines:")
	itemsIdx := strings.Index(doc.Text, "Items:")

	require.NotEqual(t, -1, weatherIdx)
	require.NotEqual(t, -1, headlinesIdx)
	require.NotEqual(t, -1, itemsIdx)

	assert.True(t, strings.HasPrefix(doc.Text, "Daily Summary\n"))
	assert.Less(t, weatherIdx, headlinesIdx)
	assert.Less(t, headlinesIdx, itemsIdx)
}

func TestBuildBody_TextBullets(t *testing.T) {
	doc, err := BuildBody(
		[]string{"first item", "second item"},
		"sunny",
		[]string{"big news"},
	)
	require.NoError(t, err)

	assert.Contains(t, doc.Text, "Headlines:\n- big news\n")
	assert.Contains(t, doc.Text, "Items:\n- first item\n- second item\n")
}

func TestBuildBody_EmptySectionsStillRender(t *testing.T) {
	doc, err := BuildBody(nil, "No forecast data available.", nil)
	require.NoError(t, err)

	assert.Contains(t, doc.Text, "Weather:\nNo forecast data available.")
	assert.Contains(t, doc.Text, "Headlines:\n")
	assert.Contains(t, doc.Text, "Items:\n")
	assert.Contains(t, doc.HTML, "<h2>Headlines</h2><ul></ul>")
}

func TestBuildBody_HTMLStructure(t *testing.T) {
	doc, err := BuildBody(
		[]string{"an item"},
		"sunny",
		[]string{"a headline"},
	)
	require.NoError(t, err)

	assert.Contains(t, doc.HTML, "<h1>Daily Summary</h1>")
	assert.Contains(t, doc.HTML, "<h2>Weather</h2><p>sunny</p>")
	assert.Contains(t, doc.HTML, "<li>a headline</li>")
	assert.Contains(t, doc.HTML, "<li>an item</li>")
}

func TestBuildBody_HTMLEscapesInputs(t *testing.T) {
	doc, err := BuildBody(
		[]string{`<script>alert("x")</script>`},
		"sunny & 20°C",
		[]string{"Tom <b>bold</b> news"},
	)
	require.NoError(t, err)

	assert.NotContains(t, doc.HTML, "<script>")
	assert.NotContains(t, doc.HTML, "<b>bold</b>")
	assert.Contains(t, doc.HTML, "&lt;script&gt;")

	// The text form passes inputs through untouched.
	assert.Contains(t, doc.Text, `<script>alert("x")</script>`)
}
