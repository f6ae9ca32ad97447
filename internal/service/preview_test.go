package service_test

import (
	"testing"

	"github.com/SergeiKhy/shortlink/internal/models"
	"github.com/SergeiKhy/shortlink/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreviewRenderer_Render(t *testing.T) {
	renderer := service.NewPreviewRenderer()

	html, err := renderer.Render(&models.Link{
		URL:         "https://example.com/?a=1&b=2",
		Title:       `Tom & "Jerry"`,
		Description: "Погоня <кота> за мышью",
		Image:       "https://example.com/cat.png",
	})
	require.NoError(t, err)

	page := string(html)
	assert.Contains(t, page, "<!DOCTYPE html>")
	assert.Contains(t, page, `<meta property="og:title" content="Tom &amp; &#34;Jerry&#34;">`)
	assert.Contains(t, page, `<meta property="og:description" content="Погоня &lt;кота&gt; за мышью">`)
	assert.Contains(t, page, `<meta property="og:image" content="https://example.com/cat.png">`)
	assert.Contains(t, page, `<meta property="og:url" content="https://example.com/?a=1&amp;b=2">`)
	assert.Contains(t, page, `<meta name="twitter:card" content="summary_large_image">`)
}

func TestPreviewRenderer_Defaults(t *testing.T) {
	html, err := service.NewPreviewRenderer().Render(&models.Link{URL: "https://example.com"})
	require.NoError(t, err)

	page := string(html)
	assert.Contains(t, page, "<title>Link Preview</title>")
	assert.Contains(t, page, `<meta property="og:title" content="Link Preview">`)
	assert.Contains(t, page, `<meta property="og:description" content="Link Description">`)
	assert.Contains(t, page, `<meta property="og:image" content="#">`)
}
