package service

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/SergeiKhy/shortlink/internal/models"
)

// Значения превью по умолчанию
const (
	DefaultPreviewTitle       = "Link Preview"
	DefaultPreviewDescription = "Link Description"
	DefaultPreviewImage       = "#"
)

var previewTemplate = template.Must(template.New("preview").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<meta name="description" content="{{.Description}}">
<meta property="og:type" content="website">
<meta property="og:title" content="{{.Title}}">
<meta property="og:description" content="{{.Description}}">
<meta property="og:image" content="{{.Image}}">
<meta property="og:url" content="{{.URL}}">
<meta name="twitter:card" content="summary_large_image">
<meta name="twitter:title" content="{{.Title}}">
<meta name="twitter:description" content="{{.Description}}">
<meta name="twitter:image" content="{{.Image}}">
</head>
<body></body>
</html>
`))

type previewData struct {
	Title       string
	Description string
	Image       string
	URL         string
}

// PreviewRenderer строит HTML с мета-тегами для ботов, разворачивающих ссылки
type PreviewRenderer struct{}

func NewPreviewRenderer() *PreviewRenderer {
	return &PreviewRenderer{}
}

func (r *PreviewRenderer) Render(link *models.Link) ([]byte, error) {
	data := previewData{
		Title:       orDefault(link.Title, DefaultPreviewTitle),
		Description: orDefault(link.Description, DefaultPreviewDescription),
		Image:       orDefault(link.Image, DefaultPreviewImage),
		URL:         link.URL,
	}

	var buf bytes.Buffer
	if err := previewTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render preview: %w", err)
	}
	return buf.Bytes(), nil
}

func orDefault(value, def string) string {
	if value == "" {
		return def
	}
	return value
}
