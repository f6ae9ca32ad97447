package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/SergeiKhy/shortlink/internal/models"
	"golang.org/x/net/html"
)

const (
	metadataUserAgent = "shortlink-preview/1.0"
	maxMetadataBody   = 1 << 20
)

// MetadataFetcher получает заголовок, описание и картинку страницы назначения
type MetadataFetcher interface {
	Fetch(ctx context.Context, pageURL string) (*models.Metadata, error)
}

type httpMetadataFetcher struct {
	client *http.Client
}

// NewHTTPMetadataFetcher загружает страницу и разбирает её мета-теги.
// Таймаут запроса задаёт вызывающий через ctx, timeout ограничивает клиент целиком.
func NewHTTPMetadataFetcher(timeout time.Duration) MetadataFetcher {
	return &httpMetadataFetcher{
		client: &http.Client{Timeout: timeout},
	}
}

func (f *httpMetadataFetcher) Fetch(ctx context.Context, pageURL string) (*models.Metadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build metadata request: %w", err)
	}
	req.Header.Set("User-Agent", metadataUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, pageURL)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxMetadataBody))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", pageURL, err)
	}

	base := resp.Request.URL
	return extractMetadata(doc, base), nil
}

// extractMetadata приоритет у og: тегов, затем <title>, meta description и первая <img>
func extractMetadata(doc *html.Node, base *url.URL) *models.Metadata {
	var (
		ogTitle, title       string
		ogDescription, descr string
		ogImage, firstImg    string
	)

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					title = strings.TrimSpace(n.FirstChild.Data)
				}
			case "meta":
				content := strings.TrimSpace(attr(n, "content"))
				switch strings.ToLower(attr(n, "property")) {
				case "og:title":
					ogTitle = firstNonEmpty(ogTitle, content)
				case "og:description":
					ogDescription = firstNonEmpty(ogDescription, content)
				case "og:image":
					ogImage = firstNonEmpty(ogImage, content)
				}
				if strings.EqualFold(attr(n, "name"), "description") {
					descr = firstNonEmpty(descr, content)
				}
			case "img":
				firstImg = firstNonEmpty(firstImg, strings.TrimSpace(attr(n, "src")))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return &models.Metadata{
		Title:       firstNonEmpty(ogTitle, title),
		Description: firstNonEmpty(ogDescription, descr),
		Image:       resolveURL(base, firstNonEmpty(ogImage, firstImg)),
	}
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func resolveURL(base *url.URL, ref string) string {
	if ref == "" || base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}
