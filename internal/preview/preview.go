// Package preview fetches link previews for URLs shared in chat: OpenGraph
// metadata with a title-tag fallback, bounded fetch size, and a small TTL
// cache so a link pasted to a whole trip is fetched once.
package preview

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"
)

const (
	maxBodyBytes = 1 << 20 // previews only need the <head>
	fetchTimeout = 8 * time.Second
	cacheTTL     = 15 * time.Minute
)

type Preview struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	SiteName    string `json:"site_name,omitempty"`
}

type Fetcher struct {
	client *http.Client

	mu    sync.Mutex
	cache map[string]cachedPreview
}

type cachedPreview struct {
	preview *Preview
	expires time.Time
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: fetchTimeout},
		cache:  make(map[string]cachedPreview),
	}
}

func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Preview, error) {
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return nil, fmt.Errorf("preview URL must be http(s)")
	}

	f.mu.Lock()
	if cached, ok := f.cache[rawURL]; ok && time.Now().Before(cached.expires) {
		f.mu.Unlock()
		return cached.preview, nil
	}
	f.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "ChravelBot/1.0 (+https://chravel.app)")
	req.Header.Set("Accept", "text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("preview fetch failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("preview fetch returned HTTP %d", resp.StatusCode)
	}

	preview := Parse(io.LimitReader(resp.Body, maxBodyBytes), rawURL)

	f.mu.Lock()
	f.cache[rawURL] = cachedPreview{preview: preview, expires: time.Now().Add(cacheTTL)}
	f.mu.Unlock()
	return preview, nil
}

// Parse walks the HTML token stream collecting og: meta properties, stopping
// once the head is done. Exported for tests.
func Parse(r io.Reader, rawURL string) *Preview {
	preview := &Preview{URL: rawURL}
	tokenizer := html.NewTokenizer(r)
	inTitle := false

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return preview
		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			switch token.Data {
			case "meta":
				applyMeta(preview, token)
			case "title":
				inTitle = true
			case "body":
				// Metadata lives in the head; no reason to scan the body.
				return preview
			}
		case html.EndTagToken:
			if tokenizer.Token().Data == "title" {
				inTitle = false
			}
		case html.TextToken:
			if inTitle && preview.Title == "" {
				preview.Title = strings.TrimSpace(tokenizer.Token().Data)
			}
		}
	}
}

func applyMeta(p *Preview, token html.Token) {
	var property, content string
	for _, attr := range token.Attr {
		switch attr.Key {
		case "property", "name":
			property = attr.Val
		case "content":
			content = attr.Val
		}
	}
	if content == "" {
		return
	}
	switch property {
	case "og:title":
		p.Title = content
	case "og:description", "description":
		if p.Description == "" || property == "og:description" {
			p.Description = content
		}
	case "og:image":
		p.Image = content
	case "og:site_name":
		p.SiteName = content
	}
}
