package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
)

const (
	defaultMaxChars = 4000
	maxBodyBytes    = 2 << 20
	userAgent       = "CompeteIQ/1.0 (+https://competeiq.app)"
)

// Reader fetches a page and extracts its main text
type Reader struct {
	Client   *http.Client
	MaxChars int
}

func NewReader() *Reader {
	return &Reader{Client: &http.Client{Timeout: 30 * time.Second}, MaxChars: defaultMaxChars}
}

// Read returns the readable text of pageURL, cut to MaxChars runes
func (r *Reader) Read(ctx context.Context, pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := r.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, maxBodyBytes), u)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", pageURL, err)
	}

	text := strings.Join(strings.Fields(article.TextContent), " ")
	if article.Title != "" {
		text = article.Title + "\n" + text
	}
	max := r.MaxChars
	if max <= 0 {
		max = defaultMaxChars
	}
	if rs := []rune(text); len(rs) > max {
		text = string(rs[:max])
	}
	return text, nil
}
