package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"askdocs/internal/errors"
)

// Tags whose content is page chrome rather than text.
var skippedTags = map[string]bool{
	"script":   true,
	"style":    true,
	"nav":      true,
	"footer":   true,
	"header":   true,
	"noscript": true,
	"template": true,
}

// HTML extracts the visible text of a page.
type HTML struct{}

func (HTML) Extract(data []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", parseError("HTML", err)
	}

	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedTags[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return Clean(sb.String()), nil
}

const (
	DefaultUserAgent    = "askdocs/1.0 (Knowledge base ingestion)"
	DefaultFetchTimeout = 15 * time.Second
	maxBodyBytes        = 20 << 20
)

// HTTPFetcher downloads a URL and extracts its text.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: DefaultUserAgent,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errors.ExtractionError(errors.ErrCodeFetchFailed, fmt.Sprintf("invalid URL: %s", url), err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", errors.ExtractionError(errors.ErrCodeFetchFailed, fmt.Sprintf("failed to fetch %s", url), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", errors.ExtractionError(errors.ErrCodeFetchFailed,
			fmt.Sprintf("failed to fetch %s: %s", url, resp.Status), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", errors.ExtractionError(errors.ErrCodeFetchFailed, fmt.Sprintf("failed to read %s", url), err)
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	switch mediaType {
	case "text/plain", "text/markdown":
		return Clean(string(body)), nil
	case "application/pdf":
		return PDF{}.Extract(body)
	}
	return HTML{}.Extract(body)
}
