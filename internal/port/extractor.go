package port

import "context"

// Extractor pulls plain text out of a document's raw bytes.
type Extractor interface {
	Extract(data []byte) (string, error)
}

// Fetcher retrieves a URL and returns its extracted text.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}
