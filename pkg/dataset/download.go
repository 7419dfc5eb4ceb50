package dataset

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
)

// gzipStream is a streamed, already-decompressed response body. Callers
// must Close it when done to release both the gzip reader and the
// underlying HTTP connection.
type gzipStream struct {
	gz   *gzip.Reader
	body io.ReadCloser
}

func (s *gzipStream) Close() error {
	gzErr := s.gz.Close()
	bodyErr := s.body.Close()
	if gzErr != nil {
		return gzErr
	}
	return bodyErr
}

// openGzipTSV issues a GET against url and wraps the response body in a
// gzip reader, without reading any of it into memory: the caller scans it
// line by line.
func openGzipTSV(ctx context.Context, client *http.Client, url string) (*gzipStream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dataset: building request for %s: %w", url, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dataset: fetching %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("dataset: %s returned HTTP %d", url, resp.StatusCode)
	}

	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("dataset: opening gzip stream for %s: %w", url, err)
	}

	return &gzipStream{gz: gz, body: resp.Body}, nil
}
