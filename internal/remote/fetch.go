package remote

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"

	"braces.dev/errtrace"
	"github.com/tofupilot/codeblock/internal/errdefer"
)

// Fetcher retrieves the text stored at a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

var (
	_ Fetcher = (*HTTPFetcher)(nil)
	_ Fetcher = (*CachingFetcher)(nil)
)

// StatusError reports a response with a non-success status code.
type StatusError struct {
	URL    string
	Code   int
	Status string // e.g. "404 Not Found"
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %v: %v", e.URL, e.Status)
}

// HTTPFetcher fetches content over HTTP.
//
// Each call makes exactly one request; failures are not retried.
type HTTPFetcher struct {
	// Client used to make requests.
	// Defaults to http.DefaultClient.
	Client *http.Client

	// Log receives debug output, if set.
	Log *log.Logger
}

// Fetch downloads the body at url.
// Transport failures and non-2xx responses are reported as errors.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (_ string, err error) {
	logger := f.Log
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errtrace.Wrap(fmt.Errorf("fetch %v: %w", url, err))
	}

	logger.Printf("GET %v", url)
	res, err := client.Do(req)
	if err != nil {
		return "", errtrace.Wrap(fmt.Errorf("fetch %v: %w", url, err))
	}
	defer errdefer.Close(&err, res.Body)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return "", errtrace.Wrap(&StatusError{
			URL:    url,
			Code:   res.StatusCode,
			Status: res.Status,
		})
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", errtrace.Wrap(fmt.Errorf("read %v: %w", url, err))
	}
	logger.Printf("GET %v: %d bytes", url, len(body))
	return string(body), nil
}
