package fetcher

import (
	"context"
	"io"
)

// Fetcher defines the HTTP verbs the job-board sources need.
type Fetcher interface {
	// PostJSON POSTs payload encoded as JSON and decodes the 200 response
	// into out.
	PostJSON(ctx context.Context, url string, payload, out any) error

	// Page GETs the URL and returns the final status with the body, without
	// treating 4xx as an error. The caller closes the body.
	Page(ctx context.Context, url string) (int, io.ReadCloser, error)
}
