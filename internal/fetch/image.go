// Package fetch retrieves remote images into an embeddable encoded form.
//
// The fetcher is the one place in the system that performs a server-side
// request to a caller-influenced URL, so every SSRF control lives here:
// scheme pinning, manual redirect handling, a streaming size cap, and an
// overall deadline. Callers add their own host restriction on top as
// defense-in-depth; this package does not assume they did.
package fetch

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// MaxImageBytes caps the decoded image payload at 300KB, matching the
	// photo column limit. The cap is enforced while streaming, so an
	// oversized or slow-drip response cannot exhaust memory first.
	MaxImageBytes = 300 * 1024

	// maxRedirects bounds the redirect chain. Every hop is re-validated
	// against the https-only rule; the chain is followed by hand rather
	// than trusting a client policy that might permit a downgrade.
	maxRedirects = 3

	// fetchTimeout bounds the whole operation, redirects included, so a
	// slow or unresponsive host cannot hold a request open indefinitely.
	fetchTimeout = 8 * time.Second

	defaultMIME = "image/jpeg"
)

var (
	ErrScheme       = errors.New("fetch: only https URLs are allowed")
	ErrTooManyHops  = errors.New("fetch: too many redirects")
	ErrTooLarge     = errors.New("fetch: response exceeds size limit")
	ErrBadStatus    = errors.New("fetch: non-success response")
	ErrNoRedirectTo = errors.New("fetch: redirect without Location")
)

// ImageFetcher downloads a remote image and returns it as a base64 data URL.
type ImageFetcher struct {
	client *http.Client
}

// NewImageFetcher builds a fetcher with redirect-following disabled on the
// underlying client; redirects are handled in Fetch where each hop's
// scheme can be checked.
func NewImageFetcher() *ImageFetcher {
	return &ImageFetcher{
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// newImageFetcherWithClient lets tests substitute an httptest TLS client.
func newImageFetcherWithClient(client *http.Client) *ImageFetcher {
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &ImageFetcher{client: client}
}

// Fetch downloads rawURL and returns "data:<mime>;base64,<payload>".
//
// Rules enforced, in order:
//   - the scheme must be exactly https (no http, no scheme-relative, no
//     data:/javascript: URLs)
//   - 3xx responses are followed manually, at most 3 hops, re-validating
//     the scheme at every hop
//   - any terminal non-2xx status is a failure
//   - the body is read through a limit reader; one byte over 300KB aborts
//   - the MIME type comes from the response Content-Type, defaulting to
//     image/jpeg when absent
func (f *ImageFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	current := rawURL
	for hop := 0; ; hop++ {
		if hop > maxRedirects {
			return "", ErrTooManyHops
		}

		parsed, err := url.Parse(current)
		if err != nil {
			return "", fmt.Errorf("fetch: invalid URL: %w", err)
		}
		if parsed.Scheme != "https" || parsed.Host == "" {
			return "", ErrScheme
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
		if err != nil {
			return "", fmt.Errorf("fetch: building request: %w", err)
		}

		resp, err := f.client.Do(req)
		if err != nil {
			return "", fmt.Errorf("fetch: requesting image: %w", err)
		}

		if resp.StatusCode >= 300 && resp.StatusCode < 400 {
			location := resp.Header.Get("Location")
			resp.Body.Close()
			if location == "" {
				return "", ErrNoRedirectTo
			}
			next, err := parsed.Parse(location)
			if err != nil {
				return "", fmt.Errorf("fetch: invalid redirect target: %w", err)
			}
			current = next.String()
			continue
		}

		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return "", fmt.Errorf("%w: status %d", ErrBadStatus, resp.StatusCode)
		}

		// Read one byte past the cap: exactly MaxImageBytes succeeds,
		// MaxImageBytes+1 proves the response is oversized.
		body, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes+1))
		if err != nil {
			return "", fmt.Errorf("fetch: reading image body: %w", err)
		}
		if len(body) > MaxImageBytes {
			return "", ErrTooLarge
		}

		mime := resp.Header.Get("Content-Type")
		if mime == "" {
			mime = defaultMIME
		}
		if idx := strings.Index(mime, ";"); idx >= 0 {
			mime = strings.TrimSpace(mime[:idx])
		}

		return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(body), nil
	}
}
