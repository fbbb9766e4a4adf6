package utils

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/kerbaras/mangetsu/pkg/data"
)

// DefaultAccept is sent with every request.
const DefaultAccept = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.9"

// API is the process-wide HTTP client. It only issues GET requests and makes a
// single attempt per call.
type API struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
}

// NewAPI bounds the wait for response headers by timeout. Bodies returned by
// Get are only bounded by the request context, so page downloads can stream
// for as long as they make progress; Document applies timeout to the whole
// exchange.
func NewAPI(timeout time.Duration, userAgent string) *API {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = timeout
	return &API{
		client:    &http.Client{Transport: transport},
		userAgent: userAgent,
		timeout:   timeout,
	}
}

// NewAPIWithClient is used by tests to point at an httptest server's client.
func NewAPIWithClient(client *http.Client) *API {
	return &API{client: client}
}

// Get performs a GET request. An empty referer omits the header. Non-2xx
// responses are closed and reported as RequestFail.
func (a *API) Get(ctx context.Context, url, referer string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, data.NewRequestFail(err)
	}
	req.Header.Set("Accept", DefaultAccept)
	if a.userAgent != "" {
		req.Header.Set("User-Agent", a.userAgent)
	}
	if referer != "" {
		req.Header.Set("Referer", referer)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, data.NewRequestFail(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, data.NewRequestFail(fmt.Errorf("GET %s: bad status: %s", url, resp.Status))
	}
	return resp, nil
}

// Document fetches url and parses the body as HTML.
func (a *API) Document(ctx context.Context, url string) (*goquery.Document, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	resp, err := a.Get(ctx, url, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, data.NewRequestFail(fmt.Errorf("failed to decode response body: %w", err))
	}
	return doc, nil
}
