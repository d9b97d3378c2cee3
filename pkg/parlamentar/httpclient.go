package parlamentar

import (
	"net/http"
	"sync"
	"time"
)

// HTTPClient matches the Do method of *http.Client so tests can inject fakes.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// DefaultRequestInterval is the minimum interval between directory requests.
const DefaultRequestInterval = 500 * time.Millisecond

// RateLimitedHTTPClient spaces requests at least requestInterval apart.
// Waiting honors the request's context.
type RateLimitedHTTPClient struct {
	underlying      HTTPClient
	ticker          *time.Ticker
	requestInterval time.Duration
	mu              sync.Mutex
	closed          bool
}

// NewRateLimitedHTTPClient wraps underlying. A non-positive interval disables
// the limiter.
func NewRateLimitedHTTPClient(underlying HTTPClient, requestInterval time.Duration) *RateLimitedHTTPClient {
	rateLimitedClient := &RateLimitedHTTPClient{underlying: underlying, requestInterval: requestInterval}
	if requestInterval > 0 {
		rateLimitedClient.ticker = time.NewTicker(requestInterval)
	} else {
		rateLimitedClient.closed = true
	}
	return rateLimitedClient
}

// Do waits for the limiter, then sends the request.
func (rateLimitedClient *RateLimitedHTTPClient) Do(req *http.Request) (*http.Response, error) {
	rateLimitedClient.mu.Lock()
	if !rateLimitedClient.closed {
		select {
		case <-rateLimitedClient.ticker.C:
		case <-req.Context().Done():
			rateLimitedClient.mu.Unlock()
			return nil, req.Context().Err()
		}
	}
	rateLimitedClient.mu.Unlock()

	return rateLimitedClient.underlying.Do(req)
}

// Close stops the limiter. Requests sent afterwards are not delayed.
func (rateLimitedClient *RateLimitedHTTPClient) Close() {
	rateLimitedClient.mu.Lock()
	defer rateLimitedClient.mu.Unlock()

	if !rateLimitedClient.closed {
		rateLimitedClient.ticker.Stop()
		rateLimitedClient.closed = true
	}
}
