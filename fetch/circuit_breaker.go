package fetch

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"

	"github.com/rapp-store/federation/internal/core"
)

// ErrCircuitOpen is the cause carried by the NetworkError returned while a
// host's breaker is open.
var ErrCircuitOpen = circuit.ErrBreakerOpen

// CircuitBreakerFetcher wraps a Fetcher with per-host circuit breakers, so
// one unreachable store host stops consuming retries without affecting
// fetches from other hosts.
type CircuitBreakerFetcher struct {
	fetcher  *Fetcher
	breakers map[string]*circuit.Breaker
	mu       sync.RWMutex
}

// NewCircuitBreakerFetcher creates a circuit breaker wrapper for a fetcher.
func NewCircuitBreakerFetcher(f *Fetcher) *CircuitBreakerFetcher {
	return &CircuitBreakerFetcher{
		fetcher:  f,
		breakers: make(map[string]*circuit.Breaker),
	}
}

// getBreaker returns or creates the circuit breaker for a host.
func (cbf *CircuitBreakerFetcher) getBreaker(host string) *circuit.Breaker {
	cbf.mu.RLock()
	breaker, exists := cbf.breakers[host]
	cbf.mu.RUnlock()

	if exists {
		return breaker
	}

	cbf.mu.Lock()
	defer cbf.mu.Unlock()

	// Double-check after acquiring write lock
	if breaker, exists := cbf.breakers[host]; exists {
		return breaker
	}

	// Trips after 5 consecutive failures, recovers with exponential backoff
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	breaker = circuit.NewBreakerWithOptions(&circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ThresholdTripFunc(5),
	})

	cbf.breakers[host] = breaker
	return breaker
}

// Fetch wraps the underlying fetcher's Fetch with circuit breaker logic.
func (cbf *CircuitBreakerFetcher) Fetch(ctx context.Context, fetchURL string) ([]byte, error) {
	breaker := cbf.getBreaker(extractHost(fetchURL))

	if !breaker.Ready() {
		return nil, &core.NetworkError{URL: fetchURL, Err: ErrCircuitOpen}
	}

	var data []byte
	err := breaker.Call(func() error {
		var fetchErr error
		data, fetchErr = cbf.fetcher.Fetch(ctx, fetchURL)
		return fetchErr
	}, 0)

	if err != nil {
		return nil, err
	}
	return data, nil
}

// Head wraps the underlying fetcher's Head with circuit breaker logic.
func (cbf *CircuitBreakerFetcher) Head(ctx context.Context, headURL string) (size int64, contentType string, err error) {
	breaker := cbf.getBreaker(extractHost(headURL))

	if !breaker.Ready() {
		return 0, "", &core.NetworkError{URL: headURL, Err: ErrCircuitOpen}
	}

	err = breaker.Call(func() error {
		var headErr error
		size, contentType, headErr = cbf.fetcher.Head(ctx, headURL)
		return headErr
	}, 0)

	return size, contentType, err
}

// extractHost groups breakers by URL host.
func extractHost(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		if len(rawURL) > 50 {
			return rawURL[:50]
		}
		return rawURL
	}
	return parsed.Host
}
