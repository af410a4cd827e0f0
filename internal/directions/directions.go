// Package directions implements the outbound routing lookup memoized by
// an abstract cache. It queries an external provider shaped like the
// Google Directions API and transparently caches results.
package directions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/shiva/paratransit-scheduler/internal/cache"
)

// ErrRoutingUnavailable is returned when the provider responds with a
// non-OK HTTP status or a non-OK status field in the JSON body.
type ErrRoutingUnavailable struct {
	Status  string
	Message string
}

func (e *ErrRoutingUnavailable) Error() string {
	return fmt.Sprintf("directions: routing unavailable: status=%s message=%s", e.Status, e.Message)
}

// Result is the distance/duration pair the scheduler consumes.
type Result struct {
	DistanceMeters int
	DurationSec    int
}

// providerResponse mirrors the subset of the Google Directions API's JSON
// shape this client depends on.
type providerResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Routes       []struct {
		Legs []struct {
			Distance struct {
				Value int `json:"value"`
			} `json:"distance"`
			Duration struct {
				Value int `json:"value"`
			} `json:"duration"`
		} `json:"legs"`
	} `json:"routes"`
}

// Client queries the external routing provider, reading through an
// optional Cache.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	cache      cache.Cache
	// group collapses concurrent identical lookups for the same cache
	// key into a single in-flight provider call, giving each key a
	// single writer at a time without changing what gets cached or
	// returned.
	group singleflight.Group
	now   func() time.Time
}

// New creates a directions client. cache may be a no-op cache (see the
// cache package's factory) when caching is disabled.
func New(httpClient *http.Client, baseURL, apiKey string, c cache.Cache) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{httpClient: httpClient, baseURL: baseURL, apiKey: apiKey, cache: c, now: time.Now}
}

func cacheKey(from, to string) string {
	return from + "|" + to
}

// GetDirection returns the routing distance/duration for (from, to,
// departureAt), or (nil, nil) when the provider has no route. Departure
// time is intentionally excluded from the cache key: traffic-aware
// duration drifts with the requested time of day, but keying on it would
// fragment the cache across every distinct pickup time for the same
// pickup/dropoff pair.
func (c *Client) GetDirection(ctx context.Context, from, to string, departureAt time.Time) (*Result, error) {
	key := cacheKey(from, to)

	if cached, ok, err := c.cache.Get(ctx, key); err == nil && ok {
		if result, derr := decodeResult(cached); derr == nil {
			return result, nil
		}
	}
	// A cache read failure (including a malformed entry) degrades to a
	// direct call; it never fails the request.

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		return c.fetch(ctx, from, to, departureAt)
	})
	if err != nil {
		return nil, err
	}
	result, _ := v.(*Result)

	if result != nil {
		_ = c.cache.Put(ctx, key, encodeResult(result))
	}
	return result, nil
}

func (c *Client) fetch(ctx context.Context, from, to string, departureAt time.Time) (*Result, error) {
	q := url.Values{}
	q.Set("origin", from)
	q.Set("destination", to)
	q.Set("key", c.apiKey)
	if departureAt.After(c.now()) {
		// Round up: the provider would reject a departure time rounded
		// into the past.
		secs := departureAt.Unix()
		if departureAt.Nanosecond() > 0 {
			secs++
		}
		q.Set("departure_time", strconv.FormatInt(secs, 10))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("directions: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ErrRoutingUnavailable{Status: "TRANSPORT_ERROR", Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("directions: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ErrRoutingUnavailable{
			Status:  strconv.Itoa(resp.StatusCode),
			Message: strings.TrimSpace(string(body)),
		}
	}

	var parsed providerResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("directions: decode response: %w", err)
	}

	if parsed.Status != "OK" {
		return nil, &ErrRoutingUnavailable{Status: parsed.Status, Message: parsed.ErrorMessage}
	}

	if len(parsed.Routes) == 0 || len(parsed.Routes[0].Legs) == 0 {
		return nil, nil
	}

	leg := parsed.Routes[0].Legs[0]
	return &Result{DistanceMeters: leg.Distance.Value, DurationSec: leg.Duration.Value}, nil
}

// Ping reports whether the routing provider's base URL is reachable, for
// use by the service's /health endpoint. It does not exercise routing
// semantics — a bare HEAD request is enough to detect a dead endpoint or
// DNS failure without burning an API quota unit.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL, nil)
	if err != nil {
		return fmt.Errorf("directions: build ping request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("directions: ping: %w", err)
	}
	resp.Body.Close()
	return nil
}

func encodeResult(r *Result) string {
	return strconv.Itoa(r.DistanceMeters) + "," + strconv.Itoa(r.DurationSec)
}

func decodeResult(s string) (*Result, error) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return nil, errors.New("directions: malformed cache entry")
	}
	dist, err1 := strconv.Atoi(parts[0])
	dur, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return nil, errors.New("directions: malformed cache entry")
	}
	return &Result{DistanceMeters: dist, DurationSec: dur}, nil
}
