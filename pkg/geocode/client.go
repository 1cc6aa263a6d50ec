// Package geocode resolves free-text addresses to coordinates via the Nominatim search API.
package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/bloodbuddy/donor-cli/internal/resilience"
)

// DefaultBaseURL is the public Nominatim endpoint.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// DefaultUserAgent identifies bulk imports to Nominatim, which rejects anonymous clients.
const DefaultUserAgent = "BloodBuddyBulkImport/1.0"

// Client geocodes free-text addresses.
type Client interface {
	// Search returns zero or more candidates for query, best match first.
	Search(ctx context.Context, query string) ([]Candidate, error)
}

// Candidate is one coordinate returned for a query.
type Candidate struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	DisplayName string  `json:"display_name,omitempty"`
	Importance  float64 `json:"importance,omitempty"`
}

// Option configures the Nominatim client.
type Option func(*nominatim)

// WithBaseURL overrides the Nominatim endpoint (self-hosted instances, tests).
func WithBaseURL(u string) Option {
	return func(n *nominatim) {
		if u != "" {
			n.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(n *nominatim) {
		n.httpClient = hc
	}
}

// WithUserAgent sets the User-Agent header sent with each request.
func WithUserAgent(ua string) Option {
	return func(n *nominatim) {
		if ua != "" {
			n.userAgent = ua
		}
	}
}

// WithRateLimit sets the maximum requests per second. Nominatim's usage policy allows 1.
func WithRateLimit(rps float64) Option {
	return func(n *nominatim) {
		if rps > 0 {
			n.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithCountryCodes restricts results to the given ISO 3166-1 alpha-2 codes.
func WithCountryCodes(codes ...string) Option {
	return func(n *nominatim) {
		n.countryCodes = codes
	}
}

// WithResultLimit caps the number of candidates requested per query.
func WithResultLimit(limit int) Option {
	return func(n *nominatim) {
		if limit > 0 {
			n.resultLimit = limit
		}
	}
}

type nominatim struct {
	httpClient   *http.Client
	baseURL      string
	userAgent    string
	limiter      *rate.Limiter
	countryCodes []string
	resultLimit  int
}

// NewClient creates a Nominatim-backed Client.
func NewClient(opts ...Option) Client {
	n := &nominatim{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		baseURL:     DefaultBaseURL,
		userAgent:   DefaultUserAgent,
		limiter:     rate.NewLimiter(1, 1),
		resultLimit: 5,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// searchResult is one element of the Nominatim /search JSON array.
// Coordinates arrive as strings.
type searchResult struct {
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	DisplayName string  `json:"display_name"`
	Importance  float64 `json:"importance"`
}

// Search implements Client.
func (n *nominatim) Search(ctx context.Context, query string) ([]Candidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	if err := n.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: rate limit")
	}

	params := url.Values{
		"format": {"json"},
		"q":      {query},
		"limit":  {strconv.Itoa(n.resultLimit)},
	}
	if len(n.countryCodes) > 0 {
		params.Set("countrycodes", strings.Join(n.countryCodes, ","))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: build request")
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		statusErr := eris.Errorf("geocode: nominatim returned status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		return nil, statusErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: read body")
	}

	var results []searchResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, eris.Wrap(err, "geocode: parse response")
	}

	candidates := make([]Candidate, 0, len(results))
	for _, r := range results {
		lat, latErr := strconv.ParseFloat(r.Lat, 64)
		lon, lonErr := strconv.ParseFloat(r.Lon, 64)
		if latErr != nil || lonErr != nil {
			zap.L().Debug("geocode: skipping unparsable candidate",
				zap.String("lat", r.Lat),
				zap.String("lon", r.Lon),
			)
			continue
		}
		candidates = append(candidates, Candidate{
			Latitude:    lat,
			Longitude:   lon,
			DisplayName: r.DisplayName,
			Importance:  r.Importance,
		})
	}
	return candidates, nil
}
