// Package arcgis queries ArcGIS FeatureServer layers for parcel features.
package arcgis

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/tejas-estimator/internal/model"
)

// maxBodyBytes caps how much of a response is read.
const maxBodyBytes = 32 << 20

// Client runs filtered feature queries against a layer's /query endpoint.
type Client interface {
	// Query returns every feature matching where. An empty result is not an
	// error. Any transport or server failure wraps model.ErrDatastoreUnavailable.
	Query(ctx context.Context, endpoint, where string) ([]model.Feature, error)
}

// Option configures the client.
type Option func(*client)

// WithHTTPClient sets the HTTP client used for queries.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithTimeout bounds each query round trip.
func WithTimeout(d time.Duration) Option {
	return func(c *client) {
		c.timeout = d
	}
}

// WithRateLimit caps outbound queries per second. Zero or less disables it.
func WithRateLimit(rps float64) Option {
	return func(c *client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *client) {
		c.userAgent = ua
	}
}

type client struct {
	httpClient *http.Client
	timeout    time.Duration
	limiter    *rate.Limiter
	userAgent  string
}

// NewClient creates a FeatureServer client with the given options.
func NewClient(opts ...Option) Client {
	c := &client{
		httpClient: &http.Client{},
		timeout:    10 * time.Second,
		userAgent:  "tejas-estimator",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// queryResponse is the f=geojson response. ArcGIS reports query errors as
// an "error" object with a 200 status.
type queryResponse struct {
	Type     string            `json:"type"`
	Features []json.RawMessage `json:"features"`
	Error    *serviceError     `json:"error"`
}

type serviceError struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details"`
}

type rawFeature struct {
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

// QueryParams returns the query string sent for a where clause: all fields,
// geometry included, WGS84 output, GeoJSON format.
func QueryParams(where string) url.Values {
	return url.Values{
		"where":          {where},
		"outFields":      {"*"},
		"returnGeometry": {"true"},
		"outSR":          {"4326"},
		"f":              {"geojson"},
	}
}

// Query makes a single round trip. Failures are reported, never retried.
func (c *client) Query(ctx context.Context, endpoint, where string) ([]model.Feature, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrapf(model.ErrDatastoreUnavailable, "arcgis: rate limit: %v", err)
		}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	reqURL := endpoint + "?" + QueryParams(where).Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrapf(model.ErrDatastoreUnavailable, "arcgis: build request: %v", err)
	}
	req.Header.Set("Accept", "application/geo+json, application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrapf(model.ErrDatastoreUnavailable, "arcgis: request: %v", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, eris.Wrapf(model.ErrDatastoreUnavailable, "arcgis: %s returned status %d", req.URL.Host, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, eris.Wrapf(model.ErrDatastoreUnavailable, "arcgis: read body: %v", err)
	}

	features, err := decodeFeatures(body)
	if err != nil {
		return nil, err
	}

	zap.L().Debug("arcgis: query complete",
		zap.String("host", req.URL.Host),
		zap.String("where", where),
		zap.Int("features", len(features)),
	)
	return features, nil
}

// decodeFeatures parses a GeoJSON feature collection. Numbers in properties
// are kept as json.Number so identifiers and values print exactly as sent.
func decodeFeatures(body []byte) ([]model.Feature, error) {
	var qr queryResponse
	if err := json.Unmarshal(body, &qr); err != nil {
		return nil, eris.Wrapf(model.ErrDatastoreUnavailable, "arcgis: parse response: %v", err)
	}
	if qr.Error != nil {
		return nil, eris.Wrapf(model.ErrDatastoreUnavailable, "arcgis: service error %d: %s %s",
			qr.Error.Code, qr.Error.Message, strings.Join(qr.Error.Details, "; "))
	}

	features := make([]model.Feature, 0, len(qr.Features))
	for i, raw := range qr.Features {
		var rf rawFeature
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&rf); err != nil {
			return nil, eris.Wrapf(model.ErrDatastoreUnavailable, "arcgis: parse feature %d: %v", i, err)
		}

		f := model.Feature{Attributes: rf.Properties}
		if f.Attributes == nil {
			f.Attributes = map[string]any{}
		}

		if g := bytes.TrimSpace(rf.Geometry); len(g) > 0 && !bytes.Equal(g, []byte("null")) {
			var t geom.T
			if err := geojson.Unmarshal(g, &t); err != nil {
				return nil, eris.Wrapf(model.ErrDatastoreUnavailable, "arcgis: parse geometry of feature %d: %v", i, err)
			}
			f.Geometry = t
		}

		features = append(features, f)
	}
	return features, nil
}
