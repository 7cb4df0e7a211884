package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yaseenp24/Healthcare-Agent/pkg/logging"
)

const defaultGeocoderTimeout = 15 * time.Second

// ErrNoMatch is returned when the geocoder answers but has no result.
var ErrNoMatch = errors.New("geo: no geocoding match")

// GeocoderConfig configures a Nominatim-compatible search endpoint.
type GeocoderConfig struct {
	BaseURL     string
	APIKey      string // sent as "key" for keyed Nominatim-compatible providers
	Email       string // Nominatim attribution contact
	UserAgent   string
	CountryCode string
	Timeout     time.Duration
}

// Geocoder resolves postal codes to coordinates.
type Geocoder struct {
	cfg        GeocoderConfig
	httpClient *http.Client
	logger     *logging.Logger
}

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// NewGeocoder creates a geocoder. A blank UserAgent is rejected upstream, so a
// generic one is filled in.
func NewGeocoder(cfg GeocoderConfig, logger *logging.Logger) *Geocoder {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultGeocoderTimeout
	}
	if strings.TrimSpace(cfg.UserAgent) == "" {
		cfg.UserAgent = "healthcare-agent/1.0"
	}
	return &Geocoder{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// Geocode returns the first match for postalCode. Transport failures, non-2xx
// statuses and undecodable bodies are returned as errors; an empty result set
// is ErrNoMatch. Callers treat all of them as "not found".
func (g *Geocoder) Geocode(ctx context.Context, postalCode string) (Coordinate, error) {
	code := normalizePostalCode(postalCode)
	if code == "" {
		return Coordinate{}, ErrNoMatch
	}

	params := url.Values{}
	params.Set("postalcode", code)
	params.Set("format", "json")
	params.Set("limit", "1")
	if g.cfg.CountryCode != "" {
		params.Set("countrycodes", g.cfg.CountryCode)
	}
	if g.cfg.APIKey != "" {
		params.Set("key", g.cfg.APIKey)
	}
	if g.cfg.Email != "" {
		params.Set("email", g.cfg.Email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return Coordinate{}, fmt.Errorf("geo: create geocode request: %w", err)
	}
	req.Header.Set("User-Agent", g.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Coordinate{}, fmt.Errorf("geo: geocode request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Coordinate{}, fmt.Errorf("geo: read geocode response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Coordinate{}, &StatusError{Service: "geocoder", Code: resp.StatusCode}
	}

	var places []nominatimPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return Coordinate{}, fmt.Errorf("geo: decode geocode response: %w", err)
	}
	if len(places) == 0 {
		return Coordinate{}, ErrNoMatch
	}

	lat, errLat := strconv.ParseFloat(places[0].Lat, 64)
	lon, errLon := strconv.ParseFloat(places[0].Lon, 64)
	if errLat != nil || errLon != nil {
		return Coordinate{}, fmt.Errorf("geo: invalid coordinate %q,%q", places[0].Lat, places[0].Lon)
	}

	g.logger.Debug("geo: postal code resolved", "postal_code", code, "match", places[0].DisplayName)
	return Coordinate{Lat: lat, Lon: lon}, nil
}

// normalizePostalCode keeps the 5-digit base of a ZIP or ZIP+4.
func normalizePostalCode(code string) string {
	code = strings.TrimSpace(code)
	if base, _, found := strings.Cut(code, "-"); found {
		code = base
	}
	return code
}

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	Service string
	Code    int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("geo: %s returned status %d", e.Service, e.Code)
}

// FailureCause buckets an adapter error for logs and metrics.
func FailureCause(err error) string {
	var statusErr *StatusError
	var netErr net.Error
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoMatch):
		return "no_match"
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	case errors.As(err, &statusErr):
		return "status"
	case strings.Contains(err.Error(), "decode"), strings.Contains(err.Error(), "invalid coordinate"):
		return "decode"
	default:
		return "transport"
	}
}
