package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yaseenp24/Healthcare-Agent/pkg/logging"
)

const (
	defaultPlacesTimeout = 25 * time.Second
	defaultRadiusMeters  = 5000
)

// PlaceSearchConfig configures an Overpass-compatible proximity index.
type PlaceSearchConfig struct {
	BaseURL      string
	Amenity      string
	RadiusMeters int
	// IncludeAreas also matches ways and relations (buildings, campuses),
	// which carry a "center" instead of a point.
	IncludeAreas bool
	UserAgent    string
	Timeout      time.Duration
}

// Place is a raw record from the proximity index. Nodes carry Lat/Lon; ways
// and relations carry Center when queried with "out center".
type Place struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    *float64          `json:"lat,omitempty"`
	Lon    *float64          `json:"lon,omitempty"`
	Center *Coordinate       `json:"center,omitempty"`
	Tags   map[string]string `json:"tags,omitempty"`
}

// Coordinate resolves the place's location, preferring the direct point.
func (p Place) Coordinate() (Coordinate, bool) {
	if p.Lat != nil && p.Lon != nil {
		return Coordinate{Lat: *p.Lat, Lon: *p.Lon}, true
	}
	if p.Center != nil {
		return *p.Center, true
	}
	return Coordinate{}, false
}

// Name returns the display name tag, if any.
func (p Place) Name() string {
	return strings.TrimSpace(p.Tags["name"])
}

// AddressParts returns the non-empty address components in display order.
func (p Place) AddressParts() []string {
	street := strings.TrimSpace(strings.TrimSpace(p.Tags["addr:housenumber"]) + " " + strings.TrimSpace(p.Tags["addr:street"]))
	parts := make([]string, 0, 4)
	for _, part := range []string{street, p.Tags["addr:city"], p.Tags["addr:state"], p.Tags["addr:postcode"]} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

type overpassResponse struct {
	Elements []Place `json:"elements"`
}

// PlaceFinder queries the proximity index around a coordinate.
type PlaceFinder struct {
	cfg        PlaceSearchConfig
	httpClient *http.Client
	logger     *logging.Logger
}

// NewPlaceFinder creates a proximity search adapter.
func NewPlaceFinder(cfg PlaceSearchConfig, logger *logging.Logger) *PlaceFinder {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultPlacesTimeout
	}
	if cfg.RadiusMeters <= 0 {
		cfg.RadiusMeters = defaultRadiusMeters
	}
	if strings.TrimSpace(cfg.Amenity) == "" {
		cfg.Amenity = "pharmacy"
	}
	if strings.TrimSpace(cfg.UserAgent) == "" {
		cfg.UserAgent = "healthcare-agent/1.0"
	}
	return &PlaceFinder{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// RadiusMeters is the configured search radius.
func (f *PlaceFinder) RadiusMeters() int {
	return f.cfg.RadiusMeters
}

// FindNearby returns raw records within the configured radius of center, in
// the order the index returned them.
func (f *PlaceFinder) FindNearby(ctx context.Context, center Coordinate) ([]Place, error) {
	form := url.Values{}
	form.Set("data", f.buildQuery(center))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.cfg.BaseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("geo: create places request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geo: places request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("geo: read places response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Service: "places", Code: resp.StatusCode}
	}

	var out overpassResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("geo: decode places response: %w", err)
	}
	f.logger.Debug("geo: places fetched", "count", len(out.Elements), "radius_m", f.cfg.RadiusMeters)
	return out.Elements, nil
}

func (f *PlaceFinder) buildQuery(center Coordinate) string {
	timeoutSecs := int(f.cfg.Timeout.Seconds())
	if timeoutSecs < 1 {
		timeoutSecs = 1
	}
	filter := fmt.Sprintf(`["amenity"=%q](around:%d,%.6f,%.6f);`, f.cfg.Amenity, f.cfg.RadiusMeters, center.Lat, center.Lon)

	var b strings.Builder
	fmt.Fprintf(&b, "[out:json][timeout:%d];\n(\n", timeoutSecs)
	b.WriteString("  node" + filter + "\n")
	if f.cfg.IncludeAreas {
		b.WriteString("  way" + filter + "\n")
		b.WriteString("  relation" + filter + "\n")
	}
	b.WriteString(");\nout center;")
	return b.String()
}
