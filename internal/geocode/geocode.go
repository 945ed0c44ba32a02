package geocode

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"encoding/json"

	"github.com/sowmiyat3004/Renter-sub001/internal/config"
	"github.com/sowmiyat3004/Renter-sub001/internal/geo"
)

// IGeocoder defines the interface for resolving a free-text address to a
// coordinate. Used by the listing-create path when a request carries an
// address but no lat/lng.
type IGeocoder interface {
	Forward(ctx context.Context, address string) (geo.Point, error)
}

// nominatimResult is the subset of the search response we care about.
type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// httpGeocoder implements IGeocoder against a Nominatim-compatible endpoint.
type httpGeocoder struct {
	cfg        *config.Config
	httpClient *http.Client
}

// NewHTTPGeocoder creates a geocoder talking to cfg.GeocodeBaseURL.
func NewHTTPGeocoder(cfg *config.Config) IGeocoder {
	return &httpGeocoder{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.GeocodeTimeout},
	}
}

// Forward resolves address to a coordinate via the configured search
// endpoint. Returns an error when the service is unreachable, responds
// non-OK, or finds no match.
func (g *httpGeocoder) Forward(ctx context.Context, address string) (geo.Point, error) {
	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", "1")

	reqURL := g.cfg.GeocodeBaseURL + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return geo.Point{}, fmt.Errorf("failed to create geocode request: %w", err)
	}
	req.Header.Set("User-Agent", g.cfg.AppName+"/1.0")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		log.Printf("Error calling geocoding service: %v", err)
		return geo.Point{}, fmt.Errorf("failed to contact geocoding service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1*1024*1024))
	if err != nil {
		return geo.Point{}, fmt.Errorf("failed to read geocode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Printf("Geocoding service returned non-OK status: %d - Body: %s", resp.StatusCode, string(body))
		return geo.Point{}, fmt.Errorf("geocoding failed with status %d", resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.Unmarshal(body, &results); err != nil {
		return geo.Point{}, fmt.Errorf("failed to parse geocode response: %w", err)
	}
	if len(results) == 0 {
		return geo.Point{}, fmt.Errorf("no geocoding result for address %q", address)
	}

	lat, latErr := strconv.ParseFloat(results[0].Lat, 64)
	lng, lngErr := strconv.ParseFloat(results[0].Lon, 64)
	if latErr != nil || lngErr != nil {
		return geo.Point{}, fmt.Errorf("geocoding returned malformed coordinates for %q", address)
	}

	p := geo.Point{Lat: lat, Lng: lng}
	if !p.Valid() {
		return geo.Point{}, fmt.Errorf("geocoding returned out-of-range coordinates for %q", address)
	}
	return p, nil
}
