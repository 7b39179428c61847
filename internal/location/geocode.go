package location

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"googlemaps.github.io/maps"
)

// ErrNoLocality is returned when the geocoder answers without a usable result.
var ErrNoLocality = errors.New("no locality for coordinates")

type MapsConfig struct {
	APIKey string
	// BaseURL overrides https://maps.googleapis.com (tests, proxies).
	BaseURL string
	Timeout time.Duration
}

// MapsGeocoder reverse-geocodes through the Google Maps Geocoding API.
type MapsGeocoder struct {
	client *maps.Client
}

func NewMapsGeocoder(cfg MapsConfig) (*MapsGeocoder, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("maps api key is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	opts := []maps.ClientOption{
		maps.WithAPIKey(cfg.APIKey),
		maps.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if u := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); u != "" {
		opts = append(opts, maps.WithBaseURL(u))
	}
	c, err := maps.NewClient(opts...)
	if err != nil {
		return nil, err
	}
	return &MapsGeocoder{client: c}, nil
}

// Locality asks for locality-typed results only and returns the long name of
// the first address component of the best-ranked result.
func (g *MapsGeocoder) Locality(ctx context.Context, at LatLng) (string, error) {
	res, err := g.client.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng:     &maps.LatLng{Lat: at.Lat, Lng: at.Lng},
		ResultType: []string{"locality"},
	})
	if err != nil {
		return "", err
	}
	if len(res) == 0 || len(res[0].AddressComponents) == 0 {
		return "", ErrNoLocality
	}
	name := res[0].AddressComponents[0].LongName
	if name == "" {
		return "", ErrNoLocality
	}
	return name, nil
}
