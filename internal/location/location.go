// Package location turns the host's coarse position into a place name.
package location

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrLocate means no coordinates could be read from the location service.
	ErrLocate = errors.New("location lookup failed")
	// ErrGeocode means coordinates were read but could not be named.
	ErrGeocode = errors.New("reverse geocoding failed")
)

type LatLng struct {
	Lat float64
	Lng float64
}

func (p LatLng) String() string {
	return strconv.FormatFloat(p.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(p.Lng, 'f', 6, 64)
}

// Locator reads the current coordinates.
type Locator interface {
	Coordinates(ctx context.Context) (LatLng, error)
}

// Geocoder names the locality that contains a coordinate.
type Geocoder interface {
	Locality(ctx context.Context, at LatLng) (string, error)
}

// Runner executes an external command and returns its stdout.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// DefaultLocatorCommand prints "<lat> <lng>" using CoreLocationCLI.
var DefaultLocatorCommand = []string{"CoreLocationCLI", "-once", "-format", "%latitude %longitude"}

// CommandLocator reads "<lat> <lng>" from the first output line of a command.
type CommandLocator struct {
	Runner  Runner
	Command []string
}

func (l CommandLocator) Coordinates(ctx context.Context) (LatLng, error) {
	cmd := l.Command
	if len(cmd) == 0 {
		cmd = DefaultLocatorCommand
	}
	out, err := l.Runner.Run(ctx, cmd[0], cmd[1:]...)
	if err != nil {
		return LatLng{}, fmt.Errorf("%s: %w", strings.Join(cmd, " "), err)
	}
	return parseLatLng(string(out))
}

func parseLatLng(out string) (LatLng, error) {
	line, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	fields := strings.Fields(strings.ReplaceAll(line, ",", " "))
	if len(fields) != 2 {
		return LatLng{}, fmt.Errorf("unexpected locator output %q", line)
	}
	lat, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return LatLng{}, fmt.Errorf("latitude %q: %w", fields[0], err)
	}
	lng, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return LatLng{}, fmt.Errorf("longitude %q: %w", fields[1], err)
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return LatLng{}, fmt.Errorf("coordinate out of range: %v,%v", lat, lng)
	}
	return LatLng{Lat: lat, Lng: lng}, nil
}

// Resolver chains a Locator and a Geocoder.
type Resolver struct {
	Locator  Locator
	Geocoder Geocoder
}

// Resolve returns the locality name for the current position. Errors wrap
// ErrLocate or ErrGeocode.
func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	at, err := r.Locator.Coordinates(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrLocate, err)
	}
	name, err := r.Geocoder.Locality(ctx, at)
	if err != nil {
		return "", fmt.Errorf("%w at %s: %w", ErrGeocode, at, err)
	}
	return name, nil
}
