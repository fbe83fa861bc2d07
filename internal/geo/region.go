// Package geo holds the geographic primitives of the map: points, bounding regions,
// the simulated map camera and the geocoders that resolve text to coordinates.
package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ensigniasec/propmap/internal/validate"
)

// ErrBadRegion is returned by ParseRegion for malformed input.
var ErrBadRegion = errors.New("malformed region")

// Point is a WGS 84 coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat" yaml:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" yaml:"lng" validate:"gte=-180,lte=180"`
}

// Region is a bounding rectangle as reported by the map widget. When West > East the
// region crosses the antimeridian and its longitude span wraps through ±180.
type Region struct {
	North float64 `json:"north" yaml:"north" validate:"gte=-90,lte=90,gtefield=South"`
	South float64 `json:"south" yaml:"south" validate:"gte=-90,lte=90"`
	East  float64 `json:"east" yaml:"east" validate:"gte=-180,lte=180"`
	West  float64 `json:"west" yaml:"west" validate:"gte=-180,lte=180"`
}

// Validate checks the coordinate ranges. NaN is out of range.
func (p Point) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid point %g,%g: %w", p.Lat, p.Lng, err)
	}
	return nil
}

// ParseRegion reads "north,south,east,west" and validates the result.
func ParseRegion(s string) (Region, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Region{}, fmt.Errorf("%w: want north,south,east,west, got %q", ErrBadRegion, s)
	}
	var v [4]float64
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return Region{}, fmt.Errorf("%w: %q is not a number", ErrBadRegion, part)
		}
		v[i] = f
	}
	r := Region{North: v[0], South: v[1], East: v[2], West: v[3]}
	return r, r.Validate()
}

// Validate checks the coordinate ranges and North >= South.
func (r Region) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid region %s: %w", r, err)
	}
	return nil
}

// Contains reports whether (lat, lng) lies inside the closed rectangle.
// NaN coordinates are never contained.
func (r Region) Contains(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return false
	}
	if lat < r.South || lat > r.North {
		return false
	}
	if r.West <= r.East {
		return lng >= r.West && lng <= r.East
	}
	return lng >= r.West || lng <= r.East
}

// ContainsPoint is Contains for a Point.
func (r Region) ContainsPoint(p Point) bool { return r.Contains(p.Lat, p.Lng) }

// Center returns the midpoint of the region, honouring antimeridian wrap.
func (r Region) Center() Point {
	lng := (r.West + r.East) / 2
	if r.West > r.East {
		lng = normalizeLng((r.West + r.East + 360) / 2)
	}
	return Point{Lat: (r.North + r.South) / 2, Lng: lng}
}

func (r Region) String() string {
	return fmt.Sprintf("N%.4f S%.4f E%.4f W%.4f", r.North, r.South, r.East, r.West)
}

// Equal reports whether both regions have identical bounds.
func (r Region) Equal(o Region) bool {
	return r.North == o.North && r.South == o.South && r.East == o.East && r.West == o.West
}

// normalizeLng maps any longitude into [-180, 180].
func normalizeLng(lng float64) float64 {
	if lng >= -180 && lng <= 180 {
		return lng
	}
	lng = math.Mod(lng+180, 360)
	if lng < 0 {
		lng += 360
	}
	return lng - 180
}
