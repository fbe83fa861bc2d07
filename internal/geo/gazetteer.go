package geo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sahilm/fuzzy"
)

var (
	ErrEmptyQuery = errors.New("empty search query")
	ErrNoMatch    = errors.New("no matching place")
)

// Place is a resolved search result.
type Place struct {
	Name string `json:"name"`
	Point
}

// Geocoder resolves free text to a single coordinate.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (Place, error)
}

// Cities are the reference centers offered by the city selector.
//
//nolint:gochecknoglobals // immutable lookup table used across the package.
var Cities = []Place{
	{Name: "Jaipur", Point: Point{Lat: 26.9124, Lng: 75.7873}},
	{Name: "Gurgaon", Point: Point{Lat: 28.4595, Lng: 77.0266}},
	{Name: "Kolkata", Point: Point{Lat: 22.5726, Lng: 88.3639}},
	{Name: "Noida", Point: Point{Lat: 28.5355, Lng: 77.391}},
	{Name: "Hyderabad", Point: Point{Lat: 17.385, Lng: 78.4867}},
	{Name: "Bangalore", Point: Point{Lat: 12.9716, Lng: 77.5946}},
	{Name: "Mumbai", Point: Point{Lat: 19.076, Lng: 72.8777}},
	{Name: "Delhi", Point: Point{Lat: 28.6139, Lng: 77.209}},
	{Name: "Chennai", Point: Point{Lat: 13.0827, Lng: 80.2707}},
	{Name: "Pune", Point: Point{Lat: 18.5204, Lng: 73.8567}},
}

// DefaultCity is the center used when nothing else is configured.
const DefaultCity = "Mumbai"

// City looks up a reference city by case-insensitive name.
func City(name string) (Place, bool) {
	for _, c := range Cities {
		if strings.EqualFold(c.Name, strings.TrimSpace(name)) {
			return c, true
		}
	}
	return Place{}, false
}

// Gazetteer is an offline Geocoder over a fixed list of places. Queries are matched
// exactly first, then fuzzily; "lat,lng" literals resolve to themselves.
type Gazetteer struct {
	places []Place
}

// NewGazetteer returns a Gazetteer over places, or over Cities when none are given.
func NewGazetteer(places ...Place) *Gazetteer {
	if len(places) == 0 {
		places = Cities
	}
	return &Gazetteer{places: places}
}

// placeNames adapts the place list to fuzzy.Source.
type placeNames []Place

func (p placeNames) String(i int) string { return p[i].Name }
func (p placeNames) Len() int            { return len(p) }

func (g *Gazetteer) Geocode(ctx context.Context, query string) (Place, error) {
	if err := ctx.Err(); err != nil {
		return Place{}, err
	}
	q := strings.TrimSpace(query)
	if q == "" {
		return Place{}, ErrEmptyQuery
	}
	if p, ok := parseLatLng(q); ok {
		return Place{Name: q, Point: p}, nil
	}
	for _, p := range g.places {
		if strings.EqualFold(p.Name, q) {
			return p, nil
		}
	}
	matches := fuzzy.FindFrom(q, placeNames(g.places))
	if len(matches) == 0 {
		return Place{}, fmt.Errorf("%w: %q", ErrNoMatch, q)
	}
	return g.places[matches[0].Index], nil
}

// parseLatLng accepts "lat,lng" with optional whitespace.
func parseLatLng(s string) (Point, bool) {
	latStr, lngStr, ok := strings.Cut(s, ",")
	if !ok {
		return Point{}, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return Point{}, false
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if err != nil {
		return Point{}, false
	}
	p := Point{Lat: lat, Lng: lng}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return Point{}, false
	}
	return p, true
}
