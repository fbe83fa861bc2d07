// Package listing holds property listings: the model, the append-only in-memory store
// and the loaders that bulk-populate it from files, directories and Postgres.
package listing

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Placeholder is rendered for missing or malformed fields.
const Placeholder = "-"

// Type is the property category.
type Type string

const (
	Residential Type = "residential"
	Commercial  Type = "commercial"
	Plot        Type = "plot"
)

// Types lists the known property categories in display order.
//
//nolint:gochecknoglobals // immutable lookup table.
var Types = []Type{Residential, Commercial, Plot}

// Listing is a single property on the map. Listings are immutable once stored.
type Listing struct {
	ID      int64   `json:"id" yaml:"id"`
	Name    string  `json:"name" yaml:"name"`
	Type    Type    `json:"type,omitempty" yaml:"type,omitempty" jsonschema:"enum=residential,enum=commercial,enum=plot"`
	BHK     Number  `json:"bhk" yaml:"bhk"`
	Carpet  Number  `json:"carpet" yaml:"carpet" jsonschema:"description=carpet area in sq ft"`
	Price   Number  `json:"price" yaml:"price" jsonschema:"description=price in rupees"`
	PriceCr Number  `json:"priceCr" yaml:"priceCr" jsonschema:"description=price in crore"`
	Lat     float64 `json:"lat" yaml:"lat"`
	Lng     float64 `json:"lng" yaml:"lng"`
}

// Draft is the raw text captured by the create-listing form.
type Draft struct {
	Name    string
	Type    string
	BHK     string
	Carpet  string
	Price   string
	PriceCr string
	Lat     string
	Lng     string
}

// Coerce converts the draft into a Listing without an id. Nothing is rejected:
// blank fields become zero and malformed numbers the not-a-number marker.
func (d Draft) Coerce() Listing {
	return Listing{
		Name:    d.Name,
		Type:    Type(d.Type),
		BHK:     ParseFormNumber(d.BHK),
		Carpet:  ParseFormNumber(d.Carpet),
		Price:   ParseFormNumber(d.Price),
		PriceCr: ParseFormNumber(d.PriceCr),
		Lat:     parseCoord(d.Lat),
		Lng:     parseCoord(d.Lng),
	}
}

func parseCoord(raw string) float64 {
	v, ok := ParseFormNumber(raw).Float()
	if !ok {
		return math.NaN()
	}
	return v
}

// TypeLabel returns the type or the placeholder.
func (l Listing) TypeLabel() string {
	if l.Type == "" {
		return Placeholder
	}
	return string(l.Type)
}

// PriceLabel renders the rupee price for cards.
func (l Listing) PriceLabel() string {
	if _, ok := l.Price.Float(); !ok {
		return "₹ " + Placeholder
	}
	return "₹ " + l.Price.String()
}

// CoordLabel renders a coordinate, or the placeholder for NaN.
func CoordLabel(v float64) string {
	if math.IsNaN(v) {
		return Placeholder
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (l Listing) String() string {
	return fmt.Sprintf("#%d %s (%s)", l.ID, l.Name, l.TypeLabel())
}

// MarshalJSON writes NaN coordinates as null; encoding/json rejects NaN floats.
func (l Listing) MarshalJSON() ([]byte, error) {
	type plain Listing
	return json.Marshal(struct {
		plain
		Lat *float64 `json:"lat"`
		Lng *float64 `json:"lng"`
	}{plain: plain(l), Lat: finite(l.Lat), Lng: finite(l.Lng)})
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
