package filter

import (
	"strconv"
	"strings"

	"github.com/ensigniasec/propmap/internal/geo"
	"github.com/ensigniasec/propmap/internal/listing"
)

// Visible returns the listings passing every active dimension and the region, in
// input order. A nil region places no geographic constraint.
func Visible(ls []listing.Listing, s State, region *geo.Region) []listing.Listing {
	m := compile(s)
	out := make([]listing.Listing, 0, len(ls))
	for _, l := range ls {
		if m.match(l, region) {
			out = append(out, l)
		}
	}
	return out
}

// Matches reports whether a single listing is visible.
func Matches(l listing.Listing, s State, region *geo.Region) bool {
	return compile(s).match(l, region)
}

// matcher is a State resolved into comparable values. A dimension is active when
// anything is selected, even if none of the selected values are recognised.
type matcher struct {
	active [4]bool
	price  []bucket
	carpet []bucket
	bhk    []float64
	types  []string
}

func compile(s State) matcher {
	var m matcher
	for _, d := range Dimensions {
		m.active[d] = len(s.sets[d]) > 0
	}
	for _, tag := range s.sets[Price] {
		if b, ok := lookupBucket(priceBuckets, tag); ok {
			m.price = append(m.price, b)
		}
	}
	for _, tag := range s.sets[Carpet] {
		if b, ok := lookupBucket(carpetBuckets, tag); ok {
			m.carpet = append(m.carpet, b)
		}
	}
	for _, v := range s.sets[BHK] {
		if n, ok := parseBHK(v); ok {
			m.bhk = append(m.bhk, n)
		}
	}
	m.types = s.sets[Type]
	return m
}

func (m matcher) match(l listing.Listing, region *geo.Region) bool {
	if m.active[Price] && !inBuckets(m.price, l.PriceCr) {
		return false
	}
	if m.active[BHK] && !inValues(m.bhk, l.BHK) {
		return false
	}
	if m.active[Carpet] && !inBuckets(m.carpet, l.Carpet) {
		return false
	}
	if m.active[Type] && !hasType(m.types, l.Type) {
		return false
	}
	return region == nil || region.Contains(l.Lat, l.Lng)
}

func inBuckets(bs []bucket, n listing.Number) bool {
	v, ok := n.Float()
	if !ok {
		return false
	}
	for _, b := range bs {
		if b.contains(v) {
			return true
		}
	}
	return false
}

func inValues(vs []float64, n listing.Number) bool {
	v, ok := n.Float()
	if !ok {
		return false
	}
	for _, want := range vs {
		if v == want {
			return true
		}
	}
	return false
}

func hasType(types []string, t listing.Type) bool {
	for _, want := range types {
		if string(t) == want {
			return true
		}
	}
	return false
}

// parseBHK reads a selection value. "5+" is the option label for five bedrooms and
// still matches exactly five.
func parseBHK(v string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(v), "+"), 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
