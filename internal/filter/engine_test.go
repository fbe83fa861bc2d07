package filter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ensigniasec/propmap/internal/geo"
	"github.com/ensigniasec/propmap/internal/listing"
)

func fixture() []listing.Listing {
	return []listing.Listing{
		{ID: 1, Name: "A", Type: listing.Residential, BHK: listing.Num(2), Carpet: listing.Num(900), PriceCr: listing.Num(0.8), Lat: 19.0, Lng: 72.8},
		{ID: 2, Name: "B", Type: listing.Commercial, BHK: listing.Num(3), Carpet: listing.Num(1800), PriceCr: listing.Num(3), Lat: 19.2, Lng: 73.0},
	}
}

func ids(ls []listing.Listing) []int64 {
	out := make([]int64, 0, len(ls))
	for _, l := range ls {
		out = append(out, l.ID)
	}
	return out
}

func TestVisibleScenarios(t *testing.T) {
	ls := fixture()

	assert.Equal(t, []int64{1, 2}, ids(Visible(ls, State{}, nil)))
	assert.Equal(t, []int64{1}, ids(Visible(ls, State{}.With(Price, "0-1"), nil)))
	assert.Equal(t, []int64{2}, ids(Visible(ls, State{}.With(BHK, "3").With(Type, "commercial"), nil)))

	north := &geo.Region{North: 19.1, South: 18.9, East: 72.9, West: 72.7}
	assert.Equal(t, []int64{1}, ids(Visible(ls, State{}, north)))
}

func TestEmptySelectionMatchesAll(t *testing.T) {
	odd := []listing.Listing{
		{ID: 1},
		{ID: 2, BHK: listing.Invalid(), Carpet: listing.Invalid(), PriceCr: listing.Invalid(), Type: "castle"},
		{ID: 3, BHK: listing.Num(7), Carpet: listing.Num(1e6), PriceCr: listing.Num(-1)},
	}
	assert.Equal(t, []int64{1, 2, 3}, ids(Visible(odd, State{}, nil)))
}

func TestPriceBucketBoundaries(t *testing.T) {
	tests := []struct {
		priceCr float64
		want    []string
	}{
		{0, []string{"0-1"}},
		{1.0, []string{"0-1"}},
		{1.0001, []string{"1-5"}},
		{5, []string{"1-5"}},
		{5.0001, []string{"5+"}},
		{100, []string{"5+"}},
	}
	for _, tt := range tests {
		l := listing.Listing{PriceCr: listing.Num(tt.priceCr)}
		for _, o := range Vocabulary(Price) {
			got := Matches(l, State{}.With(Price, o.Value), nil)
			want := len(tt.want) > 0 && tt.want[0] == o.Value
			assert.Equal(t, want, got, "priceCr=%v bucket=%s", tt.priceCr, o.Value)
		}
	}
}

func TestCarpetBucketBoundaries(t *testing.T) {
	tests := []struct {
		carpet float64
		want   string
	}{
		{500, "0-1000"},
		{1000, "0-1000"},
		{1000.5, "1000-2500"},
		{2500, "1000-2500"},
		{2501, "2500-5000"},
		{5000, "2500-5000"},
		{5001, "5000+"},
	}
	for _, tt := range tests {
		l := listing.Listing{Carpet: listing.Num(tt.carpet)}
		for _, o := range Vocabulary(Carpet) {
			got := Matches(l, State{}.With(Carpet, o.Value), nil)
			assert.Equal(t, tt.want == o.Value, got, "carpet=%v bucket=%s", tt.carpet, o.Value)
		}
	}
}

func TestMultipleBucketsAreAlternatives(t *testing.T) {
	ls := []listing.Listing{
		{ID: 1, PriceCr: listing.Num(0.5)},
		{ID: 2, PriceCr: listing.Num(3)},
		{ID: 3, PriceCr: listing.Num(9)},
	}
	assert.Equal(t, []int64{1, 3}, ids(Visible(ls, State{}.With(Price, "0-1", "5+"), nil)))
}

func TestBHKExactMembership(t *testing.T) {
	ls := []listing.Listing{
		{ID: 1, BHK: listing.Num(2)},
		{ID: 2, BHK: listing.Num(5)},
		{ID: 3, BHK: listing.Num(6)},
		{ID: 4},
	}
	assert.Equal(t, []int64{1}, ids(Visible(ls, State{}.With(BHK, "2"), nil)))
	assert.Equal(t, []int64{2}, ids(Visible(ls, State{}.With(BHK, "5+"), nil)), "5+ is an exact match on five")
	assert.Empty(t, Visible(ls, State{}.With(BHK, "two"), nil))
}

func TestInvalidNumbersNeverMatch(t *testing.T) {
	l := listing.Listing{BHK: listing.Invalid(), Carpet: listing.Invalid(), PriceCr: listing.Invalid()}
	for _, d := range []Dimension{Price, BHK, Carpet} {
		for _, o := range Vocabulary(d) {
			assert.False(t, Matches(l, State{}.With(d, o.Value), nil), "%s=%s", d, o.Value)
		}
	}
	absent := listing.Listing{}
	assert.False(t, Matches(absent, State{}.With(Price, "0-1"), nil))
}

func TestUnknownTagsNeverMatch(t *testing.T) {
	ls := fixture()
	assert.Empty(t, Visible(ls, State{}.With(Price, "cheap"), nil))
	assert.Empty(t, Visible(ls, State{}.With(Carpet, "huge"), nil))
	assert.Empty(t, Visible(ls, State{}.With(Type, "Residential"), nil), "type matching is exact")
}

func TestRegionIsClosedRectangle(t *testing.T) {
	r := &geo.Region{North: 19.2, South: 19.0, East: 73.0, West: 72.8}
	ls := fixture()
	assert.Equal(t, []int64{1, 2}, ids(Visible(ls, State{}, r)), "corners are inside")

	nan := listing.Listing{ID: 3, Lat: math.NaN(), Lng: 72.9}
	assert.False(t, Matches(nan, State{}, r))
	assert.True(t, Matches(nan, State{}, nil))
}

func TestVisibleIsPureAndOrderPreserving(t *testing.T) {
	ls := []listing.Listing{
		{ID: 9, PriceCr: listing.Num(0.5)},
		{ID: 3, PriceCr: listing.Num(0.7)},
		{ID: 5, PriceCr: listing.Num(8)},
		{ID: 1, PriceCr: listing.Num(0.1)},
	}
	before := append([]listing.Listing(nil), ls...)
	s := State{}.With(Price, "0-1")

	first := Visible(ls, s, nil)
	second := Visible(ls, s, nil)
	assert.Equal(t, []int64{9, 3, 1}, ids(first))
	assert.Equal(t, first, second)
	assert.Equal(t, before, ls)
}

func TestDimensionsCombineWithAnd(t *testing.T) {
	ls := fixture()
	s := State{}.With(Price, "1-5").With(Type, "residential")
	assert.Empty(t, Visible(ls, s, nil))
}

func TestBlankFormFieldsFallInLowestBuckets(t *testing.T) {
	drafted := listing.Draft{Name: "Quick add", Type: "residential"}.Coerce()
	drafted.ID = 9
	loaded := listing.Listing{ID: 10, Name: "From file", Type: listing.Residential}

	ls := []listing.Listing{drafted, loaded}
	assert.Equal(t, []int64{9}, ids(Visible(ls, State{}.With(Carpet, "0-1000"), nil)))
	assert.Equal(t, []int64{9}, ids(Visible(ls, State{}.With(Price, "0-1"), nil)))

	inf := listing.Draft{Carpet: "inf"}.Coerce()
	assert.Empty(t, Visible([]listing.Listing{inf}, State{}.With(Carpet, "5000+"), nil))
}
